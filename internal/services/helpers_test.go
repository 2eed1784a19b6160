package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/anonto42/thunderlink/backend/internal/authctx"
	"github.com/anonto42/thunderlink/backend/internal/cache"
	"github.com/anonto42/thunderlink/backend/internal/events"
	"github.com/anonto42/thunderlink/backend/internal/models"
	"github.com/anonto42/thunderlink/backend/internal/ratelimit"
	"github.com/anonto42/thunderlink/backend/internal/repositories"
	"github.com/anonto42/thunderlink/backend/internal/services"
	"github.com/anonto42/thunderlink/backend/internal/util"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const postCooldown = 10 * time.Second

type testEnv struct {
	svc       *services.ContentService
	store     *repositories.MemoryStore
	redis     *miniredis.Miniredis
	listing   *cache.PostListCache
	clock     *util.StubClock
	published *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithStore(t, nil)
}

// newTestEnvWithStore builds the service over wrap(memory store), or over the
// memory store itself when wrap is nil.
func newTestEnvWithStore(t *testing.T, wrap func(repositories.Store) repositories.Store) *testEnv {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	mem := repositories.NewMemoryStore()
	var store repositories.Store = mem
	if wrap != nil {
		store = wrap(mem)
	}

	listing := cache.NewPostListCache(client, "")
	limiter := ratelimit.NewLimiter(client, map[ratelimit.Action]time.Duration{
		ratelimit.ActionPost: postCooldown,
	})
	published := &recordingPublisher{}

	svc := services.NewContentService(store, listing, limiter, published, nil)
	clock := util.NewStubClock()
	svc.Clock = clock

	return &testEnv{
		svc:       svc,
		store:     mem,
		redis:     mr,
		listing:   listing,
		clock:     clock,
		published: published,
	}
}

func getTestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

func asUser(ctx context.Context, userID string) context.Context {
	return authctx.WithUser(ctx, userID)
}

// newUser stores a user with a fake display name and returns its id
func (e *testEnv) newUser(ctx context.Context, t *testing.T) string {
	user := &models.User{
		ID:        gofakeit.UUID(),
		Name:      gofakeit.Name(),
		CreatedAt: e.clock.NowUtc(),
	}
	require.NoError(t, e.store.Users().CreateUser(ctx, user))
	return user.ID
}

// newPost creates a post as userID and moves the clock past the post cooldown
func (e *testEnv) newPost(ctx context.Context, t *testing.T, userID string) *models.Post {
	post, err := e.svc.CreatePost(asUser(ctx, userID), services.CreatePostInput{Content: gofakeit.Sentence(6)})
	require.NoError(t, err)
	e.redis.FastForward(postCooldown)
	e.clock.Advance(time.Second)
	return post
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Subject)
	}
	return out
}

var (
	errInjected = errors.New("injected store failure")
	errCommit   = errors.New("injected commit failure")
)

// faultyStore wraps a Store and fails selected calls a set number of times.
// A negative count fails forever.
type faultyStore struct {
	repositories.Store

	createPostFailures  int
	deleteLikesFailures int
	commitFailures      int
	commitRollsBack     bool
	transactionsStarted int
}

func (f *faultyStore) Posts() repositories.PostRepository {
	return &faultyPosts{PostRepository: f.Store.Posts(), f: f}
}

func (f *faultyStore) Transaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Store) error) error {
	f.transactionsStarted++
	var failCommit bool
	if f.commitFailures != 0 {
		failCommit = true
		if f.commitFailures > 0 {
			f.commitFailures--
		}
	}

	err := f.Store.Transaction(ctx, func(ctx context.Context, tx repositories.Store) error {
		if err := fn(ctx, &faultyTx{Store: tx, f: f}); err != nil {
			return err
		}
		if failCommit && f.commitRollsBack {
			return errCommit
		}
		return nil
	})
	if err != nil {
		return err
	}
	if failCommit {
		return errCommit
	}
	return nil
}

type faultyTx struct {
	repositories.Store
	f *faultyStore
}

func (t *faultyTx) Posts() repositories.PostRepository {
	return &faultyPosts{PostRepository: t.Store.Posts(), f: t.f}
}

func (t *faultyTx) Likes() repositories.LikeRepository {
	return &faultyLikes{LikeRepository: t.Store.Likes(), f: t.f}
}

type faultyPosts struct {
	repositories.PostRepository
	f *faultyStore
}

func (p *faultyPosts) CreatePost(ctx context.Context, post *models.Post) error {
	if p.f.createPostFailures != 0 {
		if p.f.createPostFailures > 0 {
			p.f.createPostFailures--
		}
		return errInjected
	}
	return p.PostRepository.CreatePost(ctx, post)
}

type faultyLikes struct {
	repositories.LikeRepository
	f *faultyStore
}

func (l *faultyLikes) DeleteLikesByPostID(ctx context.Context, postID string) (int64, error) {
	if l.f.deleteLikesFailures != 0 {
		if l.f.deleteLikesFailures > 0 {
			l.f.deleteLikesFailures--
		}
		return 0, errInjected
	}
	return l.LikeRepository.DeleteLikesByPostID(ctx, postID)
}
