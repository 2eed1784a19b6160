package repositories

import (
	"context"
	"sort"
	"sync"

	"github.com/anonto42/thunderlink/backend/internal/models"
)

type likeKey struct {
	postID string
	userID string
}

type memoryData struct {
	users    map[string]models.User
	posts    map[string]models.Post
	comments map[string]models.Comment
	likes    map[likeKey]models.Like
}

func newMemoryData() *memoryData {
	return &memoryData{
		users:    make(map[string]models.User),
		posts:    make(map[string]models.Post),
		comments: make(map[string]models.Comment),
		likes:    make(map[likeKey]models.Like),
	}
}

func (d *memoryData) clone() *memoryData {
	c := newMemoryData()
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.posts {
		c.posts[k] = v
	}
	for k, v := range d.comments {
		c.comments[k] = v
	}
	for k, v := range d.likes {
		c.likes[k] = v
	}
	return c
}

// MemoryStore keeps everything in process. Transactions work on a copy of the
// data that replaces the original only when fn succeeds, and hold the write lock
// for their whole duration.
type MemoryStore struct {
	mu   *sync.RWMutex
	data *memoryData
	inTx bool
}

// NewMemoryStore creates an empty in-memory Store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{mu: &sync.RWMutex{}, data: newMemoryData()}
}

func (s *MemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) rlock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *MemoryStore) Posts() PostRepository       { return memoryPosts{s} }
func (s *MemoryStore) Comments() CommentRepository { return memoryComments{s} }
func (s *MemoryStore) Likes() LikeRepository       { return memoryLikes{s} }
func (s *MemoryStore) Users() UserRepository       { return memoryUsers{s} }

func (s *MemoryStore) Transaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	unlock := s.lock()
	defer unlock()

	tx := &MemoryStore{mu: s.mu, data: s.data.clone(), inTx: true}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	*s.data = *tx.data
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

type memoryPosts struct{ s *MemoryStore }

func (r memoryPosts) CreatePost(ctx context.Context, post *models.Post) error {
	defer r.s.lock()()
	if _, ok := r.s.data.posts[post.ID]; ok {
		return ErrDuplicate
	}
	r.s.data.posts[post.ID] = *post
	return nil
}

func (r memoryPosts) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	defer r.s.rlock()()
	post, ok := r.s.data.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &post, nil
}

func (r memoryPosts) GetAllPosts(ctx context.Context) ([]models.Post, error) {
	defer r.s.rlock()()
	posts := make([]models.Post, 0, len(r.s.data.posts))
	for _, p := range r.s.data.posts {
		posts = append(posts, p)
	}
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID > posts[j].ID
	})
	return posts, nil
}

func (r memoryPosts) DeletePost(ctx context.Context, id string) error {
	defer r.s.lock()()
	if _, ok := r.s.data.posts[id]; !ok {
		return ErrNotFound
	}
	delete(r.s.data.posts, id)
	return nil
}

type memoryComments struct{ s *MemoryStore }

func (r memoryComments) CreateComment(ctx context.Context, comment *models.Comment) error {
	defer r.s.lock()()
	if _, ok := r.s.data.comments[comment.ID]; ok {
		return ErrDuplicate
	}
	r.s.data.comments[comment.ID] = *comment
	return nil
}

func (r memoryComments) GetCommentByID(ctx context.Context, id string) (*models.Comment, error) {
	defer r.s.rlock()()
	comment, ok := r.s.data.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &comment, nil
}

func (r memoryComments) GetCommentsByPostID(ctx context.Context, postID string) ([]models.Comment, error) {
	defer r.s.rlock()()
	comments := make([]models.Comment, 0)
	for _, c := range r.s.data.comments {
		if c.PostID == postID {
			comments = append(comments, c)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.Before(comments[j].CreatedAt)
		}
		return comments[i].ID < comments[j].ID
	})
	return comments, nil
}

func (r memoryComments) DeleteComment(ctx context.Context, id string) error {
	defer r.s.lock()()
	if _, ok := r.s.data.comments[id]; !ok {
		return ErrNotFound
	}
	delete(r.s.data.comments, id)
	return nil
}

func (r memoryComments) DeleteCommentsByPostID(ctx context.Context, postID string) (int64, error) {
	defer r.s.lock()()
	var n int64
	for id, c := range r.s.data.comments {
		if c.PostID == postID {
			delete(r.s.data.comments, id)
			n++
		}
	}
	return n, nil
}

type memoryLikes struct{ s *MemoryStore }

func (r memoryLikes) CreateLike(ctx context.Context, like *models.Like) error {
	defer r.s.lock()()
	key := likeKey{postID: like.PostID, userID: like.UserID}
	if _, ok := r.s.data.likes[key]; ok {
		return ErrDuplicate
	}
	r.s.data.likes[key] = *like
	return nil
}

func (r memoryLikes) DeleteLike(ctx context.Context, postID, userID string) error {
	defer r.s.lock()()
	key := likeKey{postID: postID, userID: userID}
	if _, ok := r.s.data.likes[key]; !ok {
		return ErrNotFound
	}
	delete(r.s.data.likes, key)
	return nil
}

func (r memoryLikes) HasUserLikedPost(ctx context.Context, postID, userID string) (bool, error) {
	defer r.s.rlock()()
	_, ok := r.s.data.likes[likeKey{postID: postID, userID: userID}]
	return ok, nil
}

func (r memoryLikes) GetLikesByPostID(ctx context.Context, postID string) ([]models.Like, error) {
	defer r.s.rlock()()
	likes := make([]models.Like, 0)
	for _, l := range r.s.data.likes {
		if l.PostID == postID {
			likes = append(likes, l)
		}
	}
	sort.Slice(likes, func(i, j int) bool {
		if !likes[i].CreatedAt.Equal(likes[j].CreatedAt) {
			return likes[i].CreatedAt.Before(likes[j].CreatedAt)
		}
		return likes[i].UserID < likes[j].UserID
	})
	return likes, nil
}

func (r memoryLikes) DeleteLikesByPostID(ctx context.Context, postID string) (int64, error) {
	defer r.s.lock()()
	var n int64
	for key := range r.s.data.likes {
		if key.postID == postID {
			delete(r.s.data.likes, key)
			n++
		}
	}
	return n, nil
}

type memoryUsers struct{ s *MemoryStore }

func (r memoryUsers) CreateUser(ctx context.Context, user *models.User) error {
	defer r.s.lock()()
	if _, ok := r.s.data.users[user.ID]; ok {
		return ErrDuplicate
	}
	r.s.data.users[user.ID] = *user
	return nil
}

func (r memoryUsers) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	defer r.s.rlock()()
	user, ok := r.s.data.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (r memoryUsers) GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	defer r.s.rlock()()
	users := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.s.data.users[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}
