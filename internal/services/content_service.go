// Package services holds the content-interaction rules: who may create, read and
// remove posts, comments and likes, and how those writes keep the rate limiter,
// the listing cache and subscribers in step with the store.
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/anonto42/thunderlink/backend/internal/authctx"
	"github.com/anonto42/thunderlink/backend/internal/events"
	"github.com/anonto42/thunderlink/backend/internal/models"
	"github.com/anonto42/thunderlink/backend/internal/ratelimit"
	"github.com/anonto42/thunderlink/backend/internal/repositories"
	"github.com/anonto42/thunderlink/backend/internal/storage"
	"github.com/anonto42/thunderlink/backend/internal/util"
	"github.com/google/uuid"
)

// DefaultDeleteRetries is how many times a post deletion is attempted before
// its error is returned
const DefaultDeleteRetries = 3

// PostListing is the read-through cache of the post listing
type PostListing interface {
	Fetch(ctx context.Context, load func(ctx context.Context) ([]models.Post, error)) ([]models.Post, error)
	Invalidate(ctx context.Context) error
}

// Limiter throttles mutations per user
type Limiter interface {
	CheckAndArm(ctx context.Context, action ratelimit.Action, userID string) (ratelimit.Decision, error)
	Release(ctx context.Context, action ratelimit.Action, userID string) error
}

type CreatePostInput struct {
	Content  string
	ImageURL *string
}

type AddCommentInput struct {
	PostID  string
	Content string
}

type UploadURLInput struct {
	FileName string
	MimeType string
}

// ContentService implements post, comment and like operations on top of a Store
type ContentService struct {
	store     repositories.Store
	listing   PostListing
	limiter   Limiter
	publisher events.Publisher
	uploader  storage.Uploader

	Clock         util.Clock
	DeleteRetries int
}

// NewContentService wires the service. A nil listing, limiter, publisher or
// uploader disables that collaborator.
func NewContentService(
	store repositories.Store,
	listing PostListing,
	limiter Limiter,
	publisher events.Publisher,
	uploader storage.Uploader,
) *ContentService {
	if listing == nil {
		listing = uncachedListing{}
	}
	if limiter == nil {
		limiter = unlimited{}
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if uploader == nil {
		uploader = storage.NopUploader{}
	}
	return &ContentService{
		store:         store,
		listing:       listing,
		limiter:       limiter,
		publisher:     publisher,
		uploader:      uploader,
		Clock:         util.NewRealClock(),
		DeleteRetries: DefaultDeleteRetries,
	}
}

func requireUser(ctx context.Context) (string, error) {
	userID, ok := authctx.UserFromContext(ctx)
	if !ok {
		return "", ErrUnauthenticated
	}
	return userID, nil
}

// storeErr maps repository sentinels onto service errors and wraps the rest
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// CreatePost stores a new post authored by the caller
func (s *ContentService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is empty", ErrInvalidArgument)
	}

	if s.throttled(ctx, ratelimit.ActionPost, userID) {
		return nil, ErrThrottled
	}

	post := &models.Post{
		ID:        uuid.NewString(),
		Content:   content,
		ImageURL:  in.ImageURL,
		AuthorID:  userID,
		CreatedAt: s.Clock.NowUtc(),
	}
	if err := s.store.Posts().CreatePost(ctx, post); err != nil {
		s.release(ctx, ratelimit.ActionPost, userID)
		return nil, storeErr("create post", err)
	}

	s.invalidateListing(ctx)
	s.publish(ctx, events.Event{
		Subject:   events.PostCreated,
		PostID:    post.ID,
		UserID:    userID,
		Content:   post.Content,
		ImageURL:  post.ImageURL,
		Timestamp: post.CreatedAt,
	})
	return post, nil
}

// GetAllPosts returns every post, newest first
func (s *ContentService) GetAllPosts(ctx context.Context) ([]models.Post, error) {
	posts, err := s.listing.Fetch(ctx, s.store.Posts().GetAllPosts)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// GetPostByID returns a single post
func (s *ContentService) GetPostByID(ctx context.Context, postID string) (*models.Post, error) {
	post, err := s.store.Posts().GetPostByID(ctx, postID)
	if err != nil {
		return nil, storeErr("get post", err)
	}
	return post, nil
}

// AddComment attaches a comment by the caller to an existing post
func (s *ContentService) AddComment(ctx context.Context, in AddCommentInput) (*models.Comment, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is empty", ErrInvalidArgument)
	}

	if s.throttled(ctx, ratelimit.ActionComment, userID) {
		return nil, ErrThrottled
	}

	comment := &models.Comment{
		ID:        uuid.NewString(),
		PostID:    in.PostID,
		UserID:    userID,
		Content:   content,
		CreatedAt: s.Clock.NowUtc(),
	}
	err = s.store.Transaction(ctx, func(ctx context.Context, tx repositories.Store) error {
		if _, err := tx.Posts().GetPostByID(ctx, in.PostID); err != nil {
			return storeErr("get post", err)
		}
		if err := tx.Comments().CreateComment(ctx, comment); err != nil {
			return storeErr("create comment", err)
		}
		return nil
	})
	if err != nil {
		s.release(ctx, ratelimit.ActionComment, userID)
		return nil, err
	}

	s.publish(ctx, events.Event{
		Subject:   events.CommentCreated,
		PostID:    comment.PostID,
		CommentID: comment.ID,
		UserID:    userID,
		Content:   comment.Content,
		Timestamp: comment.CreatedAt,
	})
	return comment, nil
}

// GetAllComments returns the comments of a post, oldest first. An unknown post
// has no comments.
func (s *ContentService) GetAllComments(ctx context.Context, postID string) ([]models.Comment, error) {
	if _, err := requireUser(ctx); err != nil {
		return nil, err
	}
	comments, err := s.store.Comments().GetCommentsByPostID(ctx, postID)
	if err != nil {
		return nil, storeErr("list comments", err)
	}
	return comments, nil
}

// Like records that the caller likes a post
func (s *ContentService) Like(ctx context.Context, postID string) error {
	userID, err := requireUser(ctx)
	if err != nil {
		return err
	}

	like := &models.Like{UserID: userID, PostID: postID, CreatedAt: s.Clock.NowUtc()}
	err = s.store.Transaction(ctx, func(ctx context.Context, tx repositories.Store) error {
		if _, err := tx.Posts().GetPostByID(ctx, postID); err != nil {
			return storeErr("get post", err)
		}
		if err := tx.Likes().CreateLike(ctx, like); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return ErrAlreadyLiked
			}
			return storeErr("create like", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.Event{Subject: events.PostLiked, PostID: postID, UserID: userID, Timestamp: like.CreatedAt})
	return nil
}

// Unlike removes the caller's like from a post
func (s *ContentService) Unlike(ctx context.Context, postID string) error {
	userID, err := requireUser(ctx)
	if err != nil {
		return err
	}
	if err := s.store.Likes().DeleteLike(ctx, postID, userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotLiked
		}
		return fmt.Errorf("delete like: %w", err)
	}

	s.publish(ctx, events.Event{Subject: events.PostUnliked, PostID: postID, UserID: userID, Timestamp: s.Clock.NowUtc()})
	return nil
}

// HasLiked reports whether the caller currently likes a post
func (s *ContentService) HasLiked(ctx context.Context, postID string) (bool, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return false, err
	}
	liked, err := s.store.Likes().HasUserLikedPost(ctx, postID, userID)
	if err != nil {
		return false, fmt.Errorf("check like: %w", err)
	}
	return liked, nil
}

// TotalLikes returns the like count of a post and who liked it, oldest like first.
// A post that does not exist has no likes.
func (s *ContentService) TotalLikes(ctx context.Context, postID string) (*models.LikeSummary, error) {
	likes, err := s.store.Likes().GetLikesByPostID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("list likes: %w", err)
	}

	summary := &models.LikeSummary{PostID: postID, Count: len(likes), Likes: make([]models.LikeEntry, 0, len(likes))}
	if len(likes) == 0 {
		return summary, nil
	}

	ids := make([]string, 0, len(likes))
	for _, l := range likes {
		ids = append(ids, l.UserID)
	}
	users, err := s.store.Users().GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load liking users: %w", err)
	}
	byID := make(map[string]models.UserCompact, len(users))
	for i := range users {
		byID[users[i].ID] = users[i].ToCompact()
	}

	for _, l := range likes {
		user, ok := byID[l.UserID]
		if !ok {
			user = models.UserCompact{ID: l.UserID}
		}
		summary.Likes = append(summary.Likes, models.LikeEntry{User: user, LikedAt: l.CreatedAt})
	}
	return summary, nil
}

// IssueUploadURL returns a signed URL the caller can upload a post image to
func (s *ContentService) IssueUploadURL(ctx context.Context, in UploadURLInput) (string, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return "", err
	}
	url, err := s.uploader.IssueUploadURL(ctx, userID, in.FileName, in.MimeType)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidFileName) {
			return "", fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		return "", err
	}
	return url, nil
}

func (s *ContentService) throttled(ctx context.Context, action ratelimit.Action, userID string) bool {
	decision, err := s.limiter.CheckAndArm(ctx, action, userID)
	if err != nil {
		log.Printf("rate limit check for %s by %s failed open: %v", action, userID, err)
	}
	return decision == ratelimit.Throttled
}

func (s *ContentService) release(ctx context.Context, action ratelimit.Action, userID string) {
	if err := s.limiter.Release(ctx, action, userID); err != nil {
		log.Printf("failed to release %s rate limit for %s: %v", action, userID, err)
	}
}

func (s *ContentService) invalidateListing(ctx context.Context) {
	if err := s.listing.Invalidate(ctx); err != nil {
		log.Printf("post listing invalidation deferred: %v", err)
	}
}

func (s *ContentService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Printf("failed to publish %s for post %s: %v", event.Subject, event.PostID, err)
	}
}

type uncachedListing struct{}

func (uncachedListing) Fetch(ctx context.Context, load func(ctx context.Context) ([]models.Post, error)) ([]models.Post, error) {
	return load(ctx)
}

func (uncachedListing) Invalidate(context.Context) error { return nil }

type unlimited struct{}

func (unlimited) CheckAndArm(context.Context, ratelimit.Action, string) (ratelimit.Decision, error) {
	return ratelimit.Allowed, nil
}

func (unlimited) Release(context.Context, ratelimit.Action, string) error { return nil }
