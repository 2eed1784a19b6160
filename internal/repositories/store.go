package repositories

import (
	"context"
	"errors"

	"github.com/anonto42/thunderlink/backend/internal/models"
)

var (
	// ErrNotFound is returned when a referenced row does not exist, including a
	// foreign key that points at a missing parent.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a uniqueness constraint
	ErrDuplicate = errors.New("duplicate record")
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id string) (*models.Post, error)
	// GetAllPosts returns every post, newest first
	GetAllPosts(ctx context.Context) ([]models.Post, error)
	DeletePost(ctx context.Context, id string) error
}

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentByID(ctx context.Context, id string) (*models.Comment, error)
	// GetCommentsByPostID returns the comments of a post, oldest first
	GetCommentsByPostID(ctx context.Context, postID string) ([]models.Comment, error)
	DeleteComment(ctx context.Context, id string) error
	DeleteCommentsByPostID(ctx context.Context, postID string) (int64, error)
}

// LikeRepository defines the interface for like data operations
type LikeRepository interface {
	// CreateLike returns ErrDuplicate when the (user, post) pair already exists
	CreateLike(ctx context.Context, like *models.Like) error
	// DeleteLike returns ErrNotFound when there was nothing to delete
	DeleteLike(ctx context.Context, postID, userID string) error
	HasUserLikedPost(ctx context.Context, postID, userID string) (bool, error)
	// GetLikesByPostID returns the likes of a post, oldest first
	GetLikesByPostID(ctx context.Context, postID string) ([]models.Like, error)
	DeleteLikesByPostID(ctx context.Context, postID string) (int64, error)
}

// UserRepository gives read access to users owned by the identity service.
// CreateUser exists for seeding and tests.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error)
}

// Store is the durable system of record for users, posts, comments and likes.
type Store interface {
	Posts() PostRepository
	Comments() CommentRepository
	Likes() LikeRepository
	Users() UserRepository

	// Transaction runs fn as one atomic unit. fn must use the Store and context it
	// is handed; returning an error rolls every change back and is returned as is.
	Transaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	Ping(ctx context.Context) error
}
