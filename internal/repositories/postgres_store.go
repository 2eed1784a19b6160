package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/thunderlink/backend/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PostgresStore is the gorm backed Store
type PostgresStore struct {
	db       *gorm.DB
	posts    *PostgresPostRepository
	comments *PostgresCommentRepository
	likes    *PostgresLikeRepository
	users    *PostgresUserRepository
}

// NewPostgresStore wraps an open gorm connection
func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{
		db:       db,
		posts:    NewPostgresPostRepository(db),
		comments: NewPostgresCommentRepository(db),
		likes:    NewPostgresLikeRepository(db),
		users:    NewPostgresUserRepository(db),
	}
}

// Migrate creates or updates the tables this service owns
func (s *PostgresStore) Migrate() error {
	if err := s.db.AutoMigrate(&models.User{}, &models.Post{}, &models.Comment{}, &models.Like{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) Posts() PostRepository       { return s.posts }
func (s *PostgresStore) Comments() CommentRepository { return s.comments }
func (s *PostgresStore) Likes() LikeRepository       { return s.likes }
func (s *PostgresStore) Users() UserRepository       { return s.users }

// Transaction runs fn inside a database transaction
func (s *PostgresStore) Transaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewPostgresStore(tx))
	})
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func translatePgError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ErrDuplicate
		case pgForeignKeyViolation:
			return ErrNotFound
		}
	}
	return err
}
