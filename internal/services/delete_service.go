package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/anonto42/thunderlink/backend/internal/events"
	"github.com/anonto42/thunderlink/backend/internal/models"
	"github.com/anonto42/thunderlink/backend/internal/repositories"
)

// DeletePost removes a post together with its likes and comments in one store
// transaction. Only the author may delete a post.
//
// Store failures are retried as a whole, up to DeleteRetries attempts. If a
// commit failed and no later attempt settled the outcome, the error wraps
// ErrInconsistent.
func (s *ContentService) DeletePost(ctx context.Context, postID string) error {
	userID, err := requireUser(ctx)
	if err != nil {
		return err
	}

	attempts := s.DeleteRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	commitUncertain := false
	for attempt := 1; attempt <= attempts; attempt++ {
		err := s.deletePostOnce(ctx, postID, userID)
		if err == nil {
			lastErr = nil
			break
		}

		var cascadeErr *CascadeError
		if !errors.As(err, &cascadeErr) {
			// a commit we could not confirm did land
			if commitUncertain && errors.Is(err, ErrNotFound) {
				lastErr = nil
				break
			}
			return err
		}

		lastErr = err
		if cascadeErr.Step == StepCommit {
			commitUncertain = true
		}
		log.Printf("post deletion attempt %d/%d failed: %v", attempt, attempts, err)
		if ctx.Err() != nil {
			break
		}
	}

	if lastErr != nil {
		if commitUncertain {
			return fmt.Errorf("%w: %w", ErrInconsistent, lastErr)
		}
		return lastErr
	}

	s.invalidateListing(ctx)
	s.publish(ctx, events.Event{Subject: events.PostDeleted, PostID: postID, UserID: userID, Timestamp: s.Clock.NowUtc()})
	return nil
}

func (s *ContentService) deletePostOnce(ctx context.Context, postID, userID string) error {
	completed := false
	err := s.store.Transaction(ctx, func(ctx context.Context, tx repositories.Store) error {
		completed = false

		post, err := tx.Posts().GetPostByID(ctx, postID)
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return &CascadeError{PostID: postID, Step: StepLoadPost, Err: err}
		}
		if !isAuthor(post, userID) {
			return ErrForbidden
		}

		if _, err := tx.Likes().DeleteLikesByPostID(ctx, postID); err != nil {
			return &CascadeError{PostID: postID, Step: StepDeleteLikes, Err: err}
		}
		if _, err := tx.Comments().DeleteCommentsByPostID(ctx, postID); err != nil {
			return &CascadeError{PostID: postID, Step: StepDeleteComments, Err: err}
		}
		if err := tx.Posts().DeletePost(ctx, postID); err != nil {
			return &CascadeError{PostID: postID, Step: StepDeletePost, Err: err}
		}

		completed = true
		return nil
	})
	if err != nil && completed {
		return &CascadeError{PostID: postID, Step: StepCommit, Err: err}
	}
	return err
}

// DeleteSingleComment removes one comment of a post. The comment's author and the
// post's author may delete it.
func (s *ContentService) DeleteSingleComment(ctx context.Context, postID, commentID string) error {
	userID, err := requireUser(ctx)
	if err != nil {
		return err
	}

	err = s.store.Transaction(ctx, func(ctx context.Context, tx repositories.Store) error {
		comment, err := tx.Comments().GetCommentByID(ctx, commentID)
		if err != nil {
			return storeErr("get comment", err)
		}
		if comment.PostID != postID {
			return ErrNotFound
		}
		if comment.UserID != userID {
			if err := s.requireAuthor(ctx, tx, postID, userID); err != nil {
				if errors.Is(err, ErrNotFound) {
					return ErrForbidden
				}
				return err
			}
		}
		return storeErr("delete comment", tx.Comments().DeleteComment(ctx, commentID))
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.Event{
		Subject:   events.CommentDeleted,
		PostID:    postID,
		CommentID: commentID,
		UserID:    userID,
		Timestamp: s.Clock.NowUtc(),
	})
	return nil
}

// DeleteLikes removes every like of a post. Only the post author may do this.
func (s *ContentService) DeleteLikes(ctx context.Context, postID string) (int64, error) {
	return s.bulkDelete(ctx, postID, "delete likes", func(ctx context.Context, tx repositories.Store) (int64, error) {
		return tx.Likes().DeleteLikesByPostID(ctx, postID)
	})
}

// DeleteComments removes every comment of a post. Only the post author may do this.
func (s *ContentService) DeleteComments(ctx context.Context, postID string) (int64, error) {
	return s.bulkDelete(ctx, postID, "delete comments", func(ctx context.Context, tx repositories.Store) (int64, error) {
		return tx.Comments().DeleteCommentsByPostID(ctx, postID)
	})
}

func (s *ContentService) bulkDelete(
	ctx context.Context,
	postID, op string,
	del func(ctx context.Context, tx repositories.Store) (int64, error),
) (int64, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return 0, err
	}

	var removed int64
	err = s.store.Transaction(ctx, func(ctx context.Context, tx repositories.Store) error {
		if err := s.requireAuthor(ctx, tx, postID, userID); err != nil {
			return err
		}
		n, err := del(ctx, tx)
		if err != nil {
			return storeErr(op, err)
		}
		removed = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *ContentService) requireAuthor(ctx context.Context, tx repositories.Store, postID, userID string) error {
	post, err := tx.Posts().GetPostByID(ctx, postID)
	if err != nil {
		return storeErr("get post", err)
	}
	if !isAuthor(post, userID) {
		return ErrForbidden
	}
	return nil
}

func isAuthor(post *models.Post, userID string) bool {
	return post.AuthorID == userID
}
