package services_test

import (
	"errors"
	"testing"

	"github.com/anonto42/thunderlink/backend/internal/events"
	"github.com/anonto42/thunderlink/backend/internal/repositories"
	"github.com/anonto42/thunderlink/backend/internal/services"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario B: deleting a post removes its likes and comments with it
func TestDeletePostCascades(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()
	env := newTestEnv(t)
	author := env.newUser(ctx, t)
	reader := env.newUser(ctx, t)
	post := env.newPost(ctx, t, author)
	other := env.newPost(ctx, t, author)

	for _, postID := range []string{post.ID, other.ID} {
		require.NoError(t, env.svc.Like(asUser(ctx, reader), postID))
		_, err := env.svc.AddComment(asUser(ctx, reader), services.AddCommentInput{PostID: postID, Content: "hi"})
		require.NoError(t, err)
	}

	require.NoError(t, env.svc.DeletePost(asUser(ctx, author), post.ID))

	_, err := env.svc.GetPostByID(ctx, post.ID)
	require.ErrorIs(t, err, services.ErrNotFound)

	summary, err := env.svc.TotalLikes(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Count)

	comments, err := env.svc.GetAllComments(asUser(ctx, reader), post.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)

	// the sibling post is untouched
	summary, err = env.svc.TotalLikes(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Count)
	comments, err = env.svc.GetAllComments(asUser(ctx, reader), other.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 1)

	subjects := env.published.subjects()
	assert.Equal(t, events.PostDeleted, subjects[len(subjects)-1])
}

func TestDeletePostAuthorization(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()
	env := newTestEnv(t)
	author := env.newUser(ctx, t)
	post := env.newPost(ctx, t, author)

	require.ErrorIs(t, env.svc.DeletePost(ctx, post.ID), services.ErrUnauthenticated)
	require.ErrorIs(t, env.svc.DeletePost(asUser(ctx, env.newUser(ctx, t)), post.ID), services.ErrForbidden)
	require.ErrorIs(t, env.svc.DeletePost(asUser(ctx, author), gofakeit.UUID()), services.ErrNotFound)

	_, err := env.svc.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
}

func TestDeletePostRollsBackFailedStep(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()
	faulty := &faultyStore{}
	env := newTestEnvWithStore(t, func(s repositories.Store) repositories.Store {
		faulty.Store = s
		return faulty
	})
	author := env.newUser(ctx, t)
	reader := env.newUser(ctx, t)
	post := env.newPost(ctx, t, author)
	require.NoError(t, env.svc.Like(asUser(ctx, reader), post.ID))
	_, err := env.svc.AddComment(asUser(ctx, reader), services.AddCommentInput{PostID: post.ID, Content: "hi"})
	require.NoError(t, err)

	faulty.deleteLikesFailures = -1
	faulty.transactionsStarted = 0

	err = env.svc.DeletePost(asUser(ctx, author), post.ID)
	require.Error(t, err)
	require.ErrorIs(t, err, errInjected)
	require.NotErrorIs(t, err, services.ErrInconsistent)

	var cascadeErr *services.CascadeError
	require.True(t, errors.As(err, &cascadeErr))
	assert.Equal(t, services.StepDeleteLikes, cascadeErr.Step)
	assert.Equal(t, post.ID, cascadeErr.PostID)
	assert.Equal(t, services.DefaultDeleteRetries, faulty.transactionsStarted)

	// nothing was removed
	_, err = env.svc.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	summary, err := env.svc.TotalLikes(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Count)
	comments, err := env.svc.GetAllComments(asUser(ctx, reader), post.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 1)
}

func TestDeletePostRetriesTransientFailure(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()
	faulty := &faultyStore{}
	env := newTestEnvWithStore(t, func(s repositories.Store) repositories.Store {
		faulty.Store = s
		return faulty
	})
	author := env.newUser(ctx, t)
	post := env.newPost(ctx, t, author)
	require.NoError(t, env.svc.Like(asUser(ctx, env.newUser(ctx, t)), post.ID))

	faulty.deleteLikesFailures = 1
	require.NoError(t, env.svc.DeletePost(asUser(ctx, author), post.ID))

	_, err := env.svc.GetPostByID(ctx, post.ID)
	require.ErrorIs(t, err, services.ErrNotFound)
	summary, err := env.svc.TotalLikes(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Count)
}

func TestDeletePostUnconfirmedCommitIsInconsistent(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()
	faulty := &faultyStore{}
	env := newTestEnvWithStore(t, func(s repositories.Store) repositories.Store {
		faulty.Store = s
		return faulty
	})
	author := env.newUser(ctx, t)
	post := env.newPost(ctx, t, author)

	faulty.commitFailures = -1
	faulty.commitRollsBack = true

	err := env.svc.DeletePost(asUser(ctx, author), post.ID)
	require.ErrorIs(t, err, services.ErrInconsistent)
	require.ErrorIs(t, err, errCommit)

	var cascadeErr *services.CascadeError
	require.True(t, errors.As(err, &cascadeErr))
	assert.Equal(t, services.StepCommit, cascadeErr.Step)

	assert.NotContains(t, env.published.subjects(), events.PostDeleted)
}

func TestDeletePostCommitThatLandedIsSuccess(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()
	faulty := &faultyStore{}
	env := newTestEnvWithStore(t, func(s repositories.Store) repositories.Store {
		faulty.Store = s
		return faulty
	})
	author := env.newUser(ctx, t)
	post := env.newPost(ctx, t, author)

	// the first commit applies but reports an error
	faulty.commitFailures = 1

	require.NoError(t, env.svc.DeletePost(asUser(ctx, author), post.ID))
	_, err := env.svc.GetPostByID(ctx, post.ID)
	require.ErrorIs(t, err, services.ErrNotFound)
	assert.Contains(t, env.published.subjects(), events.PostDeleted)
}

func TestDeleteSingleComment(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()
	env := newTestEnv(t)
	author := env.newUser(ctx, t)
	commenter := env.newUser(ctx, t)
	stranger := env.newUser(ctx, t)
	post := env.newPost(ctx, t, author)
	other := env.newPost(ctx, t, author)

	comment, err := env.svc.AddComment(asUser(ctx, commenter), services.AddCommentInput{PostID: post.ID, Content: "one"})
	require.NoError(t, err)
	second, err := env.svc.AddComment(asUser(ctx, commenter), services.AddCommentInput{PostID: post.ID, Content: "two"})
	require.NoError(t, err)

	require.ErrorIs(t, env.svc.DeleteSingleComment(ctx, post.ID, comment.ID), services.ErrUnauthenticated)
	// the comment exists but under a different post
	require.ErrorIs(t, env.svc.DeleteSingleComment(asUser(ctx, commenter), other.ID, comment.ID), services.ErrNotFound)
	require.ErrorIs(t, env.svc.DeleteSingleComment(asUser(ctx, commenter), post.ID, gofakeit.UUID()), services.ErrNotFound)
	require.ErrorIs(t, env.svc.DeleteSingleComment(asUser(ctx, stranger), post.ID, comment.ID), services.ErrForbidden)

	require.NoError(t, env.svc.DeleteSingleComment(asUser(ctx, commenter), post.ID, comment.ID))
	require.NoError(t, env.svc.DeleteSingleComment(asUser(ctx, author), post.ID, second.ID))

	comments, err := env.svc.GetAllComments(asUser(ctx, author), post.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
	assert.Contains(t, env.published.subjects(), events.CommentDeleted)
}

func TestBulkDeletesAreAuthorOnly(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()
	env := newTestEnv(t)
	author := env.newUser(ctx, t)
	reader := env.newUser(ctx, t)
	post := env.newPost(ctx, t, author)

	require.NoError(t, env.svc.Like(asUser(ctx, reader), post.ID))
	require.NoError(t, env.svc.Like(asUser(ctx, author), post.ID))
	_, err := env.svc.AddComment(asUser(ctx, reader), services.AddCommentInput{PostID: post.ID, Content: "hi"})
	require.NoError(t, err)

	_, err = env.svc.DeleteLikes(asUser(ctx, reader), post.ID)
	require.ErrorIs(t, err, services.ErrForbidden)
	_, err = env.svc.DeleteComments(asUser(ctx, reader), post.ID)
	require.ErrorIs(t, err, services.ErrForbidden)
	_, err = env.svc.DeleteLikes(asUser(ctx, author), gofakeit.UUID())
	require.ErrorIs(t, err, services.ErrNotFound)

	removed, err := env.svc.DeleteLikes(asUser(ctx, author), post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	removed, err = env.svc.DeleteComments(asUser(ctx, author), post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	summary, err := env.svc.TotalLikes(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Count)

	_, err = env.svc.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
}
