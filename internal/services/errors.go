package services

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("not allowed to modify this resource")
	ErrNotFound        = errors.New("not found")
	ErrThrottled       = errors.New("too many requests, try again later")
	ErrAlreadyLiked    = errors.New("post already liked")
	ErrNotLiked        = errors.New("post not liked")
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInconsistent means a post deletion could not be confirmed as committed or
	// rolled back. It always reaches the caller.
	ErrInconsistent = errors.New("post deletion outcome unknown")
)

// CascadeStep names the stage of a post deletion that failed
type CascadeStep string

const (
	StepLoadPost       CascadeStep = "load post"
	StepDeleteLikes    CascadeStep = "delete likes"
	StepDeleteComments CascadeStep = "delete comments"
	StepDeletePost     CascadeStep = "delete post"
	StepCommit         CascadeStep = "commit"
)

// CascadeError reports the step at which a post deletion was rolled back
type CascadeError struct {
	PostID string
	Step   CascadeStep
	Err    error
}

func (e *CascadeError) Error() string {
	return fmt.Sprintf("delete post %s: %s: %v", e.PostID, e.Step, e.Err)
}

func (e *CascadeError) Unwrap() error {
	return e.Err
}
