package services

import (
	"errors"
	"fmt"
)

var (
	// ErrCreationInProgress is returned when the creation key is busy or cooling down.
	ErrCreationInProgress = errors.New("blog is getting saved")
	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("invalid input")
)

// ReconciliationError reports an upvote record that could not be deleted during a toggle.
// The post is left unmodified when it is returned.
type ReconciliationError struct {
	PostID   string
	UpvoteID string
	Err      error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("upvote reconciliation failed for post %s (record %s): %v", e.PostID, e.UpvoteID, e.Err)
}

func (e *ReconciliationError) Unwrap() error {
	return e.Err
}
