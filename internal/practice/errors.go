package practice

import (
	"errors"
	"fmt"
)

// Recoverable per-operation failures. None of them leave partial state behind.
var (
	ErrLimitReached      = errors.New("daily session limit reached")
	ErrNotFound          = errors.New("practice session not found")
	ErrAlreadyAnswered   = errors.New("question already answered")
	ErrEmptySubmission   = errors.New("empty submission")
	ErrIncompleteAnswers = errors.New("not all questions answered")

	ErrNotActive       = errors.New("no active practice session")
	ErrNoQuestions     = errors.New("no questions available for sub-topic")
	ErrVersionConflict = errors.New("practice session modified concurrently")
	ErrSessionBusy     = errors.New("practice session locked by another request")
	ErrBadSubmission   = errors.New("submission does not fit question type")
	ErrBadNavigation   = errors.New("navigation needs a direction or a positive index")
)

// ErrLimitReachedAtCreate is returned when the quota passed the pre-check but
// another session took the last slot before the insert. It matches
// ErrLimitReached; callers should refresh the limit status after it.
var ErrLimitReachedAtCreate = fmt.Errorf("%w: quota exhausted at create", ErrLimitReached)
