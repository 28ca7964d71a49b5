package chat

import (
	"errors"
	"fmt"
)

// Validation failures. These are rejected before any network call.
var (
	ErrEmptyMessage       = errors.New("message text is empty")
	ErrAttachmentTooLarge = fmt.Errorf("attachment exceeds %d bytes", MaxAttachmentSize)
	ErrNoConversation     = errors.New("no active conversation")
)

// FetchError wraps a failed history load. Surfaced as a retryable
// loading-state error.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string { return "fetch history: " + e.Err.Error() }
func (e *FetchError) Unwrap() error { return e.Err }

// SendError wraps a failed message write. Surfaced to the caller per
// attempt; never retried automatically.
type SendError struct {
	Err error
}

func (e *SendError) Error() string { return "send message: " + e.Err.Error() }
func (e *SendError) Unwrap() error { return e.Err }
