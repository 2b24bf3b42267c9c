package requestqueue

import (
	"context"
	"errors"
	"fmt"
)

// ReasonCancel is the only Reason type produced by the queue.
const ReasonCancel = "cancel"

// DefaultMessage prefixes every Reason message unless WithMessage overrides it.
const DefaultMessage = "request canceled"

// Reason is the payload handed to an executor when its request is canceled.
// It implements error so it can be used as a context cancellation cause.
type Reason struct {
	Type string `json:"type"`
	Msg  string `json:"msg"`
}

// NewReason builds the cancel payload for a single request.
func NewReason(message, requestID string) Reason {
	return Reason{Type: ReasonCancel, Msg: fmt.Sprintf("%s: %s", message, requestID)}
}

// Error implements the error interface for Reason.
func (r Reason) Error() string {
	return r.Msg
}

// Handle is one outstanding request tracked by a Queue. Implement it on a
// pointer type: Queue.Remove matches handles by identity.
type Handle interface {
	// RequestID identifies the request. Uniqueness is not enforced unless the
	// queue is built WithUniqueIDs.
	RequestID() string
	// Cancel aborts the underlying operation. A returned error or a panic
	// stops the current cancel batch.
	Cancel(reason Reason) error
}

// ExecutorFunc aborts one request.
type ExecutorFunc func(reason Reason) error

// Request is a ready-made Handle for callers that do not carry their own type.
type Request struct {
	ID       string
	Executor ExecutorFunc
	// Attrs holds caller-defined fields. The queue never reads them.
	Attrs map[string]any
}

// RequestID implements Handle.
func (r *Request) RequestID() string {
	return r.ID
}

// Cancel implements Handle. A Request without an executor cancels as a no-op.
func (r *Request) Cancel(reason Reason) error {
	if r.Executor == nil {
		return nil
	}
	return r.Executor(reason)
}

// ErrCanceled marks an operation that was aborted through a Queue.
var ErrCanceled = errors.New("request canceled")

// CanceledCause returns ErrCanceled wrapping the Reason when ctx was canceled
// with a Reason as its cause, and nil otherwise.
func CanceledCause(ctx context.Context) error {
	var reason Reason
	if errors.As(context.Cause(ctx), &reason) {
		return fmt.Errorf("%w: %w", ErrCanceled, reason)
	}
	return nil
}
