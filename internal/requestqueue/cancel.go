package requestqueue

import (
	"fmt"
)

// Target selects which handles Cancel acts on.
type Target struct {
	all bool
	ids []string
}

// AllRequests targets every handle registered at the time Cancel is called.
func AllRequests() Target {
	return Target{all: true}
}

// IDs targets the handles of each id in order. Repeated ids and ids shared by
// several handles produce repeated entries.
func IDs(ids ...string) Target {
	return Target{ids: ids}
}

// ID targets the handles registered under a single id.
func ID(id string) Target {
	return Target{ids: []string{id}}
}

// All reports whether the target is every registered handle.
func (t Target) All() bool {
	return t.all
}

// RequestIDs returns the ids the target was built with. It is nil for
// AllRequests.
func (t Target) RequestIDs() []string {
	return t.ids
}

// String renders the target for logs.
func (t Target) String() string {
	if t.all {
		return "all"
	}
	return fmt.Sprint(t.ids)
}

type cancelOptions struct {
	message string
}

// CancelOption configures a single Cancel call.
type CancelOption func(*cancelOptions)

// WithMessage replaces DefaultMessage in the Reason sent to executors.
func WithMessage(msg string) CancelOption {
	return func(o *cancelOptions) {
		o.message = msg
	}
}

// CancelResult describes what a Cancel call did.
type CancelResult struct {
	// Target echoes the target Cancel was called with.
	Target Target
	// Canceled holds handles whose executor returned without error.
	Canceled []Handle
	// Failed is the handle whose executor failed, if any. It has already
	// been removed from the queue.
	Failed Handle
	// Skipped holds handles after the failure. Their executors never ran.
	Skipped []Handle
}

// ExecutorError reports an executor that failed during Cancel.
type ExecutorError struct {
	RequestID string
	Err       error
}

// Error implements the error interface for ExecutorError.
func (e *ExecutorError) Error() string {
	return fmt.Sprintf("cancel executor for request %q failed: %v", e.RequestID, e.Err)
}

// Unwrap returns the executor's error.
func (e *ExecutorError) Unwrap() error {
	return e.Err
}

// Cancel removes the targeted handles and invokes their executors. Each
// handle's id is deleted from the queue before its executor runs. The first
// failing executor stops the batch and is returned as an *ExecutorError;
// the result is returned in both cases.
func (q *Queue) Cancel(target Target, opts ...CancelOption) (*CancelResult, error) {
	o := cancelOptions{message: DefaultMessage}
	for _, opt := range opts {
		opt(&o)
	}

	batch := q.resolve(target)
	result := &CancelResult{Target: target}

	for i, h := range batch {
		id := h.RequestID()
		q.Delete(id)
		if err := invoke(h, NewReason(o.message, id)); err != nil {
			result.Failed = h
			result.Skipped = batch[i+1:]
			q.logger.Warn("Cancel batch aborted.", "target", target.String(), "request_id", id, "canceled", len(result.Canceled), "skipped", len(result.Skipped), "error", err)
			return result, &ExecutorError{RequestID: id, Err: err}
		}
		result.Canceled = append(result.Canceled, h)
	}

	q.logger.Info("Requests canceled.", "target", target.String(), "count", len(result.Canceled), "message", o.message)
	return result, nil
}

// resolve snapshots the handles a target refers to.
func (q *Queue) resolve(target Target) []Handle {
	q.mu.Lock()
	defer q.mu.Unlock()

	if target.all {
		out := make([]Handle, len(q.handles))
		copy(out, q.handles)
		return out
	}

	var out []Handle
	for _, id := range target.ids {
		out = append(out, q.match(id)...)
	}
	return out
}

// invoke runs the executor, turning a panic into an error.
func invoke(h Handle, reason Reason) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("executor panicked: %v", r)
		}
	}()
	return h.Cancel(reason)
}
