package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/specialistvlad/reqqueue/internal/ctxlog"
	"github.com/specialistvlad/reqqueue/internal/requestqueue"
)

// Status is the final state of one session request.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
	StatusFailed    Status = "failed"
)

// Outcome records how one request ended.
type Outcome struct {
	Name       string        `json:"name"`
	RequestID  string        `json:"request_id"`
	Kind       string        `json:"kind"`
	Status     Status        `json:"status"`
	StatusCode int           `json:"status_code,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// CancelEvent records one Cancel call and what it did.
type CancelEvent struct {
	Source   string   `json:"source"`
	Target   any      `json:"target"`
	Canceled []string `json:"canceled"`
	Failed   string   `json:"failed,omitempty"`
	Skipped  []string `json:"skipped,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// newCancelEvent flattens a CancelResult. Target is "all" or the id list.
func newCancelEvent(source string, res *requestqueue.CancelResult, err error) CancelEvent {
	ev := CancelEvent{Source: source, Canceled: []string{}}
	if err != nil {
		ev.Error = err.Error()
	}
	if res == nil {
		return ev
	}
	if res.Target.All() {
		ev.Target = "all"
	} else {
		ev.Target = res.Target.RequestIDs()
	}
	for _, h := range res.Canceled {
		ev.Canceled = append(ev.Canceled, h.RequestID())
	}
	if res.Failed != nil {
		ev.Failed = res.Failed.RequestID()
	}
	for _, h := range res.Skipped {
		ev.Skipped = append(ev.Skipped, h.RequestID())
	}
	return ev
}

// Report collects outcomes and cancel events of a run. It is safe for
// concurrent use.
type Report struct {
	mu       sync.Mutex
	outcomes []Outcome
	cancels  []CancelEvent
}

func (r *Report) addOutcome(ctx context.Context, o Outcome) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, o)
	r.mu.Unlock()

	logger := ctxlog.FromContext(ctx).With("name", o.Name, "request_id", o.RequestID, "kind", o.Kind, "duration", o.Duration)
	switch o.Status {
	case StatusCompleted:
		logger.Info("Request completed.", "status_code", o.StatusCode)
	case StatusCanceled:
		logger.Warn("Request canceled.", "reason", o.Error)
	default:
		logger.Error("Request failed.", "error", o.Error)
	}
}

func (r *Report) addCancel(ev CancelEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels = append(r.cancels, ev)
}

// Outcomes returns the outcomes in completion order.
func (r *Report) Outcomes() []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Outcome, len(r.outcomes))
	copy(out, r.outcomes)
	return out
}

// Outcome returns the outcome of the request with the given block name.
func (r *Report) Outcome(name string) (Outcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.outcomes {
		if o.Name == name {
			return o, true
		}
	}
	return Outcome{}, false
}

// Cancels returns the cancel events in the order they happened.
func (r *Report) Cancels() []CancelEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CancelEvent, len(r.cancels))
	copy(out, r.cancels)
	return out
}

// Count returns how many requests ended with status s.
func (r *Report) Count(s Status) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, o := range r.outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// statusOf classifies a request error.
func statusOf(err error) Status {
	switch {
	case err == nil:
		return StatusCompleted
	case errors.Is(err, requestqueue.ErrCanceled):
		return StatusCanceled
	default:
		return StatusFailed
	}
}
