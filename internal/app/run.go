package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/specialistvlad/reqqueue/internal/config"
	"github.com/specialistvlad/reqqueue/internal/ctxlog"
	"github.com/specialistvlad/reqqueue/internal/requestqueue"
	"github.com/specialistvlad/reqqueue/internal/socketio"
)

const defaultWorkers = 10

// Run launches every request of the session, arms the cancel rules and
// waits for all requests to end. When ctx ends, everything still queued is
// canceled with the configured message. The returned error covers setup
// failures only; per-request failures are in the Report.
func (a *App) Run(ctx context.Context) (*Report, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	logger := ctxlog.FromContext(ctx)
	logger.Debug("App.Run method started.")

	report := &Report{}
	defer a.http.Close()

	if a.config.ControlPort > 0 {
		if err := a.startControlServer(ctx, report); err != nil {
			return nil, err
		}
		defer a.closeControlServer(ctx)
	}

	if a.model.RequestCount() == 0 {
		logger.Warn("Session has no requests, nothing to run.")
		return report, nil
	}

	// Requests end through the queue, so they run on a context that the
	// caller's ctx does not cancel directly.
	sessionCtx, stopSession := context.WithCancelCause(context.WithoutCancel(ctx))
	defer stopSession(nil)

	requesters, err := a.dialClients(sessionCtx)
	if err != nil {
		return nil, err
	}
	defer func() {
		for name, r := range requesters {
			logger.Debug("Disconnecting Socket.IO client.", "client", name)
			r.Close()
		}
	}()

	stopRules := a.armCancelRules(sessionCtx, report)
	defer stopRules()

	done := make(chan struct{})
	go a.cancelOnDone(ctx, done, stopSession, report)

	workers := a.config.WorkerCount
	if workers <= 0 {
		workers = defaultWorkers
	}
	sem := make(chan struct{}, workers)

	var wg sync.WaitGroup
	for _, req := range a.model.HTTPRequests {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.runHTTP(sessionCtx, sem, req, report)
		}()
	}
	for _, req := range a.model.SocketIORequests {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.runSocketIO(sessionCtx, sem, req, requesters[req.Client], report)
		}()
	}
	logger.Info("Session started.", "requests", a.model.RequestCount(), "workers", workers, "cancel_rules", len(a.model.CancelRules))

	wg.Wait()
	close(done)

	logger.Info("Session finished.",
		"completed", report.Count(StatusCompleted),
		"canceled", report.Count(StatusCanceled),
		"failed", report.Count(StatusFailed),
	)
	return report, nil
}

// cancelOnDone cancels everything in flight once ctx ends, then stops the
// session so requests that have not registered yet abort too.
func (a *App) cancelOnDone(ctx context.Context, done <-chan struct{}, stopSession context.CancelCauseFunc, report *Report) {
	select {
	case <-done:
		return
	case <-ctx.Done():
	}
	logger := ctxlog.FromContext(ctx)
	logger.Warn("Run interrupted, canceling in-flight requests.", "cause", context.Cause(ctx))

	res, err := a.queue.Cancel(requestqueue.AllRequests(), requestqueue.WithMessage(a.config.CancelMessage))
	report.addCancel(newCancelEvent("interrupt", res, err))
	if err != nil {
		logger.Error("Canceling in-flight requests failed.", "error", err)
	}
	stopSession(requestqueue.NewReason(a.config.CancelMessage, "session"))
}

func (a *App) dialClients(ctx context.Context) (map[string]socketRequester, error) {
	logger := ctxlog.FromContext(ctx)
	requesters := make(map[string]socketRequester)
	for _, req := range a.model.SocketIORequests {
		if _, ok := requesters[req.Client]; ok {
			continue
		}
		client := a.model.SocketIOClients[req.Client]
		logger.Debug("Connecting Socket.IO client.", "client", client.Name, "url", client.URL)
		r, err := a.dial(ctx, socketio.ClientConfig{
			URL:                client.URL,
			Namespace:          client.Namespace,
			InsecureSkipVerify: client.InsecureSkipVerify,
			ConnectTimeout:     client.ConnectTimeout,
		}, a.queue)
		if err != nil {
			for _, opened := range requesters {
				opened.Close()
			}
			return nil, fmt.Errorf("failed to connect socketio_client '%s': %w", client.Name, err)
		}
		requesters[req.Client] = r
	}
	return requesters, nil
}

// armCancelRules schedules every cancel rule. The returned func stops the
// rules that have not fired yet.
func (a *App) armCancelRules(ctx context.Context, report *Report) func() {
	logger := ctxlog.FromContext(ctx)
	timers := make([]*time.Timer, 0, len(a.model.CancelRules))
	for _, rule := range a.model.CancelRules {
		target := requestqueue.AllRequests()
		if len(rule.IDs) > 0 {
			target = requestqueue.IDs(rule.IDs...)
		}
		var opts []requestqueue.CancelOption
		if rule.Message != "" {
			opts = append(opts, requestqueue.WithMessage(rule.Message))
		}
		logger.Debug("Cancel rule armed.", "rule", rule.Name, "after", rule.After, "target", target.String())
		timers = append(timers, time.AfterFunc(rule.After, func() {
			logger.Info("Cancel rule fired.", "rule", rule.Name, "target", target.String())
			res, err := a.queue.Cancel(target, opts...)
			report.addCancel(newCancelEvent(rule.Name, res, err))
			if err != nil {
				logger.Error("Cancel rule failed.", "rule", rule.Name, "error", err)
			}
		}))
	}
	return func() {
		for _, t := range timers {
			t.Stop()
		}
	}
}

// acquire takes a worker slot. It reports false when the session ended
// before a slot was free.
func acquire(ctx context.Context, sem chan struct{}) bool {
	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return false
	}
	if ctx.Err() != nil {
		<-sem
		return false
	}
	return true
}

func notStarted(ctx context.Context, name, id, kind string) Outcome {
	return Outcome{
		Name:      name,
		RequestID: id,
		Kind:      kind,
		Status:    StatusCanceled,
		Error:     fmt.Sprintf("not started: %v", context.Cause(ctx)),
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

func (a *App) runHTTP(ctx context.Context, sem chan struct{}, req *config.HTTPRequest, report *Report) {
	id := requestID(req.ID, req.Name)
	if !acquire(ctx, sem) {
		report.addOutcome(ctx, notStarted(ctx, req.Name, id, "http"))
		return
	}
	defer func() { <-sem }()

	callCtx, cancel := withTimeout(ctx, req.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := a.http.Send(callCtx, id, req.Method, req.URL, req.Headers, req.Body)
	o := Outcome{Name: req.Name, RequestID: id, Kind: "http", Status: statusOf(err), Duration: time.Since(start)}
	if err != nil {
		o.Error = err.Error()
	} else {
		o.StatusCode = resp.StatusCode
	}
	report.addOutcome(ctx, o)
}

func (a *App) runSocketIO(ctx context.Context, sem chan struct{}, req *config.SocketIORequest, r socketRequester, report *Report) {
	id := requestID(req.ID, req.Name)
	if !acquire(ctx, sem) {
		report.addOutcome(ctx, notStarted(ctx, req.Name, id, "socketio"))
		return
	}
	defer func() { <-sem }()

	start := time.Now()
	_, err := r.Request(ctx, socketio.Call{
		ID:        id,
		EmitEvent: req.EmitEvent,
		OnEvent:   req.OnEvent,
		Data:      req.EmitData,
		Timeout:   req.Timeout,
	})
	o := Outcome{Name: req.Name, RequestID: id, Kind: "socketio", Status: statusOf(err), Duration: time.Since(start)}
	if err != nil {
		o.Error = err.Error()
	}
	report.addOutcome(ctx, o)
}

func requestID(id, name string) string {
	if id != "" {
		return id
	}
	return name
}
