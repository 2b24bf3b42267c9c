package socketio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/reqqueue/internal/ctxlog"
	"github.com/specialistvlad/reqqueue/internal/requestqueue"
	"github.com/zclconf/go-cty/cty"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// ErrNotConnected is returned when the client has no live connection.
var ErrNotConnected = errors.New("socket.io client is not connected")

// conn is the part of a Socket.IO client the requester needs.
type conn struct {
	once      func(event string, fn func(...any))
	emit      func(event string, data any)
	connected func() bool
	sid       func() string
}

func fromSocket(s *socket.Socket) *conn {
	return &conn{
		once: func(event string, fn func(...any)) {
			s.Once(types.EventName(event), fn)
		},
		emit: func(event string, data any) {
			s.Emit(event, data)
		},
		connected: func() bool { return s.Connected() },
		sid:       func() string { return fmt.Sprint(s.Id()) },
	}
}

// Requester turns emit/reply event pairs into cancelable requests.
type Requester struct {
	conn  *conn
	queue *requestqueue.Queue
	close func()
}

// NewRequester binds a connected client to a queue.
func NewRequester(client *socket.Socket, queue *requestqueue.Queue) *Requester {
	return &Requester{conn: fromSocket(client), queue: queue}
}

// Dial connects with cfg and binds the new client to queue. Close releases
// the connection.
func Dial(ctx context.Context, cfg ClientConfig, queue *requestqueue.Queue) (*Requester, error) {
	client, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	r := NewRequester(client, queue)
	r.close = func() { Disconnect(ctx, client) }
	return r, nil
}

// Close disconnects a requester created by Dial.
func (r *Requester) Close() {
	if r.close != nil {
		r.close()
	}
}

// Call is one emit/reply exchange.
type Call struct {
	ID        string
	EmitEvent string
	OnEvent   string
	Data      cty.Value
	Timeout   time.Duration
}

type opResult struct {
	value cty.Value
	err   error
}

// pending is the queue handle for a call waiting on its reply.
type pending struct {
	id     string
	emit   string
	on     string
	cancel context.CancelCauseFunc
}

func (p *pending) RequestID() string { return p.id }

func (p *pending) Describe() map[string]string {
	return map[string]string{"kind": "socketio", "emit_event": p.emit, "on_event": p.on}
}

func (p *pending) Cancel(reason requestqueue.Reason) error {
	p.cancel(reason)
	return nil
}

// Request emits call.EmitEvent and returns the first payload of call.OnEvent
// as a cty value. The wait is registered in the queue under call.ID (a UUID
// when empty) until a reply, a timeout or a cancellation ends it.
//
// Replies are matched by event name only. Calls in flight on one client that
// wait on the same OnEvent are all resolved by the first such reply. The
// one-shot listener of a call that timed out or was canceled stays on the
// client until that event next fires; it is ignored then.
func (r *Requester) Request(ctx context.Context, call Call) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx)

	if !r.conn.connected() {
		logger.Error("Injected socket.io client is not connected", "sid", r.conn.sid())
		return cty.NilVal, ErrNotConnected
	}
	if call.ID == "" {
		call.ID = uuid.NewString()
	}

	logger = logger.With("request_id", call.ID, "sid", r.conn.sid())
	logger.Info("Executing request", "emitEvent", call.EmitEvent, "onEvent", call.OnEvent)

	data, err := ctyValueToInterface(call.Data)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to convert emit_data to interface: %w", err)
	}

	opCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	if call.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		opCtx, cancelTimeout = context.WithTimeout(opCtx, call.Timeout)
		defer cancelTimeout()
	}

	h := &pending{id: call.ID, emit: call.EmitEvent, on: call.OnEvent, cancel: cancel}
	r.queue.Set(h)
	defer r.queue.Remove(h)

	var finished atomic.Bool
	defer finished.Store(true)

	done := make(chan opResult, 1)
	r.conn.once(call.OnEvent, func(args ...any) {
		if finished.Load() {
			return
		}
		logger.Debug("Reply event received", "event", call.OnEvent)
		value := cty.NullVal(cty.DynamicPseudoType)
		if len(args) > 0 {
			converted, err := interfaceToCtyValue(args[0])
			if err != nil {
				logger.Error("Failed to convert received data to cty.Value", "error", err)
				done <- opResult{err: err}
				return
			}
			value = converted
		}
		done <- opResult{value: cty.ObjectVal(map[string]cty.Value{"response_data": value})}
	})

	if logger.Enabled(ctx, slog.LevelDebug) {
		jsonData, _ := json.Marshal(data)
		logger.Debug("Emitting event", "event", call.EmitEvent, "data", string(jsonData))
	}
	r.conn.emit(call.EmitEvent, data)

	select {
	case <-opCtx.Done():
		if canceled := requestqueue.CanceledCause(opCtx); canceled != nil {
			return cty.NilVal, canceled
		}
		if errors.Is(opCtx.Err(), context.DeadlineExceeded) {
			return cty.NilVal, fmt.Errorf("timed out after %v waiting for event '%s'", call.Timeout, call.OnEvent)
		}
		return cty.NilVal, opCtx.Err()
	case res := <-done:
		if res.err != nil {
			return cty.NilVal, res.err
		}
		logger.Info("Successfully received response event", "event", call.OnEvent)
		return res.value, nil
	}
}
