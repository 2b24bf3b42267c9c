// Package socketio is the Socket.IO request layer. It emits an event on a
// connected client and waits for a reply event, keeping the wait registered
// in a requestqueue.Queue so it can be canceled like any HTTP request.
package socketio

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/reqqueue/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DefaultConnectTimeout bounds Connect when the caller passes zero.
const DefaultConnectTimeout = 15 * time.Second

// ClientConfig describes one Socket.IO connection.
type ClientConfig struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// Connect dials the server over the websocket transport and waits for the
// namespace to connect.
func Connect(ctx context.Context, cfg ClientConfig) (*socket.Socket, error) {
	logger := ctxlog.FromContext(ctx).With("client", "socketio", "url", cfg.URL)
	logger.Info("Creating new client instance...")

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(cfg.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Successfully connected", "sid", io.Id())
		notify(connectChan, nil)
	})

	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		logger.Debug("Connection error event fired", "error", err)
		notify(connectChan, err)
	})

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return io, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %v waiting for socket.io connection", timeout)
	}
}

// Disconnect closes a client returned by Connect.
func Disconnect(ctx context.Context, client *socket.Socket) {
	ctxlog.FromContext(ctx).Info("Destroying socket.io client instance", "sid", client.Id())
	client.Disconnect()
}

// notify delivers the first connection outcome and drops the rest.
func notify(ch chan<- error, err error) {
	select {
	case ch <- err:
	default:
	}
}
