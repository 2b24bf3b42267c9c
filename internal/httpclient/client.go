// Package httpclient is the HTTP layer that registers every outgoing request
// in a requestqueue.Queue, so it can be canceled by id while in flight.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/reqqueue/internal/ctxlog"
	"github.com/specialistvlad/reqqueue/internal/requestqueue"
)

// Client performs HTTP requests and tracks them in a queue.
type Client struct {
	http  *http.Client
	queue *requestqueue.Queue
}

// New creates a Client with pooled connections. A zero timeout means no
// per-request timeout.
func New(queue *requestqueue.Queue, timeout time.Duration) *Client {
	return &Client{
		queue: queue,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// NewWithHTTPClient wraps an existing *http.Client.
func NewWithHTTPClient(queue *requestqueue.Queue, hc *http.Client) *Client {
	return &Client{http: hc, queue: queue}
}

// Queue returns the queue requests are registered in.
func (c *Client) Queue() *requestqueue.Queue {
	return c.queue
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// Response is a fully read HTTP response.
type Response struct {
	RequestID  string
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
	Duration   time.Duration
}

// inflight is the queue handle for one HTTP request.
type inflight struct {
	id     string
	method string
	url    string
	cancel context.CancelCauseFunc
}

func (h *inflight) RequestID() string { return h.id }

// Describe reports what the request is doing, for operator listings.
func (h *inflight) Describe() map[string]string {
	return map[string]string{"kind": "http", "method": h.method, "url": h.url}
}

// Cancel aborts the request with the reason as the context cause.
func (h *inflight) Cancel(reason requestqueue.Reason) error {
	h.cancel(reason)
	return nil
}

// Do sends req and reads the whole response body. The request is registered
// in the queue under id (a UUID when id is empty) for as long as it runs.
func (c *Client) Do(ctx context.Context, id string, req *http.Request) (*Response, error) {
	if id == "" {
		id = uuid.NewString()
	}
	logger := ctxlog.FromContext(ctx).With("request_id", id, "method", req.Method, "url", req.URL.String())

	reqCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	h := &inflight{id: id, method: req.Method, url: req.URL.String(), cancel: cancel}
	c.queue.Set(h)
	defer c.queue.Remove(h)

	req = req.WithContext(reqCtx)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "*/*")
	}
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	}

	logger.Info("Making HTTP request")
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, requestError(reqCtx, id, err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, requestError(reqCtx, id, fmt.Errorf("failed to read response body: %w", err))
	}

	elapsed := time.Since(start)
	logger.Info("Received HTTP response", "status", resp.Status, "bytes", len(body), "duration", elapsed)

	return &Response{
		RequestID:  id,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       body,
		Duration:   elapsed,
	}, nil
}

// Send builds a request from its parts and runs it through Do.
func (c *Client) Send(ctx context.Context, id, method, url string, headers map[string]string, body string) (*Response, error) {
	if method == "" {
		method = http.MethodGet
	}
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if _, ok := req.Header["Content-Type"]; reader != nil && !ok {
		req.Header.Set("Content-Type", "text/plain;charset=UTF-8")
	}
	return c.Do(ctx, id, req)
}

// requestError reports a request canceled through the queue as
// requestqueue.ErrCanceled wrapping its Reason.
func requestError(ctx context.Context, id string, err error) error {
	if canceled := requestqueue.CanceledCause(ctx); canceled != nil {
		return canceled
	}
	return fmt.Errorf("request %s failed: %w", id, err)
}
