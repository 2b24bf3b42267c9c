// This file contains the logic for translating HCL schema structs into the
// format-agnostic session model defined in the config package.

package hcl

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/specialistvlad/reqqueue/internal/config"
	"github.com/specialistvlad/reqqueue/internal/ctxlog"
)

// translateHTTPRequest converts an `http_request` block into the agnostic model.
func translateHTTPRequest(ctx context.Context, b *HTTPRequest) (*config.HTTPRequest, error) {
	logger := ctxlog.FromContext(ctx).With("http_request", b.Name)

	if strings.TrimSpace(b.URL) == "" {
		return nil, fmt.Errorf("http_request %q: url must not be empty", b.Name)
	}
	timeout, err := parseDuration(b.Timeout)
	if err != nil {
		return nil, fmt.Errorf("http_request %q: invalid timeout: %w", b.Name, err)
	}
	method := strings.ToUpper(b.Method)
	if method == "" {
		logger.Debug("`method` attribute is not defined. Defaulting to GET.")
		method = http.MethodGet
	}

	return &config.HTTPRequest{
		Name:    b.Name,
		ID:      b.ID,
		URL:     b.URL,
		Method:  method,
		Headers: b.Headers,
		Body:    b.Body,
		Timeout: timeout,
	}, nil
}

// translateSocketIOClient converts a `socketio_client` block into the agnostic model.
func translateSocketIOClient(b *SocketIOClient) (*config.SocketIOClient, error) {
	timeout, err := parseDuration(b.ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("socketio_client %q: invalid connect_timeout: %w", b.Name, err)
	}
	namespace := b.Namespace
	if namespace == "" {
		namespace = "/"
	}
	return &config.SocketIOClient{
		Name:               b.Name,
		URL:                b.URL,
		Namespace:          namespace,
		InsecureSkipVerify: b.InsecureSkipVerify,
		ConnectTimeout:     timeout,
	}, nil
}

// translateSocketIORequest converts a `socketio_request` block into the agnostic model.
func translateSocketIORequest(b *SocketIORequest) (*config.SocketIORequest, error) {
	timeout, err := parseDuration(b.Timeout)
	if err != nil {
		return nil, fmt.Errorf("socketio_request %q: invalid timeout: %w", b.Name, err)
	}
	return &config.SocketIORequest{
		Name:      b.Name,
		ID:        b.ID,
		Client:    b.Client,
		EmitEvent: b.EmitEvent,
		OnEvent:   b.OnEvent,
		EmitData:  b.EmitData,
		Timeout:   timeout,
	}, nil
}

// translateCancel converts a `cancel` block into the agnostic model.
func translateCancel(b *Cancel) (*config.CancelRule, error) {
	after, err := time.ParseDuration(b.After)
	if err != nil {
		return nil, fmt.Errorf("cancel %q: invalid after: %w", b.Name, err)
	}
	if after < 0 {
		return nil, fmt.Errorf("cancel %q: after must not be negative", b.Name)
	}
	return &config.CancelRule{
		Name:    b.Name,
		After:   after,
		IDs:     b.IDs,
		Message: b.Message,
	}, nil
}

// parseDuration treats an empty string as zero.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
