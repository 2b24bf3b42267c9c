package config

import (
	"time"

	"github.com/zclconf/go-cty/cty"
)

// Model is the unified, format-agnostic representation of one session: the
// requests to launch and the rules that cancel them.
type Model struct {
	HTTPRequests     []*HTTPRequest
	SocketIOClients  map[string]*SocketIOClient
	SocketIORequests []*SocketIORequest
	CancelRules      []*CancelRule
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{SocketIOClients: make(map[string]*SocketIOClient)}
}

// RequestCount is the number of requests the session launches.
func (m *Model) RequestCount() int {
	return len(m.HTTPRequests) + len(m.SocketIORequests)
}

// HTTPRequest is one HTTP call.
type HTTPRequest struct {
	Name    string
	ID      string // registry id; empty means the block name
	URL     string
	Method  string
	Headers map[string]string
	Body    string
	Timeout time.Duration
}

// SocketIOClient is a shared Socket.IO connection.
type SocketIOClient struct {
	Name               string
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// SocketIORequest is one emit/reply exchange over a named client.
type SocketIORequest struct {
	Name      string
	ID        string
	Client    string
	EmitEvent string
	OnEvent   string
	EmitData  cty.Value
	Timeout   time.Duration
}

// CancelRule cancels requests once a delay has passed since the session
// started. A rule without ids cancels everything still in flight.
type CancelRule struct {
	Name    string
	After   time.Duration
	IDs     []string
	Message string
}
