package hcl

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	HTTPRequests     []*HTTPRequest     `hcl:"http_request,block"`
	SocketIOClients  []*SocketIOClient  `hcl:"socketio_client,block"`
	SocketIORequests []*SocketIORequest `hcl:"socketio_request,block"`
	Cancels          []*Cancel          `hcl:"cancel,block"`
	Remain           hcl.Body           `hcl:",remain"`
}

// HTTPRequest is the HCL schema of an `http_request` block.
type HTTPRequest struct {
	Name    string            `hcl:"name,label"`
	ID      string            `hcl:"id,optional"`
	URL     string            `hcl:"url"`
	Method  string            `hcl:"method,optional"`
	Headers map[string]string `hcl:"headers,optional"`
	Body    string            `hcl:"body,optional"`
	Timeout string            `hcl:"timeout,optional"`
}

// SocketIOClient is the HCL schema of a `socketio_client` block.
type SocketIOClient struct {
	Name               string `hcl:"name,label"`
	URL                string `hcl:"url"`
	Namespace          string `hcl:"namespace,optional"`
	InsecureSkipVerify bool   `hcl:"insecure_skip_verify,optional"`
	ConnectTimeout     string `hcl:"connect_timeout,optional"`
}

// SocketIORequest is the HCL schema of a `socketio_request` block.
type SocketIORequest struct {
	Name      string    `hcl:"name,label"`
	ID        string    `hcl:"id,optional"`
	Client    string    `hcl:"client"`
	EmitEvent string    `hcl:"emit_event"`
	OnEvent   string    `hcl:"on_event"`
	EmitData  cty.Value `hcl:"emit_data,optional"`
	Timeout   string    `hcl:"timeout,optional"`
}

// Cancel is the HCL schema of a `cancel` block.
type Cancel struct {
	Name    string   `hcl:"name,label"`
	After   string   `hcl:"after"`
	IDs     []string `hcl:"ids,optional"`
	Message string   `hcl:"message,optional"`
}
