package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/reqqueue/internal/config"
	"github.com/specialistvlad/reqqueue/internal/ctxlog"
	"github.com/specialistvlad/reqqueue/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL session loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file under paths, translates all blocks into one
// model and validates cross-block references.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	hclFiles, err := fsutil.FindFilesByExtension(".hcl", paths...)
	if err != nil {
		return nil, err
	}
	if len(hclFiles) == 0 {
		return nil, fmt.Errorf("no .hcl files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	model := config.NewModel()
	names := newNameSet()
	parser := hclparse.NewParser()

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		if err := l.merge(ctx, model, names, &root); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}

	if err := validate(model); err != nil {
		return nil, err
	}

	logger.Debug("HCL loading complete.",
		"http_requests", len(model.HTTPRequests),
		"socketio_clients", len(model.SocketIOClients),
		"socketio_requests", len(model.SocketIORequests),
		"cancel_rules", len(model.CancelRules),
	)
	return model, nil
}

// merge translates one decoded file into the model.
func (l *Loader) merge(ctx context.Context, model *config.Model, names nameSet, root *fileRoot) error {
	for _, b := range root.HTTPRequests {
		if err := names.claim("http_request", b.Name); err != nil {
			return err
		}
		req, err := translateHTTPRequest(ctx, b)
		if err != nil {
			return err
		}
		model.HTTPRequests = append(model.HTTPRequests, req)
	}
	for _, b := range root.SocketIOClients {
		if err := names.claim("socketio_client", b.Name); err != nil {
			return err
		}
		client, err := translateSocketIOClient(b)
		if err != nil {
			return err
		}
		model.SocketIOClients[client.Name] = client
	}
	for _, b := range root.SocketIORequests {
		if err := names.claim("socketio_request", b.Name); err != nil {
			return err
		}
		req, err := translateSocketIORequest(b)
		if err != nil {
			return err
		}
		model.SocketIORequests = append(model.SocketIORequests, req)
	}
	for _, b := range root.Cancels {
		if err := names.claim("cancel", b.Name); err != nil {
			return err
		}
		rule, err := translateCancel(b)
		if err != nil {
			return err
		}
		model.CancelRules = append(model.CancelRules, rule)
	}
	return nil
}

// validate checks references between blocks once every file is merged.
func validate(model *config.Model) error {
	for _, req := range model.SocketIORequests {
		if _, ok := model.SocketIOClients[req.Client]; !ok {
			return fmt.Errorf("socketio_request %q uses undeclared socketio_client %q", req.Name, req.Client)
		}
	}
	return nil
}

// nameSet tracks block names per kind across files.
type nameSet map[string]map[string]struct{}

func newNameSet() nameSet {
	return make(nameSet)
}

func (n nameSet) claim(kind, name string) error {
	if n[kind] == nil {
		n[kind] = make(map[string]struct{})
	}
	if _, exists := n[kind][name]; exists {
		return fmt.Errorf("duplicate %s block %q", kind, name)
	}
	n[kind][name] = struct{}{}
	return nil
}
