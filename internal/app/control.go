package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/specialistvlad/reqqueue/internal/ctxlog"
	"github.com/specialistvlad/reqqueue/internal/requestqueue"
)

const controlShutdownTimeout = 5 * time.Second

// describer is implemented by handles that can report what they are doing.
type describer interface {
	Describe() map[string]string
}

// requestView is one entry of GET /requests.
type requestView struct {
	ID      string            `json:"id"`
	Details map[string]string `json:"details,omitempty"`
}

// controlHandler serves the operator endpoints over the queue.
type controlHandler struct {
	queue  *requestqueue.Queue
	report *Report
	logger *slog.Logger
}

func newControlMux(queue *requestqueue.Queue, report *Report, logger *slog.Logger) *http.ServeMux {
	h := &controlHandler{queue: queue, report: report, logger: logger}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /requests", h.requests)
	mux.HandleFunc("POST /cancel", h.cancel)
	return mux
}

func (h *controlHandler) health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (h *controlHandler) requests(w http.ResponseWriter, _ *http.Request) {
	handles := h.queue.All()
	views := make([]requestView, 0, len(handles))
	for _, handle := range handles {
		v := requestView{ID: handle.RequestID()}
		if d, ok := handle.(describer); ok {
			v.Details = d.Describe()
		}
		views = append(views, v)
	}
	h.writeJSON(w, http.StatusOK, views)
}

// cancel handles POST /cancel?id=a&id=b&msg=m. Without ids every request is
// canceled.
func (h *controlHandler) cancel(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	target := requestqueue.AllRequests()
	if ids := query["id"]; len(ids) > 0 {
		target = requestqueue.IDs(ids...)
	}
	var opts []requestqueue.CancelOption
	if msg := query.Get("msg"); msg != "" {
		opts = append(opts, requestqueue.WithMessage(msg))
	}

	h.logger.Info("Cancel requested through control server.", "target", target.String())
	res, err := h.queue.Cancel(target, opts...)
	ev := newCancelEvent("control", res, err)
	if h.report != nil {
		h.report.addCancel(ev)
	}

	status := http.StatusOK
	if err != nil {
		status = http.StatusInternalServerError
	}
	h.writeJSON(w, status, ev)
}

func (h *controlHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to write control response.", "error", err)
	}
}

// startControlServer binds the control port and serves it in the background.
func (a *App) startControlServer(ctx context.Context, report *Report) error {
	logger := ctxlog.FromContext(ctx)
	addr := fmt.Sprintf(":%d", a.config.ControlPort)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start control server on %s: %w", addr, err)
	}

	a.httpServer = &http.Server{
		Handler:           newControlMux(a.queue, report, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("Starting control server.", "address", ln.Addr().String())

	go func() {
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Control server failed.", "error", err)
		}
	}()
	return nil
}

// closeControlServer gracefully shuts down the control server.
func (a *App) closeControlServer(ctx context.Context) {
	if a.httpServer == nil {
		return
	}
	logger := ctxlog.FromContext(ctx)
	logger.Info("Shutting down control server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), controlShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Control server shutdown failed.", "error", err)
	} else {
		logger.Info("Control server gracefully stopped.")
	}
	a.httpServer = nil
}
