package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/specialistvlad/reqqueue/internal/config"
	"github.com/specialistvlad/reqqueue/internal/ctxlog"
	"github.com/specialistvlad/reqqueue/internal/httpclient"
	"github.com/specialistvlad/reqqueue/internal/requestqueue"
	"github.com/specialistvlad/reqqueue/internal/socketio"
	"github.com/zclconf/go-cty/cty"
)

// socketRequester is the part of socketio.Requester the app drives.
type socketRequester interface {
	Request(ctx context.Context, call socketio.Call) (cty.Value, error)
	Close()
}

// dialFunc opens one Socket.IO client bound to the queue.
type dialFunc func(ctx context.Context, cfg socketio.ClientConfig, queue *requestqueue.Queue) (socketRequester, error)

func dialSocketIO(ctx context.Context, cfg socketio.ClientConfig, queue *requestqueue.Queue) (socketRequester, error) {
	r, err := socketio.Dial(ctx, cfg, queue)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	model  *config.Model
	queue  *requestqueue.Queue
	http   *httpclient.Client
	dial   dialFunc

	httpServer *http.Server
}

// NewApp is the constructor for the main application. It builds an isolated
// logger and queue, then loads the session through loader.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, appConfig.SessionPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	logger.Debug("Session loaded and translated into unified model.", "requests", model.RequestCount())

	opts := []requestqueue.Option{requestqueue.WithLogger(logger)}
	if appConfig.UniqueIDs {
		opts = append(opts, requestqueue.WithUniqueIDs())
	}
	queue := requestqueue.New(opts...)

	return &App{
		outW:   outW,
		logger: logger,
		config: appConfig,
		model:  model,
		queue:  queue,
		http:   httpclient.New(queue, 0),
		dial:   dialSocketIO,
	}, nil
}

// Queue returns the application's request queue. This is primarily for testing.
func (a *App) Queue() *requestqueue.Queue {
	return a.queue
}

// Model returns the loaded session.
func (a *App) Model() *config.Model {
	return a.model
}
