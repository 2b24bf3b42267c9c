package app

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/reqqueue/internal/requestqueue"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	SessionPath string // hcl file or directory

	LogFormat     string
	LogLevel      string
	ControlPort   int
	WorkerCount   int
	UniqueIDs     bool
	CancelMessage string // used when the run context ends
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.SessionPath == "" {
		return nil, errors.New("SessionPath is a required configuration field and cannot be empty")
	}
	if cfg.WorkerCount < 0 {
		return nil, fmt.Errorf("WorkerCount must not be negative, got %d", cfg.WorkerCount)
	}
	if cfg.ControlPort < 0 || cfg.ControlPort > 65535 {
		return nil, fmt.Errorf("ControlPort must be between 0 and 65535, got %d", cfg.ControlPort)
	}
	if cfg.CancelMessage == "" {
		cfg.CancelMessage = requestqueue.DefaultMessage
	}
	return &cfg, nil
}
