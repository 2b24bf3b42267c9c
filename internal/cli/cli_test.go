package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	t.Parallel()
	out := &bytes.Buffer{}

	cfg, shouldExit, err := Parse([]string{"session.hcl"}, out)

	require.NoError(t, err)
	assert.False(t, shouldExit)
	assert.Equal(t, "session.hcl", cfg.SessionPath)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10, cfg.WorkerCount)
	assert.Zero(t, cfg.ControlPort)
	assert.False(t, cfg.UniqueIDs)
	assert.Equal(t, "request canceled", cfg.CancelMessage)
}

func TestParse_AllFlags(t *testing.T) {
	t.Parallel()

	cfg, _, err := Parse([]string{
		"-s", "dir",
		"-control-port", "9090",
		"-log-format", "TEXT",
		"-log-level", "Debug",
		"-workers", "3",
		"-unique-ids",
		"-cancel-message", "navigated away",
	}, &bytes.Buffer{})

	require.NoError(t, err)
	assert.Equal(t, "dir", cfg.SessionPath)
	assert.Equal(t, 9090, cfg.ControlPort)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3, cfg.WorkerCount)
	assert.True(t, cfg.UniqueIDs)
	assert.Equal(t, "navigated away", cfg.CancelMessage)
}

func TestParse_SessionFlagWinsOverPositional(t *testing.T) {
	t.Parallel()
	cfg, _, err := Parse([]string{"-session", "a.hcl", "b.hcl"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "a.hcl", cfg.SessionPath)
}

func TestParse_NoPathPrintsUsage(t *testing.T) {
	t.Parallel()
	out := &bytes.Buffer{}

	cfg, shouldExit, err := Parse(nil, out)

	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{name: "bad format", args: []string{"-log-format", "xml", "s.hcl"}, wantMsg: "invalid log-format"},
		{name: "bad level", args: []string{"-log-level", "loud", "s.hcl"}, wantMsg: "invalid log-level"},
		{name: "negative workers", args: []string{"-workers", "-1", "s.hcl"}, wantMsg: "WorkerCount"},
		{name: "bad port", args: []string{"-control-port", "70000", "s.hcl"}, wantMsg: "ControlPort"},
		{name: "unknown flag", args: []string{"-nope"}, wantMsg: "flag provided but not defined"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := Parse(tc.args, &bytes.Buffer{})

			var exitErr *ExitError
			require.True(t, errors.As(err, &exitErr))
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.wantMsg)
		})
	}
}
