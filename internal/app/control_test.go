package app

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/specialistvlad/reqqueue/internal/requestqueue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// describedRequest adds Describe to a plain request handle.
type describedRequest struct {
	requestqueue.Request
}

func (d *describedRequest) Describe() map[string]string {
	return map[string]string{"kind": "test"}
}

func newTestMux(t *testing.T, handles ...requestqueue.Handle) (*http.ServeMux, *requestqueue.Queue, *Report) {
	t.Helper()
	queue := requestqueue.New()
	for _, h := range handles {
		queue.Set(h)
	}
	report := &Report{}
	return newControlMux(queue, report, slog.New(slog.NewTextHandler(&SafeBuffer{}, nil))), queue, report
}

func serve(mux *http.ServeMux, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestControl_Health(t *testing.T) {
	t.Parallel()
	mux, _, _ := newTestMux(t)

	rec := serve(mux, http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestControl_Requests(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	mux, _, _ := newTestMux(t,
		&requestqueue.Request{ID: "a"},
		&describedRequest{Request: requestqueue.Request{ID: "b"}},
	)

	// --- Act ---
	rec := serve(mux, http.MethodGet, "/requests")

	// --- Assert ---
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var views []requestView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	assert.Equal(t, []requestView{
		{ID: "a"},
		{ID: "b", Details: map[string]string{"kind": "test"}},
	}, views)
}

func TestControl_CancelTargeted(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	var got []string
	record := func(r requestqueue.Reason) error {
		got = append(got, r.Msg)
		return nil
	}
	mux, queue, report := newTestMux(t,
		&requestqueue.Request{ID: "a", Executor: record},
		&requestqueue.Request{ID: "b", Executor: record},
	)

	// --- Act ---
	rec := serve(mux, http.MethodPost, "/cancel?id=b&id=missing&msg=bye")

	// --- Assert ---
	require.Equal(t, http.StatusOK, rec.Code)
	var ev CancelEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ev))
	assert.Equal(t, "control", ev.Source)
	assert.Equal(t, []any{"b", "missing"}, ev.Target)
	assert.Equal(t, []string{"b"}, ev.Canceled)
	assert.Empty(t, ev.Error)

	assert.Equal(t, []string{"bye: b"}, got)
	require.Len(t, queue.All(), 1)
	assert.Equal(t, "a", queue.All()[0].RequestID())
	assert.Len(t, report.Cancels(), 1)
}

func TestControl_CancelAll(t *testing.T) {
	t.Parallel()
	var got []string
	record := func(r requestqueue.Reason) error {
		got = append(got, r.Msg)
		return nil
	}
	mux, queue, _ := newTestMux(t,
		&requestqueue.Request{ID: "a", Executor: record},
		&requestqueue.Request{ID: "b", Executor: record},
	)

	rec := serve(mux, http.MethodPost, "/cancel")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"target":"all"`)
	assert.Equal(t, []string{"request canceled: a", "request canceled: b"}, got)
	assert.Zero(t, queue.Len())
}

func TestControl_CancelFailure(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	mux, queue, _ := newTestMux(t,
		&requestqueue.Request{ID: "a"},
		&requestqueue.Request{ID: "b", Executor: func(requestqueue.Reason) error { return errors.New("stuck") }},
		&requestqueue.Request{ID: "c"},
	)

	// --- Act ---
	rec := serve(mux, http.MethodPost, "/cancel")

	// --- Assert ---
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var ev CancelEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ev))
	assert.Equal(t, []string{"a"}, ev.Canceled)
	assert.Equal(t, "b", ev.Failed)
	assert.Equal(t, []string{"c"}, ev.Skipped)
	assert.Contains(t, ev.Error, "stuck")
	require.Equal(t, 1, queue.Len())
	assert.Equal(t, "c", queue.All()[0].RequestID())
}

func TestControl_WrongMethod(t *testing.T) {
	t.Parallel()
	mux, _, _ := newTestMux(t)

	rec := serve(mux, http.MethodGet, "/cancel")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
