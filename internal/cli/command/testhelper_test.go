package command

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
)

// mockServer is a control API stub answering in the server's envelope.
type mockServer struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	requests []recordedRequest
}

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   string
}

func newMockServer(t *testing.T) *mockServer {
	t.Helper()
	m := &mockServer{handlers: make(map[string]http.HandlerFunc)}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		m.mu.Lock()
		m.requests = append(m.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Auth:   r.Header.Get("Authorization"),
			Body:   string(body),
		})
		h, ok := m.handlers[r.Method+" "+r.URL.Path]
		m.mu.Unlock()
		if !ok {
			errorResponse(w, http.StatusNotFound, "PD-SYS-4040", "not found")
			return
		}
		h(w, r)
	}))
	t.Cleanup(m.Close)
	return m
}

// handle registers a handler for "METHOD /path".
func (m *mockServer) handle(pattern string, h http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[pattern] = h
}

// reply registers a handler answering with data.
func (m *mockServer) reply(pattern string, data any) {
	m.handle(pattern, func(w http.ResponseWriter, _ *http.Request) {
		jsonResponse(w, http.StatusOK, data)
	})
}

func (m *mockServer) recorded() []recordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]recordedRequest(nil), m.requests...)
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"code":       "OK",
		"message":    "Success",
		"request_id": "01TEST",
		"data":       data,
	})
}

func errorResponse(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"code":       code,
		"message":    message,
		"request_id": "01TEST",
	})
}

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// runCLI runs the application with a throwaway profile path and returns
// what it wrote to stdout and stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLIWithProfile(t, filepath.Join(t.TempDir(), "cli.yaml"), args...)
}

func runCLIWithProfile(t *testing.T, profile string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr syncBuffer

	app := App()
	app.Writer = &stdout
	app.ErrWriter = &stderr

	full := append([]string{"pointerd-cli", "--config", profile}, args...)
	err := app.Run(full)
	return stdout.String(), stderr.String(), err
}
