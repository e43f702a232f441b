package metric

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}
	if r.registry == nil {
		t.Error("registry field is nil")
	}
	if r.SessionsOpened == nil || r.SessionsClosed == nil {
		t.Error("session metrics are nil")
	}
	if r.DatagramsReceived == nil || r.FramesSent == nil || r.SendErrors == nil {
		t.Error("datagram metrics are nil")
	}
}

func TestGlobal(t *testing.T) {
	if Global() != Global() {
		t.Error("Global() should return the same instance")
	}
}

func TestHandler(t *testing.T) {
	body := scrape(t, Handler())

	if !strings.Contains(body, "go_goroutines") {
		t.Error("expected go_goroutines metric")
	}
	if !strings.Contains(body, "process_") {
		t.Error("expected process metrics")
	}
}

func TestSessionMetrics(t *testing.T) {
	r := NewRegistry()

	r.SessionOpened()
	r.SessionOpened()
	r.SessionClosed(ReasonClient)
	r.SessionClosed(ReasonSuperseded)
	r.SessionClosed(ReasonSuperseded)

	if got := testutil.ToFloat64(r.SessionsOpened); got != 2 {
		t.Errorf("sessions_opened_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.SessionsClosed.WithLabelValues(ReasonSuperseded)); got != 2 {
		t.Errorf("sessions_closed_total{superseded} = %v, want 2", got)
	}

	body := scrape(t, r.Handler())
	if !strings.Contains(body, `pointerd_sessions_closed_total{reason="client"} 1`) {
		t.Error(`expected pointerd_sessions_closed_total{reason="client"} 1`)
	}
}

func TestDatagramMetrics(t *testing.T) {
	r := NewRegistry()

	r.DatagramReceived(ResultAccepted)
	r.DatagramReceived(ResultAccepted)
	r.DatagramReceived(ResultCrypto)
	r.FrameSent("move")
	r.SendError("click")

	body := scrape(t, r.Handler())
	for _, want := range []string{
		`pointerd_datagrams_received_total{result="accepted"} 2`,
		`pointerd_datagrams_received_total{result="crypto"} 1`,
		`pointerd_frames_sent_total{kind="move"} 1`,
		`pointerd_send_errors_total{kind="click"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %s", want)
		}
	}
}

func TestRequestMetrics(t *testing.T) {
	r := NewRegistry()

	r.RecordRequest("GET", "/v1/sessions", "200", 0.005)
	r.RecordRequest("POST", "/v1/pointer/click", "400", 0.001)

	body := scrape(t, r.Handler())
	if !strings.Contains(body, `pointerd_http_requests_total{method="GET",path="/v1/sessions",status="200"} 1`) {
		t.Error("expected pointerd_http_requests_total for GET /v1/sessions")
	}
	if !strings.Contains(body, "pointerd_http_request_duration_seconds_bucket") {
		t.Error("expected pointerd_http_request_duration_seconds_bucket")
	}
}

func TestNilRegistry(t *testing.T) {
	var r *Registry

	// None of these may panic.
	r.SessionOpened()
	r.SessionClosed(ReasonIdle)
	r.DatagramReceived(ResultProtocol)
	r.FrameSent("open_ack")
	r.SendError("move")
	r.RecordRequest("GET", "/health", "200", 0)
	if err := r.Register(NewCollector(fixedCount(1))); err != nil {
		t.Errorf("Register() on nil registry error = %v", err)
	}
	if r.Gatherer() == nil {
		t.Error("Gatherer() on nil registry returned nil")
	}
	scrape(t, r.Handler())
}
