package health

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/vietddude/dispatch/internal/tracking"
	"github.com/vietddude/dispatch/internal/transport"
)

func TestServer_HandleHealth(t *testing.T) {
	tracker, err := tracking.New(5)
	if err != nil {
		t.Fatalf("tracking.New failed: %v", err)
	}
	s := NewServer(tracker, nil, 0)

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status = %q, want healthy", body["status"])
	}
}

func TestServer_HandleDetailed(t *testing.T) {
	tracker, err := tracking.New(5)
	if err != nil {
		t.Fatalf("tracking.New failed: %v", err)
	}
	tracker.RegisterError("msg-1", errors.New("boom"))

	input, err := transport.NewQueue("input", 4)
	if err != nil {
		t.Fatalf("NewQueue failed: %v", err)
	}
	s := NewServer(tracker, []*transport.Queue{input}, 0)

	rec := httptest.NewRecorder()
	s.handleDetailed(rec, httptest.NewRequest("GET", "/health/detailed", nil))

	var report Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if report.TrackedRecords != 1 {
		t.Errorf("tracked_records = %d, want 1", report.TrackedRecords)
	}
	if len(report.TrackedIDs) != 1 || report.TrackedIDs[0] != "msg-1" {
		t.Errorf("tracked_ids = %v, want [msg-1]", report.TrackedIDs)
	}
	if depth, ok := report.QueueDepths["input"]; !ok || depth != 0 {
		t.Errorf("queue_depths = %v, want input:0", report.QueueDepths)
	}
}
