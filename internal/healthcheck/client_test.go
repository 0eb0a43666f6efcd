package healthcheck

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/securewatch/traceguard/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCheck_ContractSatisfied(t *testing.T) {
	var gotPayload map[string]any
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotPayload)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"ok":true,"id":"evt-123"}`)
	}))
	defer server.Close()

	c := NewClient(server.URL, "service-key", WithLogger(quietLogger()))

	result, err := c.Check(context.Background())
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}

	if result.EventID != "evt-123" {
		t.Errorf("EventID = %v, want evt-123", result.EventID)
	}
	if result.StatusCode != http.StatusCreated {
		t.Errorf("StatusCode = %d, want 201", result.StatusCode)
	}
	if gotAuth != "Bearer service-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}

	if gotPayload["event_type"] != "test.health_check" {
		t.Errorf("event_type = %v", gotPayload["event_type"])
	}
	if gotPayload["source"] != "traceguard" {
		t.Errorf("source = %v", gotPayload["source"])
	}
	meta, _ := gotPayload["meta"].(map[string]any)
	if meta["_test"] != true || meta["fixture_mode"] != false {
		t.Errorf("meta = %v", meta)
	}
	if tid, _ := gotPayload["trace_id"].(string); len(tid) != 36 {
		t.Errorf("trace_id should be a fresh UUID, got %q", tid)
	}
}

func TestCheck_Failures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantInErr string
	}{
		{"wrong status", http.StatusOK, `{"ok":true,"id":"x"}`, "expected 201"},
		{"ok false", http.StatusCreated, `{"ok":false}`, "ok=false"},
		{"missing id", http.StatusCreated, `{"ok":true,"id":""}`, "no event id"},
		{"garbage body", http.StatusCreated, `<html>`, "unparseable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			c := NewClient(server.URL, "", WithLogger(quietLogger()))

			_, err := c.Check(context.Background())
			if err == nil {
				t.Fatal("Check() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantInErr) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantInErr)
			}
		})
	}
}

func TestCheck_OmitsAuthWhenKeyUnset(t *testing.T) {
	var sawAuth bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawAuth = r.Header["Authorization"]
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"ok":true,"id":"evt-1"}`)
	}))
	defer server.Close()

	c := NewClient(server.URL, "", WithLogger(quietLogger()))
	if _, err := c.Check(context.Background()); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if sawAuth {
		t.Error("Authorization header should be omitted when no key is configured")
	}
}

func TestCheck_RecordedContract(t *testing.T) {
	// Replays the recorded exchange with the hosted function; matching is
	// by method and URL only, so the fresh probe trace id does not matter.
	r, cleanup := testutil.NewVCRRecorder(t, "healthcheck")
	defer cleanup()

	c := NewClient(
		"https://project.example.com/functions/v1/log",
		"service-key",
		WithHTTPClient(testutil.VCRHTTPClient(r)),
		WithLogger(quietLogger()),
	)

	result, err := c.Check(context.Background())
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if result.EventID != "evt-cassette-1" {
		t.Errorf("EventID = %v, want evt-cassette-1", result.EventID)
	}
}
