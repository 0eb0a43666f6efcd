// Package healthcheck probes the hosted event-log ingest function with a
// synthetic event and asserts its insert contract. It is an external
// smoke test; nothing in trace verification depends on it.
package healthcheck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/securewatch/traceguard/internal/domain"
)

// DefaultTimeout bounds the probe request.
const DefaultTimeout = 15 * time.Second

// Client issues health-check inserts against the log function.
type Client struct {
	url        string
	serviceKey string
	client     *http.Client
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client (used by tests).
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithLogger sets the logger for the client.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client for the given log-function URL. serviceKey,
// when non-empty, is sent as a bearer credential.
func NewClient(url, serviceKey string, opts ...ClientOption) *Client {
	c := &Client{
		url:        url,
		serviceKey: serviceKey,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   DefaultTimeout,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Result reports a successful probe.
type Result struct {
	EventID    string
	TraceID    string
	StatusCode int
}

type insertResponse struct {
	OK bool   `json:"ok"`
	ID string `json:"id"`
}

// Check POSTs a throwaway event and verifies the contract: HTTP 201 with
// a body carrying ok=true and a non-empty id. The probe trace id is
// freshly generated so it never collides with real traffic.
func (c *Client) Check(ctx context.Context) (*Result, error) {
	traceID := uuid.New().String()
	payload := map[string]any{
		"trace_id":   traceID,
		"source":     "traceguard",
		"event_type": "test.health_check",
		"event_name": "Health check probe",
		"status":     "info",
		"meta":       domain.Fields{"fixture_mode": false, "_test": true},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode health-check payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build health-check request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.serviceKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not reach log function at %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("log function returned HTTP %d (expected 201), body: %s",
			resp.StatusCode, truncate(string(respBody), 400))
	}

	var parsed insertResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("log function returned unparseable body: %w", err)
	}
	if !parsed.OK {
		return nil, fmt.Errorf("log function returned ok=false, body: %s", truncate(string(respBody), 400))
	}
	if parsed.ID == "" {
		return nil, fmt.Errorf("log function returned no event id, body: %s", truncate(string(respBody), 400))
	}

	c.logger.Info("log function health check passed",
		slog.String("event_id", parsed.ID),
		slog.String("trace_id", traceID),
	)

	return &Result{EventID: parsed.ID, TraceID: traceID, StatusCode: resp.StatusCode}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
