package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/securewatch/traceguard/internal/domain"
)

// Target names a replay environment.
type Target string

const (
	TargetStaging Target = "staging"
	TargetLocal   Target = "local"
)

// ParseTarget validates an environment selector.
func ParseTarget(s string) (Target, error) {
	switch Target(strings.ToLower(s)) {
	case TargetStaging:
		return TargetStaging, nil
	case TargetLocal:
		return TargetLocal, nil
	default:
		return "", fmt.Errorf("unknown target environment %q (want staging or local)", s)
	}
}

// Outcome classifies the result of a dispatch.
type Outcome string

const (
	OutcomeDryRun           Outcome = "dry_run"
	OutcomeSuccess          Outcome = "success"
	OutcomeRejected         Outcome = "rejected"
	OutcomeTimeout          Outcome = "timeout"
	OutcomeConnectionFailed Outcome = "connection_failed"
)

// DefaultTimeout bounds the replay POST when the caller does not set one.
// Replayed workflows can run for a while before the entrypoint responds.
const DefaultTimeout = 2 * time.Minute

// defaultWebhookPaths maps a root event's source to its entrypoint path
// when the event carries no meta.webhook_path. Finite table with an
// explicit fallback, so it stays easy to extend and test exhaustively.
var defaultWebhookPaths = map[string]string{
	"agent-1":      "/security-scanner-start",
	"bolt:agent-1": "/security-scanner-start",
	"agent-2":      "/vulnerability-assessment-start",
	"agent-3":      "/compliance-start",
}

const fallbackWebhookPath = "/security-scanner-start"

// ErrBaseURLUnset means the selected target has no configured base URL.
// Dry runs degrade gracefully instead of raising it.
var ErrBaseURLUnset = errors.New("entrypoint base URL is not configured for target")

// Dispatcher re-issues a resolved root event against a live entrypoint.
// One POST per call, no retries: replay is a manual, human-observed
// operation and re-invocation is the operator's call.
type Dispatcher struct {
	baseURLs map[Target]string
	apiKey   string
	client   *http.Client
	logger   *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithHTTPClient overrides the HTTP client (used by tests).
func WithHTTPClient(client *http.Client) DispatcherOption {
	return func(d *Dispatcher) {
		d.client = client
	}
}

// WithLogger sets the logger for the dispatcher.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a Dispatcher. baseURLs maps each target to its
// entrypoint base URL; apiKey, when non-empty, is sent as X-API-Key.
func NewDispatcher(baseURLs map[Target]string, apiKey string, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		baseURLs: baseURLs,
		apiKey:   apiKey,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Request describes one replay dispatch.
type Request struct {
	// TraceID is the caller-supplied id. It always wins over whatever id
	// is already embedded in the stored payload.
	TraceID string

	// Root is the resolved root event to replay.
	Root *domain.Event

	// Target selects the entrypoint environment.
	Target Target

	// OverridePath, when set, is concatenated onto the target base URL
	// instead of the stored or defaulted webhook path.
	OverridePath string

	// DryRun constructs and reports the payload and URL without any
	// network I/O.
	DryRun bool

	// Timeout bounds the POST. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Result reports what was (or would have been) sent and how it went.
type Result struct {
	URL     string
	Payload domain.Fields

	// Body is the exact request body. The dispatcher marshals the payload
	// once and sends those same bytes, so what the operator sees is what
	// went on the wire.
	Body []byte

	Outcome      Outcome
	StatusCode   int
	ResponseBody string
	Elapsed      time.Duration

	// Detail carries the transport error message for timeout and
	// connection failures.
	Detail string
}

// BuildPayload constructs the outbound replay body: a shallow copy of the
// root event's req (or an empty map when absent) with the trace id, a
// replay marker, and the originating event id force-set.
func BuildPayload(traceID string, root *domain.Event) domain.Fields {
	payload := root.Req.Clone()
	payload["trace_id"] = traceID
	payload["_replay"] = true
	payload["_original_event_id"] = root.ID
	return payload
}

// ResolveURL builds the full entrypoint URL for a request. Path
// precedence: explicit override, then the root event's meta.webhook_path,
// then the source-to-path defaults. When the target base URL is unset the
// bare path is returned for dry runs and ErrBaseURLUnset otherwise.
func (d *Dispatcher) ResolveURL(req Request) (string, error) {
	path := req.OverridePath
	if path == "" {
		path, _ = req.Root.Meta.String("webhook_path")
	}
	if path == "" {
		path = defaultPathForSource(req.Root.Source)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	base := strings.TrimRight(d.baseURLs[req.Target], "/")
	if base == "" {
		if req.DryRun {
			return path, nil
		}
		return "", fmt.Errorf("%w: %s", ErrBaseURLUnset, req.Target)
	}

	return base + path, nil
}

func defaultPathForSource(source string) string {
	if path, ok := defaultWebhookPaths[source]; ok {
		return path
	}
	return fallbackWebhookPath
}

// Dispatch builds the replay request and issues it. Network outcomes
// (success, rejection, timeout, connection failure) are classified on
// the Result rather than returned as errors; the error return is for
// invalid input and URL resolution failures only.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Result, error) {
	if req.Root == nil {
		return nil, domain.ErrNoRootEvent
	}

	url, err := d.ResolveURL(req)
	if err != nil {
		return nil, err
	}

	payload := BuildPayload(req.TraceID, req.Root)
	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode replay payload: %w", err)
	}

	result := &Result{URL: url, Payload: payload, Body: body}

	if req.DryRun {
		d.logger.Info("dry run, skipping HTTP call",
			slog.String("trace_id", req.TraceID),
			slog.String("url", url),
		)
		result.Outcome = OutcomeDryRun
		return result, nil
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build replay request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		httpReq.Header.Set("X-API-Key", d.apiKey)
	}

	d.logger.Info("sending replay request",
		slog.String("trace_id", req.TraceID),
		slog.String("url", url),
		slog.Duration("timeout", timeout),
	)

	start := time.Now()
	resp, err := d.client.Do(httpReq)
	result.Elapsed = time.Since(start)

	if err != nil {
		result.Detail = err.Error()
		result.Outcome = classifyTransportError(err)
		return result, nil
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err == nil {
		result.ResponseBody = string(respBody)
	}

	result.StatusCode = resp.StatusCode
	if resp.StatusCode >= 400 {
		result.Outcome = OutcomeRejected
	} else {
		result.Outcome = OutcomeSuccess
	}

	return result, nil
}

func classifyTransportError(err error) Outcome {
	if errors.Is(err, context.DeadlineExceeded) {
		return OutcomeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return OutcomeTimeout
	}
	return OutcomeConnectionFailed
}
