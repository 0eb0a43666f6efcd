// Package domain defines the event model shared by the verifier, the
// replay tooling, and the storage adapters.
package domain

import (
	"strings"
	"time"
)

// Well-known event type tags. The set logged by the pipeline is
// open-ended; checks match on these fixed tags plus the "tool." prefix
// instead of rejecting unknown tags outright.
const (
	EventWorkflowStart    = "workflow.start"
	EventWorkflowComplete = "workflow.complete"
	EventWorkflowError    = "workflow.error"
	EventToolCall         = "tool.call"
	EventToolResult       = "tool.result"
	EventHTTPRequest      = "http.request"
	EventWebhookReceived  = "webhook.received"
)

// toolPrefix matches free-form tool events (tool.search, tool.exec, ...).
const toolPrefix = "tool."

// Event is one immutable record appended by the pipeline. Events sharing
// a TraceID form the ordered timeline of a single workflow run. This
// system only ever reads them.
type Event struct {
	ID        string    `json:"id"`
	TraceID   string    `json:"trace_id"`
	ScanID    string    `json:"scan_id,omitempty"` // optional enclosing job id
	EventType string    `json:"event_type"`
	EventName string    `json:"event_name,omitempty"`
	Source    string    `json:"source,omitempty"`
	Status    string    `json:"status,omitempty"` // display-only label
	Req       Fields    `json:"req,omitempty"`    // original triggering request body, usually only on the first event
	Err       Fields    `json:"err,omitempty"`    // error descriptor; must carry "message" on workflow.error
	Meta      Fields    `json:"meta,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IsTerminal reports whether the event marks the end of a trace.
func (e *Event) IsTerminal() bool {
	return e.EventType == EventWorkflowComplete || e.EventType == EventWorkflowError
}

// IsActivity reports whether the event records intermediate work: a tool
// invocation or an HTTP/webhook exchange.
func (e *Event) IsActivity() bool {
	switch e.EventType {
	case EventToolCall, EventToolResult, EventHTTPRequest, EventWebhookReceived:
		return true
	}
	return strings.HasPrefix(e.EventType, toolPrefix)
}
