// Package ingest exposes the local event-log insert endpoint. It mirrors
// the hosted log function's contract so the rest of the tooling can run
// against either backend unchanged.
package ingest

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/securewatch/traceguard/internal/domain"
	"github.com/securewatch/traceguard/internal/ports"
	"github.com/securewatch/traceguard/internal/server"
	"github.com/securewatch/traceguard/internal/trace"
)

// Handler serves event inserts backed by an EventStore.
type Handler struct {
	store  ports.EventStore
	logger *slog.Logger
}

// NewHandler creates a Handler writing to store.
func NewHandler(store ports.EventStore, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Routes builds the ingest router. POST /log requires the service key
// when one is configured; GET /healthz stays open for liveness probes.
func (h *Handler) Routes(serviceKey string) chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", h.handleHealthz)

	r.Group(func(r chi.Router) {
		if serviceKey != "" {
			r.Use(server.BearerAuthMiddleware(serviceKey))
		}
		r.Post("/log", h.handleLog)
	})

	return r
}

type insertRequest struct {
	TraceID   string        `json:"trace_id"`
	ScanID    string        `json:"scan_id"`
	EventType string        `json:"event_type"`
	EventName string        `json:"event_name"`
	Source    string        `json:"source"`
	Status    string        `json:"status"`
	Req       domain.Fields `json:"req"`
	Err       domain.Fields `json:"err"`
	Meta      domain.Fields `json:"meta"`
}

type insertResponse struct {
	OK bool   `json:"ok"`
	ID string `json:"id"`
}

func (h *Handler) handleLog(w http.ResponseWriter, r *http.Request) {
	var req insertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	traceID, err := trace.NormalizeID(req.TraceID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "trace_id must be a UUID")
		return
	}
	if req.EventType == "" {
		h.writeError(w, http.StatusBadRequest, "event_type is required")
		return
	}
	if req.EventType == domain.EventWorkflowError {
		msg, ok := req.Err.String("message")
		if !ok || msg == "" {
			h.writeError(w, http.StatusBadRequest, "workflow.error events require err.message")
			return
		}
	}

	event := &domain.Event{
		TraceID:   traceID,
		ScanID:    req.ScanID,
		EventType: req.EventType,
		EventName: req.EventName,
		Source:    req.Source,
		Status:    req.Status,
		Req:       req.Req,
		Err:       req.Err,
		Meta:      req.Meta,
	}

	if err := h.store.AppendEvent(r.Context(), event); err != nil {
		h.logger.Error("failed to append event",
			slog.String("trace_id", traceID),
			slog.String("error", err.Error()),
		)
		h.writeError(w, http.StatusInternalServerError, "failed to store event")
		return
	}

	h.logger.Info("event stored",
		slog.String("event_id", event.ID),
		slog.String("trace_id", traceID),
		slog.String("event_type", event.EventType),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(insertResponse{OK: true, ID: event.ID})
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": msg})
}
