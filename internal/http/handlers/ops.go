// Package handlers exposes the read-only ops API over the monitor's state.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/brightmind-health/chartwatch/internal/events"
	"github.com/brightmind-health/chartwatch/internal/monitor"
	"github.com/brightmind-health/chartwatch/internal/statusbus"
	"github.com/brightmind-health/chartwatch/pkg/logging"
)

type eventReader interface {
	GetEvent(ctx context.Context, id uuid.UUID) (*events.Event, error)
	ActiveByPatient(ctx context.Context, patientName string) (*events.Event, error)
	ListByPatient(ctx context.Context, patientName string) ([]events.Event, error)
}

type statsSource interface {
	Snapshot() monitor.StatsSnapshot
}

type logSource interface {
	RecentLogs(ctx context.Context, n int) ([]statusbus.LogEntry, error)
}

// OpsHandler serves event lookups and session stats.
type OpsHandler struct {
	events eventReader
	stats  statsSource
	logs   logSource
	logger *logging.Logger
}

func NewOpsHandler(events eventReader, stats statsSource, logger *logging.Logger) *OpsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &OpsHandler{events: events, stats: stats, logger: logger}
}

// WithLogSource adds the recent-activity feed, backed by the status bus.
func (h *OpsHandler) WithLogSource(logs logSource) *OpsHandler {
	h.logs = logs
	return h
}

// HealthCheck reports liveness.
// GET /healthz
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetEvent returns one event by id.
// GET /api/events/{id}
func (h *OpsHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"invalid event id"}`, http.StatusBadRequest)
		return
	}
	ev, err := h.events.GetEvent(r.Context(), id)
	if errors.Is(err, events.ErrNotFound) {
		http.Error(w, `{"error":"event not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("event lookup failed", "event_id", id, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// ListPatientEvents returns every event for a patient name, newest first.
// GET /api/patients/{name}/events
func (h *OpsHandler) ListPatientEvents(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	if name == "" {
		http.Error(w, `{"error":"patient name required"}`, http.StatusBadRequest)
		return
	}
	list, err := h.events.ListByPatient(r.Context(), name)
	if err != nil {
		h.logger.Error("patient events lookup failed", "patient", name, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"patient_name": name,
		"events":       list,
	})
}

// GetActivePatientEvent returns the patient's current non-expired inbound
// event.
// GET /api/patients/{name}/active
func (h *OpsHandler) GetActivePatientEvent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	if name == "" {
		http.Error(w, `{"error":"patient name required"}`, http.StatusBadRequest)
		return
	}
	ev, err := h.events.ActiveByPatient(r.Context(), name)
	if errors.Is(err, events.ErrNotFound) {
		http.Error(w, `{"error":"no active event"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("active event lookup failed", "patient", name, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// GetStats returns the live session counters.
// GET /api/stats
func (h *OpsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats.Snapshot())
}

// GetRecentLogs returns the recent-activity ring from the status bus.
// GET /api/logs
func (h *OpsHandler) GetRecentLogs(w http.ResponseWriter, r *http.Request) {
	if h.logs == nil {
		writeJSON(w, http.StatusOK, map[string]any{"entries": []statusbus.LogEntry{}})
		return
	}
	entries, err := h.logs.RecentLogs(r.Context(), 50)
	if err != nil {
		h.logger.Error("log ring read failed", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
