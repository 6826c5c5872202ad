package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/brightmind-health/chartwatch/internal/events"
	"github.com/brightmind-health/chartwatch/internal/monitor"
)

type fakeEventReader struct {
	byID   map[uuid.UUID]*events.Event
	active map[string]*events.Event
	list   []events.Event
}

func (f *fakeEventReader) GetEvent(ctx context.Context, id uuid.UUID) (*events.Event, error) {
	if ev, ok := f.byID[id]; ok {
		return ev, nil
	}
	return nil, events.ErrNotFound
}

func (f *fakeEventReader) ActiveByPatient(ctx context.Context, patientName string) (*events.Event, error) {
	if ev, ok := f.active[patientName]; ok {
		return ev, nil
	}
	return nil, events.ErrNotFound
}

func (f *fakeEventReader) ListByPatient(ctx context.Context, patientName string) ([]events.Event, error) {
	return f.list, nil
}

type fakeStats struct {
	snap monitor.StatsSnapshot
}

func (f *fakeStats) Snapshot() monitor.StatsSnapshot { return f.snap }

func newOpsRouter(h *OpsHandler) chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", h.HealthCheck)
	r.Get("/api/events/{id}", h.GetEvent)
	r.Get("/api/patients/{name}/events", h.ListPatientEvents)
	r.Get("/api/patients/{name}/active", h.GetActivePatientEvent)
	r.Get("/api/stats", h.GetStats)
	r.Get("/api/logs", h.GetRecentLogs)
	return r
}

func TestHealthCheck(t *testing.T) {
	h := NewOpsHandler(&fakeEventReader{}, &fakeStats{}, nil)
	rec := httptest.NewRecorder()
	newOpsRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestGetEvent(t *testing.T) {
	id := uuid.New()
	reader := &fakeEventReader{byID: map[uuid.UUID]*events.Event{
		id: {ID: id, PatientName: "Doe, Jane", Status: events.StatusConverted},
	}}
	h := NewOpsHandler(reader, &fakeStats{}, nil)
	r := newOpsRouter(h)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events/"+id.String(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var ev events.Event
	if err := json.Unmarshal(rec.Body.Bytes(), &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.PatientName != "Doe, Jane" {
		t.Fatalf("event = %+v", ev)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events/"+uuid.NewString(), nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing event status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events/not-a-uuid", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d", rec.Code)
	}
}

func TestListPatientEvents(t *testing.T) {
	reader := &fakeEventReader{list: []events.Event{
		{ID: uuid.New(), PatientName: "Doe, Jane", Status: events.StatusExpired},
		{ID: uuid.New(), PatientName: "Doe, Jane", Status: events.StatusConverted},
	}}
	h := NewOpsHandler(reader, &fakeStats{}, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/patients/"+strings.ReplaceAll("Doe, Jane", " ", "%20")+"/events", nil)
	newOpsRouter(h).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		PatientName string         `json:"patient_name"`
		Events      []events.Event `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Events) != 2 {
		t.Fatalf("events = %+v", resp.Events)
	}
}

func TestGetActivePatientEvent(t *testing.T) {
	id := uuid.New()
	reader := &fakeEventReader{active: map[string]*events.Event{
		"Doe, Jane": {ID: id, PatientName: "Doe, Jane", Status: events.StatusConverted},
	}}
	h := NewOpsHandler(reader, &fakeStats{}, nil)
	r := newOpsRouter(h)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/patients/Doe,%20Jane/active", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var ev events.Event
	if err := json.Unmarshal(rec.Body.Bytes(), &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.ID != id {
		t.Fatalf("event = %+v", ev)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/patients/Nobody/active", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing active status = %d", rec.Code)
	}
}

func TestGetStats(t *testing.T) {
	h := NewOpsHandler(&fakeEventReader{}, &fakeStats{snap: monitor.StatsSnapshot{Scans: 5, Converted: 2}}, nil)
	rec := httptest.NewRecorder()
	newOpsRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var snap monitor.StatsSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Scans != 5 || snap.Converted != 2 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestGetRecentLogsWithoutSource(t *testing.T) {
	h := NewOpsHandler(&fakeEventReader{}, &fakeStats{}, nil)
	rec := httptest.NewRecorder()
	newOpsRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/logs", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestStatusFeedStreamsSnapshots(t *testing.T) {
	feed := NewStatusFeed(&fakeStats{snap: monitor.StatsSnapshot{Scans: 9}}).WithInterval(10 * time.Millisecond)
	srv := httptest.NewServer(http.HandlerFunc(feed.HandleWebSocket))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/status"
	conn, err := websocket.Dial(wsURL, "", srv.URL)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var snap monitor.StatsSnapshot
	if err := websocket.JSON.Receive(conn, &snap); err != nil {
		t.Fatalf("receive: %v", err)
	}
	if snap.Scans != 9 {
		t.Fatalf("snapshot = %+v", snap)
	}
	// A second frame arrives on the ticker.
	if err := websocket.JSON.Receive(conn, &snap); err != nil {
		t.Fatalf("second receive: %v", err)
	}
}
