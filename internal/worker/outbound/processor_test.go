package outbound

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/brightmind-health/chartwatch/internal/events"
)

type fakeResultStore struct {
	ready       []events.Event
	completed   []uuid.UUID
	errored     []string
	errorCounts map[uuid.UUID]int
	claimErr    error
	completeErr error
	maxErrors   int
}

func (f *fakeResultStore) ReadyOutbound(ctx context.Context, limit int32) ([]events.Event, error) {
	if int(limit) < len(f.ready) {
		return f.ready[:limit], nil
	}
	return f.ready, nil
}

func (f *fakeResultStore) MarkOutboundProcessing(ctx context.Context, id uuid.UUID) error {
	return f.claimErr
}

func (f *fakeResultStore) CompleteOutbound(ctx context.Context, id uuid.UUID, summary, response any) error {
	if f.completeErr != nil {
		return f.completeErr
	}
	f.completed = append(f.completed, id)
	return nil
}

func (f *fakeResultStore) IncrementError(ctx context.Context, id uuid.UUID, message string, maxErrors int) (bool, error) {
	if f.errorCounts == nil {
		f.errorCounts = make(map[uuid.UUID]int)
	}
	f.errorCounts[id]++
	f.errored = append(f.errored, message)
	return f.errorCounts[id] >= maxErrors, nil
}

func resultEvent(raw string) events.Event {
	return events.Event{
		ID:          uuid.New(),
		Direction:   events.Outbound,
		Kind:        events.KindAssessmentResult,
		PatientName: "Doe, Jane",
		Status:      events.StatusReceived,
		RawData:     json.RawMessage(raw),
	}
}

func TestProcessPendingCompletesResults(t *testing.T) {
	store := &fakeResultStore{ready: []events.Event{
		resultEvent(`{"request_id":"req_1","scores":{"phq9":12,"gad7":6},"risk_level":"moderate"}`),
	}}
	proc := NewResultProcessor(store, nil)

	n, err := proc.ProcessPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("process pending: %v", err)
	}
	if n != 1 || len(store.completed) != 1 {
		t.Fatalf("completed %d events", len(store.completed))
	}
}

func TestProcessPendingMalformedResult(t *testing.T) {
	store := &fakeResultStore{ready: []events.Event{resultEvent(`{"scores":null}`)}}
	proc := NewResultProcessor(store, nil)

	n, err := proc.ProcessPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("process pending: %v", err)
	}
	if n != 0 {
		t.Fatalf("malformed result should not complete, got %d", n)
	}
	if len(store.errored) != 1 {
		t.Fatalf("expected one recorded error, got %v", store.errored)
	}
}

func TestProcessPendingFailsAtErrorBudget(t *testing.T) {
	ev := resultEvent(`{"request_id":"req_1","scores":{"phq9":3,"gad7":2}}`)
	store := &fakeResultStore{ready: []events.Event{ev}, completeErr: errors.New("db down")}
	proc := NewResultProcessor(store, nil).WithMaxErrors(2)

	for i := 0; i < 2; i++ {
		if _, err := proc.ProcessPending(context.Background(), 10); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	if store.errorCounts[ev.ID] != 2 {
		t.Fatalf("error count = %d", store.errorCounts[ev.ID])
	}
}

func TestProcessPendingSkipsUnclaimableEvent(t *testing.T) {
	store := &fakeResultStore{
		ready:    []events.Event{resultEvent(`{"request_id":"req_1","scores":{"phq9":3,"gad7":2}}`)},
		claimErr: events.ErrNotClaimed,
	}
	proc := NewResultProcessor(store, nil)

	n, err := proc.ProcessPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("process pending: %v", err)
	}
	if n != 0 || len(store.completed) != 0 {
		t.Fatalf("unclaimed event must not be processed, completed %v", store.completed)
	}
	if len(store.errored) != 0 {
		t.Fatalf("unclaimed event must not burn error budget, got %v", store.errored)
	}
}

func TestProcessPendingFetchError(t *testing.T) {
	proc := NewResultProcessor(&errStore{}, nil)
	if _, err := proc.ProcessPending(context.Background(), 10); err == nil {
		t.Fatal("expected fetch error")
	}
}

type errStore struct{ fakeResultStore }

func (errStore) ReadyOutbound(ctx context.Context, limit int32) ([]events.Event, error) {
	return nil, errors.New("boom")
}

func TestSummarizeSeverityBands(t *testing.T) {
	cases := []struct {
		phq9, gad7             int
		phq9Label, gad7Label   string
	}{
		{0, 0, "minimal", "minimal"},
		{7, 8, "mild", "mild"},
		{12, 11, "moderate", "moderate"},
		{17, 16, "moderately severe", "severe"},
		{23, 20, "severe", "severe"},
	}
	for _, tc := range cases {
		raw, _ := json.Marshal(map[string]any{
			"request_id": "req_1",
			"scores":     map[string]int{"phq9": tc.phq9, "gad7": tc.gad7},
			"risk_level": "low",
		})
		summary, err := Summarize(raw)
		if err != nil {
			t.Fatalf("summarize phq9=%d: %v", tc.phq9, err)
		}
		if summary.PHQ9Severity != tc.phq9Label {
			t.Errorf("phq9=%d severity=%q want %q", tc.phq9, summary.PHQ9Severity, tc.phq9Label)
		}
		if summary.GAD7Severity != tc.gad7Label {
			t.Errorf("gad7=%d severity=%q want %q", tc.gad7, summary.GAD7Severity, tc.gad7Label)
		}
	}
}

func TestSummarizeMissingScores(t *testing.T) {
	if _, err := Summarize(json.RawMessage(`{"scores":{"phq9":5}}`)); err == nil {
		t.Fatal("expected error for missing gad7")
	}
	if _, err := Summarize(json.RawMessage(`not json`)); err == nil {
		t.Fatal("expected parse error")
	}
}
