// Package outbound processes assessment result events delivered back by the
// assessment service.
package outbound

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brightmind-health/chartwatch/internal/events"
	"github.com/brightmind-health/chartwatch/internal/observability/metrics"
	"github.com/brightmind-health/chartwatch/pkg/logging"
)

type resultStore interface {
	ReadyOutbound(ctx context.Context, limit int32) ([]events.Event, error)
	MarkOutboundProcessing(ctx context.Context, id uuid.UUID) error
	CompleteOutbound(ctx context.Context, id uuid.UUID, summary, response any) error
	IncrementError(ctx context.Context, id uuid.UUID, message string, maxErrors int) (bool, error)
}

// ResultProcessor polls for received assessment results and summarizes their
// scores. An event that keeps failing is marked failed once its error budget
// runs out.
type ResultProcessor struct {
	store     resultStore
	logger    *logging.Logger
	metrics   *metrics.TrackingMetrics
	interval  time.Duration
	batch     int
	maxErrors int
}

func NewResultProcessor(store resultStore, logger *logging.Logger) *ResultProcessor {
	if logger == nil {
		logger = logging.Default()
	}
	return &ResultProcessor{
		store:     store,
		logger:    logger,
		interval:  10 * time.Second,
		batch:     20,
		maxErrors: 4,
	}
}

func (p *ResultProcessor) WithInterval(d time.Duration) *ResultProcessor {
	if d > 0 {
		p.interval = d
	}
	return p
}

func (p *ResultProcessor) WithBatchSize(n int) *ResultProcessor {
	if n > 0 {
		p.batch = n
	}
	return p
}

func (p *ResultProcessor) WithMaxErrors(n int) *ResultProcessor {
	if n > 0 {
		p.maxErrors = n
	}
	return p
}

func (p *ResultProcessor) WithMetrics(m *metrics.TrackingMetrics) *ResultProcessor {
	p.metrics = m
	return p
}

func (p *ResultProcessor) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	p.drain(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.drain(ctx)
		}
	}
}

func (p *ResultProcessor) drain(ctx context.Context) {
	if _, err := p.ProcessPending(ctx, p.batch); err != nil {
		p.logger.Error("outbound drain failed", "error", err)
	}
}

// ProcessPending handles up to limit ready results and reports how many it
// completed. The monitor loop also calls this during its inter-cycle wait.
func (p *ResultProcessor) ProcessPending(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = p.batch
	}
	ready, err := p.store.ReadyOutbound(ctx, int32(limit))
	if err != nil {
		return 0, fmt.Errorf("outbound: fetch ready: %w", err)
	}

	var completed int
	for _, ev := range ready {
		if ctx.Err() != nil {
			return completed, nil
		}
		if err := p.store.MarkOutboundProcessing(ctx, ev.ID); err != nil {
			if errors.Is(err, events.ErrNotClaimed) {
				p.logger.Debug("outbound event already settled", "event_id", ev.ID)
				continue
			}
			p.logger.Warn("outbound claim failed", "event_id", ev.ID, "error", err)
			continue
		}
		if p.processOne(ctx, ev) {
			completed++
		}
	}
	return completed, nil
}

func (p *ResultProcessor) processOne(ctx context.Context, ev events.Event) bool {
	summary, err := Summarize(ev.RawData)
	if err == nil {
		err = p.store.CompleteOutbound(ctx, ev.ID, summary, json.RawMessage(ev.RawData))
	}
	if err != nil {
		failed, incErr := p.store.IncrementError(ctx, ev.ID, err.Error(), p.maxErrors)
		if incErr != nil {
			p.logger.Error("outbound error record failed", "event_id", ev.ID, "error", incErr)
		} else if failed {
			p.logger.Error("outbound result abandoned", "event_id", ev.ID, "patient", ev.PatientName, "error", err)
			p.metrics.ObserveOutbound(string(events.StatusFailed))
		} else {
			p.logger.Warn("outbound result deferred", "event_id", ev.ID, "patient", ev.PatientName, "error", err)
		}
		return false
	}

	p.logger.Info("assessment result processed",
		"event_id", ev.ID,
		"patient", ev.PatientName,
		"risk_level", summary.RiskLevel,
	)
	p.metrics.ObserveOutbound(string(events.StatusCompleted))
	return true
}

// ResultSummary is the converted payload stored for a completed result.
type ResultSummary struct {
	RequestID    string `json:"request_id"`
	PHQ9Score    int    `json:"phq9_score"`
	PHQ9Severity string `json:"phq9_severity"`
	GAD7Score    int    `json:"gad7_score"`
	GAD7Severity string `json:"gad7_severity"`
	RiskLevel    string `json:"risk_level"`
	CompletedAt  string `json:"completed_at,omitempty"`
}

type rawResult struct {
	RequestID   string         `json:"request_id"`
	Scores      map[string]int `json:"scores"`
	RiskLevel   string         `json:"risk_level"`
	CompletedAt string         `json:"completed_at"`
}

// Summarize converts a raw assessment response into the summary payload.
func Summarize(raw json.RawMessage) (*ResultSummary, error) {
	var r rawResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("outbound: parse result: %w", err)
	}
	if r.Scores == nil {
		return nil, fmt.Errorf("outbound: result has no scores")
	}
	phq9, ok := r.Scores["phq9"]
	if !ok {
		return nil, fmt.Errorf("outbound: result missing phq9 score")
	}
	gad7, ok := r.Scores["gad7"]
	if !ok {
		return nil, fmt.Errorf("outbound: result missing gad7 score")
	}
	return &ResultSummary{
		RequestID:    r.RequestID,
		PHQ9Score:    phq9,
		PHQ9Severity: phq9Severity(phq9),
		GAD7Score:    gad7,
		GAD7Severity: gad7Severity(gad7),
		RiskLevel:    r.RiskLevel,
		CompletedAt:  r.CompletedAt,
	}, nil
}

func phq9Severity(score int) string {
	switch {
	case score < 5:
		return "minimal"
	case score < 10:
		return "mild"
	case score < 15:
		return "moderate"
	case score < 20:
		return "moderately severe"
	default:
		return "severe"
	}
}

func gad7Severity(score int) string {
	switch {
	case score < 5:
		return "minimal"
	case score < 10:
		return "mild"
	case score < 15:
		return "moderate"
	default:
		return "severe"
	}
}
