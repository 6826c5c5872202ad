package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/brightmind-health/chartwatch/internal/emr"
	"github.com/brightmind-health/chartwatch/internal/observability/metrics"
	"github.com/brightmind-health/chartwatch/internal/tracking"
	"github.com/brightmind-health/chartwatch/pkg/logging"
)

type drainer interface {
	ProcessPending(ctx context.Context, limit int) (int, error)
}

type statusPublisher interface {
	PublishStatus(ctx context.Context, snap StatsSnapshot) error
	AppendLog(ctx context.Context, level, message, patient string) error
}

// Monitor is the single polling loop. One cycle runs to completion before the
// next scan starts; within a cycle, expiry runs before extraction.
type Monitor struct {
	board     emr.BoardSource
	orch      *Orchestrator
	expiry    *ExpiryController
	differ    tracking.Differ
	stats     *SessionStats
	logger    *logging.Logger
	metrics   *metrics.TrackingMetrics
	drain     drainer
	publisher statusPublisher

	pollInterval       time.Duration
	connectRetryWindow time.Duration
	drainBudget        int
}

func New(board emr.BoardSource, orch *Orchestrator, expiry *ExpiryController, stats *SessionStats, logger *logging.Logger) *Monitor {
	if logger == nil {
		logger = logging.Default()
	}
	if stats == nil {
		stats = NewSessionStats()
	}
	return &Monitor{
		board:              board,
		orch:               orch,
		expiry:             expiry,
		stats:              stats,
		logger:             logger,
		pollInterval:       30 * time.Second,
		connectRetryWindow: 5 * time.Minute,
		drainBudget:        5,
	}
}

func (m *Monitor) WithPollInterval(d time.Duration) *Monitor {
	if d > 0 {
		m.pollInterval = d
	}
	return m
}

func (m *Monitor) WithConnectRetryWindow(d time.Duration) *Monitor {
	if d > 0 {
		m.connectRetryWindow = d
	}
	return m
}

// WithDrainer lets the loop drain up to budget outbound results during each
// inter-cycle wait.
func (m *Monitor) WithDrainer(d drainer, budget int) *Monitor {
	m.drain = d
	if budget > 0 {
		m.drainBudget = budget
	}
	return m
}

func (m *Monitor) WithPublisher(p statusPublisher) *Monitor {
	m.publisher = p
	return m
}

func (m *Monitor) WithMetrics(mx *metrics.TrackingMetrics) *Monitor {
	m.metrics = mx
	return m
}

// Stats exposes the live counters for the ops API.
func (m *Monitor) Stats() *SessionStats { return m.stats }

// Run polls until the context is canceled. It returns an error only when the
// board has been unreachable for the whole connect-retry window; every other
// failure is logged and the loop continues.
func (m *Monitor) Run(ctx context.Context) error {
	session := NewSession()
	var unreachableSince time.Time

	for {
		if ctx.Err() != nil {
			m.logger.Info("monitor stopping")
			return nil
		}

		waiting, roomed, err := m.board.ReadBoard(ctx)
		if err != nil {
			if ctx.Err() != nil {
				m.logger.Info("monitor stopping")
				return nil
			}
			if unreachableSince.IsZero() {
				unreachableSince = time.Now()
			}
			if down := time.Since(unreachableSince); down >= m.connectRetryWindow {
				return fmt.Errorf("monitor: board unreachable for %s: %w", down.Round(time.Second), err)
			}
			m.logger.Error("board read failed", "error", err)
			if !m.wait(ctx) {
				return nil
			}
			continue
		}
		unreachableSince = time.Time{}

		m.runCycle(ctx, waiting, roomed, session)

		if !m.wait(ctx) {
			m.logger.Info("monitor stopping")
			return nil
		}
	}
}

func (m *Monitor) runCycle(ctx context.Context, waiting, roomed []tracking.Observation, session *Session) {
	current := tracking.CycleSnapshot{
		WaitingRoom: tracking.SnapshotFromRows(waiting),
		Roomed:      tracking.SnapshotFromRows(roomed),
	}
	m.metrics.ObserveCycle()

	delta := m.differ.Diff(session.Previous, current, session.Processed)

	// Discharges first. A discharged patient's record must be expired before
	// any extraction work for the new snapshot begins.
	for _, name := range delta.Discharged {
		if ctx.Err() != nil {
			return
		}
		if m.expiry.Expire(ctx, name, session) {
			m.stats.RecordDischarge()
			m.metrics.ObserveDischarge()
			m.publishLog(ctx, "info", "patient discharged", name)
		}
	}

	results := m.orch.ProcessMissed(ctx, delta.MissedExtractions, session)
	results = append(results, m.orch.ProcessCycle(ctx, waiting, session)...)
	for _, r := range results {
		m.stats.RecordResult(r)
		if r.Outcome == OutcomeConverted {
			m.publishLog(ctx, "info", "patient converted", r.PatientName)
		} else {
			m.publishLog(ctx, "warn", "extraction failed", r.PatientName)
		}
	}

	session.Previous = current
	m.stats.RecordScan(len(waiting), len(roomed), len(session.Active))
	m.logger.Info("cycle complete",
		"waiting", len(waiting),
		"roomed", len(roomed),
		"discharged", len(delta.Discharged),
		"extracted", len(results),
	)

	if m.publisher != nil {
		if err := m.publisher.PublishStatus(ctx, m.stats.Snapshot()); err != nil {
			m.logger.Warn("status publish failed", "error", err)
		}
	}
}

// publishLog mirrors a noteworthy cycle event onto the status bus ring.
func (m *Monitor) publishLog(ctx context.Context, level, message, patient string) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.AppendLog(ctx, level, message, patient); err != nil {
		m.logger.Debug("status log append failed", "error", err)
	}
}

// wait sleeps out the inter-cycle interval in one-second steps so cancellation
// is picked up quickly, draining a bounded batch of outbound work once at the
// start. Reports false when the context was canceled.
func (m *Monitor) wait(ctx context.Context) bool {
	deadline := time.Now().Add(m.pollInterval)

	if m.drain != nil {
		if n, err := m.drain.ProcessPending(ctx, m.drainBudget); err != nil {
			m.logger.Warn("outbound drain failed", "error", err)
		} else if n > 0 {
			m.logger.Info("drained outbound results", "count", n)
		}
	}

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		step := time.Second
		if remaining < step {
			step = remaining
		}
		timer := time.NewTimer(step)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}
