package monitor

import (
	"sync"
	"time"
)

// StatsSnapshot is a point-in-time copy of the session counters, shaped for
// the ops API and status bus.
type StatsSnapshot struct {
	StartedAt    time.Time `json:"started_at"`
	Scans        int       `json:"scans"`
	Converted    int       `json:"converted"`
	Failed       int       `json:"failed"`
	Discharges   int       `json:"discharges"`
	WaitingRoom  int       `json:"waiting_room"`
	Roomed       int       `json:"roomed"`
	ActiveEvents int       `json:"active_events"`
	LastScanAt   time.Time `json:"last_scan_at,omitempty"`
}

// SessionStats accumulates counters across the run. The monitor loop is the
// only writer; the ops API and status bus read snapshots concurrently.
type SessionStats struct {
	mu   sync.Mutex
	snap StatsSnapshot
}

func NewSessionStats() *SessionStats {
	return &SessionStats{snap: StatsSnapshot{StartedAt: time.Now()}}
}

func (s *SessionStats) RecordScan(waiting, roomed, active int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Scans++
	s.snap.WaitingRoom = waiting
	s.snap.Roomed = roomed
	s.snap.ActiveEvents = active
	s.snap.LastScanAt = time.Now()
}

func (s *SessionStats) RecordResult(r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch r.Outcome {
	case OutcomeConverted:
		s.snap.Converted++
	case OutcomeFailed:
		s.snap.Failed++
	}
}

func (s *SessionStats) RecordDischarge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Discharges++
}

// Snapshot returns a copy safe to serialize.
func (s *SessionStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}
