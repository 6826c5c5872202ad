// Package monitor runs the tracking board polling loop: diffing cycles,
// expiring discharged patients, and driving demographic extraction.
package monitor

import (
	"github.com/google/uuid"

	"github.com/brightmind-health/chartwatch/internal/tracking"
)

// ActiveRecord links a tracked patient name to its current event and artifact.
type ActiveRecord struct {
	EventID      uuid.UUID
	ArtifactPath string
}

// Session is the mutable per-run tracking state. It is owned by the monitor
// loop and handed explicitly to the orchestrator and expiry controller; no
// component keeps hidden cross-cycle state of its own.
type Session struct {
	// Processed holds every name extracted this session, successful or not.
	Processed map[string]bool
	// Active maps a name to its live event/artifact pair. At most one entry
	// per name; expiry removes it so a re-arrival starts fresh.
	Active map[string]ActiveRecord
	// Previous is the last cycle's snapshot, the diff baseline.
	Previous tracking.CycleSnapshot
}

func NewSession() *Session {
	return &Session{
		Processed: make(map[string]bool),
		Active:    make(map[string]ActiveRecord),
	}
}
