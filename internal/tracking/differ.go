package tracking

import "sort"

// CycleDelta classifies patient transitions between two consecutive cycles.
type CycleDelta struct {
	// Discharged patients were in the previous Roomed snapshot but are gone now.
	Discharged []string
	// RoomedTransitions left the Waiting Room since the previous cycle,
	// inferred as moved to a room.
	RoomedTransitions []string
	// MissedExtractions is the subset of RoomedTransitions that were qualified
	// and never processed, so the ordinary waiting-room path can no longer
	// reach them. They need the roomed-section extraction path.
	MissedExtractions []string
}

// Differ computes set-difference transitions between cycle snapshots. It owns
// no cross-cycle state; callers hold the previous snapshot and pass it in.
type Differ struct{}

// Diff compares the previous and current cycle. On the first cycle (nil
// previous maps) there is no baseline, so no transitions are reported.
// processed must contain every name already extracted this session.
func (Differ) Diff(previous, current CycleSnapshot, processed map[string]bool) CycleDelta {
	var delta CycleDelta

	if previous.Roomed != nil {
		for name := range previous.Roomed {
			if _, still := current.Roomed[name]; !still {
				delta.Discharged = append(delta.Discharged, name)
			}
		}
	}

	if previous.WaitingRoom != nil {
		for name, obs := range previous.WaitingRoom {
			if _, still := current.WaitingRoom[name]; still {
				continue
			}
			delta.RoomedTransitions = append(delta.RoomedTransitions, name)
			if !processed[name] && Qualify(obs).Qualified {
				delta.MissedExtractions = append(delta.MissedExtractions, name)
			}
		}
	}

	sort.Strings(delta.Discharged)
	sort.Strings(delta.RoomedTransitions)
	sort.Strings(delta.MissedExtractions)
	return delta
}
