package tracking

import (
	"reflect"
	"testing"
)

func snap(rows ...Observation) Snapshot {
	return SnapshotFromRows(rows)
}

func TestDiffFirstCycleHasNoTransitions(t *testing.T) {
	current := CycleSnapshot{
		WaitingRoom: snap(Observation{Name: "Doe, Jane", Status: "LOGGED"}),
		Roomed:      snap(Observation{Name: "Roe, Rick", Room: "2"}),
	}
	delta := Differ{}.Diff(CycleSnapshot{}, current, nil)
	if len(delta.Discharged) != 0 || len(delta.RoomedTransitions) != 0 || len(delta.MissedExtractions) != 0 {
		t.Fatalf("expected empty delta on first cycle, got %+v", delta)
	}
}

func TestDiffDetectsDischarge(t *testing.T) {
	previous := CycleSnapshot{
		Roomed: snap(Observation{Name: "Doe, Jane", Room: "4", Age: 14}),
	}
	current := CycleSnapshot{Roomed: Snapshot{}}
	delta := Differ{}.Diff(previous, current, map[string]bool{})
	if !reflect.DeepEqual(delta.Discharged, []string{"Doe, Jane"}) {
		t.Fatalf("expected Doe, Jane discharged, got %v", delta.Discharged)
	}
}

func TestDiffStillRoomedIsNotDischarged(t *testing.T) {
	previous := CycleSnapshot{Roomed: snap(Observation{Name: "Doe, Jane", Room: "4"})}
	current := CycleSnapshot{Roomed: snap(Observation{Name: "Doe, Jane", Room: "5"})}
	delta := Differ{}.Diff(previous, current, nil)
	if len(delta.Discharged) != 0 {
		t.Fatalf("room change should not discharge, got %v", delta.Discharged)
	}
}

func TestDiffFlagsQualifiedUnprocessedMove(t *testing.T) {
	previous := CycleSnapshot{
		WaitingRoom: snap(
			Observation{Name: "Smith, Bob", Status: "LOGGED"},
			Observation{Name: "Poe, Pat", Status: "WAITING"},
		),
	}
	current := CycleSnapshot{
		WaitingRoom: Snapshot{},
		Roomed: snap(
			Observation{Name: "Smith, Bob", Room: "1"},
			Observation{Name: "Poe, Pat", Room: "2"},
		),
	}
	delta := Differ{}.Diff(previous, current, map[string]bool{})
	if !reflect.DeepEqual(delta.RoomedTransitions, []string{"Poe, Pat", "Smith, Bob"}) {
		t.Fatalf("unexpected transitions %v", delta.RoomedTransitions)
	}
	// Poe was unqualified, so only Smith needs the out-of-band path.
	if !reflect.DeepEqual(delta.MissedExtractions, []string{"Smith, Bob"}) {
		t.Fatalf("unexpected missed extractions %v", delta.MissedExtractions)
	}
}

func TestDiffProcessedMoveIsNotMissed(t *testing.T) {
	previous := CycleSnapshot{
		WaitingRoom: snap(Observation{Name: "Smith, Bob", Status: "LOGGED"}),
	}
	current := CycleSnapshot{WaitingRoom: Snapshot{}}
	delta := Differ{}.Diff(previous, current, map[string]bool{"Smith, Bob": true})
	if len(delta.MissedExtractions) != 0 {
		t.Fatalf("processed patient should not be flagged, got %v", delta.MissedExtractions)
	}
}

func TestDiffNeverSynthesizesUnknownNames(t *testing.T) {
	previous := CycleSnapshot{WaitingRoom: Snapshot{}, Roomed: Snapshot{}}
	current := CycleSnapshot{
		WaitingRoom: snap(Observation{Name: "New, Nancy", Status: "LOGGED"}),
	}
	delta := Differ{}.Diff(previous, current, nil)
	if len(delta.Discharged) != 0 || len(delta.RoomedTransitions) != 0 {
		t.Fatalf("arrivals must not produce transitions, got %+v", delta)
	}
}
