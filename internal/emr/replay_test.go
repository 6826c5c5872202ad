package emr

import (
	"context"
	"testing"

	"github.com/brightmind-health/chartwatch/internal/tracking"
)

func TestReplaySourceAdvancesAndSticks(t *testing.T) {
	src := NewReplaySource(ReplayFile{
		Cycles: []ReplayCycle{
			{Waiting: []tracking.Observation{{Name: "Doe, Jane", Status: "LOGGED"}}},
			{Roomed: []tracking.Observation{{Name: "Doe, Jane", Room: "4"}}},
		},
	})

	waiting, _, err := src.ReadBoard(context.Background())
	if err != nil || len(waiting) != 1 {
		t.Fatalf("cycle 1: waiting=%v err=%v", waiting, err)
	}
	_, roomed, err := src.ReadBoard(context.Background())
	if err != nil || len(roomed) != 1 {
		t.Fatalf("cycle 2: roomed=%v err=%v", roomed, err)
	}
	// Exhausted captures repeat the final cycle.
	_, roomed, err = src.ReadBoard(context.Background())
	if err != nil || len(roomed) != 1 {
		t.Fatalf("cycle 3: roomed=%v err=%v", roomed, err)
	}
}

func TestReplayExtractTagsSource(t *testing.T) {
	src := NewReplaySource(ReplayFile{
		Demographics: map[string]PatientExtraction{
			"Doe, Jane": {FirstName: "Jane", LastName: "Doe", MRN: "MRN1"},
		},
	})
	got, err := src.Extract(context.Background(), "Doe, Jane")
	if err != nil {
		t.Fatal(err)
	}
	if got.Source != WaitingRoomDirect {
		t.Fatalf("expected waiting room source, got %s", got.Source)
	}
	if got.CollectedAt.IsZero() {
		t.Fatal("expected collection timestamp")
	}
	roomed, err := src.ExtractRoomed(context.Background(), "Doe, Jane")
	if err != nil {
		t.Fatal(err)
	}
	if roomed.Source != MovedToRoomed {
		t.Fatalf("expected roomed source, got %s", roomed.Source)
	}
	if _, err := src.Extract(context.Background(), "Nobody"); err == nil {
		t.Fatal("expected error for unknown patient")
	}
}

func TestFullName(t *testing.T) {
	p := &PatientExtraction{FirstName: "Jane", LastName: "Doe"}
	if p.FullName() != "Doe, Jane" {
		t.Fatalf("FullName = %q", p.FullName())
	}
	if (&PatientExtraction{FirstName: "Jane"}).FullName() != "Jane" {
		t.Fatal("first-only name")
	}
	if (&PatientExtraction{LastName: "Doe"}).FullName() != "Doe" {
		t.Fatal("last-only name")
	}
}
