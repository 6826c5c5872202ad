package emr

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/brightmind-health/chartwatch/internal/tracking"
)

// ReplayFile is the on-disk format for captured board sessions: one entry per
// polling cycle plus the demographics the demographics popup would show.
type ReplayFile struct {
	Cycles       []ReplayCycle                `json:"cycles"`
	Demographics map[string]PatientExtraction `json:"demographics"`
}

// ReplayCycle is one captured refresh of the tracking board.
type ReplayCycle struct {
	Waiting []tracking.Observation `json:"waiting_room"`
	Roomed  []tracking.Observation `json:"roomed"`
}

// ReplaySource replays a captured board session, one cycle per ReadBoard
// call. It doubles as an Extractor backed by the captured demographics. Used
// in development and tests; the production BoardSource is the UI driver,
// which lives outside this repository.
type ReplaySource struct {
	mu   sync.Mutex
	file ReplayFile
	next int
}

// LoadReplay reads a captured session from path.
func LoadReplay(path string) (*ReplaySource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("emr: read replay: %w", err)
	}
	var file ReplayFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("emr: parse replay: %w", err)
	}
	return &ReplaySource{file: file}, nil
}

// NewReplaySource builds a replay source from an in-memory session.
func NewReplaySource(file ReplayFile) *ReplaySource {
	return &ReplaySource{file: file}
}

// ReadBoard returns the next captured cycle. Once the capture is exhausted it
// keeps returning the final cycle, which a live board would also do.
func (r *ReplaySource) ReadBoard(ctx context.Context) ([]tracking.Observation, []tracking.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.file.Cycles) == 0 {
		return nil, nil, nil
	}
	idx := r.next
	if idx >= len(r.file.Cycles) {
		idx = len(r.file.Cycles) - 1
	} else {
		r.next++
	}
	cycle := r.file.Cycles[idx]
	return cycle.Waiting, cycle.Roomed, nil
}

// Extract returns the captured demographics for name.
func (r *ReplaySource) Extract(ctx context.Context, name string) (*PatientExtraction, error) {
	return r.lookup(ctx, name, WaitingRoomDirect)
}

// ExtractRoomed returns captured demographics via the roomed path.
func (r *ReplaySource) ExtractRoomed(ctx context.Context, name string) (*PatientExtraction, error) {
	return r.lookup(ctx, name, MovedToRoomed)
}

func (r *ReplaySource) lookup(ctx context.Context, name string, source ExtractionSource) (*PatientExtraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	captured, ok := r.file.Demographics[name]
	if !ok {
		return nil, fmt.Errorf("emr: no captured demographics for %q", name)
	}
	extraction := captured
	extraction.Source = source
	if extraction.CollectedAt.IsZero() {
		extraction.CollectedAt = time.Now()
	}
	return &extraction, nil
}
