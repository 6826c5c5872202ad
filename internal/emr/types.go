package emr

import (
	"context"
	"time"

	"github.com/brightmind-health/chartwatch/internal/tracking"
)

// BoardSource reads the tracking board. Implementations drive the EMR's UI
// (or replay captured snapshots); rows that fail to resolve a field report it
// as the zero value rather than failing the read.
type BoardSource interface {
	// ReadBoard returns the two ordered row lists for the current refresh:
	// Waiting Room first, then Roomed Patients.
	ReadBoard(ctx context.Context) (waiting, roomed []tracking.Observation, err error)
}

// ExtractionSource says which UI path collected the demographics.
type ExtractionSource string

const (
	// WaitingRoomDirect is the ordinary path through the waiting-room row.
	WaitingRoomDirect ExtractionSource = "waiting_room_direct"
	// MovedToRoomed covers patients who left the Waiting Room before their
	// extraction ran and had to be collected from the roomed section.
	MovedToRoomed ExtractionSource = "moved_to_roomed"
)

// Extractor opens a patient's demographics view and collects identity fields.
// Implementations must give up within a bounded timeout instead of blocking.
type Extractor interface {
	// Extract collects demographics for the named waiting-room patient.
	Extract(ctx context.Context, name string) (*PatientExtraction, error)
	// ExtractRoomed collects demographics through the roomed-section path for
	// patients that moved before their waiting-room extraction ran.
	ExtractRoomed(ctx context.Context, name string) (*PatientExtraction, error)
}

// PatientExtraction is the raw demographics snapshot captured once per
// patient. Raw fields hold exactly what the screen showed; the orchestrator
// derives the normalized forms.
type PatientExtraction struct {
	FirstName   string           `json:"first_name"`
	LastName    string           `json:"last_name"`
	DOB         string           `json:"dob"`
	MRN         string           `json:"mrn"`
	Gender      string           `json:"gender"`
	CellPhone   string           `json:"cell_phone"`
	Email       string           `json:"email"`
	Race        string           `json:"race"`
	Ethnicity   string           `json:"ethnicity"`
	Language    string           `json:"preferred_language"`
	Insurance   string           `json:"insurance"`
	Pharmacy    string           `json:"pharmacy"`
	Source      ExtractionSource `json:"source"`
	CollectedAt time.Time        `json:"collected_at"`
}

// FullName returns the board row key form, "LAST, FIRST".
func (p *PatientExtraction) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	if p.FirstName == "" {
		return p.LastName
	}
	return p.LastName + ", " + p.FirstName
}
