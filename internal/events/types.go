package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Direction says which way an event flows: inbound extractions we send to the
// assessment service, outbound results it sends back.
type Direction string

const (
	Inbound  Direction = "I"
	Outbound Direction = "O"
)

// Status is the lifecycle position of an event.
//
// Inbound events move pending -> converted -> sent, and end at expired when
// the patient is discharged. Expired is terminal: no further update touches
// the row. Outbound events move received -> processing -> completed. Either
// direction lands on failed once the error budget is exhausted.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConverted Status = "converted"
	StatusSent      Status = "sent"
	StatusExpired   Status = "expired"

	StatusReceived   Status = "received"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"

	StatusFailed Status = "failed"
)

// KindPatientExtraction tags inbound demographic extractions.
const KindPatientExtraction = "patient_extraction"

// KindAssessmentResult tags outbound assessment results.
const KindAssessmentResult = "assessment_result"

// Event is the durable record of one extraction/conversion/expiry lifecycle
// for a single patient instance.
type Event struct {
	ID               uuid.UUID       `json:"id"`
	Direction        Direction       `json:"direction"`
	Kind             string          `json:"kind"`
	PatientName      string          `json:"patient_name"`
	Status           Status          `json:"status"`
	RawData          json.RawMessage `json:"raw_data,omitempty"`
	ConvertedPayload json.RawMessage `json:"converted_payload,omitempty"`
	ResponseData     json.RawMessage `json:"response_data,omitempty"`
	ErrorCount       int             `json:"error_count"`
	LastError        string          `json:"last_error,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	ConvertedAt      *time.Time      `json:"converted_at,omitempty"`
	SentAt           *time.Time      `json:"sent_at,omitempty"`
	ExpiredAt        *time.Time      `json:"expired_at,omitempty"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Active reports whether the event still tracks a present patient.
func (e *Event) Active() bool {
	return e.Direction == Inbound && e.Status != StatusExpired && e.Status != StatusFailed
}
