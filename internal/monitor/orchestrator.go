package monitor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/brightmind-health/chartwatch/internal/artifact"
	"github.com/brightmind-health/chartwatch/internal/emr"
	"github.com/brightmind-health/chartwatch/internal/events"
	"github.com/brightmind-health/chartwatch/internal/normalize"
	"github.com/brightmind-health/chartwatch/internal/observability/metrics"
	"github.com/brightmind-health/chartwatch/internal/tracking"
	"github.com/brightmind-health/chartwatch/pkg/logging"
)

// Outcome classifies one extraction attempt.
type Outcome string

const (
	OutcomeConverted Outcome = "converted"
	OutcomeFailed    Outcome = "failed"
)

// Result is the explicit per-patient outcome of one orchestrator attempt.
type Result struct {
	PatientName  string
	Outcome      Outcome
	Source       emr.ExtractionSource
	EventID      uuid.UUID
	ArtifactPath string
	Err          error
}

type orchestratorStore interface {
	CreateEvent(ctx context.Context, patientName, kind string, rawData any) (uuid.UUID, error)
	UpdateEventConverted(ctx context.Context, id uuid.UUID, payload any) error
	MarkSent(ctx context.Context, id uuid.UUID, response any) error
	RecordError(ctx context.Context, id uuid.UUID, message string) error
	ExpireEvent(ctx context.Context, id uuid.UUID) error
}

type artifactWriter interface {
	Write(patientName string, at time.Time, payload map[string]any, meta artifact.Metadata) (string, error)
	MarkSent(path string, at time.Time) error
}

type intakeSender interface {
	SubmitIntake(ctx context.Context, patientName string, payload map[string]any) (json.RawMessage, error)
}

// Orchestrator extracts qualified patients one at a time and writes each
// through the event store and artifact store.
type Orchestrator struct {
	store       orchestratorStore
	extractor   emr.Extractor
	artifacts   artifactWriter
	sender      intakeSender
	logger      *logging.Logger
	metrics     *metrics.TrackingMetrics
	timeout     time.Duration
	retryFailed bool
}

func NewOrchestrator(store orchestratorStore, extractor emr.Extractor, artifacts artifactWriter, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Orchestrator{
		store:     store,
		extractor: extractor,
		artifacts: artifacts,
		logger:    logger,
		timeout:   45 * time.Second,
	}
}

func (o *Orchestrator) WithTimeout(d time.Duration) *Orchestrator {
	if d > 0 {
		o.timeout = d
	}
	return o
}

// WithRetryFailed makes failed extractions eligible again on a later cycle
// instead of counting as processed.
func (o *Orchestrator) WithRetryFailed(retry bool) *Orchestrator {
	o.retryFailed = retry
	return o
}

func (o *Orchestrator) WithMetrics(m *metrics.TrackingMetrics) *Orchestrator {
	o.metrics = m
	return o
}

// WithSender forwards each converted payload to the assessment service and
// marks the event sent on success. Send failures leave the event converted.
func (o *Orchestrator) WithSender(s intakeSender) *Orchestrator {
	o.sender = s
	return o
}

// ProcessCycle runs extraction for every qualified, not-yet-processed row in
// UI row order. Extraction is strictly sequential. A single patient's failure
// is recorded in its Result and the cycle moves on.
func (o *Orchestrator) ProcessCycle(ctx context.Context, rows []tracking.Observation, session *Session) []Result {
	var results []Result
	for _, row := range rows {
		if ctx.Err() != nil {
			return results
		}
		if session.Processed[row.Name] {
			continue
		}
		q := tracking.Qualify(row)
		if !q.Qualified {
			o.logger.Debug("patient not qualified", "patient", row.Name, "reason", q.Reason)
			continue
		}
		results = append(results, o.extractOne(ctx, row.Name, emr.WaitingRoomDirect, session))
	}
	return results
}

// ProcessMissed extracts patients that left the Waiting Room before their turn
// came, through the roomed-section path.
func (o *Orchestrator) ProcessMissed(ctx context.Context, names []string, session *Session) []Result {
	var results []Result
	for _, name := range names {
		if ctx.Err() != nil {
			return results
		}
		if session.Processed[name] {
			continue
		}
		results = append(results, o.extractOne(ctx, name, emr.MovedToRoomed, session))
	}
	return results
}

func (o *Orchestrator) extractOne(ctx context.Context, name string, source emr.ExtractionSource, session *Session) Result {
	extractCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	var extraction *emr.PatientExtraction
	var err error
	if source == emr.MovedToRoomed {
		extraction, err = o.extractor.ExtractRoomed(extractCtx, name)
	} else {
		extraction, err = o.extractor.Extract(extractCtx, name)
	}
	o.metrics.ObserveExtractionDuration(time.Since(start).Seconds())

	// Any attempt, failed or not, marks the patient processed. A stuck UI
	// must not be hammered every cycle. The retry policy relaxes this for
	// failures only.
	session.Processed[name] = true

	if err != nil || extraction == nil {
		if o.retryFailed {
			delete(session.Processed, name)
		}
		o.logger.Error("extraction failed", "patient", name, "source", string(source), "error", err)
		o.metrics.ObserveExtraction(string(OutcomeFailed), string(source))
		return Result{PatientName: name, Outcome: OutcomeFailed, Source: source, Err: err}
	}

	return o.convert(ctx, name, extraction, session)
}

func (o *Orchestrator) convert(ctx context.Context, name string, extraction *emr.PatientExtraction, session *Session) Result {
	source := extraction.Source
	fail := func(id uuid.UUID, err error) Result {
		if o.retryFailed {
			delete(session.Processed, name)
			// The retry will create a fresh event; a pending one left behind
			// would give the patient two live events at once.
			if id != uuid.Nil {
				if expErr := o.store.ExpireEvent(ctx, id); expErr != nil {
					o.logger.Error("stale event expiry failed", "event_id", id, "error", expErr)
				}
			}
		}
		o.logger.Error("conversion failed", "patient", name, "error", err)
		o.metrics.ObserveExtraction(string(OutcomeFailed), string(source))
		return Result{PatientName: name, Outcome: OutcomeFailed, Source: source, EventID: id, Err: err}
	}

	id, err := o.store.CreateEvent(ctx, name, events.KindPatientExtraction, extraction)
	if err != nil {
		return fail(uuid.Nil, err)
	}

	payload := buildPayload(extraction)
	if err := o.store.UpdateEventConverted(ctx, id, payload); err != nil {
		if recErr := o.store.RecordError(ctx, id, err.Error()); recErr != nil {
			o.logger.Error("error record write failed", "event_id", id, "error", recErr)
		}
		return fail(id, err)
	}

	raw, _ := json.Marshal(extraction)
	path, err := o.artifacts.Write(name, extraction.CollectedAt, payload, artifact.Metadata{
		GeneratedAt:      time.Now(),
		Source:           string(source),
		PatientNameFull:  name,
		ExtractionStatus: string(events.StatusConverted),
		RawExtractedData: raw,
	})
	if err != nil {
		if recErr := o.store.RecordError(ctx, id, err.Error()); recErr != nil {
			o.logger.Error("error record write failed", "event_id", id, "error", recErr)
		}
		return fail(id, err)
	}

	session.Active[name] = ActiveRecord{EventID: id, ArtifactPath: path}
	o.logger.Info("patient converted", "patient", name, "event_id", id, "source", string(source))
	o.metrics.ObserveExtraction(string(OutcomeConverted), string(source))

	if o.sender != nil {
		o.submit(ctx, id, name, path, payload)
	}
	return Result{PatientName: name, Outcome: OutcomeConverted, Source: source, EventID: id, ArtifactPath: path}
}

func (o *Orchestrator) submit(ctx context.Context, id uuid.UUID, name, path string, payload map[string]any) {
	resp, err := o.sender.SubmitIntake(ctx, name, payload)
	if err != nil {
		o.logger.Warn("intake submit failed", "patient", name, "event_id", id, "error", err)
		if recErr := o.store.RecordError(ctx, id, err.Error()); recErr != nil {
			o.logger.Error("error record write failed", "event_id", id, "error", recErr)
		}
		return
	}
	if err := o.store.MarkSent(ctx, id, resp); err != nil {
		o.logger.Error("mark sent failed", "event_id", id, "error", err)
		return
	}
	if err := o.artifacts.MarkSent(path, time.Now()); err != nil {
		o.logger.Warn("artifact sent stamp failed", "path", path, "error", err)
	}
	o.logger.Info("intake sent", "patient", name, "event_id", id)
}

// buildPayload normalizes the raw extraction into the assessment intake shape.
func buildPayload(p *emr.PatientExtraction) map[string]any {
	return map[string]any{
		"correlation_id":     normalize.CorrelationID(p.MRN, p.CollectedAt),
		"first_name":         p.FirstName,
		"last_name":          p.LastName,
		"dob":                normalize.DOB(p.DOB),
		"mrn":                p.MRN,
		"gender":             normalize.Gender(p.Gender),
		"cell_phone":         normalize.Phone(p.CellPhone),
		"email":              p.Email,
		"race":               normalize.Race(p.Race),
		"ethnicity":          normalize.Ethnicity(p.Ethnicity),
		"preferred_language": normalize.Language(p.Language),
		"insurance":          p.Insurance,
		"pharmacy":           p.Pharmacy,
	}
}
