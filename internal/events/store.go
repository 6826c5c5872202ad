package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrEventExpired is returned for any write against an expired event.
var ErrEventExpired = errors.New("events: event is expired")

// ErrNotFound is returned when no event matches the lookup.
var ErrNotFound = errors.New("events: not found")

// ErrNotClaimed is returned when an outbound event could not be claimed, for
// example because it already completed.
var ErrNotClaimed = errors.New("events: outbound event not claimable")

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists patient lifecycle events in Postgres.
type Store struct {
	pool querier
}

func NewStore(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("events: pgx pool required")
	}
	return &Store{pool: pool}
}

func newStoreWithQuerier(q querier) *Store {
	if q == nil {
		panic("events: querier required")
	}
	return &Store{pool: q}
}

const eventColumns = `
	id, direction, kind, patient_name, status,
	raw_data, converted_payload, response_data,
	error_count, COALESCE(last_error, ''),
	created_at, converted_at, sent_at, expired_at, updated_at`

// CreateEvent records a new inbound extraction in status pending and returns
// its id. rawData is the immutable extraction snapshot.
func (s *Store) CreateEvent(ctx context.Context, patientName, kind string, rawData any) (uuid.UUID, error) {
	raw, err := json.Marshal(rawData)
	if err != nil {
		return uuid.Nil, fmt.Errorf("events: marshal raw data: %w", err)
	}
	id := uuid.New()
	query := `
		INSERT INTO events (id, direction, kind, patient_name, status, raw_data)
		VALUES ($1, 'I', $2, $3, 'pending', $4)
	`
	if _, err := s.pool.Exec(ctx, query, id, kind, patientName, raw); err != nil {
		return uuid.Nil, fmt.Errorf("events: create event: %w", err)
	}
	return id, nil
}

// UpdateEventConverted stores the normalized payload and moves the event to
// converted. Expired events are never touched.
func (s *Store) UpdateEventConverted(ctx context.Context, id uuid.UUID, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("events: marshal payload: %w", err)
	}
	query := `
		UPDATE events
		SET status = 'converted', converted_payload = $2, converted_at = now(), updated_at = now()
		WHERE id = $1 AND status <> 'expired'
	`
	return s.guardedExec(ctx, id, query, id, data)
}

// MarkSent records the assessment service response and moves the event to sent.
func (s *Store) MarkSent(ctx context.Context, id uuid.UUID, response any) error {
	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("events: marshal response: %w", err)
	}
	query := `
		UPDATE events
		SET status = 'sent', response_data = $2, sent_at = now(), updated_at = now()
		WHERE id = $1 AND status <> 'expired'
	`
	return s.guardedExec(ctx, id, query, id, data)
}

// ExpireEvent marks an inbound event expired. Expiry is one-way; a second
// call is a no-op because the guard no longer matches.
func (s *Store) ExpireEvent(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE events
		SET status = 'expired', expired_at = now(), updated_at = now()
		WHERE id = $1 AND status <> 'expired'
	`
	if _, err := s.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("events: expire event: %w", err)
	}
	return nil
}

// RecordError appends an error record and bumps the event's error count.
func (s *Store) RecordError(ctx context.Context, id uuid.UUID, message string) error {
	insert := `INSERT INTO event_errors (event_id, error) VALUES ($1, $2)`
	if _, err := s.pool.Exec(ctx, insert, id, message); err != nil {
		return fmt.Errorf("events: insert error record: %w", err)
	}
	update := `
		UPDATE events
		SET error_count = error_count + 1, last_error = $2, updated_at = now()
		WHERE id = $1 AND status <> 'expired'
	`
	return s.guardedExec(ctx, id, update, id, message)
}

// GetEvent fetches one event by id.
func (s *Store) GetEvent(ctx context.Context, id uuid.UUID) (*Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return s.scanOne(s.pool.QueryRow(ctx, query, id))
}

// ActiveByPatient returns the current non-expired inbound event for a patient
// name, or ErrNotFound.
func (s *Store) ActiveByPatient(ctx context.Context, patientName string) (*Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE patient_name = $1 AND direction = 'I' AND status NOT IN ('expired', 'failed')
		ORDER BY created_at DESC
		LIMIT 1
	`
	return s.scanOne(s.pool.QueryRow(ctx, query, patientName))
}

// ListByPatient returns every event recorded for a patient name, newest first.
func (s *Store) ListByPatient(ctx context.Context, patientName string) ([]Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE patient_name = $1
		ORDER BY created_at DESC
	`
	rows, err := s.pool.Query(ctx, query, patientName)
	if err != nil {
		return nil, fmt.Errorf("events: list by patient: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

// CreateOutbound records an assessment result received from the service.
func (s *Store) CreateOutbound(ctx context.Context, patientName, kind string, rawData any) (uuid.UUID, error) {
	raw, err := json.Marshal(rawData)
	if err != nil {
		return uuid.Nil, fmt.Errorf("events: marshal raw data: %w", err)
	}
	id := uuid.New()
	query := `
		INSERT INTO events (id, direction, kind, patient_name, status, raw_data)
		VALUES ($1, 'O', $2, $3, 'received', $4)
	`
	if _, err := s.pool.Exec(ctx, query, id, kind, patientName, raw); err != nil {
		return uuid.Nil, fmt.Errorf("events: create outbound: %w", err)
	}
	return id, nil
}

// ReadyOutbound lists outbound events awaiting processing, oldest first. An
// event stuck in processing since before the stale window, typically left by
// an interrupted run, is offered again.
func (s *Store) ReadyOutbound(ctx context.Context, limit int32) ([]Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE direction = 'O'
		  AND (status = 'received'
		       OR (status = 'processing' AND updated_at < now() - interval '5 minutes'))
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("events: ready outbound: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

// MarkOutboundProcessing claims an outbound event for processing, re-claiming
// events left in processing by an interrupted run. A claim that matches no
// row returns ErrNotClaimed.
func (s *Store) MarkOutboundProcessing(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE events
		SET status = 'processing', updated_at = now()
		WHERE id = $1 AND status IN ('received', 'processing')
	`
	ct, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("events: claim outbound: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotClaimed
	}
	return nil
}

// CompleteOutbound stores the processed summary and response and finishes the
// outbound event.
func (s *Store) CompleteOutbound(ctx context.Context, id uuid.UUID, summary, response any) error {
	converted, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("events: marshal summary: %w", err)
	}
	resp, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("events: marshal response: %w", err)
	}
	query := `
		UPDATE events
		SET status = 'completed', converted_payload = $2, converted_at = now(),
		    response_data = $3, sent_at = now(), updated_at = now()
		WHERE id = $1 AND status <> 'expired'
	`
	return s.guardedExec(ctx, id, query, id, converted, resp)
}

// IncrementError bumps the error count and, once maxErrors is reached, marks
// the event failed. Reports whether the event was failed by this call.
func (s *Store) IncrementError(ctx context.Context, id uuid.UUID, message string, maxErrors int) (bool, error) {
	if err := s.RecordError(ctx, id, message); err != nil {
		return false, err
	}
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT error_count FROM events WHERE id = $1`, id).Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("events: read error count: %w", err)
	}
	if count < maxErrors {
		return false, nil
	}
	query := `
		UPDATE events
		SET status = 'failed', updated_at = now()
		WHERE id = $1 AND status <> 'expired'
	`
	if err := s.guardedExec(ctx, id, query, id); err != nil {
		return false, err
	}
	return true, nil
}

// guardedExec runs an update whose WHERE clause excludes expired rows and
// translates "no rows touched" into ErrEventExpired / ErrNotFound.
func (s *Store) guardedExec(ctx context.Context, id uuid.UUID, query string, args ...any) error {
	ct, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("events: update event: %w", err)
	}
	if ct.RowsAffected() > 0 {
		return nil
	}
	var status Status
	err = s.pool.QueryRow(ctx, `SELECT status FROM events WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("events: check event status: %w", err)
	}
	if status == StatusExpired {
		return ErrEventExpired
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*Event, error) {
	var e Event
	var raw, converted, response []byte
	err := row.Scan(
		&e.ID, &e.Direction, &e.Kind, &e.PatientName, &e.Status,
		&raw, &converted, &response,
		&e.ErrorCount, &e.LastError,
		&e.CreatedAt, &e.ConvertedAt, &e.SentAt, &e.ExpiredAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.RawData = append([]byte(nil), raw...)
	e.ConvertedPayload = append([]byte(nil), converted...)
	e.ResponseData = append([]byte(nil), response...)
	return &e, nil
}

func (s *Store) scanOne(row pgx.Row) (*Event, error) {
	e, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("events: scan event: %w", err)
	}
	return e, nil
}

func scanAll(rows pgx.Rows) ([]Event, error) {
	var out []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("events: scan event: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}
