package monitor

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/brightmind-health/chartwatch/pkg/logging"
)

type expiryStore interface {
	ExpireEvent(ctx context.Context, id uuid.UUID) error
}

type expiryArtifacts interface {
	MarkExpired(path string, at time.Time) error
}

// ExpiryController applies discharge expiry: the artifact is rewritten with
// expired=true, the event transitions to expired, and the name leaves the
// session's tracking maps so a re-arrival starts a fresh lifecycle.
type ExpiryController struct {
	store     expiryStore
	artifacts expiryArtifacts
	logger    *logging.Logger
}

func NewExpiryController(store expiryStore, artifacts expiryArtifacts, logger *logging.Logger) *ExpiryController {
	if logger == nil {
		logger = logging.Default()
	}
	return &ExpiryController{store: store, artifacts: artifacts, logger: logger}
}

// Expire reports whether an active record existed for the name. A name with
// no active record is a no-op; so is a second call, since the first removed
// the record.
func (e *ExpiryController) Expire(ctx context.Context, name string, session *Session) bool {
	rec, ok := session.Active[name]
	if !ok {
		e.logger.Debug("discharge with no active record", "patient", name)
		return false
	}

	if err := e.artifacts.MarkExpired(rec.ArtifactPath, time.Now()); err != nil {
		e.logger.Error("artifact expiry failed", "patient", name, "path", rec.ArtifactPath, "error", err)
	}
	if err := e.store.ExpireEvent(ctx, rec.EventID); err != nil {
		e.logger.Error("event expiry failed", "patient", name, "event_id", rec.EventID, "error", err)
	}

	delete(session.Active, name)
	delete(session.Processed, name)
	e.logger.Info("patient expired", "patient", name, "event_id", rec.EventID)
	return true
}
