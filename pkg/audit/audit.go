// Package audit appends records of privileged mutations. Recording is
// best-effort: a failed write is logged and never reaches the caller.
package audit

import (
	"context"
	"time"

	"github.com/boxwatch/boxwatch-api/pkg/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Actions
const (
	BoxProvisioned  = "box_provisioned"
	BoxDeactivated  = "box_deactivated"
	ReportSubmitted = "report_submitted"
	ReportCleared   = "report_cleared"
	SuggestionsSync = "suggestions_synced"
	CacheRefreshed  = "locations_cache_refreshed"
	PasscodeRotated = "passcode_rotated"
	VolunteerGrant  = "volunteer_granted"
	VolunteerRevoke = "volunteer_revoked"
)

// SystemActor attributes scheduled jobs and operator tools
const SystemActor = "system"

// Appender persists audit entries
type Appender interface {
	AppendAudit(ctx context.Context, e *models.AuditEntry) error
}

// Recorder writes audit entries to the store and to the audit log stream
type Recorder struct {
	Store Appender
	Log   logrus.FieldLogger
	Now   func() time.Time
}

// NewRecorder returns a recorder over the given store
func NewRecorder(s Appender, log logrus.FieldLogger) *Recorder {
	return &Recorder{Store: s, Log: log, Now: time.Now}
}

// Record appends an entry. It never fails.
func (r *Recorder) Record(ctx context.Context, action, actorID, actorEmail string, details map[string]any) {
	if r == nil {
		return
	}
	e := &models.AuditEntry{
		ID:         uuid.NewString(),
		Action:     action,
		ActorID:    actorID,
		ActorEmail: actorEmail,
		Timestamp:  r.Now(),
		Details:    details,
	}

	fields := logrus.Fields{
		"audit":       true,
		"action":      action,
		"actor_id":    actorID,
		"actor_email": actorEmail,
		"details":     details,
	}
	if err := r.Store.AppendAudit(ctx, e); err != nil {
		r.Log.WithFields(fields).WithError(err).Error("audit write failed")
		return
	}
	r.Log.WithFields(fields).Info("audit")
}
