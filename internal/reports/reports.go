// Package reports accepts public box status reports and lets volunteers
// clear them.
package reports

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/boxwatch/boxwatch-api/pkg/apperr"
	"github.com/boxwatch/boxwatch-api/pkg/audit"
	"github.com/boxwatch/boxwatch-api/pkg/auth"
	"github.com/boxwatch/boxwatch-api/pkg/models"
	"github.com/boxwatch/boxwatch-api/pkg/notify"
	"github.com/boxwatch/boxwatch-api/pkg/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// formTypes maps the public form names onto report types
var formTypes = map[string]string{
	"pickup":                   models.ReportPickupAlert,
	"problem":                  models.ReportProblemAlert,
	models.ReportPickupAlert:   models.ReportPickupAlert,
	models.ReportPickupDetails: models.ReportPickupDetails,
	models.ReportProblemAlert:  models.ReportProblemAlert,
	models.ReportProblemReport: models.ReportProblemReport,
}

// Service stores reports and notifies volunteers
type Service struct {
	Store  store.Store
	Gate   *auth.Gate
	Mailer notify.Mailer
	Audit  *audit.Recorder
	Log    logrus.FieldLogger
	Now    func() time.Time
}

// NewService wires a report service
func NewService(s store.Store, gate *auth.Gate, m notify.Mailer, rec *audit.Recorder, log logrus.FieldLogger) *Service {
	return &Service{Store: s, Gate: gate, Mailer: m, Audit: rec, Log: log, Now: time.Now}
}

func optional(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}

// Submit persists a report against req.BoxID and then emails volunteers.
// The box need not exist. The email leg is best-effort and reported in the
// response.
func (s *Service) Submit(ctx context.Context, caller *auth.Caller, req models.ReportRequest) (*models.ReportResponse, error) {
	boxID := strings.TrimSpace(req.BoxID)
	if boxID == "" {
		return nil, apperr.New(apperr.InvalidArgument, "boxId is required.")
	}
	reportType, ok := formTypes[strings.ToLower(strings.TrimSpace(req.FormType))]
	if !ok {
		return nil, apperr.New(apperr.InvalidArgument, "formType must be pickup or problem.")
	}

	r := &models.Report{
		ID:            uuid.NewString(),
		BoxID:         boxID,
		ReportType:    reportType,
		Description:   strings.TrimSpace(req.Description),
		Notes:         strings.TrimSpace(req.Notes),
		ReporterName:  optional(req.ContactName),
		ReporterEmail: optional(req.ContactEmail),
		Status:        models.ReportNew,
		Timestamp:     s.Now(),
	}
	if caller != nil && caller.UID != "" {
		r.ReporterUID = &caller.UID
		if r.ReporterName == nil {
			r.ReporterName = optional(caller.DisplayName())
		}
		if r.ReporterEmail == nil {
			r.ReporterEmail = optional(caller.Email)
		}
	}

	log := s.Log.WithFields(logrus.Fields{"box_id": boxID, "report_type": reportType})

	// Copy the box details so history survives later edits.
	box, err := s.Store.GetBox(ctx, boxID)
	switch {
	case err == nil:
		r.Label, r.Address, r.City, r.State, r.Volunteer = box.Label, box.Address, box.City, box.State, box.Volunteer
	case errors.Is(err, store.ErrNotFound):
		log.Warn("report submitted for unknown box")
	default:
		log.WithError(err).Warn("box lookup failed, storing report without box details")
	}

	if err := s.Store.AddReport(ctx, r); err != nil {
		log.WithError(err).Error("failed to store report")
		return nil, apperr.Internalf(err, "Could not save your report. Please try again.")
	}

	actorID, actorEmail := "", ""
	if r.ReporterUID != nil {
		actorID = *r.ReporterUID
	}
	if r.ReporterEmail != nil {
		actorEmail = *r.ReporterEmail
	}
	s.Audit.Record(ctx, audit.ReportSubmitted, actorID, actorEmail, map[string]any{
		"boxId":      boxID,
		"reportId":   r.ID,
		"reportType": reportType,
	})

	resp := &models.ReportResponse{Success: true, RecordID: r.ID}
	if err := s.notify(ctx, r); err != nil {
		log.WithError(err).Warn("report notification email failed")
		resp.EmailError = "Notification email could not be sent."
	} else {
		resp.EmailSent = true
	}
	return resp, nil
}

func (s *Service) notify(ctx context.Context, r *models.Report) error {
	if s.Mailer == nil {
		return notify.ErrNotConfigured
	}
	msg, err := notify.ReportEmail(r)
	if err != nil {
		return err
	}
	return s.Mailer.Send(ctx, msg)
}

// Clear marks a report as handled. Only authorized volunteers may clear.
func (s *Service) Clear(ctx context.Context, caller *auth.Caller, reportID string) (*models.Report, error) {
	v, err := s.Gate.RequireAuthorized(ctx, caller)
	if err != nil {
		return nil, err
	}
	reportID = strings.TrimSpace(reportID)
	if reportID == "" {
		return nil, apperr.New(apperr.InvalidArgument, "reportId is required.")
	}

	if err := s.Store.ClearReport(ctx, reportID, v.DisplayName); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "Report %s was not found.", reportID)
		}
		s.Log.WithError(err).WithField("report_id", reportID).Error("failed to clear report")
		return nil, apperr.Internalf(err, "Could not clear the report.")
	}

	r, err := s.Store.GetReport(ctx, reportID)
	if err != nil {
		return nil, apperr.Internalf(err, "Could not load the report.")
	}
	s.Audit.Record(ctx, audit.ReportCleared, caller.UID, caller.Email, map[string]any{
		"reportId": reportID,
		"boxId":    r.BoxID,
	})
	return r, nil
}
