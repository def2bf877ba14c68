// Package provision registers new donation boxes.
package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/boxwatch/boxwatch-api/pkg/apperr"
	"github.com/boxwatch/boxwatch-api/pkg/audit"
	"github.com/boxwatch/boxwatch-api/pkg/auth"
	"github.com/boxwatch/boxwatch-api/pkg/geocode"
	"github.com/boxwatch/boxwatch-api/pkg/models"
	"github.com/boxwatch/boxwatch-api/pkg/store"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var validate = validator.New()

// Service creates a box together with its registration report
type Service struct {
	Store    store.Store
	Gate     *auth.Gate
	Geocoder geocode.Geocoder
	Audit    *audit.Recorder
	Log      logrus.FieldLogger
	Now      func() time.Time
}

// NewService wires a provisioning service
func NewService(s store.Store, gate *auth.Gate, g geocode.Geocoder, rec *audit.Recorder, log logrus.FieldLogger) *Service {
	return &Service{Store: s, Gate: gate, Geocoder: g, Audit: rec, Log: log, Now: time.Now}
}

// Provision registers req.BoxID. Preconditions are checked before any write:
// the caller must be signed in, then authorized or holding the passcode, and
// only then is the request itself validated.
func (s *Service) Provision(ctx context.Context, caller *auth.Caller, req models.ProvisionRequest) (*models.ProvisionResponse, error) {
	decision, err := s.Gate.Authorize(ctx, caller, req.Passcode)
	if err != nil {
		return nil, err
	}

	boxID := strings.TrimSpace(req.BoxID)
	address := strings.TrimSpace(req.Address)
	if boxID == "" {
		return nil, apperr.New(apperr.InvalidArgument, "boxId is required.")
	}
	if address == "" {
		return nil, apperr.New(apperr.InvalidArgument, "address is required.")
	}
	if req.Boxes < 0 {
		return nil, apperr.New(apperr.InvalidArgument, "boxes must be at least 0.")
	}
	contactEmail := strings.TrimSpace(req.ContactEmail)
	if contactEmail != "" && validate.Var(contactEmail, "email") != nil {
		return nil, apperr.New(apperr.InvalidArgument, "contactEmail must be a valid email address.")
	}

	city := strings.TrimSpace(req.City)
	state := strings.TrimSpace(req.State)
	log := s.Log.WithFields(logrus.Fields{"box_id": boxID, "uid": caller.UID})

	lat, lng := geocode.Lookup(ctx, s.Geocoder, log, geocode.FullAddress(address, city, state))

	volunteerName := caller.DisplayName()
	if decision.Volunteer != nil && decision.Volunteer.DisplayName != "" {
		volunteerName = decision.Volunteer.DisplayName
	}
	count := req.Boxes
	if count <= 0 {
		count = 1
	}

	now := s.Now()
	box := &models.Box{
		BoxID:        boxID,
		Label:        strings.TrimSpace(req.Label),
		Address:      address,
		City:         city,
		State:        state,
		Boxes:        count,
		Lat:          lat,
		Lng:          lng,
		Volunteer:    volunteerName,
		VolunteerUID: caller.UID,
		ContactName:  strings.TrimSpace(req.ContactName),
		ContactEmail: contactEmail,
		ContactPhone: strings.TrimSpace(req.ContactPhone),
		Status:       models.BoxActive,
		CreatedAt:    now,
	}
	nb := store.NewBox{
		Box:    box,
		Report: RegistrationReport(box, caller.UID, now),
	}
	if decision.NeedsRecord {
		nb.Volunteer = s.Gate.NewVolunteer(caller)
	}

	if err := s.Store.CreateBox(ctx, nb); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, apperr.New(apperr.AlreadyExists, "Box %s is already set up.", boxID)
		}
		log.WithError(err).Error("box provisioning commit failed")
		return nil, apperr.Internalf(err, "Could not register the box. Please try again.")
	}

	log.WithField("authorized_now", decision.NeedsRecord).Info("box provisioned")
	s.Audit.Record(ctx, audit.BoxProvisioned, caller.UID, caller.Email, map[string]any{
		"boxId":        boxID,
		"address":      address,
		"geocoded":     lat != nil,
		"newVolunteer": decision.NeedsRecord,
	})

	return &models.ProvisionResponse{
		Success: true,
		BoxID:   boxID,
		Message: fmt.Sprintf("Box %s registered successfully.", boxID),
	}, nil
}

// RegistrationReport is the initial history entry written with every box
func RegistrationReport(box *models.Box, uid string, at time.Time) *models.Report {
	reporter := uid
	name := box.Volunteer
	return &models.Report{
		ID:           uuid.NewString(),
		BoxID:        box.BoxID,
		ReportType:   models.ReportBoxRegistered,
		Description:  "Box registered by " + box.Volunteer,
		ReporterUID:  &reporter,
		ReporterName: &name,
		Status:       models.ReportCleared,
		Timestamp:    at,
		Label:        box.Label,
		Address:      box.Address,
		City:         box.City,
		State:        box.State,
		Volunteer:    box.Volunteer,
	}
}
