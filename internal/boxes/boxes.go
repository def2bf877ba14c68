// Package boxes serves box history and volunteer box management.
package boxes

import (
	"context"
	"errors"
	"strings"

	"github.com/boxwatch/boxwatch-api/pkg/apperr"
	"github.com/boxwatch/boxwatch-api/pkg/audit"
	"github.com/boxwatch/boxwatch-api/pkg/auth"
	"github.com/boxwatch/boxwatch-api/pkg/models"
	"github.com/boxwatch/boxwatch-api/pkg/store"
	"github.com/sirupsen/logrus"
)

// Service reads box history and removes boxes
type Service struct {
	Store store.Store
	Gate  *auth.Gate
	Audit *audit.Recorder
	Log   logrus.FieldLogger
}

// NewService wires a box service
func NewService(s store.Store, gate *auth.Gate, rec *audit.Recorder, log logrus.FieldLogger) *Service {
	return &Service{Store: s, Gate: gate, Audit: rec, Log: log}
}

func (s *Service) load(ctx context.Context, boxID string) (*models.Box, error) {
	boxID = strings.TrimSpace(boxID)
	if boxID == "" {
		return nil, apperr.New(apperr.InvalidArgument, "boxId is required.")
	}
	box, err := s.Store.GetBox(ctx, boxID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "Box %s was not found.", boxID)
	}
	if err != nil {
		s.Log.WithError(err).WithField("box_id", boxID).Error("failed to load box")
		return nil, apperr.Internalf(err, "Could not load the box.")
	}
	return box, nil
}

// History returns a box with its reports, oldest first. Anyone holding the
// id may read it.
func (s *Service) History(ctx context.Context, boxID string) (*models.BoxHistory, error) {
	box, err := s.load(ctx, boxID)
	if err != nil {
		return nil, err
	}
	reports, err := s.Store.ListReports(ctx, box.BoxID)
	if err != nil {
		s.Log.WithError(err).WithField("box_id", box.BoxID).Error("failed to load reports")
		return nil, apperr.Internalf(err, "Could not load the box history.")
	}
	return &models.BoxHistory{Box: *box, Reports: reports}, nil
}

// Deactivate soft-deletes a box. Only its owner or a root volunteer may.
func (s *Service) Deactivate(ctx context.Context, caller *auth.Caller, boxID string) (*models.Box, error) {
	v, err := s.Gate.RequireAuthorized(ctx, caller)
	if err != nil {
		return nil, err
	}
	box, err := s.load(ctx, boxID)
	if err != nil {
		return nil, err
	}
	if box.VolunteerUID != caller.UID && v.Role != models.RoleRoot {
		return nil, apperr.New(apperr.PermissionDenied, "Only the volunteer who set up box %s can remove it.", box.BoxID)
	}
	if box.Status == models.BoxDeleted {
		return box, nil
	}

	if err := s.Store.SetBoxStatus(ctx, box.BoxID, models.BoxDeleted); err != nil {
		s.Log.WithError(err).WithField("box_id", box.BoxID).Error("failed to deactivate box")
		return nil, apperr.Internalf(err, "Could not remove the box.")
	}
	box.Status = models.BoxDeleted

	s.Log.WithFields(logrus.Fields{"box_id": box.BoxID, "uid": caller.UID}).Info("box deactivated")
	s.Audit.Record(ctx, audit.BoxDeactivated, caller.UID, caller.Email, map[string]any{
		"boxId": box.BoxID,
		"owner": box.VolunteerUID,
	})
	return box, nil
}
