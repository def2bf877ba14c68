package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/boxwatch/boxwatch-api/pkg/apperr"
	"github.com/boxwatch/boxwatch-api/pkg/models"
	"github.com/boxwatch/boxwatch-api/pkg/store"
	"github.com/sirupsen/logrus"
)

// Messages shown to end users
const (
	MsgSignInRequired   = "You must be signed in to do that."
	MsgPasscodeRequired = "A volunteer passcode is required."
	MsgWrongPasscode    = "Incorrect passcode. Please check with your coordinator."
	MsgNotAuthorized    = "Only authorized volunteers can do that."
	MsgRevoked          = "Your volunteer access was revoked."
)

// VolunteerStore is the subset of store.Store the gate reads and writes
type VolunteerStore interface {
	GetVolunteer(ctx context.Context, uid string) (*models.AuthorizedVolunteer, error)
	AddVolunteer(ctx context.Context, v *models.AuthorizedVolunteer) error
	GetConfig(ctx context.Context) (*models.SharedConfig, error)
}

// Decision is the outcome of a successful authorization
type Decision struct {
	// Volunteer is the existing record, nil when the caller used the passcode
	Volunteer *models.AuthorizedVolunteer
	// NeedsRecord is true when the caller's operation must create the record
	NeedsRecord bool
}

// Gate decides whether a caller may perform privileged operations
type Gate struct {
	Store VolunteerStore
	Log   logrus.FieldLogger
	Now   func() time.Time
}

// NewGate returns a gate over the given store
func NewGate(s VolunteerStore, log logrus.FieldLogger) *Gate {
	return &Gate{Store: s, Log: log, Now: time.Now}
}

// lookup returns the caller's record, nil when none exists. A revoked record
// is PermissionDenied; the passcode cannot restore it.
func (g *Gate) lookup(ctx context.Context, uid string) (*models.AuthorizedVolunteer, error) {
	v, err := g.Store.GetVolunteer(ctx, uid)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		g.Log.WithError(err).WithField("uid", uid).Error("volunteer lookup failed")
		return nil, apperr.Internalf(err, "Could not verify volunteer status.")
	}
	if v.Deleted {
		return nil, apperr.New(apperr.PermissionDenied, MsgRevoked)
	}
	return v, nil
}

// Authorize admits authorized volunteers outright and otherwise checks the
// shared passcode. It never writes the volunteer record.
func (g *Gate) Authorize(ctx context.Context, caller *Caller, passcode string) (*Decision, error) {
	if caller == nil || caller.UID == "" {
		return nil, apperr.New(apperr.Unauthenticated, MsgSignInRequired)
	}

	v, err := g.lookup(ctx, caller.UID)
	if err != nil {
		return nil, err
	}
	if v != nil {
		return &Decision{Volunteer: v}, nil
	}

	if err := g.checkPasscode(ctx, passcode); err != nil {
		return nil, err
	}
	return &Decision{NeedsRecord: true}, nil
}

func (g *Gate) checkPasscode(ctx context.Context, passcode string) error {
	cfg, err := g.Store.GetConfig(ctx)
	if errors.Is(err, store.ErrNotFound) {
		g.Log.Error("shared config document is missing; no passcode can be validated")
		return apperr.Internalf(err, "Volunteer sign-up is not configured. Please contact an administrator.")
	}
	if err != nil {
		g.Log.WithError(err).Error("failed to load shared config")
		return apperr.Internalf(err, "Could not verify the passcode.")
	}

	if passcode == "" {
		return apperr.New(apperr.PermissionDenied, MsgPasscodeRequired)
	}
	if subtle.ConstantTimeCompare([]byte(passcode), []byte(cfg.Passcode)) != 1 {
		return apperr.New(apperr.PermissionDenied, MsgWrongPasscode)
	}
	return nil
}

// RequireAuthorized admits only callers with an existing volunteer record
func (g *Gate) RequireAuthorized(ctx context.Context, caller *Caller) (*models.AuthorizedVolunteer, error) {
	if caller == nil || caller.UID == "" {
		return nil, apperr.New(apperr.Unauthenticated, MsgSignInRequired)
	}
	v, err := g.lookup(ctx, caller.UID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, apperr.New(apperr.PermissionDenied, MsgNotAuthorized)
	}
	return v, nil
}

// IsAuthorized reports the caller's status without consulting the passcode.
// It is for display decisions only.
func (g *Gate) IsAuthorized(ctx context.Context, caller *Caller) (*models.AuthStatus, error) {
	if caller == nil || caller.UID == "" {
		return nil, apperr.New(apperr.Unauthenticated, MsgSignInRequired)
	}
	v, err := g.lookup(ctx, caller.UID)
	if apperr.Is(err, apperr.PermissionDenied) {
		return &models.AuthStatus{IsAuthorized: false, DisplayName: caller.DisplayName()}, nil
	}
	if err != nil {
		return nil, err
	}
	if v == nil {
		return &models.AuthStatus{IsAuthorized: false, DisplayName: caller.DisplayName()}, nil
	}
	name := v.DisplayName
	if name == "" {
		name = caller.DisplayName()
	}
	return &models.AuthStatus{IsAuthorized: true, DisplayName: name}, nil
}

// AuthorizeVolunteer redeems the passcode and records the caller as a volunteer
func (g *Gate) AuthorizeVolunteer(ctx context.Context, caller *Caller, code string) (*models.AuthorizedVolunteer, error) {
	d, err := g.Authorize(ctx, caller, code)
	if err != nil {
		return nil, err
	}
	if !d.NeedsRecord {
		return d.Volunteer, nil
	}

	v := g.NewVolunteer(caller)
	err = g.Store.AddVolunteer(ctx, v)
	if errors.Is(err, store.ErrAlreadyExists) {
		// Written concurrently; the stored record wins.
		existing, err := g.lookup(ctx, caller.UID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
		return nil, apperr.Internalf(store.ErrNotFound, "Could not save your volunteer authorization.")
	}
	if err != nil {
		g.Log.WithError(err).WithField("uid", caller.UID).Error("failed to save authorized volunteer")
		return nil, apperr.Internalf(err, "Could not save your volunteer authorization.")
	}
	g.Log.WithField("uid", caller.UID).Info("volunteer authorized with passcode")
	return v, nil
}

// NewVolunteer builds the record written when a caller is first authorized
func (g *Gate) NewVolunteer(caller *Caller) *models.AuthorizedVolunteer {
	return &models.AuthorizedVolunteer{
		UID:          caller.UID,
		Email:        caller.Email,
		DisplayName:  caller.DisplayName(),
		AuthorizedAt: g.Now(),
		Role:         models.RoleVolunteer,
	}
}
