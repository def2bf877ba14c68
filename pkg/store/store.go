// Package store persists boxes, reports, volunteers, suggestions and audit
// entries. GormStore backs local development and tests; FirestoreStore backs
// production deployments.
package store

import (
	"context"
	"errors"

	"github.com/boxwatch/boxwatch-api/pkg/models"
)

var (
	// ErrNotFound is returned when a keyed document does not exist
	ErrNotFound = errors.New("store: not found")
	// ErrAlreadyExists is returned by CreateBox when the box id is taken
	ErrAlreadyExists = errors.New("store: already exists")
)

// ConfigID is the key of the singleton shared config document
const ConfigID = "settings"

// prefixEnd closes a prefix range query: every string starting with p sorts
// below p+prefixEnd.
const prefixEnd = "\uf8ff"

// NewBox bundles the documents written atomically when a box is provisioned
type NewBox struct {
	Box    *models.Box
	Report *models.Report
	// Volunteer is upserted in the same commit when non-nil
	Volunteer *models.AuthorizedVolunteer
}

// Store is the persistence contract shared by every service
type Store interface {
	GetVolunteer(ctx context.Context, uid string) (*models.AuthorizedVolunteer, error)
	UpsertVolunteer(ctx context.Context, v *models.AuthorizedVolunteer) error
	// AddVolunteer writes v only when no record with its uid exists, revoked
	// records included. It returns ErrAlreadyExists otherwise.
	AddVolunteer(ctx context.Context, v *models.AuthorizedVolunteer) error

	GetConfig(ctx context.Context) (*models.SharedConfig, error)
	SetConfig(ctx context.Context, c *models.SharedConfig) error

	// CreateBox writes the box, its registration report and optionally the
	// volunteer in one transaction. An existing volunteer record is left as is. It returns ErrAlreadyExists, and writes
	// nothing, when a box with the same id exists at commit time.
	CreateBox(ctx context.Context, nb NewBox) error
	GetBox(ctx context.Context, boxID string) (*models.Box, error)
	ListBoxes(ctx context.Context) ([]models.Box, error)
	SetBoxStatus(ctx context.Context, boxID, status string) error

	AddReport(ctx context.Context, r *models.Report) error
	GetReport(ctx context.Context, id string) (*models.Report, error)
	ClearReport(ctx context.Context, id, clearedBy string) error
	// ListReports returns a box's reports in ascending timestamp order
	ListReports(ctx context.Context, boxID string) ([]models.Report, error)

	// UpsertSuggestions merges each suggestion into the document with its id
	UpsertSuggestions(ctx context.Context, s []models.LocationSuggestion) error
	ListSuggestions(ctx context.Context) ([]models.LocationSuggestion, error)
	// SearchSuggestions prefix-matches field ("searchLabel" or "searchAddress")
	SearchSuggestions(ctx context.Context, field, prefix string, limit int) ([]models.LocationSuggestion, error)

	AppendAudit(ctx context.Context, e *models.AuditEntry) error
}
