// Package locations builds the public snapshot of active box locations.
package locations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/boxwatch/boxwatch-api/pkg/apperr"
	"github.com/boxwatch/boxwatch-api/pkg/audit"
	"github.com/boxwatch/boxwatch-api/pkg/auth"
	"github.com/boxwatch/boxwatch-api/pkg/blob"
	"github.com/boxwatch/boxwatch-api/pkg/models"
	"github.com/boxwatch/boxwatch-api/pkg/store"
	"github.com/sirupsen/logrus"
)

// Version of the cache envelope
const Version = 1

const (
	DefaultPath   = "cache/locations.json"
	DefaultMaxAge = time.Hour
)

// Builder regenerates the cache blob from the box collection
type Builder struct {
	Store  store.Store
	Blobs  blob.Store
	Gate   *auth.Gate
	Audit  *audit.Recorder
	Log    logrus.FieldLogger
	Now    func() time.Time
	Path   string
	MaxAge time.Duration
}

// NewBuilder wires a cache builder with the default path and max-age
func NewBuilder(s store.Store, blobs blob.Store, gate *auth.Gate, rec *audit.Recorder, log logrus.FieldLogger) *Builder {
	return &Builder{
		Store:  s,
		Blobs:  blobs,
		Gate:   gate,
		Audit:  rec,
		Log:    log,
		Now:    time.Now,
		Path:   DefaultPath,
		MaxAge: DefaultMaxAge,
	}
}

// CacheControl is the header stored with the blob and sent with reads
func (b *Builder) CacheControl() string {
	return fmt.Sprintf("public, max-age=%d", int(b.MaxAge/time.Second))
}

// Project keeps only the public fields of a box
func Project(box models.Box) models.CachedLocation {
	return models.CachedLocation{
		BoxID:     box.BoxID,
		Label:     box.Label,
		Address:   box.Address,
		City:      box.City,
		State:     box.State,
		Boxes:     box.Boxes,
		Lat:       box.Lat,
		Lng:       box.Lng,
		Volunteer: box.Volunteer,
		Status:    box.Status,
	}
}

// Snapshot builds the envelope for every active box
func (b *Builder) Snapshot(ctx context.Context) (*models.LocationsCache, error) {
	boxes, err := b.Store.ListBoxes(ctx)
	if err != nil {
		return nil, err
	}
	locs := make([]models.CachedLocation, 0, len(boxes))
	for _, box := range boxes {
		if box.Status != models.BoxActive {
			continue
		}
		locs = append(locs, Project(box))
	}
	return &models.LocationsCache{
		Version:     Version,
		GeneratedAt: b.Now().UTC(),
		Count:       len(locs),
		Locations:   locs,
	}, nil
}

// Refresh replaces the cache blob wholesale
func (b *Builder) Refresh(ctx context.Context) (*models.JobResult, error) {
	res, _, err := b.refresh(ctx, audit.SystemActor, "")
	return res, err
}

// RefreshAuthorized is the manual trigger for signed-in volunteers
func (b *Builder) RefreshAuthorized(ctx context.Context, caller *auth.Caller) (*models.JobResult, error) {
	if _, err := b.Gate.RequireAuthorized(ctx, caller); err != nil {
		return nil, err
	}
	res, _, err := b.refresh(ctx, caller.UID, caller.Email)
	return res, err
}

func (b *Builder) refresh(ctx context.Context, actorID, actorEmail string) (*models.JobResult, []byte, error) {
	snap, err := b.Snapshot(ctx)
	if err != nil {
		b.Log.WithError(err).Error("failed to load boxes for locations cache")
		return nil, nil, apperr.Internalf(err, "Could not load box locations.")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, nil, apperr.Internalf(err, "Could not encode the locations cache.")
	}

	url, err := b.Blobs.Write(ctx, b.Path, data, blob.WriteOptions{
		ContentType:  "application/json",
		CacheControl: b.CacheControl(),
		Public:       true,
	})
	if err != nil {
		b.Log.WithError(err).WithField("path", b.Path).Error("failed to write locations cache")
		return nil, nil, apperr.Internalf(err, "Could not write the locations cache.")
	}

	b.Log.WithFields(logrus.Fields{"count": snap.Count, "path": b.Path}).Info("locations cache refreshed")
	b.Audit.Record(ctx, audit.CacheRefreshed, actorID, actorEmail, map[string]any{"count": snap.Count})
	return &models.JobResult{
		Success: true,
		Count:   snap.Count,
		Message: fmt.Sprintf("Cached %d locations.", snap.Count),
		URL:     url,
	}, data, nil
}

// Read returns the cache blob, generating it first when it has never been built
func (b *Builder) Read(ctx context.Context) ([]byte, error) {
	data, err := b.Blobs.Read(ctx, b.Path)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, blob.ErrNotExist) {
		b.Log.WithError(err).Error("failed to read locations cache")
		return nil, apperr.Internalf(err, "Could not read the locations cache.")
	}

	b.Log.Info("locations cache missing, generating")
	_, data, err = b.refresh(ctx, audit.SystemActor, "")
	if err != nil {
		return nil, err
	}
	return data, nil
}
