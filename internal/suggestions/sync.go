// Package suggestions mirrors the volunteer spreadsheet into location
// suggestions used for address autocomplete.
package suggestions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/boxwatch/boxwatch-api/pkg/apperr"
	"github.com/boxwatch/boxwatch-api/pkg/audit"
	"github.com/boxwatch/boxwatch-api/pkg/auth"
	"github.com/boxwatch/boxwatch-api/pkg/models"
	"github.com/boxwatch/boxwatch-api/pkg/sheets"
	"github.com/boxwatch/boxwatch-api/pkg/store"
	"github.com/sirupsen/logrus"
)

// Spreadsheet columns, zero-based
const (
	colLabel = iota
	colAddress
	colCity
	colState
	colContactName
	colContactEmail
	colContactPhone
)

// idLength bounds document ids
const idLength = 40

// MaxDelay caps the artificial delay accepted by the HTTP trigger
const MaxDelay = 5 * time.Minute

// Syncer upserts spreadsheet rows as suggestions
type Syncer struct {
	Rows  sheets.RowSource
	Store store.Store
	Gate  *auth.Gate
	Audit *audit.Recorder
	Log   logrus.FieldLogger
	Now   func() time.Time
}

// NewSyncer wires a sync job
func NewSyncer(rows sheets.RowSource, s store.Store, gate *auth.Gate, rec *audit.Recorder, log logrus.FieldLogger) *Syncer {
	return &Syncer{Rows: rows, Store: s, Gate: gate, Audit: rec, Log: log, Now: time.Now}
}

// Normalize lowercases s and collapses runs of whitespace
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// DocID derives the stable id of a suggestion from its label and address.
// Changing this derivation orphans every previously synced document.
func DocID(label, address string) string {
	sum := sha256.Sum256([]byte(Normalize(label) + "|" + Normalize(address)))
	return hex.EncodeToString(sum[:])[:idLength]
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

// Parse turns sheet rows, header first, into suggestions keyed by DocID.
// Rows without a label or address are skipped; a repeated id keeps the last row.
func Parse(rows [][]string, syncedAt time.Time) []models.LocationSuggestion {
	byID := make(map[string]models.LocationSuggestion)
	for i, row := range rows {
		if i == 0 {
			continue
		}
		label := cell(row, colLabel)
		address := cell(row, colAddress)
		if label == "" || address == "" {
			continue
		}
		id := DocID(label, address)
		byID[id] = models.LocationSuggestion{
			ID:            id,
			Label:         label,
			Address:       address,
			City:          cell(row, colCity),
			State:         cell(row, colState),
			ContactName:   cell(row, colContactName),
			ContactEmail:  cell(row, colContactEmail),
			ContactPhone:  cell(row, colContactPhone),
			SearchLabel:   strings.ToLower(label),
			SearchAddress: strings.ToLower(address),
			SourceRow:     i + 1,
			SyncedAt:      syncedAt,
		}
	}

	list := make([]models.LocationSuggestion, 0, len(byID))
	for _, sg := range byID {
		list = append(list, sg)
	}
	sort.Slice(list, func(a, b int) bool { return list[a].SourceRow < list[b].SourceRow })
	return list
}

// Run performs one unattended sync. A failed sheet read aborts before anything
// is written.
func (s *Syncer) Run(ctx context.Context) (*models.JobResult, error) {
	return s.run(ctx, audit.SystemActor, "")
}

func (s *Syncer) run(ctx context.Context, actorID, actorEmail string) (*models.JobResult, error) {
	rows, err := s.Rows.Rows(ctx)
	if err != nil {
		s.Log.WithError(err).Error("failed to read location spreadsheet")
		return nil, apperr.Internalf(err, "Could not read the location spreadsheet.")
	}

	list := Parse(rows, s.Now())
	if len(list) == 0 {
		s.Log.Info("location spreadsheet has no usable rows")
		return &models.JobResult{Success: true, Synced: 0, Message: "No locations found in the spreadsheet."}, nil
	}

	if err := s.Store.UpsertSuggestions(ctx, list); err != nil {
		s.Log.WithError(err).Error("failed to write location suggestions")
		return nil, apperr.Internalf(err, "Could not save location suggestions.")
	}

	s.Log.WithField("synced", len(list)).Info("location suggestions synced")
	s.Audit.Record(ctx, audit.SuggestionsSync, actorID, actorEmail, map[string]any{"synced": len(list)})
	return &models.JobResult{
		Success: true,
		Synced:  len(list),
		Message: fmt.Sprintf("Synced %d location suggestions.", len(list)),
	}, nil
}

// RunAuthorized is the manual trigger for signed-in volunteers
func (s *Syncer) RunAuthorized(ctx context.Context, caller *auth.Caller) (*models.JobResult, error) {
	if _, err := s.Gate.RequireAuthorized(ctx, caller); err != nil {
		return nil, err
	}
	return s.run(ctx, caller.UID, caller.Email)
}

// RunAfter waits delay, capped at MaxDelay, then syncs. It backs the
// unauthenticated HTTP trigger.
func (s *Syncer) RunAfter(ctx context.Context, delay time.Duration) (*models.JobResult, error) {
	if delay > MaxDelay {
		delay = MaxDelay
	}
	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return nil, apperr.Internalf(ctx.Err(), "Sync was cancelled before it started.")
		}
	}
	return s.Run(ctx)
}

// Search returns suggestions whose label or address starts with query
func (s *Syncer) Search(ctx context.Context, caller *auth.Caller, query string, limit int) ([]models.LocationSuggestion, error) {
	if _, err := s.Gate.RequireAuthorized(ctx, caller); err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []models.LocationSuggestion{}, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	seen := make(map[string]bool)
	out := make([]models.LocationSuggestion, 0, limit)
	for _, field := range []string{"searchLabel", "searchAddress"} {
		list, err := s.Store.SearchSuggestions(ctx, field, q, limit)
		if err != nil {
			s.Log.WithError(err).Error("suggestion search failed")
			return nil, apperr.Internalf(err, "Could not search locations.")
		}
		for _, sg := range list {
			if seen[sg.ID] || len(out) >= limit {
				continue
			}
			seen[sg.ID] = true
			out = append(out, sg)
		}
	}
	return out, nil
}
