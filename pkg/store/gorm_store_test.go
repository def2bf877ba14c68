package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/boxwatch/boxwatch-api/internal/testutil"
	"github.com/boxwatch/boxwatch-api/pkg/models"
	"github.com/boxwatch/boxwatch-api/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBox(id, reportID string) store.NewBox {
	box := &models.Box{BoxID: id, Address: "1 Main St", Status: models.BoxActive, CreatedAt: time.Now()}
	return store.NewBox{
		Box: box,
		Report: &models.Report{
			ID:         reportID,
			BoxID:      id,
			ReportType: models.ReportBoxRegistered,
			Status:     models.ReportCleared,
			Timestamp:  time.Now(),
		},
	}
}

func TestCreateBoxRejectsExisting(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStore(t)

	require.NoError(t, s.CreateBox(ctx, newBox("BOX1", "")))
	err := s.CreateBox(ctx, newBox("BOX1", ""))
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	reports, err := s.ListReports(ctx, "BOX1")
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}

func TestCreateBoxIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStore(t)
	require.NoError(t, s.AddReport(ctx, &models.Report{ID: "taken", BoxID: "OTHER", ReportType: models.ReportPickupAlert, Status: models.ReportNew}))

	nb := newBox("BOX1", "taken")
	nb.Volunteer = &models.AuthorizedVolunteer{UID: "vol-1", Role: models.RoleVolunteer}
	err := s.CreateBox(ctx, nb)
	require.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrAlreadyExists)

	_, err = s.GetBox(ctx, "BOX1")
	assert.ErrorIs(t, err, store.ErrNotFound, "box rolled back with its report")
	_, err = s.GetVolunteer(ctx, "vol-1")
	assert.ErrorIs(t, err, store.ErrNotFound, "volunteer rolled back with the box")
}

func TestStatusMutations(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStore(t)
	require.NoError(t, s.CreateBox(ctx, newBox("BOX1", "r1")))

	assert.ErrorIs(t, s.SetBoxStatus(ctx, "NOPE", models.BoxDeleted), store.ErrNotFound)
	require.NoError(t, s.SetBoxStatus(ctx, "BOX1", models.BoxDeleted))

	assert.ErrorIs(t, s.ClearReport(ctx, "nope", "Sam"), store.ErrNotFound)
	require.NoError(t, s.ClearReport(ctx, "r1", "Sam"))
	r, err := s.GetReport(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Sam", r.ClearedBy)
}

func TestConfigRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStore(t)

	_, err := s.GetConfig(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.SetConfig(ctx, &models.SharedConfig{Passcode: "one"}))
	require.NoError(t, s.SetConfig(ctx, &models.SharedConfig{Passcode: "two"}))
	c, err := s.GetConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "two", c.Passcode, "singleton is replaced, not duplicated")
}

func TestUpsertSuggestionsMerges(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStore(t)
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.UpsertSuggestions(ctx, []models.LocationSuggestion{
		{ID: "a", Label: "Corner Store", Address: "1 Main St", SearchLabel: "corner store", SearchAddress: "1 main st", SourceRow: 2, SyncedAt: first},
		{ID: "b", Label: "Library", Address: "2 Oak Ave", SearchLabel: "library", SearchAddress: "2 oak ave", SourceRow: 3, SyncedAt: first},
	}))
	require.NoError(t, s.UpsertSuggestions(ctx, []models.LocationSuggestion{
		{ID: "a", Label: "Corner Store", Address: "1 Main St", SearchLabel: "corner store", SearchAddress: "1 main st", SourceRow: 4, SyncedAt: first.Add(time.Hour)},
	}))

	list, err := s.ListSuggestions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
	assert.Equal(t, 4, list[1].SourceRow)
	assert.True(t, list[1].SyncedAt.Equal(first.Add(time.Hour)))

	found, err := s.SearchSuggestions(ctx, "searchLabel", "corn", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "a", found[0].ID)

	found, err = s.SearchSuggestions(ctx, "searchAddress", "2 oak", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)

	_, err = s.SearchSuggestions(ctx, "contactEmail", "x", 10)
	assert.Error(t, err)
}

func TestAddVolunteerKeepsExisting(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStore(t)
	require.NoError(t, s.AddVolunteer(ctx, &models.AuthorizedVolunteer{UID: "r1", Role: models.RoleRoot, Deleted: true}))

	err := s.AddVolunteer(ctx, &models.AuthorizedVolunteer{UID: "r1", Role: models.RoleVolunteer})
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	nb := newBox("BOX1", "r-box1")
	nb.Volunteer = &models.AuthorizedVolunteer{UID: "r1", Role: models.RoleVolunteer}
	require.NoError(t, s.CreateBox(ctx, nb))

	v, err := s.GetVolunteer(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, v.Deleted, "revocation survives")
	assert.Equal(t, models.RoleRoot, v.Role)
}
