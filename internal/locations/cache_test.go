package locations_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/boxwatch/boxwatch-api/internal/locations"
	"github.com/boxwatch/boxwatch-api/internal/provision"
	"github.com/boxwatch/boxwatch-api/internal/testutil"
	"github.com/boxwatch/boxwatch-api/pkg/apperr"
	"github.com/boxwatch/boxwatch-api/pkg/audit"
	"github.com/boxwatch/boxwatch-api/pkg/auth"
	"github.com/boxwatch/boxwatch-api/pkg/blob"
	"github.com/boxwatch/boxwatch-api/pkg/models"
	"github.com/boxwatch/boxwatch-api/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var vol1 = &auth.Caller{UID: "vol-1", Email: "sam@example.org", Name: "Sam"}

func setup(t *testing.T, boxIDs ...string) (*store.GormStore, *blob.Dir, *locations.Builder) {
	t.Helper()
	ctx := context.Background()
	s := testutil.NewStore(t)
	testutil.SeedPasscode(t, s, "semperfi")
	log := testutil.Logger()
	gate := auth.NewGate(s, log)
	rec := audit.NewRecorder(s, log)

	prov := provision.NewService(s, gate, &testutil.Geocoder{Lat: 33.7, Lng: -84.4}, rec, log)
	for _, id := range boxIDs {
		_, err := prov.Provision(ctx, vol1, models.ProvisionRequest{
			BoxID: id, Address: id + " Main St", Label: "Label " + id, Passcode: "semperfi",
		})
		require.NoError(t, err)
	}

	dir := blob.NewDir(t.TempDir(), "http://localhost:8000/static")
	b := locations.NewBuilder(s, dir, gate, rec, log)
	b.Now = testutil.NewClock().Now
	return s, dir, b
}

func decode(t *testing.T, data []byte) models.LocationsCache {
	t.Helper()
	var c models.LocationsCache
	require.NoError(t, json.Unmarshal(data, &c))
	return c
}

func TestRefreshIsComplete(t *testing.T) {
	ctx := context.Background()
	_, dir, b := setup(t, "A1", "B2", "C3")

	res, err := b.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Count)
	assert.Equal(t, "http://localhost:8000/static/cache/locations.json", res.URL)

	data, err := dir.Read(ctx, locations.DefaultPath)
	require.NoError(t, err)
	c := decode(t, data)
	assert.Equal(t, locations.Version, c.Version)
	assert.Equal(t, 3, c.Count)
	require.Len(t, c.Locations, 3)
	assert.Equal(t, "A1", c.Locations[0].BoxID)
	assert.Equal(t, "Label A1", c.Locations[0].Label)
	require.NotNil(t, c.Locations[0].Lat)

	// Bookkeeping fields never leak into the public blob.
	assert.NotContains(t, string(data), "volunteerUid")
	assert.NotContains(t, string(data), "contactEmail")
}

func TestRefreshDropsDeactivatedBoxes(t *testing.T) {
	ctx := context.Background()
	s, _, b := setup(t, "A1", "B2")

	_, err := b.Refresh(ctx)
	require.NoError(t, err)

	require.NoError(t, s.SetBoxStatus(ctx, "A1", models.BoxDeleted))
	res, err := b.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)

	data, err := b.Read(ctx)
	require.NoError(t, err)
	c := decode(t, data)
	require.Len(t, c.Locations, 1)
	assert.Equal(t, "B2", c.Locations[0].BoxID)
}

func TestReadSelfHeals(t *testing.T) {
	ctx := context.Background()
	_, dir, b := setup(t, "A1")

	ok, err := dir.Exists(ctx, locations.DefaultPath)
	require.NoError(t, err)
	require.False(t, ok)

	data, err := b.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, decode(t, data).Count)

	ok, err = dir.Exists(ctx, locations.DefaultPath)
	require.NoError(t, err)
	assert.True(t, ok, "first read persists the generated cache")
}

func TestRefreshAuthorized(t *testing.T) {
	ctx := context.Background()
	_, _, b := setup(t, "A1")

	_, err := b.RefreshAuthorized(ctx, nil)
	assert.Equal(t, apperr.Unauthenticated, apperr.KindOf(err))

	_, err = b.RefreshAuthorized(ctx, &auth.Caller{UID: "stranger"})
	assert.Equal(t, apperr.PermissionDenied, apperr.KindOf(err))

	res, err := b.RefreshAuthorized(ctx, vol1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
}

func TestCacheControl(t *testing.T) {
	_, _, b := setup(t)
	assert.Equal(t, "public, max-age=3600", b.CacheControl())
	b.MaxAge = 5 * time.Minute
	assert.Equal(t, "public, max-age=300", b.CacheControl())
}
