package geocode

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGeocoder struct {
	p   *Point
	err error
}

func (s stubGeocoder) Geocode(context.Context, string) (*Point, error) { return s.p, s.err }

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestFullAddress(t *testing.T) {
	assert.Equal(t, "1 Main St, Atlanta, GA", FullAddress("1 Main St", " Atlanta ", "GA"))
	assert.Equal(t, "1 Main St, GA", FullAddress("1 Main St", "", "GA"))
	assert.Equal(t, "", FullAddress("", " "))
}

func TestLookup(t *testing.T) {
	lat, lng := Lookup(context.Background(), stubGeocoder{p: &Point{Lat: 33.75, Lng: -84.39}}, quietLogger(), "x")
	require.NotNil(t, lat)
	require.NotNil(t, lng)
	assert.Equal(t, 33.75, *lat)
	assert.Equal(t, -84.39, *lng)
}

func TestLookupFailureYieldsNil(t *testing.T) {
	lat, lng := Lookup(context.Background(), stubGeocoder{err: errors.New("quota exceeded")}, quietLogger(), "x")
	assert.Nil(t, lat)
	assert.Nil(t, lng)

	lat, lng = Lookup(context.Background(), Disabled{}, quietLogger(), "x")
	assert.Nil(t, lat)
	assert.Nil(t, lng)
}

func TestNewGoogleRequiresKey(t *testing.T) {
	_, err := NewGoogle("")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}
