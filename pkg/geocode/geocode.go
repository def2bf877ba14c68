// Package geocode resolves street addresses to coordinates.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"googlemaps.github.io/maps"
)

var (
	// ErrNoAPIKey means geocoding is not configured
	ErrNoAPIKey = errors.New("geocode: no API key configured")
	// ErrNoResults means the provider found nothing for the address
	ErrNoResults = errors.New("geocode: no results")
)

// Point is a latitude/longitude pair
type Point struct {
	Lat float64
	Lng float64
}

// Geocoder resolves an address
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*Point, error)
}

// Google geocodes through the Google Maps Geocoding API
type Google struct {
	client *maps.Client
}

// NewGoogle builds a client for the given API key
func NewGoogle(apiKey string) (*Google, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("geocode: %w", err)
	}
	return &Google{client: c}, nil
}

func (g *Google) Geocode(ctx context.Context, address string) (*Point, error) {
	res, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w", address, err)
	}
	if len(res) == 0 {
		return nil, ErrNoResults
	}
	loc := res[0].Geometry.Location
	return &Point{Lat: loc.Lat, Lng: loc.Lng}, nil
}

// Disabled fails every lookup; it stands in when no API key is configured
type Disabled struct{}

func (Disabled) Geocode(context.Context, string) (*Point, error) { return nil, ErrNoAPIKey }

// FullAddress joins the non-empty address parts
func FullAddress(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

// Lookup geocodes best-effort: any failure is logged and yields nil coordinates
func Lookup(ctx context.Context, g Geocoder, log logrus.FieldLogger, address string) (lat, lng *float64) {
	if g == nil {
		return nil, nil
	}
	p, err := g.Geocode(ctx, address)
	if err != nil {
		log.WithError(err).WithField("address", address).Warn("geocoding failed, continuing without coordinates")
		return nil, nil
	}
	return &p.Lat, &p.Lng
}
