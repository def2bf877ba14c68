// Package gapfill creates boxes for synced location suggestions that no
// provisioned box covers yet.
package gapfill

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/boxwatch/boxwatch-api/internal/provision"
	"github.com/boxwatch/boxwatch-api/internal/suggestions"
	"github.com/boxwatch/boxwatch-api/pkg/audit"
	"github.com/boxwatch/boxwatch-api/pkg/geocode"
	"github.com/boxwatch/boxwatch-api/pkg/models"
	"github.com/boxwatch/boxwatch-api/pkg/store"
	"github.com/sirupsen/logrus"
)

// SystemVolunteer is credited with every box the filler creates
const SystemVolunteer = "system"

const maxSlug = 24

// Tally summarizes one run
type Tally struct {
	Suggestions    int
	Matched        int
	Candidates     int
	Created        int
	SkippedGeocode int
	Failed         int
	// BoxIDs lists created boxes, or planned ones on a dry run
	BoxIDs []string
}

// Filler reconciles suggestions against boxes
type Filler struct {
	Store    store.Store
	Geocoder geocode.Geocoder
	Audit    *audit.Recorder
	Log      logrus.FieldLogger
	Now      func() time.Time
	DryRun   bool
}

// NewFiller wires a filler
func NewFiller(s store.Store, g geocode.Geocoder, rec *audit.Recorder, log logrus.FieldLogger) *Filler {
	return &Filler{Store: s, Geocoder: g, Audit: rec, Log: log, Now: time.Now}
}

// Slug upper-cases label and replaces runs of other characters with a hyphen
func Slug(label string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToUpper(label) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if b.Len() > 0 && !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.Trim(b.String(), "-")
	if len(s) > maxSlug {
		s = strings.TrimRight(s[:maxSlug], "-")
	}
	if s == "" {
		return "BOX"
	}
	return s
}

// BoxID joins the label slug with the creation time in base 36
func BoxID(label string, at time.Time) string {
	return Slug(label) + "-" + strings.ToUpper(strconv.FormatInt(at.UnixMilli(), 36))
}

type index map[string]bool

func (ix index) add(values ...string) {
	for _, v := range values {
		if n := suggestions.Normalize(v); n != "" {
			ix[n] = true
		}
	}
}

func (ix index) has(v string) bool {
	n := suggestions.Normalize(v)
	return n != "" && ix[n]
}

// Run always completes; per-candidate failures are counted in the tally.
// Only failing to load the two collections returns an error.
func (f *Filler) Run(ctx context.Context) (*Tally, error) {
	boxes, err := f.Store.ListBoxes(ctx)
	if err != nil {
		return nil, err
	}
	list, err := f.Store.ListSuggestions(ctx)
	if err != nil {
		return nil, err
	}

	labels, addresses := index{}, index{}
	ids := make(map[string]bool, len(boxes))
	for _, b := range boxes {
		labels.add(b.Label)
		addresses.add(b.Address)
		ids[b.BoxID] = true
	}

	t := &Tally{Suggestions: len(list)}
	for _, sg := range list {
		if strings.TrimSpace(sg.Address) == "" {
			continue
		}
		if labels.has(sg.Label) || addresses.has(sg.Address) {
			t.Matched++
			continue
		}
		t.Candidates++

		at := f.Now()
		id := BoxID(sg.Label, at)
		for ids[id] {
			at = at.Add(time.Millisecond)
			id = BoxID(sg.Label, at)
		}
		log := f.Log.WithFields(logrus.Fields{"box_id": id, "label": sg.Label, "address": sg.Address})

		if f.DryRun {
			log.Info("would create box")
			t.BoxIDs = append(t.BoxIDs, id)
			ids[id] = true
			labels.add(sg.Label)
			addresses.add(sg.Address)
			continue
		}

		p, err := f.Geocoder.Geocode(ctx, geocode.FullAddress(sg.Address, sg.City, sg.State))
		if err != nil {
			log.WithError(err).Warn("geocoding failed, skipping suggestion")
			t.SkippedGeocode++
			continue
		}

		box := &models.Box{
			BoxID:        id,
			Label:        sg.Label,
			Address:      sg.Address,
			City:         sg.City,
			State:        sg.State,
			Boxes:        1,
			Lat:          &p.Lat,
			Lng:          &p.Lng,
			Volunteer:    SystemVolunteer,
			VolunteerUID: SystemVolunteer,
			ContactName:  sg.ContactName,
			ContactEmail: sg.ContactEmail,
			ContactPhone: sg.ContactPhone,
			Status:       models.BoxActive,
			CreatedAt:    at,
		}
		err = f.Store.CreateBox(ctx, store.NewBox{
			Box:    box,
			Report: provision.RegistrationReport(box, SystemVolunteer, at),
		})
		if err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				log.Warn("box id already taken")
			} else {
				log.WithError(err).Error("failed to create box")
			}
			t.Failed++
			continue
		}

		log.Info("created box")
		t.Created++
		t.BoxIDs = append(t.BoxIDs, id)
		ids[id] = true
		labels.add(sg.Label)
		addresses.add(sg.Address)
		f.Audit.Record(ctx, audit.BoxProvisioned, audit.SystemActor, "", map[string]any{
			"boxId":        id,
			"address":      sg.Address,
			"suggestionId": sg.ID,
		})
	}

	f.Log.WithFields(logrus.Fields{
		"suggestions":     t.Suggestions,
		"matched":         t.Matched,
		"created":         t.Created,
		"skipped_geocode": t.SkippedGeocode,
		"failed":          t.Failed,
		"dry_run":         f.DryRun,
	}).Info("gap fill finished")
	return t, nil
}
