// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/boxwatch/boxwatch-api/pkg/database"
	"github.com/boxwatch/boxwatch-api/pkg/geocode"
	"github.com/boxwatch/boxwatch-api/pkg/models"
	"github.com/boxwatch/boxwatch-api/pkg/notify"
	"github.com/boxwatch/boxwatch-api/pkg/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// NewStore opens a private in-memory SQLite store
func NewStore(t testing.TB) *store.GormStore {
	t.Helper()
	db, err := database.Open(database.Options{
		DataPath: fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return store.NewGormStore(db)
}

// SeedPasscode stores the shared passcode
func SeedPasscode(t testing.TB, s store.Store, passcode string) {
	t.Helper()
	require.NoError(t, s.SetConfig(context.Background(), &models.SharedConfig{Passcode: passcode}))
}

// Logger discards output
func Logger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// Geocoder returns a fixed point, or Err when set
type Geocoder struct {
	Lat, Lng float64
	Err      error

	mu    sync.Mutex
	Calls []string
}

func (g *Geocoder) Geocode(_ context.Context, address string) (*geocode.Point, error) {
	g.mu.Lock()
	g.Calls = append(g.Calls, address)
	g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	return &geocode.Point{Lat: g.Lat, Lng: g.Lng}, nil
}

// Mailer records messages, failing with Err when set
type Mailer struct {
	Err error

	mu   sync.Mutex
	Sent []notify.Message
}

func (m *Mailer) Send(_ context.Context, msg notify.Message) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, msg)
	return nil
}

// Rows serves canned spreadsheet rows
type Rows struct {
	Values [][]string
	Err    error
}

func (r *Rows) Rows(context.Context) ([][]string, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Values, nil
}

// Clock returns a controllable time source
type Clock struct {
	mu sync.Mutex
	T  time.Time
}

func NewClock() *Clock {
	return &Clock{T: time.Date(2024, 11, 20, 15, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.T
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.T = c.T.Add(d)
	c.mu.Unlock()
}

// ErrProvider is a generic collaborator failure
var ErrProvider = errors.New("provider unavailable")

// FailingAuditStore wraps a store and fails every audit append
type FailingAuditStore struct {
	store.Store
}

func (FailingAuditStore) AppendAudit(context.Context, *models.AuditEntry) error {
	return ErrProvider
}
