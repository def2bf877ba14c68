// Package app assembles the services from configuration. It is shared by the
// serverless entry point, the long-running server and the operator CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	firebase "firebase.google.com/go/v4"
	"github.com/boxwatch/boxwatch-api/internal/boxes"
	"github.com/boxwatch/boxwatch-api/internal/gapfill"
	"github.com/boxwatch/boxwatch-api/internal/locations"
	"github.com/boxwatch/boxwatch-api/internal/provision"
	"github.com/boxwatch/boxwatch-api/internal/reports"
	"github.com/boxwatch/boxwatch-api/internal/suggestions"
	"github.com/boxwatch/boxwatch-api/pkg/audit"
	"github.com/boxwatch/boxwatch-api/pkg/auth"
	"github.com/boxwatch/boxwatch-api/pkg/blob"
	"github.com/boxwatch/boxwatch-api/pkg/config"
	"github.com/boxwatch/boxwatch-api/pkg/database"
	"github.com/boxwatch/boxwatch-api/pkg/geocode"
	"github.com/boxwatch/boxwatch-api/pkg/handlers"
	"github.com/boxwatch/boxwatch-api/pkg/logger"
	"github.com/boxwatch/boxwatch-api/pkg/notify"
	"github.com/boxwatch/boxwatch-api/pkg/scheduler"
	"github.com/boxwatch/boxwatch-api/pkg/sheets"
	"github.com/boxwatch/boxwatch-api/pkg/store"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// App holds the wired services
type App struct {
	Config   *config.Config
	Log      *logrus.Logger
	Store    store.Store
	Verifier auth.IdentityVerifier
	Blobs    blob.Store
	Geocoder geocode.Geocoder

	Gate        *auth.Gate
	Audit       *audit.Recorder
	Provision   *provision.Service
	Reports     *reports.Service
	Boxes       *boxes.Service
	Suggestions *suggestions.Syncer
	Locations   *locations.Builder

	closers []func() error
}

// New connects every backend named by cfg
func New(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	var err error
	if cfg.UseFirebase() {
		err = a.initFirebase(ctx)
	} else {
		err = a.initLocal()
	}
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Geocoder = a.newGeocoder()
	mailer := a.newMailer()
	rows := a.newRowSource(ctx)

	a.Gate = auth.NewGate(a.Store, log)
	a.Audit = audit.NewRecorder(a.Store, log)
	a.Provision = provision.NewService(a.Store, a.Gate, a.Geocoder, a.Audit, log)
	a.Reports = reports.NewService(a.Store, a.Gate, mailer, a.Audit, log)
	a.Boxes = boxes.NewService(a.Store, a.Gate, a.Audit, log)
	a.Suggestions = suggestions.NewSyncer(rows, a.Store, a.Gate, a.Audit, log)
	a.Locations = locations.NewBuilder(a.Store, a.Blobs, a.Gate, a.Audit, log)
	a.Locations.Path = cfg.CachePath
	a.Locations.MaxAge = cfg.CacheMaxAgeDuration()
	return a, nil
}

func (a *App) initFirebase(ctx context.Context) error {
	cfg := a.Config
	var opts []option.ClientOption
	if cfg.FirebaseCredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentialsPath))
	}
	fb, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     cfg.FirebaseProjectID,
		StorageBucket: cfg.StorageBucket,
	}, opts...)
	if err != nil {
		return fmt.Errorf("firebase: %w", err)
	}

	fs, err := fb.Firestore(ctx)
	if err != nil {
		return fmt.Errorf("firestore: %w", err)
	}
	a.closers = append(a.closers, fs.Close)
	a.Store = store.NewFirestoreStore(fs, "")

	authClient, err := fb.Auth(ctx)
	if err != nil {
		return fmt.Errorf("firebase auth: %w", err)
	}
	a.Verifier = &auth.FirebaseVerifier{Client: authClient}

	if cfg.StorageBucket == "" {
		a.Log.Warn("STORAGE_BUCKET not set, locations cache is written to CACHE_DIR")
		a.Blobs = blob.NewDir(cfg.CacheDir, cfg.BaseURL())
		return nil
	}
	st, err := fb.Storage(ctx)
	if err != nil {
		return fmt.Errorf("firebase storage: %w", err)
	}
	bucket, err := st.Bucket(cfg.StorageBucket)
	if err != nil {
		return fmt.Errorf("storage bucket: %w", err)
	}
	a.Blobs = blob.NewGCS(bucket, cfg.StorageBucket)
	return nil
}

func (a *App) initLocal() error {
	cfg := a.Config
	db, err := database.Open(database.Options{DSN: cfg.DatabaseURL, DataPath: cfg.DataPath})
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	a.closers = append(a.closers, sqlDB.Close)
	a.Store = store.NewGormStore(db)

	if cfg.JWTSecret == "" {
		a.Log.Warn("JWT_SECRET not set, every request is anonymous")
	}
	a.Verifier = auth.NewJWTVerifier(cfg.JWTSecret)
	a.Blobs = blob.NewDir(cfg.CacheDir, cfg.BaseURL())
	return nil
}

func (a *App) newGeocoder() geocode.Geocoder {
	g, err := geocode.NewGoogle(a.Config.GeocodingAPIKey)
	if err != nil {
		a.Log.WithError(err).Warn("geocoding disabled, boxes are stored without coordinates")
		return geocode.Disabled{}
	}
	return g
}

func (a *App) newMailer() notify.Mailer {
	cfg := a.Config
	m, err := notify.NewSMTPMailer(notify.SMTPConfig{
		Host:   cfg.MailSMTPHost,
		Port:   cfg.MailSMTPPort,
		Domain: cfg.MailDomain,
		APIKey: cfg.MailAPIKey,
		From:   cfg.MailFrom,
		To:     cfg.MailTo,
	})
	if err != nil {
		a.Log.WithError(err).Warn("report emails disabled")
		return notify.Disabled{}
	}
	return m
}

func (a *App) newRowSource(ctx context.Context) sheets.RowSource {
	cfg := a.Config
	creds := cfg.GoogleCredentialsPath
	if creds == "" {
		creds = cfg.FirebaseCredentialsPath
	}
	src, err := sheets.NewGoogle(ctx, sheets.Config{
		SpreadsheetID:   cfg.SheetID,
		SheetName:       cfg.SheetName,
		Range:           cfg.SheetRange,
		CredentialsFile: creds,
	})
	if err != nil {
		a.Log.WithError(err).Warn("location spreadsheet disabled")
		return sheets.Disabled{}
	}
	return src
}

// Handler returns the route handlers
func (a *App) Handler() *handlers.Handler {
	return &handlers.Handler{
		Verifier:    a.Verifier,
		Gate:        a.Gate,
		Provision:   a.Provision,
		Reports:     a.Reports,
		Boxes:       a.Boxes,
		Suggestions: a.Suggestions,
		Locations:   a.Locations,
		Log:         a.Log,
	}
}

// Router builds the gin engine
func (a *App) Router() *gin.Engine {
	r := gin.New()
	r.Use(logger.Gin(a.Log), gin.Recovery())

	// Locally stored blobs are served next to the API.
	if dir, ok := a.Blobs.(*blob.Dir); ok {
		r.StaticFS("/static", http.Dir(dir.Root))
	}

	a.Handler().Register(r)
	return r
}

// Jobs are the periodic background tasks
func (a *App) Jobs() []scheduler.Job {
	return []scheduler.Job{
		{
			Name:     "sync-suggestions",
			Interval: a.Config.SyncInterval,
			Run: func(ctx context.Context) error {
				_, err := a.Suggestions.Run(ctx)
				return err
			},
		},
		{
			Name:       "refresh-locations",
			Interval:   a.Config.CacheInterval,
			RunAtStart: true,
			Run: func(ctx context.Context) error {
				_, err := a.Locations.Refresh(ctx)
				return err
			},
		},
	}
}

// Filler returns a gap filler over the configured store and geocoder
func (a *App) Filler() *gapfill.Filler {
	return gapfill.NewFiller(a.Store, a.Geocoder, a.Audit, a.Log)
}

// Close releases backend connections
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
