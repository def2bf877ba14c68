// Package config loads process settings from .env files and the environment.
package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config holds every setting read at startup
type Config struct {
	Port    string `env:"PORT" envDefault:"8000"`
	GinMode string `env:"GIN_MODE"`

	DatabaseURL string `env:"DATABASE_URL"`
	DataPath    string `env:"DATA_PATH" envDefault:"boxes.db"`

	FirebaseProjectID       string `env:"FIREBASE_PROJECT_ID"`
	FirebaseCredentialsPath string `env:"FIREBASE_CREDENTIALS_PATH"`
	StorageBucket           string `env:"STORAGE_BUCKET"`

	CacheDir      string `env:"CACHE_DIR" envDefault:"./public"`
	CachePath     string `env:"CACHE_PATH" envDefault:"cache/locations.json"`
	CacheMaxAge   int    `env:"CACHE_MAX_AGE" envDefault:"3600"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`

	JWTSecret string `env:"JWT_SECRET"`

	GeocodingAPIKey string `env:"GEOCODING_API_KEY"`

	SheetID               string `env:"SHEET_ID"`
	SheetName             string `env:"SHEET_NAME" envDefault:"Sheet1"`
	SheetRange            string `env:"SHEET_RANGE" envDefault:"A:G"`
	GoogleCredentialsPath string `env:"GOOGLE_CREDENTIALS_PATH"`

	MailDomain   string   `env:"MAIL_DOMAIN"`
	MailAPIKey   string   `env:"MAIL_API_KEY"`
	MailSMTPHost string   `env:"MAIL_SMTP_HOST" envDefault:"smtp.mailgun.org"`
	MailSMTPPort int      `env:"MAIL_SMTP_PORT" envDefault:"587"`
	MailFrom     string   `env:"MAIL_FROM"`
	MailTo       []string `env:"MAIL_TO" envSeparator:","`

	SyncInterval     time.Duration `env:"SYNC_INTERVAL" envDefault:"10m"`
	CacheInterval    time.Duration `env:"CACHE_INTERVAL" envDefault:"6h"`
	SchedulerEnabled bool          `env:"SCHEDULER_ENABLED" envDefault:"true"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	LogFile   string `env:"LOG_FILE"`
}

// envPaths are tried in order; the first existing file wins
var envPaths = []string{".env", "../.env", "../../.env"}

// LoadDotEnv loads the first .env file found. Variables already set in the
// environment are kept.
func LoadDotEnv() {
	for _, p := range envPaths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

// Load reads .env and then parses the environment
func Load() (*Config, error) {
	LoadDotEnv()
	return Parse()
}

// Parse reads the current environment only
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UseFirebase reports whether the Firebase backends are configured
func (c *Config) UseFirebase() bool {
	return c.FirebaseProjectID != ""
}

// CacheMaxAgeDuration is CacheMaxAge as a duration
func (c *Config) CacheMaxAgeDuration() time.Duration {
	return time.Duration(c.CacheMaxAge) * time.Second
}

// BaseURL is where locally stored blobs are served from
func (c *Config) BaseURL() string {
	if c.PublicBaseURL != "" {
		return c.PublicBaseURL
	}
	return "http://localhost:" + c.Port + "/static"
}
