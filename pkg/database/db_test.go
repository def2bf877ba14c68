package database

import (
	"path/filepath"
	"testing"

	"github.com/boxwatch/boxwatch-api/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteMigrates(t *testing.T) {
	db, err := Open(Options{DataPath: filepath.Join(t.TempDir(), "boxes.db")})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	for _, table := range []any{
		&models.Box{},
		&models.Report{},
		&models.AuthorizedVolunteer{},
		&models.SharedConfig{},
		&models.LocationSuggestion{},
		&models.AuditEntry{},
	} {
		assert.True(t, db.Migrator().HasTable(table), "%T", table)
	}

	// Migrating an existing schema is a no-op.
	require.NoError(t, Migrate(db))
}
