package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/meeting-recorder/pkg/config"
)

func TestDialect(t *testing.T) {
	assert.Equal(t, "sqlite3", Dialect("sqlite"))
	assert.Equal(t, "postgres", Dialect("postgres"))
}

func TestSQLiteMigrations(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Driver = "sqlite"
	cfg.Database.SqlitePath = filepath.Join(t.TempDir(), "meetings.db")

	db, err := NewDB(cfg)
	require.NoError(t, err)
	defer CloseDB(db)

	n, err := AutoMigrate(db, cfg.Database.Driver, filepath.Join("..", "..", "..", MigrationsDir))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, db.Migrator().HasTable("meetings"))

	// applying again is a no-op
	n, err = AutoMigrate(db, cfg.Database.Driver, filepath.Join("..", "..", "..", MigrationsDir))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestNewDBRejectsUnknownDriver(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Driver = "oracle"
	_, err := NewDB(cfg)
	assert.Error(t, err)
}
