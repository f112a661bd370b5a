package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/wavtrack/internal/database"
)

// TestDBOption customises the behaviour of MustOpenTestDB.
type TestDBOption func(*testDBConfig)

type testDBConfig struct {
	remoteSchema bool
	localSchema  bool
}

// WithRemoteSchema migrates the authoritative store schema after opening.
func WithRemoteSchema() TestDBOption {
	return func(cfg *testDBConfig) {
		cfg.remoteSchema = true
	}
}

// WithLocalSchema migrates the local store schema, outbox included, after opening.
func WithLocalSchema() TestDBOption {
	return func(cfg *testDBConfig) {
		cfg.localSchema = true
	}
}

// MustOpenTestDB opens an isolated in-memory SQLite database for tests.
// The returned connection is automatically closed via t.Cleanup.
func MustOpenTestDB(t *testing.T, opts ...TestDBOption) *gorm.DB {
	t.Helper()

	cfg := testDBConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := database.Open(database.Config{Driver: "sqlite"})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = database.Close(db)
	})

	if cfg.remoteSchema {
		require.NoError(t, database.RemoteAutoMigrate(db))
	}
	if cfg.localSchema {
		require.NoError(t, database.LocalAutoMigrate(db))
	}
	return db
}
