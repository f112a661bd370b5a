package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSNDefaults(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{User: "wavtrack", Name: "wavtrack"})
	require.NoError(t, err)
	require.Equal(t, "host=localhost port=5432 user=wavtrack dbname=wavtrack TimeZone=UTC sslmode=disable", dsn)
}

func TestBuildPostgresDSNWithOptions(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		User:     "user",
		Name:     "db",
		Host:     "db.example.com",
		Port:     6543,
		Password: "pass",
		Options: map[string]string{
			"sslmode":     "require",
			"search_path": "public",
		},
	})
	require.NoError(t, err)
	requireContainsAll(t, dsn,
		"host=db.example.com",
		"port=6543",
		"password=pass",
		"sslmode=require",
		"search_path=public",
	)
}

func TestBuildPostgresDSNRequiresUserAndName(t *testing.T) {
	_, err := buildPostgresDSN(Config{})
	require.Error(t, err)
}

func TestBuildMySQLDSNDefaults(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{User: "wavtrack", Name: "wavtrack"})
	require.NoError(t, err)
	require.Equal(t, "wavtrack@tcp(127.0.0.1:3306)/wavtrack?charset=utf8mb4&loc=UTC&parseTime=True", dsn)
}

func TestBuildMySQLDSNWithOptions(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{
		User:     "user",
		Password: "secret",
		Name:     "db",
		Host:     "db.example.com",
		Port:     3307,
		Options:  map[string]string{"tls": "skip-verify"},
	})
	require.NoError(t, err)
	requireContainsAll(t, dsn, "user:secret@tcp(db.example.com:3307)/db?", "tls=skip-verify", "parseTime=True")
}

func TestBuildMySQLDSNRequiresUserAndName(t *testing.T) {
	_, err := buildMySQLDSN(Config{Host: "localhost"})
	require.Error(t, err)
}

func TestBuildSQLiteDSN(t *testing.T) {
	first, err := buildSQLiteDSN(Config{})
	require.NoError(t, err)
	second, err := buildSQLiteDSN(Config{Path: ":memory:"})
	require.NoError(t, err)
	require.NotEqual(t, first, second, "in-memory databases must not share a name")
	require.Contains(t, first, "mode=memory")

	override, err := buildSQLiteDSN(Config{DSN: "file:custom.db"})
	require.NoError(t, err)
	require.Equal(t, "file:custom.db", override)
}

func requireContainsAll(t *testing.T, value string, parts ...string) {
	t.Helper()
	for _, part := range parts {
		require.True(t, strings.Contains(value, part), "%q missing %q", value, part)
	}
}

func TestLookupDialectAliases(t *testing.T) {
	for driver, want := range map[string]string{
		"":           "sqlite",
		" SQLite3 ":  "sqlite",
		"postgresql": "postgres",
		"MariaDB":    "mysql",
	} {
		d, err := lookupDialect(driver)
		require.NoError(t, err, driver)
		require.Equal(t, want, d.name)
	}

	_, err := lookupDialect("oracle")
	require.ErrorContains(t, err, "unsupported database driver")
}
