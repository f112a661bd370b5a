package database

import (
	"fmt"
	"sort"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// dialect knows how to address one database engine.
type dialect struct {
	name      string
	dsn       func(Config) (string, error)
	dialector func(string) gorm.Dialector
	// prepare runs once against a freshly opened handle.
	prepare func(*gorm.DB) error
}

var (
	sqliteDialect   = dialect{name: "sqlite", dsn: buildSQLiteDSN, dialector: sqlite.Open, prepare: prepareSQLite}
	postgresDialect = dialect{name: "postgres", dsn: buildPostgresDSN, dialector: postgres.Open}
	mysqlDialect    = dialect{name: "mysql", dsn: buildMySQLDSN, dialector: mysql.Open}
)

var dialects = map[string]dialect{
	"":           sqliteDialect,
	"sqlite":     sqliteDialect,
	"sqlite3":    sqliteDialect,
	"postgres":   postgresDialect,
	"postgresql": postgresDialect,
	"mysql":      mysqlDialect,
	"mariadb":    mysqlDialect,
}

func lookupDialect(driver string) (dialect, error) {
	d, ok := dialects[strings.ToLower(strings.TrimSpace(driver))]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
	return d, nil
}

// serverTarget is the host/credential part shared by networked engines.
type serverTarget struct {
	host     string
	port     int
	user     string
	password string
	name     string
	options  map[string]string
}

func resolveServerTarget(cfg Config, engine, defaultHost string, defaultPort int, baseOptions map[string]string) (serverTarget, error) {
	if cfg.User == "" || cfg.Name == "" {
		return serverTarget{}, fmt.Errorf("%s configuration requires user and database name", engine)
	}
	target := serverTarget{
		host:     cfg.Host,
		port:     cfg.Port,
		user:     cfg.User,
		password: cfg.Password,
		name:     cfg.Name,
		options:  make(map[string]string, len(baseOptions)+len(cfg.Options)),
	}
	if target.host == "" {
		target.host = defaultHost
	}
	if target.port == 0 {
		target.port = defaultPort
	}
	for k, v := range baseOptions {
		target.options[k] = v
	}
	for k, v := range cfg.Options {
		target.options[k] = v
	}
	return target, nil
}

// Both engines store and read timestamps in UTC.
func buildPostgresDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	t, err := resolveServerTarget(cfg, "postgres", "localhost", 5432, map[string]string{
		"sslmode":  "disable",
		"TimeZone": "UTC",
	})
	if err != nil {
		return "", err
	}

	parts := []string{
		fmt.Sprintf("host=%s", t.host),
		fmt.Sprintf("port=%d", t.port),
		fmt.Sprintf("user=%s", t.user),
		fmt.Sprintf("dbname=%s", t.name),
	}
	if t.password != "" {
		parts = append(parts, "password="+t.password)
	}
	return strings.Join(append(parts, sortedPairs(t.options)...), " "), nil
}

func buildMySQLDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	t, err := resolveServerTarget(cfg, "mysql", "127.0.0.1", 3306, map[string]string{
		"charset":   "utf8mb4",
		"parseTime": "True",
		"loc":       "UTC",
	})
	if err != nil {
		return "", err
	}

	credentials := t.user
	if t.password != "" {
		credentials += ":" + t.password
	}
	return fmt.Sprintf("%s@tcp(%s:%d)/%s?%s", credentials, t.host, t.port, t.name, strings.Join(sortedPairs(t.options), "&")), nil
}

func sortedPairs(options map[string]string) []string {
	keys := make([]string, 0, len(options))
	for key := range options {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, key := range keys {
		pairs[i] = key + "=" + options[key]
	}
	return pairs
}
