package app

import (
	"strings"

	"github.com/charlesng35/wavtrack/internal/database"
)

// DatabaseConfig converts the remote store settings into the database package representation.
func (c DatabaseConfig) DatabaseConfig() database.Config {
	return database.Config{
		Driver:          strings.TrimSpace(c.Driver),
		Path:            strings.TrimSpace(c.Path),
		DSN:             strings.TrimSpace(c.DSN),
		Host:            strings.TrimSpace(c.Host),
		Port:            c.Port,
		Name:            strings.TrimSpace(c.Name),
		User:            strings.TrimSpace(c.User),
		Password:        c.Password,
		Options:         c.Options,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
}

// DatabaseConfig returns the SQLite settings for the durable local store.
func (c LocalConfig) DatabaseConfig() database.Config {
	return database.Config{
		Driver: "sqlite",
		Path:   strings.TrimSpace(c.Path),
	}
}
