package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/charlesng35/wavtrack/internal/models"
)

func recordModels() []interface{} {
	return []interface{}{
		&models.Project{},
		&models.Sample{},
		&models.StudioSession{},
		&models.Note{},
		&models.BeatActivity{},
	}
}

// RemoteAutoMigrate creates or updates the schema of the authoritative store.
func RemoteAutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}
	tables := append(recordModels(), &models.Profile{})
	if err := db.AutoMigrate(tables...); err != nil {
		return fmt.Errorf("remote auto migrate: %w", err)
	}
	return nil
}

// LocalAutoMigrate creates or updates the durable local store schema,
// including the outbox.
func LocalAutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}
	tables := append(recordModels(), &models.OutboxEntry{})
	if err := db.AutoMigrate(tables...); err != nil {
		return fmt.Errorf("local auto migrate: %w", err)
	}
	return nil
}
