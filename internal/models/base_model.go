package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel provides shared fields for all synced records. Timestamps are set
// by the caller so replayed writes keep their original times.
type BaseModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `gorm:"index;autoCreateTime:false" json:"created_at"`
	UpdatedAt time.Time `gorm:"index;autoUpdateTime:false" json:"updated_at"`
}

// BeforeCreate fills identifiers and timestamps left empty by the caller.
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = m.CreatedAt
	}
	return nil
}

// GetID returns the record identifier.
func (m *BaseModel) GetID() string {
	return m.ID
}

// Touch stamps the record as modified at now, filling CreatedAt on first use.
func (m *BaseModel) Touch(now time.Time) {
	now = now.UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
}

// OwnedModel is a BaseModel scoped to a single user.
type OwnedModel struct {
	BaseModel
	UserID string `gorm:"type:varchar(36);not null;index" json:"user_id"`
}

// GetOwnerID returns the owning user's identifier.
func (m *OwnedModel) GetOwnerID() string {
	return m.UserID
}
