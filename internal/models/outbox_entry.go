package models

import (
	"time"

	"gorm.io/datatypes"
)

// Operation is the mutation an outbox entry replays.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// OutboxEntry is a local mutation awaiting replay against the remote store.
// Entries replay in ascending ID order.
type OutboxEntry struct {
	ID             uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Timestamp      time.Time      `gorm:"not null;index" json:"timestamp"`
	Operation      Operation      `gorm:"type:varchar(10);not null" json:"operation"`
	RecordKind     Kind           `gorm:"type:varchar(32);not null;index" json:"record_kind"`
	RecordID       string         `gorm:"type:varchar(36);index" json:"record_id"`
	UserID         string         `gorm:"type:varchar(36);index" json:"user_id,omitempty"`
	Payload        datatypes.JSON `json:"payload"`
	Attempts       int            `gorm:"not null;default:0" json:"attempts"`
	LastError      string         `gorm:"type:text" json:"last_error,omitempty"`
	LastAttemptAt  *time.Time     `json:"last_attempt_at,omitempty"`
	DeadLetteredAt *time.Time     `gorm:"index" json:"dead_lettered_at,omitempty"`
}

// TableName matches the durable queue's collection name.
func (OutboxEntry) TableName() string { return "sync_queue" }

// DeletePayload is the payload recorded for delete operations.
type DeletePayload struct {
	ID string `json:"id"`
}
