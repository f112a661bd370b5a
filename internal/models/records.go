package models

import "time"

// Sample is an audio file attached to a project.
type Sample struct {
	OwnedModel

	ProjectID       string  `gorm:"type:varchar(36);not null;index" json:"project_id"`
	Name            string  `gorm:"type:varchar(200);not null" json:"name"`
	FileURL         string  `gorm:"type:text" json:"file_url,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
	BPM             int     `json:"bpm,omitempty"`
	Key             string  `gorm:"column:musical_key;type:varchar(12)" json:"key,omitempty"`
}

// Kind implements Record.
func (*Sample) Kind() Kind { return KindSamples }

// StudioSession is a block of time spent working on a project.
type StudioSession struct {
	OwnedModel

	ProjectID       string    `gorm:"type:varchar(36);not null;index" json:"project_id"`
	DurationMinutes int       `json:"duration_minutes"`
	Date            time.Time `gorm:"index" json:"date"`
	Notes           string    `gorm:"type:text" json:"notes,omitempty"`
}

// TableName keeps the collection name independent of the Go type name.
func (StudioSession) TableName() string { return string(KindSessions) }

// Kind implements Record.
func (*StudioSession) Kind() Kind { return KindSessions }

// Note is free text attached to a project.
type Note struct {
	OwnedModel

	ProjectID string `gorm:"type:varchar(36);not null;index" json:"project_id"`
	Title     string `gorm:"type:varchar(200)" json:"title"`
	Content   string `gorm:"type:text" json:"content"`
}

// Kind implements Record.
func (*Note) Kind() Kind { return KindNotes }

// BeatActivity records beats produced for a project at a point in time.
type BeatActivity struct {
	OwnedModel

	ProjectID string    `gorm:"type:varchar(36);not null;index" json:"project_id"`
	Date      time.Time `gorm:"not null;index" json:"date"`
	Count     int       `gorm:"not null" json:"count"`
}

// Kind implements Record.
func (*BeatActivity) Kind() Kind { return KindBeatActivities }
