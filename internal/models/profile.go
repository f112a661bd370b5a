package models

import "time"

// Profile holds the aggregate statistics shown on a user's dashboard.
// It lives only in the remote store.
type Profile struct {
	ID                string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Username          string    `gorm:"type:varchar(120)" json:"username,omitempty"`
	TotalBeats        int       `json:"total_beats"`
	CompletedProjects int       `json:"completed_projects"`
	TotalProjects     int       `json:"total_projects"`
	CompletionRate    int       `json:"completion_rate"`
	TotalSessions     int       `json:"total_sessions"`
	ProductivityScore int       `json:"productivity_score"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
}
