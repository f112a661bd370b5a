package models

import (
	"strings"

	"gorm.io/datatypes"
)

// ProjectStatus is a stage in a project's production workflow.
type ProjectStatus string

const (
	StatusIdea       ProjectStatus = "idea"
	StatusInProgress ProjectStatus = "in-progress"
	StatusMixing     ProjectStatus = "mixing"
	StatusMastering  ProjectStatus = "mastering"
	StatusCompleted  ProjectStatus = "completed"
)

const (
	DefaultBPM = 120
	DefaultKey = "C"
)

var completionByStatus = map[ProjectStatus]int{
	StatusIdea:       0,
	StatusInProgress: 25,
	StatusMixing:     50,
	StatusMastering:  75,
	StatusCompleted:  100,
}

// CompletionFor maps a status to its completion percentage. Unknown statuses map to 0.
func CompletionFor(status ProjectStatus) int {
	return completionByStatus[status]
}

// Project is a track or beat in production.
type Project struct {
	OwnedModel

	Title       string                      `gorm:"type:varchar(200);not null" json:"title"`
	Description string                      `gorm:"type:text" json:"description,omitempty"`
	Status      ProjectStatus               `gorm:"type:varchar(20);not null;index" json:"status"`
	BPM         int                         `json:"bpm"`
	Key         string                      `gorm:"column:musical_key;type:varchar(12)" json:"key"`
	Genre       string                      `gorm:"type:varchar(80)" json:"genre,omitempty"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`

	CompletionPercentage int `gorm:"-" json:"completion_percentage"`
}

// Kind implements Record.
func (*Project) Kind() Kind { return KindProjects }

// Normalise fills defaults for optional fields and derives the completion percentage.
func (p *Project) Normalise() {
	p.Title = strings.TrimSpace(p.Title)
	p.Status = ProjectStatus(strings.ToLower(strings.TrimSpace(string(p.Status))))
	if p.Status == "" {
		p.Status = StatusIdea
	}
	if p.BPM <= 0 {
		p.BPM = DefaultBPM
	}
	if strings.TrimSpace(p.Key) == "" {
		p.Key = DefaultKey
	}
	if p.Tags == nil {
		p.Tags = datatypes.JSONSlice[string]{}
	}
	p.CompletionPercentage = CompletionFor(p.Status)
}
