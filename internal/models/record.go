package models

import (
	"encoding/json"
	"fmt"
)

// Kind names a record collection. Values double as table names.
type Kind string

const (
	KindProjects       Kind = "projects"
	KindSamples        Kind = "samples"
	KindSessions       Kind = "sessions"
	KindNotes          Kind = "notes"
	KindBeatActivities Kind = "beat_activities"
)

// Kinds lists every synced collection.
var Kinds = []Kind{KindProjects, KindSamples, KindSessions, KindNotes, KindBeatActivities}

// Record is implemented by every model the local store and outbox handle.
type Record interface {
	Kind() Kind
	GetID() string
	GetOwnerID() string
}

// Valid reports whether k names a known collection.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// New returns an empty record of kind k.
func (k Kind) New() (Record, error) {
	switch k {
	case KindProjects:
		return &Project{}, nil
	case KindSamples:
		return &Sample{}, nil
	case KindSessions:
		return &StudioSession{}, nil
	case KindNotes:
		return &Note{}, nil
	case KindBeatActivities:
		return &BeatActivity{}, nil
	default:
		return nil, fmt.Errorf("models: unknown record kind %q", k)
	}
}

// DecodeRecord unmarshals payload into a new record of kind k.
func DecodeRecord(k Kind, payload []byte) (Record, error) {
	rec, err := k.New()
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, rec); err != nil {
		return nil, fmt.Errorf("models: decode %s payload: %w", k, err)
	}
	return rec, nil
}
