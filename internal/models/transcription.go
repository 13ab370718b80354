package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/drumscribe/drumscribe-api/internal/transcribe"
)

// Transcription holds the drum transcription produced by a completed job:
// the event timeline and the cluster summaries, stored as JSON columns so
// relabel round-trips read and write the same structures the engine emits.
type Transcription struct {
	gorm.Model
	JobID      uint        `json:"job_id" gorm:"not null;uniqueIndex"`
	SourceHash string      `json:"source_hash" gorm:"index"` // SHA-256 of the original audio
	BPM        float64     `json:"bpm" gorm:"not null"`
	Duration   float64     `json:"duration"` // Decoded audio duration in seconds
	SampleRate int         `json:"sample_rate"`
	StemMode   bool        `json:"stem_mode"` // true when transcribed from drumsep stems
	Events     EventList   `json:"events" gorm:"type:json"`
	Clusters   ClusterList `json:"clusters" gorm:"type:json"`
	MIDIPath   string      `json:"-"` // Rendered SMF location under the job's data dir
}

// EventList stores the event timeline as a JSON column.
type EventList []transcribe.DrumEvent

// Value implements driver.Valuer interface for EventList
func (l EventList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]transcribe.DrumEvent{})
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner interface for EventList
func (l *EventList) Scan(value interface{}) error {
	if value == nil {
		*l = EventList{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, l)
}

// ClusterList stores the cluster summaries as a JSON column.
type ClusterList []transcribe.ClusterInfo

// Value implements driver.Valuer interface for ClusterList
func (l ClusterList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]transcribe.ClusterInfo{})
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner interface for ClusterList
func (l *ClusterList) Scan(value interface{}) error {
	if value == nil {
		*l = ClusterList{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, l)
}

// TableName specifies the table name for Transcription
func (Transcription) TableName() string {
	return "transcriptions"
}
