package persistence

import (
	"database/sql"
	"time"
)

// transcription types
const (
	TypeLive       = "live"
	TypeFileUpload = "file_upload"
)

// StatusCompleted is the only record status for now
const StatusCompleted = "completed"

// Transcript is a row of the transcriptions table.
// Records are insert only - no update nor delete exists
type Transcript struct {
	ID                string
	Text              string
	Language          string
	AudioSize         int64
	Duration          float64
	FileName          sql.NullString
	FileType          sql.NullString
	Confidence        sql.NullFloat64
	TranscriptionType string
	WordCount         int
	CharCount         int
	Status            string
	Created           time.Time
}
