package transcriptions

import "errors"

var (
	// ErrTranscriptionNotFound is returned when a transcription is not found
	ErrTranscriptionNotFound = errors.New("transcription not found")

	// ErrInvalidJobID is returned when a job ID is invalid
	ErrInvalidJobID = errors.New("invalid job ID")

	// ErrNoEvents is returned when a transcription carries no drum events
	ErrNoEvents = errors.New("transcription has no events")
)
