package repositories

import (
	"github.com/johnquangdev/meeting-recorder/internal/domain/entities"
)

// SessionRepository persists the documents of one meeting folder.
// Writes are atomic: a reader sees either the previous or the new file.
type SessionRepository interface {
	// WriteMetadata replaces metadata.json in folder
	WriteMetadata(folder string, metadata *entities.MeetingMetadata) error

	// ReadMetadata loads metadata.json from folder
	ReadMetadata(folder string) (*entities.MeetingMetadata, error)

	// WriteTranscripts replaces transcripts.json in folder
	WriteTranscripts(folder string, file entities.TranscriptFile) error

	// ReadTranscripts loads transcripts.json from folder
	ReadTranscripts(folder string) (*entities.TranscriptFile, error)

	// TranscriptPath returns where transcripts.json lives for folder
	TranscriptPath(folder string) string
}
