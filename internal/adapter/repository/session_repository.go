package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/johnquangdev/meeting-recorder/internal/domain/entities"
	"github.com/johnquangdev/meeting-recorder/internal/domain/repositories"
)

const (
	MetadataFileName = entities.MetadataFile
)

// SessionRepository implements the session repository interface on the local filesystem
type SessionRepository struct {
	// serializes writers of the same target so two temp files never race on rename
	mu sync.Mutex
}

var _ repositories.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a new session repository
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{}
}

// WriteMetadata writes metadata.json through .metadata.json.tmp
func (r *SessionRepository) WriteMetadata(folder string, metadata *entities.MeetingMetadata) error {
	if metadata == nil {
		return fmt.Errorf("metadata is nil")
	}
	return r.writeJSON(folder, MetadataFileName, metadata)
}

// ReadMetadata loads metadata.json
func (r *SessionRepository) ReadMetadata(folder string) (*entities.MeetingMetadata, error) {
	var m entities.MeetingMetadata
	if err := readJSON(filepath.Join(folder, MetadataFileName), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// WriteTranscripts writes transcripts.json through .transcripts.json.tmp
func (r *SessionRepository) WriteTranscripts(folder string, file entities.TranscriptFile) error {
	return r.writeJSON(folder, entities.DefaultTranscriptFile, file)
}

// ReadTranscripts loads transcripts.json
func (r *SessionRepository) ReadTranscripts(folder string) (*entities.TranscriptFile, error) {
	var f entities.TranscriptFile
	if err := readJSON(r.TranscriptPath(folder), &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *SessionRepository) TranscriptPath(folder string) string {
	return filepath.Join(folder, entities.DefaultTranscriptFile)
}

// writeJSON pretty-prints v with a 2-space indent into a hidden temp file,
// syncs it and renames it over name.
func (r *SessionRepository) writeJSON(folder, name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	target := filepath.Join(folder, name)
	tmp := filepath.Join(folder, "."+name+".tmp")

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", target, err)
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
