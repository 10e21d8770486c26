package repositories

import (
	"context"
	"time"

	"github.com/johnquangdev/meeting-recorder/internal/domain/entities"
)

// MeetingRepository defines the interface for the meeting index
type MeetingRepository interface {
	// Upsert creates or updates the row for meetingID
	Upsert(ctx context.Context, record *entities.MeetingRecord) error

	// FindByMeetingID finds a meeting by its meeting id, nil if absent
	FindByMeetingID(ctx context.Context, meetingID string) (*entities.MeetingRecord, error)

	// ListRecent lists meetings started after since, newest first
	ListRecent(ctx context.Context, since time.Time, limit int) ([]*entities.MeetingRecord, error)

	// UpdateStatus updates the status of a meeting
	UpdateStatus(ctx context.Context, meetingID string, status entities.MeetingStatus) error
}

// EventPublisher fans recording events out to external consumers
type EventPublisher interface {
	Publish(ctx context.Context, event entities.RecordingEvent) error
}

// ArtifactStore keeps a remote copy of a saved meeting
type ArtifactStore interface {
	UploadArtifacts(ctx context.Context, meetingID string, files []string) ([]string, error)
}

// StatusStore caches the live status of the current session
type StatusStore interface {
	SetStatus(ctx context.Context, key string, value string, ttl time.Duration) error
	GetStatus(ctx context.Context, key string) (string, bool, error)
	DeleteStatus(ctx context.Context, key string) error
}
