package entities

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MeetingRecord is the index row kept for every recorded meeting
type MeetingRecord struct {
	ID              uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	MeetingID       string         `json:"meeting_id" gorm:"type:varchar(64);not null;uniqueIndex"`
	MeetingName     string         `json:"meeting_name" gorm:"type:varchar(255)"`
	Folder          string         `json:"folder" gorm:"type:text;not null"`
	AudioFile       *string        `json:"audio_file,omitempty" gorm:"type:text"`
	TranscriptFile  *string        `json:"transcript_file,omitempty" gorm:"type:text"`
	Status          MeetingStatus  `json:"status" gorm:"type:varchar(20);not null;default:'recording';index"`
	DurationSeconds *float64       `json:"duration_seconds,omitempty"`
	SampleRate      int            `json:"sample_rate" gorm:"default:48000"`
	SegmentCount    int            `json:"segment_count" gorm:"default:0"`
	Devices         datatypes.JSON `json:"devices,omitempty" gorm:"type:jsonb"`
	ErrorMessage    *string        `json:"error_message,omitempty" gorm:"type:text"`
	StartedAt       time.Time      `json:"started_at" gorm:"not null"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (MeetingRecord) TableName() string {
	return "meetings"
}

// NewMeetingRecord builds an index row from a metadata document
func NewMeetingRecord(meta *MeetingMetadata, folder string) (*MeetingRecord, error) {
	if meta == nil || meta.MeetingID == nil || *meta.MeetingID == "" {
		return nil, ErrEmptyMeetingID
	}

	startedAt, err := time.Parse(time.RFC3339, meta.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", meta.CreatedAt, err)
	}

	rec := &MeetingRecord{
		ID:         uuid.New(),
		MeetingID:  *meta.MeetingID,
		Folder:     folder,
		SampleRate: int(meta.SampleRate),
		StartedAt:  startedAt,
	}
	if meta.MeetingName != nil {
		rec.MeetingName = *meta.MeetingName
	}
	if err := rec.ApplyMetadata(meta); err != nil {
		return nil, err
	}
	return rec, nil
}

// ApplyMetadata copies mutable metadata fields onto the row
func (r *MeetingRecord) ApplyMetadata(meta *MeetingMetadata) error {
	devices, err := json.Marshal(meta.Devices)
	if err != nil {
		return fmt.Errorf("failed to encode devices: %w", err)
	}
	r.Devices = datatypes.JSON(devices)
	r.Status = meta.Status
	r.DurationSeconds = meta.DurationSeconds
	r.ErrorMessage = meta.Error

	if meta.CompletedAt != nil {
		completedAt, err := time.Parse(time.RFC3339, *meta.CompletedAt)
		if err != nil {
			return fmt.Errorf("invalid completed_at %q: %w", *meta.CompletedAt, err)
		}
		r.CompletedAt = &completedAt
	}
	return nil
}

// IsCompleted checks if the meeting was saved
func (r *MeetingRecord) IsCompleted() bool {
	return r.Status == MeetingStatusCompleted
}

// IsFailed checks if saving the meeting failed
func (r *MeetingRecord) IsFailed() bool {
	return r.Status == MeetingStatusError
}
