package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	appErrors "github.com/johnquangdev/meeting-recorder/errors"
	"github.com/johnquangdev/meeting-recorder/internal/domain/entities"
	"github.com/johnquangdev/meeting-recorder/internal/domain/repositories"
)

const defaultListLimit = 50

// meetingRepository implements the MeetingRepository interface
type meetingRepository struct {
	db *gorm.DB
}

// NewMeetingRepository creates a new meeting repository
func NewMeetingRepository(db *gorm.DB) repositories.MeetingRepository {
	return &meetingRepository{db: db}
}

// Upsert inserts the row or replaces every column of the row with the same meeting id
func (r *meetingRepository) Upsert(ctx context.Context, record *entities.MeetingRecord) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "meeting_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"meeting_name", "folder", "audio_file", "transcript_file", "status",
				"duration_seconds", "sample_rate", "segment_count", "devices",
				"error_message", "completed_at", "updated_at",
			}),
		}).
		Create(record).Error
	if err != nil {
		return appErrors.ErrDBQueryFailed("upsert meeting", err)
	}
	return nil
}

// FindByMeetingID retrieves a meeting by its meeting id
func (r *meetingRepository) FindByMeetingID(ctx context.Context, meetingID string) (*entities.MeetingRecord, error) {
	var record entities.MeetingRecord
	err := r.db.WithContext(ctx).
		Where("meeting_id = ?", meetingID).
		First(&record).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, appErrors.ErrDBQueryFailed("find meeting", err)
	}
	return &record, nil
}

// ListRecent lists meetings started at or after since, newest first
func (r *meetingRepository) ListRecent(ctx context.Context, since time.Time, limit int) ([]*entities.MeetingRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	var records []*entities.MeetingRecord
	err := r.db.WithContext(ctx).
		Where("started_at >= ?", since).
		Order("started_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, appErrors.ErrDBQueryFailed("list meetings", err)
	}
	return records, nil
}

// UpdateStatus updates the status of a meeting
func (r *meetingRepository) UpdateStatus(ctx context.Context, meetingID string, status entities.MeetingStatus) error {
	result := r.db.WithContext(ctx).
		Model(&entities.MeetingRecord{}).
		Where("meeting_id = ?", meetingID).
		Update("status", status)
	if result.Error != nil {
		return appErrors.ErrDBQueryFailed("update meeting status", result.Error)
	}
	if result.RowsAffected == 0 {
		return appErrors.ErrNotFound("meeting")
	}
	return nil
}
