package recording

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-recorder/internal/domain/entities"
	"github.com/johnquangdev/meeting-recorder/internal/domain/repositories"
	"github.com/johnquangdev/meeting-recorder/pkg/retry"
)

// MeetingIndexer mirrors every session into the meeting index. The
// metadata.json file stays the source of truth; index failures are logged.
type MeetingIndexer struct {
	meetings repositories.MeetingRepository
	store    repositories.SessionRepository
	logger   *zap.Logger
}

func NewMeetingIndexer(meetings repositories.MeetingRepository, store repositories.SessionRepository, logger *zap.Logger) *MeetingIndexer {
	return &MeetingIndexer{meetings: meetings, store: store, logger: logger}
}

// Started inserts the row of a freshly created meeting folder
func (i *MeetingIndexer) Started(ctx context.Context, meta *entities.MeetingMetadata, folder string) {
	if i == nil || meta == nil {
		return
	}
	rec, err := entities.NewMeetingRecord(meta, folder)
	if err != nil {
		i.warn("⚠️ Cannot index meeting", err)
		return
	}
	if err := i.meetings.Upsert(ctx, rec); err != nil {
		i.warn("⚠️ Failed to index meeting", err)
	}
}

// OnRecordingSaved refreshes the row from the metadata written by the save
func (i *MeetingIndexer) OnRecordingSaved(ctx context.Context, saved entities.RecordingSaved) error {
	meta, err := i.store.ReadMetadata(saved.MeetingFolder)
	if err != nil {
		return err
	}

	rec, err := i.meetings.FindByMeetingID(ctx, saved.MeetingID)
	if err != nil {
		return err
	}
	if rec == nil {
		if rec, err = entities.NewMeetingRecord(meta, saved.MeetingFolder); err != nil {
			return err
		}
	} else if err := rec.ApplyMetadata(meta); err != nil {
		return err
	}

	rec.AudioFile = &saved.AudioFile
	rec.TranscriptFile = &saved.TranscriptFile
	rec.SegmentCount = saved.SegmentCount
	if saved.MeetingName != nil {
		rec.MeetingName = *saved.MeetingName
	}
	return i.meetings.Upsert(ctx, rec)
}

func (i *MeetingIndexer) warn(msg string, err error) {
	if i.logger != nil {
		i.logger.Warn(msg, zap.Error(err))
	}
}

// ArtifactUploader copies saved meetings to remote storage in the
// background. Wait blocks until every pending upload finished.
type ArtifactUploader struct {
	store   repositories.ArtifactStore
	policy  retry.Policy
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
}

func NewArtifactUploader(store repositories.ArtifactStore, logger *zap.Logger) *ArtifactUploader {
	return &ArtifactUploader{
		store:   store,
		policy:  retry.DefaultPolicy,
		timeout: 10 * time.Minute,
		logger:  logger,
	}
}

func (u *ArtifactUploader) OnRecordingSaved(ctx context.Context, saved entities.RecordingSaved) error {
	files := []string{
		saved.AudioFile,
		saved.TranscriptFile,
		filepath.Join(saved.MeetingFolder, entities.MetadataFile),
	}

	u.wg.Add(1)
	go func() {
		defer u.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.timeout)
		defer cancel()

		var keys []string
		err := retry.Do(ctx, u.policy, func(ctx context.Context) error {
			var err error
			keys, err = u.store.UploadArtifacts(ctx, saved.MeetingID, files)
			return err
		})
		if u.logger == nil {
			return
		}
		if err != nil {
			u.logger.Error("❌ Failed to upload meeting artifacts",
				zap.String("meeting_id", saved.MeetingID),
				zap.Error(err),
			)
			return
		}
		u.logger.Info("☁️ Meeting artifacts uploaded",
			zap.String("meeting_id", saved.MeetingID),
			zap.Strings("keys", keys),
		)
	}()
	return nil
}

// Wait blocks until pending uploads are done
func (u *ArtifactUploader) Wait() {
	u.wg.Wait()
}
