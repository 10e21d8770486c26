package recording

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-recorder/internal/domain/entities"
	"github.com/johnquangdev/meeting-recorder/internal/domain/repositories"
	"github.com/johnquangdev/meeting-recorder/internal/infrastructure/audio"
)

// Recoverer finishes meeting folders left behind by an interrupted session
type Recoverer struct {
	store      repositories.SessionRepository
	muxer      audio.Muxer
	ffmpegPath string
	logger     *zap.Logger
	listeners  []SavedListener
	now        func() time.Time
}

// NewRecoverer creates a Recoverer. A nil muxer picks one from the checkpoint format.
func NewRecoverer(store repositories.SessionRepository, muxer audio.Muxer, ffmpegPath string, logger *zap.Logger, listeners ...SavedListener) *Recoverer {
	return &Recoverer{
		store:      store,
		muxer:      muxer,
		ffmpegPath: ffmpegPath,
		logger:     logger,
		listeners:  listeners,
		now:        time.Now,
	}
}

// RecoverSession merges the checkpoints in folder, marks the metadata
// completed and removes the checkpoints. The duration comes from the last
// transcript segment when transcripts exist.
func (r *Recoverer) RecoverSession(ctx context.Context, folder string) (*SaveResult, error) {
	res, err := audio.RecoverCheckpoints(ctx, folder, r.muxer, r.ffmpegPath, r.logger)
	if err != nil {
		return nil, err
	}

	meta, err := r.store.ReadMetadata(folder)
	if err != nil {
		// metadata.json is written when the folder is created; rebuild a minimal one if it was lost
		if r.logger != nil {
			r.logger.Warn("⚠️ Metadata unreadable, rebuilding", zap.String("folder", folder), zap.Error(err))
		}
		meta = entities.NewMeetingMetadata(uuid.NewString(), filepath.Base(folder), filepath.Base(res.Output), entities.DefaultSampleRate, r.now())
	}
	meta.AudioFile = filepath.Base(res.Output)

	var (
		segments []entities.TranscriptSegment
		duration *float64
	)
	transcriptPath := r.store.TranscriptPath(folder)
	if tf, err := r.store.ReadTranscripts(folder); err == nil {
		segments = tf.Segments
	} else if !os.IsNotExist(err) && r.logger != nil {
		r.logger.Warn("⚠️ Transcripts unreadable", zap.String("folder", folder), zap.Error(err))
	}
	if len(segments) > 0 {
		end := segments[len(segments)-1].AudioEndTime
		duration = &end
	} else {
		// keep an empty transcripts.json next to the audio
		if err := r.store.WriteTranscripts(folder, entities.NewTranscriptFile(nil, r.now())); err != nil {
			return nil, err
		}
	}

	meta.MarkAsCompleted(r.now(), duration)
	if err := r.store.WriteMetadata(folder, meta); err != nil {
		return nil, err
	}

	result := &SaveResult{
		MeetingID:       derefString(meta.MeetingID),
		MeetingName:     meta.MeetingName,
		MeetingFolder:   folder,
		AudioFile:       res.Output,
		TranscriptFile:  transcriptPath,
		DurationSeconds: duration,
		SegmentCount:    len(segments),
	}

	if r.logger != nil {
		r.logger.Info("✅ Session recovered",
			zap.String("folder", folder),
			zap.Uint32("checkpoints", res.Checkpoints),
			zap.Int("segments", len(segments)),
		)
	}

	saved := entities.RecordingSaved{
		MeetingID:      result.MeetingID,
		AudioFile:      result.AudioFile,
		TranscriptFile: transcriptPath,
		MeetingName:    result.MeetingName,
		MeetingFolder:  folder,
		SegmentCount:   len(segments),
	}
	for _, l := range r.listeners {
		if err := l.OnRecordingSaved(ctx, saved); err != nil && r.logger != nil {
			r.logger.Warn("⚠️ Recording-saved listener failed", zap.String("meeting_id", saved.MeetingID), zap.Error(err))
		}
	}
	return result, nil
}
