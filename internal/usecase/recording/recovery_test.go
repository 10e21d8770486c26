package recording

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/johnquangdev/meeting-recorder/errors"
	"github.com/johnquangdev/meeting-recorder/internal/adapter/repository"
	"github.com/johnquangdev/meeting-recorder/internal/domain/entities"
	"github.com/johnquangdev/meeting-recorder/internal/infrastructure/audio"
)

// crashedFolder leaves a meeting folder the way a killed process would:
// metadata still "recording" and checkpoints that were never merged.
func crashedFolder(t *testing.T, checkpoints int, segments ...entities.TranscriptSegment) string {
	t.Helper()
	folder := filepath.Join(t.TempDir(), "Standup_2026-05-04_14-30-00")
	require.NoError(t, audio.EnsureLayout(folder))

	store := repository.NewSessionRepository()
	meta := entities.NewMeetingMetadata("m-crash", "Standup", "audio.wav", testSampleRate, time.Now())
	require.NoError(t, store.WriteMetadata(folder, meta))
	if len(segments) > 0 {
		require.NoError(t, store.WriteTranscripts(folder, entities.NewTranscriptFile(segments, time.Now())))
	}

	for i := 0; i < checkpoints; i++ {
		path := filepath.Join(folder, audio.CheckpointDirName, audio.CheckpointName(uint32(i), "wav"))
		require.NoError(t, audio.WAVEncoder{}.Encode(context.Background(), make([]float32, 100), testSampleRate, path))
	}
	return folder
}

func TestRecoverer_RecoverSession(t *testing.T) {
	folder := crashedFolder(t, 3, segment(1, "a", 0, 1), segment(2, "b", 1, 2.75))

	var saved []entities.RecordingSaved
	r := NewRecoverer(repository.NewSessionRepository(), nil, "", nil,
		SavedListenerFunc(func(ctx context.Context, s entities.RecordingSaved) error {
			saved = append(saved, s)
			return nil
		}))

	res, err := r.RecoverSession(context.Background(), folder)
	require.NoError(t, err)
	assert.Equal(t, "m-crash", res.MeetingID)
	assert.Equal(t, 2, res.SegmentCount)

	n, err := audio.WAVSampleCount(res.AudioFile)
	require.NoError(t, err)
	assert.Equal(t, 300, n)
	assert.NoDirExists(t, filepath.Join(folder, audio.CheckpointDirName))

	meta := readMetadataFile(t, folder)
	assert.Equal(t, entities.MeetingStatusCompleted, meta.Status)
	require.NotNil(t, meta.DurationSeconds)
	assert.InDelta(t, 2.75, *meta.DurationSeconds, 1e-9)

	require.Len(t, saved, 1)
	assert.Equal(t, res.AudioFile, saved[0].AudioFile)
}

func TestRecoverer_NoTranscriptsLeavesDurationUnknown(t *testing.T) {
	folder := crashedFolder(t, 1)
	r := NewRecoverer(repository.NewSessionRepository(), nil, "", nil)

	res, err := r.RecoverSession(context.Background(), folder)
	require.NoError(t, err)
	assert.Nil(t, res.DurationSeconds)

	assert.Equal(t, 0, readTranscriptFile(t, folder).TotalSegments)
	assert.Nil(t, readMetadataFile(t, folder).DurationSeconds)
}

func TestRecoverer_Failures(t *testing.T) {
	r := NewRecoverer(repository.NewSessionRepository(), nil, "", nil)

	_, err := r.RecoverSession(context.Background(), crashedFolder(t, 0))
	assert.Equal(t, appErrors.ErrorCode_NO_CHECKPOINTS, appErrors.CodeOf(err))

	_, err = r.RecoverSession(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Equal(t, appErrors.ErrorCode_NO_CHECKPOINTS, appErrors.CodeOf(err))
}
