package audio

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/johnquangdev/meeting-recorder/errors"
	"github.com/johnquangdev/meeting-recorder/internal/domain/entities"
)

func TestManifestRoundTripEscapesQuotes(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		filepath.Join(dir, "audio_chunk_000.wav"),
		filepath.Join(dir, "it's here", "audio_chunk_001.wav"),
	}
	manifest := filepath.Join(dir, ManifestName)
	require.NoError(t, WriteManifest(manifest, files))

	raw, err := os.ReadFile(manifest)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `it'\''s here`)

	got, err := ReadManifest(manifest)
	require.NoError(t, err)
	assert.Equal(t, files, got)
}

func TestCheckpointNameIsFixedWidth(t *testing.T) {
	assert.Equal(t, "audio_chunk_000.mp4", CheckpointName(0, "mp4"))
	assert.Equal(t, "audio_chunk_042.wav", CheckpointName(42, "wav"))
}

func TestFloatToPCM16Clamps(t *testing.T) {
	pcm := FloatToPCM16([]float32{0, 1, -1, 2, -3})
	assert.Equal(t, []int16{0, 32767, -32767, 32767, -32767}, pcm)
}

func TestRecoverCheckpointsAfterCrash(t *testing.T) {
	ctx := context.Background()
	folder := newMeetingFolder(t)
	s := newWAVSaver(t, folder, 100, 1)
	require.NoError(t, s.AddChunk(ctx, entities.NewAudioChunk(tone(320), 100, entities.DeviceTypeMicrophone)))
	// process dies here: 20 buffered samples are lost, three checkpoints remain

	res, err := RecoverCheckpoints(ctx, folder, nil, "", nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), res.Checkpoints)
	assert.Equal(t, "wav", res.Extension)

	n, err := WAVSampleCount(res.Output)
	require.NoError(t, err)
	assert.Equal(t, 300, n)

	_, err = os.Stat(filepath.Join(folder, CheckpointDirName))
	assert.True(t, os.IsNotExist(err))
}

func TestRecoverCheckpointsRejectsGap(t *testing.T) {
	ctx := context.Background()
	folder := newMeetingFolder(t)
	s := newWAVSaver(t, folder, 100, 1)
	require.NoError(t, s.AddChunk(ctx, entities.NewAudioChunk(tone(300), 100, entities.DeviceTypeMicrophone)))
	require.NoError(t, os.Remove(filepath.Join(s.CheckpointDir(), CheckpointName(0, "wav"))))

	_, err := RecoverCheckpoints(ctx, folder, nil, "", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrorCode_MISSING_CHECKPOINT, appErrors.CodeOf(err))
}

func TestRecoverCheckpointsWithoutFiles(t *testing.T) {
	_, err := RecoverCheckpoints(context.Background(), newMeetingFolder(t), nil, "", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrorCode_NO_CHECKPOINTS, appErrors.CodeOf(err))
}

func TestFFmpegEncodeAndMerge(t *testing.T) {
	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not installed")
	}

	ctx := context.Background()
	folder := newMeetingFolder(t)
	s, err := NewIncrementalSaver(folder, 16000, WithCheckpointSeconds(1), WithFormat("mp4", ffmpeg))
	require.NoError(t, err)

	require.NoError(t, s.AddChunk(ctx, entities.NewAudioChunk(tone(40000), 16000, entities.DeviceTypeMicrophone)))
	assert.Equal(t, uint32(2), s.CheckpointCount())

	out, err := s.Finalize(ctx)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(folder, "audio.mp4"), out)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
