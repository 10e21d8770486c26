package repository

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/meeting-recorder/internal/domain/entities"
)

func TestWriteMetadataIsPrettyAndAtomic(t *testing.T) {
	folder := t.TempDir()
	repo := NewSessionRepository()
	meta := entities.NewMeetingMetadata("", "Weekly sync", "audio.mp4", 48000, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	require.NoError(t, repo.WriteMetadata(folder, meta))

	raw, err := os.ReadFile(filepath.Join(folder, MetadataFileName))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "{\n  \"version\": \"1.0\""), string(raw))
	assert.Contains(t, string(raw), `"duration_seconds": null`)

	_, err = os.Stat(filepath.Join(folder, ".metadata.json.tmp"))
	assert.True(t, os.IsNotExist(err), "temp file must be renamed away")

	got, err := repo.ReadMetadata(folder)
	require.NoError(t, err)
	assert.Equal(t, entities.MeetingStatusRecording, got.Status)
	assert.Equal(t, "Weekly sync", *got.MeetingName)
	assert.Nil(t, got.MeetingID)
}

func TestWriteTranscriptsReplacesPreviousVersion(t *testing.T) {
	folder := t.TempDir()
	repo := NewSessionRepository()
	now := time.Now()

	first := entities.NewTranscriptFile([]entities.TranscriptSegment{{ID: "a", Text: "hello", SequenceID: 1}}, now)
	require.NoError(t, repo.WriteTranscripts(folder, first))

	second := entities.NewTranscriptFile([]entities.TranscriptSegment{
		{ID: "a", Text: "hello there", SequenceID: 1},
		{ID: "b", Text: "general", SequenceID: 2},
	}, now)
	require.NoError(t, repo.WriteTranscripts(folder, second))

	got, err := repo.ReadTranscripts(folder)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalSegments)
	assert.Equal(t, "hello there", got.Segments[0].Text)

	var generic map[string]interface{}
	raw, err := os.ReadFile(repo.TranscriptPath(folder))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.ElementsMatch(t, []string{"version", "segments", "last_updated", "total_segments"}, keys(generic))
}

func TestWriteIntoMissingFolderFails(t *testing.T) {
	repo := NewSessionRepository()
	err := repo.WriteTranscripts(filepath.Join(t.TempDir(), "gone"), entities.NewTranscriptFile(nil, time.Now()))
	assert.Error(t, err)
}

func keys(m map[string]interface{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
