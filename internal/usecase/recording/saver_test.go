package recording

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/johnquangdev/meeting-recorder/errors"
	"github.com/johnquangdev/meeting-recorder/internal/adapter/repository"
	"github.com/johnquangdev/meeting-recorder/internal/domain/entities"
	"github.com/johnquangdev/meeting-recorder/internal/infrastructure/audio"
	usecaseErrors "github.com/johnquangdev/meeting-recorder/internal/usecase/errors"
)

func readTranscriptFile(t *testing.T, folder string) entities.TranscriptFile {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(folder, entities.DefaultTranscriptFile))
	require.NoError(t, err)
	var f entities.TranscriptFile
	require.NoError(t, json.Unmarshal(raw, &f))
	return f
}

func readMetadataFile(t *testing.T, folder string) entities.MeetingMetadata {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(folder, entities.MetadataFile))
	require.NoError(t, err)
	var m entities.MeetingMetadata
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func sendSamples(t *testing.T, sender *ChunkSender, sizes ...int) {
	t.Helper()
	for _, n := range sizes {
		require.True(t, sender.Send(entities.NewAudioChunk(make([]float32, n), testSampleRate, entities.DeviceTypeMicrophone)))
	}
}

func TestSanitizeFolderName(t *testing.T) {
	cases := map[string]string{
		"Weekly Sync":          "Weekly_Sync",
		"  Q3 / Planning: v2 ": "Q3_Planning_v2",
		"":                     "Meeting",
		"///":                  "Meeting",
		"Họp nhóm":             "Họp_nhóm",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeFolderName(in), in)
	}
	assert.Len(t, []rune(SanitizeFolderName(strings.Repeat("a", 300))), maxFolderNameLen)
}

func TestRecordingSaver_StartAccumulationCreatesLayout(t *testing.T) {
	base := t.TempDir()
	saver := newTestSaver(t, newStubPrefs(base))
	saver.SetMeetingName("Design Review")

	_, err := saver.StartAccumulation(context.Background())
	require.NoError(t, err)
	defer saver.StopAccumulation()

	folder := saver.MeetingFolder()
	assert.Equal(t, base, filepath.Dir(folder))
	assert.True(t, strings.HasPrefix(filepath.Base(folder), "Design_Review_"))
	assert.DirExists(t, filepath.Join(folder, audio.CheckpointDirName))

	meta := readMetadataFile(t, folder)
	assert.Equal(t, entities.MeetingStatusRecording, meta.Status)
	assert.Equal(t, "audio.wav", meta.AudioFile)
	require.NotNil(t, meta.MeetingName)
	assert.Equal(t, "Design Review", *meta.MeetingName)
	assert.Nil(t, meta.DurationSeconds)

	_, err = saver.StartAccumulation(context.Background())
	assert.Equal(t, appErrors.ErrorCode_ALREADY_RECORDING, appErrors.CodeOf(err))
}

func TestRecordingSaver_SecondFolderInSameSecondIsSuffixed(t *testing.T) {
	base := t.TempDir()
	now := time.Date(2026, 5, 4, 14, 30, 0, 0, time.UTC)

	first, err := createMeetingFolder(base, "Standup", now)
	require.NoError(t, err)
	second, err := createMeetingFolder(base, "Standup", now)
	require.NoError(t, err)

	assert.Equal(t, "Standup_2026-05-04_14-30-00", filepath.Base(first))
	assert.Equal(t, "Standup_2026-05-04_14-30-00_2", filepath.Base(second))
}

func TestRecordingSaver_StopAndSave(t *testing.T) {
	saver := newTestSaver(t, newStubPrefs(t.TempDir()))

	var saved []entities.RecordingSaved
	saver.AddListener(SavedListenerFunc(func(ctx context.Context, s entities.RecordingSaved) error {
		saved = append(saved, s)
		return nil
	}))

	sender, err := saver.StartAccumulation(context.Background())
	require.NoError(t, err)
	require.NoError(t, saver.SetDeviceInfo("USB Mic", "Speakers.monitor"))

	// 2.5 checkpoints worth of audio
	sendSamples(t, sender, 60, 60, 60, 60, 10)
	require.NoError(t, saver.AddTranscriptSegment(segment(1, "hello", 0, 1.2)))
	require.NoError(t, saver.AddTranscriptSegment(segment(2, "world", 1.2, 2.4)))

	duration := 2.5
	res, err := saver.StopAndSave(context.Background(), &duration)
	require.NoError(t, err)
	require.NotNil(t, res)

	folder := saver.MeetingFolder()
	assert.Equal(t, filepath.Join(folder, "audio.wav"), res.AudioFile)
	assert.Equal(t, 2, res.SegmentCount)

	n, err := audio.WAVSampleCount(res.AudioFile)
	require.NoError(t, err)
	assert.Equal(t, 250, n)
	assert.NoDirExists(t, filepath.Join(folder, audio.CheckpointDirName))

	meta := readMetadataFile(t, folder)
	assert.Equal(t, entities.MeetingStatusCompleted, meta.Status)
	require.NotNil(t, meta.DurationSeconds)
	assert.InDelta(t, 2.5, *meta.DurationSeconds, 1e-9)
	assert.NotNil(t, meta.CompletedAt)
	require.NotNil(t, meta.Devices.Microphone)
	assert.Equal(t, "USB Mic", *meta.Devices.Microphone)

	transcripts := readTranscriptFile(t, folder)
	assert.Equal(t, 2, transcripts.TotalSegments)

	require.Len(t, saved, 1)
	assert.Equal(t, res.MeetingID, saved[0].MeetingID)

	// the ingestion loop has exited, late chunks are dropped
	assert.False(t, sender.Send(entities.NewAudioChunk(make([]float32, 10), testSampleRate, entities.DeviceTypeMicrophone)))
	assert.Equal(t, int64(1), saver.Stats().ChunksDropped)
	assert.Equal(t, int64(5), saver.Stats().ChunksProcessed)
}

func TestRecordingSaver_DurationFallsBackToLastSegment(t *testing.T) {
	saver := newTestSaver(t, newStubPrefs(t.TempDir()))
	sender, err := saver.StartAccumulation(context.Background())
	require.NoError(t, err)

	sendSamples(t, sender, 100)
	require.NoError(t, saver.AddTranscriptSegment(segment(7, "only", 0.5, 3.25)))

	res, err := saver.StopAndSave(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, res.DurationSeconds)
	assert.InDelta(t, 3.25, *res.DurationSeconds, 1e-9)
}

func TestRecordingSaver_AutoSaveDisabled(t *testing.T) {
	prefs := newStubPrefs(t.TempDir())
	saver := newTestSaver(t, prefs)
	sender, err := saver.StartAccumulation(context.Background())
	require.NoError(t, err)
	sendSamples(t, sender, 150)

	prefs.setAutoSave(false)
	res, err := saver.StopAndSave(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, res)

	// the checkpoint stays on disk for recovery
	count, ext, err := audio.ScanCheckpoints(filepath.Join(saver.MeetingFolder(), audio.CheckpointDirName))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), count)
	assert.Equal(t, "wav", ext)
}

func TestRecordingSaver_NoAudioFailsAndMarksMetadata(t *testing.T) {
	saver := newTestSaver(t, newStubPrefs(t.TempDir()))
	_, err := saver.StartAccumulation(context.Background())
	require.NoError(t, err)

	_, err = saver.StopAndSave(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrorCode_NO_CHECKPOINTS, appErrors.CodeOf(err))

	meta := readMetadataFile(t, saver.MeetingFolder())
	assert.Equal(t, entities.MeetingStatusError, meta.Status)
	assert.NotNil(t, meta.Error)
}

func TestRecordingSaver_TranscriptUpsertIsIdempotent(t *testing.T) {
	saver := newTestSaver(t, newStubPrefs(t.TempDir()))
	_, err := saver.StartAccumulation(context.Background())
	require.NoError(t, err)
	defer saver.StopAccumulation()

	require.NoError(t, saver.AddTranscriptSegment(segment(1, "first draft", 0, 1)))
	require.NoError(t, saver.AddTranscriptSegment(segment(2, "second", 1, 2)))
	require.NoError(t, saver.AddTranscriptSegment(segment(1, "first final", 0, 1)))
	require.NoError(t, saver.AddTranscriptSegment(segment(1, "first final", 0, 1)))

	segs := saver.TranscriptSegments()
	require.Len(t, segs, 2)
	assert.Equal(t, "first final", segs[0].Text)
	assert.Equal(t, "second", segs[1].Text)

	onDisk := readTranscriptFile(t, saver.MeetingFolder())
	assert.Equal(t, 2, onDisk.TotalSegments)
	assert.Equal(t, "first final", onDisk.Segments[0].Text)
}

func TestRecordingSaver_SegmentsBeforeFolderStayInMemory(t *testing.T) {
	saver := newTestSaver(t, newStubPrefs(t.TempDir()))
	require.NoError(t, saver.AddTranscriptChunk("legacy text"))

	segs := saver.TranscriptSegments()
	require.Len(t, segs, 1)
	assert.Equal(t, uint64(0), segs[0].SequenceID)
	assert.Equal(t, "[00:00]", segs[0].DisplayTime)
	assert.Equal(t, "", saver.MeetingFolder())
}

func TestRecordingSaver_SetDeviceInfoBeforeStartIsNoop(t *testing.T) {
	saver := newTestSaver(t, newStubPrefs(t.TempDir()))
	assert.NoError(t, saver.SetDeviceInfo("mic", "system"))
	assert.Nil(t, saver.Metadata())
}

func TestIngestion_StopProcessesQueuedChunksFirst(t *testing.T) {
	adder := &countingAdder{}
	in, sender := startIngestion(context.Background(), adder, nil, nil, nil)

	for i := 0; i < 50; i++ {
		require.True(t, sender.Send(entities.AudioChunk{Samples: make([]float32, 2)}))
	}
	require.True(t, in.stop(time.Second))
	assert.Equal(t, 100, adder.total())
	assert.True(t, in.stopped())

	// second stop is a no-op
	assert.True(t, in.stop(time.Second))
}

type countingAdder struct {
	n int
}

func (c *countingAdder) AddChunk(ctx context.Context, chunk entities.AudioChunk) error {
	// only the ingestion goroutine calls AddChunk
	c.n += len(chunk.Samples)
	return nil
}

func (c *countingAdder) total() int { return c.n }

type slowEncoder struct {
	audio.WAVEncoder
	delay time.Duration
}

func (e slowEncoder) Encode(ctx context.Context, samples []float32, rate uint32, path string) error {
	time.Sleep(e.delay)
	return e.WAVEncoder.Encode(ctx, samples, rate, path)
}

func TestRecordingSaver_UndrainedQueueFailsSave(t *testing.T) {
	cfg := testSaverConfig()
	cfg.DrainTimeout = 200 * time.Millisecond
	saver := NewRecordingSaver(cfg, repository.NewSessionRepository(), newStubPrefs(t.TempDir()), nil, nil,
		WithAudioOptions(audio.WithEncoder(slowEncoder{delay: 100 * time.Millisecond})),
	)

	sender, err := saver.StartAccumulation(context.Background())
	require.NoError(t, err)
	// one checkpoint per chunk
	sendSamples(t, sender, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100)

	res, err := saver.StopAndSave(context.Background(), nil)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, appErrors.ErrorCode_LOCK_CONTENTION, appErrors.CodeOf(err))
	assert.ErrorIs(t, err, usecaseErrors.ErrIngestionNotDrained)
	assert.Equal(t, entities.MeetingStatusError, readMetadataFile(t, saver.MeetingFolder()).Status)

	// the loop keeps going and exits on its own
	require.Eventually(t, func() bool {
		return saver.Stats().ChunksProcessed == 10
	}, 5*time.Second, 20*time.Millisecond)

	res, err = saver.StopAndSave(context.Background(), nil)
	require.NoError(t, err)
	n, err := audio.WAVSampleCount(res.AudioFile)
	require.NoError(t, err)
	assert.Equal(t, 1000, n)
	assert.Equal(t, entities.MeetingStatusCompleted, readMetadataFile(t, saver.MeetingFolder()).Status)
}

func TestRecordingSaver_UnknownFileFormatFailsStart(t *testing.T) {
	base := t.TempDir()
	prefs := newStubPrefs(base)
	prefs.prefs.FileFormat = "flac"
	saver := newTestSaver(t, prefs)

	_, err := saver.StartAccumulation(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrorCode_CONFIGURATION, appErrors.CodeOf(err))

	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
