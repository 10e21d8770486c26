package ai

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-recorder/pkg/config"
)

type fakeTranscriber struct {
	transcript aai.Transcript
	err        error
	body       []byte
	params     *aai.TranscriptOptionalParams
}

func (f *fakeTranscriber) TranscribeFromReader(ctx context.Context, r io.Reader, params *aai.TranscriptOptionalParams) (aai.Transcript, error) {
	f.body, _ = io.ReadAll(r)
	f.params = params
	return f.transcript, f.err
}

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o644))
	return path
}

func TestNewAssemblyAIEngine_RequiresKey(t *testing.T) {
	assert.Nil(t, NewAssemblyAIEngine(config.TranscriptionConfig{}, nil))

	e := NewAssemblyAIEngine(config.TranscriptionConfig{APIKey: "k", LanguageCode: "en"}, nil)
	require.NotNil(t, e)
	assert.Equal(t, EngineName, e.Name())
	assert.NoError(t, e.Close())
}

func TestAssemblyAIEngine_TranscribeFile(t *testing.T) {
	fake := &fakeTranscriber{transcript: aai.Transcript{
		Status: aai.TranscriptStatusCompleted,
		Utterances: []aai.TranscriptUtterance{
			{Speaker: aai.String("A"), Text: aai.String("good morning"), Start: aai.Int64(0), End: aai.Int64(1500), Confidence: aai.Float64(0.9)},
			{Speaker: aai.String("B"), Text: aai.String("  "), Start: aai.Int64(1500), End: aai.Int64(1600)},
			{Speaker: aai.String("B"), Text: aai.String("hi"), Start: aai.Int64(61000), End: aai.Int64(62250), Confidence: aai.Float64(0.8)},
		},
	}}
	e := &AssemblyAIEngine{transcripts: fake, languageCode: "vi", logger: zap.NewNop()}

	segs, err := e.TranscribeFile(context.Background(), writeAudio(t))
	require.NoError(t, err)
	require.Len(t, segs, 2)

	assert.Equal(t, []byte("RIFF"), fake.body)
	assert.Equal(t, aai.TranscriptLanguageCode("vi"), fake.params.LanguageCode)

	assert.Equal(t, "Speaker A: good morning", segs[0].Text)
	assert.InDelta(t, 1.5, segs[0].AudioEndTime, 1e-9)
	assert.Equal(t, uint64(1), segs[0].SequenceID)

	assert.Equal(t, "Speaker B: hi", segs[1].Text)
	assert.Equal(t, "[01:01]", segs[1].DisplayTime)
	assert.InDelta(t, 1.25, segs[1].Duration, 1e-9)
	assert.Equal(t, uint64(3), segs[1].SequenceID)
}

func TestAssemblyAIEngine_Errors(t *testing.T) {
	e := &AssemblyAIEngine{transcripts: &fakeTranscriber{err: errors.New("upload failed")}, logger: zap.NewNop()}
	_, err := e.TranscribeFile(context.Background(), writeAudio(t))
	assert.ErrorContains(t, err, "upload failed")

	e.transcripts = &fakeTranscriber{transcript: aai.Transcript{
		Status: aai.TranscriptStatusError,
		Error:  aai.String("bad audio"),
	}}
	_, err = e.TranscribeFile(context.Background(), writeAudio(t))
	assert.ErrorContains(t, err, "bad audio")

	_, err = e.TranscribeFile(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)
}

func TestSegmentsFromTranscript_WithoutUtterances(t *testing.T) {
	segs := SegmentsFromTranscript(aai.Transcript{
		Text:       aai.String("one block of text"),
		Confidence: aai.Float64(0.75),
		Words: []aai.TranscriptWord{
			{Start: aai.Int64(250), End: aai.Int64(500)},
			{Start: aai.Int64(500), End: aai.Int64(4000)},
		},
	})
	require.Len(t, segs, 1)
	assert.InDelta(t, 0.25, segs[0].AudioStartTime, 1e-9)
	assert.InDelta(t, 4.0, segs[0].AudioEndTime, 1e-9)
	assert.InDelta(t, 0.75, segs[0].Confidence, 1e-6)

	assert.Empty(t, SegmentsFromTranscript(aai.Transcript{}))
}
