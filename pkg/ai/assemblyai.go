package ai

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-recorder/internal/domain/entities"
	"github.com/johnquangdev/meeting-recorder/pkg/config"
)

// EngineName identifies AssemblyAI in logs and transcript metadata
const EngineName = "assemblyai"

// transcriber is the part of the SDK transcript service the engine uses
type transcriber interface {
	TranscribeFromReader(ctx context.Context, reader io.Reader, params *aai.TranscriptOptionalParams) (aai.Transcript, error)
}

// AssemblyAIEngine transcribes merged recordings with the official SDK
type AssemblyAIEngine struct {
	transcripts  transcriber
	languageCode string
	logger       *zap.Logger
}

// NewAssemblyAIEngine creates an engine from cfg. It returns nil when no API key is configured.
func NewAssemblyAIEngine(cfg config.TranscriptionConfig, logger *zap.Logger) *AssemblyAIEngine {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []aai.ClientOption{aai.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, aai.WithBaseURL(cfg.BaseURL))
	}
	client := aai.NewClientWithOptions(opts...)

	return &AssemblyAIEngine{
		transcripts:  client.Transcripts,
		languageCode: cfg.LanguageCode,
		logger:       logger,
	}
}

// Name returns the engine name
func (e *AssemblyAIEngine) Name() string { return EngineName }

// TranscribeFile uploads the audio file and waits for the finished transcript
func (e *AssemblyAIEngine) TranscribeFile(ctx context.Context, path string) ([]entities.TranscriptSegment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	params := &aai.TranscriptOptionalParams{
		SpeakerLabels: aai.Bool(true),
	}
	if e.languageCode != "" {
		params.LanguageCode = aai.TranscriptLanguageCode(e.languageCode)
	}

	e.logger.Info("🎙️ Starting transcription",
		zap.String("file", path),
		zap.String("language", e.languageCode),
	)

	transcript, err := e.transcripts.TranscribeFromReader(ctx, f, params)
	if err != nil {
		e.logger.Error("❌ AssemblyAI transcription failed", zap.String("file", path), zap.Error(err))
		return nil, fmt.Errorf("assemblyai transcription failed: %w", err)
	}

	if transcript.Status == aai.TranscriptStatusError {
		msg := "unknown error"
		if transcript.Error != nil {
			msg = *transcript.Error
		}
		return nil, fmt.Errorf("assemblyai error: %s", msg)
	}

	segments := SegmentsFromTranscript(transcript)
	e.logger.Info("✅ Transcription completed",
		zap.String("file", path),
		zap.Int("segments", len(segments)),
	)
	return segments, nil
}

// Close releases nothing; the SDK client holds no resources beyond its HTTP client
func (e *AssemblyAIEngine) Close() error { return nil }

// SegmentsFromTranscript maps utterances to transcript segments. Transcripts
// without speaker labels become a single segment spanning the words.
func SegmentsFromTranscript(t aai.Transcript) []entities.TranscriptSegment {
	if len(t.Utterances) > 0 {
		segments := make([]entities.TranscriptSegment, 0, len(t.Utterances))
		for i, u := range t.Utterances {
			text := strings.TrimSpace(str(u.Text))
			if text == "" {
				continue
			}
			if u.Speaker != nil && *u.Speaker != "" {
				text = fmt.Sprintf("Speaker %s: %s", *u.Speaker, text)
			}
			segments = append(segments, newSegment(uint64(i+1), text, ms(u.Start), ms(u.End), f64(u.Confidence)))
		}
		return segments
	}

	text := strings.TrimSpace(str(t.Text))
	if text == "" {
		return []entities.TranscriptSegment{}
	}
	var start, end float64
	if n := len(t.Words); n > 0 {
		start, end = ms(t.Words[0].Start), ms(t.Words[n-1].End)
	}
	return []entities.TranscriptSegment{newSegment(1, text, start, end, f64(t.Confidence))}
}

func newSegment(seq uint64, text string, start, end, confidence float64) entities.TranscriptSegment {
	if end < start {
		end = start
	}
	if confidence < 0 || confidence > 1 {
		confidence = 0
	}
	return entities.TranscriptSegment{
		ID:             fmt.Sprintf("%s_%d", EngineName, seq),
		Text:           text,
		AudioStartTime: start,
		AudioEndTime:   end,
		Duration:       end - start,
		DisplayTime:    entities.FormatDisplayTime(start),
		Confidence:     float32(confidence),
		SequenceID:     seq,
	}
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func f64(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// ms converts SDK millisecond offsets to seconds
func ms(p *int64) float64 {
	if p == nil {
		return 0
	}
	return float64(*p) / 1000
}
