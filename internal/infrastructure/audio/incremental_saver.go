package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/johnquangdev/meeting-recorder/errors"
	"github.com/johnquangdev/meeting-recorder/internal/domain/entities"
	"github.com/johnquangdev/meeting-recorder/internal/infrastructure/metrics"
	usecaseErrors "github.com/johnquangdev/meeting-recorder/internal/usecase/errors"
)

const (
	// CheckpointDirName is the transient subfolder holding checkpoint files
	CheckpointDirName = ".checkpoints"

	// DefaultCheckpointSeconds is the amount of audio buffered before a flush
	DefaultCheckpointSeconds = 30

	// OutputBaseName is the merged artifact name without extension
	OutputBaseName = "audio"
)

// EnsureLayout creates a meeting folder and its checkpoint subfolder
func EnsureLayout(folder string) error {
	return os.MkdirAll(filepath.Join(folder, CheckpointDirName), 0o755)
}

// SaverOption configures an IncrementalSaver
type SaverOption func(*IncrementalSaver)

func WithCheckpointSeconds(seconds int) SaverOption {
	return func(s *IncrementalSaver) {
		if seconds > 0 {
			s.checkpointSeconds = seconds
		}
	}
}

func WithEncoder(enc Encoder) SaverOption {
	return func(s *IncrementalSaver) { s.encoder = enc }
}

func WithMuxer(m Muxer) SaverOption {
	return func(s *IncrementalSaver) { s.muxer = m }
}

// WithFormat sets a matching encoder and muxer for a file format preference.
// An unsupported format makes NewIncrementalSaver fail.
func WithFormat(format, ffmpegPath string) SaverOption {
	return func(s *IncrementalSaver) {
		enc, err := NewEncoder(format, ffmpegPath)
		if err != nil {
			s.optErr = err
			return
		}
		s.encoder = enc
		s.muxer = NewMuxer(format, ffmpegPath)
	}
}

func WithLogger(logger *zap.Logger) SaverOption {
	return func(s *IncrementalSaver) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) SaverOption {
	return func(s *IncrementalSaver) { s.metrics = m }
}

// SaverStats is a point-in-time view of the saver
type SaverStats struct {
	CheckpointCount uint32 `json:"checkpoint_count"`
	BufferedSamples int    `json:"buffered_samples"`
	TotalSamples    int64  `json:"total_samples"`
}

// IncrementalSaver bounds memory during long recordings by flushing a
// checkpoint file every checkpointSeconds of audio. Finalize splices all
// checkpoints into one artifact without re-encoding.
type IncrementalSaver struct {
	mu sync.Mutex

	folder        string
	checkpointDir string
	sampleRate    uint32

	checkpointSeconds int
	threshold         int

	buffer    []float32
	count     uint32
	total     int64
	finalized bool

	encoder Encoder
	muxer   Muxer
	optErr  error
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewIncrementalSaver binds a saver to folder, which must already contain
// the checkpoint subfolder.
func NewIncrementalSaver(folder string, sampleRate uint32, opts ...SaverOption) (*IncrementalSaver, error) {
	if sampleRate == 0 {
		return nil, appErrors.ErrConfiguration("sample rate must be positive", entities.ErrInvalidSampleRate)
	}

	checkpointDir := filepath.Join(folder, CheckpointDirName)
	info, err := os.Stat(checkpointDir)
	if err != nil || !info.IsDir() {
		return nil, appErrors.ErrConfiguration(
			fmt.Sprintf("checkpoints directory does not exist: %s", checkpointDir),
			usecaseErrors.ErrCheckpointDirMissing,
		)
	}

	s := &IncrementalSaver{
		folder:            folder,
		checkpointDir:     checkpointDir,
		sampleRate:        sampleRate,
		checkpointSeconds: DefaultCheckpointSeconds,
		encoder:           NewFFmpegEncoder(""),
		muxer:             NewFFmpegMuxer(""),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.optErr != nil {
		return nil, appErrors.ErrConfiguration("invalid audio format", s.optErr)
	}
	s.threshold = int(sampleRate) * s.checkpointSeconds
	s.buffer = make([]float32, 0, s.threshold)

	if s.logger != nil {
		s.logger.Info("📁 Incremental saver ready",
			zap.String("folder", folder),
			zap.Uint32("sample_rate", sampleRate),
			zap.Int("checkpoint_seconds", s.checkpointSeconds),
			zap.String("format", s.encoder.Extension()),
		)
	}
	return s, nil
}

// AddChunk copies chunk samples into the buffer and writes one checkpoint
// per full threshold. An encode failure leaves the buffer intact so the
// next call retries it.
func (s *IncrementalSaver) AddChunk(ctx context.Context, chunk entities.AudioChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalized {
		return appErrors.ErrInvalidState("finalized", "add_chunk", usecaseErrors.ErrSaverFinalized)
	}

	s.buffer = append(s.buffer, chunk.Samples...)
	s.total += int64(len(chunk.Samples))
	defer func() { s.metrics.SetBuffered(len(s.buffer)) }()

	for len(s.buffer) >= s.threshold {
		if err := s.writeCheckpoint(ctx, s.buffer[:s.threshold]); err != nil {
			return err
		}
		n := copy(s.buffer, s.buffer[s.threshold:])
		s.buffer = s.buffer[:n]
	}
	return nil
}

// writeCheckpoint encodes samples as the next-numbered checkpoint. The file
// is written under a temporary name and renamed so a crash never leaves a
// truncated checkpoint behind.
func (s *IncrementalSaver) writeCheckpoint(ctx context.Context, samples []float32) error {
	if len(samples) == 0 {
		return appErrors.ErrEncode("", usecaseErrors.ErrEmptyCheckpoint)
	}

	ext := s.encoder.Extension()
	name := CheckpointName(s.count, ext)
	final := filepath.Join(s.checkpointDir, name)
	tmp := filepath.Join(s.checkpointDir, "tmp_"+name)

	start := time.Now()
	err := s.encoder.Encode(ctx, samples, s.sampleRate, tmp)
	if err == nil {
		err = os.Rename(tmp, final)
	}
	s.metrics.ObserveCheckpoint(time.Since(start), err)

	if err != nil {
		_ = os.Remove(tmp)
		if s.logger != nil {
			s.logger.Error("❌ Failed to write checkpoint",
				zap.String("checkpoint", final),
				zap.Int("samples", len(samples)),
				zap.Error(err),
			)
		}
		return appErrors.ErrEncode(final, err)
	}

	if s.logger != nil {
		s.logger.Info("💾 Checkpoint saved",
			zap.Uint32("index", s.count),
			zap.Int("samples", len(samples)),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	s.count++
	return nil
}

// Finalize flushes the remaining buffer, merges every checkpoint in order
// into <folder>/audio.<ext> and removes the checkpoint directory.
// It returns the merged file path.
func (s *IncrementalSaver) Finalize(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalized {
		return "", appErrors.ErrInvalidState("finalized", "finalize", usecaseErrors.ErrSaverFinalized)
	}

	if len(s.buffer) > 0 {
		if err := s.writeCheckpoint(ctx, s.buffer); err != nil {
			return "", err
		}
		s.buffer = s.buffer[:0]
		s.metrics.SetBuffered(0)
	}

	if s.count == 0 {
		return "", appErrors.ErrNoCheckpoints(usecaseErrors.ErrNoCheckpoints)
	}

	ext := s.encoder.Extension()
	output := filepath.Join(s.folder, OutputBaseName+"."+ext)

	if s.logger != nil {
		s.logger.Info("🔗 Merging checkpoints",
			zap.Uint32("count", s.count),
			zap.String("output", output),
		)
	}

	start := time.Now()
	err := MergeCheckpoints(ctx, s.muxer, s.checkpointDir, ext, s.count, output)
	s.metrics.ObserveMerge(time.Since(start), err)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("❌ Checkpoint merge failed", zap.String("output", output), zap.Error(err))
		}
		return "", err
	}
	s.finalized = true

	if err := os.RemoveAll(s.checkpointDir); err != nil && s.logger != nil {
		s.logger.Warn("⚠️ Failed to remove checkpoints directory",
			zap.String("dir", s.checkpointDir),
			zap.Error(err),
		)
	}

	if s.logger != nil {
		s.logger.Info("✅ Recording finalized",
			zap.String("output", output),
			zap.Int64("total_samples", s.total),
			zap.Duration("merge_elapsed", time.Since(start)),
		)
	}
	return output, nil
}

func (s *IncrementalSaver) Stats() SaverStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SaverStats{
		CheckpointCount: s.count,
		BufferedSamples: len(s.buffer),
		TotalSamples:    s.total,
	}
}

func (s *IncrementalSaver) CheckpointCount() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *IncrementalSaver) Folder() string        { return s.folder }
func (s *IncrementalSaver) CheckpointDir() string { return s.checkpointDir }
func (s *IncrementalSaver) SampleRate() uint32    { return s.sampleRate }
func (s *IncrementalSaver) Extension() string     { return s.encoder.Extension() }
