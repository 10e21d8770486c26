package recording

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/johnquangdev/meeting-recorder/errors"
	"github.com/johnquangdev/meeting-recorder/internal/domain/entities"
	"github.com/johnquangdev/meeting-recorder/internal/domain/repositories"
	"github.com/johnquangdev/meeting-recorder/internal/infrastructure/audio"
	"github.com/johnquangdev/meeting-recorder/internal/infrastructure/metrics"
	usecaseErrors "github.com/johnquangdev/meeting-recorder/internal/usecase/errors"
	"github.com/johnquangdev/meeting-recorder/pkg/config"
)

const (
	folderTimeLayout  = "2006-01-02_15-04-05"
	defaultFolderName = "Meeting"
	maxFolderNameLen  = 100
)

// PreferencesLoader provides the save preferences at the time of a save
type PreferencesLoader interface {
	Load() (config.RecordingPreferences, error)
}

// SavedListener is notified after a recording was saved successfully.
// A listener error is logged and never fails the save.
type SavedListener interface {
	OnRecordingSaved(ctx context.Context, saved entities.RecordingSaved) error
}

// SavedListenerFunc adapts a function to SavedListener
type SavedListenerFunc func(ctx context.Context, saved entities.RecordingSaved) error

func (f SavedListenerFunc) OnRecordingSaved(ctx context.Context, saved entities.RecordingSaved) error {
	return f(ctx, saved)
}

// SaverConfig tunes a RecordingSaver
type SaverConfig struct {
	SampleRate        uint32
	CheckpointSeconds int
	FfmpegPath        string
	// StopGrace lets chunks still leaving the pipeline reach the queue before Stop
	StopGrace time.Duration
	// DrainTimeout bounds the wait for the loop to process queued chunks
	DrainTimeout time.Duration
}

// SaverConfigFrom derives a SaverConfig from application configuration
func SaverConfigFrom(c config.RecordingConfig) SaverConfig {
	return SaverConfig{
		SampleRate:        c.SampleRate,
		CheckpointSeconds: c.CheckpointSeconds,
		FfmpegPath:        c.FfmpegPath,
		StopGrace:         c.StopGrace,
		DrainTimeout:      c.DrainTimeout,
	}
}

// SaveResult describes a saved meeting
type SaveResult struct {
	MeetingID       string   `json:"meeting_id"`
	MeetingName     *string  `json:"meeting_name"`
	MeetingFolder   string   `json:"meeting_folder"`
	AudioFile       string   `json:"audio_file"`
	TranscriptFile  string   `json:"transcript_file"`
	DurationSeconds *float64 `json:"duration_seconds"`
	SegmentCount    int      `json:"segment_count"`
}

// SaverStats is a point-in-time view of a RecordingSaver
type SaverStats struct {
	ChunksProcessed int64            `json:"chunks_processed"`
	ChunksDropped   int64            `json:"chunks_dropped"`
	Segments        int              `json:"segments"`
	Audio           audio.SaverStats `json:"audio"`
}

// RecordingSaver owns the meeting folder of one session: the incremental
// audio saver, metadata.json and the transcript segment store.
type RecordingSaver struct {
	cfg       SaverConfig
	store     repositories.SessionRepository
	prefs     PreferencesLoader
	logger    *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
	saverOpts []audio.SaverOption
	onChunkFn func(error)

	mu          sync.Mutex
	meetingName *string
	folder      string
	metadata    *entities.MeetingMetadata
	saver       *audio.IncrementalSaver
	ingest      *ingestion

	// segMu guards the in-memory segments and is never held across I/O.
	// writeMu orders transcript writes so the newest snapshot lands last.
	segMu    sync.Mutex
	segments []entities.TranscriptSegment
	index    map[uint64]int
	writeMu  sync.Mutex
	metaMu   sync.Mutex

	listenerMu sync.RWMutex
	listeners  []SavedListener
}

// SaverOption configures a RecordingSaver
type SaverOption func(*RecordingSaver)

// WithAudioOptions passes options through to the incremental audio saver
func WithAudioOptions(opts ...audio.SaverOption) SaverOption {
	return func(r *RecordingSaver) { r.saverOpts = append(r.saverOpts, opts...) }
}

// WithChunkErrorHandler is called for every chunk the audio saver rejects
func WithChunkErrorHandler(fn func(error)) SaverOption {
	return func(r *RecordingSaver) { r.onChunkFn = fn }
}

func WithSaverClock(now func() time.Time) SaverOption {
	return func(r *RecordingSaver) { r.now = now }
}

// NewRecordingSaver creates a new recording saver
func NewRecordingSaver(
	cfg SaverConfig,
	store repositories.SessionRepository,
	prefs PreferencesLoader,
	logger *zap.Logger,
	m *metrics.Metrics,
	opts ...SaverOption,
) *RecordingSaver {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = entities.DefaultSampleRate
	}
	if cfg.CheckpointSeconds <= 0 {
		cfg.CheckpointSeconds = audio.DefaultCheckpointSeconds
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 10 * time.Second
	}

	r := &RecordingSaver{
		cfg:     cfg,
		store:   store,
		prefs:   prefs,
		logger:  logger,
		metrics: m,
		now:     time.Now,
		index:   make(map[uint64]int),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddListener registers a saved-recording listener
func (r *RecordingSaver) AddListener(l SavedListener) {
	r.listenerMu.Lock()
	defer r.listenerMu.Unlock()
	r.listeners = append(r.listeners, l)
}

// SetMeetingName sets the name used for the folder and metadata
func (r *RecordingSaver) SetMeetingName(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		r.meetingName = nil
		return
	}
	r.meetingName = &name
}

func (r *RecordingSaver) MeetingName() *string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.meetingName == nil {
		return nil
	}
	n := *r.meetingName
	return &n
}

// StartAccumulation creates the meeting folder, writes the initial
// metadata, builds the incremental saver and starts the ingestion loop.
// The returned sender must be handed to the mixing pipeline before any
// capture stream starts.
func (r *RecordingSaver) StartAccumulation(ctx context.Context) (*ChunkSender, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ingest != nil {
		return nil, appErrors.ErrAlreadyRecording(usecaseErrors.ErrAlreadyRecording)
	}

	prefs, err := r.prefs.Load()
	if err != nil && r.logger != nil {
		r.logger.Warn("⚠️ Failed to load recording preferences, using defaults", zap.Error(err))
	}

	format := prefs.FileFormat
	if format == "" {
		format = "mp4"
	}
	if _, err := audio.NewEncoder(format, r.cfg.FfmpegPath); err != nil {
		return nil, appErrors.ErrConfiguration("invalid file_format preference", err)
	}

	name := defaultFolderName
	if r.meetingName != nil {
		name = *r.meetingName
	}
	now := r.now()

	folder, err := createMeetingFolder(prefs.SaveFolder, name, now)
	if err != nil {
		return nil, appErrors.ErrIO("create meeting folder", err)
	}

	opts := append([]audio.SaverOption{
		audio.WithCheckpointSeconds(r.cfg.CheckpointSeconds),
		audio.WithFormat(format, r.cfg.FfmpegPath),
		audio.WithLogger(r.logger),
		audio.WithMetrics(r.metrics),
	}, r.saverOpts...)

	saver, err := audio.NewIncrementalSaver(folder, r.cfg.SampleRate, opts...)
	if err != nil {
		return nil, err
	}

	meetingName := ""
	if r.meetingName != nil {
		meetingName = *r.meetingName
	}
	metadata := entities.NewMeetingMetadata(uuid.New().String(), meetingName,
		audio.OutputBaseName+"."+saver.Extension(), r.cfg.SampleRate, now)

	if err := r.writeMetadata(folder, metadata); err != nil {
		return nil, err
	}

	r.folder = folder
	r.metadata = metadata
	r.saver = saver

	// the loop outlives the request that started it
	ingest, sender := startIngestion(context.WithoutCancel(ctx), saver, r.onChunkFn, r.logger, r.metrics)
	r.ingest = ingest

	if r.logger != nil {
		r.logger.Info("📁 Meeting folder initialized",
			zap.String("folder", folder),
			zap.String("meeting_id", *metadata.MeetingID),
			zap.String("format", saver.Extension()),
		)
	}
	return sender, nil
}

// createMeetingFolder creates <base>/<sanitized name>_<timestamp>/.checkpoints,
// suffixing the folder when it already exists.
func createMeetingFolder(base, name string, now time.Time) (string, error) {
	if base == "" {
		return "", fmt.Errorf("save folder is not configured")
	}
	stem := SanitizeFolderName(name) + "_" + now.Format(folderTimeLayout)

	folder := filepath.Join(base, stem)
	for i := 2; ; i++ {
		if _, err := os.Stat(folder); os.IsNotExist(err) {
			break
		}
		folder = filepath.Join(base, stem+"_"+strconv.Itoa(i))
	}

	if err := audio.EnsureLayout(folder); err != nil {
		return "", err
	}
	return folder, nil
}

// SanitizeFolderName makes a meeting name safe to use as a directory name
func SanitizeFolderName(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '.':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}

	out := strings.Trim(b.String(), "_.")
	if runes := []rune(out); len(runes) > maxFolderNameLen {
		out = string(runes[:maxFolderNameLen])
	}
	if out == "" {
		return defaultFolderName
	}
	return out
}

// SetDeviceInfo updates device names and re-persists metadata when a
// folder exists. Before that it is a no-op.
func (r *RecordingSaver) SetDeviceInfo(microphone, systemAudio string) error {
	r.mu.Lock()
	if r.metadata == nil || r.folder == "" {
		r.mu.Unlock()
		return nil
	}
	r.metadata.SetDevices(microphone, systemAudio)
	snapshot, folder := r.metadata.Clone(), r.folder
	r.mu.Unlock()

	return r.writeMetadata(folder, snapshot)
}

func (r *RecordingSaver) writeMetadata(folder string, metadata *entities.MeetingMetadata) error {
	r.metaMu.Lock()
	defer r.metaMu.Unlock()

	if err := r.store.WriteMetadata(folder, metadata); err != nil {
		return appErrors.ErrIO("write metadata", err)
	}
	return nil
}

// AddTranscriptSegment upserts by SequenceID and rewrites transcripts.json
func (r *RecordingSaver) AddTranscriptSegment(seg entities.TranscriptSegment) error {
	r.segMu.Lock()
	if i, ok := r.index[seg.SequenceID]; ok {
		r.segments[i] = seg
	} else {
		r.index[seg.SequenceID] = len(r.segments)
		r.segments = append(r.segments, seg)
	}
	r.segMu.Unlock()

	return r.persistTranscripts()
}

// AddTranscriptChunk stores plain text with no timing as sequence 0
func (r *RecordingSaver) AddTranscriptChunk(text string) error {
	return r.AddTranscriptSegment(entities.NewLegacySegment(text, r.now()))
}

// ReplaceTranscriptSegments swaps the whole store, used after retranscription
func (r *RecordingSaver) ReplaceTranscriptSegments(segments []entities.TranscriptSegment) error {
	r.segMu.Lock()
	r.segments = r.segments[:0]
	r.index = make(map[uint64]int, len(segments))
	for _, seg := range segments {
		if i, ok := r.index[seg.SequenceID]; ok {
			r.segments[i] = seg
			continue
		}
		r.index[seg.SequenceID] = len(r.segments)
		r.segments = append(r.segments, seg)
	}
	r.segMu.Unlock()

	return r.persistTranscripts()
}

// TranscriptSegments returns a copy of the stored segments in upsert order
func (r *RecordingSaver) TranscriptSegments() []entities.TranscriptSegment {
	r.segMu.Lock()
	defer r.segMu.Unlock()
	return append([]entities.TranscriptSegment(nil), r.segments...)
}

func (r *RecordingSaver) persistTranscripts() error {
	folder := r.MeetingFolder()
	if folder == "" {
		return nil
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	segments := r.TranscriptSegments()
	err := r.store.WriteTranscripts(folder, entities.NewTranscriptFile(segments, r.now()))
	r.metrics.TranscriptWrite(len(segments), err)
	if err != nil {
		if r.logger != nil {
			r.logger.Error("❌ Failed to write transcripts", zap.String("folder", folder), zap.Error(err))
		}
		return appErrors.ErrIO("write transcripts", err)
	}
	return nil
}

// StopAccumulation enqueues Stop behind any in-flight chunks and waits for
// the loop to drain. Safe to call more than once. An error means the loop
// was still processing queued audio when DrainTimeout elapsed.
func (r *RecordingSaver) StopAccumulation() error {
	r.mu.Lock()
	in := r.ingest
	r.mu.Unlock()

	if in == nil || in.stopped() {
		return nil
	}
	if r.cfg.StopGrace > 0 {
		time.Sleep(r.cfg.StopGrace)
	}
	if in.stop(r.cfg.DrainTimeout) {
		return nil
	}

	pending := in.pending()
	if r.logger != nil {
		r.logger.Warn("⚠️ Accumulation loop did not drain in time",
			zap.Duration("timeout", r.cfg.DrainTimeout),
			zap.Int("pending", pending),
		)
	}
	return appErrors.ErrLockContention("ingestion queue",
		fmt.Errorf("%w: %d message(s) still queued", usecaseErrors.ErrIngestionNotDrained, pending))
}

// StopAndSave stops ingestion and, when auto-save is on, finalizes the
// audio, persists transcripts and completed metadata, then notifies
// listeners. A nil result with a nil error means auto-save is disabled.
// duration is preferred over the end time of the last transcript segment.
// Finalize only runs once every queued chunk reached the checkpoint saver.
func (r *RecordingSaver) StopAndSave(ctx context.Context, duration *float64) (*SaveResult, error) {
	if err := r.StopAccumulation(); err != nil {
		r.markFailed(err)
		r.metrics.SaveCompleted("failed")
		return nil, fmt.Errorf("failed to drain audio before save: %w", err)
	}

	prefs, err := r.prefs.Load()
	if err != nil {
		r.metrics.SaveCompleted("failed")
		return nil, fmt.Errorf("failed to load recording preferences: %w", err)
	}
	if !prefs.AutoSave {
		if r.logger != nil {
			r.logger.Info("⏭️ Auto-save disabled, skipping save")
		}
		r.metrics.SaveCompleted("skipped")
		return nil, nil
	}

	r.mu.Lock()
	saver, folder := r.saver, r.folder
	r.mu.Unlock()
	if saver == nil {
		r.metrics.SaveCompleted("failed")
		return nil, appErrors.ErrNoActiveSession(usecaseErrors.ErrNoMeetingFolder)
	}

	audioPath, err := saver.Finalize(ctx)
	if err != nil {
		r.markFailed(err)
		r.metrics.SaveCompleted("failed")
		return nil, fmt.Errorf("failed to finalize audio: %w", err)
	}

	if err := r.persistTranscripts(); err != nil {
		r.metrics.SaveCompleted("failed")
		return nil, fmt.Errorf("failed to save transcripts: %w", err)
	}
	transcriptPath := r.store.TranscriptPath(folder)
	if _, err := os.Stat(transcriptPath); err != nil {
		r.metrics.SaveCompleted("failed")
		return nil, appErrors.ErrIO("verify transcripts", fmt.Errorf("%w: %s", usecaseErrors.ErrTranscriptNotOnDisk, transcriptPath))
	}

	segments := r.TranscriptSegments()
	if duration == nil && len(segments) > 0 {
		end := segments[len(segments)-1].AudioEndTime
		duration = &end
	}

	r.mu.Lock()
	r.metadata.MarkAsCompleted(r.now(), duration)
	snapshot := r.metadata.Clone()
	r.mu.Unlock()

	if err := r.writeMetadata(folder, snapshot); err != nil {
		r.metrics.SaveCompleted("failed")
		return nil, fmt.Errorf("failed to update metadata: %w", err)
	}

	result := &SaveResult{
		MeetingID:       derefString(snapshot.MeetingID),
		MeetingName:     snapshot.MeetingName,
		MeetingFolder:   folder,
		AudioFile:       audioPath,
		TranscriptFile:  transcriptPath,
		DurationSeconds: duration,
		SegmentCount:    len(segments),
	}

	if r.logger != nil {
		fields := []zap.Field{
			zap.String("audio_file", audioPath),
			zap.Int("segments", len(segments)),
		}
		if duration != nil {
			fields = append(fields, zap.Float64("duration_seconds", *duration))
		}
		r.logger.Info("✅ Recording saved", fields...)
	}
	r.metrics.SaveCompleted("saved")

	r.notify(ctx, entities.RecordingSaved{
		MeetingID:      result.MeetingID,
		AudioFile:      audioPath,
		TranscriptFile: transcriptPath,
		MeetingName:    result.MeetingName,
		MeetingFolder:  folder,
		SegmentCount:   len(segments),
	})
	return result, nil
}

func (r *RecordingSaver) markFailed(cause error) {
	r.mu.Lock()
	if r.metadata == nil {
		r.mu.Unlock()
		return
	}
	r.metadata.MarkAsFailed(cause.Error())
	snapshot, folder := r.metadata.Clone(), r.folder
	r.mu.Unlock()

	if err := r.writeMetadata(folder, snapshot); err != nil && r.logger != nil {
		r.logger.Warn("⚠️ Failed to record error status in metadata", zap.Error(err))
	}
}

func (r *RecordingSaver) notify(ctx context.Context, saved entities.RecordingSaved) {
	r.listenerMu.RLock()
	listeners := append([]SavedListener(nil), r.listeners...)
	r.listenerMu.RUnlock()

	for _, l := range listeners {
		if err := l.OnRecordingSaved(ctx, saved); err != nil && r.logger != nil {
			r.logger.Warn("⚠️ Recording-saved listener failed",
				zap.String("meeting_id", saved.MeetingID),
				zap.Error(err),
			)
		}
	}
}

func (r *RecordingSaver) MeetingFolder() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.folder
}

func (r *RecordingSaver) MeetingID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.metadata == nil {
		return ""
	}
	return derefString(r.metadata.MeetingID)
}

// Metadata returns a copy of the current metadata, nil before start
func (r *RecordingSaver) Metadata() *entities.MeetingMetadata {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metadata.Clone()
}

func (r *RecordingSaver) Stats() SaverStats {
	r.mu.Lock()
	saver, in := r.saver, r.ingest
	r.mu.Unlock()

	st := SaverStats{Segments: len(r.TranscriptSegments())}
	if in != nil {
		st.ChunksProcessed = in.processed.Load()
		st.ChunksDropped = in.dropped.Load()
	}
	if saver != nil {
		st.Audio = saver.Stats()
	}
	return st
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
