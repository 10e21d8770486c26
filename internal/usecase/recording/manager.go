package recording

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/johnquangdev/meeting-recorder/errors"
	"github.com/johnquangdev/meeting-recorder/internal/domain/entities"
	"github.com/johnquangdev/meeting-recorder/internal/domain/repositories"
	"github.com/johnquangdev/meeting-recorder/internal/infrastructure/audio"
	"github.com/johnquangdev/meeting-recorder/internal/infrastructure/metrics"
	usecaseErrors "github.com/johnquangdev/meeting-recorder/internal/usecase/errors"
	"github.com/johnquangdev/meeting-recorder/pkg/config"
	"github.com/johnquangdev/meeting-recorder/pkg/retry"
)

// ManagerConfig tunes the orchestration delays
type ManagerConfig struct {
	Saver            SaverConfig
	SettleDelay      time.Duration
	RestartDelay     time.Duration
	MonitorInterval  time.Duration
	ReconnectTimeout time.Duration
}

// ManagerConfigFrom derives a ManagerConfig from application configuration
func ManagerConfigFrom(c config.RecordingConfig) ManagerConfig {
	return ManagerConfig{
		Saver:            SaverConfigFrom(c),
		SettleDelay:      c.SettleDelay,
		RestartDelay:     c.RestartDelay,
		MonitorInterval:  c.MonitorInterval,
		ReconnectTimeout: c.ReconnectTimeout,
	}
}

// Dependencies are the collaborators of a RecordingManager
type Dependencies struct {
	Lister   repositories.DeviceLister
	Streams  repositories.CaptureStreams
	Pipeline repositories.MixingPipeline
	Selector audio.DeviceSelector
	Store    repositories.SessionRepository
	Prefs    PreferencesLoader
	// Engine is optional; it is owned by the manager and closed by Close
	Engine   repositories.TranscriptionEngine
	Notifier *Notifier
	Index    *MeetingIndexer
}

// ManagerStats is the combined view returned by Stats
type ManagerStats struct {
	Session       SessionStats `json:"session"`
	Saver         SaverStats   `json:"saver"`
	ActiveStreams int          `json:"active_streams"`
	MeetingID     string       `json:"meeting_id,omitempty"`
	MeetingName   *string      `json:"meeting_name"`
	MeetingFolder string       `json:"meeting_folder,omitempty"`
	HasFatalError bool         `json:"has_fatal_error"`
}

// RecordingManager is the only component that mutates SessionState and
// also drives the capture streams and the mixing pipeline.
type RecordingManager struct {
	cfg     ManagerConfig
	deps    Dependencies
	logger  *zap.Logger
	metrics *metrics.Metrics
	monitor *audio.DeviceMonitor

	// opMu serializes control operations: start, stop and reconnect
	opMu sync.Mutex

	mu          sync.RWMutex
	state       *SessionState
	saver       *RecordingSaver
	meetingName string
	onError     ErrorCallback
	listeners   []SavedListener
	saverOpts   []SaverOption
	sleep       func(ctx context.Context, d time.Duration) error

	// sessionCtx bounds background reconnect loops to the current session
	sessionCtx    context.Context
	cancelSession context.CancelFunc
	retrying      map[entities.DeviceType]bool
	background    sync.WaitGroup
}

// ManagerOption configures a RecordingManager
type ManagerOption func(*RecordingManager)

// WithSaverOptions is applied to the RecordingSaver of every session
func WithSaverOptions(opts ...SaverOption) ManagerOption {
	return func(m *RecordingManager) { m.saverOpts = append(m.saverOpts, opts...) }
}

// WithSavedListener registers a listener on every session's saver
func WithSavedListener(l SavedListener) ManagerOption {
	return func(m *RecordingManager) { m.listeners = append(m.listeners, l) }
}

// NewRecordingManager creates a new recording manager
func NewRecordingManager(cfg ManagerConfig, deps Dependencies, logger *zap.Logger, m *metrics.Metrics, opts ...ManagerOption) *RecordingManager {
	mgr := &RecordingManager{
		cfg:     cfg,
		deps:    deps,
		logger:  logger,
		metrics: m,
		monitor: audio.NewDeviceMonitor(deps.Lister, cfg.MonitorInterval, logger, m),
		state:   NewSessionState(),
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(mgr)
	}
	if deps.Notifier != nil {
		mgr.listeners = append(mgr.listeners, deps.Notifier)
	}
	if deps.Index != nil {
		mgr.listeners = append(mgr.listeners, deps.Index)
	}
	m.SetState(string(StatusIdle), AllStatuses)
	return mgr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (m *RecordingManager) current() (*SessionState, *RecordingSaver) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state, m.saver
}

// pauseAwareSink discards mixed audio while the session is paused so the
// saved file matches the active duration.
type pauseAwareSink struct {
	sender *ChunkSender
	state  *SessionState
}

func (p pauseAwareSink) Send(chunk entities.AudioChunk) bool {
	if p.state.IsPaused() {
		return p.state.IsActive()
	}
	return p.sender.Send(chunk)
}

// StartRecording starts a new session. The session is marked Recording
// and the ingestion endpoint handed to the pipeline before any stream
// starts, so no early chunk lacks a destination.
func (m *RecordingManager) StartRecording(ctx context.Context, microphone, system *entities.AudioDevice) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if prev, _ := m.current(); prev.IsActive() {
		return appErrors.ErrAlreadyRecording(usecaseErrors.ErrAlreadyRecording)
	}
	if microphone == nil && system == nil {
		return appErrors.ErrInvalidArgument("at least one device is required")
	}

	m.mu.RLock()
	name, onError, listeners := m.meetingName, m.onError, m.listeners
	m.mu.RUnlock()

	state := NewSessionState()
	state.SetErrorCallback(func(info ErrorInfo) {
		m.metrics.SessionError(string(info.Kind))
		if onError != nil {
			onError(info)
		}
	})

	saverOpts := append([]SaverOption{
		WithChunkErrorHandler(func(err error) { state.ReportError(ErrorKindOf(err), err, nil) }),
	}, m.saverOpts...)
	saver := NewRecordingSaver(m.cfg.Saver, m.deps.Store, m.deps.Prefs, m.logger, m.metrics, saverOpts...)
	saver.SetMeetingName(name)
	for _, l := range listeners {
		saver.AddListener(l)
	}

	sender, err := saver.StartAccumulation(ctx)
	if err != nil {
		return fmt.Errorf("failed to start accumulation: %w", err)
	}

	if err := state.StartRecording(); err != nil {
		saver.StopAccumulation()
		return err
	}
	state.SetDevice(entities.DeviceTypeMicrophone, microphone)
	state.SetDevice(entities.DeviceTypeSystem, system)
	if err := saver.SetDeviceInfo(deviceName(microphone), deviceName(system)); err != nil && m.logger != nil {
		m.logger.Warn("⚠️ Failed to persist device info", zap.Error(err))
	}

	sessionCtx, cancelSession := context.WithCancel(context.WithoutCancel(ctx))
	m.mu.Lock()
	m.state, m.saver = state, saver
	m.sessionCtx, m.cancelSession = sessionCtx, cancelSession
	m.retrying = make(map[entities.DeviceType]bool)
	m.mu.Unlock()

	abort := func(cause error) error {
		cancelSession()
		_ = state.StopRecording()
		if err := m.deps.Streams.StopAll(ctx); err != nil && m.logger != nil {
			m.logger.Error("❌ Error stopping audio streams", zap.Error(err))
		}
		if err := m.deps.Pipeline.Stop(ctx); err != nil && m.logger != nil {
			m.logger.Error("❌ Error stopping audio pipeline", zap.Error(err))
		}
		saver.StopAccumulation()
		m.metrics.SetState(string(StatusStopped), AllStatuses)
		return cause
	}

	sampleRate := m.cfg.Saver.SampleRate
	if sampleRate == 0 {
		sampleRate = entities.DefaultSampleRate
	}
	if err := m.deps.Pipeline.Start(ctx, pauseAwareSink{sender: sender, state: state}, sampleRate); err != nil {
		return abort(fmt.Errorf("failed to start mixing pipeline: %w", err))
	}

	// let the pipeline finish its internal setup
	if err := m.sleep(ctx, m.cfg.SettleDelay); err != nil {
		return abort(err)
	}

	if microphone != nil {
		if err := m.deps.Streams.StartStream(ctx, *microphone, entities.DeviceTypeMicrophone); err != nil {
			return abort(fmt.Errorf("failed to start microphone stream: %w", err))
		}
	}
	if system != nil {
		if err := m.deps.Streams.StartStream(ctx, *system, entities.DeviceTypeSystem); err != nil {
			return abort(fmt.Errorf("failed to start system audio stream: %w", err))
		}
	}

	m.monitor.Start(context.WithoutCancel(ctx), microphone, system)

	if m.deps.Index != nil {
		m.deps.Index.Started(ctx, saver.Metadata(), saver.MeetingFolder())
	}
	m.statusChanged(ctx, nil)

	if m.logger != nil {
		m.logger.Info("🎙️ Recording started",
			zap.String("meeting_id", saver.MeetingID()),
			zap.String("microphone", deviceName(microphone)),
			zap.String("system_audio", deviceName(system)),
			zap.Int("active_streams", m.deps.Streams.ActiveCount()),
		)
	}
	return nil
}

// StartRecordingWithDefaults picks devices with the platform selector.
// A microphone is required.
func (m *RecordingManager) StartRecordingWithDefaults(ctx context.Context) error {
	devices, err := m.deps.Lister.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	mic, system := m.deps.Selector.SelectDefaults(devices)
	if mic == nil {
		return appErrors.ErrDeviceUnavailable("", string(entities.DeviceTypeMicrophone), usecaseErrors.ErrMicrophoneMissing)
	}
	if m.logger != nil {
		m.logger.Info("🎧 Selected default devices",
			zap.String("platform", m.deps.Selector.Platform()),
			zap.String("microphone", mic.Name),
			zap.String("system_audio", deviceName(system)),
		)
	}
	return m.StartRecording(ctx, mic, system)
}

// StartRecordingWithDevices resolves devices by name. An empty name falls
// back to the platform default for that leg.
func (m *RecordingManager) StartRecordingWithDevices(ctx context.Context, microphone, system string) error {
	if microphone == "" && system == "" {
		return m.StartRecordingWithDefaults(ctx)
	}

	devices, err := m.deps.Lister.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}
	mic, sys := m.deps.Selector.SelectDefaults(devices)

	if microphone != "" {
		found, ok := m.deps.Selector.MatchByName(devices, microphone, entities.DeviceTypeMicrophone)
		if !ok {
			return appErrors.ErrDeviceUnavailable(microphone, string(entities.DeviceTypeMicrophone), usecaseErrors.ErrDeviceUnavailable)
		}
		mic = found
	}
	if system != "" {
		found, ok := m.deps.Selector.MatchByName(devices, system, entities.DeviceTypeSystem)
		if !ok {
			return appErrors.ErrDeviceUnavailable(system, string(entities.DeviceTypeSystem), usecaseErrors.ErrDeviceUnavailable)
		}
		sys = found
	}
	if mic == nil {
		return appErrors.ErrDeviceUnavailable("", string(entities.DeviceTypeMicrophone), usecaseErrors.ErrMicrophoneMissing)
	}
	return m.StartRecording(ctx, mic, sys)
}

func deviceName(d *entities.AudioDevice) string {
	if d == nil {
		return ""
	}
	return d.Name
}

// stopSession ends the state machine, then tears down capture. The monitor
// stops first so a teardown-induced disappearance is not reported.
func (m *RecordingManager) stopSession(ctx context.Context, forceFlush bool) error {
	state, _ := m.current()

	m.monitor.Stop()
	m.mu.RLock()
	if m.cancelSession != nil {
		m.cancelSession()
	}
	m.mu.RUnlock()

	if err := state.StopRecording(); err != nil {
		return appErrors.ErrNoActiveSession(err)
	}

	if err := m.deps.Streams.StopAll(ctx); err != nil && m.logger != nil {
		m.logger.Error("❌ Error stopping audio streams", zap.Error(err))
	}

	if forceFlush {
		if err := m.deps.Pipeline.FlushAndStop(ctx); err != nil && m.logger != nil {
			m.logger.Error("❌ Error during forced pipeline flush", zap.Error(err))
		}
	} else if err := m.deps.Pipeline.Stop(ctx); err != nil && m.logger != nil {
		m.logger.Error("❌ Error stopping audio pipeline", zap.Error(err))
	}

	m.statusChanged(ctx, nil)
	return nil
}

// StopStreamsOnly stops capture and lets the pipeline drain on its own schedule
func (m *RecordingManager) StopStreamsOnly(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.stopSession(ctx, false)
}

// StopStreamsAndForceFlush stops capture and flushes all pipeline audio immediately
func (m *RecordingManager) StopStreamsAndForceFlush(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.stopSession(ctx, true)
}

// SaveRecordingOnly saves with the active duration of the session.
// A nil result with a nil error means auto-save is disabled.
func (m *RecordingManager) SaveRecordingOnly(ctx context.Context) (*SaveResult, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.save(ctx)
}

func (m *RecordingManager) save(ctx context.Context) (*SaveResult, error) {
	state, saver := m.current()
	if saver == nil {
		return nil, appErrors.ErrNoActiveSession(usecaseErrors.ErrNoActiveSession)
	}

	duration := state.ActiveDuration()
	res, err := saver.StopAndSave(ctx, duration)
	if err != nil {
		state.ReportError(ErrorKindOf(err), err, nil)
		if m.logger != nil {
			m.logger.Error("❌ Failed to save recording", zap.Error(err))
		}
		return nil, err
	}
	return res, nil
}

// StopRecording stops gracefully and saves
func (m *RecordingManager) StopRecording(ctx context.Context) (*SaveResult, error) {
	return m.stopAndSave(ctx, false)
}

// StopRecordingWithFlush force-flushes the pipeline before saving
func (m *RecordingManager) StopRecordingWithFlush(ctx context.Context) (*SaveResult, error) {
	return m.stopAndSave(ctx, true)
}

func (m *RecordingManager) stopAndSave(ctx context.Context, forceFlush bool) (*SaveResult, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if err := m.stopSession(ctx, forceFlush); err != nil {
		return nil, err
	}
	return m.save(ctx)
}

// CleanupWithoutSave stops an active session without saving. Nothing on
// disk is removed, so the checkpoints stay available for recovery.
func (m *RecordingManager) CleanupWithoutSave(ctx context.Context) {
	m.cleanup(ctx)
	m.background.Wait()
}

func (m *RecordingManager) cleanup(ctx context.Context) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	state, saver := m.current()
	if state.IsActive() {
		if m.logger != nil {
			m.logger.Info("🧹 Stopping recording without saving")
		}
		if err := m.stopSession(ctx, false); err != nil && m.logger != nil {
			m.logger.Warn("⚠️ Cleanup stop failed", zap.Error(err))
		}
	}
	m.monitor.Stop()
	if saver != nil {
		saver.StopAccumulation()
	}
}

func (m *RecordingManager) PauseRecording(ctx context.Context) error {
	state, _ := m.current()
	if err := state.PauseRecording(); err != nil {
		return err
	}
	m.statusChanged(ctx, nil)
	return nil
}

func (m *RecordingManager) ResumeRecording(ctx context.Context) error {
	state, _ := m.current()
	if err := state.ResumeRecording(); err != nil {
		return err
	}
	m.statusChanged(ctx, nil)
	return nil
}

func (m *RecordingManager) IsRecording() bool {
	state, _ := m.current()
	return state.IsRecording()
}

func (m *RecordingManager) IsPaused() bool {
	state, _ := m.current()
	return state.IsPaused()
}

func (m *RecordingManager) IsActive() bool {
	state, _ := m.current()
	return state.IsActive()
}

func (m *RecordingManager) IsReconnecting() bool {
	state, _ := m.current()
	return state.IsReconnecting()
}

func (m *RecordingManager) HasFatalError() bool {
	state, _ := m.current()
	return state.HasFatalError()
}

// State exposes the current session state for read-only queries
func (m *RecordingManager) State() *SessionState {
	state, _ := m.current()
	return state
}

// ActiveDuration is the recorded length excluding pauses, nil before start
func (m *RecordingManager) ActiveDuration() *float64 {
	state, _ := m.current()
	return state.ActiveDuration()
}

func (m *RecordingManager) Stats() ManagerStats {
	state, saver := m.current()
	st := ManagerStats{
		Session:       state.Stats(),
		ActiveStreams: m.deps.Streams.ActiveCount(),
		HasFatalError: state.HasFatalError(),
	}
	if saver != nil {
		st.Saver = saver.Stats()
		st.MeetingID = saver.MeetingID()
		st.MeetingName = saver.MeetingName()
		st.MeetingFolder = saver.MeetingFolder()
	}
	return st
}

// SetErrorCallback registers a hook invoked for every session error
func (m *RecordingManager) SetErrorCallback(cb ErrorCallback) {
	m.mu.Lock()
	m.onError = cb
	m.mu.Unlock()
}

// SetMeetingName sets the name used by the next session
func (m *RecordingManager) SetMeetingName(name string) {
	m.mu.Lock()
	m.meetingName = name
	saver := m.saver
	m.mu.Unlock()

	if saver != nil && saver.MeetingFolder() == "" {
		saver.SetMeetingName(name)
	}
}

func (m *RecordingManager) GetMeetingName() *string {
	m.mu.RLock()
	name, saver := m.meetingName, m.saver
	m.mu.RUnlock()

	if saver != nil {
		if n := saver.MeetingName(); n != nil {
			return n
		}
	}
	if name == "" {
		return nil
	}
	return &name
}

func (m *RecordingManager) MeetingFolder() string {
	_, saver := m.current()
	if saver == nil {
		return ""
	}
	return saver.MeetingFolder()
}

// AddTranscriptSegment upserts a segment. Allowed while the session is
// active and after stop until the next session starts.
func (m *RecordingManager) AddTranscriptSegment(ctx context.Context, seg entities.TranscriptSegment) error {
	_, saver := m.current()
	if saver == nil {
		return appErrors.ErrNoActiveSession(usecaseErrors.ErrNoActiveSession)
	}
	if err := saver.AddTranscriptSegment(seg); err != nil {
		if m.logger != nil {
			m.logger.Warn("⚠️ Transcript segment not persisted", zap.Uint64("sequence_id", seg.SequenceID), zap.Error(err))
		}
		return err
	}
	m.deps.Notifier.TranscriptUpdated(ctx, saver.MeetingID(), seg)
	return nil
}

// AddTranscriptChunk stores plain text without timing information
func (m *RecordingManager) AddTranscriptChunk(ctx context.Context, text string) error {
	return m.AddTranscriptSegment(ctx, entities.NewLegacySegment(text, time.Now()))
}

func (m *RecordingManager) GetTranscriptSegments() []entities.TranscriptSegment {
	_, saver := m.current()
	if saver == nil {
		return nil
	}
	return saver.TranscriptSegments()
}

// PollDeviceEvents returns the next device event without blocking
func (m *RecordingManager) PollDeviceEvents() (entities.DeviceEvent, bool) {
	return m.monitor.Poll()
}

// RunDeviceEvents handles monitor events until ctx is done. Reconnect
// failures are soft: the session stays Reconnecting until the next event.
func (m *RecordingManager) RunDeviceEvents(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-m.monitor.Events():
			m.HandleDeviceEvent(ctx, ev)
		}
	}
}

// HandleDeviceEvent dispatches one monitor event
func (m *RecordingManager) HandleDeviceEvent(ctx context.Context, ev entities.DeviceEvent) {
	_, saver := m.current()
	meetingID := ""
	if saver != nil {
		meetingID = saver.MeetingID()
	}
	m.deps.Notifier.DeviceChanged(ctx, meetingID, ev)

	switch ev.Kind {
	case entities.DeviceEventDisconnected:
		m.HandleDeviceDisconnect(ctx, ev.DeviceName, ev.DeviceType)
	case entities.DeviceEventReconnected:
		if err := m.HandleDeviceReconnect(ctx, ev.DeviceName, ev.DeviceType); err != nil && m.logger != nil {
			m.logger.Warn("⚠️ Device reconnect attempt failed", zap.String("device", ev.DeviceName), zap.Error(err))
		}
	}
}

// HandleDeviceDisconnect marks the leg as reconnecting and stops only its
// stream. The other leg keeps capturing.
func (m *RecordingManager) HandleDeviceDisconnect(ctx context.Context, name string, deviceType entities.DeviceType) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	state, _ := m.current()
	if !state.IsActive() || state.IsLegReconnecting(deviceType) {
		return
	}

	device := state.Device(deviceType)
	if device == nil {
		device = &entities.AudioDevice{Name: name}
	}

	if m.logger != nil {
		m.logger.Warn("📱 Device disconnected",
			zap.String("device", name),
			zap.String("device_type", string(deviceType)),
		)
	}

	if err := state.StartReconnecting(*device, deviceType); err != nil {
		if m.logger != nil {
			m.logger.Warn("⚠️ Cannot enter reconnecting state", zap.Error(err))
		}
		return
	}
	if err := m.deps.Streams.StopStream(ctx, deviceType); err != nil && m.logger != nil {
		m.logger.Warn("⚠️ Failed to stop stream of disconnected device", zap.Error(err))
	}
	m.statusChanged(ctx, &deviceType)
}

// HandleDeviceReconnect tries to rebind the leg. A device that is not yet
// listed yields a recoverable DeviceUnavailable error.
func (m *RecordingManager) HandleDeviceReconnect(ctx context.Context, name string, deviceType entities.DeviceType) error {
	ok, err := m.AttemptDeviceReconnect(ctx, name, deviceType)
	if err != nil {
		return err
	}
	if !ok {
		return appErrors.ErrDeviceUnavailable(name, string(deviceType), usecaseErrors.ErrDeviceUnavailable)
	}
	return nil
}

// AttemptDeviceReconnect re-enumerates devices and, when name is present,
// restarts only the affected stream bound to it. It returns false without
// error when the device is not there yet.
func (m *RecordingManager) AttemptDeviceReconnect(ctx context.Context, name string, deviceType entities.DeviceType) (bool, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	state, saver := m.current()
	if !state.IsActive() {
		return false, appErrors.ErrNoActiveSession(usecaseErrors.ErrNoActiveSession)
	}

	if m.logger != nil {
		m.logger.Info("🔄 Attempting to reconnect device",
			zap.String("device", name),
			zap.String("device_type", string(deviceType)),
		)
	}

	devices, err := m.deps.Lister.ListDevices(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list devices: %w", err)
	}

	device, found := m.deps.Selector.MatchByName(devices, name, deviceType)
	m.metrics.ReconnectAttempt(string(deviceType), found)
	if !found {
		if m.logger != nil {
			m.logger.Warn("❌ Device not yet available", zap.String("device", name))
		}
		return false, nil
	}

	if err := m.deps.Streams.StopStream(ctx, deviceType); err != nil && m.logger != nil {
		m.logger.Warn("⚠️ Failed to stop stream before restart", zap.Error(err))
	}
	if err := m.sleep(ctx, m.cfg.RestartDelay); err != nil {
		return false, err
	}
	if err := m.deps.Streams.StartStream(ctx, *device, deviceType); err != nil {
		state.ReportError(ErrorKindStream, err, &deviceType)
		return false, fmt.Errorf("failed to restart %s stream: %w", deviceType, err)
	}

	state.SetDevice(deviceType, device)
	m.monitor.UpdateDevice(deviceType, device.Name)
	if saver != nil {
		mic, sys := state.Device(entities.DeviceTypeMicrophone), state.Device(entities.DeviceTypeSystem)
		if err := saver.SetDeviceInfo(deviceName(mic), deviceName(sys)); err != nil && m.logger != nil {
			m.logger.Warn("⚠️ Failed to persist device info", zap.Error(err))
		}
	}
	if state.IsLegReconnecting(deviceType) {
		if err := state.StopReconnecting(deviceType); err != nil {
			return false, err
		}
	}
	m.statusChanged(ctx, &deviceType)

	if m.logger != nil {
		m.logger.Info("✅ Device reconnected",
			zap.String("device", device.Name),
			zap.String("device_type", string(deviceType)),
		)
	}
	return true, nil
}

// RetryReconnect retries AttemptDeviceReconnect with exponential backoff
// until the leg is back, ctx is done or the reconnect timeout elapses.
// A leg that is not reconnecting is left alone.
func (m *RecordingManager) RetryReconnect(ctx context.Context, name string, deviceType entities.DeviceType) error {
	policy := retry.Policy{
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		MaxElapsedTime:  m.cfg.ReconnectTimeout,
	}

	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		state, _ := m.current()
		if !state.IsActive() {
			return appErrors.ErrNoActiveSession(usecaseErrors.ErrNoActiveSession)
		}
		if !state.IsLegReconnecting(deviceType) {
			return nil
		}
		ok, err := m.AttemptDeviceReconnect(ctx, name, deviceType)
		if err != nil {
			if appErrors.CodeOf(err) == appErrors.ErrorCode_NO_ACTIVE_SESSION {
				return err
			}
			return retry.Retryable(err)
		}
		if !ok {
			return retry.Retryable(usecaseErrors.ErrDeviceUnavailable)
		}
		return nil
	})
	if err != nil {
		return appErrors.ErrDeviceUnavailable(name, string(deviceType), err)
	}
	return nil
}

// ReportStreamError records a capture read failure. A failing leg is
// treated as disconnected, which covers disconnects the monitor missed.
// The device may still be listed, so the monitor would never report it as
// returned; a background loop re-polls for it instead.
func (m *RecordingManager) ReportStreamError(ctx context.Context, deviceType entities.DeviceType, err error) {
	state, _ := m.current()
	info := state.ReportError(ErrorKindStream, err, &deviceType)
	if m.logger != nil {
		m.logger.Error("❌ Capture stream error",
			zap.String("device_type", string(deviceType)),
			zap.Bool("fatal", info.Fatal),
			zap.Error(err),
		)
	}

	device := state.Device(deviceType)
	if device == nil {
		return
	}
	m.HandleDeviceDisconnect(ctx, device.Name, deviceType)
	if state.IsLegReconnecting(deviceType) {
		m.startReconnectLoop(state, device.Name, deviceType)
	}
}

// startReconnectLoop runs RetryReconnect for one leg of state's session.
// At most one loop runs per leg.
func (m *RecordingManager) startReconnectLoop(state *SessionState, name string, deviceType entities.DeviceType) {
	m.mu.Lock()
	if m.state != state || m.sessionCtx == nil || m.retrying[deviceType] {
		m.mu.Unlock()
		return
	}
	retrying, ctx := m.retrying, m.sessionCtx
	retrying[deviceType] = true
	m.background.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.background.Done()
		defer func() {
			m.mu.Lock()
			delete(retrying, deviceType)
			m.mu.Unlock()
		}()

		if err := m.RetryReconnect(ctx, name, deviceType); err != nil && ctx.Err() == nil && m.logger != nil {
			m.logger.Warn("⚠️ Gave up reconnecting device",
				zap.String("device", name),
				zap.String("device_type", string(deviceType)),
				zap.Error(err),
			)
		}
	}()
}

// Retranscribe runs the transcription engine over the saved audio and
// replaces the stored transcript.
func (m *RecordingManager) Retranscribe(ctx context.Context) ([]entities.TranscriptSegment, error) {
	if m.deps.Engine == nil {
		return nil, appErrors.ErrConfiguration("no transcription engine configured", nil)
	}
	_, saver := m.current()
	if saver == nil {
		return nil, appErrors.ErrNoActiveSession(usecaseErrors.ErrNoActiveSession)
	}
	meta := saver.Metadata()
	if meta == nil || !meta.IsCompleted() {
		return nil, appErrors.ErrInvalidState("not_saved", "retranscribe", usecaseErrors.ErrNotRecording)
	}

	path := filepath.Join(saver.MeetingFolder(), meta.AudioFile)
	if m.logger != nil {
		m.logger.Info("📝 Retranscribing recording", zap.String("engine", m.deps.Engine.Name()), zap.String("audio_file", path))
	}

	segments, err := m.deps.Engine.TranscribeFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to transcribe %s: %w", path, err)
	}
	if err := saver.ReplaceTranscriptSegments(segments); err != nil {
		return nil, err
	}
	return segments, nil
}

// Close stops background work and releases the transcription engine
func (m *RecordingManager) Close(ctx context.Context) error {
	m.CleanupWithoutSave(ctx)
	if m.deps.Engine != nil {
		return m.deps.Engine.Close()
	}
	return nil
}

func (m *RecordingManager) statusChanged(ctx context.Context, deviceType *entities.DeviceType) {
	state, saver := m.current()
	stats := state.Stats()
	m.metrics.SetState(string(stats.Status), AllStatuses)

	meetingID := ""
	if saver != nil {
		meetingID = saver.MeetingID()
	}
	m.deps.Notifier.StatusChanged(ctx, meetingID, stats, deviceType)
}
