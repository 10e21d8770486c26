package recording

import (
	"fmt"
	"sync"
	"time"

	appErrors "github.com/johnquangdev/meeting-recorder/errors"
	"github.com/johnquangdev/meeting-recorder/internal/domain/entities"
	usecaseErrors "github.com/johnquangdev/meeting-recorder/internal/usecase/errors"
)

// Status is the state of a recording session
type Status string

const (
	StatusIdle         Status = "idle"
	StatusRecording    Status = "recording"
	StatusPaused       Status = "paused"
	StatusReconnecting Status = "reconnecting"
	StatusStopped      Status = "stopped"
)

// AllStatuses lists every status, used for exclusive gauges
var AllStatuses = []string{
	string(StatusIdle), string(StatusRecording), string(StatusPaused),
	string(StatusReconnecting), string(StatusStopped),
}

// ErrorKind classifies failures reported to the session
type ErrorKind string

const (
	ErrorKindConfiguration     ErrorKind = "configuration"
	ErrorKindEncode            ErrorKind = "encode"
	ErrorKindMerge             ErrorKind = "merge"
	ErrorKindNoCheckpoints     ErrorKind = "no_checkpoints"
	ErrorKindDeviceUnavailable ErrorKind = "device_unavailable"
	ErrorKindStream            ErrorKind = "stream"
	ErrorKindLockContention    ErrorKind = "lock_contention"
	ErrorKindIO                ErrorKind = "io"
)

// IsFatal reports whether the session should be aborted on this kind
func (k ErrorKind) IsFatal() bool {
	switch k {
	case ErrorKindConfiguration, ErrorKindMerge, ErrorKindNoCheckpoints, ErrorKindIO:
		return true
	default:
		return false
	}
}

// ErrorKindOf maps an AppError code onto the session taxonomy
func ErrorKindOf(err error) ErrorKind {
	switch appErrors.CodeOf(err) {
	case appErrors.ErrorCode_CONFIGURATION:
		return ErrorKindConfiguration
	case appErrors.ErrorCode_ENCODE_FAILED:
		return ErrorKindEncode
	case appErrors.ErrorCode_MERGE_FAILED, appErrors.ErrorCode_MISSING_CHECKPOINT:
		return ErrorKindMerge
	case appErrors.ErrorCode_NO_CHECKPOINTS:
		return ErrorKindNoCheckpoints
	case appErrors.ErrorCode_DEVICE_UNAVAILABLE:
		return ErrorKindDeviceUnavailable
	case appErrors.ErrorCode_LOCK_CONTENTION:
		return ErrorKindLockContention
	case appErrors.ErrorCode_IO_FAILED:
		return ErrorKindIO
	default:
		return ErrorKindStream
	}
}

// ErrorInfo is the last error recorded by the session
type ErrorInfo struct {
	Kind       ErrorKind            `json:"kind"`
	Message    string               `json:"message"`
	DeviceType *entities.DeviceType `json:"device_type,omitempty"`
	At         time.Time            `json:"at"`
	Fatal      bool                 `json:"fatal"`
}

// PauseInterval is a closed pause. End is zero while the pause is open.
type PauseInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ReconnectingLeg describes a capture leg waiting for its device
type ReconnectingLeg struct {
	Device     entities.AudioDevice `json:"device"`
	DeviceType entities.DeviceType  `json:"device_type"`
	Since      time.Time            `json:"since"`
}

// ErrorCallback is invoked synchronously for every reported error
type ErrorCallback func(ErrorInfo)

// SessionStats is a snapshot of the session
type SessionStats struct {
	Status              Status            `json:"status"`
	StartedAt           *time.Time        `json:"started_at,omitempty"`
	Duration            float64           `json:"duration_seconds"`
	ActiveDuration      float64           `json:"active_duration_seconds"`
	TotalPauseDuration  float64           `json:"total_pause_seconds"`
	CurrentPauseSeconds *float64          `json:"current_pause_seconds,omitempty"`
	PauseCount          int               `json:"pause_count"`
	Microphone          *string           `json:"microphone"`
	SystemAudio         *string           `json:"system_audio"`
	Reconnecting        []ReconnectingLeg `json:"reconnecting"`
	ErrorCount          uint32            `json:"error_count"`
	LastError           *ErrorInfo        `json:"last_error,omitempty"`
}

// SessionState is the state machine of one recording session. All
// mutation goes through its transition methods.
type SessionState struct {
	mu  sync.RWMutex
	now func() time.Time

	status Status
	// status to return to once no leg is reconnecting
	resumeStatus Status

	microphone *entities.AudioDevice
	system     *entities.AudioDevice

	startedAt   time.Time
	stoppedAt   time.Time
	pauses      []PauseInterval
	pauseOpen   bool
	totalPaused time.Duration

	reconnecting map[entities.DeviceType]ReconnectingLeg

	errorCount uint32
	lastError  *ErrorInfo
	onError    ErrorCallback
}

// NewSessionState creates an idle session
func NewSessionState() *SessionState {
	return newSessionStateWithClock(time.Now)
}

func newSessionStateWithClock(now func() time.Time) *SessionState {
	return &SessionState{
		now:          now,
		status:       StatusIdle,
		reconnecting: make(map[entities.DeviceType]ReconnectingLeg),
	}
}

func invalid(current Status, op string, sentinel error) error {
	return appErrors.ErrInvalidState(string(current), op, sentinel)
}

// StartRecording moves Idle to Recording
func (s *SessionState) StartRecording() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusIdle {
		return appErrors.ErrAlreadyRecording(fmt.Errorf("%w: state is %s", usecaseErrors.ErrAlreadyRecording, s.status))
	}
	s.status = StatusRecording
	s.startedAt = s.now()
	return nil
}

// PauseRecording opens a pause interval. While a leg is reconnecting the
// status stays Reconnecting and Paused becomes the status restored after.
func (s *SessionState) PauseRecording() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.status == StatusRecording:
		s.status = StatusPaused
	case s.status == StatusReconnecting && s.resumeStatus == StatusRecording:
		s.resumeStatus = StatusPaused
	default:
		return invalid(s.status, "pause", usecaseErrors.ErrNotRecording)
	}
	s.pauses = append(s.pauses, PauseInterval{Start: s.now()})
	s.pauseOpen = true
	return nil
}

// ResumeRecording closes the open pause interval
func (s *SessionState) ResumeRecording() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.status == StatusPaused:
		s.status = StatusRecording
	case s.status == StatusReconnecting && s.resumeStatus == StatusPaused:
		s.resumeStatus = StatusRecording
	default:
		return invalid(s.status, "resume", usecaseErrors.ErrNotPaused)
	}
	s.closePauseLocked()
	return nil
}

func (s *SessionState) closePauseLocked() {
	if !s.pauseOpen {
		return
	}
	last := &s.pauses[len(s.pauses)-1]
	last.End = s.now()
	s.totalPaused += last.End.Sub(last.Start)
	s.pauseOpen = false
}

// StartReconnecting marks one leg as degraded. The session keeps running.
func (s *SessionState) StartReconnecting(device entities.AudioDevice, deviceType entities.DeviceType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case StatusRecording, StatusPaused:
		s.resumeStatus = s.status
	case StatusReconnecting:
		// another leg is already degraded
	default:
		return invalid(s.status, "start_reconnecting", usecaseErrors.ErrNotRecording)
	}

	s.reconnecting[deviceType] = ReconnectingLeg{Device: device, DeviceType: deviceType, Since: s.now()}
	s.status = StatusReconnecting
	return nil
}

// StopReconnecting clears a leg and returns to the prior active state once
// no leg is degraded.
func (s *SessionState) StopReconnecting(deviceType entities.DeviceType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusReconnecting {
		return invalid(s.status, "stop_reconnecting", usecaseErrors.ErrNotReconnecting)
	}
	delete(s.reconnecting, deviceType)
	if len(s.reconnecting) == 0 {
		s.status = s.resumeStatus
	}
	return nil
}

// StopRecording ends the session from any started state
func (s *SessionState) StopRecording() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case StatusIdle:
		return invalid(s.status, "stop", usecaseErrors.ErrNotRecording)
	case StatusStopped:
		return invalid(s.status, "stop", usecaseErrors.ErrSessionStopped)
	}
	s.closePauseLocked()
	s.reconnecting = make(map[entities.DeviceType]ReconnectingLeg)
	s.status = StatusStopped
	s.stoppedAt = s.now()
	return nil
}

// SetDevice records the device backing a leg; nil clears it
func (s *SessionState) SetDevice(deviceType entities.DeviceType, device *entities.AudioDevice) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var d *entities.AudioDevice
	if device != nil {
		c := *device
		d = &c
	}
	if deviceType == entities.DeviceTypeMicrophone {
		s.microphone = d
	} else {
		s.system = d
	}
}

// Device returns a copy of the device backing a leg
func (s *SessionState) Device(deviceType entities.DeviceType) *entities.AudioDevice {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d := s.system
	if deviceType == entities.DeviceTypeMicrophone {
		d = s.microphone
	}
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

// SetErrorCallback registers the error notification hook
func (s *SessionState) SetErrorCallback(cb ErrorCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = cb
}

// ReportError records err and invokes the callback synchronously outside the lock
func (s *SessionState) ReportError(kind ErrorKind, err error, deviceType *entities.DeviceType) ErrorInfo {
	info := ErrorInfo{Kind: kind, DeviceType: deviceType, Fatal: kind.IsFatal()}
	if err != nil {
		info.Message = err.Error()
	}

	s.mu.Lock()
	info.At = s.now()
	s.errorCount++
	s.lastError = &info
	cb := s.onError
	s.mu.Unlock()

	if cb != nil {
		cb(info)
	}
	return info
}

// HasFatalError reports whether the last error should abort the session
func (s *SessionState) HasFatalError() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError != nil && s.lastError.Fatal
}

// ErrorInfo returns the error count and the last error
func (s *SessionState) ErrorInfo() (uint32, *ErrorInfo) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastError == nil {
		return s.errorCount, nil
	}
	e := *s.lastError
	return s.errorCount, &e
}

func (s *SessionState) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// IsRecording is true while audio is being captured, including a degraded leg
func (s *SessionState) IsRecording() bool {
	st := s.Status()
	return st == StatusRecording || st == StatusReconnecting
}

func (s *SessionState) IsPaused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status == StatusPaused || (s.status == StatusReconnecting && s.resumeStatus == StatusPaused)
}

// IsActive is true from start until stop
func (s *SessionState) IsActive() bool {
	st := s.Status()
	return st == StatusRecording || st == StatusPaused || st == StatusReconnecting
}

func (s *SessionState) IsReconnecting() bool {
	return s.Status() == StatusReconnecting
}

// ReconnectingLegs returns the degraded legs
func (s *SessionState) ReconnectingLegs() []ReconnectingLeg {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.legsLocked()
}

func (s *SessionState) legsLocked() []ReconnectingLeg {
	legs := make([]ReconnectingLeg, 0, len(s.reconnecting))
	for _, t := range []entities.DeviceType{entities.DeviceTypeMicrophone, entities.DeviceTypeSystem} {
		if leg, ok := s.reconnecting[t]; ok {
			legs = append(legs, leg)
		}
	}
	return legs
}

// IsLegReconnecting reports whether deviceType is waiting for its device
func (s *SessionState) IsLegReconnecting(deviceType entities.DeviceType) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.reconnecting[deviceType]
	return ok
}

func (s *SessionState) endLocked() time.Time {
	if s.status == StatusStopped {
		return s.stoppedAt
	}
	return s.now()
}

// Duration is wall-clock time since start, nil before start
func (s *SessionState) Duration() *float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.startedAt.IsZero() {
		return nil
	}
	d := s.endLocked().Sub(s.startedAt).Seconds()
	return &d
}

// ActiveDuration is wall-clock time minus every pause, nil before start
func (s *SessionState) ActiveDuration() *float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.startedAt.IsZero() {
		return nil
	}
	d := (s.endLocked().Sub(s.startedAt) - s.pausedLocked()).Seconds()
	if d < 0 {
		d = 0
	}
	return &d
}

func (s *SessionState) pausedLocked() time.Duration {
	total := s.totalPaused
	if s.pauseOpen {
		total += s.now().Sub(s.pauses[len(s.pauses)-1].Start)
	}
	return total
}

// TotalPauseDuration includes the currently open pause
func (s *SessionState) TotalPauseDuration() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pausedLocked().Seconds()
}

// CurrentPauseDuration is the length of the open pause, nil when not paused
func (s *SessionState) CurrentPauseDuration() *float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.pauseOpen {
		return nil
	}
	d := s.now().Sub(s.pauses[len(s.pauses)-1].Start).Seconds()
	return &d
}

// Stats returns a consistent snapshot
func (s *SessionState) Stats() SessionStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := SessionStats{
		Status:             s.status,
		PauseCount:         len(s.pauses),
		Reconnecting:       s.legsLocked(),
		ErrorCount:         s.errorCount,
		TotalPauseDuration: s.pausedLocked().Seconds(),
	}
	if !s.startedAt.IsZero() {
		started := s.startedAt
		st.StartedAt = &started
		elapsed := s.endLocked().Sub(s.startedAt)
		st.Duration = elapsed.Seconds()
		st.ActiveDuration = (elapsed - s.pausedLocked()).Seconds()
	}
	if s.pauseOpen {
		d := s.now().Sub(s.pauses[len(s.pauses)-1].Start).Seconds()
		st.CurrentPauseSeconds = &d
	}
	if s.microphone != nil {
		name := s.microphone.Name
		st.Microphone = &name
	}
	if s.system != nil {
		name := s.system.Name
		st.SystemAudio = &name
	}
	if s.lastError != nil {
		e := *s.lastError
		st.LastError = &e
	}
	return st
}
