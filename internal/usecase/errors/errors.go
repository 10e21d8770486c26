package errors

import "errors"

// Common errors
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNotFound      = errors.New("resource not found")
	ErrInternalError = errors.New("internal server error")
)

// Checkpoint saver errors
var (
	ErrCheckpointDirMissing = errors.New("checkpoints directory does not exist")
	ErrNoCheckpoints        = errors.New("no audio checkpoints to merge")
	ErrMissingCheckpoint    = errors.New("checkpoint file missing")
	ErrMuxerFailed          = errors.New("muxer exited with failure")
	ErrMergeOutputMissing   = errors.New("merged output file was not created")
	ErrEmptyCheckpoint      = errors.New("attempted to encode empty checkpoint")
	ErrSaverFinalized       = errors.New("saver already finalized")
	ErrCheckpointGap        = errors.New("checkpoint sequence has a gap")
	ErrIngestionNotDrained  = errors.New("ingestion queue not drained")
)

// Session errors
var (
	ErrAlreadyRecording  = errors.New("recording already in progress")
	ErrNotRecording      = errors.New("recording not in progress")
	ErrNotPaused         = errors.New("recording is not paused")
	ErrNotReconnecting   = errors.New("session is not reconnecting")
	ErrSessionStopped    = errors.New("session already stopped")
	ErrNoActiveSession   = errors.New("no active recording session")
	ErrMicrophoneMissing = errors.New("no microphone device available for recording")
)

// Device errors
var (
	ErrDeviceUnavailable = errors.New("device not available")
	ErrUnknownDeviceType = errors.New("unknown device type")
)

// Persistence errors
var (
	ErrNoMeetingFolder     = errors.New("meeting folder not initialized")
	ErrTranscriptNotOnDisk = errors.New("transcript file missing after write")
	ErrLockContention      = errors.New("resource busy")
)
