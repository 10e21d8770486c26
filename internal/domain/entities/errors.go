package entities

import "errors"

// Domain errors
var (
	// Metadata errors
	ErrInvalidSampleRate = errors.New("invalid sample rate")
	ErrEmptyMeetingID    = errors.New("meeting id is required")

	// Transcript errors
	ErrInvalidSegmentTiming = errors.New("segment end time precedes start time")

	// Device errors
	ErrInvalidDeviceType = errors.New("invalid device type")
)
