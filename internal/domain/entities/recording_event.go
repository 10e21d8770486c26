package entities

import "time"

// EventVersion is bumped when an event payload changes shape
const EventVersion = 1

// RecordingEventType names events emitted to listeners
type RecordingEventType string

const (
	EventRecordingSaved   RecordingEventType = "recording-saved"
	EventRecordingStatus  RecordingEventType = "recording-status"
	EventDeviceChanged    RecordingEventType = "device-event"
	EventTranscriptUpdate RecordingEventType = "transcript-updated"
)

// RecordingEvent is the envelope published to UI clients and brokers
type RecordingEvent struct {
	Type      RecordingEventType `json:"type"`
	Version   int                `json:"version"`
	Timestamp string             `json:"timestamp"`
	MeetingID string             `json:"meeting_id,omitempty"`
	Payload   interface{}        `json:"payload"`
}

// NewRecordingEvent stamps an event with the current time
func NewRecordingEvent(eventType RecordingEventType, meetingID string, payload interface{}, now time.Time) RecordingEvent {
	if now.IsZero() {
		now = time.Now()
	}
	return RecordingEvent{
		Type:      eventType,
		Version:   EventVersion,
		Timestamp: now.UTC().Format(time.RFC3339),
		MeetingID: meetingID,
		Payload:   payload,
	}
}

// RecordingSaved is the payload of a recording-saved event
type RecordingSaved struct {
	MeetingID      string  `json:"meeting_id"`
	AudioFile      string  `json:"audio_file"`
	TranscriptFile string  `json:"transcript_file"`
	MeetingName    *string `json:"meeting_name"`
	MeetingFolder  string  `json:"meeting_folder"`
	SegmentCount   int     `json:"segment_count"`
}

// StatusChanged is the payload of a recording-status event
type StatusChanged struct {
	Status     string      `json:"status"`
	DeviceType *DeviceType `json:"device_type,omitempty"`
}
