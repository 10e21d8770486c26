package entities

import "time"

// MeetingStatus represents the lifecycle of a persisted meeting
type MeetingStatus string

const (
	MeetingStatusRecording MeetingStatus = "recording"
	MeetingStatusCompleted MeetingStatus = "completed"
	MeetingStatusError     MeetingStatus = "error"
)

const (
	MetadataVersion       = "1.0"
	DefaultTranscriptFile = "transcripts.json"
	MetadataFile          = "metadata.json"
	DefaultSampleRate     = 48000
)

// DeviceInfo names the devices used for a meeting
type DeviceInfo struct {
	Microphone  *string `json:"microphone"`
	SystemAudio *string `json:"system_audio"`
}

// MeetingMetadata is the metadata.json document of a meeting folder
type MeetingMetadata struct {
	Version         string        `json:"version"`
	MeetingID       *string       `json:"meeting_id"`
	MeetingName     *string       `json:"meeting_name"`
	CreatedAt       string        `json:"created_at"`
	CompletedAt     *string       `json:"completed_at"`
	DurationSeconds *float64      `json:"duration_seconds"`
	Devices         DeviceInfo    `json:"devices"`
	AudioFile       string        `json:"audio_file"`
	TranscriptFile  string        `json:"transcript_file"`
	SampleRate      uint32        `json:"sample_rate"`
	Status          MeetingStatus `json:"status"`
	Error           *string       `json:"error,omitempty"`
}

// NewMeetingMetadata creates metadata for a meeting that just started recording
func NewMeetingMetadata(meetingID, meetingName, audioFile string, sampleRate uint32, now time.Time) *MeetingMetadata {
	m := &MeetingMetadata{
		Version:        MetadataVersion,
		CreatedAt:      now.UTC().Format(time.RFC3339),
		AudioFile:      audioFile,
		TranscriptFile: DefaultTranscriptFile,
		SampleRate:     sampleRate,
		Status:         MeetingStatusRecording,
	}
	if meetingID != "" {
		m.MeetingID = &meetingID
	}
	if meetingName != "" {
		m.MeetingName = &meetingName
	}
	return m
}

// SetDevices records device names; empty names are stored as null
func (m *MeetingMetadata) SetDevices(microphone, systemAudio string) {
	m.Devices = DeviceInfo{
		Microphone:  optionalString(microphone),
		SystemAudio: optionalString(systemAudio),
	}
}

// MarkAsCompleted marks the meeting as completed
func (m *MeetingMetadata) MarkAsCompleted(now time.Time, durationSeconds *float64) {
	completed := now.UTC().Format(time.RFC3339)
	m.Status = MeetingStatusCompleted
	m.CompletedAt = &completed
	m.DurationSeconds = durationSeconds
	m.Error = nil
}

// MarkAsFailed marks the meeting as failed
func (m *MeetingMetadata) MarkAsFailed(reason string) {
	m.Status = MeetingStatusError
	m.Error = &reason
}

// IsCompleted checks if the meeting finished saving
func (m *MeetingMetadata) IsCompleted() bool {
	return m.Status == MeetingStatusCompleted
}

// Clone returns a deep copy safe to serialize outside a lock
func (m *MeetingMetadata) Clone() *MeetingMetadata {
	if m == nil {
		return nil
	}
	c := *m
	c.MeetingID = cloneString(m.MeetingID)
	c.MeetingName = cloneString(m.MeetingName)
	c.CompletedAt = cloneString(m.CompletedAt)
	c.Error = cloneString(m.Error)
	c.Devices.Microphone = cloneString(m.Devices.Microphone)
	c.Devices.SystemAudio = cloneString(m.Devices.SystemAudio)
	if m.DurationSeconds != nil {
		d := *m.DurationSeconds
		c.DurationSeconds = &d
	}
	return &c
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
