package recording

// StartRecordingRequest represents the request to start a recording
type StartRecordingRequest struct {
	MeetingName string `json:"meeting_name" validate:"max=255"`
	Microphone  string `json:"microphone,omitempty" validate:"max=255"`
	SystemAudio string `json:"system_audio,omitempty" validate:"max=255"`
}

// StopRecordingRequest represents the request to stop and save a recording
type StopRecordingRequest struct {
	// ForceFlush drains the mixing pipeline before the streams stop
	ForceFlush bool `json:"force_flush"`
}

// TranscriptSegmentRequest upserts one transcript segment by sequence id
type TranscriptSegmentRequest struct {
	ID             string  `json:"id"`
	Text           string  `json:"text" validate:"required"`
	AudioStartTime float64 `json:"audio_start_time" validate:"gte=0"`
	AudioEndTime   float64 `json:"audio_end_time" validate:"gtefield=AudioStartTime"`
	Confidence     float32 `json:"confidence" validate:"gte=0,lte=1"`
	SequenceID     uint64  `json:"sequence_id"`
}

// ReconnectRequest asks for an immediate reconnect attempt of one leg
type ReconnectRequest struct {
	DeviceName string `json:"device_name" validate:"required"`
	DeviceType string `json:"device_type" validate:"required,oneof=microphone system"`
}

// ListMeetingsRequest represents query parameters for listing indexed meetings
type ListMeetingsRequest struct {
	SinceHours int `query:"since_hours" validate:"omitempty,min=1,max=8760"`
	Limit      int `query:"limit" validate:"omitempty,min=1,max=200"`
}
