package entities

import (
	"fmt"
	"time"
)

const TranscriptFileVersion = "1.0"

// TranscriptSegment is one recognized span of speech. SequenceID is the identity key.
type TranscriptSegment struct {
	ID             string  `json:"id"`
	Text           string  `json:"text"`
	AudioStartTime float64 `json:"audio_start_time" validate:"gte=0"`
	AudioEndTime   float64 `json:"audio_end_time" validate:"gtefield=AudioStartTime"`
	Duration       float64 `json:"duration" validate:"gte=0"`
	DisplayTime    string  `json:"display_time"`
	Confidence     float32 `json:"confidence" validate:"gte=0,lte=1"`
	SequenceID     uint64  `json:"sequence_id"`
}

// TranscriptFile is the transcripts.json document
type TranscriptFile struct {
	Version       string              `json:"version"`
	Segments      []TranscriptSegment `json:"segments"`
	LastUpdated   string              `json:"last_updated"`
	TotalSegments int                 `json:"total_segments"`
}

// NewTranscriptFile wraps segments with the current timestamp
func NewTranscriptFile(segments []TranscriptSegment, now time.Time) TranscriptFile {
	if segments == nil {
		segments = []TranscriptSegment{}
	}
	return TranscriptFile{
		Version:       TranscriptFileVersion,
		Segments:      segments,
		LastUpdated:   now.UTC().Format(time.RFC3339),
		TotalSegments: len(segments),
	}
}

// NewLegacySegment builds a segment from plain text with no timing information
func NewLegacySegment(text string, now time.Time) TranscriptSegment {
	return TranscriptSegment{
		ID:          fmt.Sprintf("seg_%d", now.UnixMilli()),
		Text:        text,
		DisplayTime: "[00:00]",
		Confidence:  1.0,
		SequenceID:  0,
	}
}

// FormatDisplayTime renders an offset in seconds as "[mm:ss]"
func FormatDisplayTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("[%02d:%02d]", total/60, total%60)
}
