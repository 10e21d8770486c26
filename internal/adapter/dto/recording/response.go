package recording

import (
	"github.com/johnquangdev/meeting-recorder/internal/domain/entities"
)

// TranscriptsResponse lists the segments of the current session
type TranscriptsResponse struct {
	Segments      []entities.TranscriptSegment `json:"segments"`
	TotalSegments int                          `json:"total_segments"`
}

// MeetingsResponse lists indexed meetings
type MeetingsResponse struct {
	Meetings []*entities.MeetingRecord `json:"meetings"`
	Total    int                       `json:"total"`
}
