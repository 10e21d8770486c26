package recording

import (
	"context"

	"github.com/johnquangdev/meeting-recorder/internal/domain/entities"
)

// Service is the recording control surface used by the HTTP handlers
type Service interface {
	StartRecordingWithDevices(ctx context.Context, microphone, system string) error
	SetMeetingName(name string)
	StopRecording(ctx context.Context) (*SaveResult, error)
	StopRecordingWithFlush(ctx context.Context) (*SaveResult, error)
	PauseRecording(ctx context.Context) error
	ResumeRecording(ctx context.Context) error
	Stats() ManagerStats
	AddTranscriptSegment(ctx context.Context, seg entities.TranscriptSegment) error
	GetTranscriptSegments() []entities.TranscriptSegment
	HandleDeviceReconnect(ctx context.Context, name string, deviceType entities.DeviceType) error
	Retranscribe(ctx context.Context) ([]entities.TranscriptSegment, error)
}

var _ Service = (*RecordingManager)(nil)
