package repositories

import (
	"context"

	"github.com/johnquangdev/meeting-recorder/internal/domain/entities"
)

// DeviceLister enumerates the audio devices currently present
type DeviceLister interface {
	ListDevices(ctx context.Context) ([]entities.AudioDevice, error)
}

// CaptureStreams drives the per-device capture streams
type CaptureStreams interface {
	// StartStream starts capture for one leg bound to device
	StartStream(ctx context.Context, device entities.AudioDevice, deviceType entities.DeviceType) error

	// StopStream stops only the stream of the given leg
	StopStream(ctx context.Context, deviceType entities.DeviceType) error

	// StopAll stops every running stream
	StopAll(ctx context.Context) error

	// ActiveCount returns the number of running streams
	ActiveCount() int
}

// ChunkSink receives mixed audio from the pipeline. Send never fails;
// it returns false once the session has stopped consuming.
type ChunkSink interface {
	Send(chunk entities.AudioChunk) bool
}

// MixingPipeline turns raw device audio into mixed chunks
type MixingPipeline interface {
	Start(ctx context.Context, sink ChunkSink, sampleRate uint32) error

	// Stop stops the pipeline, letting it drain on its own schedule
	Stop(ctx context.Context) error

	// FlushAndStop pushes every buffered sample to the sink before stopping
	FlushAndStop(ctx context.Context) error
}

// TranscriptionEngine is a long-lived speech-to-text service
type TranscriptionEngine interface {
	Name() string
	TranscribeFile(ctx context.Context, path string) ([]entities.TranscriptSegment, error)
	Close() error
}
