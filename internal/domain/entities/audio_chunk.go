package entities

import (
	"fmt"
	"time"
)

// DeviceType identifies which capture leg a chunk or device belongs to
type DeviceType string

const (
	DeviceTypeMicrophone DeviceType = "microphone"
	DeviceTypeSystem     DeviceType = "system"
)

// IsValid checks if the device type is known
func (d DeviceType) IsValid() bool {
	return d == DeviceTypeMicrophone || d == DeviceTypeSystem
}

// Other returns the opposite leg
func (d DeviceType) Other() DeviceType {
	if d == DeviceTypeMicrophone {
		return DeviceTypeSystem
	}
	return DeviceTypeMicrophone
}

// ParseDeviceType accepts the API spellings of a device type
func ParseDeviceType(s string) (DeviceType, error) {
	switch s {
	case "microphone", "mic", "input":
		return DeviceTypeMicrophone, nil
	case "system", "system_audio", "output":
		return DeviceTypeSystem, nil
	default:
		return "", fmt.Errorf("unknown device type %q", s)
	}
}

// AudioChunk is a block of already-mixed samples handed to the saver
type AudioChunk struct {
	Samples    []float32
	SampleRate uint32
	DeviceType DeviceType
}

// NewAudioChunk copies samples so the producer keeps ownership of its buffer
func NewAudioChunk(samples []float32, sampleRate uint32, deviceType DeviceType) AudioChunk {
	owned := make([]float32, len(samples))
	copy(owned, samples)
	return AudioChunk{
		Samples:    owned,
		SampleRate: sampleRate,
		DeviceType: deviceType,
	}
}

// Len returns the number of samples in the chunk
func (c AudioChunk) Len() int {
	return len(c.Samples)
}

// Duration returns the playback length of the chunk
func (c AudioChunk) Duration() time.Duration {
	if c.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(len(c.Samples)) / float64(c.SampleRate) * float64(time.Second))
}
