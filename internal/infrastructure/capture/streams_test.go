package capture

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/meeting-recorder/internal/domain/entities"
)

func TestCaptureArgs(t *testing.T) {
	linux := CaptureArgs("linux", "Speakers.monitor", 16000)
	assert.Contains(t, linux, "pulse")
	assert.Contains(t, linux, "Speakers.monitor")
	assert.Equal(t, []string{"-ac", "1", "-ar", "16000", "-f", "f32le", "-"}, linux[len(linux)-7:])

	assert.Contains(t, CaptureArgs("darwin", "default", 16000), ":default")
	assert.Contains(t, CaptureArgs("windows", "Mic (USB)", 16000), "audio=Mic (USB)")
}

func TestReadSamples(t *testing.T) {
	var raw bytes.Buffer
	for _, v := range []float32{0.5, -0.25, 1, 0, 0.125} {
		require.NoError(t, binary.Write(&raw, binary.LittleEndian, math.Float32bits(v)))
	}
	raw.WriteByte(0xff) // torn sample is dropped

	var blocks [][]float32
	err := ReadSamples(&raw, 2, func(s []float32) { blocks = append(blocks, s) })
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.5, -0.25}, {1, 0}, {0.125}}, blocks)
}

func TestFFmpegStreams_UnexpectedExitIsReported(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	script := filepath.Join(t.TempDir(), "fake-ffmpeg")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nhead -c 400 /dev/zero\n"), 0o755))

	mixer, sink := startMixer(t)
	streams := NewFFmpegStreams(script, "linux", 100, mixer, nil)

	failed := make(chan entities.DeviceType, 1)
	streams.OnStreamError(func(ctx context.Context, deviceType entities.DeviceType, err error) {
		failed <- deviceType
	})

	mic := entities.AudioDevice{Name: "mic", Kind: entities.DeviceKindInput}
	require.NoError(t, streams.StartStream(context.Background(), mic, entities.DeviceTypeMicrophone))
	assert.Equal(t, 1, streams.ActiveCount())

	select {
	case got := <-failed:
		assert.Equal(t, entities.DeviceTypeMicrophone, got)
	case <-time.After(5 * time.Second):
		t.Fatal("stream error was not reported")
	}

	require.NoError(t, streams.StopAll(context.Background()))
	assert.Equal(t, 0, streams.ActiveCount())
	assert.Len(t, sink.samples(), 100)
}
