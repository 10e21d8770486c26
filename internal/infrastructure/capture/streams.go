package capture

import (
	"context"
	"encoding/binary"
	stdErrors "errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-recorder/internal/domain/entities"
)

const legStopTimeout = 3 * time.Second

// StreamErrorFunc is called when a running leg dies on its own
type StreamErrorFunc func(ctx context.Context, deviceType entities.DeviceType, err error)

type leg struct {
	device entities.AudioDevice
	cancel context.CancelFunc
	done   chan struct{}
}

// FFmpegStreams captures every leg with its own ffmpeg process that writes
// raw mono float32 samples to stdout. Samples go straight to the mixer.
type FFmpegStreams struct {
	ffmpegPath string
	goos       string
	sampleRate uint32
	mixer      *Mixer
	logger     *zap.Logger

	mu      sync.Mutex
	legs    map[entities.DeviceType]*leg
	onError StreamErrorFunc
}

func NewFFmpegStreams(ffmpegPath, goos string, sampleRate uint32, mixer *Mixer, logger *zap.Logger) *FFmpegStreams {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FFmpegStreams{
		ffmpegPath: ffmpegPath,
		goos:       goos,
		sampleRate: sampleRate,
		mixer:      mixer,
		logger:     logger,
		legs:       make(map[entities.DeviceType]*leg),
	}
}

// OnStreamError registers the callback for legs that exit unexpectedly
func (s *FFmpegStreams) OnStreamError(fn StreamErrorFunc) {
	s.mu.Lock()
	s.onError = fn
	s.mu.Unlock()
}

// CaptureArgs builds the ffmpeg arguments for one device
func CaptureArgs(goos, device string, sampleRate uint32) []string {
	var input []string
	switch goos {
	case "darwin":
		input = []string{"-f", "avfoundation", "-i", ":" + device}
	case "windows":
		input = []string{"-f", "dshow", "-i", "audio=" + device}
	default:
		input = []string{"-f", "pulse", "-i", device}
	}
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	args = append(args, input...)
	return append(args,
		"-ac", "1",
		"-ar", fmt.Sprint(sampleRate),
		"-f", "f32le",
		"-",
	)
}

func (s *FFmpegStreams) StartStream(ctx context.Context, device entities.AudioDevice, deviceType entities.DeviceType) error {
	if err := s.StopStream(ctx, deviceType); err != nil {
		return err
	}

	legCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(legCtx, s.ffmpegPath, CaptureArgs(s.goos, device.Name, s.sampleRate)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("capture pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("start capture for %s: %w", device.Name, err)
	}

	l := &leg{device: device, cancel: cancel, done: make(chan struct{})}
	s.mixer.AddLeg(deviceType)

	s.mu.Lock()
	s.legs[deviceType] = l
	s.mu.Unlock()

	s.logger.Info("🎤 Capture stream started",
		zap.String("device", device.Name),
		zap.String("device_type", string(deviceType)),
	)

	go s.readLoop(legCtx, cmd, stdout, l, deviceType)
	return nil
}

func (s *FFmpegStreams) readLoop(ctx context.Context, cmd *exec.Cmd, stdout io.Reader, l *leg, deviceType entities.DeviceType) {
	err := ReadSamples(stdout, int(s.sampleRate)/framesPerSecond, func(samples []float32) {
		s.mixer.Push(deviceType, samples)
	})
	waitErr := cmd.Wait()
	close(l.done)

	if ctx.Err() != nil {
		return
	}
	if err == nil {
		err = waitErr
	}
	if err == nil {
		err = stdErrors.New("capture process exited")
	}

	s.mu.Lock()
	onError := s.onError
	s.mu.Unlock()
	s.logger.Warn("⚠️ Capture stream ended unexpectedly",
		zap.String("device", l.device.Name),
		zap.String("device_type", string(deviceType)),
		zap.Error(err),
	)
	if onError != nil {
		onError(context.Background(), deviceType, err)
	}
}

// ReadSamples decodes little-endian float32 samples from r in blocks of
// frame samples until EOF. A trailing partial block is still delivered.
func ReadSamples(r io.Reader, frame int, push func([]float32)) error {
	if frame <= 0 {
		frame = 1
	}
	buf := make([]byte, frame*4)
	for {
		n, err := io.ReadFull(r, buf)
		if whole := n / 4; whole > 0 {
			samples := make([]float32, whole)
			for i := range samples {
				samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
			}
			push(samples)
		}
		switch {
		case err == nil:
		case stdErrors.Is(err, io.EOF), stdErrors.Is(err, io.ErrUnexpectedEOF):
			return nil
		default:
			return err
		}
	}
}

func (s *FFmpegStreams) StopStream(ctx context.Context, deviceType entities.DeviceType) error {
	s.mu.Lock()
	l, ok := s.legs[deviceType]
	delete(s.legs, deviceType)
	s.mu.Unlock()
	if !ok {
		return nil
	}

	l.cancel()
	select {
	case <-l.done:
	case <-time.After(legStopTimeout):
		s.logger.Warn("⚠️ Capture process did not exit in time", zap.String("device_type", string(deviceType)))
	}
	s.mixer.RemoveLeg(deviceType)
	s.logger.Info("🛑 Capture stream stopped", zap.String("device_type", string(deviceType)))
	return nil
}

func (s *FFmpegStreams) StopAll(ctx context.Context) error {
	s.mu.Lock()
	types := make([]entities.DeviceType, 0, len(s.legs))
	for t := range s.legs {
		types = append(types, t)
	}
	s.mu.Unlock()

	for _, t := range types {
		if err := s.StopStream(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (s *FFmpegStreams) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.legs)
}
