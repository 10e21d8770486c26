package audio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"strconv"

	"github.com/johnquangdev/meeting-recorder/pkg/validator"
)

// Encoder turns a raw mono float32 buffer into a container file on disk.
// Implementations are stateless.
type Encoder interface {
	// Extension is the container extension without the dot ("wav", "mp4")
	Extension() string
	Encode(ctx context.Context, samples []float32, sampleRate uint32, path string) error
}

// NewEncoder selects the checkpoint encoder for a file format preference
func NewEncoder(format, ffmpegPath string) (Encoder, error) {
	switch format {
	case validator.FormatWAV:
		return WAVEncoder{}, nil
	case validator.FormatMP4, "":
		return NewFFmpegEncoder(ffmpegPath), nil
	default:
		return nil, fmt.Errorf("unsupported audio format %q", format)
	}
}

// WAVHeader represents the header structure of a canonical 44-byte WAV file
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

const wavHeaderSize = 44

func newWAVHeader(sampleRate uint32, dataSize uint32) WAVHeader {
	const numChannels, bitsPerSample = uint16(1), uint16(16)
	return WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   numChannels,
		SampleRate:    sampleRate,
		ByteRate:      sampleRate * uint32(numChannels) * uint32(bitsPerSample) / 8,
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
}

func (h WAVHeader) validate() error {
	if string(h.ChunkID[:]) != "RIFF" || string(h.Format[:]) != "WAVE" {
		return fmt.Errorf("invalid WAV file: missing RIFF/WAVE header")
	}
	if string(h.Subchunk1ID[:]) != "fmt " || string(h.Subchunk2ID[:]) != "data" {
		return fmt.Errorf("invalid WAV file: unexpected chunk layout")
	}
	if h.AudioFormat != 1 || h.BitsPerSample != 16 || h.NumChannels != 1 {
		return fmt.Errorf("unsupported WAV format: fmt=%d bits=%d channels=%d", h.AudioFormat, h.BitsPerSample, h.NumChannels)
	}
	return nil
}

// WAVEncoder writes 16-bit PCM mono WAV files
type WAVEncoder struct{}

func (WAVEncoder) Extension() string { return validator.FormatWAV }

// Encode clamps samples to [-1, 1] and writes them as 16-bit PCM
func (WAVEncoder) Encode(ctx context.Context, samples []float32, sampleRate uint32, path string) error {
	if len(samples) == 0 {
		return fmt.Errorf("cannot encode empty audio samples")
	}
	if sampleRate == 0 {
		return fmt.Errorf("sample rate must be positive")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	pcm := FloatToPCM16(samples)
	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(pcm)*2))
	if err := binary.Write(buf, binary.LittleEndian, newWAVHeader(sampleRate, uint32(len(pcm)*2))); err != nil {
		return fmt.Errorf("failed to write WAV header: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, pcm); err != nil {
		return fmt.Errorf("failed to write audio data: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// FloatToPCM16 converts normalized float samples to int16, clamping out-of-range values
func FloatToPCM16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		if math.IsNaN(float64(s)) {
			s = 0
		}
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		out[i] = int16(s * math.MaxInt16)
	}
	return out
}

// ReadWAVHeader reads and validates the header of a WAV file produced by WAVEncoder
func ReadWAVHeader(r io.Reader) (WAVHeader, error) {
	var h WAVHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return h, fmt.Errorf("failed to read WAV header: %w", err)
	}
	return h, h.validate()
}

// WAVSampleCount returns the number of samples stored in a WAV file
func WAVSampleCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h, err := ReadWAVHeader(f)
	if err != nil {
		return 0, err
	}
	return int(h.Subchunk2Size) / 2, nil
}

// FFmpegEncoder pipes raw f32le samples into ffmpeg and writes AAC in an mp4 container
type FFmpegEncoder struct {
	ffmpegPath string
	bitrate    string
}

func NewFFmpegEncoder(ffmpegPath string) *FFmpegEncoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegEncoder{ffmpegPath: ffmpegPath, bitrate: "128k"}
}

func (e *FFmpegEncoder) Extension() string { return validator.FormatMP4 }

func (e *FFmpegEncoder) Encode(ctx context.Context, samples []float32, sampleRate uint32, path string) error {
	if len(samples) == 0 {
		return fmt.Errorf("cannot encode empty audio samples")
	}

	cmd := exec.CommandContext(ctx, e.ffmpegPath,
		"-hide_banner", "-loglevel", "error",
		"-f", "f32le",
		"-ar", strconv.FormatUint(uint64(sampleRate), 10),
		"-ac", "1",
		"-i", "pipe:0",
		"-c:a", "aac",
		"-b:a", e.bitrate,
		"-y", path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open ffmpeg stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	w := bufio.NewWriterSize(stdin, 64*1024)
	writeErr := binary.Write(w, binary.LittleEndian, samples)
	if writeErr == nil {
		writeErr = w.Flush()
	}
	stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg encode failed: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	if writeErr != nil {
		return fmt.Errorf("failed to stream samples to ffmpeg: %w", writeErr)
	}
	return nil
}
