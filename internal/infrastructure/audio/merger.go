package audio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	stdErrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	appErrors "github.com/johnquangdev/meeting-recorder/errors"
	usecaseErrors "github.com/johnquangdev/meeting-recorder/internal/usecase/errors"
	"github.com/johnquangdev/meeting-recorder/pkg/validator"
)

// ManifestName is the transient concat list written next to the checkpoints
const ManifestName = "concat_list.txt"

// Muxer splices already-encoded containers listed in a manifest into output
// without re-encoding.
type Muxer interface {
	Concat(ctx context.Context, manifest, output string) error
}

// MuxerError carries the external tool's diagnostic output
type MuxerError struct {
	Err         error
	Diagnostics string
}

func (e *MuxerError) Error() string {
	if e.Diagnostics == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Diagnostics)
}

func (e *MuxerError) Unwrap() error { return e.Err }

// NewMuxer picks the splice strategy for a checkpoint format
func NewMuxer(format, ffmpegPath string) Muxer {
	if format == validator.FormatWAV {
		return WAVMuxer{}
	}
	return NewFFmpegMuxer(ffmpegPath)
}

// FFmpegMuxer runs the ffmpeg concat demuxer with stream copy
type FFmpegMuxer struct {
	ffmpegPath string
}

func NewFFmpegMuxer(ffmpegPath string) *FFmpegMuxer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegMuxer{ffmpegPath: ffmpegPath}
}

func (m *FFmpegMuxer) Concat(ctx context.Context, manifest, output string) error {
	cmd := exec.CommandContext(ctx, m.ffmpegPath,
		"-hide_banner",
		"-f", "concat",
		"-safe", "0",
		"-i", manifest,
		"-c", "copy",
		"-y", output,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return &MuxerError{
			Err:         fmt.Errorf("%w: %v", usecaseErrors.ErrMuxerFailed, err),
			Diagnostics: strings.TrimSpace(stderr.String()),
		}
	}
	return nil
}

// WAVMuxer splices 16-bit PCM WAV checkpoints by copying their data chunks
// behind a single rewritten header.
type WAVMuxer struct{}

func (WAVMuxer) Concat(ctx context.Context, manifest, output string) error {
	paths, err := ReadManifest(manifest)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return &MuxerError{Err: usecaseErrors.ErrMuxerFailed, Diagnostics: "empty manifest"}
	}

	out, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	defer out.Close()

	// placeholder header, rewritten once the total size is known
	if _, err := out.Write(make([]byte, wavHeaderSize)); err != nil {
		return err
	}

	var (
		total      uint32
		sampleRate uint32
	)
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, rate, err := appendWAVData(out, p)
		if err != nil {
			return &MuxerError{Err: fmt.Errorf("%w: %v", usecaseErrors.ErrMuxerFailed, err), Diagnostics: p}
		}
		if sampleRate != 0 && rate != sampleRate {
			return &MuxerError{
				Err:         usecaseErrors.ErrMuxerFailed,
				Diagnostics: fmt.Sprintf("%s: sample rate %d does not match %d", p, rate, sampleRate),
			}
		}
		sampleRate = rate
		total += n
	}

	if _, err := out.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := binary.Write(out, binary.LittleEndian, newWAVHeader(sampleRate, total)); err != nil {
		return fmt.Errorf("failed to write WAV header: %w", err)
	}
	return out.Sync()
}

func appendWAVData(dst io.Writer, path string) (uint32, uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	h, err := ReadWAVHeader(f)
	if err != nil {
		return 0, 0, err
	}
	n, err := io.CopyN(dst, f, int64(h.Subchunk2Size))
	if err != nil {
		return 0, 0, err
	}
	return uint32(n), h.SampleRate, nil
}

// CheckpointName is the fixed-width file name for checkpoint index i
func CheckpointName(i uint32, ext string) string {
	return fmt.Sprintf("audio_chunk_%03d.%s", i, ext)
}

// WriteManifest writes a concat-demuxer list of absolute paths
func WriteManifest(path string, files []string) error {
	var b strings.Builder
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(abs, "'", `'\''`))
		b.WriteString("'\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// ReadManifest parses a list written by WriteManifest
func ReadManifest(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var files []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.HasPrefix(line, "file '") || !strings.HasSuffix(line, "'") {
			return nil, fmt.Errorf("malformed manifest line %q", line)
		}
		inner := strings.TrimSuffix(strings.TrimPrefix(line, "file '"), "'")
		files = append(files, strings.ReplaceAll(inner, `'\''`, "'"))
	}
	return files, sc.Err()
}

// MergeCheckpoints splices checkpoints 0..count-1 from dir into output.
// Every expected file must exist before the muxer runs.
func MergeCheckpoints(ctx context.Context, muxer Muxer, dir, ext string, count uint32, output string) error {
	if count == 0 {
		return appErrors.ErrNoCheckpoints(usecaseErrors.ErrNoCheckpoints)
	}

	files := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		p := filepath.Join(dir, CheckpointName(i, ext))
		if _, err := os.Stat(p); err != nil {
			return appErrors.ErrMissingCheckpoint(p, fmt.Errorf("%w: %v", usecaseErrors.ErrMissingCheckpoint, err))
		}
		files = append(files, p)
	}

	manifest := filepath.Join(dir, ManifestName)
	if err := WriteManifest(manifest, files); err != nil {
		return appErrors.ErrIO("write concat manifest", err)
	}

	if err := muxer.Concat(ctx, manifest, output); err != nil {
		var me *MuxerError
		if stdErrors.As(err, &me) {
			return appErrors.ErrMerge(output, me.Diagnostics, err)
		}
		return appErrors.ErrMerge(output, "", err)
	}

	info, err := os.Stat(output)
	if err != nil {
		return appErrors.ErrMerge(output, "", usecaseErrors.ErrMergeOutputMissing)
	}
	if info.Size() == 0 {
		return appErrors.ErrMerge(output, "output is empty", usecaseErrors.ErrMergeOutputMissing)
	}
	return nil
}
