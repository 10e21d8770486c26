package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"go.uber.org/zap"

	appErrors "github.com/johnquangdev/meeting-recorder/errors"
	usecaseErrors "github.com/johnquangdev/meeting-recorder/internal/usecase/errors"
)

var checkpointPattern = regexp.MustCompile(`^audio_chunk_(\d+)\.(mp4|wav)$`)

// RecoveryResult describes a merge of checkpoints left by an interrupted session
type RecoveryResult struct {
	Output      string
	Extension   string
	Checkpoints uint32
}

// ScanCheckpoints returns the contiguous checkpoint count and extension found in dir
func ScanCheckpoints(dir string) (uint32, string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, "", appErrors.ErrNoCheckpoints(usecaseErrors.ErrCheckpointDirMissing)
		}
		return 0, "", appErrors.ErrIO("read checkpoints directory", err)
	}

	var (
		indexes []int
		ext     string
	)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := checkpointPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		if ext != "" && m[2] != ext {
			return 0, "", appErrors.ErrConfiguration("checkpoints use mixed formats", fmt.Errorf("%s and %s", ext, m[2]))
		}
		ext = m[2]
		i, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		indexes = append(indexes, i)
	}

	if len(indexes) == 0 {
		return 0, "", appErrors.ErrNoCheckpoints(usecaseErrors.ErrNoCheckpoints)
	}

	sort.Ints(indexes)
	for want, got := range indexes {
		if want != got {
			return 0, "", appErrors.ErrMissingCheckpoint(
				filepath.Join(dir, CheckpointName(uint32(want), ext)),
				usecaseErrors.ErrCheckpointGap,
			)
		}
	}
	return uint32(len(indexes)), ext, nil
}

// RecoverCheckpoints merges the checkpoints of an interrupted session in
// folder and removes them once the merged file exists. A muxer of nil picks
// one matching the checkpoint format.
func RecoverCheckpoints(ctx context.Context, folder string, muxer Muxer, ffmpegPath string, logger *zap.Logger) (*RecoveryResult, error) {
	dir := filepath.Join(folder, CheckpointDirName)

	count, ext, err := ScanCheckpoints(dir)
	if err != nil {
		return nil, err
	}
	if muxer == nil {
		muxer = NewMuxer(ext, ffmpegPath)
	}

	output := filepath.Join(folder, OutputBaseName+"."+ext)
	if logger != nil {
		logger.Info("🩹 Recovering checkpoints",
			zap.String("folder", folder),
			zap.Uint32("count", count),
			zap.String("output", output),
		)
	}

	if err := MergeCheckpoints(ctx, muxer, dir, ext, count, output); err != nil {
		return nil, err
	}

	if err := os.RemoveAll(dir); err != nil && logger != nil {
		logger.Warn("⚠️ Failed to remove checkpoints directory", zap.String("dir", dir), zap.Error(err))
	}

	return &RecoveryResult{Output: output, Extension: ext, Checkpoints: count}, nil
}
