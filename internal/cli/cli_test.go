package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-recorder/internal/adapter/repository"
	"github.com/johnquangdev/meeting-recorder/internal/domain/entities"
	"github.com/johnquangdev/meeting-recorder/internal/infrastructure/audio"
	"github.com/johnquangdev/meeting-recorder/pkg/config"
	"github.com/johnquangdev/meeting-recorder/pkg/jwt"
)

func testDeps(t *testing.T) *Dependencies {
	t.Helper()
	dir := t.TempDir()
	return &Dependencies{
		Config: &config.Config{
			Recording: config.RecordingConfig{
				SaveFolder:      filepath.Join(dir, "recordings"),
				PreferencesFile: filepath.Join(dir, "preferences.yaml"),
				FileFormat:      "wav",
				AutoSave:        true,
			},
			Auth: config.AuthConfig{Secret: "s3cret", TokenExpiry: time.Hour, Issuer: "meeting-recorder"},
		},
		Logger: zap.NewNop(),
		Store:  repository.NewSessionRepository(),
	}
}

func execute(t *testing.T, deps *Dependencies, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd(deps)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// crashedMeeting leaves a folder the way an interrupted session does
func crashedMeeting(t *testing.T, deps *Dependencies, name string) string {
	t.Helper()
	folder := filepath.Join(deps.Config.Recording.SaveFolder, name)
	require.NoError(t, audio.EnsureLayout(folder))

	meta := entities.NewMeetingMetadata("m-"+name, "Standup", "audio.wav", 100, time.Now())
	require.NoError(t, deps.Store.WriteMetadata(folder, meta))

	ckpt := filepath.Join(folder, audio.CheckpointDirName)
	for i := uint32(0); i < 2; i++ {
		path := filepath.Join(ckpt, audio.CheckpointName(i, "wav"))
		require.NoError(t, audio.WAVEncoder{}.Encode(t.Context(), make([]float32, 50), 100, path))
	}
	return folder
}

func TestRecoverAndShow(t *testing.T) {
	deps := testDeps(t)
	folder := crashedMeeting(t, deps, "Standup_2026-01-02_10-00-00")

	out, err := execute(t, deps, "recover", folder)
	require.NoError(t, err)
	assert.Contains(t, out, "Recovered m-Standup_2026-01-02_10-00-00")

	n, err := audio.WAVSampleCount(filepath.Join(folder, "audio.wav"))
	require.NoError(t, err)
	assert.Equal(t, 100, n)

	out, err = execute(t, deps, "show", folder)
	require.NoError(t, err)
	assert.Contains(t, out, "Status:      completed")
	assert.Contains(t, out, "Transcript:  0 segment(s)")
}

func TestRecover_NothingToRecover(t *testing.T) {
	_, err := execute(t, testDeps(t), "recover", t.TempDir())
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	deps := testDeps(t)

	out, err := execute(t, deps, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No meetings found")

	crashedMeeting(t, deps, "A_2026-01-01_09-00-00")
	crashedMeeting(t, deps, "B_2026-01-02_09-00-00")

	out, err = execute(t, deps, "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "B_2026-01-02_09-00-00")
	assert.Contains(t, lines[0], "recording")
}

func TestPrefsSetAndShow(t *testing.T) {
	deps := testDeps(t)
	folder := filepath.Join(t.TempDir(), "elsewhere")

	_, err := execute(t, deps, "prefs", "set", "--save-folder", folder, "--auto-save=false")
	require.NoError(t, err)
	assert.DirExists(t, folder)

	prefs, err := deps.preferences().Load()
	require.NoError(t, err)
	assert.Equal(t, folder, prefs.SaveFolder)
	assert.False(t, prefs.AutoSave)
	assert.Equal(t, "wav", prefs.FileFormat, "unchanged flags keep their value")

	out, err := execute(t, deps, "prefs", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "auto_save: false")

	_, err = execute(t, deps, "prefs", "set", "--file-format", "flac")
	assert.Error(t, err)
}

func TestToken(t *testing.T) {
	deps := testDeps(t)

	out, err := execute(t, deps, "token", "--client", "desktop-ui", "--scope", jwt.ScopeRead)
	require.NoError(t, err)

	manager := jwt.NewManager("s3cret", time.Hour, "meeting-recorder")
	claims, err := manager.ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "desktop-ui", claims.Client)
	assert.True(t, claims.HasScope(jwt.ScopeRead))
	assert.False(t, claims.HasScope(jwt.ScopeControl))

	deps.Config.Auth.Secret = ""
	_, err = execute(t, deps, "token")
	assert.Error(t, err)
}

func TestShow_MissingFolder(t *testing.T) {
	_, err := execute(t, testDeps(t), "show", filepath.Join(os.TempDir(), "does-not-exist-meeting"))
	assert.Error(t, err)
}
