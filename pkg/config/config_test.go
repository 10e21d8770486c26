package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MEETREC_RECORDING_SAVE_FOLDER", dir)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, uint32(48000), cfg.Recording.SampleRate)
	assert.Equal(t, 30, cfg.Recording.CheckpointSeconds)
	assert.Equal(t, 48000*30, cfg.Recording.CheckpointSamples())
	assert.Equal(t, "mp4", cfg.Recording.FileFormat)
	assert.True(t, cfg.Recording.AutoSave)
	assert.Equal(t, 200*time.Millisecond, cfg.Recording.StopGrace)
	assert.Equal(t, filepath.Join(dir, "preferences.yaml"), cfg.Recording.PreferencesFile)
	assert.False(t, cfg.AuthEnabled())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MEETREC_RECORDING_SAVE_FOLDER", t.TempDir())
	t.Setenv("MEETREC_RECORDING_FILE_FORMAT", "wav")
	t.Setenv("MEETREC_RECORDING_CHECKPOINT_SECONDS", "5")
	t.Setenv("MEETREC_SERVER_PORT", "9191")
	t.Setenv("MEETREC_AUTH_SECRET", "s3cret")
	t.Setenv("MEETREC_DB_SQLITE_PATH", "/tmp/idx.db")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "wav", cfg.Recording.FileFormat)
	assert.Equal(t, 5, cfg.Recording.CheckpointSeconds)
	assert.Equal(t, "9191", cfg.Server.Port)
	assert.True(t, cfg.AuthEnabled())
	assert.Equal(t, "/tmp/idx.db", cfg.GetDatabaseDSN())
}

func TestFromEnvRejectsUnknownFormat(t *testing.T) {
	t.Setenv("MEETREC_RECORDING_SAVE_FOLDER", t.TempDir())
	t.Setenv("MEETREC_RECORDING_FILE_FORMAT", "flac")

	_, err := FromEnv()
	require.Error(t, err)
}

func TestDefaultRecordingsFolder(t *testing.T) {
	home := "/home/alex"
	assert.Equal(t, filepath.Join(home, "Music", "meetily-recordings"), DefaultRecordingsFolder("windows", home))
	assert.Equal(t, filepath.Join(home, "Movies", "meetily-recordings"), DefaultRecordingsFolder("darwin", home))
	assert.Equal(t, filepath.Join(home, "Documents", "meetily-recordings"), DefaultRecordingsFolder("linux", home))
}

func TestPreferencesStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	defaults := RecordingPreferences{SaveFolder: filepath.Join(dir, "recordings"), AutoSave: true, FileFormat: "mp4"}
	store := NewPreferencesStore(filepath.Join(dir, "prefs", "preferences.yaml"), defaults)

	prefs, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, defaults, prefs, "missing file falls back to defaults")

	prefs.AutoSave = false
	prefs.FileFormat = "wav"
	require.NoError(t, store.Save(prefs))

	_, err = os.Stat(defaults.SaveFolder)
	require.NoError(t, err, "save folder is created")

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.False(t, loaded.AutoSave)
	assert.Equal(t, "wav", loaded.FileFormat)
}

func TestPreferencesPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "preferences.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auto_save: false\n"), 0o644))

	defaults := RecordingPreferences{SaveFolder: dir, AutoSave: true, FileFormat: "mp4"}
	prefs, err := NewPreferencesStore(path, defaults).Load()
	require.NoError(t, err)

	assert.False(t, prefs.AutoSave)
	assert.Equal(t, "mp4", prefs.FileFormat)
	assert.Equal(t, dir, prefs.SaveFolder)
}

func TestPreferencesSaveRejectsInvalid(t *testing.T) {
	store := NewPreferencesStore(filepath.Join(t.TempDir(), "p.yaml"), RecordingPreferences{})
	err := store.Save(RecordingPreferences{SaveFolder: t.TempDir(), FileFormat: "ogg"})
	require.Error(t, err)
}
