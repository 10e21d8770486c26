package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/johnquangdev/meeting-recorder/pkg/validator"
)

const recordingsDirName = "meetily-recordings"

// RecordingPreferences are the user-facing save settings
type RecordingPreferences struct {
	SaveFolder         string  `yaml:"save_folder" json:"save_folder" validate:"required"`
	AutoSave           bool    `yaml:"auto_save" json:"auto_save"`
	FileFormat         string  `yaml:"file_format" json:"file_format" validate:"audioformat"`
	SystemAudioBackend *string `yaml:"system_audio_backend,omitempty" json:"system_audio_backend,omitempty"`
}

// DefaultRecordingsFolder returns the per-platform default save folder
func DefaultRecordingsFolder(goos, home string) string {
	switch goos {
	case "windows":
		return filepath.Join(home, "Music", recordingsDirName)
	case "darwin":
		return filepath.Join(home, "Movies", recordingsDirName)
	default:
		return filepath.Join(home, "Documents", recordingsDirName)
	}
}

// Preferences derives the default preferences from configuration
func (c *RecordingConfig) Preferences() RecordingPreferences {
	prefs := RecordingPreferences{
		SaveFolder: c.SaveFolder,
		AutoSave:   c.AutoSave,
		FileFormat: c.FileFormat,
	}
	if runtime.GOOS == "darwin" {
		backend := "coreaudio"
		prefs.SystemAudioBackend = &backend
	}
	return prefs
}

// PreferencesStore persists preferences as YAML, falling back to defaults
type PreferencesStore struct {
	mu       sync.Mutex
	path     string
	defaults RecordingPreferences
}

// NewPreferencesStore creates a new preferences store
func NewPreferencesStore(path string, defaults RecordingPreferences) *PreferencesStore {
	return &PreferencesStore{path: path, defaults: defaults}
}

// Load reads the preferences file. Fields absent from the file keep their defaults.
func (s *PreferencesStore) Load() (RecordingPreferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs := s.defaults
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return prefs, nil
		}
		return prefs, fmt.Errorf("failed to read preferences: %w", err)
	}

	if err := yaml.Unmarshal(data, &prefs); err != nil {
		return s.defaults, fmt.Errorf("failed to parse preferences %s: %w", s.path, err)
	}
	return prefs, nil
}

// Save validates and writes preferences, creating the save folder
func (s *PreferencesStore) Save(prefs RecordingPreferences) error {
	if err := validator.New().Validate(prefs); err != nil {
		return fmt.Errorf("invalid preferences: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(prefs.SaveFolder, 0o755); err != nil {
		return fmt.Errorf("failed to create recordings directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}

	data, err := yaml.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace preferences: %w", err)
	}
	return nil
}

// Path returns the preferences file location
func (s *PreferencesStore) Path() string {
	return s.path
}
