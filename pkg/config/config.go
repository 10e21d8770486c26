package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/johnquangdev/meeting-recorder/pkg/validator"
)

// EnvPrefix is the prefix of every environment variable read by Load
const EnvPrefix = "MEETREC"

// Config holds application configuration
type Config struct {
	Server        ServerConfig        `envconfig:"SERVER"`
	Recording     RecordingConfig     `envconfig:"RECORDING"`
	Database      DatabaseConfig      `envconfig:"DB"`
	Redis         RedisConfig         `envconfig:"REDIS"`
	Storage       StorageConfig       `envconfig:"STORAGE"`
	Auth          AuthConfig          `envconfig:"AUTH"`
	Transcription TranscriptionConfig `envconfig:"ASSEMBLYAI"`
	Log           LogConfig           `envconfig:"LOG"`
	Metrics       MetricsConfig       `envconfig:"METRICS"`
}

// ServerConfig holds control API configuration
type ServerConfig struct {
	Port            string        `split_words:"true" default:"8080" validate:"required,numeric"`
	Host            string        `split_words:"true" default:"127.0.0.1"`
	Environment     string        `split_words:"true" default:"development" validate:"oneof=development staging production"`
	AllowedOrigins  []string      `split_words:"true" default:"http://localhost:3000"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
}

// RecordingConfig holds capture and persistence tuning
type RecordingConfig struct {
	SaveFolder        string        `split_words:"true"`
	PreferencesFile   string        `split_words:"true"`
	SampleRate        uint32        `split_words:"true" default:"48000" validate:"gte=8000,lte=192000"`
	CheckpointSeconds int           `split_words:"true" default:"30" validate:"gt=0"`
	FileFormat        string        `split_words:"true" default:"mp4" validate:"audioformat"`
	AutoSave          bool          `split_words:"true" default:"true"`
	FfmpegPath        string        `split_words:"true" default:"ffmpeg"`
	SettleDelay       time.Duration `split_words:"true" default:"50ms"`
	RestartDelay      time.Duration `split_words:"true" default:"100ms"`
	StopGrace         time.Duration `split_words:"true" default:"200ms"`
	DrainTimeout      time.Duration `split_words:"true" default:"10s"`
	MonitorInterval   time.Duration `split_words:"true" default:"2s" validate:"gt=0"`
	ReconnectTimeout  time.Duration `split_words:"true" default:"2m"`
}

// DatabaseConfig holds meeting index database configuration
type DatabaseConfig struct {
	Enabled     bool   `split_words:"true" default:"false"`
	Driver      string `split_words:"true" default:"sqlite" validate:"oneof=postgres sqlite"`
	Host        string `split_words:"true" default:"localhost"`
	Port        string `split_words:"true" default:"5432"`
	User        string `split_words:"true" default:"postgres"`
	Password    string `split_words:"true" default:"postgres"`
	Name        string `split_words:"true" default:"meeting_recorder"`
	SSLMode     string `split_words:"true" default:"disable"`
	SqlitePath  string `split_words:"true" default:"meetings.db"`
	MaxConns    int    `split_words:"true" default:"10"`
	MinConns    int    `split_words:"true" default:"2"`
	AutoMigrate bool   `split_words:"true" default:"true"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled   bool          `split_words:"true" default:"false"`
	Host      string        `split_words:"true" default:"localhost" validate:"required_if=Enabled true"`
	Port      string        `split_words:"true" default:"6379"`
	Password  string        `split_words:"true"`
	DB        int           `split_words:"true" default:"0"`
	Channel   string        `split_words:"true" default:"meetrec:events"`
	StatusTTL time.Duration `split_words:"true" default:"24h"`
}

// StorageConfig holds MinIO configuration
type StorageConfig struct {
	Enabled         bool   `split_words:"true" default:"false"`
	Endpoint        string `split_words:"true" default:"localhost:9000" validate:"required_if=Enabled true"`
	AccessKeyID     string `split_words:"true" default:"minioadmin"`
	SecretAccessKey string `split_words:"true" default:"minioadmin"`
	BucketName      string `split_words:"true" default:"meeting-recordings"`
	Prefix          string `split_words:"true" default:"meetings"`
	UseSSL          bool   `split_words:"true" default:"false"`
}

// AuthConfig holds control API token configuration. Auth is off when Secret is empty.
type AuthConfig struct {
	Secret      string        `split_words:"true"`
	TokenExpiry time.Duration `split_words:"true" default:"24h"`
	Issuer      string        `split_words:"true" default:"meeting-recorder"`
}

// TranscriptionConfig holds AssemblyAI configuration
type TranscriptionConfig struct {
	APIKey       string `split_words:"true"`
	BaseURL      string `split_words:"true"`
	LanguageCode string `split_words:"true" default:"en"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level       string `split_words:"true" default:"info" validate:"oneof=debug info warn error"`
	File        string `split_words:"true"`
	MaxSizeMB   int    `split_words:"true" default:"50"`
	MaxBackups  int    `split_words:"true" default:"5"`
	MaxAgeDays  int    `split_words:"true" default:"28"`
	Development bool   `split_words:"true" default:"false"`
}

// MetricsConfig holds Prometheus configuration
type MetricsConfig struct {
	Enabled bool   `split_words:"true" default:"true"`
	Path    string `split_words:"true" default:"/metrics"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	return FromEnv()
}

// FromEnv reads configuration from the process environment only
func FromEnv() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if cfg.Recording.SaveFolder == "" {
		cfg.Recording.SaveFolder = DefaultRecordingsFolder(runtime.GOOS, userHome())
	}
	if cfg.Recording.PreferencesFile == "" {
		cfg.Recording.PreferencesFile = filepath.Join(cfg.Recording.SaveFolder, "preferences.yaml")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validator.New().Validate(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Database.Enabled && c.Database.Driver == "postgres" && c.Database.Host == "" {
		return fmt.Errorf("%s_DB_HOST is required for postgres", EnvPrefix)
	}
	return nil
}

// CheckpointSamples returns the number of samples buffered before a checkpoint is written
func (c *RecordingConfig) CheckpointSamples() int {
	return int(c.SampleRate) * c.CheckpointSeconds
}

// AuthEnabled reports whether the control API requires a bearer token
func (c *Config) AuthEnabled() bool {
	return c.Auth.Secret != ""
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	if c.Database.Driver == "sqlite" {
		return c.Database.SqlitePath
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

func userHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
