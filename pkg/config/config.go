// Package config loads the YAML configuration shared by the log tools.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-wal/pkg/archive"
	"github.com/dd0wney/cluso-wal/pkg/logging"
	"github.com/dd0wney/cluso-wal/pkg/metrics"
	"github.com/dd0wney/cluso-wal/pkg/wal"
)

// Config is the root of a tool configuration file.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Archive ArchiveConfig `yaml:"archive"`
}

// LogConfig locates and tunes the log file.
type LogConfig struct {
	Path           string `yaml:"path" validate:"required"`
	Sync           string `yaml:"sync" validate:"oneof=always none"`
	ReadBufferSize int    `yaml:"read_buffer_size" validate:"min=512,max=16777216"`
	// FileMode is an octal permission string such as "0644".
	FileMode string `yaml:"file_mode" validate:"filemode"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

type MetricsConfig struct {
	// Listen is the address for the /metrics endpoint. Empty disables it.
	Listen string `yaml:"listen" validate:"omitempty,hostname_port"`
}

// ArchiveConfig selects where exported segments are stored.
type ArchiveConfig struct {
	Backend string   `yaml:"backend" validate:"omitempty,oneof=dir s3"`
	Dir     string   `yaml:"dir" validate:"required_if=Backend dir"`
	Prefix  string   `yaml:"prefix"`
	S3      S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket       string `yaml:"bucket"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint" validate:"omitempty,url"`
	UsePathStyle bool   `yaml:"use_path_style"`

	// Static credentials. When empty the default AWS credential chain is used.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" validate:"required_with=AccessKeyID"`
	SessionToken    string `yaml:"session_token"`
}

// Default returns a configuration with every optional field filled in.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Path:           "data/log.wal",
			Sync:           wal.SyncAlways.String(),
			ReadBufferSize: wal.DefaultReadBufferSize,
			FileMode:       "0644",
		},
		Logging: LoggingConfig{Level: "info"},
		Archive: ArchiveConfig{Prefix: "wal"},
	}
}

// Load reads and validates the configuration file at path. Fields missing
// from the file keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over Default and validates the result. Unknown keys are
// rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FileModeValue returns the parsed FileMode. Call after Validate.
func (c LogConfig) FileModeValue() os.FileMode {
	mode, err := parseFileMode(c.FileMode)
	if err != nil {
		return 0644
	}
	return mode
}

// Options builds log options from the configuration.
func (c *Config) Options(logger logging.Logger, reg *metrics.Registry) (wal.Options, error) {
	sync, err := wal.ParseSyncMode(c.Log.Sync)
	if err != nil {
		return wal.Options{}, err
	}
	return wal.Options{
		Logger:         logger,
		Metrics:        reg,
		SyncMode:       sync,
		ReadBufferSize: c.Log.ReadBufferSize,
		FileMode:       c.Log.FileModeValue(),
	}, nil
}

// Logger builds a JSON logger writing to w at the configured level.
func (c *Config) Logger(w io.Writer) logging.Logger {
	return logging.NewJSONLogger(w, logging.ParseLevel(c.Logging.Level))
}

// ErrNoArchive is returned by ArchiveStore when no backend is configured.
var ErrNoArchive = errors.New("no archive backend configured")

// ArchiveStore opens the configured archive backend.
func (c *Config) ArchiveStore(ctx context.Context) (archive.Store, error) {
	switch c.Archive.Backend {
	case "dir":
		return archive.NewDirStore(c.Archive.Dir)
	case "s3":
		s := c.Archive.S3
		return archive.NewS3Store(ctx, archive.S3Config{
			Bucket:          s.Bucket,
			Region:          s.Region,
			Endpoint:        s.Endpoint,
			UsePathStyle:    s.UsePathStyle,
			AccessKeyID:     s.AccessKeyID,
			SecretAccessKey: s.SecretAccessKey,
			SessionToken:    s.SessionToken,
		})
	default:
		return nil, ErrNoArchive
	}
}

func parseFileMode(s string) (os.FileMode, error) {
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid file mode %q: %w", s, err)
	}
	if v == 0 || v > 0777 {
		return 0, fmt.Errorf("file mode %q out of range", s)
	}
	return os.FileMode(v), nil
}
