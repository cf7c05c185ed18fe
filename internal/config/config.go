// Package config provides configuration management for heimdex-marks.
// Configuration is loaded from MARKS_* environment variables with defaults;
// command-line flags override individual values per invocation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	DefaultDataDir = ".heimdex-marks"

	// Environment variable names
	EnvPort          = "MARKS_PORT"
	EnvLogLevel      = "MARKS_LOG_LEVEL"
	EnvDataDir       = "MARKS_DATA_DIR"
	EnvOutputDir     = "MARKS_OUTPUT_DIR"
	EnvFFmpegPath    = "MARKS_FFMPEG_PATH"
	EnvFFprobePath   = "MARKS_FFPROBE_PATH"
	EnvProfilesFile  = "MARKS_PROFILES_FILE"
	EnvRenderTimeout = "MARKS_RENDER_TIMEOUT"

	DBFilename = "marks.db"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	OutputDir() string
	ThumbnailDir() string
	ThumbnailWidth() int
	ThumbnailHeight() int
	FFmpegPath() string
	FFprobePath() string
	ProfilesFile() string
	RenderTimeout() time.Duration
}

type values struct {
	Port            int           `env:"MARKS_PORT"             envDefault:"8797"`
	LogLevel        string        `env:"MARKS_LOG_LEVEL"        envDefault:"info"`
	DataDir         string        `env:"MARKS_DATA_DIR"`
	OutputDir       string        `env:"MARKS_OUTPUT_DIR"       envDefault:"./outputfiles"`
	ThumbnailWidth  int           `env:"MARKS_THUMBNAIL_WIDTH"  envDefault:"96"`
	ThumbnailHeight int           `env:"MARKS_THUMBNAIL_HEIGHT" envDefault:"74"`
	FFmpegPath      string        `env:"MARKS_FFMPEG_PATH"`
	FFprobePath     string        `env:"MARKS_FFPROBE_PATH"`
	ProfilesFile    string        `env:"MARKS_PROFILES_FILE"`
	RenderTimeout   time.Duration `env:"MARKS_RENDER_TIMEOUT"   envDefault:"2m"`
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	v values
}

// New parses the environment and validates the result.
func New() (*EnvConfig, error) {
	var v values
	if err := env.Parse(&v); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if v.Port < 1 || v.Port > 65535 {
		return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
	}
	if v.ThumbnailWidth <= 0 || v.ThumbnailHeight <= 0 {
		return nil, fmt.Errorf("invalid thumbnail size %dx%d", v.ThumbnailWidth, v.ThumbnailHeight)
	}
	if v.RenderTimeout <= 0 {
		return nil, fmt.Errorf("invalid %s: must be positive", EnvRenderTimeout)
	}
	if v.DataDir == "" {
		v.DataDir = defaultDataDir()
	}
	return &EnvConfig{v: v}, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.v.Port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.v.LogLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.v.DataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.v.DataDir, DBFilename)
}

// OutputDir is where CSV, XLSX and EDL reports are written.
func (c *EnvConfig) OutputDir() string {
	return c.v.OutputDir
}

// ThumbnailDir returns the thumbnail cache inside the output directory
func (c *EnvConfig) ThumbnailDir() string {
	return filepath.Join(c.v.OutputDir, "thumbnails")
}

func (c *EnvConfig) ThumbnailWidth() int {
	return c.v.ThumbnailWidth
}

func (c *EnvConfig) ThumbnailHeight() int {
	return c.v.ThumbnailHeight
}

func (c *EnvConfig) FFmpegPath() string {
	return c.v.FFmpegPath
}

func (c *EnvConfig) FFprobePath() string {
	return c.v.FFprobePath
}

func (c *EnvConfig) ProfilesFile() string {
	return c.v.ProfilesFile
}

func (c *EnvConfig) RenderTimeout() time.Duration {
	return c.v.RenderTimeout
}

// SetOutputDir overrides the output directory from a flag.
func (c *EnvConfig) SetOutputDir(dir string) {
	if dir != "" {
		c.v.OutputDir = dir
	}
}

// SetLogLevel overrides the log level from a flag.
func (c *EnvConfig) SetLogLevel(level string) {
	if level != "" {
		c.v.LogLevel = level
	}
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
