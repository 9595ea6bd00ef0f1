// Package config defines the datilo configuration file and its defaults.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ayusman/datilo/internal/assembly"
	"github.com/ayusman/datilo/internal/features"
	"github.com/ayusman/datilo/internal/stabilizer"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Slog returns the matching slog level. Unknown values map to info.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogFormat selects the log handler.
type LogFormat string

const (
	// LogFormatAuto uses text on a terminal and JSON otherwise.
	LogFormatAuto LogFormat = "auto"
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// IsValid reports whether f is a recognised log format.
func (f LogFormat) IsValid() bool {
	switch f {
	case LogFormatAuto, LogFormatText, LogFormatJSON:
		return true
	}
	return false
}

// DetectorKind selects the hand landmark detector.
type DetectorKind string

const (
	DetectorMediaPipe DetectorKind = "mediapipe"
	DetectorMock      DetectorKind = "mock"
)

// IsValid reports whether k is a recognised detector kind.
func (k DetectorKind) IsValid() bool {
	return k == DetectorMediaPipe || k == DetectorMock
}

// Config is the root configuration.
type Config struct {
	// DataDir holds the database and, by default, the model artifacts.
	DataDir string `yaml:"data_dir"`

	Server     ServerConfig     `yaml:"server"`
	Camera     CameraConfig     `yaml:"camera"`
	Detector   DetectorConfig   `yaml:"detector"`
	Features   FeaturesConfig   `yaml:"features"`
	Model      ModelConfig      `yaml:"model"`
	Stabilizer StabilizerConfig `yaml:"stabilizer"`
	Text       TextConfig       `yaml:"text"`
	Speech     SpeechConfig     `yaml:"speech"`
	Correction CorrectionConfig `yaml:"correction"`
}

// ServerConfig configures the HTTP surface and logging.
type ServerConfig struct {
	ListenAddr string    `yaml:"listen_addr"`
	LogLevel   LogLevel  `yaml:"log_level"`
	LogFormat  LogFormat `yaml:"log_format"`
	// StaticDir serves a web UI when set.
	StaticDir string `yaml:"static_dir"`
	// Tray shows a system tray icon.
	Tray bool `yaml:"tray"`
}

// CameraConfig configures frame capture.
type CameraConfig struct {
	// Device is the capture index. -1 probes for a camera, preferring
	// external ones over the built-in index 0.
	Device int  `yaml:"device"`
	Width  int  `yaml:"width"`
	Height int  `yaml:"height"`
	Mirror bool `yaml:"mirror"`
	// IdleFPS is used while the scene is still; ActiveFPS while it moves.
	IdleFPS         int           `yaml:"idle_fps"`
	ActiveFPS       int           `yaml:"active_fps"`
	MotionThreshold float64       `yaml:"motion_threshold"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	JPEGQuality     int           `yaml:"jpeg_quality"`
}

// DetectorConfig configures the hand landmark detector.
type DetectorConfig struct {
	Kind DetectorKind `yaml:"kind"`
	// Python and Script override interpreter and service script discovery.
	Python                string        `yaml:"python"`
	Script                string        `yaml:"script"`
	MinConfidence         float64       `yaml:"min_confidence"`
	MinTrackingConfidence float64       `yaml:"min_tracking_confidence"`
	IdleShutdown          time.Duration `yaml:"idle_shutdown"`
}

// FeaturesConfig selects the feature layout.
type FeaturesConfig struct {
	Scheme string `yaml:"scheme"`
}

// ModelConfig locates the classifier artifact.
type ModelConfig struct {
	// Dir defaults to <data_dir>/models.
	Dir     string `yaml:"dir"`
	Pattern string `yaml:"pattern"`
	// Required makes a missing model fatal at startup. When false the
	// service runs without recognition and reports itself degraded.
	Required bool `yaml:"required"`
}

// StabilizerConfig tunes letter validation.
type StabilizerConfig struct {
	WindowSize              int                       `yaml:"window_size"`
	MinSamples              int                       `yaml:"min_samples"`
	ConsistencyThreshold    float64                   `yaml:"consistency_threshold"`
	MinConfidence           float64                   `yaml:"min_confidence"`
	MinPredictionConfidence float64                   `yaml:"min_prediction_confidence"`
	Cooldown                time.Duration             `yaml:"cooldown"`
	HandWarmup              time.Duration             `yaml:"hand_warmup"`
	Confusions              stabilizer.ConfusionTable `yaml:"confusions"`
}

// TextConfig names the control tokens.
type TextConfig struct {
	SpaceToken     string `yaml:"space_token"`
	EndToken       string `yaml:"end_token"`
	BackspaceToken string `yaml:"backspace_token"`
}

// SpeechConfig configures sentence playback.
type SpeechConfig struct {
	Enabled bool `yaml:"enabled"`
	// AutoSpeak is the initial auto-speak setting; a value saved through the
	// API takes precedence.
	AutoSpeak bool          `yaml:"auto_speak"`
	Command   string        `yaml:"command"`
	Args      []string      `yaml:"args"`
	Timeout   time.Duration `yaml:"timeout"`
	QueueSize int           `yaml:"queue_size"`
}

// CorrectionConfig configures vocabulary correction.
type CorrectionConfig struct {
	Enabled           bool     `yaml:"enabled"`
	Vocabulary        []string `yaml:"vocabulary"`
	VocabularyFile    string   `yaml:"vocabulary_file"`
	FuzzyThreshold    float64  `yaml:"fuzzy_threshold"`
	PhoneticThreshold float64  `yaml:"phonetic_threshold"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		DataDir: defaultDataDir(),
		Server: ServerConfig{
			ListenAddr: "127.0.0.1:5000",
			LogLevel:   LogInfo,
			LogFormat:  LogFormatAuto,
		},
		Camera: CameraConfig{
			Device:          -1,
			Width:           640,
			Height:          480,
			Mirror:          true,
			IdleFPS:         5,
			ActiveFPS:       15,
			MotionThreshold: 1.0,
			IdleTimeout:     2 * time.Second,
			JPEGQuality:     80,
		},
		Detector: DetectorConfig{
			Kind:                  DetectorMediaPipe,
			MinConfidence:         0.7,
			MinTrackingConfidence: 0.5,
			IdleShutdown:          30 * time.Second,
		},
		Features: FeaturesConfig{
			Scheme: string(features.SchemeXY51),
		},
		Model: ModelConfig{
			Pattern:  "model_*.json",
			Required: true,
		},
		Stabilizer: StabilizerConfig{
			WindowSize:           5,
			MinSamples:           5,
			ConsistencyThreshold: 0.6,
			MinConfidence:        0.6,
			Cooldown:             2 * time.Second,
		},
		Text: TextConfig{
			SpaceToken:     assembly.DefaultSpaceToken,
			EndToken:       assembly.DefaultEndToken,
			BackspaceToken: assembly.DefaultBackspaceToken,
		},
		Speech: SpeechConfig{
			Enabled:   true,
			AutoSpeak: true,
			Command:   "espeak-ng",
			Args:      []string{"-v", "pt-br", "--stdin"},
			Timeout:   30 * time.Second,
			QueueSize: 8,
		},
		Correction: CorrectionConfig{
			Enabled:           true,
			FuzzyThreshold:    0.88,
			PhoneticThreshold: 0.75,
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(defaultDataDir(), "config.yaml")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".datilo"
	}
	return filepath.Join(home, ".datilo")
}

// ExpandPath replaces a leading "~" with the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// DatabasePath is the sqlite file inside the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(ExpandPath(c.DataDir), "datilo.db")
}

// ModelDir resolves the artifact directory.
func (c *Config) ModelDir() string {
	if c.Model.Dir != "" {
		return ExpandPath(c.Model.Dir)
	}
	return filepath.Join(ExpandPath(c.DataDir), "models")
}

// LockPath is the single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(ExpandPath(c.DataDir), "datilo.lock")
}

// Scheme returns the parsed feature scheme.
func (c *Config) Scheme() features.Scheme {
	s, err := features.ParseScheme(c.Features.Scheme)
	if err != nil {
		return features.SchemeXY51
	}
	return s
}

// StabilizerParams converts to the stabilizer's own config. A nil confusion
// table selects the built-in pairs; an empty one disables disambiguation.
func (c *Config) StabilizerParams() stabilizer.Config {
	confusions := c.Stabilizer.Confusions
	if confusions == nil {
		confusions = stabilizer.DefaultConfusions()
	}
	return stabilizer.Config{
		WindowSize:              c.Stabilizer.WindowSize,
		MinSamples:              c.Stabilizer.MinSamples,
		ConsistencyThreshold:    c.Stabilizer.ConsistencyThreshold,
		MinConfidence:           c.Stabilizer.MinConfidence,
		MinPredictionConfidence: c.Stabilizer.MinPredictionConfidence,
		Cooldown:                c.Stabilizer.Cooldown,
		Confusions:              confusions,
	}
}

// Tokens converts the text section to assembly tokens.
func (c *Config) Tokens() assembly.Tokens {
	return assembly.Tokens{
		Space:     c.Text.SpaceToken,
		End:       c.Text.EndToken,
		Backspace: c.Text.BackspaceToken,
	}
}
