package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/datilo/internal/features"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(ExpandPath(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("config file not found, using defaults", "path", path)
			cfg := Default()
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r on top of the defaults and validates
// the result.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.DataDir == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}

	// Server
	if cfg.Server.ListenAddr == "" {
		errs = append(errs, errors.New("server.listen_addr is required"))
	}
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.LogFormat != "" && !cfg.Server.LogFormat.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_format %q is invalid; valid values: auto, text, json", cfg.Server.LogFormat))
	}

	// Camera
	if cfg.Camera.Device < -1 {
		errs = append(errs, fmt.Errorf("camera.device %d is invalid; use -1 for auto detection", cfg.Camera.Device))
	}
	if cfg.Camera.Width <= 0 || cfg.Camera.Height <= 0 {
		errs = append(errs, fmt.Errorf("camera resolution %dx%d must be positive", cfg.Camera.Width, cfg.Camera.Height))
	}
	if cfg.Camera.IdleFPS <= 0 || cfg.Camera.ActiveFPS <= 0 {
		errs = append(errs, errors.New("camera.idle_fps and camera.active_fps must be positive"))
	}
	if cfg.Camera.JPEGQuality < 1 || cfg.Camera.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("camera.jpeg_quality %d is out of range [1, 100]", cfg.Camera.JPEGQuality))
	}

	// Detector
	if !cfg.Detector.Kind.IsValid() {
		errs = append(errs, fmt.Errorf("detector.kind %q is invalid; valid values: mediapipe, mock", cfg.Detector.Kind))
	}
	if !inUnitRange(cfg.Detector.MinConfidence) {
		errs = append(errs, fmt.Errorf("detector.min_confidence %.2f is out of range [0, 1]", cfg.Detector.MinConfidence))
	}
	if !inUnitRange(cfg.Detector.MinTrackingConfidence) {
		errs = append(errs, fmt.Errorf("detector.min_tracking_confidence %.2f is out of range [0, 1]", cfg.Detector.MinTrackingConfidence))
	}

	// Features
	if _, err := features.ParseScheme(cfg.Features.Scheme); err != nil {
		errs = append(errs, fmt.Errorf("features.scheme: %w", err))
	}

	// Model
	if cfg.Model.Pattern == "" {
		errs = append(errs, errors.New("model.pattern is required"))
	}

	// Stabilizer
	s := cfg.Stabilizer
	if s.WindowSize < 1 {
		errs = append(errs, fmt.Errorf("stabilizer.window_size %d must be at least 1", s.WindowSize))
	}
	if s.MinSamples < 1 || s.MinSamples > s.WindowSize {
		errs = append(errs, fmt.Errorf("stabilizer.min_samples %d must be between 1 and window_size (%d)", s.MinSamples, s.WindowSize))
	}
	if s.ConsistencyThreshold <= 0 || s.ConsistencyThreshold > 1 {
		errs = append(errs, fmt.Errorf("stabilizer.consistency_threshold %.2f is out of range (0, 1]", s.ConsistencyThreshold))
	}
	if s.MinConfidence < 0 || s.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("stabilizer.min_confidence %.2f is out of range [0, 1]", s.MinConfidence))
	}
	if !inUnitRange(s.MinPredictionConfidence) {
		errs = append(errs, fmt.Errorf("stabilizer.min_prediction_confidence %.2f is out of range [0, 1]", s.MinPredictionConfidence))
	}
	if s.Cooldown < 0 {
		errs = append(errs, fmt.Errorf("stabilizer.cooldown %s must not be negative", s.Cooldown))
	}
	if s.HandWarmup < 0 {
		errs = append(errs, fmt.Errorf("stabilizer.hand_warmup %s must not be negative", s.HandWarmup))
	}
	for label, rule := range s.Confusions {
		if len(rule.Confusables) == 0 {
			errs = append(errs, fmt.Errorf("stabilizer.confusions[%s] lists no confusable labels", label))
		}
		if rule.RejectCount < 0 {
			errs = append(errs, fmt.Errorf("stabilizer.confusions[%s].reject_count %d must not be negative", label, rule.RejectCount))
		}
	}

	// Text tokens must not collide
	seen := make(map[string]string, 3)
	for name, tok := range map[string]string{
		"space_token":     cfg.Text.SpaceToken,
		"end_token":       cfg.Text.EndToken,
		"backspace_token": cfg.Text.BackspaceToken,
	} {
		if tok == "" {
			continue
		}
		if other, ok := seen[tok]; ok {
			errs = append(errs, fmt.Errorf("text.%s %q is already used by text.%s", name, tok, other))
		}
		seen[tok] = name
	}

	// Speech
	if cfg.Speech.Enabled {
		if cfg.Speech.Command == "" {
			errs = append(errs, errors.New("speech.command is required when speech is enabled"))
		}
		if cfg.Speech.Timeout <= 0 {
			errs = append(errs, fmt.Errorf("speech.timeout %s must be positive", cfg.Speech.Timeout))
		}
		if cfg.Speech.QueueSize < 1 {
			errs = append(errs, fmt.Errorf("speech.queue_size %d must be at least 1", cfg.Speech.QueueSize))
		}
	}

	// Correction
	if !inUnitRange(cfg.Correction.FuzzyThreshold) || !inUnitRange(cfg.Correction.PhoneticThreshold) {
		errs = append(errs, errors.New("correction thresholds must be in range [0, 1]"))
	}

	return errors.Join(errs...)
}

// LoadVocabulary merges the inline vocabulary with one word per line from
// the vocabulary file. Lines starting with # are ignored.
func (c *Config) LoadVocabulary() ([]string, error) {
	words := append([]string(nil), c.Correction.Vocabulary...)
	if c.Correction.VocabularyFile == "" {
		return words, nil
	}

	f, err := os.Open(ExpandPath(c.Correction.VocabularyFile))
	if err != nil {
		return nil, fmt.Errorf("config: open vocabulary: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: read vocabulary: %w", err)
	}
	return words, nil
}

func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}
