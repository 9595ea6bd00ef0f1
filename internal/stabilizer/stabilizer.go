// Package stabilizer turns a noisy per-frame prediction stream into a
// sequence of validated letters.
//
// Predictions are collected in a sliding window. A letter is validated when
// it dominates the window, differs from the previously validated letter and
// is not contradicted by a confusable handshape. After each validation the
// stabilizer ignores input for a cooldown period so a held gesture is not
// repeated.
package stabilizer

import (
	"time"

	"github.com/ayusman/datilo/internal/classifier"
)

// State is the stabilizer's phase.
type State int

const (
	Idle State = iota
	Accumulating
	Cooldown
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Accumulating:
		return "accumulating"
	case Cooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// MarshalText lets State render by name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Config holds stabilizer tuning parameters.
type Config struct {
	WindowSize int
	// MinSamples is how many predictions must be buffered before validating.
	MinSamples int
	// ConsistencyThreshold is the minimum share of the window the majority
	// label must hold.
	ConsistencyThreshold float64
	// MinConfidence is checked against the same share after disambiguation.
	MinConfidence float64
	// MinPredictionConfidence drops individual predictions whose classifier
	// confidence is lower. 0 disables the filter.
	MinPredictionConfidence float64
	// Cooldown of 0 selects the default; a negative value disables it.
	Cooldown time.Duration
	// Confusions of nil selects DefaultConfusions; an empty table disables
	// disambiguation.
	Confusions ConfusionTable
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		WindowSize:           5,
		MinSamples:           5,
		ConsistencyThreshold: 0.6,
		MinConfidence:        0.6,
		Cooldown:             2 * time.Second,
		Confusions:           DefaultConfusions(),
	}
}

// Option configures a Stabilizer.
type Option func(*Stabilizer)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Stabilizer) {
		if now != nil {
			s.now = now
		}
	}
}

// Stabilizer is the validation state machine. It is not safe for concurrent
// use; the session controller serializes access.
type Stabilizer struct {
	cfg    Config
	window *Window
	now    func() time.Time

	state         State
	lastValidated string
	lastChange    time.Time
}

// New creates a Stabilizer. Zero-valued config fields fall back to defaults.
func New(cfg Config, opts ...Option) *Stabilizer {
	def := DefaultConfig()
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = def.WindowSize
	}
	if cfg.MinSamples <= 0 || cfg.MinSamples > cfg.WindowSize {
		cfg.MinSamples = cfg.WindowSize
	}
	if cfg.ConsistencyThreshold <= 0 {
		cfg.ConsistencyThreshold = def.ConsistencyThreshold
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = cfg.ConsistencyThreshold
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.Confusions == nil {
		cfg.Confusions = def.Confusions
	}

	s := &Stabilizer{
		cfg:    cfg,
		window: NewWindow(cfg.WindowSize),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Push feeds one prediction and returns the validated label, if any.
func (s *Stabilizer) Push(p classifier.Prediction) (string, bool) {
	if p.Label == "" {
		return "", false
	}

	now := s.now()
	if s.inCooldown(now) {
		s.state = Cooldown
		return "", false
	}

	if s.cfg.MinPredictionConfidence > 0 && p.HasConfidence && p.Confidence < s.cfg.MinPredictionConfidence {
		return "", false
	}

	s.window.Push(p)
	s.state = Accumulating

	if s.window.Len() < s.cfg.MinSamples {
		return "", false
	}

	label, count := s.window.Majority()
	ratio := float64(count) / float64(s.window.Len())

	if ratio < s.cfg.ConsistencyThreshold || label == s.lastValidated {
		return "", false
	}
	if _, rejected := s.cfg.Confusions.Rejects(label, s.window); rejected {
		return "", false
	}
	if ratio < s.cfg.MinConfidence {
		return "", false
	}

	s.window.Clear()
	s.lastValidated = label
	s.lastChange = now
	s.state = Cooldown
	return label, true
}

// Reset handles loss of the hand: the window is cleared and the state goes
// back to Idle. The last validated label and the cooldown clock are kept.
func (s *Stabilizer) Reset() {
	s.window.Clear()
	s.state = Idle
}

// Clear forgets everything, including the last validated label, so the same
// letter can be validated again immediately.
func (s *Stabilizer) Clear() {
	s.window.Clear()
	s.state = Idle
	s.lastValidated = ""
	s.lastChange = time.Time{}
}

// State returns the current phase. A cooldown that has expired reports the
// phase the next prediction will enter.
func (s *Stabilizer) State() State {
	if s.state == Cooldown && !s.inCooldown(s.now()) {
		if s.window.Len() > 0 {
			return Accumulating
		}
		return Idle
	}
	return s.state
}

// LastValidated returns the most recently validated label.
func (s *Stabilizer) LastValidated() string {
	return s.lastValidated
}

// WindowLen returns the number of buffered predictions.
func (s *Stabilizer) WindowLen() int {
	return s.window.Len()
}

// Config returns the effective configuration.
func (s *Stabilizer) Config() Config {
	return s.cfg
}

func (s *Stabilizer) inCooldown(now time.Time) bool {
	return !s.lastChange.IsZero() && now.Sub(s.lastChange) < s.cfg.Cooldown
}
