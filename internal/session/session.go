// Package session owns the live recognition state of one signer: the
// stabilizer, the text buffer and the speech hand-off.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ayusman/datilo/internal/assembly"
	"github.com/ayusman/datilo/internal/classifier"
	"github.com/ayusman/datilo/internal/correct"
	"github.com/ayusman/datilo/internal/features"
	"github.com/ayusman/datilo/internal/hand"
	"github.com/ayusman/datilo/internal/observe"
	"github.com/ayusman/datilo/internal/speech"
	"github.com/ayusman/datilo/internal/stabilizer"
)

// NoLetter is shown when no letter has been validated.
const NoLetter = "-"

var (
	// ErrNoText is returned by commands that need text when the buffer is empty.
	ErrNoText = assembly.ErrNoText

	// ErrSpeechDisabled is returned by Speak when no speaker is configured.
	ErrSpeechDisabled = errors.New("speech disabled")
)

// Speaker accepts sentences for playback without blocking.
type Speaker interface {
	Enqueue(text string) (speech.Job, error)
}

// Snapshot is a read-only copy of the session state.
type Snapshot struct {
	CurrentLetter string           `json:"current_letter"`
	FormedText    string           `json:"formed_text"`
	CorrectedText string           `json:"corrected_text"`
	LastUtterance string           `json:"last_utterance,omitempty"`
	HandPresent   bool             `json:"hand_present"`
	State         stabilizer.State `json:"state"`
	AutoSpeak     bool             `json:"auto_speak"`
	ModelLoaded   bool             `json:"model_loaded"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// DisplayLetter returns the current letter or the NoLetter placeholder.
func (s Snapshot) DisplayLetter() string {
	if s.CurrentLetter == "" {
		return NoLetter
	}
	return s.CurrentLetter
}

// sameContent ignores the timestamp.
func (s Snapshot) sameContent(o Snapshot) bool {
	s.UpdatedAt, o.UpdatedAt = time.Time{}, time.Time{}
	return s == o
}

// Config holds the controller's collaborators. Classifier may be nil, in
// which case frames are tracked for hand presence only. Corrector, Speaker
// and Metrics are optional.
type Config struct {
	Classifier *classifier.Adapter
	Stabilizer *stabilizer.Stabilizer
	Assembler  *assembly.Assembler
	Corrector  *correct.Corrector
	Speaker    Speaker
	Metrics    *observe.Metrics
	Scheme     features.Scheme

	// HandWarmup delays predictions until the hand has been in view this
	// long. 0 disables it.
	HandWarmup time.Duration
	AutoSpeak  bool

	// Now defaults to time.Now. The stabilizer keeps its own clock.
	Now func() time.Time
}

// Controller serializes all access to the session state.
type Controller struct {
	classifier *classifier.Adapter
	stab       *stabilizer.Stabilizer
	asm        *assembly.Assembler
	corrector  *correct.Corrector
	speaker    Speaker
	metrics    *observe.Metrics
	scheme     features.Scheme
	warmup     time.Duration
	now        func() time.Time

	mu            sync.Mutex
	text          assembly.Text
	corrected     string
	lastUtterance string
	handPresent   bool
	handSince     time.Time
	autoSpeak     bool
	updatedAt     time.Time
	published     Snapshot
	subs          map[chan Snapshot]struct{}
}

// New creates a Controller. A nil Stabilizer or Assembler gets the defaults.
func New(cfg Config) *Controller {
	if cfg.Stabilizer == nil {
		cfg.Stabilizer = stabilizer.New(stabilizer.DefaultConfig())
	}
	if cfg.Assembler == nil {
		cfg.Assembler = assembly.New(assembly.DefaultTokens())
	}
	if !cfg.Scheme.IsValid() {
		cfg.Scheme = features.SchemeXY51
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	c := &Controller{
		classifier: cfg.Classifier,
		stab:       cfg.Stabilizer,
		asm:        cfg.Assembler,
		corrector:  cfg.Corrector,
		speaker:    cfg.Speaker,
		metrics:    cfg.Metrics,
		scheme:     cfg.Scheme,
		warmup:     cfg.HandWarmup,
		now:        cfg.Now,
		autoSpeak:  cfg.AutoSpeak,
		subs:       make(map[chan Snapshot]struct{}),
	}
	c.updatedAt = c.now()
	return c
}

// ModelLoaded reports whether a classifier is attached.
func (c *Controller) ModelLoaded() bool {
	return c.classifier != nil
}

// ProcessFrame advances the session by one detector result. A nil or
// malformed hand counts as "no hand". Classification failures drop the
// frame without touching the text.
func (c *Controller) ProcessFrame(ctx context.Context, h *hand.Landmarks) Snapshot {
	start := time.Now()
	present := h.Valid()
	if c.metrics != nil {
		defer func() { c.metrics.RecordFrame(ctx, present, time.Since(start)) }()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if !present {
		c.stab.Reset()
		if c.handPresent || c.text.Current != "" {
			c.handPresent = false
			c.text.Current = ""
			c.updatedAt = now
		}
		return c.commitLocked()
	}

	if !c.handPresent {
		c.handPresent = true
		c.handSince = now
		c.updatedAt = now
	}

	if c.classifier == nil {
		return c.commitLocked()
	}
	if c.warmup > 0 && now.Sub(c.handSince) < c.warmup {
		return c.commitLocked()
	}

	vec := features.Extract(h, c.scheme)
	if vec == nil {
		c.classifyFailedLocked(ctx, errors.New("no features extracted"))
		return c.commitLocked()
	}

	pred, err := c.classifier.Classify(vec)
	if err != nil {
		c.classifyFailedLocked(ctx, err)
		return c.commitLocked()
	}
	if c.metrics != nil {
		c.metrics.RecordPrediction(ctx)
	}

	label, ok := c.stab.Push(pred)
	if !ok {
		return c.commitLocked()
	}

	if c.metrics != nil {
		c.metrics.RecordLetter(ctx, label)
	}
	res := c.asm.Apply(label, &c.text)
	c.updatedAt = now
	slog.Info("letter validated", "label", label, "text", c.text.Formed)

	if res.Kind == assembly.KindEnd && res.Utterance != "" {
		c.lastUtterance = res.Utterance
		if c.autoSpeak {
			c.enqueueLocked(res.Utterance)
		}
	}
	c.refreshCorrectedLocked()
	return c.commitLocked()
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// ClearAll empties the text buffer.
func (c *Controller) ClearAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	assembly.ClearAll(&c.text)
	c.touchLocked()
	return nil
}

// ClearLast removes the last character. It returns ErrNoText when the
// buffer is empty.
func (c *Controller) ClearLast() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := assembly.ClearLast(&c.text); err != nil {
		return err
	}
	c.touchLocked()
	return nil
}

// ResetDetection forgets the stabilizer's history so the last letter can be
// signed again straight away.
func (c *Controller) ResetDetection() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stab.Clear()
	c.touchLocked()
	return nil
}

// SetAutoSpeak turns automatic playback of finished sentences on or off.
func (c *Controller) SetAutoSpeak(enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.autoSpeak = enabled
	c.touchLocked()
	return nil
}

// ToggleAutoSpeak flips auto-speak and returns the new value.
func (c *Controller) ToggleAutoSpeak() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.autoSpeak = !c.autoSpeak
	c.touchLocked()
	return c.autoSpeak, nil
}

// AutoSpeak reports whether finished sentences are spoken automatically.
func (c *Controller) AutoSpeak() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoSpeak
}

// Speak queues the formed text for playback without clearing it.
func (c *Controller) Speak() (speech.Job, error) {
	c.mu.Lock()
	text := strings.TrimSpace(c.text.Formed)
	c.mu.Unlock()

	if text == "" {
		return speech.Job{}, ErrNoText
	}
	if c.speaker == nil {
		return speech.Job{}, ErrSpeechDisabled
	}
	job, err := c.speaker.Enqueue(text)
	if err != nil {
		return speech.Job{}, fmt.Errorf("session: speak: %w", err)
	}
	return job, nil
}

// Subscribe returns a channel that receives a snapshot whenever the session
// changes. Slow readers only see the latest snapshot. Call the returned
// function to unsubscribe.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	c.mu.Lock()
	c.subs[ch] = struct{}{}
	ch <- c.snapshotLocked()
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, ch)
			c.mu.Unlock()
		})
	}
}

func (c *Controller) classifyFailedLocked(ctx context.Context, err error) {
	slog.Debug("frame skipped", "err", err)
	if c.metrics != nil {
		c.metrics.RecordClassifyError(ctx)
	}
}

func (c *Controller) enqueueLocked(text string) {
	if c.speaker == nil {
		return
	}
	if _, err := c.speaker.Enqueue(text); err != nil {
		slog.Warn("sentence not queued for speech", "err", err)
	}
}

func (c *Controller) refreshCorrectedLocked() {
	if c.corrector == nil {
		c.corrected = c.text.Formed
		return
	}
	c.corrected = c.corrector.Text(c.text.Formed)
}

// touchLocked records a command-driven change and notifies subscribers.
func (c *Controller) touchLocked() {
	c.updatedAt = c.now()
	c.refreshCorrectedLocked()
	c.commitLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		CurrentLetter: c.text.Current,
		FormedText:    c.text.Formed,
		CorrectedText: c.corrected,
		LastUtterance: c.lastUtterance,
		HandPresent:   c.handPresent,
		State:         c.stab.State(),
		AutoSpeak:     c.autoSpeak,
		ModelLoaded:   c.classifier != nil,
		UpdatedAt:     c.updatedAt,
	}
}

// commitLocked builds the snapshot and publishes it if anything changed.
func (c *Controller) commitLocked() Snapshot {
	snap := c.snapshotLocked()
	if snap.sameContent(c.published) {
		return snap
	}
	c.published = snap
	for ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
	return snap
}
