// Package app runs the capture pipeline: camera frames go through the hand
// detector into the session controller, and annotated frames come out for
// the video stream.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ayusman/datilo/internal/capture"
	"github.com/ayusman/datilo/internal/detector"
	"github.com/ayusman/datilo/internal/session"
)

// Pipeline timing defaults.
const (
	// IdleFPS is the frame rate while nothing moves.
	IdleFPS = 5
	// ActiveFPS is the frame rate during active detection.
	ActiveFPS = 15
	// IdleTimeout is how long the scene must be still before dropping to IdleFPS.
	IdleTimeout = 2 * time.Second
)

// Config holds configuration options for the application.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector
	Session  *session.Controller
	// Frames receives annotated JPEG frames. Optional.
	Frames *capture.FrameBuffer

	Mirror          bool
	IdleFPS         int
	ActiveFPS       int
	IdleTimeout     time.Duration
	MotionThreshold float64
	JPEGQuality     int
}

// App owns the camera, the motion detector and the hand detector for the
// lifetime of the pipeline.
type App struct {
	config Config
	motion *capture.MotionDetector
	pacer  *capture.Pacer

	// Only touched by the pipeline goroutine.
	lastMotion  bool
	lastPresent bool

	mu       sync.RWMutex
	enabled  bool
	detector detector.Detector

	statsMu       sync.Mutex
	frames        uint64
	detectErrs    uint64
	lastFrame     time.Time
	motionPercent float64
}

// New creates a new App. Zero timing values fall back to the package
// defaults.
func New(config Config) *App {
	if config.IdleFPS <= 0 {
		config.IdleFPS = IdleFPS
	}
	if config.ActiveFPS <= 0 {
		config.ActiveFPS = ActiveFPS
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = IdleTimeout
	}
	if config.MotionThreshold <= 0 {
		config.MotionThreshold = 1.0 // 1% of pixels
	}
	if config.JPEGQuality <= 0 {
		config.JPEGQuality = 80
	}

	return &App{
		config:   config,
		motion:   capture.NewMotionDetector(config.MotionThreshold),
		pacer:    capture.NewPacer(config.IdleFPS, config.ActiveFPS, config.IdleTimeout),
		enabled:  true,
		detector: config.Detector,
	}
}

// SetEnabled pauses or resumes recognition. Frames are still streamed
// while paused.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether recognition is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector replaces the hand detector.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// Stats is a snapshot of pipeline counters.
type Stats struct {
	Frames       uint64    `json:"frames"`
	DetectErrors uint64    `json:"detect_errors"`
	FPS          int       `json:"fps"`
	LastFrame    time.Time `json:"last_frame"`
	// MotionPercent is the change on the last frame, measured inside the
	// hand box when a hand was seen.
	MotionPercent float64 `json:"motion_percent"`
}

// Stats returns pipeline counters.
func (a *App) Stats() Stats {
	a.statsMu.Lock()
	defer a.statsMu.Unlock()
	return Stats{
		Frames:        a.frames,
		DetectErrors:  a.detectErrs,
		FPS:           a.pacer.FPS(),
		LastFrame:     a.lastFrame,
		MotionPercent: a.motionPercent,
	}
}

// Run opens the camera and processes frames until ctx is cancelled. The
// camera, motion detector and hand detector are closed on return.
func (a *App) Run(ctx context.Context) error {
	if a.config.Camera == nil {
		return errors.New("app: no camera configured")
	}
	if a.config.Session == nil {
		return errors.New("app: no session configured")
	}

	if err := a.config.Camera.Open(); err != nil {
		return fmt.Errorf("app: open camera: %w", err)
	}
	a.config.Camera.SetFPS(a.pacer.FPS())
	slog.Info("detection pipeline started", "fps", a.pacer.FPS())

	defer a.shutdown()
	a.runPipeline(ctx)
	return nil
}

func (a *App) shutdown() {
	if err := a.config.Camera.Close(); err != nil {
		slog.Error("closing camera", "err", err)
	}

	a.motion.Close()

	if d := a.Detector(); d != nil {
		if err := d.Close(); err != nil {
			slog.Error("closing detector", "err", err)
		}
	}

	slog.Info("detection pipeline stopped")
}
