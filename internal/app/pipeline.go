package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/ayusman/datilo/internal/capture"
	"github.com/ayusman/datilo/internal/detector"
	"github.com/ayusman/datilo/internal/hand"
)

// runPipeline is the main loop. The capture rate follows the pacer: the
// hand moving, or a hand arriving or leaving, keeps it at ActiveFPS. A hand
// held still or an empty still scene drops it to IdleFPS once IdleTimeout
// passes. Detection runs on every frame either way.
func (a *App) runPipeline(ctx context.Context) {
	ticker := time.NewTicker(a.pacer.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			handPresent, err := a.step(ctx)
			if err != nil {
				slog.Debug("frame skipped", "err", err)
				continue
			}

			activity := a.lastMotion || handPresent != a.lastPresent
			a.lastPresent = handPresent
			if fps, changed := a.pacer.Observe(time.Now(), activity); changed {
				a.config.Camera.SetFPS(fps)
				ticker.Reset(a.pacer.Interval())
				slog.Debug("capture rate changed", "fps", fps)
			}
		}
	}
}

// step reads and processes one frame. It reports whether a hand was seen.
func (a *App) step(ctx context.Context) (bool, error) {
	frame, err := a.config.Camera.ReadFrame()
	if err != nil {
		return false, err
	}
	defer frame.Close()

	if a.config.Mirror {
		capture.Mirror(frame)
	}

	var primary *hand.Landmarks
	detected := true
	if d := a.Detector(); d != nil && a.IsEnabled() {
		hands, err := d.Detect(frame)
		if err != nil {
			detected = false
			a.statsMu.Lock()
			a.detectErrs++
			a.statsMu.Unlock()
			slog.Debug("hand detection failed", "err", err)
		} else {
			primary = detector.Primary(hands)
		}
	}

	// With a hand in view only the area around it counts as motion.
	region := capture.HandRegion(primary, frame.Cols(), frame.Rows(), capture.HandPadding)
	motion := a.motion.Detect(frame, region)
	a.lastMotion = motion.Moving

	// A failed detection leaves the session untouched rather than
	// counting as a lost hand.
	snap := a.config.Session.Snapshot()
	if detected {
		snap = a.config.Session.ProcessFrame(ctx, primary)
	}

	a.statsMu.Lock()
	a.frames++
	a.lastFrame = time.Now()
	a.motionPercent = motion.Percent
	a.statsMu.Unlock()

	if a.config.Frames != nil {
		capture.Annotate(frame, capture.Overlay{
			Letter:      snap.DisplayLetter(),
			Text:        snap.FormedText,
			HandPresent: snap.HandPresent,
		})
		jpeg, err := capture.EncodeJPEG(frame, a.config.JPEGQuality)
		if err != nil {
			return snap.HandPresent, err
		}
		a.config.Frames.Set(jpeg)
	}

	return snap.HandPresent, nil
}
