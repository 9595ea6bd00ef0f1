package app

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/datilo/internal/capture"
	"github.com/ayusman/datilo/internal/detector"
	"github.com/ayusman/datilo/internal/fixture"
	"github.com/ayusman/datilo/internal/hand"
	"github.com/ayusman/datilo/internal/session"
)

func newTestApp(t *testing.T, frames int) (*App, *capture.MockCamera, *detector.MockDetector, *session.Controller) {
	t.Helper()

	cam := capture.NewMockCamera(capture.BlankFrames(frames, 64, 48), true)
	t.Cleanup(cam.Release)

	det := detector.NewMockDetector()
	sess := session.New(session.Config{Classifier: fixture.LetterAdapter()})

	a := New(Config{
		Camera:    cam,
		Detector:  det,
		Session:   sess,
		Frames:    capture.NewFrameBuffer(),
		Mirror:    true,
		ActiveFPS: 100,
		IdleFPS:   50,
	})
	return a, cam, det, sess
}

func TestNew_Defaults(t *testing.T) {
	a := New(Config{})
	if a.config.IdleFPS != IdleFPS || a.config.ActiveFPS != ActiveFPS {
		t.Errorf("fps defaults = %d/%d", a.config.IdleFPS, a.config.ActiveFPS)
	}
	if a.config.IdleTimeout != IdleTimeout {
		t.Errorf("IdleTimeout = %s", a.config.IdleTimeout)
	}
	if !a.IsEnabled() {
		t.Error("app should start enabled")
	}
}

func TestApp_StepSpellsHeldLetterOnce(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping gocv test")
	}
	a, cam, det, sess := newTestApp(t, 1)
	if err := cam.Open(); err != nil {
		t.Fatal(err)
	}
	det.SetHands(hand.FlatHandLandmarks())

	ctx := context.Background()
	for i := 0; i < 8; i++ {
		present, err := a.step(ctx)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if !present {
			t.Fatalf("step %d: hand not reported", i)
		}
	}

	snap := sess.Snapshot()
	if snap.FormedText != fixture.FlatLabel {
		t.Errorf("FormedText = %q, want %q", snap.FormedText, fixture.FlatLabel)
	}
	if snap.CurrentLetter != fixture.FlatLabel {
		t.Errorf("CurrentLetter = %q", snap.CurrentLetter)
	}

	jpeg, seq := a.config.Frames.Latest()
	if seq != 8 || len(jpeg) == 0 {
		t.Errorf("frame buffer seq = %d, len = %d", seq, len(jpeg))
	}
	if got := a.Stats().Frames; got != 8 {
		t.Errorf("Stats().Frames = %d, want 8", got)
	}
}

func TestApp_DetectErrorKeepsSession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping gocv test")
	}
	a, cam, det, sess := newTestApp(t, 1)
	if err := cam.Open(); err != nil {
		t.Fatal(err)
	}
	det.SetHands(hand.FistLandmarks())

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := a.step(ctx); err != nil {
			t.Fatal(err)
		}
	}

	det.SetError(errors.New("service crashed"))
	if _, err := a.step(ctx); err != nil {
		t.Fatal(err)
	}

	snap := sess.Snapshot()
	if !snap.HandPresent || snap.CurrentLetter != fixture.FistLabel {
		t.Errorf("detector error should not reset the session: %+v", snap)
	}
	if a.Stats().DetectErrors != 1 {
		t.Errorf("DetectErrors = %d", a.Stats().DetectErrors)
	}
}

func TestApp_DisabledSkipsDetection(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping gocv test")
	}
	a, cam, det, sess := newTestApp(t, 1)
	if err := cam.Open(); err != nil {
		t.Fatal(err)
	}
	det.SetHands(hand.FlatHandLandmarks())
	a.SetEnabled(false)

	for i := 0; i < 5; i++ {
		if _, err := a.step(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	if det.Calls() != 0 {
		t.Errorf("detector called %d times while disabled", det.Calls())
	}
	if snap := sess.Snapshot(); snap.HandPresent || snap.FormedText != "" {
		t.Errorf("snapshot = %+v", snap)
	}
	if _, seq := a.config.Frames.Latest(); seq != 5 {
		t.Errorf("frames should still stream while disabled, seq = %d", seq)
	}
}

func TestApp_MotionFollowsHand(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping gocv test")
	}

	tests := []struct {
		name       string
		hands      []hand.Landmarks
		wantMoving bool
	}{
		// The patch changes far from the hand, so it is ignored.
		{"hand in view", []hand.Landmarks{hand.FlatHandLandmarks()}, false},
		{"empty scene", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, cam, det, _ := newTestApp(t, 2)
			frames := capture.BlankFrames(2, 64, 48)
			patch := frames[1].Region(image.Rect(0, 0, 16, 12))
			patch.SetTo(gocv.NewScalar(255, 255, 255, 0))
			patch.Close()
			cam.Release()
			cam.SetFrames(frames)
			if err := cam.Open(); err != nil {
				t.Fatal(err)
			}
			det.SetHands(tt.hands...)

			ctx := context.Background()
			for i := 0; i < 2; i++ {
				if _, err := a.step(ctx); err != nil {
					t.Fatal(err)
				}
			}

			if a.lastMotion != tt.wantMoving {
				t.Errorf("moving = %v, want %v (change %.2f%%)", a.lastMotion, tt.wantMoving, a.Stats().MotionPercent)
			}
		})
	}
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping gocv test")
	}
	a, cam, det, sess := newTestApp(t, 2)
	det.SetHands(hand.FlatHandLandmarks())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for sess.Snapshot().FormedText == "" && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	if got := sess.Snapshot().FormedText; got != fixture.FlatLabel {
		t.Errorf("FormedText = %q, want %q", got, fixture.FlatLabel)
	}
	if cam.IsOpen() {
		t.Error("camera should be closed after Run")
	}
	if !det.Closed() {
		t.Error("detector should be closed after Run")
	}
}

func TestApp_RunRequiresCamera(t *testing.T) {
	a := New(Config{Session: session.New(session.Config{})})
	if err := a.Run(context.Background()); err == nil {
		t.Error("expected error without camera")
	}
}
