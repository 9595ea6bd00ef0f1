package detector

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ayusman/datilo/internal/hand"
)

func TestMockDetector(t *testing.T) {
	t.Run("returns empty hands by default", func(t *testing.T) {
		mock := NewMockDetector()

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if hands != nil {
			t.Errorf("expected nil hands, got %v", hands)
		}
	})

	t.Run("returns configured hands", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands(hand.FistLandmarks(), hand.FlatHandLandmarks())

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(hands) != 2 {
			t.Errorf("expected 2 hands, got %d", len(hands))
		}
		if mock.Calls() != 1 {
			t.Errorf("expected 1 call, got %d", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		hands, err := mock.Detect(nil)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if hands != nil {
			t.Errorf("expected nil hands when error is set, got %v", hands)
		}
	})

	t.Run("Close marks closed", func(t *testing.T) {
		mock := NewMockDetector()

		if err := mock.Close(); err != nil {
			t.Errorf("expected Close to return nil, got %v", err)
		}
		if !mock.Closed() {
			t.Error("expected Closed() after Close")
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*MediaPipeDetector)(nil)
	})
}

func TestPrimary(t *testing.T) {
	if Primary(nil) != nil {
		t.Error("Primary(nil) should be nil")
	}

	low := hand.FistLandmarks()
	low.Score = 0.6
	high := hand.FlatHandLandmarks()
	high.Score = 0.9

	got := Primary([]hand.Landmarks{low, high})
	if got == nil || got.Score != 0.9 {
		t.Fatalf("Primary() picked %+v, want the 0.9 hand", got)
	}

	// The result is a copy.
	got.Score = 0
	if high.Score != 0.9 {
		t.Error("Primary must not alias its input")
	}
}

func handJSON(n int, score float64) string {
	pts := make([]string, n)
	for i := range pts {
		pts[i] = fmt.Sprintf(`{"x":%g,"y":0.5,"z":0}`, float64(i)/100)
	}
	return fmt.Sprintf(`{"points":[%s],"handedness":"Right","score":%g}`, strings.Join(pts, ","), score)
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		maxHands  int
		wantHands int
		wantErr   bool
	}{
		{"no hands", `{"hands":[]}`, 1, 0, false},
		{"one hand", `{"hands":[` + handJSON(21, 0.9) + `]}`, 1, 1, false},
		{"capped at max", `{"hands":[` + handJSON(21, 0.9) + `,` + handJSON(21, 0.8) + `]}`, 1, 1, false},
		{"partial hand dropped", `{"hands":[` + handJSON(20, 0.9) + `]}`, 1, 0, false},
		{"service error", `{"error":"model not loaded"}`, 1, 0, true},
		{"garbage", `not json`, 1, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hands, err := parseResponse([]byte(tt.line), tt.maxHands)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseResponse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(hands) != tt.wantHands {
				t.Errorf("got %d hands, want %d", len(hands), tt.wantHands)
			}
		})
	}

	hands, err := parseResponse([]byte(`{"hands":[`+handJSON(21, 0.75)+`]}`), 1)
	if err != nil {
		t.Fatal(err)
	}
	if hands[0].Handedness != "Right" || hands[0].Score != 0.75 || hands[0].Points[hand.PinkyTip].X != 0.2 {
		t.Errorf("decoded hand = %+v", hands[0])
	}
}

func TestParseResponse_KeepsBestHands(t *testing.T) {
	line := `{"hands":[` + handJSON(21, 0.4) + `,` + handJSON(21, 0.9) + `,` + handJSON(21, 0.6) + `]}`

	hands, err := parseResponse([]byte(line), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(hands) != 1 || hands[0].Score != 0.9 {
		t.Fatalf("maxHands 1 kept %+v, want the 0.9 hand", hands)
	}

	hands, err = parseResponse([]byte(line), 0)
	if err != nil {
		t.Fatal(err)
	}
	var scores []float64
	for _, h := range hands {
		scores = append(scores, h.Score)
	}
	if len(scores) != 3 || scores[0] != 0.9 || scores[1] != 0.6 || scores[2] != 0.4 {
		t.Errorf("scores = %v, want best first", scores)
	}
	if got := Primary(hands); got == nil || got.Score != 0.9 {
		t.Errorf("Primary() = %+v", got)
	}
}

func TestWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte{0xff, 0xd8, 0xff, 0xd9}

	if err := writeFrame(&buf, payload); err != nil {
		t.Fatalf("writeFrame() error = %v", err)
	}

	out := buf.Bytes()
	if got := binary.BigEndian.Uint32(out[:4]); got != uint32(len(payload)) {
		t.Errorf("length prefix = %d, want %d", got, len(payload))
	}
	if !bytes.Equal(out[4:], payload) {
		t.Errorf("payload = %x, want %x", out[4:], payload)
	}
}

func TestNewMediaPipeDetector(t *testing.T) {
	t.Run("missing script", func(t *testing.T) {
		_, err := NewMediaPipeDetector(Config{Script: filepath.Join(t.TempDir(), "nope.py")})
		if err == nil {
			t.Fatal("expected error for missing script")
		}
	})

	t.Run("explicit paths and defaults", func(t *testing.T) {
		script := filepath.Join(t.TempDir(), scriptName)
		if err := os.WriteFile(script, []byte("# stub\n"), 0644); err != nil {
			t.Fatal(err)
		}

		d, err := NewMediaPipeDetector(Config{Script: script, Python: "/usr/bin/python3", MinConfidence: 0.7})
		if err != nil {
			t.Fatalf("NewMediaPipeDetector() error = %v", err)
		}
		if d.config.MaxHands != 1 {
			t.Errorf("MaxHands = %d, want 1", d.config.MaxHands)
		}

		args := strings.Join(d.args(), " ")
		for _, want := range []string{script, "--max-hands 1", "--min-detection-confidence 0.7"} {
			if !strings.Contains(args, want) {
				t.Errorf("args %q missing %q", args, want)
			}
		}

		// Never started, so Close is a no-op.
		if err := d.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
}
