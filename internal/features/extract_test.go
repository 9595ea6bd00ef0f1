package features

import (
	"math"
	"testing"

	"github.com/ayusman/datilo/internal/hand"
)

const epsilon = 1e-9

func TestScheme_Len(t *testing.T) {
	tests := []struct {
		scheme Scheme
		want   int
	}{
		{SchemeXY51, 51},
		{SchemeXYZ63, 63},
		{Scheme("bogus"), 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.scheme), func(t *testing.T) {
			if got := tt.scheme.Len(); got != tt.want {
				t.Errorf("Len() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseScheme(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Scheme
		wantErr bool
	}{
		{name: "empty defaults to xy51", input: "", want: SchemeXY51},
		{name: "xy51", input: "xy51", want: SchemeXY51},
		{name: "case insensitive", input: " XYZ63 ", want: SchemeXYZ63},
		{name: "unknown", input: "xy42", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseScheme(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseScheme(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtract_NilAndInvalid(t *testing.T) {
	if got := Extract(nil, SchemeXY51); got != nil {
		t.Errorf("expected nil for nil landmarks, got %v", got)
	}

	h := hand.FistLandmarks()
	h.Points[hand.ThumbTip].X = math.Inf(1)
	if got := Extract(&h, SchemeXY51); got != nil {
		t.Errorf("expected nil for non-finite landmarks, got %v", got)
	}

	valid := hand.FistLandmarks()
	if got := Extract(&valid, Scheme("nope")); got != nil {
		t.Errorf("expected nil for unknown scheme, got %v", got)
	}
}

func TestExtract_XY51Layout(t *testing.T) {
	h := hand.FlatHandLandmarks()
	v := Extract(&h, SchemeXY51)

	if len(v) != 51 {
		t.Fatalf("expected 51 features, got %d", len(v))
	}

	// Wrist offset is always zero
	if v[0] != 0 || v[1] != 0 {
		t.Errorf("wrist offset should be (0,0), got (%f,%f)", v[0], v[1])
	}

	// Index tip offset at positions 16,17
	wrist := h.Points[hand.Wrist]
	tip := h.Points[hand.IndexTip]
	if math.Abs(v[2*hand.IndexTip]-(tip.X-wrist.X)) > epsilon {
		t.Errorf("index tip x offset = %f, want %f", v[2*hand.IndexTip], tip.X-wrist.X)
	}
	if math.Abs(v[2*hand.IndexTip+1]-(tip.Y-wrist.Y)) > epsilon {
		t.Errorf("index tip y offset = %f, want %f", v[2*hand.IndexTip+1], tip.Y-wrist.Y)
	}

	// Spread for the thumb (position 42)
	thumb := h.Points[hand.ThumbTip]
	wantSpread := math.Abs(thumb.X-wrist.X) + math.Abs(thumb.Y-wrist.Y)
	if math.Abs(v[42]-wantSpread) > epsilon {
		t.Errorf("thumb spread = %f, want %f", v[42], wantSpread)
	}

	// Ring-pinky adjacency is the last feature
	ring := h.Points[hand.RingTip]
	pinky := h.Points[hand.PinkyTip]
	wantGap := math.Abs(ring.X-pinky.X) + math.Abs(ring.Y-pinky.Y)
	if math.Abs(v[50]-wantGap) > epsilon {
		t.Errorf("ring-pinky gap = %f, want %f", v[50], wantGap)
	}
}

func TestExtract_XYZ63Layout(t *testing.T) {
	h := hand.FistLandmarks()
	v := Extract(&h, SchemeXYZ63)

	if len(v) != 63 {
		t.Fatalf("expected 63 features, got %d", len(v))
	}

	wrist := h.Points[hand.Wrist]
	tip := h.Points[hand.PinkyTip]
	if math.Abs(v[3*hand.PinkyTip+2]-(tip.Z-wrist.Z)) > epsilon {
		t.Errorf("pinky z offset = %f, want %f", v[3*hand.PinkyTip+2], tip.Z-wrist.Z)
	}
}

func TestExtract_Deterministic(t *testing.T) {
	fixtures := map[string]hand.Landmarks{
		"fist":   hand.FistLandmarks(),
		"flat":   hand.FlatHandLandmarks(),
		"curved": hand.CurvedHandLandmarks(),
	}

	for name, h := range fixtures {
		for _, scheme := range []Scheme{SchemeXY51, SchemeXYZ63} {
			t.Run(name+"/"+string(scheme), func(t *testing.T) {
				a := Extract(&h, scheme)
				b := Extract(&h, scheme)
				if len(a) != len(b) {
					t.Fatalf("length differs: %d vs %d", len(a), len(b))
				}
				for i := range a {
					if a[i] != b[i] {
						t.Errorf("feature %d differs: %v vs %v", i, a[i], b[i])
					}
				}
			})
		}
	}
}

func TestExtract_TranslationInvariant(t *testing.T) {
	offsets := []struct {
		name       string
		dx, dy, dz float64
	}{
		{"right", 0.2, 0, 0},
		{"up-left", -0.15, -0.3, 0},
		{"deeper", 0.05, 0.05, 0.4},
	}

	h := hand.CurvedHandLandmarks()
	for _, scheme := range []Scheme{SchemeXY51, SchemeXYZ63} {
		base := Extract(&h, scheme)
		for _, o := range offsets {
			t.Run(string(scheme)+"/"+o.name, func(t *testing.T) {
				moved := Extract(h.Translate(o.dx, o.dy, o.dz), scheme)
				for i := range base {
					if math.Abs(base[i]-moved[i]) > 1e-9 {
						t.Errorf("feature %d changed after translation: %v -> %v", i, base[i], moved[i])
					}
				}
			})
		}
	}
}

func TestExtract_DistinguishesShapes(t *testing.T) {
	fist := hand.FistLandmarks()
	flat := hand.FlatHandLandmarks()

	a := Extract(&fist, SchemeXY51)
	b := Extract(&flat, SchemeXY51)

	var diff float64
	for i := range a {
		diff += math.Abs(a[i] - b[i])
	}
	if diff < 0.1 {
		t.Errorf("fist and flat hand features are too similar (L1 = %f)", diff)
	}
}
