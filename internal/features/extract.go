// Package features converts hand landmarks into the fixed-length vectors the
// letter classifier is trained on.
package features

import (
	"fmt"
	"math"
	"strings"

	"github.com/ayusman/datilo/internal/hand"
)

// Scheme selects the feature layout.
type Scheme string

const (
	// SchemeXY51 is the canonical layout: 42 wrist-relative x/y offsets,
	// 5 wrist-to-fingertip spreads and 4 adjacent-fingertip gaps.
	SchemeXY51 Scheme = "xy51"

	// SchemeXYZ63 is the legacy layout: wrist-relative x/y/z offsets only.
	// Kept for artifacts trained by older classifier versions.
	SchemeXYZ63 Scheme = "xyz63"
)

// Len returns the vector length produced by the scheme, or 0 if unknown.
func (s Scheme) Len() int {
	switch s {
	case SchemeXY51:
		return 2*hand.NumLandmarks + len(hand.Fingertips) + len(hand.Fingertips) - 1
	case SchemeXYZ63:
		return 3 * hand.NumLandmarks
	default:
		return 0
	}
}

// IsValid reports whether s names a known scheme.
func (s Scheme) IsValid() bool {
	return s.Len() > 0
}

// ParseScheme parses a scheme name. An empty name selects SchemeXY51.
func ParseScheme(name string) (Scheme, error) {
	s := Scheme(strings.ToLower(strings.TrimSpace(name)))
	if s == "" {
		return SchemeXY51, nil
	}
	if !s.IsValid() {
		return "", fmt.Errorf("unknown feature scheme %q; valid values: %s, %s", name, SchemeXY51, SchemeXYZ63)
	}
	return s, nil
}

// Extract computes the feature vector for h using the given scheme.
// It returns nil when h is nil, has non-finite coordinates, or the scheme is unknown.
// All features are measured from the wrist, so the result is invariant to
// translating the whole hand.
func Extract(h *hand.Landmarks, scheme Scheme) []float64 {
	if h == nil || !h.Valid() {
		return nil
	}

	switch scheme {
	case SchemeXY51:
		return extractXY51(h)
	case SchemeXYZ63:
		return extractXYZ63(h)
	default:
		return nil
	}
}

func extractXY51(h *hand.Landmarks) []float64 {
	out := make([]float64, 0, SchemeXY51.Len())
	wrist := h.Points[hand.Wrist]

	for _, p := range h.Points {
		out = append(out, p.X-wrist.X, p.Y-wrist.Y)
	}

	// Spread: how far each fingertip is from the wrist.
	for _, tip := range hand.Fingertips {
		out = append(out, manhattan(h.Points[tip], wrist))
	}

	// Adjacency: thumb-index, index-middle, middle-ring, ring-pinky.
	for i := 0; i < len(hand.Fingertips)-1; i++ {
		out = append(out, manhattan(h.Points[hand.Fingertips[i]], h.Points[hand.Fingertips[i+1]]))
	}

	return out
}

func extractXYZ63(h *hand.Landmarks) []float64 {
	out := make([]float64, 0, SchemeXYZ63.Len())
	wrist := h.Points[hand.Wrist]

	for _, p := range h.Points {
		out = append(out, p.X-wrist.X, p.Y-wrist.Y, p.Z-wrist.Z)
	}

	return out
}

// manhattan is the 2D L1 distance between two points; Z is ignored.
func manhattan(a, b hand.Point3D) float64 {
	return math.Abs(a.X-b.X) + math.Abs(a.Y-b.Y)
}
