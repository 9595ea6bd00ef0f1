// Package hand defines the hand landmark types shared by the detector and the
// recognition pipeline. It has no camera or OpenCV dependencies.
package hand

import "math"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Fingertips lists the fingertip indices from thumb to pinky.
var Fingertips = [5]int{ThumbTip, IndexTip, MiddleTip, RingTip, PinkyTip}

// Point3D is a landmark position in normalized image coordinates (0..1).
// Z is relative depth and may be zero when the detector does not report it.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Landmarks holds the 21 points of one detected hand.
type Landmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// FromPoints builds Landmarks from a slice of points.
// It returns nil unless exactly NumLandmarks points are given.
func FromPoints(points []Point3D) *Landmarks {
	if len(points) != NumLandmarks {
		return nil
	}
	h := &Landmarks{}
	copy(h.Points[:], points)
	return h
}

// Valid reports whether every coordinate is a finite number.
func (h *Landmarks) Valid() bool {
	if h == nil {
		return false
	}
	for _, p := range h.Points {
		if !finite(p.X) || !finite(p.Y) || !finite(p.Z) {
			return false
		}
	}
	return true
}

// Translate returns a copy of the hand with every point shifted by (dx, dy, dz).
func (h *Landmarks) Translate(dx, dy, dz float64) *Landmarks {
	if h == nil {
		return nil
	}
	out := *h
	for i := range out.Points {
		out.Points[i].X += dx
		out.Points[i].Y += dy
		out.Points[i].Z += dz
	}
	return &out
}

// Centroid returns the mean position of all landmarks.
func (h *Landmarks) Centroid() Point3D {
	var c Point3D
	if h == nil {
		return c
	}
	for _, p := range h.Points {
		c.X += p.X
		c.Y += p.Y
		c.Z += p.Z
	}
	n := float64(NumLandmarks)
	return Point3D{X: c.X / n, Y: c.Y / n, Z: c.Z / n}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
