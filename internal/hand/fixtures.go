package hand

// Preset hand shapes used by tests and by the mock detector. Coordinates are
// plausible MediaPipe output for a right hand facing the camera.

// FistLandmarks returns a closed fist with the thumb resting along the side
// of the index finger (fingerspelled "A").
func FistLandmarks() Landmarks {
	h := Landmarks{Handedness: "Right", Score: 0.95}

	h.Points[Wrist] = Point3D{X: 0.50, Y: 0.80, Z: 0.0}

	h.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.76, Z: -0.01}
	h.Points[ThumbMCP] = Point3D{X: 0.59, Y: 0.70, Z: -0.02}
	h.Points[ThumbIP] = Point3D{X: 0.60, Y: 0.64, Z: -0.03}
	h.Points[ThumbTip] = Point3D{X: 0.60, Y: 0.59, Z: -0.03}

	h.Points[IndexMCP] = Point3D{X: 0.56, Y: 0.64, Z: -0.02}
	h.Points[IndexPIP] = Point3D{X: 0.56, Y: 0.58, Z: -0.05}
	h.Points[IndexDIP] = Point3D{X: 0.55, Y: 0.62, Z: -0.06}
	h.Points[IndexTip] = Point3D{X: 0.55, Y: 0.66, Z: -0.05}

	h.Points[MiddleMCP] = Point3D{X: 0.51, Y: 0.63, Z: -0.02}
	h.Points[MiddlePIP] = Point3D{X: 0.51, Y: 0.57, Z: -0.05}
	h.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.61, Z: -0.06}
	h.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.65, Z: -0.05}

	h.Points[RingMCP] = Point3D{X: 0.46, Y: 0.64, Z: -0.02}
	h.Points[RingPIP] = Point3D{X: 0.46, Y: 0.59, Z: -0.05}
	h.Points[RingDIP] = Point3D{X: 0.46, Y: 0.63, Z: -0.05}
	h.Points[RingTip] = Point3D{X: 0.46, Y: 0.67, Z: -0.04}

	h.Points[PinkyMCP] = Point3D{X: 0.42, Y: 0.66, Z: -0.02}
	h.Points[PinkyPIP] = Point3D{X: 0.42, Y: 0.62, Z: -0.04}
	h.Points[PinkyDIP] = Point3D{X: 0.42, Y: 0.65, Z: -0.04}
	h.Points[PinkyTip] = Point3D{X: 0.42, Y: 0.68, Z: -0.03}

	return h
}

// FlatHandLandmarks returns four fingers extended and together with the thumb
// folded across the palm (fingerspelled "B").
func FlatHandLandmarks() Landmarks {
	h := Landmarks{Handedness: "Right", Score: 0.95}

	h.Points[Wrist] = Point3D{X: 0.50, Y: 0.80, Z: 0.0}

	h.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.76, Z: -0.01}
	h.Points[ThumbMCP] = Point3D{X: 0.57, Y: 0.71, Z: -0.03}
	h.Points[ThumbIP] = Point3D{X: 0.54, Y: 0.68, Z: -0.05}
	h.Points[ThumbTip] = Point3D{X: 0.50, Y: 0.67, Z: -0.06}

	h.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.64, Z: 0.0}
	h.Points[IndexPIP] = Point3D{X: 0.55, Y: 0.52, Z: 0.0}
	h.Points[IndexDIP] = Point3D{X: 0.55, Y: 0.45, Z: 0.0}
	h.Points[IndexTip] = Point3D{X: 0.55, Y: 0.39, Z: 0.0}

	h.Points[MiddleMCP] = Point3D{X: 0.51, Y: 0.63, Z: 0.0}
	h.Points[MiddlePIP] = Point3D{X: 0.51, Y: 0.50, Z: 0.0}
	h.Points[MiddleDIP] = Point3D{X: 0.51, Y: 0.42, Z: 0.0}
	h.Points[MiddleTip] = Point3D{X: 0.51, Y: 0.36, Z: 0.0}

	h.Points[RingMCP] = Point3D{X: 0.47, Y: 0.64, Z: 0.0}
	h.Points[RingPIP] = Point3D{X: 0.47, Y: 0.52, Z: 0.0}
	h.Points[RingDIP] = Point3D{X: 0.47, Y: 0.45, Z: 0.0}
	h.Points[RingTip] = Point3D{X: 0.47, Y: 0.39, Z: 0.0}

	h.Points[PinkyMCP] = Point3D{X: 0.43, Y: 0.66, Z: 0.0}
	h.Points[PinkyPIP] = Point3D{X: 0.43, Y: 0.57, Z: 0.0}
	h.Points[PinkyDIP] = Point3D{X: 0.43, Y: 0.51, Z: 0.0}
	h.Points[PinkyTip] = Point3D{X: 0.43, Y: 0.46, Z: 0.0}

	return h
}

// CurvedHandLandmarks returns all fingers curved into a "C" shape.
func CurvedHandLandmarks() Landmarks {
	h := Landmarks{Handedness: "Right", Score: 0.95}

	h.Points[Wrist] = Point3D{X: 0.50, Y: 0.80, Z: 0.0}

	h.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.77, Z: -0.01}
	h.Points[ThumbMCP] = Point3D{X: 0.60, Y: 0.73, Z: -0.02}
	h.Points[ThumbIP] = Point3D{X: 0.64, Y: 0.70, Z: -0.03}
	h.Points[ThumbTip] = Point3D{X: 0.67, Y: 0.66, Z: -0.04}

	h.Points[IndexMCP] = Point3D{X: 0.56, Y: 0.62, Z: -0.01}
	h.Points[IndexPIP] = Point3D{X: 0.61, Y: 0.53, Z: -0.03}
	h.Points[IndexDIP] = Point3D{X: 0.66, Y: 0.51, Z: -0.04}
	h.Points[IndexTip] = Point3D{X: 0.69, Y: 0.53, Z: -0.05}

	h.Points[MiddleMCP] = Point3D{X: 0.52, Y: 0.61, Z: -0.01}
	h.Points[MiddlePIP] = Point3D{X: 0.57, Y: 0.51, Z: -0.03}
	h.Points[MiddleDIP] = Point3D{X: 0.62, Y: 0.49, Z: -0.04}
	h.Points[MiddleTip] = Point3D{X: 0.66, Y: 0.51, Z: -0.05}

	h.Points[RingMCP] = Point3D{X: 0.48, Y: 0.62, Z: -0.01}
	h.Points[RingPIP] = Point3D{X: 0.53, Y: 0.53, Z: -0.03}
	h.Points[RingDIP] = Point3D{X: 0.58, Y: 0.51, Z: -0.04}
	h.Points[RingTip] = Point3D{X: 0.62, Y: 0.53, Z: -0.05}

	h.Points[PinkyMCP] = Point3D{X: 0.45, Y: 0.65, Z: -0.01}
	h.Points[PinkyPIP] = Point3D{X: 0.49, Y: 0.58, Z: -0.03}
	h.Points[PinkyDIP] = Point3D{X: 0.53, Y: 0.56, Z: -0.04}
	h.Points[PinkyTip] = Point3D{X: 0.56, Y: 0.57, Z: -0.04}

	return h
}
