package capture

import (
	"image"
	"math"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/datilo/internal/hand"
)

const (
	// motionWidth is the thumbnail width frames are reduced to before
	// comparison.
	motionWidth = 160
	motionBlur  = 5
	// DiffThreshold is the grey-level change that marks a pixel as changed.
	DiffThreshold = 25
	// HandPadding grows the hand box on every side, as a share of its size,
	// so fingers moving out of the previous pose are still measured.
	HandPadding = 0.25
)

// Motion is the outcome of one comparison.
type Motion struct {
	// Percent is the share of the measured region that changed.
	Percent float64
	// Moving reports Percent above the detector threshold.
	Moving bool
	// Region is the measured area in frame pixels.
	Region image.Rectangle
}

// MotionDetector compares each frame with the previous one on a small
// grayscale thumbnail. The comparison can be limited to a region, usually
// the signing hand, so background movement does not keep the pipeline busy.
type MotionDetector struct {
	mu        sync.Mutex
	threshold float64
	prev      gocv.Mat
	hasPrev   bool
}

// NewMotionDetector creates a MotionDetector. threshold is the percentage
// of changed pixels above which the region counts as moving.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{threshold: threshold, prev: gocv.NewMat()}
}

// Detect compares frame with the previous frame inside region, given in
// frame pixels. An empty region measures the whole frame. The first frame,
// and the first after a size change, only set the baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat, region image.Rectangle) Motion {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return Motion{}
	}

	bounds := image.Rect(0, 0, frame.Cols(), frame.Rows())
	region = region.Intersect(bounds)
	if region.Empty() {
		region = bounds
	}

	thumb := thumbnail(frame)
	defer thumb.Close()

	if !m.hasPrev || m.prev.Cols() != thumb.Cols() || m.prev.Rows() != thumb.Rows() {
		thumb.CopyTo(&m.prev)
		m.hasPrev = true
		return Motion{Region: region}
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(thumb, m.prev, &diff)
	gocv.Threshold(diff, &diff, DiffThreshold, 255, gocv.ThresholdBinary)
	thumb.CopyTo(&m.prev)

	scale := float64(thumb.Cols()) / float64(frame.Cols())
	area := scaleRect(region, scale).Intersect(image.Rect(0, 0, diff.Cols(), diff.Rows()))
	if area.Empty() {
		return Motion{Region: region}
	}

	roi := diff.Region(area)
	defer roi.Close()
	changed := gocv.CountNonZero(roi)

	percent := float64(changed) / float64(area.Dx()*area.Dy()) * 100
	return Motion{Percent: percent, Moving: percent > m.threshold, Region: region}
}

// thumbnail returns a blurred grayscale copy of frame no wider than
// motionWidth.
func thumbnail(frame *gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	if gray.Cols() > motionWidth {
		h := gray.Rows() * motionWidth / gray.Cols()
		if h < 1 {
			h = 1
		}
		small := gocv.NewMat()
		gocv.Resize(gray, &small, image.Point{X: motionWidth, Y: h}, 0, 0, gocv.InterpolationArea)
		gray.Close()
		gray = small
	}

	gocv.GaussianBlur(gray, &gray, image.Point{X: motionBlur, Y: motionBlur}, 0, 0, gocv.BorderDefault)
	return gray
}

func scaleRect(r image.Rectangle, s float64) image.Rectangle {
	return image.Rect(
		int(math.Floor(float64(r.Min.X)*s)),
		int(math.Floor(float64(r.Min.Y)*s)),
		int(math.Ceil(float64(r.Max.X)*s)),
		int(math.Ceil(float64(r.Max.Y)*s)),
	)
}

// HandRegion returns the bounding box of h in a width x height frame, grown
// by pad times the box size on every side and clipped to the frame. A nil
// or invalid hand gives an empty rectangle.
func HandRegion(h *hand.Landmarks, width, height int, pad float64) image.Rectangle {
	if !h.Valid() || width <= 0 || height <= 0 {
		return image.Rectangle{}
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range h.Points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	padX := (maxX - minX) * pad
	padY := (maxY - minY) * pad
	r := image.Rect(
		int(math.Floor((minX-padX)*float64(width))),
		int(math.Floor((minY-padY)*float64(height))),
		int(math.Ceil((maxX+padX)*float64(width))),
		int(math.Ceil((maxY+padY)*float64(height))),
	)
	return r.Intersect(image.Rect(0, 0, width, height))
}

// Reset drops the baseline.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseLocked()
}

// Close releases the baseline frame. It is safe to call more than once.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseLocked()
}

func (m *MotionDetector) releaseLocked() {
	if !m.prev.Empty() {
		m.prev.Close()
		m.prev = gocv.NewMat()
	}
	m.hasPrev = false
}

// Threshold returns the change threshold in percent.
func (m *MotionDetector) Threshold() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threshold
}

// SetThreshold changes the threshold. Non-positive values are ignored.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threshold = threshold
}
