// Package capture provides camera capture functionality using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultFPS    = 5
	DefaultWidth  = 640
	DefaultHeight = 480

	// AutoDevice asks Open to probe for a camera.
	AutoDevice = -1
	// MaxProbeIndex is the highest device index probed in auto mode.
	MaxProbeIndex = 4
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")

	// ErrNoCamera is returned when auto detection finds no working device.
	ErrNoCamera = errors.New("no working camera found")
)

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// Config configures a camera.
type Config struct {
	// DeviceID is the capture index, or AutoDevice.
	DeviceID int
	Width    int
	Height   int
	FPS      int
}

// cameraImpl manages video capture from a camera device using GoCV.
type cameraImpl struct {
	config   Config
	deviceID int
	capture  *gocv.VideoCapture
	mu       sync.Mutex
	running  bool
	fps      int
}

// NewCamera creates a new Camera. Zero size and FPS fall back to 640x480
// at 5 fps.
func NewCamera(config Config) Camera {
	if config.Width <= 0 || config.Height <= 0 {
		config.Width, config.Height = DefaultWidth, DefaultHeight
	}
	if config.FPS <= 0 {
		config.FPS = DefaultFPS
	}
	return &cameraImpl{
		config:   config,
		deviceID: config.DeviceID,
		fps:      config.FPS,
	}
}

// Open opens the camera for capturing frames. In auto mode it probes
// devices 0 through MaxProbeIndex first.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	deviceID := c.config.DeviceID
	if deviceID == AutoDevice {
		id, ok := ChooseDevice(ProbeDevices(MaxProbeIndex))
		if !ok {
			return ErrNoCamera
		}
		deviceID = id
		slog.Info("camera selected", "device", deviceID)
	}

	capture, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", deviceID, err)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(c.config.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(c.config.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.capture = capture
	c.deviceID = deviceID
	c.running = true

	return nil
}

// Close closes the camera and releases resources.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame reads a single frame from the camera.
// The caller is responsible for closing the returned Mat.
func (c *cameraImpl) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, errors.New("failed to read frame from camera")
	}

	if mat.Empty() {
		mat.Close()
		return nil, errors.New("captured frame is empty")
	}

	return &mat, nil
}

// SetFPS sets the frames per second for capture.
// Values less than or equal to 0 are ignored.
func (c *cameraImpl) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps

	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current frames per second setting.
func (c *cameraImpl) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fps
}

// IsOpen returns true if the camera is currently open and running.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}

// ProbeDevices returns the indices in [0, maxIndex] that open and deliver
// a non-empty frame.
func ProbeDevices(maxIndex int) []int {
	var found []int
	for i := 0; i <= maxIndex; i++ {
		vc, err := gocv.OpenVideoCapture(i)
		if err != nil {
			continue
		}
		mat := gocv.NewMat()
		ok := vc.IsOpened() && vc.Read(&mat) && !mat.Empty()
		mat.Close()
		vc.Close()
		if ok {
			slog.Debug("camera probe", "device", i, "ok", true)
			found = append(found, i)
		}
	}
	return found
}

// ChooseDevice prefers the first external camera (index > 0) and falls
// back to the built-in index 0.
func ChooseDevice(available []int) (int, bool) {
	builtin := false
	for _, id := range available {
		if id > 0 {
			return id, true
		}
		if id == 0 {
			builtin = true
		}
	}
	if builtin {
		return 0, true
	}
	return 0, false
}
