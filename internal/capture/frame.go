package capture

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

var (
	colorLetter = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	colorText   = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	colorPanel  = color.RGBA{R: 0, G: 0, B: 0, A: 0}
	colorNoHand = color.RGBA{R: 0, G: 0, B: 255, A: 0}
)

// Mirror flips the frame horizontally in place for a selfie view.
func Mirror(frame *gocv.Mat) {
	if frame == nil || frame.Empty() {
		return
	}
	gocv.Flip(*frame, frame, 1)
}

// Overlay is the text drawn on an annotated frame.
type Overlay struct {
	Letter      string
	Text        string
	HandPresent bool
}

// Annotate draws the current letter and formed text onto the frame.
func Annotate(frame *gocv.Mat, o Overlay) {
	if frame == nil || frame.Empty() {
		return
	}
	width := frame.Cols()
	height := frame.Rows()

	gocv.Rectangle(frame, image.Rect(0, 0, width, 60), colorPanel, -1)
	gocv.PutText(frame, "Letra: "+o.Letter, image.Pt(10, 42), gocv.FontHersheySimplex, 1.2, colorLetter, 2)

	if !o.HandPresent {
		gocv.PutText(frame, "sem mao", image.Pt(width-140, 40), gocv.FontHersheySimplex, 0.8, colorNoHand, 2)
	}

	if o.Text != "" {
		gocv.Rectangle(frame, image.Rect(0, height-50, width, height), colorPanel, -1)
		gocv.PutText(frame, o.Text, image.Pt(10, height-16), gocv.FontHersheySimplex, 0.9, colorText, 2)
	}
}

// EncodeJPEG encodes the frame at the given quality (1-100).
func EncodeJPEG(frame *gocv.Mat, quality int) ([]byte, error) {
	if frame == nil || frame.Empty() {
		return nil, fmt.Errorf("encode frame: empty frame")
	}
	if quality < 1 || quality > 100 {
		quality = 80
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *frame, []int{int(gocv.IMWriteJpegQuality), quality})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
