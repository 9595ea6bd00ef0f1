package stabilizer

import "github.com/ayusman/datilo/internal/classifier"

// Window is a bounded FIFO of recent predictions. Pushing into a full window
// evicts the oldest entry.
type Window struct {
	buf    []classifier.Prediction
	pos    int // next write position
	filled int
}

// NewWindow creates a window holding at most capacity predictions.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{buf: make([]classifier.Prediction, capacity)}
}

// Push appends p, evicting the oldest prediction when full.
func (w *Window) Push(p classifier.Prediction) {
	w.buf[w.pos] = p
	w.pos = (w.pos + 1) % len(w.buf)
	if w.filled < len(w.buf) {
		w.filled++
	}
}

// Len returns the number of predictions held.
func (w *Window) Len() int { return w.filled }

// Cap returns the window capacity.
func (w *Window) Cap() int { return len(w.buf) }

// Clear empties the window.
func (w *Window) Clear() {
	w.pos = 0
	w.filled = 0
	for i := range w.buf {
		w.buf[i] = classifier.Prediction{}
	}
}

// Items returns the predictions oldest first.
func (w *Window) Items() []classifier.Prediction {
	out := make([]classifier.Prediction, 0, w.filled)
	for i := 0; i < w.filled; i++ {
		idx := (w.pos - w.filled + i + len(w.buf)) % len(w.buf)
		out = append(out, w.buf[idx])
	}
	return out
}

// Count returns how many predictions carry label.
func (w *Window) Count(label string) int {
	var n int
	for _, p := range w.Items() {
		if p.Label == label {
			n++
		}
	}
	return n
}

// Majority returns the most frequent label and its count. Ties go to the
// label seen most recently.
func (w *Window) Majority() (string, int) {
	items := w.Items()
	counts := make(map[string]int, len(items))
	for _, p := range items {
		counts[p.Label]++
	}

	var best string
	var bestCount int
	// Walk newest to oldest so the first label to reach the top count is the
	// most recent one.
	for i := len(items) - 1; i >= 0; i-- {
		label := items[i].Label
		if c := counts[label]; c > bestCount {
			best, bestCount = label, c
		}
	}
	return best, bestCount
}
