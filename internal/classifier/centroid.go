package classifier

import (
	"errors"
	"fmt"
	"math"
)

// DefaultTemperature controls how sharply the softmax posterior favors the
// nearest centroid.
const DefaultTemperature = 1.0

// CentroidModel is a nearest-centroid classifier. Each label is represented
// by the mean of its training vectors; a prediction is the label whose
// centroid is closest in Euclidean distance.
type CentroidModel struct {
	Labels      []string    `json:"labels"`
	Centroids   [][]float64 `json:"centroids"`
	Temperature float64     `json:"temperature"`
}

// Validate checks that the model is usable.
func (m *CentroidModel) Validate() error {
	if len(m.Labels) == 0 {
		return errors.New("model has no labels")
	}
	if len(m.Labels) != len(m.Centroids) {
		return fmt.Errorf("model has %d labels but %d centroids", len(m.Labels), len(m.Centroids))
	}
	dim := len(m.Centroids[0])
	if dim == 0 {
		return errors.New("model centroids are empty")
	}
	for i, c := range m.Centroids {
		if len(c) != dim {
			return fmt.Errorf("centroid %q has %d features, expected %d", m.Labels[i], len(c), dim)
		}
		for _, v := range c {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("centroid %q has a non-finite value", m.Labels[i])
			}
		}
	}
	return nil
}

// Dim implements Classifier.
func (m *CentroidModel) Dim() int {
	if len(m.Centroids) == 0 {
		return 0
	}
	return len(m.Centroids[0])
}

// Classes implements ProbabilisticClassifier.
func (m *CentroidModel) Classes() []string {
	out := make([]string, len(m.Labels))
	copy(out, m.Labels)
	return out
}

// Predict implements Classifier.
func (m *CentroidModel) Predict(x []float64) (string, error) {
	dists, err := m.distances(x)
	if err != nil {
		return "", err
	}

	best := 0
	for i, d := range dists {
		if d < dists[best] {
			best = i
		}
	}
	return m.Labels[best], nil
}

// PredictProba implements ProbabilisticClassifier. Posteriors are a softmax
// over negative distances.
func (m *CentroidModel) PredictProba(x []float64) ([]float64, error) {
	dists, err := m.distances(x)
	if err != nil {
		return nil, err
	}

	temp := m.Temperature
	if temp <= 0 {
		temp = DefaultTemperature
	}

	minDist := math.Inf(1)
	for _, d := range dists {
		minDist = math.Min(minDist, d)
	}

	// Shift by the minimum so the largest exponent is 0.
	proba := make([]float64, len(dists))
	var sum float64
	for i, d := range dists {
		proba[i] = math.Exp(-(d - minDist) / temp)
		sum += proba[i]
	}
	for i := range proba {
		proba[i] /= sum
	}
	return proba, nil
}

func (m *CentroidModel) distances(x []float64) ([]float64, error) {
	if len(m.Centroids) == 0 {
		return nil, errors.New("model has no centroids")
	}
	if len(x) != m.Dim() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(x), m.Dim())
	}

	dists := make([]float64, len(m.Centroids))
	for i, c := range m.Centroids {
		dists[i] = euclidean(x, c)
	}
	return dists, nil
}

func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
