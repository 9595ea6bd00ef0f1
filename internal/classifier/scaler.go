package classifier

import (
	"errors"
	"fmt"
	"math"
)

// Scaler standardizes features as (x - mean) / scale.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitScaler computes the per-feature mean and population standard deviation.
// Constant features get a scale of 1 so they pass through centered.
func FitScaler(samples [][]float64) (*Scaler, error) {
	if len(samples) == 0 {
		return nil, errors.New("no samples provided")
	}

	dim := len(samples[0])
	s := &Scaler{
		Mean:  make([]float64, dim),
		Scale: make([]float64, dim),
	}

	for i, x := range samples {
		if len(x) != dim {
			return nil, fmt.Errorf("sample %d has %d features, expected %d", i, len(x), dim)
		}
		for j, v := range x {
			s.Mean[j] += v
		}
	}
	n := float64(len(samples))
	for j := range s.Mean {
		s.Mean[j] /= n
	}

	for _, x := range samples {
		for j, v := range x {
			d := v - s.Mean[j]
			s.Scale[j] += d * d
		}
	}
	for j := range s.Scale {
		s.Scale[j] = math.Sqrt(s.Scale[j] / n)
		if s.Scale[j] == 0 {
			s.Scale[j] = 1
		}
	}

	return s, nil
}

// Dim returns the number of features the scaler was fitted on.
func (s *Scaler) Dim() int {
	return len(s.Mean)
}

// Validate reports a scaler whose statistics cannot standardize a vector.
func (s *Scaler) Validate() error {
	if len(s.Scale) != len(s.Mean) {
		return fmt.Errorf("scaler has %d means but %d scales", len(s.Mean), len(s.Scale))
	}
	for i, m := range s.Mean {
		if math.IsNaN(m) || math.IsInf(m, 0) {
			return fmt.Errorf("scaler mean %d is not finite", i)
		}
	}
	for i, v := range s.Scale {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("scaler scale %d must be positive and finite, got %v", i, v)
		}
	}
	return nil
}

// Transform returns a standardized copy of x.
func (s *Scaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) || len(s.Scale) != len(s.Mean) {
		return nil, fmt.Errorf("%w: scaler has %d features, got %d", ErrDimensionMismatch, len(s.Mean), len(x))
	}

	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - s.Mean[i]) / s.Scale[i]
	}
	return out, nil
}
