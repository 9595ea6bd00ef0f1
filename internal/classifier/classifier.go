// Package classifier maps feature vectors to fingerspelled letter labels.
//
// The pipeline only depends on the narrow Classifier interface. A model that
// can also report class posteriors implements ProbabilisticClassifier, and the
// Adapter uses the maximum posterior as the prediction confidence.
package classifier

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrDimensionMismatch is returned when a feature vector does not have the
	// length the model was trained on.
	ErrDimensionMismatch = errors.New("feature dimension mismatch")

	// ErrNoModel is returned when no model artifact can be found.
	ErrNoModel = errors.New("no classifier model found")
)

// Classifier predicts a label for a feature vector.
type Classifier interface {
	Predict(features []float64) (string, error)
	// Dim is the feature vector length the classifier expects.
	Dim() int
}

// ProbabilisticClassifier is a Classifier that also reports a posterior for
// each class. PredictProba returns values aligned with Classes.
type ProbabilisticClassifier interface {
	Classifier
	Classes() []string
	PredictProba(features []float64) ([]float64, error)
}

// Prediction is the per-frame classification result.
type Prediction struct {
	Label         string  `json:"label"`
	Confidence    float64 `json:"confidence"`
	HasConfidence bool    `json:"has_confidence"`
}

// Adapter wraps a Classifier with optional feature scaling and confidence
// extraction.
type Adapter struct {
	model  Classifier
	scaler *Scaler
}

// NewAdapter creates an Adapter. scaler may be nil.
func NewAdapter(model Classifier, scaler *Scaler) *Adapter {
	return &Adapter{model: model, scaler: scaler}
}

// Dim returns the expected feature length.
func (a *Adapter) Dim() int {
	return a.model.Dim()
}

// Classes returns the label set when the model exposes one.
func (a *Adapter) Classes() []string {
	if p, ok := a.model.(ProbabilisticClassifier); ok {
		return p.Classes()
	}
	return nil
}

// Classify predicts the letter for a feature vector.
func (a *Adapter) Classify(features []float64) (Prediction, error) {
	if len(features) != a.model.Dim() {
		return Prediction{}, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(features), a.model.Dim())
	}

	x := features
	if a.scaler != nil {
		scaled, err := a.scaler.Transform(features)
		if err != nil {
			return Prediction{}, err
		}
		x = scaled
	}

	label, err := a.model.Predict(x)
	if err != nil {
		return Prediction{}, fmt.Errorf("predict: %w", err)
	}

	pred := Prediction{Label: label}

	p, ok := a.model.(ProbabilisticClassifier)
	if !ok {
		return pred, nil
	}

	proba, err := p.PredictProba(x)
	if err != nil {
		return Prediction{}, fmt.Errorf("predict proba: %w", err)
	}
	for _, v := range proba {
		if math.IsNaN(v) {
			return Prediction{}, errors.New("predict proba: posterior is NaN")
		}
		if v > pred.Confidence {
			pred.Confidence = v
		}
	}
	pred.HasConfidence = len(proba) > 0

	return pred, nil
}
