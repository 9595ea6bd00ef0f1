package classifier

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ayusman/datilo/internal/features"
)

// Sample is one labelled feature vector.
type Sample struct {
	Label    string
	Features []float64
}

// Trainer fits nearest-centroid models from labelled samples.
type Trainer struct {
	// HoldoutEvery sends every Nth sample of each label to the evaluation
	// split. Labels with fewer than HoldoutEvery samples are not split.
	HoldoutEvery int
	Temperature  float64
	Now          func() time.Time
}

// NewTrainer creates a Trainer with default settings.
func NewTrainer() *Trainer {
	return &Trainer{
		HoldoutEvery: 5,
		Temperature:  DefaultTemperature,
		Now:          time.Now,
	}
}

// Train fits a scaler and a centroid model. Accuracy is measured on the
// held-out split (or on the training data when nothing was held out), then
// the final model is refitted on every sample.
func (t *Trainer) Train(samples []Sample, scheme features.Scheme) (*Artifact, error) {
	if len(samples) == 0 {
		return nil, errors.New("no samples provided")
	}
	if !scheme.IsValid() {
		return nil, fmt.Errorf("unknown feature scheme %q", scheme)
	}

	dim := scheme.Len()
	for i, s := range samples {
		if s.Label == "" {
			return nil, fmt.Errorf("sample %d has no label", i)
		}
		if len(s.Features) != dim {
			return nil, fmt.Errorf("sample %d has %d features, expected %d", i, len(s.Features), dim)
		}
	}

	train, test := t.split(samples)
	if len(test) == 0 {
		test = train
	}

	scaler, model, err := t.fit(train)
	if err != nil {
		return nil, err
	}
	accuracy, err := evaluate(NewAdapter(model, scaler), test)
	if err != nil {
		return nil, err
	}

	scaler, model, err = t.fit(samples)
	if err != nil {
		return nil, err
	}

	return &Artifact{
		Version:   ArtifactVersion,
		Scheme:    scheme,
		Classes:   model.Classes(),
		Accuracy:  accuracy,
		Samples:   len(samples),
		TrainedAt: t.Now().UTC(),
		Scaler:    scaler,
		Model:     model,
	}, nil
}

func (t *Trainer) split(samples []Sample) (train, test []Sample) {
	counts := make(map[string]int)
	for _, s := range samples {
		counts[s.Label]++
	}

	seen := make(map[string]int)
	for _, s := range samples {
		seen[s.Label]++
		if t.HoldoutEvery > 1 && counts[s.Label] >= t.HoldoutEvery && seen[s.Label]%t.HoldoutEvery == 0 {
			test = append(test, s)
			continue
		}
		train = append(train, s)
	}
	return train, test
}

func (t *Trainer) fit(samples []Sample) (*Scaler, *CentroidModel, error) {
	vectors := make([][]float64, len(samples))
	for i, s := range samples {
		vectors[i] = s.Features
	}

	scaler, err := FitScaler(vectors)
	if err != nil {
		return nil, nil, err
	}

	sums := make(map[string][]float64)
	counts := make(map[string]int)
	for _, s := range samples {
		x, err := scaler.Transform(s.Features)
		if err != nil {
			return nil, nil, err
		}
		sum, ok := sums[s.Label]
		if !ok {
			sum = make([]float64, len(x))
			sums[s.Label] = sum
		}
		for j, v := range x {
			sum[j] += v
		}
		counts[s.Label]++
	}

	labels := make([]string, 0, len(sums))
	for label := range sums {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	model := &CentroidModel{
		Labels:      labels,
		Centroids:   make([][]float64, len(labels)),
		Temperature: t.Temperature,
	}
	for i, label := range labels {
		n := float64(counts[label])
		centroid := sums[label]
		for j := range centroid {
			centroid[j] /= n
		}
		model.Centroids[i] = centroid
	}

	return scaler, model, nil
}

func evaluate(a *Adapter, samples []Sample) (float64, error) {
	if len(samples) == 0 {
		return 0, nil
	}

	var correct int
	for _, s := range samples {
		pred, err := a.Classify(s.Features)
		if err != nil {
			return 0, fmt.Errorf("evaluate: %w", err)
		}
		if pred.Label == s.Label {
			correct++
		}
	}
	return float64(correct) / float64(len(samples)), nil
}

// CountByLabel returns the number of samples per label.
func CountByLabel(samples []Sample) map[string]int {
	counts := make(map[string]int)
	for _, s := range samples {
		counts[s.Label]++
	}
	return counts
}
