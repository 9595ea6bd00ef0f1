// Package fixture provides a ready-made letter model for pipeline tests.
package fixture

import (
	"time"

	"github.com/ayusman/datilo/internal/assembly"
	"github.com/ayusman/datilo/internal/classifier"
	"github.com/ayusman/datilo/internal/features"
	"github.com/ayusman/datilo/internal/hand"
)

// Letter labels recognised by LetterArtifact, by hand shape.
const (
	FistLabel   = "A"
	FlatLabel   = "B"
	CurvedLabel = assembly.DefaultEndToken
)

// LetterArtifact returns an artifact whose centroids are exactly the fist,
// flat and curved fixture hands.
func LetterArtifact() *classifier.Artifact {
	shapes := []hand.Landmarks{hand.FistLandmarks(), hand.FlatHandLandmarks(), hand.CurvedHandLandmarks()}
	centroids := make([][]float64, len(shapes))
	for i := range shapes {
		centroids[i] = features.Extract(&shapes[i], features.SchemeXY51)
	}

	labels := []string{FistLabel, FlatLabel, CurvedLabel}
	return &classifier.Artifact{
		Version:   classifier.ArtifactVersion,
		Scheme:    features.SchemeXY51,
		Classes:   labels,
		Accuracy:  1,
		Samples:   len(shapes),
		TrainedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Model: &classifier.CentroidModel{
			Labels:      labels,
			Centroids:   centroids,
			Temperature: classifier.DefaultTemperature,
		},
	}
}

// LetterAdapter is the classification adapter for LetterArtifact.
func LetterAdapter() *classifier.Adapter {
	return LetterArtifact().Adapter()
}
