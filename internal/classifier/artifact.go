package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ayusman/datilo/internal/features"
)

// ArtifactVersion is the current on-disk artifact format.
const ArtifactVersion = 1

// DefaultPattern matches artifacts written by the trainer.
const DefaultPattern = "model_*.json"

// Artifact is a trained model together with its scaler and metadata.
type Artifact struct {
	Version   int             `json:"version"`
	Scheme    features.Scheme `json:"scheme"`
	Classes   []string        `json:"classes"`
	Accuracy  float64         `json:"accuracy"`
	Samples   int             `json:"samples"`
	TrainedAt time.Time       `json:"trained_at"`
	Scaler    *Scaler         `json:"scaler,omitempty"`
	Model     *CentroidModel  `json:"model"`

	// Path is where the artifact was loaded from or saved to.
	Path string `json:"-"`
}

// Validate checks that the artifact is internally consistent.
func (a *Artifact) Validate() error {
	var errs []error

	if a.Version != ArtifactVersion {
		errs = append(errs, fmt.Errorf("unsupported artifact version %d", a.Version))
	}
	if !a.Scheme.IsValid() {
		errs = append(errs, fmt.Errorf("unknown feature scheme %q", a.Scheme))
	}
	if a.Model == nil {
		errs = append(errs, errors.New("artifact has no model"))
	} else if err := a.Model.Validate(); err != nil {
		errs = append(errs, err)
	} else {
		if a.Scheme.IsValid() && a.Model.Dim() != a.Scheme.Len() {
			errs = append(errs, fmt.Errorf("model expects %d features but scheme %s produces %d", a.Model.Dim(), a.Scheme, a.Scheme.Len()))
		}
		if a.Scaler != nil && a.Scaler.Dim() != a.Model.Dim() {
			errs = append(errs, fmt.Errorf("scaler has %d features but model expects %d", a.Scaler.Dim(), a.Model.Dim()))
		}
	}
	if a.Scaler != nil {
		if err := a.Scaler.Validate(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Adapter builds the classification adapter for this artifact.
func (a *Artifact) Adapter() *Adapter {
	return NewAdapter(a.Model, a.Scaler)
}

// Save writes the artifact as JSON to path.
func (a *Artifact) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode artifact: %w", err)
	}

	// Write then rename so a concurrent Latest never sees a partial file.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write artifact: %w", err)
	}

	a.Path = path
	return nil
}

// Load reads and validates an artifact.
func Load(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to parse artifact %s: %w", path, err)
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("invalid artifact %s: %w", path, err)
	}

	a.Path = path
	return &a, nil
}

// FileInfo describes an artifact file on disk.
type FileInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// List returns artifacts in dir matching pattern, newest first.
func List(dir, pattern string) ([]FileInfo, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid model pattern %q: %w", pattern, err)
	}

	var files []FileInfo
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, FileInfo{Path: m, Size: info.Size(), ModTime: info.ModTime()})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Path > files[j].Path
		}
		return files[i].ModTime.After(files[j].ModTime)
	})

	return files, nil
}

// Latest returns the path of the most recently modified artifact.
// It returns ErrNoModel when nothing matches.
func Latest(dir, pattern string) (string, error) {
	files, err := List(dir, pattern)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoModel, dir)
	}
	return files[0].Path, nil
}

// LoadLatest loads the most recently modified artifact.
func LoadLatest(dir, pattern string) (*Artifact, error) {
	path, err := Latest(dir, pattern)
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// ArtifactName returns the versioned file name for an artifact trained at t.
func ArtifactName(t time.Time) string {
	return fmt.Sprintf("model_%s.json", t.UTC().Format("20060102_150405"))
}
