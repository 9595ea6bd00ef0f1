package main

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ayusman/datilo/internal/classifier"
	"github.com/ayusman/datilo/internal/config"
	"github.com/ayusman/datilo/internal/features"
	"github.com/ayusman/datilo/internal/store"
)

type trainOptions struct {
	scheme  string
	outDir  string
	holdout int
}

func newTrainCommand(ctx *commandContext) *cobra.Command {
	var opts trainOptions

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit a letter model from the recorded samples",
		Long: `Fit a nearest-centroid model from the samples recorded through
POST /api/samples and write it as a new versioned artifact. The newest
artifact is picked up by the next "datilo serve".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runTrain(cmd.OutOrStdout(), cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.scheme, "scheme", "", "Feature scheme (xy51 or xyz63); defaults to features.scheme")
	cmd.Flags().StringVar(&opts.outDir, "out", "", "Artifact directory; defaults to the model directory")
	cmd.Flags().IntVar(&opts.holdout, "holdout", 5, "Hold out every Nth sample per label for evaluation (0 disables)")
	return cmd
}

func runTrain(out io.Writer, cfg *config.Config, opts trainOptions) error {
	scheme := cfg.Scheme()
	if opts.scheme != "" {
		s, err := features.ParseScheme(opts.scheme)
		if err != nil {
			return err
		}
		scheme = s
	}
	outDir := cfg.ModelDir()
	if opts.outDir != "" {
		outDir = config.ExpandPath(opts.outDir)
	}

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	samples, skipped, err := loadTrainingSamples(st, scheme)
	if err != nil {
		return err
	}

	trainer := classifier.NewTrainer()
	trainer.HoldoutEvery = opts.holdout
	artifact, err := trainer.Train(samples, scheme)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}

	path := filepath.Join(outDir, classifier.ArtifactName(artifact.TrainedAt))
	if err := artifact.Save(path); err != nil {
		return err
	}

	fmt.Fprintln(out, renderSampleCounts(classifier.CountByLabel(samples)))
	fmt.Fprintf(out, "Samples:  %d (%d skipped)\n", len(samples), skipped)
	fmt.Fprintf(out, "Scheme:   %s\n", artifact.Scheme)
	fmt.Fprintf(out, "Accuracy: %.1f%%\n", artifact.Accuracy*100)
	fmt.Fprintf(out, "Saved:    %s\n", path)
	return nil
}

// loadTrainingSamples reads every stored sample as scheme features. Samples
// that kept their landmarks are re-extracted; the rest are used only when
// they were stored with the same scheme.
func loadTrainingSamples(st *store.Store, scheme features.Scheme) ([]classifier.Sample, int, error) {
	stored, err := st.Samples().List("")
	if err != nil {
		return nil, 0, fmt.Errorf("list samples: %w", err)
	}

	samples := make([]classifier.Sample, 0, len(stored))
	skipped := 0
	for _, s := range stored {
		var vec []float64
		switch {
		case s.Landmarks != nil:
			vec = features.Extract(s.Landmarks, scheme)
		case s.Scheme == string(scheme):
			vec = s.Features
		}
		if len(vec) != scheme.Len() {
			skipped++
			continue
		}
		samples = append(samples, classifier.Sample{Label: s.Label, Features: vec})
	}
	return samples, skipped, nil
}

func renderSampleCounts(counts map[string]int) string {
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	rows := make([][]string, 0, len(labels))
	for _, label := range labels {
		rows = append(rows, []string{label, strconv.Itoa(counts[label])})
	}
	return renderTable([]string{"Label", "Samples"}, rows, []columnAlignment{alignLeft, alignRight})
}
