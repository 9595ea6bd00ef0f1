package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/datilo/internal/classifier"
	"github.com/ayusman/datilo/internal/config"
	"github.com/ayusman/datilo/internal/detector"
	"github.com/ayusman/datilo/internal/features"
	"github.com/ayusman/datilo/internal/hand"
	"github.com/ayusman/datilo/internal/speech"
	"github.com/ayusman/datilo/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	return cfg
}

func openStore(t *testing.T, cfg *config.Config) *store.Store {
	t.Helper()
	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// seedSamples records n slightly shifted copies of each fixture hand.
func seedSamples(t *testing.T, st *store.Store, n int) {
	t.Helper()
	shapes := map[string]hand.Landmarks{
		"A": hand.FistLandmarks(),
		"B": hand.FlatHandLandmarks(),
	}
	var samples []*store.Sample
	for label, h := range shapes {
		for i := 0; i < n; i++ {
			lm := h.Translate(float64(i)*0.01, 0, 0)
			samples = append(samples, &store.Sample{
				Label:     label,
				Scheme:    string(features.SchemeXY51),
				Features:  features.Extract(lm, features.SchemeXY51),
				Landmarks: lm,
			})
		}
	}
	if err := st.Samples().Create(samples...); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name     string
		format   config.LogFormat
		wantJSON bool
	}{
		{"auto on a buffer is JSON", config.LogFormatAuto, true},
		{"explicit json", config.LogFormatJSON, true},
		{"explicit text", config.LogFormatText, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, config.LogInfo, tt.format)
			logger.Info("letter validated", "label", "B")

			isJSON := strings.HasPrefix(buf.String(), "{")
			if isJSON != tt.wantJSON {
				t.Errorf("output %q: JSON = %v, want %v", buf.String(), isJSON, tt.wantJSON)
			}
		})
	}

	t.Run("level filters debug", func(t *testing.T) {
		var buf bytes.Buffer
		logger := newLogger(&buf, config.LogWarn, config.LogFormatText)
		logger.Info("hidden")
		logger.Warn("shown")
		if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
			t.Errorf("unexpected output: %q", buf.String())
		}
	})
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"Label", "Samples"}, [][]string{{"A", "12"}, {"B"}}, []columnAlignment{alignLeft, alignRight})
	for _, want := range []string{"Label", "Samples", "A", "12", "B"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if renderTable(nil, nil, nil) != "" {
		t.Error("table without headers should be empty")
	}
}

func TestBrowserURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{":5000", "http://127.0.0.1:5000/"},
		{"0.0.0.0:8080", "http://127.0.0.1:8080/"},
		{"127.0.0.1:5000", "http://127.0.0.1:5000/"},
	}
	for _, tt := range tests {
		if got := browserURL(tt.addr); got != tt.want {
			t.Errorf("browserURL(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}

func TestRunTrain_WritesArtifact(t *testing.T) {
	cfg := testConfig(t)
	seedSamples(t, openStore(t, cfg), 6)

	var out bytes.Buffer
	if err := runTrain(&out, cfg, trainOptions{holdout: 3}); err != nil {
		t.Fatalf("runTrain() error = %v", err)
	}
	if !strings.Contains(out.String(), "Saved:") {
		t.Errorf("output missing artifact path:\n%s", out.String())
	}

	artifact, err := classifier.LoadLatest(cfg.ModelDir(), cfg.Model.Pattern)
	if err != nil {
		t.Fatalf("LoadLatest() error = %v", err)
	}
	if strings.Join(artifact.Classes, ",") != "A,B" {
		t.Errorf("Classes = %v, want [A B]", artifact.Classes)
	}
	if artifact.Accuracy != 1 {
		t.Errorf("Accuracy = %v, want 1", artifact.Accuracy)
	}

	flat := hand.FlatHandLandmarks()
	pred, err := artifact.Adapter().Classify(features.Extract(&flat, artifact.Scheme))
	if err != nil || pred.Label != "B" {
		t.Errorf("Classify(flat) = %+v, %v", pred, err)
	}

	out.Reset()
	if err := runModels(&out, cfg); err != nil {
		t.Fatalf("runModels() error = %v", err)
	}
	if !strings.Contains(out.String(), filepath.Base(artifact.Path)) || !strings.Contains(out.String(), "100.0%") {
		t.Errorf("models output:\n%s", out.String())
	}
}

func TestRunTrain_ReextractsOtherScheme(t *testing.T) {
	cfg := testConfig(t)
	seedSamples(t, openStore(t, cfg), 3)

	var out bytes.Buffer
	if err := runTrain(&out, cfg, trainOptions{scheme: "xyz63"}); err != nil {
		t.Fatalf("runTrain() error = %v", err)
	}
	artifact, err := classifier.LoadLatest(cfg.ModelDir(), cfg.Model.Pattern)
	if err != nil {
		t.Fatal(err)
	}
	if artifact.Scheme != features.SchemeXYZ63 {
		t.Errorf("Scheme = %s, want xyz63", artifact.Scheme)
	}
}

func TestRunTrain_NoSamples(t *testing.T) {
	cfg := testConfig(t)
	if err := runTrain(&bytes.Buffer{}, cfg, trainOptions{}); err == nil {
		t.Error("expected error without samples")
	}
	if err := runTrain(&bytes.Buffer{}, cfg, trainOptions{scheme: "xy42"}); err == nil {
		t.Error("expected error for unknown scheme")
	}
}

func TestLoadTrainingSamples_SkipsForeignFeatures(t *testing.T) {
	cfg := testConfig(t)
	st := openStore(t, cfg)

	err := st.Samples().Create(&store.Sample{
		Label:    "A",
		Scheme:   string(features.SchemeXYZ63),
		Features: make([]float64, features.SchemeXYZ63.Len()),
	})
	if err != nil {
		t.Fatal(err)
	}

	samples, skipped, err := loadTrainingSamples(st, features.SchemeXY51)
	if err != nil {
		t.Fatalf("loadTrainingSamples() error = %v", err)
	}
	if len(samples) != 0 || skipped != 1 {
		t.Errorf("samples = %d, skipped = %d", len(samples), skipped)
	}
}

func TestRunModels_Empty(t *testing.T) {
	var out bytes.Buffer
	if err := runModels(&out, testConfig(t)); err != nil {
		t.Fatalf("runModels() error = %v", err)
	}
	if !strings.Contains(out.String(), "No models") {
		t.Errorf("output = %q", out.String())
	}
}

func TestLoadModel(t *testing.T) {
	cfg := testConfig(t)

	if _, err := loadModel(cfg); !errors.Is(err, classifier.ErrNoModel) {
		t.Errorf("required model: error = %v, want ErrNoModel", err)
	}

	cfg.Model.Required = false
	artifact, err := loadModel(cfg)
	if err != nil || artifact != nil {
		t.Errorf("optional model: got %v, %v", artifact, err)
	}
}

func TestNewSession_AutoSpeakSetting(t *testing.T) {
	cfg := testConfig(t)
	cfg.Speech.AutoSpeak = true
	st := openStore(t, cfg)

	sess, err := newSession(cfg, st, nil, nil, nil)
	if err != nil {
		t.Fatalf("newSession() error = %v", err)
	}
	if !sess.AutoSpeak() {
		t.Error("config default should apply without a saved setting")
	}
	if sess.ModelLoaded() {
		t.Error("no artifact means no model")
	}

	if err := st.Settings().SetBool(store.SettingAutoSpeak, false); err != nil {
		t.Fatal(err)
	}
	sess, err = newSession(cfg, st, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if sess.AutoSpeak() {
		t.Error("saved setting should override the config")
	}
}

func TestNewSession_VocabularyFileMissing(t *testing.T) {
	cfg := testConfig(t)
	cfg.Correction.VocabularyFile = filepath.Join(t.TempDir(), "missing.txt")

	if _, err := newSession(cfg, openStore(t, cfg), nil, nil, nil); err == nil {
		t.Error("expected error for missing vocabulary file")
	}
}

func TestNewDetector(t *testing.T) {
	cfg := testConfig(t)
	cfg.Detector.Kind = config.DetectorMock
	d, err := newDetector(cfg)
	if err != nil {
		t.Fatalf("newDetector(mock) error = %v", err)
	}
	if _, ok := d.(*detector.MockDetector); !ok {
		t.Errorf("newDetector(mock) = %T", d)
	}

	cfg.Detector.Kind = config.DetectorMediaPipe
	cfg.Detector.Script = filepath.Join(t.TempDir(), "missing.py")
	if _, err := newDetector(cfg); err == nil {
		t.Error("expected error for missing MediaPipe script")
	}
}

func TestRecordUtterance(t *testing.T) {
	cfg := testConfig(t)
	st := openStore(t, cfg)
	record := recordUtterance(st)

	queued := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	record(speech.Result{Job: speech.Job{ID: "ok", Text: "OLA", QueuedAt: queued}, Duration: 1500 * time.Millisecond})
	record(speech.Result{Job: speech.Job{ID: "bad", Text: "TCHAU", QueuedAt: queued.Add(time.Second)}, Err: errors.New("exit status 1")})

	ok, err := st.Utterances().GetByID("ok")
	if err != nil {
		t.Fatalf("GetByID(ok) error = %v", err)
	}
	if !ok.Spoken || ok.DurationMs != 1500 || ok.Error != "" {
		t.Errorf("ok = %+v", ok)
	}

	bad, err := st.Utterances().GetByID("bad")
	if err != nil {
		t.Fatalf("GetByID(bad) error = %v", err)
	}
	if bad.Spoken || bad.Error != "exit status 1" {
		t.Errorf("bad = %+v", bad)
	}
}

func TestRootCommand_Models(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("data_dir: "+dir+"\nserver:\n  log_format: text\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", path, "models"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), filepath.Join(dir, "models")) {
		t.Errorf("output = %q", out.String())
	}
}

func TestRootCommand_BadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  log_level: loud\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCommand()
	cmd.SetArgs([]string{"--config", path, "models"})
	if err := cmd.Execute(); err == nil {
		t.Error("expected config validation error")
	}
}
