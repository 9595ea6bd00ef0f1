package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/datilo/internal/app"
	"github.com/ayusman/datilo/internal/assembly"
	"github.com/ayusman/datilo/internal/capture"
	"github.com/ayusman/datilo/internal/classifier"
	"github.com/ayusman/datilo/internal/config"
	"github.com/ayusman/datilo/internal/correct"
	"github.com/ayusman/datilo/internal/detector"
	"github.com/ayusman/datilo/internal/observe"
	"github.com/ayusman/datilo/internal/server"
	"github.com/ayusman/datilo/internal/session"
	"github.com/ayusman/datilo/internal/speech"
	"github.com/ayusman/datilo/internal/stabilizer"
	"github.com/ayusman/datilo/internal/store"
	"github.com/ayusman/datilo/internal/tray"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var noTray bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the camera pipeline and the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if noTray {
				cfg.Server.Tray = false
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().BoolVar(&noTray, "no-tray", false, "Do not show the system tray icon")
	return cmd
}

// runServe wires every component and blocks until a signal arrives, the tray
// quits, or one of the long-running parts fails.
func runServe(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}

	if err := os.MkdirAll(config.ExpandPath(cfg.DataDir), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// One process per camera.
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another datilo instance is running (lock %s)", cfg.LockPath())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			slog.Warn("failed to release lock", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer provider.Shutdown(context.Background())

	metrics, err := observe.NewMetrics(provider.MeterProvider())
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	artifact, err := loadModel(cfg)
	if err != nil {
		return err
	}

	worker := newSpeechWorker(cfg, st, metrics)

	sess, err := newSession(cfg, st, artifact, worker, metrics)
	if err != nil {
		return err
	}

	det, err := newDetector(cfg)
	if err != nil {
		return err
	}

	frames := capture.NewFrameBuffer()
	pipeline := app.New(app.Config{
		Camera: capture.NewCamera(capture.Config{
			DeviceID: cfg.Camera.Device,
			Width:    cfg.Camera.Width,
			Height:   cfg.Camera.Height,
			FPS:      cfg.Camera.IdleFPS,
		}),
		Detector:        det,
		Session:         sess,
		Frames:          frames,
		Mirror:          cfg.Camera.Mirror,
		IdleFPS:         cfg.Camera.IdleFPS,
		ActiveFPS:       cfg.Camera.ActiveFPS,
		IdleTimeout:     cfg.Camera.IdleTimeout,
		MotionThreshold: cfg.Camera.MotionThreshold,
		JPEGQuality:     cfg.Camera.JPEGQuality,
	})

	srvCfg := server.Config{
		StaticDir:      config.ExpandPath(cfg.Server.StaticDir),
		Store:          st,
		Session:        sess,
		Frames:         frames,
		Model:          artifact,
		Scheme:         cfg.Scheme(),
		Pipeline:       pipeline,
		Metrics:        metrics,
		MetricsHandler: provider.Handler,
	}
	if worker != nil {
		srvCfg.Speech = worker
	}
	srv := server.New(srvCfg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, cfg.Server.ListenAddr)
	})
	g.Go(func() error {
		return pipeline.Run(gctx)
	})
	if worker != nil {
		g.Go(func() error {
			return worker.Run(gctx)
		})
	}

	slog.Info("datilo ready",
		"listen_addr", cfg.Server.ListenAddr,
		"model_loaded", artifact != nil,
		"auto_speak", sess.AutoSpeak(),
	)

	if cfg.Server.Tray {
		runTray(gctx, stop, cfg, st, sess, pipeline)
	}

	err = g.Wait()
	slog.Info("datilo stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// loadModel loads the newest artifact. A missing model is fatal only when
// the model is required.
func loadModel(cfg *config.Config) (*classifier.Artifact, error) {
	artifact, err := classifier.LoadLatest(cfg.ModelDir(), cfg.Model.Pattern)
	if err != nil {
		if cfg.Model.Required {
			return nil, fmt.Errorf("load model: %w (train one with `datilo train` or set model.required: false)", err)
		}
		slog.Warn("no classifier loaded, running degraded", "dir", cfg.ModelDir(), "err", err)
		return nil, nil
	}

	if artifact.Scheme != cfg.Scheme() {
		slog.Warn("model feature scheme differs from config, using the model's",
			"model", artifact.Scheme, "config", cfg.Scheme())
	}
	slog.Info("model loaded",
		"path", artifact.Path,
		"classes", len(artifact.Classes),
		"accuracy", artifact.Accuracy,
	)
	return artifact, nil
}

func newSpeechWorker(cfg *config.Config, st *store.Store, metrics *observe.Metrics) *speech.Worker {
	if !cfg.Speech.Enabled {
		return nil
	}
	synth := speech.NewCommandSynthesizer(cfg.Speech.Command, cfg.Speech.Args...)
	return speech.NewWorker(synth, speech.WorkerConfig{
		QueueSize: cfg.Speech.QueueSize,
		Timeout:   cfg.Speech.Timeout,
		Metrics:   metrics,
		OnResult:  recordUtterance(st),
	})
}

// recordUtterance writes each speech outcome to the history table.
func recordUtterance(st *store.Store) func(speech.Result) {
	return func(r speech.Result) {
		u := &store.Utterance{
			ID:         r.ID,
			Text:       r.Text,
			Spoken:     r.Err == nil,
			DurationMs: r.Duration.Milliseconds(),
			CreatedAt:  r.QueuedAt,
		}
		if r.Err != nil {
			u.Error = r.Err.Error()
		}
		if err := st.Utterances().Create(u); err != nil {
			slog.Warn("failed to record utterance", "id", r.ID, "err", err)
		}
	}
}

func newSession(cfg *config.Config, st *store.Store, artifact *classifier.Artifact, worker *speech.Worker, metrics *observe.Metrics) (*session.Controller, error) {
	autoSpeak, err := st.Settings().GetBool(store.SettingAutoSpeak, cfg.Speech.AutoSpeak)
	if err != nil {
		return nil, fmt.Errorf("read auto-speak setting: %w", err)
	}

	sessCfg := session.Config{
		Stabilizer: stabilizer.New(cfg.StabilizerParams()),
		Assembler:  assembly.New(cfg.Tokens()),
		Metrics:    metrics,
		Scheme:     cfg.Scheme(),
		HandWarmup: cfg.Stabilizer.HandWarmup,
		AutoSpeak:  autoSpeak,
	}
	if artifact != nil {
		sessCfg.Classifier = artifact.Adapter()
		sessCfg.Scheme = artifact.Scheme
	}
	if worker != nil {
		sessCfg.Speaker = worker
	}

	if cfg.Correction.Enabled {
		words, err := cfg.LoadVocabulary()
		if err != nil {
			return nil, err
		}
		if len(words) == 0 {
			words = correct.DefaultVocabulary
		}
		sessCfg.Corrector = correct.New(words,
			correct.WithFuzzyThreshold(cfg.Correction.FuzzyThreshold),
			correct.WithPhoneticThreshold(cfg.Correction.PhoneticThreshold),
		)
	}

	return session.New(sessCfg), nil
}

func newDetector(cfg *config.Config) (detector.Detector, error) {
	switch cfg.Detector.Kind {
	case config.DetectorMock:
		slog.Warn("using the mock hand detector, no hands will be seen")
		return detector.NewMockDetector(), nil
	default:
		d, err := detector.NewMediaPipeDetector(detector.Config{
			MaxHands:        1,
			MinConfidence:   cfg.Detector.MinConfidence,
			MinTrackingConf: cfg.Detector.MinTrackingConfidence,
			Python:          config.ExpandPath(cfg.Detector.Python),
			Script:          config.ExpandPath(cfg.Detector.Script),
			IdleShutdown:    cfg.Detector.IdleShutdown,
		})
		if err != nil {
			return nil, fmt.Errorf("hand detector: %w", err)
		}
		return d, nil
	}
}

// runTray blocks on the tray until it quits or ctx ends. Quitting from the
// menu stops the whole process.
func runTray(ctx context.Context, stop context.CancelFunc, cfg *config.Config, st *store.Store, sess *session.Controller, pipeline *app.App) {
	t := tray.New(sess)
	t.OnToggle(pipeline.SetEnabled)
	t.OnAutoSpeak(func(enabled bool) {
		if err := st.Settings().SetBool(store.SettingAutoSpeak, enabled); err != nil {
			slog.Warn("auto-speak setting not saved", "err", err)
		}
	})
	t.OnOpen(func() {
		openBrowser(browserURL(cfg.Server.ListenAddr))
	})
	t.OnQuit(stop)

	go func() {
		<-ctx.Done()
		t.Quit()
	}()

	t.Run()
	stop()
}

// browserURL turns a listen address into a URL a local browser can open.
func browserURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	addr = strings.Replace(addr, "0.0.0.0:", "127.0.0.1:", 1)
	return "http://" + addr + "/"
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		slog.Warn("failed to open browser", "url", url, "err", err)
		return
	}
	go cmd.Wait()
}
