package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/datilo/internal/observe"
)

var (
	// ErrQueueFull is returned when the speech queue cannot take another job.
	ErrQueueFull = errors.New("speech queue full")

	// ErrEmptyText is returned when there is nothing to speak.
	ErrEmptyText = errors.New("nothing to speak")
)

// Job is one sentence waiting to be spoken.
type Job struct {
	ID       string
	Text     string
	QueuedAt time.Time
}

// Result is the outcome of a Job.
type Result struct {
	Job
	Err      error
	Duration time.Duration
}

// WorkerConfig configures a Worker.
type WorkerConfig struct {
	// QueueSize bounds pending jobs. Defaults to 8.
	QueueSize int
	// Timeout caps each Speak call. Defaults to 30s.
	Timeout time.Duration
	Metrics *observe.Metrics
	// OnResult is called from the worker goroutine after each job.
	OnResult func(Result)
}

// Worker speaks queued sentences one at a time on its own goroutine.
type Worker struct {
	synth    Synthesizer
	queue    chan Job
	timeout  time.Duration
	metrics  *observe.Metrics
	onResult func(Result)

	mu      sync.Mutex
	lastErr string
}

// NewWorker creates a Worker. Call Run to start processing.
func NewWorker(synth Synthesizer, cfg WorkerConfig) *Worker {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 8
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Worker{
		synth:    synth,
		queue:    make(chan Job, cfg.QueueSize),
		timeout:  cfg.Timeout,
		metrics:  cfg.Metrics,
		onResult: cfg.OnResult,
	}
}

// Enqueue hands text to the worker without blocking.
func (w *Worker) Enqueue(text string) (Job, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Job{}, ErrEmptyText
	}

	job := Job{ID: uuid.New().String(), Text: text, QueuedAt: time.Now()}

	select {
	case w.queue <- job:
		return job, nil
	default:
		slog.Warn("speech queue full, dropping sentence", "text", text)
		if w.metrics != nil {
			w.metrics.RecordSpeech(context.Background(), 0, "queue_full")
		}
		return Job{}, ErrQueueFull
	}
}

// Pending returns the number of queued jobs.
func (w *Worker) Pending() int {
	return len(w.queue)
}

// LastError returns the most recent speech failure, or "" after a success.
func (w *Worker) LastError() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// Run processes jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case job := <-w.queue:
			w.process(ctx, job)
		}
	}
}

func (w *Worker) process(ctx context.Context, job Job) {
	jobCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	err := w.synth.Speak(jobCtx, job.Text)
	duration := time.Since(start)

	reason := ""
	if err != nil {
		reason = "error"
		// Synthesizers that kill a process report the signal, not the
		// deadline, so the job context decides.
		if errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
			reason = "timeout"
			if !errors.Is(err, context.DeadlineExceeded) {
				err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
			}
			err = fmt.Errorf("speech timed out after %s: %w", w.timeout, err)
		}
		slog.Error("speech failed", "id", job.ID, "err", err)
	} else {
		slog.Debug("sentence spoken", "id", job.ID, "duration", duration)
	}

	w.mu.Lock()
	if err != nil {
		w.lastErr = err.Error()
	} else {
		w.lastErr = ""
	}
	w.mu.Unlock()

	if w.metrics != nil {
		w.metrics.RecordSpeech(ctx, duration, reason)
	}
	if w.onResult != nil {
		w.onResult(Result{Job: job, Err: err, Duration: duration})
	}
}
