package speech

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"
)

// writeScript creates an executable shell script in a temp dir.
func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func TestCommandSynthesizer_Stdin(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	out := filepath.Join(t.TempDir(), "spoken.txt")
	script := writeScript(t, "tts.sh", `cat > "$1"`+"\n")

	synth := NewCommandSynthesizer(script, out)
	if err := synth.Speak(context.Background(), "OLA MUNDO"); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if string(data) != "OLA MUNDO" {
		t.Errorf("script received %q, want %q", data, "OLA MUNDO")
	}
}

func TestCommandSynthesizer_Placeholder(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	out := filepath.Join(t.TempDir(), "spoken.txt")
	script := writeScript(t, "say.sh", `printf '%s' "$1" > "$2"`+"\n")

	synth := NewCommandSynthesizer(script, "texto: "+TextPlaceholder, out)
	if err := synth.Speak(context.Background(), "OI"); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}

	data, _ := os.ReadFile(out)
	if string(data) != "texto: OI" {
		t.Errorf("script received %q, want %q", data, "texto: OI")
	}
}

func TestCommandSynthesizer_Failure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	script := writeScript(t, "fail.sh", "echo 'no audio device' >&2\nexit 3\n")

	err := NewCommandSynthesizer(script).Speak(context.Background(), "X")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "no audio device") {
		t.Errorf("error should include stderr, got %v", err)
	}

	if err := (&CommandSynthesizer{}).Speak(context.Background(), "X"); err == nil {
		t.Error("expected error for empty command")
	}
}

func TestCommandSynthesizer_Timeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	script := writeScript(t, "slow.sh", "exec sleep 10\n")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := NewCommandSynthesizer(script).Speak(ctx, "X")
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("process was not killed on timeout")
	}
}

func TestWorker_SpeaksInOrder(t *testing.T) {
	synth := NewRecordingSynthesizer(4)

	var mu sync.Mutex
	var results []Result
	done := make(chan struct{}, 4)

	w := NewWorker(synth, WorkerConfig{
		OnResult: func(r Result) {
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
			done <- struct{}{}
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	for _, text := range []string{"OLA", "  TUDO BEM  "} {
		if _, err := w.Enqueue(text); err != nil {
			t.Fatalf("Enqueue(%q) error = %v", text, err)
		}
	}

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for speech")
		}
	}

	spoken := synth.Spoken()
	if len(spoken) != 2 || spoken[0] != "OLA" || spoken[1] != "TUDO BEM" {
		t.Errorf("spoken = %q", spoken)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, r := range results {
		if r.Err != nil || r.ID == "" {
			t.Errorf("unexpected result %+v", r)
		}
	}
	if w.LastError() != "" {
		t.Errorf("LastError() = %q, want empty", w.LastError())
	}
}

func TestWorker_EmptyText(t *testing.T) {
	w := NewWorker(NewRecordingSynthesizer(1), WorkerConfig{})
	if _, err := w.Enqueue("   "); !errors.Is(err, ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
}

func TestWorker_QueueFull(t *testing.T) {
	// Not running, so nothing drains the queue
	w := NewWorker(NewRecordingSynthesizer(1), WorkerConfig{QueueSize: 2})

	for i := 0; i < 2; i++ {
		if _, err := w.Enqueue("A"); err != nil {
			t.Fatalf("Enqueue %d error = %v", i, err)
		}
	}
	if _, err := w.Enqueue("B"); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
	if w.Pending() != 2 {
		t.Errorf("Pending() = %d, want 2", w.Pending())
	}
}

func TestWorker_TimeoutRecordsError(t *testing.T) {
	synth := NewRecordingSynthesizer(1)
	synth.Delay = time.Second

	results := make(chan Result, 1)
	w := NewWorker(synth, WorkerConfig{
		Timeout:  50 * time.Millisecond,
		OnResult: func(r Result) { results <- r },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	if _, err := w.Enqueue("DEMORA"); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	select {
	case r := <-results:
		if !errors.Is(r.Err, context.DeadlineExceeded) {
			t.Errorf("expected deadline error, got %v", r.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for result")
	}

	if w.LastError() == "" {
		t.Error("LastError() should report the timeout")
	}
}

// killedSynthesizer waits for the deadline and then fails the way a killed
// process does, without mentioning the context.
type killedSynthesizer struct{}

func (killedSynthesizer) Speak(ctx context.Context, _ string) error {
	<-ctx.Done()
	return errors.New("signal: killed")
}

func TestWorker_TimeoutFromKilledProcess(t *testing.T) {
	results := make(chan Result, 1)
	w := NewWorker(killedSynthesizer{}, WorkerConfig{
		Timeout:  50 * time.Millisecond,
		OnResult: func(r Result) { results <- r },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	if _, err := w.Enqueue("DEMORA"); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	select {
	case r := <-results:
		if !errors.Is(r.Err, context.DeadlineExceeded) {
			t.Errorf("expected deadline error, got %v", r.Err)
		}
		if !strings.Contains(r.Err.Error(), "signal: killed") {
			t.Errorf("error %q lost the synthesizer failure", r.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for result")
	}

	if got := w.LastError(); !strings.Contains(got, "timed out") {
		t.Errorf("LastError() = %q, want a timeout", got)
	}
}

func TestWorker_FailureDoesNotStopWorker(t *testing.T) {
	synth := NewRecordingSynthesizer(2)
	synth.Err = errors.New("device busy")

	results := make(chan Result, 2)
	w := NewWorker(synth, WorkerConfig{OnResult: func(r Result) { results <- r }})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	w.Enqueue("UM")
	w.Enqueue("DOIS")

	for i := 0; i < 2; i++ {
		select {
		case r := <-results:
			if r.Err == nil {
				t.Error("expected error result")
			}
		case <-time.After(2 * time.Second):
			t.Fatal("worker stopped after failure")
		}
	}
	if !strings.Contains(w.LastError(), "device busy") {
		t.Errorf("LastError() = %q", w.LastError())
	}
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	w := NewWorker(NewRecordingSynthesizer(1), WorkerConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
