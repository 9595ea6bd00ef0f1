// Package speech speaks finished sentences aloud without blocking the frame
// loop.
package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Synthesizer turns text into audible speech.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
}

// TextPlaceholder in a command argument is replaced by the text to speak.
// When no argument contains it, the text is written to stdin.
const TextPlaceholder = "{text}"

// CommandSynthesizer runs an external TTS program (espeak-ng, say, piper...)
// once per sentence. The context deadline kills the process.
type CommandSynthesizer struct {
	Command string
	Args    []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
}

// NewCommandSynthesizer creates a synthesizer for the given command line.
func NewCommandSynthesizer(command string, args ...string) *CommandSynthesizer {
	return &CommandSynthesizer{Command: command, Args: args}
}

// Speak runs the command and waits for it to exit.
func (s *CommandSynthesizer) Speak(ctx context.Context, text string) error {
	if s.Command == "" {
		return errors.New("no speech command configured")
	}

	args := make([]string, len(s.Args))
	viaArgs := false
	for i, a := range s.Args {
		if strings.Contains(a, TextPlaceholder) {
			viaArgs = true
			a = strings.ReplaceAll(a, TextPlaceholder, text)
		}
		args[i] = a
	}

	cmd := exec.CommandContext(ctx, s.Command, args...)
	cmd.Dir = s.Dir
	// Children of a killed shell can hold stderr open; don't wait on them.
	cmd.WaitDelay = time.Second
	if !viaArgs {
		cmd.Stdin = strings.NewReader(text)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("speech command timed out: %w", ctx.Err())
	}
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("speech command failed: %w, stderr: %s", err, msg)
		}
		return fmt.Errorf("speech command failed: %w", err)
	}
	return nil
}

// RecordingSynthesizer records every sentence instead of speaking it.
// Used in tests and when speech is disabled.
type RecordingSynthesizer struct {
	// Err is returned from every Speak call.
	Err error
	// Delay blocks each call, honoring ctx.
	Delay time.Duration

	mu     sync.Mutex
	spoken []string
	notify chan string
}

// NewRecordingSynthesizer creates a recorder that also sends each spoken
// sentence on Notify. buffer sizes that channel.
func NewRecordingSynthesizer(buffer int) *RecordingSynthesizer {
	return &RecordingSynthesizer{notify: make(chan string, buffer)}
}

// Speak records text.
func (r *RecordingSynthesizer) Speak(ctx context.Context, text string) error {
	if r.Delay > 0 {
		select {
		case <-time.After(r.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.mu.Lock()
	r.spoken = append(r.spoken, text)
	r.mu.Unlock()

	if r.notify != nil {
		select {
		case r.notify <- text:
		default:
		}
	}
	return r.Err
}

// Spoken returns a copy of everything spoken so far.
func (r *RecordingSynthesizer) Spoken() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.spoken))
	copy(out, r.spoken)
	return out
}

// Notify receives each spoken sentence. It is nil for a zero-value recorder.
func (r *RecordingSynthesizer) Notify() <-chan string {
	return r.notify
}
