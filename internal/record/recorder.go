// Package record drives the recording lifecycle: start, active, finalize,
// completion callback. It sits on top of the capture hardware abstraction and
// guarantees the caller always receives exactly one completion per successful
// start, with or without working hardware.
package record

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/audiolibrelab/clipstitch/internal/capture"
)

// ErrRecordingDevice marks a mid-recording hardware failure. The recorder
// returns to idle without firing the success callback.
var ErrRecordingDevice = errors.New("recording device error")

// DefaultMaxDuration bounds a recording when the caller forgets to stop.
const DefaultMaxDuration = 5 * time.Minute

// Recorder is the Idle/Active recording state machine. Completion and error
// callbacks fire from a single recorder-owned context; a generation counter
// suppresses finalize callbacks that outlive the session that armed them.
type Recorder struct {
	hw          capture.Hardware
	outputDir   string
	maxDuration time.Duration
	simDuration time.Duration

	onComplete func(path string)
	onError    func(err error)

	mu          sync.Mutex
	active      bool
	gen         uint64
	output      string
	safetyTimer *time.Timer
	simTimer    *time.Timer
	simulated   bool
}

// Config carries recorder construction parameters.
type Config struct {
	// OutputDir receives the recorded clips.
	OutputDir string

	// MaxDuration is the safety auto-stop bound; zero means
	// DefaultMaxDuration.
	MaxDuration time.Duration

	// SimulatedDuration is the nominal length of a fallback clip produced
	// when the hardware has no active connections.
	SimulatedDuration time.Duration

	// OnComplete fires exactly once per successful recording with the
	// produced output path.
	OnComplete func(path string)

	// OnError fires instead of OnComplete when the recording fails.
	OnError func(err error)
}

// New builds a recorder writing through the given hardware backend.
func New(hw capture.Hardware, cfg Config) *Recorder {
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = DefaultMaxDuration
	}
	if cfg.SimulatedDuration <= 0 {
		cfg.SimulatedDuration = 2 * time.Second
	}
	if cfg.OnComplete == nil {
		cfg.OnComplete = func(string) {}
	}
	if cfg.OnError == nil {
		cfg.OnError = func(error) {}
	}
	return &Recorder{
		hw:          hw,
		outputDir:   cfg.OutputDir,
		maxDuration: cfg.MaxDuration,
		simDuration: cfg.SimulatedDuration,
		onComplete:  cfg.OnComplete,
		onError:     cfg.OnError,
	}
}

// Active reports whether a recording is in flight.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Output returns the output path of the in-flight recording, empty when idle.
func (r *Recorder) Output() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.output
}

// Start begins a new recording. A second start while active is rejected with
// a logged no-op; state and output reference stay unchanged. When the
// hardware reports no active connections the recorder falls back to a
// simulated clip so the completion callback still fires.
func (r *Recorder) Start() error {
	r.mu.Lock()

	if r.active {
		slog.Warn("Start ignored, recording already active", "output", r.output)
		r.mu.Unlock()
		return nil
	}

	r.gen++
	gen := r.gen
	r.active = true
	r.output = r.freshOutputPath()
	r.simulated = r.hw.ActiveConnections() == 0

	out := r.output
	simulated := r.simulated

	// Safety bound: a recording that runs past maxDuration is auto-stopped.
	r.safetyTimer = time.AfterFunc(r.maxDuration, func() {
		slog.Warn("Recording hit safety duration, auto-stopping", "output", out)
		r.Stop()
	})

	if simulated {
		slog.Info("Hardware degraded, falling back to simulated recording", "output", out)
		r.simTimer = time.AfterFunc(r.simDuration, func() {
			r.finalizeSimulated(gen)
		})
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	slog.Info("Recording started", "output", out)
	if err := r.hw.StartWriting(out, func(path string, werr error) {
		r.onFinalized(gen, path, werr)
	}); err != nil {
		// Starting the writer failed synchronously; unwind to idle.
		r.mu.Lock()
		r.teardownLocked()
		r.mu.Unlock()
		return fmt.Errorf("failed to start writer: %w", err)
	}
	return nil
}

// Stop signals the writer to finalize. The idle transition and the completion
// callback happen asynchronously when finalization completes, not here. A
// no-op while idle.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return
	}
	simulated := r.simulated
	gen := r.gen
	simTimer := r.simTimer
	r.mu.Unlock()

	if simulated {
		if simTimer != nil {
			simTimer.Stop()
		}
		r.finalizeSimulated(gen)
		return
	}
	r.hw.StopWriting()
}

// finalizeSimulated produces the placeholder clip and completes. The
// generation guard makes concurrent timer-fire and explicit Stop collapse to
// one completion.
func (r *Recorder) finalizeSimulated(gen uint64) {
	r.mu.Lock()
	if !r.active || gen != r.gen {
		r.mu.Unlock()
		return
	}
	out := r.output
	r.teardownLocked()
	r.mu.Unlock()

	if err := capture.WritePlaceholderClip(out); err != nil {
		slog.Error("Simulated recording failed", "error", err)
		r.onError(fmt.Errorf("%w: %v", ErrRecordingDevice, err))
		return
	}
	slog.Info("Simulated recording completed", "output", out)
	r.onComplete(out)
}

// onFinalized handles the hardware writer's completion.
func (r *Recorder) onFinalized(gen uint64, path string, werr error) {
	r.mu.Lock()
	if gen != r.gen || !r.active {
		// Stale callback from a previous session; a newer start owns the
		// state now.
		slog.Debug("Suppressing stale finalize callback", "path", path)
		r.mu.Unlock()
		return
	}
	r.teardownLocked()
	r.mu.Unlock()

	if werr != nil {
		slog.Error("Recording failed", "output", path, "error", werr)
		r.onError(fmt.Errorf("%w: %v", ErrRecordingDevice, werr))
		return
	}

	slog.Info("Recording completed", "output", path)
	r.onComplete(path)
}

// teardownLocked returns the machine to idle and disarms all timers. Callers
// hold r.mu.
func (r *Recorder) teardownLocked() {
	r.active = false
	r.simulated = false
	r.output = ""
	if r.safetyTimer != nil {
		r.safetyTimer.Stop()
		r.safetyTimer = nil
	}
	if r.simTimer != nil {
		r.simTimer.Stop()
		r.simTimer = nil
	}
}

// freshOutputPath allocates a unique, timestamp-derived clip name.
func (r *Recorder) freshOutputPath() string {
	name := fmt.Sprintf("clip_%s.mp4", time.Now().Format("20060102_150405.000"))
	return filepath.Join(r.outputDir, name)
}
