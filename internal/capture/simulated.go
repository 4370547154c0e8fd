package capture

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/audiolibrelab/clipstitch/internal/project"
)

// SimulatedHardware is the deterministic no-hardware backend. Configure, Run
// and Halt are pure state transitions; writing produces a placeholder clip
// file after ClipDuration so every recording still completes. The state
// machines above it behave identically to the real path.
type SimulatedHardware struct {
	// ClipDuration is how long a simulated recording runs before it
	// finalizes on its own.
	ClipDuration time.Duration

	// Connections is what ActiveConnections reports once configured and
	// running. Zero models fully degraded hardware.
	Connections int

	// WriteErr, when set, makes every write finalize with this error.
	WriteErr error

	mu      sync.Mutex
	opts    Options
	applied bool
	running bool
	timer   *time.Timer
	dest    string
	done    func(path string, err error)
}

// NewSimulatedHardware returns a simulated backend that reports one active
// connection and finalizes clips after d.
func NewSimulatedHardware(d time.Duration) *SimulatedHardware {
	return &SimulatedHardware{ClipDuration: d, Connections: 1}
}

// Devices reports one fixed pair of fake inputs.
func (h *SimulatedHardware) Devices(kind DeviceKind) ([]Device, error) {
	switch kind {
	case DeviceVideo:
		return []Device{
			{ID: "sim:video0", Name: "Simulated camera (back)", Kind: DeviceVideo, Facing: project.FacingBack},
			{ID: "sim:video1", Name: "Simulated camera (front)", Kind: DeviceVideo, Facing: project.FacingFront},
		}, nil
	case DeviceAudio:
		return []Device{{ID: "sim:audio0", Name: "Simulated microphone", Kind: DeviceAudio}}, nil
	default:
		return nil, fmt.Errorf("unknown device kind: %s", kind)
	}
}

func (h *SimulatedHardware) Apply(opts Options) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.opts = opts
	h.applied = true
	return nil
}

func (h *SimulatedHardware) Run() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.running = true
	return nil
}

func (h *SimulatedHardware) Halt() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.running = false
	return nil
}

func (h *SimulatedHardware) ActiveConnections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.applied || !h.running {
		return 0
	}
	return h.Connections
}

// StartWriting arms a timer that finalizes the clip after ClipDuration.
func (h *SimulatedHardware) StartWriting(dest string, done func(path string, err error)) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.timer != nil {
		return fmt.Errorf("writer already active")
	}

	h.dest = dest
	h.done = done
	h.timer = time.AfterFunc(h.ClipDuration, h.finalize)
	slog.Debug("Simulated write started", "dest", dest, "duration", h.ClipDuration)
	return nil
}

// StopWriting finalizes immediately instead of waiting for the timer.
func (h *SimulatedHardware) StopWriting() {
	h.mu.Lock()
	if h.timer == nil {
		h.mu.Unlock()
		return
	}
	h.timer.Stop()
	h.mu.Unlock()

	h.finalize()
}

func (h *SimulatedHardware) finalize() {
	h.mu.Lock()
	dest, done := h.dest, h.done
	h.timer = nil
	h.dest = ""
	h.done = nil
	h.mu.Unlock()

	if done == nil {
		return
	}

	if h.WriteErr != nil {
		done(dest, h.WriteErr)
		return
	}

	if err := WritePlaceholderClip(dest); err != nil {
		done(dest, err)
		return
	}
	slog.Debug("Simulated write finalized", "dest", dest)
	done(dest, nil)
}

// WritePlaceholderClip drops a marker file standing in for a recorded clip.
// The recorder uses it for the degraded-hardware fallback as well.
func WritePlaceholderClip(dest string) error {
	if err := os.WriteFile(dest, []byte("clipstitch simulated clip\n"), 0644); err != nil {
		return fmt.Errorf("failed to write placeholder clip: %w", err)
	}
	return nil
}
