package capture

import (
	"errors"

	"github.com/audiolibrelab/clipstitch/internal/project"
)

// ErrDeviceConfiguration is returned when applying a device selection to the
// hardware fails. The session stays unusable until a later Configure succeeds;
// it is never retried automatically.
var ErrDeviceConfiguration = errors.New("device configuration failed")

// DeviceKind distinguishes capture inputs.
type DeviceKind string

const (
	DeviceVideo DeviceKind = "video"
	DeviceAudio DeviceKind = "audio"
)

// Device identifies one capture input.
type Device struct {
	ID     string
	Name   string
	Kind   DeviceKind
	Facing project.Facing
}

// Preset selects capture quality.
type Preset string

const (
	PresetLow    Preset = "low"
	PresetMedium Preset = "medium"
	PresetHigh   Preset = "high"
)

// Options carries the device selection and quality preset applied by
// Configure.
type Options struct {
	Video  Device
	Audio  Device
	Preset Preset
}

// Hardware is the injected capability boundary between the session/recording
// state machines and the actual capture stack. FFmpegHardware talks to real
// devices; SimulatedHardware is a deterministic fake with identical observable
// behavior, so the state machines above it cannot tell the difference.
type Hardware interface {
	// Devices enumerates available inputs of the given kind.
	Devices(kind DeviceKind) ([]Device, error)

	// Apply installs a device selection and quality preset.
	Apply(opts Options) error

	// Run and Halt start and stop the capture session.
	Run() error
	Halt() error

	// ActiveConnections reports how many configured inputs are currently
	// delivering data. Zero means the hardware path is degraded and the
	// recorder falls back to simulated output.
	ActiveConnections() int

	// StartWriting begins writing the session to dest. done fires exactly
	// once when the writer finalizes, from a goroutine owned by the
	// implementation; err is non-nil on a mid-recording device failure.
	StartWriting(dest string, done func(path string, err error)) error

	// StopWriting signals the writer to finalize. The done callback passed to
	// StartWriting fires asynchronously once finalization completes.
	StopWriting()
}
