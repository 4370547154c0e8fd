package record

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audiolibrelab/clipstitch/internal/capture"
)

type recorderHarness struct {
	completions chan string
	failures    chan error
}

func newHarness() *recorderHarness {
	return &recorderHarness{
		completions: make(chan string, 4),
		failures:    make(chan error, 4),
	}
}

func (h *recorderHarness) config(dir string) Config {
	return Config{
		OutputDir:         dir,
		MaxDuration:       time.Minute,
		SimulatedDuration: 20 * time.Millisecond,
		OnComplete:        func(path string) { h.completions <- path },
		OnError:           func(err error) { h.failures <- err },
	}
}

func TestRecorder_FallbackCompletesWithoutHardware(t *testing.T) {
	// Hardware never configured: zero active connections, simulated fallback.
	hw := capture.NewSimulatedHardware(time.Hour)
	h := newHarness()
	r := New(hw, h.config(t.TempDir()))

	require.NoError(t, r.Start())
	require.True(t, r.Active())

	select {
	case path := <-h.completions:
		// The placeholder artifact must exist.
		_, err := os.Stat(path)
		assert.NoError(t, err, "fallback clip should exist on disk")
	case err := <-h.failures:
		t.Fatalf("Expected completion, got error: %v", err)
	case <-time.After(time.Second):
		t.Fatal("Completion callback never fired")
	}

	assert.False(t, r.Active())
	select {
	case <-h.completions:
		t.Fatal("Completion fired more than once")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRecorder_SecondStartRejected(t *testing.T) {
	hw := capture.NewSimulatedHardware(time.Hour)
	h := newHarness()
	cfg := h.config(t.TempDir())
	cfg.SimulatedDuration = time.Hour // keep the first recording in flight
	r := New(hw, cfg)

	require.NoError(t, r.Start())
	first := r.Output()
	require.NotEmpty(t, first)

	require.NoError(t, r.Start())
	assert.Equal(t, first, r.Output(), "second start must leave the output reference unchanged")
	assert.True(t, r.Active())

	r.Stop()
	select {
	case <-h.completions:
	case <-time.After(time.Second):
		t.Fatal("Completion callback never fired after stop")
	}
}

func TestRecorder_HardwarePathStopFinalizes(t *testing.T) {
	hw := capture.NewSimulatedHardware(time.Hour)
	require.NoError(t, hw.Apply(capture.Options{}))
	require.NoError(t, hw.Run())

	h := newHarness()
	r := New(hw, h.config(t.TempDir()))

	require.NoError(t, r.Start())
	require.True(t, r.Active())

	r.Stop()
	select {
	case path := <-h.completions:
		assert.NotEmpty(t, path)
	case <-time.After(time.Second):
		t.Fatal("Completion callback never fired")
	}
	assert.False(t, r.Active())
}

func TestRecorder_DeviceErrorSkipsSuccessCallback(t *testing.T) {
	hw := capture.NewSimulatedHardware(10 * time.Millisecond)
	hw.WriteErr = errors.New("sensor disconnected")
	require.NoError(t, hw.Apply(capture.Options{}))
	require.NoError(t, hw.Run())

	h := newHarness()
	r := New(hw, h.config(t.TempDir()))

	require.NoError(t, r.Start())

	select {
	case err := <-h.failures:
		assert.ErrorIs(t, err, ErrRecordingDevice)
	case <-h.completions:
		t.Fatal("Success callback fired for a failed recording")
	case <-time.After(time.Second):
		t.Fatal("Error callback never fired")
	}

	// The machine must not be stuck in Active after a failure.
	assert.False(t, r.Active())
}

func TestRecorder_SafetyTimeoutAutoStops(t *testing.T) {
	hw := capture.NewSimulatedHardware(time.Hour)
	require.NoError(t, hw.Apply(capture.Options{}))
	require.NoError(t, hw.Run())

	h := newHarness()
	cfg := h.config(t.TempDir())
	cfg.MaxDuration = 30 * time.Millisecond
	r := New(hw, cfg)

	require.NoError(t, r.Start())

	select {
	case <-h.completions:
	case <-time.After(time.Second):
		t.Fatal("Safety timeout did not finalize the recording")
	}
	assert.False(t, r.Active())
}

func TestRecorder_OutputNamesAreUnique(t *testing.T) {
	hw := capture.NewSimulatedHardware(time.Hour)
	h := newHarness()
	cfg := h.config(t.TempDir())
	cfg.SimulatedDuration = 5 * time.Millisecond
	r := New(hw, cfg)

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Start())
		select {
		case path := <-h.completions:
			assert.False(t, seen[path], "output name reused: %s", path)
			seen[path] = true
		case <-time.After(time.Second):
			t.Fatal("Completion callback never fired")
		}
	}
}
