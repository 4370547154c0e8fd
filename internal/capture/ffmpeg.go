package capture

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/audiolibrelab/clipstitch/internal/project"
)

// FFmpegHardware captures from V4L2/ALSA devices by spawning ffmpeg per
// recording.
type FFmpegHardware struct {
	mu      sync.Mutex
	opts    Options
	applied bool
	running bool

	cmd       *exec.Cmd
	stderrBuf strings.Builder
}

// NewFFmpegHardware returns the real capture backend.
func NewFFmpegHardware() *FFmpegHardware {
	return &FFmpegHardware{}
}

// Devices enumerates V4L2 video devices; audio enumeration returns the ALSA
// default, which is what the capture pipeline records from.
func (h *FFmpegHardware) Devices(kind DeviceKind) ([]Device, error) {
	switch kind {
	case DeviceVideo:
		matches, err := filepath.Glob("/dev/video*")
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate video devices: %w", err)
		}
		sort.Strings(matches)

		devices := make([]Device, 0, len(matches))
		for i, path := range matches {
			facing := project.FacingBack
			if i > 0 {
				facing = project.FacingFront
			}
			devices = append(devices, Device{
				ID:     path,
				Name:   filepath.Base(path),
				Kind:   DeviceVideo,
				Facing: facing,
			})
		}
		return devices, nil

	case DeviceAudio:
		return []Device{{ID: "default", Name: "ALSA default", Kind: DeviceAudio}}, nil

	default:
		return nil, fmt.Errorf("unknown device kind: %s", kind)
	}
}

// Apply installs the device selection. The selection is validated here so
// Configure surfaces ErrDeviceConfiguration instead of failing later at
// StartWriting.
func (h *FFmpegHardware) Apply(opts Options) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if opts.Video.ID == "" {
		return fmt.Errorf("%w: no video input selected", ErrDeviceConfiguration)
	}
	if _, err := os.Stat(opts.Video.ID); err != nil {
		return fmt.Errorf("%w: video input %s unavailable", ErrDeviceConfiguration, opts.Video.ID)
	}

	h.opts = opts
	h.applied = true
	slog.Info("Capture devices configured", "video", opts.Video.ID, "audio", opts.Audio.ID, "preset", opts.Preset)
	return nil
}

func (h *FFmpegHardware) Run() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.running = true
	return nil
}

func (h *FFmpegHardware) Halt() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.running = false
	return nil
}

// ActiveConnections reports one connection per configured input whose device
// node is still present.
func (h *FFmpegHardware) ActiveConnections() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.applied || !h.running {
		return 0
	}

	n := 0
	if _, err := os.Stat(h.opts.Video.ID); err == nil {
		n++
	}
	if h.opts.Audio.ID != "" {
		n++
	}
	return n
}

// StartWriting spawns ffmpeg writing to dest and watches it from a background
// goroutine. done fires exactly once when the process exits.
func (h *FFmpegHardware) StartWriting(dest string, done func(path string, err error)) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cmd != nil {
		return fmt.Errorf("writer already active")
	}

	args := h.buildArgs(dest)
	slog.Info("Starting capture FFmpeg", "command", "ffmpeg "+strings.Join(args, " "))

	cmd := exec.Command("ffmpeg", args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start FFmpeg: %w", err)
	}

	h.cmd = cmd
	h.stderrBuf.Reset()
	go h.readOutput(stderr)

	go func() {
		waitErr := normalizeExit(cmd.Wait(), &h.stderrBuf)
		h.mu.Lock()
		h.cmd = nil
		h.mu.Unlock()
		if waitErr == nil {
			// The clip is probed right after completion.
			waitErr = waitForFile(dest, 2*time.Second)
		}
		done(dest, waitErr)
	}()

	return nil
}

// StopWriting interrupts ffmpeg so it finalizes the container. The Wait
// goroutine from StartWriting delivers the completion.
func (h *FFmpegHardware) StopWriting() {
	h.mu.Lock()
	cmd := h.cmd
	h.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return
	}

	slog.Debug("Sending SIGINT to FFmpeg process")
	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		slog.Debug("Failed to send interrupt to FFmpeg, killing", "error", err)
		cmd.Process.Kill()
	}
}

func (h *FFmpegHardware) buildArgs(dest string) []string {
	args := []string{
		"-f", "v4l2",
		"-i", h.opts.Video.ID,
	}
	if h.opts.Audio.ID != "" {
		args = append(args, "-f", "alsa", "-i", h.opts.Audio.ID)
	}

	switch h.opts.Preset {
	case PresetLow:
		args = append(args, "-video_size", "640x480", "-b:v", "1M")
	case PresetHigh:
		args = append(args, "-video_size", "1920x1080", "-b:v", "8M")
	default:
		args = append(args, "-video_size", "1280x720", "-b:v", "4M")
	}

	args = append(args,
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-y",
		dest,
	)
	return args
}

func (h *FFmpegHardware) readOutput(pipe io.ReadCloser) {
	scanner := bufio.NewScanner(pipe)
	for scanner.Scan() {
		line := scanner.Text()
		h.stderrBuf.WriteString(line + "\n")
		slog.Debug("FFmpeg output", "line", line)
	}
	pipe.Close()
}

// normalizeExit maps signal-driven ffmpeg exits to success. ffmpeg exits 255
// after a graceful SIGINT, which is the normal end of a recording.
func normalizeExit(err error, stderr *strings.Builder) error {
	if err == nil {
		return nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		if exitErr.ExitCode() == 255 {
			slog.Debug("FFmpeg exited normally after interrupt signal")
			return nil
		}
		if exitErr.ProcessState != nil {
			stateStr := exitErr.ProcessState.String()
			if stateStr == "signal: interrupt" || stateStr == "signal: killed" {
				slog.Debug("FFmpeg exited normally due to signal", "state", stateStr)
				return nil
			}
		}
	}
	slog.Debug("FFmpeg stderr", "output", stderr.String())
	return fmt.Errorf("FFmpeg process failed: %w", err)
}

// waitForFile polls until path exists or the timeout elapses. Used by callers
// that need the finalized container before probing it.
func waitForFile(path string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("timeout waiting for file: %s", path)
}
