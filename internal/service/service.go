// Package service wires capture, recording, composition and playback behind
// one facade consumed by the CLI and the HTTP server.
package service

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/audiolibrelab/clipstitch/internal/capture"
	"github.com/audiolibrelab/clipstitch/internal/config"
	"github.com/audiolibrelab/clipstitch/internal/media"
	"github.com/audiolibrelab/clipstitch/internal/playback"
	"github.com/audiolibrelab/clipstitch/internal/project"
	"github.com/audiolibrelab/clipstitch/internal/record"
	"github.com/audiolibrelab/clipstitch/internal/timeline"
)

// Status is the aggregate observable state published to consumers.
type Status struct {
	IsRecording  bool          `json:"is_recording"`
	IsPlaying    bool          `json:"is_playing"`
	PlaybackMode playback.Mode `json:"playback_mode"`
	SegmentIndex int           `json:"segment_index"`
	LastError    string        `json:"last_error,omitempty"`
}

// RecordingResult is delivered once per successful StartRecording call.
type RecordingResult struct {
	Segment project.Segment
	Err     error
}

// Service is the application facade.
type Service struct {
	cfg      *config.Config
	session  *capture.Session
	recorder *record.Recorder
	player   playback.Player
	playCtrl *playback.Controller
	resolver media.Resolver
	store    *project.Store

	mu        sync.Mutex
	recording bool
	pending   chan RecordingResult

	lastErrMu sync.RWMutex
	lastError string

	observerMu sync.Mutex
	observers  []func(Status)
}

// New assembles the service from configuration. The hardware backend and
// playback engine are selected here, once, so everything above them is
// oblivious to whether real devices exist.
func New(cfg *config.Config) *Service {
	var hw capture.Hardware
	if cfg.Capture.Simulated {
		hw = capture.NewSimulatedHardware(cfg.SimulatedClipDuration())
	} else {
		hw = capture.NewFFmpegHardware()
	}

	var resolver media.Resolver
	if cfg.Capture.Simulated {
		resolver = media.NewFileResolver(&media.StaticProber{
			Fallback: media.SimulatedAsset("", cfg.SimulatedClipDuration()),
		})
	} else {
		resolver = media.NewFileResolver(nil)
	}

	player := playback.SelectPlayer(cfg.Playback.Engine, cfg.Playback.TimerScale)

	s := &Service{
		cfg:      cfg,
		session:  capture.NewSession(hw),
		player:   player,
		resolver: resolver,
		store:    project.NewStore(cfg.Output.Directory, cfg.Output.Project),
	}

	s.playCtrl = playback.New(player, resolver)
	s.playCtrl.Subscribe(func(playback.State) {
		s.notify()
	})

	s.recorder = record.New(hw, record.Config{
		OutputDir:         cfg.Output.Directory,
		MaxDuration:       cfg.MaxDuration(),
		SimulatedDuration: cfg.SimulatedClipDuration(),
		OnComplete:        s.onRecordingComplete,
		OnError:           s.onRecordingError,
	})

	return s
}

// Session exposes the capture session controller.
func (s *Service) Session() *capture.Session {
	return s.session
}

// Playback exposes the playback controller.
func (s *Service) Playback() *playback.Controller {
	return s.playCtrl
}

// Subscribe registers a status observer, notified synchronously at each
// transition.
func (s *Service) Subscribe(fn func(Status)) {
	s.observerMu.Lock()
	defer s.observerMu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Service) notify() {
	status := s.Status()
	s.observerMu.Lock()
	defer s.observerMu.Unlock()
	for _, fn := range s.observers {
		fn(status)
	}
}

// Status returns the current aggregate snapshot.
func (s *Service) Status() Status {
	ps := s.playCtrl.State()
	s.mu.Lock()
	recording := s.recording
	s.mu.Unlock()
	return Status{
		IsRecording:  recording,
		IsPlaying:    ps.IsPlaying,
		PlaybackMode: ps.Mode,
		SegmentIndex: ps.Index,
		LastError:    s.LastError(),
	}
}

// StartRecording configures and starts the capture session if needed, then
// begins recording. The returned channel delivers exactly one result when the
// recording finalizes. A start while already recording is rejected.
func (s *Service) StartRecording() (<-chan RecordingResult, error) {
	s.mu.Lock()
	if s.recording {
		s.mu.Unlock()
		return nil, fmt.Errorf("recording already in progress")
	}
	s.recording = true
	s.pending = make(chan RecordingResult, 1)
	pending := s.pending
	s.mu.Unlock()

	s.clearLastError()
	s.ensureSessionRunning()

	if err := s.recorder.Start(); err != nil {
		s.mu.Lock()
		s.recording = false
		s.pending = nil
		s.mu.Unlock()
		s.setLastError(fmt.Sprintf("Failed to start recording: %v", err))
		return nil, err
	}

	s.notify()
	return pending, nil
}

// ensureSessionRunning drives the session to Running, configuring devices on
// first use.
func (s *Service) ensureSessionRunning() {
	if s.session.State() == capture.StateRunning {
		return
	}

	opts := capture.Options{
		Video: capture.Device{
			ID:     s.cfg.Capture.VideoDevice,
			Kind:   capture.DeviceVideo,
			Facing: project.Facing(s.cfg.Capture.Facing),
		},
		Audio:  capture.Device{ID: s.cfg.Capture.AudioDevice, Kind: capture.DeviceAudio},
		Preset: capture.Preset(s.cfg.Capture.Preset),
	}

	// Pick the first enumerated camera when none is configured.
	if opts.Video.ID == "" {
		if devices, err := s.session.Hardware().Devices(capture.DeviceVideo); err == nil && len(devices) > 0 {
			opts.Video = devices[0]
		}
	}

	s.session.Configure(opts)
	s.session.SafeStop() // settle an in-flight configure before starting
	s.session.Start()
	s.session.Flush() // the recorder checks live connections next
}

// StopRecording signals the active recording to finalize. The result arrives
// on the channel returned by StartRecording.
func (s *Service) StopRecording() {
	s.recorder.Stop()
}

func (s *Service) onRecordingComplete(path string) {
	duration := s.cfg.SimulatedClipDuration()
	if asset, err := s.resolver.Resolve(path); err == nil {
		duration = asset.Duration
	} else {
		slog.Warn("Recorded clip could not be probed, using nominal duration", "path", path, "error", err)
	}

	segments, err := s.store.Segments()
	ordinal := len(segments)
	if err != nil {
		slog.Warn("Failed to read project for ordinal", "error", err)
	}

	seg := project.NewSegment(path, project.Facing(s.cfg.Capture.Facing), ordinal, duration)
	if err := s.store.Append(seg); err != nil {
		s.deliverResult(RecordingResult{Err: fmt.Errorf("failed to persist segment: %w", err)})
		return
	}

	slog.Info("Segment recorded", "id", seg.ID, "path", path, "duration", duration)
	s.deliverResult(RecordingResult{Segment: seg})
}

func (s *Service) onRecordingError(err error) {
	s.setLastError(fmt.Sprintf("Recording failed: %v", err))
	s.deliverResult(RecordingResult{Err: err})
}

func (s *Service) deliverResult(res RecordingResult) {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.recording = false
	s.mu.Unlock()

	if pending != nil {
		pending <- res
	}
	s.notify()
}

// Play starts playback of the current project in the given mode.
func (s *Service) Play(mode playback.Mode) error {
	segments, err := s.store.Segments()
	if err != nil {
		s.setLastError(fmt.Sprintf("Failed to load project: %v", err))
		return err
	}

	switch mode {
	case playback.ModeComposed:
		err = s.playCtrl.StartComposed(segments)
	case playback.ModeNaive:
		err = s.playCtrl.StartNaive(segments)
	default:
		err = fmt.Errorf("unknown playback mode: %s", mode)
	}

	if err != nil {
		s.setLastError(fmt.Sprintf("Playback failed: %v", err))
		return err
	}
	s.clearLastError()
	return nil
}

// StopPlayback stops whatever is playing. Safe to call when idle.
func (s *Service) StopPlayback() {
	s.playCtrl.Stop()
}

// Segments returns the project's ordered segment snapshot.
func (s *Service) Segments() ([]project.Segment, error) {
	return s.store.Segments()
}

// RemoveSegment deletes a segment and its backing file.
func (s *Service) RemoveSegment(id string) error {
	return s.store.Remove(id)
}

// Compose builds the merged timeline without playing it. Used by the compose
// preview and the server.
func (s *Service) Compose() (*timeline.Composition, error) {
	segments, err := s.store.Segments()
	if err != nil {
		return nil, err
	}
	return timeline.Compose(segments, s.resolver)
}

// Devices enumerates capture inputs of the given kind.
func (s *Service) Devices(kind capture.DeviceKind) ([]capture.Device, error) {
	return s.session.Hardware().Devices(kind)
}

// Shutdown tears everything down: playback, recording, capture session.
func (s *Service) Shutdown() {
	s.playCtrl.Stop()
	s.recorder.Stop()
	s.session.SafeStop()
	s.session.Close()
}

// LastError returns the most recent operation error message.
func (s *Service) LastError() string {
	s.lastErrMu.RLock()
	defer s.lastErrMu.RUnlock()
	return s.lastError
}

func (s *Service) setLastError(msg string) {
	s.lastErrMu.Lock()
	s.lastError = msg
	s.lastErrMu.Unlock()
	slog.Error("Service error occurred", "error_message", msg)
}

func (s *Service) clearLastError() {
	s.lastErrMu.Lock()
	defer s.lastErrMu.Unlock()
	s.lastError = ""
}
