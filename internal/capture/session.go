package capture

import (
	"log/slog"
	"sync"
)

// State is the session controller's externally observable state.
type State string

const (
	StateIdle        State = "IDLE"
	StateConfiguring State = "CONFIGURING"
	StateRunning     State = "RUNNING"
)

// Session owns the capture hardware. All hardware mutations are executed by a
// single dedicated worker goroutine, strictly one at a time in submission
// order, so device state is never touched concurrently. State flags are
// updated synchronously at call time under the mutex; callers must not assume
// the hardware work itself has completed when a call returns.
type Session struct {
	hw Hardware

	mu        sync.Mutex
	cond      *sync.Cond
	state     State
	configErr error

	ops  chan func()
	done chan struct{}
}

// NewSession starts the session worker over the given hardware backend.
func NewSession(hw Hardware) *Session {
	s := &Session{
		hw:    hw,
		state: StateIdle,
		ops:   make(chan func(), 16),
		done:  make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	go s.worker()
	return s
}

func (s *Session) worker() {
	defer close(s.done)
	for op := range s.ops {
		op()
	}
}

// Close stops the worker after draining queued operations. The session must
// not be used afterwards.
func (s *Session) Close() {
	close(s.ops)
	<-s.done
}

// Flush blocks until every previously submitted hardware operation has
// executed. Used by callers that need the device state settled before acting
// on it.
func (s *Session) Flush() {
	done := make(chan struct{})
	s.ops <- func() { close(done) }
	<-done
}

// State returns the current controller state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Hardware exposes the injected backend for collaborators that write through
// it (the recorder).
func (s *Session) Hardware() Hardware {
	return s.hw
}

// Configure applies a device selection and quality preset. The session is
// Configuring until the hardware work completes; Start and Stop observed in
// that window are dropped, not queued. Only an Idle session can be
// reconfigured.
func (s *Session) Configure(opts Options) {
	s.mu.Lock()
	if s.state != StateIdle {
		slog.Warn("Configure ignored, session busy", "state", s.state)
		s.mu.Unlock()
		return
	}
	s.state = StateConfiguring
	s.mu.Unlock()

	s.ops <- func() {
		err := s.hw.Apply(opts)
		if err != nil {
			slog.Error("Device configuration failed", "error", err)
		}

		s.mu.Lock()
		s.configErr = err
		s.state = StateIdle
		s.cond.Broadcast()
		s.mu.Unlock()
	}
}

// Start transitions Idle to Running. A no-op while Configuring (logged, never
// queued) and while already Running.
func (s *Session) Start() {
	s.mu.Lock()
	switch {
	case s.state == StateConfiguring:
		slog.Warn("Start ignored, session is configuring")
		s.mu.Unlock()
		return
	case s.state == StateRunning:
		s.mu.Unlock()
		return
	case s.configErr != nil:
		slog.Warn("Start ignored, last configuration failed", "error", s.configErr)
		s.mu.Unlock()
		return
	}
	s.state = StateRunning
	s.mu.Unlock()

	s.ops <- func() {
		if err := s.hw.Run(); err != nil {
			slog.Error("Failed to start capture session", "error", err)
			s.mu.Lock()
			s.state = StateIdle
			s.mu.Unlock()
		}
	}
}

// Stop transitions Running to Idle. A no-op while Configuring (logged, never
// queued) and while already stopped.
func (s *Session) Stop() {
	s.mu.Lock()
	switch s.state {
	case StateConfiguring:
		slog.Warn("Stop ignored, session is configuring")
		s.mu.Unlock()
		return
	case StateIdle:
		s.mu.Unlock()
		return
	}
	s.state = StateIdle
	s.mu.Unlock()

	s.ops <- func() {
		if err := s.hw.Halt(); err != nil {
			slog.Error("Failed to halt capture session", "error", err)
		}
	}
}

// SafeStop blocks until the session leaves Configuring, then stops it. Used
// when tearing down under navigation where a race with an in-flight Configure
// is possible; the wait is bounded by the configuration work itself.
func (s *Session) SafeStop() {
	s.mu.Lock()
	for s.state == StateConfiguring {
		s.cond.Wait()
	}
	s.mu.Unlock()

	s.Stop()
}
