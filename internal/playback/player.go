package playback

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/audiolibrelab/clipstitch/internal/timeline"
)

// Player renders media for the controller. PlayClip plays one segment file;
// PlayComposition plays a merged timeline as a single continuous unit. done
// fires exactly once when playback ends on its own; the returned cancel stops
// playback and suppresses done.
type Player interface {
	PlayClip(path string, duration time.Duration, done func()) (cancel func(), err error)
	PlayComposition(comp *timeline.Composition, done func()) (cancel func(), err error)
}

// ExecPlayer plays through an external video player binary, preferring ffplay
// since it also drives composed playback via the concat demuxer.
type ExecPlayer struct{}

// NewExecPlayer returns the external-binary player.
func NewExecPlayer() *ExecPlayer {
	return &ExecPlayer{}
}

// PlayClip starts the player process on one clip.
func (p *ExecPlayer) PlayClip(path string, _ time.Duration, done func()) (func(), error) {
	player, err := findVideoPlayer()
	if err != nil {
		return nil, err
	}

	var cmd *exec.Cmd
	switch player {
	case "ffplay":
		cmd = exec.Command("ffplay", "-autoexit", "-loglevel", "quiet", path)
	case "mpv":
		cmd = exec.Command("mpv", path)
	case "vlc":
		cmd = exec.Command("vlc", "--play-and-exit", path)
	default:
		return nil, fmt.Errorf("unsupported player: %s", player)
	}

	return runPlayer(cmd, done)
}

// PlayComposition writes the composition's concat playlist to a temp file and
// plays it with a single ffplay invocation, so former segment boundaries have
// no player switch.
func (p *ExecPlayer) PlayComposition(comp *timeline.Composition, done func()) (func(), error) {
	if _, err := exec.LookPath("ffplay"); err != nil {
		return nil, fmt.Errorf("composed playback requires ffplay: %w", err)
	}

	f, err := os.CreateTemp("", "clipstitch-*.ffconcat")
	if err != nil {
		return nil, fmt.Errorf("failed to create playlist file: %w", err)
	}
	if err := comp.WritePlaylist(f); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("failed to write playlist file: %w", err)
	}

	playlist := f.Name()
	cmd := exec.Command("ffplay", "-autoexit", "-loglevel", "quiet",
		"-f", "concat", "-safe", "0", playlist)

	cancel, err := runPlayer(cmd, func() {
		os.Remove(playlist)
		done()
	})
	if err != nil {
		os.Remove(playlist)
		return nil, err
	}
	return func() {
		cancel()
		os.Remove(playlist)
	}, nil
}

// runPlayer starts cmd and waits for it in the background. cancel kills the
// process and suppresses done.
func runPlayer(cmd *exec.Cmd, done func()) (func(), error) {
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start player: %w", err)
	}

	var once sync.Once
	cancelled := false
	var mu sync.Mutex

	go func() {
		cmd.Wait()
		mu.Lock()
		wasCancelled := cancelled
		mu.Unlock()
		if !wasCancelled {
			once.Do(done)
		}
	}()

	cancel := func() {
		mu.Lock()
		cancelled = true
		mu.Unlock()
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
	}
	return cancel, nil
}

// SelectPlayer picks a playback engine. "auto" prefers an external player
// binary and falls back to the timer engine when none is installed, so the
// full sequence of state transitions still happens without a decoder.
func SelectPlayer(engine string, timerScale float64) Player {
	switch engine {
	case "timer":
		return NewTimerPlayer(timerScale)
	case "exec":
		return NewExecPlayer()
	default:
		if _, err := findVideoPlayer(); err != nil {
			slog.Info("No video player installed, using timer playback engine")
			return NewTimerPlayer(timerScale)
		}
		return NewExecPlayer()
	}
}

// findVideoPlayer locates an available player binary, in order of preference.
func findVideoPlayer() (string, error) {
	players := []string{"ffplay", "mpv", "vlc"}
	for _, player := range players {
		if _, err := exec.LookPath(player); err == nil {
			return player, nil
		}
	}
	return "", fmt.Errorf("no video player found (tried: %s)", strings.Join(players, ", "))
}

// TimerPlayer is the no-decoder playback path: it publishes the same sequence
// of playback transitions on a schedule proportional to the media duration,
// without rendering anything. Scale compresses the schedule; tests run with a
// small scale so a multi-second clip "plays" in milliseconds.
type TimerPlayer struct {
	// Scale multiplies every duration; zero means real time.
	Scale float64

	// MinTick floors the scheduled duration so zero-length media still
	// produces an asynchronous end event.
	MinTick time.Duration
}

// NewTimerPlayer returns a timer player running at the given scale.
func NewTimerPlayer(scale float64) *TimerPlayer {
	return &TimerPlayer{Scale: scale, MinTick: time.Millisecond}
}

// PlayClip schedules done after the scaled clip duration.
func (p *TimerPlayer) PlayClip(path string, duration time.Duration, done func()) (func(), error) {
	slog.Debug("Timer playback started", "clip", filepath.Base(path), "duration", duration)
	return p.schedule(duration, done), nil
}

// PlayComposition schedules done after the scaled total duration.
func (p *TimerPlayer) PlayComposition(comp *timeline.Composition, done func()) (func(), error) {
	slog.Debug("Timer playback started", "composition_duration", comp.Duration, "sources", len(comp.Sources))
	return p.schedule(comp.Duration, done), nil
}

func (p *TimerPlayer) schedule(d time.Duration, done func()) func() {
	scale := p.Scale
	if scale <= 0 {
		scale = 1
	}
	scaled := time.Duration(float64(d) * scale)
	if scaled < p.MinTick {
		scaled = p.MinTick
	}

	timer := time.AfterFunc(scaled, done)
	return func() { timer.Stop() }
}
