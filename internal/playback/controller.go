// Package playback exposes the two playback strategies over a project's
// segment list: naive sequential (one player per segment, advancing at each
// boundary) and composed (one player over the merged timeline).
package playback

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/audiolibrelab/clipstitch/internal/media"
	"github.com/audiolibrelab/clipstitch/internal/project"
	"github.com/audiolibrelab/clipstitch/internal/timeline"
)

// Mode is the controller's playback strategy.
type Mode string

const (
	ModeIdle     Mode = "IDLE"
	ModeNaive    Mode = "NAIVE_SEQUENTIAL"
	ModeComposed Mode = "COMPOSED"
)

// State is the published observable snapshot. In composed mode Index is
// pinned at zero; no per-segment position is meaningful there.
type State struct {
	Mode      Mode
	IsPlaying bool
	Index     int
}

// Controller drives playback over a segment-list snapshot. Modes are mutually
// exclusive: entering any mode first tears the previous one down (player
// cancelled, timers disarmed, index cleared) before the new one starts. A
// generation counter suppresses end-of-clip callbacks that outlive the mode
// that armed them.
type Controller struct {
	player   Player
	resolver media.Resolver

	mu       sync.Mutex
	mode     Mode
	playing  bool
	index    int
	gen      uint64
	cancel   func()
	segments []project.Segment

	notifyMu  sync.Mutex
	observers []func(State)
}

// New builds a controller over the given player and asset resolver.
func New(player Player, resolver media.Resolver) *Controller {
	return &Controller{
		player:   player,
		resolver: resolver,
		mode:     ModeIdle,
	}
}

// Subscribe registers an observer. Observers are notified synchronously, one
// transition at a time, from the controller's notification context; they must
// not call back into the controller.
func (c *Controller) Subscribe(fn func(State)) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.observers = append(c.observers, fn)
}

// State returns the current published snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Mode: c.mode, IsPlaying: c.playing, Index: c.index}
}

// publish snapshots state and notifies observers. State is updated before any
// dependent timer can fire because publish runs before the mutex is handed
// back to player callbacks.
func (c *Controller) publish(s State) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	for _, fn := range c.observers {
		fn(s)
	}
}

// StartNaive plays the segments one player at a time, advancing at each clip
// end. The boundary switch is the visible seam this mode accepts. Rejected on
// an empty list.
func (c *Controller) StartNaive(segments []project.Segment) error {
	if len(segments) == 0 {
		return timeline.ErrEmptyInput
	}

	c.mu.Lock()
	c.teardownLocked()
	c.mode = ModeNaive
	c.segments = append([]project.Segment(nil), segments...)
	c.index = 0
	gen := c.gen
	err := c.playFromLocked(gen)
	state := State{Mode: c.mode, IsPlaying: c.playing, Index: c.index}
	c.mu.Unlock()

	c.publish(state)
	return err
}

// playFromLocked starts playback at c.index, skipping forward past segments
// whose backing file is gone. Reaching the end returns the controller to
// idle. Callers hold c.mu.
func (c *Controller) playFromLocked(gen uint64) error {
	for c.index < len(c.segments) {
		seg := c.segments[c.index]
		asset, err := c.resolver.Resolve(seg.Path)
		if err != nil {
			slog.Warn("Skipping unplayable segment", "segment", seg.ID, "index", c.index, "error", err)
			c.index++
			continue
		}

		cancel, err := c.player.PlayClip(asset.Path, asset.Duration, func() {
			c.onClipEnd(gen)
		})
		if err != nil {
			slog.Warn("Skipping segment, player failed", "segment", seg.ID, "index", c.index, "error", err)
			c.index++
			continue
		}

		c.cancel = cancel
		c.playing = true
		return nil
	}

	// Nothing playable (or ran off the end): back to idle.
	c.idleLocked()
	return fmt.Errorf("no playable segments")
}

// onClipEnd advances the naive walk when a clip finishes on its own.
func (c *Controller) onClipEnd(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.mode != ModeNaive {
		// The mode that armed this callback is gone.
		c.mu.Unlock()
		return
	}

	c.cancel = nil
	if c.index < len(c.segments)-1 {
		c.index++
		c.playFromLocked(gen)
	} else {
		c.idleLocked()
	}
	state := State{Mode: c.mode, IsPlaying: c.playing, Index: c.index}
	c.mu.Unlock()

	c.publish(state)
}

// JumpTo switches the current player to the segment at index. Out-of-range is
// a no-op, as is any call outside an active naive playback.
func (c *Controller) JumpTo(index int) {
	c.mu.Lock()
	if c.mode != ModeNaive || !c.playing || index < 0 || index >= len(c.segments) {
		c.mu.Unlock()
		return
	}

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	c.index = index
	c.playFromLocked(c.gen)
	state := State{Mode: c.mode, IsPlaying: c.playing, Index: c.index}
	c.mu.Unlock()

	c.publish(state)
}

// StartComposed merges the segments into one timeline and plays it
// continuously. Composition failure is reported to the caller and the
// controller stays idle.
func (c *Controller) StartComposed(segments []project.Segment) error {
	c.mu.Lock()
	c.teardownLocked()
	gen := c.gen
	state := State{Mode: c.mode, IsPlaying: c.playing, Index: c.index}
	c.mu.Unlock()
	c.publish(state)

	// Composition is synchronous and file-bound; it runs off the lock so a
	// long probe never blocks state readers.
	comp, err := timeline.Compose(segments, c.resolver)
	if err != nil {
		return fmt.Errorf("composition failed: %w", err)
	}

	c.mu.Lock()
	if gen != c.gen {
		// Another mode entry won the race while we were composing.
		c.mu.Unlock()
		return fmt.Errorf("playback restarted during composition")
	}
	cancel, err := c.player.PlayComposition(comp, func() {
		c.onCompositionEnd(gen)
	})
	if err != nil {
		c.idleLocked()
		state := State{Mode: c.mode, IsPlaying: c.playing, Index: c.index}
		c.mu.Unlock()
		c.publish(state)
		return fmt.Errorf("composed playback failed: %w", err)
	}

	c.mode = ModeComposed
	c.playing = true
	c.index = 0
	c.cancel = cancel
	state = State{Mode: c.mode, IsPlaying: c.playing, Index: c.index}
	c.mu.Unlock()

	slog.Info("Composed playback started", "segments", len(comp.Sources), "duration", comp.Duration)
	c.publish(state)
	return nil
}

// onCompositionEnd returns to idle when the merged timeline finishes.
func (c *Controller) onCompositionEnd(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.mode != ModeComposed {
		c.mu.Unlock()
		return
	}
	c.cancel = nil
	c.idleLocked()
	state := State{Mode: c.mode, IsPlaying: c.playing, Index: c.index}
	c.mu.Unlock()

	c.publish(state)
}

// Stop tears down whatever is playing. Idempotent; safe from idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	wasIdle := c.mode == ModeIdle && !c.playing
	c.teardownLocked()
	state := State{Mode: c.mode, IsPlaying: c.playing, Index: c.index}
	c.mu.Unlock()

	if !wasIdle {
		c.publish(state)
	}
}

// teardownLocked cancels the active player, bumps the generation so late
// callbacks are suppressed, and clears mode and index. Callers hold c.mu.
func (c *Controller) teardownLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	c.idleLocked()
	c.segments = nil
}

func (c *Controller) idleLocked() {
	c.mode = ModeIdle
	c.playing = false
	c.index = 0
}
