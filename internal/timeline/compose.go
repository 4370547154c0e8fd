package timeline

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/audiolibrelab/clipstitch/internal/media"
	"github.com/audiolibrelab/clipstitch/internal/project"
)

var (
	// ErrEmptyInput is returned when Compose is called with no segments.
	ErrEmptyInput = errors.New("no segments to compose")

	// ErrNothingComposed is returned when every segment was skipped and the
	// composition would be a zero-length playable.
	ErrNothingComposed = errors.New("all segments skipped, nothing to compose")

	// ErrTrackInsertion marks a segment whose tracks could not be placed on
	// the merged timeline. Treated exactly like a missing file: skip and
	// continue.
	ErrTrackInsertion = errors.New("track insertion failed")
)

// Insert is one segment's contribution to a composition track: the source
// track's full range anchored at Offset on the merged timeline.
type Insert struct {
	Offset   time.Duration
	Duration time.Duration
	Source   string
}

// Track is one of the two merged composition tracks.
type Track struct {
	Kind    media.TrackKind
	Inserts []Insert
}

func (t *Track) insert(at time.Duration, src *media.TrackInfo, path string) error {
	if src.Duration <= 0 {
		return fmt.Errorf("%w: %s track of %s has no duration", ErrTrackInsertion, t.Kind, path)
	}
	t.Inserts = append(t.Inserts, Insert{Offset: at, Duration: src.Duration, Source: path})
	return nil
}

// Composition is the merged single-timeline artifact: exactly one video track
// and one audio track, each segment anchored at the running sum of the
// durations of the segments inserted before it.
type Composition struct {
	Video    Track
	Audio    Track
	Duration time.Duration

	// Sources lists the asset paths actually inserted, in timeline order.
	Sources []string
}

// Compose merges the ordered segment list into one virtual timeline. A segment
// whose file is missing, unreadable, or uninsertable is skipped entirely: the
// cursor does not advance for it and neither track receives a contribution, so
// the following segment closes the gap. Missing middle segments are fully
// elided rather than padded with silence or black.
func Compose(segments []project.Segment, resolver media.Resolver) (*Composition, error) {
	if len(segments) == 0 {
		return nil, ErrEmptyInput
	}

	comp := &Composition{
		Video: Track{Kind: media.TrackVideo},
		Audio: Track{Kind: media.TrackAudio},
	}

	var cursor time.Duration
	inserted := 0

	for _, seg := range segments {
		asset, err := resolver.Resolve(seg.Path)
		if err != nil {
			slog.Warn("Skipping segment, asset unavailable", "segment", seg.ID, "path", seg.Path, "error", err)
			continue
		}

		if asset.Duration <= 0 {
			slog.Warn("Skipping segment, asset reports no duration", "segment", seg.ID, "path", seg.Path)
			continue
		}

		// Both tracks of one segment start at the same offset; the next
		// segment starts after the asset's total duration, which covers the
		// longer of the two.
		failed := false
		if asset.Video != nil {
			if err := comp.Video.insert(cursor, asset.Video, asset.Path); err != nil {
				slog.Warn("Skipping segment, video insertion failed", "segment", seg.ID, "error", err)
				failed = true
			}
		}
		if !failed && asset.Audio != nil {
			if err := comp.Audio.insert(cursor, asset.Audio, asset.Path); err != nil {
				slog.Warn("Skipping segment, audio insertion failed", "segment", seg.ID, "error", err)
				// Roll back the video insert so the segment is skipped whole.
				comp.Video.removeAt(cursor)
				failed = true
			}
		}
		if failed {
			continue
		}

		comp.Sources = append(comp.Sources, asset.Path)
		cursor += asset.Duration
		inserted++
	}

	if inserted == 0 {
		return nil, ErrNothingComposed
	}

	comp.Duration = cursor
	slog.Debug("Composition built", "segments_in", len(segments), "inserted", inserted, "duration", comp.Duration)
	return comp, nil
}

// removeAt drops the insert anchored at the given offset, if any. Used to keep
// a half-inserted segment out of the composition.
func (t *Track) removeAt(at time.Duration) {
	for i := len(t.Inserts) - 1; i >= 0; i-- {
		if t.Inserts[i].Offset == at {
			t.Inserts = append(t.Inserts[:i], t.Inserts[i+1:]...)
			return
		}
	}
}
