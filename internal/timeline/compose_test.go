package timeline

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/audiolibrelab/clipstitch/internal/media"
	"github.com/audiolibrelab/clipstitch/internal/project"
)

// fakeResolver resolves from an in-memory asset table; absent paths behave
// like deleted files.
type fakeResolver struct {
	assets map[string]*media.Asset
}

func (r *fakeResolver) Resolve(ref string) (*media.Asset, error) {
	if asset, ok := r.assets[ref]; ok {
		return asset, nil
	}
	return nil, fmt.Errorf("%w: %s", media.ErrAssetNotFound, ref)
}

func segmentList(durations ...time.Duration) ([]project.Segment, *fakeResolver) {
	segments := make([]project.Segment, len(durations))
	resolver := &fakeResolver{assets: map[string]*media.Asset{}}
	for i, d := range durations {
		path := fmt.Sprintf("/clips/clip_%d.mp4", i)
		segments[i] = project.Segment{ID: fmt.Sprintf("seg-%d", i), Path: path, Ordinal: i, Duration: d}
		resolver.assets[path] = media.SimulatedAsset(path, d)
	}
	return segments, resolver
}

func TestCompose_OffsetsArePrefixSums(t *testing.T) {
	durations := []time.Duration{3 * time.Second, 5 * time.Second, 2 * time.Second}
	segments, resolver := segmentList(durations...)

	comp, err := Compose(segments, resolver)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	var want time.Duration
	for _, d := range durations {
		want += d
	}
	if comp.Duration != want {
		t.Errorf("Expected total duration %s, got %s", want, comp.Duration)
	}

	if len(comp.Video.Inserts) != 3 || len(comp.Audio.Inserts) != 3 {
		t.Fatalf("Expected 3 inserts per track, got video=%d audio=%d",
			len(comp.Video.Inserts), len(comp.Audio.Inserts))
	}

	var prefix time.Duration
	for i, ins := range comp.Video.Inserts {
		if ins.Offset != prefix {
			t.Errorf("Video insert %d: expected offset %s, got %s", i, prefix, ins.Offset)
		}
		if comp.Audio.Inserts[i].Offset != prefix {
			t.Errorf("Audio insert %d: expected offset %s, got %s", i, prefix, comp.Audio.Inserts[i].Offset)
		}
		prefix += durations[i]
	}
}

func TestCompose_MissingMiddleSegmentIsElided(t *testing.T) {
	segments, resolver := segmentList(3*time.Second, 5*time.Second, 2*time.Second)
	delete(resolver.assets, segments[1].Path)

	comp, err := Compose(segments, resolver)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	if comp.Duration != 5*time.Second {
		t.Errorf("Expected duration 5s (3s+2s), got %s", comp.Duration)
	}
	if len(comp.Video.Inserts) != 2 {
		t.Fatalf("Expected 2 video inserts, got %d", len(comp.Video.Inserts))
	}

	// The third segment closes the gap: its offset is the prefix sum without
	// the missing segment, not a zero-padded gap.
	second := comp.Video.Inserts[1]
	if second.Offset != 3*time.Second {
		t.Errorf("Expected third segment at offset 3s, got %s", second.Offset)
	}
	if second.Source != segments[2].Path {
		t.Errorf("Expected third segment source %s, got %s", segments[2].Path, second.Source)
	}
}

func TestCompose_AllMissing(t *testing.T) {
	segments, _ := segmentList(time.Second, time.Second)
	empty := &fakeResolver{assets: map[string]*media.Asset{}}

	_, err := Compose(segments, empty)
	if !errors.Is(err, ErrNothingComposed) {
		t.Errorf("Expected ErrNothingComposed, got %v", err)
	}
}

func TestCompose_EmptyInput(t *testing.T) {
	resolver := &fakeResolver{assets: map[string]*media.Asset{}}

	_, err := Compose(nil, resolver)
	if !errors.Is(err, ErrEmptyInput) {
		t.Errorf("Expected ErrEmptyInput, got %v", err)
	}
}

func TestCompose_SegmentWithoutAudioTrack(t *testing.T) {
	segments, resolver := segmentList(3*time.Second, 4*time.Second)
	resolver.assets[segments[1].Path].Audio = nil

	comp, err := Compose(segments, resolver)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	if len(comp.Video.Inserts) != 2 {
		t.Errorf("Expected 2 video inserts, got %d", len(comp.Video.Inserts))
	}
	if len(comp.Audio.Inserts) != 1 {
		t.Errorf("Expected 1 audio insert, got %d", len(comp.Audio.Inserts))
	}

	// The cursor still advances by the full asset duration.
	if comp.Duration != 7*time.Second {
		t.Errorf("Expected duration 7s, got %s", comp.Duration)
	}
}

func TestCompose_UninsertableTrackSkipsWholeSegment(t *testing.T) {
	segments, resolver := segmentList(3*time.Second, 4*time.Second)
	// Video present but zero-length: insertion fails, segment is skipped.
	resolver.assets[segments[0].Path].Video.Duration = 0

	comp, err := Compose(segments, resolver)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	if comp.Duration != 4*time.Second {
		t.Errorf("Expected duration 4s, got %s", comp.Duration)
	}
	if len(comp.Video.Inserts) != 1 || comp.Video.Inserts[0].Source != segments[1].Path {
		t.Errorf("Expected only the second segment inserted, got %+v", comp.Video.Inserts)
	}
	if len(comp.Audio.Inserts) != 1 {
		t.Errorf("Expected the skipped segment's audio rolled back, got %+v", comp.Audio.Inserts)
	}
}

func TestCompose_AudioInsertionFailureRollsBackVideo(t *testing.T) {
	segments, resolver := segmentList(3*time.Second, 4*time.Second)
	// Audio present but zero-length: the already-inserted video contribution
	// must not survive on its own.
	resolver.assets[segments[0].Path].Audio.Duration = 0

	comp, err := Compose(segments, resolver)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	if comp.Duration != 4*time.Second {
		t.Errorf("Expected duration 4s, got %s", comp.Duration)
	}
	if len(comp.Video.Inserts) != 1 || comp.Video.Inserts[0].Source != segments[1].Path {
		t.Errorf("Expected rolled-back video track with only the second segment, got %+v", comp.Video.Inserts)
	}
}

func TestWritePlaylist(t *testing.T) {
	segments, resolver := segmentList(time.Second, 2*time.Second)

	comp, err := Compose(segments, resolver)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	var sb strings.Builder
	if err := comp.WritePlaylist(&sb); err != nil {
		t.Fatalf("WritePlaylist failed: %v", err)
	}

	want := "ffconcat version 1.0\nfile '/clips/clip_0.mp4'\nfile '/clips/clip_1.mp4'\n"
	if sb.String() != want {
		t.Errorf("Playlist mismatch:\ngot:  %q\nwant: %q", sb.String(), want)
	}
}
