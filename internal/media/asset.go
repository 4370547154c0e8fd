package media

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrAssetNotFound is returned when a segment's backing file does not exist or
// cannot be read at resolution time.
var ErrAssetNotFound = errors.New("media asset not found")

// TrackKind distinguishes the two track types a capture file can carry.
type TrackKind string

const (
	TrackVideo TrackKind = "video"
	TrackAudio TrackKind = "audio"
)

// TrackInfo describes one source track inside an asset.
type TrackInfo struct {
	Kind     TrackKind
	Index    int
	Duration time.Duration
}

// Asset is a readable handle on one recorded clip. Either track pointer may be
// nil; real capture files always carry video but nothing here assumes audio
// exists.
type Asset struct {
	Path     string
	Duration time.Duration
	Video    *TrackInfo
	Audio    *TrackInfo
}

// Resolver turns a segment's storage reference into a readable asset. There is
// no caching: the backing file may be deleted between calls, so every use
// re-resolves.
type Resolver interface {
	Resolve(ref string) (*Asset, error)
}

// FileResolver resolves filesystem references and inspects them with the
// injected prober.
type FileResolver struct {
	prober Prober
}

// NewFileResolver builds a resolver over the given prober. A nil prober
// defaults to ffprobe.
func NewFileResolver(prober Prober) *FileResolver {
	if prober == nil {
		prober = &FFProbe{}
	}
	return &FileResolver{prober: prober}
}

// Resolve checks existence and probes the file for its tracks and duration.
func (r *FileResolver) Resolve(ref string) (*Asset, error) {
	if _, err := os.Stat(ref); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, ref)
	}

	asset, err := r.prober.Probe(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to probe %s: %w", ref, err)
	}
	return asset, nil
}
