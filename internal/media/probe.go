package media

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"time"
)

// Prober extracts track layout and duration from a media file.
type Prober interface {
	Probe(path string) (*Asset, error)
}

// FFProbe inspects files with the ffprobe binary.
type FFProbe struct{}

// Probe runs ffprobe and maps its stream/format report onto an Asset. Only the
// first video and first audio stream are considered; extra streams in a
// capture file are ignored.
func (p *FFProbe) Probe(path string) (*Asset, error) {
	cmd := exec.Command("ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}

	var probeResult struct {
		Streams []struct {
			Index     int    `json:"index"`
			CodecType string `json:"codec_type"`
			Duration  string `json:"duration"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}

	if err := json.Unmarshal(output, &probeResult); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output for %s: %w", path, err)
	}

	asset := &Asset{
		Path:     path,
		Duration: parseSeconds(probeResult.Format.Duration),
	}

	for _, stream := range probeResult.Streams {
		track := &TrackInfo{
			Index:    stream.Index,
			Duration: parseSeconds(stream.Duration),
		}
		if track.Duration == 0 {
			track.Duration = asset.Duration
		}

		switch stream.CodecType {
		case "video":
			if asset.Video == nil {
				track.Kind = TrackVideo
				asset.Video = track
			}
		case "audio":
			if asset.Audio == nil {
				track.Kind = TrackAudio
				asset.Audio = track
			}
		}
	}

	slog.Debug("Probed media asset", "path", path, "duration", asset.Duration,
		"has_video", asset.Video != nil, "has_audio", asset.Audio != nil)
	return asset, nil
}

// parseSeconds converts ffprobe's decimal-seconds strings; empty or malformed
// values become zero.
func parseSeconds(s string) time.Duration {
	if s == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

// StaticProber serves fixed asset descriptions keyed by path. It backs the
// simulated capture path and tests, where placeholder clip files carry no real
// container data.
type StaticProber struct {
	Assets map[string]*Asset

	// Fallback is used for paths without an entry; nil means probe failure.
	Fallback *Asset
}

// Probe returns the registered description for path.
func (p *StaticProber) Probe(path string) (*Asset, error) {
	if asset, ok := p.Assets[path]; ok {
		return asset, nil
	}
	if p.Fallback != nil {
		a := *p.Fallback
		a.Path = path
		return &a, nil
	}
	return nil, fmt.Errorf("no asset description for %s", path)
}

// SimulatedAsset describes a placeholder clip of the given duration with one
// video and one audio track, mirroring what the capture pipeline produces.
func SimulatedAsset(path string, d time.Duration) *Asset {
	return &Asset{
		Path:     path,
		Duration: d,
		Video:    &TrackInfo{Kind: TrackVideo, Index: 0, Duration: d},
		Audio:    &TrackInfo{Kind: TrackAudio, Index: 1, Duration: d},
	}
}
