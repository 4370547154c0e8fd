package project

import (
	"time"

	"github.com/google/uuid"
)

// Facing identifies which camera recorded a segment.
type Facing string

const (
	FacingBack  Facing = "back"
	FacingFront Facing = "front"
)

// Segment is one independently recorded clip plus its metadata. A segment is
// immutable once created; removing it from a project also removes its backing
// file.
type Segment struct {
	ID         string        `yaml:"id" json:"id"`
	Path       string        `yaml:"path" json:"path"`
	RecordedAt time.Time     `yaml:"recorded_at" json:"recorded_at"`
	Facing     Facing        `yaml:"facing" json:"facing"`
	Ordinal    int           `yaml:"ordinal" json:"ordinal"`
	Duration   time.Duration `yaml:"duration" json:"duration"`
}

// NewSegment builds a segment for a freshly recorded clip. The ordinal is the
// segment's position within its project; callers pass the current project
// length.
func NewSegment(path string, facing Facing, ordinal int, duration time.Duration) Segment {
	return Segment{
		ID:         uuid.NewString(),
		Path:       path,
		RecordedAt: time.Now(),
		Facing:     facing,
		Ordinal:    ordinal,
		Duration:   duration,
	}
}
