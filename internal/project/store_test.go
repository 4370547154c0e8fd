package project

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeClip(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("clip"), 0644); err != nil {
		t.Fatalf("Failed to write clip file: %v", err)
	}
	return path
}

func TestStore_EmptyProject(t *testing.T) {
	s := NewStore(t.TempDir(), "test")

	segments, err := s.Segments()
	if err != nil {
		t.Fatalf("Segments failed: %v", err)
	}
	if len(segments) != 0 {
		t.Errorf("Expected empty project, got %d segments", len(segments))
	}
}

func TestStore_AppendPreservesOrder(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, "test")

	for i := 0; i < 3; i++ {
		path := writeClip(t, dir, "clip"+string(rune('a'+i))+".mp4")
		seg := NewSegment(path, FacingBack, 0, time.Second)
		if err := s.Append(seg); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	segments, err := s.Segments()
	if err != nil {
		t.Fatalf("Segments failed: %v", err)
	}
	if len(segments) != 3 {
		t.Fatalf("Expected 3 segments, got %d", len(segments))
	}
	for i, seg := range segments {
		if seg.Ordinal != i {
			t.Errorf("Segment %d: expected ordinal %d, got %d", i, i, seg.Ordinal)
		}
		if seg.ID == "" {
			t.Errorf("Segment %d has no id", i)
		}
	}
}

func TestStore_RemoveDeletesFileAndCompactsOrdinals(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, "test")

	var ids []string
	var paths []string
	for i := 0; i < 3; i++ {
		path := writeClip(t, dir, "clip"+string(rune('a'+i))+".mp4")
		seg := NewSegment(path, FacingFront, 0, time.Second)
		if err := s.Append(seg); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		ids = append(ids, seg.ID)
		paths = append(paths, path)
	}

	if err := s.Remove(ids[1]); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	if _, err := os.Stat(paths[1]); !os.IsNotExist(err) {
		t.Errorf("Expected backing file deleted, stat err: %v", err)
	}

	segments, err := s.Segments()
	if err != nil {
		t.Fatalf("Segments failed: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("Expected 2 segments after remove, got %d", len(segments))
	}
	if segments[0].ID != ids[0] || segments[1].ID != ids[2] {
		t.Errorf("Unexpected segment order after remove: %s, %s", segments[0].ID, segments[1].ID)
	}
	if segments[0].Ordinal != 0 || segments[1].Ordinal != 1 {
		t.Errorf("Ordinals not compacted: %d, %d", segments[0].Ordinal, segments[1].Ordinal)
	}
}

func TestStore_RemoveUnknownID(t *testing.T) {
	s := NewStore(t.TempDir(), "test")
	if err := s.Remove("nope"); err == nil {
		t.Error("Expected error removing unknown segment")
	}
}
