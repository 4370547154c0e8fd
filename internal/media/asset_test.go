package media

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileResolver_MissingFile(t *testing.T) {
	r := NewFileResolver(&StaticProber{})

	_, err := r.Resolve(filepath.Join(t.TempDir(), "gone.mp4"))
	if !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("Expected ErrAssetNotFound, got %v", err)
	}
}

func TestFileResolver_ResolvesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, []byte("stub"), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	r := NewFileResolver(&StaticProber{
		Assets: map[string]*Asset{path: SimulatedAsset(path, 3 * time.Second)},
	})

	asset, err := r.Resolve(path)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if asset.Duration != 3*time.Second {
		t.Errorf("Expected duration 3s, got %s", asset.Duration)
	}
	if asset.Video == nil || asset.Audio == nil {
		t.Errorf("Expected both tracks present, got video=%v audio=%v", asset.Video, asset.Audio)
	}
}

func TestFileResolver_NoCachingAcrossDeletes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, []byte("stub"), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	r := NewFileResolver(&StaticProber{Fallback: SimulatedAsset("", time.Second)})

	if _, err := r.Resolve(path); err != nil {
		t.Fatalf("First resolve failed: %v", err)
	}

	os.Remove(path)

	if _, err := r.Resolve(path); !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("Expected ErrAssetNotFound after delete, got %v", err)
	}
}

func TestParseSeconds(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"3.5", 3500 * time.Millisecond},
		{"0", 0},
		{"", 0},
		{"garbage", 0},
		{"12", 12 * time.Second},
	}

	for _, c := range cases {
		if got := parseSeconds(c.in); got != c.want {
			t.Errorf("parseSeconds(%q): expected %s, got %s", c.in, c.want, got)
		}
	}
}
