package project

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// manifest is the on-disk shape of a project. Segment order in the file is
// playback order.
type manifest struct {
	Name     string    `yaml:"name"`
	Segments []Segment `yaml:"segments"`
}

// Store reads and writes the segment manifest that sits next to the recorded
// clips. The playback and composition code only ever sees the snapshot
// returned by Segments; it never mutates the manifest itself.
type Store struct {
	dir  string
	name string
}

// NewStore opens (or lazily creates) the manifest for the project stored in
// dir.
func NewStore(dir, name string) *Store {
	return &Store{dir: dir, name: name}
}

func (s *Store) manifestPath() string {
	return filepath.Join(s.dir, "project.yaml")
}

// Segments returns the ordered segment list. A missing manifest is an empty
// project, not an error.
func (s *Store) Segments() ([]Segment, error) {
	m, err := s.load()
	if err != nil {
		return nil, err
	}
	return m.Segments, nil
}

// Append records a new segment at the end of the project.
func (s *Store) Append(seg Segment) error {
	m, err := s.load()
	if err != nil {
		return err
	}
	seg.Ordinal = len(m.Segments)
	m.Segments = append(m.Segments, seg)
	return s.save(m)
}

// Remove drops the segment with the given id and deletes its backing file.
// Ordinals of the remaining segments are compacted.
func (s *Store) Remove(id string) error {
	m, err := s.load()
	if err != nil {
		return err
	}

	idx := -1
	for i, seg := range m.Segments {
		if seg.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("segment not found: %s", id)
	}

	removed := m.Segments[idx]
	m.Segments = append(m.Segments[:idx], m.Segments[idx+1:]...)
	for i := range m.Segments {
		m.Segments[i].Ordinal = i
	}

	if err := s.save(m); err != nil {
		return err
	}

	if err := os.Remove(removed.Path); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to delete segment file", "path", removed.Path, "error", err)
	}
	return nil
}

func (s *Store) load() (*manifest, error) {
	data, err := os.ReadFile(s.manifestPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &manifest{Name: s.name}, nil
		}
		return nil, fmt.Errorf("failed to read project manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse project manifest: %w", err)
	}
	return &m, nil
}

func (s *Store) save(m *manifest) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal project manifest: %w", err)
	}

	if err := os.WriteFile(s.manifestPath(), data, 0644); err != nil {
		return fmt.Errorf("failed to write project manifest: %w", err)
	}
	return nil
}
