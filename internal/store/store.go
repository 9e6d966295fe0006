package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/raffaelramalhorosa/bear-watch/internal/models"
)

// Store persists sighting records as a single JSON file, sorted by date
// descending. The file is rewritten in full on every save; there is no
// partial update path.
type Store struct {
	path string
}

// New returns a Store backed by the file at path. The file does not need
// to exist yet.
func New(path string) *Store {
	return &Store{path: path}
}

// Load reads the full record set. A missing file is the valid empty state,
// not an error.
func (s *Store) Load() ([]models.Sighting, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	var records []models.Sighting
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return records, nil
}

// Save sorts records by date descending and atomically replaces the data
// file: the new content is written to a temp file in the same directory and
// renamed over the target, so a failed write never leaves a half-applied
// state behind.
func (s *Store) Save(records []models.Sighting) error {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date > records[j].Date
	})

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".sightings-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		tmp.Close()
		return fmt.Errorf("encode records: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// Links builds the identity index: the set of every link currently present.
// The ingestor consults it before doing any resolution work.
func Links(records []models.Sighting) map[string]struct{} {
	index := make(map[string]struct{}, len(records))
	for _, r := range records {
		index[r.Link] = struct{}{}
	}
	return index
}
