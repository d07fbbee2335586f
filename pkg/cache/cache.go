// Package cache persists raw pull request search results to a single JSON
// file, keyed by subject. A subject key is either a tracked username or a
// synthetic "requested:<name>" key for review-request queries; the two
// namespaces share one flat map, so callers must keep keys unique.
//
// Payloads are stored exactly as fetched from the wire; normalization into
// typed entities happens at read time, which keeps the file format stable
// across schema changes in the rest of the program.
package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	// timestampLayout is the fixed on-disk timestamp format.
	timestampLayout = "2006-01-02 15:04:05"

	// DefaultRetention is how long entries survive without a refresh.
	DefaultRetention = 10 * 24 * time.Hour

	dirPerms  = 0o700
	filePerms = 0o600
)

// entry is the on-disk shape of one subject's results.
type entry struct {
	Timestamp string           `json:"timestamp"`
	PRs       []map[string]any `json:"prs"`
}

// Store is a file-backed map from subject key to the raw results of the
// last successful fetch. It is not safe for concurrent use; the
// orchestrator's single goroutine is the only accessor.
type Store struct {
	now     func() time.Time
	entries map[string]entry
	path    string
}

// Open loads the store from path, creating parent directories as needed.
// A missing or unparseable file yields an empty store rather than an
// error: the cache is always recoverable by re-fetching.
func Open(path string) *Store {
	s := &Store{
		path:    path,
		entries: make(map[string]entry),
		now:     time.Now,
	}
	if err := os.MkdirAll(filepath.Dir(path), dirPerms); err != nil {
		slog.Warn("Failed to create cache directory", "path", path, "error", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Failed to read cache file", "path", path, "error", err)
		}
		return s
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		slog.Warn("Cache file is malformed, starting empty", "path", path, "error", err)
		s.entries = make(map[string]entry)
	}
	return s
}

// Load returns the timestamp and raw payloads for key. An absent key yields
// ok=false, not an error.
func (s *Store) Load(key string) (fetchedAt time.Time, prs []map[string]any, ok bool) {
	e, exists := s.entries[key]
	if !exists {
		return time.Time{}, nil, false
	}
	fetchedAt, err := time.Parse(timestampLayout, e.Timestamp)
	if err != nil {
		slog.Warn("Cache entry has unreadable timestamp", "key", key, "error", err)
		return time.Time{}, nil, false
	}
	return fetchedAt, e.PRs, true
}

// Save replaces the entry for key and persists the whole map synchronously.
// The write is atomic with respect to the file: a crash mid-save leaves the
// previous file intact.
func (s *Store) Save(key string, prs []map[string]any, fetchedAt time.Time) error {
	s.entries[key] = entry{
		Timestamp: fetchedAt.Format(timestampLayout),
		PRs:       prs,
	}
	return s.persist()
}

// Cleanup removes every entry strictly older than retention and persists.
// An entry whose age equals the retention exactly is kept. Running cleanup
// twice in a row is a no-op the second time.
func (s *Store) Cleanup(retention time.Duration) error {
	now := s.now()
	for key, e := range s.entries {
		fetchedAt, err := time.Parse(timestampLayout, e.Timestamp)
		if err != nil {
			// Unreadable timestamps can never expire; drop them.
			delete(s.entries, key)
			continue
		}
		if now.Sub(fetchedAt) > retention {
			delete(s.entries, key)
		}
	}
	return s.persist()
}

// persist writes the map to a temp file and renames it into place, the
// same pattern the rest of the ecosystem uses for crash-safe JSON state.
func (s *Store) persist() error {
	data, err := json.MarshalIndent(s.entries, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, filePerms); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming cache file: %w", err)
	}
	return nil
}
