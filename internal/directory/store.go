package directory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Store persists the canonical directory as one flat JSON file and serves
// reads through a TTL cache.
//
// Writes happen from a single pipeline run at a time; reads are many and
// concurrent. When the cache expires, concurrent readers may each re-read
// the file; the reads are idempotent and the last one to finish populates
// the cache, so the duplicated work is accepted rather than coordinated.
type Store struct {
	path string
	ttl  time.Duration
	log  *zap.Logger

	mu       sync.RWMutex
	cached   []Record
	loadedAt time.Time
}

// NewStore builds a store over the directory file at path.
func NewStore(path string, ttl time.Duration, log *zap.Logger) *Store {
	return &Store{path: path, ttl: ttl, log: log}
}

// Path returns the directory file location.
func (s *Store) Path() string {
	return s.path
}

// Records returns the canonical directory, from cache when fresh. The
// returned slice is shared: callers must not mutate it. A missing file is
// an empty directory, not an error.
func (s *Store) Records() ([]Record, error) {
	s.mu.RLock()
	if s.cached != nil && time.Since(s.loadedAt) < s.ttl {
		records := s.cached
		s.mu.RUnlock()
		return records, nil
	}
	s.mu.RUnlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cached = records
	s.loadedAt = time.Now()
	s.mu.Unlock()

	s.log.Debug("directory loaded", zap.Int("records", len(records)), zap.String("path", s.path))
	return records, nil
}

// Replace overwrites the directory wholesale. The new list is staged to a
// temp file and renamed into place so readers in other processes never see
// a torn write.
func (s *Store) Replace(records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal directory: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "directory-*.tmp")
	if err != nil {
		return fmt.Errorf("stage directory: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write directory: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close staged directory: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace directory: %w", err)
	}

	s.mu.Lock()
	s.cached = append([]Record(nil), records...)
	s.loadedAt = time.Now()
	s.mu.Unlock()

	s.log.Info("directory replaced", zap.Int("records", len(records)), zap.String("path", s.path))
	return nil
}

// Invalidate drops the cache so the next read hits the file.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.loadedAt = time.Time{}
	s.mu.Unlock()
}

func (s *Store) load() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("read directory: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse directory: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}
