// Package cache persists built vector indexes keyed by a content
// fingerprint so repeated runs skip the expensive embed-and-build step.
// Artifacts are written atomically; a reader never observes a partial file.
// Stale artifacts under old fingerprints are never deleted, they simply stop
// matching.
package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/FrenchMajesty/product-classifier/index"
)

// BuildFunc produces a fresh index when no valid cache entry exists.
type BuildFunc func(ctx context.Context) (*index.Index, error)

// Store manages index artifacts under a single cache directory.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache: directory not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// path maps a fingerprint to its artifact file. A 16-hex-char prefix keeps
// filenames readable while still being collision-safe for our entry counts.
func (s *Store) path(fingerprint string) string {
	short := fingerprint
	if len(short) > 16 {
		short = short[:16]
	}
	return filepath.Join(s.dir, "index-"+short+".json")
}

// LoadOrBuild returns the cached index under fingerprint when a valid
// artifact exists, otherwise invokes build and persists the result. The
// returned bool reports whether the call was a cache hit. Corrupt artifacts
// trigger a transparent rebuild, never an error to the caller.
func (s *Store) LoadOrBuild(ctx context.Context, fingerprint string, build BuildFunc) (*index.Index, bool, error) {
	if idx, ok := s.load(fingerprint); ok {
		return idx, true, nil
	}

	idx, err := build(ctx)
	if err != nil {
		return nil, false, err
	}

	if err := s.save(fingerprint, idx); err != nil {
		return nil, false, err
	}
	return idx, false, nil
}

func (s *Store) load(fingerprint string) (*index.Index, bool) {
	data, err := os.ReadFile(s.path(fingerprint))
	if err != nil {
		return nil, false
	}
	idx, err := index.Deserialize(data)
	if err != nil {
		// Corrupt or outdated artifact: ignore it and rebuild.
		return nil, false
	}
	return idx, true
}

// save writes the artifact via a temp file plus rename so concurrent
// first-time builders can race safely; the last writer wins with a complete
// file either way.
func (s *Store) save(fingerprint string, idx *index.Index) error {
	data, err := idx.Serialize()
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "index-*.tmp")
	if err != nil {
		return fmt.Errorf("cache: create temp artifact: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("cache: write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cache: close artifact: %w", err)
	}

	if err := os.Rename(tmpName, s.path(fingerprint)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cache: publish artifact: %w", err)
	}
	return nil
}
