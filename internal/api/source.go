package api

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/medquorum/medquorum/internal/core"
	"github.com/medquorum/medquorum/internal/logging"
)

// Source caches records from a ResultStore and invalidates the cache when
// the backing file changes, so a server over a live run stays current
// without re-reading the store on every request.
type Source struct {
	store core.ResultStore
	log   *logging.Logger

	mu    sync.Mutex
	cache []core.ResultRecord
	valid bool
}

// NewSource wraps a store. Without a watcher the cache is refreshed once
// and kept; call Invalidate (or Watch) to pick up new records.
func NewSource(store core.ResultStore, log *logging.Logger) *Source {
	return &Source{store: store, log: log}
}

// Records returns the cached records, reloading from the store when the
// cache has been invalidated.
func (s *Source) Records(ctx context.Context) ([]core.ResultRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.valid {
		return s.cache, nil
	}
	recs, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	s.cache = recs
	s.valid = true
	return recs, nil
}

// Invalidate drops the cache; the next Records call reloads.
func (s *Source) Invalidate() {
	s.mu.Lock()
	s.valid = false
	s.mu.Unlock()
}

// Watch invalidates the cache whenever path changes, until ctx ends. The
// watch is on the parent directory because appends and atomic renames both
// surface there.
func (s *Source) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return err
	}
	target := filepath.Clean(path)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					s.log.Debug("results file changed, reloading", "path", path)
					s.Invalidate()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.log.Warn("results watcher error", "error", err)
			}
		}
	}()
	return nil
}
