package results

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/medquorum/medquorum/internal/core"
)

// JSONLStore is an append-only store writing one JSON record per line.
// The file layout matches the offline scoring and audit tools, so a run's
// output can be fed to them directly.
type JSONLStore struct {
	path string
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
}

// NewJSONLStore opens (or creates) the JSONL file at path for appending.
func NewJSONLStore(path string) (*JSONLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating results directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("opening results file: %w", err)
	}
	return &JSONLStore{path: path, f: f, w: bufio.NewWriter(f)}, nil
}

// Append writes one record and flushes, so a crash loses at most the
// record being written.
func (s *JSONLStore) Append(ctx context.Context, rec core.ResultRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record %d: %w", rec.Idx, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(data); err != nil {
		return fmt.Errorf("writing record %d: %w", rec.Idx, err)
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("writing record %d: %w", rec.Idx, err)
	}
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("flushing record %d: %w", rec.Idx, err)
	}
	return nil
}

// List reads all records back from the file. Blank lines are skipped;
// a malformed line is a corruption error, not a silent drop.
func (s *JSONLStore) List(ctx context.Context) ([]core.ResultRecord, error) {
	s.mu.Lock()
	if err := s.w.Flush(); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("flushing before read: %w", err)
	}
	s.mu.Unlock()

	return ReadFile(s.path)
}

// Get returns the record with the given question index, or not-found.
func (s *JSONLStore) Get(ctx context.Context, idx int) (*core.ResultRecord, error) {
	recs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range recs {
		if recs[i].Idx == idx {
			return &recs[i], nil
		}
	}
	return nil, core.ErrNotFound("result record", fmt.Sprintf("%d", idx))
}

// Close flushes and closes the underlying file.
func (s *JSONLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Flush(); err != nil {
		_ = s.f.Close()
		return err
	}
	return s.f.Close()
}

// ReadFile loads every record from a JSONL results file. It is shared by
// the store and the offline score/audit commands, which accept arbitrary
// result files rather than only the configured store path.
func ReadFile(path string) ([]core.ResultRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening results file: %w", err)
	}
	defer f.Close()

	var out []core.ResultRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec core.ResultRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, core.ErrState(core.CodeStoreCorrupted,
				fmt.Sprintf("malformed record at line %d of %s", line, path)).WithCause(err)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading results file: %w", err)
	}
	return out, nil
}
