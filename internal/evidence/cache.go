package evidence

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/medquorum/medquorum/internal/core"
)

// Record is one evidence-cache entry, aligned by dataset index.
//
// Only Snippets may ever be forwarded toward a prompt, and only through
// FormatContext. ProvenanceInput (the cache's verbatim copy of the original
// question/options, when present) is loaded for offline auditing only.
type Record struct {
	Snippets        []string
	ProvenanceInput string
}

type rawRecord struct {
	Evidence  []json.RawMessage `json:"evidence"`
	Instances *struct {
		Input string `json:"input"`
	} `json:"instances"`
}

// Cache is an ordered evidence collection aligned by question index.
type Cache struct {
	records []Record
}

// Len returns the number of records in the cache.
func (c *Cache) Len() int { return len(c.records) }

// Get returns the record at idx. An out-of-range index or a record with no
// snippets yields (Record{}, false): "no evidence available", never fatal.
func (c *Cache) Get(idx int) (Record, bool) {
	if c == nil || idx < 0 || idx >= len(c.records) {
		return Record{}, false
	}
	rec := c.records[idx]
	if len(rec.Snippets) == 0 {
		return Record{}, false
	}
	return rec, true
}

// Records returns every cache entry in index order, including entries with
// no snippets. Offline tooling iterates this; the runtime gate uses Get.
func (c *Cache) Records() []Record {
	if c == nil {
		return nil
	}
	return c.records
}

// LoadCache reads a Self-BioRAG-style evidence cache: a JSON array whose
// element i corresponds to dataset index i, each holding an `evidence` list
// of snippet strings. Non-string snippets and malformed elements are skipped
// rather than rejected.
func LoadCache(path string) (*Cache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading evidence cache: %w", err)
	}
	return ParseCache(data)
}

// ParseCache parses evidence-cache JSON.
func ParseCache(data []byte) (*Cache, error) {
	var raw []rawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, core.ErrParse(core.CodeEvidenceShape, "evidence cache must be a JSON array").WithCause(err)
	}

	records := make([]Record, 0, len(raw))
	for _, rr := range raw {
		rec := Record{Snippets: make([]string, 0, len(rr.Evidence))}
		for _, el := range rr.Evidence {
			var s string
			if err := json.Unmarshal(el, &s); err != nil {
				continue // non-string snippet, mirror the cache's tolerance
			}
			rec.Snippets = append(rec.Snippets, s)
		}
		if rr.Instances != nil {
			rec.ProvenanceInput = rr.Instances.Input
		}
		records = append(records, rec)
	}
	return &Cache{records: records}, nil
}
