package evidence

import "testing"

func TestParseCacheToleratesNonStringSnippets(t *testing.T) {
	data := []byte(`[
		{"evidence": ["first snippet", 42, {"nested": true}, "second snippet"]},
		{"evidence": []},
		{"evidence": ["third"], "instances": {"input": "verbatim question text"}}
	]`)
	cache, err := ParseCache(data)
	if err != nil {
		t.Fatalf("ParseCache: %v", err)
	}
	if cache.Len() != 3 {
		t.Fatalf("Len = %d, want 3", cache.Len())
	}

	rec, ok := cache.Get(0)
	if !ok {
		t.Fatal("Get(0) should succeed")
	}
	if len(rec.Snippets) != 2 || rec.Snippets[0] != "first snippet" || rec.Snippets[1] != "second snippet" {
		t.Errorf("non-string snippets should be skipped, got %v", rec.Snippets)
	}

	if _, ok := cache.Get(1); ok {
		t.Error("entry with no snippets should report no evidence")
	}
	if _, ok := cache.Get(-1); ok {
		t.Error("negative index should report no evidence")
	}
	if _, ok := cache.Get(3); ok {
		t.Error("out-of-range index should report no evidence")
	}

	if got := cache.Records()[2].ProvenanceInput; got != "verbatim question text" {
		t.Errorf("ProvenanceInput = %q", got)
	}
}

func TestParseCacheRejectsNonArray(t *testing.T) {
	if _, err := ParseCache([]byte(`{"evidence": []}`)); err == nil {
		t.Fatal("expected error for non-array cache")
	}
}

func TestNilCacheGet(t *testing.T) {
	var c *Cache
	if _, ok := c.Get(0); ok {
		t.Error("nil cache should report no evidence")
	}
}
