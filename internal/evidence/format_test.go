package evidence

import (
	"strings"
	"testing"
)

// long builds a clean snippet comfortably above the minimum length.
func long(prefix string) string {
	return prefix + " " + strings.Repeat("clinical finding ", 10)
}

func TestFormatContextNumbersSurvivors(t *testing.T) {
	rec := Record{Snippets: []string{
		"Option A: metoprolol is the correct answer here because of the beta blockade effect",
		long("Beta blockers reduce myocardial oxygen demand."),
		long("ACE inhibitors are first line for heart failure with reduced ejection fraction."),
	}}
	got := FormatContext(rec, DefaultFormatConfig())

	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), got)
	}
	if !strings.HasPrefix(lines[0], "[E1] Beta blockers") {
		t.Errorf("first survivor should be renumbered [E1], got %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "[E2] ACE inhibitors") {
		t.Errorf("second survivor should be [E2], got %q", lines[1])
	}
}

func TestFormatContextDropsShortSnippets(t *testing.T) {
	rec := Record{Snippets: []string{"too short", long("A perfectly fine clinical snippet about diabetes management.")}}
	got := FormatContext(rec, DefaultFormatConfig())
	if strings.Contains(got, "too short") {
		t.Errorf("short snippet survived: %q", got)
	}
	if !strings.HasPrefix(got, "[E1] A perfectly fine clinical snippet") {
		t.Errorf("surviving snippet should lead as [E1], got %q", got)
	}
}

func TestFormatContextNormalizesWhitespace(t *testing.T) {
	raw := "Beta\tblockers\n\nreduce   myocardial oxygen demand " + strings.Repeat("in ischemic heart disease ", 5)
	got := FormatContext(Record{Snippets: []string{raw}}, DefaultFormatConfig())
	if strings.ContainsAny(got[5:], "\t\n") {
		t.Errorf("whitespace not normalized: %q", got)
	}
	if strings.Contains(got, "  ") {
		t.Errorf("whitespace runs not collapsed: %q", got)
	}
}

func TestFormatContextEmptyWhenNothingSurvives(t *testing.T) {
	cfg := DefaultFormatConfig()
	cases := [][]string{
		nil,
		{},
		{"short"},
		{"(A) correct answer, Option B: wrong " + strings.Repeat("padding text ", 10)},
	}
	for _, snips := range cases {
		if got := FormatContext(Record{Snippets: snips}, cfg); got != "" {
			t.Errorf("FormatContext(%v) = %q, want empty", snips, got)
		}
	}
}

func TestFormatContextFilterOffKeepsArtifacts(t *testing.T) {
	cfg := DefaultFormatConfig()
	cfg.FilterMode = FilterOff
	snip := "Option A: metoprolol " + strings.Repeat("with supporting rationale ", 5)
	got := FormatContext(Record{Snippets: []string{snip}}, cfg)
	if got == "" {
		t.Fatal("filter off should keep artifact snippets")
	}
}

func TestFormatContextTopK(t *testing.T) {
	cfg := DefaultFormatConfig()
	cfg.TopK = 2
	rec := Record{Snippets: []string{
		long("First snippet considered."),
		long("Second snippet considered."),
		long("Third snippet beyond topk."),
	}}
	got := FormatContext(rec, cfg)
	if strings.Contains(got, "Third snippet") {
		t.Errorf("topk should cut before filtering: %q", got)
	}
}

func TestFormatContextNeverEmitsPartialLines(t *testing.T) {
	cfg := DefaultFormatConfig()
	first := long("First snippet that fits.")
	firstLine := "[E1] " + NormalizeWS(first)
	cfg.MaxChars = len(firstLine) + 1 + 10 // second line cannot fit

	rec := Record{Snippets: []string{first, long("Second snippet that will not fit at all.")}}
	got := FormatContext(rec, cfg)
	if got != firstLine {
		t.Errorf("expected exactly the first line, got %q", got)
	}
}

func TestNormalizeWS(t *testing.T) {
	if got := NormalizeWS("  a\t b\n\nc  "); got != "a b c" {
		t.Errorf("NormalizeWS = %q", got)
	}
}
