package report

import (
	"strings"
	"testing"

	"github.com/medquorum/medquorum/internal/core"
)

func TestParseWellFormed(t *testing.T) {
	raw := "Key Knowledge: beta blockade lowers heart rate.\nTotal Analysis: the patient benefits from metoprolol."
	key, total := Parse(raw)
	if key != "beta blockade lowers heart rate." {
		t.Errorf("key = %q", key)
	}
	if total != "the patient benefits from metoprolol." {
		t.Errorf("total = %q", total)
	}
}

func TestParseCaseAndSpacingInsensitive(t *testing.T) {
	raw := "key  knowledge :  facts here\n TOTAL ANALYSIS :  reasoning here"
	key, total := Parse(raw)
	if key != "facts here" {
		t.Errorf("key = %q", key)
	}
	if total != "reasoning here" {
		t.Errorf("total = %q", total)
	}
}

func TestParseFailureSentinel(t *testing.T) {
	key, total := Parse(core.FailureSentinel)
	if key != "" {
		t.Errorf("key = %q, want empty", key)
	}
	if total != NoReport {
		t.Errorf("total = %q, want %q", total, NoReport)
	}
}

func TestParseMissingHeadersFallsBackToWholeText(t *testing.T) {
	raw := "  some free-form model output without headers  "
	key, total := Parse(raw)
	if key != "" {
		t.Errorf("key = %q, want empty", key)
	}
	if total != "some free-form model output without headers" {
		t.Errorf("total = %q", total)
	}
}

func TestParseKeyKnowledgeOnly(t *testing.T) {
	raw := "Key Knowledge: isolated facts"
	key, total := Parse(raw)
	if key != "isolated facts" {
		t.Errorf("key = %q", key)
	}
	// No total-analysis header: the whole text is the total analysis.
	if total != "Key Knowledge: isolated facts" {
		t.Errorf("total = %q", total)
	}
}

func TestComposeFormat(t *testing.T) {
	got := Compose("Q?", "A: x\nB: y", "KK", "TA")
	want := "Question: Q? \nOptions: A: x\nB: y \nKey Knowledge: KK \nTotal Analysis: TA \n"
	if got != want {
		t.Errorf("Compose = %q, want %q", got, want)
	}
}

func TestComposeOmitsEmptyKeyKnowledge(t *testing.T) {
	got := Compose("Q?", "opts", "", "TA")
	if strings.Contains(got, "Key Knowledge") {
		t.Errorf("empty key knowledge should be omitted: %q", got)
	}
	if got != "Question: Q? \nOptions: opts \nTotal Analysis: TA \n" {
		t.Errorf("Compose = %q", got)
	}
}

func TestParseAndComposeRoundTrip(t *testing.T) {
	q := core.Question{
		Text: "Which drug?",
		Options: []core.Option{
			{Label: "A", Text: "metoprolol"},
			{Label: "B", Text: "amlodipine"},
		},
	}

	got := ParseAndCompose(q, core.FailureSentinel)
	if !strings.Contains(got, NoReport) {
		t.Errorf("failure should compose the no-report marker: %q", got)
	}
	if !strings.Contains(got, "Question: Which drug?") {
		t.Errorf("question text should be restated: %q", got)
	}
	if !strings.Contains(got, "A: metoprolol\nB: amlodipine") {
		t.Errorf("options should be restated: %q", got)
	}
}
