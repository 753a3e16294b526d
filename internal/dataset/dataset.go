// Package dataset loads MedQA-style benchmark files: one JSON object per
// line with question, options keyed by letter label, gold answer index, and
// an optional meta_info tag used for score breakdowns.
package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/medquorum/medquorum/internal/core"
)

// Kind selects per-dataset row handling.
type Kind string

const (
	MedQA        Kind = "medqa"
	PubMedQA     Kind = "pubmedqa"
	MedMCQA      Kind = "medmcqa"
	MedicationQA Kind = "medicationqa"
)

// ValidKind reports whether k names a supported dataset. Matching is
// case-insensitive.
func ValidKind(k Kind) bool {
	switch normalizeKind(k) {
	case MedQA, PubMedQA, MedMCQA, MedicationQA:
		return true
	}
	return false
}

func normalizeKind(k Kind) Kind {
	return Kind(strings.ToLower(string(k)))
}

type row struct {
	Question  string            `json:"question"`
	Context   string            `json:"context"`
	Options   map[string]string `json:"options"`
	AnswerIdx string            `json:"answer_idx"`
	Answer    string            `json:"answer"`
	MetaInfo  string            `json:"meta_info"`
}

const asciiPunct = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// normalizeQuestion appends a question mark when the text does not already
// end in punctuation.
func normalizeQuestion(q string) string {
	q = strings.TrimRight(q, " ")
	if q == "" {
		return q
	}
	if strings.ContainsRune(asciiPunct, rune(q[len(q)-1])) {
		return q
	}
	return q + "?"
}

func orderedOptions(opts map[string]string) []core.Option {
	if len(opts) == 0 {
		return nil
	}
	labels := make([]string, 0, len(opts))
	for label := range opts {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	out := make([]core.Option, 0, len(labels))
	for _, label := range labels {
		out = append(out, core.Option{Label: label, Text: opts[label]})
	}
	return out
}

// Load reads a dataset JSONL file into Questions, applying per-kind shaping:
// PubMedQA questions are prefixed with their context paragraph and
// MedicationQA rows carry no options (free-text QA).
func Load(path string, kind Kind) ([]core.Question, error) {
	if !ValidKind(kind) {
		return nil, core.ErrValidation(core.CodeInvalidConfig, fmt.Sprintf("unsupported dataset kind %q", kind))
	}
	kind = normalizeKind(kind)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	var questions []core.Question
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var r row
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			return nil, core.ErrParse(core.CodeDatasetMalformed,
				fmt.Sprintf("invalid JSONL at %s:%d", path, lineNo)).WithCause(err)
		}

		text := normalizeQuestion(r.Question)
		if kind == PubMedQA && r.Context != "" {
			text = r.Context + " " + text
		}

		q := core.Question{
			Idx:      len(questions),
			Text:     text,
			Gold:     r.AnswerIdx,
			GoldText: r.Answer,
			MetaInfo: r.MetaInfo,
		}
		if kind != MedicationQA {
			q.Options = orderedOptions(r.Options)
		}
		questions = append(questions, q)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	return questions, nil
}
