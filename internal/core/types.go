package core

import (
	"fmt"
	"strings"
	"time"
)

// Option is one answer choice of a multiple-choice question.
type Option struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Question is the immutable input to one deliberation run.
// Options is empty for free-text QA (e.g. MedicationQA).
// Gold is the gold answer label; it is carried for later scoring and is
// never exposed to generation.
type Question struct {
	Idx      int      `json:"idx"`
	Text     string   `json:"question"`
	Options  []Option `json:"options"`
	Gold     string   `json:"gold_answer"`
	GoldText string   `json:"answer,omitempty"` // gold answer text, used only by offline leakage checks
	MetaInfo string   `json:"meta_info,omitempty"`
}

// HasOptions reports whether the question is multiple-choice.
func (q Question) HasOptions() bool { return len(q.Options) > 0 }

// OptionsText renders the options as a single prompt-insertable block,
// one "A: text" line per option, in declared order.
func (q Question) OptionsText() string {
	if len(q.Options) == 0 {
		return ""
	}
	lines := make([]string, 0, len(q.Options))
	for _, o := range q.Options {
		lines = append(lines, fmt.Sprintf("%s: %s", o.Label, o.Text))
	}
	return strings.Join(lines, "\n")
}

// OptionLabels returns the labels in declared order.
func (q Question) OptionLabels() []string {
	labels := make([]string, 0, len(q.Options))
	for _, o := range q.Options {
		labels = append(labels, o.Label)
	}
	return labels
}

// DomainSet is the ordered list of domain names produced by the router.
// Duplicates are preserved; order is the order of the source response.
type DomainSet []string

// DomainAnalysis pairs one DomainSet entry with its analysis text.
type DomainAnalysis struct {
	Domain   string `json:"domain"`
	Analysis string `json:"analysis"`
}

// AnalysisMap holds one analysis per DomainSet entry, in DomainSet order.
// It is a slice rather than a map so duplicate domains keep their own entry.
type AnalysisMap []DomainAnalysis

// Domains returns the DomainSet covered by the map, in order.
func (m AnalysisMap) Domains() DomainSet {
	out := make(DomainSet, 0, len(m))
	for _, e := range m {
		out = append(out, e.Domain)
	}
	return out
}

// Opinion is a binary vote cast by one domain expert in a consensus round.
type Opinion string

const (
	OpinionYes Opinion = "yes"
	OpinionNo  Opinion = "no"
)

// VoteRecord maps domain name to opinion for one consensus round.
// A domain appearing in both the question and option DomainSets votes twice;
// the later vote overwrites the earlier one under the same key. This mirrors
// the observed upstream behavior and is deliberately not deduplicated.
type VoteRecord map[string]Opinion

// AllYes reports whether every recorded opinion is affirmative.
// An empty record is vacuously affirmative.
func (v VoteRecord) AllYes() bool {
	for _, op := range v {
		if op != OpinionYes {
			return false
		}
	}
	return true
}

// RevisionAdvice maps domain name to a free-text revision request, populated
// only for domains that voted no in a round.
type RevisionAdvice map[string]string

// ConsensusState is the terminal state of the consensus engine.
type ConsensusState string

const (
	ConsensusConverged ConsensusState = "converged"
	ConsensusExhausted ConsensusState = "exhausted"
)

// EvidenceAudit records what the evidence gate saw and did for one question.
// Candidate is what would have been injected after filtering/truncation;
// Used is what actually reached the prompts (empty when the gate said no).
type EvidenceAudit struct {
	Enabled   bool   `json:"evidence_enabled"`
	Injected  bool   `json:"evidence_injected"`
	Candidate string `json:"evidence_candidate_context,omitempty"`
	Used      string `json:"evidence_used_context,omitempty"`
}

// ResultRecord is the terminal artifact of one deliberation run.
// It is created once at the end of the pipeline and is self-contained for
// downstream scoring: predicted label, gold label, and meta_info travel
// with the record.
type ResultRecord struct {
	Idx      int      `json:"idx"`
	RunID    string   `json:"run_id,omitempty"`
	Question string   `json:"question"`
	Options  []Option `json:"options"`

	PredAnswer string `json:"pred_answer"`
	GoldAnswer string `json:"gold_answer"`
	MetaInfo   string `json:"meta_info,omitempty"`

	QuestionDomains  DomainSet   `json:"question_domains"`
	OptionDomains    DomainSet   `json:"option_domains"`
	QuestionAnalyses AnalysisMap `json:"question_analyses"`
	OptionAnalyses   AnalysisMap `json:"option_analyses"`

	SynReport       string           `json:"syn_report"`
	VoteHistory     []VoteRecord     `json:"vote_history"`
	RevisionHistory []RevisionAdvice `json:"revision_history"`
	ReportHistory   []string         `json:"syn_repo_history"`
	Consensus       ConsensusState   `json:"consensus"`

	RawOutput string `json:"raw_output"`

	Evidence  *EvidenceAudit `json:"evidence,omitempty"`
	CreatedAt time.Time      `json:"created_at,omitempty"`
}

// Correct reports whether the prediction matches the gold label.
// A prediction also counts when the gold label is contained in it, which
// tolerates outputs like "A)" or "(A".
func (r *ResultRecord) Correct() bool {
	pred := strings.TrimSpace(r.PredAnswer)
	gold := strings.TrimSpace(r.GoldAnswer)
	if pred == "" || gold == "" {
		return false
	}
	return pred == gold || strings.Contains(pred, gold)
}
