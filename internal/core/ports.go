package core

import "context"

// Stage identifies one step of the deliberation pipeline for logging and
// tracing. Stage identity is passed explicitly with every call instead of
// being attached to the generator as mutable state.
type Stage string

const (
	StageQuestionDomains  Stage = "s1_question_domains"
	StageOptionDomains    Stage = "s1_option_domains"
	StageQuestionAnalysis Stage = "s2_question_analysis"
	StageOptionAnalysis   Stage = "s2_option_analysis"
	StageSynthesis        Stage = "s3_synthesis"
	StageVote             Stage = "s4_vote"
	StageAdvice           Stage = "s4_advice"
	StageRevision         Stage = "s4_revision"
	StageDecision         Stage = "s5_decision"
)

// FailureSentinel is the reserved text a Generator returns when all retries
// are exhausted. Every stage treats it as "no usable output" and substitutes
// its own fallback; it is never an error.
const FailureSentinel = "ERROR."

// IsFailure reports whether a generator response is the failure sentinel.
func IsFailure(output string) bool { return output == FailureSentinel }

// CallOptions configures one generation call.
type CallOptions struct {
	Stage            Stage
	SystemRole       string
	UserInput        string
	MaxTokens        int
	Temperature      float64
	FrequencyPenalty float64
	PresencePenalty  float64
	Stop             []string
}

// Generator is the capability handle for the text-generation service.
//
// Call blocks until the service responds or its internal retry budget is
// exhausted, in which case it returns FailureSentinel. Implementations own
// their retry/backoff policy; callers apply no additional timeout beyond
// what ctx carries.
type Generator interface {
	// Call issues one generation request and returns the raw response text.
	Call(ctx context.Context, opts CallOptions) string

	// Ping issues a minimal request to validate connectivity and credentials.
	Ping(ctx context.Context) error
}

// ResultStore persists deliberation records. Append is called once per
// question as the run progresses; readers see records in append order.
type ResultStore interface {
	Append(ctx context.Context, rec ResultRecord) error
	List(ctx context.Context) ([]ResultRecord, error)
	Get(ctx context.Context, idx int) (*ResultRecord, error)
}

// CallStats aggregates per-run generator accounting.
type CallStats struct {
	Calls            int
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	WallSeconds      float64
}

// StatsReporter is an optional Generator extension exposing call accounting.
type StatsReporter interface {
	Stats() CallStats
}
