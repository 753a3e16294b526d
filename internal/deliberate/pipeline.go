package deliberate

import (
	"context"
	"time"

	"github.com/medquorum/medquorum/internal/core"
	"github.com/medquorum/medquorum/internal/evidence"
	"github.com/medquorum/medquorum/internal/logging"
)

// Config carries the tunables of one deliberation pipeline.
type Config struct {
	NumQuestionDomains int
	NumOptionDomains   int
	MaxAttemptVote     int
	Workers            int
}

// DefaultConfig mirrors the upstream baseline settings.
func DefaultConfig() Config {
	return Config{
		NumQuestionDomains: 5,
		NumOptionDomains:   5,
		MaxAttemptVote:     DefaultMaxAttempts,
		Workers:            1,
	}
}

func (c Config) withDefaults() Config {
	if c.NumQuestionDomains < 1 {
		c.NumQuestionDomains = 5
	}
	if c.NumOptionDomains < 1 {
		c.NumOptionDomains = 5
	}
	if c.MaxAttemptVote < 1 {
		c.MaxAttemptVote = DefaultMaxAttempts
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	return c
}

// Pipeline runs the full five-stage deliberation for one question:
// domain routing, per-domain analysis, report synthesis, the consensus
// loop, and the final decision. Every stage degrades on failure instead
// of aborting, so Run always returns a complete record.
type Pipeline struct {
	cfg       Config
	router    *Router
	analyzer  *Analyzer
	synth     *Synthesizer
	consensus *ConsensusEngine
	decider   *Decider

	evCache *evidence.Cache
	evCfg   evidence.FormatConfig

	runID string
	log   *logging.Logger
}

// NewPipeline wires the stage executors around a shared generator and
// prompt renderer. evCache may be nil, in which case no evidence is
// injected and records carry no audit block.
func NewPipeline(gen core.Generator, prompts *PromptRenderer, cfg Config, evCache *evidence.Cache, evCfg evidence.FormatConfig, runID string, log *logging.Logger) *Pipeline {
	cfg = cfg.withDefaults()
	return &Pipeline{
		cfg:       cfg,
		router:    NewRouter(gen, prompts, cfg.NumQuestionDomains, cfg.NumOptionDomains, log),
		analyzer:  NewAnalyzer(gen, prompts, cfg.Workers, log),
		synth:     NewSynthesizer(gen, prompts, log),
		consensus: NewConsensusEngine(gen, prompts, cfg.MaxAttemptVote, cfg.Workers, log),
		decider:   NewDecider(gen, prompts, log),
		evCache:   evCache,
		evCfg:     evCfg,
		runID:     runID,
		log:       log,
	}
}

// evidenceFor resolves the evidence context for a question through the
// injection gate. The audit block records both the candidate and what was
// actually used so downstream leakage tooling can compare them.
func (p *Pipeline) evidenceFor(q core.Question) (string, *core.EvidenceAudit) {
	if p.evCache == nil {
		return "", nil
	}
	audit := &core.EvidenceAudit{Enabled: true}
	rec, ok := p.evCache.Get(q.Idx)
	if !ok {
		return "", audit
	}
	ctx := evidence.FormatContext(rec, p.evCfg)
	audit.Candidate = ctx
	if ctx == "" {
		return "", audit
	}
	audit.Injected = true
	audit.Used = ctx
	return ctx, audit
}

// Run deliberates one question end to end.
func (p *Pipeline) Run(ctx context.Context, q core.Question) core.ResultRecord {
	started := time.Now()
	log := p.log.WithQuestion(q.Idx)

	evCtx, audit := p.evidenceFor(q)
	if audit != nil {
		log.Debug("evidence gate", "injected", audit.Injected)
	}

	qd := p.router.QuestionDomains(ctx, q)
	od := p.router.OptionDomains(ctx, q)
	log.Debug("domains routed", "question", qd, "option", od)

	qa := p.analyzer.QuestionAnalyses(ctx, q, qd, evCtx)
	oa := p.analyzer.OptionAnalyses(ctx, q, od, qa, evCtx)

	initial := p.synth.Synthesize(ctx, q, qa, oa)

	voters := make(core.DomainSet, 0, len(qd)+len(od))
	voters = append(voters, qd...)
	voters = append(voters, od...)
	outcome := p.consensus.Run(ctx, q, voters, initial)

	dec := p.decider.Decide(ctx, q, outcome.Report)

	log.Info("deliberation finished",
		"answer", dec.Answer,
		"consensus", outcome.State,
		"rounds", len(outcome.VoteHistory),
		"elapsed", time.Since(started).Round(time.Millisecond),
	)

	return core.ResultRecord{
		Idx:              q.Idx,
		RunID:            p.runID,
		Question:         q.Text,
		Options:          q.Options,
		PredAnswer:       dec.Answer,
		GoldAnswer:       q.Gold,
		MetaInfo:         q.MetaInfo,
		QuestionDomains:  qd,
		OptionDomains:    od,
		QuestionAnalyses: qa,
		OptionAnalyses:   oa,
		SynReport:        outcome.Report,
		VoteHistory:      outcome.VoteHistory,
		RevisionHistory:  outcome.RevisionHistory,
		ReportHistory:    outcome.ReportHistory,
		Consensus:        outcome.State,
		RawOutput:        dec.Raw,
		Evidence:         audit,
		CreatedAt:        time.Now().UTC(),
	}
}
