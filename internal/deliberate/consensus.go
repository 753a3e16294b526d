package deliberate

import (
	"context"
	"fmt"
	"regexp"

	"golang.org/x/sync/errgroup"

	"github.com/medquorum/medquorum/internal/core"
	"github.com/medquorum/medquorum/internal/logging"
	"github.com/medquorum/medquorum/internal/report"
)

const (
	voteMaxTokens     = 30
	adviceMaxTokens   = 500
	revisionMaxTokens = 2500

	// DefaultMaxAttempts bounds the vote/revise loop.
	DefaultMaxAttempts = 3
)

// ConsensusEngine implements Stage 4: the bounded vote/revise loop that
// drives the synthesized report to convergence or exhausts its attempts.
type ConsensusEngine struct {
	gen         core.Generator
	prompts     *PromptRenderer
	maxAttempts int
	workers     int
	log         *logging.Logger
}

// NewConsensusEngine creates a Stage 4 engine. maxAttempts bounds the number
// of voting rounds; workers bounds the per-domain fan-out within a round.
func NewConsensusEngine(gen core.Generator, prompts *PromptRenderer, maxAttempts, workers int, log *logging.Logger) *ConsensusEngine {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	if workers < 1 {
		workers = 1
	}
	return &ConsensusEngine{
		gen:         gen,
		prompts:     prompts,
		maxAttempts: maxAttempts,
		workers:     workers,
		log:         log,
	}
}

// ConsensusOutcome is the result of running the consensus loop.
type ConsensusOutcome struct {
	Report          string
	State           core.ConsensusState
	VoteHistory     []core.VoteRecord
	RevisionHistory []core.RevisionAdvice
	ReportHistory   []string
}

var (
	yesTokenRe = regexp.MustCompile(`(?i)\byes\b`)
	noTokenRe  = regexp.MustCompile(`(?i)\bno\b`)
)

// classifyOpinion reduces a free-form vote response to a binary opinion.
// An unrecognizable response, including the failure sentinel, counts as
// affirmative so a dead generator cannot trap the loop in endless revision.
func classifyOpinion(raw string) core.Opinion {
	if yesTokenRe.MatchString(raw) {
		return core.OpinionYes
	}
	if noTokenRe.MatchString(raw) {
		return core.OpinionNo
	}
	return core.OpinionYes
}

// Run executes the consensus loop over the union of question and option
// domains, order preserved and duplicates kept: a domain listed twice votes
// twice per round, and its later ballot overwrites the earlier one in the
// round's VoteRecord.
//
// An empty domain list converges vacuously on round one. Exhaustion is not
// an error: the outcome carries the last report version and the full
// histories either way.
func (e *ConsensusEngine) Run(ctx context.Context, q core.Question, domains core.DomainSet, initial string) ConsensusOutcome {
	out := ConsensusOutcome{
		Report:        initial,
		State:         core.ConsensusExhausted,
		ReportHistory: []string{initial},
	}

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		ballots := e.collectVotes(ctx, domains, out.Report)

		rec := make(core.VoteRecord, len(domains))
		hasNo := false
		for i, domain := range domains {
			rec[domain] = ballots[i]
			if ballots[i] == core.OpinionNo {
				hasNo = true
			}
		}
		out.VoteHistory = append(out.VoteHistory, rec)

		if !hasNo {
			out.State = core.ConsensusConverged
			e.log.Debug("consensus converged", "idx", q.Idx, "round", attempt)
			return out
		}

		advice := e.collectAdvice(ctx, domains, ballots, out.Report)
		out.Report = e.revise(ctx, q, out.Report, advice)
		out.RevisionHistory = append(out.RevisionHistory, advice)
		out.ReportHistory = append(out.ReportHistory, out.Report)
		e.log.Debug("report revised", "idx", q.Idx, "round", attempt, "dissenting", len(advice))
	}

	e.log.Warn("consensus exhausted", "idx", q.Idx, "rounds", e.maxAttempts)
	return out
}

// collectVotes solicits one vote per domain occurrence, returning ballots
// indexed by domain position.
func (e *ConsensusEngine) collectVotes(ctx context.Context, domains core.DomainSet, current string) []core.Opinion {
	ballots := make([]core.Opinion, len(domains))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, domain := range domains {
		i, domain := i, domain
		g.Go(func() error {
			prompt, err := e.prompts.Render("vote", map[string]any{
				"Domain": domain,
				"Report": current,
			})
			if err != nil {
				e.log.Error("rendering vote prompt", "domain", domain, "error", err)
				ballots[i] = core.OpinionYes
				return nil
			}
			raw := e.gen.Call(gctx, core.CallOptions{
				Stage:      core.StageVote,
				SystemRole: fmt.Sprintf(roleVoter, domain),
				UserInput:  prompt,
				MaxTokens:  voteMaxTokens,
			})
			ballots[i] = classifyOpinion(raw)
			return nil
		})
	}
	_ = g.Wait()
	return ballots
}

// collectAdvice requests revision advice from every domain occurrence that
// voted no, keyed by domain with the later occurrence winning.
func (e *ConsensusEngine) collectAdvice(ctx context.Context, domains core.DomainSet, ballots []core.Opinion, current string) core.RevisionAdvice {
	texts := make([]string, len(domains))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, domain := range domains {
		if ballots[i] != core.OpinionNo {
			continue
		}
		i, domain := i, domain
		g.Go(func() error {
			prompt, err := e.prompts.Render("advice", map[string]any{
				"Domain": domain,
				"Report": current,
			})
			if err != nil {
				e.log.Error("rendering advice prompt", "domain", domain, "error", err)
				return nil
			}
			texts[i] = e.gen.Call(gctx, core.CallOptions{
				Stage:      core.StageAdvice,
				SystemRole: fmt.Sprintf(roleVoter, domain),
				UserInput:  prompt,
				MaxTokens:  adviceMaxTokens,
			})
			return nil
		})
	}
	_ = g.Wait()

	advice := make(core.RevisionAdvice)
	for i, domain := range domains {
		if ballots[i] == core.OpinionNo {
			advice[domain] = texts[i]
		}
	}
	return advice
}

// revise issues the combined revision call and parses the draft into the
// next report version. A failed call yields the no-report marker composed
// into a well-formed report, never the raw sentinel.
func (e *ConsensusEngine) revise(ctx context.Context, q core.Question, current string, advice core.RevisionAdvice) string {
	prompt, err := e.prompts.Render("revision", map[string]any{
		"Report": current,
		"Advice": renderAdviceText(advice),
	})
	if err != nil {
		e.log.Error("rendering revision prompt", "error", err)
		return current
	}

	raw := e.gen.Call(ctx, core.CallOptions{
		Stage:     core.StageRevision,
		UserInput: prompt,
		MaxTokens: revisionMaxTokens,
	})
	return report.ParseAndCompose(q, raw)
}
