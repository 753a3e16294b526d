package deliberate

import (
	"context"
	"sync"
	"testing"

	"github.com/medquorum/medquorum/internal/core"
)

// fakeGen is a scripted Generator: handler decides the response per call,
// and every call is recorded for assertions.
type fakeGen struct {
	mu      sync.Mutex
	calls   []core.CallOptions
	handler func(opts core.CallOptions) string
}

func (g *fakeGen) Call(_ context.Context, opts core.CallOptions) string {
	g.mu.Lock()
	g.calls = append(g.calls, opts)
	g.mu.Unlock()
	if g.handler == nil {
		return core.FailureSentinel
	}
	return g.handler(opts)
}

func (g *fakeGen) Ping(context.Context) error { return nil }

// callsFor returns the recorded calls for one stage.
func (g *fakeGen) callsFor(stage core.Stage) []core.CallOptions {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []core.CallOptions
	for _, c := range g.calls {
		if c.Stage == stage {
			out = append(out, c)
		}
	}
	return out
}

func newTestPrompts(t *testing.T) *PromptRenderer {
	t.Helper()
	prompts, err := NewPromptRenderer()
	if err != nil {
		t.Fatalf("NewPromptRenderer: %v", err)
	}
	return prompts
}

func testQuestion() core.Question {
	return core.Question{
		Idx:  7,
		Text: "A 62-year-old man presents with crushing chest pain. Which drug is first line?",
		Options: []core.Option{
			{Label: "A", Text: "aspirin"},
			{Label: "B", Text: "amoxicillin"},
			{Label: "C", Text: "loratadine"},
		},
		Gold:     "A",
		MetaInfo: "step1",
	}
}
