package deliberate

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"text/template"

	"github.com/medquorum/medquorum/internal/core"
)

//go:embed prompts/*.md.tmpl
var promptsFS embed.FS

// System roles handed to the generation service per stage.
const (
	roleQuestionClassifier = "You are a medical expert who classifies medical questions into the relevant medical specialties."
	roleOptionClassifier   = "You are a medical expert who classifies the answer options of a medical question into the relevant medical specialties."
	roleDomainAnalyst      = "You are a medical expert in the domain of %s. Analyze the given material strictly from your specialty's point of view."
	roleSynthesizer        = "You are a medical expert who integrates analyses from several specialist colleagues into one coherent report."
	roleVoter              = "You are a medical expert in the domain of %s reviewing a synthesized report for your approval."
)

// PromptRenderer renders stage prompts from embedded templates.
type PromptRenderer struct {
	templates map[string]*template.Template
	mu        sync.RWMutex
}

// NewPromptRenderer creates a renderer with all embedded templates loaded.
func NewPromptRenderer() (*PromptRenderer, error) {
	r := &PromptRenderer{
		templates: make(map[string]*template.Template),
	}
	if err := r.loadTemplates(); err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}
	return r, nil
}

func (r *PromptRenderer) loadTemplates() error {
	return fs.WalkDir(promptsFS, "prompts", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md.tmpl") {
			return nil
		}

		content, err := promptsFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		name := strings.TrimPrefix(path, "prompts/")
		name = strings.TrimSuffix(name, ".md.tmpl")

		tmpl, err := template.New(name).Funcs(templateFuncs()).Parse(string(content))
		if err != nil {
			return fmt.Errorf("parsing template %s: %w", name, err)
		}

		r.templates[name] = tmpl
		return nil
	})
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"join":      strings.Join,
		"trimSpace": strings.TrimSpace,
		"add":       func(a, b int) int { return a + b },
	}
}

// Render renders a named template with the given data.
func (r *PromptRenderer) Render(name string, data any) (string, error) {
	r.mu.RLock()
	tmpl, ok := r.templates[name]
	r.mu.RUnlock()
	if !ok {
		return "", core.ErrNotFound("prompt template", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering template %s: %w", name, err)
	}
	return buf.String(), nil
}

// Names returns the loaded template names.
func (r *PromptRenderer) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	return names
}

// renderAnalysesText renders an AnalysisMap as domain-labeled text blocks,
// preceded by the material the analyses refer to.
func renderAnalysesText(kind, subject string, analyses core.AnalysisMap) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n%s\n", kind, subject)
	for _, e := range analyses {
		fmt.Fprintf(&b, "\n[%s analysis, %s]:\n%s\n", kind, e.Domain, e.Analysis)
	}
	return b.String()
}

// renderAdviceText renders revision advice as domain-labeled blocks in a
// stable (sorted) order.
func renderAdviceText(advice core.RevisionAdvice) string {
	domains := make([]string, 0, len(advice))
	for d := range advice {
		domains = append(domains, d)
	}
	sort.Strings(domains)

	var b strings.Builder
	for _, d := range domains {
		fmt.Fprintf(&b, "[%s]:\n%s\n\n", d, advice[d])
	}
	return strings.TrimSpace(b.String())
}
