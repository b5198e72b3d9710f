package workflow

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/osamusic/med-regulatory/internal/core"
	"github.com/osamusic/med-regulatory/internal/models"
)

const workflowTemplate = `
You are a cybersecurity process designer for medical devices.

Given the following list of requirements for the "{phase}" phase, do the following:
1. For each requirement, group them by responsible role (e.g., Development Engineer, QA, Regulatory Affairs, etc.) and write a 5-step concise work instruction for each.
2. Then, based on all requirements and roles, summarize the overall workflow for this phase as a sequence of steps (as a simple flowchart), showing the order and handoff between roles.

# Requirements List (role: requirement)
{requirements_per_role}

## Output Format
### WORKFLOW SUMMARY:
[Provide a clear workflow summary describing the sequence of activities, role handoffs, and dependencies]

### WORK INSTRUCTIONS:
For each role, provide work instructions in this format:
**Role: [Role Name]**
1. [Step 1]
2. [Step 2]
3. [Step 3]
4. [Step 4]
5. [Step 5]
Input: [Input deliverables]
Output: [Output deliverables]

Repeat for each role involved.
**Ensure that each line and each section is separated by a newline.**
`

// Instruction is one role's step list with its deliverables.
type Instruction struct {
	Role   string   `json:"role"`
	Steps  []string `json:"steps"`
	Input  string   `json:"input,omitempty"`
	Output string   `json:"output,omitempty"`
}

// Result is the generated workflow for one lifecycle phase.
type Result struct {
	Phase        models.PhaseEnum `json:"phase"`
	Summary      string           `json:"summary"`
	Instructions []Instruction    `json:"instructions"`
	RawText      string           `json:"workflow_text"`
}

// Generator turns a phase's clustered guideline statements into a
// role-grouped workflow via one LLM call.
type Generator struct {
	store core.Store
	llm   core.LLMProvider
	log   *zap.SugaredLogger
}

func NewGenerator(store core.Store, llm core.LLMProvider, log *zap.SugaredLogger) *Generator {
	return &Generator{store: store, llm: llm, log: log}
}

// Generate collects the phase's clustered statements grouped by role,
// prompts for a workflow, and parses the sectioned response.
func (g *Generator) Generate(ctx context.Context, phase models.PhaseEnum) (*Result, error) {
	docs, err := g.store.ListClusteredByPhase(ctx, phase)
	if err != nil {
		return nil, fmt.Errorf("load phase documents: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no clustered requirements for phase %q", phase)
	}

	var lines []string
	for _, doc := range docs {
		text := doc.ProcessedText
		if text == "" {
			text = doc.OriginalText
		}
		lines = append(lines, fmt.Sprintf("%s: %s", doc.Role, text))
	}

	prompt := strings.ReplaceAll(workflowTemplate, "{phase}", string(phase))
	prompt = strings.ReplaceAll(prompt, "{requirements_per_role}", strings.Join(lines, "\n"))

	raw, err := g.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("workflow generation: %w", err)
	}

	result := &Result{
		Phase:        phase,
		Summary:      extractSummary(raw),
		Instructions: extractInstructions(raw),
		RawText:      raw,
	}
	g.log.Infow("workflow generated", "phase", phase, "roles", len(result.Instructions))
	return result, nil
}

var (
	roleHeader  = regexp.MustCompile(`\*\*Role:\s*(.+?)\*\*`)
	stepLine    = regexp.MustCompile(`^\d+\.\s*(.+)`)
	inputLine   = regexp.MustCompile(`^Input:\s*(.+)`)
	outputLine  = regexp.MustCompile(`^Output:\s*(.+)`)
	sectionHead = "### "
)

// extractSummary pulls the text between the WORKFLOW SUMMARY header and
// the next section.
func extractSummary(raw string) string {
	var summary []string
	inSummary := false
	for _, line := range strings.Split(raw, "\n") {
		switch {
		case strings.Contains(line, "WORKFLOW SUMMARY:"):
			inSummary = true
		case inSummary && strings.HasPrefix(line, sectionHead):
			return strings.Join(summary, "\n")
		case inSummary && strings.TrimSpace(line) != "":
			summary = append(summary, strings.TrimSpace(line))
		}
	}
	return strings.Join(summary, "\n")
}

// extractInstructions parses the per-role step blocks after the WORK
// INSTRUCTIONS header.
func extractInstructions(raw string) []Instruction {
	var out []Instruction
	var current *Instruction
	inInstructions := false

	flush := func() {
		if current != nil && len(current.Steps) > 0 {
			out = append(out, *current)
		}
		current = nil
	}

	for _, line := range strings.Split(raw, "\n") {
		if strings.Contains(line, "WORK INSTRUCTIONS:") {
			inInstructions = true
			continue
		}
		if !inInstructions {
			continue
		}
		if m := roleHeader.FindStringSubmatch(line); m != nil {
			flush()
			current = &Instruction{Role: strings.TrimSpace(m[1])}
			continue
		}
		if current == nil {
			continue
		}
		if m := stepLine.FindStringSubmatch(line); m != nil {
			current.Steps = append(current.Steps, strings.TrimSpace(m[1]))
			continue
		}
		if m := inputLine.FindStringSubmatch(line); m != nil {
			current.Input = strings.TrimSpace(m[1])
			continue
		}
		if m := outputLine.FindStringSubmatch(line); m != nil {
			current.Output = strings.TrimSpace(m[1])
		}
	}
	flush()
	return out
}
