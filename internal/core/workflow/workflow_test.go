package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osamusic/med-regulatory/internal/logging"
	"github.com/osamusic/med-regulatory/internal/models"
	"github.com/osamusic/med-regulatory/internal/testutil"
)

const sampleWorkflow = `### WORKFLOW SUMMARY:
Design requirements flow from the Security Architect to Development Engineers,
with QA verification before handoff.

### WORK INSTRUCTIONS:
**Role: Security Architect**
1. Review threat model
2. Define security requirements
3. Approve architecture
Input: Threat model document
Output: Approved security requirements

**Role: Development Engineer**
1. Implement controls
2. Write unit tests
Input: Approved security requirements
Output: Implemented controls
`

func seedClusteredDoc(t *testing.T, store *testutil.MemStore, id string, phase models.PhaseEnum, role models.RoleEnum, text string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.CreateProcessDocument(ctx, &models.ProcessDocument{
		ID:            id,
		OriginalText:  text,
		ProcessedText: text,
		Subject:       models.SubjectManufacturer,
		Phase:         phase,
		Priority:      models.PriorityShall,
		Role:          role,
		Status:        models.StatusNotStarted,
	}))
	require.NoError(t, store.CreateCluster(ctx, &models.ProcessCluster{ID: "c-" + id, RepText: text}))
	require.NoError(t, store.AssignCluster(ctx, id, "c-"+id))
}

func TestGenerateParsesSections(t *testing.T) {
	store := testutil.NewMemStore()
	seedClusteredDoc(t, store, "p1", models.PhaseDesign, models.RoleSecurityArchitect, "define threat model")
	seedClusteredDoc(t, store, "p2", models.PhaseDesign, models.RoleDevEngineer, "implement secure boot")

	llm := &testutil.ScriptedLLM{Responses: []string{sampleWorkflow}}
	g := NewGenerator(store, llm, logging.Nop())

	result, err := g.Generate(context.Background(), models.PhaseDesign)
	require.NoError(t, err)

	assert.Equal(t, models.PhaseDesign, result.Phase)
	assert.Contains(t, result.Summary, "Security Architect to Development Engineers")
	assert.NotContains(t, result.Summary, "WORK INSTRUCTIONS")

	require.Len(t, result.Instructions, 2)
	sa := result.Instructions[0]
	assert.Equal(t, "Security Architect", sa.Role)
	assert.Equal(t, []string{"Review threat model", "Define security requirements", "Approve architecture"}, sa.Steps)
	assert.Equal(t, "Threat model document", sa.Input)
	assert.Equal(t, "Approved security requirements", sa.Output)

	de := result.Instructions[1]
	assert.Equal(t, "Development Engineer", de.Role)
	assert.Len(t, de.Steps, 2)

	// the prompt carries the phase and the role-tagged statements
	require.Len(t, llm.Prompts, 1)
	assert.Contains(t, llm.Prompts[0], `"Design" phase`)
	assert.Contains(t, llm.Prompts[0], "Security Architect: define threat model")
	assert.Contains(t, llm.Prompts[0], "Development Engineer: implement secure boot")
}

func TestGenerateNoDocumentsForPhase(t *testing.T) {
	g := NewGenerator(testutil.NewMemStore(), &testutil.ScriptedLLM{}, logging.Nop())
	_, err := g.Generate(context.Background(), models.PhaseDisposal)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no clustered requirements")
}

func TestGenerateKeepsRawText(t *testing.T) {
	store := testutil.NewMemStore()
	seedClusteredDoc(t, store, "p1", models.PhaseOperation, models.RoleOpsEngineer, "monitor anomalies")

	raw := "free-form answer without the expected sections"
	g := NewGenerator(store, &testutil.ScriptedLLM{Responses: []string{raw}}, logging.Nop())

	result, err := g.Generate(context.Background(), models.PhaseOperation)
	require.NoError(t, err)
	assert.Equal(t, raw, result.RawText)
	assert.Empty(t, result.Summary)
	assert.Empty(t, result.Instructions)
}
