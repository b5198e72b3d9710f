package classifier

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osamusic/med-regulatory/internal/logging"
	"github.com/osamusic/med-regulatory/internal/testutil"
)

func TestClassifyDocumentThreeStages(t *testing.T) {
	llm := &testutil.ScriptedLLM{Responses: []string{
		`{"requirements": [{"id": 1, "type": "technical", "subject": "manufacturer", "text": "encrypt data at rest"}]}`,
		`{"requirements": [{"id": 1, "type": "technical", "subject": "manufacturer", "text": "encrypt data at rest", "category": "data protection"}]}`,
		`{"keywords": [{"keyword": "encryption", "importance": 0.9, "description": "data protection control"}]}`,
	}}
	dc := NewDocumentClassifier(llm, logging.Nop(), 3000)

	result := dc.ClassifyDocument(context.Background(), "Device data shall be encrypted at rest.", DefaultConfig())

	require.Len(t, result.Requirements, 1)
	assert.Equal(t, "data protection", result.Requirements[0].Category)
	require.Len(t, result.Keywords, 1)
	assert.Equal(t, "encryption", result.Keywords[0].Keyword)
	assert.NotEmpty(t, result.Timestamp)

	// classify and keyword stages consume the extract stage's line format
	require.Len(t, llm.Prompts, 3)
	assert.Contains(t, llm.Prompts[1], "1. [manufacturer] [technical] encrypt data at rest")
	assert.Contains(t, llm.Prompts[2], "1. [manufacturer] [technical] encrypt data at rest")
}

func TestClassifyDocumentStageFailureIsContained(t *testing.T) {
	llm := &testutil.ScriptedLLM{Err: errors.New("backend down")}
	dc := NewDocumentClassifier(llm, logging.Nop(), 3000)

	result := dc.ClassifyDocument(context.Background(), "some text", DefaultConfig())

	// a dead backend still yields a well-formed, empty result
	require.NotNil(t, result.Requirements)
	require.NotNil(t, result.Keywords)
	assert.Empty(t, result.Requirements)
	assert.Empty(t, result.Keywords)
}

func TestClassifyDocumentMalformedStageOutput(t *testing.T) {
	llm := &testutil.ScriptedLLM{Responses: []string{
		"I could not find any requirements, sorry!",
		`{"requirements": []}`,
		`{"keywords": [{"keyword": "risk", "importance": 0.5, "description": "d"}]}`,
	}}
	dc := NewDocumentClassifier(llm, logging.Nop(), 3000)

	result := dc.ClassifyDocument(context.Background(), "the raw document text", DefaultConfig())

	assert.Empty(t, result.Requirements)
	require.Len(t, result.Keywords, 1)

	// with no extracted requirements, later stages fall back to the raw text
	assert.Contains(t, llm.Prompts[1], "the raw document text")
}

func TestTruncateBacksToRuneBoundary(t *testing.T) {
	dc := NewDocumentClassifier(&testutil.ScriptedLLM{}, logging.Nop(), 10)

	text := "医療機器のセキュリティ" // 3 bytes per rune
	got := dc.truncate(text)
	assert.LessOrEqual(t, len(got), 10)
	assert.True(t, strings.HasPrefix(text, got))
	for _, r := range got {
		assert.NotEqual(t, '�', r)
	}
}

func TestTruncateShortTextUntouched(t *testing.T) {
	dc := NewDocumentClassifier(&testutil.ScriptedLLM{}, logging.Nop(), 100)
	assert.Equal(t, "short", dc.truncate("short"))
}
