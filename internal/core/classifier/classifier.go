package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/osamusic/med-regulatory/internal/core"
)

// KeywordConfig bounds the keyword extraction stage.
type KeywordConfig struct {
	MinKeywordLength int `json:"min_keyword_length"`
	MaxKeywords      int `json:"max_keywords"`
}

// Config carries per-run classification settings.
type Config struct {
	Keyword KeywordConfig `json:"keyword_config"`
}

func DefaultConfig() Config {
	return Config{Keyword: KeywordConfig{MinKeywordLength: 3, MaxKeywords: 10}}
}

// Requirement is one extracted security requirement. Category is only
// set by the classify stage.
type Requirement struct {
	ID       int    `json:"id"`
	Type     string `json:"type"`
	Subject  string `json:"subject"`
	Text     string `json:"text"`
	Category string `json:"category,omitempty"`
}

// Keyword is one extracted keyword with its weighted relevance.
type Keyword struct {
	Keyword     string  `json:"keyword"`
	Importance  float64 `json:"importance"`
	Description string  `json:"description"`
}

// Result is one document's classification output. Requirements and
// Keywords are always non-nil so the persisted JSON always carries both
// arrays, empty or not.
type Result struct {
	Timestamp    string        `json:"timestamp"`
	Requirements []Requirement `json:"requirements"`
	Keywords     []Keyword     `json:"keywords"`
}

// DocumentClassifier runs the three-stage LLM extraction over one
// document's text. Stages are isolated: a failed stage contributes an
// empty list, never an error.
type DocumentClassifier struct {
	llm           core.LLMProvider
	log           *zap.SugaredLogger
	maxPromptSize int
}

func NewDocumentClassifier(llm core.LLMProvider, log *zap.SugaredLogger, maxPromptSize int) *DocumentClassifier {
	if maxPromptSize <= 0 {
		maxPromptSize = 3000
	}
	return &DocumentClassifier{llm: llm, log: log, maxPromptSize: maxPromptSize}
}

// ClassifyDocument runs extract, classify and keywords in sequence.
// The classify and keyword stages consume the consolidated requirement
// lines from the extract stage, falling back to the raw document text
// when extraction produced nothing.
func (c *DocumentClassifier) ClassifyDocument(ctx context.Context, documentText string, cfg Config) Result {
	result := Result{
		Timestamp:    time.Now().Format(time.RFC3339),
		Requirements: []Requirement{},
		Keywords:     []Keyword{},
	}

	reqs := c.extractStage(ctx, documentText)

	textForNext := reqListToString(reqs)
	if textForNext == "" {
		textForNext = documentText
	}
	result.Requirements = c.classifyStage(ctx, textForNext)
	result.Keywords = c.keywordStage(ctx, textForNext, cfg.Keyword)

	return result
}

func (c *DocumentClassifier) extractStage(ctx context.Context, text string) []Requirement {
	raw, err := c.llm.Complete(ctx, buildExtractPrompt(c.truncate(text)))
	if err != nil {
		c.log.Errorw("extract stage failed", "error", err)
		return []Requirement{}
	}
	return parseRequirements(raw, c.log, "extract")
}

func (c *DocumentClassifier) classifyStage(ctx context.Context, text string) []Requirement {
	raw, err := c.llm.Complete(ctx, buildClassifyPrompt(c.truncate(text)))
	if err != nil {
		c.log.Errorw("classify stage failed", "error", err)
		return []Requirement{}
	}
	return parseRequirements(raw, c.log, "classify")
}

func (c *DocumentClassifier) keywordStage(ctx context.Context, text string, kw KeywordConfig) []Keyword {
	raw, err := c.llm.Complete(ctx, buildKeywordsPrompt(c.truncate(text), kw.MinKeywordLength, kw.MaxKeywords))
	if err != nil {
		c.log.Errorw("keywords stage failed", "error", err)
		return []Keyword{}
	}
	var out struct {
		Keywords []Keyword `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(NormalizeJSON(raw)), &out); err != nil {
		c.log.Errorw("keywords parse failed", "error", err)
		return []Keyword{}
	}
	if out.Keywords == nil {
		return []Keyword{}
	}
	return out.Keywords
}

func parseRequirements(raw string, log *zap.SugaredLogger, stage string) []Requirement {
	var out struct {
		Requirements []Requirement `json:"requirements"`
	}
	if err := json.Unmarshal([]byte(NormalizeJSON(raw)), &out); err != nil {
		log.Errorw("stage parse failed", "stage", stage, "error", err)
		return []Requirement{}
	}
	if out.Requirements == nil {
		return []Requirement{}
	}
	return out.Requirements
}

// reqListToString renders requirements as "id. [subject] [type] text"
// lines, the interchange format between stages.
func reqListToString(reqs []Requirement) string {
	lines := make([]string, 0, len(reqs))
	for _, r := range reqs {
		lines = append(lines, fmt.Sprintf("%d. [%s] [%s] %s", r.ID, r.Subject, r.Type, r.Text))
	}
	return strings.Join(lines, "\n")
}

// truncate caps the snippet passed to any LLM call at the configured
// byte budget, backing up to a rune boundary. Keeps sequential cost
// bounded regardless of document size.
func (c *DocumentClassifier) truncate(text string) string {
	if len(text) <= c.maxPromptSize {
		return text
	}
	cut := c.maxPromptSize
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
