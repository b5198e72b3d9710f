package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/osamusic/med-regulatory/internal/core"
)

// ScriptedLLM returns canned responses in order. When Responses run
// out it returns Err when set, otherwise repeats the last response.
type ScriptedLLM struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	Prompts   []string
}

func (l *ScriptedLLM) Complete(_ context.Context, prompt string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Prompts = append(l.Prompts, prompt)
	if len(l.Responses) == 0 {
		if l.Err != nil {
			return "", l.Err
		}
		return "", errors.New("no scripted response")
	}
	resp := l.Responses[0]
	if len(l.Responses) > 1 {
		l.Responses = l.Responses[1:]
	}
	return resp, nil
}

var _ core.LLMProvider = (*ScriptedLLM)(nil)

// MemIndex is an in-memory core.VectorIndex. Retrieve scoring is
// scripted per query text through the Scores func; when unset, exact
// text match scores 1.0 and everything else 0.
type MemIndex struct {
	mu      sync.Mutex
	Entries []core.Scored
	Scores  func(query, text string) float64
}

func (x *MemIndex) Insert(_ context.Context, text string, meta map[string]string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.Entries = append(x.Entries, core.Scored{Text: text, Meta: meta})
	return nil
}

func (x *MemIndex) Retrieve(_ context.Context, query string, topK int) ([]core.Scored, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	score := x.Scores
	if score == nil {
		score = func(q, t string) float64 {
			if q == t {
				return 1.0
			}
			return 0
		}
	}
	out := make([]core.Scored, 0, len(x.Entries))
	for _, e := range x.Entries {
		out = append(out, core.Scored{Text: e.Text, Meta: e.Meta, Score: score(query, e.Text)})
	}
	// highest score first, stable so insertion order breaks ties
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Score > out[j-1].Score; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

var _ core.VectorIndex = (*MemIndex)(nil)
