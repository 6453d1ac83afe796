package classify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/LouziusMedia/LoeschMich/internal/domain/erasure"
)

// Classifier is the single entry point the engine uses. It prefers the
// language model when one is configured and reachable, and falls back to the
// keyword heuristic otherwise.
type Classifier struct {
	model    Model
	fallback Keyword
}

// New returns a Classifier. A nil model means keyword-only.
func New(model Model) *Classifier {
	return &Classifier{model: model}
}

var _ erasure.Classifier = (*Classifier)(nil)

func (c *Classifier) Classify(ctx context.Context, text string) erasure.Analysis {
	if strings.TrimSpace(text) == "" {
		return erasure.EmptyResponseAnalysis()
	}
	if c.model == nil || !c.model.Available(ctx) {
		return c.fallback.Classify(ctx, text)
	}
	analysis, err := LLM{Model: c.model}.Analyze(ctx, text)
	if err != nil {
		slog.Warn("model classification failed, using keywords", "err", err)
		return c.fallback.Classify(ctx, text)
	}
	return analysis
}
