package classify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/juju/errors"

	"github.com/LouziusMedia/LoeschMich/internal/domain/erasure"
	"github.com/LouziusMedia/LoeschMich/internal/platform/ollama"
)

type Model interface {
	Generate(ctx context.Context, prompt string, opts ollama.GenerateOptions) (string, error)
	Available(ctx context.Context) bool
}

const systemPrompt = `Du bist ein Experte für DSGVO und Datenschutzrecht.
Analysiere die Antwort eines Unternehmens auf einen DSGVO-Löschantrag.
Bestimme:
1. Den Typ der Antwort (acknowledged/completed/rejected/needs_info/unknown)
2. Eine kurze Zusammenfassung
3. Ob weitere Aktionen erforderlich sind
4. Welche Aktion empfohlen wird

Antworte im JSON-Format:
{
  "type": "acknowledged|completed|rejected|needs_info|unknown",
  "summary": "Kurze Zusammenfassung",
  "action_required": true|false,
  "suggested_action": "Empfohlene Aktion",
  "confidence": 0.0-1.0
}`

const userPrompt = `Analysiere folgende Unternehmensantwort auf einen DSGVO-Löschantrag:

%s

Analyse (JSON):`

type llmAnalysis struct {
	Type            string   `json:"type"`
	Summary         string   `json:"summary"`
	ActionRequired  *bool    `json:"action_required"`
	SuggestedAction string   `json:"suggested_action"`
	Confidence      *float64 `json:"confidence"`
}

// LLM classifies with a language model. It returns an error whenever the
// model output cannot be used, so callers can fall back.
type LLM struct {
	Model Model
}

func (l LLM) Analyze(ctx context.Context, text string) (erasure.Analysis, error) {
	out, err := l.Model.Generate(ctx, fmt.Sprintf(userPrompt, text), ollama.GenerateOptions{
		System:      systemPrompt,
		Temperature: 0.3,
	})
	if err != nil {
		return erasure.Analysis{}, errors.Trace(err)
	}
	return parseAnalysis(ollama.StripThinkBlocks(out))
}

func parseAnalysis(out string) (erasure.Analysis, error) {
	raw, ok := ollama.ExtractJSONObject(out)
	if !ok {
		return erasure.Analysis{}, errors.NotValidf("model output without JSON object")
	}
	var parsed llmAnalysis
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return erasure.Analysis{}, errors.Annotate(err, "parsing model output")
	}
	typ, ok := erasure.ParseResponseType(parsed.Type)
	if !ok {
		return erasure.Analysis{}, errors.NotValidf("response type %q", parsed.Type)
	}
	analysis := erasure.Analysis{
		Type:            typ,
		Summary:         parsed.Summary,
		ActionRequired:  true,
		SuggestedAction: parsed.SuggestedAction,
		Confidence:      0.5,
	}
	if parsed.ActionRequired != nil {
		analysis.ActionRequired = *parsed.ActionRequired
	}
	if parsed.Confidence != nil {
		analysis.Confidence = clamp(*parsed.Confidence)
	}
	return analysis, nil
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
