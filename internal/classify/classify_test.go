package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/LouziusMedia/LoeschMich/internal/domain/erasure"
	"github.com/LouziusMedia/LoeschMich/internal/platform/ollama"
)

type fakeModel struct {
	available bool
	out       string
	err       error
	calls     int
}

func (f *fakeModel) Generate(ctx context.Context, prompt string, opts ollama.GenerateOptions) (string, error) {
	f.calls++
	return f.out, f.err
}

func (f *fakeModel) Available(ctx context.Context) bool {
	return f.available
}

func TestKeywordClassification(t *testing.T) {
	cases := []struct {
		text string
		want erasure.ResponseType
		conf float64
	}{
		{"Ihre Daten wurden vollständig gelöscht.", erasure.ResponseCompleted, 0.7},
		{"data has been deleted", erasure.ResponseCompleted, 0.7},
		{"Wir haben Ihre Anfrage erhalten und werden sie bearbeiten.", erasure.ResponseAcknowledged, 0.6},
		{"We cannot comply due to legal obligations.", erasure.ResponseRejected, 0.7},
		{"Aufgrund gesetzlicher Aufbewahrungspflichten ist dies nicht möglich.", erasure.ResponseRejected, 0.7},
		{"Please send proof of identity.", erasure.ResponseNeedsInfo, 0.6},
		{"Vielen Dank für Ihre Nachricht.", erasure.ResponseUnknown, 0.3},
	}
	for _, tc := range cases {
		got := Keyword{}.Classify(context.Background(), tc.text)
		if got.Type != tc.want || got.Confidence != tc.conf {
			t.Fatalf("%q: expected %s/%.1f, got %s/%.1f", tc.text, tc.want, tc.conf, got.Type, got.Confidence)
		}
	}
}

func TestKeywordOrderPrefersCompletion(t *testing.T) {
	got := Keyword{}.Classify(context.Background(), "Wir bestätigen, dass Ihre Daten gelöscht wurden.")
	if got.Type != erasure.ResponseCompleted {
		t.Fatalf("expected completed, got %s", got.Type)
	}
	if got.ActionRequired {
		t.Fatal("completed should not require action")
	}
}

func TestEmptyTextNeverReachesModel(t *testing.T) {
	model := &fakeModel{available: true}
	got := New(model).Classify(context.Background(), "   \n")
	if got.Type != erasure.ResponseUnknown || got.Confidence != 1.0 || !got.ActionRequired {
		t.Fatalf("unexpected analysis %+v", got)
	}
	if model.calls != 0 {
		t.Fatal("model should not be called for empty text")
	}
}

func TestModelAnalysisUsed(t *testing.T) {
	model := &fakeModel{available: true, out: "Hier ist die Analyse:\n```json\n{\"type\": \"needs_info\", \"summary\": \"Ausweis fehlt\", \"action_required\": true, \"suggested_action\": \"Ausweis senden\", \"confidence\": 0.9}\n```"}
	got := New(model).Classify(context.Background(), "Bitte senden Sie uns eine Kopie Ihres Ausweises.")
	if got.Type != erasure.ResponseNeedsInfo || got.Summary != "Ausweis fehlt" || got.Confidence != 0.9 {
		t.Fatalf("unexpected analysis %+v", got)
	}
}

func TestModelConfidenceIsClamped(t *testing.T) {
	model := &fakeModel{available: true, out: `{"type": "rejected", "summary": "?", "confidence": 3}`}
	got := New(model).Classify(context.Background(), "Ihre Daten wurden gelöscht.")
	if got.Type != erasure.ResponseRejected {
		t.Fatalf("expected rejected, got %s", got.Type)
	}
	if got.Confidence != 1 {
		t.Fatalf("expected clamped confidence, got %v", got.Confidence)
	}
}

func TestFallbacks(t *testing.T) {
	text := "Ihre Daten wurden gelöscht."
	for name, model := range map[string]*fakeModel{
		"unavailable": {available: false},
		"error":       {available: true, err: errors.New("timeout")},
		"not json":    {available: true, out: "Die Daten sind weg."},
		"broken json": {available: true, out: "{type: completed"},
		"bad type":    {available: true, out: `{"type": "maybe", "summary": "?"}`},
	} {
		got := New(model).Classify(context.Background(), text)
		if got.Type != erasure.ResponseCompleted || got.Confidence != 0.7 {
			t.Fatalf("%s: expected keyword fallback, got %+v", name, got)
		}
	}
	if got := New(nil).Classify(context.Background(), text); got.Type != erasure.ResponseCompleted {
		t.Fatalf("nil model: unexpected %+v", got)
	}
}
