package compose

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	jujuerrors "github.com/juju/errors"

	"github.com/LouziusMedia/LoeschMich/internal/domain/erasure"
	"github.com/LouziusMedia/LoeschMich/internal/platform/ollama"
)

type fakeGenerator struct {
	out    string
	err    error
	calls  int
	prompt string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, opts ollama.GenerateOptions) (string, error) {
	f.calls++
	f.prompt = prompt
	return f.out, f.err
}

var company = erasure.Company{ID: 1, Name: "Beispiel GmbH", Email: "datenschutz@beispiel.test"}

func newComposer(gen Generator) *Composer {
	return New(testclock.NewClock(time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)), gen)
}

func TestDeletionRequestGerman(t *testing.T) {
	c := newComposer(nil)
	msg, err := c.ComposeDeletionRequest(context.Background(), company, erasure.Requester{
		Name:  "Erika Mustermann",
		Email: "erika@example.test",
		Data:  map[string]string{"Kundennummer": "4711"},
	}, "de")
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if msg.Subject != "DSGVO Löschantrag gemäß Art. 17 DSGVO" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	for _, want := range []string{
		"Sehr geehrte Damen und Herren der Beispiel GmbH,",
		"Art. 17 DSGVO",
		"Name: Erika Mustermann",
		"E-Mail: erika@example.test",
		"Kundennummer: 4711",
		"Datum: 04.05.2026",
	} {
		if !strings.Contains(msg.Body, want) {
			t.Fatalf("body missing %q:\n%s", want, msg.Body)
		}
	}
	if strings.Contains(msg.Body, "Begründung") {
		t.Fatal("reason section should be omitted without a reason")
	}
	if strings.Contains(msg.Body, "\n\n\n") {
		t.Fatal("body contains blank line runs")
	}
}

func TestDeletionRequestEnglishWithReason(t *testing.T) {
	c := newComposer(nil)
	msg, err := c.ComposeDeletionRequest(context.Background(), company, erasure.Requester{Name: "Jane", Reason: "No longer a customer"}, "en")
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if msg.Subject != "GDPR Deletion Request according to Art. 17 GDPR" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "Reason: No longer a customer") || !strings.Contains(msg.Body, "Date: 04.05.2026") {
		t.Fatalf("unexpected body:\n%s", msg.Body)
	}
}

func TestFollowUpsUseOriginalDate(t *testing.T) {
	c := newComposer(nil)
	sent := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for _, lang := range []string{"de", "en"} {
		rem, err := c.ComposeReminder(context.Background(), company, sent, "Erika", lang)
		if err != nil {
			t.Fatalf("reminder %s: %v", lang, err)
		}
		if !strings.Contains(rem.Body, "01.03.2026") {
			t.Fatalf("reminder %s lacks original date:\n%s", lang, rem.Body)
		}
		esc, err := c.ComposeEscalation(context.Background(), company, sent, "Erika", lang)
		if err != nil {
			t.Fatalf("escalation %s: %v", lang, err)
		}
		if !strings.Contains(esc.Body, "01.03.2026") {
			t.Fatalf("escalation %s lacks original date:\n%s", lang, esc.Body)
		}
	}
	rem, _ := c.ComposeReminder(context.Background(), company, sent, "Erika", "de")
	if rem.Subject != "Erinnerung: DSGVO Löschantrag" {
		t.Fatalf("unexpected reminder subject %q", rem.Subject)
	}
	esc, _ := c.ComposeEscalation(context.Background(), company, sent, "Erika", "en")
	if esc.Subject != "Final Notice: GDPR Deletion Request" {
		t.Fatalf("unexpected escalation subject %q", esc.Subject)
	}
}

func TestUnknownLanguageNotSupported(t *testing.T) {
	_, err := newComposer(nil).ComposeDeletionRequest(context.Background(), company, erasure.Requester{}, "fr")
	if !jujuerrors.Is(err, jujuerrors.NotSupported) {
		t.Fatalf("expected NotSupported, got %v", err)
	}
}

func TestEnhancementOnlyWithReason(t *testing.T) {
	gen := &fakeGenerator{out: "Verbesserter Antrag"}
	c := newComposer(gen)

	msg, _ := c.ComposeDeletionRequest(context.Background(), company, erasure.Requester{Name: "Erika"}, "de")
	if gen.calls != 0 || strings.Contains(msg.Body, "Verbesserter") {
		t.Fatal("enhancement should not run without a reason")
	}

	msg, _ = c.ComposeDeletionRequest(context.Background(), company, erasure.Requester{Name: "Erika", Reason: "Spam"}, "de")
	if gen.calls != 1 || msg.Body != "Verbesserter Antrag" {
		t.Fatalf("expected enhanced body, got %q", msg.Body)
	}
	if !strings.Contains(gen.prompt, "Begründung: Spam") {
		t.Fatalf("prompt should carry the template:\n%s", gen.prompt)
	}
}

func TestEnhancementFallsBackToTemplate(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("connection refused")}
	msg, err := newComposer(gen).ComposeDeletionRequest(context.Background(), company, erasure.Requester{Reason: "Spam"}, "de")
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if !strings.Contains(msg.Body, "Begründung: Spam") {
		t.Fatalf("expected template body, got:\n%s", msg.Body)
	}
}

func TestSubjectFallback(t *testing.T) {
	if got := Subject("access", "de"); got != "DSGVO Auskunftsantrag gemäß Art. 15 DSGVO" {
		t.Fatalf("unexpected %q", got)
	}
	if got := Subject("objection", "en"); got != fallbackSubject {
		t.Fatalf("unexpected %q", got)
	}
}
