package compose

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"

	"github.com/LouziusMedia/LoeschMich/internal/domain/erasure"
	"github.com/LouziusMedia/LoeschMich/internal/platform/ollama"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

const dateLayout = "02.01.2006"

var subjects = map[string]map[string]string{
	"deletion": {
		"de": "DSGVO Löschantrag gemäß Art. 17 DSGVO",
		"en": "GDPR Deletion Request according to Art. 17 GDPR",
	},
	"access": {
		"de": "DSGVO Auskunftsantrag gemäß Art. 15 DSGVO",
		"en": "GDPR Access Request according to Art. 15 GDPR",
	},
	"reminder": {
		"de": "Erinnerung: DSGVO Löschantrag",
		"en": "Reminder: GDPR Deletion Request",
	},
	"escalation": {
		"de": "Letzte Mahnung: DSGVO Löschantrag",
		"en": "Final Notice: GDPR Deletion Request",
	},
}

const fallbackSubject = "DSGVO Antrag"

func Subject(kind, language string) string {
	if s, ok := subjects[kind][language]; ok {
		return s
	}
	return fallbackSubject
}

// Generator is the text model used to polish request bodies.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts ollama.GenerateOptions) (string, error)
}

type Composer struct {
	clock     clock.Clock
	generator Generator
}

// New returns a Composer. A nil generator disables enhancement.
func New(clk clock.Clock, generator Generator) *Composer {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Composer{clock: clk, generator: generator}
}

var _ erasure.Composer = (*Composer)(nil)

type templateData struct {
	CompanyName  string
	Name         string
	Email        string
	Reason       string
	Data         map[string]string
	OriginalDate string
	Date         string
}

func (c *Composer) ComposeDeletionRequest(ctx context.Context, company erasure.Company, requester erasure.Requester, language string) (erasure.Message, error) {
	body, err := render("deletion", language, templateData{
		CompanyName: company.Name,
		Name:        requester.Name,
		Email:       requester.Email,
		Reason:      strings.TrimSpace(requester.Reason),
		Data:        requester.Data,
		Date:        c.today(),
	})
	if err != nil {
		return erasure.Message{}, err
	}
	if c.generator != nil && strings.TrimSpace(requester.Reason) != "" {
		body = c.enhance(ctx, body)
	}
	return erasure.Message{Subject: Subject("deletion", language), Body: body}, nil
}

func (c *Composer) ComposeReminder(ctx context.Context, company erasure.Company, originalDate time.Time, requesterName, language string) (erasure.Message, error) {
	return c.followUp("reminder", company, originalDate, requesterName, language)
}

func (c *Composer) ComposeEscalation(ctx context.Context, company erasure.Company, originalDate time.Time, requesterName, language string) (erasure.Message, error) {
	return c.followUp("escalation", company, originalDate, requesterName, language)
}

func (c *Composer) followUp(kind string, company erasure.Company, originalDate time.Time, requesterName, language string) (erasure.Message, error) {
	body, err := render(kind, language, templateData{
		CompanyName:  company.Name,
		Name:         requesterName,
		OriginalDate: originalDate.Format(dateLayout),
		Date:         c.today(),
	})
	if err != nil {
		return erasure.Message{}, err
	}
	return erasure.Message{Subject: Subject(kind, language), Body: body}, nil
}

func (c *Composer) today() string {
	return c.clock.Now().Format(dateLayout)
}

const enhanceSystemPrompt = `Du bist ein Experte für Datenschutzrecht und DSGVO.
Deine Aufgabe ist es, professionelle und rechtlich fundierte Löschanträge zu formulieren.
Behalte die rechtlichen Anforderungen bei, aber verbessere die Formulierung und Begründung.`

const enhancePrompt = `Verbessere folgenden DSGVO-Löschantrag, indem du:
1. Die Begründung präziser und überzeugender formulierst
2. Einen professionellen, aber bestimmten Ton beibehältst
3. Alle rechtlichen Anforderungen beibehältst
4. Die Struktur und formalen Elemente beibehältst

Ursprünglicher Antrag:
%s

Verbesserte Version:`

// enhance asks the model to polish body and returns body unchanged when the
// model is unreachable or answers with nothing usable.
func (c *Composer) enhance(ctx context.Context, body string) string {
	out, err := c.generator.Generate(ctx, fmt.Sprintf(enhancePrompt, body), ollama.GenerateOptions{
		System:      enhanceSystemPrompt,
		Temperature: 0.7,
	})
	if err != nil {
		slog.Warn("request enhancement failed, using template", "err", err)
		return body
	}
	out = ollama.StripThinkBlocks(out)
	if out == "" {
		return body
	}
	return out
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

func render(kind, language string, data templateData) (string, error) {
	name := kind + "_" + language + ".tmpl"
	tmpl := templates.Lookup(name)
	if tmpl == nil {
		if kind != "deletion" && kind != "reminder" && kind != "escalation" {
			return "", errors.NotSupportedf("%s template", kind)
		}
		return "", errors.NotSupportedf("%s template in language %q", kind, language)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.Annotatef(err, "rendering %s", name)
	}
	return blankRuns.ReplaceAllString(buf.String(), "\n\n"), nil
}
