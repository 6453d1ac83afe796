package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/juju/clock/testclock"

	"github.com/LouziusMedia/LoeschMich/internal/auth"
	"github.com/LouziusMedia/LoeschMich/internal/platform/config"
)

type cli struct {
	t   *testing.T
	dir string
	cfg config.Config
	clk *testclock.Clock
}

func newCLI(t *testing.T) *cli {
	dir := t.TempDir()
	return &cli{
		t:   t,
		dir: dir,
		clk: testclock.NewClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)),
		cfg: config.Config{
			Environment:          "test",
			DatabasePath:         filepath.Join(dir, "data", "requests.db"),
			OperatorTokenSecret:  "cli-test-secret",
			SenderName:           "Max Mustermann",
			SenderEmail:          "max@example.org",
			SMTPRetryAttempts:    1,
			ReminderDelayDays:    14,
			EscalationDelayDays:  30,
			ResponseDeadlineDays: 30,
			DefaultLanguage:      "de",
		},
	}
}

func (c *cli) run(stdin string, args ...string) (int, string, string) {
	c.t.Helper()
	var stdout, stderr bytes.Buffer
	code := runWith(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr, c.cfg, c.clk)
	return code, stdout.String(), stderr.String()
}

func (c *cli) ok(args ...string) string {
	c.t.Helper()
	code, out, errOut := c.run("", args...)
	if code != 0 {
		c.t.Fatalf("%v: exit %d\nstdout: %s\nstderr: %s", args, code, out, errOut)
	}
	return out
}

func TestUsageAndUnknownCommands(t *testing.T) {
	c := newCLI(t)

	code, out, _ := c.run("")
	if code != 2 || !strings.Contains(out, "create-request") {
		t.Fatalf("expected usage with exit 2, got %d: %s", code, out)
	}
	if code, out, _ = c.run("", "help"); code != 0 || !strings.Contains(out, "run-tasks (auto-followup)") {
		t.Fatalf("expected help listing aliases, got %d: %s", code, out)
	}
	if code, _, errOut := c.run("", "shred"); code != 2 || !strings.Contains(errOut, `unknown command "shred"`) {
		t.Fatalf("expected unknown command, got %d: %s", code, errOut)
	}
	if code, _, errOut := c.run("", "create-request", "--company", "Acme"); code != 2 || !strings.Contains(errOut, "usage: loeschmich create-request") {
		t.Fatalf("expected usage error, got %d: %s", code, errOut)
	}
	if code, _, _ := c.run("", "status", "--status", "lost"); code != 2 {
		t.Fatalf("expected invalid status to be a usage error, got %d", code)
	}
	if code, _, _ := c.run("", "send-request", "--id", "1", "--all"); code != 2 {
		t.Fatalf("expected --id and --all to conflict, got %d", code)
	}
}

func TestRequestWorkflowFromTheCommandLine(t *testing.T) {
	c := newCLI(t)

	companies := filepath.Join(c.dir, "companies.yaml")
	doc := "companies:\n  - name: Acme GmbH\n    email: datenschutz@acme.test\n  - name: Müller & Söhne\n    email: dsb@mueller.test\n"
	if err := os.WriteFile(companies, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := c.ok("init", "--companies", companies)
	if !strings.Contains(out, "2 added") || !strings.Contains(out, "SMTP_HOST") {
		t.Fatalf("unexpected init output: %s", out)
	}
	out = c.ok("add-company", "--name", "Beta AG", "--email", "privacy@beta.test", "--dpo", "Dr. Daten")
	if !strings.Contains(out, "company 3 added") {
		t.Fatalf("unexpected add-company output: %s", out)
	}
	out = c.ok("list-companies")
	if !strings.Contains(out, "Müller & Söhne") || !strings.Contains(out, "Dr. Daten") {
		t.Fatalf("unexpected company list: %s", out)
	}

	out = c.ok("create-request", "--company", "Acme GmbH", "--name", "Erika Musterfrau", "--data", "Kundennummer=4711", "--lang", "en")
	if !strings.Contains(out, "request 1 created for Acme GmbH") || !strings.Contains(out, "saved as draft") {
		t.Fatalf("unexpected create output: %s", out)
	}

	// no SMTP server is configured, so delivery fails and the request is kept
	out = c.ok("create-request", "--company", "2", "--name", "Erika Musterfrau", "--send")
	if !strings.Contains(out, "sending failed") {
		t.Fatalf("expected failed send, got: %s", out)
	}
	code, out, errOut := c.run("", "send-request", "--id", "1")
	if code != 1 || !strings.Contains(out, "request 1: failed") || !strings.Contains(errOut, "delivery of request 1 failed") {
		t.Fatalf("expected failed delivery, got %d: %s %s", code, out, errOut)
	}

	out = c.ok("status")
	if !strings.Contains(out, "total 2: failed=2") {
		t.Fatalf("unexpected summary: %s", out)
	}
	out = c.ok("status", "--id", "1")
	if !strings.Contains(out, "draft -> failed") || !strings.Contains(out, "smtp is not configured") {
		t.Fatalf("expected history with cause, got: %s", out)
	}

	code, out, _ = c.run("Vielen Dank, Ihre Daten wurden gelöscht.", "process-response", "--id", "1", "--file", "-")
	if code != 0 || !strings.Contains(out, "completed") || !strings.Contains(out, "failed -> failed (unchanged)") {
		t.Fatalf("expected classification without transition, got %d: %s", code, out)
	}

	out = c.ok("run-tasks", "--as-of", "2024-12-31")
	if !strings.Contains(out, "0 due") {
		t.Fatalf("failed requests have no follow-ups: %s", out)
	}
	out = c.ok("auto-followup")
	if !strings.Contains(out, "0 due") {
		t.Fatalf("alias should run the tick: %s", out)
	}

	pdf := filepath.Join(c.dir, "letter.pdf")
	c.ok("export-letter", "--id", "1", "--out", pdf)
	raw, err := os.ReadFile(pdf)
	if err != nil || !bytes.HasPrefix(raw, []byte("%PDF")) {
		t.Fatalf("expected pdf, got %v", err)
	}

	code, _, errOut = c.run("", "send-reminder", "--id", "99")
	if code != 1 || !strings.Contains(errOut, "not found") {
		t.Fatalf("expected not found, got %d: %s", code, errOut)
	}
}

func TestIssueToken(t *testing.T) {
	c := newCLI(t)
	out := c.ok("issue-token", "--operator", "erika", "--scopes", "read", "--ttl", "1h")
	claims, err := auth.ParseToken(c.cfg.OperatorTokenSecret, strings.TrimSpace(out))
	if err == nil {
		t.Fatalf("token issued at the test clock should already be expired, got %+v", claims)
	}

	c.clk = testclock.NewClock(time.Now())
	out = c.ok("issue-token", "--operator", "erika", "--scopes", "read")
	claims, err = auth.ParseToken(c.cfg.OperatorTokenSecret, strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Operator != "erika" || !claims.HasScope(auth.ScopeRead) || claims.HasScope(auth.ScopeWrite) {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if code, _, _ := c.run("", "issue-token", "--operator", "erika", "--scopes", "admin"); code != 1 {
		t.Fatalf("expected unknown scope to fail, got %d", code)
	}
	c.cfg.OperatorTokenSecret = ""
	if code, _, _ := c.run("", "issue-token", "--operator", "erika"); code != 1 {
		t.Fatalf("expected failure without secret, got %d", code)
	}
}
