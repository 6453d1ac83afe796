package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"

	"github.com/LouziusMedia/LoeschMich/internal/domain/erasure"
	"github.com/LouziusMedia/LoeschMich/internal/letter"
)

// keyValues collects repeated --data key=value flags.
type keyValues map[string]string

func (kv keyValues) String() string {
	parts := make([]string, 0, len(kv))
	for k, v := range kv {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func (kv keyValues) Set(raw string) error {
	key, value, ok := strings.Cut(raw, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return errors.Errorf("expected key=value, got %q", raw)
	}
	kv[strings.TrimSpace(key)] = strings.TrimSpace(value)
	return nil
}

type createRequestCommand struct {
	company   string
	requester erasure.Requester
	data      keyValues
	language  string
	send      bool
}

func (c *createRequestCommand) Info() commandInfo {
	return commandInfo{
		Name:    "create-request",
		Args:    "--company <id|name> --name <your name> [--email <address>] [--send]",
		Purpose: "compose a deletion request as a draft, optionally sending it",
	}
}

func (c *createRequestCommand) SetFlags(f *gnuflag.FlagSet) {
	c.data = keyValues{}
	f.StringVar(&c.company, "company", "", "company id or exact name")
	f.StringVar(&c.requester.Name, "name", "", "your full name")
	f.StringVar(&c.requester.Email, "email", "", "your email address")
	f.StringVar(&c.requester.Reason, "reason", "", "optional reason, enables model-polished text")
	f.Var(c.data, "data", "additional identifying data as key=value (repeatable)")
	f.StringVar(&c.language, "lang", "", "letter language (de or en)")
	f.BoolVar(&c.send, "send", false, "send immediately")
}

func (c *createRequestCommand) Init(args []string) error {
	if c.company == "" || strings.TrimSpace(c.requester.Name) == "" {
		return errors.New("--company and --name are required")
	}
	if c.language != "" && c.language != "de" && c.language != "en" {
		return errors.Errorf("--lang must be de or en, got %q", c.language)
	}
	if len(c.data) > 0 {
		c.requester.Data = c.data
	}
	return checkEmpty(args)
}

func (c *createRequestCommand) Run(ctx context.Context, env *environment) error {
	svc, err := env.services(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	company, err := resolveCompany(ctx, svc.Store, c.company)
	if err != nil {
		return errors.Trace(err)
	}
	created, err := svc.Engine.CreateRequest(ctx, erasure.CreateInput{
		CompanyID: company.ID,
		Requester: c.requester,
		Language:  c.language,
		Send:      c.send,
	})
	if err != nil {
		return errors.Trace(err)
	}
	fmt.Fprintf(env.stdout, "request %d created for %s\n", created.RequestID, company.Name)
	switch {
	case created.Sent:
		fmt.Fprintf(env.stdout, "sent to %s\n", company.Email)
	case created.Outcome == erasure.OutcomeFailed:
		fmt.Fprintln(env.stdout, "sending failed; the request is kept, retry with send-request")
	default:
		fmt.Fprintf(env.stdout, "saved as draft; send it with: loeschmich send-request --id %d\n", created.RequestID)
	}
	return nil
}

type sendRequestCommand struct {
	id  int64
	all bool
}

func (c *sendRequestCommand) Info() commandInfo {
	return commandInfo{Name: "send-request", Args: "--id <request> | --all", Purpose: "send a draft or failed request, or all drafts"}
}

func (c *sendRequestCommand) SetFlags(f *gnuflag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "request id")
	f.BoolVar(&c.all, "all", false, "send every draft request")
}

func (c *sendRequestCommand) Init(args []string) error {
	if (c.id > 0) == c.all {
		return errors.New("exactly one of --id or --all is required")
	}
	return checkEmpty(args)
}

func (c *sendRequestCommand) Run(ctx context.Context, env *environment) error {
	svc, err := env.services(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	if !c.all {
		outcome, err := svc.Engine.SendRequest(ctx, c.id)
		if err != nil {
			return errors.Trace(err)
		}
		fmt.Fprintf(env.stdout, "request %d: %s\n", c.id, outcome)
		if outcome == erasure.OutcomeFailed {
			return errors.Errorf("delivery of request %d failed", c.id)
		}
		return nil
	}
	outcomes, err := svc.Engine.SendDrafts(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	if len(outcomes) == 0 {
		fmt.Fprintln(env.stdout, "no drafts to send")
		return nil
	}
	ids := make([]int64, 0, len(outcomes))
	for id := range outcomes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fmt.Fprintf(env.stdout, "request %d: %s\n", id, outcomes[id])
	}
	return nil
}

type statusCommand struct {
	id     int64
	status string
}

func (c *statusCommand) Info() commandInfo {
	return commandInfo{Name: "status", Args: "[--id <request>] [--status <status>]", Purpose: "show requests, or one request with its history"}
}

func (c *statusCommand) SetFlags(f *gnuflag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "request id")
	f.StringVar(&c.status, "status", "", "only list requests in this status")
}

func (c *statusCommand) Init(args []string) error {
	c.status = strings.ToLower(strings.TrimSpace(c.status))
	if c.status != "" && !erasure.RequestStatus(c.status).Valid() {
		return errors.Errorf("unknown status %q", c.status)
	}
	return checkEmpty(args)
}

func (c *statusCommand) Run(ctx context.Context, env *environment) error {
	svc, err := env.services(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	if c.id > 0 {
		return c.showOne(ctx, env, svc.Store)
	}
	requests, err := svc.Store.ListRequests(ctx, erasure.RequestStatus(c.status))
	if err != nil {
		return errors.Trace(err)
	}
	if len(requests) == 0 {
		fmt.Fprintln(env.stdout, "no requests")
		return nil
	}
	rows := make([][]string, 0, len(requests))
	counts := map[erasure.RequestStatus]int{}
	for _, r := range requests {
		counts[r.Status]++
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.CompanyName,
			string(r.Status),
			formatDate(&r.CreatedAt),
			formatDate(r.SentAt),
			strconv.Itoa(r.ReminderCount),
			formatDate(r.Deadline),
		})
	}
	writeTable(env.stdout, []string{"ID", "COMPANY", "STATUS", "CREATED", "SENT", "REMINDERS", "DEADLINE"}, rows)
	fmt.Fprintln(env.stdout)
	summary := make([]string, 0, len(counts))
	for _, s := range erasure.AllStatuses {
		if n := counts[s]; n > 0 {
			summary = append(summary, fmt.Sprintf("%s=%d", s, n))
		}
	}
	fmt.Fprintf(env.stdout, "total %d: %s\n", len(requests), strings.Join(summary, " "))
	return nil
}

func (c *statusCommand) showOne(ctx context.Context, env *environment, store erasure.StoreAPI) error {
	r, err := store.GetRequest(ctx, c.id)
	if err != nil {
		return errors.Trace(err)
	}
	w := env.stdout
	writeTable(w, nil, [][]string{
		{"Request", strconv.FormatInt(r.ID, 10)},
		{"Company", r.CompanyName},
		{"Status", string(r.Status)},
		{"Language", r.Language},
		{"Created", formatTime(&r.CreatedAt)},
		{"Sent", formatTime(r.SentAt)},
		{"Acknowledged", formatTime(r.AcknowledgedAt)},
		{"Completed", formatTime(r.CompletedAt)},
		{"Deadline", formatDate(r.Deadline)},
		{"Reminders", strconv.Itoa(r.ReminderCount)},
		{"Last reminder", formatTime(r.LastReminderAt)},
	})
	if r.Notes != nil && *r.Notes != "" {
		fmt.Fprintf(w, "\nNotes: %s\n", *r.Notes)
	}

	events, err := store.ListRequestEvents(ctx, r.ID)
	if err != nil {
		return errors.Trace(err)
	}
	if len(events) > 0 {
		fmt.Fprintln(w, "\nHistory:")
		rows := make([][]string, 0, len(events))
		for _, ev := range events {
			rows = append(rows, []string{"  " + formatTime(&ev.CreatedAt), string(ev.FromStatus) + " -> " + string(ev.ToStatus), ev.Note})
		}
		writeTable(w, nil, rows)
	}

	tasks, err := store.ListTasks(ctx, r.ID)
	if err != nil {
		return errors.Trace(err)
	}
	if len(tasks) > 0 {
		fmt.Fprintln(w, "\nFollow-ups:")
		rows := make([][]string, 0, len(tasks))
		for _, t := range tasks {
			detail := ""
			if t.Result != nil {
				detail = *t.Result
			}
			if t.Error != nil {
				detail = *t.Error
			}
			rows = append(rows, []string{"  " + string(t.Kind), formatDate(&t.DueAt), string(t.Status), detail})
		}
		writeTable(w, nil, rows)
	}
	return nil
}

type processResponseCommand struct {
	id   int64
	file string
	text string
}

func (c *processResponseCommand) Info() commandInfo {
	return commandInfo{
		Name:    "process-response",
		Args:    "--id <request> [--file <path> | --text <reply>]",
		Purpose: "classify a company's reply and advance the request",
	}
}

func (c *processResponseCommand) SetFlags(f *gnuflag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "request id")
	f.StringVar(&c.file, "file", "", "file with the reply text, - for stdin")
	f.StringVar(&c.text, "text", "", "reply text")
}

func (c *processResponseCommand) Init(args []string) error {
	if c.id <= 0 {
		return errors.New("--id is required")
	}
	if c.file != "" && c.text != "" {
		return errors.New("--file and --text are mutually exclusive")
	}
	return checkEmpty(args)
}

func (c *processResponseCommand) Run(ctx context.Context, env *environment) error {
	text, err := c.readText(env)
	if err != nil {
		return errors.Trace(err)
	}
	svc, err := env.services(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	result, err := svc.Engine.ProcessResponse(ctx, c.id, text)
	if err != nil {
		return errors.Trace(err)
	}
	a := result.Analysis
	writeTable(env.stdout, nil, [][]string{
		{"Type", string(a.Type)},
		{"Summary", a.Summary},
		{"Confidence", fmt.Sprintf("%.0f%%", a.Confidence*100)},
		{"Action", a.SuggestedAction},
		{"Status", fmt.Sprintf("%s -> %s (%s)", result.PreviousStatus, result.Status, result.Outcome)},
	})
	return nil
}

// readText takes the reply from --text, --file, or an interactive prompt that
// ends with a line containing a single ".".
func (c *processResponseCommand) readText(env *environment) (string, error) {
	switch {
	case c.text != "":
		return c.text, nil
	case c.file == "-":
		raw, err := io.ReadAll(env.stdin)
		return string(raw), errors.Trace(err)
	case c.file != "":
		raw, err := os.ReadFile(c.file)
		return string(raw), errors.Trace(err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt: "> ",
		Stdin:  io.NopCloser(env.stdin),
		Stdout: env.stdout,
		Stderr: env.stderr,
	})
	if err != nil {
		return "", errors.Trace(err)
	}
	defer rl.Close()
	fmt.Fprintln(env.stdout, `paste the reply, finish with a line containing only "."`)
	var lines []string
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			return "", errors.New("aborted")
		}
		if errors.Is(err, io.EOF) || strings.TrimSpace(line) == "." {
			break
		}
		if err != nil {
			return "", errors.Trace(err)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

type followUpCommand struct {
	escalate bool
	id       int64
}

func (c *followUpCommand) Info() commandInfo {
	if c.escalate {
		return commandInfo{Name: "escalate", Args: "--id <request>", Purpose: "send the escalation letter now"}
	}
	return commandInfo{Name: "send-reminder", Args: "--id <request>", Purpose: "send a reminder now"}
}

func (c *followUpCommand) SetFlags(f *gnuflag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "request id")
}

func (c *followUpCommand) Init(args []string) error {
	if c.id <= 0 {
		return errors.New("--id is required")
	}
	return checkEmpty(args)
}

func (c *followUpCommand) Run(ctx context.Context, env *environment) error {
	svc, err := env.services(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	send := svc.Engine.SendReminder
	if c.escalate {
		send = svc.Engine.SendEscalation
	}
	outcome, err := send(ctx, c.id)
	if err != nil {
		return errors.Trace(err)
	}
	fmt.Fprintf(env.stdout, "request %d: %s\n", c.id, outcome)
	if outcome == erasure.OutcomeFailed {
		return errors.Errorf("delivery for request %d failed", c.id)
	}
	return nil
}

type exportLetterCommand struct {
	id  int64
	out string
}

func (c *exportLetterCommand) Info() commandInfo {
	return commandInfo{Name: "export-letter", Args: "--id <request> [--out <file.pdf>]", Purpose: "render a request as a printable PDF letter"}
}

func (c *exportLetterCommand) SetFlags(f *gnuflag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "request id")
	f.StringVar(&c.out, "out", "", "output path (default request-<id>.pdf)")
}

func (c *exportLetterCommand) Init(args []string) error {
	if c.id <= 0 {
		return errors.New("--id is required")
	}
	if c.out == "" {
		c.out = fmt.Sprintf("request-%d.pdf", c.id)
	}
	return checkEmpty(args)
}

func (c *exportLetterCommand) Run(ctx context.Context, env *environment) error {
	svc, err := env.services(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	req, err := svc.Store.GetRequest(ctx, c.id)
	if err != nil {
		return errors.Trace(err)
	}
	company, err := svc.Store.GetCompany(ctx, req.CompanyID)
	if err != nil {
		return errors.Trace(err)
	}
	f, err := os.Create(c.out)
	if err != nil {
		return errors.Trace(err)
	}
	if err := letter.Render(f, req, company, svc.Sender(), env.clock.Now()); err != nil {
		_ = f.Close()
		_ = os.Remove(c.out)
		return errors.Trace(err)
	}
	if err := f.Close(); err != nil {
		return errors.Trace(err)
	}
	fmt.Fprintf(env.stdout, "letter written to %s\n", c.out)
	return nil
}
