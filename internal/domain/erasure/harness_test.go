package erasure_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/juju/errors"

	"github.com/LouziusMedia/LoeschMich/internal/classify"
	"github.com/LouziusMedia/LoeschMich/internal/domain/erasure"
	"github.com/LouziusMedia/LoeschMich/internal/domain/erasure/litestore"
	"github.com/LouziusMedia/LoeschMich/internal/platform/db"
)

var epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type fakeMailer struct {
	mu      sync.Mutex
	delay   time.Duration
	failAll bool
	failTo  map[string]bool
	sent    []sentMail
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll || m.failTo[to] {
		return fmt.Errorf("smtp: 451 mailbox %s unavailable", to)
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fakeComposer struct {
	panicFor string
}

func (c *fakeComposer) ComposeDeletionRequest(ctx context.Context, company erasure.Company, requester erasure.Requester, language string) (erasure.Message, error) {
	return erasure.Message{
		Subject: "Antrag auf Löschung " + requester.Name,
		Body:    fmt.Sprintf("[%s] An %s: bitte löschen Sie die Daten von %s.", language, company.Name, requester.Name),
	}, nil
}

func (c *fakeComposer) ComposeReminder(ctx context.Context, company erasure.Company, originalDate time.Time, requesterName, language string) (erasure.Message, error) {
	if company.Name == c.panicFor {
		panic("template exploded")
	}
	return erasure.Message{
		Subject: "Erinnerung",
		Body:    fmt.Sprintf("[%s] reminder for request of %s", language, originalDate.Format("02.01.2006")),
	}, nil
}

func (c *fakeComposer) ComposeEscalation(ctx context.Context, company erasure.Company, originalDate time.Time, requesterName, language string) (erasure.Message, error) {
	if company.Name == c.panicFor {
		panic("template exploded")
	}
	return erasure.Message{
		Subject: "Letzte Aufforderung",
		Body:    fmt.Sprintf("[%s] escalation for request of %s", language, originalDate.Format("02.01.2006")),
	}, nil
}

// countingClassifier delegates to the keyword heuristic and counts calls.
type countingClassifier struct {
	calls int
	inner erasure.Classifier
}

func (c *countingClassifier) Classify(ctx context.Context, text string) erasure.Analysis {
	c.calls++
	return c.inner.Classify(ctx, text)
}

type recordingMetrics struct {
	deliveries map[string]int
	tasks      map[erasure.TaskStatus]int
}

func (m *recordingMetrics) ObserveDelivery(kind string, ok bool) {
	m.deliveries[fmt.Sprintf("%s/%t", kind, ok)]++
}

func (m *recordingMetrics) ObserveTask(kind erasure.TaskKind, status erasure.TaskStatus) {
	m.tasks[status]++
}

// faultyStore passes through to a real store and fails chosen writes.
type faultyStore struct {
	erasure.StoreAPI
	mu             sync.Mutex
	failMarkSent   int
	failTaskStatus bool
}

var errDiskFull = errors.New("disk full")

func (s *faultyStore) MarkSent(ctx context.Context, id int64, rec erasure.SentRecord) error {
	s.mu.Lock()
	fail := s.failMarkSent > 0
	if fail {
		s.failMarkSent--
	}
	s.mu.Unlock()
	if fail {
		return errDiskFull
	}
	return s.StoreAPI.MarkSent(ctx, id, rec)
}

func (s *faultyStore) UpdateTaskStatus(ctx context.Context, id int64, status erasure.TaskStatus, result, errText string, at time.Time) error {
	s.mu.Lock()
	fail := s.failTaskStatus
	s.mu.Unlock()
	if fail {
		return errDiskFull
	}
	return s.StoreAPI.UpdateTaskStatus(ctx, id, status, result, errText, at)
}

type harness struct {
	ctx        context.Context
	store      *litestore.Store
	faults     *faultyStore
	engine     *erasure.Engine
	mailer     *fakeMailer
	composer   *fakeComposer
	classifier *countingClassifier
	metrics    *recordingMetrics
	clock      *testclock.Clock
	policy     erasure.Policy
}

func newHarness(t *testing.T, mutate ...func(*erasure.Policy)) *harness {
	t.Helper()
	ctx := context.Background()
	handle, err := db.OpenSQLite(ctx, filepath.Join(t.TempDir(), "requests.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = handle.Close() })
	if err := db.MigrateSQLite(ctx, handle); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	h := &harness{
		ctx:        ctx,
		store:      litestore.New(handle, nil),
		mailer:     &fakeMailer{failTo: map[string]bool{}},
		composer:   &fakeComposer{},
		classifier: &countingClassifier{inner: classify.New(nil)},
		metrics:    &recordingMetrics{deliveries: map[string]int{}, tasks: map[erasure.TaskStatus]int{}},
		clock:      testclock.NewClock(epoch),
		policy:     erasure.DefaultPolicy(),
	}
	for _, fn := range mutate {
		fn(&h.policy)
	}
	h.faults = &faultyStore{StoreAPI: h.store}
	h.engine, err = erasure.NewEngine(erasure.Deps{
		Store:      h.faults,
		Composer:   h.composer,
		Classifier: h.classifier,
		Mailer:     h.mailer,
		Clock:      h.clock,
		Metrics:    h.metrics,
	}, h.policy)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return h
}

func (h *harness) company(t *testing.T, name, email string) int64 {
	t.Helper()
	id, err := h.store.AddCompany(h.ctx, erasure.Company{Name: name, Email: email})
	if err != nil {
		t.Fatalf("add company: %v", err)
	}
	return id
}

func (h *harness) create(t *testing.T, companyID int64, send bool) erasure.Created {
	t.Helper()
	created, err := h.engine.CreateRequest(h.ctx, erasure.CreateInput{
		CompanyID: companyID,
		Requester: erasure.Requester{Name: "Max Mustermann", Email: "max@example.org", Data: map[string]string{"Kundennummer": "4711"}},
		Send:      send,
	})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	return created
}

func (h *harness) request(t *testing.T, id int64) erasure.Request {
	t.Helper()
	req, err := h.store.GetRequest(h.ctx, id)
	if err != nil {
		t.Fatalf("get request %d: %v", id, err)
	}
	return req
}

func (h *harness) tasks(t *testing.T, requestID int64) []erasure.Task {
	t.Helper()
	tasks, err := h.store.ListTasks(h.ctx, requestID)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	return tasks
}

// assertValidHistory checks that every recorded status change is an edge
// of the lifecycle table, starting from DRAFT.
func (h *harness) assertValidHistory(t *testing.T, requestID int64) {
	t.Helper()
	events, err := h.store.ListRequestEvents(h.ctx, requestID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	current := erasure.StatusDraft
	for _, ev := range events {
		if ev.FromStatus != current {
			t.Fatalf("event %d starts at %s, request was %s", ev.ID, ev.FromStatus, current)
		}
		if !isEdge(ev.FromStatus, ev.ToStatus) {
			t.Fatalf("event %d records invalid edge %s -> %s", ev.ID, ev.FromStatus, ev.ToStatus)
		}
		current = ev.ToStatus
	}
	if got := h.request(t, requestID).Status; got != current {
		t.Fatalf("request status %s does not match history end %s", got, current)
	}
}

var allEvents = []erasure.Event{
	erasure.EventSendSucceeded,
	erasure.EventSendFailed,
	erasure.EventResponseAcknowledged,
	erasure.EventResponseCompleted,
	erasure.EventResponseRejected,
	erasure.EventResponseNeedsInfo,
	erasure.EventResponseUnknown,
	erasure.EventEscalated,
}

func isEdge(from, to erasure.RequestStatus) bool {
	for _, ev := range allEvents {
		if next, err := erasure.Next(from, ev); err == nil && next == to {
			return true
		}
	}
	return false
}
