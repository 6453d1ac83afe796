package erasure

import (
	"context"
	"time"
)

type StoreAPI interface {
	AddCompany(ctx context.Context, company Company) (int64, error)
	GetCompany(ctx context.Context, id int64) (Company, error)
	GetCompanyByName(ctx context.Context, name string) (Company, error)
	ListCompanies(ctx context.Context) ([]Company, error)
	UpdateCompany(ctx context.Context, company Company) error

	AddRequest(ctx context.Context, req Request) (int64, error)
	GetRequest(ctx context.Context, id int64) (Request, error)
	ListRequests(ctx context.Context, status RequestStatus) ([]Request, error)
	UpdateRequestStatus(ctx context.Context, id int64, status RequestStatus, note string, at time.Time) error
	RecordResponse(ctx context.Context, id int64, text, note string) error
	SetDeadline(ctx context.Context, id int64, deadline time.Time) error
	// MarkSent returns ErrAlreadySent when the request has left rec.From.
	MarkSent(ctx context.Context, id int64, rec SentRecord) error
	IncrementReminder(ctx context.Context, id int64, at time.Time) error
	ListRequestEvents(ctx context.Context, id int64) ([]RequestEvent, error)

	AddTask(ctx context.Context, task Task) (int64, error)
	GetPendingTasks(ctx context.Context, asOf time.Time) ([]Task, error)
	ListTasks(ctx context.Context, requestID int64) ([]Task, error)
	// ClaimTask stamps executed_at on a pending task that nobody claimed yet.
	// GetPendingTasks skips claimed tasks, so each task runs at most once.
	ClaimTask(ctx context.Context, id int64, at time.Time) error
	UpdateTaskStatus(ctx context.Context, id int64, status TaskStatus, result, errText string, at time.Time) error

	Ping(ctx context.Context) error
}

type Composer interface {
	ComposeDeletionRequest(ctx context.Context, company Company, requester Requester, language string) (Message, error)
	ComposeReminder(ctx context.Context, company Company, originalDate time.Time, requesterName, language string) (Message, error)
	ComposeEscalation(ctx context.Context, company Company, originalDate time.Time, requesterName, language string) (Message, error)
}

// Classifier never fails; implementations degrade to a heuristic instead.
type Classifier interface {
	Classify(ctx context.Context, text string) Analysis
}

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Metrics interface {
	ObserveDelivery(kind string, ok bool)
	ObserveTask(kind TaskKind, status TaskStatus)
}

type noopMetrics struct{}

func (noopMetrics) ObserveDelivery(string, bool) {}
func (noopMetrics) ObserveTask(TaskKind, TaskStatus) {}
