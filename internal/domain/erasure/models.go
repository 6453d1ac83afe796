package erasure

import "time"

type Company struct {
	ID                    int64     `json:"id" yaml:"-"`
	Name                  string    `json:"name" yaml:"name"`
	Email                 string    `json:"email" yaml:"email"`
	Website               string    `json:"website,omitempty" yaml:"website,omitempty"`
	DataProtectionOfficer string    `json:"dataProtectionOfficer,omitempty" yaml:"dpo,omitempty"`
	Address               string    `json:"address,omitempty" yaml:"address,omitempty"`
	Notes                 string    `json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedAt             time.Time `json:"createdAt" yaml:"-"`
	UpdatedAt             time.Time `json:"updatedAt" yaml:"-"`
}

// Requester identifies the data subject. It only feeds text generation and
// the audit trail; none of it is used for routing.
type Requester struct {
	Name   string            `json:"name,omitempty"`
	Email  string            `json:"email,omitempty"`
	Data   map[string]string `json:"data,omitempty"`
	Reason string            `json:"reason,omitempty"`
}

type Request struct {
	ID             int64         `json:"id"`
	CompanyID      int64         `json:"companyId"`
	CompanyName    string        `json:"companyName"`
	Kind           RequestKind   `json:"kind"`
	Status         RequestStatus `json:"status"`
	Language       string        `json:"language"`
	Subject        string        `json:"subject"`
	Body           string        `json:"body"`
	Requester      Requester     `json:"requester"`
	CreatedAt      time.Time     `json:"createdAt"`
	SentAt         *time.Time    `json:"sentAt,omitempty"`
	AcknowledgedAt *time.Time    `json:"acknowledgedAt,omitempty"`
	CompletedAt    *time.Time    `json:"completedAt,omitempty"`
	Deadline       *time.Time    `json:"deadline,omitempty"`
	ReminderCount  int           `json:"reminderCount"`
	LastReminderAt *time.Time    `json:"lastReminderAt,omitempty"`
	ResponseText   *string       `json:"responseText,omitempty"`
	Notes          *string       `json:"notes,omitempty"`
}

// ReferenceDate is the date follow-up letters cite as the original request.
func (r Request) ReferenceDate() time.Time {
	if r.SentAt != nil {
		return *r.SentAt
	}
	return r.CreatedAt
}

type Task struct {
	ID         int64      `json:"id"`
	RequestID  int64      `json:"requestId"`
	Kind       TaskKind   `json:"kind"`
	DueAt      time.Time  `json:"dueAt"`
	ExecutedAt *time.Time `json:"executedAt,omitempty"`
	Status     TaskStatus `json:"status"`
	Result     *string    `json:"result,omitempty"`
	Error      *string    `json:"error,omitempty"`
}

// SentRecord is everything a successful first delivery persists. Stores
// apply it in one transaction, and only while the request is still in From.
type SentRecord struct {
	From     RequestStatus
	To       RequestStatus
	At       time.Time
	Deadline *time.Time
	Tasks    []Task
}

type RequestEvent struct {
	ID         int64         `json:"id"`
	RequestID  int64         `json:"requestId"`
	FromStatus RequestStatus `json:"fromStatus"`
	ToStatus   RequestStatus `json:"toStatus"`
	Note       string        `json:"note,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
}

type Message struct {
	Subject string
	Body    string
}

type Analysis struct {
	Type            ResponseType `json:"type"`
	Summary         string       `json:"summary"`
	ActionRequired  bool         `json:"actionRequired"`
	SuggestedAction string       `json:"suggestedAction"`
	Confidence      float64      `json:"confidence"`
}

type CreateInput struct {
	CompanyID int64
	Requester Requester
	Kind      RequestKind
	Language  string
	Send      bool
}

type Created struct {
	RequestID int64   `json:"requestId"`
	Sent      bool    `json:"sent"`
	Outcome   Outcome `json:"outcome,omitempty"`
}

type ResponseResult struct {
	Analysis       Analysis      `json:"analysis"`
	Outcome        Outcome       `json:"outcome"`
	PreviousStatus RequestStatus `json:"previousStatus"`
	Status         RequestStatus `json:"status"`
}

type TaskRun struct {
	TaskID    int64      `json:"taskId"`
	RequestID int64      `json:"requestId"`
	Kind      TaskKind   `json:"kind"`
	Status    TaskStatus `json:"status"`
	Result    string     `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
}

type TickReport struct {
	AsOf      time.Time `json:"asOf"`
	Due       int       `json:"due"`
	Completed int       `json:"completed"`
	Failed    int       `json:"failed"`
	Runs      []TaskRun `json:"runs"`
}
