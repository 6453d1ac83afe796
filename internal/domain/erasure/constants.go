package erasure

type RequestStatus string

const (
	StatusDraft        RequestStatus = "draft"
	StatusPending      RequestStatus = "pending"
	StatusSent         RequestStatus = "sent"
	StatusAcknowledged RequestStatus = "acknowledged"
	StatusCompleted    RequestStatus = "completed"
	StatusRejected     RequestStatus = "rejected"
	StatusEscalated    RequestStatus = "escalated"
	StatusFailed       RequestStatus = "failed"
)

var AllStatuses = []RequestStatus{
	StatusDraft,
	StatusPending,
	StatusSent,
	StatusAcknowledged,
	StatusCompleted,
	StatusRejected,
	StatusEscalated,
	StatusFailed,
}

func (s RequestStatus) Valid() bool {
	for _, candidate := range AllStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

func (s RequestStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

type RequestKind string

const (
	KindDeletion      RequestKind = "deletion"      // Art. 17
	KindAccess        RequestKind = "access"        // Art. 15
	KindRectification RequestKind = "rectification" // Art. 16
	KindObjection     RequestKind = "objection"     // Art. 21
)

func (k RequestKind) Valid() bool {
	switch k {
	case KindDeletion, KindAccess, KindRectification, KindObjection:
		return true
	}
	return false
}

type TaskKind string

const (
	TaskSendReminder   TaskKind = "send_reminder"
	TaskSendEscalation TaskKind = "send_escalation"
)

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

type ResponseType string

const (
	ResponseAcknowledged ResponseType = "acknowledged"
	ResponseCompleted    ResponseType = "completed"
	ResponseRejected     ResponseType = "rejected"
	ResponseNeedsInfo    ResponseType = "needs_info"
	ResponseUnknown      ResponseType = "unknown"
)

func ParseResponseType(raw string) (ResponseType, bool) {
	switch t := ResponseType(raw); t {
	case ResponseAcknowledged, ResponseCompleted, ResponseRejected, ResponseNeedsInfo, ResponseUnknown:
		return t, true
	}
	return ResponseUnknown, false
}

// Outcome is what an engine operation did, as opposed to whether it errored.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeUnchanged Outcome = "unchanged"
)

const (
	JobFollowUpTick = "followup_tick"
)
