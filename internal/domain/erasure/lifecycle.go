package erasure

import "github.com/juju/errors"

type Event string

const (
	EventSendSucceeded        Event = "send_succeeded"
	EventSendFailed           Event = "send_failed"
	EventResponseAcknowledged Event = "response_acknowledged"
	EventResponseCompleted    Event = "response_completed"
	EventResponseRejected     Event = "response_rejected"
	EventResponseNeedsInfo    Event = "response_needs_info"
	EventResponseUnknown      Event = "response_unknown"
	EventEscalated            Event = "escalated"
)

var responseEvents = map[ResponseType]Event{
	ResponseAcknowledged: EventResponseAcknowledged,
	ResponseCompleted:    EventResponseCompleted,
	ResponseRejected:     EventResponseRejected,
	ResponseNeedsInfo:    EventResponseNeedsInfo,
	ResponseUnknown:      EventResponseUnknown,
}

func ResponseEvent(t ResponseType) Event {
	if ev, ok := responseEvents[t]; ok {
		return ev
	}
	return EventResponseUnknown
}

// transitions is the complete edge set. Anything absent is invalid, and
// COMPLETED/REJECTED deliberately have no entry.
var transitions = map[RequestStatus]map[Event]RequestStatus{
	StatusDraft: {
		EventSendSucceeded: StatusSent,
		EventSendFailed:    StatusFailed,
	},
	// operator retry of a failed send
	StatusFailed: {
		EventSendSucceeded: StatusSent,
		EventSendFailed:    StatusFailed,
	},
	StatusSent:         responseEdges(StatusSent),
	StatusAcknowledged: responseEdges(StatusAcknowledged),
	StatusEscalated:    responseEdges(StatusEscalated),
	StatusPending: {
		EventResponseUnknown: StatusPending,
		EventEscalated:       StatusEscalated,
	},
}

func responseEdges(self RequestStatus) map[Event]RequestStatus {
	return map[Event]RequestStatus{
		EventResponseCompleted:    StatusCompleted,
		EventResponseRejected:     StatusRejected,
		EventResponseAcknowledged: StatusAcknowledged,
		EventResponseNeedsInfo:    StatusPending,
		EventResponseUnknown:      self,
		EventEscalated:            StatusEscalated,
	}
}

// Next returns the status reached from `from` on `ev`.
func Next(from RequestStatus, ev Event) (RequestStatus, error) {
	edges, ok := transitions[from]
	if !ok {
		return from, errors.Annotatef(ErrInvalidTransition, "%s has no outgoing transitions", from)
	}
	to, ok := edges[ev]
	if !ok {
		return from, errors.Annotatef(ErrInvalidTransition, "%s on %s", from, ev)
	}
	return to, nil
}

func CanTransition(from RequestStatus, ev Event) bool {
	_, err := Next(from, ev)
	return err == nil
}

// LifecycleTimestamps maps a status to the request column stamped when the
// status is entered. One status, one column.
var LifecycleTimestamps = map[RequestStatus]string{
	StatusSent:         "sent_at",
	StatusAcknowledged: "acknowledged_at",
	StatusCompleted:    "completed_at",
}
