package erasure

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/juju/errors"
)

func (e *Engine) CreateRequest(ctx context.Context, in CreateInput) (Created, error) {
	if in.Kind == "" {
		in.Kind = KindDeletion
	}
	if !in.Kind.Valid() {
		return Created{}, errors.NotValidf("request kind %q", in.Kind)
	}
	if in.Kind != KindDeletion {
		return Created{}, errors.NotSupportedf("composing %s requests", in.Kind)
	}
	lang := strings.ToLower(strings.TrimSpace(in.Language))
	if lang == "" {
		lang = e.policy.DefaultLanguage
	}
	company, err := e.store.GetCompany(ctx, in.CompanyID)
	if err != nil {
		return Created{}, errors.Trace(err)
	}
	msg, err := e.composer.ComposeDeletionRequest(ctx, company, in.Requester, lang)
	if err != nil {
		return Created{}, errors.Annotatef(err, "composing request for %s", company.Name)
	}
	id, err := e.store.AddRequest(ctx, Request{
		CompanyID:   company.ID,
		CompanyName: company.Name,
		Kind:        in.Kind,
		Status:      StatusDraft,
		Language:    lang,
		Subject:     msg.Subject,
		Body:        msg.Body,
		Requester:   in.Requester,
		CreatedAt:   e.now(),
	})
	if err != nil {
		return Created{}, errors.Annotate(err, "storing request")
	}
	out := Created{RequestID: id}
	if !in.Send && !e.policy.AutoSend {
		return out, nil
	}
	outcome, err := e.SendRequest(ctx, id)
	if err != nil {
		// the request exists as a draft; the operator can send it later
		slog.Warn("auto-send failed", "requestId", id, "err", err)
		out.Outcome = OutcomeFailed
		return out, nil
	}
	out.Outcome = outcome
	out.Sent = outcome == OutcomeSucceeded
	return out, nil
}

// SendRequest delivers a DRAFT request, or retries a FAILED one. Calls for
// the same id are serialized.
func (e *Engine) SendRequest(ctx context.Context, id int64) (Outcome, error) {
	unlock := e.locks.lock(id)
	defer unlock()

	req, err := e.store.GetRequest(ctx, id)
	if err != nil {
		return OutcomeFailed, errors.Trace(err)
	}
	if req.Status != StatusDraft && req.Status != StatusFailed {
		return OutcomeSkipped, errors.Annotatef(ErrAlreadySent, "request %d is %s", id, req.Status)
	}
	company, err := e.store.GetCompany(ctx, req.CompanyID)
	if err != nil {
		return OutcomeFailed, errors.Trace(err)
	}

	sendErr := e.deliver(ctx, "request", company.Email, Message{Subject: req.Subject, Body: req.Body})
	now := e.now()
	if sendErr != nil {
		next, err := Next(req.Status, EventSendFailed)
		if err != nil {
			return OutcomeFailed, errors.Trace(err)
		}
		if err := e.store.UpdateRequestStatus(ctx, id, next, sendErr.Error(), now); err != nil {
			return OutcomeFailed, errors.Trace(err)
		}
		slog.Warn("request delivery failed", "requestId", id, "company", company.Name, "err", sendErr)
		return OutcomeFailed, nil
	}

	next, err := Next(req.Status, EventSendSucceeded)
	if err != nil {
		return OutcomeFailed, errors.Trace(err)
	}
	rec := SentRecord{From: req.Status, To: next, At: now, Tasks: e.followUps(id, now)}
	if e.policy.ResponseDeadline > 0 {
		deadline := now.Add(e.policy.ResponseDeadline)
		rec.Deadline = &deadline
	}
	if err := e.store.MarkSent(ctx, id, rec); err != nil {
		if errors.Is(err, ErrAlreadySent) {
			return OutcomeSkipped, errors.Trace(err)
		}
		// the request keeps its status, so a later send starts over
		slog.Error("delivered request not recorded", "requestId", id, "company", company.Name, "err", err)
		return OutcomeFailed, errors.Annotatef(err, "recording delivery of request %d", id)
	}
	slog.Info("request sent", "requestId", id, "company", company.Name)
	return OutcomeSucceeded, nil
}

// SendDrafts sends every DRAFT request. Per-request failures are reported,
// not returned.
func (e *Engine) SendDrafts(ctx context.Context) (map[int64]Outcome, error) {
	drafts, err := e.store.ListRequests(ctx, StatusDraft)
	if err != nil {
		return nil, errors.Trace(err)
	}
	out := make(map[int64]Outcome, len(drafts))
	for _, req := range drafts {
		outcome, err := e.SendRequest(ctx, req.ID)
		if err != nil {
			slog.Warn("send draft failed", "requestId", req.ID, "err", err)
			outcome = OutcomeFailed
		}
		out[req.ID] = outcome
	}
	return out, nil
}

func (e *Engine) followUps(requestID int64, sentAt time.Time) []Task {
	return []Task{
		{RequestID: requestID, Kind: TaskSendReminder, DueAt: sentAt.Add(e.policy.ReminderDelay), Status: TaskPending},
		{RequestID: requestID, Kind: TaskSendEscalation, DueAt: sentAt.Add(e.policy.EscalationDelay), Status: TaskPending},
	}
}
