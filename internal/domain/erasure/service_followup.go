package erasure

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/juju/errors"
)

func (e *Engine) SendReminder(ctx context.Context, id int64) (Outcome, error) {
	unlock := e.locks.lock(id)
	defer unlock()
	return reportDelivery(e.remind(ctx, id))
}

func (e *Engine) SendEscalation(ctx context.Context, id int64) (Outcome, error) {
	unlock := e.locks.lock(id)
	defer unlock()
	return reportDelivery(e.escalate(ctx, id))
}

func reportDelivery(outcome Outcome, err error) (Outcome, error) {
	if IsDeliveryError(err) {
		return OutcomeFailed, nil
	}
	return outcome, err
}

func (e *Engine) remind(ctx context.Context, id int64) (Outcome, error) {
	req, company, err := e.loadForFollowUp(ctx, id)
	if err != nil {
		return OutcomeFailed, err
	}
	if req.Status.Terminal() {
		return OutcomeSkipped, nil
	}
	msg, err := e.composer.ComposeReminder(ctx, company, req.ReferenceDate(), req.Requester.Name, req.Language)
	if err != nil {
		return OutcomeFailed, errors.Annotate(err, "composing reminder")
	}
	if err := e.deliver(ctx, "reminder", company.Email, msg); err != nil {
		slog.Warn("reminder delivery failed", "requestId", id, "err", err)
		return OutcomeFailed, err
	}
	if err := e.store.IncrementReminder(ctx, id, e.now()); err != nil {
		return OutcomeFailed, errors.Trace(err)
	}
	return OutcomeSucceeded, nil
}

func (e *Engine) escalate(ctx context.Context, id int64) (Outcome, error) {
	req, company, err := e.loadForFollowUp(ctx, id)
	if err != nil {
		return OutcomeFailed, err
	}
	if req.Status.Terminal() {
		return OutcomeSkipped, nil
	}
	next, err := Next(req.Status, EventEscalated)
	if err != nil {
		// DRAFT and FAILED requests were never delivered
		return OutcomeSkipped, nil
	}
	msg, err := e.composer.ComposeEscalation(ctx, company, req.ReferenceDate(), req.Requester.Name, req.Language)
	if err != nil {
		return OutcomeFailed, errors.Annotate(err, "composing escalation")
	}
	if err := e.deliver(ctx, "escalation", company.Email, msg); err != nil {
		slog.Warn("escalation delivery failed", "requestId", id, "err", err)
		return OutcomeFailed, err
	}
	now := e.now()
	note := fmt.Sprintf("escalated at %s", now.Format("2006-01-02T15:04:05Z07:00"))
	if err := e.store.UpdateRequestStatus(ctx, id, next, note, now); err != nil {
		return OutcomeFailed, errors.Trace(err)
	}
	return OutcomeSucceeded, nil
}

func (e *Engine) deliver(ctx context.Context, kind, to string, msg Message) error {
	err := e.mailer.Send(ctx, to, msg.Subject, msg.Body)
	e.metrics.ObserveDelivery(kind, err == nil)
	if err != nil {
		return &DeliveryError{Kind: kind, Err: err}
	}
	return nil
}

func (e *Engine) loadForFollowUp(ctx context.Context, id int64) (Request, Company, error) {
	req, err := e.store.GetRequest(ctx, id)
	if err != nil {
		return Request{}, Company{}, errors.Trace(err)
	}
	company, err := e.store.GetCompany(ctx, req.CompanyID)
	if err != nil {
		return Request{}, Company{}, errors.Trace(err)
	}
	return req, company, nil
}
