package erasure

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/juju/errors"
)

func EmptyResponseAnalysis() Analysis {
	return Analysis{
		Type:            ResponseUnknown,
		Summary:         "Empty response",
		ActionRequired:  true,
		SuggestedAction: "Wait for response or send reminder",
		Confidence:      1.0,
	}
}

func (e *Engine) ProcessResponse(ctx context.Context, id int64, raw string) (ResponseResult, error) {
	unlock := e.locks.lock(id)
	defer unlock()

	req, err := e.store.GetRequest(ctx, id)
	if err != nil {
		return ResponseResult{}, errors.Trace(err)
	}
	res := ResponseResult{PreviousStatus: req.Status, Status: req.Status}
	if strings.TrimSpace(raw) == "" {
		res.Analysis = EmptyResponseAnalysis()
	} else {
		res.Analysis = e.classifier.Classify(ctx, raw)
		if _, ok := ParseResponseType(string(res.Analysis.Type)); !ok {
			res.Analysis.Type = ResponseUnknown
		}
	}
	// terminal requests keep their stored reply; the analysis is still returned
	if req.Status.Terminal() {
		res.Outcome = OutcomeSkipped
		return res, nil
	}

	note := fmt.Sprintf("response classified as %s (%.2f): %s", res.Analysis.Type, res.Analysis.Confidence, res.Analysis.Summary)
	next, err := Next(req.Status, ResponseEvent(res.Analysis.Type))
	if err != nil {
		if !errors.Is(err, ErrInvalidTransition) {
			return res, errors.Trace(err)
		}
		if err := e.store.RecordResponse(ctx, id, raw, note+"; status unchanged"); err != nil {
			return res, errors.Trace(err)
		}
		res.Outcome = OutcomeUnchanged
		return res, nil
	}

	if err := e.store.RecordResponse(ctx, id, raw, note); err != nil {
		return res, errors.Trace(err)
	}
	if next == req.Status {
		res.Outcome = OutcomeUnchanged
		return res, nil
	}
	if err := e.store.UpdateRequestStatus(ctx, id, next, note, e.now()); err != nil {
		return res, errors.Trace(err)
	}
	res.Status = next
	res.Outcome = OutcomeSucceeded
	slog.Info("response processed", "requestId", id, "from", req.Status, "to", next, "type", res.Analysis.Type)
	return res, nil
}
