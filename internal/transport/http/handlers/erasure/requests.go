package erasurehandler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/LouziusMedia/LoeschMich/internal/domain/erasure"
	"github.com/LouziusMedia/LoeschMich/internal/letter"
	"github.com/LouziusMedia/LoeschMich/internal/transport/http/api"
	"github.com/LouziusMedia/LoeschMich/internal/transport/http/shared"
)

type requesterPayload struct {
	Name   string            `json:"name"`
	Email  string            `json:"email"`
	Data   map[string]string `json:"data"`
	Reason string            `json:"reason"`
}

type createRequestPayload struct {
	CompanyID int64            `json:"companyId"`
	Kind      string           `json:"kind"`
	Language  string           `json:"language"`
	Send      bool             `json:"send"`
	Requester requesterPayload `json:"requester"`
}

type responsePayload struct {
	Text string `json:"text"`
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var payload createRequestPayload
	if !decode(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.PositiveID("companyId", payload.CompanyID)
	v.Required("requester.name", payload.Requester.Name, "is required")
	v.Email("requester.email", payload.Requester.Email)
	v.Enum("language", payload.Language, []string{"de", "en"}, "must be de or en")
	if v.Reject(w, requestID(r)) {
		return
	}

	created, err := h.Engine.CreateRequest(r.Context(), erasure.CreateInput{
		CompanyID: payload.CompanyID,
		Kind:      erasure.RequestKind(strings.ToLower(strings.TrimSpace(payload.Kind))),
		Language:  payload.Language,
		Send:      payload.Send,
		Requester: erasure.Requester{
			Name:   strings.TrimSpace(payload.Requester.Name),
			Email:  strings.TrimSpace(payload.Requester.Email),
			Data:   payload.Requester.Data,
			Reason: strings.TrimSpace(payload.Requester.Reason),
		},
	})
	if err != nil {
		api.FailError(w, err, requestID(r))
		return
	}
	api.Created(w, created, requestID(r))
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	status := erasure.RequestStatus(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))))
	if status != "" && !status.Valid() {
		api.Fail(w, http.StatusBadRequest, "invalid_status", fmt.Sprintf("unknown status %q", status), requestID(r))
		return
	}
	requests, err := h.Store.ListRequests(r.Context(), status)
	if err != nil {
		api.FailError(w, err, requestID(r))
		return
	}
	page := shared.ParsePagination(r, 100, 500)
	api.Success(w, paginate(requests, page), requestID(r))
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "requestID")
	if !ok {
		return
	}
	req, err := h.Store.GetRequest(r.Context(), id)
	if err != nil {
		api.FailError(w, err, requestID(r))
		return
	}
	api.Success(w, req, requestID(r))
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "requestID")
	if !ok {
		return
	}
	if _, err := h.Store.GetRequest(r.Context(), id); err != nil {
		api.FailError(w, err, requestID(r))
		return
	}
	events, err := h.Store.ListRequestEvents(r.Context(), id)
	if err != nil {
		api.FailError(w, err, requestID(r))
		return
	}
	api.Success(w, events, requestID(r))
}

func (h *Handler) handleListRequestTasks(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "requestID")
	if !ok {
		return
	}
	if _, err := h.Store.GetRequest(r.Context(), id); err != nil {
		api.FailError(w, err, requestID(r))
		return
	}
	tasks, err := h.Store.ListTasks(r.Context(), id)
	if err != nil {
		api.FailError(w, err, requestID(r))
		return
	}
	api.Success(w, tasks, requestID(r))
}

func (h *Handler) handleSendRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "requestID")
	if !ok {
		return
	}
	outcome, err := h.Engine.SendRequest(r.Context(), id)
	if err != nil {
		api.FailError(w, err, requestID(r))
		return
	}
	h.writeOutcome(w, r, id, outcome)
}

func (h *Handler) handleSendDrafts(w http.ResponseWriter, r *http.Request) {
	outcomes, err := h.Engine.SendDrafts(r.Context())
	if err != nil {
		api.FailError(w, err, requestID(r))
		return
	}
	out := make(map[string]erasure.Outcome, len(outcomes))
	for id, outcome := range outcomes {
		out[strconv.FormatInt(id, 10)] = outcome
	}
	api.Success(w, out, requestID(r))
}

func (h *Handler) handleProcessResponse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "requestID")
	if !ok {
		return
	}
	var payload responsePayload
	if !decode(w, r, &payload) {
		return
	}
	result, err := h.Engine.ProcessResponse(r.Context(), id, payload.Text)
	if err != nil {
		api.FailError(w, err, requestID(r))
		return
	}
	api.Success(w, result, requestID(r))
}

func (h *Handler) handleSendReminder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "requestID")
	if !ok {
		return
	}
	outcome, err := h.Engine.SendReminder(r.Context(), id)
	if err != nil {
		api.FailError(w, err, requestID(r))
		return
	}
	h.writeOutcome(w, r, id, outcome)
}

func (h *Handler) handleSendEscalation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "requestID")
	if !ok {
		return
	}
	outcome, err := h.Engine.SendEscalation(r.Context(), id)
	if err != nil {
		api.FailError(w, err, requestID(r))
		return
	}
	h.writeOutcome(w, r, id, outcome)
}

func (h *Handler) handleLetter(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "requestID")
	if !ok {
		return
	}
	req, err := h.Store.GetRequest(r.Context(), id)
	if err != nil {
		api.FailError(w, err, requestID(r))
		return
	}
	company, err := h.Store.GetCompany(r.Context(), req.CompanyID)
	if err != nil {
		api.FailError(w, err, requestID(r))
		return
	}
	var buf bytes.Buffer
	if err := letter.Render(&buf, req, company, h.Sender, h.Clock.Now()); err != nil {
		api.FailError(w, err, requestID(r))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="request-%d.pdf"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func paginate[T any](items []T, page shared.Pagination) []T {
	if page.Offset >= len(items) {
		return []T{}
	}
	end := min(page.Offset+page.Limit, len(items))
	return items[page.Offset:end]
}
