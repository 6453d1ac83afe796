package erasurehandler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/LouziusMedia/LoeschMich/internal/domain/erasure"
	"github.com/LouziusMedia/LoeschMich/internal/transport/http/api"
	"github.com/LouziusMedia/LoeschMich/internal/transport/http/shared"
)

type runTasksPayload struct {
	AsOf string `json:"asOf"`
}

func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	var reqID int64
	if raw := r.URL.Query().Get("requestId"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			api.Fail(w, http.StatusBadRequest, "invalid_id", "requestId must be a positive integer", requestID(r))
			return
		}
		reqID = parsed
	}
	tasks, err := h.Store.ListTasks(r.Context(), reqID)
	if err != nil {
		api.FailError(w, err, requestID(r))
		return
	}
	status := erasure.TaskStatus(r.URL.Query().Get("status"))
	if status != "" {
		filtered := tasks[:0]
		for _, t := range tasks {
			if t.Status == status {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}
	api.Success(w, paginate(tasks, shared.ParsePagination(r, 100, 500)), requestID(r))
}

// handleRunTasks is the hook for an external scheduler. An empty body runs
// everything due now.
func (h *Handler) handleRunTasks(w http.ResponseWriter, r *http.Request) {
	asOf := h.Clock.Now()
	if r.ContentLength != 0 {
		var payload runTasksPayload
		if !decode(w, r, &payload) {
			return
		}
		if payload.AsOf != "" {
			v := shared.NewValidator()
			parsed, ok := v.Date("asOf", payload.AsOf)
			if !ok {
				v.Reject(w, requestID(r))
				return
			}
			asOf = parsed
		}
	}

	details, err := h.Jobs.RunNow(r.Context(), erasure.JobFollowUpTick, func(ctx context.Context) (any, error) {
		return h.Engine.RunDueTasks(ctx, asOf)
	})
	if err != nil {
		api.FailError(w, err, requestID(r))
		return
	}
	api.Success(w, details, requestID(r))
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, 50, 200)
	runs, err := h.Jobs.Recent(r.Context(), page.Limit)
	if err != nil {
		api.FailError(w, err, requestID(r))
		return
	}
	api.Success(w, runs, requestID(r))
}
