package erasurehandler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/juju/clock"

	"github.com/LouziusMedia/LoeschMich/internal/auth"
	"github.com/LouziusMedia/LoeschMich/internal/domain/erasure"
	"github.com/LouziusMedia/LoeschMich/internal/letter"
	"github.com/LouziusMedia/LoeschMich/internal/platform/jobs"
	"github.com/LouziusMedia/LoeschMich/internal/transport/http/api"
	"github.com/LouziusMedia/LoeschMich/internal/transport/http/middleware"
)

type Handler struct {
	Engine *erasure.Engine
	Store  erasure.StoreAPI
	Jobs   *jobs.Service
	Sender letter.Sender
	Clock  clock.Clock
}

func NewHandler(engine *erasure.Engine, store erasure.StoreAPI, jobsSvc *jobs.Service, sender letter.Sender, clk clock.Clock) *Handler {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Handler{Engine: engine, Store: store, Jobs: jobsSvc, Sender: sender, Clock: clk}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequireScope(auth.ScopeRead)
	write := middleware.RequireScope(auth.ScopeWrite)

	r.Route("/companies", func(r chi.Router) {
		r.With(read).Get("/", h.handleListCompanies)
		r.With(write).Post("/", h.handleCreateCompany)
		r.With(write).Post("/import", h.handleImportCompanies)
		r.With(read).Get("/{companyID}", h.handleGetCompany)
		r.With(write).Put("/{companyID}", h.handleUpdateCompany)
	})

	r.Route("/requests", func(r chi.Router) {
		r.With(read).Get("/", h.handleListRequests)
		r.With(write).Post("/", h.handleCreateRequest)
		r.With(write).Post("/send", h.handleSendDrafts)
		r.With(read).Get("/{requestID}", h.handleGetRequest)
		r.With(read).Get("/{requestID}/events", h.handleListEvents)
		r.With(read).Get("/{requestID}/tasks", h.handleListRequestTasks)
		r.With(read).Get("/{requestID}/letter", h.handleLetter)
		r.With(write).Post("/{requestID}/send", h.handleSendRequest)
		r.With(write).Post("/{requestID}/responses", h.handleProcessResponse)
		r.With(write).Post("/{requestID}/reminders", h.handleSendReminder)
		r.With(write).Post("/{requestID}/escalations", h.handleSendEscalation)
	})

	r.Route("/tasks", func(r chi.Router) {
		r.With(read).Get("/", h.handleListTasks)
		r.With(write).Post("/run", h.handleRunTasks)
		r.With(read).Get("/runs", h.handleListRuns)
	})
}

func requestID(r *http.Request) string {
	return middleware.GetRequestID(r.Context())
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_id", param+" must be a positive integer", requestID(r))
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID(r))
		return false
	}
	return true
}

type outcomeResponse struct {
	RequestID int64                 `json:"requestId"`
	Outcome   erasure.Outcome       `json:"outcome"`
	Status    erasure.RequestStatus `json:"status,omitempty"`
}

// writeOutcome reports a follow-up or send result together with the status
// the request ended in.
func (h *Handler) writeOutcome(w http.ResponseWriter, r *http.Request, id int64, outcome erasure.Outcome) {
	resp := outcomeResponse{RequestID: id, Outcome: outcome}
	if req, err := h.Store.GetRequest(r.Context(), id); err == nil {
		resp.Status = req.Status
	}
	api.Success(w, resp, requestID(r))
}
