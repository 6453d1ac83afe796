package erasurehandler

import (
	"io"
	"net/http"
	"strings"

	"github.com/LouziusMedia/LoeschMich/internal/domain/erasure"
	"github.com/LouziusMedia/LoeschMich/internal/platform/db"
	"github.com/LouziusMedia/LoeschMich/internal/transport/http/api"
	"github.com/LouziusMedia/LoeschMich/internal/transport/http/shared"
)

type companyPayload struct {
	Name                  string `json:"name"`
	Email                 string `json:"email"`
	Website               string `json:"website"`
	DataProtectionOfficer string `json:"dataProtectionOfficer"`
	Address               string `json:"address"`
	Notes                 string `json:"notes"`
}

func (p companyPayload) validate() *shared.Validator {
	v := shared.NewValidator()
	v.Required("name", p.Name, "is required")
	v.Required("email", p.Email, "is required")
	v.Email("email", p.Email)
	return v
}

func (p companyPayload) company() erasure.Company {
	return erasure.Company{
		Name:                  strings.TrimSpace(p.Name),
		Email:                 strings.TrimSpace(p.Email),
		Website:               strings.TrimSpace(p.Website),
		DataProtectionOfficer: strings.TrimSpace(p.DataProtectionOfficer),
		Address:               strings.TrimSpace(p.Address),
		Notes:                 strings.TrimSpace(p.Notes),
	}
}

func (h *Handler) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.Store.ListCompanies(r.Context())
	if err != nil {
		api.FailError(w, err, requestID(r))
		return
	}
	api.Success(w, companies, requestID(r))
}

func (h *Handler) handleCreateCompany(w http.ResponseWriter, r *http.Request) {
	var payload companyPayload
	if !decode(w, r, &payload) {
		return
	}
	if payload.validate().Reject(w, requestID(r)) {
		return
	}
	id, err := h.Store.AddCompany(r.Context(), payload.company())
	if err != nil {
		api.FailError(w, err, requestID(r))
		return
	}
	company, err := h.Store.GetCompany(r.Context(), id)
	if err != nil {
		api.FailError(w, err, requestID(r))
		return
	}
	api.Created(w, company, requestID(r))
}

func (h *Handler) handleGetCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "companyID")
	if !ok {
		return
	}
	company, err := h.Store.GetCompany(r.Context(), id)
	if err != nil {
		api.FailError(w, err, requestID(r))
		return
	}
	api.Success(w, company, requestID(r))
}

func (h *Handler) handleUpdateCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "companyID")
	if !ok {
		return
	}
	var payload companyPayload
	if !decode(w, r, &payload) {
		return
	}
	if payload.validate().Reject(w, requestID(r)) {
		return
	}
	company := payload.company()
	company.ID = id
	if err := h.Store.UpdateCompany(r.Context(), company); err != nil {
		api.FailError(w, err, requestID(r))
		return
	}
	updated, err := h.Store.GetCompany(r.Context(), id)
	if err != nil {
		api.FailError(w, err, requestID(r))
		return
	}
	api.Success(w, updated, requestID(r))
}

// handleImportCompanies accepts the same YAML document as the
// import-companies command.
func (h *Handler) handleImportCompanies(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "could not read body", requestID(r))
		return
	}
	companies, err := db.ParseCompanies(raw)
	if err != nil {
		api.FailError(w, err, requestID(r))
		return
	}
	added, updated, err := db.SeedCompanies(r.Context(), h.Store, companies)
	if err != nil {
		api.FailError(w, err, requestID(r))
		return
	}
	api.Success(w, map[string]int{"added": added, "updated": updated}, requestID(r))
}
