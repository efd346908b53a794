package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"datashelf/internal/domain"
)

type accountResponse struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Role         string `json:"role"`
	Enabled      bool   `json:"enabled"`
	FullName     string `json:"full_name,omitempty"`
	Organization string `json:"organization,omitempty"`
	Email        string `json:"email,omitempty"`
	CreatedAt    string `json:"created_at"`
	LastModified string `json:"last_modified"`
}

func accountToAPI(a domain.Account) accountResponse {
	return accountResponse{
		ID:           a.ID,
		Username:     a.Username,
		Role:         a.Role,
		Enabled:      a.Enabled,
		FullName:     a.FullName,
		Organization: a.Organization,
		Email:        a.Email,
		CreatedAt:    a.CreatedAt.UTC().Format(timeFormat),
		LastModified: a.LastModified.UTC().Format(timeFormat),
	}
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	page := pageFromQuery(r)

	accounts, total, err := h.accounts.List(r.Context(), p, page)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]accountResponse, len(accounts))
	for i, a := range accounts {
		out[i] = accountToAPI(a)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"data":            out,
		"total":           total,
		"next_page_token": domain.NextPageToken(page.Offset(), page.Limit(), total),
	})
}

type createAccountRequest struct {
	Username          string   `json:"username"`
	Password          string   `json:"password"`
	Role              string   `json:"role"`
	Enabled           bool     `json:"enabled"`
	FullName          string   `json:"full_name"`
	Organization      string   `json:"organization"`
	Email             string   `json:"email"`
	GrantedDatasetIDs []string `json:"granted_dataset_ids"`
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req createAccountRequest
	if !h.decode(w, r, &req) {
		return
	}
	a, err := h.accounts.Create(r.Context(), p, domain.CreateAccountRequest{
		Username:          req.Username,
		Password:          req.Password,
		Role:              req.Role,
		Enabled:           req.Enabled,
		FullName:          req.FullName,
		Organization:      req.Organization,
		Email:             req.Email,
		GrantedDatasetIDs: req.GrantedDatasetIDs,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, accountToAPI(*a))
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	a, err := h.accounts.Get(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	setLastModified(w, a.LastModified)
	if notModified(r, a.LastModified) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	h.writeJSON(w, http.StatusOK, accountToAPI(*a))
}

type updateAccountRequest struct {
	Password     *string `json:"password"`
	Role         *string `json:"role"`
	Enabled      *bool   `json:"enabled"`
	FullName     *string `json:"full_name"`
	Organization *string `json:"organization"`
	Email        *string `json:"email"`
}

func (h *Handler) updateAccount(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req updateAccountRequest
	if !h.decode(w, r, &req) {
		return
	}
	a, err := h.accounts.Update(r.Context(), p, chi.URLParam(r, "id"), domain.UpdateAccountRequest{
		Password:     req.Password,
		Role:         req.Role,
		Enabled:      req.Enabled,
		FullName:     req.FullName,
		Organization: req.Organization,
		Email:        req.Email,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	setLastModified(w, a.LastModified)
	h.writeJSON(w, http.StatusOK, accountToAPI(*a))
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	cascade := r.URL.Query().Get("cascade") == "true"

	result, err := h.accounts.Delete(r.Context(), p, chi.URLParam(r, "id"), cascade)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"state":           result.State,
		"completed_steps": result.Completed,
		"removed_grants":  result.RemovedGrants,
		"removed_blobs":   result.RemovedBlobs,
	})
}

func (h *Handler) accountGrants(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	grants, err := h.grants.GrantedDatasets(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"data": grantsToAPI(grants)})
}

type setAccountGrantsRequest struct {
	DatasetIDs []string `json:"dataset_ids"`
}

func (h *Handler) setAccountGrants(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req setAccountGrantsRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.accounts.SetGrants(r.Context(), p, chi.URLParam(r, "id"),
		req.DatasetIDs, guardFromRequest(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"added":   result.Added,
		"removed": result.Removed,
	})
}
