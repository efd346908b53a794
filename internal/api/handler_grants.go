package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"datashelf/internal/domain"
)

type grantResponse struct {
	ID           string `json:"id"`
	AccountID    string `json:"account_id"`
	DatasetID    string `json:"dataset_id"`
	Comment      string `json:"comment,omitempty"`
	CreatedAt    string `json:"created_at"`
	LastModified string `json:"last_modified"`
}

func grantToAPI(g domain.Grant) grantResponse {
	return grantResponse{
		ID:           g.ID,
		AccountID:    g.AccountID,
		DatasetID:    g.DatasetID,
		Comment:      g.Comment,
		CreatedAt:    g.CreatedAt.UTC().Format(timeFormat),
		LastModified: g.LastModified.UTC().Format(timeFormat),
	}
}

func grantsToAPI(grants []domain.Grant) []grantResponse {
	out := make([]grantResponse, len(grants))
	for i, g := range grants {
		out[i] = grantToAPI(g)
	}
	return out
}

func (h *Handler) listGrants(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	page := pageFromQuery(r)

	grants, total, err := h.grants.List(r.Context(), p, page)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"data":            grantsToAPI(grants),
		"total":           total,
		"next_page_token": domain.NextPageToken(page.Offset(), page.Limit(), total),
	})
}

type createGrantRequest struct {
	AccountID string `json:"account_id"`
	DatasetID string `json:"dataset_id"`
	Comment   string `json:"comment"`
}

func (h *Handler) createGrant(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req createGrantRequest
	if !h.decode(w, r, &req) {
		return
	}
	g, err := h.grants.Create(r.Context(), p, domain.CreateGrantRequest{
		AccountID: req.AccountID,
		DatasetID: req.DatasetID,
		Comment:   req.Comment,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, grantToAPI(*g))
}

func (h *Handler) revokeGrant(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	if err := h.grants.Revoke(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
