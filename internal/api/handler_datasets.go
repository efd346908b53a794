package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"datashelf/internal/domain"
)

// datasetResponse is the wire form of a dataset.
type datasetResponse struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Description        string `json:"description,omitempty"`
	Organism           string `json:"organism,omitempty"`
	Technology         string `json:"technology,omitempty"`
	Enabled            bool   `json:"enabled"`
	CreatedByAccountID string `json:"created_by_account_id,omitempty"`
	ImageKey           string `json:"image_key,omitempty"`
	CreatedAt          string `json:"created_at"`
	LastModified       string `json:"last_modified"`
}

func datasetToAPI(d domain.Dataset) datasetResponse {
	return datasetResponse{
		ID:                 d.ID,
		Name:               d.Name,
		Description:        d.Description,
		Organism:           d.Organism,
		Technology:         d.Technology,
		Enabled:            d.Enabled,
		CreatedByAccountID: d.CreatedByAccountID,
		ImageKey:           d.ImageKey,
		CreatedAt:          d.CreatedAt.UTC().Format(timeFormat),
		LastModified:       d.LastModified.UTC().Format(timeFormat),
	}
}

func (h *Handler) listDatasets(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	includeDisabled := r.URL.Query().Get("include_disabled") == "true"

	datasets, err := h.datasets.List(r.Context(), p, includeDisabled)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]datasetResponse, len(datasets))
	for i, d := range datasets {
		out[i] = datasetToAPI(d)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func (h *Handler) getDataset(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	d, err := h.datasets.Get(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	setLastModified(w, d.LastModified)
	if notModified(r, d.LastModified) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	h.writeJSON(w, http.StatusOK, datasetToAPI(*d))
}

type createDatasetRequest struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Organism          string   `json:"organism"`
	Technology        string   `json:"technology"`
	Enabled           bool     `json:"enabled"`
	ImageKey          string   `json:"image_key"`
	GrantedAccountIDs []string `json:"granted_account_ids"`
}

func (h *Handler) createDataset(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req createDatasetRequest
	if !h.decode(w, r, &req) {
		return
	}
	d, err := h.datasets.Create(r.Context(), p, domain.CreateDatasetRequest{
		Name:              req.Name,
		Description:       req.Description,
		Organism:          req.Organism,
		Technology:        req.Technology,
		Enabled:           req.Enabled,
		ImageKey:          req.ImageKey,
		GrantedAccountIDs: req.GrantedAccountIDs,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, datasetToAPI(*d))
}

type updateDatasetRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Organism    *string `json:"organism"`
	Technology  *string `json:"technology"`
	Enabled     *bool   `json:"enabled"`
	ImageKey    *string `json:"image_key"`
}

func (h *Handler) updateDataset(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req updateDatasetRequest
	if !h.decode(w, r, &req) {
		return
	}
	d, err := h.datasets.Update(r.Context(), p, chi.URLParam(r, "id"), domain.UpdateDatasetRequest{
		Name:        req.Name,
		Description: req.Description,
		Organism:    req.Organism,
		Technology:  req.Technology,
		Enabled:     req.Enabled,
		ImageKey:    req.ImageKey,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	setLastModified(w, d.LastModified)
	h.writeJSON(w, http.StatusOK, datasetToAPI(*d))
}

func (h *Handler) deleteDataset(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	result, err := h.datasets.Delete(r.Context(), p, chi.URLParam(r, "id"))
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

func (h *Handler) datasetFiles(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	files, err := h.datasets.Files(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	type fileResponse struct {
		ID   string `json:"id"`
		Key  string `json:"key"`
		Name string `json:"name"`
	}
	out := make([]fileResponse, len(files))
	for i, f := range files {
		out[i] = fileResponse{ID: f.ID, Key: f.Key, Name: f.Name}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func (h *Handler) datasetGrants(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	grants, err := h.grants.GrantedAccounts(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"data": grantsToAPI(grants)})
}

type setGrantsRequest struct {
	AccountIDs []string `json:"account_ids"`
}

func (h *Handler) setDatasetGrants(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req setGrantsRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.datasets.SetGrants(r.Context(), p, chi.URLParam(r, "id"),
		req.AccountIDs, guardFromRequest(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"added":   result.Added,
		"removed": result.Removed,
	})
}
