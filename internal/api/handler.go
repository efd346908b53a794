// Package api provides the HTTP handlers for the datashelf REST API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"datashelf/internal/domain"
	"datashelf/internal/service"
)

// timeFormat is the wire format for entity timestamps.
const timeFormat = time.RFC3339

// Handler serves the /api/v1 surface.
type Handler struct {
	accounts *service.AccountService
	datasets *service.DatasetService
	grants   *service.GrantService
	logger   *slog.Logger
}

// NewHandler creates a Handler with its service dependencies.
func NewHandler(
	accounts *service.AccountService,
	datasets *service.DatasetService,
	grants *service.GrantService,
	logger *slog.Logger,
) *Handler {
	return &Handler{accounts: accounts, datasets: datasets, grants: grants, logger: logger}
}

// Routes mounts all authenticated API routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", h.listAccounts)
		r.Post("/", h.createAccount)
		r.Get("/{id}", h.getAccount)
		r.Patch("/{id}", h.updateAccount)
		r.Delete("/{id}", h.deleteAccount)
		r.Get("/{id}/grants", h.accountGrants)
		r.Put("/{id}/grants", h.setAccountGrants)
	})

	r.Route("/datasets", func(r chi.Router) {
		r.Get("/", h.listDatasets)
		r.Post("/", h.createDataset)
		r.Get("/{id}", h.getDataset)
		r.Patch("/{id}", h.updateDataset)
		r.Delete("/{id}", h.deleteDataset)
		r.Get("/{id}/files", h.datasetFiles)
		r.Get("/{id}/grants", h.datasetGrants)
		r.Put("/{id}/grants", h.setDatasetGrants)
	})

	r.Route("/grants", func(r chi.Router) {
		r.Get("/", h.listGrants)
		r.Post("/", h.createGrant)
		r.Delete("/{id}", h.revokeGrant)
	})

	return r
}

// --- helpers ---

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := httpStatusFromDomainError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}

	body := map[string]any{"code": status, "message": err.Error()}
	var partial *domain.PartialFailureError
	if errors.As(err, &partial) {
		body["completed_steps"] = partial.Completed
		body["failed_steps"] = partial.Failed
	}
	h.writeJSON(w, status, body)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, domain.ErrValidation("invalid request body: %s", err))
		return false
	}
	return true
}

// principal resolves the caller or writes 401. Access decisions treat an
// unresolved principal as "deny everything"; the transport layer reports
// it as unauthorized up front.
func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	p, err := domain.ResolvePrincipal(r.Context())
	if err != nil {
		h.writeError(w, err)
		return domain.Principal{}, false
	}
	return p, true
}

func pageFromQuery(r *http.Request) domain.PageRequest {
	q := r.URL.Query()
	page := domain.PageRequest{PageToken: q.Get("page_token")}
	if v := q.Get("max_results"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page.MaxResults = n
		}
	}
	return page
}

// setLastModified writes the Last-Modified header for an entity.
func setLastModified(w http.ResponseWriter, t time.Time) {
	w.Header().Set("Last-Modified", t.UTC().Format(http.TimeFormat))
}

// notModified reports whether the entity timestamp allows a 304 response
// for the request's If-Modified-Since header.
func notModified(r *http.Request, lastModified time.Time) bool {
	ims := r.Header.Get("If-Modified-Since")
	if ims == "" {
		return false
	}
	since, err := http.ParseTime(ims)
	if err != nil {
		return false
	}
	return !lastModified.Truncate(time.Second).After(since)
}

// guardFromRequest parses the optional If-Unmodified-Since header used as
// an optimistic-concurrency guard on grant-list updates.
func guardFromRequest(r *http.Request) *time.Time {
	ius := r.Header.Get("If-Unmodified-Since")
	if ius == "" {
		return nil
	}
	t, err := http.ParseTime(ius)
	if err != nil {
		return nil
	}
	return &t
}
