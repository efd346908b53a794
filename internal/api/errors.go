package api

import (
	"errors"
	"net/http"

	"datashelf/internal/domain"
)

// httpStatusFromDomainError maps domain errors to HTTP status codes.
//
// PartialFailure maps to 502: the blob-store collaborator failed and the
// operation is retryable. NotFound covers both absence and invisibility,
// so unauthorized callers cannot tell absent resources from hidden ones.
func httpStatusFromDomainError(err error) int {
	var unauthenticated *domain.UnauthenticatedError
	var notFound *domain.NotFoundError
	var accessDenied *domain.AccessDeniedError
	var validation *domain.ValidationError
	var conflict *domain.ConflictError
	var partial *domain.PartialFailureError
	var unavailable *domain.StoreUnavailableError

	switch {
	case errors.As(err, &unauthenticated):
		return http.StatusUnauthorized
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &accessDenied):
		return http.StatusForbidden
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &partial):
		return http.StatusBadGateway
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
