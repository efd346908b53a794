package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"datashelf/internal/domain"
)

// Auth validates the bearer token, resolves the referenced account, and
// binds a domain.Principal into the request context. Resolution happens
// exactly once per request; everything downstream reads the context only
// (domain.ResolvePrincipal).
//
// Requests without a valid token get 401. Disabled accounts still
// resolve: the access decision denies them uniformly, which keeps
// "account disabled" from being distinguishable from "no access".
func Auth(validator JWTValidator, accounts domain.AccountRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				writeUnauthorized(w, "missing bearer token")
				return
			}
			tokenStr := strings.TrimPrefix(authz, "Bearer ")

			claims, err := validator.Validate(r.Context(), tokenStr)
			if err != nil || claims.Subject == "" {
				writeUnauthorized(w, "invalid token")
				return
			}

			account, err := accounts.GetByUsername(r.Context(), claims.Subject)
			if err != nil {
				writeUnauthorized(w, "unknown principal")
				return
			}

			ctx := domain.WithPrincipal(r.Context(), domain.Principal{
				AccountID: account.ID,
				Username:  account.Username,
				Role:      account.Role,
				Enabled:   account.Enabled,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    http.StatusUnauthorized,
		"message": "unauthorized: " + msg,
	})
}
