package middleware

import (
	"net/http"
	"slices"

	"github.com/LouziusMedia/LoeschMich/internal/transport/http/api"
)

func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			op, ok := GetOperator(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
				return
			}
			if !slices.Contains(op.Scopes, scope) {
				api.Fail(w, http.StatusForbidden, "forbidden", "token lacks scope "+scope, GetRequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
