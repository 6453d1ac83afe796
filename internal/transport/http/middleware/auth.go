package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/LouziusMedia/LoeschMich/internal/auth"
	"github.com/LouziusMedia/LoeschMich/internal/requestctx"
)

// Auth attaches the operator named by a valid bearer token. Requests
// without one pass through anonymously; RequireScope rejects them later.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}
			parts := strings.Fields(authHeader)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(secret, parts[1])
			if err != nil {
				slog.Debug("operator token rejected", "err", err, "requestId", GetRequestID(r.Context()))
				next.ServeHTTP(w, r)
				return
			}

			ctx := requestctx.WithOperator(r.Context(), requestctx.Operator{
				Name:   claims.Operator,
				Scopes: claims.Scopes,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetOperator(ctx context.Context) (requestctx.Operator, bool) {
	return requestctx.GetOperator(ctx)
}
