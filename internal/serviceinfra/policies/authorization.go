package policies

import (
	"context"
	"net/http"

	si "github.com/jk-nd/npl-gateway/internal/serviceinfra"
)

// NewBearerAuthPolicy requires "Authorization: Bearer <token>" matching
// token exactly. It is applied only to the Executor-only routes
// (/context/*, /callback) per spec.md §6's requirement that unauthorized
// callers cannot enumerate or fetch contexts; an empty token disables the
// check (useful for local development against a fake Executor).
func NewBearerAuthPolicy(token string) si.Policy {
	return func(ctx context.Context, r *si.ReqRes) error {
		if token == "" {
			return r.Next(ctx)
		}
		got := r.R.Header.Get("Authorization")
		if got != "Bearer "+token {
			return r.Error(http.StatusUnauthorized, "Unauthorized", "missing or invalid bearer token")
		}
		return r.Next(ctx)
	}
}
