package middleware

import (
	"context"
	"net/http"

	"treelof-api/internal/auth"
)

type contextKey string

const TrustedKey contextKey = "trusted"

// Trust decides once per request whether the caller is trusted and stores
// the answer in the request context. It never rejects a request.
func Trust(checker *auth.TrustChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			trusted := checker.IsTrusted(r)
			ctx := context.WithValue(r.Context(), TrustedKey, trusted)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IsTrusted reports the decision made by Trust. Requests that never passed
// through Trust are untrusted.
func IsTrusted(ctx context.Context) bool {
	trusted, _ := ctx.Value(TrustedKey).(bool)
	return trusted
}

// WithTrust returns ctx carrying the given decision.
func WithTrust(ctx context.Context, trusted bool) context.Context {
	return context.WithValue(ctx, TrustedKey, trusted)
}
