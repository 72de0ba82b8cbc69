package middleware

import (
	"net/http"
	"time"

	"agora/pkg/requestcontext"
)

// RequestTime pins one instant for the whole request. Sealed records,
// audit events and suspension deadlines all read it, so a single mutation
// never emits two different timestamps.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
