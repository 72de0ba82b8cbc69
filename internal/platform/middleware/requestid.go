// Package middleware is the HTTP request pipeline: panic recovery, request
// identity, logging and latency metrics. Handlers read everything it
// produces through pkg/requestcontext.
package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"agora/pkg/requestcontext"
)

// HeaderRequestID carries the caller-assigned correlation id. One is minted
// when absent so every log line and audit event of a request correlates.
const HeaderRequestID = "X-Request-ID"

// RequestID stamps the request context with a correlation id and the client
// address, and echoes the id back on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}

		ctx := requestcontext.WithRequestID(r.Context(), id)
		ctx = requestcontext.WithClientIP(ctx, clientIP(r))

		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIP prefers the first X-Forwarded-For hop; local deployments see the
// socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(ip)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
