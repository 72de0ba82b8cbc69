package middleware

import (
	"log/slog"
	"net/http"

	"agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
	"agora/pkg/platform/httputil"
	"agora/pkg/requestcontext"
)

// HeaderActingAgent names the agent a UI process acts as. The node only
// signs for agents in its own keyring, so the header selects an identity
// rather than proving one; a request without it has no identity at all.
const HeaderActingAgent = "X-Agora-Agent"

// ActingAgent requires the acting-agent header on every request it guards
// and injects the parsed id into the context. Mount it on the API subtree
// only; health and metrics stay open.
func ActingAgent(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw := r.Header.Get(HeaderActingAgent)
			if raw == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "no acting agent"))
				return
			}

			agent, err := domain.ParseAgentID(raw)
			if err != nil {
				log.WarnContext(ctx, "malformed acting agent header",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid acting agent"))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithAgent(ctx, agent)))
		})
	}
}
