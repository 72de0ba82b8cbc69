// Package handler wires the moderation endpoints to the admin facade.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"agora/internal/cache"
	"agora/internal/ledger"
	"agora/internal/status"
	"agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
	"agora/pkg/platform/httputil"
	"agora/pkg/requestcontext"
)

// Service is the slice of the admin facade the transport needs.
type Service interface {
	TransitionStatus(ctx context.Context, c domain.Collection, id domain.RecordID, next status.State, reason string) (cache.Snapshot, error)
	SuspendTemporarily(ctx context.Context, c domain.Collection, id domain.RecordID, reason string, days int) (cache.Snapshot, error)
	SuspendIndefinitely(ctx context.Context, c domain.Collection, id domain.RecordID, reason string) (cache.Snapshot, error)
	Unsuspend(ctx context.Context, c domain.Collection, id domain.RecordID, reason string) (cache.Snapshot, error)
	GrantRole(ctx context.Context, subject domain.AgentID, role domain.Role) (ledger.Record, error)
	RevokeRole(ctx context.Context, subject domain.AgentID) (ledger.Record, error)
	RoleOf(ctx context.Context, agent domain.AgentID) (domain.Role, error)
	ModerationQueue(ctx context.Context, c domain.Collection) ([]cache.Snapshot, error)
}

// Handler exposes status moderation, the pending queue and role management.
type Handler struct {
	service Service
	log     *slog.Logger
}

func New(service Service, log *slog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Register mounts the moderation endpoints. The status route lives on the
// entity path; authorization is the facade's job, not the router's.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/{collection}/{id}/status", h.HandleStatus)
	r.Get("/v1/admin/queue/{collection}", h.HandleQueue)
	r.Get("/v1/admin/roles/{agent}", h.HandleRoleOf)
	r.Put("/v1/admin/roles/{agent}", h.HandleGrantRole)
	r.Delete("/v1/admin/roles/{agent}", h.HandleRevokeRole)
}

// statusRequest asks for one moderation action. Days only applies to
// suspend: positive for a temporary window, absent for indefinite.
type statusRequest struct {
	Action string `json:"action"`
	Days   int    `json:"days,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// HandleStatus handles POST /v1/{collection}/{id}/status.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}
	req, err := httputil.DecodeJSON[statusRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var snap cache.Snapshot
	switch req.Action {
	case "approve":
		snap, err = h.service.TransitionStatus(ctx, c, id, status.StateApproved, req.Reason)
	case "reject":
		snap, err = h.service.TransitionStatus(ctx, c, id, status.StateRejected, req.Reason)
	case "resubmit":
		snap, err = h.service.TransitionStatus(ctx, c, id, status.StatePending, req.Reason)
	case "suspend":
		if req.Days > 0 {
			snap, err = h.service.SuspendTemporarily(ctx, c, id, req.Reason, req.Days)
		} else {
			snap, err = h.service.SuspendIndefinitely(ctx, c, id, req.Reason)
		}
	case "unsuspend":
		snap, err = h.service.Unsuspend(ctx, c, id, req.Reason)
	default:
		err = dErrors.Newf(dErrors.CodeInvalidInput, "unknown status action %q", req.Action)
	}
	if err != nil {
		h.log.ErrorContext(ctx, "status action failed",
			"collection", c,
			"entity", id,
			"action", req.Action,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}

	h.log.InfoContext(ctx, "status action applied",
		"collection", c,
		"entity", id,
		"action", req.Action,
		"state", snap.Status.Effective,
		"duration_ms", time.Since(start).Milliseconds(),
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, fromStatus(snap))
}

// HandleQueue handles GET /v1/admin/queue/{collection}.
func (h *Handler) HandleQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	c, ok := h.collection(w, r)
	if !ok {
		return
	}

	snaps, err := h.service.ModerationQueue(ctx, c)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromQueue(snaps))
}

// grantRequest names the role to set for an agent.
type grantRequest struct {
	Role string `json:"role"`
}

// HandleGrantRole handles PUT /v1/admin/roles/{agent}.
func (h *Handler) HandleGrantRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	agent, ok := h.agent(w, r)
	if !ok {
		return
	}
	req, err := httputil.DecodeJSON[grantRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	role, err := domain.ParseGrantableRole(req.Role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if _, err := h.service.GrantRole(ctx, agent, role); err != nil {
		h.log.ErrorContext(ctx, "role grant failed",
			"subject", agent,
			"role", role,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}

	h.log.InfoContext(ctx, "role granted",
		"subject", agent,
		"role", role,
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, roleResponse{Agent: agent, Role: role})
}

// HandleRevokeRole handles DELETE /v1/admin/roles/{agent}.
func (h *Handler) HandleRevokeRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	agent, ok := h.agent(w, r)
	if !ok {
		return
	}

	if _, err := h.service.RevokeRole(ctx, agent); err != nil {
		h.log.ErrorContext(ctx, "role revoke failed",
			"subject", agent,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}

	h.log.InfoContext(ctx, "role revoked",
		"subject", agent,
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, roleResponse{Agent: agent, Role: domain.RoleNone})
}

// HandleRoleOf handles GET /v1/admin/roles/{agent}.
func (h *Handler) HandleRoleOf(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	agent, ok := h.agent(w, r)
	if !ok {
		return
	}

	role, err := h.service.RoleOf(ctx, agent)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, roleResponse{Agent: agent, Role: role})
}

func (h *Handler) collection(w http.ResponseWriter, r *http.Request) (domain.Collection, bool) {
	c, err := domain.ParseCollection(chi.URLParam(r, "collection"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeNotFound, "unknown collection"))
		return "", false
	}
	return c, true
}

func (h *Handler) recordID(w http.ResponseWriter, r *http.Request) (domain.RecordID, bool) {
	id, err := domain.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeNotFound, "entity not found"))
		return "", false
	}
	return id, true
}

func (h *Handler) agent(w http.ResponseWriter, r *http.Request) (domain.AgentID, bool) {
	agent, err := domain.ParseAgentID(chi.URLParam(r, "agent"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeNotFound, "agent not found"))
		return "", false
	}
	return agent, true
}
