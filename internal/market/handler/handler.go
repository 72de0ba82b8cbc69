// Package handler wires the entity endpoints to the market facade.
package handler

import (
	"context"
	"encoding/json"
	"io"
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

// maxPayloadBytes bounds entity payload bodies. Validation caps the fields
// far lower; this only stops hostile bodies before they are read.
const maxPayloadBytes = 1 << 20

// Service is the slice of the market facade the transport needs.
type Service interface {
	Create(ctx context.Context, c domain.Collection, payload json.RawMessage) (cache.Snapshot, error)
	Update(ctx context.Context, c domain.Collection, id domain.RecordID, payload json.RawMessage) (cache.Snapshot, error)
	Delete(ctx context.Context, c domain.Collection, id domain.RecordID) error
	Get(ctx context.Context, c domain.Collection, id domain.RecordID) (cache.Snapshot, error)
	List(ctx context.Context, c domain.Collection) ([]cache.Snapshot, error)
	ListByStatus(ctx context.Context, c domain.Collection, st status.State) ([]cache.Snapshot, error)
	Revisions(ctx context.Context, c domain.Collection, id domain.RecordID) ([]ledger.Record, error)
	ProfileOf(ctx context.Context, agent domain.AgentID) (cache.Snapshot, error)
}

// Handler exposes entity CRUD, history and profile lookup.
type Handler struct {
	service Service
	log     *slog.Logger
}

func New(service Service, log *slog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Register mounts the entity endpoints on the router. Routes are flat so
// the admin handler can extend the same /v1/{collection} prefix; static
// segments (/v1/agents, /v1/admin) win over the collection wildcard.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/{collection}", h.HandleCreate)
	r.Get("/v1/{collection}", h.HandleList)
	r.Get("/v1/{collection}/{id}", h.HandleGet)
	r.Put("/v1/{collection}/{id}", h.HandleUpdate)
	r.Delete("/v1/{collection}/{id}", h.HandleDelete)
	r.Get("/v1/{collection}/{id}/revisions", h.HandleRevisions)
	r.Get("/v1/agents/{agent}/profile", h.HandleProfile)
}

// HandleCreate handles POST /v1/{collection}.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	payload, ok := h.payload(w, r)
	if !ok {
		return
	}

	snap, err := h.service.Create(ctx, c, payload)
	if err != nil {
		h.fail(ctx, "entity create failed", c, err)
		httputil.WriteError(w, err)
		return
	}

	h.log.InfoContext(ctx, "entity created",
		"collection", c,
		"entity", snap.Resolved.Original,
		"duration_ms", time.Since(start).Milliseconds(),
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteJSON(w, http.StatusCreated, fromSnapshot(snap))
}

// HandleGet handles GET /v1/{collection}/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}

	snap, err := h.service.Get(ctx, c, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromSnapshot(snap))
}

// HandleList handles GET /v1/{collection}, optionally filtered with
// ?status=<state> on the effective status.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	c, ok := h.collection(w, r)
	if !ok {
		return
	}

	var (
		snaps []cache.Snapshot
		err   error
	)
	if q := r.URL.Query().Get("status"); q != "" {
		var st status.State
		st, err = status.ParseState(q)
		if err == nil {
			snaps, err = h.service.ListByStatus(ctx, c, st)
		}
	} else {
		snaps, err = h.service.List(ctx, c)
	}
	if err != nil {
		h.fail(ctx, "entity list failed", c, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromSnapshots(snaps))
}

// HandleUpdate handles PUT /v1/{collection}/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
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
	payload, ok := h.payload(w, r)
	if !ok {
		return
	}

	snap, err := h.service.Update(ctx, c, id, payload)
	if err != nil {
		h.fail(ctx, "entity update failed", c, err)
		httputil.WriteError(w, err)
		return
	}

	h.log.InfoContext(ctx, "entity updated",
		"collection", c,
		"entity", id,
		"depth", snap.Resolved.Depth,
		"duration_ms", time.Since(start).Milliseconds(),
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, fromSnapshot(snap))
}

// HandleDelete handles DELETE /v1/{collection}/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, c, id); err != nil {
		h.fail(ctx, "entity delete failed", c, err)
		httputil.WriteError(w, err)
		return
	}

	h.log.InfoContext(ctx, "entity deleted",
		"collection", c,
		"entity", id,
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteJSON(w, http.StatusNoContent, nil)
}

// HandleRevisions handles GET /v1/{collection}/{id}/revisions.
func (h *Handler) HandleRevisions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}

	revs, err := h.service.Revisions(ctx, c, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromRevisions(revs))
}

// HandleProfile handles GET /v1/agents/{agent}/profile.
func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	agent, err := domain.ParseAgentID(chi.URLParam(r, "agent"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeNotFound, "agent not found"))
		return
	}

	snap, err := h.service.ProfileOf(ctx, agent)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromSnapshot(snap))
}

// collection parses the path collection. Unknown names are a 404: the
// resource namespace does not exist.
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

// payload reads the raw entity body; the facade owns decoding and
// validation per collection.
func (h *Handler) payload(w http.ResponseWriter, r *http.Request) (json.RawMessage, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "unreadable request body"))
		return nil, false
	}
	return body, true
}

func (h *Handler) fail(ctx context.Context, msg string, c domain.Collection, err error) {
	h.log.ErrorContext(ctx, msg,
		"collection", c,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
}
