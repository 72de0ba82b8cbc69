// Package market is the entity facade of the node: the one surface
// collaborators create, update, delete and read marketplace entities
// through. It composes the gate, the ledger, chain resolution, the status
// engine, the cache and the event bus into the write-through and
// read-through flows, and owns payload validation for every collection.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"agora/internal/audit"
	"agora/internal/cache"
	"agora/internal/chain"
	"agora/internal/events"
	"agora/internal/ledger"
	"agora/internal/status"
	"agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
	"agora/pkg/platform/sentinel"
	"agora/pkg/requestcontext"
)

// Ledger is the slice of the record store the facade writes and lists
// through.
type Ledger interface {
	Append(ctx context.Context, rec ledger.Record) error
	Get(ctx context.Context, id domain.RecordID) (ledger.Record, error)
	Originals(ctx context.Context, c domain.Collection) ([]ledger.Record, error)
	AuthorOriginals(ctx context.Context, agent domain.AgentID, c domain.Collection) ([]ledger.Record, error)
}

// Chains resolves update graphs to their winning head. Mutations go through
// it rather than the cache: appending to a stale cached head would fork the
// chain for no reason.
type Chains interface {
	ResolveLatest(ctx context.Context, originalID domain.RecordID) (chain.Resolved, error)
	Revisions(ctx context.Context, originalID domain.RecordID) ([]ledger.Record, error)
}

// Statuses roots and reads moderation status chains.
type Statuses interface {
	Create(ctx context.Context, entityID domain.RecordID) (ledger.Record, error)
	Resolve(ctx context.Context, entityID domain.RecordID) (status.ResolvedStatus, error)
}

// Gate authorizes writes before anything is sealed.
type Gate interface {
	CanCreate(ctx context.Context, c domain.Collection) error
	CanModify(ctx context.Context, entityAuthor domain.AgentID) error
}

// Service is the marketplace entity facade.
type Service struct {
	store    Ledger
	chains   Chains
	statuses Statuses
	gate     Gate
	keys     *ledger.Keyring
	caches   *cache.Manager
	bus      *events.Bus
	auditor  *audit.Service
	log      *slog.Logger
}

type Option func(*Service)

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithBus publishes mutations on a shared bus. Without it the service keeps
// a private bus nobody listens on.
func WithBus(bus *events.Bus) Option {
	return func(s *Service) {
		if bus != nil {
			s.bus = bus
		}
	}
}

// WithAudit emits audit events for mutations. Without it nothing is audited.
func WithAudit(a *audit.Service) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

func NewService(store Ledger, chains Chains, statuses Statuses, gate Gate, keys *ledger.Keyring, caches *cache.Manager, opts ...Option) *Service {
	s := &Service{
		store:    store,
		chains:   chains,
		statuses: statuses,
		gate:     gate,
		keys:     keys,
		caches:   caches,
		bus:      events.NewBus(),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates the payload, authorizes the acting agent, appends the
// entity original and roots its status chain at pending. The write goes
// through the cache optimistically, is announced on the bus and then
// reconciled against an authoritative resolution.
func (s *Service) Create(ctx context.Context, c domain.Collection, payload json.RawMessage) (cache.Snapshot, error) {
	p, err := DecodePayload(c, payload)
	if err != nil {
		return cache.Snapshot{}, err
	}

	if err := s.gate.CanCreate(ctx, c); err != nil {
		s.auditDenied(ctx, "create_entity", audit.Event{Collection: c}, err)
		return cache.Snapshot{}, err
	}

	kp, err := s.keys.Acting(ctx)
	if err != nil {
		return cache.Snapshot{}, err
	}

	if c == domain.CollectionUsers {
		if err := s.requireNoProfile(ctx, kp.Agent()); err != nil {
			return cache.Snapshot{}, err
		}
	}

	rec, err := ledger.Seal(ledger.Draft{
		Kind:       ledger.KindEntity,
		Collection: c,
		Payload:    p,
		Timestamp:  requestcontext.Now(ctx),
	}, kp)
	if err != nil {
		return cache.Snapshot{}, err
	}
	if err := s.store.Append(ctx, rec); err != nil {
		return cache.Snapshot{}, storeErr(err, "append entity")
	}

	statusRec, err := s.statuses.Create(ctx, rec.ID)
	if err != nil {
		// The entity record is committed, but without a status chain it
		// resolves as not found. Surfacing the error keeps the torn write
		// invisible instead of half-visible.
		s.log.ErrorContext(ctx, "status chain creation failed after entity append",
			"collection", c, "id", rec.ID, "error", err)
		return cache.Snapshot{}, err
	}

	snap := cache.Snapshot{
		Resolved: chain.Resolved{Original: rec.ID, Record: rec, Depth: 1},
		Status: status.ResolvedStatus{
			Entity:    rec.ID,
			Record:    statusRec,
			Stored:    status.StatePending,
			Effective: status.StatePending,
		},
	}
	s.cachePut(ctx, c, rec.ID, snap)
	s.bus.Publish(ctx, events.Event{Type: events.TypeCreated, Collection: c, Entity: rec.ID, Record: rec})
	s.caches.Reconcile(ctx, c, rec.ID)
	s.emit(ctx, audit.Event{Action: audit.ActionEntityCreated, Entity: rec.ID, Collection: c})

	s.log.InfoContext(ctx, "entity created", "collection", c, "id", rec.ID)
	return snap, nil
}

// Update appends a new version chained to the current winning head.
func (s *Service) Update(ctx context.Context, c domain.Collection, originalID domain.RecordID, payload json.RawMessage) (cache.Snapshot, error) {
	p, err := DecodePayload(c, payload)
	if err != nil {
		return cache.Snapshot{}, err
	}

	res, err := s.chains.ResolveLatest(ctx, originalID)
	if err != nil {
		return cache.Snapshot{}, err
	}
	if res.Record.Collection != c {
		return cache.Snapshot{}, dErrors.New(dErrors.CodeNotFound, "entity not found")
	}

	orig, err := s.store.Get(ctx, originalID)
	if err != nil {
		return cache.Snapshot{}, storeErr(err, "load original record")
	}
	if err := s.gate.CanModify(ctx, orig.Author); err != nil {
		s.auditDenied(ctx, "update_entity", audit.Event{Entity: originalID, Collection: c}, err)
		return cache.Snapshot{}, err
	}

	kp, err := s.keys.Acting(ctx)
	if err != nil {
		return cache.Snapshot{}, err
	}

	rec, err := ledger.Seal(ledger.Draft{
		Kind:        ledger.KindEntity,
		Collection:  c,
		Predecessor: res.Record.ID,
		Payload:     p,
		Timestamp:   requestcontext.Now(ctx),
	}, kp)
	if err != nil {
		return cache.Snapshot{}, err
	}
	if err := s.store.Append(ctx, rec); err != nil {
		return cache.Snapshot{}, storeErr(err, "append update")
	}

	st, stErr := s.statuses.Resolve(ctx, originalID)
	snap := cache.Snapshot{
		Resolved: chain.Resolved{Original: originalID, Record: rec, Depth: res.Depth + 1, Forked: res.Forked},
		Status:   st,
	}
	if stErr == nil {
		s.cachePut(ctx, c, originalID, snap)
	}
	s.bus.Publish(ctx, events.Event{Type: events.TypeUpdated, Collection: c, Entity: originalID, Record: rec})
	s.caches.Reconcile(ctx, c, originalID)
	s.emit(ctx, audit.Event{Action: audit.ActionEntityUpdated, Entity: originalID, Collection: c})

	if stErr != nil {
		// The update is committed; only the status read-back failed.
		s.log.WarnContext(ctx, "update committed but status read-back failed",
			"collection", c, "id", originalID, "error", stErr)
		return cache.Snapshot{}, stErr
	}
	s.log.InfoContext(ctx, "entity updated", "collection", c, "id", originalID, "head", rec.ID)
	return snap, nil
}

// Delete tombstones the entity's identity. Deletion is final: later updates
// of any surviving branch no longer resolve, and deleting twice reports not
// found.
func (s *Service) Delete(ctx context.Context, c domain.Collection, originalID domain.RecordID) error {
	res, err := s.chains.ResolveLatest(ctx, originalID)
	if err != nil {
		return err
	}
	if res.Record.Collection != c {
		return dErrors.New(dErrors.CodeNotFound, "entity not found")
	}

	orig, err := s.store.Get(ctx, originalID)
	if err != nil {
		return storeErr(err, "load original record")
	}
	if err := s.gate.CanModify(ctx, orig.Author); err != nil {
		s.auditDenied(ctx, "delete_entity", audit.Event{Entity: originalID, Collection: c}, err)
		return err
	}

	kp, err := s.keys.Acting(ctx)
	if err != nil {
		return err
	}

	tomb, err := ledger.Seal(ledger.Draft{
		Kind:       ledger.KindTombstone,
		Collection: c,
		Target:     originalID,
		Timestamp:  requestcontext.Now(ctx),
	}, kp)
	if err != nil {
		return err
	}
	if err := s.store.Append(ctx, tomb); err != nil {
		return storeErr(err, "append tombstone")
	}

	if err := s.caches.Invalidate(ctx, c, originalID); err != nil {
		s.log.WarnContext(ctx, "cache invalidation failed",
			"collection", c, "id", originalID, "error", err)
	}
	s.bus.Publish(ctx, events.Event{Type: events.TypeDeleted, Collection: c, Entity: originalID, Record: tomb})
	s.emit(ctx, audit.Event{Action: audit.ActionEntityDeleted, Entity: originalID, Collection: c})

	s.log.InfoContext(ctx, "entity deleted", "collection", c, "id", originalID)
	return nil
}

// Get reads one entity through the cache.
func (s *Service) Get(ctx context.Context, c domain.Collection, originalID domain.RecordID) (cache.Snapshot, error) {
	snap, err := s.caches.Get(ctx, c, originalID)
	if err != nil {
		return cache.Snapshot{}, err
	}
	if snap.Resolved.Record.Collection != c {
		return cache.Snapshot{}, dErrors.New(dErrors.CodeNotFound, "entity not found")
	}
	return snap, nil
}

// List returns every live entity of the collection in (timestamp, id)
// order of their originals. Deleted entities are skipped.
func (s *Service) List(ctx context.Context, c domain.Collection) ([]cache.Snapshot, error) {
	origs, err := s.store.Originals(ctx, c)
	if err != nil {
		return nil, storeErr(err, "list originals")
	}

	snaps := make([]cache.Snapshot, 0, len(origs))
	for _, orig := range origs {
		snap, err := s.caches.Get(ctx, c, orig.ID)
		switch {
		case err == nil:
			snaps = append(snaps, snap)
		case dErrors.HasCode(err, dErrors.CodeNotFound):
			// deleted
		default:
			return nil, err
		}
	}
	return snaps, nil
}

// ListByStatus filters List by effective moderation state.
func (s *Service) ListByStatus(ctx context.Context, c domain.Collection, st status.State) ([]cache.Snapshot, error) {
	if _, err := status.ParseState(string(st)); err != nil {
		return nil, err
	}

	snaps, err := s.List(ctx, c)
	if err != nil {
		return nil, err
	}

	filtered := snaps[:0]
	for _, snap := range snaps {
		if snap.Status.Effective == st {
			filtered = append(filtered, snap)
		}
	}
	return filtered, nil
}

// Revisions returns the entity's full version history in (timestamp, id)
// order, excluded branches included. History stays readable after deletion.
func (s *Service) Revisions(ctx context.Context, c domain.Collection, originalID domain.RecordID) ([]ledger.Record, error) {
	revs, err := s.chains.Revisions(ctx, originalID)
	if err != nil {
		return nil, err
	}
	if len(revs) == 0 || revs[0].Collection != c {
		return nil, dErrors.New(dErrors.CodeNotFound, "entity not found")
	}
	return revs, nil
}

// ProfileOf returns the agent's live user profile.
func (s *Service) ProfileOf(ctx context.Context, agent domain.AgentID) (cache.Snapshot, error) {
	origs, err := s.store.AuthorOriginals(ctx, agent, domain.CollectionUsers)
	if err != nil {
		return cache.Snapshot{}, storeErr(err, "list author profiles")
	}

	for _, orig := range origs {
		snap, err := s.caches.Get(ctx, domain.CollectionUsers, orig.ID)
		switch {
		case err == nil:
			return snap, nil
		case dErrors.HasCode(err, dErrors.CodeNotFound):
			// deleted profile
		default:
			return cache.Snapshot{}, err
		}
	}
	return cache.Snapshot{}, dErrors.New(dErrors.CodeNotFound, "agent has no profile")
}

// requireNoProfile enforces one live profile per agent. A deleted profile
// does not block a fresh one.
func (s *Service) requireNoProfile(ctx context.Context, agent domain.AgentID) error {
	origs, err := s.store.AuthorOriginals(ctx, agent, domain.CollectionUsers)
	if err != nil {
		return storeErr(err, "list author profiles")
	}

	for _, orig := range origs {
		_, err := s.chains.ResolveLatest(ctx, orig.ID)
		switch {
		case err == nil:
			return dErrors.New(dErrors.CodeConflict, "agent already has a profile")
		case dErrors.HasCode(err, dErrors.CodeNotFound):
			// deleted
		default:
			return err
		}
	}
	return nil
}

func (s *Service) cachePut(ctx context.Context, c domain.Collection, id domain.RecordID, snap cache.Snapshot) {
	if err := s.caches.Put(ctx, c, id, snap); err != nil {
		s.log.WarnContext(ctx, "optimistic cache write failed",
			"collection", c, "id", id, "error", err)
	}
}

func (s *Service) emit(ctx context.Context, ev audit.Event) {
	if s.auditor == nil {
		return
	}
	s.auditor.Emit(ctx, ev)
}

// auditDenied records an authorization refusal. Only true denials are
// security events; missing agents and infrastructure failures are not.
func (s *Service) auditDenied(ctx context.Context, op string, ev audit.Event, err error) {
	if !dErrors.HasCode(err, dErrors.CodeDenied) {
		return
	}
	ev.Action = audit.ActionAccessDenied
	ev.Reason = op
	s.emit(ctx, ev)
}

func storeErr(err error, op string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "record does not exist")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, op+" conflicts with an existing record")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, op+" cancelled")
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, op+" failed")
	}
}
