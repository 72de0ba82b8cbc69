// Package admin is the moderation facade: status transitions, suspensions,
// role administration and the moderation queue. Every operation is
// authorized by the gate, written through the cache, announced on the bus
// and audited; refusals become security audit events.
package admin

import (
	"context"
	"errors"
	"log/slog"

	"agora/internal/audit"
	"agora/internal/cache"
	"agora/internal/events"
	"agora/internal/ledger"
	"agora/internal/status"
	"agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
	"agora/pkg/platform/sentinel"
	"agora/pkg/requestcontext"
)

// Ledger is the slice of the record store the facade needs. ledger.Store
// satisfies it.
type Ledger interface {
	Get(ctx context.Context, id domain.RecordID) (ledger.Record, error)
}

// Statuses advances moderation status chains. status.Engine satisfies it.
type Statuses interface {
	Transition(ctx context.Context, entityID domain.RecordID, next status.State, reason string) (ledger.Record, error)
	SuspendTemporarily(ctx context.Context, entityID domain.RecordID, reason string, days int) (ledger.Record, error)
	SuspendIndefinitely(ctx context.Context, entityID domain.RecordID, reason string) (ledger.Record, error)
	Unsuspend(ctx context.Context, entityID domain.RecordID, reason string) (ledger.Record, error)
}

// Roles is the role-administration surface of the gate. authz.Gate
// satisfies it.
type Roles interface {
	Grant(ctx context.Context, subject domain.AgentID, role domain.Role) (ledger.Record, error)
	Revoke(ctx context.Context, subject domain.AgentID) (ledger.Record, error)
	RoleOf(ctx context.Context, agent domain.AgentID) (domain.Role, error)
	CanAdministerRoles(ctx context.Context) error
	CanViewQueue(ctx context.Context) error
}

// Lister reads entities by effective status. market.Service satisfies it.
type Lister interface {
	ListByStatus(ctx context.Context, c domain.Collection, st status.State) ([]cache.Snapshot, error)
}

// Service is the moderation facade.
type Service struct {
	store    Ledger
	statuses Statuses
	roles    Roles
	lister   Lister
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

// WithBus publishes status changes on a shared bus.
func WithBus(bus *events.Bus) Option {
	return func(s *Service) {
		if bus != nil {
			s.bus = bus
		}
	}
}

// WithAudit emits audit events for moderation decisions.
func WithAudit(a *audit.Service) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

func NewService(store Ledger, statuses Statuses, roles Roles, lister Lister, caches *cache.Manager, opts ...Option) *Service {
	s := &Service{
		store:    store,
		statuses: statuses,
		roles:    roles,
		lister:   lister,
		caches:   caches,
		bus:      events.NewBus(),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TransitionStatus moves the entity to next. Suspension goes through the
// suspend operations; everything the status state machine refuses surfaces
// as InvalidTransition.
func (s *Service) TransitionStatus(ctx context.Context, c domain.Collection, entityID domain.RecordID, next status.State, reason string) (cache.Snapshot, error) {
	return s.applyStatus(ctx, c, entityID, audit.ActionStatusTransition, reason,
		func(ctx context.Context) (ledger.Record, error) {
			return s.statuses.Transition(ctx, entityID, next, reason)
		})
}

// SuspendTemporarily pulls an approved entity from the marketplace for a
// number of days; the suspension lapses by itself.
func (s *Service) SuspendTemporarily(ctx context.Context, c domain.Collection, entityID domain.RecordID, reason string, days int) (cache.Snapshot, error) {
	return s.applyStatus(ctx, c, entityID, audit.ActionEntitySuspended, reason,
		func(ctx context.Context) (ledger.Record, error) {
			return s.statuses.SuspendTemporarily(ctx, entityID, reason, days)
		})
}

// SuspendIndefinitely pulls an approved entity from the marketplace until
// an administrator reinstates it.
func (s *Service) SuspendIndefinitely(ctx context.Context, c domain.Collection, entityID domain.RecordID, reason string) (cache.Snapshot, error) {
	return s.applyStatus(ctx, c, entityID, audit.ActionEntitySuspended, reason,
		func(ctx context.Context) (ledger.Record, error) {
			return s.statuses.SuspendIndefinitely(ctx, entityID, reason)
		})
}

// Unsuspend reinstates a suspended entity.
func (s *Service) Unsuspend(ctx context.Context, c domain.Collection, entityID domain.RecordID, reason string) (cache.Snapshot, error) {
	return s.applyStatus(ctx, c, entityID, audit.ActionEntityUnsuspended, reason,
		func(ctx context.Context) (ledger.Record, error) {
			return s.statuses.Unsuspend(ctx, entityID, reason)
		})
}

// GrantRole assigns a role to the subject agent.
func (s *Service) GrantRole(ctx context.Context, subject domain.AgentID, role domain.Role) (ledger.Record, error) {
	rec, err := s.roles.Grant(ctx, subject, role)
	if err != nil {
		s.auditDenied(ctx, "grant_role", audit.Event{Subject: subject}, err)
		return ledger.Record{}, err
	}

	s.emit(ctx, audit.Event{Action: audit.ActionRoleGranted, Subject: subject, Reason: role.String()})
	s.log.InfoContext(ctx, "role granted", "subject", subject, "role", role)
	return rec, nil
}

// RevokeRole removes the subject agent's role. Revoking the last
// administrator is refused.
func (s *Service) RevokeRole(ctx context.Context, subject domain.AgentID) (ledger.Record, error) {
	rec, err := s.roles.Revoke(ctx, subject)
	if err != nil {
		s.auditDenied(ctx, "revoke_role", audit.Event{Subject: subject}, err)
		return ledger.Record{}, err
	}

	s.emit(ctx, audit.Event{Action: audit.ActionRoleRevoked, Subject: subject})
	s.log.InfoContext(ctx, "role revoked", "subject", subject)
	return rec, nil
}

// RoleOf reports an agent's role. Agents may inspect their own; seeing
// anyone else's requires role administration rights, so the role log stays
// unenumerable.
func (s *Service) RoleOf(ctx context.Context, agent domain.AgentID) (domain.Role, error) {
	if requestcontext.Agent(ctx) != agent {
		if err := s.roles.CanAdministerRoles(ctx); err != nil {
			s.auditDenied(ctx, "view_role", audit.Event{Subject: agent}, err)
			return domain.RoleNone, err
		}
	}
	return s.roles.RoleOf(ctx, agent)
}

// ModerationQueue lists the collection's entities awaiting review.
func (s *Service) ModerationQueue(ctx context.Context, c domain.Collection) ([]cache.Snapshot, error) {
	if err := s.roles.CanViewQueue(ctx); err != nil {
		s.auditDenied(ctx, "view_moderation_queue", audit.Event{Collection: c}, err)
		return nil, err
	}
	return s.lister.ListByStatus(ctx, c, status.StatePending)
}

// applyStatus runs one status write end to end: entity lookup, the write
// itself, write-through, event and audit.
func (s *Service) applyStatus(ctx context.Context, c domain.Collection, entityID domain.RecordID, action audit.Action, reason string, write func(context.Context) (ledger.Record, error)) (cache.Snapshot, error) {
	if err := s.entityInCollection(ctx, c, entityID); err != nil {
		return cache.Snapshot{}, err
	}

	rec, err := write(ctx)
	if err != nil {
		s.auditDenied(ctx, string(action), audit.Event{Entity: entityID, Collection: c}, err)
		return cache.Snapshot{}, err
	}

	snap, wtErr := s.writeThrough(ctx, c, entityID, rec)
	s.emit(ctx, audit.Event{Action: action, Entity: entityID, Collection: c, Reason: reason})
	if wtErr != nil {
		// The status record is committed; only the read-back failed.
		s.log.WarnContext(ctx, "status written but read-back failed",
			"collection", c, "id", entityID, "error", wtErr)
		return cache.Snapshot{}, wtErr
	}

	s.log.InfoContext(ctx, "status changed",
		"collection", c, "id", entityID, "record", rec.ID)
	return snap, nil
}

// writeThrough pairs the cached head with the status just written, stores
// it optimistically, announces the change and reconciles.
func (s *Service) writeThrough(ctx context.Context, c domain.Collection, entityID domain.RecordID, statusRec ledger.Record) (cache.Snapshot, error) {
	snap, err := s.caches.Get(ctx, c, entityID)
	if err == nil {
		if st, derr := statusFromRecord(entityID, statusRec); derr == nil {
			snap.Status = st
			if perr := s.caches.Put(ctx, c, entityID, snap); perr != nil {
				s.log.WarnContext(ctx, "optimistic cache write failed",
					"collection", c, "id", entityID, "error", perr)
			}
		}
	}

	s.bus.Publish(ctx, events.Event{Type: events.TypeUpdated, Collection: c, Entity: entityID, Record: statusRec})
	s.caches.Reconcile(ctx, c, entityID)

	if err != nil {
		return cache.Snapshot{}, err
	}
	return snap, nil
}

// statusFromRecord projects a freshly written status record. Fresh writes
// are never lapsed, so stored and effective state coincide.
func statusFromRecord(entityID domain.RecordID, rec ledger.Record) (status.ResolvedStatus, error) {
	var doc status.Document
	if err := ledger.DecodePayload(rec, &doc); err != nil {
		return status.ResolvedStatus{}, err
	}
	return status.ResolvedStatus{
		Entity:    entityID,
		Record:    rec,
		Stored:    doc.State,
		Until:     doc.Until,
		Reason:    doc.Reason,
		Effective: doc.State,
	}, nil
}

func (s *Service) entityInCollection(ctx context.Context, c domain.Collection, id domain.RecordID) error {
	rec, err := s.store.Get(ctx, id)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "entity not found")
	case err != nil:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "load entity failed")
	}
	if rec.Collection != c || rec.Kind != ledger.KindEntity || !rec.IsOriginal() {
		return dErrors.New(dErrors.CodeNotFound, "entity not found")
	}
	return nil
}

func (s *Service) emit(ctx context.Context, ev audit.Event) {
	if s.auditor == nil {
		return
	}
	s.auditor.Emit(ctx, ev)
}

// auditDenied records an authorization refusal. Only true denials are
// security events; validation and infrastructure failures are not.
func (s *Service) auditDenied(ctx context.Context, op string, ev audit.Event, err error) {
	if !dErrors.HasCode(err, dErrors.CodeDenied) {
		return
	}
	ev.Action = audit.ActionAccessDenied
	ev.Reason = op
	s.emit(ctx, ev)
}
