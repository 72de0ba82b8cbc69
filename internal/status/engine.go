package status

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"agora/internal/chain"
	"agora/internal/ledger"
	"agora/internal/status/metrics"
	"agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
	"agora/pkg/platform/sentinel"
	"agora/pkg/requestcontext"
)

//go:generate mockgen -source=engine.go -destination=mock/engine.go -package=mock

// Ledger is the slice of the record store the engine needs. ledger.Store
// satisfies it.
type Ledger interface {
	Append(ctx context.Context, rec ledger.Record) error
	Get(ctx context.Context, id domain.RecordID) (ledger.Record, error)
	ByTarget(ctx context.Context, id domain.RecordID, kind ledger.Kind) ([]ledger.Record, error)
}

// Chains resolves record chains. chain.Resolver satisfies it.
type Chains interface {
	ResolveLatest(ctx context.Context, originalID domain.RecordID) (chain.Resolved, error)
}

// Authorizer decides who may take a lifecycle edge. The engine validates
// that the edge is legal; the authorizer decides whether this agent may
// take it.
type Authorizer interface {
	// AuthorizeTransition is called with the author of the entity's
	// original record and the edge about to be written. It returns
	// CodeDenied to refuse.
	AuthorizeTransition(ctx context.Context, entityAuthor domain.AgentID, from, to State) error
}

// ResolvedStatus is the outcome of resolving an entity's status chain.
//
// Stored is the state the winning record carries; Effective applies lazy
// suspension expiry on top: a temporary suspension whose until has passed
// reads as approved without anything being written.
type ResolvedStatus struct {
	Entity    domain.RecordID
	Record    ledger.Record
	Stored    State
	Until     *time.Time
	Reason    string
	Effective State
	// Expired reports that Stored is a lapsed temporary suspension. The
	// next transition writes the implied approval down first.
	Expired bool
}

// Engine reads and advances entity status chains.
type Engine struct {
	store  Ledger
	chains Chains
	keys   *ledger.Keyring
	auth   Authorizer
	log    *slog.Logger
	m      *metrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithMetrics attaches lifecycle metrics. Nil is allowed.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.m = m }
}

// NewEngine creates a status engine over the given collaborators.
func NewEngine(store Ledger, chains Chains, keys *ledger.Keyring, auth Authorizer, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		chains: chains,
		keys:   keys,
		auth:   auth,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Create roots the status chain of a freshly created entity with a pending
// record. Exactly one status chain may exist per entity.
func (e *Engine) Create(ctx context.Context, entityID domain.RecordID) (ledger.Record, error) {
	kp, err := e.keys.Acting(ctx)
	if err != nil {
		return ledger.Record{}, err
	}

	entity, err := e.store.Get(ctx, entityID)
	if err != nil {
		return ledger.Record{}, storeErr(err, "load entity")
	}
	if entity.Kind != ledger.KindEntity || !entity.IsOriginal() {
		return ledger.Record{}, dErrors.New(dErrors.CodeInvalidInput, "status chains root at entity originals")
	}

	if _, err := e.root(ctx, entityID); err == nil {
		return ledger.Record{}, dErrors.New(dErrors.CodeConflict, "entity already has a status history")
	} else if !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return ledger.Record{}, err
	}

	rec, err := ledger.Seal(ledger.Draft{
		Kind:       ledger.KindStatus,
		Collection: entity.Collection,
		Target:     entityID,
		Payload:    Document{State: StatePending},
		Timestamp:  requestcontext.Now(ctx),
	}, kp)
	if err != nil {
		return ledger.Record{}, err
	}
	if err := e.store.Append(ctx, rec); err != nil {
		return ledger.Record{}, storeErr(err, "append status record")
	}

	e.log.DebugContext(ctx, "status chain created",
		"entity", entityID, "record", rec.ID)
	return rec, nil
}

// Resolve returns the entity's current status.
//
// The status sub-chain is resolved with the same engine entity chains use,
// so concurrent moderation by two nodes forks and converges identically.
// Moderation history outlives the entity: a tombstoned entity still
// resolves its status.
func (e *Engine) Resolve(ctx context.Context, entityID domain.RecordID) (ResolvedStatus, error) {
	root, err := e.root(ctx, entityID)
	if err != nil {
		return ResolvedStatus{}, err
	}

	res, err := e.chains.ResolveLatest(ctx, root.ID)
	if err != nil {
		return ResolvedStatus{}, err
	}

	var doc Document
	if err := ledger.DecodePayload(res.Record, &doc); err != nil {
		return ResolvedStatus{}, err
	}
	if err := doc.Validate(); err != nil {
		return ResolvedStatus{}, dErrors.Wrap(err, dErrors.CodeInvariantViolation, "stored status record malformed")
	}

	out := ResolvedStatus{
		Entity:    entityID,
		Record:    res.Record,
		Stored:    doc.State,
		Until:     doc.Until,
		Reason:    doc.Reason,
		Effective: doc.State,
	}
	if doc.State == StateSuspended && doc.Until != nil && !requestcontext.Now(ctx).Before(*doc.Until) {
		out.Effective = StateApproved
		out.Expired = true
	}
	return out, nil
}

// Transition advances the entity to next. Suspensions carry parameters and
// go through the dedicated suspend operations instead.
func (e *Engine) Transition(ctx context.Context, entityID domain.RecordID, next State, reason string) (ledger.Record, error) {
	if next == StateSuspended {
		return ledger.Record{}, dErrors.New(dErrors.CodeInvalidInput, "suspension goes through the suspend operations")
	}
	return e.transition(ctx, entityID, Document{State: next, Reason: reason})
}

// SuspendTemporarily pulls an approved entity from the marketplace for a
// number of days. The suspension lapses by itself: readers treat it as
// approved once until has passed.
func (e *Engine) SuspendTemporarily(ctx context.Context, entityID domain.RecordID, reason string, days int) (ledger.Record, error) {
	if days < 1 {
		return ledger.Record{}, dErrors.New(dErrors.CodeValidation, "suspension must last at least one day")
	}
	until := requestcontext.Now(ctx).UTC().Add(time.Duration(days) * 24 * time.Hour).Truncate(time.Microsecond)
	return e.transition(ctx, entityID, Document{State: StateSuspended, Until: &until, Reason: reason})
}

// SuspendIndefinitely pulls an approved entity from the marketplace until an
// administrator reinstates it.
func (e *Engine) SuspendIndefinitely(ctx context.Context, entityID domain.RecordID, reason string) (ledger.Record, error) {
	return e.transition(ctx, entityID, Document{State: StateSuspended, Reason: reason})
}

// Unsuspend reinstates a suspended entity.
func (e *Engine) Unsuspend(ctx context.Context, entityID domain.RecordID, reason string) (ledger.Record, error) {
	return e.transition(ctx, entityID, Document{State: StateApproved, Reason: reason})
}

func (e *Engine) transition(ctx context.Context, entityID domain.RecordID, doc Document) (ledger.Record, error) {
	if err := doc.Validate(); err != nil {
		return ledger.Record{}, err
	}

	kp, err := e.keys.Acting(ctx)
	if err != nil {
		return ledger.Record{}, err
	}

	entity, err := e.store.Get(ctx, entityID)
	if err != nil {
		return ledger.Record{}, storeErr(err, "load entity")
	}

	cur, err := e.Resolve(ctx, entityID)
	if err != nil {
		return ledger.Record{}, err
	}

	if !CanTransition(cur.Effective, doc.State) {
		return ledger.Record{}, dErrors.Newf(dErrors.CodeInvalidTransition,
			"cannot transition from %s to %s", cur.Effective, doc.State)
	}
	if err := e.auth.AuthorizeTransition(ctx, entity.Author, cur.Effective, doc.State); err != nil {
		return ledger.Record{}, err
	}

	now := requestcontext.Now(ctx)
	pred := cur.Record.ID

	if cur.Expired {
		// The suspension lapsed without anything being written. Write the
		// implied approval down before chaining the real transition onto it.
		mat, err := ledger.Seal(ledger.Draft{
			Kind:        ledger.KindStatus,
			Collection:  entity.Collection,
			Predecessor: pred,
			Target:      entityID,
			Payload:     Document{State: StateApproved, Reason: "temporary suspension lapsed"},
			Timestamp:   now,
		}, kp)
		if err != nil {
			return ledger.Record{}, err
		}
		if err := e.store.Append(ctx, mat); err != nil {
			return ledger.Record{}, storeErr(err, "append status record")
		}
		pred = mat.ID
		now = now.Add(time.Microsecond)
		e.m.IncrementMaterializations()
		e.log.InfoContext(ctx, "lapsed suspension materialized",
			"entity", entityID, "record", mat.ID)
	}

	rec, err := ledger.Seal(ledger.Draft{
		Kind:        ledger.KindStatus,
		Collection:  entity.Collection,
		Predecessor: pred,
		Target:      entityID,
		Payload:     doc,
		Timestamp:   now,
	}, kp)
	if err != nil {
		return ledger.Record{}, err
	}
	if err := e.store.Append(ctx, rec); err != nil {
		return ledger.Record{}, storeErr(err, "append status record")
	}

	e.m.IncrementTransition(cur.Effective.String(), doc.State.String())
	e.log.InfoContext(ctx, "status transition written",
		"entity", entityID, "from", cur.Effective, "to", doc.State, "record", rec.ID)
	return rec, nil
}

// root returns the original record of the entity's status chain. When a
// buggy or hostile peer relays a second root, the earliest by (timestamp,
// id) is authoritative on every node; the listing order guarantees that.
func (e *Engine) root(ctx context.Context, entityID domain.RecordID) (ledger.Record, error) {
	statuses, err := e.store.ByTarget(ctx, entityID, ledger.KindStatus)
	if err != nil {
		return ledger.Record{}, storeErr(err, "load status history")
	}
	for _, rec := range statuses {
		if rec.IsOriginal() {
			return rec, nil
		}
	}
	return ledger.Record{}, dErrors.New(dErrors.CodeNotFound, "entity has no status history")
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
