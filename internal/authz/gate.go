// Package authz decides who may do what. Roles come from the append-only
// grant/revoke log; everything else derives from record authorship. Every
// refusal is the same CodeDenied with the same message, so a caller probing
// the gate cannot tell a missing agent from a missing privilege.
package authz

import (
	"context"
	"errors"
	"log/slog"

	"agora/internal/authz/metrics"
	"agora/internal/ledger"
	"agora/internal/status"
	"agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
	"agora/pkg/platform/sentinel"
	"agora/pkg/requestcontext"
)

//go:generate mockgen -source=gate.go -destination=mock/gate.go -package=mock

// Ledger is the slice of the record store the gate needs. ledger.Store
// satisfies it.
type Ledger interface {
	Append(ctx context.Context, rec ledger.Record) error
	BySubject(ctx context.Context, agent domain.AgentID) ([]ledger.Record, error)
	ByKind(ctx context.Context, kind ledger.Kind) ([]ledger.Record, error)
}

// AccountStatus reports whether an agent's marketplace account is in good
// standing, meaning their user profile is effectively approved.
type AccountStatus interface {
	ProfileApproved(ctx context.Context, agent domain.AgentID) (bool, error)
}

// Gate is the authorization decision point. It owns the role log: reads fold
// it, Grant/Revoke/Bootstrap append to it.
type Gate struct {
	store    Ledger
	accounts AccountStatus
	keys     *ledger.Keyring
	log      *slog.Logger
	m        *metrics.Metrics
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the gate logger.
func WithLogger(log *slog.Logger) Option {
	return func(g *Gate) {
		if log != nil {
			g.log = log
		}
	}
}

// WithMetrics attaches authorization metrics. Nil is allowed.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) { g.m = m }
}

// New creates a Gate over the given collaborators.
func New(store Ledger, accounts AccountStatus, keys *ledger.Keyring, opts ...Option) *Gate {
	g := &Gate{
		store:    store,
		accounts: accounts,
		keys:     keys,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CanCreate reports whether the acting agent may create an entity in the
// collection. Creation requires an approved account; creating the user
// profile itself is the bootstrap exception, or nobody could ever reach
// approved standing.
func (g *Gate) CanCreate(ctx context.Context, c domain.Collection) error {
	return g.observe("create", g.canCreate(ctx, c))
}

func (g *Gate) canCreate(ctx context.Context, c domain.Collection) error {
	agent, err := g.acting(ctx)
	if err != nil {
		return err
	}
	if c == domain.CollectionUsers {
		return nil
	}
	ok, err := g.accounts.ProfileApproved(ctx, agent)
	if err != nil {
		return err
	}
	if !ok {
		return denied()
	}
	return nil
}

// CanModify reports whether the acting agent may update or delete an entity
// authored by entityAuthor: the author themselves, or an administrator.
func (g *Gate) CanModify(ctx context.Context, entityAuthor domain.AgentID) error {
	return g.observe("modify", g.canModify(ctx, entityAuthor))
}

func (g *Gate) canModify(ctx context.Context, entityAuthor domain.AgentID) error {
	agent, err := g.acting(ctx)
	if err != nil {
		return err
	}
	if agent == entityAuthor {
		return nil
	}
	return g.requireRole(ctx, agent, domain.RoleAdministrator)
}

// AuthorizeTransition implements status.Authorizer. Lifecycle edges are
// administrator-only, except the resubmit edge (rejected to pending), which
// belongs to the entity's author alone.
func (g *Gate) AuthorizeTransition(ctx context.Context, entityAuthor domain.AgentID, from, to status.State) error {
	return g.observe("transition", g.authorizeTransition(ctx, entityAuthor, from, to))
}

func (g *Gate) authorizeTransition(ctx context.Context, entityAuthor domain.AgentID, from, to status.State) error {
	agent, err := g.acting(ctx)
	if err != nil {
		return err
	}
	if from == status.StateRejected && to == status.StatePending {
		if agent == entityAuthor {
			return nil
		}
		return denied()
	}
	return g.requireRole(ctx, agent, domain.RoleAdministrator)
}

// CanAdministerRoles reports whether the acting agent may grant or revoke
// roles.
func (g *Gate) CanAdministerRoles(ctx context.Context) error {
	return g.observe("roles", g.canAdministerRoles(ctx))
}

func (g *Gate) canAdministerRoles(ctx context.Context) error {
	agent, err := g.acting(ctx)
	if err != nil {
		return err
	}
	return g.requireRole(ctx, agent, domain.RoleAdministrator)
}

// CanViewQueue reports whether the acting agent may read the moderation
// queue. This is the moderator role's privilege; administrators subsume it.
func (g *Gate) CanViewQueue(ctx context.Context) error {
	return g.observe("queue", g.canViewQueue(ctx))
}

func (g *Gate) canViewQueue(ctx context.Context) error {
	agent, err := g.acting(ctx)
	if err != nil {
		return err
	}
	return g.requireRole(ctx, agent, domain.RoleModerator)
}

// Grant appends a role grant for subject, acting-administrator only.
func (g *Gate) Grant(ctx context.Context, subject domain.AgentID, role domain.Role) (ledger.Record, error) {
	if err := g.CanAdministerRoles(ctx); err != nil {
		return ledger.Record{}, err
	}
	if _, err := domain.ParseGrantableRole(role.String()); err != nil {
		return ledger.Record{}, err
	}
	if subject.IsZero() {
		return ledger.Record{}, dErrors.New(dErrors.CodeInvalidInput, "grant needs a subject agent")
	}

	kp, err := g.keys.Acting(ctx)
	if err != nil {
		return ledger.Record{}, err
	}
	rec, err := ledger.Seal(ledger.Draft{
		Kind:      ledger.KindGrant,
		Subject:   subject,
		Payload:   Grant{Role: role},
		Timestamp: requestcontext.Now(ctx),
	}, kp)
	if err != nil {
		return ledger.Record{}, err
	}
	if err := g.store.Append(ctx, rec); err != nil {
		return ledger.Record{}, storeErr(err, "append grant")
	}

	g.log.InfoContext(ctx, "role granted",
		"subject", subject, "role", role, "record", rec.ID)
	return rec, nil
}

// Revoke appends a revoke for subject, returning the agent to no role.
// Revoking the last administrator is refused: a network with no
// administrator can never approve or moderate anything again.
func (g *Gate) Revoke(ctx context.Context, subject domain.AgentID) (ledger.Record, error) {
	if err := g.CanAdministerRoles(ctx); err != nil {
		return ledger.Record{}, err
	}

	current, err := g.RoleOf(ctx, subject)
	if err != nil {
		return ledger.Record{}, err
	}
	if current == domain.RoleNone {
		return ledger.Record{}, dErrors.New(dErrors.CodeConflict, "agent holds no role to revoke")
	}
	if current == domain.RoleAdministrator {
		admins, err := g.Administrators(ctx)
		if err != nil {
			return ledger.Record{}, err
		}
		if len(admins) == 1 {
			return ledger.Record{}, dErrors.New(dErrors.CodeConflict, "cannot revoke the last administrator")
		}
	}

	kp, err := g.keys.Acting(ctx)
	if err != nil {
		return ledger.Record{}, err
	}
	rec, err := ledger.Seal(ledger.Draft{
		Kind:      ledger.KindRevoke,
		Subject:   subject,
		Timestamp: requestcontext.Now(ctx),
	}, kp)
	if err != nil {
		return ledger.Record{}, err
	}
	if err := g.store.Append(ctx, rec); err != nil {
		return ledger.Record{}, storeErr(err, "append revoke")
	}

	g.log.InfoContext(ctx, "role revoked",
		"subject", subject, "was", current, "record", rec.ID)
	return rec, nil
}

// Bootstrap grants administrator to kp's agent when the network has none.
// Called once at startup; a populated role log makes it a no-op, so restarts
// and multi-node deployments converge on the configured first administrator.
func (g *Gate) Bootstrap(ctx context.Context, kp ledger.Keypair) error {
	admins, err := g.Administrators(ctx)
	if err != nil {
		return err
	}
	if len(admins) > 0 {
		return nil
	}

	rec, err := ledger.Seal(ledger.Draft{
		Kind:      ledger.KindGrant,
		Subject:   kp.Agent(),
		Payload:   Grant{Role: domain.RoleAdministrator},
		Timestamp: requestcontext.Now(ctx),
	}, kp)
	if err != nil {
		return err
	}
	if err := g.store.Append(ctx, rec); err != nil {
		return storeErr(err, "append bootstrap grant")
	}

	g.log.InfoContext(ctx, "bootstrap administrator granted",
		"subject", kp.Agent(), "record", rec.ID)
	return nil
}

func (g *Gate) acting(ctx context.Context) (domain.AgentID, error) {
	agent := requestcontext.Agent(ctx)
	if agent.IsZero() {
		return "", dErrors.New(dErrors.CodeUnauthorized, "no acting agent")
	}
	return agent, nil
}

func (g *Gate) requireRole(ctx context.Context, agent domain.AgentID, min domain.Role) error {
	role, err := g.RoleOf(ctx, agent)
	if err != nil {
		return err
	}
	if !role.AtLeast(min) {
		return denied()
	}
	return nil
}

func (g *Gate) observe(action string, err error) error {
	outcome := "allowed"
	switch {
	case dErrors.Is(err, dErrors.CodeDenied):
		outcome = "denied"
	case err != nil:
		outcome = "error"
	}
	g.m.IncrementCheck(action, outcome)
	return err
}

func denied() error {
	return dErrors.New(dErrors.CodeDenied, "permission denied")
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
