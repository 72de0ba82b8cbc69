package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"agora/internal/audit"
	"agora/internal/authz"
	"agora/internal/authz/adapters"
	"agora/internal/cache"
	"agora/internal/chain"
	"agora/internal/events"
	"agora/internal/ledger"
	"agora/internal/market"
	"agora/internal/status"
	"agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
	"agora/pkg/requestcontext"
)

// AdminSuite exercises the moderation facade over the full real stack,
// market facade included, so write-through effects are observable exactly
// as collaborators would see them.
type AdminSuite struct {
	suite.Suite

	now   time.Time
	admin ledger.Keypair
	alice ledger.Keypair
	bob   ledger.Keypair

	store     *ledger.MemoryStore
	statuses  *status.Engine
	gate      *authz.Gate
	manager   *cache.Manager
	bus       *events.Bus
	auditSvc  *audit.Service
	marketSvc *market.Service
	svc       *Service
}

func TestAdminSuite(t *testing.T) {
	suite.Run(t, new(AdminSuite))
}

func (s *AdminSuite) SetupTest() {
	s.now = time.Date(2026, 3, 12, 11, 0, 0, 0, time.UTC)

	var err error
	s.admin, err = ledger.KeypairFromSeed(seed(0x01))
	s.Require().NoError(err)
	s.alice, err = ledger.KeypairFromSeed(seed(0x02))
	s.Require().NoError(err)
	s.bob, err = ledger.KeypairFromSeed(seed(0x03))
	s.Require().NoError(err)

	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	keys := ledger.NewKeyring(s.admin, s.alice, s.bob)
	s.store = ledger.NewMemoryStore()
	chains := chain.New(s.store)

	var engine *status.Engine
	accounts := adapters.NewAccountAdapter(s.store, chains,
		adapters.StatusesFunc(func(ctx context.Context, id domain.RecordID) (status.ResolvedStatus, error) {
			return engine.Resolve(ctx, id)
		}))
	s.gate = authz.New(s.store, accounts, keys, authz.WithLogger(discard))
	engine = status.NewEngine(s.store, chains, keys, s.gate, status.WithLogger(discard))
	s.statuses = engine

	snapshotter := market.NewSnapshotter(chains, engine)
	s.manager = cache.NewManager(cache.NewMemoryBackend(), snapshotter.Snapshot,
		cache.WithLogger(discard), cache.WithRetry(2, time.Millisecond))
	s.bus = events.NewBus(events.WithLogger(discard))
	s.auditSvc = audit.NewService(audit.WithLogger(discard), audit.WithBuffer(64))

	s.marketSvc = market.NewService(s.store, chains, engine, s.gate, keys, s.manager,
		market.WithBus(s.bus), market.WithLogger(discard))
	s.svc = NewService(s.store, engine, s.gate, s.marketSvc, s.manager,
		WithBus(s.bus), WithAudit(s.auditSvc), WithLogger(discard))

	s.Require().NoError(s.gate.Bootstrap(s.ctxAs(s.admin, s.now.Add(-time.Hour)), s.admin))
}

func (s *AdminSuite) ctxAs(kp ledger.Keypair, at time.Time) context.Context {
	ctx := requestcontext.WithAgent(context.Background(), kp.Agent())
	return requestcontext.WithTime(ctx, at)
}

// approvedAuthor creates and approves kp's profile so it may post entities.
func (s *AdminSuite) approvedAuthor(kp ledger.Keypair, nick string, at time.Time) domain.RecordID {
	body := fmt.Sprintf(`{"name":"%s","nickname":"%s","email":"%s@example.com"}`, nick, nick, nick)
	snap, err := s.marketSvc.Create(s.ctxAs(kp, at), domain.CollectionUsers, json.RawMessage(body))
	s.Require().NoError(err)
	id := snap.Resolved.Original
	_, err = s.svc.TransitionStatus(s.ctxAs(s.admin, at.Add(time.Second)), domain.CollectionUsers, id, status.StateApproved, "verified")
	s.Require().NoError(err)
	return id
}

func (s *AdminSuite) createRequest(kp ledger.Keypair, title string, at time.Time) domain.RecordID {
	body := fmt.Sprintf(`{"title":"%s","description":"details","state":"published","skills":["general"]}`, title)
	snap, err := s.marketSvc.Create(s.ctxAs(kp, at), domain.CollectionRequests, json.RawMessage(body))
	s.Require().NoError(err)
	return snap.Resolved.Original
}

func (s *AdminSuite) drainAudit() []audit.Event {
	var evs []audit.Event
	for {
		select {
		case ev := <-s.auditSvc.Inbox():
			evs = append(evs, ev)
		default:
			return evs
		}
	}
}

func seed(b byte) []byte {
	out := make([]byte, 32)
	for i := range out {
		out[i] = b
	}
	return out
}

func (s *AdminSuite) TestTransitionStatus_Approve() {
	body := json.RawMessage(`{"name":"Alice","nickname":"alice","email":"alice@example.com"}`)
	snap, err := s.marketSvc.Create(s.ctxAs(s.alice, s.now), domain.CollectionUsers, body)
	s.Require().NoError(err)
	id := snap.Resolved.Original

	var got []events.Event
	unsubscribe := s.bus.Subscribe(domain.CollectionUsers, func(_ context.Context, ev events.Event) error {
		got = append(got, ev)
		return nil
	})
	defer unsubscribe()

	approved, err := s.svc.TransitionStatus(s.ctxAs(s.admin, s.now.Add(time.Minute)),
		domain.CollectionUsers, id, status.StateApproved, "looks legit")
	s.Require().NoError(err)
	s.Equal(status.StateApproved, approved.Status.Effective)
	s.Equal("looks legit", approved.Status.Reason)

	// Write-through: the very next cached read sees the new status.
	read, err := s.marketSvc.Get(s.ctxAs(s.alice, s.now.Add(2*time.Minute)), domain.CollectionUsers, id)
	s.Require().NoError(err)
	s.Equal(status.StateApproved, read.Status.Effective)

	s.Require().Len(got, 1)
	s.Equal(events.TypeUpdated, got[0].Type)
	s.Equal(ledger.KindStatus, got[0].Record.Kind)
	s.Equal(id, got[0].Entity)

	evs := s.drainAudit()
	s.Require().Len(evs, 1)
	s.Equal(audit.ActionStatusTransition, evs[0].Action)
	s.Equal(audit.CategoryCompliance, evs[0].Category)
	s.Equal("looks legit", evs[0].Reason)
	s.Equal(s.admin.Agent(), evs[0].Actor)
}

func (s *AdminSuite) TestTransitionStatus_NonAdminDenied() {
	body := json.RawMessage(`{"name":"Alice","nickname":"alice","email":"alice@example.com"}`)
	snap, err := s.marketSvc.Create(s.ctxAs(s.alice, s.now), domain.CollectionUsers, body)
	s.Require().NoError(err)
	s.drainAudit()

	_, err = s.svc.TransitionStatus(s.ctxAs(s.alice, s.now.Add(time.Minute)),
		domain.CollectionUsers, snap.Resolved.Original, status.StateApproved, "self serve")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeDenied))

	evs := s.drainAudit()
	s.Require().Len(evs, 1)
	s.Equal(audit.ActionAccessDenied, evs[0].Action)
	s.Equal(audit.CategorySecurity, evs[0].Category)
}

func (s *AdminSuite) TestTransitionStatus_UnknownEntity() {
	ctx := s.ctxAs(s.admin, s.now)

	_, err := s.svc.TransitionStatus(ctx, domain.CollectionUsers,
		domain.RecordID("00ff00ff00ff00ff00ff00ff00ff00ff00ff00ff00ff00ff00ff00ff00ff00ff"),
		status.StateApproved, "")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	// A real entity addressed through the wrong collection is equally
	// invisible.
	id := s.approvedAuthor(s.alice, "alice", s.now)
	_, err = s.svc.TransitionStatus(s.ctxAs(s.admin, s.now.Add(time.Minute)),
		domain.CollectionOffers, id, status.StateRejected, "")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *AdminSuite) TestTransitionStatus_IllegalEdge() {
	id := s.approvedAuthor(s.alice, "alice", s.now)

	_, err := s.svc.TransitionStatus(s.ctxAs(s.admin, s.now.Add(time.Minute)),
		domain.CollectionUsers, id, status.StateRejected, "too late")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))

	_, err = s.svc.TransitionStatus(s.ctxAs(s.admin, s.now.Add(time.Minute)),
		domain.CollectionUsers, id, status.StateSuspended, "wrong door")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *AdminSuite) TestResubmit_AuthorAlone() {
	body := json.RawMessage(`{"name":"Alice","nickname":"alice","email":"alice@example.com"}`)
	snap, err := s.marketSvc.Create(s.ctxAs(s.alice, s.now), domain.CollectionUsers, body)
	s.Require().NoError(err)
	id := snap.Resolved.Original

	_, err = s.svc.TransitionStatus(s.ctxAs(s.admin, s.now.Add(time.Minute)),
		domain.CollectionUsers, id, status.StateRejected, "incomplete")
	s.Require().NoError(err)

	// Even administrators cannot resubmit on the author's behalf.
	_, err = s.svc.TransitionStatus(s.ctxAs(s.admin, s.now.Add(2*time.Minute)),
		domain.CollectionUsers, id, status.StatePending, "")
	s.True(dErrors.HasCode(err, dErrors.CodeDenied))

	resubmitted, err := s.svc.TransitionStatus(s.ctxAs(s.alice, s.now.Add(3*time.Minute)),
		domain.CollectionUsers, id, status.StatePending, "fixed the bio")
	s.Require().NoError(err)
	s.Equal(status.StatePending, resubmitted.Status.Effective)
}

// Vocabulary entries ride the same moderation arc as listings: created
// pending, approved by an administrator, closed to everyone else.
func (s *AdminSuite) TestServiceTypeModeration() {
	s.approvedAuthor(s.alice, "alice", s.now)

	body := json.RawMessage(`{"name":"Design","description":"Visual and industrial design work","technical":false}`)
	snap, err := s.marketSvc.Create(s.ctxAs(s.alice, s.now.Add(time.Minute)), domain.CollectionServiceTypes, body)
	s.Require().NoError(err)
	s.Equal(status.StatePending, snap.Status.Effective)
	id := snap.Resolved.Original

	// Vocabulary is curated: agents without a role cannot approve entries,
	// their own included.
	_, err = s.svc.TransitionStatus(s.ctxAs(s.bob, s.now.Add(2*time.Minute)),
		domain.CollectionServiceTypes, id, status.StateApproved, "drive by")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeDenied))

	approved, err := s.svc.TransitionStatus(s.ctxAs(s.admin, s.now.Add(3*time.Minute)),
		domain.CollectionServiceTypes, id, status.StateApproved, "fits the vocabulary")
	s.Require().NoError(err)
	s.Equal(status.StateApproved, approved.Status.Effective)
}

func (s *AdminSuite) TestSuspension_Lifecycle() {
	s.approvedAuthor(s.alice, "alice", s.now)
	id := s.createRequest(s.alice, "spammy", s.now.Add(time.Minute))
	_, err := s.svc.TransitionStatus(s.ctxAs(s.admin, s.now.Add(2*time.Minute)),
		domain.CollectionRequests, id, status.StateApproved, "")
	s.Require().NoError(err)
	s.drainAudit()

	suspended, err := s.svc.SuspendTemporarily(s.ctxAs(s.admin, s.now.Add(3*time.Minute)),
		domain.CollectionRequests, id, "reported", 3)
	s.Require().NoError(err)
	s.Equal(status.StateSuspended, suspended.Status.Effective)
	s.Require().NotNil(suspended.Status.Until)
	s.True(suspended.Status.Until.Equal(s.now.Add(3*time.Minute).Add(3*24*time.Hour)))

	evs := s.drainAudit()
	s.Require().Len(evs, 1)
	s.Equal(audit.ActionEntitySuspended, evs[0].Action)
	s.Equal(audit.CategoryCompliance, evs[0].Category)

	back, err := s.svc.Unsuspend(s.ctxAs(s.admin, s.now.Add(4*time.Minute)),
		domain.CollectionRequests, id, "cleared")
	s.Require().NoError(err)
	s.Equal(status.StateApproved, back.Status.Effective)

	forever, err := s.svc.SuspendIndefinitely(s.ctxAs(s.admin, s.now.Add(5*time.Minute)),
		domain.CollectionRequests, id, "repeat offender")
	s.Require().NoError(err)
	s.Equal(status.StateSuspended, forever.Status.Effective)
	s.Nil(forever.Status.Until)
}

func (s *AdminSuite) TestSuspendTemporarily_RequiresDays() {
	s.approvedAuthor(s.alice, "alice", s.now)
	id := s.createRequest(s.alice, "fine", s.now.Add(time.Minute))
	_, err := s.svc.TransitionStatus(s.ctxAs(s.admin, s.now.Add(2*time.Minute)),
		domain.CollectionRequests, id, status.StateApproved, "")
	s.Require().NoError(err)

	_, err = s.svc.SuspendTemporarily(s.ctxAs(s.admin, s.now.Add(3*time.Minute)),
		domain.CollectionRequests, id, "oops", 0)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

// A lapsed temporary suspension reads as approved without any record being
// written.
func (s *AdminSuite) TestLazySuspensionExpiry() {
	s.approvedAuthor(s.alice, "alice", s.now)
	id := s.createRequest(s.alice, "briefly bad", s.now.Add(time.Minute))
	_, err := s.svc.TransitionStatus(s.ctxAs(s.admin, s.now.Add(2*time.Minute)),
		domain.CollectionRequests, id, status.StateApproved, "")
	s.Require().NoError(err)
	_, err = s.svc.SuspendTemporarily(s.ctxAs(s.admin, s.now.Add(3*time.Minute)),
		domain.CollectionRequests, id, "cooling off", 1)
	s.Require().NoError(err)

	later := s.ctxAs(s.alice, s.now.Add(48*time.Hour))
	s.Require().NoError(s.manager.Invalidate(later, domain.CollectionRequests, id))

	snap, err := s.marketSvc.Get(later, domain.CollectionRequests, id)
	s.Require().NoError(err)
	s.Equal(status.StateSuspended, snap.Status.Stored)
	s.Equal(status.StateApproved, snap.Status.Effective)
	s.True(snap.Status.Expired)
}

func (s *AdminSuite) TestGrantRole_AndRoleOf() {
	_, err := s.svc.GrantRole(s.ctxAs(s.admin, s.now), s.bob.Agent(), domain.RoleModerator)
	s.Require().NoError(err)

	evs := s.drainAudit()
	s.Require().Len(evs, 1)
	s.Equal(audit.ActionRoleGranted, evs[0].Action)
	s.Equal(audit.CategoryCompliance, evs[0].Category)
	s.Equal(s.bob.Agent(), evs[0].Subject)
	s.Equal("moderator", evs[0].Reason)

	role, err := s.svc.RoleOf(s.ctxAs(s.bob, s.now.Add(time.Minute)), s.bob.Agent())
	s.Require().NoError(err)
	s.Equal(domain.RoleModerator, role)

	role, err = s.svc.RoleOf(s.ctxAs(s.admin, s.now.Add(time.Minute)), s.bob.Agent())
	s.Require().NoError(err)
	s.Equal(domain.RoleModerator, role)

	_, err = s.svc.RoleOf(s.ctxAs(s.alice, s.now.Add(time.Minute)), s.bob.Agent())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeDenied))
}

func (s *AdminSuite) TestRevokeRole_LastAdministratorStays() {
	_, err := s.svc.RevokeRole(s.ctxAs(s.admin, s.now), s.admin.Agent())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = s.svc.GrantRole(s.ctxAs(s.admin, s.now.Add(time.Minute)), s.bob.Agent(), domain.RoleAdministrator)
	s.Require().NoError(err)
	s.drainAudit()

	_, err = s.svc.RevokeRole(s.ctxAs(s.bob, s.now.Add(2*time.Minute)), s.admin.Agent())
	s.Require().NoError(err)

	evs := s.drainAudit()
	s.Require().Len(evs, 1)
	s.Equal(audit.ActionRoleRevoked, evs[0].Action)
	s.Equal(s.admin.Agent(), evs[0].Subject)

	role, err := s.svc.RoleOf(s.ctxAs(s.admin, s.now.Add(3*time.Minute)), s.admin.Agent())
	s.Require().NoError(err)
	s.Equal(domain.RoleNone, role)
}

func (s *AdminSuite) TestModerationQueue() {
	s.approvedAuthor(s.alice, "alice", s.now)
	first := s.createRequest(s.alice, "first", s.now.Add(1*time.Minute))
	second := s.createRequest(s.alice, "second", s.now.Add(2*time.Minute))
	third := s.createRequest(s.alice, "third", s.now.Add(3*time.Minute))
	_, err := s.svc.TransitionStatus(s.ctxAs(s.admin, s.now.Add(4*time.Minute)),
		domain.CollectionRequests, second, status.StateApproved, "")
	s.Require().NoError(err)

	_, err = s.svc.GrantRole(s.ctxAs(s.admin, s.now.Add(5*time.Minute)), s.bob.Agent(), domain.RoleModerator)
	s.Require().NoError(err)
	s.drainAudit()

	queue, err := s.svc.ModerationQueue(s.ctxAs(s.bob, s.now.Add(6*time.Minute)), domain.CollectionRequests)
	s.Require().NoError(err)
	s.Require().Len(queue, 2)
	s.Equal(first, queue[0].Resolved.Original)
	s.Equal(third, queue[1].Resolved.Original)

	_, err = s.svc.ModerationQueue(s.ctxAs(s.alice, s.now.Add(7*time.Minute)), domain.CollectionRequests)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeDenied))

	evs := s.drainAudit()
	s.Require().Len(evs, 1)
	s.Equal(audit.ActionAccessDenied, evs[0].Action)
	s.Equal("view_moderation_queue", evs[0].Reason)
}
