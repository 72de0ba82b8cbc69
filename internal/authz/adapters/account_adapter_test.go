package adapters_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"agora/internal/authz/adapters"
	"agora/internal/chain"
	"agora/internal/ledger"
	ledgermock "agora/internal/ledger/mock"
	"agora/internal/status"
	statusmock "agora/internal/status/mock"
	"agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
	"agora/pkg/requestcontext"
)

// The adapter is wired against real stores and engines here: its whole job
// is translating their composed answers into one yes/no, and mocked layers
// would just restate the implementation.
type AccountAdapterSuite struct {
	suite.Suite
	now     time.Time
	admin   ledger.Keypair
	author  ledger.Keypair
	store   *ledger.MemoryStore
	engine  *status.Engine
	adapter *adapters.AccountAdapter
}

func TestAccountAdapterSuite(t *testing.T) {
	suite.Run(t, new(AccountAdapterSuite))
}

func (s *AccountAdapterSuite) SetupTest() {
	s.now = time.Date(2026, 3, 3, 16, 0, 0, 0, time.UTC)
	s.admin = s.keypair(0x0a)
	s.author = s.keypair(0x0b)
	s.store = ledger.NewMemoryStore()

	ctrl := gomock.NewController(s.T())
	s.T().Cleanup(ctrl.Finish)
	auth := statusmock.NewMockAuthorizer(ctrl)
	auth.EXPECT().AuthorizeTransition(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil).AnyTimes()

	resolver := chain.New(s.store)
	s.engine = status.NewEngine(
		s.store,
		resolver,
		ledger.NewKeyring(s.admin, s.author),
		auth,
		status.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	s.adapter = adapters.NewAccountAdapter(s.store, resolver, s.engine)
}

func (s *AccountAdapterSuite) keypair(seedByte byte) ledger.Keypair {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = seedByte
	}
	kp, err := ledger.KeypairFromSeed(seed)
	s.Require().NoError(err)
	return kp
}

func (s *AccountAdapterSuite) ctxAs(kp ledger.Keypair, at time.Time) context.Context {
	ctx := requestcontext.WithAgent(context.Background(), kp.Agent())
	return requestcontext.WithTime(ctx, at)
}

// profile seals a user profile entity and its pending status history.
func (s *AccountAdapterSuite) profile() ledger.Record {
	rec, err := ledger.Seal(ledger.Draft{
		Kind:       ledger.KindEntity,
		Collection: domain.CollectionUsers,
		Payload:    map[string]any{"display_name": "Bea"},
		Timestamp:  s.now.Add(-time.Hour),
	}, s.author)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Append(context.Background(), rec))

	ctx := s.ctxAs(s.author, s.now.Add(-time.Hour))
	_, err = s.engine.Create(ctx, rec.ID)
	s.Require().NoError(err)
	return rec
}

func (s *AccountAdapterSuite) TestNoProfileIsNotApproved() {
	ok, err := s.adapter.ProfileApproved(context.Background(), s.author.Agent())
	s.Require().NoError(err)
	s.False(ok)
}

func (s *AccountAdapterSuite) TestPendingProfileIsNotApproved() {
	s.profile()

	ok, err := s.adapter.ProfileApproved(s.ctxAs(s.admin, s.now), s.author.Agent())
	s.Require().NoError(err)
	s.False(ok)
}

func (s *AccountAdapterSuite) TestApprovedProfile() {
	rec := s.profile()

	ctx := s.ctxAs(s.admin, s.now)
	_, err := s.engine.Transition(ctx, rec.ID, status.StateApproved, "looks fine")
	s.Require().NoError(err)

	ok, err := s.adapter.ProfileApproved(s.ctxAs(s.admin, s.now.Add(time.Minute)), s.author.Agent())
	s.Require().NoError(err)
	s.True(ok)
}

func (s *AccountAdapterSuite) TestSuspendedProfileIsNotApproved() {
	rec := s.profile()

	ctx := s.ctxAs(s.admin, s.now)
	_, err := s.engine.Transition(ctx, rec.ID, status.StateApproved, "")
	s.Require().NoError(err)
	_, err = s.engine.SuspendIndefinitely(s.ctxAs(s.admin, s.now.Add(time.Minute)), rec.ID, "spam")
	s.Require().NoError(err)

	ok, err := s.adapter.ProfileApproved(s.ctxAs(s.admin, s.now.Add(2*time.Minute)), s.author.Agent())
	s.Require().NoError(err)
	s.False(ok)
}

func (s *AccountAdapterSuite) TestDeletedProfileIsNotApproved() {
	rec := s.profile()

	ctx := s.ctxAs(s.admin, s.now)
	_, err := s.engine.Transition(ctx, rec.ID, status.StateApproved, "")
	s.Require().NoError(err)

	tomb, err := ledger.Seal(ledger.Draft{
		Kind:       ledger.KindTombstone,
		Collection: domain.CollectionUsers,
		Target:     rec.ID,
		Timestamp:  s.now.Add(time.Minute),
	}, s.author)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Append(context.Background(), tomb))

	ok, err := s.adapter.ProfileApproved(s.ctxAs(s.admin, s.now.Add(2*time.Minute)), s.author.Agent())
	s.Require().NoError(err)
	s.False(ok)
}

func TestAccountAdapter_StoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	store := ledgermock.NewMockStore(ctrl)
	store.EXPECT().AuthorOriginals(gomock.Any(), gomock.Any(), domain.CollectionUsers).
		Return(nil, errors.New("connection refused"))

	adapter := adapters.NewAccountAdapter(store, chain.New(store), nil)
	_, err := adapter.ProfileApproved(context.Background(), domain.AgentID("beef"))
	if !dErrors.HasCode(err, dErrors.CodeUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}
