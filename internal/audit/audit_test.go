package audit_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agora/internal/audit"
	"agora/pkg/domain"
	"agora/pkg/requestcontext"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestActionCategories(t *testing.T) {
	assert.Equal(t, audit.CategoryCompliance, audit.ActionStatusTransition.Category())
	assert.Equal(t, audit.CategoryCompliance, audit.ActionRoleGranted.Category())
	assert.Equal(t, audit.CategoryCompliance, audit.ActionEntityDeleted.Category())
	assert.Equal(t, audit.CategorySecurity, audit.ActionAccessDenied.Category())
	assert.Equal(t, audit.CategoryOperations, audit.ActionEntityCreated.Category())
	assert.Equal(t, audit.CategoryOperations, audit.Action("never_seen").Category())
}

func TestEmit_FillsFromContext(t *testing.T) {
	svc := audit.NewService(audit.WithLogger(discardLogger()))

	actor := domain.AgentID("aa01")
	now := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithAgent(context.Background(), actor)
	ctx = requestcontext.WithTime(ctx, now)
	ctx = requestcontext.WithRequestID(ctx, "req-123")

	svc.Emit(ctx, audit.Event{
		Action: audit.ActionStatusTransition,
		Entity: domain.RecordID("bb02"),
		Reason: "spam",
	})

	select {
	case got := <-svc.Inbox():
		assert.Equal(t, audit.CategoryCompliance, got.Category, "category derived from action")
		assert.Equal(t, actor, got.Actor)
		assert.Equal(t, now, got.Timestamp)
		assert.Equal(t, "req-123", got.RequestID)
		assert.Equal(t, "spam", got.Reason)
	default:
		t.Fatal("event not queued")
	}
}

func TestEmit_NeverBlocks(t *testing.T) {
	svc := audit.NewService(audit.WithLogger(discardLogger()), audit.WithBuffer(2))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 10 {
			svc.Emit(context.Background(), audit.Event{
				Action: audit.ActionEntityCreated,
				Entity: domain.RecordID("cc03"),
			})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full inbox")
	}
}

func TestWorker_DrainsInbox(t *testing.T) {
	store := audit.NewMemoryStore()
	svc := audit.NewService(audit.WithLogger(discardLogger()))
	worker := audit.NewWorker(store, svc.Inbox(), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	workerDone := make(chan error, 1)
	go func() { workerDone <- worker.Run(ctx) }()

	for _, action := range []audit.Action{audit.ActionRoleGranted, audit.ActionAccessDenied} {
		svc.Emit(context.Background(), audit.Event{Action: action, Actor: domain.AgentID("aa01")})
	}

	require.Eventually(t, func() bool {
		events, err := store.ListRecent(context.Background(), 10)
		return err == nil && len(events) == 2
	}, time.Second, 5*time.Millisecond)

	events, err := store.ListByActor(context.Background(), "aa01")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, audit.ActionRoleGranted, events[0].Action)
	assert.Equal(t, audit.ActionAccessDenied, events[1].Action)

	cancel()
	assert.ErrorIs(t, <-workerDone, context.Canceled)
}

func TestWorker_StoreFailureDoesNotStopDraining(t *testing.T) {
	store := &flakyStore{MemoryStore: audit.NewMemoryStore(), failFirst: true}
	svc := audit.NewService(audit.WithLogger(discardLogger()))
	worker := audit.NewWorker(store, svc.Inbox(), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	svc.Emit(context.Background(), audit.Event{Action: audit.ActionEntityDeleted})
	svc.Emit(context.Background(), audit.Event{Action: audit.ActionEntityCreated})

	require.Eventually(t, func() bool {
		events, err := store.ListRecent(context.Background(), 10)
		return err == nil && len(events) == 1
	}, time.Second, 5*time.Millisecond)

	events, _ := store.ListRecent(context.Background(), 10)
	assert.Equal(t, audit.ActionEntityCreated, events[0].Action, "the failed event is lost, the next lands")
}

func TestMemoryStore_ListRecent(t *testing.T) {
	store := audit.NewMemoryStore()
	ctx := context.Background()

	for i := range 5 {
		require.NoError(t, store.Append(ctx, audit.Event{Reason: string(rune('a' + i))}))
	}

	events, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "d", events[0].Reason)
	assert.Equal(t, "e", events[1].Reason)

	all, err := store.ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

type flakyStore struct {
	*audit.MemoryStore
	failFirst bool
}

func (s *flakyStore) Append(ctx context.Context, event audit.Event) error {
	if s.failFirst {
		s.failFirst = false
		return context.DeadlineExceeded
	}
	return s.MemoryStore.Append(ctx, event)
}
