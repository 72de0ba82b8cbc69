package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"agora/pkg/domain"
	"agora/pkg/platform/sentinel"
)

// StoreSuite is the behavioral contract every ledger store must satisfy.
// Concrete suites supply a factory; the tests are identical across memory,
// sqlite and postgres.
type StoreSuite struct {
	suite.Suite
	newStore func(t *testing.T) Store

	store Store
	kp    Keypair
	ctx   context.Context
}

func (s *StoreSuite) SetupTest() {
	s.store = s.newStore(s.T())
	s.kp = s.suiteKeypair(0xA1)
	s.ctx = context.Background()
}

func (s *StoreSuite) suiteKeypair(seedByte byte) Keypair {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = seedByte
	}
	kp, err := KeypairFromSeed(seed)
	s.Require().NoError(err)
	return kp
}

// seal builds a signed record at a deterministic offset from a fixed base
// time, so listing order assertions are stable.
func (s *StoreSuite) seal(d Draft, offset time.Duration) Record {
	if d.Timestamp.IsZero() {
		d.Timestamp = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC).Add(offset)
	}
	rec, err := Seal(d, s.kp)
	s.Require().NoError(err)
	return rec
}

func (s *StoreSuite) append(rec Record) {
	s.Require().NoError(s.store.Append(s.ctx, rec))
}

func (s *StoreSuite) TestAppendAndGet() {
	rec := s.seal(Draft{
		Kind:       KindEntity,
		Collection: domain.CollectionRequests,
		Payload:    map[string]any{"title": "first"},
	}, 0)
	s.append(rec)

	got, err := s.store.Get(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(rec.ID, got.ID)
	s.Equal(rec.Author, got.Author)
	s.Equal(rec.Kind, got.Kind)
	s.Equal(rec.Collection, got.Collection)
	s.True(rec.Timestamp.Equal(got.Timestamp))
	s.JSONEq(string(rec.Entry), string(got.Entry))
	s.NoError(got.Verify(), "round-tripped record must still verify")
}

func (s *StoreSuite) TestGetMissingReturnsNotFound() {
	_, err := s.store.Get(s.ctx, domain.RecordID("ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"))
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *StoreSuite) TestDuplicateAppendConflicts() {
	rec := s.seal(Draft{
		Kind:       KindEntity,
		Collection: domain.CollectionOffers,
		Payload:    map[string]any{"title": "dup"},
	}, 0)
	s.append(rec)

	err := s.store.Append(s.ctx, rec)
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *StoreSuite) TestUpdatesOrderedByTimestampThenID() {
	original := s.seal(Draft{
		Kind:       KindEntity,
		Collection: domain.CollectionRequests,
		Payload:    map[string]any{"title": "v1"},
	}, 0)
	s.append(original)

	// Two updates at distinct times plus one at the same time as the second.
	u1 := s.seal(Draft{Kind: KindEntity, Collection: domain.CollectionRequests, Predecessor: original.ID, Payload: map[string]any{"title": "v2"}}, time.Minute)
	u2 := s.seal(Draft{Kind: KindEntity, Collection: domain.CollectionRequests, Predecessor: original.ID, Payload: map[string]any{"title": "v3"}}, 2*time.Minute)
	u3 := s.seal(Draft{Kind: KindEntity, Collection: domain.CollectionRequests, Predecessor: original.ID, Payload: map[string]any{"title": "v3-fork"}}, 2*time.Minute)
	for _, rec := range []Record{u3, u2, u1} { // insert out of order
		s.append(rec)
	}

	got, err := s.store.Updates(s.ctx, original.ID)
	s.Require().NoError(err)
	s.Require().Len(got, 3)
	s.Equal(u1.ID, got[0].ID)
	// Equal timestamps fall back to id order.
	if u2.ID < u3.ID {
		s.Equal(u2.ID, got[1].ID)
		s.Equal(u3.ID, got[2].ID)
	} else {
		s.Equal(u3.ID, got[1].ID)
		s.Equal(u2.ID, got[2].ID)
	}
}

func (s *StoreSuite) TestDeletesReturnsOnlyTombstones() {
	original := s.seal(Draft{
		Kind:       KindEntity,
		Collection: domain.CollectionRequests,
		Payload:    map[string]any{"title": "doomed"},
	}, 0)
	s.append(original)

	status := s.seal(Draft{Kind: KindStatus, Collection: domain.CollectionRequests, Target: original.ID, Payload: map[string]any{"state": "pending"}}, time.Second)
	s.append(status)

	got, err := s.store.Deletes(s.ctx, original.ID)
	s.Require().NoError(err)
	s.Empty(got, "status records are not tombstones")

	tomb := s.seal(Draft{Kind: KindTombstone, Collection: domain.CollectionRequests, Target: original.ID}, time.Minute)
	s.append(tomb)

	got, err = s.store.Deletes(s.ctx, original.ID)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(tomb.ID, got[0].ID)
}

func (s *StoreSuite) TestOriginalsListsOnlyChainRoots() {
	original := s.seal(Draft{
		Kind:       KindEntity,
		Collection: domain.CollectionServiceTypes,
		Payload:    map[string]any{"name": "design"},
	}, 0)
	s.append(original)

	update := s.seal(Draft{Kind: KindEntity, Collection: domain.CollectionServiceTypes, Predecessor: original.ID, Payload: map[string]any{"name": "design v2"}}, time.Minute)
	s.append(update)

	other := s.seal(Draft{Kind: KindEntity, Collection: domain.CollectionOffers, Payload: map[string]any{"title": "other collection"}}, 2*time.Minute)
	s.append(other)

	got, err := s.store.Originals(s.ctx, domain.CollectionServiceTypes)
	s.Require().NoError(err)
	s.Require().Len(got, 1, "updates and other collections excluded")
	s.Equal(original.ID, got[0].ID)
}

func (s *StoreSuite) TestByTargetFiltersKind() {
	entity := s.seal(Draft{
		Kind:       KindEntity,
		Collection: domain.CollectionOrganizations,
		Payload:    map[string]any{"name": "co-op"},
	}, 0)
	s.append(entity)

	status := s.seal(Draft{Kind: KindStatus, Collection: domain.CollectionOrganizations, Target: entity.ID, Payload: map[string]any{"state": "pending"}}, time.Second)
	s.append(status)

	got, err := s.store.ByTarget(s.ctx, entity.ID, KindStatus)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(status.ID, got[0].ID)

	tombs, err := s.store.ByTarget(s.ctx, entity.ID, KindTombstone)
	s.Require().NoError(err)
	s.Empty(tombs)
}

func (s *StoreSuite) TestBySubjectReturnsRoleLogInOrder() {
	moderator := s.suiteKeypair(0xB2).Agent()

	grant := s.seal(Draft{Kind: KindGrant, Subject: moderator, Payload: map[string]any{"role": "moderator"}}, 0)
	revoke := s.seal(Draft{Kind: KindRevoke, Subject: moderator}, time.Hour)
	s.append(revoke) // insert newest first
	s.append(grant)

	got, err := s.store.BySubject(s.ctx, moderator)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(grant.ID, got[0].ID)
	s.Equal(revoke.ID, got[1].ID)
}

func (s *StoreSuite) TestByKindListsTheRoleLog() {
	alice := s.suiteKeypair(0xD4).Agent()
	bob := s.suiteKeypair(0xE5).Agent()

	grantAlice := s.seal(Draft{Kind: KindGrant, Subject: alice, Payload: map[string]any{"role": "administrator"}}, 0)
	grantBob := s.seal(Draft{Kind: KindGrant, Subject: bob, Payload: map[string]any{"role": "moderator"}}, time.Minute)
	entity := s.seal(Draft{Kind: KindEntity, Collection: domain.CollectionRequests, Payload: map[string]any{"title": "noise"}}, 2*time.Minute)
	for _, rec := range []Record{entity, grantBob, grantAlice} {
		s.append(rec)
	}

	got, err := s.store.ByKind(s.ctx, KindGrant)
	s.Require().NoError(err)
	s.Require().Len(got, 2, "entity records excluded")
	s.Equal(grantAlice.ID, got[0].ID)
	s.Equal(grantBob.ID, got[1].ID)

	revokes, err := s.store.ByKind(s.ctx, KindRevoke)
	s.Require().NoError(err)
	s.Empty(revokes)
}

func (s *StoreSuite) TestAuthorOriginals() {
	profile := s.seal(Draft{
		Kind:       KindEntity,
		Collection: domain.CollectionUsers,
		Payload:    map[string]any{"name": "ada"},
	}, 0)
	s.append(profile)

	got, err := s.store.AuthorOriginals(s.ctx, s.kp.Agent(), domain.CollectionUsers)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(profile.ID, got[0].ID)

	none, err := s.store.AuthorOriginals(s.ctx, s.suiteKeypair(0xC3).Agent(), domain.CollectionUsers)
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *StoreSuite) TestConcurrentAppends() {
	const writers = 8
	const perWriter = 20

	var wg sync.WaitGroup
	errs := make(chan error, writers*perWriter)
	for w := range writers {
		wg.Go(func() {
			for i := range perWriter {
				rec := s.seal(Draft{
					Kind:       KindEntity,
					Collection: domain.CollectionRequests,
					Payload:    map[string]any{"title": fmt.Sprintf("w%d-%d", w, i)},
				}, time.Duration(w*perWriter+i)*time.Millisecond)
				if err := s.store.Append(s.ctx, rec); err != nil {
					errs <- err
				}
			}
		})
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.NoError(err)
	}

	got, err := s.store.Originals(s.ctx, domain.CollectionRequests)
	s.Require().NoError(err)
	s.Len(got, writers*perWriter)
}
