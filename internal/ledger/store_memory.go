package ledger

import (
	"context"
	"sync"

	"agora/pkg/domain"
	"agora/pkg/platform/sentinel"
)

// MemoryStore is the default store for a single-process node and for tests.
// Safe for concurrent use.
type MemoryStore struct {
	mu sync.RWMutex

	records map[domain.RecordID]Record

	// Secondary indexes hold ids only; reads materialize and sort.
	updates  map[domain.RecordID][]domain.RecordID
	targets  map[domain.RecordID]map[Kind][]domain.RecordID
	subjects map[domain.AgentID][]domain.RecordID
	roots    map[domain.Collection][]domain.RecordID
	authors  map[authorKey][]domain.RecordID
	kinds    map[Kind][]domain.RecordID
}

type authorKey struct {
	agent      domain.AgentID
	collection domain.Collection
}

// NewMemoryStore creates an empty in-memory ledger store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[domain.RecordID]Record),
		updates:  make(map[domain.RecordID][]domain.RecordID),
		targets:  make(map[domain.RecordID]map[Kind][]domain.RecordID),
		subjects: make(map[domain.AgentID][]domain.RecordID),
		roots:    make(map[domain.Collection][]domain.RecordID),
		authors:  make(map[authorKey][]domain.RecordID),
		kinds:    make(map[Kind][]domain.RecordID),
	}
}

func (s *MemoryStore) Append(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; exists {
		return sentinel.ErrConflict
	}
	s.records[rec.ID] = rec

	if !rec.Predecessor.IsZero() {
		s.updates[rec.Predecessor] = append(s.updates[rec.Predecessor], rec.ID)
	}
	if !rec.Target.IsZero() {
		byKind, ok := s.targets[rec.Target]
		if !ok {
			byKind = make(map[Kind][]domain.RecordID)
			s.targets[rec.Target] = byKind
		}
		byKind[rec.Kind] = append(byKind[rec.Kind], rec.ID)
	}
	if !rec.Subject.IsZero() {
		s.subjects[rec.Subject] = append(s.subjects[rec.Subject], rec.ID)
	}
	if rec.Kind == KindEntity && rec.IsOriginal() {
		s.roots[rec.Collection] = append(s.roots[rec.Collection], rec.ID)
		key := authorKey{agent: rec.Author, collection: rec.Collection}
		s.authors[key] = append(s.authors[key], rec.ID)
	}
	s.kinds[rec.Kind] = append(s.kinds[rec.Kind], rec.ID)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id domain.RecordID) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return Record{}, sentinel.ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) Updates(_ context.Context, id domain.RecordID) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.updates[id]), nil
}

func (s *MemoryStore) Deletes(_ context.Context, id domain.RecordID) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.targets[id][KindTombstone]), nil
}

func (s *MemoryStore) Originals(_ context.Context, c domain.Collection) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.roots[c]), nil
}

func (s *MemoryStore) ByTarget(_ context.Context, id domain.RecordID, kind Kind) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.targets[id][kind]), nil
}

func (s *MemoryStore) BySubject(_ context.Context, agent domain.AgentID) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.subjects[agent]), nil
}

func (s *MemoryStore) ByKind(_ context.Context, kind Kind) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.kinds[kind]), nil
}

func (s *MemoryStore) AuthorOriginals(_ context.Context, agent domain.AgentID, c domain.Collection) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.authors[authorKey{agent: agent, collection: c}]), nil
}

// collect materializes ids into sorted records. Callers hold at least RLock.
func (s *MemoryStore) collect(ids []domain.RecordID) []Record {
	recs := make([]Record, 0, len(ids))
	for _, id := range ids {
		if rec, ok := s.records[id]; ok {
			recs = append(recs, rec)
		}
	}
	SortRecords(recs)
	return recs
}
