package timeline

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu       sync.RWMutex
	nextID   int64
	entries  []Entry
	comments map[int64][]string

	// InsertErr, when set, fails every Insert. Lets tests exercise the
	// swallow-on-failure behavior of the tracker.
	InsertErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1, comments: make(map[int64][]string)}
}

// PutSummaryComment appends a summary comment for an assessment. The
// last one added is the latest.
func (s *MemoryStore) PutSummaryComment(assessmentID int64, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[assessmentID] = append(s.comments[assessmentID], text)
}

func (s *MemoryStore) Insert(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.InsertErr != nil {
		return s.InsertErr
	}
	e.ID = s.nextID
	s.nextID++
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *MemoryStore) ForStudy(_ context.Context, studyID int64, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []Entry
	for _, e := range s.entries {
		if e.StudyID == studyID {
			entries = append(entries, e)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *MemoryStore) LatestSummaryComment(_ context.Context, assessmentID int64) (*string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	comments := s.comments[assessmentID]
	if len(comments) == 0 {
		return nil, nil
	}
	latest := comments[len(comments)-1]
	return &latest, nil
}

// Entries returns a copy of everything inserted, in insertion order.
func (s *MemoryStore) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
