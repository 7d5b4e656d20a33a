package audit

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	entries []Entry
	factors map[int64]MemRiskFactor
}

// MemRiskFactor carries the risk factor fields the trail joins against.
type MemRiskFactor struct {
	Code string
	Text string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1, factors: make(map[int64]MemRiskFactor)}
}

// PutRiskFactor seeds a risk factor for label joins.
func (s *MemoryStore) PutRiskFactor(id int64, factor MemRiskFactor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.factors[id] = factor
}

func (s *MemoryStore) Insert(_ context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		e.ID = s.nextID
		s.nextID++
		s.entries = append(s.entries, e)
	}
	return nil
}

// Entries returns a copy of everything inserted, in insertion order.
func (s *MemoryStore) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *MemoryStore) Trail(_ context.Context, q TrailQuery) ([]TrailRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var records []TrailRecord
	for _, e := range s.selectNewestFirst() {
		if e.AssessmentID != q.AssessmentID {
			continue
		}
		if e.FieldName != FieldSeverity && e.FieldName != FieldLikelihood {
			continue
		}
		if q.FieldName != "" && e.FieldName != q.FieldName {
			continue
		}
		if q.RiskFactorID != 0 && e.RiskFactorID != q.RiskFactorID {
			continue
		}
		records = append(records, s.project(e, func(f MemRiskFactor) string { return f.Text }))
		if q.Limit > 0 && len(records) == q.Limit {
			break
		}
	}
	return records, nil
}

func (s *MemoryStore) ChangesByUser(_ context.Context, assessmentID int64, email string, limit int) ([]TrailRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var records []TrailRecord
	for _, e := range s.selectNewestFirst() {
		if e.AssessmentID != assessmentID || !strings.EqualFold(e.ChangedByEmail, email) {
			continue
		}
		records = append(records, s.project(e, func(f MemRiskFactor) string { return f.Code }))
		if limit > 0 && len(records) == limit {
			break
		}
	}
	return records, nil
}

func (s *MemoryStore) Summary(_ context.Context, assessmentID int64) (Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary := Summary{AssessmentID: assessmentID}
	byField := make(map[string]int)
	byUser := make(map[string]*UserCount)
	var latest *Entry
	for i := range s.entries {
		e := s.entries[i]
		if e.AssessmentID != assessmentID {
			continue
		}
		summary.TotalChanges++
		byField[e.FieldName]++
		if uc, ok := byUser[e.ChangedByEmail]; ok {
			uc.Count++
		} else {
			byUser[e.ChangedByEmail] = &UserCount{Name: e.ChangedByName, Email: e.ChangedByEmail, Count: 1}
		}
		if latest == nil || e.ChangedAt.After(latest.ChangedAt) {
			latest = &s.entries[i]
		}
	}
	for field, count := range byField {
		summary.ChangesByField = append(summary.ChangesByField, FieldCount{Field: field, Count: count})
	}
	sort.Slice(summary.ChangesByField, func(i, j int) bool {
		return summary.ChangesByField[i].Count > summary.ChangesByField[j].Count
	})
	for _, uc := range byUser {
		summary.ChangesByUser = append(summary.ChangesByUser, *uc)
	}
	sort.Slice(summary.ChangesByUser, func(i, j int) bool {
		return summary.ChangesByUser[i].Count > summary.ChangesByUser[j].Count
	})
	if latest != nil {
		formatted := latest.ChangedAt.Format(uiTimestampLayout)
		summary.LatestChange = &formatted
	}
	return summary, nil
}

func (s *MemoryStore) selectNewestFirst() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ChangedAt.After(out[j].ChangedAt)
	})
	return out
}

func (s *MemoryStore) project(e Entry, label func(MemRiskFactor) string) TrailRecord {
	var text *string
	if f, ok := s.factors[e.RiskFactorID]; ok {
		v := label(f)
		text = &v
	}
	return newTrailRecord(e, text)
}
