package notification

import (
	"context"
	"sort"
	"sync"
	"time"

	"siterisk/pkg/apperr"
)

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu            sync.RWMutex
	nextID        int64
	notifications []Notification
	studies       map[int64]MemStudy
	assessments   map[int64]MemAssessment
}

// MemStudy carries the study fields the feed joins against.
type MemStudy struct {
	Site     string
	Sponsor  string
	Protocol string
	Status   string
	PIName   string
	PIEmail  string
	SDName   string
	SDEmail  string
}

// MemAssessment carries the assessment fields the feed joins against,
// keyed by study id.
type MemAssessment struct {
	ID                 int64
	Status             string
	MonitoringSchedule string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:      1,
		studies:     make(map[int64]MemStudy),
		assessments: make(map[int64]MemAssessment),
	}
}

func (s *MemoryStore) PutStudy(id int64, study MemStudy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.studies[id] = study
}

func (s *MemoryStore) PutAssessment(studyID int64, a MemAssessment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assessments[studyID] = a
}

func (s *MemoryStore) Insert(_ context.Context, n Notification) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = s.nextID
	s.nextID++
	if n.ActionDate.IsZero() {
		n.ActionDate = time.Now()
	}
	s.notifications = append(s.notifications, n)
	return n.ID, nil
}

// Notifications returns a copy of everything inserted, in insertion order.
func (s *MemoryStore) Notifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

func (s *MemoryStore) ListForUserType(_ context.Context, userType string) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ordered := make([]Notification, len(s.notifications))
	copy(ordered, s.notifications)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ActionDate.After(ordered[j].ActionDate)
	})

	var items []Item
	for _, n := range ordered {
		if n.TargetUserType != userType {
			continue
		}
		study, ok := s.studies[n.StudyID]
		if !ok || study.Status == "Inactive" {
			continue
		}
		items = append(items, s.project(n, study))
		if len(items) == listLimit {
			break
		}
	}
	return items, nil
}

func (s *MemoryStore) MarkRead(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i].Read = true
			return nil
		}
	}
	return apperr.New(apperr.CodeNotFound, "Notification not found")
}

func (s *MemoryStore) MarkAllRead(_ context.Context, userType string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var updated int64
	for i := range s.notifications {
		if s.notifications[i].TargetUserType == userType && !s.notifications[i].Read {
			s.notifications[i].Read = true
			updated++
		}
	}
	return updated, nil
}

func (s *MemoryStore) UnreadCount(_ context.Context, userType string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.notifications {
		if n.TargetUserType == userType && !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) project(n Notification, study MemStudy) Item {
	actionDate := n.ActionDate.Format("2006-01-02T15:04:05")
	it := Item{
		ID:            n.ID,
		Action:        n.Action,
		ActionByName:  n.ActionByName,
		ActionByEmail: n.ActionByEmail,
		Reason:        n.Reason,
		Comments:      n.Comments,
		ActionDate:    &actionDate,
		Read:          n.Read,
		StudyInfo: StudyInfo{
			Site:                       optStr(study.Site),
			Sponsor:                    optStr(study.Sponsor),
			Protocol:                   optStr(study.Protocol),
			StudyStatus:                optStr(study.Status),
			PrincipalInvestigator:      optStr(study.PIName),
			PrincipalInvestigatorEmail: optStr(study.PIEmail),
			SiteDirector:               optStr(study.SDName),
			SiteDirectorEmail:          optStr(study.SDEmail),
		},
	}
	if a, ok := s.assessments[n.StudyID]; ok {
		it.AssessmentInfo.AssessmentID = &a.ID
		it.AssessmentInfo.Status = optStr(a.Status)
		it.StudyInfo.MonitoringSchedule = optStr(a.MonitoringSchedule)
	}
	it.AssessmentID = it.AssessmentInfo.AssessmentID
	it.PIName = it.StudyInfo.PrincipalInvestigator
	it.PIEmail = it.StudyInfo.PrincipalInvestigatorEmail
	it.SDName = it.StudyInfo.SiteDirector
	it.SDEmail = it.StudyInfo.SiteDirectorEmail
	return it
}

func optStr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
