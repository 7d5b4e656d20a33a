package study

import (
	"context"
	"sort"
	"strings"
	"sync"

	"siterisk/pkg/apperr"
)

// MemAssessment is the slice of assessment state the memory store needs to
// serve study projections in tests.
type MemAssessment struct {
	ID                 int64
	Status             string
	MonitoringSchedule *string
	OverallRiskScore   *int
	OverallRiskLevel   *string
	ApprovalAction     string
}

// MemoryStore is an in-memory Store for unit tests.
type MemoryStore struct {
	mu          sync.RWMutex
	studies     map[int64]Study
	assessments map[int64]MemAssessment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		studies:     make(map[int64]Study),
		assessments: make(map[int64]MemAssessment),
	}
}

// Put seeds or replaces a study.
func (m *MemoryStore) Put(st Study) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.studies[st.ID] = st
}

// PutAssessment attaches assessment state to a study.
func (m *MemoryStore) PutAssessment(studyID int64, a MemAssessment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assessments[studyID] = a
}

func (m *MemoryStore) GetByID(_ context.Context, id int64) (*Study, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.studies[id]
	if !ok {
		return nil, apperr.Newf(apperr.CodeNotFound, "study with ID %d not found", id)
	}
	return &st, nil
}

func (m *MemoryStore) GetActiveByID(_ context.Context, id int64) (*Study, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.studies[id]
	if !ok || (st.Status != nil && *st.Status == "Inactive") {
		return nil, apperr.Newf(apperr.CodeNotFound, "study with ID %d not found", id)
	}
	return &st, nil
}

func (m *MemoryStore) List(_ context.Context) ([]Study, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Study
	for _, st := range m.studies {
		if st.Status != nil && *st.Status == "Inactive" {
			continue
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *MemoryStore) ListByUser(_ context.Context, email, userType string, filter Filter) ([]Study, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Study
	for _, st := range m.studies {
		if st.Status != nil && *st.Status == "Inactive" {
			continue
		}
		if !matchesContact(st, email, userType) {
			continue
		}
		if !matchesFilter(st, filter) {
			continue
		}
		if a, ok := m.assessments[st.ID]; ok {
			status := a.Status
			st.AssessmentStatus = &status
			st.MonitoringSchedule = a.MonitoringSchedule
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *MemoryStore) DropdownValues(_ context.Context, email, userType string) (DropdownValues, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sites := map[string]struct{}{}
	sponsors := map[string]struct{}{}
	protocols := map[string]struct{}{}
	for _, st := range m.studies {
		if st.Status != nil && *st.Status == "Inactive" {
			continue
		}
		if !matchesContact(st, email, userType) {
			continue
		}
		if st.Site != "" {
			sites[st.Site] = struct{}{}
		}
		if st.Sponsor != nil && *st.Sponsor != "" {
			sponsors[*st.Sponsor] = struct{}{}
		}
		if st.Protocol != nil && *st.Protocol != "" {
			protocols[*st.Protocol] = struct{}{}
		}
	}
	return DropdownValues{
		Sites:     sortedKeys(sites),
		Sponsors:  sortedKeys(sponsors),
		Protocols: sortedKeys(protocols),
	}, nil
}

func (m *MemoryStore) AssessmentsWithContacts(_ context.Context, email, userType string) ([]AssessmentRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []AssessmentRow
	for _, st := range m.studies {
		if st.Status != nil && *st.Status == "Inactive" {
			continue
		}
		if userType != "" && !matchesContact(st, email, userType) {
			continue
		}
		a, ok := m.assessments[st.ID]
		if !ok {
			continue
		}
		row := AssessmentRow{
			ID: a.ID, Site: st.Site, Sponsor: st.Sponsor, Protocol: st.Protocol,
			StudyType: st.StudyTypeText, Description: st.Description,
			StudyStatus: st.Status, Phase: st.Phase,
			MonitoringSchedule: a.MonitoringSchedule,
			Scored:             "No", AssessmentStatus: a.Status,
			OverallRisk: "Not Assessed", Reason: "No comments available.",
			ConductedBy: "Not specified", ReviewedBy: "Not specified",
			ApprovedBy: "-", RejectedBy: "-",
		}
		if a.OverallRiskScore != nil {
			row.Scored = "Yes"
			row.TotalRiskScore = *a.OverallRiskScore
		}
		if a.OverallRiskLevel != nil {
			row.OverallRisk = *a.OverallRiskLevel
		}
		out = append(out, row)
	}
	return out, nil
}

func (m *MemoryStore) TopRiskRows(_ context.Context) ([]RiskTableRow, error) {
	rows, _, err := m.AssessedRows(context.Background(), Filter{}, 10, 0)
	return rows, err
}

func (m *MemoryStore) HighestRiskRows(_ context.Context, filter Filter) ([]RiskTableRow, error) {
	rows, _, err := m.AssessedRows(context.Background(), filter, 10, 0)
	return rows, err
}

func (m *MemoryStore) AssessedRows(_ context.Context, filter Filter, limit, offset int) ([]RiskTableRow, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []RiskTableRow
	for _, st := range m.studies {
		if st.Status != nil && *st.Status == "Inactive" {
			continue
		}
		if !matchesFilter(st, filter) {
			continue
		}
		a, ok := m.assessments[st.ID]
		if !ok || a.OverallRiskScore == nil {
			continue
		}
		status := a.Status
		row := RiskTableRow{
			StudyID: st.ID, Site: st.Site, Sponsor: st.Sponsor, Protocol: st.Protocol,
			StudyType: st.StudyType, StudyTypeText: st.StudyTypeText,
			Description: st.Description, StudyStatus: st.Status, Phase: st.Phase,
			Risk: *a.OverallRiskScore, AssessmentID: a.ID,
			MonitoringSchedule: "Not specified",
			SiteID:             st.SiteID, StudyRef: st.StudyID, Active: st.Active,
			PrincipalInvestigator:      st.PrincipalInvestigator,
			PrincipalInvestigatorEmail: st.PrincipalInvestigatorEmail,
			SiteDirector:               st.SiteDirector,
			SiteDirectorEmail:          st.SiteDirectorEmail,
			AssessmentStatus:           &status,
			SponsorCode:                st.SponsorCode,
			CRCName:                    st.CRCName,
		}
		if a.MonitoringSchedule != nil && *a.MonitoringSchedule != "" {
			row.MonitoringSchedule = *a.MonitoringSchedule
		}
		all = append(all, row)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Risk > all[j].Risk })

	total := len(all)
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (m *MemoryStore) FilterValues(_ context.Context) (DropdownValues, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sites := map[string]struct{}{}
	sponsors := map[string]struct{}{}
	protocols := map[string]struct{}{}
	for _, st := range m.studies {
		if st.Status != nil && *st.Status == "Inactive" {
			continue
		}
		a, ok := m.assessments[st.ID]
		if !ok || a.OverallRiskScore == nil {
			continue
		}
		if st.Site != "" {
			sites[st.Site] = struct{}{}
		}
		if st.Sponsor != nil {
			sponsors[*st.Sponsor] = struct{}{}
		}
		if st.Protocol != nil {
			protocols[*st.Protocol] = struct{}{}
		}
	}
	return DropdownValues{
		Sites:     sortedKeys(sites),
		Sponsors:  sortedKeys(sponsors),
		Protocols: sortedKeys(protocols),
	}, nil
}

func (m *MemoryStore) DashboardStats(_ context.Context, email, userType string) (DashboardStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := DashboardStats{UserType: userType, UserEmail: strings.ToLower(email)}
	activeSites := map[string]struct{}{}
	for _, st := range m.studies {
		if !matchesContact(st, email, userType) {
			continue
		}
		if st.Active != nil && *st.Active == "true" {
			activeSites[st.Site] = struct{}{}
			stats.TotalActiveStudies++
		}
		a, ok := m.assessments[st.ID]
		if !ok {
			continue
		}
		stats.TotalAssessedStudies++
		switch strings.ToLower(a.ApprovalAction) {
		case "approved":
			stats.TotalApprovedAssessments++
		case "rejected":
			stats.TotalRejectedAssessments++
		default:
			if a.Status == "Completed" {
				stats.TotalReviewsPending++
			}
		}
	}
	stats.TotalActiveSites = len(activeSites)
	return stats, nil
}

func matchesContact(st Study, email, userType string) bool {
	contact := st.PrincipalInvestigatorEmail
	if strings.EqualFold(userType, UserTypeSD) {
		contact = st.SiteDirectorEmail
	}
	return contact != nil && strings.EqualFold(*contact, email)
}

func matchesFilter(st Study, filter Filter) bool {
	match := func(want string, got *string) bool {
		if want == "" || strings.EqualFold(want, "all") {
			return true
		}
		return got != nil && strings.EqualFold(*got, want)
	}
	if filter.Site != "" && !strings.EqualFold(filter.Site, "all") &&
		!strings.EqualFold(st.Site, filter.Site) {
		return false
	}
	return match(filter.Sponsor, st.Sponsor) && match(filter.Protocol, st.Protocol)
}
