package assessment

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"siterisk/pkg/apperr"
)

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64

	assessments     map[int64]*Assessment
	insertOrder     []int64
	riskScores      map[int64][]RiskScore
	plans           map[int64][]MitigationPlan
	dashboards      map[int64]*Dashboard
	summaryComments map[int64][]SummaryComment
	sectionComments map[int64][]SectionComment
	approvals       map[int64][]ApprovalRecord

	sections map[int64]Section
	factors  map[int64]RiskFactor
	studies  map[int64]MemStudyRow

	// InsertErr, when set, fails the next header insert. It exercises
	// rollback behavior in service tests.
	InsertErr error
}

// MemStudyRow carries the study roster fields the assessed-studies join
// reads.
type MemStudyRow struct {
	StudyID  string
	Site     string
	Sponsor  string
	Protocol string
	Active   string
	PIName   string
	PIEmail  string
	SDName   string
	SDEmail  string
	CRCName  string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:          1,
		assessments:     make(map[int64]*Assessment),
		riskScores:      make(map[int64][]RiskScore),
		plans:           make(map[int64][]MitigationPlan),
		dashboards:      make(map[int64]*Dashboard),
		summaryComments: make(map[int64][]SummaryComment),
		sectionComments: make(map[int64][]SectionComment),
		approvals:       make(map[int64][]ApprovalRecord),
		sections:        make(map[int64]Section),
		factors:         make(map[int64]RiskFactor),
		studies:         make(map[int64]MemStudyRow),
	}
}

func (s *MemoryStore) PutSection(sec Section) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sections[sec.ID] = sec
}

func (s *MemoryStore) PutRiskFactor(f RiskFactor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.factors[f.ID] = f
}

func (s *MemoryStore) PutStudyRow(id int64, row MemStudyRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.studies[id] = row
}

func (s *MemoryStore) GetByID(_ context.Context, id int64) (*Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assessments[id]
	if !ok {
		return nil, apperr.Newf(apperr.CodeNotFound, "Assessment with ID %d not found", id)
	}
	clone := *a
	return &clone, nil
}

func (s *MemoryStore) FindByStudy(_ context.Context, studyID int64) (*Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.insertOrder {
		if a := s.assessments[id]; a != nil && a.StudyID == studyID {
			clone := *a
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) LatestIDForStudy(_ context.Context, studyID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.insertOrder) - 1; i >= 0; i-- {
		id := s.insertOrder[i]
		if a := s.assessments[id]; a != nil && a.StudyID == studyID {
			return id, nil
		}
	}
	return 0, apperr.Newf(apperr.CodeNotFound, "No assessment found for study ID %d", studyID)
}

func (s *MemoryStore) Insert(_ context.Context, a Assessment) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.InsertErr != nil {
		err := s.InsertErr
		s.InsertErr = nil
		return 0, err
	}
	a.ID = s.nextID
	s.nextID++
	now := nowStamp()
	a.CreatedAt = &now
	a.UpdatedAt = &now
	s.assessments[a.ID] = &a
	s.insertOrder = append(s.insertOrder, a.ID)
	return a.ID, nil
}

func (s *MemoryStore) Update(_ context.Context, a Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.assessments[a.ID]
	if !ok {
		return fmt.Errorf("updating assessment %d: not found", a.ID)
	}
	stored.AssessmentDate = a.AssessmentDate
	stored.NextReviewDate = a.NextReviewDate
	stored.MonitoringSchedule = a.MonitoringSchedule
	stored.OverallRiskScore = a.OverallRiskScore
	stored.OverallRiskLevel = a.OverallRiskLevel
	stored.Comments = a.Comments
	stored.Status = a.Status
	stored.UpdatedByName = a.UpdatedByName
	stored.UpdatedByEmail = a.UpdatedByEmail
	now := nowStamp()
	stored.UpdatedAt = &now
	return nil
}

func (s *MemoryStore) UpdateDraft(ctx context.Context, a Assessment) error {
	s.mu.Lock()
	if stored, ok := s.assessments[a.ID]; ok && a.AssessmentDate == nil {
		a.AssessmentDate = stored.AssessmentDate
	}
	s.mu.Unlock()
	return s.Update(ctx, a)
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.assessments[id]
	if !ok {
		return fmt.Errorf("updating assessment %d status: not found", id)
	}
	stored.Status = status
	now := nowStamp()
	stored.UpdatedAt = &now
	return nil
}

func (s *MemoryStore) UpdateDecision(_ context.Context, id int64, status, byName, byEmail string) (DecisionAssessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.assessments[id]
	if !ok {
		return DecisionAssessment{}, fmt.Errorf("recording decision on assessment %d: not found", id)
	}
	stored.Status = status
	stored.UpdatedByName = byName
	stored.UpdatedByEmail = byEmail
	now := nowStamp()
	stored.UpdatedAt = &now
	return DecisionAssessment{
		ID:             stored.ID,
		StudyID:        stored.StudyID,
		Status:         stored.Status,
		UpdatedByName:  stored.UpdatedByName,
		UpdatedByEmail: stored.UpdatedByEmail,
		UpdatedAt:      now,
	}, nil
}

func (s *MemoryStore) GetRiskScore(_ context.Context, assessmentID, riskFactorID int64) (*RiskScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rs := range s.riskScores[assessmentID] {
		if rs.RiskFactorID == riskFactorID {
			clone := rs
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) InsertRiskScore(_ context.Context, assessmentID int64, in RiskScoreInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := RiskScore{
		ID:                s.nextID,
		AssessmentID:      assessmentID,
		RiskFactorID:      in.RiskFactorID,
		Severity:          in.Severity,
		Likelihood:        in.Likelihood,
		RiskScore:         in.RiskScore,
		RiskLevel:         in.RiskLevel,
		MitigationActions: in.MitigationActions,
		CustomNotes:       in.CustomNotes,
	}
	s.nextID++
	s.riskScores[assessmentID] = append(s.riskScores[assessmentID], rs)
	return nil
}

func (s *MemoryStore) UpdateRiskScore(_ context.Context, assessmentID int64, in RiskScoreInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	scores := s.riskScores[assessmentID]
	for i := range scores {
		if scores[i].RiskFactorID == in.RiskFactorID {
			scores[i].Severity = in.Severity
			scores[i].Likelihood = in.Likelihood
			scores[i].RiskScore = in.RiskScore
			scores[i].RiskLevel = in.RiskLevel
			scores[i].MitigationActions = in.MitigationActions
			scores[i].CustomNotes = in.CustomNotes
			return nil
		}
	}
	return fmt.Errorf("updating risk score: factor %d not scored", in.RiskFactorID)
}

func (s *MemoryStore) RiskScores(_ context.Context, assessmentID int64) ([]RiskScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RiskScore, len(s.riskScores[assessmentID]))
	copy(out, s.riskScores[assessmentID])
	sort.Slice(out, func(i, j int) bool { return out[i].RiskFactorID < out[j].RiskFactorID })
	return out, nil
}

func (s *MemoryStore) DeletePlans(_ context.Context, assessmentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.plans, assessmentID)
	return nil
}

func (s *MemoryStore) InsertPlan(_ context.Context, assessmentID int64, in PlanInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := MitigationPlan{
		ID:                 s.nextID,
		AssessmentID:       assessmentID,
		RiskItem:           in.RiskItem,
		ResponsiblePerson:  in.ResponsiblePerson,
		MitigationStrategy: in.MitigationStrategy,
		TargetDate:         in.TargetDate,
		Status:             in.Status,
		PriorityLevel:      in.PriorityLevel,
	}
	s.nextID++
	s.plans[assessmentID] = append(s.plans[assessmentID], p)
	return nil
}

func (s *MemoryStore) Plans(_ context.Context, assessmentID int64) ([]MitigationPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]MitigationPlan, len(s.plans[assessmentID]))
	copy(out, s.plans[assessmentID])
	return out, nil
}

func (s *MemoryStore) DeleteDashboard(_ context.Context, assessmentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.dashboards, assessmentID)
	return nil
}

func (s *MemoryStore) InsertDashboard(_ context.Context, assessmentID int64, in DashboardInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := Dashboard{
		ID:                s.nextID,
		AssessmentID:      assessmentID,
		TotalRisks:        in.TotalRisks,
		HighRiskCount:     in.HighRiskCount,
		MediumRiskCount:   in.MediumRiskCount,
		LowRiskCount:      in.LowRiskCount,
		TotalScore:        in.TotalScore,
		OverallRiskLevel:  in.OverallRiskLevel,
		RiskLevelCriteria: in.RiskLevelCriteria,
	}
	s.nextID++
	s.dashboards[assessmentID] = &d
	return nil
}

func (s *MemoryStore) Dashboard(_ context.Context, assessmentID int64) (*Dashboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.dashboards[assessmentID]
	if !ok {
		return nil, nil
	}
	clone := *d
	return &clone, nil
}

func (s *MemoryStore) DeleteSummaryComments(_ context.Context, assessmentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.summaryComments, assessmentID)
	return nil
}

func (s *MemoryStore) InsertSummaryComment(_ context.Context, assessmentID int64, in SummaryCommentInput, byName, byEmail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := nowStamp()
	text := in.CommentText
	c := SummaryComment{
		ID:             s.nextID,
		AssessmentID:   assessmentID,
		CommentType:    in.CommentType,
		CommentText:    &text,
		CreatedByName:  byName,
		CreatedByEmail: byEmail,
		CreatedAt:      &now,
	}
	s.nextID++
	s.summaryComments[assessmentID] = append(s.summaryComments[assessmentID], c)
	return nil
}

func (s *MemoryStore) SummaryComments(_ context.Context, assessmentID int64) ([]SummaryComment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SummaryComment, len(s.summaryComments[assessmentID]))
	copy(out, s.summaryComments[assessmentID])
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *MemoryStore) DeleteSectionComments(_ context.Context, assessmentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sectionComments, assessmentID)
	return nil
}

func (s *MemoryStore) InsertSectionComment(_ context.Context, assessmentID int64, in SectionCommentInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := nowStamp()
	text := in.CommentText
	c := SectionComment{
		ID:           s.nextID,
		AssessmentID: assessmentID,
		SectionKey:   in.SectionKey,
		SectionTitle: in.SectionTitle,
		CommentText:  &text,
		CreatedAt:    &now,
	}
	s.nextID++
	s.sectionComments[assessmentID] = append(s.sectionComments[assessmentID], c)
	return nil
}

func (s *MemoryStore) SectionComments(_ context.Context, assessmentID int64) ([]SectionComment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SectionComment, len(s.sectionComments[assessmentID]))
	copy(out, s.sectionComments[assessmentID])
	return out, nil
}

func (s *MemoryStore) DeleteApprovals(_ context.Context, assessmentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.approvals, assessmentID)
	return nil
}

func (s *MemoryStore) InsertApproval(_ context.Context, r ApprovalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.nextID
	s.nextID++
	if r.ActionDate == nil {
		now := nowStamp()
		r.ActionDate = &now
	}
	s.approvals[r.AssessmentID] = append(s.approvals[r.AssessmentID], r)
	return nil
}

func (s *MemoryStore) LatestApproval(_ context.Context, assessmentID int64) (*ApprovalRecord, error) {
	return s.latestApproval(assessmentID, ""), nil
}

func (s *MemoryStore) LatestApprovalByAction(_ context.Context, assessmentID int64, action string) (*ApprovalRecord, error) {
	return s.latestApproval(assessmentID, action), nil
}

func (s *MemoryStore) latestApproval(assessmentID int64, action string) *ApprovalRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.approvals[assessmentID]
	for i := len(records) - 1; i >= 0; i-- {
		if action == "" || records[i].Action == action {
			clone := records[i]
			return &clone
		}
	}
	return nil
}

// Approvals returns every approval record for an assessment, in
// insertion order.
func (s *MemoryStore) Approvals(assessmentID int64) []ApprovalRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ApprovalRecord, len(s.approvals[assessmentID]))
	copy(out, s.approvals[assessmentID])
	return out
}

func (s *MemoryStore) Sections(_ context.Context) ([]Section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Section, 0, len(s.sections))
	for _, sec := range s.sections {
		out = append(out, sec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) ActiveRiskFactors(_ context.Context) ([]RiskFactor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RiskFactor, 0, len(s.factors))
	for _, f := range s.factors {
		if f.IsActive {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AssessmentSectionID != out[j].AssessmentSectionID {
			return out[i].AssessmentSectionID < out[j].AssessmentSectionID
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) InvalidRiskFactorIDs(_ context.Context, ids []int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var invalid []int64
	for _, id := range ids {
		f, ok := s.factors[id]
		if !ok || !f.IsActive {
			invalid = append(invalid, id)
		}
	}
	return invalid, nil
}

func (s *MemoryStore) LastCodeLike(_ context.Context, pattern string) (*string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefix := strings.TrimSuffix(pattern, "%")
	var last *string
	for _, a := range s.assessments {
		if !strings.HasPrefix(a.Code, prefix) {
			continue
		}
		if last == nil || a.Code > *last {
			code := a.Code
			last = &code
		}
	}
	return last, nil
}

func (s *MemoryStore) AssessedRows(_ context.Context, email, userType string) ([]AssessedStudy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	studyIDs := make([]int64, 0, len(s.studies))
	for id := range s.studies {
		studyIDs = append(studyIDs, id)
	}
	sort.Slice(studyIDs, func(i, j int) bool { return studyIDs[i] > studyIDs[j] })

	var out []AssessedStudy
	for _, studyID := range studyIDs {
		st := s.studies[studyID]
		switch userType {
		case "PI":
			if !strings.EqualFold(st.PIEmail, email) {
				continue
			}
		case "SD":
			if !strings.EqualFold(st.SDEmail, email) {
				continue
			}
		}
		for _, id := range s.insertOrder {
			a := s.assessments[id]
			if a == nil || a.StudyID != studyID {
				continue
			}
			status := a.Status
			row := AssessedStudy{
				ID:                         studyID,
				StudyID:                    optStr(st.StudyID),
				Site:                       optStr(st.Site),
				Sponsor:                    optStr(st.Sponsor),
				Protocol:                   optStr(st.Protocol),
				Active:                     optStr(st.Active),
				PrincipalInvestigator:      optStr(st.PIName),
				PrincipalInvestigatorEmail: optStr(st.PIEmail),
				SiteDirector:               optStr(st.SDName),
				SiteDirectorEmail:          optStr(st.SDEmail),
				MonitoringSchedule:         a.MonitoringSchedule,
				AssessmentStatus:           &status,
				CRCName:                    optStr(st.CRCName),
			}
			row.AssessmentData = AssessedAssessment{
				ID:                 a.ID,
				StudyID:            a.StudyID,
				AssessmentDate:     a.AssessmentDate,
				NextReviewDate:     a.NextReviewDate,
				MonitoringSchedule: a.MonitoringSchedule,
				OverallRiskScore:   a.OverallRiskScore,
				OverallRiskLevel:   a.OverallRiskLevel,
				Status:             &status,
				ConductedByName:    optStr(a.ConductedByName),
				ConductedByEmail:   optStr(a.ConductedByEmail),
				ReviewedByName:     optStr(a.UpdatedByName),
				ReviewedByEmail:    optStr(a.UpdatedByEmail),
				Comments:           a.Comments,
				CreatedAt:          a.CreatedAt,
				UpdatedAt:          a.UpdatedAt,
				CRCName:            row.CRCName,
			}
			out = append(out, row)
		}
	}
	return out, nil
}

func nowStamp() string {
	return time.Now().Format("2006-01-02T15:04:05")
}

func optStr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
