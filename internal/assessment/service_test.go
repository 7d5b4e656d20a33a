package assessment

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siterisk/internal/audit"
	"siterisk/internal/notification"
	"siterisk/internal/study"
	"siterisk/internal/timeline"
	"siterisk/pkg/apperr"
	"siterisk/pkg/requestcontext"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// sharedCommentStore lets the timeline tracker read summary comments
// from the assessment store, the way both read one table in Postgres.
type sharedCommentStore struct {
	*timeline.MemoryStore
	assessments *MemoryStore
}

func (s *sharedCommentStore) LatestSummaryComment(ctx context.Context, assessmentID int64) (*string, error) {
	comments, err := s.assessments.SummaryComments(ctx, assessmentID)
	if err != nil || len(comments) == 0 {
		return nil, err
	}
	return comments[0].CommentText, nil
}

type fixture struct {
	svc           *Service
	store         *MemoryStore
	audits        *audit.MemoryStore
	timeline      *timeline.MemoryStore
	notifications *notification.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := NewMemoryStore()
	store.PutSection(Section{ID: 1, SectionKey: "staffing", SectionName: "Staffing"})
	store.PutSection(Section{ID: 2, SectionKey: "enrollment", SectionName: "Enrollment"})
	store.PutRiskFactor(RiskFactor{ID: 1, AssessmentSectionID: 1, RiskFactorCode: "RF-001", RiskFactorText: "Staff turnover", IsActive: true})
	store.PutRiskFactor(RiskFactor{ID: 2, AssessmentSectionID: 2, RiskFactorCode: "RF-002", RiskFactorText: "Enrollment shortfall", IsActive: true})
	store.PutRiskFactor(RiskFactor{ID: 99, AssessmentSectionID: 2, RiskFactorCode: "RF-099", RiskFactorText: "Retired factor", IsActive: false})
	store.PutStudyRow(1, MemStudyRow{
		StudyID: "STU-001", Site: "Flourish San Antonio", Sponsor: "Meridian", Protocol: "CIN-302",
		Active:  "true",
		PIName:  "Dr. Sarah Chen", PIEmail: "sarah.chen@example.com",
		SDName: "Dr. James Okoro", SDEmail: "james.okoro@example.com",
		CRCName: "Ana Silva",
	})

	studies := study.NewMemoryStore()
	studies.Put(study.Study{
		ID:                         1,
		Site:                       "Flourish San Antonio",
		Sponsor:                    strPtr("Meridian"),
		SponsorCode:                strPtr("MER"),
		Protocol:                   strPtr("CIN-302"),
		Status:                     strPtr("Active"),
		PrincipalInvestigator:      strPtr("Dr. Sarah Chen"),
		PrincipalInvestigatorEmail: strPtr("sarah.chen@example.com"),
		SiteDirector:               strPtr("Dr. James Okoro"),
		SiteDirectorEmail:          strPtr("james.okoro@example.com"),
	})

	auditStore := audit.NewMemoryStore()
	timelineStore := timeline.NewMemoryStore()
	notifStore := notification.NewMemoryStore()
	notifStore.PutStudy(1, notification.MemStudy{Site: "Flourish San Antonio", Status: "Active"})

	svc := NewService(
		store,
		studies,
		audit.NewService(auditStore, nil, discardLogger),
		timeline.NewTracker(&sharedCommentStore{MemoryStore: timelineStore, assessments: store}, discardLogger),
		notification.NewService(notifStore, nil, discardLogger),
		nil,
		nil,
		nil,
		discardLogger,
	)
	return &fixture{
		svc:           svc,
		store:         store,
		audits:        auditStore,
		timeline:      timelineStore,
		notifications: notifStore,
	}
}

func fullPayload() SavePayload {
	return SavePayload{
		StudyID:            1,
		AssessmentDate:     "2025-02-20",
		MonitoringSchedule: strPtr("Monthly"),
		OverallRiskScore:   intPtr(12),
		OverallRiskLevel:   strPtr("Medium"),
		Comments:           strPtr("Initial visit went well"),
		RiskScores: []RiskScoreInput{
			{RiskFactorID: 1, Severity: intPtr(3), Likelihood: intPtr(4), RiskScore: intPtr(12), RiskLevel: strPtr("Medium")},
		},
		RiskMitigationPlans: []PlanInput{
			{RiskItem: strPtr("Staff turnover"), ResponsiblePerson: strPtr("Ana Silva"), MitigationStrategy: strPtr("Cross-train backups")},
		},
		RiskDashboard: &DashboardInput{TotalRisks: 1, MediumRiskCount: 1, TotalScore: 12, OverallRiskLevel: strPtr("Medium")},
		SummaryComments: []SummaryCommentInput{
			{CommentType: strPtr("overall"), CommentText: "Site looks ready"},
		},
		SectionComments: []SectionCommentInput{
			{SectionKey: strPtr("staffing"), SectionTitle: strPtr("Staffing"), CommentText: "One vacancy open"},
		},
	}
}

func Test_Save_NewAssessment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.Save(ctx, fullPayload(), "Dr. Sarah Chen", "Sarah.Chen@example.com")
	require.NoError(t, err)

	assert.Equal(t, "Assessment saved successfully", result.Message)
	assert.Equal(t, "FSA-MER-CIN-20250220-001", result.CustomAssessmentID)
	assert.Equal(t, int64(1), result.StudyID)
	assert.Equal(t, 1, result.RiskScoresCount)
	assert.True(t, result.ApprovalRecordCreated)
	assert.Equal(t, "Dr. James Okoro", result.SiteDirectorName)
	assert.True(t, result.NotificationCreated)

	stored, err := f.store.GetByID(ctx, result.AssessmentID)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, stored.Status)
	assert.Equal(t, "sarah.chen@example.com", stored.UpdatedByEmail)

	approvals := f.store.Approvals(result.AssessmentID)
	require.Len(t, approvals, 1)
	assert.Equal(t, notification.ActionInitialSave, approvals[0].Action)
	assert.Equal(t, "james.okoro@example.com", approvals[0].ActionByEmail)

	created := f.notifications.Notifications()
	require.Len(t, created, 1)
	assert.Equal(t, notification.TargetSD, created[0].TargetUserType)

	entries := f.timeline.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, timeline.ScheduleTypeInitial, entries[0].ScheduleType)
	require.NotNil(t, entries[0].Notes)
	assert.Equal(t, "Site looks ready", *entries[0].Notes)

	auditEntries := f.audits.Entries()
	require.Len(t, auditEntries, 2)
	fields := []string{auditEntries[0].FieldName, auditEntries[1].FieldName}
	assert.ElementsMatch(t, []string{audit.FieldSeverity, audit.FieldLikelihood}, fields)
}

func Test_Save_AuditRowsShareRequestTime(t *testing.T) {
	f := newFixture(t)
	at := time.Date(2025, 2, 20, 9, 30, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), at)

	_, err := f.svc.Save(ctx, fullPayload(), "Dr. Sarah Chen", "sarah.chen@example.com")
	require.NoError(t, err)

	auditEntries := f.audits.Entries()
	require.Len(t, auditEntries, 2)
	for _, e := range auditEntries {
		assert.True(t, e.ChangedAt.Equal(at))
	}
}

func Test_Save_ExistingMovesToPendingReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Save(ctx, fullPayload(), "Dr. Sarah Chen", "sarah.chen@example.com")
	require.NoError(t, err)

	second := fullPayload()
	second.MonitoringSchedule = strPtr("Quarterly")
	second.RiskMitigationPlans = []PlanInput{
		{RiskItem: strPtr("Enrollment"), ResponsiblePerson: strPtr("Ana Silva"), MitigationStrategy: strPtr("Add referral site")},
		{RiskItem: strPtr("Staffing"), ResponsiblePerson: strPtr("Ana Silva"), MitigationStrategy: strPtr("Hire")},
	}

	result, err := f.svc.Save(ctx, second, "Dr. Sarah Chen", "sarah.chen@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.AssessmentID, result.AssessmentID)
	assert.Equal(t, first.CustomAssessmentID, result.CustomAssessmentID)

	stored, err := f.store.GetByID(ctx, result.AssessmentID)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingReview, stored.Status)

	plans, err := f.store.Plans(ctx, result.AssessmentID)
	require.NoError(t, err)
	assert.Len(t, plans, 2)

	// Still exactly one approval record after the rewrite.
	assert.Len(t, f.store.Approvals(result.AssessmentID), 1)

	entries := f.timeline.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "Schedule Update: Quarterly", entries[1].ScheduleType)
}

func Test_Save_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Save(ctx, SavePayload{StudyID: 1}, "x", "x@example.com")
	require.Error(t, err)
	assert.Equal(t, "Study ID and assessment date are required", apperr.MessageOf(err))

	_, err = f.svc.Save(ctx, SavePayload{StudyID: 42, AssessmentDate: "2025-02-20"}, "x", "x@example.com")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeBadRequest, apperr.CodeOf(err))
	assert.Contains(t, apperr.MessageOf(err), "Study ID 42 does not exist in riskassessment_site_study table")

	payload := fullPayload()
	payload.RiskScores = append(payload.RiskScores, RiskScoreInput{RiskFactorID: 99, Severity: intPtr(2), Likelihood: intPtr(2)})
	_, err = f.svc.Save(ctx, payload, "x", "x@example.com")
	require.Error(t, err)
	assert.Contains(t, apperr.MessageOf(err), "Invalid risk factor IDs: [99]")
}

func Test_SaveDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("requires a study id", func(t *testing.T) {
		_, err := f.svc.SaveDraft(ctx, SavePayload{}, "x", "x@example.com")
		require.Error(t, err)
		assert.Equal(t, "Study ID is required for draft save", apperr.MessageOf(err))
	})

	t.Run("stays in progress and skips unscored factors", func(t *testing.T) {
		payload := SavePayload{
			StudyID: 1,
			RiskScores: []RiskScoreInput{
				{RiskFactorID: 1, Severity: intPtr(3), Likelihood: intPtr(4)},
				{RiskFactorID: 2, Severity: intPtr(2)}, // likelihood missing, skipped
			},
		}
		result, err := f.svc.SaveDraft(ctx, payload, "Dr. Sarah Chen", "sarah.chen@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Draft assessment saved successfully", result.Message)
		assert.Equal(t, StatusInProgress, result.Status)
		require.NotNil(t, result.IsDraft)
		assert.True(t, *result.IsDraft)

		scores, err := f.store.RiskScores(ctx, result.AssessmentID)
		require.NoError(t, err)
		require.Len(t, scores, 1)
		assert.Equal(t, int64(1), scores[0].RiskFactorID)

		// No approval record, notification, or timeline entry on drafts.
		assert.Empty(t, f.store.Approvals(result.AssessmentID))
		assert.Empty(t, f.notifications.Notifications())
		assert.Empty(t, f.timeline.Entries())
	})

	t.Run("keeps child rows the payload omits", func(t *testing.T) {
		f := newFixture(t)
		saved, err := f.svc.Save(ctx, fullPayload(), "Dr. Sarah Chen", "sarah.chen@example.com")
		require.NoError(t, err)

		_, err = f.svc.SaveDraft(ctx, SavePayload{StudyID: 1}, "Dr. Sarah Chen", "sarah.chen@example.com")
		require.NoError(t, err)

		plans, err := f.store.Plans(ctx, saved.AssessmentID)
		require.NoError(t, err)
		assert.Len(t, plans, 1)

		stored, err := f.store.GetByID(ctx, saved.AssessmentID)
		require.NoError(t, err)
		assert.Equal(t, StatusInProgress, stored.Status)
		assert.NotNil(t, stored.AssessmentDate)
	})
}

func Test_SubmitFinal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.SubmitFinal(ctx, fullPayload(), "Dr. Sarah Chen", "sarah.chen@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Assessment submitted successfully", result.Message)
	assert.Equal(t, StatusCompleted, result.Status)
	require.NotNil(t, result.IsDraft)
	assert.False(t, *result.IsDraft)

	stored, err := f.store.GetByID(ctx, result.AssessmentID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)
}

func Test_Approve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	saved, err := f.svc.Save(ctx, fullPayload(), "Dr. Sarah Chen", "sarah.chen@example.com")
	require.NoError(t, err)

	req := DecisionRequest{ActionByName: "Dr. James Okoro", ActionByEmail: "james.okoro@example.com", Reason: "Scores reviewed"}
	result, err := f.svc.Approve(ctx, saved.AssessmentID, req)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Assessment approved successfully", result.Message)
	assert.Equal(t, StatusApproved, result.Assessment.Status)
	assert.Equal(t, StatusApproved, result.ApprovalData.Action)

	// The Initial Save record is gone, one Approved record remains.
	approvals := f.store.Approvals(saved.AssessmentID)
	require.Len(t, approvals, 1)
	assert.Equal(t, StatusApproved, approvals[0].Action)

	// The decision notifies the PI.
	created := f.notifications.Notifications()
	require.Len(t, created, 2)
	assert.Equal(t, notification.TargetPI, created[1].TargetUserType)
	assert.Equal(t, StatusApproved, created[1].Action)

	t.Run("already decided", func(t *testing.T) {
		_, err := f.svc.Approve(ctx, saved.AssessmentID, req)
		require.Error(t, err)
		assert.Equal(t, "Assessment cannot be approved. Current status: Approved", apperr.MessageOf(err))
	})

	t.Run("unknown assessment", func(t *testing.T) {
		_, err := f.svc.Approve(ctx, 404, req)
		require.Error(t, err)
		assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
		assert.Equal(t, "Assessment not found", apperr.MessageOf(err))
	})
}

func Test_Reject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	saved, err := f.svc.Save(ctx, fullPayload(), "Dr. Sarah Chen", "sarah.chen@example.com")
	require.NoError(t, err)

	_, err = f.svc.Reject(ctx, saved.AssessmentID, DecisionRequest{
		ActionByName: "Dr. James Okoro", ActionByEmail: "james.okoro@example.com", Reason: "   ",
	})
	require.Error(t, err)
	assert.Equal(t, "Reason is required for rejection", apperr.MessageOf(err))

	result, err := f.svc.Reject(ctx, saved.AssessmentID, DecisionRequest{
		ActionByName: "Dr. James Okoro", ActionByEmail: "james.okoro@example.com", Reason: "Incomplete scoring",
	})
	require.NoError(t, err)
	assert.Equal(t, "Assessment rejected successfully", result.Message)
	assert.Equal(t, StatusRejected, result.Assessment.Status)
	require.NotNil(t, result.ApprovalData.Reason)
	assert.Equal(t, "Incomplete scoring", *result.ApprovalData.Reason)
}

func Test_Complete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	saved, err := f.svc.Save(ctx, fullPayload(), "Dr. Sarah Chen", "sarah.chen@example.com")
	require.NoError(t, err)

	complete, err := f.svc.Complete(ctx, saved.AssessmentID)
	require.NoError(t, err)
	assert.Equal(t, saved.AssessmentID, complete.Assessment.ID)
	assert.Len(t, complete.RiskScores, 1)
	assert.Len(t, complete.RiskMitigationPlans, 1)
	require.NotNil(t, complete.RiskDashboard)
	assert.Len(t, complete.SummaryComments, 1)
	assert.Len(t, complete.SectionComments, 1)

	byStudy, err := f.svc.CompleteByStudy(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, saved.AssessmentID, byStudy.Assessment.ID)

	_, err = f.svc.Complete(ctx, 404)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	_, err = f.svc.CompleteByStudy(ctx, 9)
	require.Error(t, err)
	assert.Equal(t, "No assessment found for study ID 9", apperr.MessageOf(err))
}

func Test_AssessedStudies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	saved, err := f.svc.Save(ctx, fullPayload(), "Dr. Sarah Chen", "sarah.chen@example.com")
	require.NoError(t, err)

	_, err = f.svc.AssessedStudies(ctx, "sarah.chen@example.com", "CRC")
	require.Error(t, err)
	assert.Equal(t, "user_type must be 'PI' or 'SD'", apperr.MessageOf(err))

	result, err := f.svc.AssessedStudies(ctx, "sarah.chen@example.com", "pi")
	require.NoError(t, err)
	require.Len(t, result.AssessedStudies, 1)
	row := result.AssessedStudies[0]
	assert.Equal(t, int64(1), row.ID)
	assert.Nil(t, row.CreatedAt)
	assert.Nil(t, row.UpdatedAt)
	require.NotNil(t, row.AssessmentData.RiskDashboard)
	assert.Len(t, row.AssessmentData.SummaryComments, 1)
	require.NotNil(t, row.AssessmentData.ApprovalData)
	assert.Equal(t, notification.ActionInitialSave, row.AssessmentData.ApprovalData.Action)
	assert.Nil(t, row.AssessmentData.ApprovedByName)

	// A mismatched SD email sees nothing.
	empty, err := f.svc.AssessedStudies(ctx, "sarah.chen@example.com", "SD")
	require.NoError(t, err)
	assert.Empty(t, empty.AssessedStudies)

	_, err = f.svc.Approve(ctx, saved.AssessmentID, DecisionRequest{
		ActionByName: "Dr. James Okoro", ActionByEmail: "james.okoro@example.com",
	})
	require.NoError(t, err)

	approved, err := f.svc.AssessedStudies(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, approved.AssessedStudies, 1)
	a := approved.AssessedStudies[0].AssessmentData
	require.NotNil(t, a.ApprovedByName)
	assert.Equal(t, "Dr. James Okoro", *a.ApprovedByName)
	assert.Nil(t, a.RejectedByName)
}

func Test_Metadata(t *testing.T) {
	f := newFixture(t)

	m, err := f.svc.Metadata(context.Background())
	require.NoError(t, err)
	require.Len(t, m.AssessmentSections, 2)
	assert.Equal(t, "staffing", m.AssessmentSections[0].SectionKey)
	require.Len(t, m.RiskFactors, 2)
	for _, factor := range m.RiskFactors {
		assert.True(t, factor.IsActive)
	}
}

func strPtr(v string) *string { return &v }
func intPtr(v int) *int       { return &v }
