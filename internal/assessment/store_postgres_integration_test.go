//go:build integration

package assessment_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"siterisk/internal/assessment"
	"siterisk/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *assessment.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = assessment.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx,
		"assessment_notifications", "assessment_audit_trail", "assessment_timeline",
		"assessment_approvals", "section_comments", "assessment_summary_comments",
		"assessment_risk_dashboard", "assessment_risk_mitigation_plans", "assessment_risks",
		"assessments", "risk_factors", "assessment_sections", "site_studies",
	)
	s.Require().NoError(err)

	_, err = s.postgres.DB.ExecContext(ctx, `
		INSERT INTO site_studies
			(site, sponsor, sponsor_code, protocol, status, active,
			 principal_investigator, principal_investigator_email,
			 site_director, site_director_email, crcname)
		VALUES ('Flourish San Antonio', 'Meridian', 'MER', 'CIN-302', 'Active', 'true',
			'Dr. Sarah Chen', 'sarah.chen@example.com',
			'Dr. James Okoro', 'james.okoro@example.com', 'Ana Silva')`)
	s.Require().NoError(err)

	_, err = s.postgres.DB.ExecContext(ctx, `
		INSERT INTO assessment_sections (section_key, section_name, display_order)
		VALUES ('staffing', 'Staffing', 1)`)
	s.Require().NoError(err)

	_, err = s.postgres.DB.ExecContext(ctx, `
		INSERT INTO risk_factors (assessment_section_id, risk_factor_code, risk_factor_text, is_active)
		VALUES (1, 'RF-001', 'Staff turnover', TRUE), (1, 'RF-002', 'Retired factor', FALSE)`)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestInsertAndReadBack() {
	ctx := context.Background()

	date := "2025-02-20"
	schedule := "Monthly"
	id, err := s.store.Insert(ctx, assessment.Assessment{
		StudyID:            1,
		Code:               "FSA-MER-CIN-20250220-001",
		ConductedByName:    "Dr. Sarah Chen",
		ConductedByEmail:   "sarah.chen@example.com",
		AssessmentDate:     &date,
		MonitoringSchedule: &schedule,
		Status:             assessment.StatusInProgress,
		UpdatedByName:      "Dr. Sarah Chen",
		UpdatedByEmail:     "sarah.chen@example.com",
	})
	s.Require().NoError(err)

	got, err := s.store.GetByID(ctx, id)
	s.Require().NoError(err)
	s.Equal("FSA-MER-CIN-20250220-001", got.Code)
	s.Equal(assessment.StatusInProgress, got.Status)
	s.Require().NotNil(got.AssessmentDate)
	s.Equal("2025-02-20", *got.AssessmentDate)

	byStudy, err := s.store.FindByStudy(ctx, 1)
	s.Require().NoError(err)
	s.Require().NotNil(byStudy)
	s.Equal(id, byStudy.ID)

	missing, err := s.store.FindByStudy(ctx, 99)
	s.Require().NoError(err)
	s.Nil(missing)
}

func (s *PostgresStoreSuite) TestUpdateDraftKeepsDateWhenNil() {
	ctx := context.Background()

	date := "2025-02-20"
	id, err := s.store.Insert(ctx, assessment.Assessment{
		StudyID: 1, Code: "X-1", AssessmentDate: &date, Status: assessment.StatusInProgress,
	})
	s.Require().NoError(err)

	err = s.store.UpdateDraft(ctx, assessment.Assessment{
		ID: id, Status: assessment.StatusInProgress, UpdatedByName: "n", UpdatedByEmail: "e",
	})
	s.Require().NoError(err)

	got, err := s.store.GetByID(ctx, id)
	s.Require().NoError(err)
	s.Require().NotNil(got.AssessmentDate)
	s.Equal("2025-02-20", *got.AssessmentDate)
}

func (s *PostgresStoreSuite) TestRiskScoreUpsertCycle() {
	ctx := context.Background()

	id, err := s.store.Insert(ctx, assessment.Assessment{StudyID: 1, Code: "X-1", Status: assessment.StatusInProgress})
	s.Require().NoError(err)

	sev, lik := 3, 4
	err = s.store.InsertRiskScore(ctx, id, assessment.RiskScoreInput{RiskFactorID: 1, Severity: &sev, Likelihood: &lik})
	s.Require().NoError(err)

	existing, err := s.store.GetRiskScore(ctx, id, 1)
	s.Require().NoError(err)
	s.Require().NotNil(existing)
	s.Equal(3, *existing.Severity)

	sev = 5
	err = s.store.UpdateRiskScore(ctx, id, assessment.RiskScoreInput{RiskFactorID: 1, Severity: &sev, Likelihood: &lik})
	s.Require().NoError(err)

	scores, err := s.store.RiskScores(ctx, id)
	s.Require().NoError(err)
	s.Require().Len(scores, 1)
	s.Equal(5, *scores[0].Severity)
}

func (s *PostgresStoreSuite) TestInvalidRiskFactorIDs() {
	ctx := context.Background()

	invalid, err := s.store.InvalidRiskFactorIDs(ctx, []int64{1, 2, 42})
	s.Require().NoError(err)
	// Factor 2 exists but is retired; 42 does not exist.
	s.ElementsMatch([]int64{2, 42}, invalid)
}

func (s *PostgresStoreSuite) TestLastCodeLike() {
	ctx := context.Background()

	none, err := s.store.LastCodeLike(ctx, "FSA-MER-CIN-20250220-%")
	s.Require().NoError(err)
	s.Nil(none)

	_, err = s.store.Insert(ctx, assessment.Assessment{StudyID: 1, Code: "FSA-MER-CIN-20250220-001", Status: assessment.StatusInProgress})
	s.Require().NoError(err)

	last, err := s.store.LastCodeLike(ctx, "FSA-MER-CIN-20250220-%")
	s.Require().NoError(err)
	s.Require().NotNil(last)
	s.Equal("FSA-MER-CIN-20250220-001", *last)
}

func (s *PostgresStoreSuite) TestDecisionAndApprovals() {
	ctx := context.Background()

	id, err := s.store.Insert(ctx, assessment.Assessment{StudyID: 1, Code: "X-1", Status: assessment.StatusPendingReview})
	s.Require().NoError(err)

	reason := "Scores reviewed"
	err = s.store.InsertApproval(ctx, assessment.ApprovalRecord{
		AssessmentID: id, Action: "Initial Save", ActionByName: "Dr. James Okoro",
		ActionByEmail: "james.okoro@example.com", Reason: &reason,
	})
	s.Require().NoError(err)

	updated, err := s.store.UpdateDecision(ctx, id, assessment.StatusApproved, "Dr. James Okoro", "james.okoro@example.com")
	s.Require().NoError(err)
	s.Equal(assessment.StatusApproved, updated.Status)
	s.NotEmpty(updated.UpdatedAt)

	s.Require().NoError(s.store.DeleteApprovals(ctx, id))
	err = s.store.InsertApproval(ctx, assessment.ApprovalRecord{
		AssessmentID: id, Action: assessment.StatusApproved,
		ActionByName: "Dr. James Okoro", ActionByEmail: "james.okoro@example.com",
	})
	s.Require().NoError(err)

	latest, err := s.store.LatestApproval(ctx, id)
	s.Require().NoError(err)
	s.Require().NotNil(latest)
	s.Equal(assessment.StatusApproved, latest.Action)
}

func (s *PostgresStoreSuite) TestAssessedRows() {
	ctx := context.Background()

	_, err := s.store.Insert(ctx, assessment.Assessment{StudyID: 1, Code: "X-1", Status: assessment.StatusCompleted})
	s.Require().NoError(err)

	rows, err := s.store.AssessedRows(ctx, "", "")
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal(int64(1), rows[0].ID)
	s.Require().NotNil(rows[0].CRCName)
	s.Equal("Ana Silva", *rows[0].CRCName)

	rows, err = s.store.AssessedRows(ctx, "sarah.chen@example.com", "PI")
	s.Require().NoError(err)
	s.Len(rows, 1)

	rows, err = s.store.AssessedRows(ctx, "sarah.chen@example.com", "SD")
	s.Require().NoError(err)
	s.Empty(rows)
}
