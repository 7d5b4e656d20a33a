package assessment

import (
	"context"

	"siterisk/internal/audit"
)

// Store persists assessments and their child collections. Write methods
// join an enclosing transaction when ctx carries one.
type Store interface {
	GetByID(ctx context.Context, id int64) (*Assessment, error)
	// FindByStudy returns the study's assessment, or nil when the study
	// has none.
	FindByStudy(ctx context.Context, studyID int64) (*Assessment, error)
	// LatestIDForStudy returns the id of the study's newest assessment.
	LatestIDForStudy(ctx context.Context, studyID int64) (int64, error)

	Insert(ctx context.Context, a Assessment) (int64, error)
	// Update rewrites the header, including status and assessment date.
	Update(ctx context.Context, a Assessment) error
	// UpdateDraft rewrites the header but keeps the stored assessment
	// date when the payload has none.
	UpdateDraft(ctx context.Context, a Assessment) error
	UpdateStatus(ctx context.Context, id int64, status string) error
	// UpdateDecision sets the decision status and reviewer, returning
	// the refreshed header slice.
	UpdateDecision(ctx context.Context, id int64, status, byName, byEmail string) (DecisionAssessment, error)

	// GetRiskScore returns the score row for a factor, or nil when the
	// factor has not been scored yet.
	GetRiskScore(ctx context.Context, assessmentID, riskFactorID int64) (*RiskScore, error)
	InsertRiskScore(ctx context.Context, assessmentID int64, in RiskScoreInput) error
	UpdateRiskScore(ctx context.Context, assessmentID int64, in RiskScoreInput) error
	RiskScores(ctx context.Context, assessmentID int64) ([]RiskScore, error)

	DeletePlans(ctx context.Context, assessmentID int64) error
	InsertPlan(ctx context.Context, assessmentID int64, in PlanInput) error
	Plans(ctx context.Context, assessmentID int64) ([]MitigationPlan, error)

	DeleteDashboard(ctx context.Context, assessmentID int64) error
	InsertDashboard(ctx context.Context, assessmentID int64, in DashboardInput) error
	Dashboard(ctx context.Context, assessmentID int64) (*Dashboard, error)

	DeleteSummaryComments(ctx context.Context, assessmentID int64) error
	InsertSummaryComment(ctx context.Context, assessmentID int64, in SummaryCommentInput, byName, byEmail string) error
	SummaryComments(ctx context.Context, assessmentID int64) ([]SummaryComment, error)

	DeleteSectionComments(ctx context.Context, assessmentID int64) error
	InsertSectionComment(ctx context.Context, assessmentID int64, in SectionCommentInput) error
	SectionComments(ctx context.Context, assessmentID int64) ([]SectionComment, error)

	DeleteApprovals(ctx context.Context, assessmentID int64) error
	InsertApproval(ctx context.Context, r ApprovalRecord) error
	// LatestApproval returns the newest approval record, or nil when the
	// assessment has none.
	LatestApproval(ctx context.Context, assessmentID int64) (*ApprovalRecord, error)
	LatestApprovalByAction(ctx context.Context, assessmentID int64, action string) (*ApprovalRecord, error)

	Sections(ctx context.Context) ([]Section, error)
	ActiveRiskFactors(ctx context.Context) ([]RiskFactor, error)
	// InvalidRiskFactorIDs returns which of the given ids do not match an
	// active risk factor.
	InvalidRiskFactorIDs(ctx context.Context, ids []int64) ([]int64, error)

	// LastCodeLike returns the highest assessment code matching a SQL
	// LIKE pattern, or nil when none match.
	LastCodeLike(ctx context.Context, pattern string) (*string, error)

	// AssessedRows returns the study and assessment join for the
	// assessed-studies listing, newest first.
	AssessedRows(ctx context.Context, email, userType string) ([]AssessedStudy, error)
}

// auditValues projects a stored risk score into its auditable fields.
func auditValues(rs *RiskScore) audit.RiskValues {
	if rs == nil {
		return audit.RiskValues{}
	}
	return audit.RiskValues{
		Severity:   rs.Severity,
		Likelihood: rs.Likelihood,
		RiskScore:  rs.RiskScore,
		RiskLevel:  rs.RiskLevel,
	}
}

// auditInputValues projects a payload risk score the same way.
func auditInputValues(in RiskScoreInput) audit.RiskValues {
	return audit.RiskValues{
		Severity:   in.Severity,
		Likelihood: in.Likelihood,
		RiskScore:  in.RiskScore,
		RiskLevel:  in.RiskLevel,
	}
}
