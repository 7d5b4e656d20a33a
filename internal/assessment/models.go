package assessment

// Assessment lifecycle statuses. A full save forces Pending Review, a
// draft stays In Progress, final submission moves to Completed, and the
// Study Director's decision lands on Approved or Rejected.
const (
	StatusInProgress    = "In Progress"
	StatusPendingReview = "Pending Review"
	StatusCompleted     = "Completed"
	StatusApproved      = "Approved"
	StatusRejected      = "Rejected"
)

// Mitigation plan defaults applied when the payload omits them.
const (
	defaultPlanStatus   = "Pending"
	defaultPlanPriority = "High"
)

// Section is one catalog section of the assessment form.
type Section struct {
	ID           int64   `json:"id"`
	SectionKey   string  `json:"section_key"`
	SectionName  string  `json:"section_name"`
	Description  *string `json:"description"`
	DisplayOrder int     `json:"display_order"`
	CreatedAt    *string `json:"created_at"`
}

// RiskFactor is one catalog risk factor belonging to a section.
type RiskFactor struct {
	ID                  int64   `json:"id"`
	AssessmentSectionID int64   `json:"assessment_section_id"`
	RiskFactorCode      string  `json:"risk_factor_code"`
	RiskFactorText      string  `json:"risk_factor_text"`
	DisplayOrder        int     `json:"display_order"`
	IsActive            bool    `json:"is_active"`
	CreatedAt           *string `json:"created_at"`
}

// Metadata is the assessment form catalog.
type Metadata struct {
	AssessmentSections []Section    `json:"assessment_sections"`
	RiskFactors        []RiskFactor `json:"risk_factors"`
}

// Assessment is the header row of a site risk assessment. Code is the
// human-readable generated identifier, distinct from the numeric id.
type Assessment struct {
	ID                 int64   `json:"id"`
	StudyID            int64   `json:"study_id"`
	Code               string  `json:"assessment_id"`
	ConductedByName    string  `json:"conducted_by_name"`
	ConductedByEmail   string  `json:"conducted_by_email"`
	AssessmentDate     *string `json:"assessment_date"`
	NextReviewDate     *string `json:"next_review_date"`
	MonitoringSchedule *string `json:"monitoring_schedule"`
	Status             string  `json:"status"`
	OverallRiskScore   *int    `json:"overall_risk_score"`
	OverallRiskLevel   *string `json:"overall_risk_level"`
	Comments           *string `json:"comments"`
	UpdatedByName      string  `json:"updated_by_name"`
	UpdatedByEmail     string  `json:"updated_by_email"`
	CreatedAt          *string `json:"created_at"`
	UpdatedAt          *string `json:"updated_at"`
}

// RiskScore is one scored risk factor within an assessment.
type RiskScore struct {
	ID                int64   `json:"id"`
	AssessmentID      int64   `json:"assessment_id"`
	RiskFactorID      int64   `json:"risk_factor_id"`
	Severity          *int    `json:"severity"`
	Likelihood        *int    `json:"likelihood"`
	RiskScore         *int    `json:"risk_score"`
	RiskLevel         *string `json:"risk_level"`
	MitigationActions *string `json:"mitigation_actions"`
	CustomNotes       *string `json:"custom_notes"`
}

// MitigationPlan is one row of the mitigation plan grid.
type MitigationPlan struct {
	ID                 int64   `json:"id"`
	AssessmentID       int64   `json:"assessment_id"`
	RiskItem           *string `json:"risk_item"`
	ResponsiblePerson  *string `json:"responsible_person"`
	MitigationStrategy *string `json:"mitigation_strategy"`
	TargetDate         *string `json:"target_date"`
	Status             string  `json:"status"`
	PriorityLevel      string  `json:"priority_level"`
}

// Dashboard is the aggregated risk snapshot stored with an assessment.
type Dashboard struct {
	ID                int64   `json:"id"`
	AssessmentID      int64   `json:"assessment_id"`
	TotalRisks        int     `json:"total_risks"`
	HighRiskCount     int     `json:"high_risk_count"`
	MediumRiskCount   int     `json:"medium_risk_count"`
	LowRiskCount      int     `json:"low_risk_count"`
	TotalScore        int     `json:"total_score"`
	OverallRiskLevel  *string `json:"overall_risk_level"`
	RiskLevelCriteria *string `json:"risk_level_criteria"`
}

// SummaryComment is one overall comment attributed to its author.
type SummaryComment struct {
	ID             int64   `json:"id"`
	AssessmentID   int64   `json:"assessment_id"`
	CommentType    *string `json:"comment_type"`
	CommentText    *string `json:"comment_text"`
	CreatedByName  string  `json:"created_by_name"`
	CreatedByEmail string  `json:"created_by_email"`
	CreatedAt      *string `json:"created_at"`
}

// SectionComment is one per-section comment.
type SectionComment struct {
	ID           int64   `json:"id"`
	AssessmentID int64   `json:"assessment_id"`
	SectionKey   *string `json:"section_key"`
	SectionTitle *string `json:"section_title"`
	CommentText  *string `json:"comment_text"`
	CreatedAt    *string `json:"created_at"`
}

// ApprovalRecord is the assessment's current approval state. Saves and
// decisions replace prior records so at most one exists per assessment.
type ApprovalRecord struct {
	ID            int64   `json:"id"`
	AssessmentID  int64   `json:"assessment_id"`
	Action        string  `json:"action"`
	ActionByName  string  `json:"action_by_name"`
	ActionByEmail string  `json:"action_by_email"`
	Reason        *string `json:"reason"`
	Comments      *string `json:"comments"`
	ActionDate    *string `json:"action_date"`
}

// RiskScoreInput is one risk score in a save payload.
type RiskScoreInput struct {
	RiskFactorID      int64   `json:"risk_factor_id"`
	Severity          *int    `json:"severity"`
	Likelihood        *int    `json:"likelihood"`
	RiskScore         *int    `json:"risk_score"`
	RiskLevel         *string `json:"risk_level"`
	MitigationActions *string `json:"mitigation_actions"`
	CustomNotes       *string `json:"custom_notes"`
}

// PlanInput is one mitigation plan in a save payload.
type PlanInput struct {
	RiskItem           *string `json:"risk_item"`
	ResponsiblePerson  *string `json:"responsible_person"`
	MitigationStrategy *string `json:"mitigation_strategy"`
	TargetDate         *string `json:"target_date"`
	Status             string  `json:"status"`
	PriorityLevel      string  `json:"priority_level"`
}

// DashboardInput is the dashboard snapshot in a save payload.
type DashboardInput struct {
	TotalRisks        int     `json:"total_risks"`
	HighRiskCount     int     `json:"high_risk_count"`
	MediumRiskCount   int     `json:"medium_risk_count"`
	LowRiskCount      int     `json:"low_risk_count"`
	TotalScore        int     `json:"total_score"`
	OverallRiskLevel  *string `json:"overall_risk_level"`
	RiskLevelCriteria *string `json:"risk_level_criteria"`
}

// SummaryCommentInput is one summary comment in a save payload.
type SummaryCommentInput struct {
	CommentType *string `json:"comment_type"`
	CommentText string  `json:"comment_text"`
}

// SectionCommentInput is one section comment in a save payload.
type SectionCommentInput struct {
	SectionKey   *string `json:"section_key"`
	SectionTitle *string `json:"section_title"`
	CommentText  string  `json:"comment_text"`
}

// SavePayload is the full assessment submission body.
type SavePayload struct {
	StudyID             int64                 `json:"study_id"`
	AssessmentDate      string                `json:"assessment_date"`
	NextReviewDate      *string               `json:"next_review_date"`
	MonitoringSchedule  *string               `json:"monitoring_schedule"`
	OverallRiskScore    *int                  `json:"overall_risk_score"`
	OverallRiskLevel    *string               `json:"overall_risk_level"`
	Comments            *string               `json:"comments"`
	RiskScores          []RiskScoreInput      `json:"risk_scores"`
	RiskMitigationPlans []PlanInput           `json:"risk_mitigation_plans"`
	RiskDashboard       *DashboardInput       `json:"risk_dashboard"`
	SummaryComments     []SummaryCommentInput `json:"summary_comments"`
	SectionComments     []SectionCommentInput `json:"section_comments"`
}

// SaveResult reports what a save, draft, or final submission persisted.
type SaveResult struct {
	Message               string `json:"message"`
	AssessmentID          int64  `json:"assessment_id"`
	CustomAssessmentID    string `json:"custom_assessment_id"`
	StudyID               int64  `json:"study_id"`
	AssessmentDate        string `json:"assessment_date,omitempty"`
	Status                string `json:"status,omitempty"`
	RiskScoresCount       int    `json:"risk_scores_count"`
	MitigationPlansCount  int    `json:"mitigation_plans_count"`
	SummaryCommentsCount  int    `json:"summary_comments_count"`
	SectionCommentsCount  int    `json:"section_comments_count"`
	ApprovalRecordCreated bool   `json:"approval_record_created,omitempty"`
	SiteDirectorName      string `json:"site_director_name,omitempty"`
	SiteDirectorEmail     string `json:"site_director_email,omitempty"`
	NotificationCreated   bool   `json:"notification_created,omitempty"`
	IsDraft               *bool  `json:"is_draft,omitempty"`
}

// Complete bundles an assessment with every child collection.
type Complete struct {
	Assessment          Assessment       `json:"assessment"`
	RiskScores          []RiskScore      `json:"risk_scores"`
	RiskMitigationPlans []MitigationPlan `json:"risk_mitigation_plans"`
	RiskDashboard       *Dashboard       `json:"risk_dashboard"`
	SummaryComments     []SummaryComment `json:"summary_comments"`
	SectionComments     []SectionComment `json:"section_comments"`
}

// DecisionRequest is the Study Director's approve or reject body.
type DecisionRequest struct {
	ActionByName  string  `json:"action_by_name"`
	ActionByEmail string  `json:"action_by_email"`
	Reason        string  `json:"reason"`
	Comments      *string `json:"comments"`
}

// DecisionAssessment is the header slice returned with a decision.
type DecisionAssessment struct {
	ID             int64  `json:"id"`
	StudyID        int64  `json:"study_id"`
	Status         string `json:"status"`
	UpdatedByName  string `json:"updated_by_name"`
	UpdatedByEmail string `json:"updated_by_email"`
	UpdatedAt      string `json:"updated_at"`
}

// DecisionResult is the approve or reject response.
type DecisionResult struct {
	Success      bool               `json:"success"`
	Message      string             `json:"message"`
	Assessment   DecisionAssessment `json:"assessment"`
	ApprovalData ApprovalRecord     `json:"approval_data"`
}

// AssessedAssessment is the assessment block of an assessed-studies row,
// with the reviewer split out by decision action.
type AssessedAssessment struct {
	ID                 int64            `json:"id"`
	StudyID            int64            `json:"study_id"`
	AssessmentDate     *string          `json:"assessment_date"`
	NextReviewDate     *string          `json:"next_review_date"`
	MonitoringSchedule *string          `json:"monitoring_schedule"`
	OverallRiskScore   *int             `json:"overall_risk_score"`
	OverallRiskLevel   *string          `json:"overall_risk_level"`
	Status             *string          `json:"status"`
	ConductedByName    *string          `json:"conducted_by_name"`
	ConductedByEmail   *string          `json:"conducted_by_email"`
	ReviewedByName     *string          `json:"reviewed_by_name"`
	ReviewedByEmail    *string          `json:"reviewed_by_email"`
	ApprovedByName     *string          `json:"approved_by_name"`
	ApprovedByEmail    *string          `json:"approved_by_email"`
	RejectedByName     *string          `json:"rejected_by_name"`
	RejectedByEmail    *string          `json:"rejected_by_email"`
	Comments           *string          `json:"comments"`
	CreatedAt          *string          `json:"created_at"`
	UpdatedAt          *string          `json:"updated_at"`
	RiskDashboard      *Dashboard       `json:"risk_dashboard"`
	SummaryComments    []SummaryComment `json:"summary_comments"`
	ApprovalData       *ApprovalRecord  `json:"approval_data"`
	CRCName            *string          `json:"crcname"`
}

// AssessedStudy is one row of the assessed-studies listing. The study
// roster has no created_at or updated_at, so both stay null.
type AssessedStudy struct {
	ID                         int64              `json:"id"`
	Site                       *string            `json:"site"`
	Sponsor                    *string            `json:"sponsor"`
	SponsorCode                *string            `json:"sponsor_code"`
	StudyID                    *string            `json:"studyid"`
	Protocol                   *string            `json:"protocol"`
	StudyType                  *string            `json:"studytype"`
	StudyTypeText              *string            `json:"studytypetext"`
	Status                     *string            `json:"status"`
	Description                *string            `json:"description"`
	Phase                      *string            `json:"phase"`
	Active                     *string            `json:"active"`
	PrincipalInvestigator      *string            `json:"principal_investigator"`
	PrincipalInvestigatorEmail *string            `json:"principal_investigator_email"`
	SiteDirector               *string            `json:"site_director"`
	SiteDirectorEmail          *string            `json:"site_director_email"`
	MonitoringSchedule         *string            `json:"monitoring_schedule"`
	AssessmentStatus           *string            `json:"assessment_status"`
	CreatedAt                  *string            `json:"created_at"`
	UpdatedAt                  *string            `json:"updated_at"`
	AssessmentData             AssessedAssessment `json:"assessment_data"`
	CRCName                    *string            `json:"crcname"`
}

// AssessedStudies is the assessed-studies response envelope.
type AssessedStudies struct {
	AssessedStudies []AssessedStudy `json:"assessed_studies"`
}
