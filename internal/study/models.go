package study

// UserType discriminates the two roles a study contact can hold.
const (
	UserTypePI = "PI"
	UserTypeSD = "SD"
)

// Study is one row of the site/study roster. Sponsor, phase and contact
// fields come from the upstream trial management feed and may be absent.
type Study struct {
	ID                         int64   `json:"id"`
	SiteID                     *string `json:"siteid"`
	StudyID                    *string `json:"studyid"`
	Site                       string  `json:"site"`
	Sponsor                    *string `json:"sponsor"`
	SponsorCode                *string `json:"sponsor_code"`
	Protocol                   *string `json:"protocol"`
	StudyType                  *string `json:"studytype"`
	StudyTypeText              *string `json:"studytypetext"`
	Status                     *string `json:"status"`
	Description                *string `json:"description"`
	Phase                      *string `json:"phase"`
	Active                     *string `json:"active"`
	PrincipalInvestigator      *string `json:"principal_investigator"`
	PrincipalInvestigatorEmail *string `json:"principal_investigator_email"`
	SiteDirector               *string `json:"site_director"`
	SiteDirectorEmail          *string `json:"site_director_email"`
	CRCName                    *string `json:"crcname,omitempty"`

	// Joined from the study's assessment when one exists.
	MonitoringSchedule *string `json:"monitoring_schedule,omitempty"`
	AssessmentStatus   *string `json:"assessment_status,omitempty"`
}

// Filter narrows study lists; empty or "all" values match everything.
type Filter struct {
	Site     string
	Sponsor  string
	Protocol string
}

// DropdownValues holds the distinct filter values visible to one user.
type DropdownValues struct {
	Sites     []string `json:"sites"`
	Sponsors  []string `json:"sponsors"`
	Protocols []string `json:"protocols"`
}

// AssessmentRow is the flattened study+assessment projection used by the
// assessments grid. Field names follow the UI contract.
type AssessmentRow struct {
	ID                 int64   `json:"id"`
	Site               string  `json:"site"`
	Sponsor            *string `json:"sponsor"`
	Protocol           *string `json:"protocol"`
	StudyType          *string `json:"studyType"`
	Description        *string `json:"description"`
	StudyStatus        *string `json:"studyStatus"`
	Phase              *string `json:"phase"`
	MonitoringSchedule *string `json:"monitoringSchedule"`
	AssessmentDate     *string `json:"assessmentDate"`
	Scored             string  `json:"scored"`
	TotalRiskScore     int     `json:"totalRiskScore"`
	OverallRisk        string  `json:"overallRisk"`
	AssessmentStatus   string  `json:"assessmentStatus"`
	Reason             string  `json:"reason"`
	LastUpdated        *string `json:"lastUpdated"`
	ConductedBy        string  `json:"conductedBy"`
	ReviewedBy         string  `json:"reviewedBy"`
	ApprovedBy         string  `json:"approvedBy"`
	RejectedBy         string  `json:"rejectedBy"`
}

// ChartEntry is one bar of the top-studies risk chart.
type ChartEntry struct {
	Label string `json:"label"`
	Value int    `json:"value"`
	Color string `json:"color"`
}

// RiskChart is the bar chart payload for the dashboard.
type RiskChart struct {
	BarChartData []ChartEntry `json:"barChartData"`
	TotalStudies int          `json:"totalStudies"`
}

// RiskTableRow is one row of the assessed-studies risk tables.
type RiskTableRow struct {
	StudyID                    int64   `json:"study_id"`
	Site                       string  `json:"site"`
	Sponsor                    *string `json:"sponsor"`
	Protocol                   *string `json:"protocol"`
	StudyType                  *string `json:"study_type"`
	StudyTypeText              *string `json:"study_type_text"`
	Description                *string `json:"description"`
	StudyStatus                *string `json:"study_status"`
	Phase                      *string `json:"phase"`
	Risk                       int     `json:"risk"`
	AssessmentID               int64   `json:"assessment_id"`
	MonitoringSchedule         string  `json:"monitoring_schedule"`
	SiteID                     *string `json:"siteid,omitempty"`
	StudyRef                   *string `json:"studyid,omitempty"`
	Active                     *string `json:"active,omitempty"`
	PrincipalInvestigator      *string `json:"principal_investigator,omitempty"`
	PrincipalInvestigatorEmail *string `json:"principal_investigator_email,omitempty"`
	SiteDirector               *string `json:"site_director,omitempty"`
	SiteDirectorEmail          *string `json:"site_director_email,omitempty"`
	AssessmentStatus           *string `json:"assessment_status,omitempty"`
	SponsorCode                *string `json:"sponsor_code,omitempty"`
	CreatedAt                  *string `json:"created_at,omitempty"`
	CRCName                    *string `json:"crcname,omitempty"`
}

// RiskTable is the top-ten highest risk table payload.
type RiskTable struct {
	RiskTableData []RiskTableRow `json:"riskTableData"`
	TotalStudies  int            `json:"totalStudies"`
}

// RiskTablePage adds server-side pagination metadata.
type RiskTablePage struct {
	RiskTableData []RiskTableRow `json:"riskTableData"`
	TotalStudies  int            `json:"totalStudies"`
	TotalPages    int            `json:"totalPages"`
	CurrentPage   int            `json:"currentPage"`
	PageSize      int            `json:"pageSize"`
}

// EditPermissions reports whether a user may edit a study's assessment.
type EditPermissions struct {
	CanEdit   bool      `json:"canEdit"`
	UserEmail string    `json:"userEmail"`
	PIEmail   *string   `json:"piEmail"`
	SDEmail   *string   `json:"sdEmail"`
	Reason    string    `json:"reason"`
	StudyInfo StudyInfo `json:"studyInfo"`
}

// StudyInfo is the study header echoed with a permission check.
type StudyInfo struct {
	StudyID               int64   `json:"studyId"`
	Site                  string  `json:"site"`
	Sponsor               *string `json:"sponsor"`
	Protocol              *string `json:"protocol"`
	PrincipalInvestigator *string `json:"principalInvestigator"`
	SiteDirector          *string `json:"siteDirector"`
}

// DashboardStats aggregates a user's portfolio for the landing page.
type DashboardStats struct {
	TotalActiveSites         int    `json:"total_active_sites"`
	TotalActiveStudies       int    `json:"total_active_studies"`
	TotalAssessedStudies     int    `json:"total_assessed_studies"`
	TotalApprovedAssessments int    `json:"total_approved_assessments"`
	TotalRejectedAssessments int    `json:"total_rejected_assessments"`
	TotalReviewsPending      int    `json:"total_reviews_pending"`
	UserType                 string `json:"user_type"`
	UserEmail                string `json:"user_email"`
}

// Contacts carries the study's PI and SD identities for routing.
type Contacts struct {
	PIName  string
	PIEmail string
	SDName  string
	SDEmail string
}
