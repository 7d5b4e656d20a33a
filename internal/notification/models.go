package notification

import "time"

// Target user types for notification fan-out.
const (
	TargetPI = "PI"
	TargetSD = "SD"
)

// listLimit caps the notification feed per request.
const listLimit = 50

// Notification is one fan-out record addressed to a user type.
type Notification struct {
	ID             int64
	AssessmentID   int64
	Action         string
	ActionByName   string
	ActionByEmail  string
	Reason         string
	Comments       *string
	TargetUserType string
	StudyID        int64
	ActionDate     time.Time
	Read           bool
}

// StudyInfo is the study context embedded in a feed item. CreatedAt is
// always null, the studies table has no such column.
type StudyInfo struct {
	Site                       *string `json:"site"`
	Sponsor                    *string `json:"sponsor"`
	Protocol                   *string `json:"protocol"`
	StudyDescription           *string `json:"study_description"`
	StudyType                  *string `json:"study_type"`
	StudyTypeText              *string `json:"study_type_text"`
	StudyStatus                *string `json:"study_status"`
	Phase                      *string `json:"phase"`
	MonitoringSchedule         *string `json:"monitoring_schedule"`
	SiteID                     *string `json:"siteid"`
	StudyID                    *string `json:"studyid"`
	Active                     *string `json:"active"`
	PrincipalInvestigator      *string `json:"principal_investigator"`
	PrincipalInvestigatorEmail *string `json:"principal_investigator_email"`
	SiteDirector               *string `json:"site_director"`
	SiteDirectorEmail          *string `json:"site_director_email"`
	SponsorCode                *string `json:"sponsor_code"`
	CreatedAt                  *string `json:"created_at"`
}

// AssessmentInfo is the assessment context embedded in a feed item. All
// fields are nullable, the study may not have an assessment yet.
type AssessmentInfo struct {
	AssessmentID     *int64  `json:"assessment_id"`
	AssessmentDate   *string `json:"assessment_date"`
	NextReviewDate   *string `json:"next_review_date"`
	Status           *string `json:"status"`
	ConductedByName  *string `json:"conducted_by_name"`
	ConductedByEmail *string `json:"conducted_by_email"`
	UpdatedByName    *string `json:"updated_by_name"`
	UpdatedByEmail   *string `json:"updated_by_email"`
	CreatedAt        *string `json:"created_at"`
	UpdatedAt        *string `json:"updated_at"`
}

// Item is one row of the notification feed. AssessmentID mirrors the
// joined assessment's id and is null when the study has none.
type Item struct {
	ID             int64          `json:"id"`
	AssessmentID   *int64         `json:"assessment_id"`
	Action         string         `json:"action"`
	ActionByName   string         `json:"action_by_name"`
	ActionByEmail  string         `json:"action_by_email"`
	Reason         string         `json:"reason"`
	Comments       *string        `json:"comments"`
	ActionDate     *string        `json:"action_date"`
	Read           bool           `json:"read"`
	StudyInfo      StudyInfo      `json:"study_info"`
	AssessmentInfo AssessmentInfo `json:"assessment_info"`
	PIName         *string        `json:"pi_name"`
	PIEmail        *string        `json:"pi_email"`
	SDName         *string        `json:"sd_name"`
	SDEmail        *string        `json:"sd_email"`
}

// List is the feed response. UnreadCount covers the returned page, not
// the whole table; UnreadCountResponse carries the aggregate.
type List struct {
	Notifications []Item `json:"notifications"`
	UnreadCount   int    `json:"unread_count"`
}

// UnreadCountResponse is the aggregate unread counter for a user type.
type UnreadCountResponse struct {
	UnreadCount int    `json:"unread_count"`
	UserType    string `json:"user_type"`
	UserEmail   string `json:"user_email"`
}
