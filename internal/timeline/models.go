package timeline

import "time"

// ScheduleTypeInitial marks the first timeline entry for an assessment.
// Later schedule changes are recorded as "Schedule Update: <schedule>".
const ScheduleTypeInitial = "Initial Assessment"

// Entry is one row of an assessment's monitoring history.
type Entry struct {
	ID              int64
	StudyID         int64
	AssessmentID    int64
	ScheduleType    string
	AssessedDate    *string
	AssessedByName  string
	AssessedByEmail string
	RiskScore       *int
	RiskLevel       *string
	Notes           *string
	CreatedAt       time.Time
}

// UIEntry is the grid projection of an Entry. Missing values render as
// zero values rather than nulls.
type UIEntry struct {
	ID           int64  `json:"id"`
	Schedule     string `json:"schedule"`
	AssessedDate string `json:"assessedDate"`
	AssessedBy   string `json:"assessedBy"`
	RiskScore    int    `json:"riskScore"`
	RiskLevel    string `json:"riskLevel"`
	Notes        string `json:"notes"`
	CreatedAt    string `json:"createdAt"`
}

// SaveEvent describes an assessment save for timeline tracking.
type SaveEvent struct {
	StudyID      int64
	AssessmentID int64
	// Schedule is the monitoring schedule submitted with the save.
	Schedule *string
	// PreviousSchedule is the schedule on record before the save. Nil
	// means it could not be read, which suppresses change detection.
	PreviousSchedule *string
	AssessmentDate   *string
	RiskScore        *int
	RiskLevel        *string
	// FallbackComment is the payload's free-form comment, used when no
	// summary comment row exists.
	FallbackComment string
	IsNew           bool
}

func newUIEntry(e Entry) UIEntry {
	ui := UIEntry{
		ID:         e.ID,
		Schedule:   e.ScheduleType,
		AssessedBy: e.AssessedByName,
	}
	if e.AssessedDate != nil {
		ui.AssessedDate = *e.AssessedDate
	}
	if e.RiskScore != nil {
		ui.RiskScore = *e.RiskScore
	}
	if e.RiskLevel != nil {
		ui.RiskLevel = *e.RiskLevel
	}
	if e.Notes != nil {
		ui.Notes = *e.Notes
	}
	if !e.CreatedAt.IsZero() {
		ui.CreatedAt = e.CreatedAt.Format("2006-01-02 15:04:05")
	}
	return ui
}
