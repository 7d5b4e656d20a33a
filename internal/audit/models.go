package audit

import (
	"strconv"
	"time"
)

// Field names as recorded in the trail. The base trail view restricts to
// Severity and Likelihood; score and level changes remain queryable through
// their dedicated filters.
const (
	FieldSeverity   = "Severity"
	FieldLikelihood = "Likelihood"
	FieldRiskScore  = "Risk Score"
	FieldRiskLevel  = "Risk Level"
)

// uiTimestampLayout matches the grid's expected timestamp rendering.
const uiTimestampLayout = "2006-01-02 03:04 PM"

// Actor identifies who made a change.
type Actor struct {
	Name  string
	Email string
}

// Entry is one immutable field-level change record.
type Entry struct {
	ID             int64
	AssessmentID   int64
	RiskFactorID   int64
	FieldName      string
	OldValue       *string
	NewValue       *string
	ChangedByName  string
	ChangedByEmail string
	ChangeReason   *string
	ChangedAt      time.Time
}

// TrailRecord is the UI projection of an Entry, joined with the risk
// factor's display text.
type TrailRecord struct {
	ID             int64   `json:"id"`
	AssessmentID   int64   `json:"assessment_id"`
	RiskFactorID   int64   `json:"risk_factor_id"`
	RiskFactor     string  `json:"riskFactor"`
	Field          string  `json:"field"`
	OldValue       *string `json:"oldValue"`
	NewValue       *string `json:"newValue"`
	ChangedBy      string  `json:"changedBy"`
	ChangedByEmail string  `json:"changedByEmail"`
	ChangeReason   *string `json:"changeReason"`
	Timestamp      *string `json:"timestamp"`
}

// FieldCount aggregates changes per field.
type FieldCount struct {
	Field string `json:"field"`
	Count int    `json:"count"`
}

// UserCount aggregates changes per actor.
type UserCount struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Count int    `json:"count"`
}

// Summary is the per-assessment audit rollup.
type Summary struct {
	AssessmentID   int64        `json:"assessment_id"`
	TotalChanges   int          `json:"total_changes"`
	ChangesByField []FieldCount `json:"changes_by_field"`
	ChangesByUser  []UserCount  `json:"changes_by_user"`
	LatestChange   *string      `json:"latest_change"`
}

// TrailQuery filters the per-assessment trail.
type TrailQuery struct {
	AssessmentID int64
	FieldName    string
	RiskFactorID int64
	Limit        int
}

// RiskValues are the auditable fields of one risk score row.
type RiskValues struct {
	Severity   *int
	Likelihood *int
	RiskScore  *int
	RiskLevel  *string
}

// Diff produces one Entry per field whose value changed between old and
// new. Unchanged fields produce nothing.
func Diff(assessmentID, riskFactorID int64, old, new RiskValues, actor Actor, at time.Time) []Entry {
	var entries []Entry
	add := func(field string, oldV, newV *string) {
		if strPtrEqual(oldV, newV) {
			return
		}
		entries = append(entries, Entry{
			AssessmentID:   assessmentID,
			RiskFactorID:   riskFactorID,
			FieldName:      field,
			OldValue:       oldV,
			NewValue:       newV,
			ChangedByName:  actor.Name,
			ChangedByEmail: actor.Email,
			ChangedAt:      at,
		})
	}
	add(FieldSeverity, intStr(old.Severity), intStr(new.Severity))
	add(FieldLikelihood, intStr(old.Likelihood), intStr(new.Likelihood))
	add(FieldRiskScore, intStr(old.RiskScore), intStr(new.RiskScore))
	add(FieldRiskLevel, old.RiskLevel, new.RiskLevel)
	return entries
}

// newTrailRecord projects an Entry for the UI, falling back to a
// synthetic label when the risk factor row is gone.
func newTrailRecord(e Entry, riskFactorText *string) TrailRecord {
	label := "Risk Factor " + strconv.FormatInt(e.RiskFactorID, 10)
	if riskFactorText != nil && *riskFactorText != "" {
		label = *riskFactorText
	}
	var ts *string
	if !e.ChangedAt.IsZero() {
		formatted := e.ChangedAt.Format(uiTimestampLayout)
		ts = &formatted
	}
	return TrailRecord{
		ID:             e.ID,
		AssessmentID:   e.AssessmentID,
		RiskFactorID:   e.RiskFactorID,
		RiskFactor:     label,
		Field:          e.FieldName,
		OldValue:       e.OldValue,
		NewValue:       e.NewValue,
		ChangedBy:      e.ChangedByName,
		ChangedByEmail: e.ChangedByEmail,
		ChangeReason:   e.ChangeReason,
		Timestamp:      ts,
	}
}

func intStr(v *int) *string {
	if v == nil {
		return nil
	}
	s := strconv.Itoa(*v)
	return &s
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
