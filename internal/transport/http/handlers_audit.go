package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"siterisk/internal/audit"
	"siterisk/internal/timeline"
	"siterisk/pkg/apperr"
	"siterisk/pkg/platform/httputil"
)

// AuditService is the slice of the audit trail the transport layer
// depends on.
type AuditService interface {
	Trail(ctx context.Context, q audit.TrailQuery) ([]audit.TrailRecord, error)
	RiskFactorTrail(ctx context.Context, assessmentID, riskFactorID int64, limit int) ([]audit.TrailRecord, error)
	ChangesByUser(ctx context.Context, assessmentID int64, email string, limit int) ([]audit.TrailRecord, error)
	Summary(ctx context.Context, assessmentID int64) (audit.Summary, error)
}

// TimelineService serves the per-study assessment history grid.
type TimelineService interface {
	ForStudy(ctx context.Context, studyID int64, limit int) ([]timeline.UIEntry, error)
}

// AssessmentLookup resolves a study to its newest assessment for the
// study-scoped audit view.
type AssessmentLookup interface {
	LatestAssessmentID(ctx context.Context, studyID int64) (int64, error)
}

// AuditHandler wires the audit trail and timeline endpoints.
type AuditHandler struct {
	audits      AuditService
	timeline    TimelineService
	assessments AssessmentLookup
	logger      *slog.Logger
}

func NewAuditHandler(audits AuditService, tl TimelineService, assessments AssessmentLookup, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{audits: audits, timeline: tl, assessments: assessments, logger: logger}
}

// Register mounts the audit endpoints. The static /audit-trail/test
// route wins over the {assessmentID} parameter.
func (h *AuditHandler) Register(r chi.Router) {
	r.Get("/audit-trail/test", h.HandleTest)
	r.Get("/audit-trail/{assessmentID}", h.HandleTrail)
	r.Get("/audit-trail/{assessmentID}/severity-changes", h.fieldChanges(audit.FieldSeverity, "severity_changes"))
	r.Get("/audit-trail/{assessmentID}/risk-score-changes", h.fieldChanges(audit.FieldRiskScore, "risk_score_changes"))
	r.Get("/audit-trail/{assessmentID}/risk-level-changes", h.fieldChanges(audit.FieldRiskLevel, "risk_level_changes"))
	r.Get("/audit-trail/{assessmentID}/user-changes", h.HandleUserChanges)
	r.Get("/audit-trail/{assessmentID}/summary", h.HandleSummary)
	r.Get("/audit-trail/{assessmentID}/risk-factor/{riskFactorID}", h.HandleRiskFactorTrail)
	r.Get("/assessment-audit/{studyID}", h.HandleStudyAudit)
	r.Get("/assessment-timeline/{studyID}", h.HandleStudyTimeline)
}

// HandleTest handles GET /audit-trail/test requests.
func (h *AuditHandler) HandleTest(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Audit router is working!",
		"status":  "success",
	})
}

// HandleTrail handles GET /audit-trail/{assessmentID} requests.
func (h *AuditHandler) HandleTrail(w http.ResponseWriter, r *http.Request) {
	assessmentID, err := pathInt64(r, "assessmentID")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	q := r.URL.Query()

	records, err := h.audits.Trail(r.Context(), audit.TrailQuery{
		AssessmentID: assessmentID,
		FieldName:    q.Get("field_name"),
		RiskFactorID: int64(queryInt(q.Get("risk_factor_id"), 0)),
		Limit:        queryInt(q.Get("limit"), 0),
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"assessment_id": assessmentID,
		"audit_trail":   records,
		"total_records": len(records),
	})
}

// fieldChanges builds a handler for a fixed-field change listing,
// keyed under the given response field.
func (h *AuditHandler) fieldChanges(field, key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assessmentID, err := pathInt64(r, "assessmentID")
		if err != nil {
			httputil.WriteError(w, err)
			return
		}

		records, err := h.audits.Trail(r.Context(), audit.TrailQuery{
			AssessmentID: assessmentID,
			FieldName:    field,
			RiskFactorID: int64(queryInt(r.URL.Query().Get("risk_factor_id"), 0)),
		})
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"success":       true,
			"assessment_id": assessmentID,
			key:             records,
			"total_changes": len(records),
		})
	}
}

// HandleUserChanges handles GET /audit-trail/{assessmentID}/user-changes requests.
func (h *AuditHandler) HandleUserChanges(w http.ResponseWriter, r *http.Request) {
	assessmentID, err := pathInt64(r, "assessmentID")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	email := r.URL.Query().Get("user_email")
	if email == "" {
		httputil.WriteError(w, apperr.New(apperr.CodeBadRequest, "user_email is required"))
		return
	}

	records, err := h.audits.ChangesByUser(r.Context(), assessmentID, email, 0)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"assessment_id": assessmentID,
		"user_email":    email,
		"user_changes":  records,
		"total_changes": len(records),
	})
}

// HandleSummary handles GET /audit-trail/{assessmentID}/summary requests.
func (h *AuditHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	assessmentID, err := pathInt64(r, "assessmentID")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	summary, err := h.audits.Summary(r.Context(), assessmentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"summary": summary,
	})
}

// HandleRiskFactorTrail handles GET /audit-trail/{assessmentID}/risk-factor/{riskFactorID} requests.
func (h *AuditHandler) HandleRiskFactorTrail(w http.ResponseWriter, r *http.Request) {
	assessmentID, err := pathInt64(r, "assessmentID")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	riskFactorID, err := pathInt64(r, "riskFactorID")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := h.audits.RiskFactorTrail(r.Context(), assessmentID, riskFactorID, 0)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"assessment_id":  assessmentID,
		"risk_factor_id": riskFactorID,
		"audit_trail":    records,
		"total_records":  len(records),
	})
}

// uiAuditRow is the study-scoped audit grid row.
type uiAuditRow struct {
	Timestamp  string `json:"timestamp"`
	RiskFactor string `json:"riskFactor"`
	Field      string `json:"field"`
	OldValue   string `json:"oldValue"`
	NewValue   string `json:"newValue"`
	ChangedBy  string `json:"changedBy"`
}

// HandleStudyAudit handles GET /assessment-audit/{studyID} requests.
// The study resolves to its newest assessment; a study with no
// assessments yields an empty grid, not an error.
func (h *AuditHandler) HandleStudyAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	studyID, err := pathInt64(r, "studyID")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	assessmentID, err := h.assessments.LatestAssessmentID(ctx, studyID)
	if err != nil {
		if apperr.Is(err, apperr.CodeNotFound) {
			httputil.WriteJSON(w, http.StatusOK, map[string]any{
				"success":       true,
				"study_id":      studyID,
				"assessment_id": nil,
				"audit_data":    []uiAuditRow{},
				"total_records": 0,
				"message":       "No assessment found for this study",
			})
			return
		}
		httputil.WriteError(w, err)
		return
	}

	q := r.URL.Query()
	records, err := h.audits.Trail(ctx, audit.TrailQuery{
		AssessmentID: assessmentID,
		FieldName:    q.Get("field_name"),
		RiskFactorID: int64(queryInt(q.Get("risk_factor_id"), 0)),
		Limit:        queryInt(q.Get("limit"), 0),
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rows := make([]uiAuditRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, uiAuditRow{
			Timestamp:  strOrEmpty(rec.Timestamp),
			RiskFactor: rec.RiskFactor,
			Field:      rec.Field,
			OldValue:   strOrEmpty(rec.OldValue),
			NewValue:   strOrEmpty(rec.NewValue),
			ChangedBy:  rec.ChangedBy,
		})
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"study_id":      studyID,
		"assessment_id": assessmentID,
		"audit_data":    rows,
		"total_records": len(rows),
	})
}

// HandleStudyTimeline handles GET /assessment-timeline/{studyID} requests.
func (h *AuditHandler) HandleStudyTimeline(w http.ResponseWriter, r *http.Request) {
	studyID, err := pathInt64(r, "studyID")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.timeline.ForStudy(r.Context(), studyID, queryInt(r.URL.Query().Get("limit"), 100))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"study_id":      studyID,
		"timeline_data": entries,
		"total_records": len(entries),
	})
}

func strOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
