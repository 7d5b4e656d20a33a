package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"siterisk/internal/assessment"
	"siterisk/internal/identity"
	"siterisk/pkg/apperr"
	"siterisk/pkg/platform/httputil"
)

// AssessmentService is the slice of the assessment service the
// transport layer depends on.
type AssessmentService interface {
	Metadata(ctx context.Context) (assessment.Metadata, error)
	Save(ctx context.Context, payload assessment.SavePayload, userName, userEmail string) (assessment.SaveResult, error)
	SaveDraft(ctx context.Context, payload assessment.SavePayload, userName, userEmail string) (assessment.SaveResult, error)
	SubmitFinal(ctx context.Context, payload assessment.SavePayload, userName, userEmail string) (assessment.SaveResult, error)
	Complete(ctx context.Context, assessmentID int64) (assessment.Complete, error)
	CompleteByStudy(ctx context.Context, studyID int64) (assessment.Complete, error)
	LatestAssessmentID(ctx context.Context, studyID int64) (int64, error)
	AssessedStudies(ctx context.Context, email, userType string) (assessment.AssessedStudies, error)
	Approve(ctx context.Context, assessmentID int64, req assessment.DecisionRequest) (assessment.DecisionResult, error)
	Reject(ctx context.Context, assessmentID int64, req assessment.DecisionRequest) (assessment.DecisionResult, error)
}

// AssessmentHandler wires the assessment lifecycle endpoints.
type AssessmentHandler struct {
	service AssessmentService
	logger  *slog.Logger
}

func NewAssessmentHandler(service AssessmentService, logger *slog.Logger) *AssessmentHandler {
	return &AssessmentHandler{service: service, logger: logger}
}

// Register mounts the assessment endpoints. The namespace is flat:
// every route sits directly under the API prefix alongside the study,
// notification, and audit routes.
func (h *AssessmentHandler) Register(r chi.Router) {
	r.Get("/test", h.HandleTest)
	r.Get("/metadata", h.HandleMetadata)
	r.Post("/saveRisksByStudyId", h.HandleSave)
	r.Post("/saveDraft", h.HandleSaveDraft)
	r.Post("/submitFinal", h.HandleSubmitFinal)
	r.Get("/{assessmentID}/complete", h.HandleComplete)
	r.Get("/by-study/{studyID}/complete", h.HandleCompleteByStudy)
	r.Get("/assessed-studies", h.HandleAssessedStudies)
	r.Post("/{assessmentID}/approve", h.HandleApprove)
	r.Post("/{assessmentID}/reject", h.HandleReject)
}

// HandleTest handles GET /test requests.
func (h *AssessmentHandler) HandleTest(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Assessment router is working!",
		"status":  "success",
	})
}

// HandleMetadata handles GET /metadata requests.
func (h *AssessmentHandler) HandleMetadata(w http.ResponseWriter, r *http.Request) {
	meta, err := h.service.Metadata(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, meta)
}

// HandleSave handles POST /saveRisksByStudyId requests.
func (h *AssessmentHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, h.service.Save)
}

// HandleSaveDraft handles POST /saveDraft requests.
func (h *AssessmentHandler) HandleSaveDraft(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, h.service.SaveDraft)
}

// HandleSubmitFinal handles POST /submitFinal requests.
func (h *AssessmentHandler) HandleSubmitFinal(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, h.service.SubmitFinal)
}

func (h *AssessmentHandler) save(
	w http.ResponseWriter,
	r *http.Request,
	op func(context.Context, assessment.SavePayload, string, string) (assessment.SaveResult, error),
) {
	ctx := r.Context()
	user, _ := identity.FromContext(ctx)

	payload, err := httputil.Decode[assessment.SavePayload](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := op(ctx, payload, user.Name, user.Email)
	if err != nil {
		h.logger.ErrorContext(ctx, "assessment save failed",
			"study_id", payload.StudyID,
			"user_email", user.Email,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleComplete handles GET /{assessmentID}/complete requests.
func (h *AssessmentHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "assessmentID")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	complete, err := h.service.Complete(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, complete)
}

// HandleCompleteByStudy handles GET /by-study/{studyID}/complete requests.
func (h *AssessmentHandler) HandleCompleteByStudy(w http.ResponseWriter, r *http.Request) {
	studyID, err := pathInt64(r, "studyID")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	complete, err := h.service.CompleteByStudy(r.Context(), studyID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, complete)
}

// HandleAssessedStudies handles GET /assessed-studies requests.
func (h *AssessmentHandler) HandleAssessedStudies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := identity.FromContext(ctx)

	result, err := h.service.AssessedStudies(ctx, user.Email, r.URL.Query().Get("user_type"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleApprove handles POST /{assessmentID}/approve requests.
func (h *AssessmentHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Approve)
}

// HandleReject handles POST /{assessmentID}/reject requests.
func (h *AssessmentHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Reject)
}

func (h *AssessmentHandler) decide(
	w http.ResponseWriter,
	r *http.Request,
	op func(context.Context, int64, assessment.DecisionRequest) (assessment.DecisionResult, error),
) {
	ctx := r.Context()

	id, err := pathInt64(r, "assessmentID")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.Decode[assessment.DecisionRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := op(ctx, id, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "assessment decision failed",
			"assessment_id", id,
			"action_by", req.ActionByEmail,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func pathInt64(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperr.Newf(apperr.CodeBadRequest, "Invalid %s: %s", name, raw)
	}
	return v, nil
}
