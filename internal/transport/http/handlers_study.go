package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"siterisk/internal/identity"
	"siterisk/internal/study"
	"siterisk/pkg/platform/httputil"
)

// StudyService is the slice of the study read side the transport layer
// depends on.
type StudyService interface {
	List(ctx context.Context) ([]study.Study, error)
	ListByUser(ctx context.Context, email, userType string, filter study.Filter) ([]study.Study, error)
	DropdownValues(ctx context.Context, email, userType string) (study.DropdownValues, error)
	AssessmentsWithContacts(ctx context.Context, email, userType string) ([]study.AssessmentRow, error)
	TopStudiesRiskChart(ctx context.Context) (study.RiskChart, error)
	HighestRisk(ctx context.Context, filter study.Filter) (study.RiskTable, error)
	AllAssessed(ctx context.Context, filter study.Filter, page, pageSize int) (study.RiskTablePage, error)
	FilterValues(ctx context.Context) (study.DropdownValues, error)
	DashboardStats(ctx context.Context, email, userType string) (study.DashboardStats, error)
	EditPermissions(ctx context.Context, studyID int64, email string) (study.EditPermissions, error)
}

// StudyHandler wires the study listing and dashboard endpoints.
type StudyHandler struct {
	service StudyService
	logger  *slog.Logger
}

func NewStudyHandler(service StudyService, logger *slog.Logger) *StudyHandler {
	return &StudyHandler{service: service, logger: logger}
}

// Register mounts the study endpoints on the shared flat namespace.
// dashboard-stats lives here because the counters come off the study
// tables even though the UI treats it as an assessment view.
func (h *StudyHandler) Register(r chi.Router) {
	r.Get("/", h.HandleList)
	r.Get("/assessments", h.HandleAssessments)
	r.Get("/dropdown-values", h.HandleDropdownValues)
	r.Get("/getStudiesByUsername", h.HandleStudiesByUsername)
	r.Get("/top-studies-risk-chart", h.HandleTopStudiesRiskChart)
	r.Get("/assessed-studies-highest-risk", h.HandleHighestRisk)
	r.Get("/all-assessed-studies", h.HandleAllAssessed)
	r.Get("/risk-table-filter-values", h.HandleFilterValues)
	r.Get("/dashboard-stats", h.HandleDashboardStats)
	r.Get("/assessment-edit-permissions/{studyID}", h.HandleEditPermissions)
}

// HandleList handles GET / requests.
func (h *StudyHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	studies, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, studies)
}

// HandleAssessments handles GET /assessments requests.
func (h *StudyHandler) HandleAssessments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := identity.FromContext(ctx)

	rows, err := h.service.AssessmentsWithContacts(ctx, user.Email, r.URL.Query().Get("user_type"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rows)
}

// HandleDropdownValues handles GET /dropdown-values requests.
func (h *StudyHandler) HandleDropdownValues(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := identity.FromContext(ctx)

	values, err := h.service.DropdownValues(ctx, user.Email, r.URL.Query().Get("type"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, values)
}

// HandleStudiesByUsername handles GET /getStudiesByUsername requests.
func (h *StudyHandler) HandleStudiesByUsername(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := identity.FromContext(ctx)
	q := r.URL.Query()

	studies, err := h.service.ListByUser(ctx, user.Email, q.Get("type"), filterFrom(q.Get("site"), q.Get("sponsor"), q.Get("protocol")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, studies)
}

// HandleTopStudiesRiskChart handles GET /top-studies-risk-chart requests.
func (h *StudyHandler) HandleTopStudiesRiskChart(w http.ResponseWriter, r *http.Request) {
	chart, err := h.service.TopStudiesRiskChart(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, chart)
}

// HandleHighestRisk handles GET /assessed-studies-highest-risk requests.
func (h *StudyHandler) HandleHighestRisk(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	table, err := h.service.HighestRisk(r.Context(), filterFrom(q.Get("site"), q.Get("sponsor"), q.Get("protocol")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, table)
}

// HandleAllAssessed handles GET /all-assessed-studies requests.
func (h *StudyHandler) HandleAllAssessed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := queryInt(q.Get("page"), 1)
	pageSize := queryInt(q.Get("pageSize"), 20)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	result, err := h.service.AllAssessed(r.Context(), filterFrom(q.Get("site"), q.Get("sponsor"), q.Get("protocol")), page, pageSize)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleFilterValues handles GET /risk-table-filter-values requests.
func (h *StudyHandler) HandleFilterValues(w http.ResponseWriter, r *http.Request) {
	values, err := h.service.FilterValues(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, values)
}

// HandleDashboardStats handles GET /dashboard-stats requests.
func (h *StudyHandler) HandleDashboardStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := identity.FromContext(ctx)

	stats, err := h.service.DashboardStats(ctx, user.Email, r.URL.Query().Get("user_type"))
	if err != nil {
		h.logger.ErrorContext(ctx, "dashboard stats failed",
			"user_email", user.Email,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// HandleEditPermissions handles GET /assessment-edit-permissions/{studyID} requests.
func (h *StudyHandler) HandleEditPermissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := identity.FromContext(ctx)

	studyID, err := pathInt64(r, "studyID")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	perms, err := h.service.EditPermissions(ctx, studyID, user.Email)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, perms)
}

func filterFrom(site, sponsor, protocol string) study.Filter {
	return study.Filter{Site: site, Sponsor: sponsor, Protocol: protocol}
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
