package assessment

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"siterisk/internal/audit"
	"siterisk/internal/notification"
	"siterisk/internal/platform/metrics"
	"siterisk/internal/study"
	"siterisk/internal/timeline"
	"siterisk/pkg/apperr"
	"siterisk/pkg/platform/tx"
	"siterisk/pkg/requestcontext"
)

// Placeholder identity applied when the token carries no usable name or
// email.
const (
	unknownUserName  = "Unknown User"
	unknownUserEmail = "unknown@email.com"
)

// Service owns the assessment lifecycle: saves, drafts, final
// submissions, and the Study Director's review decisions.
type Service struct {
	store         Store
	studies       study.Store
	audits        *audit.Service
	timeline      *timeline.Tracker
	notifications *notification.Service
	cache         *CatalogCache
	metrics       *metrics.Metrics
	db            *sql.DB
	logger        *slog.Logger
}

func NewService(
	store Store,
	studies study.Store,
	audits *audit.Service,
	tracker *timeline.Tracker,
	notifications *notification.Service,
	cache *CatalogCache,
	m *metrics.Metrics,
	db *sql.DB,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:         store,
		studies:       studies,
		audits:        audits,
		timeline:      tracker,
		notifications: notifications,
		cache:         cache,
		metrics:       m,
		db:            db,
		logger:        logger,
	}
}

// Metadata returns the section and risk-factor catalog, served from the
// cache when it is warm.
func (s *Service) Metadata(ctx context.Context) (Metadata, error) {
	if cached, ok := s.cache.Get(ctx); ok {
		return *cached, nil
	}

	sections, err := s.store.Sections(ctx)
	if err != nil {
		return Metadata{}, err
	}
	factors, err := s.store.ActiveRiskFactors(ctx)
	if err != nil {
		return Metadata{}, err
	}

	m := Metadata{
		AssessmentSections: sections,
		RiskFactors:        factors,
	}
	if m.AssessmentSections == nil {
		m.AssessmentSections = []Section{}
	}
	if m.RiskFactors == nil {
		m.RiskFactors = []RiskFactor{}
	}
	s.cache.Set(ctx, m)
	return m, nil
}

// Save persists a full assessment submission. An existing assessment is
// rewritten and moved to Pending Review; a first save creates it In
// Progress. Child tables are replaced wholesale, risk score changes are
// audited, and the Site Director is left holding an Initial Save
// approval record. Timeline and notification fan-out happen after the
// transaction commits and never fail the save.
func (s *Service) Save(ctx context.Context, payload SavePayload, userName, userEmail string) (SaveResult, error) {
	start := time.Now()

	if payload.StudyID == 0 || payload.AssessmentDate == "" {
		return SaveResult{}, apperr.New(apperr.CodeBadRequest, "Study ID and assessment date are required")
	}

	st, err := s.studies.GetByID(ctx, payload.StudyID)
	if err != nil {
		if apperr.Is(err, apperr.CodeNotFound) {
			return SaveResult{}, apperr.Newf(apperr.CodeBadRequest,
				"Study ID %d does not exist in riskassessment_site_study table. Please provide a valid study ID.", payload.StudyID)
		}
		return SaveResult{}, err
	}

	if err := s.validateRiskFactors(ctx, payload.RiskScores); err != nil {
		return SaveResult{}, err
	}

	userName, userEmail = normalizeUser(userName, userEmail)
	contacts := study.ContactsOf(st)

	var (
		assessmentID int64
		code         string
		isNew        bool
		prevSchedule *string
	)
	err = tx.Run(ctx, s.db, func(ctx context.Context) error {
		existing, err := s.store.FindByStudy(ctx, payload.StudyID)
		if err != nil {
			return err
		}

		if existing != nil {
			assessmentID = existing.ID
			code = existing.Code
			prevSchedule = existing.MonitoringSchedule

			header := s.headerFrom(payload, userName, userEmail)
			header.ID = existing.ID
			header.Status = StatusPendingReview
			if err := s.store.Update(ctx, header); err != nil {
				return err
			}

			// Child rows are replaced wholesale on every full save.
			if err := s.store.DeletePlans(ctx, assessmentID); err != nil {
				return err
			}
			if err := s.store.DeleteDashboard(ctx, assessmentID); err != nil {
				return err
			}
			if err := s.store.DeleteSummaryComments(ctx, assessmentID); err != nil {
				return err
			}
			if err := s.store.DeleteSectionComments(ctx, assessmentID); err != nil {
				return err
			}
		} else {
			isNew = true
			code, err = s.generateCode(ctx, st, payload.AssessmentDate)
			if err != nil {
				return err
			}
			header := s.headerFrom(payload, userName, userEmail)
			header.Code = code
			header.ConductedByName = userName
			header.ConductedByEmail = userEmail
			header.Status = StatusInProgress
			assessmentID, err = s.store.Insert(ctx, header)
			if err != nil {
				return err
			}
		}

		if err := s.upsertRiskScores(ctx, assessmentID, payload.RiskScores, userName, userEmail); err != nil {
			return err
		}
		for _, plan := range payload.RiskMitigationPlans {
			if err := s.store.InsertPlan(ctx, assessmentID, withPlanDefaults(plan)); err != nil {
				return err
			}
		}
		if payload.RiskDashboard != nil {
			if err := s.store.InsertDashboard(ctx, assessmentID, *payload.RiskDashboard); err != nil {
				return err
			}
		}
		for _, comment := range payload.SummaryComments {
			if err := s.store.InsertSummaryComment(ctx, assessmentID, comment, userName, userEmail); err != nil {
				return err
			}
		}
		for _, comment := range payload.SectionComments {
			if err := s.store.InsertSectionComment(ctx, assessmentID, comment); err != nil {
				return err
			}
		}

		// The Site Director holds exactly one approval record per
		// assessment, reset to Initial Save on every full save.
		if err := s.store.DeleteApprovals(ctx, assessmentID); err != nil {
			return err
		}
		reason := "Assessment saved"
		comments := "Assessment data saved successfully"
		return s.store.InsertApproval(ctx, ApprovalRecord{
			AssessmentID:  assessmentID,
			Action:        notification.ActionInitialSave,
			ActionByName:  contacts.SDName,
			ActionByEmail: contacts.SDEmail,
			Reason:        &reason,
			Comments:      &comments,
		})
	})
	if err != nil {
		return SaveResult{}, err
	}

	s.timeline.Track(ctx, timeline.SaveEvent{
		StudyID:          payload.StudyID,
		AssessmentID:     assessmentID,
		Schedule:         payload.MonitoringSchedule,
		PreviousSchedule: prevSchedule,
		AssessmentDate:   &payload.AssessmentDate,
		RiskScore:        payload.OverallRiskScore,
		RiskLevel:        payload.OverallRiskLevel,
		FallbackComment:  strDeref(payload.Comments),
		IsNew:            isNew,
	}, userName, userEmail)

	userType := study.UserTypeFor(st, userEmail)
	if err := s.notifications.NotifySubmission(ctx, assessmentID, payload.StudyID, userName, userEmail, userType); err != nil {
		s.logger.WarnContext(ctx, "creating save notification",
			slog.Int64("assessment_id", assessmentID), slog.Any("error", err))
	}

	s.metrics.IncrementSave("full")
	s.metrics.ObserveSaveLatency(time.Since(start))

	return SaveResult{
		Message:               "Assessment saved successfully",
		AssessmentID:          assessmentID,
		CustomAssessmentID:    code,
		StudyID:               payload.StudyID,
		AssessmentDate:        payload.AssessmentDate,
		RiskScoresCount:       len(payload.RiskScores),
		MitigationPlansCount:  len(payload.RiskMitigationPlans),
		SummaryCommentsCount:  len(payload.SummaryComments),
		SectionCommentsCount:  len(payload.SectionComments),
		ApprovalRecordCreated: true,
		SiteDirectorName:      contacts.SDName,
		SiteDirectorEmail:     contacts.SDEmail,
		NotificationCreated:   true,
	}, nil
}

// SaveDraft persists a partial submission. Only the child collections
// present in the payload are replaced; everything else is left alone,
// and the assessment stays In Progress.
func (s *Service) SaveDraft(ctx context.Context, payload SavePayload, userName, userEmail string) (SaveResult, error) {
	start := time.Now()

	if payload.StudyID == 0 {
		return SaveResult{}, apperr.New(apperr.CodeBadRequest, "Study ID is required for draft save")
	}
	st, err := s.studies.GetByID(ctx, payload.StudyID)
	if err != nil {
		if apperr.Is(err, apperr.CodeNotFound) {
			return SaveResult{}, apperr.Newf(apperr.CodeBadRequest, "Study ID %d does not exist", payload.StudyID)
		}
		return SaveResult{}, err
	}

	userName, userEmail = normalizeUser(userName, userEmail)

	var (
		assessmentID int64
		code         string
	)
	err = tx.Run(ctx, s.db, func(ctx context.Context) error {
		existing, err := s.store.FindByStudy(ctx, payload.StudyID)
		if err != nil {
			return err
		}

		if existing != nil {
			assessmentID = existing.ID
			code = existing.Code

			header := s.headerFrom(payload, userName, userEmail)
			header.ID = existing.ID
			header.Status = StatusInProgress
			if err := s.store.UpdateDraft(ctx, header); err != nil {
				return err
			}
		} else {
			date := payload.AssessmentDate
			if date == "" {
				date = time.Now().Format("2006-01-02")
			}
			code, err = s.generateCode(ctx, st, date)
			if err != nil {
				return err
			}
			header := s.headerFrom(payload, userName, userEmail)
			header.Code = code
			header.ConductedByName = userName
			header.ConductedByEmail = userEmail
			header.AssessmentDate = &date
			header.Status = StatusInProgress
			assessmentID, err = s.store.Insert(ctx, header)
			if err != nil {
				return err
			}
		}

		var scored []RiskScoreInput
		for _, in := range payload.RiskScores {
			if in.RiskFactorID != 0 && intSet(in.Severity) && intSet(in.Likelihood) {
				scored = append(scored, in)
			}
		}
		if err := s.upsertRiskScores(ctx, assessmentID, scored, userName, userEmail); err != nil {
			return err
		}

		if len(payload.RiskMitigationPlans) > 0 {
			if err := s.store.DeletePlans(ctx, assessmentID); err != nil {
				return err
			}
			for _, plan := range payload.RiskMitigationPlans {
				if strDeref(plan.RiskItem) == "" && strDeref(plan.ResponsiblePerson) == "" && strDeref(plan.MitigationStrategy) == "" {
					continue
				}
				if err := s.store.InsertPlan(ctx, assessmentID, withPlanDefaults(plan)); err != nil {
					return err
				}
			}
		}
		if payload.RiskDashboard != nil {
			if err := s.store.DeleteDashboard(ctx, assessmentID); err != nil {
				return err
			}
			if err := s.store.InsertDashboard(ctx, assessmentID, *payload.RiskDashboard); err != nil {
				return err
			}
		}
		if len(payload.SummaryComments) > 0 {
			if err := s.store.DeleteSummaryComments(ctx, assessmentID); err != nil {
				return err
			}
			for _, comment := range payload.SummaryComments {
				if comment.CommentText == "" {
					continue
				}
				if err := s.store.InsertSummaryComment(ctx, assessmentID, comment, userName, userEmail); err != nil {
					return err
				}
			}
		}
		if len(payload.SectionComments) > 0 {
			if err := s.store.DeleteSectionComments(ctx, assessmentID); err != nil {
				return err
			}
			for _, comment := range payload.SectionComments {
				if comment.CommentText == "" {
					continue
				}
				if err := s.store.InsertSectionComment(ctx, assessmentID, comment); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return SaveResult{}, err
	}

	s.metrics.IncrementSave("draft")
	s.metrics.ObserveSaveLatency(time.Since(start))

	isDraft := true
	return SaveResult{
		Message:              "Draft assessment saved successfully",
		AssessmentID:         assessmentID,
		CustomAssessmentID:   code,
		StudyID:              payload.StudyID,
		Status:               StatusInProgress,
		RiskScoresCount:      len(payload.RiskScores),
		MitigationPlansCount: len(payload.RiskMitigationPlans),
		SummaryCommentsCount: len(payload.SummaryComments),
		SectionCommentsCount: len(payload.SectionComments),
		IsDraft:              &isDraft,
	}, nil
}

// SubmitFinal runs a full save and then marks the assessment Completed.
func (s *Service) SubmitFinal(ctx context.Context, payload SavePayload, userName, userEmail string) (SaveResult, error) {
	result, err := s.Save(ctx, payload, userName, userEmail)
	if err != nil {
		return SaveResult{}, err
	}

	if err := s.store.UpdateStatus(ctx, result.AssessmentID, StatusCompleted); err != nil {
		return SaveResult{}, err
	}

	s.metrics.IncrementSave("final")

	isDraft := false
	result.Status = StatusCompleted
	result.IsDraft = &isDraft
	result.Message = "Assessment submitted successfully"
	return result, nil
}

// Approve records the Study Director's approval.
func (s *Service) Approve(ctx context.Context, assessmentID int64, req DecisionRequest) (DecisionResult, error) {
	return s.decide(ctx, assessmentID, StatusApproved, req)
}

// Reject records the Study Director's rejection. A reason is mandatory.
func (s *Service) Reject(ctx context.Context, assessmentID int64, req DecisionRequest) (DecisionResult, error) {
	if strings.TrimSpace(req.Reason) == "" {
		return DecisionResult{}, apperr.New(apperr.CodeBadRequest, "Reason is required for rejection")
	}
	return s.decide(ctx, assessmentID, StatusRejected, req)
}

func (s *Service) decide(ctx context.Context, assessmentID int64, status string, req DecisionRequest) (DecisionResult, error) {
	verb := "approved"
	if status == StatusRejected {
		verb = "rejected"
	}

	current, err := s.store.GetByID(ctx, assessmentID)
	if err != nil {
		if apperr.Is(err, apperr.CodeNotFound) {
			return DecisionResult{}, apperr.New(apperr.CodeNotFound, "Assessment not found")
		}
		return DecisionResult{}, err
	}
	if current.Status != StatusPendingReview && current.Status != StatusInProgress {
		return DecisionResult{}, apperr.Newf(apperr.CodeBadRequest,
			"Assessment cannot be %s. Current status: %s", verb, current.Status)
	}

	var (
		updated  DecisionAssessment
		approval *ApprovalRecord
	)
	err = tx.Run(ctx, s.db, func(ctx context.Context) error {
		var err error
		updated, err = s.store.UpdateDecision(ctx, assessmentID, status, req.ActionByName, req.ActionByEmail)
		if err != nil {
			return err
		}

		// Decisions replace the save-time Initial Save record so the
		// assessment keeps a single approval row.
		if err := s.store.DeleteApprovals(ctx, assessmentID); err != nil {
			return err
		}
		if err := s.store.InsertApproval(ctx, ApprovalRecord{
			AssessmentID:  assessmentID,
			Action:        status,
			ActionByName:  req.ActionByName,
			ActionByEmail: req.ActionByEmail,
			Reason:        optStr(req.Reason),
			Comments:      req.Comments,
		}); err != nil {
			return err
		}
		approval, err = s.store.LatestApprovalByAction(ctx, assessmentID, status)
		return err
	})
	if err != nil {
		return DecisionResult{}, err
	}
	if approval == nil {
		return DecisionResult{}, fmt.Errorf("approval record missing after %s of assessment %d", verb, assessmentID)
	}

	comments := strDeref(req.Comments)
	if comments == "" {
		comments = fmt.Sprintf("Assessment has been reviewed and %s by Study Director", verb)
	}
	if err := s.notifications.NotifyDecision(ctx, assessmentID, current.StudyID,
		req.ActionByName, req.ActionByEmail, status, req.Reason, comments); err != nil {
		s.logger.WarnContext(ctx, "creating decision notification",
			slog.Int64("assessment_id", assessmentID), slog.Any("error", err))
	}

	s.metrics.IncrementDecision(status)

	return DecisionResult{
		Success:      true,
		Message:      fmt.Sprintf("Assessment %s successfully", verb),
		Assessment:   updated,
		ApprovalData: *approval,
	}, nil
}

// Complete returns the assessment with every child collection.
func (s *Service) Complete(ctx context.Context, assessmentID int64) (Complete, error) {
	header, err := s.store.GetByID(ctx, assessmentID)
	if err != nil {
		return Complete{}, err
	}

	scores, err := s.store.RiskScores(ctx, assessmentID)
	if err != nil {
		return Complete{}, err
	}
	plans, err := s.store.Plans(ctx, assessmentID)
	if err != nil {
		return Complete{}, err
	}
	dashboard, err := s.store.Dashboard(ctx, assessmentID)
	if err != nil {
		return Complete{}, err
	}
	summaryComments, err := s.store.SummaryComments(ctx, assessmentID)
	if err != nil {
		return Complete{}, err
	}
	sectionComments, err := s.store.SectionComments(ctx, assessmentID)
	if err != nil {
		return Complete{}, err
	}

	c := Complete{
		Assessment:          *header,
		RiskScores:          scores,
		RiskMitigationPlans: plans,
		RiskDashboard:       dashboard,
		SummaryComments:     summaryComments,
		SectionComments:     sectionComments,
	}
	if c.RiskScores == nil {
		c.RiskScores = []RiskScore{}
	}
	if c.RiskMitigationPlans == nil {
		c.RiskMitigationPlans = []MitigationPlan{}
	}
	if c.SummaryComments == nil {
		c.SummaryComments = []SummaryComment{}
	}
	if c.SectionComments == nil {
		c.SectionComments = []SectionComment{}
	}
	return c, nil
}

// CompleteByStudy returns the study's newest assessment in full.
func (s *Service) CompleteByStudy(ctx context.Context, studyID int64) (Complete, error) {
	id, err := s.store.LatestIDForStudy(ctx, studyID)
	if err != nil {
		return Complete{}, err
	}
	return s.Complete(ctx, id)
}

// LatestAssessmentID returns the id of the study's newest assessment.
func (s *Service) LatestAssessmentID(ctx context.Context, studyID int64) (int64, error) {
	return s.store.LatestIDForStudy(ctx, studyID)
}

// AssessedStudies lists every assessed study visible to the user, each
// row enriched with its dashboard, summary comments, and latest
// approval.
func (s *Service) AssessedStudies(ctx context.Context, email, userType string) (AssessedStudies, error) {
	if userType != "" {
		userType = strings.ToUpper(userType)
		if userType != study.UserTypePI && userType != study.UserTypeSD {
			return AssessedStudies{}, apperr.New(apperr.CodeBadRequest, "user_type must be 'PI' or 'SD'")
		}
	}

	rows, err := s.store.AssessedRows(ctx, strings.ToLower(email), userType)
	if err != nil {
		return AssessedStudies{}, err
	}

	for i := range rows {
		a := &rows[i].AssessmentData

		dashboard, err := s.store.Dashboard(ctx, a.ID)
		if err != nil {
			return AssessedStudies{}, err
		}
		a.RiskDashboard = dashboard

		comments, err := s.store.SummaryComments(ctx, a.ID)
		if err != nil {
			return AssessedStudies{}, err
		}
		if comments == nil {
			comments = []SummaryComment{}
		}
		a.SummaryComments = comments

		approval, err := s.store.LatestApproval(ctx, a.ID)
		if err != nil {
			return AssessedStudies{}, err
		}
		a.ApprovalData = approval
		if approval != nil {
			switch approval.Action {
			case StatusApproved:
				a.ApprovedByName = &approval.ActionByName
				a.ApprovedByEmail = &approval.ActionByEmail
			case StatusRejected:
				a.RejectedByName = &approval.ActionByName
				a.RejectedByEmail = &approval.ActionByEmail
			}
		}
	}

	result := AssessedStudies{AssessedStudies: rows}
	if result.AssessedStudies == nil {
		result.AssessedStudies = []AssessedStudy{}
	}
	return result, nil
}

// validateRiskFactors rejects payloads referencing unknown or retired
// risk factors.
func (s *Service) validateRiskFactors(ctx context.Context, scores []RiskScoreInput) error {
	var ids []int64
	for _, in := range scores {
		if in.RiskFactorID != 0 {
			ids = append(ids, in.RiskFactorID)
		}
	}
	invalid, err := s.store.InvalidRiskFactorIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(invalid) > 0 {
		return apperr.Newf(apperr.CodeBadRequest,
			"Invalid risk factor IDs: %v. Please use valid risk factor IDs from the metadata endpoint.", invalid)
	}
	return nil
}

// upsertRiskScores writes each score, keyed by (assessment, factor),
// and records an audit entry for every value that changed.
func (s *Service) upsertRiskScores(ctx context.Context, assessmentID int64, scores []RiskScoreInput, userName, userEmail string) error {
	actor := audit.Actor{Name: userName, Email: userEmail}
	// Request-scoped time so every audit row from one submission shares
	// a single changed_at.
	now := requestcontext.Now(ctx)

	for _, in := range scores {
		old, err := s.store.GetRiskScore(ctx, assessmentID, in.RiskFactorID)
		if err != nil {
			return err
		}
		if old != nil {
			err = s.store.UpdateRiskScore(ctx, assessmentID, in)
		} else {
			err = s.store.InsertRiskScore(ctx, assessmentID, in)
		}
		if err != nil {
			return err
		}

		entries := audit.Diff(assessmentID, in.RiskFactorID, auditValues(old), auditInputValues(in), actor, now)
		if err := s.audits.Record(ctx, entries); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) headerFrom(payload SavePayload, userName, userEmail string) Assessment {
	date := optStr(payload.AssessmentDate)
	return Assessment{
		StudyID:            payload.StudyID,
		AssessmentDate:     date,
		NextReviewDate:     payload.NextReviewDate,
		MonitoringSchedule: payload.MonitoringSchedule,
		OverallRiskScore:   payload.OverallRiskScore,
		OverallRiskLevel:   payload.OverallRiskLevel,
		Comments:           payload.Comments,
		UpdatedByName:      userName,
		UpdatedByEmail:     userEmail,
	}
}

func withPlanDefaults(in PlanInput) PlanInput {
	if in.Status == "" {
		in.Status = defaultPlanStatus
	}
	if in.PriorityLevel == "" {
		in.PriorityLevel = defaultPlanPriority
	}
	return in
}

func normalizeUser(name, email string) (string, string) {
	if name == "" {
		name = unknownUserName
	}
	if email == "" {
		email = unknownUserEmail
	}
	return name, strings.ToLower(email)
}

func intSet(v *int) bool {
	return v != nil && *v != 0
}

func strDeref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
