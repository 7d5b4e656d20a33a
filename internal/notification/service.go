package notification

import (
	"context"
	"log/slog"
	"strings"

	"siterisk/internal/platform/metrics"
	"siterisk/pkg/apperr"
)

// Submission notification wording per submitter role.
const (
	ActionInitialSave = "Initial Save"
	ActionSDCreated   = "SD Created"
)

// Service creates and serves assessment notifications.
type Service struct {
	store   Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewService(store Store, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{store: store, metrics: m, logger: logger}
}

// Create validates and persists one notification.
func (s *Service) Create(ctx context.Context, n Notification) (int64, error) {
	if n.AssessmentID == 0 || n.StudyID == 0 ||
		n.Action == "" || n.ActionByName == "" || n.ActionByEmail == "" ||
		n.Reason == "" || n.TargetUserType == "" {
		return 0, apperr.New(apperr.CodeBadRequest, "Missing required notification fields")
	}
	id, err := s.store.Insert(ctx, n)
	if err != nil {
		return 0, err
	}
	s.metrics.IncrementNotification(n.Action)
	s.logger.InfoContext(ctx, "created notification",
		slog.Int64("notification_id", id),
		slog.Int64("assessment_id", n.AssessmentID),
		slog.String("target_user_type", n.TargetUserType))
	return id, nil
}

// NotifySubmission fans out an assessment save to the other role: a PI
// save notifies the SD, an SD save notifies the PI, and an unknown
// submitter role falls back to notifying the SD.
func (s *Service) NotifySubmission(ctx context.Context, assessmentID, studyID int64, submitterName, submitterEmail, submitterType string) error {
	n := Notification{
		AssessmentID:  assessmentID,
		StudyID:       studyID,
		ActionByName:  submitterName,
		ActionByEmail: submitterEmail,
	}
	switch strings.ToUpper(submitterType) {
	case TargetPI:
		n.TargetUserType = TargetSD
		n.Action = ActionInitialSave
		n.Reason = "Assessment saved by Principal Investigator"
		n.Comments = strPtr("Assessment data saved successfully by PI")
	case TargetSD:
		n.TargetUserType = TargetPI
		n.Action = ActionSDCreated
		n.Reason = "Assessment created by Study Director"
		n.Comments = strPtr("Study Director has created an assessment that requires your review")
	default:
		n.TargetUserType = TargetSD
		n.Action = ActionInitialSave
		n.Reason = "Assessment saved"
		n.Comments = strPtr("Assessment data saved successfully")
	}
	_, err := s.Create(ctx, n)
	return err
}

// NotifyDecision tells the PI that the Study Director approved or
// rejected the assessment.
func (s *Service) NotifyDecision(ctx context.Context, assessmentID, studyID int64, sdName, sdEmail, action, reason, comments string) error {
	_, err := s.Create(ctx, Notification{
		AssessmentID:   assessmentID,
		StudyID:        studyID,
		Action:         action,
		ActionByName:   sdName,
		ActionByEmail:  sdEmail,
		Reason:         reason,
		Comments:       strPtr(comments),
		TargetUserType: TargetPI,
	})
	return err
}

// List returns the newest feed page for a user type. The unread count
// is computed over the returned page. Anything other than SD is served
// the PI feed.
func (s *Service) List(ctx context.Context, userType, userEmail string) (List, error) {
	normalized := TargetPI
	if strings.ToUpper(userType) == TargetSD {
		normalized = TargetSD
	}
	items, err := s.store.ListForUserType(ctx, normalized)
	if err != nil {
		return List{}, err
	}
	if items == nil {
		items = []Item{}
	}
	unread := 0
	for _, it := range items {
		if !it.Read {
			unread++
		}
	}
	s.logger.DebugContext(ctx, "listed notifications",
		slog.String("user_type", normalized),
		slog.String("user_email", userEmail),
		slog.Int("count", len(items)))
	return List{Notifications: items, UnreadCount: unread}, nil
}

// MarkRead flips one notification to read.
func (s *Service) MarkRead(ctx context.Context, id int64) error {
	return s.store.MarkRead(ctx, id)
}

// MarkAllRead flips every unread notification for a user type and
// returns how many changed.
func (s *Service) MarkAllRead(ctx context.Context, userType string) (int64, error) {
	normalized := strings.ToUpper(userType)
	updated, err := s.store.MarkAllRead(ctx, normalized)
	if err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "marked notifications read",
		slog.String("user_type", normalized), slog.Int64("updated", updated))
	return updated, nil
}

// UnreadCount counts unread notifications for a user type across the
// whole table.
func (s *Service) UnreadCount(ctx context.Context, userType, userEmail string) (UnreadCountResponse, error) {
	normalized := strings.ToUpper(userType)
	count, err := s.store.UnreadCount(ctx, normalized)
	if err != nil {
		return UnreadCountResponse{}, err
	}
	return UnreadCountResponse{UnreadCount: count, UserType: normalized, UserEmail: userEmail}, nil
}

func strPtr(v string) *string { return &v }
