package audit

import (
	"context"
	"fmt"
	"log/slog"

	"siterisk/internal/platform/metrics"
)

// defaultLimit caps trail queries when the caller does not set one.
const defaultLimit = 100

// Service records and queries the field-level change trail.
type Service struct {
	store   Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewService(store Store, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{store: store, metrics: m, logger: logger}
}

// Record persists entries, typically inside an assessment save
// transaction carried by ctx.
func (s *Service) Record(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := s.store.Insert(ctx, entries); err != nil {
		return fmt.Errorf("recording audit entries: %w", err)
	}
	for _, e := range entries {
		s.metrics.IncrementAuditEntry(e.FieldName)
	}
	return nil
}

// Trail returns the assessment's severity and likelihood changes, newest
// first, optionally narrowed by field or risk factor.
func (s *Service) Trail(ctx context.Context, q TrailQuery) ([]TrailRecord, error) {
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	records, err := s.store.Trail(ctx, q)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []TrailRecord{}
	}
	return records, nil
}

func (s *Service) SeverityChanges(ctx context.Context, assessmentID int64, limit int) ([]TrailRecord, error) {
	return s.Trail(ctx, TrailQuery{AssessmentID: assessmentID, FieldName: FieldSeverity, Limit: limit})
}

func (s *Service) RiskScoreChanges(ctx context.Context, assessmentID int64, limit int) ([]TrailRecord, error) {
	return s.Trail(ctx, TrailQuery{AssessmentID: assessmentID, FieldName: FieldRiskScore, Limit: limit})
}

func (s *Service) RiskLevelChanges(ctx context.Context, assessmentID int64, limit int) ([]TrailRecord, error) {
	return s.Trail(ctx, TrailQuery{AssessmentID: assessmentID, FieldName: FieldRiskLevel, Limit: limit})
}

// RiskFactorTrail narrows the trail to a single risk factor.
func (s *Service) RiskFactorTrail(ctx context.Context, assessmentID, riskFactorID int64, limit int) ([]TrailRecord, error) {
	return s.Trail(ctx, TrailQuery{AssessmentID: assessmentID, RiskFactorID: riskFactorID, Limit: limit})
}

// ChangesByUser returns changes a user made within an assessment.
func (s *Service) ChangesByUser(ctx context.Context, assessmentID int64, email string, limit int) ([]TrailRecord, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	records, err := s.store.ChangesByUser(ctx, assessmentID, email, limit)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []TrailRecord{}
	}
	return records, nil
}

// Summary aggregates the assessment's trail.
func (s *Service) Summary(ctx context.Context, assessmentID int64) (Summary, error) {
	summary, err := s.store.Summary(ctx, assessmentID)
	if err != nil {
		return Summary{}, err
	}
	if summary.ChangesByField == nil {
		summary.ChangesByField = []FieldCount{}
	}
	if summary.ChangesByUser == nil {
		summary.ChangesByUser = []UserCount{}
	}
	return summary, nil
}
