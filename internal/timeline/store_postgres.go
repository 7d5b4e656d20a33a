package timeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"siterisk/pkg/platform/tx"
)

// PostgresStore persists the timeline in assessment_timeline.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) tx.Executor {
	return tx.ExecutorFrom(ctx, s.db)
}

func (s *PostgresStore) Insert(ctx context.Context, e Entry) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO assessment_timeline
			(study_id, assessment_id, schedule_type, assessed_date, assessed_by_name,
			 assessed_by_email, risk_score, risk_level, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, CURRENT_TIMESTAMP)`,
		e.StudyID, e.AssessmentID, e.ScheduleType, e.AssessedDate, e.AssessedByName,
		e.AssessedByEmail, e.RiskScore, e.RiskLevel, e.Notes,
	)
	if err != nil {
		return fmt.Errorf("inserting timeline entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ForStudy(ctx context.Context, studyID int64, limit int) ([]Entry, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT at.id, at.study_id, at.assessment_id, at.schedule_type,
		       to_char(at.assessed_date, 'YYYY-MM-DD'),
		       at.assessed_by_name, at.assessed_by_email,
		       at.risk_score, at.risk_level, at.notes, at.created_at
		FROM assessment_timeline at
		WHERE at.study_id = $1
		ORDER BY at.created_at DESC
		LIMIT $2`,
		studyID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying timeline for study %d: %w", studyID, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.StudyID, &e.AssessmentID, &e.ScheduleType,
			&e.AssessedDate, &e.AssessedByName, &e.AssessedByEmail,
			&e.RiskScore, &e.RiskLevel, &e.Notes, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning timeline entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating timeline entries: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) LatestSummaryComment(ctx context.Context, assessmentID int64) (*string, error) {
	var comment *string
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT comment_text
		FROM assessment_summary_comments
		WHERE assessment_id = $1
		ORDER BY created_at DESC
		LIMIT 1`,
		assessmentID,
	).Scan(&comment)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest summary comment: %w", err)
	}
	return comment, nil
}
