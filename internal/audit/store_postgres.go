package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"siterisk/pkg/platform/tx"
)

// PostgresStore persists the trail in assessment_audit_trail.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) tx.Executor {
	return tx.ExecutorFrom(ctx, s.db)
}

func (s *PostgresStore) Insert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	execer := s.execer(ctx)
	const query = `
		INSERT INTO assessment_audit_trail
			(assessment_id, risk_factor_id, field_name, old_value, new_value,
			 changed_by_name, changed_by_email, change_reason, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for _, e := range entries {
		at := e.ChangedAt
		if at.IsZero() {
			at = time.Now().UTC()
		}
		if _, err := execer.ExecContext(ctx, query,
			e.AssessmentID, e.RiskFactorID, e.FieldName, e.OldValue, e.NewValue,
			e.ChangedByName, e.ChangedByEmail, e.ChangeReason, at,
		); err != nil {
			return fmt.Errorf("inserting audit entry: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Trail(ctx context.Context, q TrailQuery) ([]TrailRecord, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT aat.id, aat.assessment_id, aat.risk_factor_id, rf.risk_factor_text,
		       aat.field_name, aat.old_value, aat.new_value,
		       aat.changed_by_name, aat.changed_by_email, aat.change_reason, aat.changed_at
		FROM assessment_audit_trail aat
		LEFT JOIN risk_factors rf ON rf.id = aat.risk_factor_id
		WHERE aat.assessment_id = $1
		  AND aat.field_name IN ('Severity', 'Likelihood')`)
	args := []any{q.AssessmentID}
	if q.FieldName != "" {
		args = append(args, q.FieldName)
		fmt.Fprintf(&sb, " AND aat.field_name = $%d", len(args))
	}
	if q.RiskFactorID != 0 {
		args = append(args, q.RiskFactorID)
		fmt.Fprintf(&sb, " AND aat.risk_factor_id = $%d", len(args))
	}
	sb.WriteString(" ORDER BY aat.changed_at DESC")
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	rows, err := s.execer(ctx).QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit trail: %w", err)
	}
	defer rows.Close()
	return scanTrailRecords(rows)
}

func (s *PostgresStore) ChangesByUser(ctx context.Context, assessmentID int64, email string, limit int) ([]TrailRecord, error) {
	query := `
		SELECT aat.id, aat.assessment_id, aat.risk_factor_id, rf.risk_factor_code,
		       aat.field_name, aat.old_value, aat.new_value,
		       aat.changed_by_name, aat.changed_by_email, aat.change_reason, aat.changed_at
		FROM assessment_audit_trail aat
		LEFT JOIN risk_factors rf ON rf.id = aat.risk_factor_id
		WHERE aat.assessment_id = $1 AND LOWER(aat.changed_by_email) = LOWER($2)
		ORDER BY aat.changed_at DESC`
	args := []any{assessmentID, email}
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying user audit changes: %w", err)
	}
	defer rows.Close()
	return scanTrailRecords(rows)
}

func (s *PostgresStore) Summary(ctx context.Context, assessmentID int64) (Summary, error) {
	summary := Summary{AssessmentID: assessmentID}
	execer := s.execer(ctx)

	err := execer.QueryRowContext(ctx,
		`SELECT COUNT(*), to_char(MAX(changed_at), 'YYYY-MM-DD HH12:MI AM')
		 FROM assessment_audit_trail WHERE assessment_id = $1`,
		assessmentID,
	).Scan(&summary.TotalChanges, &summary.LatestChange)
	if err != nil {
		return Summary{}, fmt.Errorf("querying audit summary totals: %w", err)
	}

	fieldRows, err := execer.QueryContext(ctx,
		`SELECT field_name, COUNT(*)
		 FROM assessment_audit_trail
		 WHERE assessment_id = $1
		 GROUP BY field_name
		 ORDER BY COUNT(*) DESC`,
		assessmentID,
	)
	if err != nil {
		return Summary{}, fmt.Errorf("querying audit summary fields: %w", err)
	}
	defer fieldRows.Close()
	for fieldRows.Next() {
		var fc FieldCount
		if err := fieldRows.Scan(&fc.Field, &fc.Count); err != nil {
			return Summary{}, fmt.Errorf("scanning audit field count: %w", err)
		}
		summary.ChangesByField = append(summary.ChangesByField, fc)
	}
	if err := fieldRows.Err(); err != nil {
		return Summary{}, fmt.Errorf("iterating audit field counts: %w", err)
	}

	userRows, err := execer.QueryContext(ctx,
		`SELECT changed_by_name, changed_by_email, COUNT(*)
		 FROM assessment_audit_trail
		 WHERE assessment_id = $1
		 GROUP BY changed_by_name, changed_by_email
		 ORDER BY COUNT(*) DESC`,
		assessmentID,
	)
	if err != nil {
		return Summary{}, fmt.Errorf("querying audit summary users: %w", err)
	}
	defer userRows.Close()
	for userRows.Next() {
		var uc UserCount
		if err := userRows.Scan(&uc.Name, &uc.Email, &uc.Count); err != nil {
			return Summary{}, fmt.Errorf("scanning audit user count: %w", err)
		}
		summary.ChangesByUser = append(summary.ChangesByUser, uc)
	}
	if err := userRows.Err(); err != nil {
		return Summary{}, fmt.Errorf("iterating audit user counts: %w", err)
	}

	return summary, nil
}

func scanTrailRecords(rows *sql.Rows) ([]TrailRecord, error) {
	var records []TrailRecord
	for rows.Next() {
		var (
			e          Entry
			factorText *string
		)
		if err := rows.Scan(
			&e.ID, &e.AssessmentID, &e.RiskFactorID, &factorText,
			&e.FieldName, &e.OldValue, &e.NewValue,
			&e.ChangedByName, &e.ChangedByEmail, &e.ChangeReason, &e.ChangedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning audit record: %w", err)
		}
		records = append(records, newTrailRecord(e, factorText))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit records: %w", err)
	}
	return records, nil
}
