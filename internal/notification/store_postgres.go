package notification

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"siterisk/pkg/apperr"
	"siterisk/pkg/platform/tx"
)

// PostgresStore persists notifications in assessment_notifications.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) tx.Executor {
	return tx.ExecutorFrom(ctx, s.db)
}

func (s *PostgresStore) Insert(ctx context.Context, n Notification) (int64, error) {
	actionDate := n.ActionDate
	if actionDate.IsZero() {
		actionDate = time.Now()
	}
	var id int64
	err := s.execer(ctx).QueryRowContext(ctx, `
		INSERT INTO assessment_notifications
			(assessment_id, action, action_by_name, action_by_email, reason, comments,
			 target_user_type, study_id, action_date, read_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		n.AssessmentID, n.Action, n.ActionByName, n.ActionByEmail, n.Reason, n.Comments,
		n.TargetUserType, n.StudyID, actionDate, n.Read,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting notification: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) ListForUserType(ctx context.Context, userType string) ([]Item, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT n.id, n.action, n.action_by_name, n.action_by_email, n.reason, n.comments,
		       to_char(n.action_date, 'YYYY-MM-DD"T"HH24:MI:SS'), n.read_status,
		       s.site, s.sponsor, s.protocol, s.studytype, s.studytypetext, s.description,
		       s.status, s.phase, a.monitoring_schedule, s.siteid, s.studyid, s.active,
		       s.principal_investigator, s.principal_investigator_email,
		       s.site_director, s.site_director_email, s.sponsor_code,
		       a.id,
		       to_char(a.assessment_date, 'YYYY-MM-DD'),
		       to_char(a.next_review_date, 'YYYY-MM-DD'),
		       a.status, a.conducted_by_name, a.conducted_by_email,
		       a.updated_by_name, a.updated_by_email,
		       to_char(a.created_at, 'YYYY-MM-DD"T"HH24:MI:SS'),
		       to_char(a.updated_at, 'YYYY-MM-DD"T"HH24:MI:SS')
		FROM assessment_notifications n
		JOIN site_studies s ON n.study_id = s.id
		LEFT JOIN assessments a ON s.id = a.study_id
		WHERE n.target_user_type = $1 AND s.status != 'Inactive'
		ORDER BY n.action_date DESC
		LIMIT $2`,
		userType, listLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying notifications for %s: %w", userType, err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(
			&it.ID, &it.Action, &it.ActionByName, &it.ActionByEmail, &it.Reason, &it.Comments,
			&it.ActionDate, &it.Read,
			&it.StudyInfo.Site, &it.StudyInfo.Sponsor, &it.StudyInfo.Protocol,
			&it.StudyInfo.StudyType, &it.StudyInfo.StudyTypeText, &it.StudyInfo.StudyDescription,
			&it.StudyInfo.StudyStatus, &it.StudyInfo.Phase, &it.StudyInfo.MonitoringSchedule,
			&it.StudyInfo.SiteID, &it.StudyInfo.StudyID, &it.StudyInfo.Active,
			&it.StudyInfo.PrincipalInvestigator, &it.StudyInfo.PrincipalInvestigatorEmail,
			&it.StudyInfo.SiteDirector, &it.StudyInfo.SiteDirectorEmail, &it.StudyInfo.SponsorCode,
			&it.AssessmentInfo.AssessmentID,
			&it.AssessmentInfo.AssessmentDate, &it.AssessmentInfo.NextReviewDate,
			&it.AssessmentInfo.Status, &it.AssessmentInfo.ConductedByName, &it.AssessmentInfo.ConductedByEmail,
			&it.AssessmentInfo.UpdatedByName, &it.AssessmentInfo.UpdatedByEmail,
			&it.AssessmentInfo.CreatedAt, &it.AssessmentInfo.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		it.AssessmentID = it.AssessmentInfo.AssessmentID
		it.PIName = it.StudyInfo.PrincipalInvestigator
		it.PIEmail = it.StudyInfo.PrincipalInvestigatorEmail
		it.SDName = it.StudyInfo.SiteDirector
		it.SDEmail = it.StudyInfo.SiteDirectorEmail
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notifications: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) MarkRead(ctx context.Context, id int64) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE assessment_notifications
		SET read_status = true, updated_at = $1
		WHERE id = $2`,
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("marking notification %d read: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("marking notification %d read: %w", id, err)
	}
	if affected == 0 {
		return apperr.New(apperr.CodeNotFound, "Notification not found")
	}
	return nil
}

func (s *PostgresStore) MarkAllRead(ctx context.Context, userType string) (int64, error) {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE assessment_notifications
		SET read_status = true, updated_at = $1
		WHERE target_user_type = $2 AND read_status = false`,
		time.Now(), userType,
	)
	if err != nil {
		return 0, fmt.Errorf("marking notifications read for %s: %w", userType, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("marking notifications read for %s: %w", userType, err)
	}
	return affected, nil
}

func (s *PostgresStore) UnreadCount(ctx context.Context, userType string) (int, error) {
	var count int
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM assessment_notifications
		WHERE target_user_type = $1 AND read_status = false`,
		userType,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications for %s: %w", userType, err)
	}
	return count, nil
}
