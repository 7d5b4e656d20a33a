package assessment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"siterisk/pkg/apperr"
	"siterisk/pkg/platform/tx"
)

const isoTimestamp = `YYYY-MM-DD"T"HH24:MI:SS`

const assessmentColumns = `
	a.id, a.study_id, a.assessment_id, a.conducted_by_name, a.conducted_by_email,
	to_char(a.assessment_date, 'YYYY-MM-DD'), to_char(a.next_review_date, 'YYYY-MM-DD'),
	a.monitoring_schedule, a.status, a.overall_risk_score, a.overall_risk_level,
	a.comments, a.updated_by_name, a.updated_by_email,
	to_char(a.created_at, '` + isoTimestamp + `'), to_char(a.updated_at, '` + isoTimestamp + `')`

// PostgresStore persists assessments and their child tables.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) tx.Executor {
	return tx.ExecutorFrom(ctx, s.db)
}

func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*Assessment, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT`+assessmentColumns+` FROM assessments a WHERE a.id = $1`, id)
	a, err := scanAssessment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Newf(apperr.CodeNotFound, "Assessment with ID %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying assessment %d: %w", id, err)
	}
	return a, nil
}

func (s *PostgresStore) FindByStudy(ctx context.Context, studyID int64) (*Assessment, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT`+assessmentColumns+` FROM assessments a WHERE a.study_id = $1`, studyID)
	a, err := scanAssessment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying assessment for study %d: %w", studyID, err)
	}
	return a, nil
}

func (s *PostgresStore) LatestIDForStudy(ctx context.Context, studyID int64) (int64, error) {
	var id int64
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id FROM assessments
		WHERE study_id = $1
		ORDER BY created_at DESC
		LIMIT 1`,
		studyID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperr.Newf(apperr.CodeNotFound, "No assessment found for study ID %d", studyID)
	}
	if err != nil {
		return 0, fmt.Errorf("querying latest assessment for study %d: %w", studyID, err)
	}
	return id, nil
}

func (s *PostgresStore) Insert(ctx context.Context, a Assessment) (int64, error) {
	var id int64
	err := s.execer(ctx).QueryRowContext(ctx, `
		INSERT INTO assessments
			(study_id, assessment_id, conducted_by_name, conducted_by_email, assessment_date,
			 next_review_date, monitoring_schedule, status, overall_risk_score,
			 overall_risk_level, comments, updated_by_name, updated_by_email)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		a.StudyID, a.Code, a.ConductedByName, a.ConductedByEmail, a.AssessmentDate,
		a.NextReviewDate, a.MonitoringSchedule, a.Status, a.OverallRiskScore,
		a.OverallRiskLevel, a.Comments, a.UpdatedByName, a.UpdatedByEmail,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting assessment for study %d: %w", a.StudyID, err)
	}
	return id, nil
}

func (s *PostgresStore) Update(ctx context.Context, a Assessment) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE assessments
		SET assessment_date = $1,
		    next_review_date = $2,
		    monitoring_schedule = $3,
		    overall_risk_score = $4,
		    overall_risk_level = $5,
		    comments = $6,
		    status = $7,
		    updated_by_name = $8,
		    updated_by_email = $9,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $10`,
		a.AssessmentDate, a.NextReviewDate, a.MonitoringSchedule, a.OverallRiskScore,
		a.OverallRiskLevel, a.Comments, a.Status, a.UpdatedByName, a.UpdatedByEmail, a.ID,
	)
	if err != nil {
		return fmt.Errorf("updating assessment %d: %w", a.ID, err)
	}
	return nil
}

func (s *PostgresStore) UpdateDraft(ctx context.Context, a Assessment) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE assessments
		SET assessment_date = COALESCE($1, assessment_date),
		    next_review_date = $2,
		    monitoring_schedule = $3,
		    overall_risk_score = $4,
		    overall_risk_level = $5,
		    comments = $6,
		    status = $7,
		    updated_by_name = $8,
		    updated_by_email = $9,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $10`,
		a.AssessmentDate, a.NextReviewDate, a.MonitoringSchedule, a.OverallRiskScore,
		a.OverallRiskLevel, a.Comments, a.Status, a.UpdatedByName, a.UpdatedByEmail, a.ID,
	)
	if err != nil {
		return fmt.Errorf("updating draft assessment %d: %w", a.ID, err)
	}
	return nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id int64, status string) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE assessments
		SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("updating assessment %d status: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) UpdateDecision(ctx context.Context, id int64, status, byName, byEmail string) (DecisionAssessment, error) {
	var d DecisionAssessment
	err := s.execer(ctx).QueryRowContext(ctx, `
		UPDATE assessments
		SET status = $1,
		    updated_by_name = $2,
		    updated_by_email = $3,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $4
		RETURNING id, study_id, status, updated_by_name, updated_by_email,
		          to_char(updated_at, '`+isoTimestamp+`')`,
		status, byName, byEmail, id,
	).Scan(&d.ID, &d.StudyID, &d.Status, &d.UpdatedByName, &d.UpdatedByEmail, &d.UpdatedAt)
	if err != nil {
		return DecisionAssessment{}, fmt.Errorf("recording decision on assessment %d: %w", id, err)
	}
	return d, nil
}

func (s *PostgresStore) GetRiskScore(ctx context.Context, assessmentID, riskFactorID int64) (*RiskScore, error) {
	var rs RiskScore
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, assessment_id, risk_factor_id, severity, likelihood, risk_score,
		       risk_level, mitigation_actions, custom_notes
		FROM assessment_risks
		WHERE assessment_id = $1 AND risk_factor_id = $2`,
		assessmentID, riskFactorID,
	).Scan(&rs.ID, &rs.AssessmentID, &rs.RiskFactorID, &rs.Severity, &rs.Likelihood,
		&rs.RiskScore, &rs.RiskLevel, &rs.MitigationActions, &rs.CustomNotes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying risk score: %w", err)
	}
	return &rs, nil
}

func (s *PostgresStore) InsertRiskScore(ctx context.Context, assessmentID int64, in RiskScoreInput) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO assessment_risks
			(assessment_id, risk_factor_id, severity, likelihood, risk_score,
			 risk_level, mitigation_actions, custom_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		assessmentID, in.RiskFactorID, in.Severity, in.Likelihood, in.RiskScore,
		in.RiskLevel, in.MitigationActions, in.CustomNotes,
	)
	if err != nil {
		return fmt.Errorf("inserting risk score: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateRiskScore(ctx context.Context, assessmentID int64, in RiskScoreInput) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE assessment_risks
		SET severity = $1, likelihood = $2, risk_score = $3,
		    risk_level = $4, mitigation_actions = $5, custom_notes = $6
		WHERE assessment_id = $7 AND risk_factor_id = $8`,
		in.Severity, in.Likelihood, in.RiskScore, in.RiskLevel,
		in.MitigationActions, in.CustomNotes, assessmentID, in.RiskFactorID,
	)
	if err != nil {
		return fmt.Errorf("updating risk score: %w", err)
	}
	return nil
}

func (s *PostgresStore) RiskScores(ctx context.Context, assessmentID int64) ([]RiskScore, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, assessment_id, risk_factor_id, severity, likelihood, risk_score,
		       risk_level, mitigation_actions, custom_notes
		FROM assessment_risks
		WHERE assessment_id = $1
		ORDER BY risk_factor_id`,
		assessmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying risk scores: %w", err)
	}
	defer rows.Close()

	var scores []RiskScore
	for rows.Next() {
		var rs RiskScore
		if err := rows.Scan(&rs.ID, &rs.AssessmentID, &rs.RiskFactorID, &rs.Severity,
			&rs.Likelihood, &rs.RiskScore, &rs.RiskLevel, &rs.MitigationActions, &rs.CustomNotes); err != nil {
			return nil, fmt.Errorf("scanning risk score: %w", err)
		}
		scores = append(scores, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating risk scores: %w", err)
	}
	return scores, nil
}

func (s *PostgresStore) DeletePlans(ctx context.Context, assessmentID int64) error {
	return s.deleteByAssessment(ctx, "assessment_risk_mitigation_plans", assessmentID)
}

func (s *PostgresStore) InsertPlan(ctx context.Context, assessmentID int64, in PlanInput) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO assessment_risk_mitigation_plans
			(assessment_id, risk_item, responsible_person, mitigation_strategy,
			 target_date, status, priority_level)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		assessmentID, in.RiskItem, in.ResponsiblePerson, in.MitigationStrategy,
		in.TargetDate, in.Status, in.PriorityLevel,
	)
	if err != nil {
		return fmt.Errorf("inserting mitigation plan: %w", err)
	}
	return nil
}

func (s *PostgresStore) Plans(ctx context.Context, assessmentID int64) ([]MitigationPlan, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, assessment_id, risk_item, responsible_person, mitigation_strategy,
		       to_char(target_date, 'YYYY-MM-DD'), status, priority_level
		FROM assessment_risk_mitigation_plans
		WHERE assessment_id = $1
		ORDER BY id`,
		assessmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying mitigation plans: %w", err)
	}
	defer rows.Close()

	var plans []MitigationPlan
	for rows.Next() {
		var p MitigationPlan
		if err := rows.Scan(&p.ID, &p.AssessmentID, &p.RiskItem, &p.ResponsiblePerson,
			&p.MitigationStrategy, &p.TargetDate, &p.Status, &p.PriorityLevel); err != nil {
			return nil, fmt.Errorf("scanning mitigation plan: %w", err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating mitigation plans: %w", err)
	}
	return plans, nil
}

func (s *PostgresStore) DeleteDashboard(ctx context.Context, assessmentID int64) error {
	return s.deleteByAssessment(ctx, "assessment_risk_dashboard", assessmentID)
}

func (s *PostgresStore) InsertDashboard(ctx context.Context, assessmentID int64, in DashboardInput) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO assessment_risk_dashboard
			(assessment_id, total_risks, high_risk_count, medium_risk_count,
			 low_risk_count, total_score, overall_risk_level, risk_level_criteria)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		assessmentID, in.TotalRisks, in.HighRiskCount, in.MediumRiskCount,
		in.LowRiskCount, in.TotalScore, in.OverallRiskLevel, in.RiskLevelCriteria,
	)
	if err != nil {
		return fmt.Errorf("inserting risk dashboard: %w", err)
	}
	return nil
}

func (s *PostgresStore) Dashboard(ctx context.Context, assessmentID int64) (*Dashboard, error) {
	var d Dashboard
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, assessment_id, total_risks, high_risk_count, medium_risk_count,
		       low_risk_count, total_score, overall_risk_level, risk_level_criteria
		FROM assessment_risk_dashboard
		WHERE assessment_id = $1`,
		assessmentID,
	).Scan(&d.ID, &d.AssessmentID, &d.TotalRisks, &d.HighRiskCount, &d.MediumRiskCount,
		&d.LowRiskCount, &d.TotalScore, &d.OverallRiskLevel, &d.RiskLevelCriteria)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying risk dashboard: %w", err)
	}
	return &d, nil
}

func (s *PostgresStore) DeleteSummaryComments(ctx context.Context, assessmentID int64) error {
	return s.deleteByAssessment(ctx, "assessment_summary_comments", assessmentID)
}

func (s *PostgresStore) InsertSummaryComment(ctx context.Context, assessmentID int64, in SummaryCommentInput, byName, byEmail string) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO assessment_summary_comments
			(assessment_id, comment_type, comment_text, created_by_name, created_by_email)
		VALUES ($1, $2, $3, $4, $5)`,
		assessmentID, in.CommentType, in.CommentText, byName, byEmail,
	)
	if err != nil {
		return fmt.Errorf("inserting summary comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) SummaryComments(ctx context.Context, assessmentID int64) ([]SummaryComment, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, assessment_id, comment_type, comment_text, created_by_name,
		       created_by_email, to_char(created_at, '`+isoTimestamp+`')
		FROM assessment_summary_comments
		WHERE assessment_id = $1
		ORDER BY created_at DESC`,
		assessmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying summary comments: %w", err)
	}
	defer rows.Close()

	var comments []SummaryComment
	for rows.Next() {
		var c SummaryComment
		if err := rows.Scan(&c.ID, &c.AssessmentID, &c.CommentType, &c.CommentText,
			&c.CreatedByName, &c.CreatedByEmail, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning summary comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating summary comments: %w", err)
	}
	return comments, nil
}

func (s *PostgresStore) DeleteSectionComments(ctx context.Context, assessmentID int64) error {
	return s.deleteByAssessment(ctx, "section_comments", assessmentID)
}

func (s *PostgresStore) InsertSectionComment(ctx context.Context, assessmentID int64, in SectionCommentInput) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO section_comments
			(assessment_id, section_key, section_title, comment_text)
		VALUES ($1, $2, $3, $4)`,
		assessmentID, in.SectionKey, in.SectionTitle, in.CommentText,
	)
	if err != nil {
		return fmt.Errorf("inserting section comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) SectionComments(ctx context.Context, assessmentID int64) ([]SectionComment, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, assessment_id, section_key, section_title, comment_text,
		       to_char(created_at, '`+isoTimestamp+`')
		FROM section_comments
		WHERE assessment_id = $1
		ORDER BY id`,
		assessmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying section comments: %w", err)
	}
	defer rows.Close()

	var comments []SectionComment
	for rows.Next() {
		var c SectionComment
		if err := rows.Scan(&c.ID, &c.AssessmentID, &c.SectionKey, &c.SectionTitle,
			&c.CommentText, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning section comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating section comments: %w", err)
	}
	return comments, nil
}

func (s *PostgresStore) DeleteApprovals(ctx context.Context, assessmentID int64) error {
	return s.deleteByAssessment(ctx, "assessment_approvals", assessmentID)
}

func (s *PostgresStore) InsertApproval(ctx context.Context, r ApprovalRecord) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO assessment_approvals
			(assessment_id, action, action_by_name, action_by_email, reason, comments, action_date)
		VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP)`,
		r.AssessmentID, r.Action, r.ActionByName, r.ActionByEmail, r.Reason, r.Comments,
	)
	if err != nil {
		return fmt.Errorf("inserting approval record: %w", err)
	}
	return nil
}

func (s *PostgresStore) LatestApproval(ctx context.Context, assessmentID int64) (*ApprovalRecord, error) {
	return s.latestApproval(ctx, assessmentID, "")
}

func (s *PostgresStore) LatestApprovalByAction(ctx context.Context, assessmentID int64, action string) (*ApprovalRecord, error) {
	return s.latestApproval(ctx, assessmentID, action)
}

func (s *PostgresStore) latestApproval(ctx context.Context, assessmentID int64, action string) (*ApprovalRecord, error) {
	query := `
		SELECT id, assessment_id, action, action_by_name, action_by_email,
		       reason, comments, to_char(action_date, '` + isoTimestamp + `')
		FROM assessment_approvals
		WHERE assessment_id = $1`
	args := []any{assessmentID}
	if action != "" {
		args = append(args, action)
		query += ` AND action = $2`
	}
	query += ` ORDER BY action_date DESC LIMIT 1`

	var r ApprovalRecord
	err := s.execer(ctx).QueryRowContext(ctx, query, args...).Scan(
		&r.ID, &r.AssessmentID, &r.Action, &r.ActionByName, &r.ActionByEmail,
		&r.Reason, &r.Comments, &r.ActionDate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying approval record: %w", err)
	}
	return &r, nil
}

func (s *PostgresStore) Sections(ctx context.Context) ([]Section, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, section_key, section_name, description, display_order,
		       to_char(created_at, '`+isoTimestamp+`')
		FROM assessment_sections
		ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying assessment sections: %w", err)
	}
	defer rows.Close()

	var sections []Section
	for rows.Next() {
		var sec Section
		if err := rows.Scan(&sec.ID, &sec.SectionKey, &sec.SectionName, &sec.Description,
			&sec.DisplayOrder, &sec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning assessment section: %w", err)
		}
		sections = append(sections, sec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assessment sections: %w", err)
	}
	return sections, nil
}

func (s *PostgresStore) ActiveRiskFactors(ctx context.Context) ([]RiskFactor, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, assessment_section_id, risk_factor_code, risk_factor_text,
		       display_order, is_active, to_char(created_at, '`+isoTimestamp+`')
		FROM risk_factors
		WHERE is_active = true
		ORDER BY assessment_section_id, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying risk factors: %w", err)
	}
	defer rows.Close()

	var factors []RiskFactor
	for rows.Next() {
		var f RiskFactor
		if err := rows.Scan(&f.ID, &f.AssessmentSectionID, &f.RiskFactorCode, &f.RiskFactorText,
			&f.DisplayOrder, &f.IsActive, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning risk factor: %w", err)
		}
		factors = append(factors, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating risk factors: %w", err)
	}
	return factors, nil
}

func (s *PostgresStore) InvalidRiskFactorIDs(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id FROM risk_factors
		WHERE id = ANY($1) AND is_active = true`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("validating risk factor ids: %w", err)
	}
	defer rows.Close()

	existing := make(map[int64]bool, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning risk factor id: %w", err)
		}
		existing[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating risk factor ids: %w", err)
	}

	var invalid []int64
	for _, id := range ids {
		if !existing[id] {
			invalid = append(invalid, id)
		}
	}
	return invalid, nil
}

func (s *PostgresStore) LastCodeLike(ctx context.Context, pattern string) (*string, error) {
	var code *string
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT assessment_id FROM assessments
		WHERE assessment_id LIKE $1
		ORDER BY assessment_id DESC
		LIMIT 1`,
		pattern,
	).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying last assessment code: %w", err)
	}
	return code, nil
}

func (s *PostgresStore) AssessedRows(ctx context.Context, email, userType string) ([]AssessedStudy, error) {
	query := `
		SELECT s.id, s.studyid, s.site, s.sponsor, s.sponsor_code, s.protocol,
		       s.studytype, s.studytypetext, s.status, s.description, s.phase, s.active,
		       s.principal_investigator, s.principal_investigator_email,
		       s.site_director, s.site_director_email,
		       a.id, a.study_id,
		       to_char(a.assessment_date, 'YYYY-MM-DD'),
		       to_char(a.next_review_date, 'YYYY-MM-DD'),
		       a.monitoring_schedule, a.overall_risk_score, a.overall_risk_level,
		       a.status, a.conducted_by_name, a.conducted_by_email,
		       a.updated_by_name, a.updated_by_email, a.comments,
		       to_char(a.created_at, '` + isoTimestamp + `'),
		       to_char(a.updated_at, '` + isoTimestamp + `'),
		       s.crcname
		FROM site_studies s
		INNER JOIN assessments a ON s.id = a.study_id`
	var args []any
	switch userType {
	case "PI":
		args = append(args, email)
		query += ` WHERE LOWER(s.principal_investigator_email) = LOWER($1)`
	case "SD":
		args = append(args, email)
		query += ` WHERE LOWER(s.site_director_email) = LOWER($1)`
	}
	query += ` ORDER BY s.id DESC, a.updated_at DESC`

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying assessed studies: %w", err)
	}
	defer rows.Close()

	var studies []AssessedStudy
	for rows.Next() {
		var row AssessedStudy
		if err := rows.Scan(
			&row.ID, &row.StudyID, &row.Site, &row.Sponsor, &row.SponsorCode, &row.Protocol,
			&row.StudyType, &row.StudyTypeText, &row.Status, &row.Description, &row.Phase, &row.Active,
			&row.PrincipalInvestigator, &row.PrincipalInvestigatorEmail,
			&row.SiteDirector, &row.SiteDirectorEmail,
			&row.AssessmentData.ID, &row.AssessmentData.StudyID,
			&row.AssessmentData.AssessmentDate, &row.AssessmentData.NextReviewDate,
			&row.AssessmentData.MonitoringSchedule, &row.AssessmentData.OverallRiskScore,
			&row.AssessmentData.OverallRiskLevel, &row.AssessmentData.Status,
			&row.AssessmentData.ConductedByName, &row.AssessmentData.ConductedByEmail,
			&row.AssessmentData.ReviewedByName, &row.AssessmentData.ReviewedByEmail,
			&row.AssessmentData.Comments,
			&row.AssessmentData.CreatedAt, &row.AssessmentData.UpdatedAt,
			&row.CRCName,
		); err != nil {
			return nil, fmt.Errorf("scanning assessed study: %w", err)
		}
		row.AssessmentData.CRCName = row.CRCName
		row.MonitoringSchedule = row.AssessmentData.MonitoringSchedule
		row.AssessmentStatus = row.AssessmentData.Status
		studies = append(studies, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assessed studies: %w", err)
	}
	return studies, nil
}

func (s *PostgresStore) deleteByAssessment(ctx context.Context, table string, assessmentID int64) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM `+table+` WHERE assessment_id = $1`, assessmentID)
	if err != nil {
		return fmt.Errorf("deleting from %s: %w", table, err)
	}
	return nil
}

func scanAssessment(row *sql.Row) (*Assessment, error) {
	var a Assessment
	err := row.Scan(
		&a.ID, &a.StudyID, &a.Code, &a.ConductedByName, &a.ConductedByEmail,
		&a.AssessmentDate, &a.NextReviewDate, &a.MonitoringSchedule, &a.Status,
		&a.OverallRiskScore, &a.OverallRiskLevel, &a.Comments,
		&a.UpdatedByName, &a.UpdatedByEmail, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
