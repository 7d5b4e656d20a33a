package study

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"siterisk/pkg/apperr"
	"siterisk/pkg/platform/tx"
)

// PostgresStore implements Store on top of the site_studies table and its
// assessment joins.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) tx.Executor {
	return tx.ExecutorFrom(ctx, s.db)
}

const studyColumns = `
	s.id, s.siteid, s.studyid, s.site, s.sponsor, s.sponsor_code, s.protocol,
	s.studytype, s.studytypetext, s.status, s.description, s.phase, s.active,
	s.principal_investigator, s.principal_investigator_email,
	s.site_director, s.site_director_email, s.crcname`

func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*Study, error) {
	query := `SELECT` + studyColumns + `
		FROM site_studies s
		WHERE s.id = $1`
	st, err := scanStudy(s.execer(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperr.Newf(apperr.CodeNotFound, "study with ID %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get study %d: %w", id, err)
	}
	return st, nil
}

func (s *PostgresStore) GetActiveByID(ctx context.Context, id int64) (*Study, error) {
	query := `SELECT` + studyColumns + `
		FROM site_studies s
		WHERE s.id = $1 AND s.status != 'Inactive'`
	st, err := scanStudy(s.execer(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperr.Newf(apperr.CodeNotFound, "study with ID %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get active study %d: %w", id, err)
	}
	return st, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Study, error) {
	query := `SELECT` + studyColumns + `
		FROM site_studies s
		WHERE s.status != 'Inactive'
		ORDER BY s.id DESC`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list studies: %w", err)
	}
	defer rows.Close()
	return scanStudies(rows, false)
}

func (s *PostgresStore) ListByUser(ctx context.Context, email, userType string, filter Filter) ([]Study, error) {
	where := []string{contactClause(userType, 1), "s.status != 'Inactive'"}
	args := []any{strings.ToLower(email)}
	if v := filter.Site; v != "" && !strings.EqualFold(v, "all") {
		args = append(args, v)
		where = append(where, fmt.Sprintf("s.site = $%d", len(args)))
	}
	if v := filter.Sponsor; v != "" && !strings.EqualFold(v, "all") {
		args = append(args, v)
		where = append(where, fmt.Sprintf("s.sponsor = $%d", len(args)))
	}
	if v := filter.Protocol; v != "" && !strings.EqualFold(v, "all") {
		args = append(args, v)
		where = append(where, fmt.Sprintf("s.protocol = $%d", len(args)))
	}

	query := `SELECT` + studyColumns + `,
		a.monitoring_schedule, a.status AS assessment_status
		FROM site_studies s
		LEFT JOIN assessments a ON s.id = a.study_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY s.id DESC`
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list studies by user: %w", err)
	}
	defer rows.Close()
	return scanStudies(rows, true)
}

func (s *PostgresStore) DropdownValues(ctx context.Context, email, userType string) (DropdownValues, error) {
	query := `SELECT DISTINCT s.site, s.sponsor, s.protocol
		FROM site_studies s
		WHERE ` + contactClause(userType, 1) + ` AND s.status != 'Inactive'`
	rows, err := s.execer(ctx).QueryContext(ctx, query, strings.ToLower(email))
	if err != nil {
		return DropdownValues{}, fmt.Errorf("dropdown values: %w", err)
	}
	defer rows.Close()

	siteSet := map[string]struct{}{}
	sponsorSet := map[string]struct{}{}
	protocolSet := map[string]struct{}{}
	for rows.Next() {
		var site, sponsor, protocol sql.NullString
		if err := rows.Scan(&site, &sponsor, &protocol); err != nil {
			return DropdownValues{}, fmt.Errorf("scan dropdown row: %w", err)
		}
		if site.Valid && site.String != "" {
			siteSet[site.String] = struct{}{}
		}
		if sponsor.Valid && sponsor.String != "" {
			sponsorSet[sponsor.String] = struct{}{}
		}
		if protocol.Valid && protocol.String != "" {
			protocolSet[protocol.String] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return DropdownValues{}, fmt.Errorf("iterate dropdown rows: %w", err)
	}
	return DropdownValues{
		Sites:     sortedKeys(siteSet),
		Sponsors:  sortedKeys(sponsorSet),
		Protocols: sortedKeys(protocolSet),
	}, nil
}

func (s *PostgresStore) AssessmentsWithContacts(ctx context.Context, email, userType string) ([]AssessmentRow, error) {
	query := `SELECT
			a.id, s.site, s.sponsor, s.protocol, s.studytypetext, s.description,
			s.status, s.phase, a.monitoring_schedule,
			to_char(a.assessment_date, 'YYYY-MM-DD'),
			CASE WHEN a.overall_risk_score IS NOT NULL THEN 'Yes' ELSE 'No' END,
			COALESCE(a.overall_risk_score, 0),
			COALESCE(a.overall_risk_level, 'Not Assessed'),
			COALESCE(a.status, 'Not Started'),
			COALESCE(a.comments, 'No comments available.'),
			to_char(a.updated_at, 'YYYY-MM-DD"T"HH24:MI:SS'),
			COALESCE(a.conducted_by_name, 'Not specified'),
			COALESCE(a.updated_by_name, 'Not specified'),
			CASE WHEN a.status = 'Approved' THEN a.updated_by_name ELSE '-' END,
			CASE WHEN a.status = 'Rejected' THEN a.updated_by_name ELSE '-' END
		FROM assessments a
		INNER JOIN site_studies s ON a.study_id = s.id
		WHERE s.status != 'Inactive'`
	args := []any{}
	if userType != "" {
		args = append(args, strings.ToLower(email))
		query += " AND " + contactClause(userType, 1)
	}
	query += " ORDER BY a.updated_at DESC"

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("assessments with contacts: %w", err)
	}
	defer rows.Close()

	var out []AssessmentRow
	for rows.Next() {
		var r AssessmentRow
		if err := rows.Scan(
			&r.ID, &r.Site, &r.Sponsor, &r.Protocol, &r.StudyType, &r.Description,
			&r.StudyStatus, &r.Phase, &r.MonitoringSchedule, &r.AssessmentDate,
			&r.Scored, &r.TotalRiskScore, &r.OverallRisk, &r.AssessmentStatus,
			&r.Reason, &r.LastUpdated, &r.ConductedBy, &r.ReviewedBy,
			&r.ApprovedBy, &r.RejectedBy,
		); err != nil {
			return nil, fmt.Errorf("scan assessment row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assessment rows: %w", err)
	}
	return out, nil
}

const riskRowColumns = `
	s.id, s.site, s.sponsor, s.protocol, s.studytype, s.studytypetext,
	s.description, s.status, s.phase,
	COALESCE(a.overall_risk_score, 0), a.id, a.monitoring_schedule,
	s.siteid, s.studyid, s.active,
	s.principal_investigator, s.principal_investigator_email,
	s.site_director, s.site_director_email,
	a.status, s.sponsor_code, to_char(a.created_at, 'YYYY-MM-DD'), s.crcname`

func (s *PostgresStore) TopRiskRows(ctx context.Context) ([]RiskTableRow, error) {
	query := `SELECT` + riskRowColumns + `
		FROM site_studies s
		LEFT JOIN assessments a ON s.id = a.study_id
		WHERE a.overall_risk_score IS NOT NULL AND s.status != 'Inactive'
		ORDER BY a.overall_risk_score DESC
		LIMIT 10`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("top risk rows: %w", err)
	}
	defer rows.Close()
	return scanRiskRows(rows)
}

func (s *PostgresStore) HighestRiskRows(ctx context.Context, filter Filter) ([]RiskTableRow, error) {
	query := `SELECT` + riskRowColumns + `
		FROM site_studies s
		INNER JOIN assessments a ON s.id = a.study_id
		WHERE a.overall_risk_score IS NOT NULL AND s.status != 'Inactive'`
	args := []any{}
	if filter.Site != "" {
		args = append(args, filter.Site)
		query += fmt.Sprintf(" AND LOWER(s.site) = LOWER($%d)", len(args))
	}
	if filter.Sponsor != "" {
		args = append(args, filter.Sponsor)
		query += fmt.Sprintf(" AND LOWER(s.sponsor) = LOWER($%d)", len(args))
	}
	if filter.Protocol != "" {
		args = append(args, filter.Protocol)
		query += fmt.Sprintf(" AND LOWER(s.protocol) = LOWER($%d)", len(args))
	}
	query += " ORDER BY a.overall_risk_score DESC LIMIT 10"

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("highest risk rows: %w", err)
	}
	defer rows.Close()
	return scanRiskRows(rows)
}

func (s *PostgresStore) AssessedRows(ctx context.Context, filter Filter, limit, offset int) ([]RiskTableRow, int, error) {
	base := ` FROM site_studies s
		INNER JOIN assessments a ON s.id = a.study_id
		WHERE a.overall_risk_score IS NOT NULL AND s.status != 'Inactive'`
	args := []any{}
	if filter.Site != "" {
		args = append(args, filter.Site)
		base += fmt.Sprintf(" AND s.site = $%d", len(args))
	}
	if filter.Sponsor != "" {
		args = append(args, filter.Sponsor)
		base += fmt.Sprintf(" AND s.sponsor = $%d", len(args))
	}
	if filter.Protocol != "" {
		args = append(args, filter.Protocol)
		base += fmt.Sprintf(" AND s.protocol = $%d", len(args))
	}

	var total int
	if err := s.execer(ctx).QueryRowContext(ctx, "SELECT COUNT(*)"+base, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count assessed rows: %w", err)
	}

	args = append(args, limit, offset)
	query := "SELECT" + riskRowColumns + base +
		fmt.Sprintf(" ORDER BY a.overall_risk_score DESC, a.created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("assessed rows: %w", err)
	}
	defer rows.Close()

	out, err := scanRiskRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *PostgresStore) FilterValues(ctx context.Context) (DropdownValues, error) {
	var out DropdownValues
	for _, col := range []struct {
		column string
		dest   *[]string
	}{
		{"site", &out.Sites},
		{"sponsor", &out.Sponsors},
		{"protocol", &out.Protocols},
	} {
		query := fmt.Sprintf(`SELECT DISTINCT s.%[1]s
			FROM site_studies s
			INNER JOIN assessments a ON s.id = a.study_id
			WHERE s.%[1]s IS NOT NULL AND a.overall_risk_score IS NOT NULL AND s.status != 'Inactive'
			ORDER BY s.%[1]s`, col.column)
		rows, err := s.execer(ctx).QueryContext(ctx, query)
		if err != nil {
			return DropdownValues{}, fmt.Errorf("filter values for %s: %w", col.column, err)
		}
		for rows.Next() {
			var v string
			if err := rows.Scan(&v); err != nil {
				rows.Close()
				return DropdownValues{}, fmt.Errorf("scan filter value: %w", err)
			}
			*col.dest = append(*col.dest, v)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return DropdownValues{}, fmt.Errorf("iterate filter values: %w", err)
		}
		rows.Close()
	}
	return out, nil
}

func (s *PostgresStore) DashboardStats(ctx context.Context, email, userType string) (DashboardStats, error) {
	email = strings.ToLower(email)
	where := contactClause(userType, 1)

	stats := DashboardStats{UserType: userType, UserEmail: email}
	queries := []struct {
		dest  *int
		query string
	}{
		{&stats.TotalActiveSites, `SELECT COUNT(DISTINCT s.site) FROM site_studies s WHERE ` + where + ` AND s.active = 'true'`},
		{&stats.TotalActiveStudies, `SELECT COUNT(*) FROM site_studies s WHERE ` + where + ` AND s.active = 'true'`},
		{&stats.TotalAssessedStudies, `SELECT COUNT(DISTINCT s.id) FROM site_studies s
			INNER JOIN assessments a ON s.id = a.study_id WHERE ` + where},
		{&stats.TotalApprovedAssessments, `SELECT COUNT(DISTINCT a.id) FROM site_studies s
			INNER JOIN assessments a ON s.id = a.study_id
			INNER JOIN assessment_approvals aa ON a.id = aa.assessment_id
			WHERE ` + where + ` AND LOWER(aa.action) = 'approved'`},
		{&stats.TotalRejectedAssessments, `SELECT COUNT(DISTINCT a.id) FROM site_studies s
			INNER JOIN assessments a ON s.id = a.study_id
			INNER JOIN assessment_approvals aa ON a.id = aa.assessment_id
			WHERE ` + where + ` AND LOWER(aa.action) = 'rejected'`},
		{&stats.TotalReviewsPending, `SELECT COUNT(DISTINCT a.id) FROM site_studies s
			INNER JOIN assessments a ON s.id = a.study_id
			LEFT JOIN assessment_approvals aa ON a.id = aa.assessment_id
			WHERE ` + where + ` AND a.status = 'Completed'
			AND (aa.id IS NULL OR LOWER(aa.action) NOT IN ('approved', 'rejected'))`},
	}
	for _, q := range queries {
		if err := s.execer(ctx).QueryRowContext(ctx, q.query, email).Scan(q.dest); err != nil {
			return DashboardStats{}, fmt.Errorf("dashboard stats: %w", err)
		}
	}
	return stats, nil
}

// contactClause matches the user against the PI or SD contact column.
func contactClause(userType string, arg int) string {
	if strings.EqualFold(userType, UserTypeSD) {
		return fmt.Sprintf("LOWER(s.site_director_email) = LOWER($%d)", arg)
	}
	return fmt.Sprintf("LOWER(s.principal_investigator_email) = LOWER($%d)", arg)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudy(row rowScanner) (*Study, error) {
	var st Study
	if err := row.Scan(
		&st.ID, &st.SiteID, &st.StudyID, &st.Site, &st.Sponsor, &st.SponsorCode,
		&st.Protocol, &st.StudyType, &st.StudyTypeText, &st.Status, &st.Description,
		&st.Phase, &st.Active, &st.PrincipalInvestigator, &st.PrincipalInvestigatorEmail,
		&st.SiteDirector, &st.SiteDirectorEmail, &st.CRCName,
	); err != nil {
		return nil, err
	}
	return &st, nil
}

func scanStudies(rows *sql.Rows, withAssessment bool) ([]Study, error) {
	var out []Study
	for rows.Next() {
		var st Study
		dest := []any{
			&st.ID, &st.SiteID, &st.StudyID, &st.Site, &st.Sponsor, &st.SponsorCode,
			&st.Protocol, &st.StudyType, &st.StudyTypeText, &st.Status, &st.Description,
			&st.Phase, &st.Active, &st.PrincipalInvestigator, &st.PrincipalInvestigatorEmail,
			&st.SiteDirector, &st.SiteDirectorEmail, &st.CRCName,
		}
		if withAssessment {
			dest = append(dest, &st.MonitoringSchedule, &st.AssessmentStatus)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan study row: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate study rows: %w", err)
	}
	return out, nil
}

func scanRiskRows(rows *sql.Rows) ([]RiskTableRow, error) {
	var out []RiskTableRow
	for rows.Next() {
		var r RiskTableRow
		var schedule sql.NullString
		if err := rows.Scan(
			&r.StudyID, &r.Site, &r.Sponsor, &r.Protocol, &r.StudyType, &r.StudyTypeText,
			&r.Description, &r.StudyStatus, &r.Phase, &r.Risk, &r.AssessmentID, &schedule,
			&r.SiteID, &r.StudyRef, &r.Active,
			&r.PrincipalInvestigator, &r.PrincipalInvestigatorEmail,
			&r.SiteDirector, &r.SiteDirectorEmail,
			&r.AssessmentStatus, &r.SponsorCode, &r.CreatedAt, &r.CRCName,
		); err != nil {
			return nil, fmt.Errorf("scan risk row: %w", err)
		}
		r.MonitoringSchedule = "Not specified"
		if schedule.Valid && schedule.String != "" {
			r.MonitoringSchedule = schedule.String
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate risk rows: %w", err)
	}
	return out, nil
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
