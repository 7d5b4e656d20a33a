package study

import (
	"context"
	"log/slog"
	"strings"

	"siterisk/pkg/apperr"
	platformstrings "siterisk/pkg/platform/strings"
)

// chartColors cycle across the top-studies bar chart.
var chartColors = []string{
	"#7c6ee6", "#4ed6fa", "#ffb43a", "#ff6b81", "#4ecdc4",
	"#45b7d1", "#96ceb4", "#feca57", "#ff9ff3", "#54a0ff",
}

// Service exposes the study roster and its reporting projections.
type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// NormalizeUserType validates the PI/SD discriminator.
func NormalizeUserType(userType string) (string, error) {
	switch strings.ToUpper(userType) {
	case UserTypePI:
		return UserTypePI, nil
	case UserTypeSD:
		return UserTypeSD, nil
	default:
		return "", apperr.New(apperr.CodeBadRequest, "user_type must be 'PI' or 'SD'")
	}
}

func (s *Service) List(ctx context.Context) ([]Study, error) {
	return s.store.List(ctx)
}

func (s *Service) ListByUser(ctx context.Context, email, userType string, filter Filter) ([]Study, error) {
	if email == "" {
		return nil, apperr.New(apperr.CodeBadRequest, "Email not found in token")
	}
	ut, err := NormalizeUserType(userType)
	if err != nil {
		return nil, err
	}
	studies, err := s.store.ListByUser(ctx, email, ut, filter)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "studies listed", "email", strings.ToLower(email), "user_type", ut, "count", len(studies))
	return studies, nil
}

func (s *Service) DropdownValues(ctx context.Context, email, userType string) (DropdownValues, error) {
	if email == "" {
		return DropdownValues{}, apperr.New(apperr.CodeBadRequest, "Email not found in token")
	}
	ut, err := NormalizeUserType(userType)
	if err != nil {
		return DropdownValues{}, err
	}
	values, err := s.store.DropdownValues(ctx, email, ut)
	if err != nil {
		return DropdownValues{}, err
	}
	return cleanDropdownValues(values), nil
}

// AssessmentsWithContacts returns the assessments grid. An empty userType
// returns every study's assessment.
func (s *Service) AssessmentsWithContacts(ctx context.Context, email, userType string) ([]AssessmentRow, error) {
	if email == "" {
		return nil, apperr.New(apperr.CodeBadRequest, "Email not found in token")
	}
	ut := ""
	if userType != "" {
		normalized, err := NormalizeUserType(userType)
		if err != nil {
			return nil, err
		}
		ut = normalized
	}
	return s.store.AssessmentsWithContacts(ctx, email, ut)
}

func (s *Service) TopStudiesRiskChart(ctx context.Context) (RiskChart, error) {
	rows, err := s.store.TopRiskRows(ctx)
	if err != nil {
		return RiskChart{}, err
	}
	entries := make([]ChartEntry, 0, len(rows))
	for i, row := range rows {
		label := row.Site
		if row.Sponsor != nil && row.Protocol != nil {
			label = *row.Sponsor + " " + *row.Protocol
		}
		entries = append(entries, ChartEntry{
			Label: label,
			Value: row.Risk,
			Color: chartColors[i%len(chartColors)],
		})
	}
	return RiskChart{BarChartData: entries, TotalStudies: len(entries)}, nil
}

func (s *Service) HighestRisk(ctx context.Context, filter Filter) (RiskTable, error) {
	rows, err := s.store.HighestRiskRows(ctx, filter)
	if err != nil {
		return RiskTable{}, err
	}
	return RiskTable{RiskTableData: rows, TotalStudies: len(rows)}, nil
}

func (s *Service) AllAssessed(ctx context.Context, filter Filter, page, pageSize int) (RiskTablePage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	rows, total, err := s.store.AssessedRows(ctx, filter, pageSize, (page-1)*pageSize)
	if err != nil {
		return RiskTablePage{}, err
	}
	return RiskTablePage{
		RiskTableData: rows,
		TotalStudies:  total,
		TotalPages:    (total + pageSize - 1) / pageSize,
		CurrentPage:   page,
		PageSize:      pageSize,
	}, nil
}

func (s *Service) FilterValues(ctx context.Context) (DropdownValues, error) {
	values, err := s.store.FilterValues(ctx)
	if err != nil {
		return DropdownValues{}, err
	}
	return cleanDropdownValues(values), nil
}

// cleanDropdownValues normalizes the distinct lists; site rows arrive
// from a CRM export with stray whitespace and repeated entries.
func cleanDropdownValues(v DropdownValues) DropdownValues {
	return DropdownValues{
		Sites:     platformstrings.DedupeAndTrim(v.Sites),
		Sponsors:  platformstrings.DedupeAndTrim(v.Sponsors),
		Protocols: platformstrings.DedupeAndTrim(v.Protocols),
	}
}

func (s *Service) DashboardStats(ctx context.Context, email, userType string) (DashboardStats, error) {
	if email == "" {
		return DashboardStats{}, apperr.New(apperr.CodeBadRequest, "Email not found in token")
	}
	ut, err := NormalizeUserType(userType)
	if err != nil {
		return DashboardStats{}, err
	}
	return s.store.DashboardStats(ctx, email, ut)
}

// EditPermissions reports whether the user is the study's PI or SD.
func (s *Service) EditPermissions(ctx context.Context, studyID int64, email string) (EditPermissions, error) {
	if email == "" {
		return EditPermissions{}, apperr.New(apperr.CodeBadRequest, "Email not found in token")
	}
	st, err := s.store.GetActiveByID(ctx, studyID)
	if err != nil {
		return EditPermissions{}, err
	}

	isPI := st.PrincipalInvestigatorEmail != nil && strings.EqualFold(*st.PrincipalInvestigatorEmail, email)
	isSD := st.SiteDirectorEmail != nil && strings.EqualFold(*st.SiteDirectorEmail, email)

	reason := "User is not Principal Investigator or Site Director"
	if isPI {
		reason = "User is Principal Investigator"
	} else if isSD {
		reason = "User is Site Director"
	}

	return EditPermissions{
		CanEdit:   isPI || isSD,
		UserEmail: email,
		PIEmail:   st.PrincipalInvestigatorEmail,
		SDEmail:   st.SiteDirectorEmail,
		Reason:    reason,
		StudyInfo: StudyInfo{
			StudyID:               st.ID,
			Site:                  st.Site,
			Sponsor:               st.Sponsor,
			Protocol:              st.Protocol,
			PrincipalInvestigator: st.PrincipalInvestigator,
			SiteDirector:          st.SiteDirector,
		},
	}, nil
}

// Contacts resolves the study's PI and SD identities, substituting
// placeholders when the roster is missing either contact.
func (s *Service) Contacts(ctx context.Context, studyID int64) (Contacts, error) {
	st, err := s.store.GetByID(ctx, studyID)
	if err != nil {
		return Contacts{}, err
	}
	return ContactsOf(st), nil
}

// ContactsOf extracts contact identities with the legacy placeholders.
func ContactsOf(st *Study) Contacts {
	c := Contacts{
		PIName:  "Unknown",
		PIEmail: "unknown@email.com",
		SDName:  "Unknown",
		SDEmail: "unknown@email.com",
	}
	if st.PrincipalInvestigator != nil && *st.PrincipalInvestigator != "" {
		c.PIName = *st.PrincipalInvestigator
	}
	if st.PrincipalInvestigatorEmail != nil && *st.PrincipalInvestigatorEmail != "" {
		c.PIEmail = *st.PrincipalInvestigatorEmail
	}
	if st.SiteDirector != nil && *st.SiteDirector != "" {
		c.SDName = *st.SiteDirector
	}
	if st.SiteDirectorEmail != nil && *st.SiteDirectorEmail != "" {
		c.SDEmail = *st.SiteDirectorEmail
	}
	return c
}

// UserTypeFor classifies the submitter against the study's contacts,
// defaulting to PI when neither email matches.
func UserTypeFor(st *Study, email string) string {
	if st.PrincipalInvestigatorEmail != nil && strings.EqualFold(*st.PrincipalInvestigatorEmail, email) {
		return UserTypePI
	}
	if st.SiteDirectorEmail != nil && strings.EqualFold(*st.SiteDirectorEmail, email) {
		return UserTypeSD
	}
	return UserTypePI
}
