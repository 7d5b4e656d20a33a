package study

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siterisk/pkg/apperr"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(v string) *string { return &v }
func intPtr(v int) *int       { return &v }

func seedStudies(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	store.Put(Study{
		ID:                         1,
		Site:                       "Flourish San Antonio",
		Sponsor:                    strPtr("Meridian"),
		Protocol:                   strPtr("CIN-302"),
		Status:                     strPtr("Active"),
		Active:                     strPtr("true"),
		PrincipalInvestigator:      strPtr("Sarah Chen"),
		PrincipalInvestigatorEmail: strPtr("sarah.chen@flourish.com"),
		SiteDirector:               strPtr("James Okoro"),
		SiteDirectorEmail:          strPtr("james.okoro@flourish.com"),
	})
	store.Put(Study{
		ID:                         2,
		Site:                       "Flourish Dallas",
		Sponsor:                    strPtr("Meridian"),
		Protocol:                   strPtr("CIN-310"),
		Status:                     strPtr("Active"),
		Active:                     strPtr("true"),
		PrincipalInvestigator:      strPtr("Sarah Chen"),
		PrincipalInvestigatorEmail: strPtr("sarah.chen@flourish.com"),
		SiteDirector:               strPtr("Priya Nair"),
		SiteDirectorEmail:          strPtr("priya.nair@flourish.com"),
	})
	store.Put(Study{
		ID:                         3,
		Site:                       "Flourish Austin",
		Sponsor:                    strPtr("Gentex"),
		Protocol:                   strPtr("GTX-12"),
		Status:                     strPtr("Inactive"),
		PrincipalInvestigatorEmail: strPtr("sarah.chen@flourish.com"),
	})
	return NewService(store, discardLogger()), store
}

func Test_ListByUser(t *testing.T) {
	svc, _ := seedStudies(t)
	ctx := context.Background()

	t.Run("PI sees own active studies", func(t *testing.T) {
		studies, err := svc.ListByUser(ctx, "sarah.chen@flourish.com", "PI", Filter{})
		require.NoError(t, err)
		require.Len(t, studies, 2)
		// Inactive study 3 is excluded even though Sarah is its PI.
		for _, st := range studies {
			assert.NotEqual(t, int64(3), st.ID)
		}
	})

	t.Run("SD match is scoped to site director email", func(t *testing.T) {
		studies, err := svc.ListByUser(ctx, "priya.nair@flourish.com", "SD", Filter{})
		require.NoError(t, err)
		require.Len(t, studies, 1)
		assert.Equal(t, int64(2), studies[0].ID)
	})

	t.Run("sponsor filter narrows, all matches everything", func(t *testing.T) {
		studies, err := svc.ListByUser(ctx, "sarah.chen@flourish.com", "PI", Filter{Protocol: "CIN-302"})
		require.NoError(t, err)
		require.Len(t, studies, 1)

		studies, err = svc.ListByUser(ctx, "sarah.chen@flourish.com", "PI", Filter{Sponsor: "all"})
		require.NoError(t, err)
		assert.Len(t, studies, 2)
	})

	t.Run("missing email rejected", func(t *testing.T) {
		_, err := svc.ListByUser(ctx, "", "PI", Filter{})
		require.Error(t, err)
		assert.Equal(t, "Email not found in token", apperr.MessageOf(err))
	})

	t.Run("unknown user type rejected", func(t *testing.T) {
		_, err := svc.ListByUser(ctx, "sarah.chen@flourish.com", "CRC", Filter{})
		require.Error(t, err)
		assert.Equal(t, "user_type must be 'PI' or 'SD'", apperr.MessageOf(err))
	})
}

func Test_DropdownValues_Cleaned(t *testing.T) {
	svc, store := seedStudies(t)
	ctx := context.Background()

	// Roster rows carry CRM whitespace; the duplicate sponsor collapses.
	store.Put(Study{
		ID:                         4,
		Site:                       "  Flourish San Antonio ",
		Sponsor:                    strPtr(" Meridian"),
		Protocol:                   strPtr("CIN-315"),
		Status:                     strPtr("Active"),
		PrincipalInvestigatorEmail: strPtr("sarah.chen@flourish.com"),
	})

	values, err := svc.DropdownValues(ctx, "sarah.chen@flourish.com", "PI")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Flourish Dallas", "Flourish San Antonio"}, values.Sites)
	assert.Equal(t, []string{"Meridian"}, values.Sponsors)
	assert.ElementsMatch(t, []string{"CIN-302", "CIN-310", "CIN-315"}, values.Protocols)
}

func Test_TopStudiesRiskChart(t *testing.T) {
	svc, store := seedStudies(t)
	ctx := context.Background()

	store.PutAssessment(1, MemAssessment{ID: 10, Status: "Completed", OverallRiskScore: intPtr(42), OverallRiskLevel: strPtr("High")})
	store.PutAssessment(2, MemAssessment{ID: 11, Status: "Completed", OverallRiskScore: intPtr(17), OverallRiskLevel: strPtr("Medium")})

	chart, err := svc.TopStudiesRiskChart(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, chart.TotalStudies)
	// Highest risk first, labeled sponsor + protocol.
	assert.Equal(t, "Meridian CIN-302", chart.BarChartData[0].Label)
	assert.Equal(t, 42, chart.BarChartData[0].Value)
	assert.NotEmpty(t, chart.BarChartData[0].Color)
}

func Test_AllAssessed_Pagination(t *testing.T) {
	svc, store := seedStudies(t)
	ctx := context.Background()

	store.PutAssessment(1, MemAssessment{ID: 10, Status: "Completed", OverallRiskScore: intPtr(42)})
	store.PutAssessment(2, MemAssessment{ID: 11, Status: "Completed", OverallRiskScore: intPtr(17)})

	page, err := svc.AllAssessed(ctx, Filter{}, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalStudies)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 1, page.CurrentPage)
	require.Len(t, page.RiskTableData, 1)
	assert.Equal(t, 42, page.RiskTableData[0].Risk)

	page, err = svc.AllAssessed(ctx, Filter{}, 2, 1)
	require.NoError(t, err)
	require.Len(t, page.RiskTableData, 1)
	assert.Equal(t, 17, page.RiskTableData[0].Risk)

	// Out-of-range page sizes clamp instead of erroring.
	page, err = svc.AllAssessed(ctx, Filter{}, 0, 500)
	require.NoError(t, err)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, 100, page.PageSize)
}

func Test_DashboardStats(t *testing.T) {
	svc, store := seedStudies(t)
	ctx := context.Background()

	store.PutAssessment(1, MemAssessment{ID: 10, Status: "Completed", ApprovalAction: "Approved"})
	store.PutAssessment(2, MemAssessment{ID: 11, Status: "Completed"})

	stats, err := svc.DashboardStats(ctx, "sarah.chen@flourish.com", "pi")
	require.NoError(t, err)
	assert.Equal(t, "PI", stats.UserType)
	assert.Equal(t, 2, stats.TotalActiveStudies)
	assert.Equal(t, 2, stats.TotalAssessedStudies)
	assert.Equal(t, 1, stats.TotalApprovedAssessments)
	assert.Equal(t, 0, stats.TotalRejectedAssessments)
	assert.Equal(t, 1, stats.TotalReviewsPending)

	_, err = svc.DashboardStats(ctx, "", "PI")
	require.Error(t, err)
	assert.Equal(t, "Email not found in token", apperr.MessageOf(err))

	_, err = svc.DashboardStats(ctx, "sarah.chen@flourish.com", "Admin")
	require.Error(t, err)
	assert.Equal(t, "user_type must be 'PI' or 'SD'", apperr.MessageOf(err))
}

func Test_EditPermissions(t *testing.T) {
	svc, _ := seedStudies(t)
	ctx := context.Background()

	t.Run("PI can edit", func(t *testing.T) {
		perms, err := svc.EditPermissions(ctx, 1, "SARAH.CHEN@flourish.com")
		require.NoError(t, err)
		assert.True(t, perms.CanEdit)
		assert.Equal(t, "User is Principal Investigator", perms.Reason)
	})

	t.Run("SD can edit", func(t *testing.T) {
		perms, err := svc.EditPermissions(ctx, 1, "james.okoro@flourish.com")
		require.NoError(t, err)
		assert.True(t, perms.CanEdit)
		assert.Equal(t, "User is Site Director", perms.Reason)
	})

	t.Run("outsider cannot", func(t *testing.T) {
		perms, err := svc.EditPermissions(ctx, 1, "someone.else@flourish.com")
		require.NoError(t, err)
		assert.False(t, perms.CanEdit)
		assert.Equal(t, "User is not Principal Investigator or Site Director", perms.Reason)
	})

	t.Run("inactive study is not editable", func(t *testing.T) {
		_, err := svc.EditPermissions(ctx, 3, "sarah.chen@flourish.com")
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.CodeNotFound))
	})
}

func Test_ContactsOf_Placeholders(t *testing.T) {
	c := ContactsOf(&Study{ID: 9, Site: "Nowhere"})
	assert.Equal(t, "Unknown", c.PIName)
	assert.Equal(t, "unknown@email.com", c.PIEmail)
	assert.Equal(t, "Unknown", c.SDName)
	assert.Equal(t, "unknown@email.com", c.SDEmail)

	c = ContactsOf(&Study{
		PrincipalInvestigator:      strPtr("Sarah Chen"),
		PrincipalInvestigatorEmail: strPtr("sarah.chen@flourish.com"),
	})
	assert.Equal(t, "Sarah Chen", c.PIName)
	assert.Equal(t, "Unknown", c.SDName)
}

func Test_UserTypeFor(t *testing.T) {
	st := &Study{
		PrincipalInvestigatorEmail: strPtr("sarah.chen@flourish.com"),
		SiteDirectorEmail:          strPtr("james.okoro@flourish.com"),
	}
	assert.Equal(t, UserTypePI, UserTypeFor(st, "Sarah.Chen@flourish.com"))
	assert.Equal(t, UserTypeSD, UserTypeFor(st, "james.okoro@flourish.com"))
	// Unmatched submitters default to PI.
	assert.Equal(t, UserTypePI, UserTypeFor(st, "stranger@flourish.com"))
}
