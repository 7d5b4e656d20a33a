package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testActor = Actor{Name: "Dr. Sarah Chen", Email: "sarah.chen@example.com"}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func Test_Diff(t *testing.T) {
	at := time.Date(2025, 3, 14, 15, 9, 0, 0, time.UTC)

	t.Run("records only changed fields", func(t *testing.T) {
		old := RiskValues{Severity: intPtr(2), Likelihood: intPtr(3), RiskScore: intPtr(6), RiskLevel: strPtr("Medium")}
		updated := RiskValues{Severity: intPtr(4), Likelihood: intPtr(3), RiskScore: intPtr(12), RiskLevel: strPtr("High")}

		entries := Diff(10, 7, old, updated, testActor, at)

		require.Len(t, entries, 3)
		assert.Equal(t, FieldSeverity, entries[0].FieldName)
		assert.Equal(t, "2", *entries[0].OldValue)
		assert.Equal(t, "4", *entries[0].NewValue)
		assert.Equal(t, FieldRiskScore, entries[1].FieldName)
		assert.Equal(t, FieldRiskLevel, entries[2].FieldName)
		for _, e := range entries {
			assert.Equal(t, int64(10), e.AssessmentID)
			assert.Equal(t, int64(7), e.RiskFactorID)
			assert.Equal(t, testActor.Name, e.ChangedByName)
			assert.Equal(t, testActor.Email, e.ChangedByEmail)
		}
	})

	t.Run("no entries when values are equal", func(t *testing.T) {
		vals := RiskValues{Severity: intPtr(1), Likelihood: intPtr(1), RiskScore: intPtr(1), RiskLevel: strPtr("Low")}
		assert.Empty(t, Diff(10, 7, vals, vals, testActor, at))
	})

	t.Run("nil to value counts as a change", func(t *testing.T) {
		entries := Diff(10, 7, RiskValues{}, RiskValues{Severity: intPtr(5)}, testActor, at)
		require.Len(t, entries, 1)
		assert.Nil(t, entries[0].OldValue)
		assert.Equal(t, "5", *entries[0].NewValue)
	})
}

func Test_Trail(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.PutRiskFactor(7, MemRiskFactor{Code: "PRO-001", Text: "Protocol Complexity"})
	svc := NewService(store, nil, nil)

	at := time.Date(2025, 3, 14, 15, 9, 0, 0, time.UTC)
	old := RiskValues{Severity: intPtr(2), Likelihood: intPtr(3), RiskScore: intPtr(6), RiskLevel: strPtr("Medium")}
	updated := RiskValues{Severity: intPtr(4), Likelihood: intPtr(5), RiskScore: intPtr(20), RiskLevel: strPtr("High")}
	require.NoError(t, svc.Record(ctx, Diff(10, 7, old, updated, testActor, at)))
	require.NoError(t, svc.Record(ctx, Diff(10, 99, old, updated, testActor, at.Add(time.Minute))))

	t.Run("base trail is severity and likelihood only", func(t *testing.T) {
		records, err := svc.Trail(ctx, TrailQuery{AssessmentID: 10})
		require.NoError(t, err)
		require.Len(t, records, 4)
		for _, r := range records {
			assert.Contains(t, []string{FieldSeverity, FieldLikelihood}, r.Field)
		}
	})

	t.Run("risk score filter yields nothing", func(t *testing.T) {
		records, err := svc.RiskScoreChanges(ctx, 10, 0)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("joins risk factor text with synthetic fallback", func(t *testing.T) {
		records, err := svc.RiskFactorTrail(ctx, 10, 7, 0)
		require.NoError(t, err)
		require.NotEmpty(t, records)
		assert.Equal(t, "Protocol Complexity", records[0].RiskFactor)

		records, err = svc.RiskFactorTrail(ctx, 10, 99, 0)
		require.NoError(t, err)
		require.NotEmpty(t, records)
		assert.Equal(t, "Risk Factor 99", records[0].RiskFactor)
	})

	t.Run("timestamp uses twelve hour clock", func(t *testing.T) {
		records, err := svc.SeverityChanges(ctx, 10, 1)
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.NotNil(t, records[0].Timestamp)
		assert.Equal(t, "2025-03-14 03:10 PM", *records[0].Timestamp)
	})

	t.Run("unknown assessment returns empty slice", func(t *testing.T) {
		records, err := svc.Trail(ctx, TrailQuery{AssessmentID: 404})
		require.NoError(t, err)
		assert.NotNil(t, records)
		assert.Empty(t, records)
	})
}

func Test_ChangesByUser(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.PutRiskFactor(7, MemRiskFactor{Code: "PRO-001", Text: "Protocol Complexity"})
	svc := NewService(store, nil, nil)

	at := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	require.NoError(t, svc.Record(ctx, Diff(10, 7,
		RiskValues{}, RiskValues{Severity: intPtr(3), RiskScore: intPtr(9)}, testActor, at)))

	t.Run("matches email case-insensitively", func(t *testing.T) {
		records, err := svc.ChangesByUser(ctx, 10, "SARAH.CHEN@example.com", 0)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "PRO-001", records[0].RiskFactor)
	})

	t.Run("scoped to the assessment", func(t *testing.T) {
		records, err := svc.ChangesByUser(ctx, 11, testActor.Email, 0)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func Test_Summary(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(store, nil, nil)

	at := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	other := Actor{Name: "Dr. James Okoro", Email: "james.okoro@example.com"}
	require.NoError(t, svc.Record(ctx, Diff(10, 7,
		RiskValues{}, RiskValues{Severity: intPtr(3), Likelihood: intPtr(2)}, testActor, at)))
	require.NoError(t, svc.Record(ctx, Diff(10, 8,
		RiskValues{}, RiskValues{Severity: intPtr(5)}, other, at.Add(2*time.Hour))))

	summary, err := svc.Summary(ctx, 10)
	require.NoError(t, err)

	assert.Equal(t, int64(10), summary.AssessmentID)
	assert.Equal(t, 3, summary.TotalChanges)
	require.Len(t, summary.ChangesByField, 2)
	assert.Equal(t, FieldCount{Field: FieldSeverity, Count: 2}, summary.ChangesByField[0])
	require.Len(t, summary.ChangesByUser, 2)
	assert.Equal(t, 2, summary.ChangesByUser[0].Count)
	require.NotNil(t, summary.LatestChange)
	assert.Equal(t, "2025-03-14 11:00 AM", *summary.LatestChange)

	t.Run("empty assessment", func(t *testing.T) {
		summary, err := svc.Summary(ctx, 404)
		require.NoError(t, err)
		assert.Zero(t, summary.TotalChanges)
		assert.Empty(t, summary.ChangesByField)
		assert.Nil(t, summary.LatestChange)
	})
}
