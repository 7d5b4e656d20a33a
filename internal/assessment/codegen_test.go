package assessment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siterisk/internal/study"
	"siterisk/pkg/apperr"
)

func Test_siteCode(t *testing.T) {
	cases := []struct {
		site string
		want string
	}{
		{"Flourish San Antonio", "FSA"},
		{"Flourish San Diego", "FSD"},
		{"Flourish New York", "FNY"},
		{"Flourish Los Angeles", "FLA"},
		{"Flourish Texas Research", "FTX"},
		{"Flourish California", "FCA"},
		{"Flourish Boston", "FLR"},
		{"Mercy", "MER"},
		{"Mercy General", "MGE"},
		{"Mount Sinai West Campus", "MSW"},
		{"", "UNK"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, siteCode(tc.site), "site %q", tc.site)
	}
}

func Test_formatCodeDate(t *testing.T) {
	got, err := formatCodeDate("2025-02-20")
	require.NoError(t, err)
	assert.Equal(t, "20250220", got)

	got, err = formatCodeDate("20250220")
	require.NoError(t, err)
	assert.Equal(t, "20250220", got)

	_, err = formatCodeDate("02/20/2025")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeBadRequest, apperr.CodeOf(err))
	assert.Contains(t, apperr.MessageOf(err), "Invalid date format")
}

func Test_generateCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	st := &study.Study{
		ID:          1,
		Site:        "Flourish San Antonio",
		SponsorCode: strPtr("MER"),
		Protocol:    strPtr("CIN-302"),
	}

	code, err := f.svc.generateCode(ctx, st, "2025-02-20")
	require.NoError(t, err)
	assert.Equal(t, "FSA-MER-CIN-20250220-001", code)

	// An existing assessment with the same prefix bumps the sequence.
	_, err = f.store.Insert(ctx, Assessment{StudyID: 7, Code: "FSA-MER-CIN-20250220-001", Status: StatusInProgress})
	require.NoError(t, err)
	code, err = f.svc.generateCode(ctx, st, "2025-02-20")
	require.NoError(t, err)
	assert.Equal(t, "FSA-MER-CIN-20250220-002", code)

	t.Run("sponsor code omitted when blank", func(t *testing.T) {
		bare := &study.Study{ID: 2, Site: "Mercy General", Protocol: strPtr("AB")}
		code, err := f.svc.generateCode(ctx, bare, "2025-02-20")
		require.NoError(t, err)
		assert.Equal(t, "MGE-AB-20250220-001", code)
	})

	t.Run("missing roster fields fall back to UNK", func(t *testing.T) {
		code, err := f.svc.generateCode(ctx, &study.Study{ID: 3}, "20250220")
		require.NoError(t, err)
		assert.Equal(t, "UNK-UNK-20250220-001", code)
	})
}
