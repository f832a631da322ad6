package recommendation

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestResolveScore(t *testing.T) {
	sections := []SectionScore{
		{Title: "Govern-P", Percentage: 61},
		{Title: " identify ", Percentage: 42},
		{Title: "Govern", Percentage: 75},
	}

	cases := []struct {
		name  string
		title string
		want  float64
	}{
		{name: "exact_wins_over_contains", title: "Govern", want: 75},
		{name: "case_insensitive_trimmed", title: "IDENTIFY", want: 42},
		{name: "hyphenated_title", title: "govern-p", want: 61},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := resolveScore(sections, tc.title)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	contains, err := resolveScore([]SectionScore{{Title: "Protect-P", Percentage: 33}}, "Protect")
	require.NoError(t, err)
	assert.Equal(t, 33.0, contains)

	_, err = resolveScore(sections, "Protect")
	var missing *MissingSectionError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "Protect", missing.Section)
	assert.True(t, errors.Is(err, ErrMissingSection))
}

func TestScoreResolverRecordsAssumptionsOnce(t *testing.T) {
	r := newScoreResolver([]SectionScore{{Title: "Govern", Percentage: 20}}, PolicyAssumeMidpoint)

	score, assumed, err := r.resolve("Govern")
	require.NoError(t, err)
	assert.False(t, assumed)
	assert.Equal(t, 20.0, score)

	for i := 0; i < 2; i++ {
		score, assumed, err = r.resolve("Protect")
		require.NoError(t, err)
		assert.True(t, assumed)
		assert.Equal(t, MidpointScore, score)
	}
	assert.Equal(t, []string{"No Protect section score was provided; assumed 50%."}, r.assumptions())
}

func TestValidateAcceptsBoundaries(t *testing.T) {
	err := Validate(AssessmentData{
		OverallScore:  0,
		SectionScores: []SectionScore{{Title: "Govern", Percentage: 100}, {Title: "Identify", Percentage: 0}},
	})
	assert.NoError(t, err)
}

func TestValidateRejectsNaN(t *testing.T) {
	err := Validate(AssessmentData{
		OverallScore:  math.NaN(),
		SectionScores: []SectionScore{{Title: "Govern", Percentage: math.NaN()}},
	})
	var invalid *InvalidAssessmentDataError
	require.True(t, errors.As(err, &invalid))
	assert.Contains(t, invalid.Problems, FieldProblem{Field: "overallScore", Issue: "must be a number"})
	assert.Contains(t, invalid.Problems, FieldProblem{Field: "sectionScores[0].percentage", Issue: "must be a number"})
	assert.Len(t, invalid.Problems, 2, "one problem per field")
}

func TestParseMissingSectionPolicy(t *testing.T) {
	p, err := ParseMissingSectionPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyReject, p)

	p, err = ParseMissingSectionPolicy(" Assume_Midpoint ")
	require.NoError(t, err)
	assert.Equal(t, PolicyAssumeMidpoint, p)

	_, err = ParseMissingSectionPolicy("guess")
	assert.Error(t, err)
}

func TestParseOrganizationSize(t *testing.T) {
	size, err := ParseOrganizationSize("")
	require.NoError(t, err)
	assert.Equal(t, SizeMedium, size)

	size, err = ParseOrganizationSize("Enterprise")
	require.NoError(t, err)
	assert.Equal(t, SizeEnterprise, size)

	_, err = ParseOrganizationSize("tiny")
	assert.ErrorIs(t, err, ErrInvalidOrganizationSize)
}

func TestFTERange(t *testing.T) {
	r, err := ParseFTERange("0.5-1.0")
	require.NoError(t, err)
	assert.Equal(t, FTERange{Min: 0.5, Max: 1.0}, r)
	assert.Equal(t, "0.5-1.0", r.String())

	single, err := ParseFTERange("1")
	require.NoError(t, err)
	assert.Equal(t, FTERange{Min: 1, Max: 1}, single)

	for _, raw := range []string{"", "a-b", "1.0-0.5", "1-2-3"} {
		_, err := ParseFTERange(raw)
		assert.Error(t, err, raw)
	}
}

func TestFTERangeDecodesLegacyStrings(t *testing.T) {
	var member TeamMember
	require.NoError(t, json.Unmarshal([]byte(`{"roleId":"dpo","fte":"0.5-1.0"}`), &member))
	assert.Equal(t, FTERange{Min: 0.5, Max: 1.0}, member.FTE)

	require.NoError(t, json.Unmarshal([]byte(`{"roleId":"dpo","fte":{"min":1,"max":1.5}}`), &member))
	assert.Equal(t, FTERange{Min: 1, Max: 1.5}, member.FTE)

	assert.Error(t, json.Unmarshal([]byte(`{"fte":"lots"}`), &member))

	var tiers TierFTE
	require.NoError(t, yaml.Unmarshal([]byte("critical: \"1.0-2.0\"\nrecommended: {min: 0.5, max: 1}\noptional: 0.25\n"), &tiers))
	assert.Equal(t, TierFTE{
		Critical:    FTERange{Min: 1, Max: 2},
		Recommended: FTERange{Min: 0.5, Max: 1},
		Optional:    FTERange{Min: 0.25, Max: 0.25},
	}, tiers)
}
