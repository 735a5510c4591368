package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/evidenceassessment/internal/models"
)

var domains = []models.DomainDefinition{
	{ID: "AC-001", Name: "access_control"},
	{ID: "IR-001", Name: "Incident Response"},
	{ID: "BC-002", Name: "business_continuity"},
}

func TestResolve_ExactNormalizedMatch(t *testing.T) {
	tests := []struct {
		folder string
		want   string
	}{
		{"access_control", "AC-001"},
		{"  ACCESS_CONTROL ", "AC-001"},
		{"incident response", "IR-001"},
		{"Incident Response", "IR-001"},
	}
	for _, tt := range tests {
		t.Run(tt.folder, func(t *testing.T) {
			d := Resolve(tt.folder, domains)
			require.NotNil(t, d)
			assert.Equal(t, tt.want, d.ID)
		})
	}
}

func TestResolve_NoFuzzyMatching(t *testing.T) {
	for _, folder := range []string{"access", "access-control", "incident_response", "unknown_topic", ""} {
		assert.Nil(t, Resolve(folder, domains), folder)
	}
}

func TestResolve_Deterministic(t *testing.T) {
	dup := append([]models.DomainDefinition{}, domains...)
	dup = append(dup, models.DomainDefinition{ID: "AC-999", Name: "Access_Control"})
	for i := 0; i < 5; i++ {
		assert.Equal(t, "AC-001", Resolve("access_control", dup).ID)
	}
}

func TestFolderCodeMatcher(t *testing.T) {
	m := FolderCodeMatcher{Codes: map[string]string{"business_continuity": "BC-002", "ghost": "XX-404"}}

	d, ok := m.Match("Business Continuity", domains)
	require.True(t, ok)
	assert.Equal(t, "BC-002", d.ID)

	_, ok = m.Match("ghost", domains)
	assert.False(t, ok)
}

func TestExpectedFolderNames(t *testing.T) {
	names := ExpectedFolderNames(domains)
	require.Len(t, names, 3)
	assert.Equal(t, "incident response", names[1].FolderName)
	assert.Equal(t, "IR-001", names[1].DomainID)
}

func TestCIDPrefixMatcher(t *testing.T) {
	m := CIDPrefixMatcher{}
	tests := []struct {
		folder string
		want   string
		ok     bool
	}{
		{"AC-001 - Access Control", "AC-001", true},
		{"ir - Incident Response", "IR-001", true},
		{"BC-Business continuity", "BC-002", true},
		{"access_control", "", false},
		{"ZZ - Unknown", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.folder, func(t *testing.T) {
			d, ok := m.Match(tt.folder, domains)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, d.ID)
		})
	}
}

func TestNewMatcher(t *testing.T) {
	m, err := NewMatcher("")
	require.NoError(t, err)
	assert.IsType(t, ExactNameMatcher{}, m)

	m, err = NewMatcher("CID-Prefix")
	require.NoError(t, err)
	assert.IsType(t, CIDPrefixMatcher{}, m)

	m, err = NewMatcher(StrategyFolderCode)
	require.NoError(t, err)
	d, ok := m.Match("access control", domains)
	require.True(t, ok)
	assert.Equal(t, "AC-001", d.ID)

	_, err = NewMatcher("fuzzy")
	assert.Error(t, err)
}
