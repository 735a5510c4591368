package elements

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/evidenceassessment/internal/models"
)

func TestExtract_NumberedElements(t *testing.T) {
	domain := models.DomainDefinition{
		ID:              "AC-001",
		QuestionText:    "Do X?",
		DescriptionText: "Do X. Design elements:\n1. Item A\n2. Item B",
	}

	prompts := Extract(domain)
	require.Len(t, prompts, 2)

	assert.Equal(t, "AC-001-sub-1", prompts[0].ElementID)
	assert.Equal(t, "AC-001-sub-2", prompts[1].ElementID)
	assert.Equal(t, "Do X with the following design element: Item A", prompts[0].Prompt)
	assert.Equal(t, "Do X with the following design element: Item B", prompts[1].Prompt)
	assert.Equal(t, "Do X?", prompts[0].Question)
	assert.Equal(t, "AC-001", prompts[1].DomainID)
}

func TestExtract_StripsBracketedClause(t *testing.T) {
	domain := models.DomainDefinition{
		ID:              "BCP-001",
		QuestionText:    "Artifact(s) Required: BCP/DR policy [Attach PDF]",
		DescriptionText: "Provide the document with the following design element:\n  1. Team roles\n\t2.Business impact analysis\nnot numbered\n3) wrong format",
	}

	prompts := Extract(domain)
	require.Len(t, prompts, 2)
	assert.Equal(t, "Artifact(s) Required: BCP/DR policy with the following design element: Team roles", prompts[0].Prompt)
	assert.Equal(t, "Artifact(s) Required: BCP/DR policy with the following design element: Business impact analysis", prompts[1].Prompt)
}

func TestExtract_FallbackWhenMarkerMissing(t *testing.T) {
	domain := models.DomainDefinition{ID: "SA-001", QuestionText: "What security awareness programs exist?", DescriptionText: "1. Not after a marker"}

	prompts := Extract(domain)
	require.Len(t, prompts, 1)
	assert.Equal(t, "SA-001-sub-1", prompts[0].ElementID)
	assert.Equal(t, domain.QuestionText, prompts[0].Prompt)
	assert.Equal(t, domain.QuestionText, prompts[0].Question)
}

func TestExtract_FallbackWhenMarkerHasNoNumberedLines(t *testing.T) {
	domain := models.DomainDefinition{
		ID:              "AC-001",
		QuestionText:    "How does the vendor implement access control mechanisms?",
		DescriptionText: "Document the following design elements:\n- User authentication methods\n- Role-based access controls",
	}

	prompts := Extract(domain)
	require.Len(t, prompts, 1)
	assert.Equal(t, domain.QuestionText, prompts[0].Prompt)
}

func TestExtract_InlineListIsOneItem(t *testing.T) {
	domain := models.DomainDefinition{
		ID:              "AC-001",
		QuestionText:    "How does the vendor implement access control mechanisms?",
		DescriptionText: "Document the following design elements: 1. User authentication methods 2. Role-based access controls",
	}

	prompts := Extract(domain)
	require.Len(t, prompts, 1)
	assert.Equal(t, "How does the vendor implement access control mechanisms with the following design element: User authentication methods 2. Role-based access controls", prompts[0].Prompt)
}

func TestExtract_Idempotent(t *testing.T) {
	domain := models.DomainDefinition{
		ID:              "NS-001",
		QuestionText:    "What network security controls does the vendor implement?",
		DescriptionText: "DESIGN ELEMENT:\r\n1. Firewall configurations\r\n2. Network segmentation\r\n3. Intrusion detection systems",
	}

	first := Extract(domain)
	second := Extract(domain)
	assert.Equal(t, first, second)
	require.Len(t, first, 3)
	assert.Equal(t, "What network security controls does the vendor implement with the following design element: Firewall configurations", first[0].Prompt)
}

func TestBaseQuestion(t *testing.T) {
	assert.Equal(t, "Do X", BaseQuestion("Do X?"))
	assert.Equal(t, "Do X", BaseQuestion("Do X? [see annex]"))
	assert.Equal(t, "Do [X] now", BaseQuestion("Do [X] now"))
	assert.Equal(t, "", BaseQuestion("  "))
}

func TestCatalog(t *testing.T) {
	catalog := NewCatalog([]models.DomainDefinition{
		{ID: "AC-001", QuestionText: "Q?", DescriptionText: "Design elements:\n1. A\n2. B"},
		{ID: "IR-001", QuestionText: "R?"},
	})

	prompts, ok := catalog.DesignElements("AC-001")
	require.True(t, ok)
	assert.Len(t, prompts, 2)

	prompts, ok = catalog.DesignElements("IR-001")
	require.True(t, ok)
	assert.Len(t, prompts, 1)

	_, ok = catalog.DesignElements("ZZ-000")
	assert.False(t, ok)
}
