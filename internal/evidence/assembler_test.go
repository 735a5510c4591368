package evidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/evidenceassessment/internal/archive"
	"github.com/Lllllllleong/evidenceassessment/internal/models"
	"github.com/Lllllllleong/evidenceassessment/internal/taxonomy"
	"github.com/Lllllllleong/evidenceassessment/internal/testutil"
)

var domains = []models.DomainDefinition{
	{ID: "AC-001", Name: "access_control", QuestionText: "How is access controlled?"},
	{ID: "IR-001", Name: "Incident Response", QuestionText: "How are incidents handled?"},
}

func readTree(t *testing.T, entries ...testutil.Entry) *archive.Tree {
	t.Helper()
	tree, err := archive.NewReader(0).ReadBytes(testutil.ZipEntries(t, entries...))
	require.NoError(t, err)
	return tree
}

func TestAssemble_MatchedAndUnknownFolders(t *testing.T) {
	tree := readTree(t,
		testutil.Entry{Name: "access_control/evidence.pdf", Content: []byte(testutil.PDF("ac"))},
		testutil.Entry{Name: "unknown_topic/file.pdf", Content: []byte(testutil.PDF("x"))},
	)

	controls, issues := Assemble(tree, domains, taxonomy.ExactNameMatcher{})

	require.Len(t, controls, 1)
	assert.Equal(t, "AC-001", controls[0].DomainID)
	assert.Equal(t, "access_control", controls[0].DisplayName)
	assert.Equal(t, []string{"evidence.pdf"}, controls[0].EvidenceNames())

	require.Len(t, issues, 1)
	assert.Equal(t, models.IssueMapping, issues[0].Kind)
	assert.Equal(t, "unknown_topic", issues[0].Subject)
}

func TestAssemble_NestedFilesAndOrder(t *testing.T) {
	tree := readTree(t,
		testutil.Entry{Name: "incident response/plan.pdf", Content: []byte(testutil.PDF("ir"))},
		testutil.Entry{Name: "access_control/policies/a.pdf", Content: []byte(testutil.PDF("a"))},
		testutil.Entry{Name: "access_control/b.docx", Content: []byte("doc")},
	)

	controls, issues := Assemble(tree, domains, nil)
	assert.Empty(t, issues)
	require.Len(t, controls, 2)
	assert.Equal(t, "IR-001", controls[0].DomainID)
	assert.Equal(t, "AC-001", controls[1].DomainID)
	assert.Equal(t, []string{"a.pdf", "b.docx"}, controls[1].EvidenceNames())
	assert.Len(t, controls[1].PrimaryEvidence(), 1)
}

func TestAssemble_EmptyFolderAndLooseFiles(t *testing.T) {
	tree := readTree(t,
		testutil.Entry{Name: "readme.txt", Content: []byte("hi")},
		testutil.Entry{Name: "access_control/"},
		testutil.Entry{Name: "Incident Response/plan.pdf", Content: []byte(testutil.PDF("ir"))},
	)

	controls, issues := Assemble(tree, domains, taxonomy.ExactNameMatcher{})
	require.Len(t, controls, 1)
	assert.Equal(t, "IR-001", controls[0].DomainID)

	require.Len(t, issues, 2)
	assert.Equal(t, models.IssueEmptyEvidence, issues[0].Kind)
	assert.Equal(t, "access_control", issues[0].Subject)
	assert.Equal(t, models.IssueMapping, issues[1].Kind)
	assert.Contains(t, issues[1].Detail, "1 file(s)")
}

func TestAssemble_DuplicateFoldersMerge(t *testing.T) {
	tree := readTree(t,
		testutil.Entry{Name: "access_control/a.pdf", Content: []byte(testutil.PDF("a"))},
		testutil.Entry{Name: "ACCESS_CONTROL/b.pdf", Content: []byte(testutil.PDF("b"))},
	)

	controls, issues := Assemble(tree, domains, taxonomy.ExactNameMatcher{})
	assert.Empty(t, issues)
	require.Len(t, controls, 1)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, controls[0].EvidenceNames())
}

func TestDropWithoutPrimary(t *testing.T) {
	controls := []models.ControlEvidence{
		{DomainID: "AC-001", Folder: "access_control", Evidences: []models.ExtractedFile{{Name: "a.docx", Type: models.FileTypeOther}}},
		{DomainID: "IR-001", Folder: "ir", Evidences: []models.ExtractedFile{{Name: "b.pdf", Type: models.FileTypePDF, Base64: "Yg=="}}},
	}

	kept, issues := DropWithoutPrimary(controls)
	require.Len(t, kept, 1)
	assert.Equal(t, "IR-001", kept[0].DomainID)
	require.Len(t, issues, 1)
	assert.Equal(t, models.IssueEmptyEvidence, issues[0].Kind)
	assert.Equal(t, "AC-001", issues[0].Subject)
}
