package archive

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/evidenceassessment/internal/models"
	"github.com/Lllllllleong/evidenceassessment/internal/testutil"
)

func folderNames(tree *Tree) []string {
	var names []string
	for _, f := range tree.Folders {
		names = append(names, f.Name)
	}
	return names
}

func TestRead_TopLevelFolders(t *testing.T) {
	data := testutil.ZipEntries(t,
		testutil.Entry{Name: "access_control/evidence.pdf", Content: []byte(testutil.PDF("ac"))},
		testutil.Entry{Name: "unknown_topic/file.pdf", Content: []byte(testutil.PDF("x"))},
	)

	tree, err := NewReader(0).ReadBytes(data)
	require.NoError(t, err)

	assert.Empty(t, tree.Root)
	assert.Equal(t, []string{"access_control", "unknown_topic"}, folderNames(tree))
	assert.Equal(t, 2, tree.TotalFiles)

	ac := tree.Folder("access_control")
	require.NotNil(t, ac)
	require.Len(t, ac.Files, 1)
	f := ac.Files[0]
	assert.Equal(t, "evidence.pdf", f.Name)
	assert.Equal(t, "access_control/evidence.pdf", f.FullPath)
	assert.Equal(t, models.FileTypePDF, f.Type)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte(testutil.PDF("ac"))), f.Base64)
	assert.Equal(t, "access_control/", ac.Prefix)
}

func TestRead_UnwrapsSingleRootFolder(t *testing.T) {
	data := testutil.ZipEntries(t,
		testutil.Entry{Name: "vendor/"},
		testutil.Entry{Name: "vendor/network_security/"},
		testutil.Entry{Name: "vendor/network_security/firewall.pdf", Content: []byte(testutil.PDF("fw"))},
		testutil.Entry{Name: "vendor/network_security/diagrams/topology.png", Content: []byte("png")},
		testutil.Entry{Name: "vendor/access_control/policy.PDF", Content: []byte(testutil.PDF("ac"))},
		testutil.Entry{Name: "vendor/readme.txt", Content: []byte("hello")},
	)

	tree, err := NewReader(0).ReadBytes(data)
	require.NoError(t, err)

	assert.Equal(t, "vendor", tree.Root)
	assert.Equal(t, []string{"network_security", "access_control"}, folderNames(tree))

	ns := tree.Folder("network_security")
	require.Len(t, ns.Files, 2)
	assert.Equal(t, "vendor/network_security/", ns.Prefix)
	assert.Equal(t, models.FileTypeOther, ns.Files[1].Type)
	assert.Equal(t, "vendor/network_security/diagrams/topology.png", ns.Files[1].FullPath)

	assert.Equal(t, models.FileTypePDF, tree.Folder("access_control").Files[0].Type)

	require.Len(t, tree.LooseFiles, 1)
	assert.Equal(t, "readme.txt", tree.LooseFiles[0].Name)
	assert.Equal(t, 4, tree.TotalFiles)
}

func TestRead_SingleFolderWithoutSubfoldersIsADomainFolder(t *testing.T) {
	data := testutil.Zip(t, map[string]string{
		"access_control/a.pdf": testutil.PDF("a"),
		"access_control/b.pdf": testutil.PDF("b"),
	})

	tree, err := NewReader(0).ReadBytes(data)
	require.NoError(t, err)
	assert.Empty(t, tree.Root)
	assert.Equal(t, []string{"access_control"}, folderNames(tree))
	assert.Len(t, tree.Folder("access_control").Files, 2)
}

// A lone domain folder with nested sub-folders is indistinguishable from a
// wrapper, so it is unwrapped and its sub-folders become the candidates.
func TestRead_SingleFolderWithNestedFoldersIsUnwrapped(t *testing.T) {
	data := testutil.Zip(t, map[string]string{
		"access_control/2024/policy.pdf": testutil.PDF("p"),
		"access_control/summary.pdf":     testutil.PDF("s"),
	})

	tree, err := NewReader(0).ReadBytes(data)
	require.NoError(t, err)
	assert.Equal(t, "access_control", tree.Root)
	assert.Equal(t, []string{"2024"}, folderNames(tree))
	require.Len(t, tree.LooseFiles, 1)
	assert.Equal(t, "summary.pdf", tree.LooseFiles[0].Name)
}

func TestRead_SkipsJunkEntries(t *testing.T) {
	data := testutil.ZipEntries(t,
		testutil.Entry{Name: "__MACOSX/access_control/._evidence.pdf", Content: []byte("junk")},
		testutil.Entry{Name: "access_control/.DS_Store", Content: []byte("junk")},
		testutil.Entry{Name: "access_control/evidence.pdf", Content: []byte(testutil.PDF("ac"))},
	)

	tree, err := NewReader(0).ReadBytes(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"access_control"}, folderNames(tree))
	assert.Equal(t, 1, tree.TotalFiles)
}

func TestRead_EmptyDirectoryIsKept(t *testing.T) {
	data := testutil.ZipEntries(t,
		testutil.Entry{Name: "access_control/"},
		testutil.Entry{Name: "incident_response/report.pdf", Content: []byte(testutil.PDF("ir"))},
	)

	tree, err := NewReader(0).ReadBytes(data)
	require.NoError(t, err)
	require.NotNil(t, tree.Folder("access_control"))
	assert.Empty(t, tree.Folder("access_control").Files)
}

func TestRead_InvalidArchive(t *testing.T) {
	_, err := NewReader(0).ReadBytes([]byte("definitely not a zip"))
	require.Error(t, err)

	var archiveErr *ArchiveError
	require.True(t, errors.As(err, &archiveErr))
	assert.Contains(t, err.Error(), "not a valid zip file")
}

func TestRead_EmptyInput(t *testing.T) {
	_, err := NewReader(0).ReadBytes(nil)
	var archiveErr *ArchiveError
	assert.ErrorAs(t, err, &archiveErr)
}

func TestRead_EnforcesMaxBytes(t *testing.T) {
	data := testutil.Zip(t, map[string]string{"access_control/a.pdf": testutil.PDF("a")})

	_, err := NewReader(int64(len(data) - 1)).ReadBytes(data)
	var archiveErr *ArchiveError
	require.ErrorAs(t, err, &archiveErr)
	assert.Contains(t, archiveErr.Reason, "limit")
}

func TestRead_BackslashPaths(t *testing.T) {
	data := testutil.ZipEntries(t,
		testutil.Entry{Name: "access_control\\evidence.pdf", Content: []byte(testutil.PDF("ac"))},
	)

	tree, err := NewReader(0).ReadBytes(data)
	require.NoError(t, err)
	require.NotNil(t, tree.Folder("access_control"))
	assert.Equal(t, "access_control/evidence.pdf", tree.Folder("access_control").Files[0].FullPath)
}

func TestFileTypeOf(t *testing.T) {
	assert.Equal(t, models.FileTypePDF, FileTypeOf("a/b/c.pdf"))
	assert.Equal(t, models.FileTypePDF, FileTypeOf("C.Pdf"))
	assert.Equal(t, models.FileTypeOther, FileTypeOf("scan.png"))
	assert.Equal(t, models.FileTypeOther, FileTypeOf("noext"))
}
