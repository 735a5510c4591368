package taxonomy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacyJSON = `[
  {"Domain_Id": 1, "Domain_Code": "AC-001", "Domain_Name": "Access Control", "Sub_Domain_Name": "x",
   "Question": "How does the vendor implement access control mechanisms?",
   "Question_Description": "Design elements:\n1. MFA\n2. RBAC"},
  {"Domain_Id": "IR-001", "Domain_Name": "Incident Response", "Question": "Q?", "Question_Description": ""},
  {"Domain_Code": "", "Domain_Name": "nameless"},
  {"Domain_Code": "AC-001", "Domain_Name": "Duplicate"}
]`

func TestDecode_LegacyKeys(t *testing.T) {
	domains, err := Decode([]byte(legacyJSON), "json")
	require.NoError(t, err)
	require.Len(t, domains, 2)

	assert.Equal(t, "AC-001", domains[0].ID)
	assert.Equal(t, "Access Control", domains[0].Name)
	assert.Equal(t, "How does the vendor implement access control mechanisms?", domains[0].QuestionText)
	assert.Contains(t, domains[0].DescriptionText, "1. MFA")

	assert.Equal(t, "IR-001", domains[1].ID)
}

func TestDecode_WrappedObject(t *testing.T) {
	doc := `{"count": 1, "data": [{"domainId": "NS-001", "domainName": "network_security", "questionText": "Q", "descriptionText": "D"}]}`
	domains, err := Decode([]byte(doc), "json")
	require.NoError(t, err)
	require.Len(t, domains, 1)
	assert.Equal(t, "NS-001", domains[0].ID)
	assert.Equal(t, "network_security", domains[0].Name)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode([]byte("  "), "json")
	assert.Error(t, err)

	_, err = Decode([]byte(`{"data": {"not": "a list"}}`), "json")
	assert.Error(t, err)

	_, err = Decode([]byte(`[{`), "json")
	assert.Error(t, err)
}

func TestFileSource_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "domains.yaml")
	doc := `
- domainId: BC-001
  domainName: backup_recovery
  questionText: How does the vendor handle backup and recovery?
  descriptionText: |
    Design elements:
    1. Backup frequency
    2. Recovery testing
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	domains, err := FileSource{Path: path}.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, domains, 1)
	assert.Equal(t, "BC-001", domains[0].ID)
	assert.Contains(t, domains[0].DescriptionText, "2. Recovery testing")
}

func TestFileSource_Missing(t *testing.T) {
	_, err := FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}.Load(context.Background())
	assert.Error(t, err)
}

func TestHTTPSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/domains", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(legacyJSON))
	}))
	defer server.Close()

	domains, err := HTTPSource{BaseURL: server.URL + "/", Client: server.Client()}.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, domains, 2)
}

func TestHTTPSource_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := HTTPSource{BaseURL: server.URL}.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestStaticSource_ReturnsCopy(t *testing.T) {
	src := StaticSource{{ID: "A", Name: "a"}}
	domains, err := src.Load(context.Background())
	require.NoError(t, err)
	domains[0].Name = "changed"
	assert.Equal(t, "a", src[0].Name)
}

func TestNewSource(t *testing.T) {
	src, err := NewSource("https://taxonomy.example.com", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, HTTPSource{BaseURL: "https://taxonomy.example.com"}, src)

	src, err = NewSource("http://localhost:8080/static/domains.json", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, HTTPSource{BaseURL: "http://localhost:8080", Path: "/static/domains.json"}, src)

	src, err = NewSource("configs/domains.yaml", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, FileSource{Path: "configs/domains.yaml"}, src)

	_, err = NewSource("gs://bucket/domains.json", nil, nil)
	assert.ErrorContains(t, err, "storage client")

	_, err = NewSource("gs://bucket-only", nil, nil)
	assert.ErrorContains(t, err, "invalid taxonomy object URI")

	_, err = NewSource("", nil, nil)
	assert.Error(t, err)
}
