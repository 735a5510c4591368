// Package taxonomy loads the domain taxonomy and resolves evidence folders
// against it.
package taxonomy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"gopkg.in/yaml.v3"

	"github.com/Lllllllleong/evidenceassessment/internal/models"
)

// Source provides the domain taxonomy for a run.
type Source interface {
	Load(ctx context.Context) ([]models.DomainDefinition, error)
}

// record accepts both the current field names and the legacy spreadsheet
// export keys.
type record struct {
	DomainID        string `json:"domainId" yaml:"domainId"`
	DomainName      string `json:"domainName" yaml:"domainName"`
	QuestionText    string `json:"questionText" yaml:"questionText"`
	DescriptionText string `json:"descriptionText" yaml:"descriptionText"`

	LegacyID          any    `json:"Domain_Id" yaml:"Domain_Id"`
	LegacyCode        string `json:"Domain_Code" yaml:"Domain_Code"`
	LegacyName        string `json:"Domain_Name" yaml:"Domain_Name"`
	LegacyQuestion    string `json:"Question" yaml:"Question"`
	LegacyDescription string `json:"Question_Description" yaml:"Question_Description"`
}

func (r record) definition() models.DomainDefinition {
	d := models.DomainDefinition{
		ID:              firstNonEmpty(r.DomainID, r.LegacyCode),
		Name:            firstNonEmpty(r.DomainName, r.LegacyName),
		QuestionText:    firstNonEmpty(r.QuestionText, r.LegacyQuestion),
		DescriptionText: firstNonEmpty(r.DescriptionText, r.LegacyDescription),
	}
	if d.ID == "" {
		if id, ok := r.LegacyID.(string); ok {
			d.ID = id
		}
	}
	return d
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// Decode parses a taxonomy document. format is "json" or "yaml". A JSON object
// wrapping the list under any key (e.g. {"data": [...]}) is unwrapped.
func Decode(data []byte, format string) ([]models.DomainDefinition, error) {
	var records []record
	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("failed to parse yaml taxonomy: %w", err)
		}
	default:
		list, err := unwrapJSONList(data)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(list, &records); err != nil {
			return nil, fmt.Errorf("failed to parse json taxonomy: %w", err)
		}
	}

	seen := make(map[string]bool, len(records))
	domains := make([]models.DomainDefinition, 0, len(records))
	for i, r := range records {
		d := r.definition()
		if d.ID == "" || d.Name == "" {
			slog.Warn("Skipping taxonomy record without id or name", "index", i)
			continue
		}
		if seen[d.ID] {
			slog.Warn("Skipping duplicate taxonomy record", "domainId", d.ID)
			continue
		}
		seen[d.ID] = true
		domains = append(domains, d)
	}
	return domains, nil
}

func unwrapJSONList(data []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("taxonomy document is empty")
	}
	if trimmed[0] == '[' {
		return trimmed, nil
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to parse json taxonomy: %w", err)
	}
	keys := make([]string, 0, len(wrapper))
	for k := range wrapper {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := bytes.TrimSpace(wrapper[k])
		if len(v) > 0 && v[0] == '[' {
			return v, nil
		}
	}
	return nil, fmt.Errorf("taxonomy document holds no list of domains")
}

func formatOf(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

// FileSource reads a bundled JSON or YAML taxonomy file.
type FileSource struct {
	Path string
}

func (s FileSource) Load(_ context.Context) ([]models.DomainDefinition, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy file %s: %w", s.Path, err)
	}
	return Decode(data, formatOf(s.Path))
}

// HTTPSource fetches the taxonomy from GET {BaseURL}/api/domains.
type HTTPSource struct {
	BaseURL string
	Path    string
	Client  *http.Client
}

func (s HTTPSource) Load(ctx context.Context) ([]models.DomainDefinition, error) {
	path := s.Path
	if path == "" {
		path = "/api/domains"
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(s.BaseURL, "/")+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build taxonomy request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch domain list: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch domain list: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read domain list: %w", err)
	}
	return Decode(data, "json")
}

// GCSSource reads the taxonomy document from a Cloud Storage object.
type GCSSource struct {
	Bucket *storage.BucketHandle
	Object string
}

func (s GCSSource) Load(ctx context.Context) ([]models.DomainDefinition, error) {
	reader, err := s.Bucket.Object(s.Object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open taxonomy object %s: %w", s.Object, err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy object %s: %w", s.Object, err)
	}
	return Decode(data, formatOf(s.Object))
}

// StaticSource serves a fixed list. Useful for tests and embedded defaults.
type StaticSource []models.DomainDefinition

func (s StaticSource) Load(_ context.Context) ([]models.DomainDefinition, error) {
	out := make([]models.DomainDefinition, len(s))
	copy(out, s)
	return out, nil
}

// NewSource picks a source from a URI: gs://bucket/object, an http(s) URL
// (the bare host selects /api/domains), or a local file path.
func NewSource(uri string, storageClient *storage.Client, httpClient *http.Client) (Source, error) {
	switch {
	case uri == "":
		return nil, fmt.Errorf("taxonomy source is not configured")
	case strings.HasPrefix(uri, "gs://"):
		bucket, object, ok := strings.Cut(strings.TrimPrefix(uri, "gs://"), "/")
		if !ok || bucket == "" || object == "" {
			return nil, fmt.Errorf("invalid taxonomy object URI %q", uri)
		}
		if storageClient == nil {
			return nil, fmt.Errorf("taxonomy source %q needs a storage client", uri)
		}
		return GCSSource{Bucket: storageClient.Bucket(bucket), Object: object}, nil
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		u, err := url.Parse(uri)
		if err != nil {
			return nil, fmt.Errorf("invalid taxonomy URL %q: %w", uri, err)
		}
		src := HTTPSource{BaseURL: u.Scheme + "://" + u.Host, Client: httpClient}
		if p := strings.TrimRight(u.Path, "/"); p != "" {
			src.Path = p
		}
		return src, nil
	default:
		return FileSource{Path: uri}, nil
	}
}
