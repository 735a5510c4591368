// Package config loads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendHTTP   = "http"
	BackendVertex = "vertex"
)

// Config holds every setting used by the functions and the local runner.
type Config struct {
	ProjectID           string `mapstructure:"project_id"`
	VertexAIRegion      string `mapstructure:"vertex_ai_region"`
	VertexModel         string `mapstructure:"vertex_model"`
	ReportsBucket       string `mapstructure:"reports_bucket"`
	FirestoreCollection string `mapstructure:"firestore_collection"`
	WorkflowID          string `mapstructure:"workflow_id"`
	WorkflowLocation    string `mapstructure:"workflow_location"`

	ValidatorBackend   string        `mapstructure:"validator_backend"`
	ValidationEndpoint string        `mapstructure:"validation_endpoint"`
	ValidationAudience string        `mapstructure:"validation_audience"`
	APIToken           string        `mapstructure:"api_token"`
	HTTPTimeout        time.Duration `mapstructure:"http_timeout"`

	TaxonomySource   string `mapstructure:"taxonomy_source"`
	MatchingStrategy string `mapstructure:"matching_strategy"`

	CallDelay        time.Duration `mapstructure:"call_delay"`
	BatchMode        bool          `mapstructure:"batch_mode"`
	BatchConcurrency int           `mapstructure:"batch_concurrency"`
	MaxArchiveBytes  int64         `mapstructure:"max_archive_bytes"`
	MaxFileBytes     int64         `mapstructure:"max_file_bytes"`
	InspectPDFs      bool          `mapstructure:"inspect_pdfs"`
}

var defaults = map[string]any{
	"project_id":           "",
	"vertex_ai_region":     "us-central1",
	"vertex_model":         "gemini-1.5-pro",
	"reports_bucket":       "",
	"firestore_collection": "assessments",
	"workflow_id":          "evidence-assessment-orchestrator",
	"workflow_location":    "us-central1",
	"validator_backend":    BackendHTTP,
	"validation_endpoint":  "",
	"validation_audience":  "",
	"api_token":            "",
	"http_timeout":         2 * time.Minute,
	"taxonomy_source":      "",
	"matching_strategy":    "exact",
	"call_delay":           500 * time.Millisecond,
	"batch_mode":           false,
	"batch_concurrency":    3,
	"max_archive_bytes":    int64(100 << 20),
	"max_file_bytes":       int64(10 << 20),
	"inspect_pdfs":         true,
}

// Load reads the given .env files (missing files are skipped, existing
// environment variables win) and then the environment. With no files, ".env"
// in the working directory is tried. Callers run Validate or RequireCloud for
// the settings they depend on.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, path := range envFiles {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		slog.Debug("Loaded env file", "path", path)
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings needed to run assessments.
func (c *Config) Validate() error {
	switch c.ValidatorBackend {
	case BackendHTTP:
		if c.ValidationEndpoint == "" {
			return fmt.Errorf("VALIDATION_ENDPOINT must be set for the %s validator", BackendHTTP)
		}
	case BackendVertex:
	default:
		return fmt.Errorf("VALIDATOR_BACKEND must be %q or %q, got %q", BackendHTTP, BackendVertex, c.ValidatorBackend)
	}
	if c.BatchConcurrency < 1 {
		return fmt.Errorf("BATCH_CONCURRENCY must be positive, got %d", c.BatchConcurrency)
	}
	if c.CallDelay < 0 {
		return fmt.Errorf("CALL_DELAY cannot be negative")
	}
	if c.MaxArchiveBytes <= 0 || c.MaxFileBytes <= 0 {
		return fmt.Errorf("MAX_ARCHIVE_BYTES and MAX_FILE_BYTES must be positive")
	}
	return nil
}

// RequireCloud checks the settings needed by the Cloud Functions.
func (c *Config) RequireCloud() error {
	if c.ProjectID == "" {
		return fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	if c.ValidatorBackend == BackendVertex && c.VertexAIRegion == "" {
		return fmt.Errorf("VERTEX_AI_REGION environment variable must be set")
	}
	return nil
}
