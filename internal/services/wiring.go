package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"cloud.google.com/go/storage"

	"github.com/Lllllllleong/evidenceassessment/internal/archive"
	"github.com/Lllllllleong/evidenceassessment/internal/config"
	"github.com/Lllllllleong/evidenceassessment/internal/evidence"
	"github.com/Lllllllleong/evidenceassessment/internal/gcp"
	"github.com/Lllllllleong/evidenceassessment/internal/llm"
	"github.com/Lllllllleong/evidenceassessment/internal/metrics"
	"github.com/Lllllllleong/evidenceassessment/internal/orchestrator"
	"github.com/Lllllllleong/evidenceassessment/internal/pipeline"
	"github.com/Lllllllleong/evidenceassessment/internal/taxonomy"
)

// Closer releases clients opened while wiring a pipeline.
type Closer func() error

// NewTokenProvider picks the bearer token source for the HTTP validator: an
// ID token for VALIDATION_AUDIENCE when set, else the static API_TOKEN.
func NewTokenProvider(ctx context.Context, cfg *config.Config) (llm.TokenProvider, error) {
	if cfg.ValidationAudience != "" {
		return llm.NewIDTokenProvider(ctx, cfg.ValidationAudience)
	}
	return llm.StaticToken(cfg.APIToken), nil
}

// NewValidator builds the validator selected by VALIDATOR_BACKEND.
func NewValidator(ctx context.Context, cfg *config.Config) (llm.Validator, Closer, error) {
	switch cfg.ValidatorBackend {
	case config.BackendVertex:
		vertexClient, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.VertexAIRegion, cfg.VertexModel)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create vertex client: %w", err)
		}
		return vertexClient, vertexClient.Close, nil
	case config.BackendHTTP:
		tokens, err := NewTokenProvider(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create token provider: %w", err)
		}
		return llm.NewHTTPValidator(cfg.ValidationEndpoint, tokens, cfg.HTTPTimeout), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown validator backend %q", cfg.ValidatorBackend)
	}
}

// NewPacer returns the fixed pause for sequential runs and a token bucket
// sized to the concurrency in batch mode.
func NewPacer(cfg *config.Config) orchestrator.Pacer {
	if cfg.BatchMode {
		return orchestrator.NewRateLimit(cfg.CallDelay, cfg.BatchConcurrency)
	}
	return orchestrator.FixedPause{Pause: cfg.CallDelay}
}

// BuildPipeline wires a pipeline from configuration. storageClient is only
// needed for a gs:// taxonomy source; recorder may be nil.
func BuildPipeline(ctx context.Context, cfg *config.Config, storageClient *storage.Client, recorder *metrics.Recorder) (*pipeline.Pipeline, Closer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	source, err := taxonomy.NewSource(cfg.TaxonomySource, storageClient, &http.Client{Timeout: cfg.HTTPTimeout})
	if err != nil {
		return nil, nil, err
	}
	matcher, err := taxonomy.NewMatcher(cfg.MatchingStrategy)
	if err != nil {
		return nil, nil, err
	}
	if cfg.MatchingStrategy != "" && cfg.MatchingStrategy != taxonomy.StrategyExactName {
		slog.Warn("Using a deprecated folder matching strategy", "strategy", cfg.MatchingStrategy)
	}

	validator, closeValidator, err := NewValidator(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	var inspector *evidence.Inspector
	if cfg.InspectPDFs {
		inspector = evidence.NewInspector(cfg.MaxFileBytes)
	}

	p, err := pipeline.New(pipeline.Config{
		Source:           source,
		Validator:        validator,
		Matcher:          matcher,
		Reader:           archive.NewReader(cfg.MaxArchiveBytes),
		Inspector:        inspector,
		Pacer:            NewPacer(cfg),
		BatchMode:        cfg.BatchMode,
		BatchConcurrency: cfg.BatchConcurrency,
		Metrics:          recorder,
	})
	if err != nil {
		_ = closeValidator()
		return nil, nil, err
	}
	return p, closeValidator, nil
}
