// Package pipeline runs one evidence archive through extraction, matching,
// validation and normalization.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Lllllllleong/evidenceassessment/internal/archive"
	"github.com/Lllllllleong/evidenceassessment/internal/elements"
	"github.com/Lllllllleong/evidenceassessment/internal/evidence"
	"github.com/Lllllllleong/evidenceassessment/internal/llm"
	"github.com/Lllllllleong/evidenceassessment/internal/metrics"
	"github.com/Lllllllleong/evidenceassessment/internal/models"
	"github.com/Lllllllleong/evidenceassessment/internal/orchestrator"
	"github.com/Lllllllleong/evidenceassessment/internal/report"
	"github.com/Lllllllleong/evidenceassessment/internal/taxonomy"
)

// Config holds the collaborators of a Pipeline. Source and Validator are
// required.
type Config struct {
	Source    taxonomy.Source
	Validator llm.Validator
	// Matcher defaults to taxonomy.ExactNameMatcher.
	Matcher taxonomy.Matcher
	// Reader defaults to archive.NewReader(archive.DefaultMaxBytes).
	Reader *archive.Reader
	// Inspector is optional; nil skips PDF inspection.
	Inspector *evidence.Inspector
	// Pacer defaults to a fixed 500ms pause between calls.
	Pacer            orchestrator.Pacer
	BatchMode        bool
	BatchConcurrency int
	Metrics          *metrics.Recorder
	Logger           *slog.Logger
}

type Pipeline struct {
	cfg Config
}

func New(cfg Config) (*Pipeline, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("pipeline: taxonomy source is required")
	}
	if cfg.Validator == nil {
		return nil, fmt.Errorf("pipeline: validator is required")
	}
	if cfg.Matcher == nil {
		cfg.Matcher = taxonomy.ExactNameMatcher{}
	}
	if cfg.Reader == nil {
		cfg.Reader = archive.NewReader(archive.DefaultMaxBytes)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{cfg: cfg}, nil
}

func (p *Pipeline) loadDomains(ctx context.Context) ([]models.DomainDefinition, error) {
	domains, err := p.cfg.Source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load domain taxonomy: %w", err)
	}
	if len(domains) == 0 {
		return nil, fmt.Errorf("failed to load domain taxonomy: no domains defined")
	}
	return domains, nil
}

// Run processes the archive behind ra. Only an unreadable archive or
// taxonomy returns an error; everything else is reported on the Report.
// progress may be nil and is not closed. Events count controls; in batch
// mode one event is sent per control as it completes.
func (p *Pipeline) Run(ctx context.Context, runID string, ra io.ReaderAt, size int64, progress chan<- orchestrator.ProgressEvent) (*models.Report, error) {
	logCtx := p.cfg.Logger.With("runId", runID)
	logCtx.Info("Starting assessment run.", "archiveBytes", size)

	domains, err := p.loadDomains(ctx)
	if err != nil {
		p.cfg.Metrics.ObserveArchive("failed")
		logCtx.Error("Taxonomy unavailable", "error", err)
		return nil, err
	}

	tree, err := p.cfg.Reader.Read(ra, size)
	if err != nil {
		p.cfg.Metrics.ObserveArchive("failed")
		logCtx.Error("Archive rejected", "error", err)
		return nil, err
	}
	issues := append([]models.Issue{}, tree.Issues...)

	controls, found := evidence.Assemble(tree, domains, p.cfg.Matcher)
	issues = append(issues, found...)
	if p.cfg.Inspector != nil {
		controls, found = p.cfg.Inspector.InspectAll(controls)
		issues = append(issues, found...)
	}
	controls, found = evidence.DropWithoutPrimary(controls)
	issues = append(issues, found...)
	logCtx.Info("Evidence assembled.", "totalFiles", tree.TotalFiles, "controls", len(controls), "issues", len(issues))

	catalog := elements.NewCatalog(domains)
	orch := orchestrator.New(orchestrator.Config{
		Validator: p.cfg.Validator,
		Catalog:   catalog,
		Pacer:     p.cfg.Pacer,
		Metrics:   p.cfg.Metrics,
		Logger:    logCtx,
	})

	var outcome *orchestrator.Outcome
	if p.cfg.BatchMode {
		outcome = orch.RunControlsBatch(ctx, controls, p.cfg.BatchConcurrency, progress)
	} else {
		outcome = orch.RunAssessment(ctx, controls, progress)
	}
	issues = append(issues, outcome.Issues...)

	rows := buildRows(outcome.Results, controls, catalog)
	rep := &models.Report{
		RunID:         runID,
		Rows:          rows,
		Results:       outcome.Results,
		Controls:      summarize(controls),
		TotalFiles:    tree.TotalFiles,
		TotalControls: len(controls),
		SuccessCount:  outcome.SuccessCount,
		ErrorCount:    outcome.ErrorCount,
		Issues:        issues,
		Errors:        models.IssueMessages(issues),
		Cancelled:     outcome.Cancelled,
	}

	p.cfg.Metrics.ObserveIssues(issues)
	p.cfg.Metrics.ObserveRows(rows)
	if rep.Cancelled {
		p.cfg.Metrics.ObserveArchive("cancelled")
	} else {
		p.cfg.Metrics.ObserveArchive("completed")
	}
	logCtx.Info("Assessment run complete.", "successCount", rep.SuccessCount, "errorCount", rep.ErrorCount, "cancelled", rep.Cancelled)
	return rep, nil
}

func buildRows(results []models.LLMEvidenceResult, controls []models.ControlEvidence, catalog *elements.Catalog) []models.ReportRow {
	byID := make(map[string]models.ControlEvidence, len(controls))
	for _, c := range controls {
		byID[c.DomainID] = c
	}

	rows := make([]models.ReportRow, 0, len(results))
	for _, r := range results {
		control, ok := byID[r.ControlID]
		if !ok {
			control = models.ControlEvidence{DomainID: r.ControlID}
		}
		element := models.DesignElementPrompt{
			DomainID:  r.ControlID,
			ElementID: r.DesignElementID,
			Question:  r.Question,
			Prompt:    r.Prompt,
		}
		if prompts, ok := catalog.DesignElements(r.ControlID); ok {
			for _, e := range prompts {
				if e.ElementID == r.DesignElementID {
					element = e
					break
				}
			}
		}
		rows = append(rows, report.NormalizeResult(r, control, element))
	}
	return rows
}

func summarize(controls []models.ControlEvidence) []models.ControlSummary {
	out := make([]models.ControlSummary, 0, len(controls))
	for _, c := range controls {
		out = append(out, models.ControlSummary{DomainID: c.DomainID, DisplayName: c.DisplayName, Evidence: c.EvidenceNames()})
	}
	return out
}

// IsArchiveError reports whether err came from an unreadable archive.
func IsArchiveError(err error) bool {
	var archiveErr *archive.ArchiveError
	return errors.As(err, &archiveErr)
}
