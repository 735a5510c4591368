// Package orchestrator submits every (control, design element) pair to the
// validator and collects the raw results.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lllllllleong/evidenceassessment/internal/llm"
	"github.com/Lllllllleong/evidenceassessment/internal/metrics"
	"github.com/Lllllllleong/evidenceassessment/internal/models"
)

// Catalog looks up the design element prompts of a control.
type Catalog interface {
	DesignElements(controlID string) ([]models.DesignElementPrompt, bool)
}

// ProgressEvent is emitted before each validation call, and for controls
// that are skipped because they have no design elements. Current and Total
// count controls, so every element of a control carries the same Current.
type ProgressEvent struct {
	Current         int    `json:"current"`
	Total           int    `json:"total"`
	Label           string `json:"label"`
	ControlID       string `json:"controlId"`
	DesignElementID string `json:"designElementId,omitempty"`
}

// Outcome is the result of a run. Results are in submission order.
type Outcome struct {
	Results      []models.LLMEvidenceResult
	SuccessCount int
	ErrorCount   int
	Errors       []string
	Issues       []models.Issue
	Cancelled    bool
}

func (o *Outcome) add(r models.LLMEvidenceResult, kind models.IssueKind) {
	o.Results = append(o.Results, r)
	if r.Status == models.StatusSuccess {
		o.SuccessCount++
		return
	}
	o.ErrorCount++
	issue := models.NewIssue(kind, r.DesignElementID, "%s", r.Error)
	o.Issues = append(o.Issues, issue)
	o.Errors = append(o.Errors, issue.Error())
}

func (o *Outcome) cancel(done, total int) {
	o.Cancelled = true
	issue := models.NewIssue(models.IssueCancelled, "assessment", "cancelled after %d of %d steps", done, total)
	o.Issues = append(o.Issues, issue)
	o.Errors = append(o.Errors, issue.Error())
}

// Config holds the collaborators of an Orchestrator.
type Config struct {
	Validator llm.Validator
	Catalog   Catalog
	// Pacer defaults to FixedPause{DefaultPause}.
	Pacer   Pacer
	Metrics *metrics.Recorder
	Logger  *slog.Logger
}

type Orchestrator struct {
	validator llm.Validator
	catalog   Catalog
	pacer     Pacer
	metrics   *metrics.Recorder
	logger    *slog.Logger
}

func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		validator: cfg.Validator,
		catalog:   cfg.Catalog,
		pacer:     cfg.Pacer,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}
	if o.pacer == nil {
		o.pacer = FixedPause{Pause: DefaultPause}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// BuildPayload assembles the request for one design element of a control.
func BuildPayload(control models.ControlEvidence, element models.DesignElementPrompt) models.EvidencePayload {
	return models.EvidencePayload{
		ControlID:       control.DomainID,
		DesignElementID: element.ElementID,
		Prompt:          element.Prompt,
		Question:        element.Question,
		Evidences:       control.PrimaryEvidence(),
	}
}

// BuildPayloads expands controls into one payload per design element.
// Controls without design elements are reported as issues.
func BuildPayloads(controls []models.ControlEvidence, catalog Catalog) ([]models.EvidencePayload, []models.Issue) {
	var (
		payloads []models.EvidencePayload
		issues   []models.Issue
	)
	for _, c := range controls {
		elements, ok := catalog.DesignElements(c.DomainID)
		if !ok {
			issues = append(issues, noElementsIssue(c.DomainID))
			continue
		}
		for _, e := range elements {
			payloads = append(payloads, BuildPayload(c, e))
		}
	}
	return payloads, issues
}

func noElementsResult(controlID string) models.LLMEvidenceResult {
	return models.LLMEvidenceResult{
		ControlID:       controlID,
		DesignElementID: models.NoElementsID(controlID),
		Question:        "No design elements found",
		Status:          models.StatusError,
		Error:           noElementsIssue(controlID).Detail,
	}
}

func noElementsIssue(controlID string) models.Issue {
	return models.NewIssue(models.IssueNoDesignElements, controlID, "No design elements found for Domain_Id: %s", controlID)
}

// RunAssessment validates every design element of every control, one call at
// a time, pausing between calls through the pacer. A failing element is
// recorded as an error result and the run continues. Progress events are
// sent on progress when it is non-nil; the channel is not closed. When ctx is
// cancelled the partial outcome is returned with Cancelled set.
func (o *Orchestrator) RunAssessment(ctx context.Context, controls []models.ControlEvidence, progress chan<- ProgressEvent) *Outcome {
	type step struct {
		control  models.ControlEvidence
		elements []models.DesignElementPrompt
	}
	steps := make([]step, 0, len(controls))
	total := 0
	for _, c := range controls {
		elements, _ := o.catalog.DesignElements(c.DomainID)
		steps = append(steps, step{control: c, elements: elements})
		if len(elements) == 0 {
			total++
		} else {
			total += len(elements)
		}
	}

	outcome := &Outcome{}
	done, calls := 0, 0
	for i, s := range steps {
		logCtx := o.logger.With("controlId", s.control.DomainID)
		if ctx.Err() != nil {
			outcome.cancel(done, total)
			return outcome
		}

		if len(s.elements) == 0 {
			done++
			o.emit(ctx, progress, ProgressEvent{
				Current:   i + 1,
				Total:     len(steps),
				Label:     fmt.Sprintf("%s - No design elements", controlLabel(s.control)),
				ControlID: s.control.DomainID,
			})
			logCtx.Warn("No design elements found for control")
			outcome.add(noElementsResult(s.control.DomainID), models.IssueNoDesignElements)
			continue
		}

		for _, element := range s.elements {
			if ctx.Err() != nil {
				outcome.cancel(done, total)
				return outcome
			}
			if calls > 0 {
				if err := o.pacer.Wait(ctx); err != nil {
					outcome.cancel(done, total)
					return outcome
				}
			}
			done++
			calls++
			o.emit(ctx, progress, ProgressEvent{
				Current:         i + 1,
				Total:           len(steps),
				Label:           fmt.Sprintf("%s - Processing %s", controlLabel(s.control), element.ElementID),
				ControlID:       s.control.DomainID,
				DesignElementID: element.ElementID,
			})

			result, kind := o.validate(ctx, logCtx, BuildPayload(s.control, element))
			if kind == models.IssueCancelled && ctx.Err() != nil {
				outcome.cancel(done-1, total)
				return outcome
			}
			outcome.add(result, kind)
		}
	}

	o.logger.Info("Assessment run finished", "successCount", outcome.SuccessCount, "errorCount", outcome.ErrorCount)
	return outcome
}

func (o *Orchestrator) validate(ctx context.Context, logCtx *slog.Logger, payload models.EvidencePayload) (models.LLMEvidenceResult, models.IssueKind) {
	result := models.LLMEvidenceResult{
		ControlID:       payload.ControlID,
		DesignElementID: payload.DesignElementID,
		Prompt:          payload.Prompt,
		Question:        payload.Question,
	}

	start := time.Now()
	answer, err := o.validator.Validate(ctx, payload)
	elapsed := time.Since(start)
	if err != nil {
		result.Status = models.StatusError
		result.Error = err.Error()
		o.metrics.ObserveCall(result.Status, elapsed)
		logCtx.Error("Design element validation failed", "designElementId", payload.DesignElementID, "error", err)
		return result, llm.Classify(ctx, err)
	}

	result.Status = models.StatusSuccess
	result.Answer = answer
	o.metrics.ObserveCall(result.Status, elapsed)
	logCtx.Info("Design element validated", "designElementId", payload.DesignElementID, "duration", elapsed)
	return result, ""
}

func controlLabel(c models.ControlEvidence) string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.DomainID
}

func (o *Orchestrator) emit(ctx context.Context, progress chan<- ProgressEvent, ev ProgressEvent) {
	if progress == nil {
		return
	}
	select {
	case progress <- ev:
	case <-ctx.Done():
	}
}
