package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/evidenceassessment/internal/models"
)

// DefaultConcurrency is the number of validation calls in flight in batch mode.
const DefaultConcurrency = 3

// RunBatch validates payloads with up to concurrency calls in flight. Results
// keep the order of payloads. Payloads not started before ctx is cancelled
// are left out and the outcome is marked cancelled.
func (o *Orchestrator) RunBatch(ctx context.Context, payloads []models.EvidencePayload, concurrency int) *Outcome {
	return o.runBatch(ctx, payloads, concurrency, nil)
}

// runBatch calls onDone with the payload index after each recorded result.
// onDone may be called from several goroutines at once.
func (o *Orchestrator) runBatch(ctx context.Context, payloads []models.EvidencePayload, concurrency int, onDone func(i int)) *Outcome {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	type slot struct {
		done   bool
		result models.LLMEvidenceResult
		kind   models.IssueKind
	}
	slots := make([]slot, len(payloads))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, p := range payloads {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := o.pacer.Wait(ctx); err != nil {
				return nil
			}
			logCtx := o.logger.With("controlId", p.ControlID, "mode", "batch")
			result, kind := o.validate(ctx, logCtx, p)
			if kind == models.IssueCancelled && ctx.Err() != nil {
				return nil
			}
			slots[i] = slot{done: true, result: result, kind: kind}
			if onDone != nil {
				onDone(i)
			}
			return nil
		})
	}
	_ = g.Wait()

	outcome := &Outcome{}
	completed := 0
	for _, s := range slots {
		if !s.done {
			continue
		}
		completed++
		outcome.add(s.result, s.kind)
	}
	if completed < len(payloads) {
		outcome.cancel(completed, len(payloads))
	}
	o.logger.Info("Batch assessment finished", "successCount", outcome.SuccessCount, "errorCount", outcome.ErrorCount, "concurrency", concurrency)
	return outcome
}

// RunControlsBatch expands controls into payloads and runs them with
// RunBatch. Controls without design elements get the same synthetic error
// result as in RunAssessment, after the validated results. When progress is
// non-nil one event is sent per control once all of its results are in; the
// channel is not closed.
func (o *Orchestrator) RunControlsBatch(ctx context.Context, controls []models.ControlEvidence, concurrency int, progress chan<- ProgressEvent) *Outcome {
	payloads, issues := BuildPayloads(controls, o.catalog)

	byID := make(map[string]models.ControlEvidence, len(controls))
	remaining := make(map[string]int, len(controls))
	for _, c := range controls {
		byID[c.DomainID] = c
	}
	for _, p := range payloads {
		remaining[p.ControlID]++
	}

	var mu sync.Mutex
	completed := 0
	finish := func(c models.ControlEvidence, label string) {
		completed++
		o.emit(ctx, progress, ProgressEvent{
			Current:   completed,
			Total:     len(controls),
			Label:     fmt.Sprintf("%s - %s", controlLabel(c), label),
			ControlID: c.DomainID,
		})
	}

	outcome := o.runBatch(ctx, payloads, concurrency, func(i int) {
		cid := payloads[i].ControlID
		mu.Lock()
		defer mu.Unlock()
		remaining[cid]--
		if remaining[cid] == 0 {
			finish(byID[cid], fmt.Sprintf("Processed %s", payloads[i].DesignElementID))
		}
	})

	for _, issue := range issues {
		outcome.add(noElementsResult(issue.Subject), models.IssueNoDesignElements)
		finish(byID[issue.Subject], "No design elements")
	}
	return outcome
}
