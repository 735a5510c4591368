package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cloud.google.com/go/storage"

	"github.com/Lllllllleong/evidenceassessment/internal/config"
	"github.com/Lllllllleong/evidenceassessment/internal/gcp"
	"github.com/Lllllllleong/evidenceassessment/internal/metrics"
	"github.com/Lllllllleong/evidenceassessment/internal/models"
	"github.com/Lllllllleong/evidenceassessment/internal/orchestrator"
	"github.com/Lllllllleong/evidenceassessment/internal/pipeline"
	"github.com/Lllllllleong/evidenceassessment/internal/report"
)

const uploadRetries = 4

// AssessmentFunction runs the evidence pipeline for one registered archive.
// The instance owns its validator client until Close.
type AssessmentFunction struct {
	storageClient  *storage.Client
	runs           *gcp.RunStore
	pipeline       *pipeline.Pipeline
	closeValidator Closer
	closeOnce      sync.Once
	config         *config.Config
}

// NewAssessment wires the assessment clients. recorder may be nil.
func NewAssessment(ctx context.Context, recorder *metrics.Recorder) (*AssessmentFunction, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireCloud(); err != nil {
		return nil, err
	}
	if cfg.ReportsBucket == "" {
		return nil, fmt.Errorf("REPORTS_BUCKET environment variable must be set")
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	p, closeValidator, err := BuildPipeline(ctx, cfg, storageClient, recorder)
	if err != nil {
		_ = storageClient.Close()
		_ = firestoreClient.Close()
		return nil, err
	}

	slog.Info("Assessment logic initialized.", "validatorBackend", cfg.ValidatorBackend, "batchMode", cfg.BatchMode)
	return &AssessmentFunction{
		storageClient:  storageClient,
		runs:           gcp.NewRunStore(firestoreClient, cfg.FirestoreCollection),
		pipeline:       p,
		closeValidator: closeValidator,
		config:         cfg,
	}, nil
}

// Close releases the validator client. Later calls are no-ops.
func (f *AssessmentFunction) Close() error {
	var err error
	f.closeOnce.Do(func() {
		if f.closeValidator != nil {
			err = f.closeValidator()
		}
	})
	return err
}

// ReportObjectName is the reports-bucket object holding the report CSV of a run.
func ReportObjectName(runID string) string {
	return fmt.Sprintf("%s/report.csv", runID)
}

// ResultsObjectName is the reports-bucket object holding the raw results CSV of a run.
func ResultsObjectName(runID string) string {
	return fmt.Sprintf("%s/results.csv", runID)
}

// ControlNames maps each control id of rep to its folder display name.
func ControlNames(rep *models.Report) map[string]string {
	names := make(map[string]string, len(rep.Controls))
	for _, c := range rep.Controls {
		names[c.DomainID] = c.DisplayName
	}
	return names
}

// RenderCSVs returns the report CSV and the results CSV of rep.
func RenderCSVs(rep *models.Report) ([]byte, []byte, error) {
	var reportBuf, resultsBuf bytes.Buffer
	if err := report.WriteCSV(&reportBuf, rep.Rows); err != nil {
		return nil, nil, fmt.Errorf("failed to render report csv: %w", err)
	}
	if err := report.WriteResultsCSV(&resultsBuf, rep.Results, ControlNames(rep)); err != nil {
		return nil, nil, fmt.Errorf("failed to render results csv: %w", err)
	}
	return reportBuf.Bytes(), resultsBuf.Bytes(), nil
}

// LogProgress logs progress events until events is closed.
func LogProgress(logCtx *slog.Logger, events <-chan orchestrator.ProgressEvent) {
	for ev := range events {
		logCtx.Info("Assessment progress.",
			"current", ev.Current,
			"total", ev.Total,
			"controlId", ev.ControlID,
			"designElementId", ev.DesignElementID,
			"label", ev.Label,
		)
	}
}

func (f *AssessmentFunction) Process(ctx context.Context, req *models.AssessmentRequest) (*models.AssessmentResponse, error) {
	logCtx := slog.With("runId", req.RunID, "executionId", req.ExecutionID)
	logCtx.Info("Starting assessment.", "gcsBucket", req.Bucket, "gcsObject", req.Object)

	if req.RunID == "" || req.Bucket == "" || req.Object == "" {
		return nil, fmt.Errorf("runId, bucket and object are required")
	}
	if err := f.runs.MarkRunning(ctx, req.RunID, req.ExecutionID); err != nil {
		logCtx.Error("Failed to mark run as running", "error", err)
		return nil, err
	}

	tempDir, err := os.MkdirTemp("", "assessment-*")
	if err != nil {
		return nil, f.handleError(ctx, logCtx, req.RunID, "failed to create temp dir", err)
	}
	defer os.RemoveAll(tempDir)

	archivePath := filepath.Join(tempDir, "evidence.zip")
	size, err := gcp.StreamObjectToFile(ctx, f.storageClient, req.Bucket, req.Object, archivePath)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, req.RunID, "failed to download archive", err)
	}
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, req.RunID, "failed to open archive", err)
	}
	defer archiveFile.Close()

	progress := make(chan orchestrator.ProgressEvent, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		LogProgress(logCtx, progress)
	}()
	rep, err := f.pipeline.Run(ctx, req.RunID, archiveFile, size, progress)
	close(progress)
	<-done
	if err != nil {
		return nil, f.handleError(ctx, logCtx, req.RunID, "assessment failed", err)
	}

	reportCSV, resultsCSV, err := RenderCSVs(rep)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, req.RunID, "failed to render reports", err)
	}
	bucket := f.storageClient.Bucket(f.config.ReportsBucket)
	reportObject := ReportObjectName(req.RunID)
	resultsObject := ResultsObjectName(req.RunID)
	if err := gcp.SaveWithRetry(ctx, bucket, reportObject, reportCSV, uploadRetries, time.Second); err != nil {
		return nil, f.handleError(ctx, logCtx, req.RunID, "failed to save report", err)
	}
	if err := gcp.SaveWithRetry(ctx, bucket, resultsObject, resultsCSV, uploadRetries, time.Second); err != nil {
		return nil, f.handleError(ctx, logCtx, req.RunID, "failed to save results", err)
	}

	reportURI := gcp.ObjectURI(f.config.ReportsBucket, reportObject)
	resultsURI := gcp.ObjectURI(f.config.ReportsBucket, resultsObject)
	if err := f.runs.Complete(ctx, req.RunID, rep, reportURI, resultsURI); err != nil {
		logCtx.Error("Failed to record completed run", "error", err)
		return nil, err
	}

	logCtx.Info("Assessment complete.", "reportUri", reportURI, "successCount", rep.SuccessCount, "errorCount", rep.ErrorCount)
	return &models.AssessmentResponse{
		Status:        "success",
		RunID:         req.RunID,
		ReportGCSUri:  reportURI,
		ResultsGCSUri: resultsURI,
		SuccessCount:  rep.SuccessCount,
		ErrorCount:    rep.ErrorCount,
		Errors:        rep.Errors,
		Cancelled:     rep.Cancelled,
	}, nil
}

func (f *AssessmentFunction) handleError(ctx context.Context, logCtx *slog.Logger, runID, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr, "archiveError", pipeline.IsArchiveError(originalErr))
	if err := f.runs.UpdateStatus(ctx, runID, models.RunFailed, fullError); err != nil {
		logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s", fullError)
}
