package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"

	"github.com/Lllllllleong/evidenceassessment/internal/config"
	"github.com/Lllllllleong/evidenceassessment/internal/gcp"
	"github.com/Lllllllleong/evidenceassessment/internal/metrics"
	"github.com/Lllllllleong/evidenceassessment/internal/models"
)

// IntakeFunction registers uploaded evidence archives and hands them to the workflow.
type IntakeFunction struct {
	storageClient *storage.Client
	runs          *gcp.RunStore
	workflow      *gcp.WorkflowTrigger
	metrics       *metrics.Recorder
	config        *config.Config
}

// GCSEvent is the payload of a storage object finalize event.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
	Size   int64  `json:"size,string,omitempty"`
}

// NewIntake wires the intake clients. recorder may be nil.
func NewIntake(ctx context.Context, recorder *metrics.Recorder) (*IntakeFunction, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireCloud(); err != nil {
		return nil, err
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	executionsClient, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
	}

	f := &IntakeFunction{
		storageClient: storageClient,
		runs:          gcp.NewRunStore(firestoreClient, cfg.FirestoreCollection),
		workflow:      gcp.NewWorkflowTrigger(executionsClient, cfg.ProjectID, cfg.WorkflowLocation, cfg.WorkflowID),
		metrics:       recorder,
		config:        cfg,
	}
	slog.Info("Archive intake logic initialized.", "workflowId", cfg.WorkflowID)
	return f, nil
}

// IsArchiveObject reports whether an uploaded object name looks like a ZIP archive.
func IsArchiveObject(name string) bool {
	return strings.EqualFold(path.Ext(name), ".zip")
}

func (f *IntakeFunction) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	if !IsArchiveObject(e.Name) {
		logCtx.Info("Ignoring non-archive object.")
		return nil
	}
	logCtx.Info("Processing uploaded evidence archive.")

	archiveHash, size, err := f.hashObject(ctx, e.Bucket, e.Name)
	if err != nil {
		logCtx.Error("Failed to hash archive", "error", err)
		return err
	}
	logCtx = logCtx.With("archiveHash", archiveHash, "size", size)

	existingID, found, err := f.runs.FindByHash(ctx, archiveHash)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return err
	}
	if found {
		logCtx.Info("Duplicate archive detected. Skipping.", "existingRunId", existingID)
		return nil
	}

	runID, err := f.runs.Create(ctx, models.AssessmentRun{
		ArchiveHash:      archiveHash,
		ArchiveURI:       gcp.ObjectURI(e.Bucket, e.Name),
		OriginalFilename: path.Base(e.Name),
		Status:           models.RunReceived,
	})
	if err != nil {
		logCtx.Error("Failed to create run record", "error", err)
		return err
	}
	logCtx = logCtx.With("runId", runID)
	logCtx.Info("Created run record in Firestore.")

	if err := CheckArchiveSize(size, f.config.MaxArchiveBytes); err != nil {
		f.metrics.ObserveArchive("rejected")
		return f.handleError(ctx, logCtx, runID, "archive rejected", err)
	}

	executionName, err := f.workflow.Trigger(ctx, models.ArchiveHandoff{RunID: runID, Bucket: e.Bucket, Object: e.Name})
	if err != nil {
		return f.handleError(ctx, logCtx, runID, "failed to trigger workflow execution", err)
	}

	logCtx.Info("Hand-off to workflow complete.", "execution", executionName)
	return nil
}

// CheckArchiveSize rejects archives larger than limit. A non-positive limit disables the check.
func CheckArchiveSize(size, limit int64) error {
	if limit > 0 && size > limit {
		return fmt.Errorf("archive is %d bytes, limit is %d bytes", size, limit)
	}
	return nil
}

func (f *IntakeFunction) hashObject(ctx context.Context, bucket, object string) (string, int64, error) {
	reader, err := f.storageClient.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("failed to get GCS object reader for %s: %w", gcp.ObjectURI(bucket, object), err)
	}
	defer reader.Close()
	return HashContent(reader)
}

// HashContent returns the hex SHA-256 of r and the number of bytes read.
func HashContent(r io.Reader) (string, int64, error) {
	hash := sha256.New()
	n, err := io.Copy(hash, r)
	if err != nil {
		return "", 0, fmt.Errorf("failed to hash content: %w", err)
	}
	return hex.EncodeToString(hash.Sum(nil)), n, nil
}

func (f *IntakeFunction) handleError(ctx context.Context, logCtx *slog.Logger, runID, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if err := f.runs.UpdateStatus(ctx, runID, models.RunFailed, fullError); err != nil {
		logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s", fullError)
}
