package gcp

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"github.com/Lllllllleong/evidenceassessment/internal/models"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
// It centralizes client creation for all services.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// RunStore persists assessment run records in one Firestore collection.
type RunStore struct {
	client     *firestore.Client
	collection string
}

func NewRunStore(client *firestore.Client, collection string) *RunStore {
	return &RunStore{client: client, collection: collection}
}

func (s *RunStore) doc(runID string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(runID)
}

// FindByHash returns the id of an existing run for the same archive content.
func (s *RunStore) FindByHash(ctx context.Context, archiveHash string) (string, bool, error) {
	docs, err := s.client.Collection(s.collection).Where("archiveHash", "==", archiveHash).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return "", false, fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if len(docs) > 0 {
		return docs[0].Ref.ID, true, nil
	}
	return "", false, nil
}

// Create stores a new run under a fresh id and returns that id.
func (s *RunStore) Create(ctx context.Context, run models.AssessmentRun) (string, error) {
	runID := uuid.NewString()
	now := time.Now()
	run.CreatedAt = now
	run.UpdatedAt = now
	if run.Status == "" {
		run.Status = models.RunReceived
	}
	if _, err := s.doc(runID).Create(ctx, run); err != nil {
		return "", fmt.Errorf("failed to create run document: %w", err)
	}
	return runID, nil
}

// UpdateStatus sets the run status and, when non-empty, the error details.
func (s *RunStore) UpdateStatus(ctx context.Context, runID, status, errDetails string) error {
	updates := []firestore.Update{
		{Path: "status", Value: status},
		{Path: "updatedAt", Value: time.Now()},
	}
	if errDetails != "" {
		updates = append(updates, firestore.Update{Path: "errorDetails", Value: errDetails})
	}
	if _, err := s.doc(runID).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to update run %s to %s: %w", runID, status, err)
	}
	return nil
}

// MarkRunning records the workflow execution that picked up the run.
func (s *RunStore) MarkRunning(ctx context.Context, runID, executionID string) error {
	updates := []firestore.Update{
		{Path: "status", Value: models.RunRunning},
		{Path: "updatedAt", Value: time.Now()},
	}
	if executionID != "" {
		updates = append(updates, firestore.Update{Path: "workflowExecutionId", Value: executionID})
	}
	if _, err := s.doc(runID).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to mark run %s as running: %w", runID, err)
	}
	return nil
}

// Complete stores the counts and report locations of a finished run.
func (s *RunStore) Complete(ctx context.Context, runID string, report *models.Report, reportURI, resultsURI string) error {
	errs := report.Errors
	if errs == nil {
		errs = []string{}
	}
	updates := []firestore.Update{
		{Path: "status", Value: models.RunCompleted},
		{Path: "totalControls", Value: report.TotalControls},
		{Path: "successCount", Value: report.SuccessCount},
		{Path: "errorCount", Value: report.ErrorCount},
		{Path: "errors", Value: errs},
		{Path: "cancelled", Value: report.Cancelled},
		{Path: "reportUri", Value: reportURI},
		{Path: "resultsUri", Value: resultsURI},
		{Path: "updatedAt", Value: time.Now()},
	}
	if _, err := s.doc(runID).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to complete run %s: %w", runID, err)
	}
	return nil
}
