package models

import "time"

// Run statuses stored on the Firestore run record.
const (
	RunReceived  = "RECEIVED"
	RunRunning   = "RUNNING"
	RunCompleted = "COMPLETED"
	RunFailed    = "FAILED"
)

// AssessmentRun is the Firestore record tracking one uploaded evidence archive.
type AssessmentRun struct {
	ArchiveHash         string    `firestore:"archiveHash,omitempty"`
	ArchiveURI          string    `firestore:"archiveUri,omitempty"`
	OriginalFilename    string    `firestore:"originalFilename,omitempty"`
	Status              string    `firestore:"status,omitempty"`
	ErrorDetails        string    `firestore:"errorDetails,omitempty"`
	TotalControls       int       `firestore:"totalControls,omitempty"`
	SuccessCount        int       `firestore:"successCount,omitempty"`
	ErrorCount          int       `firestore:"errorCount,omitempty"`
	Errors              []string  `firestore:"errors,omitempty"`
	ReportURI           string    `firestore:"reportUri,omitempty"`
	ResultsURI          string    `firestore:"resultsUri,omitempty"`
	Cancelled           bool      `firestore:"cancelled,omitempty"`
	WorkflowExecutionID string    `firestore:"workflowExecutionId,omitempty"` // For traceability
	CreatedAt           time.Time `firestore:"createdAt,omitempty"`
	UpdatedAt           time.Time `firestore:"updatedAt,omitempty"`
}
