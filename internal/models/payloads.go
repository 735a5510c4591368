package models

// These structs define the JSON payloads exchanged with the validation endpoint
// and between the Cloud Workflow and the worker Cloud Functions.

// EvidencePayload is the body of POST /api/validateDesignElements.
type EvidencePayload struct {
	ControlID       string   `json:"controlId"`
	DesignElementID string   `json:"designElementId"`
	Prompt          string   `json:"prompt"`
	Question        string   `json:"question"`
	Evidences       []string `json:"evidences"`
}

// ValidationResponse is the success body returned by the validation endpoint.
type ValidationResponse struct {
	DesignElementID string `json:"designElementId"`
	Answer          string `json:"answer"`
}

// ArchiveHandoff is the argument passed to the workflow by the intake function.
type ArchiveHandoff struct {
	RunID  string `json:"runId"`
	Bucket string `json:"bucket"`
	Object string `json:"object"`
}

// AssessmentRequest is the input for the assessment-runner function.
type AssessmentRequest struct {
	RunID       string `json:"runId"`
	Bucket      string `json:"bucket"`
	Object      string `json:"object"`
	ExecutionID string `json:"executionId"`
}

// AssessmentResponse is the output of the assessment-runner function.
type AssessmentResponse struct {
	Status        string   `json:"status"`
	RunID         string   `json:"runId"`
	ReportGCSUri  string   `json:"reportGcsUri"`
	ResultsGCSUri string   `json:"resultsGcsUri"`
	SuccessCount  int      `json:"successCount"`
	ErrorCount    int      `json:"errorCount"`
	Errors        []string `json:"errors"`
	Cancelled     bool     `json:"cancelled"`
}
