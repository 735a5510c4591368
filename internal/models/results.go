package models

// ResultStatus is the terminal state of one evidence submission.
type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusError   ResultStatus = "error"
)

// LLMEvidenceResult is the response to one (control, design element) submission.
// Answer is kept as the raw string returned by the endpoint.
type LLMEvidenceResult struct {
	ControlID       string       `json:"controlId"`
	DesignElementID string       `json:"designElementId"`
	Prompt          string       `json:"prompt"`
	Question        string       `json:"question"`
	Answer          string       `json:"answer"`
	Status          ResultStatus `json:"status"`
	Error           string       `json:"error,omitempty"`
}

// Answer values of a report row.
type Answer string

const (
	AnswerYes     Answer = "YES"
	AnswerNo      Answer = "NO"
	AnswerPartial Answer = "PARTIAL"
)

// Quality values of a report row.
type Quality string

const (
	QualityAdequate    Quality = "ADEQUATE"
	QualityInadequate  Quality = "INADEQUATE"
	QualityNeedsReview Quality = "NEEDS_REVIEW"
)

// ReportRow is one normalized line of the assessment report.
type ReportRow struct {
	ID              string       `json:"id"`
	ControlID       string       `json:"controlId"`
	DesignElementID string       `json:"designElementId"`
	Question        string       `json:"question"`
	Answer          Answer       `json:"answer"`
	Quality         Quality      `json:"quality"`
	Source          string       `json:"source"`
	Summary         string       `json:"summary"`
	Reference       string       `json:"reference"`
	Status          ResultStatus `json:"status"`
	Error           string       `json:"error,omitempty"`
	Evidence        []string     `json:"evidence,omitempty"`
}

// Report is everything a pipeline run hands back to its caller.
type Report struct {
	RunID         string              `json:"runId"`
	Rows          []ReportRow         `json:"rows"`
	Results       []LLMEvidenceResult `json:"results"`
	Controls      []ControlSummary    `json:"controls"`
	TotalFiles    int                 `json:"totalFiles"`
	TotalControls int                 `json:"totalControls"`
	SuccessCount  int                 `json:"successCount"`
	ErrorCount    int                 `json:"errorCount"`
	Issues        []Issue             `json:"issues"`
	Errors        []string            `json:"errors"`
	Cancelled     bool                `json:"cancelled"`
}

// ControlSummary describes a processed control without its file contents.
type ControlSummary struct {
	DomainID    string   `json:"domainId"`
	DisplayName string   `json:"displayName"`
	Evidence    []string `json:"evidence"`
}

// NoElementsID is the design element id given to the synthetic error result
// of a control that has no design elements.
func NoElementsID(controlID string) string {
	return controlID + "-error"
}
