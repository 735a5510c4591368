package report

import (
	"fmt"
	"strings"

	"github.com/Lllllllleong/evidenceassessment/internal/models"
)

const parseFailureSummary = "Failed to parse LLM response"

// ElementNumber returns the trailing segment of a design element id, e.g. "2"
// for "AC-001-sub-2".
func ElementNumber(elementID string) string {
	if i := strings.LastIndex(elementID, "-"); i >= 0 {
		return elementID[i+1:]
	}
	return elementID
}

// RowID is the report row identifier of a design element.
func RowID(controlID, elementID string) string {
	return fmt.Sprintf("%s-element-%s", controlID, ElementNumber(elementID))
}

func defaultReference(controlID, elementID string) string {
	return fmt.Sprintf("Domain_Id: %s - Element %s", controlID, ElementNumber(elementID))
}

// MapAnswer folds a free-form answer into YES, PARTIAL or NO.
func MapAnswer(s string) models.Answer {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(models.AnswerYes):
		return models.AnswerYes
	case string(models.AnswerPartial):
		return models.AnswerPartial
	default:
		return models.AnswerNo
	}
}

// MapQuality folds a free-form quality into ADEQUATE, INADEQUATE or NEEDS_REVIEW.
func MapQuality(s string) models.Quality {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(models.QualityAdequate):
		return models.QualityAdequate
	case string(models.QualityInadequate):
		return models.QualityInadequate
	default:
		return models.QualityNeedsReview
	}
}

func baseRow(control models.ControlEvidence, element models.DesignElementPrompt) models.ReportRow {
	question := element.Question
	if question == "" {
		question = element.Prompt
	}
	return models.ReportRow{
		ID:              RowID(control.DomainID, element.ElementID),
		ControlID:       control.DomainID,
		DesignElementID: element.ElementID,
		Question:        question,
		Source:          control.DomainID,
		Reference:       defaultReference(control.DomainID, element.ElementID),
		Evidence:        control.EvidenceNames(),
	}
}

// Normalize converts a raw answer into a report row. It always returns a row.
func Normalize(raw string, control models.ControlEvidence, element models.DesignElementPrompt) models.ReportRow {
	row := baseRow(control, element)

	switch p := Parse(raw).(type) {
	case Parsed:
		row.Status = models.StatusSuccess
		row.Answer = MapAnswer(p.Get("Answer"))
		row.Quality = MapQuality(p.Get("Answer_Quality", "Quality"))
		if s := p.Get("Source", "Answer_Source"); s != "" {
			row.Source = s
		}
		row.Summary = p.Get("Summary")
		if row.Summary == "" {
			row.Summary = p.Cleaned
		}
		if r := p.Get("Reference"); r != "" {
			row.Reference = r
		}
	case Fallback:
		row.Status = models.StatusError
		row.Answer = models.AnswerNo
		row.Quality = models.QualityInadequate
		row.Summary = p.Cleaned
		if row.Summary == "" {
			row.Summary = parseFailureSummary
		}
		row.Error = fmt.Sprintf("%s: %v", parseFailureSummary, p.Err)
	}
	return row
}

// NormalizeResult converts an orchestrator result into a report row. Failed
// calls become NO / NEEDS_REVIEW rows carrying the error.
func NormalizeResult(result models.LLMEvidenceResult, control models.ControlEvidence, element models.DesignElementPrompt) models.ReportRow {
	if result.Status == models.StatusSuccess {
		return Normalize(result.Answer, control, element)
	}

	if result.DesignElementID == models.NoElementsID(control.DomainID) {
		return models.ReportRow{
			ID:              control.DomainID,
			ControlID:       control.DomainID,
			DesignElementID: result.DesignElementID,
			Question:        "No design elements found",
			Answer:          models.AnswerNo,
			Quality:         models.QualityInadequate,
			Source:          "System",
			Summary:         result.Error,
			Reference:       "Domain_Id: " + control.DomainID,
			Status:          models.StatusError,
			Error:           result.Error,
		}
	}

	row := baseRow(control, element)
	row.Answer = models.AnswerNo
	row.Quality = models.QualityNeedsReview
	row.Status = models.StatusError
	row.Error = result.Error
	row.Summary = fmt.Sprintf("Failed to process %s - %s: %s", control.DomainID, element.ElementID, result.Error)
	return row
}
