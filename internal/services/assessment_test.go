package services

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/evidenceassessment/internal/models"
	"github.com/Lllllllleong/evidenceassessment/internal/orchestrator"
)

func TestObjectNames(t *testing.T) {
	assert.Equal(t, "run-1/report.csv", ReportObjectName("run-1"))
	assert.Equal(t, "run-1/results.csv", ResultsObjectName("run-1"))
}

func TestRenderCSVs(t *testing.T) {
	rep := &models.Report{
		Controls: []models.ControlSummary{{DomainID: "CID-1", DisplayName: "Access Control"}},
		Rows: []models.ReportRow{{
			ID:       "CID-1-element-1",
			Question: "Is MFA enforced",
			Answer:   models.AnswerYes,
			Quality:  models.QualityAdequate,
			Source:   "policy.pdf",
			Summary:  "MFA is enforced",
		}},
		Results: []models.LLMEvidenceResult{{
			ControlID:       "CID-1",
			DesignElementID: "CID-1-sub-1",
			Question:        "Is MFA enforced",
			Answer:          `{"Answer":"Yes"}`,
			Status:          models.StatusSuccess,
		}},
	}

	reportCSV, resultsCSV, err := RenderCSVs(rep)
	require.NoError(t, err)

	reportLines := strings.Split(strings.TrimSpace(string(reportCSV)), "\n")
	require.Len(t, reportLines, 2)
	assert.Equal(t, "Question,Answer,Quality,Source,Summary,Reference", reportLines[0])
	assert.Contains(t, reportLines[1], `"Is MFA enforced","YES","ADEQUATE"`)

	assert.Contains(t, string(resultsCSV), `"CID-1","Access Control","CID-1-sub-1"`)
}

func TestLogProgress(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	events := make(chan orchestrator.ProgressEvent, 2)
	events <- orchestrator.ProgressEvent{Current: 1, Total: 1, ControlID: "CID-1", DesignElementID: "CID-1-sub-1"}
	events <- orchestrator.ProgressEvent{Current: 1, Total: 1, ControlID: "CID-1", DesignElementID: "CID-1-sub-2"}
	close(events)

	LogProgress(logger, events)
	assert.Equal(t, 2, strings.Count(buf.String(), "Assessment progress."))
	assert.Contains(t, buf.String(), `"designElementId":"CID-1-sub-2"`)
}

func TestAssessmentFunction_CloseReleasesValidatorOnce(t *testing.T) {
	calls := 0
	f := &AssessmentFunction{closeValidator: func() error {
		calls++
		return nil
	}}

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
	assert.Equal(t, 1, calls)

	assert.NoError(t, (&AssessmentFunction{}).Close())
}
