package report

import (
	"bufio"
	"io"
	"strings"

	"github.com/Lllllllleong/evidenceassessment/internal/models"
)

const (
	reportHeader  = "Question,Answer,Quality,Source,Summary,Reference"
	resultsHeader = "Control ID,Control Name,Design Element ID,Question,Answer,Status,Error"
)

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func writeLines(w io.Writer, header string, rows [][]string) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(header)
	bw.WriteString("\n")
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				bw.WriteByte(',')
			}
			bw.WriteString(quote(cell))
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}

// WriteCSV writes the assessment report. Every cell is double-quoted.
func WriteCSV(w io.Writer, rows []models.ReportRow) error {
	lines := make([][]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, []string{
			r.Question,
			string(r.Answer),
			string(r.Quality),
			orNA(r.Source),
			orNA(r.Summary),
			orNA(r.Reference),
		})
	}
	return writeLines(w, reportHeader, lines)
}

// WriteResultsCSV writes the raw orchestrator results. names maps control ids
// to display names.
func WriteResultsCSV(w io.Writer, results []models.LLMEvidenceResult, names map[string]string) error {
	lines := make([][]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, []string{
			r.ControlID,
			names[r.ControlID],
			r.DesignElementID,
			r.Question,
			r.Answer,
			string(r.Status),
			r.Error,
		})
	}
	return writeLines(w, resultsHeader, lines)
}
