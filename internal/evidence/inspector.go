package evidence

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Lllllllleong/evidenceassessment/internal/models"
)

// DefaultMaxFileBytes is the largest single evidence file sent for validation.
const DefaultMaxFileBytes int64 = 10 << 20

// Inspector checks evidence files before they are submitted. PDFs are parsed
// to confirm they are readable and to record their page count.
type Inspector struct {
	MaxFileBytes int64
	conf         *model.Configuration
}

func NewInspector(maxFileBytes int64) *Inspector {
	if maxFileBytes <= 0 {
		maxFileBytes = DefaultMaxFileBytes
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Inspector{MaxFileBytes: maxFileBytes, conf: conf}
}

// Inspect returns a copy of the control with unreadable or oversize PDFs
// demoted to FileTypeOther, plus one issue per demoted file.
func (i *Inspector) Inspect(control models.ControlEvidence) (models.ControlEvidence, []models.Issue) {
	logCtx := slog.With("domainId", control.DomainID)
	var issues []models.Issue

	out := control
	out.Evidences = make([]models.ExtractedFile, len(control.Evidences))
	for n, file := range control.Evidences {
		out.Evidences[n] = file
		if !file.IsPrimary() {
			continue
		}
		if file.Size > i.MaxFileBytes {
			logCtx.Warn("Evidence file over size limit", "file", file.FullPath, "size", file.Size)
			issues = append(issues, models.NewIssue(models.IssueArchive, file.FullPath,
				"file is %d bytes, limit is %d; not submitted", file.Size, i.MaxFileBytes))
			out.Evidences[n].Type = models.FileTypeOther
			continue
		}
		pages, err := i.pageCount(file.Content)
		if err != nil {
			logCtx.Warn("Unreadable PDF evidence", "file", file.FullPath, "error", err)
			issues = append(issues, models.NewIssue(models.IssueArchive, file.FullPath,
				"unreadable PDF, not submitted: %v", err))
			out.Evidences[n].Type = models.FileTypeOther
			continue
		}
		out.Evidences[n].PageCount = pages
	}
	return out, issues
}

// InspectAll runs Inspect over every control, preserving order.
func (i *Inspector) InspectAll(controls []models.ControlEvidence) ([]models.ControlEvidence, []models.Issue) {
	var issues []models.Issue
	out := make([]models.ControlEvidence, 0, len(controls))
	for _, c := range controls {
		inspected, found := i.Inspect(c)
		out = append(out, inspected)
		issues = append(issues, found...)
	}
	return out, issues
}

func (i *Inspector) pageCount(content []byte) (n int, err error) {
	// pdfcpu can panic on badly malformed input.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()
	if len(content) == 0 {
		return 0, fmt.Errorf("empty file")
	}
	return api.PageCount(bytes.NewReader(content), i.conf)
}
