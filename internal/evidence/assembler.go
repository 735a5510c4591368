// Package evidence groups archive folders into per-control evidence bundles.
package evidence

import (
	"log/slog"

	"github.com/Lllllllleong/evidenceassessment/internal/archive"
	"github.com/Lllllllleong/evidenceassessment/internal/models"
	"github.com/Lllllllleong/evidenceassessment/internal/taxonomy"
)

// Assemble resolves every folder of the tree against the taxonomy and returns
// one control per matched folder, in folder order. Folders that do not map to
// a domain, matched folders without files and loose files are reported as
// issues. Two folders resolving to the same domain are merged into the first.
func Assemble(tree *archive.Tree, domains []models.DomainDefinition, matcher taxonomy.Matcher) ([]models.ControlEvidence, []models.Issue) {
	if matcher == nil {
		matcher = taxonomy.ExactNameMatcher{}
	}
	var (
		controls []models.ControlEvidence
		issues   []models.Issue
		index    = make(map[string]int)
	)

	for _, folder := range tree.Folders {
		domain, ok := matcher.Match(folder.Name, domains)
		if !ok {
			issues = append(issues, models.NewIssue(models.IssueMapping, folder.Name,
				"folder does not match any domain name"))
			continue
		}
		if len(folder.Files) == 0 {
			issues = append(issues, models.NewIssue(models.IssueEmptyEvidence, folder.Name,
				"no evidence files found for domain %s", domain.ID))
			continue
		}

		if i, seen := index[domain.ID]; seen {
			slog.Warn("Merging duplicate domain folder", "folder", folder.Name, "domainId", domain.ID)
			controls[i].Evidences = append(controls[i].Evidences, folder.Files...)
			continue
		}
		index[domain.ID] = len(controls)
		evidences := make([]models.ExtractedFile, len(folder.Files))
		copy(evidences, folder.Files)
		controls = append(controls, models.ControlEvidence{
			DomainID:    domain.ID,
			DisplayName: domain.Name,
			Folder:      folder.Name,
			Evidences:   evidences,
		})
	}

	if n := len(tree.LooseFiles); n > 0 {
		issues = append(issues, models.NewIssue(models.IssueMapping, "archive root",
			"%d file(s) outside any domain folder were ignored", n))
	}
	return controls, issues
}

// DropWithoutPrimary removes controls that carry no file the validator can
// consume and reports each as an empty evidence issue.
func DropWithoutPrimary(controls []models.ControlEvidence) ([]models.ControlEvidence, []models.Issue) {
	var (
		kept   = make([]models.ControlEvidence, 0, len(controls))
		issues []models.Issue
	)
	for _, c := range controls {
		if len(c.PrimaryEvidence()) == 0 {
			issues = append(issues, models.NewIssue(models.IssueEmptyEvidence, c.DomainID,
				"no PDF evidence in folder %q", c.Folder))
			continue
		}
		kept = append(kept, c)
	}
	return kept, issues
}
