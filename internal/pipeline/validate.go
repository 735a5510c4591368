package pipeline

import (
	"context"
	"io"

	"github.com/Lllllllleong/evidenceassessment/internal/taxonomy"
)

// StructureCheck is the result of a pre-flight check of an upload.
type StructureCheck struct {
	Valid     bool                      `json:"valid"`
	Matched   map[string]string         `json:"matched"`
	Unmatched []string                  `json:"unmatched"`
	Expected  []taxonomy.ExpectedFolder `json:"expected"`
	Errors    []string                  `json:"errors"`
}

const noValidFolders = "No valid control folders found in zip file. Please ensure folders are named according to control standards."

// Validate reports whether at least one folder of the archive holding files
// maps to a domain, without calling the validator. An unreadable archive is
// reported as an invalid structure rather than an error; only a taxonomy
// failure returns an error.
func (p *Pipeline) Validate(ctx context.Context, ra io.ReaderAt, size int64) (*StructureCheck, error) {
	domains, err := p.loadDomains(ctx)
	if err != nil {
		return nil, err
	}
	check := &StructureCheck{
		Matched:  map[string]string{},
		Expected: taxonomy.ExpectedFolderNames(domains),
	}

	tree, err := p.cfg.Reader.Read(ra, size)
	if err != nil {
		check.Errors = append(check.Errors, "Invalid zip file: "+err.Error())
		return check, nil
	}

	for _, folder := range tree.Folders {
		if len(folder.Files) == 0 {
			continue
		}
		if d, ok := p.cfg.Matcher.Match(folder.Name, domains); ok {
			check.Matched[folder.Name] = d.ID
			continue
		}
		check.Unmatched = append(check.Unmatched, folder.Name)
	}
	check.Valid = len(check.Matched) > 0
	if !check.Valid {
		check.Errors = append(check.Errors, noValidFolders)
	}
	return check, nil
}
