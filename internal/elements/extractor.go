// Package elements derives one prompt per numbered design element found in a
// domain's question description.
package elements

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Lllllllleong/evidenceassessment/internal/models"
)

var (
	markerRegex   = regexp.MustCompile(`(?i)(?:document the following )?design elements?:`)
	numberedRegex = regexp.MustCompile(`^\s*\d+\.\s*`)
	bracketRegex  = regexp.MustCompile(`\s*\[[^\]]*\]\s*$`)
)

// SubItems returns the numbered items listed after the design element marker,
// with their numbering removed, in source order.
func SubItems(description string) []string {
	loc := markerRegex.FindStringIndex(description)
	if loc == nil {
		return nil
	}
	var items []string
	for _, line := range strings.Split(description[loc[1]:], "\n") {
		line = strings.TrimRight(line, "\r")
		if !numberedRegex.MatchString(line) {
			continue
		}
		item := strings.TrimSpace(numberedRegex.ReplaceAllString(line, ""))
		if item == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}

// BaseQuestion strips a trailing bracketed clause and question mark.
func BaseQuestion(question string) string {
	q := strings.TrimSpace(question)
	for {
		stripped := strings.TrimSpace(strings.TrimSuffix(bracketRegex.ReplaceAllString(q, ""), "?"))
		if stripped == q {
			return q
		}
		q = stripped
	}
}

// ElementID builds the identifier of the n-th (1-based) element of a domain.
func ElementID(domainID string, n int) string {
	return fmt.Sprintf("%s-sub-%d", domainID, n)
}

// Extract returns the prompts for a domain. A domain without numbered design
// elements yields exactly one prompt carrying the bare question.
func Extract(domain models.DomainDefinition) []models.DesignElementPrompt {
	items := SubItems(domain.DescriptionText)
	if len(items) == 0 {
		return []models.DesignElementPrompt{{
			DomainID:  domain.ID,
			ElementID: ElementID(domain.ID, 1),
			Question:  domain.QuestionText,
			Prompt:    domain.QuestionText,
		}}
	}

	base := BaseQuestion(domain.QuestionText)
	prompts := make([]models.DesignElementPrompt, 0, len(items))
	for i, item := range items {
		prompts = append(prompts, models.DesignElementPrompt{
			DomainID:  domain.ID,
			ElementID: ElementID(domain.ID, i+1),
			Question:  domain.QuestionText,
			Prompt:    fmt.Sprintf("%s with the following design element: %s", base, item),
		})
	}
	return prompts
}

// Catalog indexes the prompts of a taxonomy snapshot by domain id.
type Catalog struct {
	prompts map[string][]models.DesignElementPrompt
}

// NewCatalog extracts the prompts of every domain once.
func NewCatalog(domains []models.DomainDefinition) *Catalog {
	c := &Catalog{prompts: make(map[string][]models.DesignElementPrompt, len(domains))}
	for _, d := range domains {
		c.prompts[d.ID] = Extract(d)
	}
	return c
}

// DesignElements returns the prompts for a control id. ok is false when the id
// is not part of the taxonomy.
func (c *Catalog) DesignElements(controlID string) ([]models.DesignElementPrompt, bool) {
	prompts, ok := c.prompts[controlID]
	if !ok || len(prompts) == 0 {
		return nil, false
	}
	out := make([]models.DesignElementPrompt, len(prompts))
	copy(out, prompts)
	return out, true
}
