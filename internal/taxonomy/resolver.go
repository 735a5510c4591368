package taxonomy

import (
	"fmt"
	"strings"

	"github.com/Lllllllleong/evidenceassessment/internal/models"
)

// Matcher maps an evidence folder name to a taxonomy entry.
type Matcher interface {
	Match(folderName string, domains []models.DomainDefinition) (models.DomainDefinition, bool)
}

// NormalizeName trims and case-folds a folder or domain name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ExactNameMatcher matches a folder to the domain whose normalized name is
// equal to the normalized folder name. It is the production strategy.
type ExactNameMatcher struct{}

func (ExactNameMatcher) Match(folderName string, domains []models.DomainDefinition) (models.DomainDefinition, bool) {
	want := NormalizeName(folderName)
	if want == "" {
		return models.DomainDefinition{}, false
	}
	for _, d := range domains {
		if NormalizeName(d.Name) == want {
			return d, true
		}
	}
	return models.DomainDefinition{}, false
}

// FolderCodeMatcher resolves folders through a fixed folder→domain id table.
//
// Deprecated: kept for archives produced with the old folder naming scheme.
// New uploads are matched with ExactNameMatcher.
type FolderCodeMatcher struct {
	Codes map[string]string
}

func (m FolderCodeMatcher) Match(folderName string, domains []models.DomainDefinition) (models.DomainDefinition, bool) {
	id, ok := m.Codes[legacyFolderKey(folderName)]
	if !ok {
		return models.DomainDefinition{}, false
	}
	for _, d := range domains {
		if d.ID == id {
			return d, true
		}
	}
	return models.DomainDefinition{}, false
}

func legacyFolderKey(name string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

// LegacyFolderCodes is the folder table used by archives built for the first
// release of the upload form.
var LegacyFolderCodes = map[string]string{
	"access_control":           "AC-001",
	"authentication":           "AU-001",
	"authorization":            "AU-002",
	"data_encryption":          "CR-001",
	"backup_recovery":          "BC-001",
	"incident_response":        "IR-001",
	"vulnerability_management": "VM-001",
	"network_security":         "NS-001",
	"physical_security":        "PS-001",
	"security_awareness":       "SA-001",
	"change_management":        "CM-001",
	"risk_assessment":          "RA-001",
	"compliance_monitoring":    "CO-001",
	"business_continuity":      "BC-002",
	"vendor_management":        "VM-002",
}

// CIDPrefixMatcher reads the domain id from a hyphenated folder name such as
// "AC-001 - Access Control" or "AC - Access Control". The text before the
// first " - " (or the first hyphen when there is none) is compared with the
// domain ids.
//
// Deprecated: questionnaire-style folder names are not produced by the current
// upload form. Use ExactNameMatcher.
type CIDPrefixMatcher struct{}

func (CIDPrefixMatcher) Match(folderName string, domains []models.DomainDefinition) (models.DomainDefinition, bool) {
	code := cidPrefix(folderName)
	if code == "" {
		return models.DomainDefinition{}, false
	}
	for _, d := range domains {
		if strings.EqualFold(d.ID, code) {
			return d, true
		}
	}
	// A bare code such as "AC" selects the first domain in that family.
	for _, d := range domains {
		if strings.HasPrefix(strings.ToUpper(d.ID), strings.ToUpper(code)+"-") {
			return d, true
		}
	}
	return models.DomainDefinition{}, false
}

func cidPrefix(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.Index(name, " - "); i > 0 {
		return strings.TrimSpace(name[:i])
	}
	if i := strings.Index(name, "-"); i > 0 {
		return strings.TrimSpace(name[:i])
	}
	return ""
}

// Matching strategy names accepted by NewMatcher.
const (
	StrategyExactName  = "exact"
	StrategyCIDPrefix  = "cid-prefix"
	StrategyFolderCode = "folder-code"
)

// NewMatcher returns the matcher registered under strategy. An empty strategy
// selects ExactNameMatcher.
func NewMatcher(strategy string) (Matcher, error) {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case "", StrategyExactName:
		return ExactNameMatcher{}, nil
	case StrategyCIDPrefix:
		return CIDPrefixMatcher{}, nil
	case StrategyFolderCode:
		return FolderCodeMatcher{Codes: LegacyFolderCodes}, nil
	default:
		return nil, fmt.Errorf("unknown matching strategy %q", strategy)
	}
}

// Resolve returns the domain a folder maps to with the exact-name strategy,
// or nil when none does.
func Resolve(folderName string, domains []models.DomainDefinition) *models.DomainDefinition {
	d, ok := ExactNameMatcher{}.Match(folderName, domains)
	if !ok {
		return nil
	}
	return &d
}

// ExpectedFolder lists the folder name an uploader should use for a domain.
type ExpectedFolder struct {
	DomainID   string `json:"domainId"`
	DomainName string `json:"domainName"`
	FolderName string `json:"folderName"`
}

// ExpectedFolderNames returns the folder names accepted by ExactNameMatcher.
func ExpectedFolderNames(domains []models.DomainDefinition) []ExpectedFolder {
	out := make([]ExpectedFolder, 0, len(domains))
	for _, d := range domains {
		out = append(out, ExpectedFolder{DomainID: d.ID, DomainName: d.Name, FolderName: NormalizeName(d.Name)})
	}
	return out
}
