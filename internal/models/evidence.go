package models

// FileType tags an evidence file by extension.
type FileType string

const (
	FileTypePDF   FileType = "pdf"
	FileTypeOther FileType = "other"
)

// ExtractedFile is one evidence attachment decoded from the uploaded archive.
type ExtractedFile struct {
	Name      string   `json:"name"`
	FullPath  string   `json:"fullPath"`
	Content   []byte   `json:"-"`
	Base64    string   `json:"-"`
	Type      FileType `json:"type"`
	Size      int64    `json:"size"`
	PageCount int      `json:"pageCount,omitempty"`
}

// IsPrimary reports whether the file is sent to the validation endpoint.
// Only PDFs are submitted for now; other files are kept as metadata.
func (f ExtractedFile) IsPrimary() bool {
	return f.Type == FileTypePDF
}

// ControlEvidence is a matched domain folder together with its files.
type ControlEvidence struct {
	DomainID    string          `json:"domainId"`
	DisplayName string          `json:"displayName"`
	Folder      string          `json:"folder"`
	Evidences   []ExtractedFile `json:"evidences"`
}

// PrimaryEvidence returns the base64 payloads of the files that are submitted
// to the validator, in archive order.
func (c ControlEvidence) PrimaryEvidence() []string {
	var out []string
	for _, e := range c.Evidences {
		if e.IsPrimary() {
			out = append(out, e.Base64)
		}
	}
	return out
}

// EvidenceNames lists the file names attached to the control.
func (c ControlEvidence) EvidenceNames() []string {
	names := make([]string, 0, len(c.Evidences))
	for _, e := range c.Evidences {
		names = append(names, e.Name)
	}
	return names
}
