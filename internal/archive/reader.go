// Package archive reads uploaded evidence ZIP files into a folder tree.
package archive

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/Lllllllleong/evidenceassessment/internal/models"
)

// DefaultMaxBytes is the default upper bound for an uploaded archive.
const DefaultMaxBytes int64 = 100 << 20

// ArchiveError reports an archive that cannot be read at all. It is the only
// error that aborts a run.
type ArchiveError struct {
	Reason string
	Err    error
}

func (e *ArchiveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("archive: %s: %v", e.Reason, e.Err)
	}
	return "archive: " + e.Reason
}

func (e *ArchiveError) Unwrap() error { return e.Err }

// Folder is a domain folder candidate with the files found under it.
type Folder struct {
	Name   string
	Prefix string
	Files  []models.ExtractedFile
}

// Tree is the decoded content of an archive.
type Tree struct {
	// Root is the single wrapper folder that was unwrapped, if any.
	Root       string
	Folders    []*Folder
	LooseFiles []models.ExtractedFile
	TotalFiles int
	Issues     []models.Issue
}

// Folder returns the folder with the given name, or nil.
func (t *Tree) Folder(name string) *Folder {
	for _, f := range t.Folders {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Reader decodes evidence archives.
type Reader struct {
	MaxBytes int64
}

// NewReader returns a Reader enforcing maxBytes; zero or negative selects DefaultMaxBytes.
func NewReader(maxBytes int64) *Reader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Reader{MaxBytes: maxBytes}
}

// ReadBytes decodes an in-memory archive.
func (r *Reader) ReadBytes(b []byte) (*Tree, error) {
	return r.Read(bytes.NewReader(b), int64(len(b)))
}

// Read decodes the archive behind ra. Entries are opened and decoded one at a
// time, so only the current entry is buffered beyond the decoded output.
func (r *Reader) Read(ra io.ReaderAt, size int64) (*Tree, error) {
	if size <= 0 {
		return nil, &ArchiveError{Reason: "archive is empty"}
	}
	if size > r.MaxBytes {
		return nil, &ArchiveError{Reason: fmt.Sprintf("archive is %d bytes, limit is %d", size, r.MaxBytes)}
	}
	zr, err := zip.NewReader(ra, size)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, &ArchiveError{Reason: "not a valid zip file", Err: err}
	}

	entries := make([]*zip.File, 0, len(zr.File))
	for _, f := range zr.File {
		if isJunk(normalizePath(f.Name)) {
			continue
		}
		entries = append(entries, f)
	}

	tree := &Tree{Root: wrapperFolder(entries)}
	for _, f := range entries {
		segments := relativeSegments(normalizePath(f.Name), tree.Root)
		if len(segments) == 0 {
			continue
		}
		if f.FileInfo().IsDir() {
			// Directory markers only register the folder so empty folders are
			// still reported downstream.
			tree.folder(segments[0])
			continue
		}
		file, err := r.decode(f)
		if err != nil {
			tree.Issues = append(tree.Issues, models.NewIssue(models.IssueArchive, f.Name, "failed to read entry: %v", err))
			continue
		}
		tree.TotalFiles++
		if len(segments) == 1 {
			tree.LooseFiles = append(tree.LooseFiles, file)
			continue
		}
		folder := tree.folder(segments[0])
		folder.Files = append(folder.Files, file)
	}
	return tree, nil
}

func (t *Tree) folder(name string) *Folder {
	if f := t.Folder(name); f != nil {
		return f
	}
	prefix := name + "/"
	if t.Root != "" {
		prefix = t.Root + "/" + prefix
	}
	f := &Folder{Name: name, Prefix: prefix}
	t.Folders = append(t.Folders, f)
	return f
}

func (r *Reader) decode(f *zip.File) (models.ExtractedFile, error) {
	rc, err := f.Open()
	if err != nil {
		return models.ExtractedFile{}, err
	}
	defer rc.Close()

	// Guard against entries that inflate past the archive limit.
	content, err := io.ReadAll(io.LimitReader(rc, r.MaxBytes+1))
	if err != nil {
		return models.ExtractedFile{}, err
	}
	if int64(len(content)) > r.MaxBytes {
		return models.ExtractedFile{}, fmt.Errorf("entry exceeds %d bytes when decompressed", r.MaxBytes)
	}

	name := normalizePath(f.Name)
	return models.ExtractedFile{
		Name:     path.Base(name),
		FullPath: name,
		Content:  content,
		Base64:   base64.StdEncoding.EncodeToString(content),
		Type:     FileTypeOf(name),
		Size:     int64(len(content)),
	}, nil
}

// FileTypeOf classifies a file by extension.
func FileTypeOf(name string) models.FileType {
	if strings.EqualFold(path.Ext(name), ".pdf") {
		return models.FileTypePDF
	}
	return models.FileTypeOther
}

func normalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return strings.TrimPrefix(strings.TrimSpace(p), "/")
}

func splitPath(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isJunk(p string) bool {
	segments := splitPath(p)
	if len(segments) == 0 {
		return true
	}
	if segments[0] == "__MACOSX" {
		return true
	}
	return segments[len(segments)-1] == ".DS_Store"
}

// wrapperFolder returns the single top-level folder when every entry lives
// under it and it contains sub-folders of its own. Otherwise the archive has
// no wrapper and top-level folders are domain folders.
func wrapperFolder(entries []*zip.File) string {
	root := ""
	nested := false
	for _, f := range entries {
		segments := splitPath(normalizePath(f.Name))
		if len(segments) == 1 && !f.FileInfo().IsDir() {
			return ""
		}
		if root == "" {
			root = segments[0]
		} else if segments[0] != root {
			return ""
		}
		if len(segments) >= 3 || (len(segments) == 2 && f.FileInfo().IsDir()) {
			nested = true
		}
	}
	if !nested {
		return ""
	}
	return root
}

func relativeSegments(p, root string) []string {
	segments := splitPath(p)
	if root == "" {
		return segments
	}
	if len(segments) == 0 || segments[0] != root {
		return nil
	}
	return segments[1:]
}
