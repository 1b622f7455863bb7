// Package docstore keeps the markdown rendering of each ingested document on
// the local filesystem.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dgallion1/docsum/internal/summarize"
)

var unsafeID = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeID maps a document id to a safe file name stem.
func SanitizeID(id string) string {
	id = unsafeID.ReplaceAllString(id, "_")
	if id == "" || id == "." || id == ".." {
		return "_"
	}
	return id
}

// FS stores documents as <root>/<id>.md.
type FS struct {
	root string
}

// NewFS creates root if needed.
func NewFS(root string) (*FS, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create document dir %s: %w", root, err)
	}
	return &FS{root: root}, nil
}

func (f *FS) path(id string) string {
	return filepath.Join(f.root, SanitizeID(id)+".md")
}

// Markdown returns the stored text of id.
func (f *FS) Markdown(_ context.Context, id string) (string, error) {
	data, err := os.ReadFile(f.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("document %s: %w", id, summarize.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read document %s: %w", id, err)
	}
	return string(data), nil
}

// Save writes text for id, replacing any previous version.
func (f *FS) Save(_ context.Context, id, text string) error {
	tmp, err := os.CreateTemp(f.root, ".doc-*")
	if err != nil {
		return fmt.Errorf("save document %s: %w", id, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return fmt.Errorf("save document %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save document %s: %w", id, err)
	}
	if err := os.Rename(tmp.Name(), f.path(id)); err != nil {
		return fmt.Errorf("save document %s: %w", id, err)
	}
	return nil
}

// Delete removes id. Missing documents are not an error.
func (f *FS) Delete(_ context.Context, id string) error {
	err := os.Remove(f.path(id))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

// List returns the stored document ids in name order.
func (f *FS) List() ([]string, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	ids := []string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".md") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".md"))
	}
	return ids, nil
}

// Exists reports whether id is stored.
func (f *FS) Exists(id string) bool {
	_, err := os.Stat(f.path(id))
	return err == nil
}
