// Package loader reads the text corpus from a directory.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/0xcro3dile/ragqa/internal/domain/entities"
	"github.com/0xcro3dile/ragqa/internal/domain/ports"
)

// DefaultExtensions are loaded when none are configured.
var DefaultExtensions = []string{".txt"}

var _ ports.DocumentLoader = (*DirectoryLoader)(nil)

// DirectoryLoader loads every file with a supported extension from one directory.
// Subdirectories are not traversed. The document id is the file name.
type DirectoryLoader struct {
	dir  string
	exts []string
	log  *slog.Logger
}

// NewDirectoryLoader creates a loader for dir.
func NewDirectoryLoader(dir string, exts []string, logger *slog.Logger) *DirectoryLoader {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	normalized := make([]string, len(exts))
	for i, ext := range exts {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized[i] = ext
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectoryLoader{dir: dir, exts: normalized, log: logger}
}

// Dir returns the corpus directory.
func (l *DirectoryLoader) Dir() string { return l.dir }

// LoadAll reads the corpus ordered by file name.
// A missing directory is created and yields no documents. Files that cannot
// be read are logged and skipped.
func (l *DirectoryLoader) LoadAll(ctx context.Context) ([]entities.Document, error) {
	entries, err := os.ReadDir(l.dir)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(l.dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating corpus directory: %w", err)
		}
		l.log.Warn("corpus directory did not exist, created it", slog.String("dir", l.dir))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading corpus directory: %w", err)
	}

	var docs []entities.Document
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !l.Supports(entry.Name()) {
			continue
		}
		doc, err := l.Load(ctx, filepath.Join(l.dir, entry.Name()))
		if err != nil {
			l.log.Warn("skipping unreadable document", slog.String("file", entry.Name()), slog.String("error", err.Error()))
			continue
		}
		l.log.Debug("loaded document", slog.String("id", doc.ID), slog.Int("runes", utf8.RuneCountInString(doc.Content)))
		docs = append(docs, *doc)
	}

	slices.SortFunc(docs, func(a, b entities.Document) int { return strings.Compare(a.ID, b.ID) })
	return docs, nil
}

// Load reads a single document. Invalid UTF-8 sequences are replaced.
func (l *DirectoryLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	text := string(content)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}

	return &entities.Document{
		ID:      filepath.Base(path),
		Path:    path,
		Content: text,
	}, nil
}

// SupportedExtensions returns file extensions this loader handles.
func (l *DirectoryLoader) SupportedExtensions() []string {
	return slices.Clone(l.exts)
}

// Supports reports whether path has a supported extension.
func (l *DirectoryLoader) Supports(path string) bool {
	return slices.Contains(l.exts, strings.ToLower(filepath.Ext(path)))
}
