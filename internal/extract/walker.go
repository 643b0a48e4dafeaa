// Package extract turns a document tree into raw text documents.
package extract

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"policyrag/internal/domain"
)

// Extractor pulls the full text out of one file.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, path string) (string, error)

func (f ExtractorFunc) Extract(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

// Walker loads every recognised document under a root directory.
type Walker struct {
	root       string
	extractors map[string]Extractor
	logger     arbor.ILogger
}

var _ domain.DocumentLoader = (*Walker)(nil)

// NewWalker returns a walker with the PDF and plain-text extractors registered.
func NewWalker(root string, logger arbor.ILogger) *Walker {
	w := &Walker{root: root, extractors: map[string]Extractor{}, logger: logger}
	w.Register(".pdf", NewPDFExtractor())
	text := ExtractorFunc(ExtractText)
	w.Register(".txt", text)
	w.Register(".md", text)
	return w
}

// Register binds an extension (with the leading dot) to an extractor.
func (w *Walker) Register(ext string, e Extractor) {
	w.extractors[strings.ToLower(ext)] = e
}

// Extensions lists the registered extensions in sorted order.
func (w *Walker) Extensions() []string {
	out := make([]string, 0, len(w.extractors))
	for ext := range w.extractors {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Root returns the directory the walker reads from.
func (w *Walker) Root() string { return w.root }

// Load walks the root in lexical order and extracts each recognised file.
// Files that fail extraction or hold only whitespace are skipped.
func (w *Walker) Load(ctx context.Context) ([]domain.Document, error) {
	info, err := os.Stat(w.root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmptyCorpus, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrEmptyCorpus, w.root)
	}

	var docs []domain.Document
	skipped := 0
	err = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == w.root {
				return walkErr
			}
			w.logger.Warn().Str("path", path).Err(walkErr).Msg("Skipping unreadable path")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		extractor, ok := w.extractors[ext]
		if !ok {
			return nil
		}
		text, err := extractor.Extract(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			skipped++
			xerr := &domain.ExtractionError{Path: path, Err: err}
			w.logger.Warn().Err(xerr).Msg("Skipping document")
			return nil
		}
		if strings.TrimSpace(text) == "" {
			w.logger.Debug().Str("path", path).Msg("No text extracted")
			return nil
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			rel = path
		}
		docs = append(docs, domain.Document{ID: hashString(filepath.ToSlash(rel)), Path: path, Content: text})
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrEmptyCorpus, err)
	}

	w.logger.Info().
		Str("root", w.root).
		Int("documents", len(docs)).
		Int("skipped", skipped).
		Msg("Documents extracted")
	return docs, nil
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
