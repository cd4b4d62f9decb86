// Package loader reads sample poems from disk.
package loader

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/0xcro3dile/versecraft/internal/domain/entities"
)

// FileLoader turns one file into zero or more poem fragments.
type FileLoader interface {
	Load(ctx context.Context, path string) ([]entities.PoemFragment, error)
}

// TextLoader loads one poem per plain text file. The title comes from the
// file name; an optional first line "by <author>" (any case) sets the author. Blank
// lines are dropped.
type TextLoader struct{}

// NewTextLoader creates a new text poem loader.
func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

// Load reads a poem from the given path.
func (l *TextLoader) Load(ctx context.Context, path string) ([]entities.PoemFragment, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	poem := entities.PoemFragment{Title: titleFromPath(path)}
	scanner := bufio.NewScanner(file)
	first := true
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if first {
			first = false
			if author, ok := authorLine(line); ok {
				poem.Author = author
				continue
			}
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		poem.Lines = append(poem.Lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(poem.Lines) == 0 {
		return nil, nil
	}
	return []entities.PoemFragment{poem}, nil
}

// SupportedExtensions returns file extensions this loader handles.
func (l *TextLoader) SupportedExtensions() []string {
	return []string{".txt"}
}

// JSONLoader reads files in the PoetryDB response shape: an array of
// {title, author, lines}.
type JSONLoader struct{}

// NewJSONLoader creates a new JSON poem loader.
func NewJSONLoader() *JSONLoader {
	return &JSONLoader{}
}

// PoemRecord is one PoetryDB poem.
type PoemRecord struct {
	Title  string   `json:"title"`
	Author string   `json:"author"`
	Lines  []string `json:"lines"`
}

// Load decodes every poem in the file, skipping poems without lines.
func (l *JSONLoader) Load(ctx context.Context, path string) ([]entities.PoemFragment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []PoemRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return ToFragments(records), nil
}

// SupportedExtensions returns file extensions.
func (l *JSONLoader) SupportedExtensions() []string {
	return []string{".json"}
}

// ToFragments keeps record order and drops records with no lines.
func ToFragments(records []PoemRecord) []entities.PoemFragment {
	out := make([]entities.PoemFragment, 0, len(records))
	for _, r := range records {
		if len(r.Lines) == 0 {
			continue
		}
		out = append(out, entities.PoemFragment{Title: r.Title, Author: r.Author, Lines: r.Lines})
	}
	return out
}

// MultiLoader dispatches on file extension.
type MultiLoader struct {
	loaders map[string]FileLoader
}

// NewMultiLoader creates a loader that handles every supported file type.
func NewMultiLoader() *MultiLoader {
	return &MultiLoader{
		loaders: map[string]FileLoader{
			".txt":  NewTextLoader(),
			".json": NewJSONLoader(),
		},
	}
}

// Load dispatches to the appropriate loader based on extension.
func (m *MultiLoader) Load(ctx context.Context, path string) ([]entities.PoemFragment, error) {
	ext := strings.ToLower(filepath.Ext(path))
	loader, ok := m.loaders[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
	return loader.Load(ctx, path)
}

// Supports reports whether path has a handled extension.
func (m *MultiLoader) Supports(path string) bool {
	_, ok := m.loaders[strings.ToLower(filepath.Ext(path))]
	return ok
}

// SupportedExtensions returns all supported extensions.
func (m *MultiLoader) SupportedExtensions() []string {
	exts := make([]string, 0, len(m.loaders))
	for ext := range m.loaders {
		exts = append(exts, ext)
	}
	return exts
}

// authorLine matches "by <author>" in any case.
func authorLine(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if len(line) < 3 || !strings.EqualFold(line[:3], "by ") {
		return "", false
	}
	author := strings.TrimSpace(line[3:])
	return author, author != ""
}

// titleFromPath turns "the_raven.txt" into "the raven".
func titleFromPath(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.NewReplacer("_", " ", "-", " ").Replace(base)
}
