// Package ports defines interfaces for external dependencies.
// Usecases depend on these abstractions; adapters implement them.
package ports

import (
	"context"

	"github.com/0xcro3dile/versecraft/internal/domain/entities"
)

// PoemSource fetches candidate poem fragments for a theme.
type PoemSource interface {
	// Fetch returns fragments in service order. Transport failures, non-success
	// statuses and empty results all wrap entities.ErrNotFound.
	Fetch(ctx context.Context, theme string) ([]entities.PoemFragment, error)

	// Name identifies the backend in logs.
	Name() string
}

// Embedder converts text into vectors.
type Embedder interface {
	// Embed returns one vector per text, index-aligned. Either every text is
	// embedded or the call fails with entities.ErrEmbeddingService.
	Embed(ctx context.Context, cred entities.Credential, texts []string) ([]entities.Vector, error)

	// Dimensions is the declared output size, 0 if discovered per response.
	Dimensions() int

	Name() string
}

// SimilarityIndex answers nearest-neighbour queries for a single run.
type SimilarityIndex interface {
	// Build replaces any prior contents.
	Build(ctx context.Context, entries []entities.IndexEntry) error

	// Query returns min(k, n) neighbours, nearest first.
	Query(ctx context.Context, vector entities.Vector, k int) ([]entities.Neighbor, error)

	// Metric is fixed for the lifetime of the index.
	Metric() entities.Metric

	// Close discards the contents and releases resources.
	Close() error
}

// IndexProvider opens a fresh SimilarityIndex per pipeline run.
type IndexProvider interface {
	Open(ctx context.Context) (SimilarityIndex, error)
	Name() string
}

// Generator produces text from a prompt.
type Generator interface {
	// Generate returns the full completion. Failures wrap
	// entities.ErrGenerationService.
	Generate(ctx context.Context, cred entities.Credential, prompt string, maxOutputTokens int) (string, error)

	Name() string
}

// EventPublisher announces run outcomes. Payloads never include credentials.
type EventPublisher interface {
	Publish(ctx context.Context, event RunEvent) error
}

// RunEvent summarises a finished run.
type RunEvent struct {
	RunID   string `json:"run_id"`
	Type    string `json:"type"`
	Theme   string `json:"theme"`
	Style   string `json:"style"`
	Length  string `json:"length"`
	State   string `json:"state"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Chars   int    `json:"chars,omitempty"`
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)
