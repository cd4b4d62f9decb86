package poemsource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/0xcro3dile/versecraft/internal/adapters/loader"
	"github.com/0xcro3dile/versecraft/internal/domain/entities"
	"github.com/0xcro3dile/versecraft/internal/domain/ports"
)

// Local implements ports.PoemSource over a directory of poem files.
// The catalogue is loaded once and can be kept fresh with Watch.
type Local struct {
	dir          string
	maxFragments int
	loader       *loader.MultiLoader
	logger       *zap.Logger

	mu    sync.RWMutex
	poems map[string][]entities.PoemFragment // path -> poems
}

// NewLocal loads every supported file in dir.
func NewLocal(ctx context.Context, dir string, maxFragments int, logger *zap.Logger) (*Local, error) {
	if maxFragments <= 0 {
		maxFragments = DefaultMaxFragments
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Local{
		dir:          dir,
		maxFragments: maxFragments,
		loader:       loader.NewMultiLoader(),
		logger:       logger,
		poems:        make(map[string][]entities.PoemFragment),
	}
	if err := l.Reload(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload rereads the whole directory. Unreadable files are logged and skipped.
func (l *Local) Reload(ctx context.Context) error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return fmt.Errorf("reading poem directory: %w", err)
	}

	poems := make(map[string][]entities.PoemFragment)
	for _, e := range entries {
		path := filepath.Join(l.dir, e.Name())
		if e.IsDir() || !l.loader.Supports(path) {
			continue
		}
		loaded, err := l.loader.Load(ctx, path)
		if err != nil {
			l.logger.Warn("skipping poem file", zap.String("path", path), zap.Error(err))
			continue
		}
		poems[path] = loaded
	}

	l.mu.Lock()
	l.poems = poems
	l.mu.Unlock()
	l.logger.Info("poem catalogue loaded", zap.String("dir", l.dir), zap.Int("files", len(poems)))
	return nil
}

// Fetch returns poems with a line containing theme, case-insensitively, in
// file-name order.
func (l *Local) Fetch(ctx context.Context, theme string) ([]entities.PoemFragment, error) {
	needle := strings.ToLower(strings.TrimSpace(theme))
	if needle == "" {
		return nil, fmt.Errorf("%w: theme is required", entities.ErrInvalidInput)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	paths := make([]string, 0, len(l.poems))
	for p := range l.poems {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var out []entities.PoemFragment
	for _, p := range paths {
		for _, poem := range l.poems[p] {
			if matches(poem, needle) {
				out = append(out, poem)
				if len(out) == l.maxFragments {
					return out, nil
				}
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no local poems for %q", entities.ErrNotFound, theme)
	}
	return out, nil
}

func matches(poem entities.PoemFragment, needle string) bool {
	for _, line := range poem.Lines {
		if strings.Contains(strings.ToLower(line), needle) {
			return true
		}
	}
	return false
}

// Watch applies file events to the catalogue until ctx is done or the
// watcher closes its channel.
func (l *Local) Watch(ctx context.Context, watcher ports.FileWatcher) error {
	events, err := watcher.Watch(ctx, l.dir)
	if err != nil {
		return fmt.Errorf("watching %s: %w", l.dir, err)
	}
	return l.Follow(ctx, events)
}

// Follow applies events from an already started watch.
func (l *Local) Follow(ctx context.Context, events <-chan ports.FileEvent) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			l.apply(ctx, ev)
		}
	}
}

func (l *Local) apply(ctx context.Context, ev ports.FileEvent) {
	if ev.Operation == ports.FileDeleted {
		l.mu.Lock()
		delete(l.poems, ev.Path)
		l.mu.Unlock()
		l.logger.Debug("poem file removed", zap.String("path", ev.Path))
		return
	}

	loaded, err := l.loader.Load(ctx, ev.Path)
	if err != nil {
		// partially written files fail here and are picked up on the next write
		l.logger.Debug("poem file not loaded", zap.String("path", ev.Path), zap.Error(err))
		return
	}
	l.mu.Lock()
	l.poems[ev.Path] = loaded
	l.mu.Unlock()
	l.logger.Debug("poem file loaded", zap.String("path", ev.Path), zap.Int("poems", len(loaded)))
}

// Count returns how many poems are loaded.
func (l *Local) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, p := range l.poems {
		n += len(p)
	}
	return n
}

func (l *Local) Name() string { return "local" }
