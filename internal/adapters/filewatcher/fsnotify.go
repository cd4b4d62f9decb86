// Package filewatcher reports changes to the poem directory.
package filewatcher

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/0xcro3dile/versecraft/internal/domain/ports"
)

// DefaultDebounce is how long a path must stay quiet before it is reported.
const DefaultDebounce = 100 * time.Millisecond

// Options tunes a Watcher.
type Options struct {
	// Filter selects reported paths. Nil keeps .txt and .json files.
	Filter func(path string) bool
	// Debounce coalesces bursts of events on one path. Zero means DefaultDebounce.
	Debounce time.Duration
}

// Watcher implements ports.FileWatcher on fsnotify. Editors and copies
// produce several events per save, so each path is reported once after it
// has been quiet for the debounce period, with the operations merged.
type Watcher struct {
	fs     *fsnotify.Watcher
	filter func(path string) bool
	quiet  time.Duration
	logger *zap.Logger
}

// New creates a watcher. Call Stop to release the inotify handle.
func New(opts Options, logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	if opts.Filter == nil {
		opts.Filter = poemFile
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{fs: fw, filter: opts.Filter, quiet: opts.Debounce, logger: logger}, nil
}

type pending struct {
	op   ports.FileOperation
	last time.Time
}

// Watch adds dir and streams its debounced events. The channel closes when
// ctx is done or Stop is called; events still pending then are dropped.
func (w *Watcher) Watch(ctx context.Context, dir string) (<-chan ports.FileEvent, error) {
	if err := w.fs.Add(dir); err != nil {
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}
	out := make(chan ports.FileEvent, 16)
	go w.loop(ctx, dir, out)
	return out, nil
}

func (w *Watcher) loop(ctx context.Context, dir string, out chan<- ports.FileEvent) {
	defer close(out)

	queued := make(map[string]*pending)
	tick := time.NewTicker(max(w.quiet/2, time.Millisecond))
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			op, ok := classify(ev.Op)
			if !ok || ignored(ev.Name) || !w.filter(ev.Name) {
				continue
			}
			if p, seen := queued[ev.Name]; seen {
				p.op = merge(p.op, op)
				p.last = time.Now()
			} else {
				queued[ev.Name] = &pending{op: op, last: time.Now()}
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", zap.String("dir", dir), zap.Error(err))

		case now := <-tick.C:
			for path, p := range queued {
				if now.Sub(p.last) < w.quiet {
					continue
				}
				delete(queued, path)
				select {
				case out <- ports.FileEvent{Path: path, Operation: p.op}:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// Stop closes the fsnotify handle, which ends every Watch loop.
func (w *Watcher) Stop() error {
	return w.fs.Close()
}

// classify maps an fsnotify op. Chmod-only events are not reported.
func classify(op fsnotify.Op) (ports.FileOperation, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return ports.FileCreated, true
	case op.Has(fsnotify.Write):
		return ports.FileModified, true
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		// a renamed file is gone from its old path
		return ports.FileDeleted, true
	default:
		return 0, false
	}
}

// merge folds the next operation on a path into the pending one.
func merge(prev, next ports.FileOperation) ports.FileOperation {
	switch {
	case next == ports.FileDeleted:
		return ports.FileDeleted
	case prev == ports.FileCreated:
		return ports.FileCreated
	case prev == ports.FileDeleted:
		// removed and written again: the path was replaced
		return ports.FileModified
	default:
		return next
	}
}

// ignored skips hidden files and editor backups.
func ignored(path string) bool {
	name := filepath.Base(path)
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~")
}

func poemFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".json":
		return true
	}
	return false
}
