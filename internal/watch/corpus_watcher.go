// Package watch reloads the corpus when its CSV file changes on disk.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"navassist/internal/corpus"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 250 * time.Millisecond

// ChangeFunc receives a corpus whose fingerprint differs from the last one
// accepted. Returning an error keeps the previous fingerprint current, so the
// same content is offered again on the next change.
type ChangeFunc func(ctx context.Context, c *corpus.Corpus) error

// CorpusWatcher watches the directory holding the corpus file. Renames are
// included because many editors save by replacing the file.
type CorpusWatcher struct {
	path     string
	current  string
	onChange ChangeFunc
	Debounce time.Duration
	Logger   *slog.Logger

	done chan struct{}
}

// NewCorpusWatcher watches path. fingerprint is the version already loaded.
func NewCorpusWatcher(path, fingerprint string, onChange ChangeFunc) (*CorpusWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve corpus path: %w", err)
	}
	return &CorpusWatcher{
		path:     abs,
		current:  fingerprint,
		onChange: onChange,
		Debounce: DefaultDebounce,
		done:     make(chan struct{}),
	}, nil
}

// Start registers the watch and processes events until ctx is done.
func (w *CorpusWatcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger().Info("watching corpus", "path", w.path)
	go w.run(ctx, fw)
	return nil
}

// Done is closed once the watcher has stopped.
func (w *CorpusWatcher) Done() <-chan struct{} { return w.done }

func (w *CorpusWatcher) run(ctx context.Context, fw *fsnotify.Watcher) {
	defer close(w.done)
	defer fw.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.Debounce)
			} else {
				timer.Reset(w.Debounce)
			}
			fire = timer.C
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger().Error("fsnotify error", "error", err)
		case <-fire:
			fire = nil
			w.reload(ctx)
		}
	}
}

func (w *CorpusWatcher) reload(ctx context.Context) {
	log := w.logger()
	c, err := corpus.Load(w.path)
	if err != nil {
		log.Warn("corpus changed but could not be loaded; keeping current version", "error", err)
		return
	}
	if c.Fingerprint() == w.current {
		log.Debug("corpus event without content change")
		return
	}
	if err := w.onChange(ctx, c); err != nil {
		log.Error("corpus reload failed; keeping current version", "error", err)
		return
	}
	w.current = c.Fingerprint()
}

func (w *CorpusWatcher) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}
