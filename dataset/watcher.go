package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"constserv/constants"
	"constserv/metrics"
)

// Reloadable is implemented by anything that serves a dataset snapshot.
type Reloadable interface {
	Reload(table *constants.Table)
}

// Watcher detects changes to the dataset file and reloads the snapshot.
type Watcher struct {
	path      string
	target    Reloadable
	log       *zap.Logger
	watcher   *fsnotify.Watcher
	mu        sync.Mutex
	debouncer *time.Timer
	delay     time.Duration
}

// NewWatcher creates a new Watcher for the dataset at path.
func NewWatcher(path string, target Reloadable, log *zap.Logger) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return nil, err
	}

	return &Watcher{
		path:    absPath,
		target:  target,
		log:     log,
		watcher: watcher,
		delay:   500 * time.Millisecond,
	}, nil
}

// Start begins watching the dataset's directory, creating it if needed so a
// dataset written later is still picked up.
func (w *Watcher) Start() error {
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create dataset directory %s: %w", dir, err)
	}
	if err := w.watcher.Add(dir); err != nil {
		return err
	}

	go w.watchLoop()
	w.log.Info("Started watching dataset", zap.String("path", w.path))

	return nil
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			eventPath, _ := filepath.Abs(event.Name)
			if eventPath == w.path && (event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create)) {
				w.log.Debug("Dataset event detected", zap.Stringer("op", event.Op), zap.String("path", event.Name))
				w.scheduleReload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("Dataset watcher error", zap.Error(err))
		}
	}
}

// scheduleReload debounces bursts of write events into one reload.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debouncer != nil {
		w.debouncer.Stop()
	}

	w.debouncer = time.AfterFunc(w.delay, w.reload)
}

// reload parses the dataset and swaps the snapshot. On error the previous snapshot stays.
func (w *Watcher) reload() {
	table, err := constants.LoadCSV(w.path)
	if err != nil {
		metrics.RecordDatasetReload("failed", 0)
		w.log.Error("Failed to reload dataset, keeping previous snapshot", zap.Error(err))
		return
	}

	w.target.Reload(table)
	metrics.RecordDatasetReload("success", table.Len())
	w.log.Info("Dataset reloaded", zap.Int("constants", table.Len()))
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debouncer != nil {
		w.debouncer.Stop()
	}

	if w.watcher != nil {
		w.watcher.Close()
	}
}
