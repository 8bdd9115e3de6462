package config

import (
	"context"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sync"
	"syscall"

	"github.com/artpar/deepgraph/adapters/metrics"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Holder provides thread-safe access to a configuration source with hot
// reload support.
type Holder struct {
	mu       sync.RWMutex
	data     any
	path     string
	logger   zerolog.Logger
	metrics  *metrics.Collector
	watcher  *fsnotify.Watcher
	onChange []func(any)
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewHolder creates a new holder and loads the initial data from a file.
func NewHolder(path string, logger zerolog.Logger) (*Holder, error) {
	data, err := LoadSource(context.Background(), nil, path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}

	h := &Holder{
		data:   data,
		path:   absPath,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	return h, nil
}

// SetMetrics records reload outcomes on m.
func (h *Holder) SetMetrics(m *metrics.Collector) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.metrics = m
}

// Path returns the absolute path of the watched file.
func (h *Holder) Path() string {
	return h.path
}

// Get returns the current data (thread-safe).
func (h *Holder) Get() any {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.data
}

// Reload reloads the data from disk.
// Returns error if loading fails (keeps old data).
func (h *Holder) Reload() error {
	h.logger.Info().Str("path", h.path).Msg("reloading configuration")

	newData, err := LoadSource(context.Background(), nil, h.path)

	h.mu.Lock()
	m := h.metrics
	if err == nil {
		h.logChanges(h.data, newData)
		h.data = newData
	}
	callbacks := slices.Clone(h.onChange)
	h.mu.Unlock()

	m.ConfigReloaded(err)
	if err != nil {
		h.logger.Error().Err(err).Msg("config reload failed, keeping old config")
		return fmt.Errorf("reload config: %w", err)
	}

	// Notify listeners
	for _, fn := range callbacks {
		fn(newData)
	}

	h.logger.Info().Msg("configuration reloaded successfully")
	return nil
}

// OnChange registers a callback to be called when the data changes.
func (h *Holder) OnChange(fn func(any)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = append(h.onChange, fn)
}

// WatchFile starts watching the file for changes.
// Changes trigger automatic reload.
func (h *Holder) WatchFile() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	h.watcher = watcher

	// Watch the directory (more reliable for editors that do atomic saves)
	dir := filepath.Dir(h.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	go h.watchLoop()

	h.logger.Info().Str("path", h.path).Msg("watching config file for changes")
	return nil
}

// WatchSignals starts listening for SIGHUP to trigger reload.
func (h *Holder) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-sigCh:
				h.logger.Info().Msg("received SIGHUP, reloading config")
				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("SIGHUP reload failed")
				}
			case <-h.stopCh:
				signal.Stop(sigCh)
				return
			}
		}
	}()

	h.logger.Info().Msg("listening for SIGHUP to reload config")
}

// Stop stops watching for file changes and signals. It is safe to call
// more than once.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		if h.watcher != nil {
			h.watcher.Close()
		}
	})
}

func (h *Holder) watchLoop() {
	filename := filepath.Base(h.path)

	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}

			// Only react to our file
			if filepath.Base(event.Name) != filename {
				continue
			}

			// React to write or create (atomic save = create)
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				h.logger.Debug().
					Str("event", event.Op.String()).
					Str("file", event.Name).
					Msg("config file changed")

				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("file watch reload failed")
				}
			}

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("file watcher error")

		case <-h.stopCh:
			return
		}
	}
}

func (h *Holder) logChanges(old, new any) {
	oldTable, ok1 := old.(map[string]any)
	newTable, ok2 := new.(map[string]any)
	if !ok1 || !ok2 {
		return
	}

	var added, removed []string
	for id := range newTable {
		if _, ok := oldTable[id]; !ok {
			added = append(added, id)
		}
	}
	for id := range oldTable {
		if _, ok := newTable[id]; !ok {
			removed = append(removed, id)
		}
	}
	if len(added) > 0 || len(removed) > 0 {
		slices.Sort(added)
		slices.Sort(removed)
		h.logger.Info().
			Strs("added", added).
			Strs("removed", removed).
			Int("total", len(newTable)).
			Msg("declarations changed")
	}
}

// Keys returns the sorted top-level keys of the current data when it is a
// table.
func (h *Holder) Keys() []string {
	table, ok := h.Get().(map[string]any)
	if !ok {
		return nil
	}
	return slices.Sorted(maps.Keys(table))
}
