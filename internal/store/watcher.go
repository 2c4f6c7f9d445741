package store

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher picks up entry files edited outside the service and feeds them into
// the same reload channel as wizard updates.
type Watcher struct {
	watcher *fsnotify.Watcher
	store   *Store
}

// StartWatcher begins watching the store directory for external changes.
func (s *Store) StartWatcher() (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := fw.Add(s.dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch entries directory: %w", err)
	}

	w := &Watcher{watcher: fw, store: s}
	go w.watch()
	return w, nil
}

func (w *Watcher) watch() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// Skip temp files from atomic writes
			if strings.HasPrefix(filepath.Base(event.Name), ".") ||
				!strings.HasSuffix(event.Name, ".entry.yaml") {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.handleEntryChange(event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.store.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEntryChange(path string) {
	s := w.store
	s.logger.Info("detected entry change", "path", path)

	entry, err := s.loadEntry(path)
	if err != nil {
		s.logger.Error("failed to reload entry", "path", path, "error", err)
		return
	}
	if entry.ID == "" {
		s.logger.Error("entry file missing id, ignoring", "path", path)
		return
	}

	s.mu.Lock()
	s.entries[entry.ID] = entry
	s.mu.Unlock()

	s.notifyReload(entry.ID)
}

// Stop stops the watcher
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}
