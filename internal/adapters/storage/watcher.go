package storage

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/nexusplan/core/internal/application/notify"
	"github.com/nexusplan/core/internal/domain/entities"
	"github.com/nexusplan/core/internal/infrastructure/logger"
	"github.com/nexusplan/core/internal/ports"
)

// Watcher keeps concurrent processes sharing one local medium visually
// coherent: when another process writes a collection key, the watcher fires
// the change notifier so this process re-reads and re-renders. The process
// that performed the write never reacts to its own signal; remote sync is
// never involved.
type Watcher struct {
	fsw      *fsnotify.Watcher
	medium   ports.Medium
	notifier *notify.Notifier
	selfID   string
	path     string
	logger   *logger.Logger
	done     chan struct{}
}

// NewWatcher watches the medium's backing file at path. selfID must match
// the writer id the medium stamps on this process's writes.
func NewWatcher(path string, medium ports.Medium, notifier *notify.Notifier, selfID string, log *logger.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory: sqlite writes land in the main file and its
	// -wal sidecar, and watching the file directly breaks on rename.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	w := &Watcher{
		fsw:      fsw,
		medium:   medium,
		notifier: notifier,
		selfID:   selfID,
		path:     path,
		logger:   log.WithComponent("storage.watcher"),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !strings.HasPrefix(event.Name, w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.handleChange()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("File watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handleChange() {
	writerID, key, err := w.medium.LastWrite()
	if err != nil {
		w.logger.Debugw("Failed to read last write marker", "error", err)
		return
	}
	if !ShouldRelay(w.selfID, writerID, key) {
		return
	}
	w.logger.Debugw("Foreign local write observed", "key", key, "writer_id", writerID)
	w.notifier.Notify()
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

// ShouldRelay decides whether a medium change observed on disk warrants a
// local change broadcast: only writes by other processes, and only for keys
// in the known collection set.
func ShouldRelay(selfID, writerID, key string) bool {
	if writerID == "" || writerID == selfID {
		return false
	}
	_, ok := entities.CollectionFromKey(key)
	return ok
}
