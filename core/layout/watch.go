package layout

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/hankhsu1996/slangd-go/location"
)

// Watcher bridges fsnotify events for the workspace tree into Service's
// OnConfigChanged, and forwards every accepted layout-affecting change to
// onChanged.
type Watcher struct {
	logger  *slog.Logger
	service *Service
	fsw     *fsnotify.Watcher

	onChanged func(*Snapshot)

	mu     sync.Mutex
	closed bool
}

// NewWatcher creates and starts a Watcher rooted at service's workspace.
// onChanged is invoked (on the watcher's own goroutine) whenever a change to
// .slangd or a referenced file_list produces a new Snapshot.
func NewWatcher(service *Service, logger *slog.Logger, onChanged func(*Snapshot)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	root := service.workspaceRoot.String()
	if err := fsw.Add(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &Watcher{
		logger:    logger.With(slog.String("component", "layout.watcher")),
		service:   service,
		fsw:       fsw,
		onChanged: onChanged,
	}
	go w.run()
	return w, nil
}

// Close stops the watcher and releases its OS resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()
	return w.fsw.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	cp, err := location.NewCanonicalPath(filepath.Clean(event.Name))
	if err != nil {
		return
	}
	snap, err := w.service.OnConfigChanged(cp)
	if err != nil {
		w.logger.Warn("config reload failed", slog.String("path", cp.String()), slog.String("error", err.Error()))
		return
	}
	if snap == nil {
		return
	}
	w.logger.Debug("layout reloaded", slog.Int("version", snap.Version), slog.Int("sources", len(snap.SourceFiles)))
	if w.onChanged != nil {
		w.onChanged(snap)
	}
}
