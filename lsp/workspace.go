package lsp

import (
	"context"
	"log/slog"
	"sync"
	"time"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/hankhsu1996/slangd-go/core/layout"
	"github.com/hankhsu1996/slangd-go/core/preamble"
	"github.com/hankhsu1996/slangd-go/core/session"
	"github.com/hankhsu1996/slangd-go/diag"
	"github.com/hankhsu1996/slangd-go/location"
)

// PositionEncoding identifies the unit the client negotiated for Position.character.
type PositionEncoding string

const (
	PositionEncodingUTF16 PositionEncoding = "utf-16"
	PositionEncodingUTF8  PositionEncoding = "utf-8"
)

// debounceDelay bounds how long a rebuild waits after the last edit to a
// document, so a burst of keystrokes collapses into a single build.
const debounceDelay = 150 * time.Millisecond

type debounceEntry struct {
	timer  *time.Timer
	cancel context.CancelFunc
}

// Notifier sends a server-to-client notification. It is nil in tests that
// exercise the workspace without a live transport.
type Notifier func(method string, params any)

// openDoc tracks the client's current view of an open document, independent
// of whatever session.Manager has managed to build from it so far.
type openDoc struct {
	version int
	text    []byte
}

// Workspace owns the single project root this server was initialized
// against: the layout it discovers on disk, the preamble compiled from that
// layout, and the session manager that turns buffer edits into compilations.
type Workspace struct {
	logger *slog.Logger
	config Config

	mu      sync.RWMutex
	root    location.CanonicalPath
	hasRoot bool
	notify  Notifier
	posEnc  PositionEncoding
	open    map[string]*openDoc

	layoutSvc *layout.Service
	watcher   *layout.Watcher
	sessions  *session.Manager

	debounceMu sync.Mutex
	debounces  map[string]*debounceEntry
}

// NewWorkspace constructs an empty Workspace. SetRoot must be called before
// any document or feature request is served.
func NewWorkspace(logger *slog.Logger, cfg Config) *Workspace {
	return &Workspace{
		logger:    logger,
		config:    cfg,
		posEnc:    PositionEncodingUTF16,
		open:      make(map[string]*openDoc),
		debounces: make(map[string]*debounceEntry),
	}
}

// SetNotifier installs the channel used for notifications not tied to a
// specific request (published diagnostics, in particular). The underlying
// stdio connection is the same regardless of which request produced the
// glsp.Context, so it is safe to capture once and reuse for the spontaneous
// pushes the layout watcher triggers.
func (w *Workspace) SetNotifier(n Notifier) {
	w.mu.Lock()
	w.notify = n
	w.mu.Unlock()
}

func (w *Workspace) notifier() Notifier {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.notify
}

// SetPositionEncoding records the position encoding negotiated during initialize.
func (w *Workspace) SetPositionEncoding(enc PositionEncoding) {
	w.mu.Lock()
	w.posEnc = enc
	w.mu.Unlock()
}

// PositionEncoding returns the negotiated position encoding.
func (w *Workspace) PositionEncoding() PositionEncoding {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.posEnc
}

// Sessions returns the session manager, or nil if SetRoot has not run yet.
func (w *Workspace) Sessions() *session.Manager {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.sessions
}

// HasRoot reports whether a workspace root has been established.
func (w *Workspace) HasRoot() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.hasRoot
}

// SetRoot establishes the single workspace root this server indexes. A
// second call is a no-op: this server follows a single-root model, not the
// multi-root model the LSP spec permits.
func (w *Workspace) SetRoot(uri string) error {
	path, err := URIToPath(uri)
	if err != nil {
		return err
	}
	root, err := location.NewCanonicalPath(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	if w.hasRoot {
		w.mu.Unlock()
		w.logger.Warn("workspace root already set; ignoring additional root", "uri", uri)
		return nil
	}
	w.root = root
	w.hasRoot = true
	w.mu.Unlock()

	layoutSvc := layout.NewService(root, diag.NewCollectorUnlimited())
	snap, err := layoutSvc.Load()
	if err != nil {
		return err
	}

	pre := preamble.Build(snap, w.logger)

	w.mu.Lock()
	w.layoutSvc = layoutSvc
	w.sessions = session.NewManager(pre, w.logger)
	w.mu.Unlock()

	watcher, err := layout.NewWatcher(layoutSvc, w.logger, w.applyLayout)
	if err != nil {
		w.logger.Warn("failed to start layout watcher", "error", err.Error())
		return nil
	}
	w.mu.Lock()
	w.watcher = watcher
	w.mu.Unlock()

	w.logger.Info("workspace root established",
		"root", root.String(),
		"sources", len(snap.SourceFiles),
		"packages", len(pre.Packages()),
		"interfaces", len(pre.Interfaces()))
	return nil
}

// applyLayout is the layout watcher's onChanged callback: it rebuilds the
// preamble from the new snapshot, swaps it into the session manager, drops
// every cached build (the preamble they were built against is now stale),
// and re-triggers a build for whatever documents remain open so their
// diagnostics reflect the new layout.
func (w *Workspace) applyLayout(snap *layout.Snapshot) {
	pre := preamble.Build(snap, w.logger)

	sessions := w.Sessions()
	if sessions == nil {
		return
	}
	sessions.UpdatePreamble(pre)
	sessions.InvalidateAll()

	w.logger.Info("layout reloaded", "version", snap.Version, "sources", len(snap.SourceFiles))

	w.mu.RLock()
	docs := make(map[string]*openDoc, len(w.open))
	for uri, doc := range w.open {
		docs[uri] = doc
	}
	w.mu.RUnlock()

	notify := w.notifier()
	for uri, doc := range docs {
		w.analyze(notify, uri, doc.version, doc.text)
	}
}

// DocumentOpened registers uri as open and triggers an immediate build.
func (w *Workspace) DocumentOpened(uri string, version int, text string) {
	content := []byte(normalizeLineEndings(text))

	w.mu.Lock()
	w.open[uri] = &openDoc{version: version, text: content}
	w.mu.Unlock()

	sessions := w.Sessions()
	if sessions == nil {
		return
	}
	sessions.MarkOpen(uri)
	w.analyze(w.notifier(), uri, version, content)
}

// DocumentChanged records the new full-document content and schedules a
// debounced rebuild. Version staleness is handled by session.Manager itself,
// so this layer does not need to re-check ordering before calling in.
func (w *Workspace) DocumentChanged(uri string, version int, text string) {
	content := []byte(normalizeLineEndings(text))

	w.mu.Lock()
	w.open[uri] = &openDoc{version: version, text: content}
	w.mu.Unlock()

	w.scheduleAnalysis(uri, version, content)
}

// DocumentClosed drops uri from the open set, cancels any pending debounced
// build, and clears its published diagnostics.
func (w *Workspace) DocumentClosed(uri string) {
	w.mu.Lock()
	delete(w.open, uri)
	w.mu.Unlock()

	w.cancelPendingAnalysis(uri)

	if sessions := w.Sessions(); sessions != nil {
		sessions.CancelPending(uri)
		sessions.MarkClosed(uri)
	}

	w.publishDiagnostics(w.notifier(), uri, nil)
}

// FileChanged handles a workspace/didChangeWatchedFiles notification. Any
// watched-file edit can change what auto-discovery or an explicit file_lists
// entry would pick up, so the layout is reloaded unconditionally rather than
// trying to infer relevance from the change type or path; Service.Load is
// cheap relative to a rebuild. Every reload yields a new snapshot version,
// and applyLayout then drops every cached build and rebuilds the open
// documents, even when nothing in the layout changed.
func (w *Workspace) FileChanged(uri string) {
	w.logger.Debug("watched file changed", "uri", uri)

	w.mu.RLock()
	layoutSvc := w.layoutSvc
	w.mu.RUnlock()
	if layoutSvc == nil {
		return
	}

	snap, err := layoutSvc.Load()
	if err != nil {
		w.logger.Warn("layout reload failed", "error", err.Error())
		return
	}
	w.applyLayout(snap)
}

func (w *Workspace) scheduleAnalysis(uri string, version int, content []byte) {
	notify := w.notifier()

	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if existing, ok := w.debounces[uri]; ok {
		existing.timer.Stop()
		existing.cancel()
	}

	analyzeCtx, cancel := context.WithCancel(context.Background())
	entry := &debounceEntry{cancel: cancel}
	entry.timer = time.AfterFunc(debounceDelay, func() {
		select {
		case <-analyzeCtx.Done():
			return
		default:
		}
		w.analyze(notify, uri, version, content)

		w.debounceMu.Lock()
		if w.debounces[uri] == entry {
			delete(w.debounces, uri)
		}
		w.debounceMu.Unlock()
	})
	w.debounces[uri] = entry
}

func (w *Workspace) cancelPendingAnalysis(uri string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()
	if existing, ok := w.debounces[uri]; ok {
		existing.timer.Stop()
		existing.cancel()
		delete(w.debounces, uri)
	}
}

// analyze hands content to the session manager and arranges for diagnostics
// to be published once elaboration completes. The hook runs synchronously on
// the manager's dispatcher goroutine, so the diagnostics projection (which
// walks the rendered source) is pushed onto its own goroutine to avoid
// stalling every other session's progress behind it.
func (w *Workspace) analyze(notify Notifier, uri string, version int, content []byte) {
	sessions := w.Sessions()
	if sessions == nil {
		return
	}
	sessions.UpdateSession(uri, content, version, func(e *session.Entry) {
		go w.publishDiagnostics(notify, e.URI, ProjectDiagnostics(e))
	}, nil)
}

func (w *Workspace) publishDiagnostics(notify Notifier, uri string, diagnostics []protocol.Diagnostic) {
	if notify == nil {
		return // No-op in test context without transport.
	}

	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}

	notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// Close releases the layout watcher and session manager resources.
func (w *Workspace) Close() {
	w.mu.Lock()
	watcher := w.watcher
	sessions := w.sessions
	w.mu.Unlock()

	if watcher != nil {
		watcher.Close()
	}
	if sessions != nil {
		sessions.Close()
	}

	w.debounceMu.Lock()
	for uri, entry := range w.debounces {
		entry.timer.Stop()
		entry.cancel()
		delete(w.debounces, uri)
	}
	w.debounceMu.Unlock()
}
