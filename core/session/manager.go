package session

import (
	"container/list"
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/hankhsu1996/slangd-go/core/preamble"
	"github.com/hankhsu1996/slangd-go/internal/source"
	"github.com/hankhsu1996/slangd-go/internal/sv"
	"github.com/hankhsu1996/slangd-go/location"
	"github.com/hankhsu1996/slangd-go/semantic"
)

// Phase marks how far a build has progressed. A cache entry's Index is only
// valid once Phase is PhaseIndexingComplete.
type Phase int

const (
	PhaseElaborationComplete Phase = iota + 1
	PhaseIndexingComplete
)

// DefaultMaxCacheSize is the LRU cache's default capacity.
const DefaultMaxCacheSize = 16

// DefaultWorkerCount is the default bound on concurrent builds.
const DefaultWorkerCount = 4

// Entry is a published build result: the overlay compilation for one
// document version, plus its semantic index once indexing has finished.
// Entries are immutable once installed and safe to share across concurrent
// feature requests.
type Entry struct {
	URI         string
	Version     int
	Phase       Phase
	MainSource  location.SourceID
	Compilation *sv.Compilation
	Sources     *source.Registry // main buffer plus every spliced-in preamble file
	Index       *semantic.Index  // nil until Phase == PhaseIndexingComplete
}

// pendingBuild tracks one in-flight build. elaborationDone and indexingDone
// are closed exactly once: either by a successful publish at that phase, or
// by cancellation — closing is the broadcast signal multiple concurrent
// waiters key off, per §4.7.5's multi-consumer requirement.
type pendingBuild struct {
	id            uuid.UUID // log-correlation ID, distinct from version
	version       int
	cancelled     atomic.Bool
	onElaboration func(*Entry)
	onIndexing    func(*Entry)

	elaborationDone chan struct{}
	indexingDone    chan struct{}
}

// Manager is the control plane (C7): a single dispatcher goroutine owns the
// LRU cache, the pending-build table, and the open-document set, while a
// bounded worker pool performs the actual compilation and indexing off that
// goroutine. Every exported method is safe for concurrent use.
type Manager struct {
	logger   *slog.Logger
	preamble atomic.Pointer[preamble.Data]
	maxCache int

	pool *errgroup.Group
	sem  *semaphore.Weighted

	cmds chan func()

	// Dispatcher-owned state — read and written only from inside a closure
	// sent to cmds, never directly.
	active   map[string]*Entry
	pending  map[string]*pendingBuild
	order    *list.List // front = most recently used
	elems    map[string]*list.Element
	openDocs map[string]bool
}

// NewManager starts a session manager with its dispatcher loop running in
// the background. Call Close to stop it.
func NewManager(pre *preamble.Data, logger *slog.Logger) *Manager {
	m := &Manager{
		logger:   logger,
		maxCache: DefaultMaxCacheSize,
		pool:     &errgroup.Group{},
		sem:      semaphore.NewWeighted(DefaultWorkerCount),
		cmds:     make(chan func()),
		active:   make(map[string]*Entry),
		pending:  make(map[string]*pendingBuild),
		order:    list.New(),
		elems:    make(map[string]*list.Element),
		openDocs: make(map[string]bool),
	}
	m.preamble.Store(pre)
	go m.dispatchLoop()
	return m
}

func (m *Manager) dispatchLoop() {
	for fn := range m.cmds {
		fn()
	}
}

// do posts fn to the dispatcher and blocks until it has run, giving callers
// a synchronous view of dispatcher-owned state without touching it directly.
func (m *Manager) do(fn func()) {
	done := make(chan struct{})
	m.cmds <- func() {
		fn()
		close(done)
	}
	<-done
}

// Close stops the dispatcher loop. No further method calls are safe
// afterward.
func (m *Manager) Close() {
	close(m.cmds)
}

// MarkOpen records uri as an open document, exempting it from LRU eviction
// preference (C8) as long as it remains open.
func (m *Manager) MarkOpen(uri string) {
	m.do(func() { m.openDocs[uri] = true })
}

// MarkClosed removes uri from the open-document set.
func (m *Manager) MarkClosed(uri string) {
	m.do(func() { delete(m.openDocs, uri) })
}

// UpdatePreamble swaps the preamble used by every future build. Sessions
// already built or in flight are unaffected; callers that need them rebuilt
// against the new preamble should follow with InvalidateAll.
func (m *Manager) UpdatePreamble(pre *preamble.Data) {
	m.preamble.Store(pre)
}

// UpdateSession starts (or reuses) a build for uri at version. onElaboration
// and onIndexing, if non-nil, run synchronously on the dispatcher the moment
// this exact build reaches the named phase; both are nil-safe to omit.
func (m *Manager) UpdateSession(uri string, content []byte, version int, onElaboration, onIndexing func(*Entry)) {
	var pre *preamble.Data
	var pb *pendingBuild

	m.do(func() {
		if e, ok := m.active[uri]; ok && e.Version == version {
			m.touchLocked(uri)
			return
		}
		if pb, ok := m.pending[uri]; ok {
			if pb.version == version {
				return
			}
			m.cancelPendingLocked(uri)
		}
		if e, ok := m.active[uri]; ok && e.Version != version {
			m.evictLocked(uri)
		}

		pb = &pendingBuild{
			id:              uuid.New(),
			version:         version,
			onElaboration:   onElaboration,
			onIndexing:      onIndexing,
			elaborationDone: make(chan struct{}),
			indexingDone:    make(chan struct{}),
		}
		m.pending[uri] = pb
		pre = m.preamble.Load()
	})

	if pb != nil {
		m.runBuild(uri, content, version, pre, pb)
	}
}

// runBuild dispatches one build to the worker pool, following §4.7.3's
// pipeline exactly: a cancellation check before each expensive phase, and a
// final check — under the dispatcher — that this build's pendingBuild entry
// hasn't been superseded before anything is published.
func (m *Manager) runBuild(uri string, content []byte, version int, pre *preamble.Data, pb *pendingBuild) {
	m.pool.Go(func() error {
		if pb.cancelled.Load() {
			return nil
		}

		if err := m.sem.Acquire(context.Background(), 1); err != nil {
			return nil
		}
		defer m.sem.Release(1)

		m.logger.Debug("build started", slog.String("uri", uri), slog.String("build_id", pb.id.String()), slog.Int("version", version))

		comp, mainSource, mainTree, sources, err := assembleCompilation(uri, content, pre, m.logger)
		if pb.cancelled.Load() {
			return nil
		}
		if err != nil {
			m.logger.Error("overlay build failed", slog.String("uri", uri), slog.String("error", err.Error()))
			m.do(func() { m.dropPendingIfCurrentLocked(uri, pb) })
			return nil
		}

		elaborated := &Entry{URI: uri, Version: version, Phase: PhaseElaborationComplete, MainSource: mainSource, Compilation: comp, Sources: sources}
		m.do(func() {
			if m.pending[uri] != pb || pb.cancelled.Load() {
				return
			}
			m.active[uri] = elaborated
			m.touchLocked(uri)
			m.evictIfNeededLocked()
			if pb.onElaboration != nil {
				pb.onElaboration(elaborated)
			}
			close(pb.elaborationDone)
		})
		if pb.cancelled.Load() {
			return nil
		}

		index := buildIndex(uri, mainSource, mainTree, comp, m.logger)
		indexed := &Entry{URI: uri, Version: version, Phase: PhaseIndexingComplete, MainSource: mainSource, Compilation: comp, Sources: sources, Index: index}
		m.do(func() {
			if m.pending[uri] != pb || pb.cancelled.Load() {
				return
			}
			m.active[uri] = indexed
			m.touchLocked(uri)
			if pb.onIndexing != nil {
				pb.onIndexing(indexed)
			}
			close(pb.indexingDone)
			delete(m.pending, uri)
		})
		m.logger.Debug("build completed", slog.String("uri", uri), slog.String("build_id", pb.id.String()))
		return nil
	})
}

// dropPendingIfCurrentLocked removes pb from the pending table if it's still
// the build registered for uri, without publishing anything — used on an
// unrecoverable build error so subsequent requests trigger a fresh attempt.
// Its phase channels are closed the same way cancellation closes them, so
// waiters wake up and observe absence.
func (m *Manager) dropPendingIfCurrentLocked(uri string, pb *pendingBuild) {
	if m.pending[uri] == pb {
		m.cancelPendingLocked(uri)
	}
}

// RemoveSession cancels any pending build and evicts any cached session for
// uri.
func (m *Manager) RemoveSession(uri string) {
	m.do(func() {
		m.cancelPendingLocked(uri)
		m.evictLocked(uri)
	})
}

// InvalidateSessions does the same as RemoveSession for every uri, as one
// atomic dispatcher operation.
func (m *Manager) InvalidateSessions(uris []string) {
	m.do(func() {
		for _, uri := range uris {
			m.cancelPendingLocked(uri)
			m.evictLocked(uri)
		}
	})
}

// InvalidateAll wipes the cache and cancels every pending build — used when
// the layout version bumps and every session's preamble assumptions are
// stale. The open-document set is untouched: document opens survive a
// layout reload.
func (m *Manager) InvalidateAll() {
	m.do(func() {
		for uri := range m.pending {
			m.cancelPendingLocked(uri)
		}
		m.active = make(map[string]*Entry)
		m.order = list.New()
		m.elems = make(map[string]*list.Element)
	})
}

// CancelPending cancels any in-flight build for uri without touching a
// cached session, for callers like didClose that only want to stop wasted
// work.
func (m *Manager) CancelPending(uri string) {
	m.do(func() { m.cancelPendingLocked(uri) })
}

// cancelPendingLocked must run on the dispatcher. Closing both phase
// channels wakes any waiter without publishing a result; §4.7.5 guarantees
// this is the only way a waiter observes "no hook ran for this version".
func (m *Manager) cancelPendingLocked(uri string) {
	pb, ok := m.pending[uri]
	if !ok {
		return
	}
	pb.cancelled.Store(true)
	delete(m.pending, uri)
	select {
	case <-pb.elaborationDone:
	default:
		close(pb.elaborationDone)
	}
	select {
	case <-pb.indexingDone:
	default:
		close(pb.indexingDone)
	}
}

func (m *Manager) evictLocked(uri string) {
	delete(m.active, uri)
	if elem, ok := m.elems[uri]; ok {
		m.order.Remove(elem)
		delete(m.elems, uri)
	}
}

func (m *Manager) touchLocked(uri string) {
	if elem, ok := m.elems[uri]; ok {
		m.order.MoveToFront(elem)
		return
	}
	m.elems[uri] = m.order.PushFront(uri)
}

// evictIfNeededLocked implements §4.7.4: while over capacity, prefer
// evicting a URI the client doesn't currently have open, falling back to
// the strict LRU tail only when every cached entry is open.
func (m *Manager) evictIfNeededLocked() {
	for len(m.active) > m.maxCache {
		victim, ok := m.pickVictimLocked()
		if !ok {
			m.logger.Error("LRU access order is empty while the cache is over capacity",
				slog.Int("cached", len(m.active)))
			return
		}
		m.evictLocked(victim)
	}
}

func (m *Manager) pickVictimLocked() (string, bool) {
	for e := m.order.Back(); e != nil; e = e.Prev() {
		uri, _ := e.Value.(string)
		if !m.openDocs[uri] {
			return uri, true
		}
	}
	if e := m.order.Back(); e != nil {
		uri, _ := e.Value.(string)
		return uri, true
	}
	return "", false
}

// GetCompilationState awaits phase PhaseElaborationComplete for uri: the
// cached entry if one is already that fresh, or the in-flight build's
// result once it publishes. It returns ok=false on context cancellation or
// if the awaited build was itself cancelled — per §7, absence rather than a
// stale or incorrect result.
func (m *Manager) GetCompilationState(ctx context.Context, uri string) (*Entry, bool) {
	return m.awaitPhase(ctx, uri, PhaseElaborationComplete)
}

// GetSession awaits phase PhaseIndexingComplete for uri, the primitive
// behind DocumentSymbol and go-to-definition.
func (m *Manager) GetSession(ctx context.Context, uri string) (*Entry, bool) {
	return m.awaitPhase(ctx, uri, PhaseIndexingComplete)
}

func (m *Manager) awaitPhase(ctx context.Context, uri string, want Phase) (*Entry, bool) {
	var cached *Entry
	var waitCh chan struct{}

	m.do(func() {
		if e, ok := m.active[uri]; ok && e.Phase >= want {
			cached = e
			return
		}
		if pb, ok := m.pending[uri]; ok {
			waitCh = pb.channelFor(want)
		}
	})
	if cached != nil {
		return cached, true
	}
	if waitCh == nil {
		return nil, false
	}

	select {
	case <-waitCh:
	case <-ctx.Done():
		return nil, false
	}

	var out *Entry
	m.do(func() {
		if e, ok := m.active[uri]; ok && e.Phase >= want {
			out = e
		}
	})
	return out, out != nil
}

// channelFor returns the phase-completion channel to wait on for want.
func (pb *pendingBuild) channelFor(want Phase) chan struct{} {
	if want == PhaseIndexingComplete {
		return pb.indexingDone
	}
	return pb.elaborationDone
}
