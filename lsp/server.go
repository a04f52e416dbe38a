// Package lsp implements a Language Server Protocol server for SystemVerilog source.
package lsp

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	// commonlog is a required dependency of github.com/tliron/glsp.
	// We silence it in NewServer() via commonlog.Configure(0, nil) because
	// this server uses slog for all logging. The blank import of the "simple"
	// backend is required by glsp at runtime.
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	_ "github.com/tliron/commonlog/simple" // required backend for glsp
)

// sourceExtensions mirrors core/layout's notion of a SystemVerilog source
// file; the LSP-facing copy exists because it keys off a URI's extension
// rather than a walked filesystem path.
var sourceExtensions = map[string]bool{
	".sv":  true,
	".svh": true,
	".v":   true,
	".vh":  true,
}

// isSourceURI returns true if the URI refers to a file this server indexes.
func isSourceURI(uri string) bool {
	path, err := URIToPath(uri)
	if err != nil {
		return false
	}
	return sourceExtensions[strings.ToLower(filepath.Ext(path))]
}

const (
	serverName           = "slangd-go"
	fileWatcherID        = "slangd-source-watcher"
	fileWatcherGlob      = "**/*.{sv,svh,v,vh}"
	configWatcherGlob    = "**/" + ".slangd"
	watchedFilesRegister = "workspace/didChangeWatchedFiles"
)

// Config holds the server configuration.
type Config struct {
	// WorkspaceRoot overrides the root discovered from the client's
	// initialize request, when set from the command line.
	WorkspaceRoot string
}

// Server is the SystemVerilog language server.
type Server struct {
	logger    *slog.Logger
	config    Config
	handler   protocol.Handler
	server    *server.Server
	workspace *Workspace

	// shutdownCalled tracks whether shutdown was called before exit (LSP lifecycle)
	shutdownCalled bool

	// closeOnce ensures Close is idempotent
	closeOnce sync.Once
	closeErr  error
}

// NewServer creates a new SystemVerilog language server.
// If logger is nil, slog.Default() is used.
func NewServer(logger *slog.Logger, cfg Config) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		logger:    logger.With(slog.String("component", "server")),
		config:    cfg,
		workspace: NewWorkspace(logger, cfg), // Pass base logger; workspace adds its own component
	}

	// Silence commonlog - glsp uses it internally but we use slog for all logging.
	commonlog.Configure(0, nil)

	s.handler = protocol.Handler{
		// Lifecycle
		Initialize:    s.initialize,
		Initialized:   s.initialized,
		Shutdown:      s.shutdown,
		Exit:          s.exit,
		SetTrace:      s.setTrace,
		CancelRequest: s.cancelRequest,

		// Text Document Synchronization
		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		// Language Features
		TextDocumentDefinition:     s.textDocumentDefinition,
		TextDocumentDocumentSymbol: s.textDocumentDocumentSymbol,

		// Workspace
		WorkspaceDidChangeWatchedFiles:     s.workspaceDidChangeWatchedFiles,
		WorkspaceDidChangeWorkspaceFolders: s.workspaceDidChangeWorkspaceFolders,
	}

	s.server = server.NewServer(&s.handler, serverName, false)

	return s
}

// Handler returns the protocol handler for testing purposes.
func (s *Server) Handler() *protocol.Handler {
	return &s.handler
}

// RunStdio runs the server using stdio transport.
func (s *Server) RunStdio() error {
	if err := s.server.RunStdio(); err != nil {
		return fmt.Errorf("run stdio: %w", err)
	}
	return nil
}

// Shutdown initiates graceful server shutdown.
// It releases workspace resources (layout watcher, session manager) so the
// process can exit cleanly.
func (s *Server) Shutdown() {
	s.logger.Info("initiating shutdown")
	s.workspace.Close()
}

// Close closes the JSON-RPC connection, causing RunStdio to return.
// This enables graceful shutdown when a signal is received.
//
// Close is idempotent: multiple calls return the same result and do not panic.
// It is safe to call before RunStdio (returns nil if connection not initialized).
//
// Note: The nil check is intentionally outside closeOnce.Do() to avoid consuming
// the Once when the connection is not yet ready. This allows callers to retry
// Close() if called before RunStdio() has initialized the connection.
func (s *Server) Close() error {
	conn := s.server.GetStdio()
	if conn == nil {
		return nil // Connection not ready, caller can retry
	}
	s.closeOnce.Do(func() {
		if err := conn.Close(); err != nil {
			s.closeErr = fmt.Errorf("close connection: %w", err)
		}
	})
	return s.closeErr
}

// initialize handles the initialize request.
func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.logger.Info("initialize request received",
		slog.String("client_name", s.clientName(params)),
		slog.String("root_uri", s.rootURI(params)),
	)

	s.logClientCapabilities(params.Capabilities)

	switch {
	case s.config.WorkspaceRoot != "":
		s.setRoot(PathToURI(s.config.WorkspaceRoot))
	case len(params.WorkspaceFolders) > 0:
		s.setRoot(params.WorkspaceFolders[0].URI)
		if len(params.WorkspaceFolders) > 1 {
			s.logger.Warn("multiple workspace folders advertised; indexing only the first",
				slog.Int("count", len(params.WorkspaceFolders)))
		}
	case params.RootURI != nil:
		s.setRoot(*params.RootURI)
	case params.RootPath != nil:
		s.setRoot(PathToURI(*params.RootPath))
	}

	// Use UTF-16 encoding (default for VS Code compatibility).
	// Position encoding negotiation requires LSP 3.17; glsp only supports 3.16.
	posEncoding := PositionEncodingUTF16
	s.workspace.SetPositionEncoding(posEncoding)
	s.logger.Info("using position encoding", slog.String("encoding", string(posEncoding)))

	capabilities := s.handler.CreateServerCapabilities()

	// Override to full text sync: simpler and safer than tracking incremental
	// ranges, and this server only ever needs the buffer's latest content.
	syncKind := protocol.TextDocumentSyncKindFull
	if syncOpts, ok := capabilities.TextDocumentSync.(*protocol.TextDocumentSyncOptions); ok {
		syncOpts.Change = &syncKind
	}

	version := "dev"
	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &version,
		},
	}, nil
}

func (s *Server) setRoot(uri string) {
	if uri == "" {
		return
	}
	if err := s.workspace.SetRoot(uri); err != nil {
		s.logger.Error("failed to set workspace root", slog.String("uri", uri), slog.String("error", err.Error()))
	}
}

// initialized handles the initialized notification. It registers for
// workspace/didChangeWatchedFiles so edits to source and config files made
// outside an open buffer (another tool, git checkout, a sibling editor) are
// still picked up.
func (s *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	s.logger.Info("server initialized")

	s.workspace.SetNotifier(func(method string, params any) {
		if ctx != nil {
			ctx.Notify(method, params)
		}
	})

	if ctx == nil {
		return nil
	}

	registration := protocol.RegistrationParams{
		Registrations: []protocol.Registration{
			{
				ID:     fileWatcherID,
				Method: watchedFilesRegister,
				RegisterOptions: protocol.DidChangeWatchedFilesRegistrationOptions{
					Watchers: []protocol.FileSystemWatcher{
						{GlobPattern: fileWatcherGlob},
						{GlobPattern: configWatcherGlob},
					},
				},
			},
		},
	}

	// client/registerCapability is a request; glsp.Context.Call must run off
	// the dispatcher goroutine or the client's response can never be read.
	go func() {
		var result any
		ctx.Call("client/registerCapability", registration, &result)
	}()

	return nil
}

// shutdown handles the shutdown request.
func (s *Server) shutdown(ctx *glsp.Context) error {
	s.logger.Info("shutdown request received")
	s.shutdownCalled = true
	protocol.SetTraceValue(protocol.TraceValueOff)
	return nil
}

// exit handles the exit notification per LSP spec.
// Exit code is 0 if shutdown was called first, 1 otherwise.
func (s *Server) exit(_ *glsp.Context) error {
	exitCode := 0
	if !s.shutdownCalled {
		s.logger.Warn("exit called without shutdown")
		exitCode = 1
	}
	s.logger.Info("exit notification received", slog.Int("exit_code", exitCode))
	os.Exit(exitCode)
	return nil // unreachable
}

// setTrace handles the $/setTrace notification.
func (s *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	s.logger.Debug("setTrace", slog.String("value", string(params.Value)))
	protocol.SetTraceValue(params.Value)
	return nil
}

// cancelRequest handles the $/cancelRequest notification.
//
// This method logs cancellation requests for debugging. Request cancellation
// itself is handled at the JSON-RPC layer by glsp; debounced rebuilds are
// separately cancelled via the workspace's own context plumbing.
func (s *Server) cancelRequest(ctx *glsp.Context, params *protocol.CancelParams) error {
	s.logger.Debug("cancelRequest", slog.Any("id", params.ID))
	return nil
}

// textDocumentDidOpen handles textDocument/didOpen.
func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.logger.Debug("textDocument/didOpen",
		slog.String("uri", uri),
		slog.Int("version", int(params.TextDocument.Version)),
	)

	if !isSourceURI(uri) {
		s.logger.Debug("ignoring didOpen for unsupported file type", slog.String("uri", uri))
		return nil
	}

	s.workspace.DocumentOpened(uri, int(params.TextDocument.Version), params.TextDocument.Text)
	return nil
}

// textDocumentDidChange handles textDocument/didChange. Only full-document
// content change events are expected, since the server advertises full sync.
func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.logger.Debug("textDocument/didChange",
		slog.String("uri", uri),
		slog.Int("version", int(params.TextDocument.Version)),
	)

	if !isSourceURI(uri) {
		s.logger.Debug("ignoring didChange for unsupported file type", slog.String("uri", uri))
		return nil
	}

	var lastFullChange *protocol.TextDocumentContentChangeEventWhole
	for _, rawChange := range params.ContentChanges {
		if change, ok := rawChange.(protocol.TextDocumentContentChangeEventWhole); ok {
			lastFullChange = &change
		}
	}
	if lastFullChange == nil {
		s.logger.Warn("received non-full change event but server advertises full sync",
			slog.String("uri", uri), slog.Int("version", int(params.TextDocument.Version)))
		return nil
	}

	s.workspace.DocumentChanged(uri, int(params.TextDocument.Version), lastFullChange.Text)
	return nil
}

// normalizeLineEndings converts CRLF and CR line endings to LF, so byte and
// line/column arithmetic downstream doesn't have to special-case Windows
// clients.
func normalizeLineEndings(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return text
}

// textDocumentDidClose handles textDocument/didClose.
func (s *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.logger.Debug("textDocument/didClose", slog.String("uri", uri))

	if !isSourceURI(uri) {
		s.logger.Debug("ignoring didClose for unsupported file type", slog.String("uri", uri))
		return nil
	}

	s.workspace.DocumentClosed(uri)
	return nil
}

// workspaceDidChangeWatchedFiles handles workspace/didChangeWatchedFiles.
func (s *Server) workspaceDidChangeWatchedFiles(ctx *glsp.Context, params *protocol.DidChangeWatchedFilesParams) error {
	for _, change := range params.Changes {
		s.logger.Debug("watched file changed",
			slog.String("uri", change.URI),
			slog.Int("type", int(change.Type)),
		)
		s.workspace.FileChanged(change.URI)
	}
	return nil
}

// workspaceDidChangeWorkspaceFolders handles workspace/didChangeWorkspaceFolders.
// This server indexes a single root established at initialize time; folder
// changes after that are logged but do not move the indexed root, matching
// the single-workspace model of the reference implementation.
func (s *Server) workspaceDidChangeWorkspaceFolders(ctx *glsp.Context, params *protocol.DidChangeWorkspaceFoldersParams) error {
	for _, folder := range params.Event.Removed {
		s.logger.Warn("workspace folder removed; ignoring (single-root server)", slog.String("uri", folder.URI))
	}
	for _, folder := range params.Event.Added {
		s.logger.Warn("workspace folder added; ignoring (single-root server)", slog.String("uri", folder.URI))
	}
	return nil
}

// Helper functions

func (s *Server) clientName(params *protocol.InitializeParams) string {
	if params.ClientInfo != nil {
		if params.ClientInfo.Version != nil {
			return params.ClientInfo.Name + " " + *params.ClientInfo.Version
		}
		return params.ClientInfo.Name
	}
	return "unknown"
}

func (s *Server) rootURI(params *protocol.InitializeParams) string {
	if params.RootURI != nil {
		return *params.RootURI
	}
	return ""
}

func (s *Server) logClientCapabilities(caps protocol.ClientCapabilities) {
	var features []string

	if caps.TextDocument != nil {
		if caps.TextDocument.Definition != nil {
			features = append(features, "definition")
		}
		if caps.TextDocument.DocumentSymbol != nil {
			features = append(features, "document-symbol")
		}
	}

	s.logger.Info("client capabilities", slog.Any("features", features))
}
