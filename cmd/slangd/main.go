// Package main provides the entry point for the slangd-go language server.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hankhsu1996/slangd-go/lsp"
)

var version = "dev"

// LevelTrace is a custom log level below debug for verbose tracing.
const LevelTrace = slog.Level(-8)

// isCleanShutdown checks if an error represents a normal client disconnect.
// LSP clients commonly close stdio on exit, which should not be reported as fatal.
func isCleanShutdown(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	if errors.Is(err, os.ErrClosed) {
		return true
	}
	errStr := err.Error()
	if strings.Contains(errStr, "broken pipe") || strings.Contains(errStr, "EPIPE") {
		return true
	}
	return false
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "slangd: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("slangd", flag.ContinueOnError)
	fs.SetOutput(io.Discard) // Suppress default output; we print usage ourselves

	var (
		logLevel      = fs.String("log-level", "info", "log level: error|warn|info|debug|trace")
		logFile       = fs.String("log-file", "", "log file path (empty to log to stderr)")
		workspaceRoot = fs.String("workspace-root", "", "override workspace root discovered from the client")
		showVer       = fs.Bool("version", false, "print version and exit")
		_             = fs.Bool("stdio", false, "use stdio transport (default, accepted for editor compatibility)")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: slangd [options]\n\n")
		fmt.Fprintf(os.Stderr, "SystemVerilog Language Server Protocol implementation.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.SetOutput(os.Stderr)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil // -help was requested, usage already printed
		}
		fs.Usage()
		return fmt.Errorf("parse flags: %w", err)
	}

	if *showVer {
		fmt.Printf("slangd %s\n", version)
		return nil
	}

	logger, cleanup, err := setupLogger(*logLevel, *logFile)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer cleanup()

	logger.Info("starting slangd",
		slog.String("version", version),
		slog.String("log_level", *logLevel),
	)

	// Canonicalize the workspace root up front to match how session state
	// keys compare paths later, especially on macOS where /var symlinks to
	// /private/var.
	canonicalRoot := *workspaceRoot
	if canonicalRoot != "" {
		if absRoot, err := filepath.Abs(canonicalRoot); err == nil {
			if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
				absRoot = resolved
			}
			canonicalRoot = filepath.Clean(absRoot)
			if canonicalRoot != *workspaceRoot {
				logger.Debug("canonicalized workspace root",
					slog.String("original", *workspaceRoot),
					slog.String("canonical", canonicalRoot),
				)
			}
		}

		if info, err := os.Stat(canonicalRoot); err != nil {
			logger.Warn("workspace root does not exist",
				slog.String("path", canonicalRoot),
				slog.String("error", err.Error()),
			)
		} else if !info.IsDir() {
			logger.Warn("workspace root is not a directory",
				slog.String("path", canonicalRoot),
			)
		}
	}

	cfg := lsp.Config{
		WorkspaceRoot: canonicalRoot,
	}

	server := lsp.NewServer(logger, cfg)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() { errCh <- server.RunStdio() }()

	logger.Info("running on stdio")

	select {
	case err := <-errCh:
		if err != nil {
			if isCleanShutdown(err) {
				logger.Debug("client closed connection")
			} else {
				return fmt.Errorf("run server: %w", err)
			}
		}
		logger.Info("server shutdown complete")
		return nil
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", slog.String("signal", sig.String()))
		server.Shutdown()
		if err := server.Close(); err != nil {
			logger.Warn("error closing connection", slog.String("error", err.Error()))
		}

		// Close stdin to unblock RunStdio's read operation. When running
		// manually (not connected to an editor), the JSON-RPC connection's
		// Close() doesn't close the underlying stdin, leaving RunStdio
		// blocked on os.Stdin.Read().
		if err := os.Stdin.Close(); err != nil {
			logger.Debug("error closing stdin", slog.String("error", err.Error()))
		}

		select {
		case err := <-errCh:
			if err != nil {
				logger.Debug("RunStdio returned after close", slog.String("error", err.Error()))
			}
		case <-time.After(5 * time.Second):
			logger.Warn("shutdown timed out, forcing exit")
		}

		logger.Info("server shutdown complete")
		return nil
	}
}

func setupLogger(level, logFile string) (*slog.Logger, func(), error) {
	var slogLevel slog.Level
	switch level {
	case "error":
		slogLevel = slog.LevelError
	case "warn":
		slogLevel = slog.LevelWarn
	case "info":
		slogLevel = slog.LevelInfo
	case "debug":
		slogLevel = slog.LevelDebug
	case "trace":
		slogLevel = LevelTrace
	default:
		return nil, nil, fmt.Errorf("invalid log level: %q", level)
	}

	var w io.Writer
	cleanup := func() {}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		cleanup = func() { _ = f.Close() }
	} else {
		w = os.Stderr
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     slogLevel,
		AddSource: true,
	})

	return slog.New(handler), cleanup, nil
}
