package lsp

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewWorkspace(t *testing.T) {
	t.Parallel()

	w := NewWorkspace(testLogger(), Config{})
	if w == nil {
		t.Fatal("NewWorkspace() returned nil")
	}
	if w.HasRoot() {
		t.Error("HasRoot() = true; want false before SetRoot")
	}
	if w.Sessions() != nil {
		t.Error("Sessions() = non-nil; want nil before SetRoot")
	}
	if w.PositionEncoding() != PositionEncodingUTF16 {
		t.Errorf("PositionEncoding() = %q; want utf-16 default", w.PositionEncoding())
	}
}

func TestWorkspace_SetRoot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "top.sv"), []byte("module top; endmodule\n"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	w := NewWorkspace(testLogger(), Config{})
	if err := w.SetRoot(PathToURI(dir)); err != nil {
		t.Fatalf("SetRoot() error = %v", err)
	}
	defer w.Close()

	if !w.HasRoot() {
		t.Error("HasRoot() = false; want true after SetRoot")
	}
	if w.Sessions() == nil {
		t.Fatal("Sessions() = nil; want a manager after SetRoot")
	}
}

func TestWorkspace_SetRoot_SecondCallIgnored(t *testing.T) {
	t.Parallel()

	dirA := t.TempDir()
	dirB := t.TempDir()

	w := NewWorkspace(testLogger(), Config{})
	if err := w.SetRoot(PathToURI(dirA)); err != nil {
		t.Fatalf("SetRoot(dirA) error = %v", err)
	}
	defer w.Close()

	if err := w.SetRoot(PathToURI(dirB)); err != nil {
		t.Fatalf("SetRoot(dirB) error = %v", err)
	}

	// The second root is ignored: this server indexes exactly one root.
	if w.Sessions() == nil {
		t.Fatal("Sessions() = nil after second SetRoot")
	}
}

func TestWorkspace_DocumentLifecycle(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w := NewWorkspace(testLogger(), Config{})
	if err := w.SetRoot(PathToURI(dir)); err != nil {
		t.Fatalf("SetRoot() error = %v", err)
	}
	defer w.Close()

	var published []protocol.PublishDiagnosticsParams
	w.SetNotifier(func(method string, params any) {
		if p, ok := params.(protocol.PublishDiagnosticsParams); ok {
			published = append(published, p)
		}
	})

	uri := PathToURI(filepath.Join(dir, "top.sv"))
	w.DocumentOpened(uri, 1, "module top;\nendmodule\n")

	deadline := time.Now().Add(2 * time.Second)
	for len(published) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if len(published) == 0 {
		t.Fatal("no diagnostics published after DocumentOpened")
	}

	w.DocumentClosed(uri)
}

func TestWorkspace_DocumentOpened_WithoutRoot(t *testing.T) {
	t.Parallel()

	w := NewWorkspace(testLogger(), Config{})
	// Must not panic: requests can arrive before initialize finishes setting
	// the root, and analyze() guards on a nil session manager.
	w.DocumentOpened("file:///tmp/top.sv", 1, "module top; endmodule\n")
}
