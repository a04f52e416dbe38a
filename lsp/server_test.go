package lsp

import (
	"testing"
)

func TestNewServer(t *testing.T) {
	t.Parallel()

	server := NewServer(testLogger(), Config{WorkspaceRoot: "/test/root"})

	if server == nil {
		t.Fatal("NewServer() returned nil")
	}
	if server.workspace == nil {
		t.Error("server.workspace is nil")
	}
	if server.server == nil {
		t.Error("server.server is nil")
	}
	if server.config.WorkspaceRoot != "/test/root" {
		t.Errorf("config.WorkspaceRoot = %q; want /test/root", server.config.WorkspaceRoot)
	}
}

func TestServer_Close_Idempotent(t *testing.T) {
	t.Parallel()

	server := NewServer(testLogger(), Config{})

	if err := server.Close(); err != nil {
		t.Errorf("first Close() error: %v", err)
	}
	if err := server.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
}

func TestServer_Shutdown_DoesNotPanic(t *testing.T) {
	t.Parallel()

	server := NewServer(testLogger(), Config{})
	server.Shutdown()
}

func TestServerName_Constant(t *testing.T) {
	t.Parallel()

	if serverName != "slangd-go" {
		t.Errorf("serverName = %q; want slangd-go", serverName)
	}
}

func TestIsSourceURI(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"file:///a/b.sv":    true,
		"file:///a/b.svh":   true,
		"file:///a/b.v":     true,
		"file:///a/b.vh":    true,
		"file:///a/b.SV":    true,
		"file:///a/b.txt":   false,
		"file:///a/b":       false,
		"not-a-uri":         false,
	}
	for uri, want := range cases {
		if got := isSourceURI(uri); got != want {
			t.Errorf("isSourceURI(%q) = %v; want %v", uri, got, want)
		}
	}
}

func TestNormalizeLineEndings(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"a\r\nb\r\nc": "a\nb\nc",
		"a\rb\rc":     "a\nb\nc",
		"a\nb\nc":     "a\nb\nc",
	}
	for in, want := range cases {
		if got := normalizeLineEndings(in); got != want {
			t.Errorf("normalizeLineEndings(%q) = %q; want %q", in, got, want)
		}
	}
}
