// Package preamble builds and holds the workspace-wide shared catalogue of
// packages and interfaces that every overlay session reuses, so a
// per-document build never has to rediscover them.
package preamble

import (
	"log/slog"
	"os"

	"github.com/hankhsu1996/slangd-go/core/layout"
	"github.com/hankhsu1996/slangd-go/internal/sv"
	"github.com/hankhsu1996/slangd-go/location"
)

// DeclRef names a package or interface the preamble discovered, and the
// file it was declared in.
type DeclRef struct {
	Name          string
	DeclaringFile location.CanonicalPath
}

// Data is the immutable result of a preamble build. A new Data replaces the
// previous one atomically whenever the layout changes; sessions hold shared
// read-only references to one Data instance for as long as they're valid.
//
// Data never exposes a mutable handle into its compilation, and it never
// calls anything that would trigger elaboration — it is a metadata service
// only. Overlay builds use it purely as a source of syntax trees to splice
// around the main buffer.
type Data struct {
	compilation *sv.Compilation
	packages    []DeclRef
	interfaces  []DeclRef
	includeDirs []location.CanonicalPath
	defines     []string
	version     int
}

// Compilation returns the shared compilation overlay builds draw syntax
// trees from. Callers must only read from it (Trees/Symbols/GetPackages/
// GetDefinitions/References/Diagnostics) — never elaborate through it.
func (d *Data) Compilation() *sv.Compilation { return d.compilation }

// Packages returns every package the preamble discovered.
func (d *Data) Packages() []DeclRef { return d.packages }

// Interfaces returns every interface definition the preamble discovered.
func (d *Data) Interfaces() []DeclRef { return d.interfaces }

// IncludeDirs replays the include search paths a consumer should apply when
// constructing its own compilation options.
func (d *Data) IncludeDirs() []location.CanonicalPath { return d.includeDirs }

// Defines replays the preprocessor defines a consumer should apply.
func (d *Data) Defines() []string { return d.defines }

// Version is the LayoutSnapshot version this Data was built from.
func (d *Data) Version() int { return d.version }

// Build assembles a preamble from a resolved layout snapshot: every source
// file is parsed and added to a fresh compilation; failures to read or
// parse an individual file are logged and skipped, never fatal to the
// build as a whole.
func Build(snap *layout.Snapshot, logger *slog.Logger) *Data {
	logger = logger.With(slog.String("component", "preamble"))
	compilation := sv.NewCompilation()

	for _, path := range snap.SourceFiles {
		content, err := os.ReadFile(path.String())
		if err != nil {
			logger.Warn("failed to read source file", slog.String("path", path.String()), slog.String("error", err.Error()))
			continue
		}
		source := location.SourceIDFromCanonicalPath(path)
		compilation.AddSyntaxTree(source, content)
	}

	data := &Data{
		compilation: compilation,
		includeDirs: snap.IncludeDirs,
		defines:     snap.Defines,
		version:     snap.Version,
	}
	data.packages = declRefs(compilation.GetPackages())
	data.interfaces = declRefs(compilation.GetDefinitions(sv.DeclInterface))

	logger.Info("build complete",
		slog.Int("version", snap.Version),
		slog.Int("packages", len(data.packages)),
		slog.Int("interfaces", len(data.interfaces)))
	return data
}

func declRefs(decls []*sv.Decl) []DeclRef {
	out := make([]DeclRef, 0, len(decls))
	for _, d := range decls {
		ref := DeclRef{Name: d.Name}
		if cp, ok := d.Span.Source.CanonicalPath(); ok {
			ref.DeclaringFile = cp
		}
		out = append(out, ref)
	}
	return out
}
