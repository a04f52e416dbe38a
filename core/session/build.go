// Package session implements the overlay session builder (assembling one
// main buffer's compilation against the shared preamble) and the session
// manager that schedules and caches those builds concurrently.
package session

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hankhsu1996/slangd-go/core/preamble"
	"github.com/hankhsu1996/slangd-go/internal/source"
	"github.com/hankhsu1996/slangd-go/internal/sv"
	"github.com/hankhsu1996/slangd-go/location"
	"github.com/hankhsu1996/slangd-go/semantic"
)

// assembleCompilation runs the compilation-assembly half of an overlay
// build: parse the main buffer, then splice in every preamble package and
// interface whose declaring file isn't the main buffer itself (the buffer
// is authoritative over its own content, even if it happens to redeclare
// something the preamble already saw on disk). Reading a preamble file from
// disk is a best-effort step exactly like the preamble build itself: a
// missing or unreadable file is logged and skipped, never fatal.
//
// Every tree's raw content is also registered into a fresh source.Registry,
// returned alongside the compilation so the lsp package can convert LSP
// positions against the main buffer or any spliced-in file without
// re-reading either from disk.
func assembleCompilation(uri string, content []byte, pre *preamble.Data, logger *slog.Logger) (*sv.Compilation, location.SourceID, *sv.Tree, *source.Registry, error) {
	mainPath, err := location.URIToCanonicalPath(uri)
	if err != nil {
		return nil, location.SourceID{}, nil, nil, fmt.Errorf("resolve main buffer path: %w", err)
	}
	mainSource := location.SourceIDFromCanonicalPath(mainPath)

	comp := sv.NewCompilation()
	sources := source.NewRegistry()

	mainTree := comp.AddSyntaxTree(mainSource, content)
	_ = sources.Register(mainSource, content)

	seen := map[string]bool{mainPath.String(): true}
	for _, ref := range appendDeclRefs(pre.Packages(), pre.Interfaces()) {
		path := ref.DeclaringFile
		key := path.String()
		if seen[key] {
			continue
		}
		seen[key] = true

		data, err := os.ReadFile(path.String())
		if err != nil {
			logger.Warn("failed to read preamble file for overlay",
				slog.String("path", key), slog.String("error", err.Error()))
			continue
		}
		fileSource := location.SourceIDFromCanonicalPath(path)
		comp.AddSyntaxTree(fileSource, data)
		_ = sources.Register(fileSource, data)
	}

	return comp, mainSource, mainTree, sources, nil
}

func appendDeclRefs(groups ...[]preamble.DeclRef) []preamble.DeclRef {
	var out []preamble.DeclRef
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// buildIndex runs the indexing half of an overlay build: the semantic index
// pinned to the main buffer, computed against the whole assembled
// compilation's symbol table so cross-file references resolve correctly.
func buildIndex(uri string, mainSource location.SourceID, mainTree *sv.Tree, comp *sv.Compilation, logger *slog.Logger) *semantic.Index {
	return semantic.Build(uri, mainSource, mainTree, comp.Symbols(), logger)
}
