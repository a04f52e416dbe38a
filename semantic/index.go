// Package semantic builds and queries the per-document semantic index: the
// flat list of every definition and reference occurrence in one buffer,
// keyed for O(1)-ish answers to "what does the cursor at P refer to" and
// "what is the document symbol forest for this buffer".
package semantic

import (
	"cmp"
	"log/slog"
	"slices"

	"github.com/hankhsu1996/slangd-go/internal/sv"
	"github.com/hankhsu1996/slangd-go/location"
)

// Entry is one row in the index: either the declaring occurrence of a
// symbol (IsDefinition=true) or a reference to one, each carrying its own
// occurrence range and the resolved definition location.
type Entry struct {
	Name string
	Decl *sv.Decl // stable symbol identity; nil only for an unresolved reference
	Kind Kind

	// Parent is the Decl whose scope directly encloses this entry, used to
	// group definitions into the document symbol forest. Nil at file scope.
	Parent *sv.Decl

	IsDefinition bool

	// OccurrenceSpan is this entry's own range in the main
	// buffer: the identifier span for a definition, the usage span for a
	// reference.
	OccurrenceSpan location.Span

	// DefURI/DefSpan is the target definition's location: itself for a
	// definition, the resolved symbol's NameSpan for a reference (which may
	// live in a different file than the main buffer).
	DefURI  string
	DefSpan location.Span
}

type refRange struct {
	span  location.Span
	entry int
}

// Index is the immutable result of indexing one main buffer. It is built
// once per overlay session and never mutated afterward — safe to share
// across concurrent feature requests.
type Index struct {
	MainURI    string
	MainSource location.SourceID

	Entries []Entry

	references         []refRange // sorted by OccurrenceSpan.Start, for ReferenceAt
	definitionBySymbol map[*sv.Decl]int
	childrenByScope    map[*sv.Decl][]int
}

// Build walks mainTree's declarations, recording one Entry per definition and
// one per resolvable reference, and resolves every reference against
// symbols — the shared table built from the overlay's whole compilation
// (main buffer plus deduped preamble trees), so cross-file references
// resolve to their declaring file. importedPackages lists the package names
// wildcard-imported (`import pkg::*;`) by the main buffer, consulted when an
// unqualified reference isn't found in the global scope.
func Build(mainURI string, mainSource location.SourceID, mainTree *sv.Tree, symbols *sv.SymbolTable, logger *slog.Logger) *Index {
	ix := &Index{
		MainURI:            mainURI,
		MainSource:         mainSource,
		definitionBySymbol: make(map[*sv.Decl]int),
		childrenByScope:    make(map[*sv.Decl][]int),
	}

	importedPackages := collectWildcardImports(mainTree.Decls)

	for _, d := range mainTree.Decls {
		ix.recordDefinitions(d)
	}
	for _, ref := range mainTree.References {
		ix.recordReference(ref, symbols, importedPackages, logger)
	}

	for scope, idxs := range ix.childrenByScope {
		slices.SortFunc(idxs, func(a, b int) int {
			return cmp.Compare(
				spanOrderKey(ix.Entries[a].OccurrenceSpan.Start),
				spanOrderKey(ix.Entries[b].OccurrenceSpan.Start))
		})
		ix.childrenByScope[scope] = idxs
	}

	ix.references = make([]refRange, 0, len(ix.Entries))
	for i, e := range ix.Entries {
		if !e.IsDefinition {
			ix.references = append(ix.references, refRange{span: e.OccurrenceSpan, entry: i})
		}
	}
	slices.SortFunc(ix.references, func(a, b refRange) int {
		return cmp.Compare(spanOrderKey(a.span.Start), spanOrderKey(b.span.Start))
	})

	return ix
}

// spanOrderKey folds a position into a single comparable value for sorting
// within one file (line dominates, column breaks ties).
func spanOrderKey(p location.Position) int {
	return p.Line*1_000_000 + p.Column
}

func collectWildcardImports(decls []*sv.Decl) []string {
	var out []string
	for _, d := range decls {
		sv.Walk(d, func(n *sv.Decl) {
			if n.Kind == sv.DeclImport && n.Name == "*" {
				out = append(out, n.PackageQualifier)
			}
		})
	}
	return out
}

// recordDefinitions walks d and every descendant, adding one Entry per
// declaration. Import statements aren't symbols in their own right — they
// only affect reference resolution (collectWildcardImports) — so they're
// walked for children but never themselves recorded.
func (ix *Index) recordDefinitions(d *sv.Decl) {
	if d.Kind != sv.DeclImport {
		entry := Entry{
			Name:           d.Name,
			Decl:           d,
			Kind:           kindForDecl(d),
			Parent:         d.Parent,
			IsDefinition:   true,
			OccurrenceSpan: d.NameSpan,
			DefURI:         ix.MainURI,
			DefSpan:        d.NameSpan,
		}
		idx := len(ix.Entries)
		ix.Entries = append(ix.Entries, entry)
		ix.definitionBySymbol[d] = idx
		ix.childrenByScope[d.Parent] = append(ix.childrenByScope[d.Parent], idx)
	}
	for _, c := range d.Children {
		ix.recordDefinitions(c)
	}
}

func (ix *Index) recordReference(ref sv.Reference, symbols *sv.SymbolTable, importedPackages []string, logger *slog.Logger) {
	target, ok := resolveReference(ref, symbols, importedPackages)
	if !ok {
		if logger != nil {
			logger.Debug("unresolved reference", slog.String("name", ref.Name))
		}
		return
	}

	defURI := ix.MainURI
	if cp, ok := target.Span.Source.CanonicalPath(); ok && target.Span.Source != ix.MainSource {
		defURI = cp.URI()
	}

	ix.Entries = append(ix.Entries, Entry{
		Name:           ref.Name,
		Decl:           target,
		Kind:           kindForDecl(target),
		IsDefinition:   false,
		OccurrenceSpan: ref.Span,
		DefURI:         defURI,
		DefSpan:        target.NameSpan,
	})
}

// resolveReference looks up a reference's target declaration. Qualified
// references (pkg::name, including an import target) go straight to that
// package's export scope — a wildcard import target (name "*") always
// misses there and is silently dropped, which is correct: it names no
// symbol of its own. Everything else is looked up in the global scope
// first and, failing that, in each wildcard-imported package in turn.
func resolveReference(ref sv.Reference, symbols *sv.SymbolTable, importedPackages []string) (*sv.Decl, bool) {
	if ref.Qualifier != "" {
		return symbols.ResolveQualified(ref.Qualifier, ref.Name)
	}
	if d, ok := symbols.Global.Lookup(ref.Name); ok {
		return d, true
	}
	for _, pkg := range importedPackages {
		if d, ok := symbols.ResolveQualified(pkg, ref.Name); ok {
			return d, true
		}
	}
	return nil, false
}

// DefinitionFor returns the Entry recording the defining occurrence of
// decl, if this index recorded one.
func (ix *Index) DefinitionFor(decl *sv.Decl) (Entry, bool) {
	idx, ok := ix.definitionBySymbol[decl]
	if !ok {
		return Entry{}, false
	}
	return ix.Entries[idx], true
}

// ChildrenOf returns the entries whose Parent is decl, in source order.
func (ix *Index) ChildrenOf(decl *sv.Decl) []Entry {
	idxs := ix.childrenByScope[decl]
	out := make([]Entry, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, ix.Entries[i])
	}
	return out
}

// Roots returns every definition entry with no enclosing scope (top-level
// declarations), in source order.
func (ix *Index) Roots() []Entry {
	idxs := ix.childrenByScope[nil]
	out := make([]Entry, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, ix.Entries[i])
	}
	return out
}

// ResolveAt answers go-to-definition for a cursor position in the main
// buffer: if the position falls on a reference's occurrence range, its
// resolved definition location is returned; otherwise, if it falls on a
// definition's own identifier range, that definition's location is returned
// (a no-op jump, confirming the cursor is already on a symbol).
func (ix *Index) ResolveAt(pos location.Position) (uri string, span location.Span, ok bool) {
	if i, found := binarySearchRange(ix.references, pos); found {
		e := ix.Entries[ix.references[i].entry]
		return e.DefURI, e.DefSpan, true
	}
	for _, e := range ix.Entries {
		if e.IsDefinition && e.OccurrenceSpan.ContainsOrEquals(pos) {
			return e.DefURI, e.DefSpan, true
		}
	}
	return "", location.Span{}, false
}

// binarySearchRange finds the reference range containing pos. references
// is sorted by start position but ranges vary in length, so this narrows to
// a candidate window via binary search on the start position and then
// scans that window for actual containment — exact for the non-overlapping
// ranges a single buffer's references naturally produce.
func binarySearchRange(refs []refRange, pos location.Position) (int, bool) {
	key := spanOrderKey(pos)
	n, ok := slices.BinarySearchFunc(refs, key, func(r refRange, key int) int {
		return cmp.Compare(spanOrderKey(r.span.Start), key)
	})
	if ok && refs[n].span.ContainsOrEquals(pos) {
		return n, true
	}
	// BinarySearchFunc returns the insertion point; references don't nest or
	// overlap within one buffer, so the only candidate starting before pos
	// is the one immediately preceding the insertion point.
	if n > 0 && refs[n-1].span.ContainsOrEquals(pos) {
		return n - 1, true
	}
	return 0, false
}
