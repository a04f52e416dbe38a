package semantic

import (
	"github.com/hankhsu1996/slangd-go/internal/sv"
	"github.com/hankhsu1996/slangd-go/location"
)

// DocSymbol is one node of the projected document symbol forest: an LSP
// DocumentSymbol stripped of protocol-specific fields, left for the lsp
// package to translate into protocol.DocumentSymbol.
type DocSymbol struct {
	Name           string
	Kind           Kind
	Range          location.Span
	SelectionRange location.Span
	Children       []DocSymbol
}

// BuildDocumentSymbols projects ix's definitions for uri into an LSP
// DocumentSymbol forest: defining occurrences are grouped by parent scope,
// recursively attached, and then filtered per §4.5's suppression rules.
func BuildDocumentSymbols(ix *Index, uri string) []DocSymbol {
	if ix == nil || uri != ix.MainURI {
		return nil
	}

	var out []DocSymbol
	for _, root := range ix.Roots() {
		if sym, ok := buildNode(ix, root); ok {
			out = append(out, sym)
		}
	}
	return out
}

// buildNode converts one definition entry (and, unless it's a subroutine
// body, its children) into a DocSymbol, applying every suppression rule.
// ok is false when the entry should not appear in the projected tree at
// all.
func buildNode(ix *Index, e Entry) (DocSymbol, bool) {
	if e.Name == "" {
		return DocSymbol{}, false // P8: empty-name filtering
	}
	if e.Decl != nil && e.Decl.Kind == sv.DeclGenvar {
		return DocSymbol{}, false // indexed for go-to-definition only
	}

	sym := DocSymbol{
		Name:           e.Name,
		Kind:           e.Kind,
		Range:          declSpan(e),
		SelectionRange: e.OccurrenceSpan,
	}

	// Subroutine bodies are indexed in full (locals, statement blocks) but
	// projected as leaves: only their signature-level name matters in the
	// outline.
	isSubroutine := e.Decl != nil && (e.Decl.Kind == sv.DeclFunction || e.Decl.Kind == sv.DeclTask)
	if !isSubroutine && e.Decl != nil {
		for _, child := range ix.ChildrenOf(e.Decl) {
			if childSym, ok := buildNode(ix, child); ok {
				sym.Children = append(sym.Children, childSym)
			}
		}
	}

	if sym.Kind == KindNamespace && len(sym.Children) == 0 {
		return DocSymbol{}, false // empty generate block, nothing worth showing
	}

	return sym, true
}

func declSpan(e Entry) location.Span {
	if e.Decl != nil {
		return e.Decl.Span
	}
	return e.OccurrenceSpan
}
