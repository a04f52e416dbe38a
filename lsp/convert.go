package lsp

import (
	"time"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/hankhsu1996/slangd-go/internal/source"
	"github.com/hankhsu1996/slangd-go/location"
	"github.com/hankhsu1996/slangd-go/semantic"
)

// requestTimeout bounds how long a feature request waits on an in-flight
// build before giving up and returning an empty result.
const requestTimeout = 5 * time.Second

// toUInteger clamps a possibly-negative line/column arithmetic result to the
// LSP wire type's non-negative range.
func toUInteger(n int) protocol.UInteger {
	if n < 0 {
		return 0
	}
	return protocol.UInteger(n) //nolint:gosec // clamped to non-negative above
}

// spanToRange converts span against sources into a protocol.Range, falling
// back to the span's own rune-based line/column when sources can't resolve
// an exact UTF-16 offset (e.g. a definition target outside the overlay's
// registered files).
func spanToRange(sources *source.Registry, span location.Span, enc PositionEncoding) protocol.Range {
	start, end, ok := SpanToLSPRange(sources, span, enc)
	if ok {
		return protocol.Range{
			Start: protocol.Position{Line: toUInteger(start[0]), Character: toUInteger(start[1])},
			End:   protocol.Position{Line: toUInteger(end[0]), Character: toUInteger(end[1])},
		}
	}
	return protocol.Range{
		Start: protocol.Position{
			Line:      toUInteger(span.Start.Line - 1),
			Character: toUInteger(span.Start.Column - 1),
		},
		End: protocol.Position{
			Line:      toUInteger(span.End.Line - 1),
			Character: toUInteger(span.End.Column - 1),
		},
	}
}

// symbolKindFor maps a semantic.Kind to the LSP SymbolKind it projects as.
func symbolKindFor(k semantic.Kind) protocol.SymbolKind {
	switch k {
	case semantic.KindClass:
		return protocol.SymbolKindClass
	case semantic.KindPackage:
		return protocol.SymbolKindPackage
	case semantic.KindInterface:
		return protocol.SymbolKindInterface
	case semantic.KindFunction:
		return protocol.SymbolKindFunction
	case semantic.KindConstant:
		return protocol.SymbolKindConstant
	case semantic.KindEnum:
		return protocol.SymbolKindEnum
	case semantic.KindStruct:
		return protocol.SymbolKindStruct
	case semantic.KindVariable:
		return protocol.SymbolKindVariable
	case semantic.KindField:
		return protocol.SymbolKindField
	case semantic.KindTypeParameter:
		return protocol.SymbolKindTypeParameter
	case semantic.KindNamespace:
		return protocol.SymbolKindNamespace
	default:
		return protocol.SymbolKindObject
	}
}
