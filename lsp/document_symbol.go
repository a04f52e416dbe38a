package lsp

import (
	"context"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/hankhsu1996/slangd-go/core/session"
	"github.com/hankhsu1996/slangd-go/internal/source"
	"github.com/hankhsu1996/slangd-go/semantic"
)

// textDocumentDocumentSymbol handles textDocument/documentSymbol requests.
//
//nolint:nilnil // LSP protocol: nil result means no symbols
func (s *Server) textDocumentDocumentSymbol(_ *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	uri := params.TextDocument.URI

	s.logger.Debug("documentSymbol request", "uri", uri)

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	entry, ok := s.workspace.Sessions().GetSession(ctx, uri)
	if !ok {
		return nil, nil
	}

	symbols := ProjectDocumentSymbols(entry, s.workspace.PositionEncoding())
	if len(symbols) == 0 {
		return nil, nil
	}
	return symbols, nil
}

// ProjectDocumentSymbols converts entry's semantic index into the LSP
// DocumentSymbol forest the documentSymbol handler publishes.
func ProjectDocumentSymbols(entry *session.Entry, enc PositionEncoding) []protocol.DocumentSymbol {
	if entry == nil || entry.Index == nil {
		return nil
	}
	return convertDocSymbols(semantic.BuildDocumentSymbols(entry.Index, entry.URI), entry.Sources, enc)
}

func convertDocSymbols(nodes []semantic.DocSymbol, sources *source.Registry, enc PositionEncoding) []protocol.DocumentSymbol {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]protocol.DocumentSymbol, len(nodes))
	for i, n := range nodes {
		kind := symbolKindFor(n.Kind)
		out[i] = protocol.DocumentSymbol{
			Name:           n.Name,
			Kind:           kind,
			Range:          spanToRange(sources, n.Range, enc),
			SelectionRange: spanToRange(sources, n.SelectionRange, enc),
			Children:       convertDocSymbols(n.Children, sources, enc),
		}
	}
	return out
}
