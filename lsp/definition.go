package lsp

import (
	"context"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// textDocumentDefinition handles textDocument/definition requests.
// Returns nil, nil when no definition is found (standard LSP behavior).
//
//nolint:nilnil // LSP protocol: nil result means "no definition found"
func (s *Server) textDocumentDefinition(_ *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := params.TextDocument.URI
	pos := params.Position

	s.logger.Debug("definition request", "uri", uri, "line", pos.Line, "character", pos.Character)

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	entry, ok := s.workspace.Sessions().GetSession(ctx, uri)
	if !ok {
		return nil, nil
	}

	enc := s.workspace.PositionEncoding()
	cursor, ok := PositionFromLSP(entry.Sources, entry.MainSource, int(pos.Line), int(pos.Character), enc)
	if !ok {
		return nil, nil
	}

	targetURI, targetSpan, ok := entry.Index.ResolveAt(cursor)
	if !ok {
		return nil, nil
	}

	return &protocol.Location{
		URI:   targetURI,
		Range: spanToRange(entry.Sources, targetSpan, enc),
	}, nil
}
