package lsp

import (
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/hankhsu1996/slangd-go/core/session"
	"github.com/hankhsu1996/slangd-go/diag"
)

// diagnosticsSource identifies the compiler backend in every published
// diagnostic's "source" field.
const diagnosticsSource = "slang"

// ProjectDiagnostics filters entry's compilation diagnostics down to the
// ones whose primary span belongs to the main buffer (diagnostics raised
// while parsing a spliced-in preamble file are not the editor's concern for
// this document) and converts the survivors to LSP Diagnostics.
//
// Issues with no span at all are compilation-global failures; they're kept
// rather than dropped, and rendered at a zero-width range pinned to the
// start of the file, since the renderer has nowhere else to put them.
func ProjectDiagnostics(entry *session.Entry) []protocol.Diagnostic {
	if entry == nil {
		return nil
	}

	filtered := diag.NewCollectorUnlimited()
	var spanless []diag.Issue
	for issue := range entry.Compilation.Diagnostics().Issues() {
		if !issue.HasSpan() {
			spanless = append(spanless, issue)
			continue
		}
		if issue.Span().Source != entry.MainSource {
			continue
		}
		filtered.Collect(issue)
	}

	renderer := diag.NewRenderer(
		diag.WithSourceProvider(entry.Sources),
		diag.WithLSPByteFallback(diag.LSPByteFallbackApproximate),
	)

	out := make([]protocol.Diagnostic, 0, filtered.Len()+len(spanless))
	for _, lspDiag := range renderer.LSPDiagnostics(filtered.Result()) {
		out = append(out, convertLSPDiagnostic(lspDiag))
	}
	for _, issue := range spanless {
		out = append(out, protocol.Diagnostic{
			Range:    protocol.Range{Start: protocol.Position{Line: 0, Character: 0}, End: protocol.Position{Line: 0, Character: 0}},
			Severity: convertSeverity(diag.SeverityToLSP(issue.Severity())),
			Code:     &protocol.IntegerOrString{Value: issue.Code().String()},
			Source:   stringPtr(diagnosticsSource),
			Message:  issue.Message(),
		})
	}
	return out
}

func convertLSPDiagnostic(d diag.LSPDiagnostic) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: toUInteger(d.Range.Start.Line), Character: toUInteger(d.Range.Start.Character)},
			End:   protocol.Position{Line: toUInteger(d.Range.End.Line), Character: toUInteger(d.Range.End.Character)},
		},
		Severity:           convertSeverity(d.Severity),
		Code:               &protocol.IntegerOrString{Value: d.Code},
		Source:             stringPtr(diagnosticsSource),
		Message:            d.Message,
		RelatedInformation: convertRelatedInfo(d.RelatedInformation),
	}
}

func convertSeverity(severity int) *protocol.DiagnosticSeverity {
	var s protocol.DiagnosticSeverity
	switch severity {
	case diag.LSPSeverityError:
		s = protocol.DiagnosticSeverityError
	case diag.LSPSeverityWarning:
		s = protocol.DiagnosticSeverityWarning
	case diag.LSPSeverityInformation:
		s = protocol.DiagnosticSeverityInformation
	case diag.LSPSeverityHint:
		s = protocol.DiagnosticSeverityHint
	default:
		s = protocol.DiagnosticSeverityError
	}
	return &s
}

func convertRelatedInfo(related []diag.LSPRelatedInfo) []protocol.DiagnosticRelatedInformation {
	if len(related) == 0 {
		return nil
	}
	out := make([]protocol.DiagnosticRelatedInformation, 0, len(related))
	for _, r := range related {
		out = append(out, protocol.DiagnosticRelatedInformation{
			Location: protocol.Location{
				URI: r.Location.URI,
				Range: protocol.Range{
					Start: protocol.Position{Line: toUInteger(r.Location.Range.Start.Line), Character: toUInteger(r.Location.Range.Start.Character)},
					End:   protocol.Position{Line: toUInteger(r.Location.Range.End.Line), Character: toUInteger(r.Location.Range.End.Character)},
				},
			},
			Message: r.Message,
		})
	}
	return out
}

func stringPtr(s string) *string { return &s }
