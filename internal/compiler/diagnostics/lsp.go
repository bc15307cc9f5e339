package diagnostics

import (
	"context"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

// severityLSP maps our closed Severity onto the LSP wire enum.
func severityLSP(s Severity) protocol.DiagnosticSeverity {
	switch s {
	case SeverityError:
		return protocol.DiagnosticSeverityError
	case SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	default:
		return protocol.DiagnosticSeverityHint
	}
}

// LSP converts a Diagnostic into its protocol.Diagnostic wire form. Source
// locations are 1-based in our model and 0-based in LSP, so line/column are
// translated accordingly; a diagnostic with no known end just spans its
// start position.
func (d Diagnostic) LSP() protocol.Diagnostic {
	pos := protocol.Position{
		Line:      uint32(d.Location.Line - 1),
		Character: uint32(d.Location.Column - 1),
	}
	source := string(d.Stage)
	code := string(d.Kind)
	return protocol.Diagnostic{
		Range:    protocol.Range{Start: pos, End: pos},
		Severity: severityLSP(d.Severity),
		Code:     code,
		Source:   source,
		Message:  d.Message,
	}
}

// PublishDiagnostics sends a textDocument/publishDiagnostics notification
// over an established JSON-RPC2 connection carrying every diagnostic
// collected for uri, bridging the compiler's diagnostic model into an
// editor without changing Diagnostic's shape (SPEC_FULL.md §7).
func PublishDiagnostics(ctx context.Context, conn jsonrpc2.Conn, uri protocol.DocumentURI, ds []Diagnostic) error {
	lsp := make([]protocol.Diagnostic, 0, len(ds))
	for _, d := range ds {
		lsp = append(lsp, d.LSP())
	}
	params := protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: lsp,
	}
	return conn.Notify(ctx, protocol.MethodTextDocumentPublishDiagnostics, params)
}
