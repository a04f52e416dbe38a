package lsp

import (
	"testing"

	"github.com/hankhsu1996/slangd-go/core/session"
)

func TestProjectDocumentSymbols_Nil(t *testing.T) {
	t.Parallel()

	if got := ProjectDocumentSymbols(nil, PositionEncodingUTF16); got != nil {
		t.Errorf("ProjectDocumentSymbols(nil, ...) = %v; want nil", got)
	}
	if got := ProjectDocumentSymbols(&session.Entry{}, PositionEncodingUTF16); got != nil {
		t.Errorf("ProjectDocumentSymbols(no index, ...) = %v; want nil", got)
	}
}

func TestProjectDocumentSymbols_ReportsModule(t *testing.T) {
	t.Parallel()

	m := session.NewManager(emptyPreamble(), discardLogger())
	defer m.Close()

	uri := "file:///top.sv"
	m.UpdateSession(uri, []byte("module top; logic clk; endmodule"), 1, nil, nil)
	entry := mustGetSession(t, m, uri)

	symbols := ProjectDocumentSymbols(entry, PositionEncodingUTF16)
	if len(symbols) == 0 {
		t.Fatal("ProjectDocumentSymbols() returned no symbols for a module with a declaration")
	}

	var names []string
	for _, s := range symbols {
		names = append(names, s.Name)
	}
	found := false
	for _, n := range names {
		if n == "top" {
			found = true
		}
	}
	if !found {
		t.Errorf("symbol names = %v; want to include %q", names, "top")
	}
}
