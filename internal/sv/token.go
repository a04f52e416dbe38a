// Package sv is a compact SystemVerilog front end: a hand-written lexer,
// recursive-descent parser, and declaration symbol table. It stands in for
// the "black-box compiler library" that slangd wraps in the original
// project: it exposes syntax trees, declaration spans, and symbol tables,
// and nothing else leaks past the Compilation and Decl types.
package sv

import "github.com/hankhsu1996/slangd-go/location"

// TokenKind classifies a lexical token.
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokIdent
	TokKeyword
	TokNumber
	TokString
	TokSystemIdent // $display, $clog2, ...
	TokDirective   // `define, `include, ... (consumed whole-line, not expanded)
	TokPunct       // operators and delimiters, Text holds the exact spelling
)

// Token is a single lexical token with its source span.
//
// Span covers exactly the token text; Span.Start is therefore the position
// used for identifier-only definition/reference ranges (spec's P1 rule).
type Token struct {
	Kind  TokenKind
	Text  string
	Span  location.Span
	Error string // set by the lexer on malformed tokens (unterminated string, etc.)
}

// IsKeyword reports whether the token is the given reserved word.
func (t Token) IsKeyword(word string) bool {
	return t.Kind == TokKeyword && t.Text == word
}

// IsPunct reports whether the token is the given punctuation/operator spelling.
func (t Token) IsPunct(text string) bool {
	return t.Kind == TokPunct && t.Text == text
}

// keywords is the reserved-word set recognized by the lexer. Only the subset
// of SystemVerilog actually needed to recognize the declaration forms this
// package models is listed; everything else lexes as a plain identifier,
// which is harmless since the parser never needs to act on it.
var keywords = map[string]bool{
	"module": true, "endmodule": true,
	"program": true, "endprogram": true,
	"package": true, "endpackage": true,
	"interface": true, "endinterface": true,
	"modport": true,
	"class":   true, "endclass": true, "extends": true, "implements": true,
	"typedef": true,
	"enum":    true, "struct": true, "union": true, "packed": true, "tagged": true,
	"parameter": true, "localparam": true,
	"function": true, "endfunction": true,
	"task": true, "endtask": true,
	"genvar":   true,
	"generate": true, "endgenerate": true,
	"if": true, "else": true,
	"case": true, "casex": true, "casez": true, "endcase": true,
	"for": true, "while": true, "begin": true, "end": true,
	"import": true, "export": true,
	"input": true, "output": true, "inout": true, "ref": true,
	"wire": true, "wand": true, "wor": true, "tri": true, "triand": true, "trior": true, "supply0": true, "supply1": true,
	"logic": true, "bit": true, "reg": true, "byte": true, "shortint": true, "int": true, "longint": true, "integer": true, "time": true,
	"real": true, "realtime": true, "shortreal": true, "string": true, "event": true, "chandle": true, "void": true,
	"automatic": true, "static": true, "virtual": true, "pure": true, "const": true, "local": true, "protected": true,
	"signed": true, "unsigned": true,
	"posedge": true, "negedge": true, "always": true, "always_comb": true, "always_ff": true, "always_latch": true,
	"initial": true, "final": true, "assign": true,
	"return": true, "break": true, "continue": true,
	"new": true, "this": true, "super": true, "null": true,
	"forever": true, "repeat": true, "foreach": true, "do": true,
}
