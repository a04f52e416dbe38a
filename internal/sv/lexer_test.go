package sv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLexerBasicTokens(t *testing.T) {
	src := srcID(t, "lex.sv")
	lex := NewLexer(src, []byte("module foo; endmodule"))

	var kinds []TokenKind
	var texts []string
	for {
		tok := lex.Next()
		kinds = append(kinds, tok.Kind)
		texts = append(texts, tok.Text)
		if tok.Kind == TokEOF {
			break
		}
	}

	require.Equal(t, []TokenKind{TokKeyword, TokIdent, TokPunct, TokKeyword, TokEOF}, kinds)
	require.Equal(t, []string{"module", "foo", ";", "endmodule", ""}, texts)
}

func TestLexerSkipsCommentsAndDirectives(t *testing.T) {
	src := srcID(t, "lex2.sv")
	lex := NewLexer(src, []byte("`define FOO 1\n// comment\nmodule /* inline */ bar; endmodule"))

	var texts []string
	for {
		tok := lex.Next()
		if tok.Kind == TokEOF {
			break
		}
		texts = append(texts, tok.Text)
	}
	require.Equal(t, []string{"module", "bar", ";", "endmodule"}, texts)
}

func TestLexerSizedNumberLiteral(t *testing.T) {
	src := srcID(t, "lex3.sv")
	lex := NewLexer(src, []byte("8'hFF"))
	tok := lex.Next()
	require.Equal(t, TokNumber, tok.Kind)
	require.Equal(t, "8'hFF", tok.Text)
}

func TestLexerMultiCharPunct(t *testing.T) {
	src := srcID(t, "lex4.sv")
	lex := NewLexer(src, []byte("a <= b; c::d; e -> f;"))
	var texts []string
	for {
		tok := lex.Next()
		if tok.Kind == TokEOF {
			break
		}
		texts = append(texts, tok.Text)
	}
	require.Contains(t, texts, "<=")
	require.Contains(t, texts, "::")
	require.Contains(t, texts, "->")
}

func TestLexerUnterminatedString(t *testing.T) {
	src := srcID(t, "lex5.sv")
	lex := NewLexer(src, []byte("\"unterminated"))
	tok := lex.Next()
	require.Equal(t, TokString, tok.Kind)
	require.NotEmpty(t, tok.Error)
}
