package lexer_test

import (
	"testing"

	"github.com/franz-lang/franzc/internal/lexer"
	"github.com/franz-lang/franzc/internal/token"
)

func TestNextToken(t *testing.T) {
	input := `x = 5
mut y = 3.14
(println "hi")
add = {a b -> <- (+ a b)}
ns.name
[1, 2, 3]
5 as float
`

	expected := []struct {
		typ    token.Type
		lexeme string
		line   int
	}{
		{token.IDENT, "x", 1},
		{token.ASSIGN, "=", 1},
		{token.INT, "5", 1},
		{token.MUT, "mut", 2},
		{token.IDENT, "y", 2},
		{token.ASSIGN, "=", 2},
		{token.FLOAT, "3.14", 2},
		{token.LPAREN, "(", 3},
		{token.IDENT, "println", 3},
		{token.STRING, "hi", 3},
		{token.RPAREN, ")", 3},
		{token.IDENT, "add", 4},
		{token.ASSIGN, "=", 4},
		{token.LBRACE, "{", 4},
		{token.IDENT, "a", 4},
		{token.IDENT, "b", 4},
		{token.ARROW, "->", 4},
		{token.RETURNARR, "<-", 4},
		{token.LPAREN, "(", 4},
		{token.IDENT, "+", 4},
		{token.IDENT, "a", 4},
		{token.IDENT, "b", 4},
		{token.RPAREN, ")", 4},
		{token.RBRACE, "}", 4},
		{token.IDENT, "ns", 5},
		{token.DOT, ".", 5},
		{token.IDENT, "name", 5},
		{token.LBRACKET, "[", 6},
		{token.INT, "1", 6},
		{token.COMMA, ",", 6},
		{token.INT, "2", 6},
		{token.COMMA, ",", 6},
		{token.INT, "3", 6},
		{token.RBRACKET, "]", 6},
		{token.INT, "5", 7},
		{token.AS, "as", 7},
		{token.IDENT, "float", 7},
		{token.EOF, "", 8},
	}

	l := lexer.New(input)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp.typ {
			t.Fatalf("token %d: expected type %v, got %v (%q)", i, exp.typ, tok.Type, tok.Lexeme)
		}
		if tok.Lexeme != exp.lexeme {
			t.Fatalf("token %d: expected lexeme %q, got %q", i, exp.lexeme, tok.Lexeme)
		}
		if tok.Line != exp.line {
			t.Fatalf("token %d (%q): expected line %d, got %d", i, tok.Lexeme, exp.line, tok.Line)
		}
	}
}

func TestNumberLiterals(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		typ    token.Type
		lexeme string
	}{
		{"decimal_int", "42", token.INT, "42"},
		{"negative_int", "-42", token.INT, "-42"},
		{"hex_int", "0xFF", token.INT, "0xFF"},
		{"binary_int", "0b1010", token.INT, "0b1010"},
		{"octal_int", "0o755", token.INT, "0o755"},
		{"float", "3.14", token.FLOAT, "3.14"},
		{"negative_float", "-2.5", token.FLOAT, "-2.5"},
		{"scientific", "1.5e2", token.FLOAT, "1.5e2"},
		{"scientific_neg_exp", "1e-9", token.FLOAT, "1e-9"},
		{"hex_float", "0x1.5p2", token.FLOAT, "0x1.5p2"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l := lexer.New(tc.input)
			tok := l.NextToken()
			if tok.Type != tc.typ {
				t.Fatalf("expected type %v, got %v", tc.typ, tok.Type)
			}
			if tok.Lexeme != tc.lexeme {
				t.Fatalf("expected lexeme %q, got %q", tc.lexeme, tok.Lexeme)
			}
		})
	}
}

func TestNumberDotIdentifier(t *testing.T) {
	// a trailing dot after digits is member access, not a decimal point
	l := lexer.New("1.foo")
	toks := l.Tokens()
	if l.Err() != nil {
		t.Fatalf("unexpected error: %v", l.Err())
	}
	want := []token.Type{token.INT, token.DOT, token.IDENT, token.EOF}
	if len(toks) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(toks), toks)
	}
	for i, w := range want {
		if toks[i].Type != w {
			t.Fatalf("token %d: expected %v, got %v", i, w, toks[i].Type)
		}
	}
}

func TestStringEscapes(t *testing.T) {
	l := lexer.New(`"a\nb\t\"c\"\x41"`)
	tok := l.NextToken()
	if tok.Type != token.STRING {
		t.Fatalf("expected STRING, got %v", tok.Type)
	}
	if tok.Lexeme != "a\nb\t\"c\"A" {
		t.Fatalf("unexpected decoded string: %q", tok.Lexeme)
	}
}

func TestComments(t *testing.T) {
	l := lexer.New("x = 1 // trailing\n// full line\ny = 2")
	toks := l.Tokens()
	var idents []string
	for _, tok := range toks {
		if tok.Type == token.IDENT {
			idents = append(idents, tok.Lexeme)
		}
	}
	if len(idents) != 2 || idents[0] != "x" || idents[1] != "y" {
		t.Fatalf("comments not skipped, identifiers: %v", idents)
	}
}

func TestErrors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{"unterminated_string", `"abc`},
		{"string_newline", "\"abc\ndef\""},
		{"bad_hex", "0x"},
		{"bad_binary", "0b"},
		{"double_decimal", "1.2.3"},
		{"bad_exponent", "1e+"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l := lexer.New(tc.input)
			l.Tokens()
			if l.Err() == nil {
				t.Fatalf("expected scan error for %q", tc.input)
			}
		})
	}
}
