package token

// Type identifies the kind of a lexical token.
type Type int

const (
	ILLEGAL Type = iota
	EOF

	IDENT  // println, x, make_adder
	INT    // 42, 0xff, 0b1010, 0o755
	FLOAT  // 3.14, 1e-9
	STRING // "hello\n"

	ASSIGN    // =
	LPAREN    // (
	RPAREN    // )
	LBRACE    // {
	RBRACE    // }
	LBRACKET  // [
	RBRACKET  // ]
	COMMA     // ,
	DOT       // .
	ARROW     // ->
	RETURNARR // <-

	MUT // mut keyword
	AS  // as keyword
)

var names = map[Type]string{
	ILLEGAL:   "ILLEGAL",
	EOF:       "EOF",
	IDENT:     "IDENT",
	INT:       "INT",
	FLOAT:     "FLOAT",
	STRING:    "STRING",
	ASSIGN:    "=",
	LPAREN:    "(",
	RPAREN:    ")",
	LBRACE:    "{",
	RBRACE:    "}",
	LBRACKET:  "[",
	RBRACKET:  "]",
	COMMA:     ",",
	DOT:       ".",
	ARROW:     "->",
	RETURNARR: "<-",
	MUT:       "mut",
	AS:        "as",
}

func (t Type) String() string {
	if s, ok := names[t]; ok {
		return s
	}
	return "UNKNOWN"
}

// Token is a single lexical token with its source position.
type Token struct {
	Type   Type
	Lexeme string
	Line   int
	Column int
}

var keywords = map[string]Type{
	"mut": MUT,
	"as":  AS,
}

// LookupIdent returns the keyword type for known keywords, IDENT otherwise.
func LookupIdent(ident string) Type {
	if t, ok := keywords[ident]; ok {
		return t
	}
	return IDENT
}
