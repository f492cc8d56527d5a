package lexer

import (
	"fmt"
	"strings"

	"github.com/franz-lang/franzc/internal/token"
)

// Lexer scans franz source into tokens. Identifiers are permissive: any run
// of characters that is not whitespace, a delimiter, an arrow or a comment
// opener is an identifier, so operator names like + and <= lex as IDENT.
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int
	column       int

	err error // first scan error, sticky
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

// Err returns the first scan error encountered, if any.
func (l *Lexer) Err() error { return l.err }

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// Tokens scans the whole input. Scanning stops at the first error; check Err
// after a short result.
func (l *Lexer) Tokens() []token.Token {
	var toks []token.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF || tok.Type == token.ILLEGAL {
			break
		}
	}
	return toks
}

func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	line, col := l.line, l.column

	switch l.ch {
	case 0:
		return token.Token{Type: token.EOF, Line: line, Column: col}
	case '(':
		l.readChar()
		return token.Token{Type: token.LPAREN, Lexeme: "(", Line: line, Column: col}
	case ')':
		l.readChar()
		return token.Token{Type: token.RPAREN, Lexeme: ")", Line: line, Column: col}
	case '{':
		l.readChar()
		return token.Token{Type: token.LBRACE, Lexeme: "{", Line: line, Column: col}
	case '}':
		l.readChar()
		return token.Token{Type: token.RBRACE, Lexeme: "}", Line: line, Column: col}
	case '[':
		l.readChar()
		return token.Token{Type: token.LBRACKET, Lexeme: "[", Line: line, Column: col}
	case ']':
		l.readChar()
		return token.Token{Type: token.RBRACKET, Lexeme: "]", Line: line, Column: col}
	case ',':
		l.readChar()
		return token.Token{Type: token.COMMA, Lexeme: ",", Line: line, Column: col}
	case '=':
		l.readChar()
		return token.Token{Type: token.ASSIGN, Lexeme: "=", Line: line, Column: col}
	case '"':
		return l.readString(line, col)
	}

	if l.ch == '-' && l.peekChar() == '>' {
		l.readChar()
		l.readChar()
		return token.Token{Type: token.ARROW, Lexeme: "->", Line: line, Column: col}
	}
	if l.ch == '<' && l.peekChar() == '-' {
		l.readChar()
		l.readChar()
		return token.Token{Type: token.RETURNARR, Lexeme: "<-", Line: line, Column: col}
	}
	if l.ch == '.' && !isDigit(l.peekChar()) {
		l.readChar()
		return token.Token{Type: token.DOT, Lexeme: ".", Line: line, Column: col}
	}

	if isDigit(l.ch) || (l.ch == '-' && isDigit(l.peekChar())) {
		return l.readNumber(line, col)
	}

	return l.readIdentifier(line, col)
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n' || l.ch == '\f' || l.ch == '\v' {
			l.readChar()
		}
		if l.ch == '/' && l.peekChar() == '/' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		return
	}
}

func (l *Lexer) readString(line, col int) token.Token {
	var b strings.Builder
	l.readChar() // opening quote
	for l.ch != '"' {
		if l.ch == '\n' || l.ch == 0 {
			return l.illegal(line, col, "unterminated string")
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '0':
				b.WriteByte(0)
			case '\\':
				b.WriteByte('\\')
			case '"':
				b.WriteByte('"')
			case 'x':
				hi := hexVal(l.peekChar())
				if hi < 0 {
					return l.illegal(line, col, "invalid \\x escape")
				}
				l.readChar()
				lo := hexVal(l.peekChar())
				if lo < 0 {
					return l.illegal(line, col, "invalid \\x escape")
				}
				l.readChar()
				b.WriteByte(byte(hi<<4 | lo))
			case '\n', 0:
				return l.illegal(line, col, "unterminated string")
			default:
				b.WriteByte(l.ch)
			}
			l.readChar()
			continue
		}
		b.WriteByte(l.ch)
		l.readChar()
	}
	l.readChar() // closing quote
	return token.Token{Type: token.STRING, Lexeme: b.String(), Line: line, Column: col}
}

func (l *Lexer) readNumber(line, col int) token.Token {
	start := l.position

	if l.ch == '-' {
		l.readChar()
	}

	// 0x / 0b / 0o prefixed integers; hex floats use a p exponent
	if l.ch == '0' {
		switch lower(l.peekChar()) {
		case 'x':
			l.readChar()
			l.readChar()
			has := false
			for isHexDigit(l.ch) {
				has = true
				l.readChar()
			}
			isFloat := false
			if l.ch == '.' && isHexDigit(l.peekChar()) {
				isFloat = true
				l.readChar()
				for isHexDigit(l.ch) {
					l.readChar()
				}
			}
			if lower(l.ch) == 'p' {
				isFloat = true
				l.readChar()
				if l.ch == '+' || l.ch == '-' {
					l.readChar()
				}
				if !isDigit(l.ch) {
					return l.illegal(line, col, "hexadecimal float requires exponent after 'p'")
				}
				for isDigit(l.ch) {
					l.readChar()
				}
			}
			if !has && !isFloat {
				return l.illegal(line, col, "invalid hexadecimal literal")
			}
			typ := token.INT
			if isFloat {
				typ = token.FLOAT
			}
			return token.Token{Type: typ, Lexeme: l.input[start:l.position], Line: line, Column: col}
		case 'b':
			l.readChar()
			l.readChar()
			has := false
			for l.ch == '0' || l.ch == '1' {
				has = true
				l.readChar()
			}
			if !has {
				return l.illegal(line, col, "invalid binary literal")
			}
			return token.Token{Type: token.INT, Lexeme: l.input[start:l.position], Line: line, Column: col}
		case 'o':
			l.readChar()
			l.readChar()
			has := false
			for l.ch >= '0' && l.ch <= '7' {
				has = true
				l.readChar()
			}
			if !has {
				return l.illegal(line, col, "invalid octal literal")
			}
			return token.Token{Type: token.INT, Lexeme: l.input[start:l.position], Line: line, Column: col}
		}
	}

	isFloat := false
	for isDigit(l.ch) || l.ch == '.' {
		if l.ch == '.' {
			// a dot is part of the number only when followed by a digit,
			// otherwise it is member access and the number ends here
			if !isDigit(l.peekChar()) {
				break
			}
			if isFloat {
				return l.illegal(line, col, "multiple decimal points in single number")
			}
			isFloat = true
		}
		l.readChar()
	}

	if lower(l.ch) == 'e' {
		isFloat = true
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		if !isDigit(l.ch) {
			return l.illegal(line, col, "expected digit after 'e' in scientific notation")
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	typ := token.INT
	if isFloat {
		typ = token.FLOAT
	}
	return token.Token{Type: typ, Lexeme: l.input[start:l.position], Line: line, Column: col}
}

func (l *Lexer) readIdentifier(line, col int) token.Token {
	start := l.position
	for isIdentChar(l.ch) {
		if l.ch == '-' && l.peekChar() == '>' {
			break
		}
		if l.ch == '<' && l.peekChar() == '-' {
			break
		}
		if l.ch == '/' && l.peekChar() == '/' {
			break
		}
		l.readChar()
	}
	if l.position == start {
		return l.illegal(line, col, fmt.Sprintf("unexpected char %q", l.ch))
	}
	lexeme := l.input[start:l.position]
	return token.Token{Type: token.LookupIdent(lexeme), Lexeme: lexeme, Line: line, Column: col}
}

func (l *Lexer) illegal(line, col int, msg string) token.Token {
	if l.err == nil {
		l.err = fmt.Errorf("syntax error at line %d: %s", line, msg)
	}
	return token.Token{Type: token.ILLEGAL, Lexeme: msg, Line: line, Column: col}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexVal(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

func isIdentChar(c byte) bool {
	if c == 0 {
		return false
	}
	return !strings.ContainsRune(" \t\n\r\f\v{}()[]\"=.,", rune(c))
}
