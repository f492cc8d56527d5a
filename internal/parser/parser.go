// Package parser turns tokens into the tree consumed by analysis and
// code generation. The grammar is small: a program is a sequence of
// statements, a statement is a return, an assignment or a value, and values
// are literals, identifiers, qualified names, applications, function
// literals and list literals.
package parser

import (
	"fmt"

	"github.com/franz-lang/franzc/internal/ast"
	"github.com/franz-lang/franzc/internal/token"
)

type Parser struct {
	toks []token.Token
	pos  int
}

func New(toks []token.Token) *Parser {
	return &Parser{toks: toks}
}

// Parse consumes the whole token stream and returns the program as a single
// Statement node whose children are the top-level statements.
func (p *Parser) Parse() (*ast.Node, error) {
	line := 1
	if len(p.toks) > 0 {
		line = p.toks[0].Line
	}
	root := ast.NewNode(ast.Statement, "", line)

	for p.peek().Type != token.EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		root.Children = append(root.Children, stmt)
	}
	return root, nil
}

func (p *Parser) peek() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Type: token.EOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) peekAt(n int) token.Token {
	if p.pos+n >= len(p.toks) {
		return token.Token{Type: token.EOF}
	}
	return p.toks[p.pos+n]
}

func (p *Parser) next() token.Token {
	tok := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return tok
}

func (p *Parser) errorf(line int, format string, args ...interface{}) error {
	return fmt.Errorf("syntax error at line %d: %s", line, fmt.Sprintf(format, args...))
}

// parseStatement parses one return, assignment or expression.
func (p *Parser) parseStatement() (*ast.Node, error) {
	tok := p.peek()

	switch {
	case tok.Type == token.RETURNARR:
		p.next()
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		return ast.NewNode(ast.Return, "", tok.Line, val), nil

	case tok.Type == token.MUT:
		p.next()
		ident := p.peek()
		if ident.Type != token.IDENT {
			return nil, p.errorf(tok.Line, "expected identifier after 'mut', got %s", ident.Type)
		}
		node, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		node.Mutable = true
		return node, nil

	case tok.Type == token.IDENT && p.peekAt(1).Type == token.ASSIGN:
		return p.parseAssignment()

	default:
		return p.parseValue()
	}
}

func (p *Parser) parseAssignment() (*ast.Node, error) {
	ident := p.next()
	if ident.Type != token.IDENT {
		return nil, p.errorf(ident.Line, "expected identifier in assignment, got %s", ident.Type)
	}
	eq := p.next()
	if eq.Type != token.ASSIGN {
		return nil, p.errorf(eq.Line, "expected '=' in assignment, got %s", eq.Type)
	}
	if p.peek().Type == token.EOF {
		return nil, p.errorf(eq.Line, "incomplete assignment")
	}

	val, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	target := ast.NewNode(ast.Identifier, ident.Lexeme, ident.Line)
	return ast.NewNode(ast.Assignment, "", ident.Line, target, val), nil
}

// parseValue parses a single expression.
func (p *Parser) parseValue() (*ast.Node, error) {
	tok := p.peek()

	switch tok.Type {
	case token.INT:
		p.next()
		return ast.NewNode(ast.Int, tok.Lexeme, tok.Line), nil
	case token.FLOAT:
		p.next()
		return ast.NewNode(ast.Float, tok.Lexeme, tok.Line), nil
	case token.STRING:
		p.next()
		return ast.NewNode(ast.String, tok.Lexeme, tok.Line), nil
	case token.IDENT:
		p.next()
		// qualified name: ns.member
		if p.peek().Type == token.DOT && p.peekAt(1).Type == token.IDENT {
			p.next()
			member := p.next()
			return ast.NewNode(ast.Qualified, tok.Lexeme+"."+member.Lexeme, tok.Line), nil
		}
		return ast.NewNode(ast.Identifier, tok.Lexeme, tok.Line), nil
	case token.LPAREN:
		return p.parseApplication()
	case token.LBRACE:
		return p.parseFunction()
	case token.LBRACKET:
		return p.parseList()
	case token.ILLEGAL:
		return nil, p.errorf(tok.Line, "%s", tok.Lexeme)
	default:
		return nil, p.errorf(tok.Line, "unexpected %s token", tok.Type)
	}
}

// parseApplication parses (callee arg ...).
func (p *Parser) parseApplication() (*ast.Node, error) {
	open := p.next() // (
	node := ast.NewNode(ast.Application, "", open.Line)

	for p.peek().Type != token.RPAREN {
		if p.peek().Type == token.EOF {
			return nil, p.errorf(open.Line, "application not closed")
		}
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, val)
	}
	p.next() // )
	return node, nil
}

// parseFunction parses {p1 p2 -> stmts} or the parameterless form {stmts}.
// Each body statement is wrapped in its own Statement node.
func (p *Parser) parseFunction() (*ast.Node, error) {
	open := p.next() // {
	node := ast.NewNode(ast.Function, "", open.Line)

	if p.hasArrowAhead() {
		for p.peek().Type != token.ARROW {
			param := p.next()
			if param.Type != token.IDENT {
				return nil, p.errorf(param.Line, "expected parameter name, got %s", param.Type)
			}
			node.Children = append(node.Children, ast.NewNode(ast.Identifier, param.Lexeme, param.Line))
		}
		p.next() // ->
	}

	for p.peek().Type != token.RBRACE {
		if p.peek().Type == token.EOF {
			return nil, p.errorf(open.Line, "function not closed")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		wrapper := ast.NewNode(ast.Statement, "", stmt.Line, stmt)
		node.Children = append(node.Children, wrapper)
	}
	p.next() // }
	return node, nil
}

// hasArrowAhead reports whether an arrow appears before the matching close
// brace at nesting depth zero, i.e. whether the function has a parameter
// list.
func (p *Parser) hasArrowAhead() bool {
	depth := 0
	for i := p.pos; i < len(p.toks); i++ {
		switch p.toks[i].Type {
		case token.LBRACE, token.LPAREN, token.LBRACKET:
			depth++
		case token.RBRACE, token.RPAREN, token.RBRACKET:
			if depth == 0 {
				return false
			}
			depth--
		case token.ARROW:
			if depth == 0 {
				return true
			}
		case token.EOF:
			return false
		}
	}
	return false
}

// parseList parses [e1, e2, ...].
func (p *Parser) parseList() (*ast.Node, error) {
	open := p.next() // [
	node := ast.NewNode(ast.List, "", open.Line)

	for p.peek().Type != token.RBRACKET {
		if p.peek().Type == token.EOF {
			return nil, p.errorf(open.Line, "list not closed")
		}
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, val)
		if p.peek().Type == token.COMMA {
			p.next()
		}
	}
	p.next() // ]
	return node, nil
}
