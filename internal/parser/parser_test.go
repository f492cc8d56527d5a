package parser_test

import (
	"testing"

	"github.com/franz-lang/franzc/internal/ast"
	"github.com/franz-lang/franzc/internal/lexer"
	"github.com/franz-lang/franzc/internal/parser"
)

func parse(t *testing.T, src string) *ast.Node {
	t.Helper()
	l := lexer.New(src)
	toks := l.Tokens()
	if l.Err() != nil {
		t.Fatalf("lex error: %v", l.Err())
	}
	root, err := parser.New(toks).Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return root
}

func TestParse(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{"int_assignment", "x = 5", "(Statement (Assignment x 5))"},
		{"float_assignment", "pi = 3.14", "(Statement (Assignment pi 3.14))"},
		{"string_assignment", `s = "hi"`, `(Statement (Assignment s "hi"))`},
		{"mut_assignment", "mut y = 1", "(Statement (Assignment y 1))"},
		{"application", "(println x)", "(Statement (Application println x))"},
		{"operator_application", "(+ 1 2)", "(Statement (Application + 1 2))"},
		{"nested_application", "(+ (* 2 3) 4)", "(Statement (Application + (Application * 2 3) 4))"},
		{"qualified_name", "(math.floor 2.5)", "(Statement (Application math.floor 2.5))"},
		{"list_literal", "xs = [1, 2, 3]", "(Statement (Assignment xs (List 1 2 3)))"},
		{"empty_list", "xs = []", "(Statement (Assignment xs (List)))"},
		{"nested_list", "xs = [[1, 2], [3]]", "(Statement (Assignment xs (List (List 1 2) (List 3))))"},
		{"function_literal", "f = {a b -> <- (+ a b)}",
			"(Statement (Assignment f (Function a b (Statement (Return (Application + a b))))))"},
		{"thunk", "f = {<- 42}",
			"(Statement (Assignment f (Function (Statement (Return 42)))))"},
		{"multi_statement_body", "f = {x -> y = (* x 2)\n<- y}",
			"(Statement (Assignment f (Function x (Statement (Assignment y (Application * x 2))) (Statement (Return y)))))"},
		{"block_argument", "(if c {<- 1} {<- 2})",
			"(Statement (Application if c (Function (Statement (Return 1))) (Function (Statement (Return 2)))))"},
		{"top_level_return", "<- 7", "(Statement (Return 7))"},
		{"multiple_statements", "x = 1\ny = 2",
			"(Statement (Assignment x 1) (Assignment y 2))"},
		{"negative_literal", "x = -5", "(Statement (Assignment x -5))"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := parse(t, tc.input).String()
			if got != tc.want {
				t.Errorf("wrong tree\n  input: %s\n   want: %s\n    got: %s", tc.input, tc.want, got)
			}
		})
	}
}

func TestMutableFlag(t *testing.T) {
	root := parse(t, "mut counter = 0\nfixed = 1")
	if len(root.Children) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(root.Children))
	}
	if !root.Children[0].Mutable {
		t.Errorf("mut assignment not marked mutable")
	}
	if root.Children[1].Mutable {
		t.Errorf("plain assignment marked mutable")
	}
}

func TestFunctionAccessors(t *testing.T) {
	root := parse(t, "f = {a b -> <- a}")
	fn := root.Children[0].Children[1]
	if fn.Op != ast.Function {
		t.Fatalf("expected Function node, got %v", fn.Op)
	}
	params := fn.Params()
	if len(params) != 2 || params[0].Val != "a" || params[1].Val != "b" {
		t.Fatalf("wrong params: %v", params)
	}
	body := fn.Body()
	if len(body) != 1 || body[0].Op != ast.Statement {
		t.Fatalf("wrong body: %v", body)
	}
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{"unclosed_application", "(println x"},
		{"unclosed_function", "{a -> <- a"},
		{"unclosed_list", "[1, 2"},
		{"mut_without_identifier", "mut = 5"},
		{"incomplete_assignment", "x ="},
		{"stray_close", ")"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l := lexer.New(tc.input)
			toks := l.Tokens()
			if _, err := parser.New(toks).Parse(); err == nil {
				t.Fatalf("expected parse error for %q", tc.input)
			}
		})
	}
}
