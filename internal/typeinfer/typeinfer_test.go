package typeinfer_test

import (
	"testing"

	"github.com/franz-lang/franzc/internal/ast"
	"github.com/franz-lang/franzc/internal/lexer"
	"github.com/franz-lang/franzc/internal/parser"
	"github.com/franz-lang/franzc/internal/typeinfer"
)

func parseFn(t *testing.T, src string) *ast.Node {
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
	var find func(*ast.Node) *ast.Node
	find = func(n *ast.Node) *ast.Node {
		if n.Op == ast.Function {
			return n
		}
		for _, c := range n.Children {
			if fn := find(c); fn != nil {
				return fn
			}
		}
		return nil
	}
	fn := find(root)
	if fn == nil {
		t.Fatalf("no function literal in %q", src)
	}
	return fn
}

func TestInferReturn(t *testing.T) {
	testCases := []struct {
		name string
		src  string
		want typeinfer.Kind
	}{
		{"int_literal", "f = {<- 42}", typeinfer.Int},
		{"float_literal", "f = {<- 3.14}", typeinfer.Float},
		{"string_literal", `f = {<- "hi"}`, typeinfer.String},
		{"float_arith", "f = {x -> <- (add x 1.5)}", typeinfer.Float},
		{"int_arith", "f = {x -> <- (add x 1)}", typeinfer.Int},
		{"polymorphic_arith", "f = {x y -> <- (add x y)}", typeinfer.Unknown},
		{"divide_is_float", "f = {x -> <- (divide x 2)}", typeinfer.Float},
		{"comparison_is_int", "f = {x -> <- (less_than x 10)}", typeinfer.Int},
		{"join_is_string", `f = {x -> <- (join x "!")}`, typeinfer.String},
		{"sqrt_is_float", "f = {x -> <- (sqrt x)}", typeinfer.Float},
		{"floor_is_int", "f = {x -> <- (floor x)}", typeinfer.Int},
		{"abs_float_arg", "f = {-> <- (abs -2.5)}", typeinfer.Float},
		{"abs_int_arg", "f = {-> <- (abs -2)}", typeinfer.Int},
		{"unknown_call", "f = {g -> <- (g 1)}", typeinfer.Unknown},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sig := typeinfer.InferFunction(parseFn(t, tc.src))
			if sig.Return != tc.want {
				t.Errorf("expected return kind %v, got %v", tc.want, sig.Return)
			}
		})
	}
}

func TestInferParams(t *testing.T) {
	testCases := []struct {
		name string
		src  string
		want []typeinfer.Kind
	}{
		{"float_return_floats_params", "f = {x y -> <- (add x 1.5)}",
			[]typeinfer.Kind{typeinfer.Float, typeinfer.Float}},
		{"string_return_strings_params", `f = {s -> <- (join s "!")}`,
			[]typeinfer.Kind{typeinfer.String}},
		{"default_int", "f = {x -> <- (add x 1)}",
			[]typeinfer.Kind{typeinfer.Int}},
		{"string_comparison_refines", `f = {s -> <- (if (is s "yes") {<- 1} {<- 0})}`,
			[]typeinfer.Kind{typeinfer.String}},
		{"float_comparison_refines", "f = {x -> <- (if (is x 2.5) {<- 1} {<- 0})}",
			[]typeinfer.Kind{typeinfer.Float}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sig := typeinfer.InferFunction(parseFn(t, tc.src))
			if len(sig.Params) != len(tc.want) {
				t.Fatalf("expected %d params, got %d", len(tc.want), len(sig.Params))
			}
			for i, want := range tc.want {
				if sig.Params[i] != want {
					t.Errorf("param %d: expected %v, got %v", i, want, sig.Params[i])
				}
			}
		})
	}
}

func TestComparisonAgainstLocal(t *testing.T) {
	// s is compared against a local whose assignment pins it to string
	sig := typeinfer.InferFunction(parseFn(t, `f = {s -> target = "yes"
<- (if (is s target) {<- 1} {<- 0})}`))
	if sig.Params[0] != typeinfer.String {
		t.Fatalf("expected string param, got %v", sig.Params[0])
	}
}

func TestNonFunction(t *testing.T) {
	if sig := typeinfer.InferFunction(ast.NewNode(ast.Int, "1", 1)); sig != nil {
		t.Fatalf("expected nil signature, got %+v", sig)
	}
}
