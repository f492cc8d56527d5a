package freevar_test

import (
	"reflect"
	"testing"

	"github.com/franz-lang/franzc/internal/ast"
	"github.com/franz-lang/franzc/internal/freevar"
	"github.com/franz-lang/franzc/internal/lexer"
	"github.com/franz-lang/franzc/internal/parser"
)

// parseFn parses src and returns the first function literal found in the
// value position of the first statement.
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
	fn := findFunction(root)
	if fn == nil {
		t.Fatalf("no function literal in %q", src)
	}
	return fn
}

func findFunction(n *ast.Node) *ast.Node {
	if n.Op == ast.Function {
		return n
	}
	for _, c := range n.Children {
		if fn := findFunction(c); fn != nil {
			return fn
		}
	}
	return nil
}

func TestAnalyze(t *testing.T) {
	testCases := []struct {
		name string
		src  string
		want []string
	}{
		{"no_captures", "f = {x -> <- x}", []string{}},
		{"single_capture", "f = {x -> <- (add x y)}", []string{"y"}},
		{"builtin_not_captured", "f = {x -> <- (println x)}", []string{}},
		{"param_shadows_outer", "f = {y -> <- (add y y)}", []string{}},
		{"local_assignment_bound", "f = {x -> a = 5\nb = 10\n<- (add a b)}", []string{}},
		{"local_bound_before_use", "f = {x -> <- (add a 1)\na = 5}", []string{}},
		{"assignment_value_scanned", "f = {x -> a = (add x n)\n<- a}", []string{"n"}},
		{"assignment_target_not_use", "f = {x -> y = 5\n<- x}", []string{}},
		{"duplicate_use_once", "f = {x -> <- (add y (add y y))}", []string{"y"}},
		{"multiple_in_order", "f = {x -> <- (add (add a b) c)}", []string{"a", "b", "c"}},
		{"qualified_not_identifier", "f = {x -> <- (m.g x)}", []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fn := parseFn(t, tc.src)
			n := freevar.Analyze(fn)
			if n != len(tc.want) {
				t.Fatalf("expected %d free vars, got %d: %v", len(tc.want), n, fn.FreeVars)
			}
			if !reflect.DeepEqual(fn.FreeVars, tc.want) {
				t.Errorf("expected free vars %v, got %v", tc.want, fn.FreeVars)
			}
		})
	}
}

func TestTransitiveCapture(t *testing.T) {
	// The inner function needs n; the outer function does not bind n, so it
	// must capture n as well to thread it through.
	fn := parseFn(t, "outer = {x -> inner = {y -> <- (add y n)}\n<- inner}")
	freevar.Analyze(fn)
	if !reflect.DeepEqual(fn.FreeVars, []string{"n"}) {
		t.Fatalf("expected outer to capture [n], got %v", fn.FreeVars)
	}

	inner := findInner(fn)
	if inner == nil {
		t.Fatal("inner function not found")
	}
	if !reflect.DeepEqual(inner.FreeVars, []string{"n"}) {
		t.Fatalf("expected inner to capture [n], got %v", inner.FreeVars)
	}
}

func TestTransitiveCaptureBoundInParent(t *testing.T) {
	// The inner function captures x, but x is a parameter of the outer
	// function, so the outer function captures nothing.
	fn := parseFn(t, "outer = {x -> inner = {y -> <- (add y x)}\n<- inner}")
	freevar.Analyze(fn)
	if len(fn.FreeVars) != 0 {
		t.Fatalf("expected outer to capture nothing, got %v", fn.FreeVars)
	}
}

func TestNestedLocalsStayLocal(t *testing.T) {
	// a is local to the inner function; the outer function must not see it
	// as a capture.
	fn := parseFn(t, "outer = {x -> inner = {y -> a = 1\n<- (add a y)}\n<- inner}")
	freevar.Analyze(fn)
	if len(fn.FreeVars) != 0 {
		t.Fatalf("expected no captures, got %v", fn.FreeVars)
	}
}

func TestMemoized(t *testing.T) {
	fn := parseFn(t, "f = {x -> <- (add x y)}")
	freevar.Analyze(fn)
	first := fn.FreeVars
	freevar.Analyze(fn)
	if &first[0] != &fn.FreeVars[0] {
		t.Error("second analysis replaced memoized result")
	}
}

func TestNonFunctionNode(t *testing.T) {
	n := ast.NewNode(ast.Int, "5", 1)
	if got := freevar.Analyze(n); got != 0 {
		t.Fatalf("expected 0 for non-function node, got %d", got)
	}
}

func findInner(fn *ast.Node) *ast.Node {
	for _, stmt := range fn.Body() {
		if inner := findFunction(stmt); inner != nil {
			return inner
		}
	}
	return nil
}
