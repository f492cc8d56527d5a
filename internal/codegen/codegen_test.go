package codegen_test

import (
	"strings"
	"testing"

	"github.com/franz-lang/franzc/internal/codegen"
	"github.com/franz-lang/franzc/internal/lexer"
	"github.com/franz-lang/franzc/internal/parser"
)

func compile(t *testing.T, src string) string {
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
	gen := codegen.New()
	m, err := gen.Generate(root)
	if err != nil {
		t.Fatalf("codegen error: %v\n%s", err, formatDiags(gen))
	}
	return m.String()
}

func compileErr(t *testing.T, src string) []string {
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
	gen := codegen.New()
	if _, err := gen.Generate(root); err == nil {
		t.Fatal("expected codegen diagnostics, got none")
	}
	var msgs []string
	for _, d := range gen.Errors() {
		msgs = append(msgs, d.Error())
	}
	return msgs
}

func formatDiags(gen *codegen.Generator) string {
	var b strings.Builder
	for _, d := range gen.Errors() {
		b.WriteString(d.Error())
		b.WriteByte('\n')
	}
	return b.String()
}

func wantContains(t *testing.T, ir string, subs ...string) {
	t.Helper()
	for _, sub := range subs {
		if !strings.Contains(ir, sub) {
			t.Errorf("IR missing %q\n%s", sub, ir)
		}
	}
}

func TestIntArithmetic(t *testing.T) {
	ir := compile(t, "x = (add 1 2)\n(println x)")
	wantContains(t, ir, "add i64 1, 2", "@printf")
}

func TestFloatPromotion(t *testing.T) {
	ir := compile(t, "(println (add 1 2.5))")
	wantContains(t, ir, "sitofp", "fadd double")
}

func TestDivideAlwaysFloat(t *testing.T) {
	ir := compile(t, "(println (divide 7 2))")
	wantContains(t, ir, "fdiv double")
}

func TestRemainderIntAndFloat(t *testing.T) {
	ir := compile(t, "(println (remainder 7 2))")
	wantContains(t, ir, "srem i64")

	ir = compile(t, "(println (remainder 7.5 2))")
	wantContains(t, ir, "@fmod")
}

func TestPowerIntRoundTrip(t *testing.T) {
	ir := compile(t, "(println (power 2 10))")
	wantContains(t, ir, "@pow", "fptosi")
}

func TestIfMergesThroughPhi(t *testing.T) {
	ir := compile(t, "x = (if 1 {<- 2} {<- 3})\n(println x)")
	wantContains(t, ir, "icmp ne i64 1, 0", "br i1", "phi i64")
}

func TestCondFallthroughYieldsZero(t *testing.T) {
	ir := compile(t, "x = (cond ((is 1 2) 10) ((is 1 1) 20))\n(println x)")
	wantContains(t, ir, "cond_fallthrough", "phi i64")
}

func TestWhileLoop(t *testing.T) {
	ir := compile(t, "mut i = 0\n(while (less_than i 3) {i = (add i 1)})")
	wantContains(t, ir, "while_cond", "while_body", "while_exit", "icmp slt")
}

func TestCountedLoop(t *testing.T) {
	ir := compile(t, "(loop 3 {i -> (println i)})")
	wantContains(t, ir, "loop_cond", "loop_body", "loop_incr", "loop_exit")
}

func TestBreakStoresLoopResult(t *testing.T) {
	ir := compile(t, "x = (while 1 {(break 42)})\n(println x)")
	wantContains(t, ir, "while_exit", "inttoptr")
}

func TestShortCircuitAnd(t *testing.T) {
	ir := compile(t, "(println (and 1 0 1))")
	wantContains(t, ir, "and_final", "and_next", "phi i64")
}

func TestShortCircuitOr(t *testing.T) {
	ir := compile(t, "(println (or 0 1))")
	wantContains(t, ir, "or_final", "phi i64")
}

func TestStringLiteralInterned(t *testing.T) {
	ir := compile(t, `(println "hi")`)
	wantContains(t, ir, `c"hi\00"`, "@printf")
}

func TestDirectFunction(t *testing.T) {
	ir := compile(t, "f = {x -> <- (add x 1)}\n(println (f 5))")
	wantContains(t, ir, "define i64 @f(i64 %x)", "call i64 @f(i64 5)")
}

func TestClosureCapturesEnvironment(t *testing.T) {
	ir := compile(t, "y = 10\nf = {x -> <- (add x y)}\n(println (f 5))")
	wantContains(t, ir,
		"%franz.closure = type { i8*, i8*, i32, i32 }",
		"@_franz_closure_1",
		"@malloc",
	)
}

func TestListLiteral(t *testing.T) {
	ir := compile(t, "xs = [1, 2]\n(println (length xs))")
	wantContains(t, ir, "@franz_list_new", "@franz_list_length", "@franz_box_int")
}

func TestHigherOrderMap(t *testing.T) {
	ir := compile(t, "xs = [1, 2]\nys = (map xs {x -> <- (add x 1)})\n(println (length ys))")
	wantContains(t, ir, "@franz_llvm_map", "@franz_box_closure")
}

func TestDictLiteral(t *testing.T) {
	ir := compile(t, `d = (dict "a" 1)`+"\n"+`(println (dict_has d "a"))`)
	wantContains(t, ir, "@franz_dict_new", "@franz_dict_set", "@franz_dict_has")
}

func TestVariantAndMatch(t *testing.T) {
	src := `v = (variant "Some" 1)
(println (match v ("Some" {vals -> <- 1}) (else {<- 0})))`
	ir := compile(t, src)
	wantContains(t, ir, "@strcmp", "@franz_unbox_string", "@franz_print_generic")
}

func TestRefCell(t *testing.T) {
	ir := compile(t, "r = (ref 1)\n(set! r 2)\n(println (deref r))")
	wantContains(t, ir, "@franz_llvm_create_ref", "@franz_llvm_set_ref", "@franz_llvm_deref")
}

func TestBoxedValueUnboxedForArithmetic(t *testing.T) {
	ir := compile(t, "xs = [1, 2]\nh = (head xs)\n(println (add h 1))")
	wantContains(t, ir, "@franz_list_head", "@franz_unbox_int")
}

func TestStringConversion(t *testing.T) {
	ir := compile(t, `(println (integer "42"))`)
	wantContains(t, ir, "@atoi", "sext")
}

func TestImmutableReassignment(t *testing.T) {
	msgs := compileErr(t, "x = 1\nx = 2")
	found := false
	for _, m := range msgs {
		if strings.Contains(m, "cannot reassign immutable variable") {
			found = true
		}
	}
	if !found {
		t.Errorf("missing immutable-reassignment diagnostic, got %v", msgs)
	}
}

func TestMutReassignment(t *testing.T) {
	ir := compile(t, "mut x = 1\nx = 2\n(println x)")
	wantContains(t, ir, "alloca i64", "store i64 2")
}

func TestUnknownFunction(t *testing.T) {
	msgs := compileErr(t, "(nope 1)")
	found := false
	for _, m := range msgs {
		if strings.Contains(m, `unknown function "nope"`) {
			found = true
		}
	}
	if !found {
		t.Errorf("missing unknown-function diagnostic, got %v", msgs)
	}
}

func TestBreakOutsideLoop(t *testing.T) {
	msgs := compileErr(t, "(break 1)")
	found := false
	for _, m := range msgs {
		if strings.Contains(m, "break outside of a loop") {
			found = true
		}
	}
	if !found {
		t.Errorf("missing break diagnostic, got %v", msgs)
	}
}

func TestTypeGuardsFoldStatically(t *testing.T) {
	ir := compile(t, "(println (is_int 1))\n(println (is_float 1))")
	// both results are compile-time constants
	wantContains(t, ir, "i64 1", "i64 0")
}

func TestMinMaxSelectChain(t *testing.T) {
	ir := compile(t, "(println (min 3 1 2))")
	wantContains(t, ir, "select i1", "icmp slt")
}

func TestBuiltinsNestInsideBuiltins(t *testing.T) {
	// Lowering a builtin whose arguments are themselves builtin calls
	// recurses through the dispatch table.
	ir := compile(t, "(println (add (min 1 2) (max 3 4)))")
	wantContains(t, ir, "select i1", "add i64")
}

func TestNestedClosureCallsEnclosingClosure(t *testing.T) {
	// The callback captures a record for f; f's body must not be entered
	// with the callback's own environment.
	src := "b = 2\nf = {n -> <- (map [b] {x -> <- (f x)})}\n(f 1)"
	ir := compile(t, src)
	wantContains(t, ir,
		"%franz.env.1 = type { i64 }",
		"%franz.env.2 = type { i64 }",
		"@_franz_closure_1",
		"@_franz_closure_2",
	)
}

func TestBranchLocalsStayLocal(t *testing.T) {
	msgs := compileErr(t, "(if 1 {t = (add 2 3)} 0)\n(println t)")
	found := false
	for _, m := range msgs {
		if strings.Contains(m, `undefined variable "t"`) {
			found = true
		}
	}
	if !found {
		t.Errorf("branch-local variable escaped its arm, got %v", msgs)
	}

	msgs = compileErr(t, "(while 0 {u = 1})\n(println u)")
	found = false
	for _, m := range msgs {
		if strings.Contains(m, `undefined variable "u"`) {
			found = true
		}
	}
	if !found {
		t.Errorf("while-body variable escaped the loop, got %v", msgs)
	}
}

func TestBreakPreservesFloatResult(t *testing.T) {
	ir := compile(t, "x = (while 1 {(break 2.5)})\n(println x)")
	wantContains(t, ir, "to double", `c"%f\00"`)
}

func TestFileOperations(t *testing.T) {
	src := `s = (read_file "in.txt")
(write_file "out.txt" s)
(append_file "out.txt" s)
(println (file_exists "out.txt"))`
	ir := compile(t, src)
	wantContains(t, ir, "@readFile", "@writeFile", "@appendFile", "@fileExists")
}

func TestRangeBuildsListInline(t *testing.T) {
	ir := compile(t, "(println (length (range 5)))")
	wantContains(t, ir, "range_cond", "range_body", "@franz_list_new")
}
