// Package codegen lowers the Franz AST into LLVM IR. Values carry one of
// three native representations (i64, double, i8*); everything the static
// story cannot pin down travels boxed through the C runtime's Generic
// records. Closures are converted into heap environments plus type-erased
// function records.
package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/franz-lang/franzc/internal/ast"
	"github.com/franz-lang/franzc/internal/diagnostics"
)

// Return-type tags stored in the third field of a closure record. A dynamic
// tag defers to the runtime tag of the argument at the recorded parameter
// index.
const (
	tagInt = iota
	tagFloat
	tagPointer
	tagClosure
	tagVoid
	tagDynamic
)

// mutSlot is a mutable variable: an alloca plus its element type.
type mutSlot struct {
	slot *ir.InstAlloca
	elem types.Type
}

// closureInfo records what the creation site of a named closure knows, so
// calls through the name can skip the indirect-call machinery.
type closureInfo struct {
	fn       *ir.Func
	arity    int
	retTag   int
	paramIdx int
}

// directFn is a capture-free user function compiled with a typed signature.
// The adapter is the lazily built erased wrapper for higher-order use.
type directFn struct {
	fn      *ir.Func
	adapter *ir.Func
}

// Generator is the compilation context threaded through all lowering. It is
// single-threaded; scopes are entered by copying the name maps and left by
// restoring the copies.
type Generator struct {
	m *ir.Module
	f *ir.Func
	b *ir.Block

	vars     map[string]value.Value  // immutable bindings and loaded values
	muts     map[string]mutSlot      // mut bindings
	funcs    map[string]*directFn    // capture-free user functions
	closures map[string]*closureInfo // named closures with visible creation sites
	boxed    map[string]bool         // names holding Generic* (possibly as i64 bits)
	voidVars map[string]bool         // names assigned from void-returning calls
	typeMeta map[string]ast.Op       // name -> op of the value last assigned to it
	paramTag map[string]value.Value  // closure param -> runtime i32 tag

	// loop context for <- / break / continue inside loop and while bodies
	loopExit     *ir.Block
	loopIncr     *ir.Block
	loopReturn   *ir.InstAlloca
	loopRetFloat bool // a float was parked in the return slot

	inTail      bool
	enableTCO   bool
	selfClosure string // name of the closure whose body is being compiled

	closureTyp *types.StructType
	runtime    map[string]*ir.Func
	strings    map[string]constant.Constant
	strCount   int
	closCount  int
	envCount   int
	blockCount int

	errs []*diagnostics.DiagnosticError
}

// New returns a generator with an empty module and the closure record type
// defined: %franz.closure = { i8*, i8*, i32, i32 }.
func New() *Generator {
	gen := &Generator{
		m:        ir.NewModule(),
		vars:     make(map[string]value.Value),
		muts:     make(map[string]mutSlot),
		funcs:    make(map[string]*directFn),
		closures: make(map[string]*closureInfo),
		boxed:    make(map[string]bool),
		voidVars: make(map[string]bool),
		typeMeta: make(map[string]ast.Op),
		paramTag: make(map[string]value.Value),
		runtime:  make(map[string]*ir.Func),
		strings:  make(map[string]constant.Constant),

		enableTCO: true,
	}
	gen.closureTyp = types.NewStruct(types.I8Ptr, types.I8Ptr, types.I32, types.I32)
	gen.m.NewTypeDef("franz.closure", gen.closureTyp)
	return gen
}

// Errors returns the diagnostics collected during generation.
func (gen *Generator) Errors() []*diagnostics.DiagnosticError { return gen.errs }

// Module returns the module built so far.
func (gen *Generator) Module() *ir.Module { return gen.m }

// Generate compiles a whole program. The root must be the parser's Statement
// node; its children become the body of main. Returns the module even when
// diagnostics were emitted, so callers can inspect partial output.
func (gen *Generator) Generate(root *ast.Node) (*ir.Module, error) {
	main := gen.m.NewFunc("main", types.I64)
	gen.f = main
	gen.b = main.NewBlock("entry")

	for _, stmt := range root.Children {
		gen.compileNode(stmt)
	}
	if gen.b.Term == nil {
		gen.b.NewRet(constant.NewInt(types.I64, 0))
	}

	if len(gen.errs) > 0 {
		return gen.m, fmt.Errorf("%d compile error(s)", len(gen.errs))
	}
	return gen.m, nil
}

// errorf records a diagnostic and returns the nil sentinel the caller
// propagates.
func (gen *Generator) errorf(line int, format string, args ...interface{}) value.Value {
	gen.errs = append(gen.errs, diagnostics.Errorf(line, format, args...))
	return nil
}

// scope is a snapshot of the name maps taken on scope entry.
type scope struct {
	vars     map[string]value.Value
	muts     map[string]mutSlot
	closures map[string]*closureInfo
	boxed    map[string]bool
	voidVars map[string]bool
	typeMeta map[string]ast.Op
	paramTag map[string]value.Value
}

func (gen *Generator) snapshot() scope {
	return scope{
		vars:     copyMap(gen.vars),
		muts:     copyMap(gen.muts),
		closures: copyMap(gen.closures),
		boxed:    copyMap(gen.boxed),
		voidVars: copyMap(gen.voidVars),
		typeMeta: copyMap(gen.typeMeta),
		paramTag: copyMap(gen.paramTag),
	}
}

func (gen *Generator) restore(s scope) {
	gen.vars = s.vars
	gen.muts = s.muts
	gen.closures = s.closures
	gen.boxed = s.boxed
	gen.voidVars = s.voidVars
	gen.typeMeta = s.typeMeta
	gen.paramTag = s.paramTag
}

func copyMap[V any](src map[string]V) map[string]V {
	dst := make(map[string]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (gen *Generator) nextStrName() string {
	gen.strCount++
	return fmt.Sprintf(".str.%d", gen.strCount)
}

func (gen *Generator) nextClosureName() string {
	gen.closCount++
	return fmt.Sprintf("_franz_closure_%d", gen.closCount)
}

func (gen *Generator) nextEnvName() string {
	gen.envCount++
	return fmt.Sprintf("franz.env.%d", gen.envCount)
}

// newBlock appends a block to the current function. A counter keeps the
// label unique when the same construct nests.
func (gen *Generator) newBlock(name string) *ir.Block {
	gen.blockCount++
	return gen.f.NewBlock(fmt.Sprintf("%s.%d", name, gen.blockCount))
}

// zero is the placeholder value for void positions and missing branches.
func zero() value.Value { return constant.NewInt(types.I64, 0) }

func constant32(v int64) *constant.Int { return constant.NewInt(types.I32, v) }
func constant64(v int64) *constant.Int { return constant.NewInt(types.I64, v) }
