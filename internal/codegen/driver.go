package codegen

import (
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/franz-lang/franzc/internal/ast"
	"github.com/franz-lang/franzc/internal/freevar"
)

// compileNode lowers one expression tree and returns its value, or nil after
// recording a diagnostic. Callers must check for nil and bail out.
func (gen *Generator) compileNode(n *ast.Node) value.Value {
	if n == nil {
		return nil
	}
	switch n.Op {
	case ast.Int:
		return gen.compileInt(n)
	case ast.Float:
		return gen.compileFloat(n)
	case ast.String:
		return gen.stringConst(n.Val)
	case ast.Identifier:
		return gen.compileIdentifier(n)
	case ast.Statement:
		var last value.Value = zero()
		for _, child := range n.Children {
			last = gen.compileNode(child)
			if last == nil {
				return nil
			}
			if gen.b.Term != nil {
				break
			}
		}
		return last
	case ast.Assignment:
		return gen.compileAssignment(n)
	case ast.Return:
		return gen.compileReturn(n)
	case ast.Application:
		return gen.compileApplication(n)
	case ast.Function:
		// A bare block in expression position runs inline.
		return gen.compileBlock(n)
	case ast.List:
		return gen.compileList(n)
	case ast.Qualified:
		return gen.errorf(n.Line, "unresolved qualified name %q", n.Val)
	default:
		return gen.errorf(n.Line, "cannot compile node %s", n.Op)
	}
}

func (gen *Generator) compileIdentifier(n *ast.Node) value.Value {
	if m, ok := gen.muts[n.Val]; ok {
		return gen.b.NewLoad(m.elem, m.slot)
	}
	if v, ok := gen.vars[n.Val]; ok {
		return v
	}
	if n.Val == "void" {
		return zero()
	}
	if d, ok := gen.funcs[n.Val]; ok {
		// Function referenced as a value: hand out its closure record.
		return gen.directWrapper(n.Val, d)
	}
	return gen.errorf(n.Line, "undefined variable %q", n.Val)
}

func (gen *Generator) compileAssignment(n *ast.Node) value.Value {
	if len(n.Children) != 2 || n.Children[0].Op != ast.Identifier {
		return gen.errorf(n.Line, "malformed assignment")
	}
	name := n.Children[0].Val
	rhs := n.Children[1]

	// Named function definitions take the function path: capture-free ones
	// become direct functions, capturing ones become closures.
	if rhs.Op == ast.Function {
		return gen.compileNamedFunction(name, rhs, n.Line)
	}

	v := gen.compileNode(rhs)
	if v == nil {
		return nil
	}
	gen.recordMeta(name, rhs)

	if n.Mutable {
		slot := gen.b.NewAlloca(v.Type())
		gen.b.NewStore(v, slot)
		delete(gen.vars, name)
		gen.muts[name] = mutSlot{slot: slot, elem: v.Type()}
		return v
	}

	if m, ok := gen.muts[name]; ok {
		// Reassignment of a mut variable; coerce between the numeric
		// representations when the new value disagrees with the slot.
		stored := v
		if m.elem.Equal(types.I64) && isFloat(v) {
			stored = gen.toInt(v)
		} else if m.elem.Equal(types.Double) && isInt(v) {
			stored = gen.toFloat(v)
		} else if !m.elem.Equal(v.Type()) {
			return gen.errorf(n.Line, "cannot assign %v to mut variable %q of type %v", v.Type(), name, m.elem)
		}
		gen.b.NewStore(stored, m.slot)
		return v
	}

	if _, exists := gen.vars[name]; exists {
		return gen.errorf(n.Line, "cannot reassign immutable variable %q (declare it with mut)", name)
	}
	gen.vars[name] = v
	return v
}

// recordMeta remembers what shape of expression a variable was assigned
// from; the classifier consults this before falling back to runtime tags.
func (gen *Generator) recordMeta(name string, rhs *ast.Node) {
	delete(gen.boxed, name)
	delete(gen.voidVars, name)
	op := rhs.Op
	if rhs.Op == ast.Application && len(rhs.Children) > 0 && rhs.Children[0].Op == ast.Identifier {
		switch head := rhs.Children[0].Val; head {
		case "add", "subtract", "multiply", "floor", "ceil", "round",
			"remainder", "length", "is", "less_than", "greater_than",
			"not", "and", "or", "integer", "random_int", "file_exists":
			op = ast.Int
		case "divide", "power", "sqrt", "random", "random_range", "float":
			op = ast.Float
		case "join", "repeat", "string", "format-int", "format-float", "input", "read_file":
			op = ast.String
		case "cons", "tail", "range", "map", "map2", "filter", "dict_keys", "dict_values":
			op = ast.List
			gen.boxed[name] = true
		case "random_seed", "println", "print", "set!", "write_file", "append_file":
			gen.voidVars[name] = true
		default:
			if gen.isBoxedNode(rhs) {
				gen.boxed[name] = true
			}
		}
	} else if rhs.Op == ast.List {
		gen.boxed[name] = true
	}
	gen.typeMeta[name] = op
}

// compileReturn lowers `<- value`. Inside a loop it stores the value into
// the loop return slot and branches to the exit; otherwise it emits ret.
func (gen *Generator) compileReturn(n *ast.Node) value.Value {
	var v value.Value = zero()
	if len(n.Children) > 0 {
		saved := gen.inTail
		gen.inTail = gen.loopExit == nil
		v = gen.compileNode(n.Children[0])
		gen.inTail = saved
		if v == nil {
			return nil
		}
	}

	if gen.loopExit != nil {
		// Early loop exit: park the value as an i8* and leave.
		var asPtr value.Value
		switch {
		case isPtr(v):
			asPtr = gen.asI8Ptr(v)
		case isFloat(v):
			asPtr = gen.b.NewIntToPtr(gen.b.NewBitCast(v, types.I64), types.I8Ptr)
			gen.loopRetFloat = true
		default:
			asPtr = gen.b.NewIntToPtr(v, types.I8Ptr)
		}
		gen.b.NewStore(asPtr, gen.loopReturn)
		gen.b.NewBr(gen.loopExit)
		return v
	}

	ret := gen.f.Sig.RetType
	switch {
	case ret.Equal(types.I64):
		if isPtr(v) {
			v = gen.b.NewPtrToInt(v, types.I64)
		} else {
			v = gen.toInt(v)
		}
	case ret.Equal(types.Double):
		if isPtr(v) {
			v = gen.b.NewSIToFP(gen.b.NewPtrToInt(v, types.I64), types.Double)
		} else {
			v = gen.toFloat(v)
		}
	case ret.Equal(types.I8Ptr) && !isPtr(v):
		if isFloat(v) {
			v = gen.b.NewBitCast(v, types.I64)
		}
		v = gen.b.NewIntToPtr(v, types.I8Ptr)
	}
	gen.b.NewRet(v)
	return v
}

// compileBlock runs a Function node inline as a statement sequence: the
// branch bodies of if/when/unless/cond and while bodies. A `<-` inside ends
// the block and its value becomes the block result, except inside loops
// where the return handler performs the early exit.
func (gen *Generator) compileBlock(n *ast.Node) value.Value {
	if n.Op != ast.Function {
		return gen.compileNode(n)
	}
	if len(n.Params()) > 0 {
		return gen.errorf(n.Line, "block with parameters used in expression position")
	}

	// Bindings made inside the block are block-local.
	scope := gen.snapshot()
	defer gen.restore(scope)

	var last value.Value = zero()
	for _, stmt := range n.Body() {
		inner := stmt
		if stmt.Op == ast.Statement && len(stmt.Children) == 1 {
			inner = stmt.Children[0]
		}
		if inner.Op == ast.Return {
			if gen.loopExit != nil {
				return gen.compileNode(inner)
			}
			if len(inner.Children) == 0 {
				return zero()
			}
			return gen.compileNode(inner.Children[0])
		}
		last = gen.compileNode(stmt)
		if last == nil {
			return nil
		}
		if gen.b.Term != nil {
			break
		}
	}
	return last
}

// compileNamedFunction handles `name = {params -> body}`.
func (gen *Generator) compileNamedFunction(name string, fn *ast.Node, line int) value.Value {
	if _, exists := gen.vars[name]; exists {
		return gen.errorf(line, "cannot reassign immutable variable %q (declare it with mut)", name)
	}
	gen.typeMeta[name] = ast.Function

	freevar.Analyze(fn)
	if gen.capturesAnything(fn, name) {
		info, env := gen.compileClosure(name, fn)
		if info == nil {
			return nil
		}
		rec := gen.buildClosureRecord(info, env)
		gen.closures[name] = info
		gen.vars[name] = gen.b.NewPtrToInt(rec, types.I64)
		return gen.vars[name]
	}

	d := gen.compileDirectFunction(name, fn)
	if d == nil {
		return nil
	}
	return zero()
}

// capturesAnything reports whether a function needs closure conversion:
// free variables remain after discounting direct functions and the
// function's own name (self-recursion needs no environment).
func (gen *Generator) capturesAnything(fn *ast.Node, name string) bool {
	for _, fv := range fn.FreeVars {
		if fv == name {
			continue
		}
		if _, ok := gen.funcs[fv]; ok {
			continue
		}
		return true
	}
	return false
}
