package codegen

import (
	"strconv"
	"strings"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/franz-lang/franzc/internal/ast"
	"github.com/franz-lang/franzc/internal/builtins"
	"github.com/franz-lang/franzc/internal/typeinfer"
)

// compileInt lowers an integer literal. The lexeme keeps its source form, so
// base 0 parsing covers decimal, 0x, 0o and 0b plus a leading sign.
func (gen *Generator) compileInt(n *ast.Node) value.Value {
	v, err := strconv.ParseInt(strings.ReplaceAll(n.Val, "_", ""), 0, 64)
	if err != nil {
		return gen.errorf(n.Line, "invalid integer literal %q", n.Val)
	}
	return constant.NewInt(types.I64, v)
}

// compileFloat lowers a float literal; ParseFloat accepts decimal, scientific
// and hexadecimal (0x1.8p3) forms.
func (gen *Generator) compileFloat(n *ast.Node) value.Value {
	v, err := strconv.ParseFloat(strings.ReplaceAll(n.Val, "_", ""), 64)
	if err != nil {
		return gen.errorf(n.Line, "invalid float literal %q", n.Val)
	}
	return constant.NewFloat(types.Double, v)
}

// stringConst interns a NUL-terminated global and returns a constant i8*
// to its first byte. Identical literals share one global.
func (gen *Generator) stringConst(s string) value.Value {
	if c, ok := gen.strings[s]; ok {
		return c
	}
	arr := constant.NewCharArrayFromString(s + "\x00")
	g := gen.m.NewGlobalDef(gen.nextStrName(), arr)
	g.Immutable = true
	g.Linkage = enum.LinkagePrivate
	idx := constant.NewInt(types.I64, 0)
	c := constant.NewGetElementPtr(arr.Typ, g, idx, idx)
	gen.strings[s] = c
	return c
}

func isInt(v value.Value) bool   { return v.Type().Equal(types.I64) }
func isFloat(v value.Value) bool { return v.Type().Equal(types.Double) }

func isPtr(v value.Value) bool {
	_, ok := v.Type().(*types.PointerType)
	return ok
}

// toFloat promotes an i64 to double; doubles pass through.
func (gen *Generator) toFloat(v value.Value) value.Value {
	if isFloat(v) {
		return v
	}
	return gen.b.NewSIToFP(v, types.Double)
}

// toInt demotes a double to i64; i64 passes through.
func (gen *Generator) toInt(v value.Value) value.Value {
	if isInt(v) {
		return v
	}
	return gen.b.NewFPToSI(v, types.I64)
}

// boxedBuiltins are the call forms whose result the runtime hands back as a
// Generic record.
var boxedBuiltins = map[string]bool{
	"head": true, "tail": true, "cons": true, "nth": true, "get": true,
	"range": true, "map": true, "map2": true, "filter": true, "reduce": true,
	"dict": true, "dict_get": true, "dict_set": true, "dict_keys": true,
	"dict_values": true, "dict_map": true, "dict_filter": true,
	"dict_merge": true, "variant": true, "variant_tag": true,
	"variant_values": true, "match": true, "ref": true, "deref": true,
}

// isBoxedNode reports whether the expression's value travels as a Generic
// record. It must agree with what the call paths actually produce: known
// closures yield native values for int/float return tags, indirect closure
// calls always yield boxed results.
func (gen *Generator) isBoxedNode(n *ast.Node) bool {
	if n == nil {
		return false
	}
	switch n.Op {
	case ast.Identifier:
		return gen.boxed[n.Val]
	case ast.Application:
		if len(n.Children) == 0 {
			return false
		}
		head := n.Children[0]
		if head.Op == ast.Function {
			// Immediately applied literal: same resolution as a known
			// closure call.
			sig := typeinfer.InferFunction(head)
			retTag, paramIdx := gen.closureReturnTag(head, sig)
			return gen.closureResultBoxed(&closureInfo{retTag: retTag, paramIdx: paramIdx}, n)
		}
		if head.Op != ast.Identifier {
			return true // computed callee: indirect call, uniformly boxed
		}
		if boxedBuiltins[head.Val] {
			return true
		}
		if info, ok := gen.closures[head.Val]; ok {
			return gen.closureResultBoxed(info, n)
		}
		if _, ok := gen.funcs[head.Val]; ok {
			return false
		}
		if builtins.IsGlobal(head.Val) {
			return false
		}
		if _, ok := gen.vars[head.Val]; ok {
			return true
		}
		if _, ok := gen.muts[head.Val]; ok {
			return true
		}
	}
	return false
}

// closureResultBoxed resolves a closure call's return tag the same way
// callKnownClosure does, with a dynamic tag resolved through the static tag
// of the argument at the recorded parameter index.
func (gen *Generator) closureResultBoxed(info *closureInfo, n *ast.Node) bool {
	tag := info.retTag
	if tag == tagDynamic {
		tag = tagInt
		if argIdx := 1 + info.paramIdx; argIdx < len(n.Children) {
			tag = gen.staticArgTag(n.Children[argIdx])
		}
	}
	return tag == tagPointer || tag == tagClosure
}

// staticArgTag predicts the runtime tag erasedArg will attach to an
// argument without compiling it.
func (gen *Generator) staticArgTag(n *ast.Node) int {
	if gen.isBoxedNode(n) {
		return tagPointer
	}
	if n.Op == ast.Identifier && n.Val == "void" {
		return tagVoid
	}
	switch gen.staticKind(n) {
	case ast.Float:
		return tagFloat
	case ast.String, ast.List:
		return tagPointer
	default:
		return tagInt
	}
}

// unboxForArithmetic converts a boxed operand to its native i64 payload.
// Pointer-typed boxed values call franz_unbox_int directly; i64 values are
// reinterpreted as Generic* first. Values not tracked as boxed pass through:
// native scalars are never speculatively unboxed.
func (gen *Generator) unboxForArithmetic(v value.Value, n *ast.Node) value.Value {
	if v == nil || !gen.isBoxedNode(n) {
		return v
	}
	ptr := v
	if isInt(v) {
		ptr = gen.b.NewIntToPtr(v, types.I8Ptr)
	} else if !isPtr(v) {
		return v
	}
	return gen.b.NewCall(gen.rt("franz_unbox_int"), ptr)
}

// box wraps a native value into a Generic record. Pointer values that are
// already boxed pass through untouched.
func (gen *Generator) box(v value.Value, n *ast.Node) value.Value {
	switch {
	case gen.isBoxedNode(n):
		if isInt(v) {
			return gen.b.NewIntToPtr(v, types.I8Ptr)
		}
		return v
	case isInt(v):
		return gen.b.NewCall(gen.rt("franz_box_int"), v)
	case isFloat(v):
		return gen.b.NewCall(gen.rt("franz_box_float"), v)
	case isPtr(v):
		if n != nil && n.Op == ast.String {
			return gen.b.NewCall(gen.rt("franz_box_string"), gen.asI8Ptr(v))
		}
		if n != nil && gen.isStringNode(n) {
			return gen.b.NewCall(gen.rt("franz_box_string"), gen.asI8Ptr(v))
		}
		return gen.b.NewCall(gen.rt("franz_box_pointer_smart"), gen.asI8Ptr(v))
	default:
		return gen.b.NewCall(gen.rt("franz_box_int"), zero())
	}
}

// isStringNode reports whether the node statically denotes a string.
func (gen *Generator) isStringNode(n *ast.Node) bool {
	if n.Op == ast.String {
		return true
	}
	if n.Op == ast.Identifier {
		return gen.typeMeta[n.Val] == ast.String
	}
	if n.Op == ast.Application && len(n.Children) > 0 && n.Children[0].Op == ast.Identifier {
		switch n.Children[0].Val {
		case "join", "repeat", "string", "format-int", "format-float", "input", "read_file":
			return true
		}
	}
	return false
}

// asI8Ptr bitcasts any pointer to i8*.
func (gen *Generator) asI8Ptr(v value.Value) value.Value {
	if v.Type().Equal(types.I8Ptr) {
		return v
	}
	return gen.b.NewBitCast(v, types.I8Ptr)
}
