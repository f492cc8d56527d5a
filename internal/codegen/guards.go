package codegen

import (
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/franz-lang/franzc/internal/ast"
)

// kindUnknown marks an expression the static story cannot classify
// (erased parameters, boxed values).
const kindUnknown ast.Op = -1

// staticKind classifies an expression at compile time.
func (gen *Generator) staticKind(n *ast.Node) ast.Op {
	switch n.Op {
	case ast.Int, ast.Float, ast.String, ast.List, ast.Function:
		return n.Op
	case ast.Identifier:
		if _, ok := gen.funcs[n.Val]; ok {
			return ast.Function
		}
		if _, ok := gen.closures[n.Val]; ok {
			return ast.Function
		}
		if op, ok := gen.typeMeta[n.Val]; ok {
			return op
		}
	case ast.Application:
		if len(n.Children) > 0 && n.Children[0].Op == ast.Identifier {
			switch n.Children[0].Val {
			case "add", "subtract", "multiply", "remainder", "length",
				"is", "less_than", "greater_than", "not", "and", "or",
				"integer", "random_int", "floor", "ceil", "round", "file_exists":
				return ast.Int
			case "divide", "power", "sqrt", "random", "random_range", "float":
				return ast.Float
			case "join", "repeat", "string", "format-int", "format-float", "input",
				"type", "read_file":
				return ast.String
			case "list", "cons", "tail", "range", "map", "map2", "filter",
				"dict_keys", "dict_values":
				return ast.List
			}
		}
	}
	return kindUnknown
}

// guardTag is the runtime tag a type guard tests an erased parameter against.
func guardTag(name string) (int, bool) {
	switch name {
	case "is_int":
		return tagInt, true
	case "is_float":
		return tagFloat, true
	case "is_string", "is_list":
		return tagPointer, true
	case "is_function":
		return tagClosure, true
	}
	return 0, false
}

// compileTypeGuard lowers is_int / is_float / is_string / is_list /
// is_function. Statically classifiable arguments fold to a constant;
// erased closure parameters test their runtime tag.
func (gen *Generator) compileTypeGuard(n *ast.Node, name string) value.Value {
	if len(n.Children) != 2 {
		return gen.errorf(n.Line, "%s expects exactly 1 argument", name)
	}
	arg := n.Children[1]

	want := map[string]ast.Op{
		"is_int":      ast.Int,
		"is_float":    ast.Float,
		"is_string":   ast.String,
		"is_list":     ast.List,
		"is_function": ast.Function,
	}[name]

	if kind := gen.staticKind(arg); kind != kindUnknown {
		if kind == want {
			return constant64(1)
		}
		return constant64(0)
	}

	if arg.Op == ast.Identifier {
		if tag, ok := gen.paramTag[arg.Val]; ok {
			wantTag, _ := guardTag(name)
			eq := gen.b.NewICmp(enum.IPredEQ, tag, constant32(int64(wantTag)))
			return gen.b.NewZExt(eq, types.I64)
		}
	}

	return gen.errorf(arg.Line, "%s cannot determine the type of this expression", name)
}

// compileTypeOf lowers (type x) to the static type name as a string.
func (gen *Generator) compileTypeOf(n *ast.Node) value.Value {
	if len(n.Children) != 2 {
		return gen.errorf(n.Line, "type expects exactly 1 argument")
	}
	arg := n.Children[1]
	switch gen.staticKind(arg) {
	case ast.Int:
		return gen.stringConst("int")
	case ast.Float:
		return gen.stringConst("float")
	case ast.String:
		return gen.stringConst("string")
	case ast.List:
		return gen.stringConst("list")
	case ast.Function:
		return gen.stringConst("function")
	}
	if arg.Op == ast.Identifier && arg.Val == "void" {
		return gen.stringConst("void")
	}
	return gen.errorf(arg.Line, "type cannot determine the type of this expression")
}
