package codegen

import (
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/franz-lang/franzc/internal/ast"
	"github.com/franz-lang/franzc/internal/freevar"
)

// compileApplication dispatches a call form: builtins first, then named user
// functions (direct or closure), then anything callable held in a variable.
func (gen *Generator) compileApplication(n *ast.Node) value.Value {
	if len(n.Children) == 0 {
		return gen.errorf(n.Line, "empty application")
	}
	head := n.Children[0]

	// Immediately applied function literal.
	if head.Op == ast.Function {
		return gen.callAnonymous(n, head)
	}

	// Computed callee: an expression producing a closure record.
	if head.Op != ast.Identifier {
		callee := gen.compileNode(head)
		if callee == nil {
			return nil
		}
		return gen.callClosureValue(n, callee)
	}

	if fn, ok := builtinDispatch[head.Val]; ok {
		return fn(gen, n)
	}

	name := head.Val
	if info, ok := gen.closures[name]; ok {
		return gen.callKnownClosure(n, name, info)
	}
	if d, ok := gen.funcs[name]; ok {
		return gen.callDirect(n, name, d)
	}
	if _, ok := gen.muts[name]; ok {
		callee := gen.compileIdentifier(head)
		if callee == nil {
			return nil
		}
		return gen.callClosureValue(n, callee)
	}
	if _, ok := gen.vars[name]; ok {
		callee := gen.compileIdentifier(head)
		if callee == nil {
			return nil
		}
		return gen.callClosureValue(n, callee)
	}
	return gen.errorf(n.Line, "unknown function %q", name)
}

// builtinDispatch routes each builtin call form to its lowering. The table
// is filled at init time: many lowerings recurse through compileApplication,
// which consults the table, so a package-level literal would be an
// initialization cycle.
var builtinDispatch map[string]func(*Generator, *ast.Node) value.Value

func init() {
	builtinDispatch = map[string]func(*Generator, *ast.Node) value.Value{
		// control flow
		"if":       func(g *Generator, n *ast.Node) value.Value { return g.compileIf(n, false) },
		"when":     func(g *Generator, n *ast.Node) value.Value { return g.compileIf(n, false) },
		"unless":   func(g *Generator, n *ast.Node) value.Value { return g.compileIf(n, true) },
		"cond":     (*Generator).compileCond,
		"loop":     (*Generator).compileLoop,
		"while":    (*Generator).compileWhile,
		"break":    (*Generator).compileBreak,
		"continue": (*Generator).compileContinue,

		// logical
		"and": func(g *Generator, n *ast.Node) value.Value { return g.compileShortCircuit(n, true) },
		"or":  func(g *Generator, n *ast.Node) value.Value { return g.compileShortCircuit(n, false) },
		"not": (*Generator).compileNot,

		// arithmetic
		"add":       func(g *Generator, n *ast.Node) value.Value { return g.compileArith(n, "add") },
		"subtract":  func(g *Generator, n *ast.Node) value.Value { return g.compileArith(n, "subtract") },
		"multiply":  func(g *Generator, n *ast.Node) value.Value { return g.compileArith(n, "multiply") },
		"divide":    (*Generator).compileDivide,
		"remainder": (*Generator).compileRemainder,
		"power":     (*Generator).compilePower,

		// math
		"floor":        func(g *Generator, n *ast.Node) value.Value { return g.compileRounding(n, "floor") },
		"ceil":         func(g *Generator, n *ast.Node) value.Value { return g.compileRounding(n, "ceil") },
		"round":        func(g *Generator, n *ast.Node) value.Value { return g.compileRounding(n, "round") },
		"abs":          (*Generator).compileAbs,
		"min":          func(g *Generator, n *ast.Node) value.Value { return g.compileMinMax(n, true) },
		"max":          func(g *Generator, n *ast.Node) value.Value { return g.compileMinMax(n, false) },
		"sqrt":         (*Generator).compileSqrt,
		"random":       (*Generator).compileRandom,
		"random_int":   (*Generator).compileRandomInt,
		"random_range": (*Generator).compileRandomRange,
		"random_seed":  (*Generator).compileRandomSeed,

		// comparison
		"is":           (*Generator).compileIs,
		"less_than":    func(g *Generator, n *ast.Node) value.Value { return g.compileOrdering(n, "less_than") },
		"greater_than": func(g *Generator, n *ast.Node) value.Value { return g.compileOrdering(n, "greater_than") },

		// type guards
		"is_int":      func(g *Generator, n *ast.Node) value.Value { return g.compileTypeGuard(n, "is_int") },
		"is_float":    func(g *Generator, n *ast.Node) value.Value { return g.compileTypeGuard(n, "is_float") },
		"is_string":   func(g *Generator, n *ast.Node) value.Value { return g.compileTypeGuard(n, "is_string") },
		"is_list":     func(g *Generator, n *ast.Node) value.Value { return g.compileTypeGuard(n, "is_list") },
		"is_function": func(g *Generator, n *ast.Node) value.Value { return g.compileTypeGuard(n, "is_function") },
		"type":        (*Generator).compileTypeOf,

		// I/O and terminal
		"println": func(g *Generator, n *ast.Node) value.Value { return g.compilePrint(n, true) },
		"print":   func(g *Generator, n *ast.Node) value.Value { return g.compilePrint(n, false) },
		"input":   (*Generator).compileInput,
		"rows": func(g *Generator, n *ast.Node) value.Value {
			return g.compileTerminal(n, "franz_get_terminal_rows")
		},
		"columns": func(g *Generator, n *ast.Node) value.Value {
			return g.compileTerminal(n, "franz_get_terminal_columns")
		},

		// strings and conversions
		"repeat":       (*Generator).compileRepeat,
		"join":         (*Generator).compileJoin,
		"integer":      (*Generator).compileToInteger,
		"float":        (*Generator).compileToFloat,
		"string":       (*Generator).compileToString,
		"format-int":   (*Generator).compileFormatInt,
		"format-float": (*Generator).compileFormatFloat,

		// files
		"read_file":   (*Generator).compileReadFile,
		"write_file":  func(g *Generator, n *ast.Node) value.Value { return g.compileWriteFile(n, "write_file", "writeFile") },
		"append_file": func(g *Generator, n *ast.Node) value.Value { return g.compileWriteFile(n, "append_file", "appendFile") },
		"file_exists": (*Generator).compileFileExists,

		// lists
		"head":   func(g *Generator, n *ast.Node) value.Value { return g.compileListUnary(n, "head", "franz_list_head") },
		"tail":   func(g *Generator, n *ast.Node) value.Value { return g.compileListUnary(n, "tail", "franz_list_tail") },
		"cons":   (*Generator).compileCons,
		"empty?": func(g *Generator, n *ast.Node) value.Value { return g.compileListLength(n, "empty?", "franz_list_is_empty") },
		"length": func(g *Generator, n *ast.Node) value.Value { return g.compileListLength(n, "length", "franz_list_length") },
		"nth":    func(g *Generator, n *ast.Node) value.Value { return g.compileNth(n, "nth") },
		"get":    func(g *Generator, n *ast.Node) value.Value { return g.compileNth(n, "get") },
		"range":  (*Generator).compileRange,
		"map":    func(g *Generator, n *ast.Node) value.Value { return g.compileHigherOrder(n, "map", "franz_llvm_map") },
		"map2":   (*Generator).compileMap2,
		"filter": func(g *Generator, n *ast.Node) value.Value { return g.compileHigherOrder(n, "filter", "franz_llvm_filter") },
		"reduce": (*Generator).compileReduce,

		// dicts
		"dict":     (*Generator).compileDict,
		"dict_get": func(g *Generator, n *ast.Node) value.Value { return g.compileDictBinary(n, "dict_get", "franz_dict_get") },
		"dict_set": (*Generator).compileDictSet,
		"dict_has": func(g *Generator, n *ast.Node) value.Value { return g.compileDictBinary(n, "dict_has", "franz_dict_has") },
		"dict_keys": func(g *Generator, n *ast.Node) value.Value {
			return g.compileListUnary(n, "dict_keys", "franz_dict_keys")
		},
		"dict_values": func(g *Generator, n *ast.Node) value.Value {
			return g.compileListUnary(n, "dict_values", "franz_dict_values")
		},
		"dict_map": func(g *Generator, n *ast.Node) value.Value {
			return g.compileHigherOrder(n, "dict_map", "franz_dict_map")
		},
		"dict_filter": func(g *Generator, n *ast.Node) value.Value {
			return g.compileHigherOrder(n, "dict_filter", "franz_dict_filter")
		},
		"dict_merge": func(g *Generator, n *ast.Node) value.Value {
			return g.compileDictBinary(n, "dict_merge", "franz_dict_merge")
		},

		// algebraic data types
		"variant":        (*Generator).compileVariant,
		"match":          (*Generator).compileMatch,
		"variant_tag":    func(g *Generator, n *ast.Node) value.Value { return g.compileVariantField(n, "variant_tag", 0) },
		"variant_values": func(g *Generator, n *ast.Node) value.Value { return g.compileVariantField(n, "variant_values", 1) },

		// refs
		"ref":   (*Generator).compileRef,
		"deref": func(g *Generator, n *ast.Node) value.Value { return g.compileListUnary(n, "deref", "franz_llvm_deref") },
		"set!":  (*Generator).compileSetRef,
	}
}

// callAnonymous compiles and immediately calls a function literal. The
// closure's environment is materialized in the current block, so the call
// skips the record and invokes the implementation directly.
func (gen *Generator) callAnonymous(n *ast.Node, fn *ast.Node) value.Value {
	freevar.Analyze(fn)
	info, env := gen.compileClosure("", fn)
	if info == nil {
		return nil
	}
	args := n.Children[1:]
	if len(args) != info.arity {
		return gen.errorf(n.Line, "function expects %d argument(s), got %d", info.arity, len(args))
	}

	callArgs := []value.Value{env}
	tags := make([]int, len(args))
	for i, a := range args {
		payload, tag, ok := gen.erasedArg(a)
		if !ok {
			return nil
		}
		tags[i] = tag
		callArgs = append(callArgs, payload, constant32(int64(tag)))
	}
	call := gen.b.NewCall(info.fn, callArgs...)

	tag := info.retTag
	if tag == tagDynamic {
		tag = tagInt
		if info.paramIdx < len(tags) {
			tag = tags[info.paramIdx]
		}
	}
	switch tag {
	case tagInt:
		return gen.b.NewPtrToInt(call, types.I64)
	case tagFloat:
		return gen.b.NewBitCast(gen.b.NewPtrToInt(call, types.I64), types.Double)
	case tagVoid:
		return zero()
	case tagClosure:
		return call
	default:
		return gen.b.NewCall(gen.rt("franz_box_pointer_smart"), call)
	}
}
