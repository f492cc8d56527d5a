package codegen

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/franz-lang/franzc/internal/ast"
)

// genericOperand compiles an expression that must reach the runtime as a
// Generic*. Boxed values travelling as i64 bits are reinterpreted; native
// scalars are boxed.
func (gen *Generator) genericOperand(n *ast.Node) value.Value {
	v := gen.compileNode(n)
	if v == nil {
		return nil
	}
	if gen.isBoxedNode(n) {
		if isInt(v) {
			return gen.b.NewIntToPtr(v, types.I8Ptr)
		}
		return gen.asI8Ptr(v)
	}
	return gen.box(v, n)
}

// callbackOperand materializes a function argument for the higher-order
// runtime entry points. Already-boxed closures pass through; raw closure
// records are boxed.
func (gen *Generator) callbackOperand(n *ast.Node) value.Value {
	if gen.isBoxedNode(n) {
		v := gen.compileNode(n)
		if v == nil {
			return nil
		}
		if isInt(v) {
			return gen.b.NewIntToPtr(v, types.I8Ptr)
		}
		return gen.asI8Ptr(v)
	}
	raw := gen.closureArg(n)
	if raw == nil {
		return nil
	}
	return gen.b.NewCall(gen.rt("franz_box_closure"), raw)
}

// buildList materializes a runtime list from already-boxed elements: a
// heap array of Generic* handed to franz_list_new.
func (gen *Generator) buildList(elems []value.Value) value.Value {
	if len(elems) == 0 {
		null := constant.NewNull(types.NewPointer(types.I8Ptr))
		return gen.b.NewCall(gen.rt("franz_list_new"), null, zero())
	}
	raw := gen.b.NewCall(gen.rt("malloc"), constant64(int64(8*len(elems))))
	arr := gen.b.NewBitCast(raw, types.NewPointer(types.I8Ptr))
	for i, e := range elems {
		slot := gen.b.NewGetElementPtr(types.I8Ptr, arr, constant64(int64(i)))
		gen.b.NewStore(e, slot)
	}
	return gen.b.NewCall(gen.rt("franz_list_new"), arr, constant64(int64(len(elems))))
}

// compileList lowers a list literal. Every element is boxed; the result is
// the runtime's Generic* list.
func (gen *Generator) compileList(n *ast.Node) value.Value {
	elems := make([]value.Value, len(n.Children))
	for i, c := range n.Children {
		v := gen.compileNode(c)
		if v == nil {
			return nil
		}
		elems[i] = gen.box(v, c)
	}
	return gen.buildList(elems)
}

// compileListUnary lowers head / tail / dict_keys / dict_values / deref:
// one Generic* in, one Generic* out.
func (gen *Generator) compileListUnary(n *ast.Node, name, runtimeName string) value.Value {
	if len(n.Children) != 2 {
		return gen.errorf(n.Line, "%s expects exactly 1 argument", name)
	}
	arg := gen.genericOperand(n.Children[1])
	if arg == nil {
		return nil
	}
	return gen.b.NewCall(gen.rt(runtimeName), arg)
}

// compileListLength lowers length and empty?: Generic* in, native i64 out.
func (gen *Generator) compileListLength(n *ast.Node, name, runtimeName string) value.Value {
	if len(n.Children) != 2 {
		return gen.errorf(n.Line, "%s expects exactly 1 argument", name)
	}
	arg := gen.genericOperand(n.Children[1])
	if arg == nil {
		return nil
	}
	return gen.b.NewCall(gen.rt(runtimeName), arg)
}

// compileNth lowers (nth list index) and its get alias.
func (gen *Generator) compileNth(n *ast.Node, name string) value.Value {
	if len(n.Children) != 3 {
		return gen.errorf(n.Line, "%s expects exactly 2 arguments", name)
	}
	list := gen.genericOperand(n.Children[1])
	if list == nil {
		return nil
	}
	idx := gen.compileNode(n.Children[2])
	if idx == nil {
		return nil
	}
	idx = gen.toInt(gen.unboxForArithmetic(idx, n.Children[2]))
	return gen.b.NewCall(gen.rt("franz_list_nth"), list, idx)
}

// compileCons lowers (cons elem list).
func (gen *Generator) compileCons(n *ast.Node) value.Value {
	if len(n.Children) != 3 {
		return gen.errorf(n.Line, "cons expects exactly 2 arguments")
	}
	elemVal := gen.compileNode(n.Children[1])
	if elemVal == nil {
		return nil
	}
	elem := gen.box(elemVal, n.Children[1])
	list := gen.genericOperand(n.Children[2])
	if list == nil {
		return nil
	}
	return gen.b.NewCall(gen.rt("franz_list_cons"), elem, list)
}

// compileRange lowers (range n): a heap array filled by a counting loop,
// handed to franz_list_new. Produces the ints 0 through n-1.
func (gen *Generator) compileRange(n *ast.Node) value.Value {
	if len(n.Children) != 2 {
		return gen.errorf(n.Line, "range expects exactly 1 argument")
	}
	count := gen.compileNode(n.Children[1])
	if count == nil {
		return nil
	}
	count = gen.toInt(gen.unboxForArithmetic(count, n.Children[1]))

	size := gen.b.NewMul(count, constant64(8))
	raw := gen.b.NewCall(gen.rt("malloc"), size)
	arr := gen.b.NewBitCast(raw, types.NewPointer(types.I8Ptr))

	idx := gen.b.NewAlloca(types.I64)
	gen.b.NewStore(zero(), idx)

	condBlock := gen.newBlock("range_cond")
	bodyBlock := gen.newBlock("range_body")
	exitBlock := gen.newBlock("range_exit")
	gen.b.NewBr(condBlock)

	gen.b = condBlock
	i := gen.b.NewLoad(types.I64, idx)
	cmp := gen.b.NewICmp(enum.IPredSLT, i, count)
	gen.b.NewCondBr(cmp, bodyBlock, exitBlock)

	gen.b = bodyBlock
	boxed := gen.b.NewCall(gen.rt("franz_box_int"), i)
	slot := gen.b.NewGetElementPtr(types.I8Ptr, arr, i)
	gen.b.NewStore(boxed, slot)
	gen.b.NewStore(gen.b.NewAdd(i, constant64(1)), idx)
	gen.b.NewBr(condBlock)

	gen.b = exitBlock
	return gen.b.NewCall(gen.rt("franz_list_new"), arr, count)
}

// compileHigherOrder lowers map / filter / dict_map / dict_filter:
// (name collection callback).
func (gen *Generator) compileHigherOrder(n *ast.Node, name, runtimeName string) value.Value {
	if len(n.Children) != 3 {
		return gen.errorf(n.Line, "%s expects exactly 2 arguments (collection callback)", name)
	}
	coll := gen.genericOperand(n.Children[1])
	if coll == nil {
		return nil
	}
	cb := gen.callbackOperand(n.Children[2])
	if cb == nil {
		return nil
	}
	return gen.b.NewCall(gen.rt(runtimeName), coll, cb)
}

// compileMap2 lowers (map2 list1 list2 callback).
func (gen *Generator) compileMap2(n *ast.Node) value.Value {
	if len(n.Children) != 4 {
		return gen.errorf(n.Line, "map2 expects exactly 3 arguments (list1 list2 callback)")
	}
	l1 := gen.genericOperand(n.Children[1])
	if l1 == nil {
		return nil
	}
	l2 := gen.genericOperand(n.Children[2])
	if l2 == nil {
		return nil
	}
	cb := gen.callbackOperand(n.Children[3])
	if cb == nil {
		return nil
	}
	return gen.b.NewCall(gen.rt("franz_llvm_map2"), l1, l2, cb)
}

// compileReduce lowers (reduce list callback initial).
func (gen *Generator) compileReduce(n *ast.Node) value.Value {
	if len(n.Children) != 4 {
		return gen.errorf(n.Line, "reduce expects exactly 3 arguments (list callback initial)")
	}
	list := gen.genericOperand(n.Children[1])
	if list == nil {
		return nil
	}
	cb := gen.callbackOperand(n.Children[2])
	if cb == nil {
		return nil
	}
	initVal := gen.compileNode(n.Children[3])
	if initVal == nil {
		return nil
	}
	initial := gen.box(initVal, n.Children[3])
	return gen.b.NewCall(gen.rt("franz_llvm_reduce"), list, cb, initial)
}

// compileDict lowers a (dict k1 v1 k2 v2 ...) literal by threading
// franz_dict_set over an empty dict.
func (gen *Generator) compileDict(n *ast.Node) value.Value {
	args := n.Children[1:]
	if len(args)%2 != 0 {
		return gen.errorf(n.Line, "dict expects an even number of arguments (key value pairs)")
	}
	d := value.Value(gen.b.NewCall(gen.rt("franz_dict_new")))
	for i := 0; i < len(args); i += 2 {
		kv := gen.compileNode(args[i])
		if kv == nil {
			return nil
		}
		vv := gen.compileNode(args[i+1])
		if vv == nil {
			return nil
		}
		d = gen.b.NewCall(gen.rt("franz_dict_set"), d, gen.box(kv, args[i]), gen.box(vv, args[i+1]))
	}
	return d
}

// compileDictBinary lowers dict_get / dict_has / dict_merge.
func (gen *Generator) compileDictBinary(n *ast.Node, name, runtimeName string) value.Value {
	if len(n.Children) != 3 {
		return gen.errorf(n.Line, "%s expects exactly 2 arguments", name)
	}
	d := gen.genericOperand(n.Children[1])
	if d == nil {
		return nil
	}
	k := gen.genericOperand(n.Children[2])
	if k == nil {
		return nil
	}
	return gen.b.NewCall(gen.rt(runtimeName), d, k)
}

// compileDictSet lowers (dict_set dict key value); the runtime returns the
// updated dict.
func (gen *Generator) compileDictSet(n *ast.Node) value.Value {
	if len(n.Children) != 4 {
		return gen.errorf(n.Line, "dict_set expects exactly 3 arguments (dict key value)")
	}
	d := gen.genericOperand(n.Children[1])
	if d == nil {
		return nil
	}
	k := gen.genericOperand(n.Children[2])
	if k == nil {
		return nil
	}
	v := gen.genericOperand(n.Children[3])
	if v == nil {
		return nil
	}
	return gen.b.NewCall(gen.rt("franz_dict_set"), d, k, v)
}

// compileVariant lowers (variant "Tag" values...). A variant is a two
// element list: the boxed tag string and the boxed list of payload values.
func (gen *Generator) compileVariant(n *ast.Node) value.Value {
	if len(n.Children) < 2 {
		return gen.errorf(n.Line, "variant expects a tag and optional values")
	}
	tagNode := n.Children[1]
	tagVal := gen.compileNode(tagNode)
	if tagVal == nil {
		return nil
	}
	if !isPtr(tagVal) {
		return gen.errorf(tagNode.Line, "variant tag must be a string")
	}
	tagBoxed := gen.b.NewCall(gen.rt("franz_box_string"), gen.asI8Ptr(tagVal))

	vals := make([]value.Value, len(n.Children)-2)
	for i, c := range n.Children[2:] {
		v := gen.compileNode(c)
		if v == nil {
			return nil
		}
		vals[i] = gen.box(v, c)
	}
	payload := gen.buildList(vals)
	return gen.buildList([]value.Value{tagBoxed, payload})
}

// compileVariantField lowers variant_tag (field 0) and variant_values
// (field 1).
func (gen *Generator) compileVariantField(n *ast.Node, name string, field int64) value.Value {
	if len(n.Children) != 2 {
		return gen.errorf(n.Line, "%s expects exactly 1 argument", name)
	}
	v := gen.genericOperand(n.Children[1])
	if v == nil {
		return nil
	}
	return gen.b.NewCall(gen.rt("franz_list_nth"), v, constant64(field))
}

// compileMatch lowers (match value (Tag handler)... [(else handler)]).
// Dispatch is a strcmp chain over the variant's tag string. A handler with
// one parameter receives the variant's payload list; handler results are
// boxed so the merge carries one representation.
func (gen *Generator) compileMatch(n *ast.Node) value.Value {
	if len(n.Children) < 3 {
		return gen.errorf(n.Line, "match expects a value and at least one clause")
	}
	subject := gen.genericOperand(n.Children[1])
	if subject == nil {
		return nil
	}
	tagBoxed := gen.b.NewCall(gen.rt("franz_list_nth"), subject, constant64(0))
	tagStr := gen.b.NewCall(gen.rt("franz_unbox_string"), tagBoxed)

	mergeBlock := gen.newBlock("match_merge")
	var arms []branch
	hasElse := false

	clauses := n.Children[2:]
	for i, clause := range clauses {
		if clause.Op != ast.Application || len(clause.Children) != 2 {
			return gen.errorf(clause.Line, "match clause must be (tag handler)")
		}
		pat := clause.Children[0]
		handler := clause.Children[1]

		if pat.Op == ast.Identifier && (pat.Val == "else" || pat.Val == "_") {
			hasElse = true
			if i != len(clauses)-1 {
				return gen.errorf(clause.Line, "default clause must be the last match clause")
			}
			v := gen.compileMatchHandler(handler, subject)
			if v == nil {
				return nil
			}
			if gen.b.Term == nil {
				gen.b.NewBr(mergeBlock)
				arms = append(arms, branch{val: v, end: gen.b})
			}
			break
		}

		var patName string
		switch pat.Op {
		case ast.String:
			patName = pat.Val
		case ast.Identifier:
			patName = pat.Val
		default:
			return gen.errorf(pat.Line, "match pattern must be a tag name")
		}

		cmp := gen.b.NewCall(gen.rt("strcmp"), tagStr, gen.stringConst(patName))
		eq := gen.b.NewICmp(enum.IPredEQ, cmp, constant32(0))

		handlerBlock := gen.newBlock("match_arm")
		var nextBlock *ir.Block
		if i == len(clauses)-1 {
			nextBlock = gen.newBlock("match_fallthrough")
		} else {
			nextBlock = gen.newBlock("match_test")
		}
		gen.b.NewCondBr(eq, handlerBlock, nextBlock)

		gen.b = handlerBlock
		v := gen.compileMatchHandler(handler, subject)
		if v == nil {
			return nil
		}
		if gen.b.Term == nil {
			gen.b.NewBr(mergeBlock)
			arms = append(arms, branch{val: v, end: gen.b})
		}

		gen.b = nextBlock
	}

	if !hasElse {
		gen.b.NewBr(mergeBlock)
		arms = append(arms, branch{
			val: constant.NewNull(types.I8Ptr),
			end: gen.b,
		})
	}

	gen.b = mergeBlock
	return gen.joinBranches(n.Line, arms)
}

// compileMatchHandler runs one match arm. A single-parameter handler binds
// the variant's payload list; the arm result is boxed.
func (gen *Generator) compileMatchHandler(handler *ast.Node, subject value.Value) value.Value {
	if handler.Op == ast.Function && len(handler.Params()) == 1 {
		scope := gen.snapshot()
		name := handler.Params()[0].Val
		payload := gen.b.NewCall(gen.rt("franz_list_nth"), subject, constant64(1))
		gen.vars[name] = payload
		gen.boxed[name] = true
		gen.typeMeta[name] = ast.List

		var last value.Value = zero()
		for _, stmt := range handler.Body() {
			last = gen.compileNode(stmt)
			if last == nil {
				gen.restore(scope)
				return nil
			}
			if gen.b.Term != nil {
				break
			}
		}
		gen.restore(scope)
		return gen.boxArmValue(last)
	}

	v := gen.compileBlock(handler)
	if v == nil {
		return nil
	}
	return gen.boxArmValue(v)
}

// boxArmValue normalizes a match arm result to a Generic*.
func (gen *Generator) boxArmValue(v value.Value) value.Value {
	switch {
	case isInt(v):
		return gen.b.NewCall(gen.rt("franz_box_int"), v)
	case isFloat(v):
		return gen.b.NewCall(gen.rt("franz_box_float"), v)
	default:
		return gen.asI8Ptr(v)
	}
}

// compileRef lowers (ref value).
func (gen *Generator) compileRef(n *ast.Node) value.Value {
	if len(n.Children) != 2 {
		return gen.errorf(n.Line, "ref expects exactly 1 argument")
	}
	v := gen.compileNode(n.Children[1])
	if v == nil {
		return nil
	}
	return gen.b.NewCall(gen.rt("franz_llvm_create_ref"), gen.box(v, n.Children[1]))
}

// compileSetRef lowers (set! ref value); a void result.
func (gen *Generator) compileSetRef(n *ast.Node) value.Value {
	if len(n.Children) != 3 {
		return gen.errorf(n.Line, "set! expects exactly 2 arguments (ref value)")
	}
	r := gen.genericOperand(n.Children[1])
	if r == nil {
		return nil
	}
	v := gen.compileNode(n.Children[2])
	if v == nil {
		return nil
	}
	gen.b.NewCall(gen.rt("franz_llvm_set_ref"), r, gen.box(v, n.Children[2]))
	return zero()
}
