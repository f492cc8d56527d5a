package codegen

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/franz-lang/franzc/internal/ast"
)

// branch is one arm that reached the merge block: its value and the block
// it arrived from.
type branch struct {
	val value.Value
	end *ir.Block
}

// joinBranches is the single merge discipline for all branching constructs.
// Arms that never reach the merge are excluded by the caller. Zero arms
// yield a placeholder, one arm passes through, two or more become a phi
// after representation normalization: constant-zero placeholders are
// coerced to the dominant type, ints are promoted to float when any arm is
// float, and pointer/int mixes (or differing int widths) collapse to i64.
// The conversions are appended to the predecessor blocks, which have
// already been terminated; instructions land before the terminator.
func (gen *Generator) joinBranches(line int, arms []branch) value.Value {
	if len(arms) == 0 {
		return zero()
	}
	if len(arms) == 1 {
		return arms[0].val
	}

	classify := func() (hasInt, hasFloat, hasPtr, narrow bool) {
		for _, a := range arms {
			switch {
			case isFloat(a.val):
				hasFloat = true
			case isPtr(a.val):
				hasPtr = true
			case isInt(a.val):
				hasInt = true
			default:
				if it, ok := a.val.Type().(*types.IntType); ok && it.BitSize < 64 {
					narrow = true
				}
			}
		}
		return
	}

	isZeroConst := func(v value.Value) bool {
		c, ok := v.(*constant.Int)
		return ok && c.X.Sign() == 0
	}

	hasInt, hasFloat, hasPtr, narrow := classify()

	// Constant-zero placeholders adopt the other arm's representation
	// without any emitted conversion.
	if hasFloat && hasInt && !hasPtr {
		allZero := true
		for _, a := range arms {
			if isInt(a.val) && !isZeroConst(a.val) {
				allZero = false
			}
		}
		if allZero {
			for i := range arms {
				if isInt(arms[i].val) {
					arms[i].val = constant.NewFloat(types.Double, 0)
				}
			}
			hasInt = false
		}
	}
	if hasPtr && hasInt {
		ptrOnlyZeros := true
		var ptrTyp types.Type
		for _, a := range arms {
			if isPtr(a.val) {
				ptrTyp = a.val.Type()
			} else if isInt(a.val) && !isZeroConst(a.val) {
				ptrOnlyZeros = false
			}
		}
		if ptrOnlyZeros {
			for i := range arms {
				if isInt(arms[i].val) {
					arms[i].val = constant.NewNull(ptrTyp.(*types.PointerType))
				}
			}
			hasInt = false
		}
	}

	inPred := func(b *ir.Block, emit func()) {
		saved := gen.b
		gen.b = b
		emit()
		gen.b = saved
	}

	switch {
	case hasPtr && hasFloat:
		return gen.errorf(line, "branches produce incompatible representations")
	case hasPtr && hasInt, narrow:
		for i := range arms {
			a := &arms[i]
			if isPtr(a.val) {
				inPred(a.end, func() { a.val = gen.b.NewPtrToInt(a.val, types.I64) })
			} else if it, ok := a.val.Type().(*types.IntType); ok && it.BitSize < 64 {
				inPred(a.end, func() { a.val = gen.b.NewSExt(a.val, types.I64) })
			}
		}
	case hasFloat && hasInt:
		for i := range arms {
			a := &arms[i]
			if isInt(a.val) {
				inPred(a.end, func() { a.val = gen.b.NewSIToFP(a.val, types.Double) })
			}
		}
	}

	incs := make([]*ir.Incoming, len(arms))
	for i, a := range arms {
		incs[i] = ir.NewIncoming(a.val, a.end)
	}
	return gen.b.NewPhi(incs...)
}

// truthy converts a compiled condition into an i1: boxed values are
// unboxed, floats are compared against 0.0, everything else against 0.
func (gen *Generator) truthy(v value.Value, n *ast.Node) value.Value {
	v = gen.unboxForArithmetic(v, n)
	if isFloat(v) {
		return gen.b.NewFCmp(enum.FPredONE, v, constant.NewFloat(types.Double, 0))
	}
	if isPtr(v) {
		v = gen.b.NewPtrToInt(v, types.I64)
	}
	return gen.b.NewICmp(enum.IPredNE, v, zero())
}

// compileIf lowers (if cond then [else]). The else arm is optional and
// defaults to zero. Arms whose compilation terminated their block (loop
// early exits) do not participate in the merge.
func (gen *Generator) compileIf(n *ast.Node, invert bool) value.Value {
	if len(n.Children) < 3 || len(n.Children) > 4 {
		return gen.errorf(n.Line, "%s expects 2 or 3 arguments (condition then [else])", n.Children[0].Val)
	}
	condNode := n.Children[1]
	thenNode := n.Children[2]
	var elseNode *ast.Node
	if len(n.Children) == 4 {
		elseNode = n.Children[3]
	}

	cond := gen.compileNode(condNode)
	if cond == nil {
		return nil
	}
	cmp := gen.truthy(cond, condNode)

	thenBlock := gen.newBlock("then")
	elseBlock := gen.newBlock("else")
	mergeBlock := gen.newBlock("merge")
	if invert {
		gen.b.NewCondBr(cmp, elseBlock, thenBlock)
	} else {
		gen.b.NewCondBr(cmp, thenBlock, elseBlock)
	}

	var arms []branch

	gen.b = thenBlock
	thenVal := gen.compileBlock(thenNode)
	if thenVal == nil && gen.b.Term == nil {
		return nil
	}
	if gen.b.Term == nil {
		gen.b.NewBr(mergeBlock)
		arms = append(arms, branch{val: thenVal, end: gen.b})
	}

	gen.b = elseBlock
	var elseVal value.Value = zero()
	if elseNode != nil {
		elseVal = gen.compileBlock(elseNode)
		if elseVal == nil && gen.b.Term == nil {
			return nil
		}
	}
	if gen.b.Term == nil {
		gen.b.NewBr(mergeBlock)
		arms = append(arms, branch{val: elseVal, end: gen.b})
	}

	gen.b = mergeBlock
	return gen.joinBranches(n.Line, arms)
}

// compileCond lowers (cond (test1 r1) (test2 r2) ... (else default)). Tests
// run in order; the first true one selects its result. An else clause must
// be last; without one a failed chain yields zero.
func (gen *Generator) compileCond(n *ast.Node) value.Value {
	clauses := n.Children[1:]
	if len(clauses) == 0 {
		return gen.errorf(n.Line, "cond expects at least one clause")
	}

	mergeBlock := gen.newBlock("cond_merge")
	var arms []branch
	hasElse := false

	for i, clause := range clauses {
		if clause.Op != ast.Application || len(clause.Children) != 2 {
			return gen.errorf(clause.Line, "cond clause must be (test result)")
		}

		if isElseClause(clause) {
			hasElse = true
			if i != len(clauses)-1 {
				return gen.errorf(clause.Line, "else clause must be the last cond clause")
			}
			v := gen.compileNode(clause.Children[1])
			if v == nil {
				return nil
			}
			if gen.b.Term == nil {
				gen.b.NewBr(mergeBlock)
				arms = append(arms, branch{val: v, end: gen.b})
			}
			break
		}

		test := gen.compileNode(clause.Children[0])
		if test == nil {
			return nil
		}
		cmp := gen.truthy(test, clause.Children[0])

		resultBlock := gen.newBlock("cond_result")
		var nextBlock *ir.Block
		if i == len(clauses)-1 {
			nextBlock = gen.newBlock("cond_fallthrough")
		} else {
			nextBlock = gen.newBlock("cond_test")
		}
		gen.b.NewCondBr(cmp, resultBlock, nextBlock)

		gen.b = resultBlock
		v := gen.compileNode(clause.Children[1])
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
		arms = append(arms, branch{val: zero(), end: gen.b})
	}

	gen.b = mergeBlock
	return gen.joinBranches(n.Line, arms)
}

func isElseClause(clause *ast.Node) bool {
	return clause.Op == ast.Application && len(clause.Children) == 2 &&
		clause.Children[0].Op == ast.Identifier && clause.Children[0].Val == "else"
}
