package codegen

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/franz-lang/franzc/internal/ast"
)

// loopCtx is the saved loop context: break targets the exit block, continue
// targets the increment block, and early `<-` stores into the return slot.
type loopCtx struct {
	exit     *ir.Block
	incr     *ir.Block
	ret      *ir.InstAlloca
	retFloat bool
}

func (gen *Generator) saveLoop() loopCtx {
	saved := loopCtx{exit: gen.loopExit, incr: gen.loopIncr, ret: gen.loopReturn, retFloat: gen.loopRetFloat}
	gen.loopExit, gen.loopIncr, gen.loopReturn, gen.loopRetFloat = nil, nil, nil, false
	return saved
}

func (gen *Generator) restoreLoop(saved loopCtx) {
	gen.loopExit, gen.loopIncr, gen.loopReturn, gen.loopRetFloat = saved.exit, saved.incr, saved.ret, saved.retFloat
}

// loopResult materializes the loop's result from the i8* return slot,
// restoring the float representation when one was parked.
func (gen *Generator) loopResult(retSlot *ir.InstAlloca) value.Value {
	res := gen.b.NewLoad(types.I8Ptr, retSlot)
	bits := gen.b.NewPtrToInt(res, types.I64)
	if gen.loopRetFloat {
		return gen.b.NewBitCast(bits, types.Double)
	}
	return bits
}

// compileLoop lowers (loop count {i -> body}): a counted loop with the
// index bound to the body's parameter. An early `<-` inside the body stores
// its value into the return slot and jumps to the exit; the loop result is
// that value, or zero when the loop ran to completion.
func (gen *Generator) compileLoop(n *ast.Node) value.Value {
	if len(n.Children) != 3 {
		return gen.errorf(n.Line, "loop expects 2 arguments (count body)")
	}
	countNode, bodyNode := n.Children[1], n.Children[2]

	count := gen.compileNode(countNode)
	if count == nil {
		return nil
	}
	count = gen.unboxForArithmetic(count, countNode)
	if !isInt(count) {
		return gen.errorf(countNode.Line, "loop count must be an integer")
	}

	condBlock := gen.newBlock("loop_cond")
	bodyBlock := gen.newBlock("loop_body")
	incrBlock := gen.newBlock("loop_incr")
	exitBlock := gen.newBlock("loop_exit")

	counter := gen.b.NewAlloca(types.I64)
	gen.b.NewStore(zero(), counter)
	retSlot := gen.b.NewAlloca(types.I8Ptr)
	gen.b.NewStore(constant.NewNull(types.I8Ptr), retSlot)
	gen.b.NewBr(condBlock)

	saved := gen.saveLoop()
	gen.loopExit, gen.loopIncr, gen.loopReturn = exitBlock, incrBlock, retSlot

	gen.b = condBlock
	i := gen.b.NewLoad(types.I64, counter)
	cmp := gen.b.NewICmp(enum.IPredSLT, i, count)
	gen.b.NewCondBr(cmp, bodyBlock, exitBlock)

	gen.b = bodyBlock
	if bodyNode.Op == ast.Function && len(bodyNode.Params()) == 1 {
		scope := gen.snapshot()
		gen.vars[bodyNode.Params()[0].Val] = i
		gen.typeMeta[bodyNode.Params()[0].Val] = ast.Int
		for _, stmt := range bodyNode.Body() {
			if gen.compileNode(stmt) == nil {
				gen.restore(scope)
				gen.restoreLoop(saved)
				return nil
			}
			if gen.b.Term != nil {
				break
			}
		}
		gen.restore(scope)
	} else {
		if gen.compileNode(bodyNode) == nil {
			gen.restoreLoop(saved)
			return nil
		}
	}
	if gen.b.Term == nil {
		gen.b.NewBr(incrBlock)
	}

	gen.b = incrBlock
	cur := gen.b.NewLoad(types.I64, counter)
	next := gen.b.NewAdd(cur, constant.NewInt(types.I64, 1))
	gen.b.NewStore(next, counter)
	gen.b.NewBr(condBlock)

	gen.b = exitBlock
	res := gen.loopResult(retSlot)
	gen.restoreLoop(saved)
	return res
}

// compileWhile lowers (while cond body). The condition is re-evaluated each
// iteration; break/continue branch through the loop context; break's value
// lands in the return slot.
func (gen *Generator) compileWhile(n *ast.Node) value.Value {
	if len(n.Children) != 3 {
		return gen.errorf(n.Line, "while expects 2 arguments (condition body)")
	}
	condNode, bodyNode := n.Children[1], n.Children[2]

	condBlock := gen.newBlock("while_cond")
	bodyBlock := gen.newBlock("while_body")
	incrBlock := gen.newBlock("while_incr")
	exitBlock := gen.newBlock("while_exit")

	retSlot := gen.b.NewAlloca(types.I8Ptr)
	gen.b.NewStore(constant.NewNull(types.I8Ptr), retSlot)
	gen.b.NewBr(condBlock)

	saved := gen.saveLoop()
	gen.loopExit, gen.loopIncr, gen.loopReturn = exitBlock, incrBlock, retSlot

	gen.b = condBlock
	cond := gen.compileNode(condNode)
	if cond == nil {
		gen.restoreLoop(saved)
		return nil
	}
	cond = gen.unboxForArithmetic(cond, condNode)
	cmp := gen.b.NewICmp(enum.IPredNE, gen.toInt(cond), zero())
	gen.b.NewCondBr(cmp, bodyBlock, exitBlock)

	gen.b = bodyBlock
	if gen.compileBlock(bodyNode) == nil {
		gen.restoreLoop(saved)
		return nil
	}
	if gen.b.Term == nil {
		gen.b.NewBr(incrBlock)
	}

	gen.b = incrBlock
	gen.b.NewBr(condBlock)

	gen.b = exitBlock
	res := gen.loopResult(retSlot)
	gen.restoreLoop(saved)
	return res
}

// compileBreak lowers (break [value]).
func (gen *Generator) compileBreak(n *ast.Node) value.Value {
	if gen.loopExit == nil {
		return gen.errorf(n.Line, "break outside of a loop")
	}
	var v value.Value = zero()
	if len(n.Children) > 1 {
		v = gen.compileNode(n.Children[1])
		if v == nil {
			return nil
		}
	}
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
	return zero()
}

// compileContinue lowers (continue).
func (gen *Generator) compileContinue(n *ast.Node) value.Value {
	if gen.loopIncr == nil {
		return gen.errorf(n.Line, "continue outside of a loop")
	}
	gen.b.NewBr(gen.loopIncr)
	return zero()
}
