package codegen

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/franz-lang/franzc/internal/ast"
)

// compileShortCircuit lowers n-ary (and ...) / (or ...). Operands evaluate
// left to right; a decided result skips the rest. Every operand before the
// last contributes its fixed short-circuit constant (0 for and, 1 for or)
// to the merge; the last contributes its own boolean normalization.
func (gen *Generator) compileShortCircuit(n *ast.Node, isAnd bool) value.Value {
	name := n.Children[0].Val
	args := n.Children[1:]
	if len(args) < 2 {
		return gen.errorf(n.Line, "%s expects at least 2 arguments", name)
	}

	finalBlock := gen.newBlock(name + "_final")
	shortVal := constant.NewInt(types.I64, 1)
	if isAnd {
		shortVal = constant.NewInt(types.I64, 0)
	}

	var incs []*ir.Incoming
	for i, arg := range args {
		v := gen.compileNode(arg)
		if v == nil {
			return nil
		}
		v = gen.unboxForArithmetic(v, arg)
		if !isInt(v) {
			return gen.errorf(arg.Line, "%s requires integer operands", name)
		}
		nonZero := gen.b.NewICmp(enum.IPredNE, v, zero())
		boolVal := gen.b.NewZExt(nonZero, types.I64)

		if i == len(args)-1 {
			incs = append(incs, ir.NewIncoming(boolVal, gen.b))
			gen.b.NewBr(finalBlock)
			break
		}

		next := gen.newBlock(name + "_next")
		if isAnd {
			gen.b.NewCondBr(nonZero, next, finalBlock)
		} else {
			gen.b.NewCondBr(nonZero, finalBlock, next)
		}
		incs = append(incs, ir.NewIncoming(shortVal, gen.b))
		gen.b = next
	}

	gen.b = finalBlock
	return finalBlock.NewPhi(incs...)
}

// compileNot lowers (not x): 1 when x is zero, 0 otherwise.
func (gen *Generator) compileNot(n *ast.Node) value.Value {
	if len(n.Children) != 2 {
		return gen.errorf(n.Line, "not expects exactly 1 argument")
	}
	v := gen.compileNode(n.Children[1])
	if v == nil {
		return nil
	}
	v = gen.unboxForArithmetic(v, n.Children[1])
	isZero := gen.b.NewICmp(enum.IPredEQ, gen.toInt(v), zero())
	return gen.b.NewZExt(isZero, types.I64)
}
