package codegen

import (
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/franz-lang/franzc/internal/ast"
)

// compileIs lowers (is a b), the structural equality test. String operands
// compare through strcmp, boxed operands go through the runtime's deep
// comparison, native numerics compare directly with float promotion.
func (gen *Generator) compileIs(n *ast.Node) value.Value {
	if len(n.Children) != 3 {
		return gen.errorf(n.Line, "is expects exactly 2 arguments")
	}
	leftNode, rightNode := n.Children[1], n.Children[2]

	if gen.isStringNode(leftNode) && gen.isStringNode(rightNode) {
		left := gen.compileNode(leftNode)
		right := gen.compileNode(rightNode)
		if left == nil || right == nil {
			return nil
		}
		cmp := gen.b.NewCall(gen.rt("strcmp"), gen.asI8Ptr(left), gen.asI8Ptr(right))
		eq := gen.b.NewICmp(enum.IPredEQ, cmp, constant32(0))
		return gen.b.NewZExt(eq, types.I64)
	}

	if gen.isBoxedNode(leftNode) || gen.isBoxedNode(rightNode) {
		left := gen.compileNode(leftNode)
		right := gen.compileNode(rightNode)
		if left == nil || right == nil {
			return nil
		}
		lb := gen.box(left, leftNode)
		rb := gen.box(right, rightNode)
		return gen.b.NewCall(gen.rt("franz_generic_is"), gen.asI8Ptr(lb), gen.asI8Ptr(rb))
	}

	left, right, ok := gen.binaryOperands(n, "is")
	if !ok {
		return nil
	}
	if isInt(left) && isInt(right) {
		eq := gen.b.NewICmp(enum.IPredEQ, left, right)
		return gen.b.NewZExt(eq, types.I64)
	}
	if isNumeric(left) && isNumeric(right) {
		eq := gen.b.NewFCmp(enum.FPredOEQ, gen.toFloat(left), gen.toFloat(right))
		return gen.b.NewZExt(eq, types.I64)
	}
	if isPtr(left) && isPtr(right) {
		cmp := gen.b.NewCall(gen.rt("strcmp"), gen.asI8Ptr(left), gen.asI8Ptr(right))
		eq := gen.b.NewICmp(enum.IPredEQ, cmp, constant32(0))
		return gen.b.NewZExt(eq, types.I64)
	}
	return gen.errorf(n.Line, "is cannot compare these operands")
}

// compileOrdering lowers less_than / greater_than. Strings order through
// strcmp; numerics compare natively with float promotion.
func (gen *Generator) compileOrdering(n *ast.Node, name string) value.Value {
	if len(n.Children) != 3 {
		return gen.errorf(n.Line, "%s expects exactly 2 arguments", name)
	}
	leftNode, rightNode := n.Children[1], n.Children[2]

	if gen.isStringNode(leftNode) && gen.isStringNode(rightNode) {
		left := gen.compileNode(leftNode)
		right := gen.compileNode(rightNode)
		if left == nil || right == nil {
			return nil
		}
		cmp := gen.b.NewCall(gen.rt("strcmp"), gen.asI8Ptr(left), gen.asI8Ptr(right))
		pred := enum.IPredSLT
		if name == "greater_than" {
			pred = enum.IPredSGT
		}
		res := gen.b.NewICmp(pred, cmp, constant32(0))
		return gen.b.NewZExt(res, types.I64)
	}

	left, right, ok := gen.binaryOperands(n, name)
	if !ok {
		return nil
	}
	if isInt(left) && isInt(right) {
		pred := enum.IPredSLT
		if name == "greater_than" {
			pred = enum.IPredSGT
		}
		res := gen.b.NewICmp(pred, left, right)
		return gen.b.NewZExt(res, types.I64)
	}
	if isNumeric(left) && isNumeric(right) {
		pred := enum.FPredOLT
		if name == "greater_than" {
			pred = enum.FPredOGT
		}
		res := gen.b.NewFCmp(pred, gen.toFloat(left), gen.toFloat(right))
		return gen.b.NewZExt(res, types.I64)
	}
	return gen.errorf(n.Line, "%s requires numeric or string operands", name)
}
