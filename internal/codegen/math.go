package codegen

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/franz-lang/franzc/internal/ast"
)

// binaryOperands compiles and unboxes the two operands of an arithmetic or
// comparison form.
func (gen *Generator) binaryOperands(n *ast.Node, name string) (value.Value, value.Value, bool) {
	if len(n.Children) != 3 {
		gen.errorf(n.Line, "%s expects exactly 2 arguments", name)
		return nil, nil, false
	}
	left := gen.compileNode(n.Children[1])
	right := gen.compileNode(n.Children[2])
	if left == nil || right == nil {
		return nil, nil, false
	}
	left = gen.unboxForArithmetic(left, n.Children[1])
	right = gen.unboxForArithmetic(right, n.Children[2])
	return left, right, true
}

// compileArith lowers add/subtract/multiply. Two native ints use the
// integer instruction; any float operand promotes both to double.
func (gen *Generator) compileArith(n *ast.Node, name string) value.Value {
	left, right, ok := gen.binaryOperands(n, name)
	if !ok {
		return nil
	}

	if isInt(left) && isInt(right) {
		switch name {
		case "add":
			return gen.b.NewAdd(left, right)
		case "subtract":
			return gen.b.NewSub(left, right)
		case "multiply":
			return gen.b.NewMul(left, right)
		}
	}
	if (isInt(left) || isFloat(left)) && (isInt(right) || isFloat(right)) {
		left, right = gen.toFloat(left), gen.toFloat(right)
		switch name {
		case "add":
			return gen.b.NewFAdd(left, right)
		case "subtract":
			return gen.b.NewFSub(left, right)
		case "multiply":
			return gen.b.NewFMul(left, right)
		}
	}
	return gen.errorf(n.Line, "%s requires numeric operands", name)
}

// compileDivide always produces a double.
func (gen *Generator) compileDivide(n *ast.Node) value.Value {
	left, right, ok := gen.binaryOperands(n, "divide")
	if !ok {
		return nil
	}
	if !isNumeric(left) || !isNumeric(right) {
		return gen.errorf(n.Line, "divide requires numeric operands")
	}
	return gen.b.NewFDiv(gen.toFloat(left), gen.toFloat(right))
}

func isNumeric(v value.Value) bool { return isInt(v) || isFloat(v) }

// compileRemainder uses srem for two ints, fmod otherwise.
func (gen *Generator) compileRemainder(n *ast.Node) value.Value {
	left, right, ok := gen.binaryOperands(n, "remainder")
	if !ok {
		return nil
	}
	if isInt(left) && isInt(right) {
		return gen.b.NewSRem(left, right)
	}
	if !isNumeric(left) || !isNumeric(right) {
		return gen.errorf(n.Line, "remainder requires numeric operands")
	}
	return gen.b.NewCall(gen.rt("fmod"), gen.toFloat(left), gen.toFloat(right))
}

// compilePower calls pow; two int operands round-trip back to int.
func (gen *Generator) compilePower(n *ast.Node) value.Value {
	left, right, ok := gen.binaryOperands(n, "power")
	if !ok {
		return nil
	}
	if !isNumeric(left) || !isNumeric(right) {
		return gen.errorf(n.Line, "power requires numeric operands")
	}
	bothInts := isInt(left) && isInt(right)
	res := gen.b.NewCall(gen.rt("pow"), gen.toFloat(left), gen.toFloat(right))
	if bothInts {
		return gen.b.NewFPToSI(res, types.I64)
	}
	return res
}

// compileRounding lowers floor/ceil/round: libm call plus fptosi. Integer
// arguments pass through.
func (gen *Generator) compileRounding(n *ast.Node, name string) value.Value {
	if len(n.Children) != 2 {
		return gen.errorf(n.Line, "%s expects exactly 1 argument", name)
	}
	v := gen.compileNode(n.Children[1])
	if v == nil {
		return nil
	}
	v = gen.unboxForArithmetic(v, n.Children[1])
	if isInt(v) {
		return v
	}
	if !isFloat(v) {
		return gen.errorf(n.Line, "%s requires a numeric argument", name)
	}
	rounded := gen.b.NewCall(gen.rt(name), v)
	return gen.b.NewFPToSI(rounded, types.I64)
}

// compileAbs keeps the argument's representation: conditional negation for
// ints, fabs for floats.
func (gen *Generator) compileAbs(n *ast.Node) value.Value {
	if len(n.Children) != 2 {
		return gen.errorf(n.Line, "abs expects exactly 1 argument")
	}
	v := gen.compileNode(n.Children[1])
	if v == nil {
		return nil
	}
	v = gen.unboxForArithmetic(v, n.Children[1])
	if isInt(v) {
		neg := gen.b.NewSub(zero(), v)
		isNeg := gen.b.NewICmp(enum.IPredSLT, v, zero())
		return gen.b.NewSelect(isNeg, neg, v)
	}
	if isFloat(v) {
		return gen.b.NewCall(gen.rt("fabs"), v)
	}
	return gen.errorf(n.Line, "abs requires a numeric argument")
}

// compileMinMax lowers variadic min/max by chained selects. Any float
// argument promotes the whole chain to double.
func (gen *Generator) compileMinMax(n *ast.Node, isMin bool) value.Value {
	name := n.Children[0].Val
	args := n.Children[1:]
	if len(args) == 0 {
		return gen.errorf(n.Line, "%s expects at least 1 argument", name)
	}

	vals := make([]value.Value, len(args))
	hasFloat := false
	for i, a := range args {
		v := gen.compileNode(a)
		if v == nil {
			return nil
		}
		v = gen.unboxForArithmetic(v, a)
		if !isNumeric(v) {
			return gen.errorf(a.Line, "%s requires numeric arguments", name)
		}
		if isFloat(v) {
			hasFloat = true
		}
		vals[i] = v
	}
	if hasFloat {
		for i := range vals {
			vals[i] = gen.toFloat(vals[i])
		}
	}

	best := vals[0]
	for _, v := range vals[1:] {
		var cmp value.Value
		switch {
		case hasFloat && isMin:
			cmp = gen.b.NewFCmp(enum.FPredOLT, v, best)
		case hasFloat:
			cmp = gen.b.NewFCmp(enum.FPredOGT, v, best)
		case isMin:
			cmp = gen.b.NewICmp(enum.IPredSLT, v, best)
		default:
			cmp = gen.b.NewICmp(enum.IPredSGT, v, best)
		}
		best = gen.b.NewSelect(cmp, v, best)
	}
	return best
}

// compileSqrt always produces a double.
func (gen *Generator) compileSqrt(n *ast.Node) value.Value {
	if len(n.Children) != 2 {
		return gen.errorf(n.Line, "sqrt expects exactly 1 argument")
	}
	v := gen.compileNode(n.Children[1])
	if v == nil {
		return nil
	}
	v = gen.unboxForArithmetic(v, n.Children[1])
	if !isNumeric(v) {
		return gen.errorf(n.Line, "sqrt requires a numeric argument")
	}
	return gen.b.NewCall(gen.rt("sqrt"), gen.toFloat(v))
}

const randMax = 2147483647.0

// compileRandom lowers (random): rand() / RAND_MAX as a double in [0, 1).
func (gen *Generator) compileRandom(n *ast.Node) value.Value {
	if len(n.Children) != 1 {
		return gen.errorf(n.Line, "random expects no arguments")
	}
	r := gen.b.NewCall(gen.rt("rand"))
	rf := gen.b.NewSIToFP(r, types.Double)
	return gen.b.NewFDiv(rf, constant.NewFloat(types.Double, randMax))
}

// compileRandomInt lowers (random_int n): rand() % n, corrected into [0, n).
func (gen *Generator) compileRandomInt(n *ast.Node) value.Value {
	if len(n.Children) != 2 {
		return gen.errorf(n.Line, "random_int expects exactly 1 argument")
	}
	limit := gen.compileNode(n.Children[1])
	if limit == nil {
		return nil
	}
	limit = gen.toInt(gen.unboxForArithmetic(limit, n.Children[1]))

	r := gen.b.NewCall(gen.rt("rand"))
	r64 := gen.b.NewSExt(r, types.I64)
	rem := gen.b.NewSRem(r64, limit)
	isNeg := gen.b.NewICmp(enum.IPredSLT, rem, zero())
	corrected := gen.b.NewAdd(rem, limit)
	return gen.b.NewSelect(isNeg, corrected, rem)
}

// compileRandomRange lowers (random_range lo hi): lo + random * (hi - lo).
func (gen *Generator) compileRandomRange(n *ast.Node) value.Value {
	left, right, ok := gen.binaryOperands(n, "random_range")
	if !ok {
		return nil
	}
	if !isNumeric(left) || !isNumeric(right) {
		return gen.errorf(n.Line, "random_range requires numeric arguments")
	}
	lo, hi := gen.toFloat(left), gen.toFloat(right)
	r := gen.b.NewCall(gen.rt("rand"))
	norm := gen.b.NewFDiv(gen.b.NewSIToFP(r, types.Double), constant.NewFloat(types.Double, randMax))
	span := gen.b.NewFSub(hi, lo)
	return gen.b.NewFAdd(lo, gen.b.NewFMul(norm, span))
}

// compileRandomSeed lowers (random_seed n) to srand; yields a void zero.
func (gen *Generator) compileRandomSeed(n *ast.Node) value.Value {
	if len(n.Children) != 2 {
		return gen.errorf(n.Line, "random_seed expects exactly 1 argument")
	}
	seed := gen.compileNode(n.Children[1])
	if seed == nil {
		return nil
	}
	seed = gen.toInt(gen.unboxForArithmetic(seed, n.Children[1]))
	gen.b.NewCall(gen.rt("srand"), gen.b.NewTrunc(seed, types.I32))
	return zero()
}
