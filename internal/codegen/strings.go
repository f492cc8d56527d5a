package codegen

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/franz-lang/franzc/internal/ast"
)

// printFormats is the format set one print form uses; println's variants
// carry a trailing space so multiple arguments separate.
type printFormats struct {
	intFmt, floatFmt, strFmt, closureFmt string
}

var printlnFormats = printFormats{"%lld ", "%f ", "%s ", "<closure> "}
var printFormatsBare = printFormats{"%lld", "%f", "%s", "<closure>"}

// compilePrint lowers println and print. Each argument picks its printf
// format from its native representation; boxed arguments go through the
// runtime printer and erased parameters dispatch on their runtime tag.
// println appends a final newline.
func (gen *Generator) compilePrint(n *ast.Node, newline bool) value.Value {
	fmts := printFormatsBare
	if newline && len(n.Children) > 2 {
		fmts = printlnFormats
	}

	for _, arg := range n.Children[1:] {
		v := gen.compileNode(arg)
		if v == nil {
			return nil
		}

		if arg.Op == ast.Identifier {
			if tag, ok := gen.paramTag[arg.Val]; ok {
				gen.printTagged(v, tag, fmts)
				continue
			}
		}

		switch {
		case gen.isBoxedNode(arg):
			ptr := v
			if isInt(v) {
				ptr = gen.b.NewIntToPtr(v, types.I8Ptr)
			}
			gen.b.NewCall(gen.rt("franz_print_generic"), gen.asI8Ptr(ptr))
		case isInt(v):
			gen.b.NewCall(gen.rt("printf"), gen.stringConst(fmts.intFmt), v)
		case isFloat(v):
			gen.b.NewCall(gen.rt("printf"), gen.stringConst(fmts.floatFmt), v)
		case isPtr(v):
			gen.b.NewCall(gen.rt("printf"), gen.stringConst(fmts.strFmt), gen.asI8Ptr(v))
		}
	}

	if newline {
		gen.b.NewCall(gen.rt("printf"), gen.stringConst("\n"))
	}
	return zero()
}

// printTagged prints an erased parameter by switching on its runtime tag.
func (gen *Generator) printTagged(v value.Value, tag value.Value, fmts printFormats) {
	intBlock := gen.newBlock("print_int")
	floatBlock := gen.newBlock("print_float")
	strBlock := gen.newBlock("print_str")
	closBlock := gen.newBlock("print_closure")
	done := gen.newBlock("print_done")

	payload := v
	if !isInt(payload) {
		if isPtr(payload) {
			payload = gen.b.NewPtrToInt(payload, types.I64)
		} else {
			payload = gen.b.NewBitCast(payload, types.I64)
		}
	}

	gen.b.NewSwitch(tag, closBlock,
		ir.NewCase(constant32(tagInt), intBlock),
		ir.NewCase(constant32(tagFloat), floatBlock),
		ir.NewCase(constant32(tagPointer), strBlock),
	)

	gen.b = intBlock
	gen.b.NewCall(gen.rt("printf"), gen.stringConst(fmts.intFmt), payload)
	gen.b.NewBr(done)

	gen.b = floatBlock
	gen.b.NewCall(gen.rt("printf"), gen.stringConst(fmts.floatFmt), gen.b.NewBitCast(payload, types.Double))
	gen.b.NewBr(done)

	gen.b = strBlock
	gen.b.NewCall(gen.rt("printf"), gen.stringConst(fmts.strFmt), gen.b.NewIntToPtr(payload, types.I8Ptr))
	gen.b.NewBr(done)

	gen.b = closBlock
	gen.b.NewCall(gen.rt("printf"), gen.stringConst(fmts.closureFmt))
	gen.b.NewBr(done)

	gen.b = done
}

const inputBufSize = 256

// compileInput lowers (input): a getchar loop into a heap buffer, stopping
// at newline or EOF, NUL-terminated.
func (gen *Generator) compileInput(n *ast.Node) value.Value {
	if len(n.Children) != 1 {
		return gen.errorf(n.Line, "input expects no arguments")
	}

	buf := gen.b.NewCall(gen.rt("malloc"), constant64(inputBufSize))
	idx := gen.b.NewAlloca(types.I64)
	gen.b.NewStore(zero(), idx)

	condBlock := gen.newBlock("input_cond")
	storeBlock := gen.newBlock("input_store")
	exitBlock := gen.newBlock("input_exit")
	gen.b.NewBr(condBlock)

	gen.b = condBlock
	ch := gen.b.NewCall(gen.rt("getchar"))
	isNewline := gen.b.NewICmp(enum.IPredEQ, ch, constant32('\n'))
	isEOF := gen.b.NewICmp(enum.IPredEQ, ch, constant32(-1))
	i := gen.b.NewLoad(types.I64, idx)
	full := gen.b.NewICmp(enum.IPredSGE, i, constant64(inputBufSize-1))
	stop := gen.b.NewOr(gen.b.NewOr(isNewline, isEOF), full)
	gen.b.NewCondBr(stop, exitBlock, storeBlock)

	gen.b = storeBlock
	slot := gen.b.NewGetElementPtr(types.I8, buf, i)
	gen.b.NewStore(gen.b.NewTrunc(ch, types.I8), slot)
	gen.b.NewStore(gen.b.NewAdd(i, constant64(1)), idx)
	gen.b.NewBr(condBlock)

	gen.b = exitBlock
	end := gen.b.NewLoad(types.I64, idx)
	endSlot := gen.b.NewGetElementPtr(types.I8, buf, end)
	gen.b.NewStore(constant.NewInt(types.I8, 0), endSlot)
	return buf
}

// compileJoin lowers (join s1 s2 ...): total length via strlen, one
// allocation, strcpy then strcat.
func (gen *Generator) compileJoin(n *ast.Node) value.Value {
	args := n.Children[1:]
	if len(args) < 2 {
		return gen.errorf(n.Line, "join expects at least 2 arguments")
	}

	strs := make([]value.Value, len(args))
	for i, a := range args {
		v := gen.compileNode(a)
		if v == nil {
			return nil
		}
		if gen.isBoxedNode(a) {
			ptr := v
			if isInt(v) {
				ptr = gen.b.NewIntToPtr(v, types.I8Ptr)
			}
			v = gen.b.NewCall(gen.rt("franz_unbox_string"), gen.asI8Ptr(ptr))
		}
		if !isPtr(v) {
			return gen.errorf(a.Line, "join requires string arguments")
		}
		strs[i] = gen.asI8Ptr(v)
	}

	total := value.Value(constant64(1)) // NUL
	for _, s := range strs {
		total = gen.b.NewAdd(total, gen.b.NewCall(gen.rt("strlen"), s))
	}
	buf := gen.b.NewCall(gen.rt("malloc"), total)
	gen.b.NewCall(gen.rt("strcpy"), buf, strs[0])
	for _, s := range strs[1:] {
		gen.b.NewCall(gen.rt("strcat"), buf, s)
	}
	return buf
}

// compileRepeat lowers (repeat s n).
func (gen *Generator) compileRepeat(n *ast.Node) value.Value {
	if len(n.Children) != 3 {
		return gen.errorf(n.Line, "repeat expects exactly 2 arguments (string count)")
	}
	s := gen.compileNode(n.Children[1])
	if s == nil {
		return nil
	}
	if !isPtr(s) {
		return gen.errorf(n.Children[1].Line, "repeat requires a string")
	}
	count := gen.compileNode(n.Children[2])
	if count == nil {
		return nil
	}
	count = gen.toInt(gen.unboxForArithmetic(count, n.Children[2]))
	return gen.b.NewCall(gen.rt("franz_repeat_string"), gen.asI8Ptr(s), count)
}

// compileTerminal lowers (rows) and (columns).
func (gen *Generator) compileTerminal(n *ast.Node, runtimeName string) value.Value {
	if len(n.Children) != 1 {
		return gen.errorf(n.Line, "%s expects no arguments", n.Children[0].Val)
	}
	return gen.b.NewCall(gen.rt(runtimeName))
}

// compileToInteger lowers (integer x): atoi on strings, fptosi on floats,
// passthrough on ints.
func (gen *Generator) compileToInteger(n *ast.Node) value.Value {
	if len(n.Children) != 2 {
		return gen.errorf(n.Line, "integer expects exactly 1 argument")
	}
	v := gen.compileNode(n.Children[1])
	if v == nil {
		return nil
	}
	v = gen.unboxForArithmetic(v, n.Children[1])
	switch {
	case isInt(v):
		return v
	case isFloat(v):
		return gen.b.NewFPToSI(v, types.I64)
	case isPtr(v):
		parsed := gen.b.NewCall(gen.rt("atoi"), gen.asI8Ptr(v))
		return gen.b.NewSExt(parsed, types.I64)
	}
	return gen.errorf(n.Line, "integer cannot convert this value")
}

// compileToFloat lowers (float x): atof on strings, sitofp on ints.
func (gen *Generator) compileToFloat(n *ast.Node) value.Value {
	if len(n.Children) != 2 {
		return gen.errorf(n.Line, "float expects exactly 1 argument")
	}
	v := gen.compileNode(n.Children[1])
	if v == nil {
		return nil
	}
	v = gen.unboxForArithmetic(v, n.Children[1])
	switch {
	case isFloat(v):
		return v
	case isInt(v):
		return gen.b.NewSIToFP(v, types.Double)
	case isPtr(v):
		return gen.b.NewCall(gen.rt("atof"), gen.asI8Ptr(v))
	}
	return gen.errorf(n.Line, "float cannot convert this value")
}

// compileToString lowers (string x): numbers format through the runtime,
// strings pass through, boxed values unbox.
func (gen *Generator) compileToString(n *ast.Node) value.Value {
	if len(n.Children) != 2 {
		return gen.errorf(n.Line, "string expects exactly 1 argument")
	}
	arg := n.Children[1]
	v := gen.compileNode(arg)
	if v == nil {
		return nil
	}
	if gen.isBoxedNode(arg) {
		ptr := v
		if isInt(v) {
			ptr = gen.b.NewIntToPtr(v, types.I8Ptr)
		}
		return gen.b.NewCall(gen.rt("franz_unbox_string"), gen.asI8Ptr(ptr))
	}
	switch {
	case isInt(v):
		return gen.b.NewCall(gen.rt("formatInteger"), v, constant32(10))
	case isFloat(v):
		return gen.b.NewCall(gen.rt("formatFloat"), v, constant32(6))
	case isPtr(v):
		return gen.asI8Ptr(v)
	}
	return gen.errorf(n.Line, "string cannot convert this value")
}

// compileFormatInt lowers (format-int value base).
func (gen *Generator) compileFormatInt(n *ast.Node) value.Value {
	if len(n.Children) != 3 {
		return gen.errorf(n.Line, "format-int expects exactly 2 arguments (value base)")
	}
	v := gen.compileNode(n.Children[1])
	if v == nil {
		return nil
	}
	v = gen.toInt(gen.unboxForArithmetic(v, n.Children[1]))
	base := gen.compileNode(n.Children[2])
	if base == nil {
		return nil
	}
	base = gen.toInt(gen.unboxForArithmetic(base, n.Children[2]))
	return gen.b.NewCall(gen.rt("formatInteger"), v, gen.b.NewTrunc(base, types.I32))
}

// compileFormatFloat lowers (format-float value precision).
func (gen *Generator) compileFormatFloat(n *ast.Node) value.Value {
	if len(n.Children) != 3 {
		return gen.errorf(n.Line, "format-float expects exactly 2 arguments (value precision)")
	}
	v := gen.compileNode(n.Children[1])
	if v == nil {
		return nil
	}
	v = gen.toFloat(gen.unboxForArithmetic(v, n.Children[1]))
	prec := gen.compileNode(n.Children[2])
	if prec == nil {
		return nil
	}
	prec = gen.toInt(gen.unboxForArithmetic(prec, n.Children[2]))
	return gen.b.NewCall(gen.rt("formatFloat"), v, gen.b.NewTrunc(prec, types.I32))
}
