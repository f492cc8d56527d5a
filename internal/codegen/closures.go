package codegen

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/franz-lang/franzc/internal/ast"
	"github.com/franz-lang/franzc/internal/freevar"
	"github.com/franz-lang/franzc/internal/typeinfer"
)

// kindType maps an inferred kind to its native lowering.
func kindType(k typeinfer.Kind) types.Type {
	switch k {
	case typeinfer.Float:
		return types.Double
	case typeinfer.String:
		return types.I8Ptr
	default:
		return types.I64
	}
}

func kindTag(k typeinfer.Kind) int {
	switch k {
	case typeinfer.Float:
		return tagFloat
	case typeinfer.String:
		return tagPointer
	case typeinfer.Void:
		return tagVoid
	default:
		return tagInt
	}
}

// compileDirectFunction lowers a capture-free named function with a typed
// signature taken from shallow inference. The name is registered before the
// body compiles so recursive calls resolve.
func (gen *Generator) compileDirectFunction(name string, fn *ast.Node) *directFn {
	sig := typeinfer.InferFunction(fn)
	paramNodes := fn.Params()

	params := make([]*ir.Param, len(paramNodes))
	for i, p := range paramNodes {
		params[i] = ir.NewParam(p.Val, kindType(sig.Params[i]))
	}
	f := gen.m.NewFunc(name, kindType(sig.Return), params...)

	d := &directFn{fn: f}
	gen.funcs[name] = d

	savedF, savedB := gen.f, gen.b
	savedScope := gen.snapshot()
	savedLoop := gen.saveLoop()
	savedSelf := gen.selfClosure
	gen.f = f
	gen.b = f.NewBlock("entry")
	gen.selfClosure = ""
	gen.vars = make(map[string]value.Value)
	gen.muts = make(map[string]mutSlot)
	gen.boxed = make(map[string]bool)
	gen.voidVars = make(map[string]bool)
	gen.typeMeta = make(map[string]ast.Op)
	gen.paramTag = make(map[string]value.Value)
	for i, p := range paramNodes {
		gen.vars[p.Val] = f.Params[i]
	}

	gen.emitFunctionBody(fn)

	gen.f, gen.b = savedF, savedB
	gen.restore(savedScope)
	gen.restoreLoop(savedLoop)
	gen.selfClosure = savedSelf
	return d
}

// emitFunctionBody compiles the statements of a function body into the
// current function, synthesizing a final ret from the last value when the
// body falls off the end without one.
func (gen *Generator) emitFunctionBody(fn *ast.Node) {
	var last value.Value = zero()
	for _, stmt := range fn.Body() {
		v := gen.compileNode(stmt)
		if v == nil {
			break
		}
		last = v
		if gen.b.Term != nil {
			break
		}
	}
	if gen.b.Term == nil {
		gen.emitRetConverted(last)
	}
}

// emitRetConverted emits ret, coercing the value to the function's return
// type the same way an explicit `<-` would.
func (gen *Generator) emitRetConverted(v value.Value) {
	ret := gen.f.Sig.RetType
	switch {
	case ret.Equal(types.I64) && isPtr(v):
		v = gen.b.NewPtrToInt(v, types.I64)
	case ret.Equal(types.I64):
		v = gen.toInt(v)
	case ret.Equal(types.Double):
		v = gen.toFloat(v)
	case ret.Equal(types.I8Ptr) && isFloat(v):
		v = gen.b.NewIntToPtr(gen.b.NewBitCast(v, types.I64), types.I8Ptr)
	case ret.Equal(types.I8Ptr) && isInt(v):
		v = gen.b.NewIntToPtr(v, types.I8Ptr)
	case ret.Equal(types.I8Ptr):
		v = gen.asI8Ptr(v)
	}
	gen.b.NewRet(v)
}

// compileClosure converts a function with free variables: heap environment,
// type-erased signature (env i8*, then per source parameter an i64 payload
// and an i32 runtime tag), universal i8* return. The returned env value is
// the creation site's environment pointer, ready for a closure record.
func (gen *Generator) compileClosure(name string, fn *ast.Node) (*closureInfo, value.Value) {
	paramNodes := fn.Params()
	sig := typeinfer.InferFunction(fn)

	// A nested closure that refers to the enclosing closure captures a
	// record for it. The enclosing body has no record of itself in scope
	// (its creation site builds one only after the body compiles), so one
	// is materialized here from its implementation and our env parameter.
	for _, fv := range fn.FreeVars {
		if fv != gen.selfClosure || fv == name || gen.selfClosure == "" {
			continue
		}
		if info, ok := gen.closures[fv]; ok {
			if _, exists := gen.vars[fv]; !exists {
				rec := gen.buildClosureRecord(info, gen.f.Params[0])
				gen.vars[fv] = gen.b.NewPtrToInt(rec, types.I64)
			}
		}
	}

	// Captured set: free variables minus direct functions (those stay
	// module-level calls) and the closure's own name.
	var captured []string
	for _, fv := range fn.FreeVars {
		if fv == name {
			continue
		}
		if _, ok := gen.funcs[fv]; ok {
			continue
		}
		if _, ok := gen.vars[fv]; !ok {
			if _, ok := gen.muts[fv]; !ok {
				continue
			}
		}
		captured = append(captured, fv)
	}

	fields := make([]types.Type, len(captured))
	for i, cv := range captured {
		if m, ok := gen.muts[cv]; ok {
			fields[i] = m.elem
		} else {
			fields[i] = gen.vars[cv].Type()
		}
	}
	envTyp := types.NewStruct(fields...)
	gen.m.NewTypeDef(gen.nextEnvName(), envTyp)

	// Materialize the environment at the creation site; capture is by
	// value, mutable slots are loaded first.
	var envRaw value.Value = constant.NewNull(types.I8Ptr)
	if len(captured) > 0 {
		size := constant.NewInt(types.I64, int64(8*len(captured)))
		envRaw = gen.b.NewCall(gen.rt("malloc"), size)
		envPtr := gen.b.NewBitCast(envRaw, types.NewPointer(envTyp))
		for i, cv := range captured {
			var v value.Value
			if m, ok := gen.muts[cv]; ok {
				v = gen.b.NewLoad(m.elem, m.slot)
			} else {
				v = gen.vars[cv]
			}
			field := gen.b.NewGetElementPtr(envTyp, envPtr,
				constant.NewInt(types.I32, 0), constant.NewInt(types.I32, int64(i)))
			gen.b.NewStore(v, field)
		}
	}

	// Erased signature.
	fnParams := make([]*ir.Param, 0, 1+2*len(paramNodes))
	fnParams = append(fnParams, ir.NewParam("env", types.I8Ptr))
	for _, p := range paramNodes {
		fnParams = append(fnParams, ir.NewParam(p.Val, types.I64))
		fnParams = append(fnParams, ir.NewParam(p.Val+".tag", types.I32))
	}
	f := gen.m.NewFunc(gen.nextClosureName(), types.I8Ptr, fnParams...)

	retTag, paramIdx := gen.closureReturnTag(fn, sig)
	info := &closureInfo{fn: f, arity: len(paramNodes), retTag: retTag, paramIdx: paramIdx}

	savedF, savedB := gen.f, gen.b
	savedScope := gen.snapshot()
	savedLoop := gen.saveLoop()
	savedSelf := gen.selfClosure
	gen.f = f
	gen.b = f.NewBlock("entry")
	gen.vars = make(map[string]value.Value)
	gen.muts = make(map[string]mutSlot)
	gen.boxed = make(map[string]bool)
	gen.voidVars = make(map[string]bool)
	gen.typeMeta = make(map[string]ast.Op)
	gen.paramTag = make(map[string]value.Value)

	// Rebind captured variables from the environment.
	if len(captured) > 0 {
		envPtr := gen.b.NewBitCast(f.Params[0], types.NewPointer(envTyp))
		for i, cv := range captured {
			field := gen.b.NewGetElementPtr(envTyp, envPtr,
				constant.NewInt(types.I32, 0), constant.NewInt(types.I32, int64(i)))
			gen.vars[cv] = gen.b.NewLoad(fields[i], field)
			gen.typeMeta[cv] = savedScope.typeMeta[cv]
			if savedScope.boxed[cv] {
				gen.boxed[cv] = true
			}
			if _, ok := savedScope.closures[cv]; ok {
				gen.typeMeta[cv] = ast.Function
			}
		}
	}

	// Convert each erased parameter to the representation inference picked.
	// Unknown-kind parameters stay raw i64 and keep their runtime tag for
	// tag-directed dispatch later.
	floatTag := constant.NewInt(types.I32, tagFloat)
	for i, p := range paramNodes {
		payload := f.Params[1+2*i]
		tag := f.Params[2+2*i]
		switch sig.Params[i] {
		case typeinfer.Float:
			asFloat := gen.b.NewBitCast(payload, types.Double)
			fromInt := gen.b.NewSIToFP(payload, types.Double)
			isF := gen.b.NewICmp(enum.IPredEQ, tag, floatTag)
			gen.vars[p.Val] = gen.b.NewSelect(isF, asFloat, fromInt)
			gen.typeMeta[p.Val] = ast.Float
		case typeinfer.String:
			gen.vars[p.Val] = gen.b.NewIntToPtr(payload, types.I8Ptr)
			gen.typeMeta[p.Val] = ast.String
		case typeinfer.Int:
			asFloat := gen.b.NewBitCast(payload, types.Double)
			fromFloat := gen.b.NewFPToSI(asFloat, types.I64)
			isF := gen.b.NewICmp(enum.IPredEQ, tag, floatTag)
			gen.vars[p.Val] = gen.b.NewSelect(isF, fromFloat, payload)
			gen.typeMeta[p.Val] = ast.Int
		default:
			gen.vars[p.Val] = payload
			gen.paramTag[p.Val] = tag
		}
	}

	// Self-recursive calls resolve through the environment parameter. An
	// anonymous closure clears the marker: inside its body the enclosing
	// closure is an ordinary captured record, not "self".
	gen.selfClosure = name
	if name != "" {
		gen.closures[name] = info
	}

	gen.emitFunctionBody(fn)

	gen.f, gen.b = savedF, savedB
	gen.restore(savedScope)
	gen.restoreLoop(savedLoop)
	gen.selfClosure = savedSelf
	return info, envRaw
}

// closureReturnTag decides the return-type tag stored in the closure
// record. A body whose result is a function gets the closure tag; a body
// that returns one of its own parameters unchanged gets the dynamic tag and
// the parameter index; everything else follows inference.
func (gen *Generator) closureReturnTag(fn *ast.Node, sig *typeinfer.Signature) (int, int) {
	paramNodes := fn.Params()
	body := fn.Body()
	if len(body) == 0 {
		return tagVoid, 0
	}
	last := body[len(body)-1]
	if last.Op == ast.Statement && len(last.Children) == 1 {
		last = last.Children[0]
	}
	if last.Op == ast.Return && len(last.Children) == 1 {
		last = last.Children[0]
	}
	if last.Op == ast.Function {
		return tagClosure, 0
	}
	if last.Op == ast.Identifier {
		for i, p := range paramNodes {
			if p.Val == last.Val {
				return tagDynamic, i
			}
		}
		if gen.typeMeta[last.Val] == ast.Function {
			return tagClosure, 0
		}
	}
	return kindTag(sig.Return), 0
}

// buildClosureRecord heap-allocates a closure record at the current
// insertion point and fills its four fields.
func (gen *Generator) buildClosureRecord(info *closureInfo, env value.Value) value.Value {
	raw := gen.b.NewCall(gen.rt("malloc"), constant.NewInt(types.I64, 32))
	rec := gen.b.NewBitCast(raw, types.NewPointer(gen.closureTyp))

	store := func(idx int64, v value.Value) {
		field := gen.b.NewGetElementPtr(gen.closureTyp, rec,
			constant.NewInt(types.I32, 0), constant.NewInt(types.I32, idx))
		gen.b.NewStore(v, field)
	}
	store(0, gen.b.NewBitCast(info.fn, types.I8Ptr))
	store(1, env)
	store(2, constant.NewInt(types.I32, int64(info.retTag)))
	store(3, constant.NewInt(types.I32, int64(info.paramIdx)))
	return rec
}

// erasedArg converts one call argument to its (i64 payload, i32 tag) pair.
func (gen *Generator) erasedArg(n *ast.Node) (value.Value, int, bool) {
	v := gen.compileNode(n)
	if v == nil {
		return nil, 0, false
	}
	boxed := gen.isBoxedNode(n)
	switch {
	case isFloat(v):
		return gen.b.NewBitCast(v, types.I64), tagFloat, true
	case isPtr(v):
		return gen.b.NewPtrToInt(v, types.I64), tagPointer, true
	case boxed:
		return v, tagPointer, true
	case n.Op == ast.Identifier && n.Val == "void":
		return v, tagVoid, true
	default:
		return v, tagInt, true
	}
}

// callKnownClosure calls a closure whose creation site is visible: the
// implementing function is invoked directly and the result materialized
// from the statically known return tag. A dynamic tag resolves at compile
// time to the tag of the argument at the recorded parameter index.
func (gen *Generator) callKnownClosure(n *ast.Node, name string, info *closureInfo) value.Value {
	args := n.Children[1:]
	if len(args) != info.arity {
		return gen.errorf(n.Line, "%s expects %d argument(s), got %d", name, info.arity, len(args))
	}

	var env value.Value
	if name == gen.selfClosure {
		// Self-recursive call: reuse our own environment.
		env = gen.f.Params[0]
	} else if rec, ok := gen.vars[name]; ok {
		recPtr := gen.b.NewIntToPtr(rec, types.NewPointer(gen.closureTyp))
		envField := gen.b.NewGetElementPtr(gen.closureTyp, recPtr,
			constant.NewInt(types.I32, 0), constant.NewInt(types.I32, 1))
		env = gen.b.NewLoad(types.I8Ptr, envField)
	} else {
		return gen.errorf(n.Line, "closure %q is not reachable here", name)
	}

	callArgs := []value.Value{env}
	tags := make([]int, len(args))
	for i, a := range args {
		payload, tag, ok := gen.erasedArg(a)
		if !ok {
			return nil
		}
		tags[i] = tag
		callArgs = append(callArgs, payload, constant.NewInt(types.I32, int64(tag)))
	}

	call := gen.b.NewCall(info.fn, callArgs...)
	if gen.enableTCO && gen.inTail && info.fn == gen.f {
		call.Tail = enum.TailTail
	}

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
		// Pointer results may be raw strings or Generic records; smart
		// boxing normalizes both to a Generic.
		return gen.b.NewCall(gen.rt("franz_box_pointer_smart"), call)
	}
}

// callClosureValue performs an indirect call through a closure record whose
// creation site is not visible (parameter-held or computed closures). The
// result is normalized to a boxed Generic record: the return tag is read
// from the record at run time and switched on, with the dynamic tag
// resolved through the stored parameter index against the static tags of
// this call's arguments.
func (gen *Generator) callClosureValue(n *ast.Node, callee value.Value) value.Value {
	args := n.Children[1:]

	recPtr := callee
	if isInt(callee) {
		recPtr = gen.b.NewIntToPtr(callee, types.NewPointer(gen.closureTyp))
	} else if !callee.Type().Equal(types.NewPointer(gen.closureTyp)) {
		recPtr = gen.b.NewBitCast(gen.asI8Ptr(callee), types.NewPointer(gen.closureTyp))
	}

	field := func(idx int64) value.Value {
		return gen.b.NewGetElementPtr(gen.closureTyp, recPtr,
			constant.NewInt(types.I32, 0), constant.NewInt(types.I32, idx))
	}
	fnPtr := gen.b.NewLoad(types.I8Ptr, field(0))
	env := gen.b.NewLoad(types.I8Ptr, field(1))
	retTag := gen.b.NewLoad(types.I32, field(2))
	paramIdx := gen.b.NewLoad(types.I32, field(3))

	callArgs := []value.Value{env}
	paramTypes := []types.Type{types.I8Ptr}
	tags := make([]int, len(args))
	for i, a := range args {
		payload, tag, ok := gen.erasedArg(a)
		if !ok {
			return nil
		}
		tags[i] = tag
		callArgs = append(callArgs, payload, constant.NewInt(types.I32, int64(tag)))
		paramTypes = append(paramTypes, types.I64, types.I32)
	}

	fnTyp := types.NewFunc(types.I8Ptr, paramTypes...)
	castFn := gen.b.NewBitCast(fnPtr, types.NewPointer(fnTyp))
	call := gen.b.NewCall(castFn, callArgs...)

	// Resolve the dynamic tag against this call's argument tags.
	actualTag := value.Value(retTag)
	if len(args) > 0 {
		isDyn := gen.b.NewICmp(enum.IPredEQ, retTag, constant.NewInt(types.I32, tagDynamic))
		dynBlock := gen.newBlock("ret_dyn")
		mergeTag := gen.newBlock("ret_tag")
		entry := gen.b
		entry.NewCondBr(isDyn, dynBlock, mergeTag)

		gen.b = dynBlock
		caseBlocks := make([]*ir.Block, len(args))
		incomings := []*ir.Incoming{ir.NewIncoming(retTag, entry)}
		dflt := gen.newBlock("ret_dyn_dflt")
		cases := make([]*ir.Case, len(args))
		for i := range args {
			caseBlocks[i] = gen.newBlock("ret_dyn_arg")
			cases[i] = ir.NewCase(constant.NewInt(types.I32, int64(i)), caseBlocks[i])
		}
		dynBlock.NewSwitch(paramIdx, dflt, cases...)
		for i, cb := range caseBlocks {
			cb.NewBr(mergeTag)
			incomings = append(incomings, ir.NewIncoming(constant.NewInt(types.I32, int64(tags[i])), cb))
		}
		dflt.NewBr(mergeTag)
		incomings = append(incomings, ir.NewIncoming(constant.NewInt(types.I32, tagInt), dflt))

		gen.b = mergeTag
		actualTag = mergeTag.NewPhi(incomings...)
	}

	// Box the result uniformly: downstream consumers see one Generic*.
	intBlock := gen.newBlock("ret_int")
	floatBlock := gen.newBlock("ret_float")
	voidBlock := gen.newBlock("ret_void")
	ptrBlock := gen.newBlock("ret_ptr")
	done := gen.newBlock("ret_done")

	gen.b.NewSwitch(actualTag, ptrBlock,
		ir.NewCase(constant.NewInt(types.I32, tagInt), intBlock),
		ir.NewCase(constant.NewInt(types.I32, tagFloat), floatBlock),
		ir.NewCase(constant.NewInt(types.I32, tagVoid), voidBlock),
	)

	gen.b = intBlock
	intBoxed := gen.b.NewCall(gen.rt("franz_box_int"), gen.b.NewPtrToInt(call, types.I64))
	gen.b.NewBr(done)

	gen.b = floatBlock
	bits := gen.b.NewPtrToInt(call, types.I64)
	floatBoxed := gen.b.NewCall(gen.rt("franz_box_float"), gen.b.NewBitCast(bits, types.Double))
	gen.b.NewBr(done)

	gen.b = voidBlock
	voidBoxed := gen.b.NewCall(gen.rt("franz_box_int"), zero())
	gen.b.NewBr(done)

	gen.b = ptrBlock
	ptrBoxed := gen.b.NewCall(gen.rt("franz_box_pointer_smart"), call)
	gen.b.NewBr(done)

	gen.b = done
	return done.NewPhi(
		ir.NewIncoming(intBoxed, intBlock),
		ir.NewIncoming(floatBoxed, floatBlock),
		ir.NewIncoming(voidBoxed, voidBlock),
		ir.NewIncoming(ptrBoxed, ptrBlock),
	)
}

// callDirect calls a capture-free function, coercing each argument to the
// typed parameter.
func (gen *Generator) callDirect(n *ast.Node, name string, d *directFn) value.Value {
	args := n.Children[1:]
	if len(args) != len(d.fn.Params) {
		return gen.errorf(n.Line, "%s expects %d argument(s), got %d", name, len(d.fn.Params), len(args))
	}
	callArgs := make([]value.Value, len(args))
	for i, a := range args {
		v := gen.compileNode(a)
		if v == nil {
			return nil
		}
		want := d.fn.Params[i].Type()
		switch {
		case want.Equal(types.I64) && isPtr(v):
			if gen.isBoxedNode(a) {
				v = gen.b.NewCall(gen.rt("franz_unbox_int"), gen.asI8Ptr(v))
			} else {
				v = gen.b.NewPtrToInt(v, types.I64)
			}
		case want.Equal(types.I64):
			v = gen.toInt(v)
		case want.Equal(types.Double):
			if isPtr(v) && gen.isBoxedNode(a) {
				v = gen.b.NewCall(gen.rt("franz_unbox_float"), gen.asI8Ptr(v))
			} else {
				v = gen.toFloat(v)
			}
		case want.Equal(types.I8Ptr):
			if isInt(v) {
				v = gen.b.NewIntToPtr(v, types.I8Ptr)
			} else {
				v = gen.asI8Ptr(v)
			}
		}
		callArgs[i] = v
	}
	call := gen.b.NewCall(d.fn, callArgs...)
	if gen.enableTCO && gen.inTail && d.fn == gen.f {
		call.Tail = enum.TailTail
	}
	return call
}

// directWrapper builds (once) an erased adapter around a direct function so
// it can travel as a closure value, and returns a fresh closure record
// pointing at it, converted to the i64 representation closure values use.
func (gen *Generator) directWrapper(name string, d *directFn) value.Value {
	if d.adapter == nil {
		params := []*ir.Param{ir.NewParam("env", types.I8Ptr)}
		for _, p := range d.fn.Params {
			params = append(params, ir.NewParam(p.Name()+".v", types.I64))
			params = append(params, ir.NewParam(p.Name()+".tag", types.I32))
		}
		adapter := gen.m.NewFunc(gen.nextClosureName(), types.I8Ptr, params...)

		savedF, savedB := gen.f, gen.b
		gen.f = adapter
		gen.b = adapter.NewBlock("entry")

		callArgs := make([]value.Value, len(d.fn.Params))
		floatTag := constant.NewInt(types.I32, tagFloat)
		for i, p := range d.fn.Params {
			payload := adapter.Params[1+2*i]
			tag := adapter.Params[2+2*i]
			switch {
			case p.Type().Equal(types.Double):
				asFloat := gen.b.NewBitCast(payload, types.Double)
				fromInt := gen.b.NewSIToFP(payload, types.Double)
				isF := gen.b.NewICmp(enum.IPredEQ, tag, floatTag)
				callArgs[i] = gen.b.NewSelect(isF, asFloat, fromInt)
			case p.Type().Equal(types.I8Ptr):
				callArgs[i] = gen.b.NewIntToPtr(payload, types.I8Ptr)
			default:
				callArgs[i] = payload
			}
		}
		res := gen.b.NewCall(d.fn, callArgs...)
		gen.emitRetConverted(res)

		gen.f, gen.b = savedF, savedB
		d.adapter = adapter
	}

	retTag := tagInt
	switch {
	case d.fn.Sig.RetType.Equal(types.Double):
		retTag = tagFloat
	case d.fn.Sig.RetType.Equal(types.I8Ptr):
		retTag = tagPointer
	}
	rec := gen.buildClosureRecord(
		&closureInfo{fn: d.adapter, arity: len(d.fn.Params), retTag: retTag},
		constant.NewNull(types.I8Ptr),
	)
	return gen.b.NewPtrToInt(rec, types.I64)
}

// closureArg materializes an argument in closure-record form (i8*) for the
// higher-order runtime entry points.
func (gen *Generator) closureArg(n *ast.Node) value.Value {
	if n.Op == ast.Function {
		freevar.Analyze(n)
		info, env := gen.compileClosure("", n)
		if info == nil {
			return nil
		}
		return gen.asI8Ptr(gen.buildClosureRecord(info, env))
	}
	if n.Op == ast.Identifier {
		if d, ok := gen.funcs[n.Val]; ok {
			return gen.b.NewIntToPtr(gen.directWrapper(n.Val, d), types.I8Ptr)
		}
	}
	v := gen.compileNode(n)
	if v == nil {
		return nil
	}
	if isInt(v) {
		return gen.b.NewIntToPtr(v, types.I8Ptr)
	}
	return gen.asI8Ptr(v)
}
