package codegen

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/franz-lang/franzc/internal/ast"
)

// stringOperand compiles an argument expected to be a string, unboxing
// Generic records through the runtime.
func (gen *Generator) stringOperand(n *ast.Node, what string) value.Value {
	v := gen.compileNode(n)
	if v == nil {
		return nil
	}
	if gen.isBoxedNode(n) {
		ptr := v
		if isInt(v) {
			ptr = gen.b.NewIntToPtr(v, types.I8Ptr)
		}
		return gen.b.NewCall(gen.rt("franz_unbox_string"), gen.asI8Ptr(ptr))
	}
	if !isPtr(v) {
		return gen.errorf(n.Line, "%s must be a string", what)
	}
	return gen.asI8Ptr(v)
}

// compileReadFile lowers (read_file path): the whole file as one string.
func (gen *Generator) compileReadFile(n *ast.Node) value.Value {
	if len(n.Children) != 2 {
		return gen.errorf(n.Line, "read_file expects exactly 1 argument (path)")
	}
	path := gen.stringOperand(n.Children[1], "read_file path")
	if path == nil {
		return nil
	}
	return gen.b.NewCall(gen.rt("readFile"), path, constant.NewInt(types.I1, 0))
}

// compileWriteFile lowers (write_file path contents) and
// (append_file path contents). Both return void.
func (gen *Generator) compileWriteFile(n *ast.Node, name, runtimeName string) value.Value {
	if len(n.Children) != 3 {
		return gen.errorf(n.Line, "%s expects exactly 2 arguments (path contents)", name)
	}
	path := gen.stringOperand(n.Children[1], name+" path")
	if path == nil {
		return nil
	}
	contents := gen.stringOperand(n.Children[2], name+" contents")
	if contents == nil {
		return nil
	}
	gen.b.NewCall(gen.rt(runtimeName), path, contents)
	return zero()
}

// compileFileExists lowers (file_exists path): 1 when the file is readable,
// 0 otherwise.
func (gen *Generator) compileFileExists(n *ast.Node) value.Value {
	if len(n.Children) != 2 {
		return gen.errorf(n.Line, "file_exists expects exactly 1 argument (path)")
	}
	path := gen.stringOperand(n.Children[1], "file_exists path")
	if path == nil {
		return nil
	}
	return gen.b.NewCall(gen.rt("fileExists"), path)
}
