// Package typeinfer implements a small heuristic inference over function
// literals. It classifies expressions by literal structure and known builtin
// result types, and guesses parameter kinds from the return kind plus
// equality comparisons against values of known kind. Unknown stays Unknown:
// code generation falls back to runtime tags for those.
package typeinfer

import (
	"github.com/franz-lang/franzc/internal/ast"
)

// Kind is an inferred value kind.
type Kind int

const (
	Unknown Kind = iota
	Int
	Float
	String
	Void
)

var kindNames = map[Kind]string{
	Unknown: "unknown",
	Int:     "int",
	Float:   "float",
	String:  "string",
	Void:    "void",
}

func (k Kind) String() string { return kindNames[k] }

// Signature is the inferred shape of a function literal.
type Signature struct {
	Params []Kind
	Return Kind
	Line   int
}

// InferFunction infers the signature of a Function node. Returns nil for
// non-function nodes.
func InferFunction(fn *ast.Node) *Signature {
	if fn == nil || fn.Op != ast.Function {
		return nil
	}

	params := fn.Params()
	sig := &Signature{
		Params: make([]Kind, len(params)),
		Line:   fn.Line,
	}

	body := fn.Body()
	if len(body) > 0 {
		sig.Return = InferExpression(body[len(body)-1], fn)
	}

	// Monomorphic guess: parameters take the return kind when it is float
	// or string, int otherwise. Equality comparisons refine this below.
	guess := Int
	switch sig.Return {
	case Float:
		guess = Float
	case String:
		guess = String
	}
	for i := range sig.Params {
		sig.Params[i] = guess
	}

	for _, stmt := range body {
		refineFromComparisons(stmt, fn, params, sig)
	}
	return sig
}

// InferExpression classifies an expression by structure.
func InferExpression(n *ast.Node, fn *ast.Node) Kind {
	if n == nil {
		return Unknown
	}

	switch n.Op {
	case ast.Int:
		return Int
	case ast.Float:
		return Float
	case ast.String:
		return String

	case ast.Statement:
		if len(n.Children) > 0 {
			return InferExpression(n.Children[len(n.Children)-1], fn)
		}
		return Unknown

	case ast.Return:
		if len(n.Children) > 0 {
			return InferExpression(n.Children[0], fn)
		}
		return Void

	case ast.Application:
		return inferApplication(n, fn)
	}

	return Unknown
}

func inferApplication(n *ast.Node, fn *ast.Node) Kind {
	if len(n.Children) == 0 {
		return Unknown
	}
	head := n.Children[0]
	if head.Op != ast.Identifier {
		return Unknown
	}

	switch head.Val {
	case "add", "subtract", "multiply":
		hasFloat, hasInt, allUnknown := false, false, true
		for _, arg := range n.Children[1:] {
			switch InferExpression(arg, fn) {
			case Float:
				hasFloat = true
				allUnknown = false
			case Int:
				hasInt = true
				allUnknown = false
			case Unknown:
			default:
				allUnknown = false
			}
		}
		if hasFloat {
			return Float
		}
		if hasInt {
			return Int
		}
		if allUnknown {
			return Unknown
		}
		return Int

	case "divide":
		return Float

	case "join", "concat", "type", "string":
		return String

	case "integer":
		return Int

	case "float":
		return Float

	case "is", "less_than", "greater_than",
		"not", "and", "or",
		"is_int", "is_float", "is_string", "is_list", "is_function",
		"empty?", "length":
		return Int

	case "floor", "ceil", "round", "remainder", "random_int":
		return Int

	case "abs", "min", "max":
		for _, arg := range n.Children[1:] {
			if InferExpression(arg, fn) == Float {
				return Float
			}
		}
		return Int

	case "power", "sqrt", "random", "random_range":
		return Float
	}

	return Unknown
}

// refineFromComparisons walks the body for (is a b) applications where one
// side is a parameter; the parameter then takes the kind of the other side.
func refineFromComparisons(n *ast.Node, fn *ast.Node, params []*ast.Node, sig *Signature) {
	if n == nil {
		return
	}

	if n.Op == ast.Application && len(n.Children) >= 3 {
		head := n.Children[0]
		if head.Op == ast.Identifier && head.Val == "is" {
			refinePair(n.Children[1], n.Children[2], fn, params, sig)
			refinePair(n.Children[2], n.Children[1], fn, params, sig)
		}
	}

	for _, c := range n.Children {
		refineFromComparisons(c, fn, params, sig)
	}
}

func refinePair(arg, other *ast.Node, fn *ast.Node, params []*ast.Node, sig *Signature) {
	if arg.Op != ast.Identifier {
		return
	}
	idx := paramIndex(params, arg.Val)
	if idx < 0 {
		return
	}

	kind := InferExpression(other, fn)
	if kind == Unknown && other.Op == ast.Identifier {
		kind = localKind(fn, other.Val)
	}

	switch kind {
	case String:
		sig.Params[idx] = String
	case Float:
		if sig.Params[idx] == Int || sig.Params[idx] == Unknown {
			sig.Params[idx] = Float
		}
	case Int:
		if sig.Params[idx] == Unknown {
			sig.Params[idx] = Int
		}
	}
}

func paramIndex(params []*ast.Node, name string) int {
	for i, p := range params {
		if p.Val == name {
			return i
		}
	}
	return -1
}

// localKind looks up the kind of a local variable by finding its assignment
// in the function body.
func localKind(fn *ast.Node, name string) Kind {
	for _, stmt := range fn.Body() {
		if k := assignedKind(stmt, fn, name); k != Unknown {
			return k
		}
	}
	return Unknown
}

func assignedKind(n *ast.Node, fn *ast.Node, name string) Kind {
	if n == nil {
		return Unknown
	}
	if n.Op == ast.Assignment && len(n.Children) >= 2 {
		target := n.Children[0]
		if target.Op == ast.Identifier && target.Val == name {
			return InferExpression(n.Children[1], fn)
		}
	}
	for _, c := range n.Children {
		if k := assignedKind(c, fn, name); k != Unknown {
			return k
		}
	}
	return Unknown
}
