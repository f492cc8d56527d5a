// Package ast defines the tree produced by the parser and consumed by
// free-variable analysis and code generation.
package ast

import (
	"fmt"
	"strings"
)

// Op discriminates the node variants.
type Op int

const (
	Int Op = iota
	Float
	String
	Identifier
	Assignment
	Return
	Statement
	Application
	Function
	List
	Qualified
)

var opNames = map[Op]string{
	Int:         "Int",
	Float:       "Float",
	String:      "String",
	Identifier:  "Identifier",
	Assignment:  "Assignment",
	Return:      "Return",
	Statement:   "Statement",
	Application: "Application",
	Function:    "Function",
	List:        "List",
	Qualified:   "Qualified",
}

func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Node is a single tree node. The meaning of Val and Children depends on Op:
//
//	Int, Float    Val holds the literal spelling; no children.
//	String        Val holds the decoded string value; no children.
//	Identifier    Val holds the name; no children.
//	Assignment    children[0] is an Identifier target, children[1] the value.
//	Return        children[0] is the returned expression.
//	Statement     children are the statements of a body, in order.
//	Application   children[0] is the callee, the rest are arguments.
//	Function      leading Identifier children are parameters, the remaining
//	              children are body statements (Statement nodes).
//	List          children are the elements, in order.
//	Qualified     Val holds "module.name"; no children.
type Node struct {
	Op       Op
	Val      string
	Line     int
	Children []*Node
	Mutable  bool

	// FreeVars is filled in by the freevar pass for Function nodes and is
	// nil until the node has been analyzed.
	FreeVars []string
	analyzed bool
}

// NewNode builds a node with the given children.
func NewNode(op Op, val string, line int, children ...*Node) *Node {
	return &Node{Op: op, Val: val, Line: line, Children: children}
}

// Analyzed reports whether the freevar pass has visited this node.
func (n *Node) Analyzed() bool { return n.analyzed }

// SetFreeVars records the result of free-variable analysis. A nil slice is
// normalized to an empty one so Analyzed stays distinguishable from FreeVars.
func (n *Node) SetFreeVars(vars []string) {
	if vars == nil {
		vars = []string{}
	}
	n.FreeVars = vars
	n.analyzed = true
}

// Params returns the parameter nodes of a Function node: the leading
// Identifier children before the body.
func (n *Node) Params() []*Node {
	if n.Op != Function {
		return nil
	}
	var params []*Node
	for _, c := range n.Children {
		if c.Op != Identifier {
			break
		}
		params = append(params, c)
	}
	return params
}

// Body returns the body children of a Function node: everything after the
// leading parameter identifiers, one Statement node per body statement.
func (n *Node) Body() []*Node {
	if n.Op != Function {
		return nil
	}
	return n.Children[len(n.Params()):]
}

// String renders the tree in a compact s-expression form, used by parser
// tests and debug output.
func (n *Node) String() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n *Node) write(b *strings.Builder) {
	switch n.Op {
	case Int, Float, Identifier, Qualified:
		b.WriteString(n.Val)
	case String:
		fmt.Fprintf(b, "%q", n.Val)
	default:
		b.WriteByte('(')
		b.WriteString(n.Op.String())
		if n.Val != "" {
			b.WriteByte(' ')
			b.WriteString(n.Val)
		}
		for _, c := range n.Children {
			b.WriteByte(' ')
			c.write(b)
		}
		b.WriteByte(')')
	}
}
