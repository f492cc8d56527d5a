// Package freevar computes the free variables of function literals: the
// identifiers a function references that are neither parameters, nor local
// assignments, nor global builtins. The result drives closure conversion,
// which captures exactly these variables into the environment struct.
package freevar

import (
	"github.com/franz-lang/franzc/internal/ast"
	"github.com/franz-lang/franzc/internal/builtins"
)

// Analyze computes and memoizes the free variables of a Function node.
// Results are stored on the node, so repeated calls are cheap. Analyzing a
// non-function node is a no-op returning zero.
func Analyze(fn *ast.Node) int {
	if fn == nil || fn.Op != ast.Function {
		return 0
	}
	if fn.Analyzed() {
		return len(fn.FreeVars)
	}

	bound := map[string]bool{}
	for _, p := range fn.Params() {
		bound[p.Val] = true
	}

	// Local assignments bind for the whole body, not just the statements
	// after them, so collect targets before scanning for uses.
	for _, stmt := range fn.Body() {
		collectAssignments(stmt, bound)
	}

	var free []string
	seen := map[string]bool{}
	for _, stmt := range fn.Body() {
		free = walk(stmt, bound, seen, free)
	}

	fn.SetFreeVars(free)
	return len(free)
}

// collectAssignments adds assignment targets to bound. It does not descend
// into nested functions: their locals are their own.
func collectAssignments(n *ast.Node, bound map[string]bool) {
	if n == nil {
		return
	}
	if n.Op == ast.Assignment && len(n.Children) >= 1 {
		target := n.Children[0]
		if target.Op == ast.Identifier && target.Val != "" {
			bound[target.Val] = true
		}
	}
	if n.Op == ast.Function {
		return
	}
	for _, c := range n.Children {
		collectAssignments(c, bound)
	}
}

func walk(n *ast.Node, bound, seen map[string]bool, free []string) []string {
	if n == nil {
		return free
	}

	switch n.Op {
	case ast.Identifier:
		name := n.Val
		if builtins.IsGlobal(name) {
			return free
		}
		if !bound[name] && !seen[name] {
			seen[name] = true
			free = append(free, name)
		}

	case ast.Function:
		// A nested function computes its own free variables; whatever it
		// needs and the enclosing function does not bind must be captured
		// here too, so it can be threaded through.
		Analyze(n)
		for _, name := range n.FreeVars {
			if builtins.IsGlobal(name) {
				continue
			}
			if !bound[name] && !seen[name] {
				seen[name] = true
				free = append(free, name)
			}
		}

	case ast.Assignment:
		// The target is being defined, not used; only the value side can
		// contain free variables.
		if len(n.Children) >= 2 {
			free = walk(n.Children[1], bound, seen, free)
		}

	default:
		for _, c := range n.Children {
			free = walk(c, bound, seen, free)
		}
	}

	return free
}
