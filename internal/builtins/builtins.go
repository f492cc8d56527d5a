// Package builtins holds the closed registry of globally available names.
// These symbols resolve at global linkage: free-variable analysis never
// treats them as captures, and code generation dispatches them directly
// instead of looking them up in the environment.
package builtins

var registry = map[string]bool{
	// arithmetic
	"add":       true,
	"subtract":  true,
	"multiply":  true,
	"divide":    true,
	"remainder": true,
	"power":     true,

	// math
	"random":       true,
	"random_int":   true,
	"random_range": true,
	"random_seed":  true,
	"floor":        true,
	"ceil":         true,
	"round":        true,
	"abs":          true,
	"min":          true,
	"max":          true,
	"sqrt":         true,

	// comparison
	"is":           true,
	"less_than":    true,
	"greater_than": true,

	// logical
	"not": true,
	"and": true,
	"or":  true,

	// control flow
	"if":       true,
	"when":     true,
	"unless":   true,
	"cond":     true,
	"else":     true,
	"loop":     true,
	"while":    true,
	"break":    true,
	"continue": true,

	// type guards and introspection
	"is_int":      true,
	"is_float":    true,
	"is_string":   true,
	"is_list":     true,
	"is_function": true,
	"type":        true,

	// I/O
	"println": true,
	"print":   true,
	"input":   true,

	// terminal
	"rows":    true,
	"columns": true,
	"repeat":  true,

	// type conversion
	"integer": true,
	"float":   true,
	"string":  true,

	// string operations
	"format-int":   true,
	"format-float": true,
	"join":         true,
	"get":          true,

	// list operations
	"head":   true,
	"tail":   true,
	"cons":   true,
	"empty?": true,
	"length": true,
	"nth":    true,
	"range":  true,
	"map":    true,
	"map2":   true,
	"filter": true,
	"reduce": true,

	// file operations
	"read_file":   true,
	"write_file":  true,
	"append_file": true,
	"file_exists": true,

	// dict operations
	"dict":        true,
	"dict_get":    true,
	"dict_set":    true,
	"dict_has":    true,
	"dict_keys":   true,
	"dict_values": true,
	"dict_map":    true,
	"dict_filter": true,
	"dict_merge":  true,

	// algebraic data types
	"variant":        true,
	"match":          true,
	"variant_tag":    true,
	"variant_values": true,

	// mutable references
	"ref":   true,
	"deref": true,
	"set!":  true,
}

// IsGlobal reports whether name is a global builtin.
func IsGlobal(name string) bool {
	return registry[name]
}
