package codegen

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
)

// externSig describes one external function the emitted module may call:
// libc entry points and the Franz C runtime (boxing, lists, dicts, refs).
type externSig struct {
	ret      types.Type
	params   []types.Type
	variadic bool
}

var externs = map[string]externSig{
	// libc
	"printf":  {ret: types.I32, params: []types.Type{types.I8Ptr}, variadic: true},
	"puts":    {ret: types.I32, params: []types.Type{types.I8Ptr}},
	"getchar": {ret: types.I32, params: nil},
	"malloc":  {ret: types.I8Ptr, params: []types.Type{types.I64}},
	"strcmp":  {ret: types.I32, params: []types.Type{types.I8Ptr, types.I8Ptr}},
	"strcpy":  {ret: types.I8Ptr, params: []types.Type{types.I8Ptr, types.I8Ptr}},
	"strcat":  {ret: types.I8Ptr, params: []types.Type{types.I8Ptr, types.I8Ptr}},
	"strlen":  {ret: types.I64, params: []types.Type{types.I8Ptr}},
	"atoi":    {ret: types.I32, params: []types.Type{types.I8Ptr}},
	"atof":    {ret: types.Double, params: []types.Type{types.I8Ptr}},
	"rand":    {ret: types.I32, params: nil},
	"srand":   {ret: types.Void, params: []types.Type{types.I32}},

	// libm
	"pow":   {ret: types.Double, params: []types.Type{types.Double, types.Double}},
	"fmod":  {ret: types.Double, params: []types.Type{types.Double, types.Double}},
	"floor": {ret: types.Double, params: []types.Type{types.Double}},
	"ceil":  {ret: types.Double, params: []types.Type{types.Double}},
	"round": {ret: types.Double, params: []types.Type{types.Double}},
	"fabs":  {ret: types.Double, params: []types.Type{types.Double}},
	"sqrt":  {ret: types.Double, params: []types.Type{types.Double}},

	// boxing
	"franz_box_int":           {ret: types.I8Ptr, params: []types.Type{types.I64}},
	"franz_box_float":         {ret: types.I8Ptr, params: []types.Type{types.Double}},
	"franz_box_string":        {ret: types.I8Ptr, params: []types.Type{types.I8Ptr}},
	"franz_box_closure":       {ret: types.I8Ptr, params: []types.Type{types.I8Ptr}},
	"franz_box_pointer_smart": {ret: types.I8Ptr, params: []types.Type{types.I8Ptr}},
	"franz_unbox_int":         {ret: types.I64, params: []types.Type{types.I8Ptr}},
	"franz_unbox_float":       {ret: types.Double, params: []types.Type{types.I8Ptr}},
	"franz_unbox_string":      {ret: types.I8Ptr, params: []types.Type{types.I8Ptr}},
	"franz_generic_is":        {ret: types.I64, params: []types.Type{types.I8Ptr, types.I8Ptr}},
	"franz_generic_get_type":  {ret: types.I32, params: []types.Type{types.I8Ptr}},
	"franz_print_generic":     {ret: types.Void, params: []types.Type{types.I8Ptr}},

	// lists
	"franz_list_new":      {ret: types.I8Ptr, params: []types.Type{types.NewPointer(types.I8Ptr), types.I64}},
	"franz_list_head":     {ret: types.I8Ptr, params: []types.Type{types.I8Ptr}},
	"franz_list_tail":     {ret: types.I8Ptr, params: []types.Type{types.I8Ptr}},
	"franz_list_cons":     {ret: types.I8Ptr, params: []types.Type{types.I8Ptr, types.I8Ptr}},
	"franz_list_nth":      {ret: types.I8Ptr, params: []types.Type{types.I8Ptr, types.I64}},
	"franz_list_length":   {ret: types.I64, params: []types.Type{types.I8Ptr}},
	"franz_list_is_empty": {ret: types.I64, params: []types.Type{types.I8Ptr}},
	"franz_llvm_map":      {ret: types.I8Ptr, params: []types.Type{types.I8Ptr, types.I8Ptr}},
	"franz_llvm_map2":     {ret: types.I8Ptr, params: []types.Type{types.I8Ptr, types.I8Ptr, types.I8Ptr}},
	"franz_llvm_filter":   {ret: types.I8Ptr, params: []types.Type{types.I8Ptr, types.I8Ptr}},
	"franz_llvm_reduce":   {ret: types.I8Ptr, params: []types.Type{types.I8Ptr, types.I8Ptr, types.I8Ptr}},

	// dicts
	"franz_dict_new":    {ret: types.I8Ptr, params: nil},
	"franz_dict_get":    {ret: types.I8Ptr, params: []types.Type{types.I8Ptr, types.I8Ptr}},
	"franz_dict_set":    {ret: types.I8Ptr, params: []types.Type{types.I8Ptr, types.I8Ptr, types.I8Ptr}},
	"franz_dict_has":    {ret: types.I64, params: []types.Type{types.I8Ptr, types.I8Ptr}},
	"franz_dict_keys":   {ret: types.I8Ptr, params: []types.Type{types.I8Ptr}},
	"franz_dict_values": {ret: types.I8Ptr, params: []types.Type{types.I8Ptr}},
	"franz_dict_merge":  {ret: types.I8Ptr, params: []types.Type{types.I8Ptr, types.I8Ptr}},
	"franz_dict_map":    {ret: types.I8Ptr, params: []types.Type{types.I8Ptr, types.I8Ptr}},
	"franz_dict_filter": {ret: types.I8Ptr, params: []types.Type{types.I8Ptr, types.I8Ptr}},

	// refs
	"franz_llvm_create_ref": {ret: types.I8Ptr, params: []types.Type{types.I8Ptr}},
	"franz_llvm_deref":      {ret: types.I8Ptr, params: []types.Type{types.I8Ptr}},
	"franz_llvm_set_ref":    {ret: types.I8Ptr, params: []types.Type{types.I8Ptr, types.I8Ptr}},

	// file I/O
	"readFile":   {ret: types.I8Ptr, params: []types.Type{types.I8Ptr, types.I1}},
	"writeFile":  {ret: types.Void, params: []types.Type{types.I8Ptr, types.I8Ptr}},
	"appendFile": {ret: types.Void, params: []types.Type{types.I8Ptr, types.I8Ptr}},
	"fileExists": {ret: types.I64, params: []types.Type{types.I8Ptr}},

	// terminal and string helpers
	"franz_get_terminal_rows":    {ret: types.I64, params: nil},
	"franz_get_terminal_columns": {ret: types.I64, params: nil},
	"franz_repeat_string":        {ret: types.I8Ptr, params: []types.Type{types.I8Ptr, types.I64}},
	"formatInteger":              {ret: types.I8Ptr, params: []types.Type{types.I64, types.I32}},
	"formatFloat":                {ret: types.I8Ptr, params: []types.Type{types.Double, types.I32}},
}

// rt returns the declaration for a runtime function, declaring it in the
// module on first use. Unknown names panic: the table above is the closed
// set of entry points the driver may reach for.
func (gen *Generator) rt(name string) *ir.Func {
	if f, ok := gen.runtime[name]; ok {
		return f
	}
	sig, ok := externs[name]
	if !ok {
		panic("codegen: undeclared runtime function " + name)
	}
	params := make([]*ir.Param, len(sig.params))
	for i, t := range sig.params {
		params[i] = ir.NewParam("", t)
	}
	f := gen.m.NewFunc(name, sig.ret, params...)
	f.Sig.Variadic = sig.variadic
	gen.runtime[name] = f
	return f
}
