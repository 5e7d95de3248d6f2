package core

// builtinArity records the minimum/maximum argument count accepted by a
// builtin the analyzer/lowerer recognize (§6). A max < 0 means
// unbounded; no entry in builtinArities currently uses it.
type builtinArity struct{ min, max int }

// builtinArities is the closed identifier surface's arity table. Only
// entries the analyzer needs to check arity for are listed explicitly;
// the control envelopes (loops, if, block) and collection literals are
// not listed, their shape being checked structurally in
// analyzer_flow.go instead of here.
var builtinArities = map[string]builtinArity{
	"plus":     {2, 2},
	"minus":    {2, 2},
	"multiply": {2, 2},
	"divide":   {2, 2},
	"modulo":   {2, 2},
	"negate":   {1, 1},

	"equal":         {2, 2},
	"not_equal":     {2, 2},
	"greater_than":  {2, 2},
	"less_than":     {2, 2},
	"greater_equal": {2, 2},
	"less_equal":    {2, 2},

	"and": {2, 2},
	"or":  {2, 2},
	"not": {1, 1},

	"location":    {1, 1},
	"dereference": {1, 1},
	"assign":      {2, 2},
	"increment":   {1, 1},
	"decrement":   {1, 1},

	"clamp":    {3, 3},
	"min":      {2, 2},
	"max":      {2, 2},
	"abs":      {1, 1},
	"sign":     {1, 1},
	"saturate": {1, 1},
	"lerp":     {3, 3},
	"pow":      {2, 2},
	"sqrt":     {1, 1},
	"cbrt":     {1, 1},
	"exp":      {1, 1},
	"exp2":     {1, 1},
	"log":      {1, 1},
	"log2":     {1, 1},
	"log10":    {1, 1},
	"floor":    {1, 1},
	"ceil":     {1, 1},
	"round":    {1, 1},
	"trunc":    {1, 1},
	"fract":    {1, 1},
	"sin":      {1, 1},
	"cos":      {1, 1},
	"tan":      {1, 1},
	"asin":     {1, 1},
	"acos":     {1, 1},
	"atan":     {1, 1},
	"atan2":    {2, 2},
	"sinh":     {1, 1},
	"cosh":     {1, 1},
	"tanh":     {1, 1},
	"asinh":    {1, 1},
	"acosh":    {1, 1},
	"atanh":    {1, 1},
	"hypot":    {2, 2},
	"fma":      {3, 3},
	"copysign": {2, 2},
	"radians":  {1, 1},
	"degrees":  {1, 1},
	"is_nan":   {1, 1},
	"is_inf":   {1, 1},
	"is_finite": {1, 1},

	"convert": {1, 1},

	"print":            {1, 1},
	"print_line":       {1, 1},
	"print_error":      {1, 1},
	"print_line_error":  {1, 1},
	"print_value":      {3, 3},
	"print_string":     {1, 1},

	"count":       {1, 1},
	"capacity":    {1, 1},
	"at":          {2, 2},
	"at_unsafe":   {2, 2},
	"push":        {2, 2},
	"pop":         {1, 1},
	"reserve":     {2, 2},
	"clear":       {1, 1},
	"remove_at":   {2, 2},
	"remove_swap": {2, 2},
}

// comparisonBuiltins maps a comparison builtin name to the opcode family
// selector used once operand kind is known (§4.2).
var comparisonBuiltins = map[string]bool{
	"equal": true, "not_equal": true, "greater_than": true,
	"less_than": true, "greater_equal": true, "less_equal": true,
}

// mathConstants are the named math constants pushed as Float64 bit
// patterns (§4.2).
var mathConstants = map[string]float64{
	"pi":  3.14159265358979323846,
	"tau": 6.28318530717958647692,
	"e":   2.71828182845904523536,
}

// loopFamily and isControlEnvelope define the fixed control-flow builtin
// names (§4.1).
var loopFamily = map[string]bool{"loop": true, "while": true, "for": true, "repeat": true}

func isControlEnvelope(name string) bool {
	return loopFamily[name] || name == "if" || name == "block"
}

// qualifierTransforms, structFamilyNames (see tables.go), and
// policyMarkers classify non-type-tag transforms (§4.1).
var qualifierTransforms = map[string]bool{
	"mut": true, "copy": true, "restrict": true, "align_bytes": true,
	"align_kbytes": true, "public": true, "private": true, "package": true,
	"static": true,
}

var policyMarkers = map[string]bool{
	"shared_scope": true, "single_type_to_return": true,
}

// arrayVectorMethods and stringMethods are the small built-in method
// surfaces §4.1 grants to collection/string receivers via dotted calls.
var arrayVectorMethods = map[string]bool{
	"count": true, "capacity": true, "push": true, "pop": true,
	"reserve": true, "clear": true, "remove_at": true, "remove_swap": true,
	"at": true, "at_unsafe": true,
}

var stringMethods = map[string]bool{
	"count": true, "at": true, "at_unsafe": true,
}
