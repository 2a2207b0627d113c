package ifjc

// DataType is SRC's closed type universe (spec.md §3). term and null are
// pseudo-types used only internally, before a value is coerced to a real
// concrete type.
type DataType uint8

const (
	TypeI32 DataType = iota
	TypeI32Nullable
	TypeF64
	TypeF64Nullable
	TypeU8Array
	TypeU8ArrayNullable
	TypeBool
	TypeVoid
	TypeTerm // accepts any concrete value; only used for the parameters of ifj.write and ifj.string.
	TypeNull // the type of the null literal itself, before coercion to ?T.
)

func (d DataType) String() string {
	switch d {
	case TypeI32:
		return "i32"
	case TypeI32Nullable:
		return "?i32"
	case TypeF64:
		return "f64"
	case TypeF64Nullable:
		return "?f64"
	case TypeU8Array:
		return "[]u8"
	case TypeU8ArrayNullable:
		return "?[]u8"
	case TypeBool:
		return "bool"
	case TypeVoid:
		return "void"
	case TypeTerm:
		return "term"
	case TypeNull:
		return "null"
	default:
		return "?unknown"
	}
}

// IsNullable reports whether d is one of the ?T types.
func (d DataType) IsNullable() bool {
	switch d {
	case TypeI32Nullable, TypeF64Nullable, TypeU8ArrayNullable:
		return true
	default:
		return false
	}
}

// NullableToNormal implements spec.md's NullableToNormal(?T)=T. Calling it
// on a non-nullable type is a programming error in this compiler (an
// Internal-class bug, not something input can trigger) and panics.
func NullableToNormal(d DataType) DataType {
	switch d {
	case TypeI32Nullable:
		return TypeI32
	case TypeF64Nullable:
		return TypeF64
	case TypeU8ArrayNullable:
		return TypeU8Array
	default:
		panic("NullableToNormal called on non-nullable type " + d.String())
	}
}

// NormalToNullable is the converse: T -> ?T. Nothing in the compiler calls
// it; the implicit T->?T widening at call sites (spec.md §4.I) is checked
// by assignable via NullableToNormal instead.
func NormalToNullable(d DataType) DataType {
	switch d {
	case TypeI32:
		return TypeI32Nullable
	case TypeF64:
		return TypeF64Nullable
	case TypeU8Array:
		return TypeU8ArrayNullable
	default:
		panic("NormalToNullable called on non-widenable type " + d.String())
	}
}

// VariableSymbol is one declared variable: its name, static type, and the
// bookkeeping flags the parser needs to enforce spec.md §3's invariants
// (const reassignment, definite assignment, unused-variable checking).
type VariableSymbol struct {
	Name     string
	Type     DataType
	IsConst  bool
	Defined  bool
	Nullable bool
	WasUsed  bool

	// EmittedName is the mangled LF@ name this variable was DEFVAR'd under.
	// All lexical scopes of a function body share one flat local frame, so
	// two same-named variables in sibling/nested blocks need distinct
	// EmittedNames to avoid a duplicate DEFVAR; the body parser mints these
	// at declaration time (spec.md §4.I).
	EmittedName string

	// ConstValue holds the literal value of a const-initialized, never
	// reassigned variable, so the expression sub-parser can inline it
	// (spec.md §4.G "constant variable references... are inlined").
	// Empty when the variable isn't a known compile-time constant.
	ConstValue string
	HasConst   bool
}

// Clone returns an independent copy of the symbol. Used when a function's
// body is parsed: each formal parameter is re-materialized as a fresh, owned
// copy on the function's outermost scope rather than shared, per spec.md §9's explicit
// redesign note ("re-materialized... as fresh, owned copies rather than
// shared pointers").
func (v *VariableSymbol) Clone() *VariableSymbol {
	cp := *v
	return &cp
}

// FunctionSymbol is one function's signature: name, ordered parameters, and
// declared return type.
type FunctionSymbol struct {
	Name       string
	Parameters []*VariableSymbol
	ReturnType DataType
	HasReturn  bool
}

// EmbeddedFunctions is the authoritative table of built-in functions
// addressed via the "ifj." prefix (spec.md §4.H). It is installed into the
// global symbol table before the function pre-pass runs, and is otherwise
// process-wide and immutable (spec.md §9's note on global singletons: this
// one specifically is kept as a compile-time constant).
var EmbeddedFunctions = buildEmbeddedFunctions()

func buildEmbeddedFunctions() map[string]*FunctionSymbol {
	param := func(name string, t DataType) *VariableSymbol {
		return &VariableSymbol{Name: name, Type: t, Defined: true, WasUsed: true}
	}

	table := map[string]*FunctionSymbol{
		"readstr": {Name: "readstr", ReturnType: TypeU8ArrayNullable},
		"readi32": {Name: "readi32", ReturnType: TypeI32Nullable},
		"readf64": {Name: "readf64", ReturnType: TypeF64Nullable},
		"write": {
			Name:       "write",
			Parameters: []*VariableSymbol{param("term", TypeTerm)},
			ReturnType: TypeVoid,
		},
		"i2f": {
			Name:       "i2f",
			Parameters: []*VariableSymbol{param("i", TypeI32)},
			ReturnType: TypeF64,
		},
		"f2i": {
			Name:       "f2i",
			Parameters: []*VariableSymbol{param("f", TypeF64)},
			ReturnType: TypeI32,
		},
		"string": {
			Name:       "string",
			Parameters: []*VariableSymbol{param("term", TypeTerm)},
			ReturnType: TypeU8Array,
		},
		"length": {
			Name:       "length",
			Parameters: []*VariableSymbol{param("s", TypeU8Array)},
			ReturnType: TypeI32,
		},
		"concat": {
			Name:       "concat",
			Parameters: []*VariableSymbol{param("s1", TypeU8Array), param("s2", TypeU8Array)},
			ReturnType: TypeU8Array,
		},
		"substring": {
			Name: "substring",
			Parameters: []*VariableSymbol{
				param("s", TypeU8Array), param("i", TypeI32), param("j", TypeI32),
			},
			ReturnType: TypeU8ArrayNullable,
		},
		"strcmp": {
			Name:       "strcmp",
			Parameters: []*VariableSymbol{param("s1", TypeU8Array), param("s2", TypeU8Array)},
			ReturnType: TypeI32,
		},
		"ord": {
			Name:       "ord",
			Parameters: []*VariableSymbol{param("s", TypeU8Array), param("i", TypeI32)},
			ReturnType: TypeI32,
		},
		"chr": {
			Name:       "chr",
			Parameters: []*VariableSymbol{param("i", TypeI32)},
			ReturnType: TypeU8Array,
		},
	}

	for _, f := range table {
		f.HasReturn = f.ReturnType != TypeVoid
	}

	return table
}

// IsEmbedded reports whether name (without the "ifj." prefix) names a
// built-in function.
func IsEmbedded(name string) bool {
	_, ok := EmbeddedFunctions[name]
	return ok
}
