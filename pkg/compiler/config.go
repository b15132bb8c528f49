package compiler

// AssignmentStyle selects which token the lexer treats as the assignment
// operator.
type AssignmentStyle int

const (
	AssignColonEquals AssignmentStyle = iota // :=
	AssignEquals                             // =
)

// ArrayIndexing selects the caller-visible lower bound implied when a
// dimension omits an explicit start.
type ArrayIndexing int

const (
	IndexZeroBased ArrayIndexing = iota
	IndexOneBased
)

// ParamStyle selects where a parameter's type may be written.
type ParamStyle int

const (
	ParamStyleDecl  ParamStyle = iota // type lives in the signature
	ParamStyleBody                    // type is inferred from a matching `var` in the body
	ParamStyleMixed                   // both forms accepted
)

// OperatorStyle selects which keyword spellings the lexer recognizes.
type OperatorStyle int

const (
	OpStyleStandard OperatorStyle = iota // and, or, not, eq, true, ...
	OpStyleDotted                        // .and., .or., .not., .eq., .true., ...
	OpStyleMixed                         // union of both
)

// Config is the immutable compilation context threaded explicitly through the
// lexer, parser, and generator. The original C implementation exposed this as
// a single mutable global (g_config); passing it as a value instead means two
// concurrent compilations never interfere and nothing needs resetting between
// runs.
type Config struct {
	Assignment        AssignmentStyle
	Indexing          ArrayIndexing
	Params            ParamStyle
	Operators         OperatorStyle
	AllowMixedArrays  bool // allow "()" as an array subscript in addition to "[]"
	EnableVerbose     bool
}

// DefaultConfig returns the configuration used when the CLI supplies no
// overrides: ":=" assignment, zero-based indexing, declaration-site parameter
// types, the bare standard operator keywords, and "[]"-only subscripts.
func DefaultConfig() Config {
	return Config{
		Assignment: AssignColonEquals,
		Indexing:   IndexZeroBased,
		Params:     ParamStyleDecl,
		Operators:  OpStyleStandard,
	}
}

// oneBased reports whether array indices are 1-based under this configuration.
func (c Config) oneBased() bool {
	return c.Indexing == IndexOneBased
}
