package compiler

import "fmt"

// Bound is either a compile-time constant or a reference to a variable in
// scope at the declaration site. Exactly one of the two forms is meaningful,
// selected by IsConstant — the Go analogue of the original C union, made an
// explicit value type per spec.md §9 ("Bounds ownership") instead of a
// sometimes-owned raw pointer.
type Bound struct {
	IsConstant    bool
	ConstantValue int64
	VariableName  string
}

func (b Bound) String() string {
	if b.IsConstant {
		return fmt.Sprintf("%d", b.ConstantValue)
	}
	return b.VariableName
}

// DimensionBounds describes one array dimension: either a single size
// (UsingRange == false, Start holds the size and End mirrors it) or a
// lower..upper range.
type DimensionBounds struct {
	UsingRange bool
	Start      Bound
	End        Bound
}

// Clone returns a deep copy; Bound already holds its VariableName by value so
// a struct copy suffices, but Clone exists as the single, explicit crossing
// point every ownership transfer must go through (parser scratch → symbol,
// symbol → function-local copy, type → inheriting variable), per spec.md
// §4.5.
func (d DimensionBounds) Clone() DimensionBounds {
	return d
}

// ArrayBoundsData carries one DimensionBounds per dimension. dimensions must
// always equal len(Bounds); NewArrayBoundsData enforces this at construction
// and Clone preserves it.
type ArrayBoundsData struct {
	Bounds []DimensionBounds
}

// NewArrayBoundsData allocates bounds storage for the given dimension count.
func NewArrayBoundsData(dimensions int) *ArrayBoundsData {
	return &ArrayBoundsData{Bounds: make([]DimensionBounds, dimensions)}
}

// Dimensions returns the dimension count, kept equal to len(Bounds) by
// construction (see TESTABLE PROPERTIES in spec.md §8).
func (a *ArrayBoundsData) Dimensions() int {
	if a == nil {
		return 0
	}
	return len(a.Bounds)
}

// Clone performs a deep copy, including every VariableName string, so the
// clone shares no mutable state with its source. Every transfer of bounds
// across an ownership boundary (parser → symbol, symbol → per-function
// locals copy, type declaration → inheriting variable) must call this.
func (a *ArrayBoundsData) Clone() *ArrayBoundsData {
	if a == nil {
		return nil
	}
	out := &ArrayBoundsData{Bounds: make([]DimensionBounds, len(a.Bounds))}
	copy(out.Bounds, a.Bounds)
	return out
}

func (a *ArrayBoundsData) String() string {
	if a == nil {
		return "<nil bounds>"
	}
	s := "["
	for i, b := range a.Bounds {
		if i > 0 {
			s += ", "
		}
		if b.UsingRange {
			s += fmt.Sprintf("%s..%s", b.Start, b.End)
		} else {
			s += b.Start.String()
		}
	}
	return s + "]"
}

// HasDynamicSize reports whether any dimension's bounds reference a variable
// rather than a compile-time constant.
func (a *ArrayBoundsData) HasDynamicSize() bool {
	if a == nil {
		return false
	}
	for _, b := range a.Bounds {
		if !b.Start.IsConstant || !b.End.IsConstant {
			return true
		}
	}
	return false
}
