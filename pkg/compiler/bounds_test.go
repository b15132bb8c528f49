package compiler

import "testing"

func TestArrayBoundsDataDimensionsMatchesLen(t *testing.T) {
	b := NewArrayBoundsData(3)
	if b.Dimensions() != 3 || b.Dimensions() != len(b.Bounds) {
		t.Fatalf("Dimensions() = %d, want 3 (len=%d)", b.Dimensions(), len(b.Bounds))
	}
}

func TestArrayBoundsDataNilDimensionsIsZero(t *testing.T) {
	var b *ArrayBoundsData
	if got := b.Dimensions(); got != 0 {
		t.Fatalf("nil.Dimensions() = %d, want 0", got)
	}
}

func TestArrayBoundsDataCloneIsIndependent(t *testing.T) {
	b := NewArrayBoundsData(1)
	b.Bounds[0] = DimensionBounds{UsingRange: true, Start: Bound{IsConstant: true, ConstantValue: 1}, End: Bound{IsConstant: true, ConstantValue: 10}}

	clone := b.Clone()
	clone.Bounds[0].End.ConstantValue = 99

	if b.Bounds[0].End.ConstantValue != 10 {
		t.Fatalf("mutating the clone affected the original: got %d, want 10", b.Bounds[0].End.ConstantValue)
	}
}

func TestArrayBoundsDataCloneNil(t *testing.T) {
	var b *ArrayBoundsData
	if b.Clone() != nil {
		t.Fatal("cloning a nil *ArrayBoundsData should return nil")
	}
}

func TestHasDynamicSize(t *testing.T) {
	constBounds := &ArrayBoundsData{Bounds: []DimensionBounds{
		{UsingRange: true, Start: Bound{IsConstant: true, ConstantValue: 0}, End: Bound{IsConstant: true, ConstantValue: 9}},
	}}
	if constBounds.HasDynamicSize() {
		t.Error("all-constant bounds should not report dynamic size")
	}

	varBounds := &ArrayBoundsData{Bounds: []DimensionBounds{
		{UsingRange: true, Start: Bound{IsConstant: true, ConstantValue: 0}, End: Bound{VariableName: "n"}},
	}}
	if !varBounds.HasDynamicSize() {
		t.Error("a variable-named bound should report dynamic size")
	}
}

func TestHasDynamicSizeNil(t *testing.T) {
	var b *ArrayBoundsData
	if b.HasDynamicSize() {
		t.Error("nil bounds should not report dynamic size")
	}
}

func TestBoundString(t *testing.T) {
	if got := (Bound{IsConstant: true, ConstantValue: 5}).String(); got != "5" {
		t.Errorf("got %q, want %q", got, "5")
	}
	if got := (Bound{VariableName: "n"}).String(); got != "n" {
		t.Errorf("got %q, want %q", got, "n")
	}
}
