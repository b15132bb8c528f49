package compiler

import "testing"

func TestAddVariableRejectsDuplicate(t *testing.T) {
	st := NewSymbolTable()
	if st.AddVariable("x", "integer", false) == nil {
		t.Fatal("first AddVariable should succeed")
	}
	if st.AddVariable("x", "integer", false) != nil {
		t.Fatal("duplicate AddVariable in the same scope should return nil")
	}
}

func TestLookupWalksParentChain(t *testing.T) {
	st := NewSymbolTable()
	st.AddVariable("g", "integer", false)

	st.EnterFunctionScope("f")
	st.AddVariable("local", "integer", false)

	if st.Lookup("g") == nil {
		t.Error("Lookup should find a global symbol from a nested scope")
	}
	if st.Lookup("local") == nil {
		t.Error("Lookup should find a symbol in the current scope")
	}

	st.ExitScope()
	if st.Lookup("local") != nil {
		t.Error("local symbol should not be visible after its scope is exited")
	}
}

func TestLookupCurrentScopeDoesNotWalkUp(t *testing.T) {
	st := NewSymbolTable()
	st.AddVariable("g", "integer", false)
	st.EnterScope(ScopeBlock)

	if st.LookupCurrentScope("g") != nil {
		t.Error("LookupCurrentScope should not find a symbol from an enclosing scope")
	}
	if st.Lookup("g") == nil {
		t.Error("Lookup should still find it via the parent chain")
	}
}

func TestFunctionsLiveOnlyInGlobalScope(t *testing.T) {
	st := NewSymbolTable()
	st.EnterFunctionScope("outer")
	sym := st.AddFunction("helper", "integer", false)
	if sym == nil {
		t.Fatal("AddFunction should succeed even from within a function scope")
	}
	if st.LookupGlobal("helper") == nil {
		t.Error("function should be registered in the global scope regardless of Current")
	}
}

func TestAddParameterAppendsDeepCopyToFunctionGlobal(t *testing.T) {
	st := NewSymbolTable()
	st.AddFunction("f", "integer", false)
	st.EnterFunctionScope("f")
	st.AddParameter("n", "integer", ModeIn, false)

	fnSym := st.LookupGlobal("f")
	if len(fnSym.Func.Parameters) != 1 {
		t.Fatalf("expected 1 parameter recorded on the global function symbol, got %d", len(fnSym.Func.Parameters))
	}
	if fnSym.Func.Parameters[0].Name != "n" {
		t.Errorf("got parameter name %q, want %q", fnSym.Func.Parameters[0].Name, "n")
	}

	// Mutating the live scope copy must not affect the stored deep copy.
	live := st.LookupCurrentScope("n")
	live.Var.Type = "real"
	if fnSym.Func.Parameters[0].Var.Type != "integer" {
		t.Error("AddParameter's global copy aliased the live scope symbol")
	}
}

func TestParametersSurviveScopeExit(t *testing.T) {
	st := NewSymbolTable()
	st.AddFunction("f", "integer", false)
	st.EnterFunctionScope("f")
	st.AddParameter("n", "integer", ModeIn, false)
	st.ExitScope()

	if st.LookupParameter("f", "n") == nil {
		t.Error("LookupParameter should still resolve a parameter after the function scope has been popped")
	}
}

func TestLocalsAutoRegisteredOnFunctionGlobal(t *testing.T) {
	st := NewSymbolTable()
	st.AddFunction("f", "integer", false)
	st.EnterFunctionScope("f")
	st.AddVariable("total", "integer", false)
	st.ExitScope()

	fnSym := st.LookupGlobal("f")
	if len(fnSym.Func.LocalVariables) != 1 || fnSym.Func.LocalVariables[0].Name != "total" {
		t.Fatalf("expected local 'total' recorded on function symbol, got %+v", fnSym.Func.LocalVariables)
	}
}

func TestUpdateParameterBoundsInGlobal(t *testing.T) {
	st := NewSymbolTable()
	st.AddFunction("f", "integer", false)
	st.EnterFunctionScope("f")
	st.AddParameter("arr", "integer", ModeIn, false)

	bounds := &ArrayBoundsData{Bounds: []DimensionBounds{
		{UsingRange: true, Start: Bound{IsConstant: true, ConstantValue: 0}, End: Bound{IsConstant: true, ConstantValue: 9}},
	}}
	st.UpdateParameterBoundsInGlobal("f", "arr", bounds)

	p := st.LookupParameter("f", "arr")
	if p == nil || !p.Var.IsArray || p.Var.Dimensions != 1 {
		t.Fatalf("expected parameter 'arr' updated to a 1-dimension array, got %+v", p)
	}
}

func TestLookupLocalFindsLocalAfterScopeExit(t *testing.T) {
	st := NewSymbolTable()
	st.AddFunction("p", "", true)
	st.EnterFunctionScope("p")
	bounds := &ArrayBoundsData{Bounds: []DimensionBounds{
		{UsingRange: true, Start: Bound{IsConstant: true, ConstantValue: 0}, End: Bound{IsConstant: true, ConstantValue: 9}},
	}}
	st.AddArray("a", "integer", bounds)
	st.ExitScope()

	if st.Lookup("a") != nil {
		t.Fatal("a local array should not be reachable from the global scope via Lookup once its scope is popped")
	}
	if st.LookupParameter("p", "a") != nil {
		t.Fatal("a local variable is not a parameter")
	}
	local := st.LookupLocal("p", "a")
	if local == nil || local.Var == nil || local.Var.Dimensions != 1 {
		t.Fatalf("expected LookupLocal to resolve the local array, got %+v", local)
	}
}

func TestEnterScopeRespectsMaxDepth(t *testing.T) {
	st := NewSymbolTable()
	ok := true
	for i := 0; i < maxScopeDepth && ok; i++ {
		ok = st.EnterScope(ScopeBlock)
	}
	if st.EnterScope(ScopeBlock) {
		t.Error("EnterScope should refuse to exceed maxScopeDepth")
	}
}

func TestExitScopeNeverPopsGlobal(t *testing.T) {
	st := NewSymbolTable()
	st.ExitScope()
	if st.Current != st.Global {
		t.Error("ExitScope at the global scope should be a no-op")
	}
}

func TestSymbolCloneIsIndependent(t *testing.T) {
	sym := &Symbol{
		Name: "a",
		Kind: SymVariable,
		Var: &VariableInfo{
			Type:   "integer",
			Bounds: &ArrayBoundsData{Bounds: []DimensionBounds{{Start: Bound{IsConstant: true, ConstantValue: 3}}}},
		},
	}
	clone := sym.Clone()
	clone.Var.Bounds.Bounds[0].Start.ConstantValue = 100
	if sym.Var.Bounds.Bounds[0].Start.ConstantValue != 3 {
		t.Error("Symbol.Clone should deep-copy Bounds")
	}
}
