package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/GritHat/plike-translator/internal/diagnostics"
)

// SymbolKind classifies what a Symbol denotes.
type SymbolKind int

const (
	SymVariable SymbolKind = iota
	SymFunction
	SymProcedure
	SymParameter
	SymType
)

func (k SymbolKind) String() string {
	switch k {
	case SymVariable:
		return "variable"
	case SymFunction:
		return "function"
	case SymProcedure:
		return "procedure"
	case SymParameter:
		return "parameter"
	case SymType:
		return "type"
	default:
		return "?"
	}
}

// ScopeKind classifies a Scope.
type ScopeKind int

const (
	ScopeGlobal ScopeKind = iota
	ScopeFunction
	ScopeBlock
)

// maxScopeDepth bounds scope nesting; exceeding it is a Fatal diagnostic per
// spec.md §4.2 ("scope depth bounded; overflow is a fatal error").
const maxScopeDepth = 128

// VariableInfo is the payload shared by variable and parameter symbols.
type VariableInfo struct {
	Type                 string
	IsArray              bool
	IsPointer            bool
	PointerLevel         int
	Bounds               *ArrayBoundsData
	Dimensions           int
	IsParameter          bool
	ParamMode            ParamMode
	NeedsDeref           bool
	NeedsTypeDeclaration bool
	HasDynamicSize       bool
	DeclLoc              SourceLocation
}

// FunctionInfo is the payload of a function/procedure symbol.
type FunctionInfo struct {
	ReturnType     string
	IsProcedure    bool
	IsPointer      bool
	PointerLevel   int
	Parameters     []*Symbol // deep copies, owned by this slice
	LocalVariables []*Symbol // deep copies, owned by this slice
	HasReturnVar   bool
}

// RecordFieldData is one field of a resolved record type.
type RecordFieldData struct {
	Name         string
	Type         string
	PointerLevel int
	IsArray      bool
	Bounds       *ArrayBoundsData
	Nested       *TypeInfo // non-nil when the field's type is an inline nested record
}

// TypeInfo is the payload of a type symbol: a resolved record definition.
type TypeInfo struct {
	Name      string
	IsTypedef bool
	Fields    []RecordFieldData
}

// Symbol is one entry of a Scope's table.
type Symbol struct {
	Name string
	Kind SymbolKind

	Var  *VariableInfo // SymVariable, SymParameter
	Func *FunctionInfo // SymFunction, SymProcedure
	Type *TypeInfo     // SymType
}

// Clone deep-copies a Symbol, including its Bounds/Parameters/LocalVariables,
// so that the per-function copies kept in the global scope never alias the
// live scope's storage (spec.md §4.2, §4.5).
func (s *Symbol) Clone() *Symbol {
	if s == nil {
		return nil
	}
	out := &Symbol{Name: s.Name, Kind: s.Kind}
	if s.Var != nil {
		v := *s.Var
		v.Bounds = s.Var.Bounds.Clone()
		out.Var = &v
	}
	if s.Func != nil {
		f := *s.Func
		f.Parameters = cloneSymbolSlice(s.Func.Parameters)
		f.LocalVariables = cloneSymbolSlice(s.Func.LocalVariables)
		out.Func = &f
	}
	if s.Type != nil {
		t := *s.Type
		t.Fields = append([]RecordFieldData(nil), s.Type.Fields...)
		out.Type = &t
	}
	return out
}

func cloneSymbolSlice(in []*Symbol) []*Symbol {
	if in == nil {
		return nil
	}
	out := make([]*Symbol, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}

// Scope is one hash-table scope in the SymbolTable's stack.
type Scope struct {
	Kind         ScopeKind
	Parent       *Scope
	symbols      map[string]*Symbol
	FunctionName string // meaningful for ScopeFunction
}

func newScope(kind ScopeKind, parent *Scope) *Scope {
	return &Scope{Kind: kind, Parent: parent, symbols: make(map[string]*Symbol)}
}

// SymbolTable is a stack of scopes rooted at a single global scope. Per
// spec.md §4.2, functions and types live only in the global scope; a
// function's own parameters/locals live in its function scope while it is
// open AND as deep copies inside the function's global Symbol, because the
// generator runs after every function scope has been popped.
type SymbolTable struct {
	Global  *Scope
	Current *Scope
	depth   int
}

// NewSymbolTable returns a table with just the global scope open.
func NewSymbolTable() *SymbolTable {
	g := newScope(ScopeGlobal, nil)
	return &SymbolTable{Global: g, Current: g}
}

// EnterScope pushes a new scope of the given kind. Returns false (a Fatal
// condition for the caller to report) if maxScopeDepth would be exceeded.
func (t *SymbolTable) EnterScope(kind ScopeKind) bool {
	if t.depth >= maxScopeDepth {
		return false
	}
	t.Current = newScope(kind, t.Current)
	t.depth++
	return true
}

// ExitScope pops the current scope. It is a no-op (never pops the global
// scope) if called with only the global scope open.
func (t *SymbolTable) ExitScope() {
	if t.Current.Parent == nil {
		return
	}
	t.Current = t.Current.Parent
	t.depth--
}

// EnterFunctionScope pushes a ScopeFunction scope and tags it with the
// function's name, so maybeAddLocalToFunction and AddParameter can find
// their way back to the owning global-scope Symbol.
func (t *SymbolTable) EnterFunctionScope(name string) bool {
	if !t.EnterScope(ScopeFunction) {
		return false
	}
	t.Current.FunctionName = name
	return true
}

// currentFunctionScope walks up from Current to find the nearest enclosing
// ScopeFunction, or nil if none is open.
func (t *SymbolTable) currentFunctionScope() *Scope {
	for s := t.Current; s != nil; s = s.Parent {
		if s.Kind == ScopeFunction {
			return s
		}
	}
	return nil
}

// AddVariable declares a scalar variable in the current scope. Returns nil
// and does not mutate the table if name already exists in the current scope
// (a Semantic diagnostic is the caller's responsibility — spec.md §4.2).
func (t *SymbolTable) AddVariable(name, typ string, isArray bool) *Symbol {
	if _, exists := t.Current.symbols[name]; exists {
		return nil
	}
	sym := &Symbol{
		Name: name,
		Kind: SymVariable,
		Var:  &VariableInfo{Type: typ, IsArray: isArray},
	}
	t.Current.symbols[name] = sym
	t.maybeAddLocalToFunction(sym)
	return sym
}

// AddArray declares an array variable with the given bounds.
func (t *SymbolTable) AddArray(name, elemType string, bounds *ArrayBoundsData) *Symbol {
	if _, exists := t.Current.symbols[name]; exists {
		return nil
	}
	sym := &Symbol{
		Name: name,
		Kind: SymVariable,
		Var: &VariableInfo{
			Type:           elemType,
			IsArray:        true,
			Bounds:         bounds,
			Dimensions:     bounds.Dimensions(),
			HasDynamicSize: bounds.HasDynamicSize(),
		},
	}
	t.Current.symbols[name] = sym
	t.maybeAddLocalToFunction(sym)
	return sym
}

// AddFunction declares a function or procedure in the global scope.
// spec.md §4.2: functions live only in the global scope, regardless of
// Current when called (the parser always calls this before entering the
// function's own scope).
func (t *SymbolTable) AddFunction(name, returnType string, isProcedure bool) *Symbol {
	if _, exists := t.Global.symbols[name]; exists {
		return nil
	}
	sym := &Symbol{
		Name: name,
		Kind: symKindForFunction(isProcedure),
		Func: &FunctionInfo{ReturnType: returnType, IsProcedure: isProcedure},
	}
	t.Global.symbols[name] = sym
	return sym
}

func symKindForFunction(isProcedure bool) SymbolKind {
	if isProcedure {
		return SymProcedure
	}
	return SymFunction
}

// AddParameter declares a parameter in the current (function) scope and
// appends a deep copy to the owning function's global-scope Parameters list.
func (t *SymbolTable) AddParameter(name, typ string, mode ParamMode, needsDeref bool) *Symbol {
	if _, exists := t.Current.symbols[name]; exists {
		return nil
	}
	sym := &Symbol{
		Name: name,
		Kind: SymParameter,
		Var: &VariableInfo{
			Type:        typ,
			IsParameter: true,
			ParamMode:   mode,
			NeedsDeref:  needsDeref,
		},
	}
	t.Current.symbols[name] = sym

	if fnScope := t.currentFunctionScope(); fnScope != nil {
		if fnSym, ok := t.Global.symbols[fnScope.FunctionName]; ok && fnSym.Func != nil {
			fnSym.Func.Parameters = append(fnSym.Func.Parameters, sym.Clone())
		}
	}
	return sym
}

// AddType declares a record type in the global scope.
func (t *SymbolTable) AddType(name string, record *TypeInfo) *Symbol {
	if _, exists := t.Global.symbols[name]; exists {
		return nil
	}
	sym := &Symbol{Name: name, Kind: SymType, Type: record}
	t.Global.symbols[name] = sym
	return sym
}

// maybeAddLocalToFunction implements spec.md §4.2's "add_local_to_function is
// called automatically by add_variable/add_array when the current scope is
// inside a function": a deep copy is appended to the owning function's
// LocalVariables list in the global scope.
func (t *SymbolTable) maybeAddLocalToFunction(sym *Symbol) {
	fnScope := t.currentFunctionScope()
	if fnScope == nil {
		return
	}
	t.AddLocalToFunction(fnScope.FunctionName, sym)
}

// AddLocalToFunction appends a deep copy of local to functionName's
// global-scope LocalVariables list.
func (t *SymbolTable) AddLocalToFunction(functionName string, local *Symbol) {
	fnSym, ok := t.Global.symbols[functionName]
	if !ok || fnSym.Func == nil {
		return
	}
	fnSym.Func.LocalVariables = append(fnSym.Func.LocalVariables, local.Clone())
}

// UpdateParameterBoundsInGlobal propagates bounds discovered while parsing a
// body-style parameter's matching `var` declaration back onto the global
// copy of that parameter (spec.md §4.2, §4.3).
func (t *SymbolTable) UpdateParameterBoundsInGlobal(functionName, paramName string, bounds *ArrayBoundsData) {
	fnSym, ok := t.Global.symbols[functionName]
	if !ok || fnSym.Func == nil {
		return
	}
	for _, p := range fnSym.Func.Parameters {
		if p.Name == paramName && p.Var != nil {
			p.Var.Bounds = bounds.Clone()
			p.Var.Dimensions = bounds.Dimensions()
			p.Var.IsArray = true
			p.Var.HasDynamicSize = bounds.HasDynamicSize()
			p.Var.NeedsTypeDeclaration = false
		}
	}
}

// Lookup searches the current scope and every ancestor, innermost first.
func (t *SymbolTable) Lookup(name string) *Symbol {
	for s := t.Current; s != nil; s = s.Parent {
		if sym, ok := s.symbols[name]; ok {
			return sym
		}
	}
	return nil
}

// LookupCurrentScope restricts the search to the current scope only.
func (t *SymbolTable) LookupCurrentScope(name string) *Symbol {
	if sym, ok := t.Current.symbols[name]; ok {
		return sym
	}
	return nil
}

// LookupGlobal restricts the search to the global scope only.
func (t *SymbolTable) LookupGlobal(name string) *Symbol {
	if sym, ok := t.Global.symbols[name]; ok {
		return sym
	}
	return nil
}

// LookupType restricts the search to type symbols in the global scope.
func (t *SymbolTable) LookupType(name string) *TypeInfo {
	if sym, ok := t.Global.symbols[name]; ok && sym.Kind == SymType {
		return sym.Type
	}
	return nil
}

// LookupParameter finds paramName among functionName's global-scope
// parameter copies — useful once the function's own scope has been popped,
// which is always true by the time the generator runs (spec.md §4.2).
func (t *SymbolTable) LookupParameter(functionName, paramName string) *Symbol {
	fnSym, ok := t.Global.symbols[functionName]
	if !ok || fnSym.Func == nil {
		return nil
	}
	for _, p := range fnSym.Func.Parameters {
		if p.Name == paramName {
			return p
		}
	}
	return nil
}

// LookupLocal finds localName among functionName's global-scope local-variable
// copies — the counterpart to LookupParameter, needed once the function's own
// scope has been popped, which is always true by the time the generator runs
// (spec.md §4.2).
func (t *SymbolTable) LookupLocal(functionName, localName string) *Symbol {
	fnSym, ok := t.Global.symbols[functionName]
	if !ok || fnSym.Func == nil {
		return nil
	}
	for _, l := range fnSym.Func.LocalVariables {
		if l.Name == localName {
			return l
		}
	}
	return nil
}

// DotNodes renders the global scope as a graph suitable for
// diagnostics.WriteDOT, one node per function/procedure/variable/type plus
// one child node per parameter and local variable of each function, the Go
// analogue of generate_symbol_dot in the original C project's debug.c.
func (t *SymbolTable) DotNodes() []diagnostics.DotNode {
	names := make([]string, 0, len(t.Global.symbols))
	for name := range t.Global.symbols {
		names = append(names, name)
	}
	sort.Strings(names)

	var nodes []diagnostics.DotNode
	for _, name := range names {
		sym := t.Global.symbols[name]
		id := dotID(name)
		var children []string
		if sym.Func != nil {
			for _, p := range sym.Func.Parameters {
				pid := dotID(name + "_param_" + p.Name)
				nodes = append(nodes, diagnostics.DotNode{
					ID:    pid,
					Label: fmt.Sprintf("%s\\nparam (%s) %s", p.Name, p.Var.ParamMode, p.Var.Type),
				})
				children = append(children, pid)
			}
			for _, l := range sym.Func.LocalVariables {
				lid := dotID(name + "_local_" + l.Name)
				nodes = append(nodes, diagnostics.DotNode{
					ID:    lid,
					Label: fmt.Sprintf("%s\\nlocal %s", l.Name, l.Var.Type),
				})
				children = append(children, lid)
			}
		}
		nodes = append(nodes, diagnostics.DotNode{
			ID:       id,
			Label:    fmt.Sprintf("%s\\n%s", sym.Name, sym.Kind),
			Children: children,
		})
	}
	return nodes
}

// dotID turns a plike identifier into a syntactically valid Graphviz node ID
// by prefixing it with "sym_"; callers build parameter and local IDs by
// joining names with "_param_"/"_local_", which a global symbol spelled the
// same way would collide with.
func dotID(name string) string {
	return "sym_" + name
}

// String renders a deterministically ordered dump of the global scope, used
// by the -d/--debug symbols dumper.
func (t *SymbolTable) String() string {
	var b strings.Builder
	names := make([]string, 0, len(t.Global.symbols))
	for name := range t.Global.symbols {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sym := t.Global.symbols[name]
		fmt.Fprintf(&b, "%s %s\n", sym.Kind, sym.Name)
		if sym.Func != nil {
			for _, p := range sym.Func.Parameters {
				fmt.Fprintf(&b, "    param %s: %s (%s)\n", p.Name, p.Var.Type, p.Var.ParamMode)
			}
			for _, l := range sym.Func.LocalVariables {
				fmt.Fprintf(&b, "    local %s: %s\n", l.Name, l.Var.Type)
			}
		}
	}
	return b.String()
}
