package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// CodeGen walks a Program's AST and emits portable C source text, consulting
// the SymbolTable (built by the Parser) for the per-function parameter and
// local-variable bounds information the tree itself no longer carries once
// scopes have been popped.
type CodeGen struct {
	syms   *SymbolTable
	cfg    Config
	out    strings.Builder
	indent int

	currentFunction   string
	usedBinaryLiteral bool
}

func NewCodeGen(syms *SymbolTable, cfg Config) *CodeGen {
	return &CodeGen{syms: syms, cfg: cfg}
}

func (cg *CodeGen) line(format string, args ...any) {
	fmt.Fprintf(&cg.out, "%s%s\n", strings.Repeat("    ", cg.indent), fmt.Sprintf(format, args...))
}

func (cg *CodeGen) raw(s string) { cg.out.WriteString(s) }

// Generate produces the full C translation unit for prog.
func (cg *CodeGen) Generate(prog *Program) string {
	cg.emitPreamble(prog)
	for _, decl := range prog.Decls {
		cg.genTopLevel(decl)
	}
	out := cg.out.String()
	if cg.usedBinaryLiteral {
		out = "/* compiled with a binary integer literal; requires a C23 or GNU-extension compiler */\n" + out
	}
	return out
}

func (cg *CodeGen) emitPreamble(prog *Program) {
	cg.line("#include <stdbool.h>")
	cg.line("#include <stdio.h>")
	cg.line("#include <memory.h>")
	cg.raw("\n")
}

func (cg *CodeGen) genTopLevel(decl Stmt) {
	switch d := decl.(type) {
	case *TypeDeclaration:
		cg.genTypeDeclaration(d)
	case *FunctionDecl:
		cg.genFunctionDecl(d)
	default:
		cg.line("/* unsupported top-level declaration */")
	}
	cg.raw("\n")
}

//  types

func cType(name string) string {
	switch strings.ToLower(name) {
	case "integer":
		return "int"
	case "real":
		return "float"
	case "logical":
		return "bool"
	case "character":
		return "char"
	case "":
		return "void"
	default:
		return name
	}
}

func (cg *CodeGen) genTypeDeclaration(td *TypeDeclaration) {
	cg.genRecordType(td.Record)
}

// genRecordType emits nested records depth-first (so a nested anonymous
// record's typedef/struct appears before the struct that embeds it), then
// the record itself. Top-level typedef'd records emit
// "typedef struct name { ... } name;"; nested/non-typedef records emit
// "struct name { ... };" referenced by field declarations as "struct name".
func (cg *CodeGen) genRecordType(rt *RecordType) {
	for _, f := range rt.Fields {
		if f.NestedRecord != nil {
			cg.genRecordType(f.NestedRecord)
		}
	}
	if rt.IsTypedef {
		cg.line("typedef struct %s {", rt.Name)
	} else {
		cg.line("struct %s {", rt.Name)
	}
	cg.indent++
	for _, f := range rt.Fields {
		cg.line("%s;", cg.recordFieldDecl(f))
	}
	cg.indent--
	if rt.IsTypedef {
		cg.line("} %s;", rt.Name)
	} else {
		cg.line("};")
	}
}

func (cg *CodeGen) recordFieldDecl(f RecordField) string {
	var typ string
	if f.NestedRecord != nil {
		typ = "struct " + f.NestedRecord.Name
	} else {
		typ = cType(f.Type)
	}
	typ += strings.Repeat("*", f.PointerLevel)
	if f.IsArray && f.ArrayInfo != nil {
		return fmt.Sprintf("%s %s%s", typ, f.Name, cg.arrayExtentBrackets(f.ArrayInfo.Bounds))
	}
	return fmt.Sprintf("%s %s", typ, f.Name)
}

//  array dimension lowering

func (cg *CodeGen) oneBased() bool { return cg.cfg.Indexing == IndexOneBased }

// dimensionSizeExpr implements spec.md §4.4's array dimension size lowering
// table.
func (cg *CodeGen) dimensionSizeExpr(d DimensionBounds) string {
	one := cg.oneBased()
	if !d.UsingRange {
		if d.Start.IsConstant {
			if one {
				return strconv.FormatInt(d.Start.ConstantValue+1, 10)
			}
			return strconv.FormatInt(d.Start.ConstantValue, 10)
		}
		return d.Start.VariableName
	}
	bothConst := d.Start.IsConstant && d.End.IsConstant
	if bothConst {
		if one {
			return strconv.FormatInt(d.End.ConstantValue-d.Start.ConstantValue+1, 10)
		}
		return strconv.FormatInt(d.End.ConstantValue-d.Start.ConstantValue, 10)
	}
	a, b := cg.boundExpr(d.Start), cg.boundExpr(d.End)
	if one {
		return fmt.Sprintf("(%s) - (%s) + 1", b, a)
	}
	return fmt.Sprintf("(%s) - (%s)", b, a)
}

func (cg *CodeGen) boundExpr(b Bound) string {
	if b.IsConstant {
		return strconv.FormatInt(b.ConstantValue, 10)
	}
	return b.VariableName
}

func (cg *CodeGen) arrayExtentBrackets(bounds *ArrayBoundsData) string {
	if bounds == nil {
		return ""
	}
	var b strings.Builder
	for _, d := range bounds.Bounds {
		fmt.Fprintf(&b, "[%s]", cg.dimensionSizeExpr(d))
	}
	return b.String()
}

func offsetConstName(varName string, dim int) string {
	return fmt.Sprintf("%s_offset_%d", varName, dim)
}

// emitOffsetConstants writes the `const int name_offset_k = ...;` declaration
// for every range-based dimension of bounds.
func (cg *CodeGen) emitOffsetConstants(varName string, bounds *ArrayBoundsData) {
	if bounds == nil {
		return
	}
	one := cg.oneBased()
	for k, d := range bounds.Bounds {
		if !d.UsingRange {
			continue
		}
		shift := 0
		if one {
			shift = 1
		}
		lower := cg.boundExpr(d.Start)
		cg.line("const int %s = %s - %d;", offsetConstName(varName, k), lower, shift)
	}
}

// arrayIndexLowering implements the per-dimension access lowering table.
func (cg *CodeGen) arrayIndexLowering(varName string, bounds *ArrayBoundsData, dim int, indexExpr string) string {
	one := cg.oneBased()
	if bounds == nil || dim >= len(bounds.Bounds) {
		return indexExpr
	}
	d := bounds.Bounds[dim]
	if d.UsingRange {
		off := offsetConstName(varName, dim)
		if one {
			return fmt.Sprintf("(%s - 1 - %s)", indexExpr, off)
		}
		return fmt.Sprintf("(%s - %s)", indexExpr, off)
	}
	if one {
		return fmt.Sprintf("(%s - 1)", indexExpr)
	}
	return indexExpr
}

//  functions

func (cg *CodeGen) genFunctionDecl(fn *FunctionDecl) {
	fnSym := cg.syms.LookupGlobal(fn.Name)
	var params []*Symbol
	var locals []*Symbol
	if fnSym != nil && fnSym.Func != nil {
		params = fnSym.Func.Parameters
		locals = fnSym.Func.LocalVariables
	}

	retType := "void"
	if !fn.IsProcedure && fn.ReturnType != "" {
		retType = cType(fn.ReturnType) + strings.Repeat("*", fn.PointerLevel)
	}

	cg.line("%s %s(%s) {", retType, fn.Name, cg.paramList(params))
	cg.indent++

	prev := cg.currentFunction
	cg.currentFunction = fn.Name

	paramNamedLikeFunction := false
	for _, param := range params {
		if param.Name == fn.Name {
			paramNamedLikeFunction = true
		}
	}
	if !fn.IsProcedure && !fn.HasReturnVar && !paramNamedLikeFunction {
		cg.line("%s %s;", cType(fn.ReturnType)+strings.Repeat("*", fn.PointerLevel), fn.Name)
	}

	for _, param := range params {
		if param.Var != nil && param.Var.IsArray {
			cg.emitOffsetConstants(param.Name, param.Var.Bounds)
		}
	}

	_ = locals // locals are declared in place as VarDecl statements in fn.Body

	cg.genBlock(fn.Body)

	if !fn.IsProcedure && !containsReturn(fn.Body) {
		cg.line("return %s;", fn.Name)
	}

	cg.currentFunction = prev
	cg.indent--
	cg.line("}")
}

func (cg *CodeGen) paramList(params []*Symbol) string {
	parts := make([]string, 0, len(params))
	for _, param := range params {
		parts = append(parts, cg.paramDecl(param))
	}
	return strings.Join(parts, ", ")
}

// paramDecl implements spec.md §4.4's parameter lowering: base type, then an
// extra '*' for a non-array out/inout scalar needing an implicit
// dereference, then declared pointer-level '*'s, then the name and (for
// arrays) the computed extent brackets.
func (cg *CodeGen) paramDecl(param *Symbol) string {
	v := param.Var
	typ := cType(v.Type)
	if v.IsArray {
		typ += strings.Repeat("*", v.PointerLevel)
		return fmt.Sprintf("%s %s%s", typ, param.Name, cg.arrayExtentBrackets(v.Bounds))
	}
	if v.NeedsDeref {
		typ += "*"
	}
	typ += strings.Repeat("*", v.PointerLevel)
	return fmt.Sprintf("%s %s", typ, param.Name)
}

func containsReturn(b *Block) bool {
	for _, s := range b.Stmts {
		if stmtContainsReturn(s) {
			return true
		}
	}
	return false
}

func stmtContainsReturn(s Stmt) bool {
	switch n := s.(type) {
	case *Return:
		return true
	case *If:
		if containsReturn(n.Then) {
			return true
		}
		if n.Else != nil {
			return stmtContainsReturn(n.Else)
		}
		return false
	case *Block:
		return containsReturn(n)
	case *While:
		return containsReturn(n.Body)
	case *For:
		return containsReturn(n.Body)
	case *Repeat:
		return containsReturn(n.Body)
	}
	return false
}

//  statements

func (cg *CodeGen) genBlock(b *Block) {
	for _, s := range b.Stmts {
		cg.genStmt(s)
	}
}

func (cg *CodeGen) genStmt(s Stmt) {
	switch n := s.(type) {
	case *VarDecl:
		cg.genVarDecl(n)
	case *Assignment:
		cg.line("%s = %s;", cg.genLValue(n.Left), cg.genExpr(n.Value))
	case *If:
		cg.genIf(n)
	case *While:
		cg.line("while (%s) {", cg.genExpr(n.Cond))
		cg.indent++
		cg.genBlock(n.Body)
		cg.indent--
		cg.line("}")
	case *For:
		cg.genFor(n)
	case *Repeat:
		cg.line("do {")
		cg.indent++
		cg.genBlock(n.Body)
		cg.indent--
		cg.line("} while (!(%s));", cg.genExpr(n.Until))
	case *Return:
		if n.Value == nil {
			cg.line("return;")
		} else {
			cg.line("return %s;", cg.genExpr(n.Value))
		}
	case *Print:
		cg.genPrint(n)
	case *Read:
		cg.genRead(n)
	case *CallStmt:
		cg.line("%s;", cg.genExpr(n.Call))
	case *exprStmt:
		cg.line("%s;", cg.genExpr(n.Expr))
	case *TypeDeclaration:
		cg.genTypeDeclaration(n)
	default:
		cg.line("/* unsupported statement */")
	}
}

func (cg *CodeGen) genVarDecl(v *VarDecl) {
	typ := cType(v.Type) + strings.Repeat("*", v.PointerLevel)
	if v.IsArray {
		cg.line("%s %s%s;", typ, v.Name, cg.arrayExtentBrackets(v.ArrayInfo.Bounds))
		cg.emitOffsetConstants(v.Name, v.ArrayInfo.Bounds)
		return
	}
	cg.line("%s %s;", typ, v.Name)
}

func (cg *CodeGen) genIf(n *If) {
	cg.line("if (%s) {", cg.genExpr(n.Cond))
	cg.indent++
	cg.genBlock(n.Then)
	cg.indent--
	cg.genElse(n.Else)
}

func (cg *CodeGen) genElse(e Stmt) {
	switch n := e.(type) {
	case nil:
		cg.line("}")
	case *If:
		cg.line("} else if (%s) {", cg.genExpr(n.Cond))
		cg.indent++
		cg.genBlock(n.Then)
		cg.indent--
		cg.genElse(n.Else)
	case *Block:
		cg.line("} else {")
		cg.indent++
		cg.genBlock(n)
		cg.indent--
		cg.line("}")
	default:
		cg.line("}")
	}
}

func (cg *CodeGen) genFor(n *For) {
	step := "1"
	negative := false
	if n.Step != nil {
		step = cg.genExpr(n.Step)
		if lit, ok := n.Step.(*Number); ok && strings.HasPrefix(lit.Lexeme, "-") {
			negative = true
		}
		if u, ok := n.Step.(*UnaryOp); ok && u.Op == MINUS {
			negative = true
		}
	}
	cmp := "<="
	if negative {
		cmp = ">="
	}
	cg.line("for (%s = %s; %s %s %s; %s += %s) {", n.Var, cg.genExpr(n.Init), n.Var, cmp, cg.genExpr(n.End), n.Var, step)
	cg.indent++
	cg.genBlock(n.Body)
	cg.indent--
	cg.line("}")
}

func (cg *CodeGen) genPrint(n *Print) {
	if lit, ok := n.Value.(*StringLit); ok {
		cg.line("printf(%q);", lit.Value+"\n")
		return
	}
	spec := cg.formatSpecifier(n.Value)
	cg.line("printf(\"%s\\n\", %s);", spec, cg.genExpr(n.Value))
}

func (cg *CodeGen) genRead(n *Read) {
	spec := cg.formatSpecifier(n.Target)
	cg.line("scanf(\"%s\", &%s);", spec, cg.genExpr(n.Target))
}

// formatSpecifier chooses printf/scanf's conversion character from the
// expression's resolved symbol type, per spec.md §4.4.
func (cg *CodeGen) formatSpecifier(e Expr) string {
	typ, isArray := cg.exprType(e)
	switch strings.ToLower(typ) {
	case "real":
		return "%f"
	case "character":
		if isArray {
			return "%s"
		}
		return "%c"
	case "logical":
		return "%d"
	default:
		return "%d"
	}
}

func (cg *CodeGen) exprType(e Expr) (typ string, isArray bool) {
	switch n := e.(type) {
	case *Variable:
		sym := cg.syms.Lookup(n.Name)
		if sym == nil {
			sym = cg.syms.LookupParameter(cg.currentFunction, n.Name)
		}
		if sym == nil {
			sym = cg.syms.LookupLocal(cg.currentFunction, n.Name)
		}
		if sym != nil && sym.Var != nil {
			return sym.Var.Type, sym.Var.IsArray
		}
	case *ArrayAccess:
		baseType, _ := cg.exprType(n.Base)
		return baseType, false
	}
	return "integer", false
}

//  expressions

func (cg *CodeGen) genLValue(e Expr) string {
	switch n := e.(type) {
	case *Variable:
		return cg.genVariableRef(n)
	case *ArrayAccess:
		return cg.genArrayAccess(n)
	case *FieldAccess:
		return fmt.Sprintf("%s.%s", cg.genExpr(n.Base), n.Field)
	}
	return cg.genExpr(e)
}

func (cg *CodeGen) genExpr(e Expr) string {
	switch n := e.(type) {
	case *Number:
		return cg.genNumber(n)
	case *Bool:
		if n.Value {
			return "1"
		}
		return "0"
	case *StringLit:
		return strconv.Quote(n.Value)
	case *Identifier:
		return n.Name
	case *Variable:
		return cg.genVariableRef(n)
	case *BinaryOp:
		return fmt.Sprintf("(%s %s %s)", cg.genExpr(n.Left), cOperator(n.Op), cg.genExpr(n.Right))
	case *LogicalOp:
		return fmt.Sprintf("(%s %s %s)", cg.genExpr(n.Left), cOperator(n.Op), cg.genExpr(n.Right))
	case *UnaryOp:
		return cg.genUnary(n)
	case *ArrayAccess:
		return cg.genArrayAccess(n)
	case *FieldAccess:
		return fmt.Sprintf("%s.%s", cg.genExpr(n.Base), n.Field)
	case *Call:
		return cg.genCall(n)
	default:
		return "/* unsupported expression */"
	}
}

// genVariableRef applies implicit/explicit/suppressed dereference to a bare
// variable read or write, per spec.md §4.3's LHS rules and §4.4's assignment
// lowering (the same rule also governs plain reads elsewhere in an
// expression).
func (cg *CodeGen) genVariableRef(v *Variable) string {
	if v.ExplicitDerefN > 0 {
		return strings.Repeat("*", v.ExplicitDerefN) + v.Name
	}
	if v.SuppressDeref {
		return v.Name
	}
	if v.ImplicitDeref {
		return "*" + v.Name
	}
	return v.Name
}

func (cg *CodeGen) genUnary(n *UnaryOp) string {
	switch n.Op {
	case MINUS:
		return fmt.Sprintf("(-%s)", cg.genExpr(n.Right))
	case NOT:
		return fmt.Sprintf("(!%s)", cg.genExpr(n.Right))
	case BITNOT:
		return fmt.Sprintf("(~%s)", cg.genExpr(n.Right))
	case DEREF:
		return fmt.Sprintf("(%s%s)", strings.Repeat("*", n.DerefCount), cg.genExpr(n.Right))
	case ADDR_OF:
		return fmt.Sprintf("(&%s)", cg.genExpr(n.Right))
	}
	return cg.genExpr(n.Right)
}

// genArrayAccess lowers Base[i0][i1]... through the per-dimension offset
// table, using the symbol's declared bounds to resolve each dimension.
func (cg *CodeGen) genArrayAccess(n *ArrayAccess) string {
	name, bounds := cg.resolveArraySymbol(n.Base)
	var b strings.Builder
	b.WriteString(name)
	for i, idx := range n.Indices {
		lowered := cg.arrayIndexLowering(name, bounds, i, cg.genExpr(idx))
		fmt.Fprintf(&b, "[%s]", lowered)
	}
	return b.String()
}

func (cg *CodeGen) resolveArraySymbol(base Expr) (string, *ArrayBoundsData) {
	v, ok := base.(*Variable)
	if !ok {
		return cg.genExpr(base), nil
	}
	sym := cg.syms.Lookup(v.Name)
	if sym == nil {
		sym = cg.syms.LookupParameter(cg.currentFunction, v.Name)
	}
	if sym == nil {
		sym = cg.syms.LookupLocal(cg.currentFunction, v.Name)
	}
	if sym != nil && sym.Var != nil {
		return v.Name, sym.Var.Bounds
	}
	return v.Name, nil
}

// genCall lowers a function/procedure call, prefixing '&' onto arguments
// bound to a non-array out/inout parameter requiring dereference.
func (cg *CodeGen) genCall(n *Call) string {
	fnSym := cg.syms.LookupGlobal(n.Name)
	var params []*Symbol
	if fnSym != nil && fnSym.Func != nil {
		params = fnSym.Func.Parameters
	}
	args := make([]string, len(n.Args))
	for i, arg := range n.Args {
		text := cg.genExpr(arg)
		if i < len(params) && params[i].Var != nil {
			pv := params[i].Var
			if !pv.IsArray && pv.NeedsDeref {
				if v, ok := arg.(*Variable); ok && !v.SuppressDeref && v.ExplicitDerefN == 0 {
					text = "&" + v.Name
				}
			}
		}
		args[i] = text
	}
	return fmt.Sprintf("%s(%s)", n.Name, strings.Join(args, ", "))
}

func cOperator(tt TokenType) string {
	switch tt {
	case PLUS:
		return "+"
	case MINUS:
		return "-"
	case MULTIPLY:
		return "*"
	case DIVIDE:
		return "/"
	case MOD:
		return "%"
	case LT:
		return "<"
	case GT:
		return ">"
	case LE:
		return "<="
	case GE:
		return ">="
	case EQ:
		return "=="
	case NE:
		return "!="
	case AND:
		return "&&"
	case OR:
		return "||"
	case BITAND:
		return "&"
	case BITOR:
		return "|"
	case BITXOR:
		return "^"
	case LSHIFT:
		return "<<"
	case RSHIFT:
		return ">>"
	default:
		return "?"
	}
}

// genNumber implements spec.md §4.4's literal-emission rules: octal "0o.."
// becomes C's "0..", a bare trailing dot gains a "0", hex/binary pass
// through (binary relies on the C23/GNU extension, flagged for the preamble
// comment).
func (cg *CodeGen) genNumber(n *Number) string {
	lexeme := n.Lexeme
	switch {
	case strings.HasPrefix(lexeme, "0o") || strings.HasPrefix(lexeme, "0O"):
		return "0" + lexeme[2:]
	case strings.HasPrefix(lexeme, "0b") || strings.HasPrefix(lexeme, "0B"):
		cg.usedBinaryLiteral = true
		return lexeme
	case n.IsEmptyTrailingDot:
		return lexeme + "0"
	default:
		return lexeme
	}
}
