package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/GritHat/plike-translator/internal/diagnostics"
)

// Parser consumes the flat token slice produced by the Lexer and builds an
// AST while populating a SymbolTable in lockstep.
//
// Grammar, weakest to strongest binding:
//
//	program        = (functionDecl | procedureDecl | typeDecl)* EOF
//	functionDecl   = [type "*"*] "function" IDENT "(" params ")" [":" type "*"*] body
//	procedureDecl  = "procedure" IDENT "(" params ")" body
//	body           = varDecl* "begin" statement* ("end" IDENT | "endfunction" | "endprocedure")
//	varDecl        = "var" IDENT ("," IDENT)* bounds? ":" ["Nd"] ["array" bounds? "of"] type "*"* ";"?
//	typeDecl       = "type" IDENT ":" "record" field* "end" ";"?
//	statement      = ifStmt | whileStmt | forStmt | repeatStmt | returnStmt
//	               | printStmt | readStmt | assignment | callStmt
//	expression     = logicalOr
//	logicalOr      = logicalAnd ("or" logicalAnd)*
//	logicalAnd     = bitwiseOr ("and" bitwiseOr)*
//	bitwiseOr      = bitwiseXor ("|" bitwiseXor)*
//	bitwiseXor     = bitwiseAnd ("^" bitwiseAnd)*
//	bitwiseAnd     = equality ("&" equality)*
//	equality       = relational (("=="|"!="|"eq"|"ne") relational)*
//	relational     = shift (("<"|">"|"<="|">=") shift)*
//	shift          = additive (("<<"|">>") additive)*
//	additive       = multiplicative (("+"|"-") multiplicative)*
//	multiplicative = unary (("*"|"/"|"mod") unary)*
//	unary          = ("-"|"not"|"~"|"*"|"&"|"@") unary | postfix
//	postfix        = primary ("[" expression ("," expression)* "]" | "." IDENT
//	               | "(" expression ("," expression)* ")")*   // "(" only with mixed arrays
//	primary        = NUMBER | "true" | "false" | IDENT ["(" args ")"] | STRING | "(" expression ")"
type Parser struct {
	tokens []Token
	pos    int

	cfg  Config
	syms *SymbolTable
	rep  *diagnostics.Reporter

	raw        []rune
	lineStarts []int
	file       string

	currentFunction    string
	currentIsProcedure bool
	currentReturnType  string

	anonRecordCounter int
	panicking         bool
}

// NewParser builds a Parser over a pre-lexed token stream. rawSource is the
// original source text, kept only for caret-style error snippets and the
// bounded raw-buffer lookahead that counts array dimensions ahead of the
// parser's current token.
func NewParser(tokens []Token, rawSource, file string, cfg Config, syms *SymbolTable, rep *diagnostics.Reporter) *Parser {
	p := &Parser{
		tokens: tokens,
		cfg:    cfg,
		syms:   syms,
		rep:    rep,
		raw:    []rune(rawSource),
		file:   file,
	}
	p.lineStarts = append(p.lineStarts, 0)
	for i, r := range p.raw {
		if r == '\n' {
			p.lineStarts = append(p.lineStarts, i+1)
		}
	}
	return p
}

//  token window

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(offset int) Token {
	if p.pos+offset >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos+offset]
}

func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) check(tt TokenType) bool { return p.peek().Type == tt }

func (p *Parser) match(tt TokenType) bool {
	if p.check(tt) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(tt TokenType) Token {
	tok := p.peek()
	if tok.Type != tt {
		p.errorAt(tok, diagnostics.Syntax, "expected %s, got %s (%q)", tt, tok.Type, tok.Lexeme)
		return tok
	}
	return p.advance()
}

//  error reporting

func (p *Parser) sourceLine(line int) string {
	idx := line - 1
	if idx < 0 {
		return ""
	}
	lines := strings.Split(string(p.raw), "\n")
	if idx >= len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[idx])
}

func (p *Parser) errorAt(tok Token, kind diagnostics.Kind, format string, args ...any) {
	p.report(diagnostics.Error, tok, kind, format, args...)
}

func (p *Parser) warnAt(tok Token, kind diagnostics.Kind, format string, args ...any) {
	p.report(diagnostics.Warning, tok, kind, format, args...)
}

func (p *Parser) report(sev diagnostics.Severity, tok Token, kind diagnostics.Kind, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	p.rep.Report(diagnostics.Diagnostic{
		Kind:     kind,
		Severity: sev,
		Location: diagnostics.Location{File: tok.Location.File, Line: tok.Location.Line, Column: tok.Location.Column},
		Message:  msg,
		SourceLine: p.sourceLine(tok.Location.Line),
	})
	if sev != diagnostics.Warning {
		p.rep.BeginPanicMode()
		p.panicking = true
	}
}

// synchronize discards tokens until a semicolon or a declaration- or
// statement-start keyword, ending panic-mode suppression.
func (p *Parser) synchronize() {
	p.rep.EndPanicMode()
	p.panicking = false
	for !p.check(EOF) {
		if p.peek().Type == SEMICOLON {
			p.advance()
			return
		}
		switch p.peek().Type {
		case FUNCTION, PROCEDURE, TYPE, VAR, IF, WHILE, FOR, REPEAT, RETURN, PRINT, READ, BEGIN:
			return
		}
		p.advance()
	}
}

//  raw-buffer offset helpers (dimension counting)

func (p *Parser) offsetOf(loc SourceLocation) int {
	if loc.Line-1 < 0 || loc.Line-1 >= len(p.lineStarts) {
		return len(p.raw)
	}
	off := p.lineStarts[loc.Line-1] + (loc.Column - 1)
	if off < 0 {
		return 0
	}
	if off > len(p.raw) {
		return len(p.raw)
	}
	return off
}

// countCommaArrayDimensionsAhead counts dimensions written as a single
// bracket pair with comma-separated bounds: "[1..n, 1..m]". When the first
// bracket pair holds no comma it falls back to countArrayDimensionsAhead, so
// the chained form "[1..n][1..m]" is counted too. start must point at the
// opening '[' in the raw buffer. Ground truth:
// original_source/src/core/parser.c: count_comma_array_dimensions_ahead.
func (p *Parser) countCommaArrayDimensionsAhead(start int) int {
	if start >= len(p.raw) || p.raw[start] != '[' {
		return 1
	}
	depth := 0
	commas := 0
	for i := start; i < len(p.raw); i++ {
		switch p.raw[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				if commas == 0 {
					return p.countArrayDimensionsAhead(start)
				}
				return commas + 1
			}
		case ',':
			if depth == 1 {
				commas++
			}
		}
	}
	return commas + 1
}

// countArrayDimensionsAhead counts dimensions written as chained bracket
// pairs: "[1..n][1..m]". start must point at the first '['. Ground truth:
// original_source/src/core/parser.c: count_array_dimensions_ahead.
func (p *Parser) countArrayDimensionsAhead(start int) int {
	i := start
	dims := 0
	for i < len(p.raw) && p.raw[i] == '[' {
		depth := 0
		for i < len(p.raw) {
			if p.raw[i] == '[' {
				depth++
			} else if p.raw[i] == ']' {
				depth--
				if depth == 0 {
					i++
					break
				}
			}
			i++
		}
		dims++
		for i < len(p.raw) && (p.raw[i] == ' ' || p.raw[i] == '\t') {
			i++
		}
	}
	if dims == 0 {
		return 1
	}
	return dims
}

// countArrayTypeDimensionsAhead is countArrayDimensionsAhead's variant for
// the "array [..] of type" declaration form, whose scan is bounded by the
// keyword "of" rather than ':'. Ground truth:
// original_source/src/core/parser.c: count_array_type_dimensions_ahead.
func (p *Parser) countArrayTypeDimensionsAhead(start int) int {
	limit := len(p.raw)
	for i := start; i+1 < len(p.raw); i++ {
		if p.raw[i] == 'o' && p.raw[i+1] == 'f' && (i == start || isWordBoundary(p.raw[i-1])) {
			limit = i
			break
		}
	}
	bounded := p.raw[:limit]
	saved := p.raw
	p.raw = bounded
	dims := p.countArrayDimensionsAhead(start)
	p.raw = saved
	return dims
}

func isWordBoundary(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '['
}

//  bounds parsing

func (p *Parser) parseBoundValue() Bound {
	tok := p.peek()
	if tok.Type == NUMBER {
		p.advance()
		n, err := strconv.ParseInt(tok.Lexeme, 0, 64)
		if err != nil {
			n = 0
		}
		return Bound{IsConstant: true, ConstantValue: n}
	}
	if tok.Type == IDENTIFIER {
		p.advance()
		return Bound{IsConstant: false, VariableName: tok.Lexeme}
	}
	p.errorAt(tok, diagnostics.Syntax, "expected array bound, got %s", tok.Type)
	return Bound{IsConstant: true, ConstantValue: 0}
}

func (p *Parser) parseOneDimensionBounds() DimensionBounds {
	if p.check(RBRACKET) || p.check(COMMA) {
		// empty bound, inferred from the declared type
		return DimensionBounds{}
	}
	start := p.parseBoundValue()
	if p.match(DOTDOT) {
		end := p.parseBoundValue()
		return DimensionBounds{UsingRange: true, Start: start, End: end}
	}
	return DimensionBounds{UsingRange: false, Start: start, End: start}
}

// parseBoundsBracketed parses either the comma form "[b, b, ...]" or the
// chained form "[b][b]..." depending on which the next tokens present,
// producing exactly `dims` DimensionBounds entries.
func (p *Parser) parseBoundsBracketed(dims int) *ArrayBoundsData {
	data := NewArrayBoundsData(dims)
	if !p.check(LBRACKET) {
		return data
	}
	p.advance() // '['
	data.Bounds[0] = p.parseOneDimensionBounds()
	i := 1
	for p.match(COMMA) && i < dims {
		data.Bounds[i] = p.parseOneDimensionBounds()
		i++
	}
	p.expect(RBRACKET)
	for i < dims && p.check(LBRACKET) {
		p.advance()
		data.Bounds[i] = p.parseOneDimensionBounds()
		p.expect(RBRACKET)
		i++
	}
	return data
}

//  expressions

func (p *Parser) parseExpression() Expr { return p.parseLogicalOr() }

func (p *Parser) parseLogicalOr() Expr {
	left := p.parseLogicalAnd()
	for p.check(OR) {
		op := p.advance()
		right := p.parseLogicalAnd()
		left = &LogicalOp{exprBase{op.Location}, OR, left, right}
	}
	return left
}

func (p *Parser) parseLogicalAnd() Expr {
	left := p.parseBitwiseOr()
	for p.check(AND) {
		op := p.advance()
		right := p.parseBitwiseOr()
		left = &LogicalOp{exprBase{op.Location}, AND, left, right}
	}
	return left
}

func (p *Parser) parseBitwiseOr() Expr {
	left := p.parseBitwiseXor()
	for p.check(BITOR) {
		op := p.advance()
		right := p.parseBitwiseXor()
		left = &BinaryOp{exprBase{op.Location}, BITOR, left, right}
	}
	return left
}

func (p *Parser) parseBitwiseXor() Expr {
	left := p.parseBitwiseAnd()
	for p.check(BITXOR) {
		op := p.advance()
		right := p.parseBitwiseAnd()
		left = &BinaryOp{exprBase{op.Location}, BITXOR, left, right}
	}
	return left
}

func (p *Parser) parseBitwiseAnd() Expr {
	left := p.parseEquality()
	for p.check(BITAND) {
		op := p.advance()
		right := p.parseEquality()
		left = &BinaryOp{exprBase{op.Location}, BITAND, left, right}
	}
	return left
}

func (p *Parser) parseEquality() Expr {
	left := p.parseRelational()
	for p.check(EQ) || p.check(NE) {
		op := p.advance()
		right := p.parseRelational()
		left = &BinaryOp{exprBase{op.Location}, op.Type, left, right}
	}
	return left
}

func (p *Parser) parseRelational() Expr {
	left := p.parseShift()
	for p.check(LT) || p.check(GT) || p.check(LE) || p.check(GE) {
		op := p.advance()
		right := p.parseShift()
		left = &BinaryOp{exprBase{op.Location}, op.Type, left, right}
	}
	return left
}

func (p *Parser) parseShift() Expr {
	left := p.parseAdditive()
	for p.check(LSHIFT) || p.check(RSHIFT) {
		op := p.advance()
		right := p.parseAdditive()
		left = &BinaryOp{exprBase{op.Location}, op.Type, left, right}
	}
	return left
}

func (p *Parser) parseAdditive() Expr {
	left := p.parseMultiplicative()
	for p.check(PLUS) || p.check(MINUS) {
		op := p.advance()
		right := p.parseMultiplicative()
		left = &BinaryOp{exprBase{op.Location}, op.Type, left, right}
	}
	return left
}

func (p *Parser) parseMultiplicative() Expr {
	left := p.parseUnary()
	for p.check(MULTIPLY) || p.check(DIVIDE) || p.check(MOD) {
		op := p.advance()
		right := p.parseUnary()
		left = &BinaryOp{exprBase{op.Location}, op.Type, left, right}
	}
	return left
}

func (p *Parser) parseUnary() Expr {
	switch p.peek().Type {
	case MINUS, NOT, BITNOT:
		op := p.advance()
		right := p.parseUnary()
		return &UnaryOp{exprBase{op.Location}, op.Type, right, 0}
	case AT:
		p.advance()
		right := p.parseUnary()
		if v, ok := right.(*Variable); ok {
			v.SuppressDeref = true
			return v
		}
		return right
	case DEREF:
		op := p.advance()
		count := 1
		for p.check(DEREF) {
			p.advance()
			count++
		}
		right := p.parseUnary()
		if v, ok := right.(*Variable); ok {
			v.ExplicitDerefN = count
			return v
		}
		return &UnaryOp{exprBase{op.Location}, DEREF, right, count}
	case ADDR_OF:
		op := p.advance()
		right := p.parseUnary()
		return &UnaryOp{exprBase{op.Location}, ADDR_OF, right, 0}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() Expr {
	expr := p.parsePrimary()
	for {
		switch {
		case p.check(LBRACKET) || (p.cfg.AllowMixedArrays && p.check(LPAREN) && isArrayBase(expr)):
			closeType := RBRACKET
			if p.peek().Type == LPAREN {
				closeType = RPAREN
			}
			p.advance()
			indices := []Expr{p.parseExpression()}
			for p.match(COMMA) {
				indices = append(indices, p.parseExpression())
			}
			p.expect(closeType)
			expr = &ArrayAccess{exprBase{expr.Loc()}, expr, indices}
		case p.check(DOT):
			p.advance()
			name := p.expect(IDENTIFIER)
			expr = &FieldAccess{exprBase{expr.Loc()}, expr, name.Lexeme}
		default:
			return expr
		}
	}
}

func isArrayBase(e Expr) bool {
	_, ok := e.(*Variable)
	return ok
}

func (p *Parser) parsePrimary() Expr {
	tok := p.peek()
	switch tok.Type {
	case NUMBER:
		p.advance()
		isReal, emptyDot := classifyNumber(tok.Lexeme)
		return &Number{exprBase{tok.Location}, tok.Lexeme, isReal, emptyDot}
	case TRUE:
		p.advance()
		return &Bool{exprBase{tok.Location}, true}
	case FALSE:
		p.advance()
		return &Bool{exprBase{tok.Location}, false}
	case STRING:
		p.advance()
		return &StringLit{exprBase{tok.Location}, tok.Lexeme}
	case IDENTIFIER:
		p.advance()
		if p.check(LPAREN) {
			p.advance()
			var args []Expr
			if !p.check(RPAREN) {
				args = append(args, p.parseExpression())
				for p.match(COMMA) {
					args = append(args, p.parseExpression())
				}
			}
			p.expect(RPAREN)
			return &Call{exprBase{tok.Location}, tok.Lexeme, args}
		}
		sym := p.syms.Lookup(tok.Lexeme)
		v := &Variable{exprBase: exprBase{tok.Location}, Name: tok.Lexeme}
		if sym != nil && sym.Var != nil && needsImplicitDeref(sym.Var) {
			v.ImplicitDeref = true
		}
		return v
	case LPAREN:
		p.advance()
		inner := p.parseExpression()
		p.expect(RPAREN)
		return inner
	default:
		p.errorAt(tok, diagnostics.Syntax, "unexpected token %s (%q) in expression", tok.Type, tok.Lexeme)
		p.advance()
		return &Number{exprBase{tok.Location}, "0", false, false}
	}
}

// needsImplicitDeref decides whether a bare read/write of a resolved
// variable must be wrapped in an implicit dereference. Array parameters
// never qualify — Open Question decision 2: the formerly-reachable branch
// for array out/inout parameters is unreachable by construction here,
// because AddParameter/AddArray never set NeedsDeref on an array symbol.
func needsImplicitDeref(v *VariableInfo) bool {
	if v.IsArray {
		return false
	}
	return v.NeedsDeref
}

//  declarations

// ParseProgram is the top-level entry point.
func (p *Parser) ParseProgram() *Program {
	prog := &Program{stmtBase: stmtBase{Location: p.peek().Location}}
	for !p.check(EOF) {
		decl := p.parseTopLevelDecl()
		if decl != nil {
			prog.Decls = append(prog.Decls, decl)
		}
		if p.panicking {
			p.synchronize()
		}
	}
	return prog
}

func (p *Parser) parseTopLevelDecl() Stmt {
	switch {
	case p.check(TYPE):
		return p.parseTypeDeclaration()
	case p.check(FUNCTION):
		return p.parseFunctionDecl(false, "", 0)
	case p.check(PROCEDURE):
		return p.parseFunctionDecl(true, "", 0)
	case isTypeToken(p.peek().Type) && p.peekAt(1).Type == MULTIPLY:
		// type-before-name function returning a pointer, e.g. "integer * function f(...)"
		typ := p.advance()
		ptr := 0
		for p.match(MULTIPLY) {
			ptr++
		}
		p.expect(FUNCTION)
		return p.parseFunctionDecl(false, typeTokenName(typ.Type), ptr)
	case isTypeToken(p.peek().Type) && p.peekAt(1).Type == FUNCTION:
		typ := p.advance()
		p.advance() // FUNCTION
		return p.parseFunctionDecl(false, typeTokenName(typ.Type), 0)
	default:
		tok := p.peek()
		p.errorAt(tok, diagnostics.Syntax, "expected a function, procedure, or type declaration, got %s", tok.Type)
		p.advance()
		return nil
	}
}

func isTypeToken(tt TokenType) bool {
	switch tt {
	case INTEGER_TYPE, REAL_TYPE, LOGICAL_TYPE, CHARACTER_TYPE, IDENTIFIER:
		return true
	}
	return false
}

func typeTokenName(tt TokenType) string {
	switch tt {
	case INTEGER_TYPE:
		return "integer"
	case REAL_TYPE:
		return "real"
	case LOGICAL_TYPE:
		return "logical"
	case CHARACTER_TYPE:
		return "character"
	}
	return ""
}

func (p *Parser) parseTypeDeclaration() Stmt {
	loc := p.advance().Location // TYPE
	name := p.expect(IDENTIFIER)
	p.expect(COLON)
	p.expect(RECORD)
	record := p.parseRecordBody(name.Lexeme, true, loc)
	p.match(SEMICOLON)

	p.syms.AddType(name.Lexeme, recordTypeToTypeInfo(record))
	return &TypeDeclaration{stmtBase{loc}, name.Lexeme, record}
}

func (p *Parser) parseRecordBody(name string, isTypedef bool, loc SourceLocation) *RecordType {
	rt := &RecordType{stmtBase{loc}, name, isTypedef, nil}
	for !p.check(END) && !p.check(EOF) {
		fieldTok := p.expect(IDENTIFIER)
		p.expect(COLON)
		field := RecordField{Name: fieldTok.Lexeme}
		if p.check(RECORD) {
			p.advance()
			p.anonRecordCounter++
			nested := p.parseRecordBody(fmt.Sprintf("record_%d", p.anonRecordCounter), false, fieldTok.Location)
			field.NestedRecord = nested
		} else {
			field.Type, field.PointerLevel, field.IsArray, field.ArrayInfo = p.parseTypeSpec()
		}
		p.match(SEMICOLON)
		rt.Fields = append(rt.Fields, field)
	}
	p.expect(END)
	return rt
}

func recordTypeToTypeInfo(r *RecordType) *TypeInfo {
	ti := &TypeInfo{Name: r.Name, IsTypedef: r.IsTypedef}
	for _, f := range r.Fields {
		rf := RecordFieldData{Name: f.Name, Type: f.Type, PointerLevel: f.PointerLevel, IsArray: f.IsArray}
		if f.ArrayInfo != nil {
			rf.Bounds = f.ArrayInfo.Bounds
		}
		if f.NestedRecord != nil {
			rf.Nested = recordTypeToTypeInfo(f.NestedRecord)
		}
		ti.Fields = append(ti.Fields, rf)
	}
	return ti
}

// parseTypeSpec parses "[Nd] [array bounds? of] type ['*'...]" as used by
// both var declarations and record fields; the leading "Nd" dimension-count
// identifier (e.g. "2d") is consumed and ignored as a hint, relying on the
// bounded lookahead counters for the authoritative dimension count.
func (p *Parser) parseTypeSpec() (typeName string, pointerLevel int, isArray bool, info *ArrayInfo) {
	if p.check(IDENTIFIER) && isDimensionHint(p.peek().Lexeme) {
		p.advance()
	}
	if p.check(ARRAY) {
		p.advance()
		dims := 1
		if p.check(LBRACKET) {
			off := p.offsetOf(p.peek().Location)
			dims = p.countArrayTypeDimensionsAhead(off)
		}
		bounds := p.parseBoundsBracketed(dims)
		p.expect(OF)
		elemType, ptr, _, _ := p.parseTypeSpec()
		return elemType, ptr, true, &ArrayInfo{Dimensions: dims, Bounds: bounds, HasDynamicSize: bounds.HasDynamicSize()}
	}
	typ := p.parseScalarTypeName()
	ptr := 0
	for p.match(MULTIPLY) {
		ptr++
	}
	return typ, ptr, false, nil
}

func isDimensionHint(lexeme string) bool {
	if len(lexeme) < 2 {
		return false
	}
	last := lexeme[len(lexeme)-1]
	if last != 'd' && last != 'D' {
		return false
	}
	for _, c := range lexeme[:len(lexeme)-1] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (p *Parser) parseScalarTypeName() string {
	tok := p.peek()
	switch tok.Type {
	case INTEGER_TYPE, REAL_TYPE, LOGICAL_TYPE, CHARACTER_TYPE:
		p.advance()
		return typeTokenName(tok.Type)
	case IDENTIFIER:
		p.advance()
		return tok.Lexeme
	default:
		p.errorAt(tok, diagnostics.Syntax, "expected a type name, got %s", tok.Type)
		return "integer"
	}
}

// parseFunctionDecl parses both the "function"/"procedure" keyword-first form
// and, via presetType/presetPointer, the type-before-name form.
func (p *Parser) parseFunctionDecl(isProcedure bool, presetType string, presetPointer int) Stmt {
	loc := p.advance().Location // FUNCTION or PROCEDURE
	name := p.expect(IDENTIFIER)

	fn := &FunctionDecl{
		stmtBase:       stmtBase{loc},
		Name:           name.Lexeme,
		IsProcedure:    isProcedure,
		TypeBeforeName: presetType != "",
		ReturnType:     presetType,
		PointerLevel:   presetPointer,
	}

	p.expect(LPAREN)
	fn.Params = p.parseParameterList()
	p.expect(RPAREN)

	if !isProcedure && presetType == "" {
		if p.match(COLON) {
			fn.ReturnType, fn.PointerLevel, _, _ = p.parseTypeSpec()
		} else {
			fn.ReturnType = "integer"
		}
	}

	sym := p.syms.AddFunction(name.Lexeme, fn.ReturnType, isProcedure)
	if sym == nil {
		p.errorAt(name, diagnostics.Semantic, "function or procedure %q already declared", name.Lexeme)
	}

	prevFn, prevProc, prevRet := p.currentFunction, p.currentIsProcedure, p.currentReturnType
	p.currentFunction, p.currentIsProcedure, p.currentReturnType = name.Lexeme, isProcedure, fn.ReturnType

	if !p.syms.EnterFunctionScope(name.Lexeme) {
		p.report(diagnostics.Fatal, name, diagnostics.Internal, "scope nesting too deep")
	}
	p.declareParameters(name.Lexeme, fn.Params)

	fn.Body, fn.HasReturnVar = p.parseFunctionBody(name.Lexeme, fn.ReturnType, fn.Params)

	p.syms.ExitScope()
	p.currentFunction, p.currentIsProcedure, p.currentReturnType = prevFn, prevProc, prevRet

	endName := ""
	switch {
	case p.check(ENDFUNCTION):
		p.advance()
	case p.check(ENDPROCEDURE):
		p.advance()
	case p.check(END):
		p.advance()
		if p.check(IDENTIFIER) {
			endName = p.peek().Lexeme
			p.advance()
		}
	}
	if endName != "" && endName != name.Lexeme {
		p.errorAt(name, diagnostics.Syntax, "mismatched end name: opened %q, closed %q", name.Lexeme, endName)
	}
	p.match(SEMICOLON)
	return fn
}

// declareParameters registers every parameter in the newly entered function
// scope and refreshes the function's global-scope copy once the array,
// bounds and pointer fields are set. Open Question decision 1: if a
// parameter's name collides with the enclosing function's own name, the
// parameter wins: a warning is reported, parseVarDecl skips a `var` of that
// name, and the generator emits no implicit return-slot local for it.
func (p *Parser) declareParameters(functionName string, list *ParameterList) {
	for i := range list.Params {
		param := &list.Params[i]
		if param.Name == functionName {
			p.warnAt(Token{Location: param.Location}, diagnostics.Semantic,
				"parameter %q shadows the implicit return variable of function %q", param.Name, functionName)
		}
		bounds := (*ArrayBoundsData)(nil)
		if param.ArrayInfo != nil {
			bounds = param.ArrayInfo.Bounds
		}
		sym := p.syms.AddParameter(param.Name, param.Type, param.Mode, param.NeedsDeref)
		if sym == nil {
			p.errorAt(Token{Location: param.Location}, diagnostics.Semantic, "duplicate parameter %q", param.Name)
			continue
		}
		sym.Var.IsArray = param.IsArray
		sym.Var.Bounds = bounds.Clone()
		if bounds != nil {
			sym.Var.Dimensions = bounds.Dimensions()
			sym.Var.HasDynamicSize = bounds.HasDynamicSize()
		}
		sym.Var.NeedsTypeDeclaration = param.NeedsTypeDeclaration
		sym.Var.PointerLevel = param.PointerLevel
		sym.Var.IsPointer = param.PointerLevel > 0
		if g := p.syms.LookupParameter(functionName, param.Name); g != nil {
			g.Var = sym.Clone().Var
		}
	}
}

// parseParameterList parses the comma-separated parameter list of a
// function/procedure signature; it does not itself register symbols (that
// happens once the function's own scope is open, in declareParameters).
func (p *Parser) parseParameterList() *ParameterList {
	loc := p.peek().Location
	list := &ParameterList{stmtBase: stmtBase{loc}}
	if p.check(RPAREN) {
		return list
	}
	list.Params = append(list.Params, p.parseParameter())
	for p.match(COMMA) {
		list.Params = append(list.Params, p.parseParameter())
	}
	return list
}

func (p *Parser) parseParameter() Parameter {
	loc := p.peek().Location
	mode := ModeIn
	switch p.peek().Type {
	case IN:
		p.advance()
		p.match(COLON)
	case OUT:
		p.advance()
		p.match(COLON)
		mode = ModeOut
	case INOUT:
		p.advance()
		p.match(COLON)
		mode = ModeInout
	}

	ptrPrefix := 0
	for p.match(MULTIPLY) {
		ptrPrefix++
	}

	name := p.expect(IDENTIFIER)
	param := Parameter{Location: loc, Name: name.Lexeme, Mode: mode, PointerLevel: ptrPrefix}

	if p.check(LBRACKET) {
		off := p.offsetOf(p.peek().Location)
		dims := p.countCommaArrayDimensionsAhead(off)
		param.IsArray = true
		bounds := p.parseBoundsBracketed(dims)
		param.ArrayInfo = &ArrayInfo{Dimensions: dims, Bounds: bounds, HasDynamicSize: bounds.HasDynamicSize()}
	}

	if p.match(COLON) {
		if p.cfg.Params == ParamStyleBody {
			p.warnAt(name, diagnostics.Semantic, "parameter type given in signature under body-style parameter configuration")
		}
		typ, ptr, isArray, info := p.parseTypeSpec()
		param.Type = typ
		param.TypeKnown = true
		param.PointerLevel += ptr
		if isArray {
			param.IsArray = true
			param.ArrayInfo = mergeArrayInfo(param.ArrayInfo, info)
		}
	} else if p.cfg.Params == ParamStyleDecl {
		p.errorAt(name, diagnostics.Syntax, "parameter %q requires a declared type under decl-style parameters", name.Lexeme)
	} else {
		param.NeedsTypeDeclaration = true
	}

	if !param.IsArray && mode != ModeIn {
		param.NeedsDeref = true
	}
	return param
}

func mergeArrayInfo(a, b *ArrayInfo) *ArrayInfo {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.Bounds != nil && b.Bounds != nil {
		for i := range a.Bounds.Bounds {
			if i < len(b.Bounds.Bounds) {
				db := b.Bounds.Bounds[i]
				if db.Start.IsConstant || db.Start.VariableName != "" {
					a.Bounds.Bounds[i] = db
				}
			}
		}
	}
	a.HasDynamicSize = a.Bounds.HasDynamicSize()
	return a
}

// parseFunctionBody parses the var-decl-then-begin-block body shared by
// functions and procedures, reporting whether an explicit `var` matching the
// function's own name was declared (the implicit return slot).
func (p *Parser) parseFunctionBody(name, returnType string, params *ParameterList) (*Block, bool) {
	hasReturnVar := false
	var preStmts []Stmt
	for p.check(VAR) {
		decls, isReturnVar := p.parseVarDecl(name)
		preStmts = append(preStmts, decls...)
		if isReturnVar {
			hasReturnVar = true
		}
	}
	p.expect(BEGIN)
	block := p.parseStatementsUntil(END, ENDFUNCTION, ENDPROCEDURE)
	block.Stmts = append(preStmts, block.Stmts...)
	return block, hasReturnVar
}

// parseVarDecl parses `var n1[, n2, ...][bounds] : type ;` and returns one
// VarDecl per name. functionName, when non-empty, marks the context as a
// function/procedure body so the implicit-return-slot suppression (Open
// Question decision 1) and local-registration apply.
func (p *Parser) parseVarDecl(functionName string) (decls []Stmt, declaredReturnVar bool) {
	p.advance() // VAR
	type pending struct {
		name string
		loc  SourceLocation
	}
	var names []pending
	first := p.expect(IDENTIFIER)
	names = append(names, pending{first.Lexeme, first.Location})
	for p.match(COMMA) {
		n := p.expect(IDENTIFIER)
		names = append(names, pending{n.Lexeme, n.Location})
	}

	var bounds *ArrayBoundsData
	isArrayVar := false
	if p.check(LBRACKET) {
		off := p.offsetOf(p.peek().Location)
		dims := p.countCommaArrayDimensionsAhead(off)
		bounds = p.parseBoundsBracketed(dims)
		isArrayVar = true
	}

	p.expect(COLON)
	typ, ptr, isArrayType, info := p.parseTypeSpec()
	if isArrayType {
		isArrayVar = true
		if bounds == nil {
			bounds = info.Bounds
		} else if info.Bounds != nil {
			bounds = mergeBounds(bounds, info.Bounds)
		}
	}
	p.match(SEMICOLON)

	for _, n := range names {
		if param, isParam := existsAsParamInScope(p.syms, n.name); isParam && param.Var.NeedsTypeDeclaration {
			// Body-style parameter: this `var` supplies its type and bounds.
			param.Var.Type = typ
			param.Var.PointerLevel += ptr
			param.Var.IsPointer = param.Var.PointerLevel > 0
			if isArrayVar {
				param.Var.IsArray, param.Var.NeedsDeref = true, false
				param.Var.Bounds, param.Var.Dimensions = bounds.Clone(), bounds.Dimensions()
				param.Var.HasDynamicSize = bounds.HasDynamicSize()
			}
			if g := p.syms.LookupParameter(functionName, n.name); g != nil {
				g.Var = param.Clone().Var
			}
			continue
		}
		if n.name == functionName {
			if _, isParam := existsAsParamInScope(p.syms, n.name); isParam {
				declaredReturnVar = false
				continue // Open Question decision 1: the parameter already won.
			}
			declaredReturnVar = true
		}
		decl := &VarDecl{
			stmtBase: stmtBase{n.loc},
			Name:     n.name,
			Type:     typ,
			PointerLevel: ptr,
			IsArray:  isArrayVar,
		}
		if isArrayVar {
			decl.ArrayInfo = &ArrayInfo{
				Dimensions:     bounds.Dimensions(),
				Bounds:         bounds.Clone(),
				HasDynamicSize: bounds.HasDynamicSize(),
			}
			sym := p.syms.AddArray(n.name, typ, bounds.Clone())
			if sym == nil {
				p.errorAt(Token{Location: n.loc}, diagnostics.Semantic, "variable %q already declared in this scope", n.name)
			}
		} else {
			sym := p.syms.AddVariable(n.name, typ, false)
			if sym == nil {
				p.errorAt(Token{Location: n.loc}, diagnostics.Semantic, "variable %q already declared in this scope", n.name)
			} else {
				sym.Var.PointerLevel = ptr
				sym.Var.IsPointer = ptr > 0
			}
		}
		decls = append(decls, decl)
	}
	return decls, declaredReturnVar
}

func existsAsParamInScope(t *SymbolTable, name string) (*Symbol, bool) {
	sym := t.LookupCurrentScope(name)
	if sym != nil && sym.Kind == SymParameter {
		return sym, true
	}
	return nil, false
}

func mergeBounds(existing, fromType *ArrayBoundsData) *ArrayBoundsData {
	if existing == nil {
		return fromType
	}
	return existing
}

//  statements

func (p *Parser) parseStatementsUntil(terminators ...TokenType) *Block {
	loc := p.peek().Location
	block := &Block{stmtBase: stmtBase{loc}}
	for !p.check(EOF) && !p.matchesAny(terminators) {
		stmt := p.parseStatement()
		if stmt != nil {
			block.Stmts = append(block.Stmts, stmt)
		}
		if p.panicking {
			p.synchronize()
		}
	}
	return block
}

func (p *Parser) matchesAny(types []TokenType) bool {
	cur := p.peek().Type
	for _, tt := range types {
		if cur == tt {
			return true
		}
	}
	return false
}

func (p *Parser) parseStatement() Stmt {
	switch p.peek().Type {
	case IF:
		return p.parseIf()
	case WHILE:
		return p.parseWhile()
	case FOR:
		return p.parseFor()
	case REPEAT:
		return p.parseRepeat()
	case RETURN:
		return p.parseReturn()
	case PRINT:
		return p.parsePrint()
	case READ:
		return p.parseRead()
	case SEMICOLON:
		p.advance()
		return nil
	default:
		return p.parseAssignmentOrCall()
	}
}

func (p *Parser) parseIf() Stmt {
	loc := p.advance().Location // IF
	cond := p.parseExpression()
	p.expect(THEN)
	then := p.parseStatementsUntil(ELSEIF, ELSE, ENDIF)
	node := &If{stmtBase{loc}, cond, then, nil}
	if p.check(ELSEIF) {
		node.Else = p.parseElseIf()
		return node
	}
	if p.match(ELSE) {
		node.Else = p.parseStatementsUntil(ENDIF)
	}
	p.expect(ENDIF)
	p.match(SEMICOLON)
	return node
}

// parseElseIf builds the nested-If chain for elseif arms; the outermost If's
// ENDIF is consumed once the chain bottoms out.
func (p *Parser) parseElseIf() Stmt {
	loc := p.advance().Location // ELSEIF
	cond := p.parseExpression()
	p.expect(THEN)
	then := p.parseStatementsUntil(ELSEIF, ELSE, ENDIF)
	node := &If{stmtBase{loc}, cond, then, nil}
	if p.check(ELSEIF) {
		node.Else = p.parseElseIf()
		return node
	}
	if p.match(ELSE) {
		node.Else = p.parseStatementsUntil(ENDIF)
	}
	p.expect(ENDIF)
	p.match(SEMICOLON)
	return node
}

func (p *Parser) parseWhile() Stmt {
	loc := p.advance().Location
	cond := p.parseExpression()
	p.expect(DO)
	body := p.parseStatementsUntil(ENDWHILE)
	p.expect(ENDWHILE)
	p.match(SEMICOLON)
	return &While{stmtBase{loc}, cond, body}
}

func (p *Parser) parseFor() Stmt {
	loc := p.advance().Location
	v := p.expect(IDENTIFIER)
	p.expect(ASSIGN)
	init := p.parseExpression()
	p.expect(TO)
	end := p.parseExpression()
	var step Expr
	if p.match(STEP) {
		step = p.parseExpression()
	}
	p.expect(DO)
	body := p.parseStatementsUntil(ENDFOR)
	p.expect(ENDFOR)
	p.match(SEMICOLON)
	return &For{stmtBase{loc}, v.Lexeme, init, end, step, body}
}

func (p *Parser) parseRepeat() Stmt {
	loc := p.advance().Location
	body := p.parseStatementsUntil(UNTIL)
	p.expect(UNTIL)
	until := p.parseExpression()
	p.match(SEMICOLON)
	return &Repeat{stmtBase{loc}, body, until}
}

func (p *Parser) parseReturn() Stmt {
	loc := p.advance().Location
	var val Expr
	if !p.check(SEMICOLON) && !p.check(END) && !p.check(ENDFUNCTION) && !p.check(ENDPROCEDURE) &&
		!p.check(ELSE) && !p.check(ELSEIF) && !p.check(ENDIF) && !p.check(ENDWHILE) && !p.check(ENDFOR) && !p.check(UNTIL) {
		val = p.parseExpression()
	}
	p.match(SEMICOLON)
	return &Return{stmtBase{loc}, val}
}

func (p *Parser) parsePrint() Stmt {
	loc := p.advance().Location
	val := p.parseExpression()
	p.match(SEMICOLON)
	return &Print{stmtBase{loc}, val}
}

func (p *Parser) parseRead() Stmt {
	loc := p.advance().Location
	target := p.parseExpression()
	p.match(SEMICOLON)
	return &Read{stmtBase{loc}, target}
}

// parseAssignmentOrCall handles the LHS '@'/explicit-deref prefix rules,
// then decides between an assignment and a bare call statement.
func (p *Parser) parseAssignmentOrCall() Stmt {
	loc := p.peek().Location
	suppress := false
	derefCount := 0
	if p.match(AT) {
		suppress = true
	} else {
		for p.match(DEREF) {
			derefCount++
		}
	}

	expr := p.parsePostfixFromIdentifier()
	if v, ok := expr.(*Variable); ok {
		if suppress {
			v.SuppressDeref = true
		}
		if derefCount > 0 {
			v.ExplicitDerefN = derefCount
		}
	}

	if p.match(ASSIGN) {
		value := p.parseExpression()
		p.match(SEMICOLON)
		return &Assignment{stmtBase{loc}, expr, value}
	}

	if call, ok := expr.(*Call); ok {
		p.match(SEMICOLON)
		return &CallStmt{stmtBase{loc}, call}
	}

	p.errorAt(p.peek(), diagnostics.Syntax, "expected ':=' or end of statement, got %s", p.peek().Type)
	p.match(SEMICOLON)
	return ExprStmtWrapper(loc, expr)
}

// parsePostfixFromIdentifier re-enters postfix/primary parsing for an
// assignment or call statement's leading expression (shared with
// parsePostfix's machinery).
func (p *Parser) parsePostfixFromIdentifier() Expr {
	return p.parsePostfix()
}

func ExprStmtWrapper(loc SourceLocation, e Expr) Stmt {
	return &exprStmt{stmtBase{loc}, e}
}

type exprStmt struct {
	stmtBase
	Expr Expr
}

func (e *exprStmt) String() string { return "ExprStmt(" + e.Expr.String() + ")" }
