package compiler

import (
	"github.com/GritHat/plike-translator/internal/diagnostics"
)

// Result is the outcome of a single compilation: the generated C source (when
// compilation succeeded) and the Reporter holding every diagnostic emitted
// along the way.
type Result struct {
	Output  string
	Report  *diagnostics.Reporter
	AST     *Program
	Symbols *SymbolTable
}

// Compile runs the full Lex -> Parse -> Generate pipeline over src. Per
// spec.md §7, code generation is skipped and Output is empty whenever the
// parser reported any Error- or Fatal-severity diagnostic; the Reporter is
// always returned so the caller can print a summary either way.
func Compile(src, file string, cfg Config, logger *diagnostics.Logger) Result {
	rep := diagnostics.NewReporter()

	tokens, err := Lex(src, file, cfg)
	if err != nil {
		rep.Report(diagnostics.Diagnostic{
			Kind:     diagnostics.Lexical,
			Severity: diagnostics.Fatal,
			Location: diagnostics.Location{File: file},
			Message:  err.Error(),
		})
		return Result{Report: rep}
	}
	logger.Logf(diagnostics.VerboseLexer, 0, "lexed %d tokens from %s", len(tokens), file)
	for _, t := range tokens {
		logger.Logf(diagnostics.VerboseLexer, 1, "%s", t)
	}

	syms := NewSymbolTable()
	parser := NewParser(tokens, src, file, cfg, syms, rep)
	logger.EnterBlock(diagnostics.VerboseParser, 0, "parse")
	prog := parser.ParseProgram()
	logger.ExitBlock(diagnostics.VerboseParser, 0, "parse")

	logger.Logf(diagnostics.VerboseAST, 0, "%s", prog)
	if logger != nil && logger.Out != nil && logger.Flags&diagnostics.VerboseAST != 0 {
		diagnostics.DumpAST(logger.Out, file, prog)
	}
	logger.Logf(diagnostics.VerboseSymbols, 0, "%s", syms)
	if logger != nil && logger.Out != nil && logger.Flags&diagnostics.VerboseSymbols != 0 {
		diagnostics.DumpSymbolTable(logger.Out, syms)
	}

	if rep.HasErrors() {
		return Result{Report: rep, AST: prog, Symbols: syms}
	}

	cg := NewCodeGen(syms, cfg)
	logger.EnterBlock(diagnostics.VerboseCodegen, 0, "generate")
	output := cg.Generate(prog)
	logger.ExitBlock(diagnostics.VerboseCodegen, 0, "generate")

	return Result{Output: output, Report: rep, AST: prog, Symbols: syms}
}
