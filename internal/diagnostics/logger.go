package diagnostics

import (
	"fmt"
	"io"
	"strings"
)

// VerboseFlags is a bitmask selecting which pipeline stages emit verbose
// trace output, mirroring the original C project's VERBOSE_LEXER /
// VERBOSE_PARSER / ... bitmask (include/logger.h).
type VerboseFlags uint32

const (
	VerboseLexer VerboseFlags = 1 << iota
	VerboseParser
	VerboseAST
	VerboseSymbols
	VerboseCodegen
	VerboseAll VerboseFlags = 0xFFFFFFFF
)

// ParseVerboseFlags parses a comma-separated flag list such as
// "lexer,parser,all" (case-insensitive), the form accepted by the CLI's
// -d/--debug flag per spec.md §6.
func ParseVerboseFlags(csv string) VerboseFlags {
	var flags VerboseFlags
	for _, tok := range strings.Split(csv, ",") {
		switch strings.ToLower(strings.TrimSpace(tok)) {
		case "lexer":
			flags |= VerboseLexer
		case "parser":
			flags |= VerboseParser
		case "ast":
			flags |= VerboseAST
		case "symbols":
			flags |= VerboseSymbols
		case "codegen":
			flags |= VerboseCodegen
		case "all":
			flags |= VerboseAll
		}
	}
	return flags
}

// Logger writes indented, flag-gated trace lines to an io.Writer. A nil
// Logger (the zero value's Out is nil) is silently a no-op, so callers never
// need to guard calls with "if verbose".
type Logger struct {
	Out   io.Writer
	Flags VerboseFlags
}

// NewLogger returns a Logger writing to w, enabled for the given flags.
func NewLogger(w io.Writer, flags VerboseFlags) *Logger {
	return &Logger{Out: w, Flags: flags}
}

func (l *Logger) enabled(flag VerboseFlags) bool {
	return l != nil && l.Out != nil && l.Flags&flag != 0
}

// Logf writes one trace line under the given flag, indented two spaces per
// depth level, if that flag is enabled.
func (l *Logger) Logf(flag VerboseFlags, depth int, format string, args ...any) {
	if !l.enabled(flag) {
		return
	}
	fmt.Fprintf(l.Out, "%s%s\n", strings.Repeat("  ", depth), fmt.Sprintf(format, args...))
}

// EnterBlock and ExitBlock bracket a named region of trace output, matching
// the original C project's log_verbose_enter_block/log_verbose_exit_block.
func (l *Logger) EnterBlock(flag VerboseFlags, depth int, name string) {
	l.Logf(flag, depth, "-> %s", name)
}

func (l *Logger) ExitBlock(flag VerboseFlags, depth int, name string) {
	l.Logf(flag, depth, "<- %s", name)
}
