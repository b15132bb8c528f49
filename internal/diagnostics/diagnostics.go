// Package diagnostics holds the collaborators spec.md §6 keeps out of the
// compilation core: error collection/formatting, verbose logging, and the
// AST/symbol-table debug dumper. pkg/compiler depends on this package through
// the narrow Reporter and Logger interfaces; nothing here imports
// pkg/compiler back.
package diagnostics

import (
	"fmt"
	"strings"
)

// Kind is the taxonomy an error is classified under.
type Kind int

const (
	Lexical Kind = iota
	Syntax
	Semantic
	Type
	Internal
)

func (k Kind) String() string {
	switch k {
	case Lexical:
		return "lexical"
	case Syntax:
		return "syntax"
	case Semantic:
		return "semantic"
	case Type:
		return "type"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// Severity ranks how serious a diagnostic is.
type Severity int

const (
	Warning Severity = iota
	Error
	Fatal
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Location is the minimal position information a Diagnostic needs; it
// mirrors compiler.SourceLocation without importing pkg/compiler.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Diagnostic is one reported problem, carrying enough context to render a
// caret-style message the way the teacher's Parser.fmtError does.
type Diagnostic struct {
	Kind       Kind
	Severity   Severity
	Location   Location
	Message    string
	SourceLine string
}

func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s: %s: %s", d.Location, d.Severity, d.Kind, d.Message)
	if strings.TrimSpace(d.SourceLine) != "" {
		fmt.Fprintf(&b, "\n  |> %s", strings.TrimSpace(d.SourceLine))
	}
	return b.String()
}

// hardCeiling is the number of Error- and Fatal-severity diagnostics
// (warnings are not counted) at which Reporter escalates to a fatal
// short-circuit, avoiding cascade spam per spec.md §7.
const hardCeiling = 200

// Reporter collects diagnostics across a single compilation. It is not
// safe for concurrent use — the pipeline is single-threaded per spec.md §5.
type Reporter struct {
	diags      []Diagnostic
	panicMode  bool
	warnings   int
	errors     int
	fatals     int
}

// NewReporter returns an empty Reporter.
func NewReporter() *Reporter {
	return &Reporter{}
}

// Report records a diagnostic. In panic mode, everything but a Fatal is
// suppressed until EndPanicMode is called, so one syntax mistake does not
// cascade into a wall of follow-on errors (spec.md §7).
func (r *Reporter) Report(d Diagnostic) {
	if r.panicMode && d.Severity != Fatal {
		return
	}
	r.diags = append(r.diags, d)
	switch d.Severity {
	case Warning:
		r.warnings++
	case Error:
		r.errors++
	case Fatal:
		r.fatals++
	}
	if r.errors+r.fatals >= hardCeiling {
		r.diags = append(r.diags, Diagnostic{
			Kind:     Internal,
			Severity: Fatal,
			Location: d.Location,
			Message:  "too many errors, aborting compilation",
		})
		r.fatals++
	}
}

// BeginPanicMode enters parser panic-mode error suppression.
func (r *Reporter) BeginPanicMode() { r.panicMode = true }

// EndPanicMode leaves panic mode, re-enabling error reporting at the next
// synchronization point.
func (r *Reporter) EndPanicMode() { r.panicMode = false }

// InPanicMode reports whether panic-mode suppression is active.
func (r *Reporter) InPanicMode() bool { return r.panicMode }

// HasErrors reports whether any Error- or Fatal-severity diagnostic was
// reported (Warning alone does not block code generation).
func (r *Reporter) HasErrors() bool { return r.errors > 0 || r.fatals > 0 }

// IsFatal reports whether a Fatal diagnostic was reported; the caller should
// stop immediately rather than attempt to synchronize and continue.
func (r *Reporter) IsFatal() bool { return r.fatals > 0 }

// Count returns the total number of diagnostics of all severities reported.
func (r *Reporter) Count() int { return len(r.diags) }

// All returns every diagnostic reported, in report order.
func (r *Reporter) All() []Diagnostic {
	out := make([]Diagnostic, len(r.diags))
	copy(out, r.diags)
	return out
}

// Summary renders the final per-severity count line shown after compilation,
// e.g. "2 errors, 1 warning".
func (r *Reporter) Summary() string {
	parts := make([]string, 0, 3)
	if r.fatals > 0 {
		parts = append(parts, plural(r.fatals, "fatal error"))
	}
	if r.errors > 0 {
		parts = append(parts, plural(r.errors, "error"))
	}
	if r.warnings > 0 {
		parts = append(parts, plural(r.warnings, "warning"))
	}
	if len(parts) == 0 {
		return "no errors"
	}
	return strings.Join(parts, ", ")
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
