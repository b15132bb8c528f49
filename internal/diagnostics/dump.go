package diagnostics

import (
	"fmt"
	"io"
)

// Stringer is satisfied by any node (AST or symbol table) that already knows
// how to render itself; the dumpers below only add indentation and framing,
// mirroring the original C project's debug.c pretty-printers.
type Stringer interface {
	String() string
}

// DumpAST writes a framed, human-readable rendering of the program tree to w.
func DumpAST(w io.Writer, name string, root Stringer) {
	fmt.Fprintf(w, "=== AST: %s ===\n", name)
	fmt.Fprintln(w, root.String())
	fmt.Fprintln(w, "=== end AST ===")
}

// DumpSymbolTable writes a framed rendering of the global symbol table to w.
func DumpSymbolTable(w io.Writer, table Stringer) {
	fmt.Fprintln(w, "=== symbol table ===")
	fmt.Fprint(w, table.String())
	fmt.Fprintln(w, "=== end symbol table ===")
}

// DotNode is the minimal shape WriteDOT needs from a tree node: a unique ID,
// a display label, and the IDs of its children.
type DotNode struct {
	ID       string
	Label    string
	Children []string
}

// WriteDOT renders nodes as a Graphviz "digraph" for visual AST/symbol-table
// inspection, the Go analogue of the original project's DOT export under
// debug.c.
func WriteDOT(w io.Writer, graphName string, nodes []DotNode) {
	fmt.Fprintf(w, "digraph %s {\n", graphName)
	for _, n := range nodes {
		fmt.Fprintf(w, "  %s [label=%q];\n", n.ID, n.Label)
	}
	for _, n := range nodes {
		for _, c := range n.Children {
			fmt.Fprintf(w, "  %s -> %s;\n", n.ID, c)
		}
	}
	fmt.Fprintln(w, "}")
}
