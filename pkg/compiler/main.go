// Package compiler implements a single-pass transpiler from a Pascal-flavoured
// pedagogical procedural language into portable C.
//
// Pipeline: source text → Lex → Parse (builds the AST and populates the
// symbol table in lockstep) → Generate → C source text.
package compiler
