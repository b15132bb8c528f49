// Command plikec translates a single source file written in the
// Pascal-flavoured pedagogical language into portable C.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/GritHat/plike-translator/internal/diagnostics"
	"github.com/GritHat/plike-translator/pkg/compiler"
	"github.com/GritHat/plike-translator/pkg/utils"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("plikec", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var assignment, indexing, params, operators, debug string
	var mixedArrays, verbose, help bool

	fs.StringVar(&assignment, "assignment", "colon-equals", "assignment operator: colon-equals|equals")
	fs.StringVar(&assignment, "a", "colon-equals", "shorthand for --assignment")
	fs.StringVar(&indexing, "indexing", "zero", "array indexing base: zero|one")
	fs.StringVar(&indexing, "i", "zero", "shorthand for --indexing")
	fs.StringVar(&params, "params", "decl", "parameter type placement: decl|body|mixed")
	fs.StringVar(&params, "p", "decl", "shorthand for --params")
	fs.StringVar(&operators, "operators", "standard", "operator keyword table: standard|dotted|mixed")
	fs.StringVar(&operators, "o", "standard", "shorthand for --operators")
	fs.BoolVar(&mixedArrays, "mixed-arrays", false, "allow () as an array subscript")
	fs.BoolVar(&mixedArrays, "m", false, "shorthand for --mixed-arrays")
	fs.StringVar(&debug, "debug", "", "csv of lexer,parser,ast,symbols,codegen,all")
	fs.StringVar(&debug, "d", "", "shorthand for --debug")
	fs.BoolVar(&verbose, "verbose", false, "enable verbose logging")
	fs.BoolVar(&verbose, "v", false, "shorthand for --verbose")
	fs.BoolVar(&help, "help", false, "print usage and exit")
	fs.BoolVar(&help, "h", false, "shorthand for --help")

	fs.Usage = func() { printUsage(fs) }

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if help {
		printUsage(fs)
		return 0
	}

	rest := fs.Args()
	if len(rest) < 1 {
		printUsage(fs)
		return 1
	}
	inputPath := rest[0]

	cfg, err := buildConfig(assignment, indexing, params, operators, mixedArrays)
	if err != nil {
		fmt.Fprintln(os.Stderr, "plikec:", err)
		return 1
	}

	fullPath, _, err := utils.GetPathInfo(inputPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "plikec:", err)
		return 1
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "plikec:", err)
		return 1
	}

	flags := diagnostics.ParseVerboseFlags(debug)
	if verbose {
		flags |= diagnostics.VerboseAll
	}
	logger := diagnostics.NewLogger(os.Stderr, flags)

	result := compiler.Compile(string(data), inputPath, cfg, logger)

	if flags&diagnostics.VerboseSymbols != 0 && result.Symbols != nil {
		dotPath := inputPath + ".symbols.dot"
		if err := writeDotFile(dotPath, "symbols", result.Symbols.DotNodes()); err != nil {
			fmt.Fprintln(os.Stderr, "plikec:", err)
		}
	}

	for _, d := range result.Report.All() {
		fmt.Fprintln(os.Stderr, d)
	}
	fmt.Fprintln(os.Stderr, "plikec:", result.Report.Summary())

	if result.Report.HasErrors() {
		return 1
	}

	if len(rest) >= 2 {
		if err := os.WriteFile(rest[1], []byte(result.Output), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, "plikec:", err)
			return 1
		}
	} else {
		fmt.Print(result.Output)
	}
	return 0
}

func buildConfig(assignment, indexing, params, operators string, mixedArrays bool) (compiler.Config, error) {
	cfg := compiler.DefaultConfig()
	switch assignment {
	case "colon-equals":
		cfg.Assignment = compiler.AssignColonEquals
	case "equals":
		cfg.Assignment = compiler.AssignEquals
	default:
		return cfg, fmt.Errorf("unknown --assignment value %q", assignment)
	}
	switch indexing {
	case "zero":
		cfg.Indexing = compiler.IndexZeroBased
	case "one":
		cfg.Indexing = compiler.IndexOneBased
	default:
		return cfg, fmt.Errorf("unknown --indexing value %q", indexing)
	}
	switch params {
	case "decl":
		cfg.Params = compiler.ParamStyleDecl
	case "body":
		cfg.Params = compiler.ParamStyleBody
	case "mixed":
		cfg.Params = compiler.ParamStyleMixed
	default:
		return cfg, fmt.Errorf("unknown --params value %q", params)
	}
	switch operators {
	case "standard":
		cfg.Operators = compiler.OpStyleStandard
	case "dotted":
		cfg.Operators = compiler.OpStyleDotted
	case "mixed":
		cfg.Operators = compiler.OpStyleMixed
	default:
		return cfg, fmt.Errorf("unknown --operators value %q", operators)
	}
	cfg.AllowMixedArrays = mixedArrays
	return cfg, nil
}

// writeDotFile renders nodes as a Graphviz digraph to path, the Go analogue
// of the original project's debug_visualize_symbol_table writing a .dot file
// under visualize/.
func writeDotFile(path, graphName string, nodes []diagnostics.DotNode) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	diagnostics.WriteDOT(f, graphName, nodes)
	return nil
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintln(os.Stderr, "usage: plikec [options] input_file [output_file]")
	fs.PrintDefaults()
}
