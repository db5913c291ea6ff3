// Package repl is the interactive line-at-a-time driver (SPEC_FULL.md
// §6/§2): lexes, parses, and evaluates each line against a persistent
// Context so variables and routine definitions survive across lines,
// printing errors as "<kind>: <message>" (spec.md §7) instead of
// aborting the session.
//
// Grounded on the teacher's internal/repl/repl.go loop (scan a line,
// compile, run against a live VM), adapted from a per-line fresh
// compile+reset to a persistent tree-walking Evaluator/Context, since
// this interpreter has no bytecode chunk to swap.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"xdl/internal/context"
	"xdl/internal/eval"
	"xdl/internal/lexer"
	"xdl/internal/parser"
)

// Options configures one REPL session.
type Options struct {
	In  io.Reader
	Out io.Writer
}

func DefaultOptions() Options {
	return Options{In: os.Stdin, Out: os.Stdout}
}

// Start runs an interactive read-eval-print loop until EOF or a bare
// "exit"/"quit" line, matching the teacher's loop shape.
func Start(opts Options) {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	colorized := false
	if f, ok := opts.In.(*os.File); ok {
		colorized = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	fmt.Fprintln(opts.Out, "xdl REPL | type 'exit' to quit")
	scanner := bufio.NewScanner(opts.In)

	ctx := context.New()
	ev := eval.New(ctx, opts.Out)

	for {
		if colorized {
			fmt.Fprint(opts.Out, "\033[36mxdl>\033[0m ")
		} else {
			fmt.Fprint(opts.Out, "xdl> ")
		}
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if line == "exit" || line == "quit" {
			break
		}
		if line == "" {
			continue
		}
		runLine(ev, line, opts.Out, colorized)
	}
}

func runLine(ev *eval.Evaluator, line string, out io.Writer, colorized bool) {
	tokens := lexer.NewScanner(line).ScanTokens()
	p := parser.NewParser(tokens)
	prog := p.Parse()
	if len(p.Errors) > 0 {
		for _, e := range p.Errors {
			printErr(out, fmt.Sprintf("ParseError: %v", e), colorized)
		}
		return
	}
	if err := ev.Run(prog); err != nil {
		if _, ok := err.(eval.ExitSignal); ok {
			return
		}
		printErr(out, err.Error(), colorized)
	}
}

func printErr(out io.Writer, msg string, colorized bool) {
	if colorized {
		fmt.Fprintf(out, "\033[31m%s\033[0m\n", msg)
	} else {
		fmt.Fprintln(out, msg)
	}
}

// RunFile evaluates an entire source file's program in one shot (batch
// mode), returning the first error encountered, if any.
func RunFile(path string, out io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	tokens := lexer.NewScanner(string(data)).ScanTokens()
	p := parser.NewParser(tokens)
	prog := p.Parse()
	if len(p.Errors) > 0 {
		return fmt.Errorf("parse error: %v", p.Errors[0])
	}
	ctx := context.New()
	ev := eval.New(ctx, out)
	if err := ev.Run(prog); err != nil {
		if _, ok := err.(eval.ExitSignal); ok {
			return nil
		}
		return err
	}
	return nil
}
