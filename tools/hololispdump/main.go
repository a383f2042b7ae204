// Command hololispdump compiles a hololisp source file and prints its
// bytecode, constant pool, and diagnostics without running it,
// useful for inspecting what the compiler produced for a given form.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"

	"github.com/holodome/hololisp"
	"github.com/holodome/hololisp/internal/ascii"
)

func main() {
	path := flag.String("file", "", "path to a hololisp source file")
	dumpConstants := flag.Bool("constants", true, "spew.Dump each chunk's constant pool")
	noColor := flag.Bool("no-color", os.Getenv("NO_COLOR") != "", "disable ANSI colors")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "usage: hololispdump -file path/to/source.hl")
		os.Exit(2)
	}

	source, err := os.ReadFile(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	vm := hololisp.MakeVM(hololisp.NewConfig())
	chunks, diags := hololisp.CompileAll(vm, source, *path)

	theme := ascii.DefaultTheme
	colorize := func(color, format string, args ...any) string {
		if *noColor {
			return fmt.Sprintf(format, args...)
		}
		return ascii.Color(color, format, args...)
	}

	for i, chunk := range chunks {
		fmt.Printf(colorize(theme.Accent, "--- form %d ---", i) + "\n")
		for _, line := range hololisp.Disassemble(chunk) {
			fmt.Println(line)
		}
		if *dumpConstants && len(chunk.Constants) > 0 {
			fmt.Println(colorize(theme.Muted, "constants:"))
			spewCfg := spew.ConfigState{Indent: "  ", DisableMethods: true, DisablePointerAddresses: true}
			for j, c := range chunk.Constants {
				fmt.Printf("  [%d] %s\n", j, hololisp.FormatValue(c))
				spewCfg.Dump(c)
			}
		}
	}

	for _, d := range diags {
		fmt.Fprintln(os.Stderr, colorize(theme.Error, "[%s] offset %d: %s", d.Kind, d.Offset, d.Message))
	}
	if len(diags) > 0 {
		os.Exit(1)
	}
}
