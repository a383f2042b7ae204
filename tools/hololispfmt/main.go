// Command hololispfmt re-indents a hololisp source file by paren
// nesting depth. It never joins or splits a line the author chose;
// it only rewrites each line's leading whitespace and collapses
// redundant spacing between tokens on the same line.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/holodome/hololisp"
)

const indentWidth = 2

func main() {
	path := flag.String("file", "", "path to a hololisp source file to format")
	write := flag.Bool("w", false, "write the result back to the file instead of stdout")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "usage: hololispfmt -file path/to/source.hl [-w]")
		os.Exit(2)
	}

	source, err := os.ReadFile(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	out := Format(source)

	if *write {
		if err := os.WriteFile(*path, []byte(out), 0644); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}
	fmt.Print(out)
}

// Format reads source with comments surfaced as tokens (the use case
// Lexer.EmitComments exists for) and re-emits it with indentation
// tracking paren depth.
func Format(source []byte) string {
	lex := hololisp.NewLexer(source)
	lex.EmitComments = true
	lines := hololisp.NewLineIndex(source)

	var b strings.Builder
	depth := 0
	lastLine := 0
	suppressSpace := false

	for {
		tok, _ := lex.Peek()
		if tok.Kind == hololisp.TokEOF {
			break
		}
		line, _ := lines.LineColumn(tok.Offset)

		if tok.Kind == hololisp.TokRParen && depth > 0 {
			depth--
		}

		switch {
		case lastLine == 0:
		case line != lastLine:
			b.WriteByte('\n')
			for i := 0; i < depth*indentWidth; i++ {
				b.WriteByte(' ')
			}
		case !suppressSpace:
			b.WriteByte(' ')
		}

		b.Write(source[tok.Offset : tok.Offset+tok.Length])

		if tok.Kind == hololisp.TokLParen {
			depth++
		}
		suppressSpace = tok.Kind == hololisp.TokLParen || tok.Kind == hololisp.TokQuote
		lastLine = line
		lex.Eat()
	}
	b.WriteByte('\n')
	return b.String()
}
