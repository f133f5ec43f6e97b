package main

import (
	"fmt"
	"io"

	"github.com/chzyer/readline"
)

const prompt = "rqlite> "

// lineWriter writes one line at a time to an underlying writer, the way
// the CLI's result strings are specified: each call is exactly one line
// of output, no trailing blank lines.
type lineWriter struct {
	w io.Writer
}

func (o *lineWriter) Printf(format string, args ...any) {
	fmt.Fprintf(o.w, format+"\n", args...)
}

// Raw writes s verbatim, for multi-line blocks (like a tree dump) that
// already carry their own trailing newlines.
func (o *lineWriter) Raw(s string) {
	fmt.Fprint(o.w, s)
}

// newLineReader wraps chzyer/readline for prompt display, line history,
// and basic editing, in place of a bare bufio.Scanner.
func newLineReader() (*readline.Instance, error) {
	return readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       ".exit",
	})
}
