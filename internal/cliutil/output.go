package cliutil

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Printer writes the supervisor's own status lines. Child output never goes
// through it; the child's streams are wired straight to the terminal.
type Printer struct {
	out    io.Writer
	errOut io.Writer

	green  *color.Color
	yellow *color.Color
	red    *color.Color
}

// NewPrinter constructs a printer for the given streams. Color is enabled
// only when the output stream is a terminal.
func NewPrinter(out, errOut io.Writer) *Printer {
	p := &Printer{
		out:    out,
		errOut: errOut,
		green:  color.New(color.FgGreen),
		yellow: color.New(color.FgYellow),
		red:    color.New(color.FgRed),
	}
	if !IsTerminal(out) {
		p.green.DisableColor()
		p.yellow.DisableColor()
		p.red.DisableColor()
	}
	return p
}

// Infof writes a plain status line to stdout.
func (p *Printer) Infof(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Successf writes a green status line to stdout.
func (p *Printer) Successf(format string, args ...any) {
	fmt.Fprintln(p.out, p.green.Sprintf(format, args...))
}

// Warnf writes a yellow status line to stdout.
func (p *Printer) Warnf(format string, args ...any) {
	fmt.Fprintln(p.out, p.yellow.Sprintf(format, args...))
}

// Errorf writes a red diagnostic line to stderr.
func (p *Printer) Errorf(format string, args ...any) {
	fmt.Fprintln(p.errOut, p.red.Sprintf(format, args...))
}

// IsTerminal reports whether w is backed by a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
