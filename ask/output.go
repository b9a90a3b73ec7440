package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// console writes the answer stream and status lines to stdout.
// On a terminal, status lines are coloured and always start on a fresh line.
// Redirected output is written byte for byte.
type console struct {
	w    io.Writer
	tty  bool
	last byte

	warn *color.Color
	fail *color.Color
}

func newConsole(f *os.File) *console {
	return newConsoleWriter(f, term.IsTerminal(int(f.Fd())))
}

func newConsoleWriter(w io.Writer, tty bool) *console {
	c := &console{
		w:    w,
		tty:  tty,
		warn: color.New(color.FgYellow),
		fail: color.New(color.FgRed),
	}
	if !tty {
		c.warn.DisableColor()
		c.fail.DisableColor()
	} else {
		c.warn.EnableColor()
		c.fail.EnableColor()
	}
	return c
}

// Write passes answer fragments through unchanged.
func (c *console) Write(p []byte) (int, error) {
	if len(p) > 0 {
		c.last = p[len(p)-1]
	}
	return c.w.Write(p)
}

// Println writes a plain status line.
func (c *console) Println(s string) {
	c.breakLine()
	fmt.Fprintln(c, s)
}

// Warnf writes a warning line.
func (c *console) Warnf(format string, args ...any) {
	c.breakLine()
	c.warn.Fprintf(c, format, args...)
	fmt.Fprintln(c)
}

// Errorf writes an error line.
func (c *console) Errorf(format string, args ...any) {
	c.breakLine()
	c.fail.Fprintf(c, format, args...)
	fmt.Fprintln(c)
}

// EndAnswer terminates a streamed answer with a newline on a terminal so the
// shell prompt does not run into it.
func (c *console) EndAnswer() {
	c.breakLine()
}

func (c *console) breakLine() {
	if c.tty && c.last != 0 && c.last != '\n' {
		fmt.Fprintln(c)
	}
}
