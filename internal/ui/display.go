package ui

import (
	"io"

	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-isatty"
)

// DefaultTermWidth is the fallback terminal width when detection fails.
const DefaultTermWidth = 120

// DisplayContext holds display parameters for one output stream.
type DisplayContext struct {
	TermWidth int  // detected or fallback terminal width
	IsTTY     bool // whether the stream is a terminal
}

type fdWriter interface {
	Fd() uintptr
}

// NewDisplayContext inspects w. Anything that is not a terminal file gets the
// fallback width and no styling.
func NewDisplayContext(w io.Writer) *DisplayContext {
	d := &DisplayContext{TermWidth: DefaultTermWidth}
	f, ok := w.(fdWriter)
	if !ok {
		return d
	}

	fd := f.Fd()
	d.IsTTY = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	if d.IsTTY {
		if width, _, err := term.GetSize(fd); err == nil && width > 0 {
			d.TermWidth = width
		}
	}
	return d
}

// NewDisplayContextWithWidth creates a DisplayContext with a fixed width (for testing).
func NewDisplayContextWithWidth(width int) *DisplayContext {
	return &DisplayContext{TermWidth: width, IsTTY: true}
}

// Truncate shortens s to fit in width columns, marking the cut with an
// ellipsis in the middle so both ends of a URL stay visible.
func Truncate(s string, width int) string {
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	if width < 5 {
		return string(r[:width])
	}
	head := (width - 1) / 2
	tail := width - 1 - head
	return string(r[:head]) + "…" + string(r[len(r)-tail:])
}
