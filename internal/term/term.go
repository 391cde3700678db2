// SPDX-License-Identifier: Apache-2.0

// Package term colours command output when it is written to a terminal.
package term

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// ColorMode controls when output is coloured. It implements [flag.Value].
type ColorMode int

const (
	// ColorAuto colours output written to a terminal (default behavior).
	ColorAuto ColorMode = iota
	// ColorAlways colours output unconditionally.
	ColorAlways
	// ColorNever disables colour.
	ColorNever
)

func (m *ColorMode) String() string {
	if m == nil {
		return "auto"
	}
	switch *m {
	case ColorAuto:
		return "auto"
	case ColorAlways:
		return "always"
	case ColorNever:
		return "never"
	default:
		return fmt.Sprintf("ColorMode(%d)", int(*m))
	}
}

func (m *ColorMode) Set(value string) error {
	switch value {
	case "", "auto":
		*m = ColorAuto
	case "always":
		*m = ColorAlways
	case "never":
		*m = ColorNever
	default:
		return fmt.Errorf("color mode %q is invalid", value)
	}
	return nil
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Painter wraps text in the colours used for status output.
type Painter struct {
	pass  *color.Color
	fail  *color.Color
	warn  *color.Color
	faint *color.Color
}

// NewPainter returns a Painter for output written to w.
// In [ColorAuto] mode colour is used only if w is a terminal and NO_COLOR is unset.
func NewPainter(w io.Writer, mode ColorMode) *Painter {
	enabled := false
	switch mode {
	case ColorAlways:
		enabled = true
	case ColorAuto:
		enabled = os.Getenv("NO_COLOR") == "" && IsTerminal(w)
	}

	return &Painter{
		pass:  newColor(enabled, color.FgGreen, color.Bold),
		fail:  newColor(enabled, color.FgRed, color.Bold),
		warn:  newColor(enabled, color.FgYellow),
		faint: newColor(enabled, color.Faint),
	}
}

func newColor(enabled bool, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if enabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

func (p *Painter) Pass(s string) string  { return p.pass.Sprint(s) }
func (p *Painter) Fail(s string) string  { return p.fail.Sprint(s) }
func (p *Painter) Warn(s string) string  { return p.warn.Sprint(s) }
func (p *Painter) Faint(s string) string { return p.faint.Sprint(s) }
