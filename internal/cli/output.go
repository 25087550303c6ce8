package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Printer renders status lines in Jenvy's [TAG] style
// (internal/utils/colors.go's ErrorText/SuccessText/InfoText/
// WarningText family), reusing github.com/fatih/color instead of
// Jenvy's own hand-rolled ANSI constants, and honoring NO_COLOR per
// spec §6 by disabling color globally when it is set.
type Printer struct {
	out, err io.Writer

	success *color.Color
	failure *color.Color
	warn    *color.Color
	info    *color.Color
}

// NewPrinter builds a Printer writing status to out and errors to err.
func NewPrinter(out, err io.Writer) *Printer {
	if os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}
	return &Printer{
		out:     out,
		err:     err,
		success: color.New(color.FgHiGreen),
		failure: color.New(color.FgHiRed),
		warn:    color.New(color.FgHiYellow),
		info:    color.New(color.FgHiBlue),
	}
}

func (p *Printer) Success(format string, args ...any) {
	p.success.Fprintln(p.out, "[OK] "+fmt.Sprintf(format, args...))
}

func (p *Printer) Error(format string, args ...any) {
	p.failure.Fprintln(p.err, "[ERROR] "+fmt.Sprintf(format, args...))
}

func (p *Printer) Warn(format string, args ...any) {
	p.warn.Fprintln(p.out, "[WARN] "+fmt.Sprintf(format, args...))
}

func (p *Printer) Info(format string, args ...any) {
	p.info.Fprintln(p.out, "[INFO] "+fmt.Sprintf(format, args...))
}

// Plain writes an uncolored line to stdout, for machine-adjacent output
// (shell snippets, export statements) that must never carry a color code.
func (p *Printer) Plain(format string, args ...any) {
	fmt.Fprintln(p.out, fmt.Sprintf(format, args...))
}
