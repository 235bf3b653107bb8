// Package ui renders progress, status lines and summaries for the CLI.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/jackzampolin/pdftoc/internal/outline"
)

// Printer writes human-oriented status lines. Messages go to Out; errors
// and warnings go to Err.
type Printer struct {
	Out   io.Writer
	Err   io.Writer
	Quiet bool // suppress Info and Success
}

// NewPrinter creates a printer on stdout/stderr.
func NewPrinter() *Printer {
	return &Printer{Out: os.Stdout, Err: os.Stderr}
}

var (
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	warnColor    = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	stepColor    = color.New(color.FgMagenta, color.Bold)
)

// Success displays a success message.
func (p *Printer) Success(format string, args ...any) {
	if p.Quiet {
		return
	}
	successColor.Fprintf(p.Out, "✓ %s\n", fmt.Sprintf(format, args...))
}

// Error displays an error message to stderr.
func (p *Printer) Error(format string, args ...any) {
	errorColor.Fprintf(p.Err, "✗ %s\n", fmt.Sprintf(format, args...))
}

// Warning displays a warning message to stderr.
func (p *Printer) Warning(format string, args ...any) {
	warnColor.Fprintf(p.Err, "⚠ %s\n", fmt.Sprintf(format, args...))
}

// Info displays an informational message.
func (p *Printer) Info(format string, args ...any) {
	if p.Quiet {
		return
	}
	infoColor.Fprintf(p.Out, "ℹ %s\n", fmt.Sprintf(format, args...))
}

// Step displays a numbered pipeline step header.
func (p *Printer) Step(n, total int, title string) {
	if p.Quiet {
		return
	}
	stepColor.Fprintf(p.Out, "━━━ [%d/%d] %s ━━━\n", n, total, title)
}

// Diagnostics prints up to limit diagnostics (0 = all) by severity and
// notes how many were left out.
func (p *Printer) Diagnostics(diags []outline.Diagnostic, limit int) {
	shown := diags
	if limit > 0 && len(diags) > limit {
		shown = diags[:limit]
	}
	for _, d := range shown {
		switch d.Severity {
		case outline.SeverityError:
			p.Error("%s", d.String())
		case outline.SeverityWarning:
			p.Warning("%s", d.String())
		default:
			p.Info("%s", d.String())
		}
	}
	if rest := len(diags) - len(shown); rest > 0 {
		fmt.Fprintf(p.Err, "  ... and %d more\n", rest)
	}
}
