// Package diagnostics carries compile errors with source positions and
// renders them to the terminal, with ANSI color when stderr supports it.
package diagnostics

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/xyproto/env/v2"
)

// DiagnosticError is a compile error tied to a source line.
type DiagnosticError struct {
	Line    int
	Message string
}

func (e *DiagnosticError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Errorf builds a DiagnosticError with a formatted message.
func Errorf(line int, format string, args ...interface{}) *DiagnosticError {
	return &DiagnosticError{Line: line, Message: fmt.Sprintf(format, args...)}
}

var (
	colorOnce sync.Once
	colorVal  bool
)

func detectColor() bool {
	// NO_COLOR convention: https://no-color.org/
	if env.Has("NO_COLOR") {
		return false
	}
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return false
	}
	if env.Str("TERM") == "dumb" {
		return false
	}
	return true
}

func colorEnabled() bool {
	colorOnce.Do(func() {
		colorVal = detectColor()
	})
	return colorVal
}

// Reporter writes diagnostics to a stream.
type Reporter struct {
	w     io.Writer
	color bool
	count int
}

// NewReporter reports to stderr, colorized when it is a terminal.
func NewReporter() *Reporter {
	return &Reporter{w: os.Stderr, color: colorEnabled()}
}

// NewReporterTo reports to an explicit writer without color. Used by tests.
func NewReporterTo(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Report prints one diagnostic.
func (r *Reporter) Report(err *DiagnosticError) {
	r.count++
	if r.color {
		fmt.Fprintf(r.w, "\x1b[31merror\x1b[0m: %s\n", err.Error())
		return
	}
	fmt.Fprintf(r.w, "error: %s\n", err.Error())
}

// ReportAll prints a batch of diagnostics followed by a summary line.
func (r *Reporter) ReportAll(errs []*DiagnosticError) {
	for _, err := range errs {
		r.Report(err)
	}
	if len(errs) > 0 {
		noun := "errors"
		if len(errs) == 1 {
			noun = "error"
		}
		fmt.Fprintf(r.w, "%d %s\n", len(errs), noun)
	}
}

// Count returns how many diagnostics have been reported.
func (r *Reporter) Count() int { return r.count }

// FormatList joins diagnostics into a single multi-line message.
func FormatList(errs []*DiagnosticError) string {
	var b strings.Builder
	for i, err := range errs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(err.Error())
	}
	return b.String()
}
