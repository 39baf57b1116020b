// Package output renders plan progress in the terminal.
//
// The [Printer] writes one verdict line per step ("<description> ... done")
// styled with lipgloss, and hands out [Spinner] values: scoped, live status
// lines shown while a step runs. Tests build a printer with
// [NewPrinterWithWriter] to capture output in a buffer; such printers never
// animate, so everything they write is deterministic.
package output

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	skippedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// Printer writes step verdicts and error messages.
type Printer struct {
	mu      sync.Mutex
	out     io.Writer
	animate bool
}

// NewPrinter creates a Printer on stdout with animated spinners.
func NewPrinter() *Printer {
	return &Printer{out: os.Stdout, animate: true}
}

// NewPrinterWithWriter creates a Printer writing to w. Spinners are not
// animated; they only render when updated.
func NewPrinterWithWriter(w io.Writer) *Printer {
	return &Printer{out: w}
}

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer {
	return p.out
}

// StepDone prints "<description> ... done".
func (p *Printer) StepDone(description string) {
	p.verdict(description, doneStyle.Render("done"))
}

// StepFailed prints "<description> ... failed".
func (p *Printer) StepFailed(description string) {
	p.verdict(description, failedStyle.Render("failed"))
}

// StepSkipped prints "<description> ... skipped".
func (p *Printer) StepSkipped(description string) {
	p.verdict(description, skippedStyle.Render("skipped"))
}

// Error prints a terminal error message.
func (p *Printer) Error(msg string) {
	p.Println(errorStyle.Render("Error: " + msg))
}

// Println writes a plain line.
func (p *Printer) Println(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintln(p.out, line)
}

func (p *Printer) verdict(description, verdict string) {
	p.Println(fmt.Sprintf("%s ... %s", description, verdict))
}

// StartStatus acquires a live status line for description. The caller must
// call [Spinner.Stop] exactly once, typically with defer.
func (p *Printer) StartStatus(description string) *Spinner {
	return newSpinner(p, description)
}
