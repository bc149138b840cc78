// Package progress renders the run as one line per event for a line-buffered
// consumer. No cursor movement, no backpressure: callers read lines as they
// are produced.
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/format"
)

var (
	phaseStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	toolStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	repairStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// maxResultPreview bounds what one result line shows.
const maxResultPreview = 200

// Emitter writes progress lines to a single destination.
type Emitter struct {
	mu sync.Mutex
	w  io.Writer
}

// New creates an Emitter writing to w.
func New(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

func (e *Emitter) line(s string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprintln(e.w, s)
}

// Phase marks a transition between run stages.
func (e *Emitter) Phase(name string) {
	e.line(phaseStyle.Render("== " + name + " =="))
}

// Iteration announces the start of a loop iteration.
func (e *Emitter) Iteration(current, max int) {
	e.line(dimStyle.Render(fmt.Sprintf("-- iteration %d/%d", current, max)))
}

// Plan prints the model's recorded plan.
func (e *Emitter) Plan(steps []string) {
	e.line(phaseStyle.Render("plan:"))
	for i, step := range steps {
		e.line(fmt.Sprintf("  %d. %s", i+1, step))
	}
}

// ToolStart announces a tool invocation.
func (e *Emitter) ToolStart(name string) {
	e.line(toolStyle.Render("-> " + name))
}

// ToolEnd reports a tool result, previewing a bounded slice of the output.
func (e *Emitter) ToolEnd(name string, success bool, detail string) {
	preview := oneLine(format.Truncate(detail, maxResultPreview))
	if success {
		e.line(okStyle.Render("   ok ") + preview)
	} else {
		e.line(failStyle.Render("   fail ") + preview)
	}
}

// Repair reports that a failed tool result was fed back for correction.
func (e *Emitter) Repair(count int) {
	e.line(repairStyle.Render(fmt.Sprintf("   repair #%d", count)))
}

// Summary prints a compact state line.
func (e *Emitter) Summary(s string) {
	e.line(dimStyle.Render(s))
}

// Done reports run completion.
func (e *Emitter) Done(completed bool, result string) {
	if completed {
		e.line(okStyle.Render("done: ") + oneLine(result))
	} else {
		e.line(failStyle.Render("aborted: ") + oneLine(result))
	}
}

// oneLine collapses newlines so every event stays on a single line.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
