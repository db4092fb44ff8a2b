// Package progress renders the advancement of a long-running job as a
// terminal screen, as plain text lines, or not at all.
package progress

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

// Display modes.
const (
	ModeAuto  = "auto"
	ModeTUI   = "tui"
	ModePlain = "plain"
	ModeNone  = "none"
)

// ErrCancelled is returned when the user quits the screen before the job ends.
var ErrCancelled = errors.New("cancelled")

// Func receives progress updates. It may be called from any goroutine.
type Func func(done, total int)

// Resolve turns ModeAuto into ModeTUI when w is a terminal and ModePlain
// otherwise. Other modes are returned unchanged.
func Resolve(mode string, w io.Writer) string {
	if mode != ModeAuto && mode != "" {
		return mode
	}
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return ModeTUI
	}
	return ModePlain
}

// Run executes job and renders its progress on w in the given mode. The
// returned error is the job's, or ErrCancelled.
//
// Cancelling from the screen only closes the display: Run returns
// ErrCancelled at once but job is not interrupted and keeps running in its
// goroutine until it finishes or the process exits. Callers are expected to
// exit on ErrCancelled.
func Run(mode string, w io.Writer, title string, job func(report Func) error) error {
	switch Resolve(mode, w) {
	case ModeTUI:
		return runScreen(w, title, job)
	case ModeNone:
		return job(func(int, int) {})
	default:
		return job(newPlain(w, title).report)
	}
}

func runScreen(w io.Writer, title string, job func(report Func) error) error {
	p := tea.NewProgram(newModel(title), tea.WithOutput(w))

	go func() {
		err := job(func(done, total int) {
			p.Send(progressMsg{done: done, total: total})
		})
		p.Send(doneMsg{err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("progress screen: %w", err)
	}
	m := final.(*model)
	if m.cancelled {
		return ErrCancelled
	}
	return m.err
}

// plain prints one line per tenth of the work and one at the end.
type plain struct {
	mu       sync.Mutex
	w        io.Writer
	title    string
	lastStep int
}

func newPlain(w io.Writer, title string) *plain {
	return &plain{w: w, title: title}
}

func (p *plain) report(done, total int) {
	if total <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	step := done * 10 / total
	if step == p.lastStep && done != total {
		return
	}
	if done == total && p.lastStep == 10 {
		return
	}
	p.lastStep = step
	_, _ = fmt.Fprintf(p.w, "%s: %d/%d (%d%%)\n", p.title, done, total, done*100/total)
}
