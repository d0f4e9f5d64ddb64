// Package console renders user-facing output for the updater.
//
// A Presenter carries the output writer and highlight styles, so nothing
// in the program touches process-wide color state and tests can capture
// plain output. A Confirmer abstracts the blocking stdin confirmation.
package console

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	cCyan  = lipgloss.Color("6")
	cGreen = lipgloss.Color("2")

	styleInstalled = lipgloss.NewStyle().Foreground(cCyan)
	styleLatest    = lipgloss.NewStyle().Foreground(cGreen)
)

// Presenter writes user-facing lines, optionally with color highlights.
type Presenter struct {
	out     io.Writer
	colored bool
}

// NewPresenter returns a presenter writing to out.
// With colored false every highlight degrades to plain text.
func NewPresenter(out io.Writer, colored bool) *Presenter {
	return &Presenter{out: out, colored: colored}
}

// Printf writes a formatted line fragment.
func (p *Presenter) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}

// Println writes its arguments followed by a newline.
func (p *Presenter) Println(args ...any) {
	_, _ = fmt.Fprintln(p.out, args...)
}

// Installed highlights the installed version (cyan).
func (p *Presenter) Installed(s string) string {
	if !p.colored {
		return s
	}

	return styleInstalled.Render(s)
}

// Latest highlights the latest version (green).
func (p *Presenter) Latest(s string) string {
	if !p.colored {
		return s
	}

	return styleLatest.Render(s)
}

// Progress rewrites the current line with download progress.
// A negative percent means the total size is unknown and only the
// activity text is shown.
func (p *Presenter) Progress(percent int) {
	if percent < 0 {
		_, _ = fmt.Fprint(p.out, "\rDownloading...")
		return
	}

	_, _ = fmt.Fprintf(p.out, "\rDownloading... %d%%", percent)
}

// EndProgress terminates the progress line.
func (p *Presenter) EndProgress() {
	_, _ = fmt.Fprintln(p.out)
}
