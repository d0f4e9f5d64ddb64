package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Confirmer asks the operator to confirm an action.
type Confirmer interface {
	// Confirm shows the prompt and reports whether the operator agreed.
	Confirm(prompt string) (bool, error)
}

// StdinConfirmer reads the answer from an input stream.
// Only an empty line (plain Enter) confirms, any other input declines.
type StdinConfirmer struct {
	// In is the answer stream, normally os.Stdin.
	In io.Reader
	// Out is where the prompt is written, normally os.Stdout.
	Out io.Writer
}

// Confirm prints the prompt and blocks for one line of input.
// A closed input stream declines instead of failing, so piped runs
// without input skip the update rather than abort.
func (c *StdinConfirmer) Confirm(prompt string) (bool, error) {
	_, _ = fmt.Fprintln(c.Out, prompt)

	line, err := bufio.NewReader(c.In).ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}

		return false, fmt.Errorf("read confirmation: %w", err)
	}

	return strings.TrimRight(line, "\r\n") == "", nil
}

// AcceptAll confirms every prompt without asking.
// It backs the --yes flag and canned test responses.
type AcceptAll struct{}

// Confirm always agrees.
func (AcceptAll) Confirm(string) (bool, error) {
	return true, nil
}
