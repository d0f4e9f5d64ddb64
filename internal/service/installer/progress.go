package installer

import (
	"github.com/oshokin/dolphin-updater/internal/console"
)

const fullProgress = 100

// progressWriter renders integer download progress as bytes flow through
// it. It only repaints when the percentage changes, so an io.Copy with
// small buffers does not flood the terminal.
type progressWriter struct {
	presenter *console.Presenter
	total     int64
	written   int64
	lastShown int
}

// newProgressWriter sizes a progress writer for a body of total bytes.
// Servers that omit Content-Length report total as -1; the writer then
// shows activity without a percentage instead of failing.
func newProgressWriter(presenter *console.Presenter, total int64) *progressWriter {
	return &progressWriter{
		presenter: presenter,
		total:     total,
		lastShown: -1,
	}
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))

	if w.total <= 0 {
		if w.lastShown < 0 {
			w.presenter.Progress(-1)
			w.lastShown = 0
		}

		return len(p), nil
	}

	percent := int(w.written * fullProgress / w.total)
	if percent != w.lastShown {
		w.presenter.Progress(percent)
		w.lastShown = percent
	}

	return len(p), nil
}
