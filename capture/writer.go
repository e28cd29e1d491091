package capture

import (
	"bytes"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/serwidlick/backstage/logs"
)

// maxLineBytes bounds how much of a never-terminated line is buffered
// before it is emitted as an entry anyway
const maxLineBytes = 1024 * 1024

// Writer is the print interception tee. Every write is forwarded
// byte-for-byte to the original sink first, preserving its behavior
// and ordering, then complete lines are mirrored into the store as
// debug entries tagged "print". Installing two Writers chains them;
// chaining is not deduplicated.
type Writer struct {
	mu    sync.Mutex
	next  io.Writer
	store Appender
	buf   bytes.Buffer
}

// NewWriter wraps next. A nil next discards forwarded bytes.
func NewWriter(next io.Writer, store Appender) *Writer {
	if next == nil {
		next = io.Discard
	}
	return &Writer{next: next, store: store}
}

// Write forwards p to the wrapped sink and mirrors complete lines.
// The return values are the wrapped sink's, so the host observes
// exactly the behavior it had before interception.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.next.Write(p)

	w.mu.Lock()
	w.buf.Write(p)
	var lines []string
	for {
		idx := bytes.IndexByte(w.buf.Bytes(), '\n')
		if idx < 0 {
			if w.buf.Len() > maxLineBytes {
				lines = append(lines, w.buf.String())
				w.buf.Reset()
			}
			break
		}
		line := string(w.buf.Next(idx + 1))
		lines = append(lines, strings.TrimRight(line, "\r\n"))
	}
	w.mu.Unlock()

	// Append outside the buffer lock; the store takes its own
	for _, line := range lines {
		w.store.Append(logs.Entry{Level: logs.LevelDebug, Tag: PrintTag, Message: line})
	}

	return n, err
}

// Flush mirrors any buffered partial line as an entry
func (w *Writer) Flush() {
	w.mu.Lock()
	rest := w.buf.String()
	w.buf.Reset()
	w.mu.Unlock()

	if rest != "" {
		w.store.Append(logs.Entry{Level: logs.LevelDebug, Tag: PrintTag, Message: rest})
	}
}

// InstallLogOutput tees the standard log package's output through a
// Writer. The returned function flushes the tee and puts the previous
// sink back.
func InstallLogOutput(store Appender) (restore func()) {
	prev := log.Writer()
	w := NewWriter(prev, store)
	log.SetOutput(w)
	return func() {
		log.SetOutput(prev)
		w.Flush()
	}
}
