package capture

import (
	"context"
	"log/slog"
	"strings"

	"github.com/serwidlick/backstage/logs"
)

// SlogHandler chains onto an existing slog.Handler: every record is
// forwarded unchanged and mirrored into the store with the slog level
// mapped onto the entry level, tag "slog".
type SlogHandler struct {
	next  slog.Handler
	store Appender
	attrs []slog.Attr
}

// NewSlogHandler wraps next, which may be nil for mirror-only use
func NewSlogHandler(next slog.Handler, store Appender) *SlogHandler {
	return &SlogHandler{next: next, store: store}
}

// Enabled always reports true so the mirror sees every record; the
// wrapped handler applies its own level gate inside Handle
func (h *SlogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

// Handle forwards the record and mirrors it
func (h *SlogHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	if h.next != nil && h.next.Enabled(ctx, r.Level) {
		err = h.next.Handle(ctx, r)
	}

	var b strings.Builder
	b.WriteString(r.Message)
	write := func(a slog.Attr) bool {
		b.WriteByte(' ')
		b.WriteString(a.String())
		return true
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(func(a slog.Attr) bool { return write(a) })

	h.store.Append(logs.Entry{
		Timestamp: r.Time,
		Level:     levelFromSlog(r.Level),
		Tag:       SlogTag,
		Message:   b.String(),
	})

	return err
}

// WithAttrs carries attribute context through to both the wrapped
// handler and the mirrored messages
func (h *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var next slog.Handler
	if h.next != nil {
		next = h.next.WithAttrs(attrs)
	}
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &SlogHandler{next: next, store: h.store, attrs: merged}
}

// WithGroup forwards the group to the wrapped handler; mirrored
// messages keep flat key=value rendering
func (h *SlogHandler) WithGroup(name string) slog.Handler {
	var next slog.Handler
	if h.next != nil {
		next = h.next.WithGroup(name)
	}
	return &SlogHandler{next: next, store: h.store, attrs: h.attrs}
}

// InstallSlogDefault chains a mirror onto slog's default logger. The
// returned function restores the previous default.
func InstallSlogDefault(store Appender) (restore func()) {
	prev := slog.Default()
	slog.SetDefault(slog.New(NewSlogHandler(prev.Handler(), store)))
	return func() {
		slog.SetDefault(prev)
	}
}

func levelFromSlog(l slog.Level) logs.Level {
	switch {
	case l >= slog.LevelError:
		return logs.LevelError
	case l >= slog.LevelWarn:
		return logs.LevelWarn
	case l >= slog.LevelInfo:
		return logs.LevelInfo
	default:
		return logs.LevelDebug
	}
}
