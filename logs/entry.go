package logs

import "time"

// DefaultTag is applied to entries constructed without an explicit tag
const DefaultTag = "app"

// Entry is a single captured event. Entries are plain values: the store
// keeps copies and subscriptions deliver copies, so an entry is never
// mutated after construction. Redaction produces a new entry.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     Level     `json:"level"`
	Tag       string    `json:"tag"`
	Message   string    `json:"message"`
	Stack     string    `json:"stack,omitempty"`
}

// Option customizes an entry at construction time
type Option func(*Entry)

// WithTag sets the entry tag. Tags are an open set; hosts define their
// own beyond the ones the capture adapters use.
func WithTag(tag string) Option {
	return func(e *Entry) {
		e.Tag = tag
	}
}

// WithStack attaches a stack trace to the entry
func WithStack(stack string) Option {
	return func(e *Entry) {
		e.Stack = stack
	}
}

// WithTime overrides the entry timestamp
func WithTime(t time.Time) Option {
	return func(e *Entry) {
		e.Timestamp = t
	}
}

// New constructs an entry. The tag defaults to DefaultTag and the
// timestamp to the current time. Any message is accepted, including
// the empty string.
func New(level Level, message string, opts ...Option) Entry {
	e := Entry{
		Timestamp: time.Now(),
		Level:     level,
		Tag:       DefaultTag,
		Message:   message,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}
