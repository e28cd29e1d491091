package backstage

import "github.com/serwidlick/backstage/logs"

// Logger appends entries straight to the console store. It is the
// direct API for application code that wants entries in the console
// without going through a captured output stream.
type Logger struct {
	store *logs.Store
	tag   string
}

// Tagged returns a logger whose entries default to the given tag
func (l *Logger) Tagged(tag string) *Logger {
	return &Logger{store: l.store, tag: tag}
}

func (l *Logger) Debug(msg string, opts ...logs.Option) { l.append(logs.LevelDebug, msg, opts) }
func (l *Logger) Info(msg string, opts ...logs.Option)  { l.append(logs.LevelInfo, msg, opts) }
func (l *Logger) Warn(msg string, opts ...logs.Option)  { l.append(logs.LevelWarn, msg, opts) }
func (l *Logger) Error(msg string, opts ...logs.Option) { l.append(logs.LevelError, msg, opts) }

func (l *Logger) append(level logs.Level, msg string, opts []logs.Option) {
	if l.tag != "" {
		opts = append([]logs.Option{logs.WithTag(l.tag)}, opts...)
	}
	l.store.Append(logs.New(level, msg, opts...))
}
