package capture

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/serwidlick/backstage/logs"
)

// ErrPanic wraps panics recovered by Guard so callers can match them
// with errors.Is
var ErrPanic = errors.New("panic recovered")

// ErrorHook is the shape of a framework's settable uncaught-error
// callback slot.
type ErrorHook func(err error, stack []byte)

// ChainErrorHook returns a hook that records the error at error level
// under tag "framework" and then invokes prev. The previous hook is
// always called, whatever the mirror did: this chains, it never
// replaces.
func ChainErrorHook(prev ErrorHook, store Appender) ErrorHook {
	return func(err error, stack []byte) {
		if err != nil {
			store.Append(logs.Entry{
				Level:   logs.LevelError,
				Tag:     FrameworkTag,
				Message: err.Error(),
				Stack:   string(stack),
			})
		}
		if prev != nil {
			prev(err, stack)
		}
	}
}

// Guard runs fn and converts a panic into a recorded entry at error
// level, tag "async", returning it as an error wrapping ErrPanic. A
// normal return value, nil or not, passes through unchanged.
func Guard(store Appender, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			store.Append(logs.Entry{
				Level:   logs.LevelError,
				Tag:     AsyncTag,
				Message: fmt.Sprint(r),
				Stack:   string(debug.Stack()),
			})
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return fn()
}

// Go runs fn on a new goroutine under Guard, so a panicking background
// task becomes an entry instead of a crashed process
func Go(store Appender, fn func() error) {
	go func() {
		_ = Guard(store, fn)
	}()
}
