package backstage

import "errors"

// Console errors
var (
	ErrInvalidConfig  = errors.New("invalid console configuration")
	ErrAlreadyStarted = errors.New("console already started")
	ErrClosed         = errors.New("console closed")
)
