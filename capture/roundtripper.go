package capture

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/serwidlick/backstage/logs"
)

// RoundTripper mirrors outbound HTTP exchanges into the store under
// tag "net". A correlation ID is generated when the request starts and
// carried through to the completion entry, so entries for concurrent
// in-flight requests always pair up correctly.
type RoundTripper struct {
	next  http.RoundTripper
	store Appender
}

// NewRoundTripper wraps next; nil uses http.DefaultTransport
func NewRoundTripper(next http.RoundTripper, store Appender) *RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &RoundTripper{next: next, store: store}
}

// RoundTrip records the request, performs it, and records the outcome.
// The response body is never consumed. Completion level tracks the
// status: 5xx at error, 4xx at warn, everything else at info.
func (rt *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	id := uuid.NewString()[:8]
	start := time.Now()

	rt.store.Append(logs.Entry{
		Level:   logs.LevelDebug,
		Tag:     NetworkTag,
		Message: fmt.Sprintf("[%s] -> %s %s", id, req.Method, req.URL),
	})

	resp, err := rt.next.RoundTrip(req)
	elapsed := time.Since(start).Round(time.Millisecond)

	if err != nil {
		rt.store.Append(logs.Entry{
			Level:   logs.LevelError,
			Tag:     NetworkTag,
			Message: fmt.Sprintf("[%s] !! %s %s: %v (%s)", id, req.Method, req.URL, err, elapsed),
		})
		return resp, err
	}

	rt.store.Append(logs.Entry{
		Level:   levelForStatus(resp.StatusCode),
		Tag:     NetworkTag,
		Message: fmt.Sprintf("[%s] <- %d %s %s (%s)", id, resp.StatusCode, req.Method, req.URL, elapsed),
	})
	return resp, nil
}

func levelForStatus(code int) logs.Level {
	switch {
	case code >= 500:
		return logs.LevelError
	case code >= 400:
		return logs.LevelWarn
	default:
		return logs.LevelInfo
	}
}
