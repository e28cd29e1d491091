package logs

import (
	"sync/atomic"
)

var subscriptionIDCounter uint64

// Subscription is a live feed of entries appended after the
// subscription was created (plus an optional backlog). Cancel is
// idempotent and safe to call concurrently; cancelling one
// subscription never affects others.
type Subscription struct {
	id                 string
	ch                 chan Entry
	deliverWhilePaused bool
	closed             atomic.Bool
	dropped            atomic.Uint64
	remove             func(id string)
}

func newSubscription(bufferSize int, deliverWhilePaused bool) *Subscription {
	id := atomic.AddUint64(&subscriptionIDCounter, 1)
	return &Subscription{
		id:                 formatSubscriptionID(id),
		ch:                 make(chan Entry, bufferSize),
		deliverWhilePaused: deliverWhilePaused,
	}
}

func formatSubscriptionID(id uint64) string {
	return "sub-" + formatUint64(id)
}

func formatUint64(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// ID returns the subscription ID
func (s *Subscription) ID() string {
	return s.id
}

// C returns the channel entries are delivered on. The channel is
// closed by Cancel and by Store.Close.
func (s *Subscription) C() <-chan Entry {
	return s.ch
}

// Dropped returns how many entries were discarded because the
// subscriber was too slow to drain its channel
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// send delivers an entry without blocking. A full channel drops the
// entry for this subscriber only; other subscribers are unaffected.
// The store never writes to the host's log from here, so drops are
// counted rather than reported.
func (s *Subscription) send(entry Entry) bool {
	if s.closed.Load() {
		return false
	}

	select {
	case s.ch <- entry:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Cancel detaches the subscription from its store and closes the
// channel. Safe to call multiple times.
func (s *Subscription) Cancel() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	// Removing under the store lock waits out any in-flight
	// broadcast, so the close below can never race a send.
	if s.remove != nil {
		s.remove(s.id)
	}
	close(s.ch)
}

// shutdown closes the channel without touching the store map; the
// store uses it after detaching all subscriptions itself
func (s *Subscription) shutdown() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.ch)
	}
}
