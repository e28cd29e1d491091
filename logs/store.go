package logs

import (
	"sync"
	"time"
)

const (
	// DefaultCapacity is the ring buffer size used when none is configured
	DefaultCapacity = 1000

	// DefaultSubscriptionBuffer is the channel buffer per subscription
	DefaultSubscriptionBuffer = 100
)

// Redactor rewrites an entry before it is stored or broadcast. It must
// return a new entry and leave its input untouched.
type Redactor interface {
	Apply(Entry) Entry
}

// StoreOptions configures a Store
type StoreOptions struct {
	Capacity           int // ring buffer size, DefaultCapacity when <= 0
	SubscriptionBuffer int // per-subscription channel buffer
	Redactor           Redactor
}

// Store is the central collection of entries: a bounded ring buffer
// plus a set of live subscriptions. Append order is broadcast order;
// both happen under one lock so no subscriber can observe entries out
// of order.
type Store struct {
	mu        sync.Mutex
	buffer    *RingBuffer
	subs      map[string]*Subscription
	subBuffer int
	redactor  Redactor
	paused    bool
	closed    bool
}

// NewStore creates a store with the given options
func NewStore(opts StoreOptions) *Store {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.SubscriptionBuffer <= 0 {
		opts.SubscriptionBuffer = DefaultSubscriptionBuffer
	}
	return &Store{
		buffer:    NewRingBuffer(opts.Capacity),
		subs:      make(map[string]*Subscription),
		subBuffer: opts.SubscriptionBuffer,
		redactor:  opts.Redactor,
	}
}

// Append stores an entry and broadcasts it to subscribers. Zero-valued
// tag and timestamp fields receive their defaults first, then the
// redactor (if any) rewrites the entry. While the store is paused the
// entry is still buffered but only delivered to subscriptions created
// with DeliverWhilePaused. Append never fails.
func (s *Store) Append(e Entry) {
	if e.Tag == "" {
		e.Tag = DefaultTag
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if s.redactor != nil {
		e = s.redactor.Apply(e)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.buffer.Write(e)

	for _, sub := range s.subs {
		if s.paused && !sub.deliverWhilePaused {
			continue
		}
		sub.send(e)
	}
}

// SubscribeOption customizes a subscription
type SubscribeOption func(*subscribeOptions)

type subscribeOptions struct {
	backlog            int
	deliverWhilePaused bool
}

// WithBacklog seeds the subscription with up to n of the most recent
// buffered entries before live delivery starts. Seeding happens
// atomically with registration: no entry is missed or duplicated
// between the backlog and the live feed.
func WithBacklog(n int) SubscribeOption {
	return func(o *subscribeOptions) {
		o.backlog = n
	}
}

// DeliverWhilePaused keeps the subscription receiving entries while
// the store is paused. Persistence sinks use this; live views do not.
func DeliverWhilePaused() SubscribeOption {
	return func(o *subscribeOptions) {
		o.deliverWhilePaused = true
	}
}

// Subscribe returns a live, order-preserving feed of future entries.
// Subscribers that join later miss earlier entries unless WithBacklog
// is used. Subscribing to a closed store returns an already cancelled
// subscription.
func (s *Store) Subscribe(opts ...SubscribeOption) *Subscription {
	var o subscribeOptions
	for _, opt := range opts {
		opt(&o)
	}

	sub := newSubscription(s.subBuffer, o.deliverWhilePaused)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		sub.shutdown()
		return sub
	}
	if o.backlog > 0 {
		for _, e := range s.buffer.ReadLast(o.backlog) {
			sub.send(e)
		}
	}
	sub.remove = s.removeSubscription
	s.subs[sub.id] = sub
	s.mu.Unlock()

	return sub
}

func (s *Store) removeSubscription(id string) {
	s.mu.Lock()
	delete(s.subs, id)
	s.mu.Unlock()
}

// Query returns the entries matching the criteria plus the unpaginated
// total match count. Without pagination, results keep insertion order
// (oldest first); with Limit or Offset set, results are ordered newest
// first. An empty store yields an empty result and total 0, never an
// error.
func (s *Store) Query(c Criteria) ([]Entry, int) {
	matched := FilterEntries(s.buffer.Read(), c)
	total := len(matched)

	if !c.paginated() {
		return matched, total
	}

	// Newest-first for paginated consumption
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}

	offset := c.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []Entry{}, total
	}
	matched = matched[offset:]

	if c.Limit > 0 && len(matched) > c.Limit {
		matched = matched[:c.Limit]
	}

	return matched, total
}

// Clear empties the buffer. Entries already delivered to subscribers
// are unaffected and subscriptions stay live. Callable at any time.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer.Clear()
}

// Pause suspends delivery to live-view subscriptions. The store keeps
// accepting entries (the buffer keeps growing) and subscriptions
// created with DeliverWhilePaused keep receiving, so persistence is
// unaffected. Entries arriving while paused are not replayed to live
// views on Resume.
func (s *Store) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

// Resume re-enables delivery to live-view subscriptions
func (s *Store) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
}

// Paused reports whether live-view delivery is suspended
func (s *Store) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Len returns the current number of buffered entries
func (s *Store) Len() int {
	return s.buffer.Count()
}

// Capacity returns the ring buffer capacity
func (s *Store) Capacity() int {
	return s.buffer.Capacity()
}

// Subscribers returns the number of active subscriptions
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Close cancels every subscription deterministically. Later Appends
// still land in the buffer but are broadcast to no one, and new
// subscriptions come back already cancelled. Safe to call twice.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := make([]*Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subs = make(map[string]*Subscription)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.shutdown()
	}
}
