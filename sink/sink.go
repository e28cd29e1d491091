// Package sink moves entries from the store into durable batch
// storage. A Pump owns the subscription and the batching; Writers
// (sqlite, postgres) only see ready-made batches.
package sink

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/serwidlick/backstage/logs"
)

const (
	// DefaultFlushInterval is how often a partial batch is written out
	DefaultFlushInterval = 2 * time.Second

	// DefaultMaxBatch flushes early once this many entries queue up
	DefaultMaxBatch = 100

	// flushTimeout bounds a single WriteBatch call
	flushTimeout = 5 * time.Second
)

// Writer stores batches of entries durably
type Writer interface {
	WriteBatch(ctx context.Context, entries []logs.Entry) error
	Close() error
}

// Options configures a Pump
type Options struct {
	FlushInterval time.Duration
	MaxBatch      int
	Backlog       int // seed from the buffer when the pump starts
}

// Pump subscribes to a store (delivering while paused, so pausing the
// live view never stops persistence) and feeds a Writer in batches. A
// failing writer never blocks or disables capture: the batch is
// dropped, failures are counted, and one internal note is appended per
// failure episode.
type Pump struct {
	store  *logs.Store
	writer Writer
	opts   Options

	sub      *logs.Subscription
	done     chan struct{}
	stopped  chan struct{}
	started  atomic.Bool
	closing  sync.Once
	writerMu sync.Once

	failures atomic.Uint64
}

// NewPump wires a store to a writer. Run starts it.
func NewPump(store *logs.Store, w Writer, opts Options) *Pump {
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = DefaultFlushInterval
	}
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = DefaultMaxBatch
	}
	return &Pump{
		store:   store,
		writer:  w,
		opts:    opts,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Run subscribes and starts the pump goroutine. Call once.
func (p *Pump) Run() {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	subOpts := []logs.SubscribeOption{logs.DeliverWhilePaused()}
	if p.opts.Backlog > 0 {
		subOpts = append(subOpts, logs.WithBacklog(p.opts.Backlog))
	}
	p.sub = p.store.Subscribe(subOpts...)
	go p.loop()
}

func (p *Pump) loop() {
	defer close(p.stopped)

	ticker := time.NewTicker(p.opts.FlushInterval)
	defer ticker.Stop()

	batch := make([]logs.Entry, 0, p.opts.MaxBatch)

	for {
		select {
		case e, ok := <-p.sub.C():
			if !ok {
				p.flush(batch)
				return
			}
			batch = append(batch, e)
			if len(batch) >= p.opts.MaxBatch {
				p.flush(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				p.flush(batch)
				batch = batch[:0]
			}

		case <-p.done:
			// Drain anything already delivered, then flush the rest
			for {
				select {
				case e, ok := <-p.sub.C():
					if !ok {
						p.flush(batch)
						return
					}
					batch = append(batch, e)
					if len(batch) >= p.opts.MaxBatch {
						p.flush(batch)
						batch = batch[:0]
					}
					continue
				default:
				}
				break
			}
			p.flush(batch)
			return
		}
	}
}

func (p *Pump) flush(batch []logs.Entry) {
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	if err := p.writer.WriteBatch(ctx, batch); err != nil {
		// One note per failure episode; further failures only count,
		// so a broken sink cannot flood the store it subscribes to
		if p.failures.Add(1) == 1 {
			p.store.Append(logs.New(logs.LevelDebug,
				fmt.Sprintf("sink write failed, dropping %d entries: %v", len(batch), err),
				logs.WithTag("backstage")))
		}
		return
	}
	p.failures.Store(0)
}

// Failures returns the consecutive failed flush count
func (p *Pump) Failures() uint64 {
	return p.failures.Load()
}

// Close stops the pump, drains and flushes what is pending, cancels
// the subscription, and closes the writer. Nothing runs after Close
// returns. Safe to call more than once.
func (p *Pump) Close(ctx context.Context) error {
	p.closing.Do(func() {
		close(p.done)
	})

	if p.started.Load() {
		select {
		case <-p.stopped:
		case <-ctx.Done():
			return ctx.Err()
		}
		p.sub.Cancel()
	}

	var err error
	p.writerMu.Do(func() {
		err = p.writer.Close()
	})
	return err
}
