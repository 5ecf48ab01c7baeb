package chat

import (
	"context"
	"strings"
	"time"
)

// coalescer sits between the generation capability and the caller's
// stream callback. The capability produces deltas into a bounded channel;
// a consumer goroutine drains it and forwards downstream, merging bursts
// that arrive within the flush interval into a single emit. Order is
// preserved and nothing is dropped.
//
// With a non-positive interval every delta is forwarded as it arrives,
// which keeps tests deterministic.
type coalescer struct {
	deltas   chan string
	done     chan struct{}
	err      error // set by the consumer, read after done is closed
	interval time.Duration
	emit     StreamCallback
}

func newCoalescer(ctx context.Context, interval time.Duration, emit StreamCallback) *coalescer {
	if emit == nil {
		emit = func(context.Context, string) error { return nil }
	}
	c := &coalescer{
		deltas:   make(chan string, 64),
		done:     make(chan struct{}),
		interval: interval,
		emit:     emit,
	}
	go c.run(ctx)
	return c
}

func (c *coalescer) run(ctx context.Context) {
	defer close(c.done)

	var buf strings.Builder
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	armed := false

	flush := func() error {
		if buf.Len() == 0 {
			return nil
		}
		text := buf.String()
		buf.Reset()
		return c.emit(ctx, text)
	}

	// After a terminal condition, keep draining so push never blocks;
	// finish closes the channel and ends the drain.
	drain := func() {
		for range c.deltas {
		}
	}

	for {
		select {
		case <-ctx.Done():
			c.err = ctx.Err()
			drain()
			return
		case text, ok := <-c.deltas:
			if !ok {
				c.err = flush()
				return
			}
			buf.WriteString(text)
			if c.interval <= 0 {
				if err := flush(); err != nil {
					c.err = err
					drain()
					return
				}
				continue
			}
			if !armed {
				timer.Reset(c.interval)
				armed = true
			}
		case <-timer.C:
			armed = false
			if err := flush(); err != nil {
				c.err = err
				drain()
				return
			}
		}
	}
}

// push hands one delta to the consumer. Empty deltas are suppressed.
func (c *coalescer) push(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	select {
	case c.deltas <- text:
		return nil
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// finish signals end of input, waits for the consumer to flush any
// buffered text, and reports the first downstream error. Must be called
// exactly once, after the last push.
func (c *coalescer) finish() error {
	close(c.deltas)
	<-c.done
	return c.err
}
