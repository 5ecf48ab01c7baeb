package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type chunkRecorder struct {
	mu     sync.Mutex
	chunks []string
}

func (r *chunkRecorder) emit(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = append(r.chunks, text)
	return nil
}

func (r *chunkRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.chunks...)
}

func TestCoalescerImmediateMode(t *testing.T) {
	t.Parallel()

	rec := &chunkRecorder{}
	co := newCoalescer(context.Background(), -1, rec.emit)
	for _, d := range []string{"a", "b", "c"} {
		if err := co.push(context.Background(), d); err != nil {
			t.Fatalf("push(%q) error = %v", d, err)
		}
	}
	if err := co.finish(); err != nil {
		t.Fatalf("finish() error = %v", err)
	}
	got := rec.all()
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("chunks = %q, want [a b c]", got)
	}
}

func TestCoalescerBatchesBursts(t *testing.T) {
	t.Parallel()

	rec := &chunkRecorder{}
	co := newCoalescer(context.Background(), 50*time.Millisecond, rec.emit)
	for _, d := range []string{"a", "b", "c"} {
		if err := co.push(context.Background(), d); err != nil {
			t.Fatalf("push(%q) error = %v", d, err)
		}
	}
	if err := co.finish(); err != nil {
		t.Fatalf("finish() error = %v", err)
	}

	got := rec.all()
	if joined := strings.Join(got, ""); joined != "abc" {
		t.Errorf("streamed %q, want abc in order", joined)
	}
	for _, chunk := range got {
		if chunk == "" {
			t.Error("emitted an empty chunk")
		}
	}
}

func TestCoalescerFlushesOnInterval(t *testing.T) {
	t.Parallel()

	rec := &chunkRecorder{}
	co := newCoalescer(context.Background(), 10*time.Millisecond, rec.emit)
	if err := co.push(context.Background(), "early"); err != nil {
		t.Fatalf("push() error = %v", err)
	}

	// The buffered text must be delivered without waiting for finish.
	deadline := time.Now().Add(2 * time.Second)
	for len(rec.all()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("buffered delta was not flushed on interval")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := co.finish(); err != nil {
		t.Fatalf("finish() error = %v", err)
	}
	if got := strings.Join(rec.all(), ""); got != "early" {
		t.Errorf("streamed %q, want early", got)
	}
}

func TestCoalescerFinishFlushesRemainder(t *testing.T) {
	t.Parallel()

	rec := &chunkRecorder{}
	co := newCoalescer(context.Background(), time.Hour, rec.emit)
	if err := co.push(context.Background(), "tail"); err != nil {
		t.Fatalf("push() error = %v", err)
	}
	if err := co.finish(); err != nil {
		t.Fatalf("finish() error = %v", err)
	}
	got := rec.all()
	if len(got) != 1 || got[0] != "tail" {
		t.Errorf("chunks = %q, want [tail]", got)
	}
}

func TestCoalescerEmitErrorPropagates(t *testing.T) {
	t.Parallel()

	downstream := errors.New("downstream closed")
	co := newCoalescer(context.Background(), -1, func(context.Context, string) error {
		return downstream
	})
	// The error may surface on a later push or at finish.
	var err error
	for _, d := range []string{"a", "b", "c"} {
		if err = co.push(context.Background(), d); err != nil {
			break
		}
	}
	if finishErr := co.finish(); err == nil {
		err = finishErr
	}
	if !errors.Is(err, downstream) {
		t.Errorf("error = %v, want the downstream error", err)
	}
}

func TestCoalescerSuppressesEmptyDeltas(t *testing.T) {
	t.Parallel()

	rec := &chunkRecorder{}
	co := newCoalescer(context.Background(), -1, rec.emit)
	if err := co.push(context.Background(), ""); err != nil {
		t.Fatalf("push() error = %v", err)
	}
	if err := co.finish(); err != nil {
		t.Fatalf("finish() error = %v", err)
	}
	if got := rec.all(); len(got) != 0 {
		t.Errorf("chunks = %q, want none", got)
	}
}
