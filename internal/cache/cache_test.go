package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vistaar-ai/vistaar/internal/log"
)

// fakeBackend is a controllable primary for exercising demotion.
type fakeBackend struct {
	mu      sync.Mutex
	store   map[string][]byte
	failing bool
	calls   int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{store: make(map[string][]byte)}
}

func (f *fakeBackend) fail(on bool) {
	f.mu.Lock()
	f.failing = on
	f.mu.Unlock()
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeBackend) check(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.failing {
		return errors.New("dial tcp: connection refused")
	}
	return nil
}

func (f *fakeBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if err := f.check(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.store[key]
	if !ok {
		return nil, ErrMiss
	}
	return data, nil
}

func (f *fakeBackend) Set(ctx context.Context, key string, data []byte, _ time.Duration) error {
	if err := f.check(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	f.store[key] = data
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) Delete(ctx context.Context, key string) error {
	if err := f.check(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	delete(f.store, key)
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) Exists(ctx context.Context, key string) (bool, error) {
	if err := f.check(ctx); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.store[key]
	return ok, nil
}

func (f *fakeBackend) Clear(ctx context.Context, prefix string) error {
	if err := f.check(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	f.store = make(map[string][]byte)
	f.mu.Unlock()
	return nil
}

// newTestService wires a Service to a fake primary without touching Redis.
func newTestService(primary backend) *Service {
	return &Service{
		primary:    primary,
		fallback:   newMemoryStore(),
		prefix:     "test:",
		defaultTTL: time.Minute,
		logger:     log.NewNop(),
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	t.Parallel()

	fb := newFakeBackend()
	svc := newTestService(fb)
	ctx := context.Background()

	if err := svc.Set(ctx, "greeting", "namaskar", 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var got string
	hit, err := svc.Get(ctx, "greeting", &got)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !hit {
		t.Fatal("Get() miss, want hit")
	}
	if got != "namaskar" {
		t.Errorf("Get() = %q, want %q", got, "namaskar")
	}
	if svc.FallbackActive() {
		t.Error("FallbackActive() = true for a healthy primary")
	}
}

func TestGetMissOnAbsentKey(t *testing.T) {
	t.Parallel()

	svc := newTestService(newFakeBackend())

	hit, err := svc.Get(context.Background(), "nothing", nil)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if hit {
		t.Error("Get() hit for absent key")
	}
}

func TestFallbackMonotonicity(t *testing.T) {
	t.Parallel()

	fb := newFakeBackend()
	svc := newTestService(fb)
	ctx := context.Background()

	fb.fail(true)

	// The failed Set must be recovered by the fallback, not surfaced.
	if err := svc.Set(ctx, "crop", "cotton", 0); err != nil {
		t.Fatalf("Set() during outage error = %v", err)
	}
	if !svc.FallbackActive() {
		t.Fatal("FallbackActive() = false after a backend error")
	}

	// Even though the primary has "recovered", it must never be consulted
	// again within the process lifetime.
	fb.fail(false)
	before := fb.callCount()

	var got string
	hit, err := svc.Get(ctx, "crop", &got)
	if err != nil || !hit {
		t.Fatalf("Get() after demotion = (%v, %v), want hit", hit, err)
	}
	if got != "cotton" {
		t.Errorf("Get() = %q, want %q", got, "cotton")
	}
	if fb.callCount() != before {
		t.Errorf("primary received %d calls after demotion", fb.callCount()-before)
	}
}

func TestDemotionAppliesToAllOperations(t *testing.T) {
	t.Parallel()

	fb := newFakeBackend()
	svc := newTestService(fb)
	ctx := context.Background()

	fb.fail(true)
	if _, err := svc.Exists(ctx, "anything"); err != nil {
		t.Fatalf("Exists() during outage error = %v", err)
	}

	fb.fail(false)
	before := fb.callCount()

	if err := svc.Set(ctx, "k", 1, 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := svc.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := svc.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if fb.callCount() != before {
		t.Error("primary consulted after demotion")
	}
}

func TestCancellationDoesNotDemote(t *testing.T) {
	t.Parallel()

	fb := newFakeBackend()
	svc := newTestService(fb)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Get(ctx, "k", nil); err == nil {
		t.Fatal("Get() with canceled context succeeded")
	}
	if svc.FallbackActive() {
		t.Error("caller cancellation demoted the backend")
	}
}

func TestTTLExpiry(t *testing.T) {
	t.Parallel()

	svc := New(Config{MemoryOnly: true, KeyPrefix: "test:", Logger: log.NewNop()})
	ctx := context.Background()

	if err := svc.Set(ctx, "short", "lived", 30*time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	hit, err := svc.Get(ctx, "short", nil)
	if err != nil || !hit {
		t.Fatalf("Get() before expiry = (%v, %v), want hit", hit, err)
	}

	time.Sleep(80 * time.Millisecond)

	hit, err = svc.Get(ctx, "short", nil)
	if err != nil {
		t.Fatalf("Get() after expiry error = %v", err)
	}
	if hit {
		t.Error("Get() returned a stale value after TTL")
	}

	ok, err := svc.Exists(ctx, "short")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if ok {
		t.Error("Exists() = true after TTL")
	}
}

func TestSetOverwrites(t *testing.T) {
	t.Parallel()

	svc := New(Config{MemoryOnly: true, Logger: log.NewNop()})
	ctx := context.Background()

	if err := svc.Set(ctx, "k", []string{"first"}, 0); err != nil {
		t.Fatal(err)
	}
	if err := svc.Set(ctx, "k", []string{"second", "third"}, 0); err != nil {
		t.Fatal(err)
	}

	var got []string
	if _, err := svc.Get(ctx, "k", &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "second" {
		t.Errorf("Get() = %v, want the second write only", got)
	}
}

func TestKeyPrefixAndNamespace(t *testing.T) {
	t.Parallel()

	svc := New(Config{
		MemoryOnly: true,
		KeyPrefix:  "vistaar:",
		Namespace:  "suggestions",
		Logger:     log.NewNop(),
	})
	ctx := context.Background()

	if err := svc.Set(ctx, "s1", "v", 0); err != nil {
		t.Fatal(err)
	}

	if _, ok := svc.fallback.entries["vistaar:suggestions:s1"]; !ok {
		t.Errorf("stored keys = %v, want vistaar:suggestions:s1", keysOf(svc.fallback))
	}
}

func TestMemoryOnlyStartsDemoted(t *testing.T) {
	t.Parallel()

	svc := New(Config{MemoryOnly: true, Logger: log.NewNop()})
	if !svc.FallbackActive() {
		t.Error("MemoryOnly service did not start in fallback-active state")
	}
	if err := svc.Ping(context.Background()); err != nil {
		t.Errorf("Ping() on fallback error = %v", err)
	}
}

func TestClearRemovesOnlyOwnPrefix(t *testing.T) {
	t.Parallel()

	svc := New(Config{MemoryOnly: true, KeyPrefix: "a:", Logger: log.NewNop()})
	ctx := context.Background()

	if err := svc.Set(ctx, "one", 1, 0); err != nil {
		t.Fatal(err)
	}
	// A foreign key sharing the store but not the prefix must survive.
	if err := svc.fallback.Set(ctx, "b:other", []byte("1"), 0); err != nil {
		t.Fatal(err)
	}

	if err := svc.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	if hit, _ := svc.Get(ctx, "one", nil); hit {
		t.Error("Clear() left a key under its own prefix")
	}
	if _, err := svc.fallback.Get(ctx, "b:other"); err != nil {
		t.Error("Clear() removed a key outside its prefix")
	}
}

func keysOf(m *memoryStore) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	return keys
}
