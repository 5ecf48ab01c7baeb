package suggest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/firebase/genkit/go/ai"
)

type stubSuggester struct {
	suggestions []string
	err         error
	calls       int
	lastPrompt  string
}

func (s *stubSuggester) Suggest(_ context.Context, prompt string) ([]string, error) {
	s.calls++
	s.lastPrompt = prompt
	return s.suggestions, s.err
}

// fakeCache is a minimal in-memory Cache that copies string slices.
type fakeCache struct {
	entries map[string][]string
	setErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]string)}
}

func (c *fakeCache) Get(_ context.Context, key string, dest any) (bool, error) {
	v, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	*dest.(*[]string) = append([]string(nil), v...)
	return true, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[key] = append([]string(nil), value.([]string)...)
	return nil
}

type fixedHistory struct {
	msgs []*ai.Message
}

func (f *fixedHistory) History(context.Context, string) ([]*ai.Message, error) {
	return f.msgs, nil
}

func textMsg(role ai.Role, text string) *ai.Message {
	return &ai.Message{Role: role, Content: []*ai.Part{ai.NewTextPart(text)}}
}

func conversation() []*ai.Message {
	return []*ai.Message{
		textMsg(ai.RoleUser, "When should I sow cotton?"),
		textMsg(ai.RoleModel, "After the first monsoon rains."),
	}
}

func newTestJob(t *testing.T, sug Suggester, cache Cache, src HistorySource) *Job {
	t.Helper()
	job, err := New(Config{Suggester: sug, Cache: cache, Sessions: src})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return job
}

func TestGenerateAndGet(t *testing.T) {
	t.Parallel()

	sug := &stubSuggester{suggestions: []string{"q1", "q2", "q3"}}
	cache := newFakeCache()
	job := newTestJob(t, sug, cache, &fixedHistory{msgs: conversation()})

	got, err := job.Generate(context.Background(), "s1", "mr")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Generate() = %d suggestions, want 3", len(got))
	}

	cached, ok, err := job.Get(context.Background(), "s1", "mr")
	if err != nil || !ok {
		t.Fatalf("Get() = ok=%v, err=%v; want cached suggestions", ok, err)
	}
	if len(cached) != 3 || cached[0] != "q1" {
		t.Errorf("Get() = %q, want the generated set", cached)
	}
}

func TestGenerateIsIdempotentWithinTTL(t *testing.T) {
	t.Parallel()

	sug := &stubSuggester{suggestions: []string{"q1"}}
	cache := newFakeCache()
	job := newTestJob(t, sug, cache, &fixedHistory{msgs: conversation()})

	for i := 0; i < 3; i++ {
		if _, err := job.Generate(context.Background(), "s1", "mr"); err != nil {
			t.Fatalf("Generate() #%d error = %v", i+1, err)
		}
	}
	if sug.calls != 1 {
		t.Errorf("suggester called %d times, want 1", sug.calls)
	}
}

func TestGenerateScopedByLanguage(t *testing.T) {
	t.Parallel()

	sug := &stubSuggester{suggestions: []string{"q"}}
	cache := newFakeCache()
	job := newTestJob(t, sug, cache, &fixedHistory{msgs: conversation()})

	if _, err := job.Generate(context.Background(), "s1", "mr"); err != nil {
		t.Fatalf("Generate(mr) error = %v", err)
	}
	if _, err := job.Generate(context.Background(), "s1", "hi"); err != nil {
		t.Fatalf("Generate(hi) error = %v", err)
	}
	if sug.calls != 2 {
		t.Errorf("suggester called %d times, want 2 (one per language)", sug.calls)
	}
}

func TestGeneratePromptContents(t *testing.T) {
	t.Parallel()

	sug := &stubSuggester{suggestions: []string{"q"}}
	job := newTestJob(t, sug, newFakeCache(), &fixedHistory{msgs: conversation()})

	if _, err := job.Generate(context.Background(), "s1", "mr"); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.Contains(sug.lastPrompt, "When should I sow cotton?") {
		t.Error("prompt missing the farmer's question")
	}
	if !strings.Contains(sug.lastPrompt, "Marathi") {
		t.Errorf("prompt = %q, want the language display name Marathi", sug.lastPrompt)
	}
}

func TestGenerateEmptySession(t *testing.T) {
	t.Parallel()

	sug := &stubSuggester{suggestions: []string{"q"}}
	job := newTestJob(t, sug, newFakeCache(), &fixedHistory{})

	got, err := job.Generate(context.Background(), "s1", "mr")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != nil {
		t.Errorf("Generate() = %q for empty session, want nil", got)
	}
	if sug.calls != 0 {
		t.Error("suggester called for an empty session")
	}
}

func TestGenerateSuggesterFailure(t *testing.T) {
	t.Parallel()

	sug := &stubSuggester{err: errors.New("model down")}
	cache := newFakeCache()
	job := newTestJob(t, sug, cache, &fixedHistory{msgs: conversation()})

	if _, err := job.Generate(context.Background(), "s1", "mr"); err == nil {
		t.Fatal("Generate() succeeded despite suggester failure")
	}
	if len(cache.entries) != 0 {
		t.Error("failed generation left entries in the cache")
	}
}

func TestGenerateCacheWriteFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	sug := &stubSuggester{suggestions: []string{"q1", "q2", "q3"}}
	cache := newFakeCache()
	cache.setErr = errors.New("redis down")
	job := newTestJob(t, sug, cache, &fixedHistory{msgs: conversation()})

	got, err := job.Generate(context.Background(), "s1", "mr")
	if err != nil {
		t.Fatalf("Generate() error = %v, want suggestions despite cache failure", err)
	}
	if len(got) != 3 {
		t.Errorf("Generate() = %d suggestions, want 3", len(got))
	}
}

func TestLanguageName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code string
		want string
	}{
		{"mr", "Marathi"},
		{"hi", "Hindi"},
		{"en", "English"},
		{"not-a-code-...", "not-a-code-..."},
	}
	for _, tt := range tests {
		if got := LanguageName(tt.code); got != tt.want {
			t.Errorf("LanguageName(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}
