package dispatch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hypernym-ai/modelprint/pkg/cache"
	"github.com/hypernym-ai/modelprint/pkg/models"
	"github.com/hypernym-ai/modelprint/pkg/prompt"
	"github.com/hypernym-ai/modelprint/pkg/provider"
)

const testInput = "ocean::depth=vast;color=blue"

type stubAdapter struct {
	name string

	mu    sync.Mutex
	calls int

	complete func(req provider.Request) (provider.Completion, error)
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) IsReasoning(string) bool { return false }

func (s *stubAdapter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubAdapter) Complete(ctx context.Context, req provider.Request) (provider.Completion, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.complete != nil {
		return s.complete(req)
	}
	return provider.Completion{Text: "response for " + req.Model, Model: req.Model}, nil
}

type stubProviders map[string]provider.Adapter

func (s stubProviders) Get(name string) (provider.Adapter, error) {
	a, ok := s[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", name)
	}
	return a, nil
}

func instantSleep(context.Context, time.Duration) error { return nil }

func newTestDispatcher(adapter *stubAdapter) (*Dispatcher, *cache.Memory) {
	store := cache.NewMemory()
	d := New(store, stubProviders{"test": adapter}, Config{
		Workers:     4,
		MaxAttempts: 3,
		Sleep:       instantSleep,
	})
	return d, store
}

func spec(model string, index int) models.TestSpec {
	return models.TestSpec{Model: model, Provider: "test", Class: models.TestClassNatural, Index: index}
}

func TestRunPreservesOrder(t *testing.T) {
	adapter := &stubAdapter{name: "test", complete: func(req provider.Request) (provider.Completion, error) {
		time.Sleep(time.Duration(len(req.Model)) * time.Millisecond)
		return provider.Completion{Text: "echo " + req.Model, Model: req.Model}, nil
	}}
	d, _ := newTestDispatcher(adapter)

	specs := []models.TestSpec{
		spec("model-aaaaaa", 0),
		spec("model-b", 0),
		spec("model-cccc", 0),
		spec("model-dd", 0),
		spec("model-e", 0),
	}
	results := d.Run(context.Background(), testInput, specs)

	if len(results) != len(specs) {
		t.Fatalf("got %d results, want %d", len(results), len(specs))
	}
	for i, res := range results {
		if res.Spec.Model != specs[i].Model {
			t.Errorf("result %d is for %q, want %q", i, res.Spec.Model, specs[i].Model)
		}
		if !res.OK() {
			t.Errorf("result %d failed: %s", i, res.Err)
		}
		if want := "echo " + specs[i].Model; res.Text != want {
			t.Errorf("result %d text = %q, want %q", i, res.Text, want)
		}
	}
}

func TestIdenticalSpecsShareOneCall(t *testing.T) {
	adapter := &stubAdapter{name: "test", complete: func(req provider.Request) (provider.Completion, error) {
		time.Sleep(30 * time.Millisecond)
		return provider.Completion{Text: "shared", Model: req.Model}, nil
	}}
	d, _ := newTestDispatcher(adapter)

	specs := []models.TestSpec{spec("gpt-x", 0), spec("gpt-x", 0), spec("gpt-x", 0), spec("gpt-x", 0)}
	results := d.Run(context.Background(), testInput, specs)

	if got := adapter.callCount(); got != 1 {
		t.Fatalf("upstream called %d times, want 1", got)
	}
	for i, res := range results {
		if res.Text != "shared" {
			t.Errorf("result %d text = %q, want %q", i, res.Text, "shared")
		}
	}
}

func TestDistinctRepetitionsAreDistinctCalls(t *testing.T) {
	adapter := &stubAdapter{name: "test"}
	d, _ := newTestDispatcher(adapter)

	specs := []models.TestSpec{spec("gpt-x", 0), spec("gpt-x", 1), spec("gpt-x", 2)}
	d.Run(context.Background(), testInput, specs)

	if got := adapter.callCount(); got != 3 {
		t.Fatalf("upstream called %d times, want 3", got)
	}
}

func TestCacheHitSkipsUpstream(t *testing.T) {
	adapter := &stubAdapter{name: "test"}
	d, store := newTestDispatcher(adapter)

	sp := spec("gpt-x", 0)
	system, user := prompt.Render(testInput, sp)
	key := cache.Key(system, user, sp.Model, sp.Provider, sp.Index)
	err := store.Put(context.Background(), models.CachedResponse{
		Key:         key,
		Provider:    sp.Provider,
		Model:       sp.Model,
		ActualModel: "gpt-x-2026",
		Text:        "from cache",
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seeding cache: %v", err)
	}

	results := d.Run(context.Background(), testInput, []models.TestSpec{sp})
	if got := adapter.callCount(); got != 0 {
		t.Fatalf("upstream called %d times, want 0", got)
	}
	if !results[0].Cached {
		t.Error("result not marked cached")
	}
	if results[0].Text != "from cache" {
		t.Errorf("text = %q, want %q", results[0].Text, "from cache")
	}
	if results[0].ActualModel != "gpt-x-2026" {
		t.Errorf("actual model = %q, want %q", results[0].ActualModel, "gpt-x-2026")
	}
}

func TestSuccessPopulatesCache(t *testing.T) {
	adapter := &stubAdapter{name: "test"}
	d, _ := newTestDispatcher(adapter)

	specs := []models.TestSpec{spec("gpt-x", 0)}
	first := d.Run(context.Background(), testInput, specs)
	if first[0].Cached {
		t.Fatal("first dispatch reported a cache hit")
	}
	second := d.Run(context.Background(), testInput, specs)
	if got := adapter.callCount(); got != 1 {
		t.Fatalf("upstream called %d times across two runs, want 1", got)
	}
	if !second[0].Cached {
		t.Error("second dispatch not served from cache")
	}
	if second[0].Text != first[0].Text {
		t.Errorf("cached text %q differs from original %q", second[0].Text, first[0].Text)
	}
}

func TestRetryExhaustionRecordsFailure(t *testing.T) {
	adapter := &stubAdapter{name: "test", complete: func(provider.Request) (provider.Completion, error) {
		return provider.Completion{}, &provider.Error{Kind: provider.KindRateLimited, Provider: "test", Status: 429}
	}}
	d, _ := newTestDispatcher(adapter)

	results := d.Run(context.Background(), testInput, []models.TestSpec{spec("gpt-x", 0)})
	res := results[0]
	if res.OK() {
		t.Fatal("expected a failed result")
	}
	if res.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", res.Attempts)
	}
	if got := adapter.callCount(); got != 3 {
		t.Errorf("upstream called %d times, want 3", got)
	}
}

func TestInvalidModelNotRetried(t *testing.T) {
	adapter := &stubAdapter{name: "test", complete: func(provider.Request) (provider.Completion, error) {
		return provider.Completion{}, &provider.Error{Kind: provider.KindInvalidModel, Provider: "test", Status: 404, Message: "no such model"}
	}}
	d, _ := newTestDispatcher(adapter)

	results := d.Run(context.Background(), testInput, []models.TestSpec{spec("nope", 0)})
	if results[0].Attempts != 1 {
		t.Errorf("attempts = %d, want 1", results[0].Attempts)
	}
	if got := adapter.callCount(); got != 1 {
		t.Errorf("upstream called %d times, want 1", got)
	}
}

func TestMalformedRetriedOnce(t *testing.T) {
	adapter := &stubAdapter{name: "test", complete: func(provider.Request) (provider.Completion, error) {
		return provider.Completion{}, &provider.Error{Kind: provider.KindMalformed, Provider: "test", Message: "empty body"}
	}}
	d, _ := newTestDispatcher(adapter)

	results := d.Run(context.Background(), testInput, []models.TestSpec{spec("gpt-x", 0)})
	if results[0].Attempts != 2 {
		t.Errorf("attempts = %d, want 2", results[0].Attempts)
	}
}

func TestMalformedThenSuccess(t *testing.T) {
	var mu sync.Mutex
	n := 0
	adapter := &stubAdapter{name: "test", complete: func(req provider.Request) (provider.Completion, error) {
		mu.Lock()
		n++
		first := n == 1
		mu.Unlock()
		if first {
			return provider.Completion{}, &provider.Error{Kind: provider.KindMalformed, Provider: "test", Message: "empty body"}
		}
		return provider.Completion{Text: "recovered", Model: req.Model}, nil
	}}
	d, _ := newTestDispatcher(adapter)

	results := d.Run(context.Background(), testInput, []models.TestSpec{spec("gpt-x", 0)})
	if !results[0].OK() {
		t.Fatalf("expected success, got %s", results[0].Err)
	}
	if results[0].Attempts != 2 {
		t.Errorf("attempts = %d, want 2", results[0].Attempts)
	}
	if results[0].Text != "recovered" {
		t.Errorf("text = %q, want %q", results[0].Text, "recovered")
	}
}

func TestPartialFailureDrainsBatch(t *testing.T) {
	adapter := &stubAdapter{name: "test", complete: func(req provider.Request) (provider.Completion, error) {
		if req.Model == "broken" {
			return provider.Completion{}, &provider.Error{Kind: provider.KindInvalidModel, Provider: "test", Status: 404}
		}
		return provider.Completion{Text: "ok", Model: req.Model}, nil
	}}
	d, _ := newTestDispatcher(adapter)

	specs := []models.TestSpec{
		spec("good-a", 0),
		spec("broken", 0),
		spec("good-b", 0),
		spec("broken", 1),
		spec("good-c", 0),
	}
	results := d.Run(context.Background(), testInput, specs)

	if len(results) != 5 {
		t.Fatalf("got %d results, want 5", len(results))
	}
	var success, failed int
	for _, res := range results {
		if res.OK() {
			success++
		} else {
			failed++
		}
	}
	if success != 3 || failed != 2 {
		t.Errorf("got %d success / %d failed, want 3 / 2", success, failed)
	}
	if results[1].OK() || results[3].OK() {
		t.Error("broken specs did not fail in their own slots")
	}
}

func TestUnknownProviderFailsInPlace(t *testing.T) {
	d, _ := newTestDispatcher(&stubAdapter{name: "test"})

	sp := models.TestSpec{Model: "gpt-x", Provider: "missing", Class: models.TestClassNatural}
	results := d.Run(context.Background(), testInput, []models.TestSpec{sp})
	if results[0].OK() {
		t.Fatal("expected a failed result for unknown provider")
	}
	if results[0].Attempts != 0 {
		t.Errorf("attempts = %d, want 0", results[0].Attempts)
	}
}

func TestProgressReachesTotal(t *testing.T) {
	adapter := &stubAdapter{name: "test"}
	store := cache.NewMemory()

	var mu sync.Mutex
	var seen []int
	d := New(store, stubProviders{"test": adapter}, Config{
		Workers:     2,
		MaxAttempts: 1,
		Sleep:       instantSleep,
		OnProgress: func(done, total int) {
			mu.Lock()
			seen = append(seen, done)
			mu.Unlock()
			if total != 4 {
				t.Errorf("total = %d, want 4", total)
			}
		},
	})

	specs := []models.TestSpec{spec("a", 0), spec("b", 0), spec("c", 0), spec("d", 0)}
	d.Run(context.Background(), testInput, specs)

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 4 {
		t.Fatalf("got %d progress callbacks, want 4", len(seen))
	}
	max := 0
	for _, v := range seen {
		if v > max {
			max = v
		}
	}
	if max != 4 {
		t.Errorf("final progress = %d, want 4", max)
	}
}
