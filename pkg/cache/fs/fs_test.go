package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hypernym-ai/modelprint/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	zap.ReplaceGlobals(zap.NewNop())
	s, err := New(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func entry(provider, key, text string) models.CachedResponse {
	return models.CachedResponse{
		Key:       key,
		Provider:  provider,
		Model:     "gpt-4o",
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Put(ctx, entry("martian", "k1", "hello")); err != nil {
		t.Fatal(err)
	}

	got, ok, err := s.Get(ctx, "martian", "k1")
	if err != nil || !ok {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if got.Text != "hello" {
		t.Errorf("unexpected text: %q", got.Text)
	}
}

func TestMiss(t *testing.T) {
	s := newTestStore(t)
	_, ok, err := s.Get(context.Background(), "martian", "nope")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected miss for absent key")
	}
}

func TestPutFirstWriterWins(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Put(ctx, entry("martian", "k1", "first")); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, entry("martian", "k1", "second")); err != nil {
		t.Fatal(err)
	}

	got, ok, _ := s.Get(ctx, "martian", "k1")
	if !ok || got.Text != "first" {
		t.Errorf("second put must be a no-op, got %q", got.Text)
	}
}

func TestCorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Put(ctx, entry("martian", "k1", "good")); err != nil {
		t.Fatal(err)
	}
	path := s.path("martian", "k1")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, ok, err := s.Get(ctx, "martian", "k1")
	if err != nil {
		t.Fatalf("corrupt entry must not surface an error: %v", err)
	}
	if ok {
		t.Error("corrupt entry must be a miss")
	}

	// The corrupt file is gone, so a fresh put succeeds.
	if err := s.Put(ctx, entry("martian", "k1", "fresh")); err != nil {
		t.Fatal(err)
	}
	got, ok, _ := s.Get(ctx, "martian", "k1")
	if !ok || got.Text != "fresh" {
		t.Errorf("expected fresh entry after corruption, got ok=%v %q", ok, got.Text)
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_ = s.Put(ctx, entry("martian", "k1", "a"))
	_ = s.Put(ctx, entry("martian", "k2", "b"))
	_ = s.Put(ctx, entry("openrouter", "k3", "c"))

	if err := s.Clear(ctx, "martian"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get(ctx, "martian", "k1"); ok {
		t.Error("scoped clear should remove the provider's entries")
	}
	if _, ok, _ := s.Get(ctx, "openrouter", "k3"); !ok {
		t.Error("scoped clear must not touch other providers")
	}

	if err := s.Clear(ctx, ""); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get(ctx, "openrouter", "k3"); ok {
		t.Error("clear all should remove every entry")
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 0 {
		t.Errorf("expected 0 entries after clear, got %d", stats.Entries)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_ = s.Put(ctx, entry("martian", "k1", "a"))
	s.Get(ctx, "martian", "k1") // hit
	s.Get(ctx, "martian", "k2") // miss

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 1 || stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
