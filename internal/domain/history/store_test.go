package history

import (
	"context"
	"strconv"
	"testing"
	"time"

	"visionlex-server-go/internal/domain/vision"
	"visionlex-server-go/internal/platform/storage"
)

func newTestStore(t *testing.T, limit int) (*Store, *storage.KV) {
	t.Helper()
	kv := storage.NewKV(storage.NewMemory(), "visionlex_", nil)
	return NewStore(kv, limit, nil), kv
}

func result(word string) vision.AnalysisResult {
	return vision.AnalysisResult{
		RepresentativeWord: word,
		ExampleSentence:    "A " + word + " appears.",
	}
}

func TestAddAssignsMonotonicIDs(t *testing.T) {
	store, _ := newTestStore(t, 100)
	ctx := context.Background()

	var prev int64
	for i := 0; i < 5; i++ {
		rec := store.Add(ctx, result("w"+strconv.Itoa(i)), "data:image/png;base64,AA")
		id, err := strconv.ParseInt(rec.ID, 10, 64)
		if err != nil {
			t.Fatalf("non-numeric id %q", rec.ID)
		}
		if id <= prev {
			t.Fatalf("ids must be strictly increasing: %d after %d", id, prev)
		}
		prev = id
	}
}

func TestHistoryCapEvictsOldestFirst(t *testing.T) {
	store, _ := newTestStore(t, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		store.Add(ctx, result("word"+strconv.Itoa(i)), "")
	}

	records := store.List(ctx)
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	// Newest first; word0 and word1 were evicted.
	if records[0].RepresentativeWord != "word4" || records[2].RepresentativeWord != "word2" {
		t.Fatalf("unexpected retention order: %s .. %s",
			records[0].RepresentativeWord, records[2].RepresentativeWord)
	}

	if stats := store.Statistics(ctx); stats.Total != 3 {
		t.Fatalf("statistics total should honor the cap, got %d", stats.Total)
	}
}

func TestRemoveAndClear(t *testing.T) {
	store, _ := newTestStore(t, 100)
	ctx := context.Background()

	a := store.Add(ctx, result("alpha"), "")
	b := store.Add(ctx, result("beta"), "")

	store.Remove(ctx, a.ID)
	records := store.List(ctx)
	if len(records) != 1 || records[0].ID != b.ID {
		t.Fatalf("remove left unexpected records: %+v", records)
	}

	// Removing a missing id is a no-op.
	store.Remove(ctx, "does-not-exist")
	if len(store.List(ctx)) != 1 {
		t.Fatalf("no-op remove changed the list")
	}

	store.Clear(ctx)
	if len(store.List(ctx)) != 0 {
		t.Fatalf("clear left records behind")
	}
}

func TestStatisticsTodayIsMidnightAligned(t *testing.T) {
	store, kv := newTestStore(t, 100)
	ctx := context.Background()

	now := time.Now()
	yesterday := now.AddDate(0, 0, -1)
	seeded := []Record{
		{ID: "2", Timestamp: now.UnixMilli()},
		{ID: "1", Timestamp: yesterday.UnixMilli()},
	}
	if err := kv.Set(ctx, storage.KeyLearningHistory, seeded); err != nil {
		t.Fatalf("seed history: %v", err)
	}

	stats := store.Statistics(ctx)
	if stats.Total != 2 {
		t.Fatalf("expected total 2, got %d", stats.Total)
	}
	if stats.Today != 1 {
		t.Fatalf("expected one record today, got %d", stats.Today)
	}
}

func TestLifetimeSurvivesClear(t *testing.T) {
	store, _ := newTestStore(t, 100)
	ctx := context.Background()

	store.Add(ctx, result("one"), "")
	store.Add(ctx, result("two"), "")
	store.Clear(ctx)

	if got := store.Lifetime(ctx); got != 2 {
		t.Fatalf("lifetime counter should survive clear, got %d", got)
	}
}

func TestGetByID(t *testing.T) {
	store, _ := newTestStore(t, 100)
	ctx := context.Background()

	rec := store.Add(ctx, result("gamma"), "data:image/png;base64,BB")
	got, ok := store.Get(ctx, rec.ID)
	if !ok {
		t.Fatalf("expected record to resolve")
	}
	if got.RepresentativeWord != "gamma" || got.ImageData != "data:image/png;base64,BB" {
		t.Fatalf("unexpected record: %+v", got)
	}

	if _, ok := store.Get(ctx, "missing"); ok {
		t.Fatalf("missing id must not resolve")
	}
}
