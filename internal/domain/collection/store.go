package collection

import (
	"context"
	"time"

	"visionlex-server-go/internal/domain/vision"
	"visionlex-server-go/internal/platform/logging"
	"visionlex-server-go/internal/platform/storage"
)

// Item is one favorited word. Keyed by RepresentativeWord; at most one entry
// per word, never auto-evicted.
type Item struct {
	vision.AnalysisResult
	CollectedAt int64 `json:"collectedAt"`
}

// Store manages the duplicate-free favorites list on top of the persistence
// adapter. Storage failures degrade to no-ops with neutral returns.
type Store struct {
	kv     *storage.KV
	logger *logging.Logger
}

func NewStore(kv *storage.KV, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &Store{
		kv:     kv,
		logger: logger,
	}
}

// IsCollected reports membership by representative word.
func (s *Store) IsCollected(ctx context.Context, word string) bool {
	for _, item := range s.load(ctx) {
		if item.RepresentativeWord == word {
			return true
		}
	}
	return false
}

// Add stores the word unless it is already collected; returns whether the
// collection changed.
func (s *Store) Add(ctx context.Context, data vision.AnalysisResult) bool {
	items := s.load(ctx)
	for _, item := range items {
		if item.RepresentativeWord == data.RepresentativeWord {
			return false
		}
	}

	item := Item{
		AnalysisResult: data,
		CollectedAt:    time.Now().UnixMilli(),
	}
	s.persist(ctx, append([]Item{item}, items...))
	return true
}

// Remove drops the word from the collection.
func (s *Store) Remove(ctx context.Context, word string) {
	items := s.load(ctx)
	kept := items[:0]
	for _, item := range items {
		if item.RepresentativeWord != word {
			kept = append(kept, item)
		}
	}
	s.persist(ctx, kept)
}

// Toggle flips membership and reports the resulting state: true when the
// word is now collected. Applying it twice restores the prior state.
func (s *Store) Toggle(ctx context.Context, data vision.AnalysisResult) bool {
	if s.IsCollected(ctx, data.RepresentativeWord) {
		s.Remove(ctx, data.RepresentativeWord)
		return false
	}
	return s.Add(ctx, data)
}

// List returns all collected items, newest first.
func (s *Store) List(ctx context.Context) []Item {
	return s.load(ctx)
}

func (s *Store) load(ctx context.Context) []Item {
	var items []Item
	if _, err := s.kv.Get(ctx, storage.KeyWordCollection, &items); err != nil {
		s.logger.WarnTag("STORE", "read collection: %v", err)
		return nil
	}
	return items
}

func (s *Store) persist(ctx context.Context, items []Item) {
	if err := s.kv.Set(ctx, storage.KeyWordCollection, items); err != nil {
		s.logger.WarnTag("STORE", "persist collection: %v", err)
	}
}
