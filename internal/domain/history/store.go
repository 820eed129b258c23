package history

import (
	"context"
	"strconv"
	"sync"
	"time"

	"visionlex-server-go/internal/domain/vision"
	"visionlex-server-go/internal/platform/logging"
	"visionlex-server-go/internal/platform/storage"
)

// Record is one completed analysis cycle. Never mutated after creation.
type Record struct {
	vision.AnalysisResult
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	ImageData string `json:"imageData"`
}

// Statistics summarizes the stored history.
type Statistics struct {
	Total int `json:"total"`
	Today int `json:"today"`
}

// lifetime counters survive history eviction and clearing.
type lifetimeStats struct {
	TotalAnalyzed int64 `json:"total_analyzed"`
}

// Store keeps the capped, newest-first log of analysis cycles. Storage
// failures are logged and degrade to no-ops; callers always get a usable
// answer.
type Store struct {
	kv     *storage.KV
	limit  int
	logger *logging.Logger

	mu     sync.Mutex
	lastID int64
}

func NewStore(kv *storage.KV, limit int, logger *logging.Logger) *Store {
	if limit <= 0 {
		limit = 100
	}
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &Store{
		kv:     kv,
		limit:  limit,
		logger: logger,
	}
}

// Add assigns id and timestamp, prepends, truncates to the cap and persists.
// The stored record is returned even when persistence fails.
func (s *Store) Add(ctx context.Context, result vision.AnalysisResult, imageData string) Record {
	s.mu.Lock()
	now := time.Now().UnixMilli()
	if now <= s.lastID {
		now = s.lastID + 1
	}
	s.lastID = now
	s.mu.Unlock()

	record := Record{
		AnalysisResult: result,
		ID:             strconv.FormatInt(now, 10),
		Timestamp:      now,
		ImageData:      imageData,
	}

	records := s.load(ctx)
	records = append([]Record{record}, records...)
	if len(records) > s.limit {
		records = records[:s.limit]
	}
	s.persist(ctx, records)
	s.bumpLifetime(ctx)

	return record
}

// Remove deletes a single record by id.
func (s *Store) Remove(ctx context.Context, id string) {
	records := s.load(ctx)
	kept := records[:0]
	for _, r := range records {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	s.persist(ctx, kept)
}

// Clear drops all history records. Lifetime counters are kept.
func (s *Store) Clear(ctx context.Context) {
	s.persist(ctx, []Record{})
}

// List returns all records, newest first.
func (s *Store) List(ctx context.Context) []Record {
	return s.load(ctx)
}

// Get resolves a single record by id.
func (s *Store) Get(ctx context.Context, id string) (Record, bool) {
	for _, r := range s.load(ctx) {
		if r.ID == id {
			return r, true
		}
	}
	return Record{}, false
}

// Statistics counts all records plus those created since local midnight.
func (s *Store) Statistics(ctx context.Context) Statistics {
	records := s.load(ctx)

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	cutoff := midnight.UnixMilli()

	stats := Statistics{Total: len(records)}
	for _, r := range records {
		if r.Timestamp >= cutoff {
			stats.Today++
		}
	}
	return stats
}

// Lifetime returns the total number of analyses ever recorded.
func (s *Store) Lifetime(ctx context.Context) int64 {
	var stats lifetimeStats
	if _, err := s.kv.Get(ctx, storage.KeyStatistics, &stats); err != nil {
		s.logger.WarnTag("STORE", "read statistics: %v", err)
	}
	return stats.TotalAnalyzed
}

func (s *Store) load(ctx context.Context) []Record {
	var records []Record
	if _, err := s.kv.Get(ctx, storage.KeyLearningHistory, &records); err != nil {
		s.logger.WarnTag("STORE", "read history: %v", err)
		return nil
	}
	return records
}

func (s *Store) persist(ctx context.Context, records []Record) {
	if err := s.kv.Set(ctx, storage.KeyLearningHistory, records); err != nil {
		s.logger.WarnTag("STORE", "persist history: %v", err)
	}
}

func (s *Store) bumpLifetime(ctx context.Context) {
	var stats lifetimeStats
	if _, err := s.kv.Get(ctx, storage.KeyStatistics, &stats); err != nil {
		s.logger.WarnTag("STORE", "read statistics: %v", err)
		return
	}
	stats.TotalAnalyzed++
	if err := s.kv.Set(ctx, storage.KeyStatistics, stats); err != nil {
		s.logger.WarnTag("STORE", "persist statistics: %v", err)
	}
}
