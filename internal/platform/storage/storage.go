package storage

import "context"

// SchemaVersion is stamped into every stored envelope. A mismatch on read
// discards the stored value in favor of the caller-supplied default; there is
// no automatic migration.
const SchemaVersion = "1.0.0"

// Well-known keys. The configured namespace (default "visionlex_") is
// prepended by the KV wrapper, matching the browser client's storage layout.
const (
	KeyLearningHistory = "learning_history"
	KeyWordCollection  = "word_collection"
	KeyUserPreferences = "user_preferences"
	KeyStatistics      = "statistics"
)

// Driver identifiers supported by the factory.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Backend is a raw namespaced byte store. Envelope versioning lives above it
// in KV so every driver shares the same discard-on-mismatch policy.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Close(ctx context.Context) error
}

// Usage estimates how much the store currently holds.
type Usage struct {
	Keys  int   `json:"keys"`
	Bytes int64 `json:"bytes"`
}
