package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bytedance/sonic"

	"visionlex-server-go/internal/platform/errors"
	"visionlex-server-go/internal/platform/logging"
)

// Envelope wraps every stored value with the schema version so incompatible
// data from older deployments is discarded instead of misread.
type Envelope struct {
	Version   string          `json:"version"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// KV is the versioned key-value adapter the domain stores build on. Writes
// are synchronous and last-writer-wins; there are no cross-key transactions.
type KV struct {
	backend   Backend
	namespace string
	logger    *logging.Logger
}

// NewKV wraps a backend with namespacing and envelope versioning.
func NewKV(backend Backend, namespace string, logger *logging.Logger) *KV {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &KV{
		backend:   backend,
		namespace: namespace,
		logger:    logger,
	}
}

func (kv *KV) key(key string) string {
	return kv.namespace + key
}

// Get reads key into out. It reports false (leaving out untouched) when the
// key is missing, the envelope is unreadable, or the schema version differs.
func (kv *KV) Get(ctx context.Context, key string, out any) (bool, error) {
	raw, ok, err := kv.backend.Get(ctx, kv.key(key))
	if err != nil {
		return false, errors.Wrap(errors.KindStorage, "kv.get", key, err)
	}
	if !ok {
		return false, nil
	}

	var env Envelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		kv.logger.WarnTag("STORE", "corrupt envelope for %q, discarding: %v", key, err)
		return false, nil
	}
	if env.Version != SchemaVersion {
		kv.logger.WarnTag("STORE", "schema version mismatch for %q: %s vs %s, discarding",
			key, env.Version, SchemaVersion)
		return false, nil
	}
	if err := sonic.Unmarshal(env.Data, out); err != nil {
		kv.logger.WarnTag("STORE", "stale payload shape for %q, discarding: %v", key, err)
		return false, nil
	}
	return true, nil
}

// Set stores value under key inside a fresh versioned envelope.
func (kv *KV) Set(ctx context.Context, key string, value any) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return errors.Wrap(errors.KindStorage, "kv.set", key, err)
	}
	env := Envelope{
		Version:   SchemaVersion,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
	raw, err := sonic.Marshal(env)
	if err != nil {
		return errors.Wrap(errors.KindStorage, "kv.set", key, err)
	}
	if err := kv.backend.Set(ctx, kv.key(key), raw); err != nil {
		return errors.Wrap(errors.KindStorage, "kv.set", key, err)
	}
	return nil
}

func (kv *KV) Delete(ctx context.Context, key string) error {
	if err := kv.backend.Delete(ctx, kv.key(key)); err != nil {
		return errors.Wrap(errors.KindStorage, "kv.delete", key, err)
	}
	return nil
}

// Usage walks the namespace and totals stored bytes.
func (kv *KV) Usage(ctx context.Context) (Usage, error) {
	keys, err := kv.backend.Keys(ctx)
	if err != nil {
		return Usage{}, errors.Wrap(errors.KindStorage, "kv.usage", "list keys", err)
	}
	usage := Usage{}
	for _, key := range keys {
		raw, ok, err := kv.backend.Get(ctx, key)
		if err != nil || !ok {
			continue
		}
		usage.Keys++
		usage.Bytes += int64(len(raw) + len(key))
	}
	return usage, nil
}

func (kv *KV) Close(ctx context.Context) error {
	return kv.backend.Close(ctx)
}
