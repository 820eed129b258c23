package storage

import (
	"fmt"

	"visionlex-server-go/internal/platform/config"
	"visionlex-server-go/internal/platform/logging"
)

// New creates the configured backend and wraps it in the versioned adapter.
func New(cfg config.StorageConfig, logger *logging.Logger) (*KV, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverMemory
	}

	var (
		backend Backend
		err     error
	)
	switch driver {
	case DriverMemory:
		backend = NewMemory()
	case DriverSQLite:
		backend, err = NewSQLite(cfg.SQLite.DSN)
	case DriverRedis:
		backend, err = NewRedis(cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", driver)
	}
	if err != nil {
		return nil, err
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "visionlex_"
	}
	return NewKV(backend, namespace, logger), nil
}
