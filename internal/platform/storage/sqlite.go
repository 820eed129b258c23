package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// KVEntry is the gorm model backing the sqlite driver.
type KVEntry struct {
	Key       string         `gorm:"primaryKey;size:128"`
	Payload   datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time
}

func (KVEntry) TableName() string {
	return "kv_entries"
}

type sqliteBackend struct {
	db *gorm.DB
}

// NewSQLite opens (or creates) the database file and migrates the kv table.
func NewSQLite(dsn string) (Backend, error) {
	if dsn == "" {
		dsn = "visionlex.db"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	if err := db.AutoMigrate(&KVEntry{}); err != nil {
		return nil, fmt.Errorf("migrate kv table: %w", err)
	}
	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry KVEntry
	err := b.db.WithContext(ctx).First(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(entry.Payload), true, nil
}

func (b *sqliteBackend) Set(ctx context.Context, key string, value []byte) error {
	entry := KVEntry{
		Key:       key,
		Payload:   datatypes.JSON(value),
		UpdatedAt: time.Now(),
	}
	return b.db.WithContext(ctx).Save(&entry).Error
}

func (b *sqliteBackend) Delete(ctx context.Context, key string) error {
	return b.db.WithContext(ctx).Delete(&KVEntry{}, "key = ?", key).Error
}

func (b *sqliteBackend) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := b.db.WithContext(ctx).Model(&KVEntry{}).Pluck("key", &keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

func (b *sqliteBackend) Close(context.Context) error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
