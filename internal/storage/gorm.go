package storage

import (
	"context"
	"errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// entry is a single key-value row in the on-device store.
type entry struct {
	Key   string `gorm:"primaryKey;column:key"`
	Value string `gorm:"column:value"`
}

func (entry) TableName() string { return "kv_entries" }

// GormStore is a SQLite-backed Adapter for on-device durable storage.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens (creating if needed) the SQLite database at path and
// performs schema migration.
func NewGormStore(path string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&entry{}); err != nil {
		return nil, err
	}

	return &GormStore{db: db}, nil
}

func (gs *GormStore) Get(ctx context.Context, key string) (string, bool, error) {
	var e entry
	err := gs.db.WithContext(ctx).First(&e, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return e.Value, true, nil
}

func (gs *GormStore) Set(ctx context.Context, key, value string) error {
	return gs.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&entry{Key: key, Value: value}).Error
}

func (gs *GormStore) Remove(ctx context.Context, key string) error {
	return gs.db.WithContext(ctx).Delete(&entry{}, "key = ?", key).Error
}
