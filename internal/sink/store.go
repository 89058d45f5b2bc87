// Package sink holds the Report Sink implementations: local persistence in
// SQLite and a one-way HTTP post to an external collector.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/jimrtyler/youshallnotpass/pkg/model"
)

// ViolationRecord is the persisted row for one violation event.
type ViolationRecord struct {
	ID        string `gorm:"primaryKey;size:36"`
	SubType   string `gorm:"index;size:64"`
	PageURL   string
	Timestamp int64 `gorm:"index"`
	// Details is the JSON-encoded evidence map.
	Details   string
	CreatedAt time.Time
}

// Store persists violation events in SQLite.
type Store struct {
	db *gorm.DB
}

// OpenStore opens and migrates the violation database at dsn.
func OpenStore(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		return nil, fmt.Errorf("open violation store: %w", err)
	}
	if err := db.AutoMigrate(&ViolationRecord{}); err != nil {
		return nil, fmt.Errorf("migrate violation store: %w", err)
	}
	return &Store{db: db}, nil
}

// Deliver appends one event.
func (s *Store) Deliver(ctx context.Context, e model.ViolationEvent, _ []byte) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("encode details: %w", err)
	}
	rec := ViolationRecord{
		ID:        e.ID,
		SubType:   e.SubType,
		PageURL:   e.PageURL,
		Timestamp: e.Timestamp,
		Details:   string(details),
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

// Recent returns the newest n records.
func (s *Store) Recent(ctx context.Context, n int) ([]ViolationRecord, error) {
	var out []ViolationRecord
	err := s.db.WithContext(ctx).Order("timestamp desc").Limit(n).Find(&out).Error
	return out, err
}

// Prune deletes records older than the retention window and returns how many
// went away.
func (s *Store) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UnixMilli()
	res := s.db.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&ViolationRecord{})
	return res.RowsAffected, res.Error
}
