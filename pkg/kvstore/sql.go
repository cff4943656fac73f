package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is a row of the kv_entries table.
type Entry struct {
	Key       string    `gorm:"column:key;primaryKey;size:255"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (Entry) TableName() string { return "kv_entries" }

// SQL persists entries through gorm. The table is created by the goose migrations.
type SQL struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSQL(db *gorm.DB) *SQL {
	return &SQL{db: db, now: time.Now}
}

func (s *SQL) Get(ctx context.Context, key string) (string, error) {
	var entry Entry
	err := s.db.WithContext(ctx).Where(keyIs(key)).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("kvstore sql get %q: %w", key, err)
	}
	return entry.Value, nil
}

func (s *SQL) Set(ctx context.Context, key, value string) error {
	entry := Entry{Key: key, Value: value, UpdatedAt: s.now().UTC()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&entry).Error
	if err != nil {
		return fmt.Errorf("kvstore sql set %q: %w", key, err)
	}
	return nil
}

func (s *SQL) Remove(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where(keyIs(key)).Delete(&Entry{}).Error; err != nil {
		return fmt.Errorf("kvstore sql remove %q: %w", key, err)
	}
	return nil
}

// PurgeBefore deletes entries not written since cutoff and returns how many were removed.
func (s *SQL) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("updated_at < ?", cutoff.UTC()).Delete(&Entry{})
	if res.Error != nil {
		return 0, fmt.Errorf("kvstore sql purge: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func keyIs(key string) clause.Eq {
	return clause.Eq{Column: clause.Column{Name: "key"}, Value: key}
}
