// Package pgstore backs kvstore.Store with a Postgres table so that every server instance
// shares one revocation list and one set of rate-limit counters.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jrsteele09/masapp-server/kvstore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Entry is one row of the kv_entries table. A null ExpiresAt never expires.
type Entry struct {
	Key       string     `gorm:"column:entry_key;primaryKey;size:255"`
	Value     string     `gorm:"column:value"`
	Count     int64      `gorm:"column:count"`
	ExpiresAt *time.Time `gorm:"column:expires_at;index"`
}

func (Entry) TableName() string {
	return "kv_entries"
}

func (e Entry) expired(now time.Time) bool {
	return e.ExpiresAt != nil && !now.Before(*e.ExpiresAt)
}

type Store struct {
	db      *gorm.DB
	nowFunc func() time.Time
}

var (
	_ kvstore.Store   = (*Store)(nil)
	_ kvstore.Sweeper = (*Store)(nil)
)

type Option func(*Store)

func WithNowFunc(now func() time.Time) Option {
	return func(s *Store) {
		s.nowFunc = now
	}
}

// Open connects to Postgres with dsn and makes sure the kv_entries table exists.
func Open(dsn string, options ...Option) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("pgstore.Open: %w", err)
	}
	return New(db, options...)
}

// New wraps an existing gorm connection.
func New(db *gorm.DB, options ...Option) (*Store, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("pgstore.New AutoMigrate: %w", err)
	}
	s := &Store{db: db, nowFunc: time.Now}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var e Entry
	err := s.db.WithContext(ctx).Where("entry_key = ?", key).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("pgstore.Get: %w", err)
	}
	if e.expired(s.nowFunc()) {
		return "", false, nil
	}
	return e.Value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	e := Entry{Key: key, Value: value}
	if ttl > 0 {
		exp := s.nowFunc().Add(ttl)
		e.ExpiresAt = &exp
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "count", "expires_at"}),
	}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("pgstore.Set: %w", err)
	}
	return nil
}

// SetNX inserts key, or takes over a row whose entry has expired. RowsAffected is zero when a
// live entry already holds the key.
func (s *Store) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	now := s.nowFunc()
	e := Entry{Key: key, Value: value}
	if ttl > 0 {
		exp := now.Add(ttl)
		e.ExpiresAt = &exp
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "count", "expires_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "kv_entries.expires_at IS NOT NULL AND kv_entries.expires_at <= ?", Vars: []any{now}},
		}},
	}).Create(&e)
	if res.Error != nil {
		return false, fmt.Errorf("pgstore.SetNX: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Incr makes sure the row exists before locking it, so concurrent first hits from several
// instances serialise on the same row lock.
func (s *Store) Incr(ctx context.Context, key string, window time.Duration) (kvstore.Counter, error) {
	var counter kvstore.Counter
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.nowFunc()
		exp := now.Add(window)

		seed := Entry{Key: key, Value: "0", ExpiresAt: &exp}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}

		var e Entry
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("entry_key = ?", key).Take(&e).Error; err != nil {
			return err
		}
		if e.Count == 0 || e.expired(now) {
			e.Count = 1
			e.ExpiresAt = &exp
		} else {
			e.Count++
		}
		e.Value = strconv.FormatInt(e.Count, 10)

		if err := tx.Model(&Entry{}).Where("entry_key = ?", key).Updates(map[string]any{
			"value":      e.Value,
			"count":      e.Count,
			"expires_at": e.ExpiresAt,
		}).Error; err != nil {
			return err
		}
		counter = kvstore.Counter{Count: e.Count, ResetAt: *e.ExpiresAt}
		return nil
	})
	if err != nil {
		return kvstore.Counter{}, fmt.Errorf("pgstore.Incr: %w", err)
	}
	return counter, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("entry_key = ?", key).Delete(&Entry{}).Error; err != nil {
		return fmt.Errorf("pgstore.Delete: %w", err)
	}
	return nil
}

func (s *Store) Sweep(ctx context.Context) (int, error) {
	res := s.db.WithContext(ctx).Where("expires_at IS NOT NULL AND expires_at <= ?", s.nowFunc()).Delete(&Entry{})
	if res.Error != nil {
		return 0, fmt.Errorf("pgstore.Sweep: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
