package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/killallgit/meeting-recorder/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DBGuard stores leases in the idempotency_keys table
type DBGuard struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDBGuard creates a lease guard backed by the relational store
func NewDBGuard(db *gorm.DB) *DBGuard {
	return &DBGuard{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (g *DBGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ts := g.now()
	lease := models.IdempotencyKey{Key: key, ExpiresAt: ts.Add(ttl), CreatedAt: ts}

	res := g.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&lease)
	if res.Error != nil {
		return false, fmt.Errorf("inserting lease: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	// Someone holds or held the key; take it over only once it expired.
	res = g.db.WithContext(ctx).
		Model(&models.IdempotencyKey{}).
		Where("key = ? AND expires_at <= ?", key, ts).
		Updates(map[string]interface{}{"expires_at": ts.Add(ttl), "created_at": ts})
	if res.Error != nil {
		return false, fmt.Errorf("taking over lease: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (g *DBGuard) Release(ctx context.Context, key string) error {
	if err := g.db.WithContext(ctx).Delete(&models.IdempotencyKey{}, "key = ?", key).Error; err != nil {
		return fmt.Errorf("releasing lease: %w", err)
	}
	return nil
}

// PurgeExpired removes leases nobody released
func (g *DBGuard) PurgeExpired(ctx context.Context) (int64, error) {
	res := g.db.WithContext(ctx).Where("expires_at <= ?", g.now()).Delete(&models.IdempotencyKey{})
	if res.Error != nil {
		return 0, fmt.Errorf("purging leases: %w", res.Error)
	}
	return res.RowsAffected, nil
}
