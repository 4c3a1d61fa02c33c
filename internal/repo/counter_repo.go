// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the rate-counter store used by the
// per-phone admission limiter.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/randevuhq/go-booking-backend/internal/domain"
	"github.com/randevuhq/go-booking-backend/internal/ratelimit"
)

// CounterStore is the GORM-backed implementation of ratelimit.CounterStore.
// Increments go through a single upsert so concurrent senders never lose a
// count, even across multiple server processes sharing the database.
type CounterStore struct {
	DB *gorm.DB
}

// NewCounterStore wraps db for the limiter.
func NewCounterStore(db *gorm.DB) *CounterStore { return &CounterStore{DB: db} }

// Increment bumps the (phone, window) counter and returns the post-increment
// count. A row whose expiry has passed is reset to 1 with a fresh expiry; the
// reset and the increment are decided inside the statement, not in Go, so
// there is no read-modify-write race.
func (s *CounterStore) Increment(ctx context.Context, phone string, window ratelimit.Window, ttl time.Duration) (int64, error) {
	now := time.Now().UTC()
	row := domain.RateCounter{
		Phone:     phone,
		Window:    string(window),
		Count:     1,
		ExpiresAt: now.Add(ttl),
	}
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "phone"}, {Name: "window"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"count":      gorm.Expr("CASE WHEN rate_counters.expires_at <= ? THEN 1 ELSE rate_counters.count + 1 END", now),
			"expires_at": gorm.Expr("CASE WHEN rate_counters.expires_at <= ? THEN ? ELSE rate_counters.expires_at END", now, now.Add(ttl)),
		}),
	}).Create(&row).Error
	if err != nil {
		return 0, err
	}

	var out domain.RateCounter
	err = s.DB.WithContext(ctx).
		Where(`phone = ? AND "window" = ?`, phone, string(window)).
		First(&out).Error
	if err != nil {
		return 0, err
	}
	return out.Count, nil
}

// SetCooldown places or refreshes the escalated marker for phone.
func (s *CounterStore) SetCooldown(ctx context.Context, phone string, ttl time.Duration) error {
	now := time.Now().UTC()
	m := domain.CooldownMarker{
		Phone:     phone,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"expires_at": m.ExpiresAt}),
	}).Create(&m).Error
}

// CooldownRemaining returns the time left on a non-expired marker, or zero.
func (s *CounterStore) CooldownRemaining(ctx context.Context, phone string) (time.Duration, error) {
	var m domain.CooldownMarker
	err := s.DB.WithContext(ctx).Where("phone = ?", phone).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if rem := time.Until(m.ExpiresAt); rem > 0 {
		return rem, nil
	}
	return 0, nil
}

// PurgeExpiredCounters deletes counters and cooldown markers whose expiry has
// passed. Expired rows are already ignored by reads; this keeps the tables
// from growing unbounded.
func PurgeExpiredCounters(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.RateCounter{})
	if res.Error != nil {
		return 0, res.Error
	}
	purged := res.RowsAffected
	res = db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.CooldownMarker{})
	if res.Error != nil {
		return purged, res.Error
	}
	return purged + res.RowsAffected, nil
}
