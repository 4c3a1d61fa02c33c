// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the NoShowRecord
// model backing the no-show escalation and blacklist.
//
// # Responsibilities
//
//   - GetNoShowRecord(ctx, db, tenantID, phone) -> *domain.NoShowRecord, error
//     Fetch the tracking row for a (tenant, phone) pair or ErrNotFound.
//
//   - IsBlocked(ctx, db, tenantID, phone) -> (bool, error)
//     Cheap read used on every inbound message and booking attempt. A missing
//     row means the customer is not blocked.
//
//   - IncrementNoShow(ctx, db, tenantID, phone, threshold, reason)
//     Bump the per-pair count inside a transaction and apply the block once
//     the threshold is reached. The second return value is true only on the
//     transition into the blocked state, so callers notify exactly once.
//
//   - ListBlocked / CountBlocked: paginated admin view of blocked customers.
//
//   - Unblock(ctx, db, tenantID, phone) -> error
//     Administrative reset. The escalation path itself never clears a block.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/randevuhq/go-booking-backend/internal/domain"
)

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("not found")

// GetNoShowRecord fetches the tracking row for a (tenant, phone) pair.
func GetNoShowRecord(ctx context.Context, db *gorm.DB, tenantID, phone string) (*domain.NoShowRecord, error) {
	var rec domain.NoShowRecord
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND customer_phone = ?", tenantID, phone).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// IsBlocked reports whether the pair is currently blocked. A pair with no
// record has no history and is not blocked.
func IsBlocked(ctx context.Context, db *gorm.DB, tenantID, phone string) (bool, error) {
	rec, err := GetNoShowRecord(ctx, db, tenantID, phone)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return rec.IsBlocked, nil
}

// IncrementNoShow bumps the no-show count for the pair, creating the record
// on first use, and applies the block when the count reaches threshold. The
// count keeps growing past the threshold but the blocked fields are written
// only once; newlyBlocked is true only for that transition.
func IncrementNoShow(ctx context.Context, db *gorm.DB, tenantID, phone string, threshold int, reason string) (*domain.NoShowRecord, bool, error) {
	var rec domain.NoShowRecord
	newlyBlocked := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("tenant_id = ? AND customer_phone = ?", tenantID, phone).First(&rec).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			rec = domain.NoShowRecord{
				ID:            uuid.NewString(),
				TenantID:      tenantID,
				CustomerPhone: phone,
			}
		case err != nil:
			return err
		}

		rec.NoShowCount++
		if !rec.IsBlocked && threshold > 0 && rec.NoShowCount >= threshold {
			now := time.Now().UTC()
			rec.IsBlocked = true
			rec.BlockedAt = &now
			rec.BlockReason = reason
			newlyBlocked = true
		}
		return tx.Save(&rec).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &rec, newlyBlocked, nil
}

// ListBlocked returns a page of blocked customers for a tenant, most recently
// blocked first (BlockedAt DESC, ID ASC for determinism).
func ListBlocked(ctx context.Context, db *gorm.DB, tenantID string, offset, limit int) ([]domain.NoShowRecord, error) {
	var out []domain.NoShowRecord
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND is_blocked = ?", tenantID, true).
		Order("blocked_at DESC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountBlocked returns the number of blocked customers for a tenant.
func CountBlocked(ctx context.Context, db *gorm.DB, tenantID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.NoShowRecord{}).
		Where("tenant_id = ? AND is_blocked = ?", tenantID, true).
		Count(&total).Error
	return total, err
}

// Unblock clears the block and resets the count for a blocked pair. Returns
// ErrNotFound when the pair is not currently blocked.
func Unblock(ctx context.Context, db *gorm.DB, tenantID, phone string) error {
	res := db.WithContext(ctx).
		Model(&domain.NoShowRecord{}).
		Where("tenant_id = ? AND customer_phone = ? AND is_blocked = ?", tenantID, phone, true).
		Updates(map[string]interface{}{
			"is_blocked":    false,
			"no_show_count": 0,
			"blocked_at":    nil,
			"block_reason":  "",
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
