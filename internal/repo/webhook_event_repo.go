// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the WebhookEvent
// model used to deduplicate provider redeliveries.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/randevuhq/go-booking-backend/internal/domain"
)

// isUniqueViolation reports whether err is a unique-constraint failure.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}

// MarkEventSeen records eventID and reports whether it was already seen
// within its TTL. The unique index on event_id is the arbiter, so two
// concurrent deliveries of the same event resolve to exactly one "new".
func MarkEventSeen(ctx context.Context, db *gorm.DB, eventID string, ttl time.Duration) (bool, error) {
	if strings.TrimSpace(eventID) == "" {
		return false, nil
	}
	now := time.Now().UTC()

	// An expired row for the same event no longer counts as a replay.
	db.WithContext(ctx).
		Where("event_id = ? AND expires_at <= ?", eventID, now).
		Delete(&domain.WebhookEvent{})

	rec := &domain.WebhookEvent{
		ID:        uuid.NewString(),
		EventID:   eventID,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

// ForgetEvent releases a recorded event id so the provider's next redelivery
// is processed as new. Called when the turn for the event failed after the id
// was recorded; a replay must only be acknowledged for a completed turn.
func ForgetEvent(ctx context.Context, db *gorm.DB, eventID string) error {
	if strings.TrimSpace(eventID) == "" {
		return nil
	}
	return db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Delete(&domain.WebhookEvent{}).Error
}

// PurgeExpiredEvents deletes webhook event rows whose TTL has passed.
func PurgeExpiredEvents(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.WebhookEvent{})
	return res.RowsAffected, res.Error
}
