// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Appointment
// model: creation for the booking path, selection of overdue rows for the
// no-show sweep, and the state changes driven by customer intents.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/randevuhq/go-booking-backend/internal/domain"
)

// CreateAppointment inserts a confirmed appointment row.
func CreateAppointment(ctx context.Context, db *gorm.DB, tenantID, phone string, startsAt time.Time) (*domain.Appointment, error) {
	a := &domain.Appointment{
		ID:            uuid.NewString(),
		TenantID:      tenantID,
		CustomerPhone: phone,
		StartsAt:      startsAt.UTC(),
		Status:        domain.AppointmentConfirmed,
	}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

// GetAppointment fetches an appointment by ID or returns ErrNotFound.
func GetAppointment(ctx context.Context, db *gorm.DB, id string) (*domain.Appointment, error) {
	var a domain.Appointment
	err := db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListOverdueConfirmed returns confirmed appointments whose start time
// (shifted by any customer-announced delay) is older than cutoff, ordered
// oldest first. limit bounds one sweep batch; limit <= 0 means no bound.
func ListOverdueConfirmed(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]domain.Appointment, error) {
	var out []domain.Appointment
	q := db.WithContext(ctx).
		Where("status = ?", domain.AppointmentConfirmed).
		Where("datetime(starts_at, '+' || late_minutes || ' minutes') < datetime(?)", cutoff.UTC().Format("2006-01-02 15:04:05")).
		Order("starts_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// MarkNoShow flips a still-confirmed appointment to no_show. The status guard
// makes the sweep idempotent: a row already swept (or cancelled in the
// meantime) is not touched and ErrNotFound is returned.
func MarkNoShow(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.Appointment{}).
		Where("id = ? AND status = ?", id, domain.AppointmentConfirmed).
		Update("status", domain.AppointmentNoShow)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// nextConfirmed fetches the earliest confirmed appointment for the pair that
// has not started more than an hour before now. The grace covers customers
// writing about an appointment they are already late for.
func nextConfirmed(ctx context.Context, db *gorm.DB, tenantID, phone string, now time.Time) (*domain.Appointment, error) {
	var a domain.Appointment
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND customer_phone = ? AND status = ?", tenantID, phone, domain.AppointmentConfirmed).
		Where("starts_at > ?", now.UTC().Add(-time.Hour)).
		Order("starts_at ASC, id ASC").
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CancelNextConfirmed cancels the customer's nearest confirmed appointment
// and returns it, or ErrNotFound when there is nothing to cancel.
func CancelNextConfirmed(ctx context.Context, db *gorm.DB, tenantID, phone string, now time.Time) (*domain.Appointment, error) {
	a, err := nextConfirmed(ctx, db, tenantID, phone, now)
	if err != nil {
		return nil, err
	}
	res := db.WithContext(ctx).
		Model(&domain.Appointment{}).
		Where("id = ? AND status = ?", a.ID, domain.AppointmentConfirmed).
		Update("status", domain.AppointmentCancelled)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	a.Status = domain.AppointmentCancelled
	return a, nil
}

// ApplyDelay records a customer-announced delay in minutes against their
// nearest confirmed appointment. The sweep shifts the overdue cutoff by this
// value so an announced delay postpones the no-show verdict.
func ApplyDelay(ctx context.Context, db *gorm.DB, tenantID, phone string, minutes int, now time.Time) (*domain.Appointment, error) {
	a, err := nextConfirmed(ctx, db, tenantID, phone, now)
	if err != nil {
		return nil, err
	}
	res := db.WithContext(ctx).
		Model(&domain.Appointment{}).
		Where("id = ? AND status = ?", a.ID, domain.AppointmentConfirmed).
		Update("late_minutes", minutes)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	a.LateMinutes = minutes
	return a, nil
}
