package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/randevuhq/go-booking-backend/internal/domain"
)

func TestCreateAppointment_SetsFields(t *testing.T) {
	db := newRepoDB(t, &domain.Appointment{})

	starts := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	a, err := CreateAppointment(context.Background(), db, "t1", "905551234567", starts)
	if err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}
	if a.ID == "" || a.TenantID != "t1" || a.CustomerPhone != "905551234567" {
		t.Fatalf("unexpected fields: %+v", a)
	}
	if a.Status != domain.AppointmentConfirmed {
		t.Fatalf("status = %q, want confirmed", a.Status)
	}
}

func TestListOverdueConfirmed(t *testing.T) {
	db := newRepoDB(t, &domain.Appointment{})
	ctx := context.Background()
	now := time.Now().UTC()

	overdue, err := CreateAppointment(ctx, db, "t1", "905551111111", now.Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("seed overdue: %v", err)
	}
	if _, err := CreateAppointment(ctx, db, "t1", "905552222222", now.Add(2*time.Hour)); err != nil {
		t.Fatalf("seed future: %v", err)
	}
	cancelled, err := CreateAppointment(ctx, db, "t1", "905553333333", now.Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("seed cancelled: %v", err)
	}
	if err := db.Model(cancelled).Update("status", domain.AppointmentCancelled).Error; err != nil {
		t.Fatalf("cancel seed: %v", err)
	}
	// Announced delay pushes the effective start past the cutoff.
	delayed, err := CreateAppointment(ctx, db, "t1", "905554444444", now.Add(-20*time.Minute))
	if err != nil {
		t.Fatalf("seed delayed: %v", err)
	}
	if err := db.Model(delayed).Update("late_minutes", 60).Error; err != nil {
		t.Fatalf("delay seed: %v", err)
	}

	got, err := ListOverdueConfirmed(ctx, db, now.Add(-15*time.Minute), 0)
	if err != nil {
		t.Fatalf("ListOverdueConfirmed: %v", err)
	}
	if len(got) != 1 || got[0].ID != overdue.ID {
		t.Fatalf("got %d rows %+v, want only the overdue confirmed one", len(got), got)
	}
}

func TestMarkNoShow_Idempotent(t *testing.T) {
	db := newRepoDB(t, &domain.Appointment{})
	ctx := context.Background()

	a, err := CreateAppointment(ctx, db, "t1", "905551234567", time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := MarkNoShow(ctx, db, a.ID); err != nil {
		t.Fatalf("MarkNoShow: %v", err)
	}
	got, err := GetAppointment(ctx, db, a.ID)
	if err != nil || got.Status != domain.AppointmentNoShow {
		t.Fatalf("status = %q err=%v, want no_show", got.Status, err)
	}

	if err := MarkNoShow(ctx, db, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second MarkNoShow err = %v, want ErrNotFound", err)
	}
}

func TestCancelNextConfirmed_PicksEarliest(t *testing.T) {
	db := newRepoDB(t, &domain.Appointment{})
	ctx := context.Background()
	now := time.Now().UTC()

	near, err := CreateAppointment(ctx, db, "t1", "905551234567", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("seed near: %v", err)
	}
	if _, err := CreateAppointment(ctx, db, "t1", "905551234567", now.Add(48*time.Hour)); err != nil {
		t.Fatalf("seed far: %v", err)
	}

	got, err := CancelNextConfirmed(ctx, db, "t1", "905551234567", now)
	if err != nil {
		t.Fatalf("CancelNextConfirmed: %v", err)
	}
	if got.ID != near.ID || got.Status != domain.AppointmentCancelled {
		t.Fatalf("cancelled %+v, want nearest appointment cancelled", got)
	}
}

func TestCancelNextConfirmed_NothingToCancel(t *testing.T) {
	db := newRepoDB(t, &domain.Appointment{})

	_, err := CancelNextConfirmed(context.Background(), db, "t1", "905551234567", time.Now().UTC())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestApplyDelay(t *testing.T) {
	db := newRepoDB(t, &domain.Appointment{})
	ctx := context.Background()
	now := time.Now().UTC()

	a, err := CreateAppointment(ctx, db, "t1", "905551234567", now.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := ApplyDelay(ctx, db, "t1", "905551234567", 15, now)
	if err != nil {
		t.Fatalf("ApplyDelay: %v", err)
	}
	if got.ID != a.ID || got.LateMinutes != 15 {
		t.Fatalf("delay not applied: %+v", got)
	}

	persisted, err := GetAppointment(ctx, db, a.ID)
	if err != nil || persisted.LateMinutes != 15 {
		t.Fatalf("persisted late_minutes = %d err=%v", persisted.LateMinutes, err)
	}
}
