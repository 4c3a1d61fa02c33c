// Package services – NoShowService
//
// This file implements NoShowService, which converts overdue confirmed
// appointments into no-show records and escalates repeat offenders into an
// automatic block. The sweep is fed by an admin-triggered batch entry point;
// per-appointment idempotency comes from the confirmed-status guard on the
// appointment row, so re-running a sweep never double-counts.
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/randevuhq/go-booking-backend/internal/domain"
	"github.com/randevuhq/go-booking-backend/internal/repo"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// BlockReason is the fixed reason recorded when the no-show threshold blocks
// a customer.
const BlockReason = "no_show_limit_reached"

// noShowBlocks counts customers newly blocked by the escalation path.
var noShowBlocks = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "noshow_blocks_total",
	Help: "Customers blocked after reaching the no-show threshold.",
})

func init() {
	prometheus.MustRegister(noShowBlocks)
}

// SweepResult summarizes one sweep run.
type SweepResult struct {
	Scanned int `json:"scanned"`
	Swept   int `json:"swept"`
	Blocked int `json:"blocked"`
}

// NoShowService owns the escalation policy: the threshold, the grace period
// before an appointment counts as missed, and the block notification.
type NoShowService struct {
	DB       *gorm.DB
	Notifier Notifier

	// Threshold is the no-show count at which the pair is blocked.
	Threshold int
	// Grace is how long past the (delay-shifted) start time an appointment
	// must be before the sweep treats it as missed.
	Grace time.Duration
	// BatchSize bounds one sweep; 0 means unbounded.
	BatchSize int
}

// Sweep selects overdue, still-confirmed appointments, flips each to no_show,
// and feeds the (tenant, phone) pair to the escalation increment. A pair that
// crosses the threshold is blocked and notified exactly once.
func (s *NoShowService) Sweep(ctx context.Context) (SweepResult, error) {
	tr := otel.Tracer("services/NoShowService")
	ctx, span := tr.Start(ctx, "Sweep")
	defer span.End()

	cutoff := time.Now().UTC().Add(-s.Grace)
	overdue, err := repo.ListOverdueConfirmed(ctx, s.DB, cutoff, s.BatchSize)
	if err != nil {
		return SweepResult{}, err
	}

	res := SweepResult{Scanned: len(overdue)}
	for _, a := range overdue {
		// A row swept by a concurrent run is simply skipped.
		if err := repo.MarkNoShow(ctx, s.DB, a.ID); err != nil {
			continue
		}
		res.Swept++

		if _, newlyBlocked, err := s.recordNoShow(ctx, a.TenantID, a.CustomerPhone); err != nil {
			log.Error().
				Str("tenant_id", a.TenantID).
				Str("appointment_id", a.ID).
				Err(err).
				Msg("no-show escalation failed")
			continue
		} else if newlyBlocked {
			res.Blocked++
		}
	}

	span.SetAttributes(
		attribute.Int("noshow.scanned", res.Scanned),
		attribute.Int("noshow.swept", res.Swept),
		attribute.Int("noshow.blocked", res.Blocked),
	)
	return res, nil
}

// RecordNoShow escalates a single externally supplied no-show event.
func (s *NoShowService) RecordNoShow(ctx context.Context, tenantID, phone string) (*domain.NoShowRecord, bool, error) {
	tr := otel.Tracer("services/NoShowService")
	ctx, span := tr.Start(ctx, "RecordNoShow",
		trace.WithAttributes(attribute.String("tenant.id", tenantID)),
	)
	defer span.End()
	return s.recordNoShow(ctx, tenantID, phone)
}

func (s *NoShowService) recordNoShow(ctx context.Context, tenantID, phone string) (*domain.NoShowRecord, bool, error) {
	rec, newlyBlocked, err := repo.IncrementNoShow(ctx, s.DB, tenantID, phone, s.Threshold, BlockReason)
	if err != nil {
		return nil, false, err
	}
	if newlyBlocked {
		noShowBlocks.Inc()
		log.Warn().
			Str("tenant_id", tenantID).
			Int("no_show_count", rec.NoShowCount).
			Msg("customer blocked after repeated no-shows")
		if s.Notifier != nil {
			s.Notifier.Dispatch(ctx, phone,
				"Üst üste gelmediğiniz randevular nedeniyle yeni randevu alımınız durduruldu. Lütfen işletme ile iletişime geçin.")
		}
	}
	return rec, newlyBlocked, nil
}

// IsBlocked is the read used by the booking path. Absence of history is
// permissive.
func (s *NoShowService) IsBlocked(ctx context.Context, tenantID, phone string) (bool, error) {
	return repo.IsBlocked(ctx, s.DB, tenantID, phone)
}

// ListBlocked returns a page of blocked customers plus the total count.
func (s *NoShowService) ListBlocked(ctx context.Context, tenantID string, page, pageSize int) ([]domain.NoShowRecord, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	total, err := repo.CountBlocked(ctx, s.DB, tenantID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.NoShowRecord{}, 0, nil
	}
	items, err := repo.ListBlocked(ctx, s.DB, tenantID, (page-1)*pageSize, pageSize)
	return items, total, err
}

// Unblock is the administrative reset; the escalation path never calls it.
func (s *NoShowService) Unblock(ctx context.Context, tenantID, phone string) error {
	return repo.Unblock(ctx, s.DB, tenantID, phone)
}
