// Package handlers provides HTTP handler implementations for the public API.
//
// This file wires the handler set to the application services through narrow
// interfaces, keeping transport concerns separate from business logic.
package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/randevuhq/go-booking-backend/internal/config"
	"github.com/randevuhq/go-booking-backend/internal/domain"
	"github.com/randevuhq/go-booking-backend/internal/services"
	"github.com/randevuhq/go-booking-backend/internal/utils"
)

// MessageService defines the inbound-turn contract required by the webhook
// and booking endpoints. Implementations must be safe for concurrent use and
// must honor the provided context.
type MessageService interface {
	// HandleInbound runs one guarded message turn for a verified event.
	HandleInbound(ctx context.Context, tenantID, phone, text string) (*services.InboundResult, error)

	// BookAppointment creates a confirmed appointment unless the pair is blocked.
	BookAppointment(ctx context.Context, tenantID, phone string, startsAt time.Time) (*domain.Appointment, error)
}

// NoShowService defines the escalation and blacklist contract required by the
// admin endpoints.
type NoShowService interface {
	// Sweep escalates overdue confirmed appointments into no-show records.
	Sweep(ctx context.Context) (services.SweepResult, error)

	// IsBlocked reports whether the (tenant, phone) pair is blocked.
	IsBlocked(ctx context.Context, tenantID, phone string) (bool, error)

	// ListBlocked returns a page of blocked customers plus the total count.
	ListBlocked(ctx context.Context, tenantID string, page, pageSize int) ([]domain.NoShowRecord, int64, error)

	// Unblock administratively clears a block.
	Unblock(ctx context.Context, tenantID, phone string) error
}

// Handlers groups the HTTP endpoints for webhook ingestion, bookings, and the
// admin blacklist surface.
type Handlers struct {
	msgSvc    MessageService
	noShowSvc NoShowService

	// db is used only for the webhook event dedup rows; everything else goes
	// through the service interfaces.
	db  *gorm.DB
	cfg config.WebhookConfig
}

// New constructs a Handlers instance bound to the given services.
func New(msgSvc MessageService, noShowSvc NoShowService, db *gorm.DB, cfg config.WebhookConfig) *Handlers {
	return &Handlers{msgSvc: msgSvc, noShowSvc: noShowSvc, db: db, cfg: cfg}
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// paginationFor computes the response metadata for a page.
func paginationFor(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}
