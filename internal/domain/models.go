// Package domain defines the persistence models for appointments, rate
// counters, cooldown markers, no-show records, and webhook events. These types
// are mapped with GORM and form the core data layer of the booking assistant.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Appointment status values. Only "confirmed" appointments are eligible for
// the no-show sweep; a swept appointment flips to "no_show".
const (
	AppointmentConfirmed = "confirmed"
	AppointmentCancelled = "cancelled"
	AppointmentCompleted = "completed"
	AppointmentNoShow    = "no_show"
)

// Appointment represents a booked slot for a customer of a tenant. The
// business CRUD around appointments lives outside the protection core; this
// model exists so the booking path can consult the blacklist before accepting
// a slot and so the no-show sweep can select overdue rows.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - TenantID: identifier of the owning tenant; indexed for efficient retrieval.
//   - CustomerPhone: digits-only customer phone in international form.
//   - StartsAt: scheduled start time (UTC).
//   - Status: one of the Appointment* constants (enforced by DB constraint).
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (retains row for audit/history).
type Appointment struct {
	ID            string         `json:"id"             gorm:"type:char(36);primaryKey"`
	TenantID      string         `json:"tenant_id"      gorm:"type:varchar(64);not null;index:idx_tenant_appts,priority:1"`
	CustomerPhone string         `json:"customer_phone" gorm:"type:varchar(32);not null;index:idx_tenant_appts,priority:2"`
	StartsAt      time.Time      `json:"starts_at"      gorm:"not null;index"`
	Status        string         `json:"status"         gorm:"type:varchar(16);not null;default:'confirmed';check:status IN ('confirmed','cancelled','completed','no_show')"`
	LateMinutes   int            `json:"late_minutes,omitempty" gorm:"not null;default:0"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-"              gorm:"index"`
}

// TableName returns the database table name for Appointment.
func (Appointment) TableName() string { return "appointments" }

// RateCounter is one per-window counter for one phone number. The (phone,
// window) pair forms the composite primary key so a single upsert statement
// can increment the count atomically at the store level. ExpiresAt carries the
// window's natural expiry; an expired row is reset, not trusted.
type RateCounter struct {
	Phone     string    `gorm:"type:varchar(32);primaryKey"`
	Window    string    `gorm:"type:varchar(8);primaryKey"`
	Count     int64     `gorm:"not null;default:0"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName returns the database table name for RateCounter.
func (RateCounter) TableName() string { return "rate_counters" }

// CooldownMarker is the escalated block applied after an hour-ceiling breach.
// While a non-expired marker exists for a phone, the rate limiter rejects the
// sender regardless of the instantaneous window counts.
type CooldownMarker struct {
	Phone     string    `gorm:"type:varchar(32);primaryKey"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
}

// TableName returns the database table name for CooldownMarker.
func (CooldownMarker) TableName() string { return "cooldown_markers" }

// NoShowRecord tracks consecutive no-shows per (tenant, customer phone) pair.
// NoShowCount is monotonically non-decreasing until an external administrative
// reset; IsBlocked flips to true once the count reaches the configured
// threshold and is never cleared by the escalation path itself.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - TenantID / CustomerPhone: composite unique identity of the pair.
//   - NoShowCount: running count of confirmed no-shows.
//   - IsBlocked: terminal (for this core) block flag.
//   - BlockedAt: when the block was applied; nil while tracked.
//   - BlockReason: fixed reason string recorded once at block time.
type NoShowRecord struct {
	ID            string     `json:"id"             gorm:"type:char(36);primaryKey"`
	TenantID      string     `json:"tenant_id"      gorm:"type:varchar(64);not null;uniqueIndex:ux_noshow_tenant_phone,priority:1"`
	CustomerPhone string     `json:"customer_phone" gorm:"type:varchar(32);not null;uniqueIndex:ux_noshow_tenant_phone,priority:2"`
	NoShowCount   int        `json:"no_show_count"  gorm:"not null;default:0"`
	IsBlocked     bool       `json:"is_blocked"     gorm:"not null;default:false;index"`
	BlockedAt     *time.Time `json:"blocked_at,omitempty"`
	BlockReason   string     `json:"block_reason,omitempty" gorm:"type:varchar(128)"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName returns the database table name for NoShowRecord.
func (NoShowRecord) TableName() string { return "no_show_records" }

// WebhookEvent records a processed provider event id so redelivered webhooks
// can be acknowledged without reprocessing. Rows expire after a TTL; expired
// rows are purged opportunistically and ignored by lookups.
type WebhookEvent struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	EventID   string    `gorm:"type:varchar(128);not null;uniqueIndex:ux_webhook_event"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName returns the database table name for WebhookEvent.
func (WebhookEvent) TableName() string { return "webhook_events" }
