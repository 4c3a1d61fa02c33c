// Package services – MessageService
//
// This file implements MessageService, the application-level component that
// owns one inbound webhook turn. It checks the sender against the tenant's
// blacklist, admits or rejects through the multi-window rate limiter, runs the
// deterministic intent fast path, applies the resulting appointment change,
// and delivers the reply through the notification dispatcher. Only messages
// the fast path cannot resolve are handed to the conversational Responder.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// include tenant and gate attributes, never message text or secrets.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/randevuhq/go-booking-backend/internal/domain"
	"github.com/randevuhq/go-booking-backend/internal/intent"
	"github.com/randevuhq/go-booking-backend/internal/notify"
	"github.com/randevuhq/go-booking-backend/internal/ratelimit"
	"github.com/randevuhq/go-booking-backend/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rs/zerolog/log"
)

// Admitter is the rate-limiter contract MessageService needs.
type Admitter interface {
	// Allow increments the sender's window counters and decides admission.
	Allow(ctx context.Context, phone string) (ratelimit.Decision, error)
}

// Notifier is the outbound delivery contract. *notify.Dispatcher satisfies it.
type Notifier interface {
	// Dispatch attempts delivery and reports which channels succeeded.
	Dispatch(ctx context.Context, recipient, text string) notify.Outcome
}

// Responder produces a reply for messages the deterministic fast path could
// not resolve. Implementations typically wrap an LLM-backed conversation
// engine; this core only defines the port.
type Responder interface {
	Respond(ctx context.Context, tenantID, phone, text string) (string, error)
}

// InboundResult reports what one webhook turn did.
type InboundResult struct {
	Intent      intent.Intent      `json:"intent"`
	RateLimited bool               `json:"rate_limited"`
	Decision    ratelimit.Decision `json:"-"`
	Reply       string             `json:"reply,omitempty"`
	Outcome     notify.Outcome     `json:"outcome"`
}

// MessageService coordinates the guard rails around one message-handling turn.
type MessageService struct {
	DB        *gorm.DB
	Limiter   Admitter
	Notifier  Notifier
	Responder Responder

	// MaxTextRunes caps inbound text length; 0 disables the guard.
	MaxTextRunes int
}

// HandleInbound runs one webhook turn for a verified, deduplicated message.
//
// Order matters: the blacklist is consulted before the rate limiter so a
// blocked customer's traffic never consumes window budget, and the limiter
// runs before classification so rejected senders cannot probe the fast path.
// A store failure from the limiter propagates as ratelimit.ErrStoreUnavailable
// for the handler to map to a degraded status.
func (s *MessageService) HandleInbound(ctx context.Context, tenantID, phone, text string) (*InboundResult, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "HandleInbound",
		trace.WithAttributes(attribute.String("tenant.id", tenantID)),
	)
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if s.MaxTextRunes > 0 && len([]rune(text)) > s.MaxTextRunes {
		text = string([]rune(text)[:s.MaxTextRunes])
	}

	key := ratelimit.NormalizePhone(phone)
	blocked, err := repo.IsBlocked(ctx, s.DB, tenantID, key)
	if err != nil {
		return nil, err
	}
	if blocked {
		span.SetAttributes(attribute.Bool("customer.blocked", true))
		return nil, ErrCustomerBlocked
	}

	decision, err := s.Limiter.Allow(ctx, phone)
	if err != nil {
		return nil, err
	}
	res := &InboundResult{Decision: decision}
	if !decision.Allowed {
		span.SetAttributes(attribute.String("ratelimit.gate", string(decision.Gate)))
		res.RateLimited = true
		res.Reply = decision.WaitMessage()
		res.Outcome = s.Notifier.Dispatch(ctx, phone, res.Reply)
		return res, nil
	}

	res.Intent = intent.Classify(text)
	span.SetAttributes(attribute.String("intent.kind", res.Intent.Kind.String()))

	switch res.Intent.Kind {
	case intent.Cancel:
		res.Reply = s.handleCancel(ctx, tenantID, key)
	case intent.Late:
		res.Reply = s.handleLate(ctx, tenantID, key, res.Intent.DelayMinutes)
	default:
		res.Reply = s.handleConversation(ctx, tenantID, phone, text)
	}

	res.Outcome = s.Notifier.Dispatch(ctx, phone, res.Reply)
	return res, nil
}

func (s *MessageService) handleCancel(ctx context.Context, tenantID, phone string) string {
	a, err := repo.CancelNextConfirmed(ctx, s.DB, tenantID, phone, time.Now().UTC())
	if err != nil {
		return "İptal edilecek yaklaşan bir randevunuz bulunamadı."
	}
	return fmt.Sprintf("%s tarihli randevunuz iptal edildi.", a.StartsAt.Format("02.01.2006 15:04"))
}

func (s *MessageService) handleLate(ctx context.Context, tenantID, phone string, minutes int) string {
	a, err := repo.ApplyDelay(ctx, s.DB, tenantID, phone, minutes, time.Now().UTC())
	if err != nil {
		return "Yaklaşan bir randevunuz bulunamadı, yine de bilgilendirme için teşekkürler."
	}
	return fmt.Sprintf("Bilginiz için teşekkürler, %d dakika gecikmeniz randevunuza işlendi. Sizi bekliyoruz.", a.LateMinutes)
}

// handleConversation defers to the Responder; without one, or when it fails,
// the customer still gets an acknowledgement instead of silence.
func (s *MessageService) handleConversation(ctx context.Context, tenantID, phone, text string) string {
	if s.Responder == nil {
		return "Mesajınızı aldık, en kısa sürede dönüş yapacağız."
	}
	reply, err := s.Responder.Respond(ctx, tenantID, phone, text)
	if err != nil || strings.TrimSpace(reply) == "" {
		log.Warn().Str("tenant_id", tenantID).Err(err).Msg("responder failed, using fallback reply")
		return "Mesajınızı aldık, en kısa sürede dönüş yapacağız."
	}
	return reply
}

// BookAppointment is the booking-path entry. It consults the blacklist before
// accepting the slot; a blocked pair gets ErrCustomerBlocked, never a booking.
func (s *MessageService) BookAppointment(ctx context.Context, tenantID, phone string, startsAt time.Time) (*domain.Appointment, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "BookAppointment",
		trace.WithAttributes(attribute.String("tenant.id", tenantID)),
	)
	defer span.End()

	key := ratelimit.NormalizePhone(phone)
	blocked, err := repo.IsBlocked(ctx, s.DB, tenantID, key)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrCustomerBlocked
	}
	return repo.CreateAppointment(ctx, s.DB, tenantID, key, startsAt)
}
