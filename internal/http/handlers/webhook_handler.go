// Webhook HTTP handlers.
//
// This file exposes the provider-facing webhook surface:
//   - GET  /webhook/{tenant_id}  (subscription verification handshake)
//   - POST /webhook/{tenant_id}  (inbound message event)
//
// Handlers are transport-thin:
//   - authenticate the raw body against the signature header before any parse
//   - deduplicate redelivered events by provider event id
//   - delegate the guarded message turn to MessageService
//
// An unverified body is never parsed; the response to a failed verification is
// a generic 401 that does not distinguish missing, malformed, or mismatched
// signatures.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/randevuhq/go-booking-backend/internal/http/middleware"
	"github.com/randevuhq/go-booking-backend/internal/ratelimit"
	"github.com/randevuhq/go-booking-backend/internal/repo"
	"github.com/randevuhq/go-booking-backend/internal/services"
	"github.com/randevuhq/go-booking-backend/internal/webhook"
)

var (
	// webhookAuthFailures counts rejected webhook deliveries.
	webhookAuthFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webhook_auth_failures_total",
		Help: "Webhook deliveries rejected by signature verification.",
	})

	// rateLimitRejections counts inbound messages rejected by the per-phone
	// limiter, broken down by gate.
	rateLimitRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_rejections_total",
			Help: "Inbound messages rejected by the per-phone rate limiter.",
		},
		[]string{"gate"},
	)
)

func init() {
	prometheus.MustRegister(webhookAuthFailures, rateLimitRejections)
}

// WebhookEventRequest is the JSON payload of one inbound message event.
type WebhookEventRequest struct {
	// EventID is the provider's delivery id, used for dedup. Optional.
	EventID string `json:"event_id" example:"wamid.HBgNOTA1NTUxMjM0NTY3"`
	// From is the sender's phone number in international form.
	From string `json:"from" example:"+905551234567"`
	// Text is the message body.
	Text string `json:"text" example:"trafikteyim, 10 dk gec kalacagim"`
}

// WebhookEventResponse summarizes what the turn did.
type WebhookEventResponse struct {
	Status string `json:"status" example:"ok"`
	Intent string `json:"intent,omitempty" example:"late"`
	Reply  string `json:"reply,omitempty"`
}

// VerifyWebhook godoc
// @ID          verifyWebhook
// @Summary     Webhook subscription handshake
// @Description Echoes hub.challenge when hub.mode is "subscribe" and the verify token matches.
// @Tags        Webhook
// @Produce     plain
//
// @Param       tenant_id         path   string true  "Tenant ID"
// @Param       hub.mode          query  string true  "Must be subscribe"
// @Param       hub.verify_token  query  string true  "Configured verify token"
// @Param       hub.challenge     query  string true  "Challenge to echo"
//
// @Success     200 {string} string "Challenge"
// @Failure     403 {object} handlers.ErrorResponse "Verification failed"
// @Router      /webhook/{tenant_id} [get]
func (h *Handlers) VerifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode != "subscribe" || h.cfg.VerifyToken == "" || token != h.cfg.VerifyToken {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "verification failed")
		return
	}
	c.String(http.StatusOK, challenge)
}

// ReceiveWebhook godoc
// @ID          receiveWebhook
// @Summary     Receive an inbound message event
// @Description Verifies the signature over the raw body, deduplicates the event, and runs one guarded message turn.
// @Tags        Webhook
// @Accept      json
// @Produce     json
//
// @Param       tenant_id            path    string true "Tenant ID"
// @Param       X-Hub-Signature-256  header  string true "sha256=<hex> over the raw body"
// @Param       body                 body    handlers.WebhookEventRequest true "Event payload"
//
// @Success     200 {object} handlers.WebhookEventResponse
// @Failure     400 {object} handlers.ErrorResponse "Bad request"
// @Failure     401 {object} handlers.ErrorResponse "Invalid signature"
// @Failure     503 {object} handlers.ErrorResponse "Rate limit store unavailable"
// @Router      /webhook/{tenant_id} [post]
func (h *Handlers) ReceiveWebhook(c *gin.Context) {
	ctx := c.Request.Context()
	tenantID := c.Param("tenant_id")
	c.Set("tenantID", tenantID)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable body")
		return
	}

	sig := c.GetHeader(webhook.SignatureHeader)
	if !webhook.VerifySignature(body, sig, h.cfg.Secret) {
		webhookAuthFailures.Inc()
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid signature")
		return
	}

	var req WebhookEventRequest
	if err := json.Unmarshal(body, &req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid payload")
		return
	}
	if req.From == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "from required")
		return
	}

	// Dedup is best effort: a failed lookup must not drop a genuine message.
	var eventRecorded bool
	if h.db != nil && req.EventID != "" {
		replay, derr := repo.MarkEventSeen(ctx, h.db, req.EventID, h.cfg.EventTTL)
		switch {
		case derr != nil:
			middleware.LoggerFrom(c).Warn().Err(derr).Msg("webhook dedup unavailable")
		case replay:
			c.Header("X-Event-Replayed", "true")
			ok(c, http.StatusOK, WebhookEventResponse{Status: "duplicate"})
			return
		default:
			eventRecorded = true
		}
	}

	res, err := h.msgSvc.HandleInbound(ctx, tenantID, req.From, req.Text)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrCustomerBlocked):
		// 200 so the provider does not retry; the customer gets no reply.
		ok(c, http.StatusOK, WebhookEventResponse{Status: "blocked"})
		return
	case errors.Is(err, services.ErrEmptyMessage):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text required")
		return
	case errors.Is(err, ratelimit.ErrStoreUnavailable):
		// The provider will retry; the event id must not survive a failed turn
		// or the redelivery would be swallowed as a duplicate.
		h.releaseEvent(c, eventRecorded, req.EventID)
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "temporarily unavailable")
		return
	default:
		h.releaseEvent(c, eventRecorded, req.EventID)
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	resp := WebhookEventResponse{
		Status: "ok",
		Intent: res.Intent.Kind.String(),
		Reply:  res.Reply,
	}
	if res.RateLimited {
		rateLimitRejections.WithLabelValues(string(res.Decision.Gate)).Inc()
		resp.Status = "rate_limited"
		resp.Intent = ""
	}
	ok(c, http.StatusOK, resp)
}

// releaseEvent drops the dedup row recorded earlier in this request. Best
// effort; a failed delete only means a retried event may be acknowledged as a
// duplicate, which the warn log makes visible.
func (h *Handlers) releaseEvent(c *gin.Context, recorded bool, eventID string) {
	if !recorded || h.db == nil {
		return
	}
	if err := repo.ForgetEvent(c.Request.Context(), h.db, eventID); err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Str("event_id", eventID).Msg("webhook dedup release failed")
	}
}
