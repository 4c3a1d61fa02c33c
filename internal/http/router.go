// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, and edge rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/randevuhq/go-booking-backend/internal/config"
	"github.com/randevuhq/go-booking-backend/internal/http/handlers"
	"github.com/randevuhq/go-booking-backend/internal/http/middleware"
	"github.com/randevuhq/go-booking-backend/internal/notify"
	"github.com/randevuhq/go-booking-backend/internal/ratelimit"
	"github.com/randevuhq/go-booking-backend/internal/repo"
	"github.com/randevuhq/go-booking-backend/internal/services"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), the edge rate
// limiter, CORS and security headers, health and metrics endpoints, and then
// mounts the webhook, booking, and admin surfaces.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip responses
//  7. Metrics
//  8. Edge rate limiter (per tenant/IP; the per-phone limiter runs in-handler)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, responder services.Responder, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction (signature header masked by default)
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Compress responses
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Token-bucket edge limiter per tenant/IP
	rl := middleware.NewRateLimiter(cfg.RateLimit.EdgeRPS, cfg.RateLimit.EdgeBurst, middleware.KeyByTenantOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Hub-Signature-256"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Hub-Signature-256"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← repo/db/channels
	limiter := ratelimit.New(repo.NewCounterStore(db), ratelimit.Config{
		MinuteLimit:  cfg.RateLimit.MinuteLimit,
		HourLimit:    cfg.RateLimit.HourLimit,
		DayLimit:     cfg.RateLimit.DayLimit,
		MinuteWindow: cfg.RateLimit.MinuteWindow,
		HourWindow:   cfg.RateLimit.HourWindow,
		DayWindow:    cfg.RateLimit.DayWindow,
		Cooldown:     cfg.RateLimit.Cooldown,
	})

	dispatcher := &notify.Dispatcher{
		Primary:          notify.NewWhatsAppChannel(cfg.Notify.WhatsAppAPIURL, cfg.Notify.WhatsAppToken, cfg.Notify.SendTimeout),
		Secondary:        notify.NewSMSChannel(cfg.Notify.SMSAPIURL, cfg.Notify.SMSToken, cfg.Notify.SendTimeout),
		SecondaryEnabled: cfg.Notify.SMSEnabled,
		Mode:             notify.ParseMode(cfg.Notify.SMSMode),
	}

	msgSvc := &services.MessageService{
		DB:           db,
		Limiter:      limiter,
		Notifier:     dispatcher,
		Responder:    responder,
		MaxTextRunes: 2000,
	}
	noShowSvc := &services.NoShowService{
		DB:        db,
		Notifier:  dispatcher,
		Threshold: cfg.NoShow.BlockThreshold,
		Grace:     cfg.NoShow.Grace,
		BatchSize: 500,
	}

	h := handlers.New(msgSvc, noShowSvc, db, cfg.Webhook)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Provider-facing webhook
		api.GET("/webhook/:tenant_id", h.VerifyWebhook)
		api.POST("/webhook/:tenant_id", h.ReceiveWebhook)

		// Booking path
		api.POST("/appointments", h.CreateAppointment)

		// Admin surface
		admin := api.Group("/admin")
		{
			admin.GET("/blacklist/:tenant_id", h.ListBlacklist)
			admin.GET("/blacklist/:tenant_id/:phone", h.CheckBlocked)
			admin.DELETE("/blacklist/:tenant_id/:phone", h.UnblockCustomer)
			admin.POST("/jobs/noshow-sweep", h.RunNoShowSweep)
		}
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
