// Appointment HTTP handlers.
//
// This file exposes the booking entry point. Business CRUD around
// appointments lives elsewhere; this endpoint exists because the booking path
// must consult the blacklist before accepting a slot.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/randevuhq/go-booking-backend/internal/domain"
	"github.com/randevuhq/go-booking-backend/internal/services"
)

// CreateAppointmentRequest is the JSON payload for booking a slot.
type CreateAppointmentRequest struct {
	TenantID      string `json:"tenant_id" binding:"required" example:"salon-34"`
	CustomerPhone string `json:"customer_phone" binding:"required" example:"+905551234567"`
	// StartsAt is the scheduled start in RFC 3339.
	StartsAt time.Time `json:"starts_at" binding:"required" example:"2026-09-01T14:00:00Z"`
}

// CreateAppointmentResponse wraps the created appointment.
type CreateAppointmentResponse struct {
	Appointment *domain.Appointment `json:"appointment"`
}

// CreateAppointment godoc
// @ID          createAppointment
// @Summary     Book an appointment
// @Description Creates a confirmed appointment unless the customer is blocked for the tenant.
// @Tags        Appointments
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreateAppointmentRequest  true  "Booking payload"
//
// @Success     201 {object} handlers.CreateAppointmentResponse
// @Failure     400 {object} handlers.ErrorResponse "Bad request"
// @Failure     403 {object} handlers.ErrorResponse "Customer is blocked"
// @Failure     500 {object} handlers.ErrorResponse "Internal error"
// @Router      /appointments [post]
func (h *Handlers) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "tenant_id, customer_phone and starts_at required")
		return
	}
	c.Set("tenantID", req.TenantID)

	a, err := h.msgSvc.BookAppointment(c.Request.Context(), req.TenantID, req.CustomerPhone, req.StartsAt)
	switch {
	case err == nil:
		ok(c, http.StatusCreated, CreateAppointmentResponse{Appointment: a})
	case errors.Is(err, services.ErrCustomerBlocked):
		fail(c, http.StatusForbidden, ErrCodeCustomerBlocked, "customer is blocked for this tenant")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
