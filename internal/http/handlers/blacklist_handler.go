// Blacklist HTTP handlers.
//
// This file exposes the admin surface over no-show records:
//   - GET    /admin/blacklist/{tenant_id}           (paginated blocked customers)
//   - GET    /admin/blacklist/{tenant_id}/{phone}   (single blocked check)
//   - DELETE /admin/blacklist/{tenant_id}/{phone}   (administrative un-block)
//
// The escalation core never un-blocks; the DELETE endpoint is the external
// administrative action the data model reserves for operators.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/randevuhq/go-booking-backend/internal/domain"
	"github.com/randevuhq/go-booking-backend/internal/ratelimit"
	"github.com/randevuhq/go-booking-backend/internal/repo"
)

// ListBlacklistResponse wraps a page of blocked customers.
type ListBlacklistResponse struct {
	Blocked    []domain.NoShowRecord `json:"blocked"`
	Pagination Pagination            `json:"pagination"`
}

// BlockedCheckResponse reports the block state for one pair.
type BlockedCheckResponse struct {
	TenantID      string `json:"tenant_id"`
	CustomerPhone string `json:"customer_phone"`
	IsBlocked     bool   `json:"is_blocked"`
}

// ListBlacklist godoc
// @ID          listBlacklist
// @Summary     List blocked customers for a tenant
// @Tags        Blacklist
// @Produce     json
//
// @Param       tenant_id  path   string true  "Tenant ID"
// @Param       page       query  int    false "Page number"    minimum(1) default(1)
// @Param       page_size  query  int    false "Items per page" minimum(1) maximum(100) default(20)
//
// @Success     200 {object} handlers.ListBlacklistResponse
// @Failure     500 {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/blacklist/{tenant_id} [get]
func (h *Handlers) ListBlacklist(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	c.Set("tenantID", tenantID)
	page, pageSize := clampPagination(c)

	items, total, err := h.noShowSvc.ListBlocked(c.Request.Context(), tenantID, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, ListBlacklistResponse{
		Blocked:    items,
		Pagination: paginationFor(page, pageSize, total),
	})
}

// CheckBlocked godoc
// @ID          checkBlocked
// @Summary     Check whether a customer is blocked
// @Description Used by the booking path before accepting a new appointment.
// @Tags        Blacklist
// @Produce     json
//
// @Param       tenant_id  path  string true "Tenant ID"
// @Param       phone      path  string true "Customer phone"
//
// @Success     200 {object} handlers.BlockedCheckResponse
// @Failure     500 {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/blacklist/{tenant_id}/{phone} [get]
func (h *Handlers) CheckBlocked(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	phone := ratelimit.NormalizePhone(c.Param("phone"))
	c.Set("tenantID", tenantID)

	blocked, err := h.noShowSvc.IsBlocked(c.Request.Context(), tenantID, phone)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, BlockedCheckResponse{
		TenantID:      tenantID,
		CustomerPhone: phone,
		IsBlocked:     blocked,
	})
}

// UnblockCustomer godoc
// @ID          unblockCustomer
// @Summary     Administratively un-block a customer
// @Tags        Blacklist
// @Produce     json
//
// @Param       tenant_id  path  string true "Tenant ID"
// @Param       phone      path  string true "Customer phone"
//
// @Success     204 "Un-blocked"
// @Failure     404 {object} handlers.ErrorResponse "Pair is not blocked"
// @Failure     500 {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/blacklist/{tenant_id}/{phone} [delete]
func (h *Handlers) UnblockCustomer(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	phone := ratelimit.NormalizePhone(c.Param("phone"))
	c.Set("tenantID", tenantID)

	err := h.noShowSvc.Unblock(c.Request.Context(), tenantID, phone)
	switch {
	case err == nil:
		noContent(c)
	case errors.Is(err, repo.ErrNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "customer is not blocked")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
