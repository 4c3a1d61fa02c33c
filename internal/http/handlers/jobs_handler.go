// Job-trigger HTTP handlers.
//
// This file exposes the batch entry point for the no-show sweep. There is no
// in-process scheduler; an external cron (or an operator) POSTs here.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RunNoShowSweep godoc
// @ID          runNoShowSweep
// @Summary     Run the no-show sweep
// @Description Selects overdue, still-confirmed appointments, flips them to no_show, and escalates repeat offenders.
// @Tags        Jobs
// @Produce     json
//
// @Success     200 {object} services.SweepResult
// @Failure     500 {object} handlers.ErrorResponse "Sweep failed"
// @Router      /admin/jobs/noshow-sweep [post]
func (h *Handlers) RunNoShowSweep(c *gin.Context) {
	res, err := h.noShowSvc.Sweep(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeSweepFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, res)
}
