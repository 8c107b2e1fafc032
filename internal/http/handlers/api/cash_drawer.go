package api

import (
	"errors"

	"github.com/teranga-pos/payments/internal/http/response"
	"github.com/teranga-pos/payments/internal/service"

	"github.com/gin-gonic/gin"
)

// OpenDrawerRequest starts a cash session for the calling cashier. The
// opening balance is the counted float, in minor units.
type OpenDrawerRequest struct {
	OpeningBalance *int64 `json:"opening_balance" binding:"required"`
}

// CloseDrawerRequest ends the session with the counted closing balance.
type CloseDrawerRequest struct {
	ClosingBalance *int64 `json:"closing_balance" binding:"required"`
	VarianceNotes  string `json:"variance_notes"`
}

// OpenDrawer opens a cash drawer session.
func (h *Handler) OpenDrawer(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	cashierID, ok := getCashierID(c)
	if !ok {
		return
	}
	var req OpenDrawerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "request body invalid", err)
		return
	}

	session, err := h.CashDrawerService.OpenDrawer(tenantID, cashierID, *req.OpeningBalance)
	if err != nil {
		respondWithMappedError(c, err, drawerErrorRules, response.CodeInternal, "drawer open failed")
		return
	}
	response.Created(c, session)
}

// CurrentDrawer returns the cashier's open session and the cash balance the
// drawer should hold right now.
func (h *Handler) CurrentDrawer(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	cashierID, ok := getCashierID(c)
	if !ok {
		return
	}

	session, expected, err := h.CashDrawerService.CurrentDrawer(tenantID, cashierID)
	if err != nil {
		if errors.Is(err, service.ErrDrawerNotOpen) {
			respondError(c, response.CodeNotFound, "no open drawer session for this cashier", nil)
			return
		}
		respondError(c, response.CodeInternal, "drawer lookup failed", err)
		return
	}
	response.Success(c, gin.H{
		"session":          session,
		"expected_balance": expected,
	})
}

// CloseDrawer closes the session and records the variance between counted
// and expected cash.
func (h *Handler) CloseDrawer(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	cashierID, ok := getCashierID(c)
	if !ok {
		return
	}
	var req CloseDrawerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "request body invalid", err)
		return
	}

	session, err := h.CashDrawerService.CloseDrawer(tenantID, cashierID, *req.ClosingBalance, req.VarianceNotes)
	if err != nil {
		respondWithMappedError(c, err, drawerErrorRules, response.CodeInternal, "drawer close failed")
		return
	}
	response.Success(c, session)
}
