package api

import (
	"errors"
	"strconv"
	"time"

	"github.com/teranga-pos/payments/internal/http/response"
	"github.com/teranga-pos/payments/internal/repository"
	"github.com/teranga-pos/payments/internal/service"

	"github.com/gin-gonic/gin"
)

// CreatePaymentRequest starts a payment for an order line at the till.
type CreatePaymentRequest struct {
	OrderRef       string `json:"order_ref" binding:"required"`
	ProviderCode   string `json:"provider_code" binding:"required"`
	Amount         int64  `json:"amount" binding:"required"`
	Currency       string `json:"currency"`
	PayerPhone     string `json:"payer_phone"`
	Description    string `json:"description"`
	IdempotencyKey string `json:"idempotency_key" binding:"required"`
	SuccessURL     string `json:"success_url"`
	ErrorURL       string `json:"error_url"`
}

// RefundPaymentRequest refunds a settled payment. Amount 0 means full refund.
type RefundPaymentRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

// ListPaymentsQuery filters the tenant's payment history.
type ListPaymentsQuery struct {
	Page         int    `form:"page"`
	PageSize     int    `form:"page_size"`
	OrderRef     string `form:"order_ref"`
	ProviderCode string `form:"provider"`
	Status       string `form:"status"`
	From         string `form:"from"`
	To           string `form:"to"`
}

// CreatePayment initiates a payment. A fresh payment answers 201; replaying
// the same idempotency key answers 200 with the original record.
func (h *Handler) CreatePayment(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	cashierID, ok := getCashierID(c)
	if !ok {
		return
	}

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "request body invalid", err)
		return
	}

	result, err := h.PaymentService.InitiatePayment(service.InitiatePaymentInput{
		Context:        c.Request.Context(),
		TenantID:       tenantID,
		CashierID:      cashierID,
		OrderRef:       req.OrderRef,
		ProviderCode:   req.ProviderCode,
		Amount:         req.Amount,
		Currency:       req.Currency,
		PayerPhone:     req.PayerPhone,
		Description:    req.Description,
		IdempotencyKey: req.IdempotencyKey,
		SuccessURL:     req.SuccessURL,
		ErrorURL:       req.ErrorURL,
	})
	if err != nil {
		respondWithMappedError(c, err, paymentCreateErrorRules, response.CodeInternal, "payment initiation failed")
		return
	}

	data := gin.H{
		"payment":          result.Payment,
		"redirect_url":     result.Payment.RedirectURL,
		"interaction_mode": result.Payment.InteractionMode,
		"is_duplicate":     result.IsDuplicate,
	}
	if result.IsDuplicate {
		response.Success(c, data)
		return
	}
	response.Created(c, data)
}

// GetPayment returns one payment of the calling tenant.
func (h *Handler) GetPayment(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	paymentID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || paymentID == 0 {
		respondError(c, response.CodeBadRequest, "payment id invalid", nil)
		return
	}
	record, err := h.PaymentService.GetPayment(tenantID, uint(paymentID))
	if err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			respondError(c, response.CodeNotFound, "payment not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "payment lookup failed", err)
		return
	}
	response.Success(c, record)
}

// ListPayments pages through the tenant's payment history.
func (h *Handler) ListPayments(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	var query ListPaymentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondError(c, response.CodeBadRequest, "query parameters invalid", err)
		return
	}

	page, pageSize := normalizePagination(query.Page, query.PageSize)
	filter := repository.PaymentListFilter{
		Page:         page,
		PageSize:     pageSize,
		TenantID:     tenantID,
		OrderRef:     query.OrderRef,
		ProviderCode: query.ProviderCode,
		Status:       query.Status,
	}
	if query.From != "" {
		from, err := time.Parse(time.RFC3339, query.From)
		if err != nil {
			respondError(c, response.CodeBadRequest, "from must be RFC 3339", nil)
			return
		}
		filter.CreatedFrom = &from
	}
	if query.To != "" {
		to, err := time.Parse(time.RFC3339, query.To)
		if err != nil {
			respondError(c, response.CodeBadRequest, "to must be RFC 3339", nil)
			return
		}
		filter.CreatedTo = &to
	}

	payments, total, err := h.PaymentService.ListPayments(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "payment list failed", err)
		return
	}
	response.SuccessWithPage(c, payments, buildPagination(page, pageSize, total))
}

// CheckPayment forces an immediate provider status check for an in-flight
// payment, ahead of the scheduled poller.
func (h *Handler) CheckPayment(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	paymentID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || paymentID == 0 {
		respondError(c, response.CodeBadRequest, "payment id invalid", nil)
		return
	}
	record, err := h.PaymentService.CheckPayment(c.Request.Context(), tenantID, uint(paymentID))
	if err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			respondError(c, response.CodeNotFound, "payment not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "payment status check failed", err)
		return
	}
	response.Success(c, record)
}

// RefundPayment refunds part or all of a settled payment.
func (h *Handler) RefundPayment(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	paymentID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || paymentID == 0 {
		respondError(c, response.CodeBadRequest, "payment id invalid", nil)
		return
	}
	var req RefundPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "request body invalid", err)
		return
	}

	result, err := h.PaymentService.RefundPayment(service.RefundPaymentInput{
		Context:   c.Request.Context(),
		TenantID:  tenantID,
		PaymentID: uint(paymentID),
		Amount:    req.Amount,
		Reason:    req.Reason,
	})
	if err != nil {
		respondWithMappedError(c, err, paymentRefundErrorRules, response.CodeInternal, "refund failed")
		return
	}
	response.Success(c, gin.H{
		"payment":     result.Payment,
		"refund_type": result.RefundType,
	})
}
