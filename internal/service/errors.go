package service

import "errors"

// Sentinel errors the HTTP layer maps to response codes.
var (
	ErrPaymentInvalid        = errors.New("payment request invalid")
	ErrPaymentNotFound       = errors.New("payment not found")
	ErrPaymentUpdateFailed   = errors.New("payment update failed")
	ErrIdempotencyInFlight   = errors.New("idempotency key claimed by an in-flight request")
	ErrProviderNotConfigured = errors.New("provider not configured for tenant")
	ErrProviderConfigInvalid = errors.New("provider config invalid")
	ErrTransitionInvalid     = errors.New("payment status transition not allowed")
	ErrRefundNotAllowed      = errors.New("payment not refundable in its current status")
	ErrRefundExceedsAmount   = errors.New("refund exceeds refundable amount")
	ErrRefundManualRequired  = errors.New("provider requires manual refund")
	ErrDrawerAlreadyOpen     = errors.New("cashier already has an open drawer session")
	ErrDrawerNotOpen         = errors.New("cashier has no open drawer session")
	ErrDrawerInvalid         = errors.New("drawer request invalid")
	ErrReportWindowInvalid   = errors.New("reconciliation window invalid")
)
