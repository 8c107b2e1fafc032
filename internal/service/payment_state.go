package service

import (
	"time"

	"github.com/teranga-pos/payments/internal/constants"
	"github.com/teranga-pos/payments/internal/models"
)

// paymentTransitions is the forward-only status graph. A status never moves
// backwards; terminal statuses only move into refund states, from success.
var paymentTransitions = map[string]map[string]bool{
	constants.PaymentStatusPending: {
		constants.PaymentStatusProcessing: true,
		constants.PaymentStatusSuccess:    true,
		constants.PaymentStatusFailed:     true,
		constants.PaymentStatusExpired:    true,
	},
	constants.PaymentStatusProcessing: {
		constants.PaymentStatusSuccess: true,
		constants.PaymentStatusFailed:  true,
		constants.PaymentStatusExpired: true,
	},
	constants.PaymentStatusSuccess: {
		constants.PaymentStatusRefunded:          true,
		constants.PaymentStatusPartiallyRefunded: true,
	},
	constants.PaymentStatusPartiallyRefunded: {
		constants.PaymentStatusRefunded:          true,
		constants.PaymentStatusPartiallyRefunded: true,
	},
}

// CanTransition reports whether moving from one status to another is allowed.
// Re-applying the current status is always a safe no-op: providers redeliver
// callbacks and the poller races them.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	allowed, ok := paymentTransitions[from]
	if !ok {
		return false
	}
	return allowed[to]
}

// applyStatus mutates a payment into a new status, stamping completion time
// the first time it reaches a settled outcome.
func applyStatus(payment *models.Payment, to string, now time.Time) {
	if payment.Status == to {
		return
	}
	payment.Status = to
	switch to {
	case constants.PaymentStatusSuccess,
		constants.PaymentStatusFailed,
		constants.PaymentStatusExpired:
		if payment.CompletedAt == nil {
			completed := now
			payment.CompletedAt = &completed
		}
	}
	payment.UpdatedAt = now
}
