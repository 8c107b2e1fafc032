package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/teranga-pos/payments/internal/constants"
	"github.com/teranga-pos/payments/internal/models"
	"github.com/teranga-pos/payments/internal/payment"

	"gorm.io/gorm"
)

// RefundPaymentInput asks for a full or partial refund. A zero amount means
// refund everything still refundable.
type RefundPaymentInput struct {
	Context   context.Context
	TenantID  uint
	PaymentID uint
	Amount    int64
	Reason    string
}

// RefundPaymentResult reports the refunded payment and how the money moves
// back: through the provider API or by hand at the counter.
type RefundPaymentResult struct {
	Payment    *models.Payment
	RefundType string
}

// RefundPayment returns funds for a settled payment. Refund amounts
// accumulate across calls; the payment lands in refunded once the full amount
// is returned and partially_refunded before that.
func (s *PaymentService) RefundPayment(input RefundPaymentInput) (*RefundPaymentResult, error) {
	if input.Context == nil {
		input.Context = context.Background()
	}
	if input.TenantID == 0 || input.PaymentID == 0 || input.Amount < 0 {
		return nil, ErrPaymentInvalid
	}

	record, err := s.GetPayment(input.TenantID, input.PaymentID)
	if err != nil {
		return nil, err
	}
	log := paymentLogger(
		"tenant_id", input.TenantID,
		"payment_id", record.ID,
		"provider_code", record.ProviderCode,
		"refund_amount", input.Amount,
	)

	switch record.Status {
	case constants.PaymentStatusSuccess, constants.PaymentStatusPartiallyRefunded:
	default:
		log.Warnw("payment_refund_rejected_status", "status", record.Status)
		return nil, ErrRefundNotAllowed
	}

	amount := input.Amount
	if amount == 0 {
		amount = record.RemainingRefundable()
	}
	if amount <= 0 || amount > record.RemainingRefundable() {
		log.Warnw("payment_refund_amount_out_of_bounds",
			"remaining_refundable", record.RemainingRefundable(),
		)
		return nil, ErrRefundExceedsAmount
	}

	refundType := constants.RefundTypePartial
	if amount == record.RemainingRefundable() && record.RefundedAmount == 0 {
		refundType = constants.RefundTypeFull
	}

	if record.ProviderCode == constants.ProviderCash {
		updated, err := s.applyRefund(record.ID, amount)
		if err != nil {
			return nil, err
		}
		log.Infow("payment_refund_cash_recorded", "refunded_amount", updated.RefundedAmount)
		return &RefundPaymentResult{Payment: updated, RefundType: refundType}, nil
	}

	method, err := s.activeMethod(input.Context, record.TenantID, record.ProviderCode)
	if err != nil || method == nil {
		return nil, ErrProviderNotConfigured
	}
	client, err := s.clientFor(method)
	if err != nil {
		return nil, err
	}

	result := client.Refund(input.Context, payment.RefundRequest{
		ProviderRef: record.ProviderRef,
		Amount:      amount,
		Currency:    record.Currency,
	})
	if !result.Success {
		message := strings.TrimSpace(result.ErrorMessage)
		log.Warnw("payment_refund_provider_declined", "error_message", message)
		if message == "" {
			return nil, ErrRefundManualRequired
		}
		return nil, fmt.Errorf("%w: %s", ErrRefundManualRequired, message)
	}

	updated, err := s.applyRefund(record.ID, amount)
	if err != nil {
		return nil, err
	}
	log.Infow("payment_refund_applied",
		"provider_refund_ref", result.ProviderRef,
		"refunded_amount", updated.RefundedAmount,
		"status", updated.Status,
	)
	return &RefundPaymentResult{Payment: updated, RefundType: refundType}, nil
}

// applyRefund accumulates a refund amount under a row lock and moves the
// payment into the matching refund status.
func (s *PaymentService) applyRefund(paymentID uint, amount int64) (*models.Payment, error) {
	var updated *models.Payment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.paymentRepo.WithTx(tx)
		record, err := repo.GetByIDForUpdate(paymentID)
		if err != nil {
			return err
		}
		if record == nil {
			return ErrPaymentNotFound
		}
		if amount > record.RemainingRefundable() {
			return ErrRefundExceedsAmount
		}
		record.RefundedAmount += amount
		target := constants.PaymentStatusPartiallyRefunded
		if record.RefundedAmount >= record.Amount {
			target = constants.PaymentStatusRefunded
		}
		if !CanTransition(record.Status, target) {
			return ErrTransitionInvalid
		}
		applyStatus(record, target, time.Now().UTC())
		updated = record
		return repo.Update(record)
	})
	if err != nil {
		switch err {
		case ErrPaymentNotFound, ErrRefundExceedsAmount, ErrTransitionInvalid:
			return nil, err
		}
		return nil, ErrPaymentUpdateFailed
	}
	return updated, nil
}
