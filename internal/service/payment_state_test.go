package service

import (
	"testing"
	"time"

	"github.com/teranga-pos/payments/internal/constants"
	"github.com/teranga-pos/payments/internal/models"
)

func TestCanTransitionForwardOnly(t *testing.T) {
	allowed := [][2]string{
		{constants.PaymentStatusPending, constants.PaymentStatusProcessing},
		{constants.PaymentStatusPending, constants.PaymentStatusSuccess},
		{constants.PaymentStatusPending, constants.PaymentStatusFailed},
		{constants.PaymentStatusProcessing, constants.PaymentStatusSuccess},
		{constants.PaymentStatusProcessing, constants.PaymentStatusExpired},
		{constants.PaymentStatusSuccess, constants.PaymentStatusRefunded},
		{constants.PaymentStatusSuccess, constants.PaymentStatusPartiallyRefunded},
		{constants.PaymentStatusPartiallyRefunded, constants.PaymentStatusRefunded},
	}
	for _, pair := range allowed {
		if !CanTransition(pair[0], pair[1]) {
			t.Fatalf("transition %s -> %s must be allowed", pair[0], pair[1])
		}
	}

	forbidden := [][2]string{
		{constants.PaymentStatusProcessing, constants.PaymentStatusPending},
		{constants.PaymentStatusSuccess, constants.PaymentStatusFailed},
		{constants.PaymentStatusSuccess, constants.PaymentStatusProcessing},
		{constants.PaymentStatusFailed, constants.PaymentStatusSuccess},
		{constants.PaymentStatusExpired, constants.PaymentStatusSuccess},
		{constants.PaymentStatusRefunded, constants.PaymentStatusSuccess},
		{constants.PaymentStatusRefunded, constants.PaymentStatusPartiallyRefunded},
	}
	for _, pair := range forbidden {
		if CanTransition(pair[0], pair[1]) {
			t.Fatalf("transition %s -> %s must be rejected", pair[0], pair[1])
		}
	}
}

func TestCanTransitionSameStatusIsNoop(t *testing.T) {
	for _, status := range []string{
		constants.PaymentStatusPending,
		constants.PaymentStatusProcessing,
		constants.PaymentStatusSuccess,
		constants.PaymentStatusFailed,
		constants.PaymentStatusRefunded,
	} {
		if !CanTransition(status, status) {
			t.Fatalf("re-applying %s must be a safe no-op", status)
		}
	}
}

func TestApplyStatusStampsCompletionOnce(t *testing.T) {
	record := &models.Payment{Status: constants.PaymentStatusProcessing}
	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	applyStatus(record, constants.PaymentStatusSuccess, first)
	if record.CompletedAt == nil || !record.CompletedAt.Equal(first) {
		t.Fatalf("completion time not stamped")
	}

	later := first.Add(time.Hour)
	applyStatus(record, constants.PaymentStatusRefunded, later)
	if !record.CompletedAt.Equal(first) {
		t.Fatalf("completion time must not move after settlement")
	}
	if record.Status != constants.PaymentStatusRefunded {
		t.Fatalf("status not applied: %s", record.Status)
	}
}
