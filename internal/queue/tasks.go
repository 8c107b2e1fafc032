package queue

import (
	"encoding/json"

	"github.com/teranga-pos/payments/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskPaymentWebhook processes a received provider callback.
	TaskPaymentWebhook = constants.TaskPaymentWebhook
	// TaskPaymentStatusPoll actively checks a provider for an in-flight payment.
	TaskPaymentStatusPoll = constants.TaskPaymentStatusPoll
)

// PaymentWebhookPayload carries a raw provider callback to the worker.
type PaymentWebhookPayload struct {
	TenantID     uint              `json:"tenant_id"`
	ProviderCode string            `json:"provider_code"`
	Headers      map[string]string `json:"headers"`
	Body         []byte            `json:"body"`
	ReceivedAt   int64             `json:"received_at"`
}

// PaymentStatusPollPayload schedules an active status check.
type PaymentStatusPollPayload struct {
	PaymentID uint `json:"payment_id"`
	Attempt   int  `json:"attempt"`
}

// NewPaymentWebhookTask creates a webhook processing task.
func NewPaymentWebhookTask(payload PaymentWebhookPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentWebhook, body), nil
}

// NewPaymentStatusPollTask creates a status poll task.
func NewPaymentStatusPollTask(payload PaymentStatusPollPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentStatusPoll, body), nil
}
