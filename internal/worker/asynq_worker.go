package worker

import (
	"context"
	"encoding/json"

	"github.com/teranga-pos/payments/internal/constants"
	"github.com/teranga-pos/payments/internal/logger"
	"github.com/teranga-pos/payments/internal/provider"
	"github.com/teranga-pos/payments/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer handles queued payment tasks.
type Consumer struct {
	*provider.Container
}

// NewConsumer creates the consumer.
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register wires task handlers onto the mux.
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(constants.TaskPaymentWebhook, c.handlePaymentWebhook)
	mux.HandleFunc(constants.TaskPaymentStatusPoll, c.handlePaymentStatusPoll)
}

func (c *Consumer) handlePaymentWebhook(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_payment_webhook_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.PaymentWebhookPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_payment_webhook_unmarshal_failed", "error", err)
		return err
	}
	if payload.TenantID == 0 || payload.ProviderCode == "" {
		logger.Debugw("worker_payment_webhook_skip_invalid_payload",
			"tenant_id", payload.TenantID,
			"provider_code", payload.ProviderCode,
		)
		return nil
	}
	return c.PaymentService.ProcessWebhook(ctx, payload)
}

func (c *Consumer) handlePaymentStatusPoll(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_payment_poll_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.PaymentStatusPollPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_payment_poll_unmarshal_failed", "error", err)
		return err
	}
	if payload.PaymentID == 0 {
		logger.Debugw("worker_payment_poll_skip_invalid_payload", "payment_id", payload.PaymentID)
		return nil
	}
	return c.PaymentService.ProcessStatusPoll(ctx, payload)
}
