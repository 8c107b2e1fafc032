package worker

import (
	"context"
	"testing"

	"github.com/teranga-pos/payments/internal/constants"

	"github.com/hibiken/asynq"
)

func TestRegisterNilConsumer(t *testing.T) {
	var c *Consumer
	c.Register(asynq.NewServeMux())
}

func TestHandlePaymentWebhookBadPayload(t *testing.T) {
	c := NewConsumer(nil)
	task := asynq.NewTask(constants.TaskPaymentWebhook, []byte("{not json"))
	if err := c.handlePaymentWebhook(context.Background(), task); err == nil {
		t.Fatalf("malformed payload should fail so asynq records it")
	}
}

func TestHandlePaymentWebhookZeroValuePayloadDropped(t *testing.T) {
	c := NewConsumer(nil)
	task := asynq.NewTask(constants.TaskPaymentWebhook, []byte(`{}`))
	if err := c.handlePaymentWebhook(context.Background(), task); err != nil {
		t.Fatalf("zero-value payload should be dropped without retry, got %v", err)
	}
}

func TestHandlePaymentStatusPollZeroValuePayloadDropped(t *testing.T) {
	c := NewConsumer(nil)
	task := asynq.NewTask(constants.TaskPaymentStatusPoll, []byte(`{"payment_id":0}`))
	if err := c.handlePaymentStatusPoll(context.Background(), task); err != nil {
		t.Fatalf("poll without payment id should be dropped without retry, got %v", err)
	}
}

func TestHandlePaymentStatusPollBadPayload(t *testing.T) {
	c := NewConsumer(nil)
	task := asynq.NewTask(constants.TaskPaymentStatusPoll, []byte("oops"))
	if err := c.handlePaymentStatusPoll(context.Background(), task); err == nil {
		t.Fatalf("malformed payload should fail so asynq records it")
	}
}
