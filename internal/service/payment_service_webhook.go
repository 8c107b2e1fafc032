package service

import (
	"context"
	"time"

	"github.com/teranga-pos/payments/internal/models"
	"github.com/teranga-pos/payments/internal/payment"
	"github.com/teranga-pos/payments/internal/payment/registry"
	"github.com/teranga-pos/payments/internal/queue"

	"go.uber.org/zap"
)

// ProcessWebhook runs a queued provider callback through verification,
// parsing and the status transition. Returning an error requeues the task;
// rejections that will never succeed return nil so the task is dropped.
func (s *PaymentService) ProcessWebhook(ctx context.Context, payload queue.PaymentWebhookPayload) error {
	log := paymentLogger(
		"tenant_id", payload.TenantID,
		"provider_code", payload.ProviderCode,
	)
	log.Infow("payment_webhook_received", "body_bytes", len(payload.Body))

	method, err := s.activeMethod(ctx, payload.TenantID, payload.ProviderCode)
	if err != nil {
		return err
	}
	if method == nil {
		log.Warnw("payment_webhook_provider_not_configured")
		return nil
	}
	client, err := s.clientFor(method)
	if err != nil {
		log.Warnw("payment_webhook_client_build_failed", "error", err)
		return nil
	}

	if !client.VerifyWebhook(payload.Headers, payload.Body) {
		log.Warnw("payment_webhook_signature_rejected")
		return nil
	}

	event, err := client.ParseWebhook(payload.Body)
	if err != nil {
		log.Warnw("payment_webhook_parse_failed", "error", err)
		return nil
	}
	log = log.With("provider_ref", event.ProviderRef, "event_type", event.EventType)

	record, err := s.paymentRepo.GetLatestByProviderRef(payload.TenantID, event.ProviderRef)
	if err != nil {
		return err
	}
	if record == nil {
		// the callback can outrun the initiate commit; retry until it lands
		log.Warnw("payment_webhook_payment_not_found")
		return ErrPaymentNotFound
	}
	log = log.With("payment_id", record.ID)

	if event.Amount != 0 && event.Amount != record.Amount {
		log.Warnw("payment_webhook_amount_mismatch",
			"stored_amount", record.Amount,
			"callback_amount", event.Amount,
		)
		return nil
	}
	if event.Currency != "" && event.Currency != record.Currency {
		log.Warnw("payment_webhook_currency_mismatch",
			"stored_currency", record.Currency,
			"callback_currency", event.Currency,
		)
		return nil
	}

	status := event.Status
	raw := models.JSON(event.Raw)

	// Providers whose callbacks cannot be authenticated on their own are
	// corroborated by a reverse status call before anything transitions.
	if registry.NeedsCorroboration(client) {
		result := client.CheckStatus(ctx, event.ProviderRef)
		if result.ErrorCode == payment.ErrorCodeNetwork {
			log.Warnw("payment_webhook_corroboration_unreachable",
				"error_message", result.ErrorMessage,
			)
			return ErrPaymentUpdateFailed
		}
		status = result.Status
		if len(result.Raw) > 0 {
			raw = models.JSON(result.Raw)
		}
		log.Infow("payment_webhook_corroborated", "provider_status", status)
	}

	before := record.Status
	updated, err := s.applyProviderStatus(record.ID, status, raw)
	if err != nil {
		log.Errorw("payment_webhook_apply_failed", "error", err)
		return err
	}
	if updated.Status != before {
		log.Infow("payment_webhook_applied",
			"previous_status", before,
			"current_status", updated.Status,
		)
	} else {
		log.Infow("payment_webhook_noop", "current_status", updated.Status)
	}
	return nil
}

// ProcessStatusPoll is the fallback for lost callbacks: it queries the
// provider and either applies the outcome or re-arms itself. Exhausting the
// attempt budget leaves the payment in processing for manual review; the
// poller never fails a payment on silence alone.
func (s *PaymentService) ProcessStatusPoll(ctx context.Context, payload queue.PaymentStatusPollPayload) error {
	log := paymentLogger("payment_id", payload.PaymentID, "attempt", payload.Attempt)

	record, err := s.paymentRepo.GetByIDAny(payload.PaymentID)
	if err != nil {
		return err
	}
	if record == nil {
		log.Warnw("payment_poll_payment_missing")
		return nil
	}
	if record.IsTerminal() {
		log.Debugw("payment_poll_already_terminal", "status", record.Status)
		return nil
	}
	if record.ProviderRef == "" {
		log.Warnw("payment_poll_no_provider_ref")
		return nil
	}

	method, err := s.activeMethod(ctx, record.TenantID, record.ProviderCode)
	if err != nil {
		return err
	}
	if method == nil {
		log.Warnw("payment_poll_provider_not_configured", "provider_code", record.ProviderCode)
		return nil
	}
	client, err := s.clientFor(method)
	if err != nil {
		return nil
	}

	result := client.CheckStatus(ctx, record.ProviderRef)
	if result.ErrorCode == payment.ErrorCodeNetwork {
		log.Warnw("payment_poll_provider_unreachable", "error_message", result.ErrorMessage)
		s.rearmOrExhaust(record, payload.Attempt, log)
		return nil
	}

	updated, err := s.applyProviderStatus(record.ID, result.Status, models.JSON(result.Raw))
	if err != nil {
		return err
	}
	if updated.IsTerminal() {
		log.Infow("payment_poll_settled", "status", updated.Status)
		return nil
	}
	s.rearmOrExhaust(updated, payload.Attempt, log)
	return nil
}

func (s *PaymentService) rearmOrExhaust(record *models.Payment, attempt int, log *zap.SugaredLogger) {
	maxAttempts := s.cfg.PollMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 12
	}
	if attempt >= maxAttempts {
		log.Warnw("payment_poll_exhausted",
			"status", record.Status,
			"max_attempts", maxAttempts,
		)
		return
	}
	delay := time.Duration(s.cfg.PollIntervalSeconds) * time.Second
	if delay <= 0 {
		delay = 5 * time.Minute
	}
	if err := s.queueClient.EnqueuePaymentStatusPoll(queue.PaymentStatusPollPayload{
		PaymentID: record.ID,
		Attempt:   attempt + 1,
	}, delay); err != nil {
		log.Warnw("payment_poll_enqueue_failed", "error", err)
	}
}
