package paystack

import (
	"encoding/json"
	"testing"

	"github.com/teranga-pos/payments/internal/payment"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(map[string]interface{}{
		"secret_key": " sk_live_abc123 ",
	}, payment.Options{})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	return client
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(map[string]interface{}{"secret_key": "sk_test"})
	if err != nil {
		t.Fatalf("parse config failed: %v", err)
	}
	if cfg.APIBaseURL != defaultAPIBaseURL {
		t.Fatalf("unexpected base url: %s", cfg.APIBaseURL)
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("validate config failed: %v", err)
	}
}

func TestVerifyWebhookSHA512(t *testing.T) {
	client := testClient(t)
	body, _ := json.Marshal(map[string]interface{}{
		"event": "charge.success",
		"data": map[string]interface{}{
			"reference": "pos-ref-001",
			"status":    "success",
			"amount":    350000,
			"currency":  "NGN",
		},
	})
	headers := map[string]string{
		"X-Paystack-Signature": computeSignature("sk_live_abc123", body),
	}
	if !client.VerifyWebhook(headers, body) {
		t.Fatalf("expected signature to verify")
	}

	headers["X-Paystack-Signature"] = computeSignature("wrong-secret", body)
	if client.VerifyWebhook(headers, body) {
		t.Fatalf("expected wrong-secret signature to fail")
	}
	if client.VerifyWebhook(map[string]string{}, body) {
		t.Fatalf("expected missing header to fail closed")
	}
}

func TestParseWebhookChargeSuccess(t *testing.T) {
	client := testClient(t)
	body, _ := json.Marshal(map[string]interface{}{
		"event": "charge.success",
		"data": map[string]interface{}{
			"reference": "pos-ref-001",
			"status":    "success",
			"amount":    350000,
			"currency":  "NGN",
		},
	})
	event, err := client.ParseWebhook(body)
	if err != nil {
		t.Fatalf("parse webhook failed: %v", err)
	}
	if event.ProviderRef != "pos-ref-001" {
		t.Fatalf("unexpected ref: %s", event.ProviderRef)
	}
	if event.Status != payment.StatusSuccess {
		t.Fatalf("unexpected status: %s", event.Status)
	}
	if event.Amount != 350000 {
		t.Fatalf("unexpected amount: %d", event.Amount)
	}
}

func TestMapTransactionStatus(t *testing.T) {
	if got := mapTransactionStatus("success"); got != payment.StatusSuccess {
		t.Fatalf("expected success, got %s", got)
	}
	if got := mapTransactionStatus("abandoned"); got != payment.StatusExpired {
		t.Fatalf("expected expired, got %s", got)
	}
	if got := mapTransactionStatus("reversed"); got != payment.StatusFailed {
		t.Fatalf("expected failed, got %s", got)
	}
	if got := mapTransactionStatus("brand-new-state"); got != payment.StatusPending {
		t.Fatalf("expected pending, got %s", got)
	}
}
