package wave

import (
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/teranga-pos/payments/internal/payment"
)

func testClient(t *testing.T, now time.Time) *Client {
	t.Helper()
	client, err := New(map[string]interface{}{
		"api_key":        " wave_sn_prod_key ",
		"webhook_secret": " wave_sn_whsec ",
	}, payment.Options{Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	return client
}

func TestParseAndValidateConfig(t *testing.T) {
	cfg, err := ParseConfig(map[string]interface{}{
		"api_key":        " wave_sn_prod_key ",
		"webhook_secret": "whsec",
	})
	if err != nil {
		t.Fatalf("parse config failed: %v", err)
	}
	if cfg.APIKey != "wave_sn_prod_key" {
		t.Fatalf("unexpected api key: %s", cfg.APIKey)
	}
	if cfg.APIBaseURL != defaultAPIBaseURL {
		t.Fatalf("unexpected default api base url: %s", cfg.APIBaseURL)
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("validate config failed: %v", err)
	}
}

func TestValidateConfigMissingSecret(t *testing.T) {
	cfg, err := ParseConfig(map[string]interface{}{"api_key": "k"})
	if err != nil {
		t.Fatalf("parse config failed: %v", err)
	}
	if err := ValidateConfig(cfg); err == nil {
		t.Fatalf("expected validation error for missing webhook_secret")
	}
}

func TestVerifyWebhookValidSignature(t *testing.T) {
	now := time.Unix(1760000000, 0)
	client := testClient(t, now)

	body, _ := json.Marshal(map[string]interface{}{
		"type": "checkout.session.completed",
		"data": map[string]interface{}{
			"id":              "cos-18qq25rgr100a",
			"amount":          "3500",
			"currency":        "XOF",
			"checkout_status": "complete",
			"payment_status":  "succeeded",
		},
	})
	sig := computeSignature("wave_sn_whsec", now.Unix(), body)
	headers := map[string]string{
		"Wave-Signature": "t=1760000000,v1=" + sig,
	}
	if !client.VerifyWebhook(headers, body) {
		t.Fatalf("expected signature to verify")
	}
}

func TestVerifyWebhookRejectsStaleTimestamp(t *testing.T) {
	now := time.Unix(1760000000, 0)
	client := testClient(t, now)

	body := []byte(`{"type":"checkout.session.completed"}`)
	staleTS := now.Add(-10 * time.Minute).Unix()
	sig := computeSignature("wave_sn_whsec", staleTS, body)
	headers := map[string]string{
		"Wave-Signature": "t=" + strconv.FormatInt(staleTS, 10) + ",v1=" + sig,
	}
	if client.VerifyWebhook(headers, body) {
		t.Fatalf("expected stale timestamp to be rejected")
	}
}

func TestVerifyWebhookMissingHeader(t *testing.T) {
	client := testClient(t, time.Unix(1760000000, 0))
	if client.VerifyWebhook(map[string]string{}, []byte(`{}`)) {
		t.Fatalf("expected missing signature header to fail closed")
	}
}

func TestParseWebhookCompleted(t *testing.T) {
	client := testClient(t, time.Unix(1760000000, 0))
	body, _ := json.Marshal(map[string]interface{}{
		"type": "checkout.session.completed",
		"data": map[string]interface{}{
			"id":              "cos-18qq25rgr100a",
			"amount":          "3500",
			"currency":        "XOF",
			"checkout_status": "complete",
			"payment_status":  "succeeded",
		},
	})
	event, err := client.ParseWebhook(body)
	if err != nil {
		t.Fatalf("parse webhook failed: %v", err)
	}
	if event.ProviderRef != "cos-18qq25rgr100a" {
		t.Fatalf("unexpected provider ref: %s", event.ProviderRef)
	}
	if event.Status != payment.StatusSuccess {
		t.Fatalf("unexpected status: %s", event.Status)
	}
	if event.Amount != 3500 {
		t.Fatalf("unexpected amount: %d", event.Amount)
	}
}

func TestParseWebhookMalformed(t *testing.T) {
	client := testClient(t, time.Unix(1760000000, 0))
	if _, err := client.ParseWebhook([]byte("not-json")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestMapSessionStatus(t *testing.T) {
	if got := mapSessionStatus("complete", "succeeded"); got != payment.StatusSuccess {
		t.Fatalf("expected success, got %s", got)
	}
	if got := mapSessionStatus("expired", ""); got != payment.StatusExpired {
		t.Fatalf("expected expired, got %s", got)
	}
	if got := mapSessionStatus("open", "processing"); got != payment.StatusProcessing {
		t.Fatalf("expected processing, got %s", got)
	}
	// Unmapped vocabulary must never be treated as success.
	if got := mapSessionStatus("weird_state", ""); got != payment.StatusPending {
		t.Fatalf("expected pending, got %s", got)
	}
}
