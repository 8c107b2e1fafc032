package flutterwave

import (
	"encoding/json"
	"testing"

	"github.com/teranga-pos/payments/internal/payment"
)

func TestParseAndValidateConfig(t *testing.T) {
	cfg, err := ParseConfig(map[string]interface{}{
		"secret_key": "FLWSECK_TEST-abc",
		"verif_hash": " hash-value ",
	})
	if err != nil {
		t.Fatalf("parse config failed: %v", err)
	}
	if cfg.VerifHash != "hash-value" {
		t.Fatalf("unexpected verif hash: %s", cfg.VerifHash)
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("validate config failed: %v", err)
	}
}

func TestValidateConfigMissingVerifHash(t *testing.T) {
	cfg, err := ParseConfig(map[string]interface{}{"secret_key": "sk"})
	if err != nil {
		t.Fatalf("parse config failed: %v", err)
	}
	if err := ValidateConfig(cfg); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestVerifyWebhook(t *testing.T) {
	client := &Client{cfg: &Config{VerifHash: "expected-hash"}}
	if !client.VerifyWebhook(map[string]string{"Verif-Hash": "expected-hash"}, []byte("{}")) {
		t.Fatalf("expected matching hash to verify")
	}
	if client.VerifyWebhook(map[string]string{"Verif-Hash": "wrong"}, []byte("{}")) {
		t.Fatalf("expected mismatched hash to fail")
	}
	if client.VerifyWebhook(map[string]string{}, []byte("{}")) {
		t.Fatalf("expected missing header to fail closed")
	}
}

func TestParseWebhookChargeCompleted(t *testing.T) {
	client := &Client{cfg: &Config{}}
	body, _ := json.Marshal(map[string]interface{}{
		"event": "charge.completed",
		"data": map[string]interface{}{
			"id":       5099310,
			"tx_ref":   "idem-42",
			"status":   "successful",
			"amount":   125.50,
			"currency": "NGN",
		},
	})
	event, err := client.ParseWebhook(body)
	if err != nil {
		t.Fatalf("parse webhook failed: %v", err)
	}
	if event.ProviderRef != "idem-42" {
		t.Fatalf("unexpected ref: %s", event.ProviderRef)
	}
	if event.Status != payment.StatusSuccess {
		t.Fatalf("unexpected status: %s", event.Status)
	}
	if event.Amount != 12550 {
		t.Fatalf("unexpected amount: %d", event.Amount)
	}
}

func TestParseWebhookMissingReference(t *testing.T) {
	client := &Client{cfg: &Config{}}
	if _, err := client.ParseWebhook([]byte(`{"event":"charge.completed","data":{}}`)); err == nil {
		t.Fatalf("expected error for missing tx_ref")
	}
}

func TestMapTransactionStatus(t *testing.T) {
	if got := mapTransactionStatus("successful"); got != payment.StatusSuccess {
		t.Fatalf("expected success, got %s", got)
	}
	if got := mapTransactionStatus("cancelled"); got != payment.StatusExpired {
		t.Fatalf("expected expired, got %s", got)
	}
	if got := mapTransactionStatus("weird"); got != payment.StatusPending {
		t.Fatalf("expected pending, got %s", got)
	}
}
