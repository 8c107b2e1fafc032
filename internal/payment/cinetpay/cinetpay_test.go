package cinetpay

import (
	"encoding/json"
	"testing"

	"github.com/teranga-pos/payments/internal/payment"
)

func TestParseAndValidateConfig(t *testing.T) {
	cfg, err := ParseConfig(map[string]interface{}{
		"api_key":    "key",
		"site_id":    "445160",
		"secret_key": "sec",
	})
	if err != nil {
		t.Fatalf("parse config failed: %v", err)
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("validate config failed: %v", err)
	}
	if cfg.APIBaseURL != defaultAPIBaseURL {
		t.Fatalf("unexpected base url: %s", cfg.APIBaseURL)
	}
}

func TestValidateConfigMissingSiteID(t *testing.T) {
	cfg, err := ParseConfig(map[string]interface{}{"api_key": "key", "secret_key": "sec"})
	if err != nil {
		t.Fatalf("parse config failed: %v", err)
	}
	if err := ValidateConfig(cfg); err == nil {
		t.Fatalf("expected validation error")
	}
}

func sampleNotification() notification {
	return notification{
		CpmSiteID:     "445160",
		CpmTransID:    "idem-77",
		CpmTransDate:  "2025-03-02 11:22:33",
		CpmAmount:     "2500",
		CpmCurrency:   "XOF",
		PaymentMethod: "OMCI",
		CpmPageAction: "PAYMENT",
		CpmVersion:    "V4",
	}
}

func TestVerifyWebhookValidToken(t *testing.T) {
	client := &Client{cfg: &Config{SecretKey: "sec"}}
	evt := sampleNotification()
	body, _ := json.Marshal(evt)
	token := computeToken("sec", evt)
	if !client.VerifyWebhook(map[string]string{"X-Token": token}, body) {
		t.Fatalf("expected valid token to verify")
	}
}

func TestVerifyWebhookRejectsTampering(t *testing.T) {
	client := &Client{cfg: &Config{SecretKey: "sec"}}
	evt := sampleNotification()
	token := computeToken("sec", evt)
	evt.CpmAmount = "9999999"
	tampered, _ := json.Marshal(evt)
	if client.VerifyWebhook(map[string]string{"X-Token": token}, tampered) {
		t.Fatalf("expected tampered body to fail verification")
	}
	if client.VerifyWebhook(map[string]string{}, tampered) {
		t.Fatalf("expected missing token to fail closed")
	}
}

func TestParseWebhookReportsProcessingOnly(t *testing.T) {
	client := &Client{cfg: &Config{}}
	body, _ := json.Marshal(sampleNotification())
	event, err := client.ParseWebhook(body)
	if err != nil {
		t.Fatalf("parse webhook failed: %v", err)
	}
	if event.ProviderRef != "idem-77" {
		t.Fatalf("unexpected ref: %s", event.ProviderRef)
	}
	if event.Status != payment.StatusProcessing {
		t.Fatalf("notification must not be treated as final, got %s", event.Status)
	}
	if event.Amount != 2500 {
		t.Fatalf("unexpected amount: %d", event.Amount)
	}
	if !client.RequiresStatusCorroboration() {
		t.Fatalf("expected corroboration requirement")
	}
}

func TestMapTransactionStatus(t *testing.T) {
	if got := mapTransactionStatus("00", ""); got != payment.StatusSuccess {
		t.Fatalf("expected success for code 00, got %s", got)
	}
	if got := mapTransactionStatus("600", ""); got != payment.StatusFailed {
		t.Fatalf("expected failed for code 600, got %s", got)
	}
	if got := mapTransactionStatus("", "WAITING_FOR_CUSTOMER"); got != payment.StatusProcessing {
		t.Fatalf("expected processing, got %s", got)
	}
	if got := mapTransactionStatus("", "whatever"); got != payment.StatusPending {
		t.Fatalf("expected pending, got %s", got)
	}
}
