package orange

import (
	"encoding/json"
	"testing"

	"github.com/teranga-pos/payments/internal/payment"
)

func TestParseAndValidateConfig(t *testing.T) {
	cfg, err := ParseConfig(map[string]interface{}{
		"merchant_key":  " mk-123 ",
		"client_id":     "cid",
		"client_secret": "csecret",
	})
	if err != nil {
		t.Fatalf("parse config failed: %v", err)
	}
	if cfg.MerchantKey != "mk-123" {
		t.Fatalf("unexpected merchant key: %s", cfg.MerchantKey)
	}
	if cfg.APIBaseURL != defaultAPIBaseURL {
		t.Fatalf("unexpected base url: %s", cfg.APIBaseURL)
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("validate config failed: %v", err)
	}
}

func TestValidateConfigMissingMerchantKey(t *testing.T) {
	cfg, err := ParseConfig(map[string]interface{}{"client_id": "a", "client_secret": "b"})
	if err != nil {
		t.Fatalf("parse config failed: %v", err)
	}
	if err := ValidateConfig(cfg); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestParseWebhookSuccess(t *testing.T) {
	client := &Client{cfg: &Config{}}
	body, _ := json.Marshal(map[string]interface{}{
		"status":      "SUCCESS",
		"notif_token": "ntok",
		"pay_token":   "pt-889900",
		"txnid":       "MP210500.1122.A11111",
		"amount":      "3500",
		"currency":    "XOF",
	})
	event, err := client.ParseWebhook(body)
	if err != nil {
		t.Fatalf("parse webhook failed: %v", err)
	}
	if event.ProviderRef != "pt-889900" {
		t.Fatalf("unexpected ref: %s", event.ProviderRef)
	}
	if event.Status != payment.StatusSuccess {
		t.Fatalf("unexpected status: %s", event.Status)
	}
	if event.Amount != 3500 {
		t.Fatalf("unexpected amount: %d", event.Amount)
	}
}

func TestRefundIsDeterministicManualFailure(t *testing.T) {
	client := &Client{cfg: &Config{}}
	result := client.Refund(nil, payment.RefundRequest{ProviderRef: "pt-1", Amount: 100})
	if result.Success {
		t.Fatalf("expected manual-refund failure")
	}
	if result.ErrorMessage == "" {
		t.Fatalf("expected explanatory message")
	}
}

func TestMapTransactionStatus(t *testing.T) {
	if got := mapTransactionStatus("SUCCESSFULL"); got != payment.StatusSuccess {
		t.Fatalf("expected success for misspelled provider status, got %s", got)
	}
	if got := mapTransactionStatus("EXPIRED"); got != payment.StatusExpired {
		t.Fatalf("expected expired, got %s", got)
	}
	if got := mapTransactionStatus("INITIATED"); got != payment.StatusProcessing {
		t.Fatalf("expected processing, got %s", got)
	}
	if got := mapTransactionStatus("UNKNOWN-THING"); got != payment.StatusPending {
		t.Fatalf("expected pending, got %s", got)
	}
}
