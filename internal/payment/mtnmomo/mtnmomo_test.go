package mtnmomo

import (
	"encoding/json"
	"testing"

	"github.com/teranga-pos/payments/internal/payment"
)

func TestParseAndValidateConfig(t *testing.T) {
	cfg, err := ParseConfig(map[string]interface{}{
		"subscription_key": " sub-key ",
		"api_user":         " api-user ",
		"api_key":          " api-key ",
	})
	if err != nil {
		t.Fatalf("parse config failed: %v", err)
	}
	if cfg.TargetEnv != "sandbox" {
		t.Fatalf("expected sandbox default, got %s", cfg.TargetEnv)
	}
	if cfg.APIBaseURL != defaultAPIBaseURL {
		t.Fatalf("unexpected base url: %s", cfg.APIBaseURL)
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("validate config failed: %v", err)
	}
}

func TestValidateConfigMissingAPIUser(t *testing.T) {
	cfg, err := ParseConfig(map[string]interface{}{"subscription_key": "k", "api_key": "k"})
	if err != nil {
		t.Fatalf("parse config failed: %v", err)
	}
	if err := ValidateConfig(cfg); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestParseWebhookSuccessful(t *testing.T) {
	client := &Client{cfg: &Config{}}
	body, _ := json.Marshal(map[string]interface{}{
		"referenceId": "9f2a7c4e-1111-2222-3333-444455556666",
		"externalId":  "ORD-221",
		"status":      "SUCCESSFUL",
		"amount":      "3500",
		"currency":    "XOF",
	})
	event, err := client.ParseWebhook(body)
	if err != nil {
		t.Fatalf("parse webhook failed: %v", err)
	}
	if event.ProviderRef != "9f2a7c4e-1111-2222-3333-444455556666" {
		t.Fatalf("unexpected ref: %s", event.ProviderRef)
	}
	if event.Status != payment.StatusSuccess {
		t.Fatalf("unexpected status: %s", event.Status)
	}
	if event.Amount != 3500 {
		t.Fatalf("unexpected amount: %d", event.Amount)
	}
}

func TestParseWebhookMalformed(t *testing.T) {
	client := &Client{cfg: &Config{}}
	if _, err := client.ParseWebhook([]byte("{bad")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestMapRequestStatus(t *testing.T) {
	if got := mapRequestStatus("SUCCESSFUL"); got != payment.StatusSuccess {
		t.Fatalf("expected success, got %s", got)
	}
	if got := mapRequestStatus("REJECTED"); got != payment.StatusFailed {
		t.Fatalf("expected failed, got %s", got)
	}
	if got := mapRequestStatus("TIMEOUT"); got != payment.StatusExpired {
		t.Fatalf("expected expired, got %s", got)
	}
	if got := mapRequestStatus("PENDING"); got != payment.StatusProcessing {
		t.Fatalf("expected processing, got %s", got)
	}
	if got := mapRequestStatus("SOMETHING_NEW"); got != payment.StatusPending {
		t.Fatalf("expected pending, got %s", got)
	}
}

func TestRequiresStatusCorroboration(t *testing.T) {
	client := &Client{cfg: &Config{}}
	if !client.RequiresStatusCorroboration() {
		t.Fatalf("momo callbacks must require corroboration")
	}
}
