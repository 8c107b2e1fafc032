package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/teranga-pos/payments/internal/payment"
)

var (
	ErrConfigInvalid   = errors.New("paystack config invalid")
	ErrRequestFailed   = errors.New("paystack request failed")
	ErrResponseInvalid = errors.New("paystack response invalid")
)

const (
	defaultAPIBaseURL = "https://api.paystack.co"
	signatureHeader   = "X-Paystack-Signature"
)

// Config Paystack settings. The secret key doubles as the webhook HMAC key.
type Config struct {
	SecretKey  string `json:"secret_key"`
	APIBaseURL string `json:"api_base_url"`
}

// ParseConfig decodes a payment-method config blob.
func ParseConfig(raw map[string]interface{}) (*Config, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: empty config", ErrConfigInvalid)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal config failed", ErrConfigInvalid)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal config failed", ErrConfigInvalid)
	}
	cfg.SecretKey = strings.TrimSpace(cfg.SecretKey)
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	return &cfg, nil
}

// ValidateConfig checks required settings.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if cfg.SecretKey == "" {
		return fmt.Errorf("%w: secret_key is required", ErrConfigInvalid)
	}
	return nil
}

// Client implements the provider contract for Paystack transactions.
type Client struct {
	cfg        *Config
	httpClient *http.Client
}

// New builds a Paystack client.
func New(raw map[string]interface{}, opts payment.Options) (*Client, error) {
	cfg, err := ParseConfig(raw)
	if err != nil {
		return nil, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	opts = payment.NormalizeOptions(opts)
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: opts.Timeout},
	}, nil
}

// Code returns the provider code.
func (c *Client) Code() string {
	return "paystack"
}

// Initiate initializes a transaction. Paystack already takes integer minor
// units (kobo/pesewas), so the amount passes through unconverted.
func (c *Client) Initiate(ctx context.Context, req payment.InitiateRequest) *payment.Result {
	params := map[string]interface{}{
		"amount":       req.Amount,
		"currency":     strings.ToUpper(req.Currency),
		"reference":    req.IdempotencyKey,
		"email":        fmt.Sprintf("%s@pos.invalid", req.OrderRef), // Paystack requires an email; POS customers have none
		"callback_url": req.SuccessURL,
		"metadata": map[string]interface{}{
			"order_ref": req.OrderRef,
		},
	}
	respBytes, err := c.postJSON(ctx, "/transaction/initialize", params)
	if err != nil {
		return payment.NetworkFailure(err)
	}

	var resp struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			AuthorizationURL string `json:"authorization_url"`
			AccessCode       string `json:"access_code"`
			Reference        string `json:"reference"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return payment.NetworkFailure(fmt.Errorf("%w: %v", ErrResponseInvalid, err))
	}
	var raw map[string]interface{}
	_ = json.Unmarshal(respBytes, &raw)

	if !resp.Status {
		return &payment.Result{
			Status:       payment.StatusFailed,
			ErrorCode:    "provider_declined",
			ErrorMessage: resp.Message,
			Raw:          raw,
		}
	}
	return &payment.Result{
		ProviderRef:     resp.Data.Reference,
		Status:          payment.StatusPending,
		RedirectURL:     resp.Data.AuthorizationURL,
		InteractionMode: payment.InteractionRedirect,
		Raw:             raw,
	}
}

// CheckStatus verifies a transaction by reference.
func (c *Client) CheckStatus(ctx context.Context, providerRef string) *payment.Result {
	respBytes, err := c.getJSON(ctx, "/transaction/verify/"+strings.TrimSpace(providerRef))
	if err != nil {
		return payment.NetworkFailure(err)
	}
	var resp struct {
		Status bool `json:"status"`
		Data   struct {
			Status    string `json:"status"`
			Reference string `json:"reference"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return payment.NetworkFailure(fmt.Errorf("%w: %v", ErrResponseInvalid, err))
	}
	var raw map[string]interface{}
	_ = json.Unmarshal(respBytes, &raw)
	return &payment.Result{
		ProviderRef: resp.Data.Reference,
		Status:      mapTransactionStatus(resp.Data.Status),
		Raw:         raw,
	}
}

// Refund creates a refund; amount stays in minor units.
func (c *Client) Refund(ctx context.Context, req payment.RefundRequest) *payment.RefundResult {
	params := map[string]interface{}{
		"transaction": strings.TrimSpace(req.ProviderRef),
	}
	if req.Amount > 0 {
		params["amount"] = req.Amount
	}
	respBytes, err := c.postJSON(ctx, "/refund", params)
	if err != nil {
		return &payment.RefundResult{Success: false, ErrorMessage: err.Error()}
	}
	var resp struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			TransactionReference string `json:"transaction_reference"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return &payment.RefundResult{Success: false, ErrorMessage: ErrResponseInvalid.Error()}
	}
	var raw map[string]interface{}
	_ = json.Unmarshal(respBytes, &raw)
	if !resp.Status {
		return &payment.RefundResult{Success: false, ErrorMessage: resp.Message, Raw: raw}
	}
	ref := resp.Data.TransactionReference
	if ref == "" {
		ref = req.ProviderRef
	}
	return &payment.RefundResult{Success: true, ProviderRef: ref, Raw: raw}
}

// VerifyWebhook checks x-paystack-signature: HMAC-SHA512 over the raw body.
func (c *Client) VerifyWebhook(headers map[string]string, body []byte) bool {
	if c.cfg == nil || c.cfg.SecretKey == "" {
		return false
	}
	sig := strings.TrimSpace(payment.HeaderValue(headers, signatureHeader))
	if sig == "" {
		return false
	}
	expected := computeSignature(c.cfg.SecretKey, body)
	return hmac.Equal([]byte(strings.ToLower(sig)), []byte(expected))
}

// ParseWebhook normalizes a charge event payload.
func (c *Client) ParseWebhook(body []byte) (*payment.WebhookEvent, error) {
	if len(body) == 0 {
		return nil, ErrResponseInvalid
	}
	var evt struct {
		Event string `json:"event"`
		Data  struct {
			Reference string `json:"reference"`
			Status    string `json:"status"`
			Amount    int64  `json:"amount"`
			Currency  string `json:"currency"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	var raw map[string]interface{}
	_ = json.Unmarshal(body, &raw)

	status := mapTransactionStatus(evt.Data.Status)
	if evt.Event == "charge.success" {
		status = payment.StatusSuccess
	}
	return &payment.WebhookEvent{
		EventType:   evt.Event,
		ProviderRef: evt.Data.Reference,
		Status:      status,
		Amount:      evt.Data.Amount,
		Currency:    strings.ToUpper(evt.Data.Currency),
		Raw:         raw,
	}, nil
}

// mapTransactionStatus folds Paystack's vocabulary into the shared one.
func mapTransactionStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "success":
		return payment.StatusSuccess
	case "failed", "reversed":
		return payment.StatusFailed
	case "abandoned":
		return payment.StatusExpired
	case "ongoing", "processing", "queued":
		return payment.StatusProcessing
	default:
		return payment.StatusPending
	}
}

func computeSignature(secret string, body []byte) string {
	h := hmac.New(sha512.New, []byte(secret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Client) postJSON(ctx context.Context, path string, params map[string]interface{}) ([]byte, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
	return c.do(req)
}

func (c *Client) getJSON(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIBaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: http status %d", ErrRequestFailed, resp.StatusCode)
	}
	return payload, nil
}
