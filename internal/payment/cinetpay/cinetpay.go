package cinetpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
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
	ErrConfigInvalid    = errors.New("cinetpay config invalid")
	ErrRequestFailed    = errors.New("cinetpay request failed")
	ErrResponseInvalid  = errors.New("cinetpay response invalid")
	ErrSignatureInvalid = errors.New("cinetpay signature invalid")
)

const defaultAPIBaseURL = "https://api-checkout.cinetpay.com/v2"

// Config CinetPay settings.
type Config struct {
	APIKey     string `json:"api_key"`
	SiteID     string `json:"site_id"`
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
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.SiteID = strings.TrimSpace(cfg.SiteID)
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
	if cfg.APIKey == "" {
		return fmt.Errorf("%w: api_key is required", ErrConfigInvalid)
	}
	if cfg.SiteID == "" {
		return fmt.Errorf("%w: site_id is required", ErrConfigInvalid)
	}
	if cfg.SecretKey == "" {
		return fmt.Errorf("%w: secret_key is required", ErrConfigInvalid)
	}
	return nil
}

// Client implements the provider contract for CinetPay hosted checkout.
type Client struct {
	cfg        *Config
	httpClient *http.Client
}

// New builds a CinetPay client.
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
	return "cinetpay"
}

// Initiate creates a hosted checkout. transaction_id carries the idempotency
// key; CinetPay rejects duplicates of it, which matches the retry semantics.
func (c *Client) Initiate(ctx context.Context, req payment.InitiateRequest) *payment.Result {
	params := map[string]interface{}{
		"apikey":                c.cfg.APIKey,
		"site_id":               c.cfg.SiteID,
		"transaction_id":        req.IdempotencyKey,
		"amount":                payment.MajorUnitString(req.Amount, req.Currency),
		"currency":              strings.ToUpper(req.Currency),
		"description":           req.Description,
		"notify_url":            req.CallbackURL,
		"return_url":            req.SuccessURL,
		"channels":              "ALL",
		"customer_phone_number": payment.NormalizeMSISDN(req.PayerPhone),
		"metadata":              req.OrderRef,
	}
	respBytes, err := c.postJSON(ctx, "/payment", params)
	if err != nil {
		return payment.NetworkFailure(err)
	}
	var resp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Data    struct {
			PaymentURL   string `json:"payment_url"`
			PaymentToken string `json:"payment_token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return payment.NetworkFailure(fmt.Errorf("%w: %v", ErrResponseInvalid, err))
	}
	var raw map[string]interface{}
	_ = json.Unmarshal(respBytes, &raw)
	if resp.Code != "201" || resp.Data.PaymentURL == "" {
		return &payment.Result{
			Status:       payment.StatusFailed,
			ErrorCode:    "provider_declined",
			ErrorMessage: resp.Message,
			Raw:          raw,
		}
	}
	return &payment.Result{
		ProviderRef:     req.IdempotencyKey,
		Status:          payment.StatusPending,
		RedirectURL:     resp.Data.PaymentURL,
		InteractionMode: payment.InteractionRedirect,
		Raw:             raw,
	}
}

// CheckStatus queries /payment/check, the authoritative status source.
func (c *Client) CheckStatus(ctx context.Context, providerRef string) *payment.Result {
	params := map[string]interface{}{
		"apikey":         c.cfg.APIKey,
		"site_id":        c.cfg.SiteID,
		"transaction_id": strings.TrimSpace(providerRef),
	}
	respBytes, err := c.postJSON(ctx, "/payment/check", params)
	if err != nil {
		return payment.NetworkFailure(err)
	}
	var resp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Data    struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return payment.NetworkFailure(fmt.Errorf("%w: %v", ErrResponseInvalid, err))
	}
	var raw map[string]interface{}
	_ = json.Unmarshal(respBytes, &raw)
	return &payment.Result{
		ProviderRef:     providerRef,
		Status:          mapTransactionStatus(resp.Code, resp.Data.Status),
		InteractionMode: payment.InteractionRedirect,
		Raw:             raw,
	}
}

// Refund: CinetPay exposes no partial-refund API; transfers back to the
// customer wallet are arranged through merchant support.
func (c *Client) Refund(ctx context.Context, req payment.RefundRequest) *payment.RefundResult {
	return &payment.RefundResult{
		Success:      false,
		ErrorMessage: "cinetpay refunds must be requested through merchant support",
	}
}

// VerifyWebhook checks the x-token HMAC. The token covers a concatenation of
// notification fields, not the raw body, so the body is parsed first.
func (c *Client) VerifyWebhook(headers map[string]string, body []byte) bool {
	token := strings.TrimSpace(payment.HeaderValue(headers, "x-token"))
	if token == "" {
		return false
	}
	var evt notification
	if err := json.Unmarshal(body, &evt); err != nil {
		return false
	}
	expected := computeToken(c.cfg.SecretKey, evt)
	return hmac.Equal([]byte(token), []byte(expected))
}

// ParseWebhook normalizes a notification payload. Notifications carry no
// final status; the worker corroborates with CheckStatus before acting.
func (c *Client) ParseWebhook(body []byte) (*payment.WebhookEvent, error) {
	if len(body) == 0 {
		return nil, ErrResponseInvalid
	}
	var evt notification
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if evt.CpmTransID == "" {
		return nil, fmt.Errorf("%w: missing cpm_trans_id", ErrResponseInvalid)
	}
	var raw map[string]interface{}
	_ = json.Unmarshal(body, &raw)
	amount, _ := payment.ParseMajorUnits(evt.CpmAmount, evt.CpmCurrency)
	return &payment.WebhookEvent{
		EventType:   "payment.notify",
		ProviderRef: evt.CpmTransID,
		Status:      payment.StatusProcessing,
		Amount:      amount,
		Currency:    strings.ToUpper(evt.CpmCurrency),
		Raw:         raw,
	}, nil
}

// RequiresStatusCorroboration reports that notifications must be confirmed
// through /payment/check before they drive a transition.
func (c *Client) RequiresStatusCorroboration() bool {
	return true
}

type notification struct {
	CpmSiteID        string `json:"cpm_site_id"`
	CpmTransID       string `json:"cpm_trans_id"`
	CpmTransDate     string `json:"cpm_trans_date"`
	CpmAmount        string `json:"cpm_amount"`
	CpmCurrency      string `json:"cpm_currency"`
	SignatureField   string `json:"signature"`
	PaymentMethod    string `json:"payment_method"`
	CelPhoneNum      string `json:"cel_phone_num"`
	CpmPhonePrefixe  string `json:"cpm_phone_prefixe"`
	CpmLanguage      string `json:"cpm_language"`
	CpmVersion       string `json:"cpm_version"`
	CpmPaymentConfig string `json:"cpm_payment_config"`
	CpmPageAction    string `json:"cpm_page_action"`
	CpmCustom        string `json:"cpm_custom"`
	CpmDesignation   string `json:"cpm_designation"`
	CpmErrorMessage  string `json:"cpm_error_message"`
}

// computeToken reproduces CinetPay's x-token: HMAC-SHA256 over the
// notification fields concatenated in documented order.
func computeToken(secret string, evt notification) string {
	data := evt.CpmSiteID +
		evt.CpmTransID +
		evt.CpmTransDate +
		evt.CpmAmount +
		evt.CpmCurrency +
		evt.SignatureField +
		evt.PaymentMethod +
		evt.CelPhoneNum +
		evt.CpmPhonePrefixe +
		evt.CpmLanguage +
		evt.CpmVersion +
		evt.CpmPaymentConfig +
		evt.CpmPageAction +
		evt.CpmCustom +
		evt.CpmDesignation +
		evt.CpmErrorMessage
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// mapTransactionStatus folds the /payment/check response into the shared
// vocabulary. Code 00 is the only accepted success signal.
func mapTransactionStatus(code, status string) string {
	switch code {
	case "00":
		return payment.StatusSuccess
	case "600", "627":
		return payment.StatusFailed
	case "662":
		return payment.StatusProcessing
	}
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "ACCEPTED":
		return payment.StatusSuccess
	case "REFUSED":
		return payment.StatusFailed
	case "EXPIRED":
		return payment.StatusExpired
	case "WAITING_FOR_CUSTOMER", "PENDING":
		return payment.StatusProcessing
	default:
		return payment.StatusPending
	}
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
