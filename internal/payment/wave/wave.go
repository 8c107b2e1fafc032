package wave

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
	"strconv"
	"strings"
	"time"

	"github.com/teranga-pos/payments/internal/payment"
)

var (
	ErrConfigInvalid    = errors.New("wave config invalid")
	ErrRequestFailed    = errors.New("wave request failed")
	ErrResponseInvalid  = errors.New("wave response invalid")
	ErrSignatureInvalid = errors.New("wave signature invalid")
)

const (
	defaultAPIBaseURL = "https://api.wave.com"
	signatureHeader   = "Wave-Signature"
)

// Config Wave checkout settings.
type Config struct {
	APIKey        string `json:"api_key"`        // server API key (Bearer)
	WebhookSecret string `json:"webhook_secret"` // shared secret for callback HMAC
	APIBaseURL    string `json:"api_base_url"`   // override for sandbox
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
	cfg.normalize()
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
	if cfg.WebhookSecret == "" {
		return fmt.Errorf("%w: webhook_secret is required", ErrConfigInvalid)
	}
	return nil
}

func (c *Config) normalize() {
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.WebhookSecret = strings.TrimSpace(c.WebhookSecret)
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	if c.APIBaseURL == "" {
		c.APIBaseURL = defaultAPIBaseURL
	}
}

// Client implements the provider contract for Wave checkout sessions.
type Client struct {
	cfg        *Config
	httpClient *http.Client
	tolerance  time.Duration
	now        func() time.Time
}

// New builds a Wave client from a payment-method config blob.
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
		tolerance:  opts.WebhookTolerance,
		now:        opts.Now,
	}, nil
}

// Code returns the provider code.
func (c *Client) Code() string {
	return "wave"
}

// Initiate creates a checkout session. Wave wants the amount as a decimal
// string in major units and the payer phone with a leading "+".
func (c *Client) Initiate(ctx context.Context, req payment.InitiateRequest) *payment.Result {
	params := map[string]interface{}{
		"amount":              payment.MajorUnitString(req.Amount, req.Currency),
		"currency":            strings.ToUpper(req.Currency),
		"client_reference":    req.OrderRef,
		"success_url":         req.SuccessURL,
		"error_url":           req.ErrorURL,
		"aggregated_merchant": false,
	}
	if phone := payment.MSISDNWithPlus(req.PayerPhone); phone != "" {
		params["restrict_payer_mobile"] = phone
	}
	respBytes, err := c.postJSON(ctx, "/v1/checkout/sessions", params, req.IdempotencyKey)
	if err != nil {
		return payment.NetworkFailure(err)
	}

	var resp struct {
		ID            string `json:"id"`
		LaunchURL     string `json:"wave_launch_url"`
		CheckoutState string `json:"checkout_status"`
		PaymentStatus string `json:"payment_status"`
		ErrorCode     string `json:"error_code"`
		ErrorMessage  string `json:"error_message"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return payment.NetworkFailure(fmt.Errorf("%w: %v", ErrResponseInvalid, err))
	}
	var raw map[string]interface{}
	_ = json.Unmarshal(respBytes, &raw)

	if resp.ErrorCode != "" {
		return &payment.Result{
			Status:       payment.StatusFailed,
			ErrorCode:    resp.ErrorCode,
			ErrorMessage: resp.ErrorMessage,
			Raw:          raw,
		}
	}
	return &payment.Result{
		ProviderRef:     resp.ID,
		Status:          mapSessionStatus(resp.CheckoutState, resp.PaymentStatus),
		RedirectURL:     resp.LaunchURL,
		InteractionMode: payment.InteractionRedirect,
		Raw:             raw,
	}
}

// CheckStatus re-reads a checkout session.
func (c *Client) CheckStatus(ctx context.Context, providerRef string) *payment.Result {
	respBytes, err := c.getJSON(ctx, "/v1/checkout/sessions/"+strings.TrimSpace(providerRef))
	if err != nil {
		return payment.NetworkFailure(err)
	}
	var resp struct {
		ID            string `json:"id"`
		LaunchURL     string `json:"wave_launch_url"`
		CheckoutState string `json:"checkout_status"`
		PaymentStatus string `json:"payment_status"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return payment.NetworkFailure(fmt.Errorf("%w: %v", ErrResponseInvalid, err))
	}
	var raw map[string]interface{}
	_ = json.Unmarshal(respBytes, &raw)
	return &payment.Result{
		ProviderRef:     resp.ID,
		Status:          mapSessionStatus(resp.CheckoutState, resp.PaymentStatus),
		RedirectURL:     resp.LaunchURL,
		InteractionMode: payment.InteractionRedirect,
		Raw:             raw,
	}
}

// Refund refunds a completed session.
func (c *Client) Refund(ctx context.Context, req payment.RefundRequest) *payment.RefundResult {
	endpoint := fmt.Sprintf("/v1/checkout/sessions/%s/refund", strings.TrimSpace(req.ProviderRef))
	params := map[string]interface{}{}
	if req.Amount > 0 {
		params["amount"] = payment.MajorUnitString(req.Amount, req.Currency)
	}
	respBytes, err := c.postJSON(ctx, endpoint, params, "")
	if err != nil {
		return &payment.RefundResult{Success: false, ErrorMessage: err.Error()}
	}
	var resp struct {
		ID           string `json:"id"`
		ErrorCode    string `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return &payment.RefundResult{Success: false, ErrorMessage: ErrResponseInvalid.Error()}
	}
	var raw map[string]interface{}
	_ = json.Unmarshal(respBytes, &raw)
	if resp.ErrorCode != "" {
		return &payment.RefundResult{Success: false, ErrorMessage: resp.ErrorMessage, Raw: raw}
	}
	ref := resp.ID
	if ref == "" {
		ref = req.ProviderRef
	}
	return &payment.RefundResult{Success: true, ProviderRef: ref, Raw: raw}
}

// VerifyWebhook checks the Wave-Signature header: HMAC-SHA256 over
// "{timestamp}.{body}", with a replay window on the timestamp.
func (c *Client) VerifyWebhook(headers map[string]string, body []byte) bool {
	if c.cfg == nil || c.cfg.WebhookSecret == "" {
		return false
	}
	header := strings.TrimSpace(payment.HeaderValue(headers, signatureHeader))
	if header == "" {
		return false
	}
	var timestamp int64
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "t="):
			ts, err := strconv.ParseInt(strings.TrimPrefix(part, "t="), 10, 64)
			if err != nil {
				return false
			}
			timestamp = ts
		case strings.HasPrefix(part, "v1="):
			signatures = append(signatures, strings.TrimPrefix(part, "v1="))
		}
	}
	if timestamp == 0 || len(signatures) == 0 {
		return false
	}
	age := c.now().Unix() - timestamp
	if age < 0 {
		age = -age
	}
	if time.Duration(age)*time.Second > c.tolerance {
		return false
	}
	expected := computeSignature(c.cfg.WebhookSecret, timestamp, body)
	for _, sig := range signatures {
		if hmac.Equal([]byte(strings.ToLower(strings.TrimSpace(sig))), []byte(expected)) {
			return true
		}
	}
	return false
}

// ParseWebhook normalizes a checkout event payload.
func (c *Client) ParseWebhook(body []byte) (*payment.WebhookEvent, error) {
	if len(body) == 0 {
		return nil, ErrResponseInvalid
	}
	var evt struct {
		Type string `json:"type"`
		Data struct {
			ID            string `json:"id"`
			Amount        string `json:"amount"`
			Currency      string `json:"currency"`
			CheckoutState string `json:"checkout_status"`
			PaymentStatus string `json:"payment_status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	var raw map[string]interface{}
	_ = json.Unmarshal(body, &raw)
	amount, _ := payment.ParseMajorUnits(evt.Data.Amount, evt.Data.Currency)
	return &payment.WebhookEvent{
		EventType:   evt.Type,
		ProviderRef: evt.Data.ID,
		Status:      mapSessionStatus(evt.Data.CheckoutState, evt.Data.PaymentStatus),
		Amount:      amount,
		Currency:    strings.ToUpper(evt.Data.Currency),
		Raw:         raw,
	}, nil
}

// mapSessionStatus folds Wave's two status fields into the shared vocabulary.
func mapSessionStatus(checkoutState, paymentStatus string) string {
	switch strings.ToLower(strings.TrimSpace(paymentStatus)) {
	case "succeeded":
		return payment.StatusSuccess
	case "cancelled":
		return payment.StatusFailed
	}
	switch strings.ToLower(strings.TrimSpace(checkoutState)) {
	case "complete":
		return payment.StatusSuccess
	case "expired":
		return payment.StatusExpired
	case "open", "processing":
		return payment.StatusProcessing
	default:
		return payment.StatusPending
	}
}

func computeSignature(secret string, timestamp int64, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(h, "%d.", timestamp)
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Client) postJSON(ctx context.Context, path string, params map[string]interface{}, idempotencyKey string) ([]byte, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	return c.do(req)
}

func (c *Client) getJSON(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIBaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
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
