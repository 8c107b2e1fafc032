package flutterwave

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/teranga-pos/payments/internal/payment"
)

var (
	ErrConfigInvalid    = errors.New("flutterwave config invalid")
	ErrRequestFailed    = errors.New("flutterwave request failed")
	ErrResponseInvalid  = errors.New("flutterwave response invalid")
	ErrSignatureInvalid = errors.New("flutterwave signature invalid")
)

const defaultAPIBaseURL = "https://api.flutterwave.com/v3"

// Config Flutterwave settings.
type Config struct {
	SecretKey  string `json:"secret_key"`
	VerifHash  string `json:"verif_hash"`
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
	cfg.VerifHash = strings.TrimSpace(cfg.VerifHash)
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
	if cfg.VerifHash == "" {
		return fmt.Errorf("%w: verif_hash is required", ErrConfigInvalid)
	}
	return nil
}

// Client implements the provider contract for Flutterwave hosted payments.
type Client struct {
	cfg        *Config
	httpClient *http.Client
}

// New builds a Flutterwave client.
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
	return "flutterwave"
}

// Initiate creates a hosted payment link. tx_ref carries the idempotency key
// so retried initiations land on the same Flutterwave transaction.
func (c *Client) Initiate(ctx context.Context, req payment.InitiateRequest) *payment.Result {
	params := map[string]interface{}{
		"tx_ref":       req.IdempotencyKey,
		"amount":       payment.MajorUnitString(req.Amount, req.Currency),
		"currency":     strings.ToUpper(req.Currency),
		"redirect_url": req.SuccessURL,
		"customer": map[string]interface{}{
			"email":       fmt.Sprintf("%s@pos.invalid", req.OrderRef),
			"phonenumber": payment.NormalizeMSISDN(req.PayerPhone),
		},
		"customizations": map[string]interface{}{
			"title": req.Description,
		},
		"meta": map[string]interface{}{
			"order_ref": req.OrderRef,
		},
	}
	respBytes, err := c.postJSON(ctx, "/payments", params)
	if err != nil {
		return payment.NetworkFailure(err)
	}
	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    struct {
			Link string `json:"link"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return payment.NetworkFailure(fmt.Errorf("%w: %v", ErrResponseInvalid, err))
	}
	var raw map[string]interface{}
	_ = json.Unmarshal(respBytes, &raw)
	if resp.Status != "success" || resp.Data.Link == "" {
		return &payment.Result{
			Status:       payment.StatusFailed,
			ErrorCode:    "provider_declined",
			ErrorMessage: resp.Message,
			Raw:          raw,
		}
	}
	return &payment.Result{
		// the numeric transaction id only exists after the customer pays;
		// until the webhook delivers it the tx_ref is the usable reference
		ProviderRef:     req.IdempotencyKey,
		Status:          payment.StatusPending,
		RedirectURL:     resp.Data.Link,
		InteractionMode: payment.InteractionRedirect,
		Raw:             raw,
	}
}

// CheckStatus verifies a transaction by reference.
func (c *Client) CheckStatus(ctx context.Context, providerRef string) *payment.Result {
	path := "/transactions/verify_by_reference?tx_ref=" + strings.TrimSpace(providerRef)
	respBytes, err := c.getJSON(ctx, path)
	if err != nil {
		return payment.NetworkFailure(err)
	}
	var resp struct {
		Status string `json:"status"`
		Data   struct {
			ID     int64  `json:"id"`
			TxRef  string `json:"tx_ref"`
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
		Status:          mapTransactionStatus(resp.Data.Status),
		InteractionMode: payment.InteractionRedirect,
		Raw:             raw,
	}
}

// Refund issues a refund through the transactions API. Flutterwave keys the
// refund endpoint on the numeric transaction id, which it reports on verify.
func (c *Client) Refund(ctx context.Context, req payment.RefundRequest) *payment.RefundResult {
	verifyBytes, err := c.getJSON(ctx, "/transactions/verify_by_reference?tx_ref="+strings.TrimSpace(req.ProviderRef))
	if err != nil {
		return &payment.RefundResult{Success: false, ErrorMessage: err.Error()}
	}
	var verify struct {
		Status string `json:"status"`
		Data   struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(verifyBytes, &verify); err != nil {
		return &payment.RefundResult{Success: false, ErrorMessage: ErrResponseInvalid.Error()}
	}
	if verify.Status != "success" || verify.Data.ID == 0 {
		return &payment.RefundResult{Success: false, ErrorMessage: "transaction not found for refund"}
	}

	params := map[string]interface{}{
		"amount": payment.MajorUnitString(req.Amount, req.Currency),
	}
	respBytes, err := c.postJSON(ctx, fmt.Sprintf("/transactions/%d/refund", verify.Data.ID), params)
	if err != nil {
		return &payment.RefundResult{Success: false, ErrorMessage: err.Error()}
	}
	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return &payment.RefundResult{Success: false, ErrorMessage: ErrResponseInvalid.Error()}
	}
	if resp.Status != "success" {
		return &payment.RefundResult{Success: false, ErrorMessage: resp.Message}
	}
	return &payment.RefundResult{
		Success:     true,
		ProviderRef: fmt.Sprintf("%d", resp.Data.ID),
	}
}

// VerifyWebhook compares the verif-hash header against the configured value.
func (c *Client) VerifyWebhook(headers map[string]string, body []byte) bool {
	got := strings.TrimSpace(payment.HeaderValue(headers, "verif-hash"))
	if got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(c.cfg.VerifHash)) == 1
}

// ParseWebhook normalizes a charge event.
func (c *Client) ParseWebhook(body []byte) (*payment.WebhookEvent, error) {
	if len(body) == 0 {
		return nil, ErrResponseInvalid
	}
	var evt struct {
		Event string `json:"event"`
		Data  struct {
			ID       int64   `json:"id"`
			TxRef    string  `json:"tx_ref"`
			Status   string  `json:"status"`
			Amount   float64 `json:"amount"`
			Currency string  `json:"currency"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if evt.Data.TxRef == "" {
		return nil, fmt.Errorf("%w: missing tx_ref", ErrResponseInvalid)
	}
	var raw map[string]interface{}
	_ = json.Unmarshal(body, &raw)
	amount, _ := payment.ParseMajorUnits(fmt.Sprintf("%.2f", evt.Data.Amount), evt.Data.Currency)
	return &payment.WebhookEvent{
		EventType:   evt.Event,
		ProviderRef: evt.Data.TxRef,
		Status:      mapTransactionStatus(evt.Data.Status),
		Amount:      amount,
		Currency:    strings.ToUpper(evt.Data.Currency),
		Raw:         raw,
	}, nil
}

// mapTransactionStatus folds Flutterwave's vocabulary into the shared one.
func mapTransactionStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "successful":
		return payment.StatusSuccess
	case "failed":
		return payment.StatusFailed
	case "cancelled":
		return payment.StatusExpired
	case "pending":
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
	return c.do(req)
}

func (c *Client) getJSON(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIBaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
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
