package paydunya

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/teranga-pos/payments/internal/payment"
)

var (
	ErrConfigInvalid   = errors.New("paydunya config invalid")
	ErrRequestFailed   = errors.New("paydunya request failed")
	ErrResponseInvalid = errors.New("paydunya response invalid")
)

const (
	liveAPIBaseURL = "https://app.paydunya.com/api/v1"
	testAPIBaseURL = "https://app.paydunya.com/sandbox-api/v1"
)

// Config PayDunya settings.
type Config struct {
	MasterKey  string `json:"master_key"`
	PrivateKey string `json:"private_key"`
	Token      string `json:"token"`
	StoreName  string `json:"store_name"`
	Sandbox    bool   `json:"sandbox"`
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
	cfg.MasterKey = strings.TrimSpace(cfg.MasterKey)
	cfg.PrivateKey = strings.TrimSpace(cfg.PrivateKey)
	cfg.Token = strings.TrimSpace(cfg.Token)
	cfg.StoreName = strings.TrimSpace(cfg.StoreName)
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if cfg.APIBaseURL == "" {
		if cfg.Sandbox {
			cfg.APIBaseURL = testAPIBaseURL
		} else {
			cfg.APIBaseURL = liveAPIBaseURL
		}
	}
	return &cfg, nil
}

// ValidateConfig checks required settings.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if cfg.MasterKey == "" {
		return fmt.Errorf("%w: master_key is required", ErrConfigInvalid)
	}
	if cfg.PrivateKey == "" {
		return fmt.Errorf("%w: private_key is required", ErrConfigInvalid)
	}
	if cfg.Token == "" {
		return fmt.Errorf("%w: token is required", ErrConfigInvalid)
	}
	return nil
}

// Client implements the provider contract for PayDunya, the aggregator that
// fronts several wallets behind one checkout. It is used where a merchant has
// a single PayDunya contract instead of per-operator ones.
type Client struct {
	cfg        *Config
	httpClient *http.Client
}

// New builds a PayDunya client.
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
	return "paydunya"
}

// Initiate creates a checkout invoice and returns its hosted URL.
func (c *Client) Initiate(ctx context.Context, req payment.InitiateRequest) *payment.Result {
	params := map[string]interface{}{
		"invoice": map[string]interface{}{
			"total_amount": payment.MajorUnitString(req.Amount, req.Currency),
			"description":  req.Description,
		},
		"store": map[string]interface{}{
			"name": c.cfg.StoreName,
		},
		"custom_data": map[string]interface{}{
			"order_ref":       req.OrderRef,
			"idempotency_key": req.IdempotencyKey,
		},
		"actions": map[string]interface{}{
			"callback_url": req.CallbackURL,
			"return_url":   req.SuccessURL,
			"cancel_url":   req.ErrorURL,
		},
	}
	respBytes, err := c.postJSON(ctx, "/checkout-invoice/create", params)
	if err != nil {
		return payment.NetworkFailure(err)
	}
	var resp struct {
		ResponseCode string `json:"response_code"`
		ResponseText string `json:"response_text"`
		Token        string `json:"token"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return payment.NetworkFailure(fmt.Errorf("%w: %v", ErrResponseInvalid, err))
	}
	var raw map[string]interface{}
	_ = json.Unmarshal(respBytes, &raw)
	if resp.ResponseCode != "00" || resp.Token == "" {
		return &payment.Result{
			Status:       payment.StatusFailed,
			ErrorCode:    "provider_declined",
			ErrorMessage: resp.ResponseText,
			Raw:          raw,
		}
	}
	return &payment.Result{
		ProviderRef: resp.Token,
		Status:      payment.StatusPending,
		// response_text carries the checkout URL on success
		RedirectURL:     resp.ResponseText,
		InteractionMode: payment.InteractionRedirect,
		Raw:             raw,
	}
}

// CheckStatus confirms an invoice by token.
func (c *Client) CheckStatus(ctx context.Context, providerRef string) *payment.Result {
	respBytes, err := c.getJSON(ctx, "/checkout-invoice/confirm/"+strings.TrimSpace(providerRef))
	if err != nil {
		return payment.NetworkFailure(err)
	}
	var resp struct {
		ResponseCode string `json:"response_code"`
		Status       string `json:"status"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return payment.NetworkFailure(fmt.Errorf("%w: %v", ErrResponseInvalid, err))
	}
	var raw map[string]interface{}
	_ = json.Unmarshal(respBytes, &raw)
	return &payment.Result{
		ProviderRef:     providerRef,
		Status:          mapInvoiceStatus(resp.Status),
		InteractionMode: payment.InteractionRedirect,
		Raw:             raw,
	}
}

// Refund: the aggregator API exposes no refund endpoint; disbursement back to
// the payer wallet is a separate merchant-portal operation.
func (c *Client) Refund(ctx context.Context, req payment.RefundRequest) *payment.RefundResult {
	return &payment.RefundResult{
		Success:      false,
		ErrorMessage: "paydunya refunds are issued from the merchant portal",
	}
}

// VerifyWebhook: IPN posts carry no signature; authenticity comes from the
// reverse confirm call, so only the payload shape is accepted here.
func (c *Client) VerifyWebhook(headers map[string]string, body []byte) bool {
	return len(body) > 0
}

// ParseWebhook normalizes an IPN payload.
func (c *Client) ParseWebhook(body []byte) (*payment.WebhookEvent, error) {
	if len(body) == 0 {
		return nil, ErrResponseInvalid
	}
	var evt struct {
		Data struct {
			Status  string `json:"status"`
			Invoice struct {
				Token       string `json:"token"`
				TotalAmount string `json:"total_amount"`
			} `json:"invoice"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if evt.Data.Invoice.Token == "" {
		return nil, fmt.Errorf("%w: missing invoice token", ErrResponseInvalid)
	}
	var raw map[string]interface{}
	_ = json.Unmarshal(body, &raw)
	amount, _ := payment.ParseMajorUnits(evt.Data.Invoice.TotalAmount, "XOF")
	return &payment.WebhookEvent{
		EventType:   "invoice." + strings.ToLower(evt.Data.Status),
		ProviderRef: evt.Data.Invoice.Token,
		Status:      mapInvoiceStatus(evt.Data.Status),
		Amount:      amount,
		Currency:    "XOF",
		Raw:         raw,
	}, nil
}

// RequiresStatusCorroboration reports that IPNs must be confirmed through the
// confirm endpoint before they drive a transition.
func (c *Client) RequiresStatusCorroboration() bool {
	return true
}

// mapInvoiceStatus folds PayDunya's vocabulary into the shared one.
func mapInvoiceStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "completed":
		return payment.StatusSuccess
	case "cancelled", "failed":
		return payment.StatusFailed
	case "expired":
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
	req.Header.Set("PAYDUNYA-MASTER-KEY", c.cfg.MasterKey)
	req.Header.Set("PAYDUNYA-PRIVATE-KEY", c.cfg.PrivateKey)
	req.Header.Set("PAYDUNYA-TOKEN", c.cfg.Token)
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
