package orange

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/teranga-pos/payments/internal/payment"
)

var (
	ErrConfigInvalid   = errors.New("orange money config invalid")
	ErrRequestFailed   = errors.New("orange money request failed")
	ErrResponseInvalid = errors.New("orange money response invalid")
	ErrAuthFailed      = errors.New("orange money auth failed")
)

const defaultAPIBaseURL = "https://api.orange.com"

// Config Orange Money WebPay settings.
type Config struct {
	MerchantKey  string `json:"merchant_key"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	APIBaseURL   string `json:"api_base_url"`
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
	cfg.MerchantKey = strings.TrimSpace(cfg.MerchantKey)
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	cfg.ClientSecret = strings.TrimSpace(cfg.ClientSecret)
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
	if cfg.MerchantKey == "" {
		return fmt.Errorf("%w: merchant_key is required", ErrConfigInvalid)
	}
	if cfg.ClientID == "" {
		return fmt.Errorf("%w: client_id is required", ErrConfigInvalid)
	}
	if cfg.ClientSecret == "" {
		return fmt.Errorf("%w: client_secret is required", ErrConfigInvalid)
	}
	return nil
}

// Client implements the provider contract for Orange Money WebPay. Orange's
// callback delivery is unreliable in several operator environments; callbacks
// are only trusted after CheckStatus corroborates them, and the status poller
// runs for every Orange payment.
type Client struct {
	cfg        *Config
	httpClient *http.Client

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
	now         func() time.Time
}

// New builds an Orange Money client.
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
		now:        opts.Now,
	}, nil
}

// Code returns the provider code.
func (c *Client) Code() string {
	return "orange"
}

// Initiate creates a WebPay session. Orange wants the amount as a bare
// integer string for XOF and a non-standard "OUV" code in some environments;
// the currency passes through upper-cased and the amount in major units.
func (c *Client) Initiate(ctx context.Context, req payment.InitiateRequest) *payment.Result {
	token, err := c.token(ctx)
	if err != nil {
		return payment.NetworkFailure(err)
	}
	params := map[string]interface{}{
		"merchant_key": c.cfg.MerchantKey,
		"currency":     strings.ToUpper(req.Currency),
		"order_id":     req.OrderRef,
		"amount":       payment.MajorUnitString(req.Amount, req.Currency),
		"return_url":   req.SuccessURL,
		"cancel_url":   req.ErrorURL,
		"notif_url":    req.CallbackURL,
		"lang":         "fr",
		"reference":    req.IdempotencyKey,
	}
	respBytes, err := c.postJSON(ctx, "/orange-money-webpay/v1/webpayment", params, token)
	if err != nil {
		return payment.NetworkFailure(err)
	}

	var resp struct {
		Status     int    `json:"status"`
		Message    string `json:"message"`
		PayToken   string `json:"pay_token"`
		PaymentURL string `json:"payment_url"`
		NotifToken string `json:"notif_token"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return payment.NetworkFailure(fmt.Errorf("%w: %v", ErrResponseInvalid, err))
	}
	var raw map[string]interface{}
	_ = json.Unmarshal(respBytes, &raw)

	if resp.Status != 201 || resp.PayToken == "" {
		return &payment.Result{
			Status:       payment.StatusFailed,
			ErrorCode:    "provider_declined",
			ErrorMessage: resp.Message,
			Raw:          raw,
		}
	}
	return &payment.Result{
		ProviderRef:     resp.PayToken,
		Status:          payment.StatusPending,
		RedirectURL:     resp.PaymentURL,
		InteractionMode: payment.InteractionRedirect,
		Raw:             raw,
	}
}

// CheckStatus queries a transaction by pay token.
func (c *Client) CheckStatus(ctx context.Context, providerRef string) *payment.Result {
	token, err := c.token(ctx)
	if err != nil {
		return payment.NetworkFailure(err)
	}
	params := map[string]interface{}{
		"pay_token": strings.TrimSpace(providerRef),
	}
	respBytes, err := c.postJSON(ctx, "/orange-money-webpay/v1/transactionstatus", params, token)
	if err != nil {
		return payment.NetworkFailure(err)
	}
	var resp struct {
		Status  string `json:"status"`
		TxnID   string `json:"txnid"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return payment.NetworkFailure(fmt.Errorf("%w: %v", ErrResponseInvalid, err))
	}
	var raw map[string]interface{}
	_ = json.Unmarshal(respBytes, &raw)
	return &payment.Result{
		ProviderRef:     providerRef,
		Status:          mapTransactionStatus(resp.Status),
		InteractionMode: payment.InteractionRedirect,
		Raw:             raw,
	}
}

// Refund: Orange Money WebPay has no refund API. Refunds are handled at the
// agent counter; report a deterministic failure the POS can surface.
func (c *Client) Refund(ctx context.Context, req payment.RefundRequest) *payment.RefundResult {
	return &payment.RefundResult{
		Success:      false,
		ErrorMessage: "orange money refunds are processed manually at the agent counter",
	}
}

// VerifyWebhook: Orange sends no signature; notif_token matching alone is not
// trustworthy. Accept the payload shape, then require status corroboration.
func (c *Client) VerifyWebhook(headers map[string]string, body []byte) bool {
	return len(body) > 0
}

// ParseWebhook normalizes a notification payload.
func (c *Client) ParseWebhook(body []byte) (*payment.WebhookEvent, error) {
	if len(body) == 0 {
		return nil, ErrResponseInvalid
	}
	var evt struct {
		Status     string `json:"status"`
		NotifToken string `json:"notif_token"`
		PayToken   string `json:"pay_token"`
		TxnID      string `json:"txnid"`
		Amount     string `json:"amount"`
		Currency   string `json:"currency"`
	}
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	var raw map[string]interface{}
	_ = json.Unmarshal(body, &raw)
	amount, _ := payment.ParseMajorUnits(evt.Amount, evt.Currency)
	return &payment.WebhookEvent{
		EventType:   "webpayment." + strings.ToLower(evt.Status),
		ProviderRef: evt.PayToken,
		Status:      mapTransactionStatus(evt.Status),
		Amount:      amount,
		Currency:    strings.ToUpper(evt.Currency),
		Raw:         raw,
	}, nil
}

// RequiresStatusCorroboration reports that callbacks must be confirmed by a
// reverse status call before they drive a transition.
func (c *Client) RequiresStatusCorroboration() bool {
	return true
}

// mapTransactionStatus folds Orange's vocabulary into the shared one.
func mapTransactionStatus(status string) string {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "SUCCESS", "SUCCESSFULL", "SUCCESSFUL":
		// the API misspells SUCCESSFULL in some environments
		return payment.StatusSuccess
	case "FAILED":
		return payment.StatusFailed
	case "EXPIRED":
		return payment.StatusExpired
	case "PENDING", "INITIATED":
		return payment.StatusProcessing
	default:
		return payment.StatusPending
	}
}

func (c *Client) postJSON(ctx context.Context, path string, params map[string]interface{}, token string) ([]byte, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
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

// token returns a cached client-credentials token, refreshing when expired.
func (c *Client) token(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	if c.accessToken != "" && c.now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIBaseURL+"/oauth/v3/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.cfg.ClientID + ":" + c.cfg.ClientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: http status %d", ErrAuthFailed, resp.StatusCode)
	}
	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(respBody, &token); err != nil {
		return "", fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if token.AccessToken == "" {
		return "", ErrAuthFailed
	}
	c.accessToken = token.AccessToken
	expires := token.ExpiresIn
	if expires <= 60 {
		expires = 3600
	}
	c.tokenExpiry = c.now().Add(time.Duration(expires-60) * time.Second)
	return c.accessToken, nil
}
