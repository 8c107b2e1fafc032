package mtnmomo

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/teranga-pos/payments/internal/payment"

	"github.com/google/uuid"
)

var (
	ErrConfigInvalid   = errors.New("mtn momo config invalid")
	ErrRequestFailed   = errors.New("mtn momo request failed")
	ErrResponseInvalid = errors.New("mtn momo response invalid")
	ErrAuthFailed      = errors.New("mtn momo auth failed")
)

const defaultAPIBaseURL = "https://proxy.momoapi.mtn.com"

// Config MTN MoMo collection settings.
type Config struct {
	SubscriptionKey string `json:"subscription_key"` // Ocp-Apim-Subscription-Key
	APIUser         string `json:"api_user"`
	APIKey          string `json:"api_key"`
	TargetEnv       string `json:"target_env"` // mtncameroon / mtnbenin / ... / sandbox
	APIBaseURL      string `json:"api_base_url"`
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
	if cfg.SubscriptionKey == "" {
		return fmt.Errorf("%w: subscription_key is required", ErrConfigInvalid)
	}
	if cfg.APIUser == "" {
		return fmt.Errorf("%w: api_user is required", ErrConfigInvalid)
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("%w: api_key is required", ErrConfigInvalid)
	}
	return nil
}

func (c *Config) normalize() {
	c.SubscriptionKey = strings.TrimSpace(c.SubscriptionKey)
	c.APIUser = strings.TrimSpace(c.APIUser)
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.TargetEnv = strings.TrimSpace(c.TargetEnv)
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	if c.TargetEnv == "" {
		c.TargetEnv = "sandbox"
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = defaultAPIBaseURL
	}
}

// Client implements the provider contract for MTN MoMo requesttopay. This is
// a push flow: the payer approves on the handset, there is no redirect, and
// environments without webhook delivery rely entirely on the status poller.
type Client struct {
	cfg        *Config
	httpClient *http.Client

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
	now         func() time.Time
}

// New builds an MTN MoMo client.
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
	return "mtn_momo"
}

// Initiate fires a requesttopay. The provider reference is the caller-chosen
// X-Reference-Id UUID; MoMo returns 202 with an empty body when accepted.
func (c *Client) Initiate(ctx context.Context, req payment.InitiateRequest) *payment.Result {
	token, err := c.token(ctx)
	if err != nil {
		return payment.NetworkFailure(err)
	}
	referenceID := uuid.NewString()
	params := map[string]interface{}{
		"amount":     payment.MajorUnitString(req.Amount, req.Currency),
		"currency":   strings.ToUpper(req.Currency),
		"externalId": req.OrderRef,
		"payer": map[string]interface{}{
			"partyIdType": "MSISDN",
			"partyId":     payment.NormalizeMSISDN(req.PayerPhone), // MoMo wants digits, no plus
		},
		"payerMessage": "POS payment " + req.OrderRef,
		"payeeNote":    req.OrderRef,
	}
	body, err := json.Marshal(params)
	if err != nil {
		return payment.NetworkFailure(err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIBaseURL+"/collection/v1_0/requesttopay", bytes.NewReader(body))
	if err != nil {
		return payment.NetworkFailure(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("X-Reference-Id", referenceID)
	httpReq.Header.Set("X-Target-Environment", c.cfg.TargetEnv)
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.SubscriptionKey)
	if req.CallbackURL != "" {
		httpReq.Header.Set("X-Callback-Url", req.CallbackURL)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return payment.NetworkFailure(fmt.Errorf("%w: %v", ErrRequestFailed, err))
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusAccepted {
		var raw map[string]interface{}
		_ = json.Unmarshal(respBody, &raw)
		return &payment.Result{
			Status:       payment.StatusFailed,
			ErrorCode:    "provider_declined",
			ErrorMessage: fmt.Sprintf("requesttopay rejected with status %d", resp.StatusCode),
			Raw:          raw,
		}
	}
	return &payment.Result{
		ProviderRef:     referenceID,
		Status:          payment.StatusProcessing,
		InteractionMode: payment.InteractionPush,
		Raw:             map[string]interface{}{"reference_id": referenceID, "http_status": resp.StatusCode},
	}
}

// CheckStatus reads a requesttopay by reference UUID.
func (c *Client) CheckStatus(ctx context.Context, providerRef string) *payment.Result {
	token, err := c.token(ctx)
	if err != nil {
		return payment.NetworkFailure(err)
	}
	endpoint := c.cfg.APIBaseURL + "/collection/v1_0/requesttopay/" + strings.TrimSpace(providerRef)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return payment.NetworkFailure(err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("X-Target-Environment", c.cfg.TargetEnv)
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.SubscriptionKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return payment.NetworkFailure(fmt.Errorf("%w: %v", ErrRequestFailed, err))
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return payment.NetworkFailure(fmt.Errorf("%w: %v", ErrRequestFailed, err))
	}

	var status struct {
		Status string `json:"status"`
		Reason struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"reason"`
	}
	if err := json.Unmarshal(respBody, &status); err != nil {
		return payment.NetworkFailure(fmt.Errorf("%w: %v", ErrResponseInvalid, err))
	}
	var raw map[string]interface{}
	_ = json.Unmarshal(respBody, &raw)
	result := &payment.Result{
		ProviderRef:     providerRef,
		Status:          mapRequestStatus(status.Status),
		InteractionMode: payment.InteractionPush,
		Raw:             raw,
	}
	if result.Status == payment.StatusFailed {
		result.ErrorCode = status.Reason.Code
		result.ErrorMessage = status.Reason.Message
	}
	return result
}

// Refund fires a collection refund against the original requesttopay.
func (c *Client) Refund(ctx context.Context, req payment.RefundRequest) *payment.RefundResult {
	token, err := c.token(ctx)
	if err != nil {
		return &payment.RefundResult{Success: false, ErrorMessage: err.Error()}
	}
	refundID := uuid.NewString()
	params := map[string]interface{}{
		"amount":              payment.MajorUnitString(req.Amount, req.Currency),
		"currency":            strings.ToUpper(req.Currency),
		"referenceIdToRefund": strings.TrimSpace(req.ProviderRef),
		"externalId":          refundID,
		"payerMessage":        "POS refund",
	}
	body, err := json.Marshal(params)
	if err != nil {
		return &payment.RefundResult{Success: false, ErrorMessage: err.Error()}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIBaseURL+"/disbursement/v1_0/refund", bytes.NewReader(body))
	if err != nil {
		return &payment.RefundResult{Success: false, ErrorMessage: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("X-Reference-Id", refundID)
	httpReq.Header.Set("X-Target-Environment", c.cfg.TargetEnv)
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.SubscriptionKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &payment.RefundResult{Success: false, ErrorMessage: fmt.Sprintf("%v: %v", ErrRequestFailed, err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return &payment.RefundResult{
			Success:      false,
			ErrorMessage: fmt.Sprintf("refund rejected with status %d", resp.StatusCode),
		}
	}
	return &payment.RefundResult{Success: true, ProviderRef: refundID}
}

// VerifyWebhook: MoMo callbacks carry no signature. The callback is only
// trusted after CheckStatus corroborates it, so verification passes the
// payload through and the worker re-queries the provider.
func (c *Client) VerifyWebhook(headers map[string]string, body []byte) bool {
	return len(body) > 0
}

// ParseWebhook normalizes a requesttopay callback.
func (c *Client) ParseWebhook(body []byte) (*payment.WebhookEvent, error) {
	if len(body) == 0 {
		return nil, ErrResponseInvalid
	}
	var evt struct {
		ReferenceID string `json:"referenceId"`
		ExternalID  string `json:"externalId"`
		Status      string `json:"status"`
		Amount      string `json:"amount"`
		Currency    string `json:"currency"`
	}
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	var raw map[string]interface{}
	_ = json.Unmarshal(body, &raw)
	amount, _ := payment.ParseMajorUnits(evt.Amount, evt.Currency)
	ref := evt.ReferenceID
	if ref == "" {
		ref = evt.ExternalID
	}
	return &payment.WebhookEvent{
		EventType:   "requesttopay." + strings.ToLower(evt.Status),
		ProviderRef: ref,
		Status:      mapRequestStatus(evt.Status),
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

// mapRequestStatus folds MoMo's vocabulary into the shared one.
func mapRequestStatus(status string) string {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "SUCCESSFUL":
		return payment.StatusSuccess
	case "FAILED", "REJECTED":
		return payment.StatusFailed
	case "TIMEOUT", "EXPIRED":
		return payment.StatusExpired
	case "PENDING", "ONGOING":
		return payment.StatusProcessing
	default:
		return payment.StatusPending
	}
}

// token returns a cached collection access token, refreshing when expired.
func (c *Client) token(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	if c.accessToken != "" && c.now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIBaseURL+"/collection/token/", nil)
	if err != nil {
		return "", err
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.cfg.APIUser + ":" + c.cfg.APIKey))
	httpReq.Header.Set("Authorization", "Basic "+basic)
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.SubscriptionKey)

	resp, err := c.httpClient.Do(httpReq)
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
	// refresh one minute early
	expires := token.ExpiresIn
	if expires <= 60 {
		expires = 3600
	}
	c.tokenExpiry = c.now().Add(time.Duration(expires-60) * time.Second)
	return c.accessToken, nil
}
