// Package payment defines the capability contract every provider client
// implements. Providers disagree on amount encoding, phone formatting and
// callback reliability; clients absorb those quirks so the payment service
// only ever sees the normalized contract.
package payment

import (
	"context"
	"time"
)

// Normalized payment result statuses. Unmapped provider vocabulary always
// normalizes to StatusPending, never to StatusSuccess.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
	StatusExpired    = "expired"
)

// Interaction modes: a hosted page the payer is redirected to, or a push
// prompt on the payer's handset with nothing to redirect to.
const (
	InteractionRedirect = "redirect"
	InteractionPush     = "push"
)

// ErrorCodeNetwork marks a result produced by a transport failure. The caller
// may retry with the same idempotency key.
const ErrorCodeNetwork = "network_error"

// InitiateRequest asks a provider to collect a payment.
type InitiateRequest struct {
	Amount         int64
	Currency       string
	OrderRef       string
	Description    string
	PayerPhone     string
	IdempotencyKey string
	CallbackURL    string
	SuccessURL     string
	ErrorURL       string
}

// Result is the normalized outcome of an initiate or status call. Every call
// is total: transport failures come back as Status failed with
// ErrorCodeNetwork, never as a raised error.
type Result struct {
	ProviderRef     string
	Status          string
	RedirectURL     string
	InteractionMode string
	ErrorCode       string
	ErrorMessage    string
	Raw             map[string]interface{}
}

// RefundRequest asks a provider to return funds. Amount is in minor units; a
// zero amount means full refund.
type RefundRequest struct {
	ProviderRef string
	Amount      int64
	Currency    string
}

// RefundResult is the normalized outcome of a refund call. Providers without
// API refunds return Success=false with an explanatory message rather than an
// error, so callers can present manual-refund flows uniformly.
type RefundResult struct {
	Success      bool
	ProviderRef  string
	ErrorMessage string
	Raw          map[string]interface{}
}

// WebhookEvent is a normalized provider callback.
type WebhookEvent struct {
	EventType   string
	ProviderRef string
	Status      string
	Amount      int64
	Currency    string
	Raw         map[string]interface{}
}

// Options tunes client construction.
type Options struct {
	Timeout          time.Duration
	WebhookTolerance time.Duration
	Now              func() time.Time
}

// Client is the single capability contract, implemented once per provider.
type Client interface {
	Code() string
	Initiate(ctx context.Context, req InitiateRequest) *Result
	CheckStatus(ctx context.Context, providerRef string) *Result
	Refund(ctx context.Context, req RefundRequest) *RefundResult
	// VerifyWebhook fails closed: missing secret or signature header is false.
	VerifyWebhook(headers map[string]string, body []byte) bool
	// ParseWebhook never panics on malformed input; it returns an error.
	ParseWebhook(body []byte) (*WebhookEvent, error)
}

// NetworkFailure builds the normalized result for a transport error.
func NetworkFailure(err error) *Result {
	message := "provider unreachable"
	if err != nil {
		message = err.Error()
	}
	return &Result{
		Status:       StatusFailed,
		ErrorCode:    ErrorCodeNetwork,
		ErrorMessage: message,
	}
}

// NormalizeOptions fills option defaults.
func NormalizeOptions(opts Options) Options {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.WebhookTolerance <= 0 {
		opts.WebhookTolerance = 5 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return opts
}

// HeaderValue reads a header from a normalized header map, tolerating
// canonical and lower-case keys. Webhook payload headers cross a queue hop as
// a plain map, so lookup cannot rely on http.Header casing.
func HeaderValue(headers map[string]string, name string) string {
	if len(headers) == 0 {
		return ""
	}
	if v, ok := headers[name]; ok {
		return v
	}
	lower := toLower(name)
	for k, v := range headers {
		if toLower(k) == lower {
			return v
		}
	}
	return ""
}

func toLower(s string) string {
	b := []byte(s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
