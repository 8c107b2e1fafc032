// Package registry maps provider codes to client factories. It lives apart
// from the contract package so provider packages can import the contract
// without a cycle.
package registry

import (
	"errors"
	"fmt"

	"github.com/teranga-pos/payments/internal/constants"
	"github.com/teranga-pos/payments/internal/payment"
	"github.com/teranga-pos/payments/internal/payment/cinetpay"
	"github.com/teranga-pos/payments/internal/payment/flutterwave"
	"github.com/teranga-pos/payments/internal/payment/mtnmomo"
	"github.com/teranga-pos/payments/internal/payment/orange"
	"github.com/teranga-pos/payments/internal/payment/paydunya"
	"github.com/teranga-pos/payments/internal/payment/paystack"
	"github.com/teranga-pos/payments/internal/payment/wave"
)

// ErrUnknownProvider reports a provider code with no registered factory.
var ErrUnknownProvider = errors.New("unknown payment provider")

// Factory builds a provider client from a payment-method config blob.
type Factory func(raw map[string]interface{}, opts payment.Options) (payment.Client, error)

var factories = map[string]Factory{
	constants.ProviderWave: func(raw map[string]interface{}, opts payment.Options) (payment.Client, error) {
		return wave.New(raw, opts)
	},
	constants.ProviderOrange: func(raw map[string]interface{}, opts payment.Options) (payment.Client, error) {
		return orange.New(raw, opts)
	},
	constants.ProviderMTNMoMo: func(raw map[string]interface{}, opts payment.Options) (payment.Client, error) {
		return mtnmomo.New(raw, opts)
	},
	constants.ProviderFlutterwave: func(raw map[string]interface{}, opts payment.Options) (payment.Client, error) {
		return flutterwave.New(raw, opts)
	},
	constants.ProviderPaystack: func(raw map[string]interface{}, opts payment.Options) (payment.Client, error) {
		return paystack.New(raw, opts)
	},
	constants.ProviderCinetPay: func(raw map[string]interface{}, opts payment.Options) (payment.Client, error) {
		return cinetpay.New(raw, opts)
	},
	constants.ProviderPayDunya: func(raw map[string]interface{}, opts payment.Options) (payment.Client, error) {
		return paydunya.New(raw, opts)
	},
}

// Supported reports whether a provider code has a registered client. Cash is
// not listed here: it never leaves the ledger, so it has no client.
func Supported(code string) bool {
	_, ok := factories[code]
	return ok
}

// Build constructs a client for the given provider code.
func Build(code string, raw map[string]interface{}, opts payment.Options) (payment.Client, error) {
	factory, ok := factories[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, code)
	}
	return factory(raw, opts)
}

// Codes lists the registered provider codes.
func Codes() []string {
	codes := make([]string, 0, len(factories))
	for code := range factories {
		codes = append(codes, code)
	}
	return codes
}

// StatusCorroborator is implemented by clients whose callbacks cannot be
// authenticated on their own and must be confirmed by a reverse status call.
type StatusCorroborator interface {
	RequiresStatusCorroboration() bool
}

// NeedsCorroboration reports whether a client's webhook events require a
// reverse status check before a transition may be applied.
func NeedsCorroboration(client payment.Client) bool {
	if c, ok := client.(StatusCorroborator); ok {
		return c.RequiresStatusCorroboration()
	}
	return false
}
