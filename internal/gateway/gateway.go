// Package gateway unifies the two payment backends behind one contract:
// Stripe for card processing in most currencies, Razorpay for INR/India
// order-and-capture flows. Callers see a single PaymentIntent shape with
// amounts in major currency units; all minor-unit conversion, status
// normalization, and webhook verification happens here.
package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	stripesdk "github.com/stripe/stripe-go/v74"

	apperrors "github.com/HarshMishra-Git/Only-Thing-sub001/pkg/errors"
	"github.com/HarshMishra-Git/Only-Thing-sub001/pkg/httpclient"
)

// Provider is a closed tag identifying which backend handles a transaction.
type Provider string

const (
	ProviderStripe   Provider = "stripe"
	ProviderRazorpay Provider = "razorpay"
)

// Valid reports whether p is a known provider tag.
func (p Provider) Valid() bool {
	return p == ProviderStripe || p == ProviderRazorpay
}

// ParseProvider converts a string into a Provider tag.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(s))
	if !p.Valid() {
		return "", apperrors.InvalidInput(fmt.Sprintf("unknown payment provider %q", s))
	}
	return p, nil
}

// Canonical intent statuses shared across providers. Provider-native statuses
// outside this set pass through unchanged.
const (
	StatusRequiresPaymentMethod = "requires_payment_method"
	StatusSucceeded             = "succeeded"
)

// PaymentIntent is the unified view of a payment across both providers.
// Amount is always in major currency units (dollars, rupees), regardless of
// the minor-unit integers the provider APIs transact in.
type PaymentIntent struct {
	ID           string            `json:"id"`
	Amount       float64           `json:"amount"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"`
	ClientSecret string            `json:"client_secret,omitempty"`
	Provider     Provider          `json:"provider"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// PaymentMethod describes a stored payment instrument. Part of the public
// vocabulary of the gateway; not constructed by it today.
type PaymentMethod struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Last4 string `json:"last4,omitempty"`
	Brand string `json:"brand,omitempty"`
}

// CreatePaymentIntentParams are the inputs for creating a payment intent.
// Amount is in major currency units.
type CreatePaymentIntentParams struct {
	Amount      float64           `json:"amount"`
	Currency    string            `json:"currency"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Customer    string            `json:"customer,omitempty"`
	Description string            `json:"description,omitempty"`
}

// RefundParams are the inputs for refunding a payment. Amount nil means a
// full refund. Provider, when set, routes the refund explicitly; when empty
// the minting provider is inferred from the id shape (ids starting with
// "pi_" belong to Stripe). The prefix check is a legacy heuristic: an id
// that merely happens to start with "pi_" will be mis-routed, so callers
// that persisted the originating provider should always pass it.
type RefundParams struct {
	PaymentIntentID string   `json:"payment_intent_id"`
	Amount          *float64 `json:"amount,omitempty"`
	Reason          string   `json:"reason,omitempty"`
	Provider        Provider `json:"provider,omitempty"`
}

// Refund is the normalized result of a refund operation.
type Refund struct {
	ID              string   `json:"id"`
	PaymentIntentID string   `json:"payment_intent_id"`
	Amount          float64  `json:"amount"`
	Currency        string   `json:"currency,omitempty"`
	Status          string   `json:"status"`
	Reason          string   `json:"reason,omitempty"`
	Provider        Provider `json:"provider"`
}

// adapter is the per-provider backend contract. Both adapters are symmetric;
// the gateway owns the single dispatch point.
type adapter interface {
	CreateIntent(ctx context.Context, params CreatePaymentIntentParams) (*PaymentIntent, error)
	RetrieveIntent(ctx context.Context, id string) (*PaymentIntent, error)
	ConfirmIntent(ctx context.Context, id string) (*PaymentIntent, error)
	CaptureIntent(ctx context.Context, id string, amount *float64) (*PaymentIntent, error)
	Refund(ctx context.Context, params RefundParams) (*Refund, error)
}

var gatewayOperations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "payment_gateway_operations_total",
		Help: "Total payment gateway operations by provider, operation, and outcome",
	},
	[]string{"provider", "operation", "outcome"},
)

// Config holds the credentials and tuning for both providers. Credentials are
// supplied explicitly at construction; the gateway never reads the environment.
type Config struct {
	StripeSecretKey     string
	StripeWebhookSecret string

	// StripeAPIBaseURL overrides the Stripe API endpoint. Tests only.
	StripeAPIBaseURL string

	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string

	// RazorpayBaseURL defaults to the public Razorpay API endpoint.
	RazorpayBaseURL string

	// DefaultProvider is recorded but not consulted in routing. Defaults
	// to stripe when unset.
	DefaultProvider Provider

	// RequestTimeout bounds every outbound provider call. Defaults to 30s.
	RequestTimeout time.Duration
}

// PaymentGateway routes payment operations to the correct provider backend
// and normalizes their heterogeneous responses. It holds the two long-lived
// provider handles for the process lifetime and is safe for concurrent use;
// nothing is written after construction.
type PaymentGateway struct {
	adapters              map[Provider]adapter
	razorpayWebhookSecret string
	defaultProvider       Provider
	logger                *slog.Logger
}

// New constructs the gateway. The Stripe handle is always initialized (an
// empty key surfaces as an API error on first call, not here). The Razorpay
// handle is initialized only when both key id and key secret are present;
// otherwise INR/India traffic falls back to Stripe at selection time.
func New(cfg Config, logger *slog.Logger) *PaymentGateway {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	defaultProvider := cfg.DefaultProvider
	if defaultProvider == "" {
		defaultProvider = ProviderStripe
	}

	adapters := map[Provider]adapter{
		ProviderStripe: newStripeAdapter(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.StripeAPIBaseURL, timeout),
	}

	if cfg.RazorpayKeyID != "" && cfg.RazorpayKeySecret != "" {
		httpCfg := httpclient.DefaultConfig()
		httpCfg.Timeout = timeout
		// Provider POSTs are not idempotent; the breaker client must not retry them.
		httpCfg.MaxRetries = 0
		cbClient := httpclient.NewCircuitBreakerClient(
			httpclient.New(httpCfg),
			httpclient.DefaultCircuitBreakerConfig("razorpay"),
			logger,
		)
		adapters[ProviderRazorpay] = newRazorpayAdapter(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayBaseURL, cbClient)
	} else {
		logger.Warn("razorpay credentials missing, INR traffic will route to stripe")
	}

	return &PaymentGateway{
		adapters:              adapters,
		razorpayWebhookSecret: cfg.RazorpayWebhookSecret,
		defaultProvider:       defaultProvider,
		logger:                logger,
	}
}

// RazorpayEnabled reports whether the Razorpay handle was initialized.
func (g *PaymentGateway) RazorpayEnabled() bool {
	_, ok := g.adapters[ProviderRazorpay]
	return ok
}

// DefaultProvider returns the configured default provider preference.
// Informational only; routing is decided by SelectProvider.
func (g *PaymentGateway) DefaultProvider() Provider {
	return g.defaultProvider
}

// SelectProvider picks the backend for a transaction. INR currency or IN
// country selects Razorpay when it is initialized; everything else, and the
// fallback when Razorpay is unavailable, is Stripe. Total: always returns a
// definite provider.
func (g *PaymentGateway) SelectProvider(currency, country string) Provider {
	if strings.EqualFold(currency, "INR") || strings.EqualFold(country, "IN") {
		if g.RazorpayEnabled() {
			return ProviderRazorpay
		}
	}
	return ProviderStripe
}

// ProviderForCurrency is SelectProvider with no country hint.
func (g *PaymentGateway) ProviderForCurrency(currency string) Provider {
	return g.SelectProvider(currency, "")
}

// dispatch resolves the adapter for a provider tag. A valid tag whose
// backend was never initialized is a configuration error, distinct from
// any business failure.
func (g *PaymentGateway) dispatch(p Provider) (adapter, error) {
	if !p.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown payment provider %q", string(p)))
	}
	a, ok := g.adapters[p]
	if !ok {
		return nil, apperrors.ProviderNotConfigured(string(p))
	}
	return a, nil
}

// CreatePaymentIntent creates a fresh intent with the provider selected for
// the currency/country pair. The provider is chosen exactly once; it is
// never re-routed mid-flight.
func (g *PaymentGateway) CreatePaymentIntent(ctx context.Context, params CreatePaymentIntentParams, country string) (*PaymentIntent, error) {
	provider := g.SelectProvider(params.Currency, country)

	a, err := g.dispatch(provider)
	if err != nil {
		return nil, err
	}

	intent, err := a.CreateIntent(ctx, params)
	g.observe(provider, "create_intent", err)
	if err != nil {
		return nil, err
	}

	g.logger.InfoContext(ctx, "payment intent created",
		slog.String("intent_id", intent.ID),
		slog.String("provider", string(provider)),
		slog.String("currency", intent.Currency),
		slog.Float64("amount", intent.Amount),
	)

	return intent, nil
}

// RetrievePaymentIntent re-fetches current provider state for the intent.
// The caller supplies the minting provider; ids are not inspected here.
func (g *PaymentGateway) RetrievePaymentIntent(ctx context.Context, id string, provider Provider) (*PaymentIntent, error) {
	a, err := g.dispatch(provider)
	if err != nil {
		return nil, err
	}
	intent, err := a.RetrieveIntent(ctx, id)
	g.observe(provider, "retrieve_intent", err)
	return intent, err
}

// ConfirmPayment triggers provider-side confirmation for Stripe. Razorpay's
// order model has no explicit confirm step, so the adapter just re-fetches.
func (g *PaymentGateway) ConfirmPayment(ctx context.Context, id string, provider Provider) (*PaymentIntent, error) {
	a, err := g.dispatch(provider)
	if err != nil {
		return nil, err
	}
	intent, err := a.ConfirmIntent(ctx, id)
	g.observe(provider, "confirm", err)
	return intent, err
}

// CapturePayment captures a previously authorized payment, optionally for a
// partial amount in major units. For Stripe, a nil amount captures the full
// authorized amount. For Razorpay, a nil amount requests a zero-amount
// capture; see the adapter for why that degenerate default is preserved.
func (g *PaymentGateway) CapturePayment(ctx context.Context, id string, provider Provider, amount *float64) (*PaymentIntent, error) {
	a, err := g.dispatch(provider)
	if err != nil {
		return nil, err
	}
	intent, err := a.CaptureIntent(ctx, id, amount)
	g.observe(provider, "capture", err)
	return intent, err
}

// RefundPayment issues a full or partial refund. Routing uses the explicit
// Provider in params when set; otherwise it falls back to the id-prefix
// heuristic (see InferProvider).
func (g *PaymentGateway) RefundPayment(ctx context.Context, params RefundParams) (*Refund, error) {
	provider := params.Provider
	if provider == "" {
		provider = InferProvider(params.PaymentIntentID)
	}

	a, err := g.dispatch(provider)
	if err != nil {
		return nil, err
	}

	refund, err := a.Refund(ctx, params)
	g.observe(provider, "refund", err)
	if err != nil {
		return nil, err
	}

	g.logger.InfoContext(ctx, "refund issued",
		slog.String("refund_id", refund.ID),
		slog.String("intent_id", params.PaymentIntentID),
		slog.String("provider", string(provider)),
		slog.Float64("amount", refund.Amount),
	)

	return refund, nil
}

// InferProvider guesses the minting provider from the id shape. Stripe
// payment intent ids carry a "pi_" prefix; everything else is treated as
// Razorpay. Unvalidated beyond the prefix, so a stored provider should be
// preferred whenever one is available.
func InferProvider(paymentIntentID string) Provider {
	if strings.HasPrefix(paymentIntentID, "pi_") {
		return ProviderStripe
	}
	return ProviderRazorpay
}

// VerifyStripeWebhook checks the Stripe signature over the raw request body
// and returns the parsed event. Verification failure is an error, never a
// payment status: the caller must reject the message outright.
func (g *PaymentGateway) VerifyStripeWebhook(payload []byte, signature string) (stripesdk.Event, error) {
	a, err := g.dispatch(ProviderStripe)
	if err != nil {
		return stripesdk.Event{}, err
	}
	event, err := a.(*stripeAdapter).VerifyWebhook(payload, signature)
	if err != nil {
		return stripesdk.Event{}, apperrors.WebhookVerificationFailed(string(ProviderStripe))
	}
	return event, nil
}

// VerifyRazorpayWebhook computes an HMAC-SHA256 over the JSON serialization
// of payload and compares it to the supplied hex signature. Returns false,
// never an error, when Razorpay is uninitialized or the digest mismatches.
//
// Serializing the payload object is not guaranteed to reproduce the exact
// byte sequence the sender signed (key order, whitespace). Prefer
// VerifyRazorpayWebhookRaw with the raw received body wherever it is
// available; this variant exists for callers that only hold the decoded
// payload and accept that risk.
func (g *PaymentGateway) VerifyRazorpayWebhook(payload any, signature string) bool {
	body, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	return g.VerifyRazorpayWebhookRaw(body, signature)
}

// VerifyRazorpayWebhookRaw verifies the signature over the raw received body
// bytes. Returns false when Razorpay is uninitialized or on mismatch.
func (g *PaymentGateway) VerifyRazorpayWebhookRaw(body []byte, signature string) bool {
	if !g.RazorpayEnabled() {
		return false
	}

	mac := hmac.New(sha256.New, []byte(g.razorpayWebhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// SupportedPaymentMethods returns the method types offered in a country.
func (g *PaymentGateway) SupportedPaymentMethods(country string) []string {
	if strings.EqualFold(country, "IN") {
		return []string{"card", "upi", "netbanking", "wallet"}
	}
	return []string{"card", "bank_transfer"}
}

func (g *PaymentGateway) observe(provider Provider, operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	gatewayOperations.WithLabelValues(string(provider), operation, outcome).Inc()
}

// toMinorUnits converts a major-unit amount to the integer minor units the
// provider APIs transact in, rounding to the nearest unit. Amounts with more
// than two decimal places lose sub-cent precision here.
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// toMajorUnits converts provider minor units back to major units. Results
// are computed from the provider's response, not the caller's input, so any
// provider-side rounding surfaces to the caller.
func toMajorUnits(minor int64) float64 {
	return float64(minor) / 100
}
