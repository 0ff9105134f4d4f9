package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	stripesdk "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"
)

// stripeAdapter wraps the Stripe SDK client. Stripe transacts in lower-case
// currency codes and integer minor units; both conventions are confined here.
type stripeAdapter struct {
	client        *client.API
	webhookSecret string
}

func newStripeAdapter(secretKey, webhookSecret, apiBaseURL string, timeout time.Duration) *stripeAdapter {
	backendCfg := &stripesdk.BackendConfig{
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if apiBaseURL != "" {
		backendCfg.URL = stripesdk.String(apiBaseURL)
	}
	backend := stripesdk.GetBackendWithConfig(stripesdk.APIBackend, backendCfg)

	sc := &client.API{}
	sc.Init(secretKey, &stripesdk.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	})

	return &stripeAdapter{client: sc, webhookSecret: webhookSecret}
}

func (a *stripeAdapter) CreateIntent(ctx context.Context, p CreatePaymentIntentParams) (*PaymentIntent, error) {
	params := &stripesdk.PaymentIntentParams{
		Amount:   stripesdk.Int64(toMinorUnits(p.Amount)),
		Currency: stripesdk.String(strings.ToLower(p.Currency)),
		AutomaticPaymentMethods: &stripesdk.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripesdk.Bool(true),
		},
	}
	params.Context = ctx

	if p.Description != "" {
		params.Description = stripesdk.String(p.Description)
	}
	if p.Customer != "" {
		params.Customer = stripesdk.String(p.Customer)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := a.client.PaymentIntents.New(params)
	if err != nil {
		return nil, err
	}

	return a.toIntent(pi), nil
}

func (a *stripeAdapter) RetrieveIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	params := &stripesdk.PaymentIntentParams{}
	params.Context = ctx

	pi, err := a.client.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, err
	}

	return a.toIntent(pi), nil
}

func (a *stripeAdapter) ConfirmIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	params := &stripesdk.PaymentIntentConfirmParams{}
	params.Context = ctx

	pi, err := a.client.PaymentIntents.Confirm(id, params)
	if err != nil {
		return nil, err
	}

	return a.toIntent(pi), nil
}

func (a *stripeAdapter) CaptureIntent(ctx context.Context, id string, amount *float64) (*PaymentIntent, error) {
	params := &stripesdk.PaymentIntentCaptureParams{}
	params.Context = ctx

	// Nil amount captures the full authorized amount (provider default).
	if amount != nil {
		params.AmountToCapture = stripesdk.Int64(toMinorUnits(*amount))
	}

	pi, err := a.client.PaymentIntents.Capture(id, params)
	if err != nil {
		return nil, err
	}

	return a.toIntent(pi), nil
}

func (a *stripeAdapter) Refund(ctx context.Context, rp RefundParams) (*Refund, error) {
	params := &stripesdk.RefundParams{
		PaymentIntent: stripesdk.String(rp.PaymentIntentID),
	}
	params.Context = ctx

	if rp.Amount != nil {
		params.Amount = stripesdk.Int64(toMinorUnits(*rp.Amount))
	}
	if rp.Reason != "" {
		params.Reason = stripesdk.String(rp.Reason)
	}

	ref, err := a.client.Refunds.New(params)
	if err != nil {
		return nil, err
	}

	return &Refund{
		ID:              ref.ID,
		PaymentIntentID: rp.PaymentIntentID,
		Amount:          toMajorUnits(ref.Amount),
		Currency:        strings.ToUpper(string(ref.Currency)),
		Status:          string(ref.Status),
		Reason:          rp.Reason,
		Provider:        ProviderStripe,
	}, nil
}

// VerifyWebhook checks the Stripe-Signature header against the raw payload.
func (a *stripeAdapter) VerifyWebhook(payload []byte, signature string) (stripesdk.Event, error) {
	return webhook.ConstructEvent(payload, signature, a.webhookSecret)
}

// toIntent normalizes a Stripe payment intent: minor units back to major,
// currency upper-cased on the way out (Stripe's own convention is lower).
func (a *stripeAdapter) toIntent(pi *stripesdk.PaymentIntent) *PaymentIntent {
	intent := &PaymentIntent{
		ID:       pi.ID,
		Amount:   toMajorUnits(pi.Amount),
		Currency: strings.ToUpper(string(pi.Currency)),
		Status:   string(pi.Status),
		Provider: ProviderStripe,
		Metadata: pi.Metadata,
	}
	if pi.ClientSecret != "" {
		intent.ClientSecret = pi.ClientSecret
	}
	return intent
}
