package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRazorpayTestGateway(t *testing.T, handler http.HandlerFunc) *PaymentGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return New(Config{
		StripeSecretKey:       "sk_test_123",
		RazorpayKeyID:         "rzp_test_abc",
		RazorpayKeySecret:     "rzp_secret",
		RazorpayWebhookSecret: "rzp_webhook_secret",
		RazorpayBaseURL:       srv.URL,
	}, testLogger())
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func TestRazorpayCreateIntent(t *testing.T) {
	g := newRazorpayTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/orders", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "rzp_test_abc", user)
		assert.Equal(t, "rzp_secret", pass)

		body := decodeBody(t, r)
		assert.Equal(t, float64(150000), body["amount"])
		assert.Equal(t, "INR", body["currency"])
		assert.True(t, strings.HasPrefix(body["receipt"].(string), "rcpt_"))
		notes := body["notes"].(map[string]any)
		assert.Equal(t, "1042", notes["order_id"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "order_NXhT4gvKkYpQ8m",
			"amount": 150000,
			"currency": "INR",
			"status": "created",
			"notes": {"order_id": "1042"}
		}`)
	})

	intent, err := g.CreatePaymentIntent(context.Background(), CreatePaymentIntentParams{
		Amount:   1500,
		Currency: "INR",
		Metadata: map[string]string{"order_id": "1042"},
	}, "IN")

	require.NoError(t, err)
	assert.Equal(t, "order_NXhT4gvKkYpQ8m", intent.ID)
	assert.Equal(t, 1500.0, intent.Amount)
	assert.Equal(t, "INR", intent.Currency)
	// Native "created" normalizes to the canonical pre-payment status.
	assert.Equal(t, StatusRequiresPaymentMethod, intent.Status)
	assert.Equal(t, ProviderRazorpay, intent.Provider)
	assert.Equal(t, "1042", intent.Metadata["order_id"])
}

func TestRazorpayCreateIntent_LowercaseCurrencyUppercased(t *testing.T) {
	g := newRazorpayTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, "INR", body["currency"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "order_x", "amount": 150000, "currency": "INR", "status": "created"}`)
	})

	_, err := g.CreatePaymentIntent(context.Background(), CreatePaymentIntentParams{
		Amount:   1500,
		Currency: "inr",
	}, "")

	require.NoError(t, err)
}

func TestRazorpayRetrieveIntent_StatusPassthrough(t *testing.T) {
	g := newRazorpayTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/v1/orders/order_NXhT4gvKkYpQ8m", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "order_NXhT4gvKkYpQ8m", "amount": 150000, "currency": "INR", "status": "paid"}`)
	})

	intent, err := g.RetrievePaymentIntent(context.Background(), "order_NXhT4gvKkYpQ8m", ProviderRazorpay)

	require.NoError(t, err)
	// Only "created" is normalized; everything else passes through.
	assert.Equal(t, "paid", intent.Status)
}

func TestRazorpayConfirmIsRetrieve(t *testing.T) {
	var gets atomic.Int32
	g := newRazorpayTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		gets.Add(1)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "order_x", "amount": 150000, "currency": "INR", "status": "attempted"}`)
	})

	intent, err := g.ConfirmPayment(context.Background(), "order_x", ProviderRazorpay)

	require.NoError(t, err)
	assert.Equal(t, "attempted", intent.Status)
	assert.Equal(t, int32(1), gets.Load())
}

func TestRazorpayCapture_NilAmountPostsZero(t *testing.T) {
	g := newRazorpayTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payments/pay_NXhT5gvKkYpQ8n/capture", r.URL.Path)

		body := decodeBody(t, r)
		// Nil amount degenerates to a zero-amount capture request.
		assert.Equal(t, float64(0), body["amount"])
		assert.Equal(t, "INR", body["currency"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": {"code": "BAD_REQUEST_ERROR", "description": "capture amount must equal the amount authorized"}}`)
	})

	_, err := g.CapturePayment(context.Background(), "pay_NXhT5gvKkYpQ8n", ProviderRazorpay, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "capture amount must equal the amount authorized")
}

func TestRazorpayCapture_WithAmount(t *testing.T) {
	g := newRazorpayTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, float64(150000), body["amount"])
		// Capture currency is hard-wired to INR regardless of the payment.
		assert.Equal(t, "INR", body["currency"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "pay_NXhT5gvKkYpQ8n", "amount": 150000, "currency": "INR", "status": "captured", "order_id": "order_NXhT4gvKkYpQ8m"}`)
	})

	amount := 1500.0
	intent, err := g.CapturePayment(context.Background(), "pay_NXhT5gvKkYpQ8n", ProviderRazorpay, &amount)

	require.NoError(t, err)
	assert.Equal(t, "captured", intent.Status)
	assert.Equal(t, 1500.0, intent.Amount)
}

func TestRazorpayRefund_Partial(t *testing.T) {
	g := newRazorpayTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payments/pay_NXhT5gvKkYpQ8n/refund", r.URL.Path)

		body := decodeBody(t, r)
		assert.Equal(t, float64(50000), body["amount"])
		notes := body["notes"].(map[string]any)
		assert.Equal(t, "damaged item", notes["reason"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "rfnd_Qx7PmE2vTgS1fw", "amount": 50000, "currency": "INR", "status": "processed"}`)
	})

	amount := 500.0
	refund, err := g.RefundPayment(context.Background(), RefundParams{
		PaymentIntentID: "pay_NXhT5gvKkYpQ8n",
		Amount:          &amount,
		Reason:          "damaged item",
	})

	require.NoError(t, err)
	assert.Equal(t, "rfnd_Qx7PmE2vTgS1fw", refund.ID)
	assert.Equal(t, 500.0, refund.Amount)
	assert.Equal(t, "INR", refund.Currency)
	assert.Equal(t, "processed", refund.Status)
	assert.Equal(t, ProviderRazorpay, refund.Provider)
}

func TestRazorpayRefund_FullOmitsAmount(t *testing.T) {
	g := newRazorpayTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		_, hasAmount := body["amount"]
		assert.False(t, hasAmount)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "rfnd_Qx7PmE2vTgS1fw", "amount": 150000, "currency": "INR", "status": "processed"}`)
	})

	refund, err := g.RefundPayment(context.Background(), RefundParams{
		PaymentIntentID: "pay_NXhT5gvKkYpQ8n",
	})

	require.NoError(t, err)
	assert.Equal(t, 1500.0, refund.Amount)
}

func TestRazorpayUpstreamErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	g := newRazorpayTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `{"error": {"code": "SERVER_ERROR", "description": "upstream unavailable"}}`)
	})

	_, err := g.CreatePaymentIntent(context.Background(), CreatePaymentIntentParams{
		Amount:   1500,
		Currency: "INR",
	}, "IN")

	require.Error(t, err)
	// Order creation is not idempotent; a failed POST must not be replayed.
	assert.Equal(t, int32(1), calls.Load())
}
