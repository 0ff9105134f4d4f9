package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/HarshMishra-Git/Only-Thing-sub001/pkg/httpclient"
)

const razorpayDefaultBaseURL = "https://api.razorpay.com"

// razorpayAdapter speaks the Razorpay order/capture REST API directly; no
// official Go SDK is used. Requests carry basic auth and go through a
// circuit-breaker client so a flapping upstream trips fast instead of
// stalling checkouts.
type razorpayAdapter struct {
	keyID     string
	keySecret string
	baseURL   string
	http      *httpclient.CircuitBreakerClient
}

func newRazorpayAdapter(keyID, keySecret, baseURL string, cb *httpclient.CircuitBreakerClient) *razorpayAdapter {
	if baseURL == "" {
		baseURL = razorpayDefaultBaseURL
	}
	return &razorpayAdapter{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      cb,
	}
}

// razorpayOrder is the order entity returned by POST/GET /v1/orders.
type razorpayOrder struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Status   string            `json:"status"`
	Receipt  string            `json:"receipt,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// razorpayPayment is the payment entity returned by capture and refund paths.
type razorpayPayment struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	OrderID  string `json:"order_id,omitempty"`
}

type razorpayRefund struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type razorpayErrorBody struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (a *razorpayAdapter) CreateIntent(ctx context.Context, p CreatePaymentIntentParams) (*PaymentIntent, error) {
	reqBody := map[string]any{
		"amount":   toMinorUnits(p.Amount),
		"currency": strings.ToUpper(p.Currency),
		// Razorpay requires a receipt; it is synthesized from the clock and
		// not persisted. Not unique across rapid retries.
		"receipt": fmt.Sprintf("rcpt_%d", time.Now().UnixMilli()),
	}
	if len(p.Metadata) > 0 {
		reqBody["notes"] = p.Metadata
	}

	var order razorpayOrder
	if err := a.do(ctx, http.MethodPost, "/v1/orders", reqBody, &order); err != nil {
		return nil, err
	}

	return a.orderToIntent(&order), nil
}

func (a *razorpayAdapter) RetrieveIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	var order razorpayOrder
	if err := a.do(ctx, http.MethodGet, "/v1/orders/"+id, nil, &order); err != nil {
		return nil, err
	}
	return a.orderToIntent(&order), nil
}

// ConfirmIntent is a no-op for the order model: there is no provider-side
// confirm step, so current state is simply re-fetched.
func (a *razorpayAdapter) ConfirmIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	return a.RetrieveIntent(ctx, id)
}

func (a *razorpayAdapter) CaptureIntent(ctx context.Context, id string, amount *float64) (*PaymentIntent, error) {
	// A nil amount posts a zero-amount capture. Callers must treat that as
	// an error on their side; the degenerate default is kept deliberately
	// rather than guessing a full-capture amount the order model does not
	// expose here.
	var minor int64
	if amount != nil {
		minor = toMinorUnits(*amount)
	}

	// Currency is fixed to INR. Known limitation: a non-INR Razorpay payment
	// cannot be captured correctly through this path until the payment's
	// actual currency is threaded through.
	reqBody := map[string]any{
		"amount":   minor,
		"currency": "INR",
	}

	var payment razorpayPayment
	if err := a.do(ctx, http.MethodPost, "/v1/payments/"+id+"/capture", reqBody, &payment); err != nil {
		return nil, err
	}

	return &PaymentIntent{
		ID:       payment.ID,
		Amount:   toMajorUnits(payment.Amount),
		Currency: strings.ToUpper(payment.Currency),
		Status:   payment.Status,
		Provider: ProviderRazorpay,
	}, nil
}

func (a *razorpayAdapter) Refund(ctx context.Context, rp RefundParams) (*Refund, error) {
	reqBody := map[string]any{}
	if rp.Amount != nil {
		reqBody["amount"] = toMinorUnits(*rp.Amount)
	}
	if rp.Reason != "" {
		// Razorpay has no structured refund reason; carried as free-form notes.
		reqBody["notes"] = map[string]string{"reason": rp.Reason}
	}

	var refund razorpayRefund
	if err := a.do(ctx, http.MethodPost, "/v1/payments/"+rp.PaymentIntentID+"/refund", reqBody, &refund); err != nil {
		return nil, err
	}

	return &Refund{
		ID:              refund.ID,
		PaymentIntentID: rp.PaymentIntentID,
		Amount:          toMajorUnits(refund.Amount),
		Currency:        strings.ToUpper(refund.Currency),
		Status:          refund.Status,
		Reason:          rp.Reason,
		Provider:        ProviderRazorpay,
	}, nil
}

// orderToIntent normalizes a Razorpay order. The native "created" status maps
// to the canonical requires_payment_method; every other status passes through.
// Amount comes from the provider's response so provider-side rounding is
// visible to the caller.
func (a *razorpayAdapter) orderToIntent(order *razorpayOrder) *PaymentIntent {
	status := order.Status
	if status == "created" {
		status = StatusRequiresPaymentMethod
	}

	return &PaymentIntent{
		ID:       order.ID,
		Amount:   toMajorUnits(order.Amount),
		Currency: strings.ToUpper(order.Currency),
		Status:   status,
		Provider: ProviderRazorpay,
		Metadata: order.Notes,
	}
}

// do executes one Razorpay API call. Upstream errors are propagated to the
// caller with the provider's code and description; nothing is retried here.
func (a *razorpayAdapter) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode razorpay request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create razorpay request: %w", err)
	}
	req.SetBasicAuth(a.keyID, a.keySecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("razorpay %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if readErr != nil {
			return fmt.Errorf("razorpay %s %s: status %d", method, path, resp.StatusCode)
		}
		var errBody razorpayErrorBody
		if json.Unmarshal(raw, &errBody) == nil && errBody.Error.Description != "" {
			return fmt.Errorf("razorpay %s %s: status %d: %s: %s",
				method, path, resp.StatusCode, errBody.Error.Code, errBody.Error.Description)
		}
		return fmt.Errorf("razorpay %s %s: status %d: %s", method, path, resp.StatusCode, string(raw))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode razorpay response: %w", err)
		}
	}

	return nil
}
