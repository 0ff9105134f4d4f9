package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent_Fields(t *testing.T) {
	type PaymentData struct {
		PaymentIntentID string  `json:"payment_intent_id"`
		Amount          float64 `json:"amount"`
	}

	data := PaymentData{PaymentIntentID: "pi_123", Amount: 49.99}
	event, err := NewEvent("payment.succeeded", "pi_123", "payment", "payment-gateway", data)
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID, "EventID should be a non-empty UUID")
	assert.Equal(t, "payment.succeeded", event.EventType)
	assert.Equal(t, "pi_123", event.AggregateID)
	assert.Equal(t, "payment", event.AggregateType)
	assert.Equal(t, "payment-gateway", event.Source)
	assert.Equal(t, 1, event.Version)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, 2*time.Second)
	assert.NotNil(t, event.Metadata)
	assert.NotNil(t, event.Data)

	var roundTripped PaymentData
	require.NoError(t, json.Unmarshal(event.Data, &roundTripped))
	assert.Equal(t, data, roundTripped)
}

func TestNewEvent_InvalidData(t *testing.T) {
	// Channels are not serializable to JSON.
	_, err := NewEvent("test.event", "agg-1", "test", "test-service", make(chan int))
	require.Error(t, err)
}

func TestEvent_Marshal_Unmarshal(t *testing.T) {
	original, err := NewEvent("payment.refunded", "order_456", "payment", "payment-gateway", map[string]string{"refund_id": "rf_1"})
	require.NoError(t, err)
	original.CorrelationID = "corr-abc"
	original.Metadata["provider"] = "razorpay"

	bytes, err := original.Marshal()
	require.NoError(t, err)
	assert.NotEmpty(t, bytes)

	restored, err := UnmarshalEvent(bytes)
	require.NoError(t, err)

	assert.Equal(t, original.EventID, restored.EventID)
	assert.Equal(t, original.EventType, restored.EventType)
	assert.Equal(t, original.AggregateID, restored.AggregateID)
	assert.Equal(t, original.AggregateType, restored.AggregateType)
	assert.Equal(t, original.Version, restored.Version)
	assert.Equal(t, original.Source, restored.Source)
	assert.Equal(t, original.CorrelationID, restored.CorrelationID)
	assert.Equal(t, original.Metadata, restored.Metadata)
	assert.JSONEq(t, string(original.Data), string(restored.Data))
	assert.WithinDuration(t, original.Timestamp, restored.Timestamp, time.Millisecond)
}

func TestEvent_WithCorrelationID(t *testing.T) {
	event, err := NewEvent("test.event", "agg-1", "test", "svc", nil)
	require.NoError(t, err)

	result := event.WithCorrelationID("corr-xyz")
	assert.Same(t, event, result, "WithCorrelationID should return the same event for chaining")
	assert.Equal(t, "corr-xyz", event.CorrelationID)
}

func TestUnmarshalEvent_Invalid(t *testing.T) {
	_, err := UnmarshalEvent([]byte("not json"))
	require.Error(t, err)
}

func TestEvent_UnmarshalData(t *testing.T) {
	event, err := NewEvent("payment.failed", "pi_9", "payment", "payment-gateway", map[string]string{"reason": "card_declined"})
	require.NoError(t, err)

	var payload map[string]string
	require.NoError(t, event.UnmarshalData(&payload))
	assert.Equal(t, "card_declined", payload["reason"])
}
