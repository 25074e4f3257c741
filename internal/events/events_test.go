package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	created := time.Date(2024, 6, 14, 16, 10, 0, 0, time.UTC)
	msg, err := newMessage(PredictionEvent{Code: "005930", Method: "ensemble", PredictedPrice: 75200, CreatedAt: created})
	require.NoError(t, err)

	assert.Equal(t, "005930", string(msg.Key))
	assert.Equal(t, created, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, TypePredictionCreated, string(msg.Headers[0].Value))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, TypePredictionCreated, body["type"])
	assert.Equal(t, 75200.0, body["predicted_price"])
}

func TestNewKafkaPublisher_Validation(t *testing.T) {
	_, err := NewKafkaPublisher(nil, "topic", time.Second)
	require.Error(t, err)
	_, err = NewKafkaPublisher([]string{"localhost:9092"}, "", time.Second)
	require.Error(t, err)

	p, err := NewKafkaPublisher([]string{"localhost:9092"}, "predictions", time.Second)
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NewNoopPublisher()
	require.NoError(t, p.PublishPrediction(context.Background(), PredictionEvent{}))
	require.NoError(t, p.Close())
}
