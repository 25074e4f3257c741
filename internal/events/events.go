// Package events publishes forecast results to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// TypePredictionCreated marks a finished forecast.
const TypePredictionCreated = "prediction.created"

// PredictionEvent is the payload of TypePredictionCreated.
type PredictionEvent struct {
	Type           string    `json:"type"`
	Code           string    `json:"code"`
	Name           string    `json:"name"`
	Method         string    `json:"method"`
	PredictedPrice float64   `json:"predicted_price"`
	LastClose      float64   `json:"last_close"`
	TargetDate     string    `json:"target_date"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
}

// Publisher delivers prediction events.
type Publisher interface {
	PublishPrediction(ctx context.Context, ev PredictionEvent) error
	Close() error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (NoopPublisher) PublishPrediction(context.Context, PredictionEvent) error { return nil }
func (NoopPublisher) Close() error                                           { return nil }

// KafkaPublisher writes events to one topic, keyed by stock code so one
// stock's events stay ordered within a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a synchronous writer.
func NewKafkaPublisher(brokers []string, topic string, writeTimeout time.Duration) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: writeTimeout,
		BatchTimeout: 10 * time.Millisecond,
	}}, nil
}

func (p *KafkaPublisher) PublishPrediction(ctx context.Context, ev PredictionEvent) error {
	msg, err := newMessage(ev)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func newMessage(ev PredictionEvent) (kafka.Message, error) {
	if ev.Type == "" {
		ev.Type = TypePredictionCreated
	}
	v, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal value: %w", err)
	}
	return kafka.Message{
		Key:   []byte(ev.Code),
		Value: v,
		Time:  ev.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(ev.Type)},
		},
	}, nil
}
