// Package events publishes fetch notifications to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/bobmcallan/econdata/internal/models"
)

// FetchEvent announces that a series is about to be fetched from an
// external provider.
type FetchEvent struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	Ticker   string    `json:"ticker"`
	Provider string    `json:"provider"`
	Name     string    `json:"name,omitempty"`
	At       time.Time `json:"at"`
}

// EventTypeExternalFetch is the Type of every FetchEvent.
const EventTypeExternalFetch = "EXTERNAL_FETCH"

// messageWriter is the part of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles publishing events to Kafka
type Producer struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return newProducer(writer, topic)
}

func newProducer(w messageWriter, topic string) *Producer {
	return &Producer{writer: w, topic: topic, now: time.Now}
}

// PublishFetch publishes an external-fetch event keyed by full ticker.
func (p *Producer) PublishFetch(ctx context.Context, rec *models.SeriesRecord) error {
	event := FetchEvent{
		ID:       uuid.NewString(),
		Type:     EventTypeExternalFetch,
		Ticker:   rec.FullTicker.String(),
		Provider: rec.ProviderCode.String(),
		Name:     rec.Name,
		At:       p.now().UTC(),
	}
	return p.publish(ctx, event.Ticker, event)
}

func (p *Producer) publish(ctx context.Context, key string, event FetchEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka topic %s: %w", p.topic, err)
	}
	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
