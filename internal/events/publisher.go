// Package events publishes feed load outcomes to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/news-reader/internal/logger"
	"github.com/DeafMist/news-reader/internal/models"
)

const defaultAttempts = 5

// Publisher delivers feed events.
type Publisher interface {
	Publish(ctx context.Context, event models.FeedEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes JSON encoded events, retrying failed writes with
// exponential backoff.
type KafkaPublisher struct {
	writer   messageWriter
	topic    string
	attempts int
	backoff  time.Duration
	log      *slog.Logger
}

// NewKafkaPublisher writes to topic, keying messages by search term.
func NewKafkaPublisher(brokers []string, topic string, log *slog.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		MaxAttempts:            3,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(writer, topic, time.Second, log)
}

func newKafkaPublisher(w messageWriter, topic string, backoff time.Duration, log *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer:   w,
		topic:    topic,
		attempts: defaultAttempts,
		backoff:  backoff,
		log:      logger.OrDiscard(log),
	}
}

// Publish keys the message by search term so one term stays on one partition.
func (p *KafkaPublisher) Publish(ctx context.Context, event models.FeedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode feed event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.SearchTerm),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.ID)},
			{Key: "outcome", Value: []byte(event.Outcome)},
			{Key: "timestamp", Value: []byte(event.At.UTC().Format(time.RFC3339))},
		},
	}

	var lastErr error
	for attempt := 0; attempt < p.attempts; attempt++ {
		lastErr = p.writer.WriteMessages(ctx, msg)
		if lastErr == nil {
			p.log.Debug("feed event published",
				slog.String("id", event.ID),
				slog.String("topic", p.topic),
				slog.Int("attempt", attempt+1),
			)
			return nil
		}

		backoff := time.Duration(1<<uint(attempt)) * p.backoff
		p.log.Warn("event write failed, retrying",
			slog.Any("err", lastErr),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return fmt.Errorf("publish feed event: %w", ctx.Err())
		}
	}

	return fmt.Errorf("publish feed event after %d attempts: %w", p.attempts, lastErr)
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Noop discards events. It is used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, models.FeedEvent) error { return nil }

func (Noop) Close() error { return nil }

// New returns a Kafka publisher when brokers are set, Noop otherwise.
func New(brokers []string, topic string, log *slog.Logger) Publisher {
	if len(brokers) == 0 {
		return Noop{}
	}
	return NewKafkaPublisher(brokers, topic, log)
}
