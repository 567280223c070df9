package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Well-known topic names.
const (
	TopicTripAdded     = "journal.trip.added"
	TopicTripsImported = "journal.trips.imported"
)

// Client wraps Kafka operations.
type Client struct {
	brokers []string
	writer  *kafkago.Writer
	log     *zap.Logger
}

// NewClient returns a Client that writes to the given brokers.
func NewClient(brokers []string, log *zap.Logger) *Client {
	return &Client{
		brokers: brokers,
		writer: &kafkago.Writer{
			Addr:                   kafkago.TCP(brokers...),
			Balancer:               &kafkago.LeastBytes{},
			RequiredAcks:           kafkago.RequireOne,
			AllowAutoTopicCreation: true,
		},
		log: log,
	}
}

// EnsureTopics creates topics if they don't already exist (with retry).
func (c *Client) EnsureTopics(ctx context.Context, attempts int, topics ...string) error {
	for attempt := 1; attempt <= attempts; attempt++ {
		conn, err := kafkago.DialContext(ctx, "tcp", c.brokers[0])
		if err != nil {
			c.log.Warn("kafka not ready", zap.Int("attempt", attempt), zap.Int("of", attempts), zap.Error(err))
			if attempt == attempts {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(3 * time.Second):
			}
			continue
		}

		configs := make([]kafkago.TopicConfig, len(topics))
		for i, t := range topics {
			configs[i] = kafkago.TopicConfig{
				Topic:             t,
				NumPartitions:     3,
				ReplicationFactor: 1,
			}
		}

		err = conn.CreateTopics(configs...)
		conn.Close()
		if err != nil {
			c.log.Info("topic creation returned (may already exist)", zap.Error(err))
		}
		c.log.Info("kafka topics ensured", zap.Strings("topics", topics))
		return nil
	}
	return fmt.Errorf("kafka: could not connect after %d attempts", attempts)
}

// Publish sends a JSON-serialised message to a topic.
func (c *Client) Publish(ctx context.Context, topic, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.writer.WriteMessages(ctx, kafkago.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
	})
}

// Close flushes pending writes and releases the writer.
func (c *Client) Close() error { return c.writer.Close() }
