package events

import (
	"context"

	"go.uber.org/zap"
)

// TripAddedEvent is published to journal.trip.added.
type TripAddedEvent struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	AddedAt string `json:"added_at"`
}

// TripsImportedEvent is published to journal.trips.imported.
type TripsImportedEvent struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	Source     string `json:"source"` // json_body | csv_file | json_file
	Count      int    `json:"count"`
	ImportedAt string `json:"imported_at"`
}

// Publisher delivers journal events to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

// Nop discards every event. It is used when no brokers are configured.
type Nop struct{ Log *zap.Logger }

// Publish implements Publisher.
func (n Nop) Publish(_ context.Context, topic, key string, _ any) error {
	if n.Log != nil {
		n.Log.Debug("event dropped, no brokers configured", zap.String("topic", topic), zap.String("key", key))
	}
	return nil
}
