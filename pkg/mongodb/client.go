package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Client wraps a connected MongoDB client and its database handle.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials uri and pings the primary, retrying like the other infra
// clients.
func Connect(ctx context.Context, uri, database string, attempts int, log *zap.Logger) (*Client, error) {
	if attempts < 1 {
		attempts = 1
	}
	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("mongodb: connect: %w", err)
	}

	for i := 0; i < attempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = mc.Ping(pingCtx, readpref.Primary())
		cancel()
		if err == nil {
			log.Info("connected to mongodb", zap.String("database", database))
			return &Client{client: mc, db: mc.Database(database)}, nil
		}
		log.Warn("waiting for mongodb", zap.Int("attempt", i+1), zap.Int("of", attempts), zap.Error(err))
		if i+1 < attempts {
			select {
			case <-ctx.Done():
				_ = mc.Disconnect(context.Background())
				return nil, ctx.Err()
			case <-time.After(2 * time.Second):
			}
		}
	}
	_ = mc.Disconnect(context.Background())
	return nil, fmt.Errorf("mongodb: failed after %d attempts: %w", attempts, err)
}

// Database returns the configured database.
func (c *Client) Database() *mongo.Database { return c.db }

// Close disconnects from the server.
func (c *Client) Close(ctx context.Context) error { return c.client.Disconnect(ctx) }
