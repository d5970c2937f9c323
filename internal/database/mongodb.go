package database

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ConnectMongo opens a connection and returns the client. Caller should call client.Disconnect(ctx).
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	clientOpts := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// ConnectMongoWithRetry retries ConnectMongo with exponential backoff until
// maxElapsed has passed or ctx is done.
func ConnectMongoWithRetry(ctx context.Context, uri string, timeout, maxElapsed time.Duration, log *zap.Logger) (*mongo.Client, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxElapsedTime = maxElapsed

	attempt := 0
	return backoff.RetryNotifyWithData(func() (*mongo.Client, error) {
		attempt++
		return ConnectMongo(ctx, uri, timeout)
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		log.Warn("mongo connect failed", zap.Int("attempt", attempt), zap.Duration("retry_in", next), zap.Error(err))
	})
}
