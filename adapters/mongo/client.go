package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	defaultURI      = "mongodb://localhost:27017"
	defaultDatabase = "learnvoice"
)

// ClientConfig holds connection settings for MongoDB
// Optional fields with defaults:
// - URI: connection string (default: "mongodb://localhost:27017")
// - Database: database name (default: "learnvoice")
type ClientConfig struct {
	URI      string
	Database string
}

// Client wraps the MongoDB client and database
type Client struct {
	*mongo.Client
	Database *mongo.Database
	logger   *zap.Logger
}

// NewClient creates a new MongoDB client connection
func NewClient(ctx context.Context, config ClientConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if config.URI == "" {
		config.URI = defaultURI
	}
	if config.Database == "" {
		config.Database = defaultDatabase
	}

	clientOptions := options.Client().
		ApplyURI(config.URI).
		SetMaxPoolSize(10).
		SetMinPoolSize(1).
		SetMaxConnIdleTime(30 * time.Minute).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("Successfully connected to MongoDB",
		zap.String("database", config.Database))

	return &Client{
		Client:   client,
		Database: client.Database(config.Database),
		logger:   logger,
	}, nil
}

// Close closes the MongoDB connection
func (c *Client) Close(ctx context.Context) error {
	if err := c.Client.Disconnect(ctx); err != nil {
		c.logger.Error("Failed to disconnect from MongoDB", zap.Error(err))
		return err
	}
	c.logger.Info("Disconnected from MongoDB")
	return nil
}
