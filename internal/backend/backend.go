// Package backend opens the item store selected by configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"github.com/jacentio/lakitu/internal/config"
	"github.com/jacentio/lakitu/store"
)

// Backend is an opened item store.
type Backend struct {
	Store store.Store
	Name  string

	close func() error
}

// Close releases the store's resources.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// StoreConfig derives the store configuration from cfg.
func StoreConfig(cfg *config.Config) store.Config {
	sc := store.DefaultConfig()
	sc.TableName = cfg.TableName
	sc.Timeout = cfg.StoreTimeout
	sc.ConsistentReads = cfg.ConsistentReads
	return sc
}

// Open opens the backend named by cfg.StoreBackend.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sc := StoreConfig(cfg)

	switch cfg.StoreBackend {
	case config.BackendDynamoDB:
		client, err := NewDynamoClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("using dynamodb item store",
			zap.String("table", sc.TableName),
			zap.String("endpoint", cfg.DynamoDBEndpoint),
		)
		return &Backend{Store: store.NewDynamoStore(client, sc), Name: cfg.StoreBackend}, nil

	case config.BackendBadger:
		bs, err := store.NewBadgerStore(store.BadgerOptions{
			Path:   cfg.BadgerPath,
			Logger: badgerLogger{logger.Named("badger").Sugar()},
		}, sc)
		if err != nil {
			return nil, err
		}
		logger.Info("using badger item store", zap.String("path", cfg.BadgerPath))
		return &Backend{Store: bs, Name: cfg.StoreBackend, close: bs.Close}, nil

	case config.BackendMemory:
		logger.Info("using in-memory item store")
		return &Backend{Store: store.NewMemoryStore(sc), Name: cfg.StoreBackend}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// NewDynamoClient builds a DynamoDB client from the default AWS
// configuration chain.
func NewDynamoClient(ctx context.Context, cfg *config.Config) (*dynamodb.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRetryMaxAttempts(cfg.StoreMaxAttempts),
	}
	if cfg.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	}), nil
}

// badgerLogger routes badger's logging through zap.
type badgerLogger struct {
	*zap.SugaredLogger
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.Warnf(format, args...)
}
