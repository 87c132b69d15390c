package backend

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jacentio/lakitu/internal/config"
	"github.com/jacentio/lakitu/store"
)

func testConfig(backend string) *config.Config {
	return &config.Config{
		TableName:        "items",
		StoreBackend:     backend,
		StoreTimeout:     time.Second,
		StoreMaxAttempts: 2,
		ConsistentReads:  true,
		AWSRegion:        "eu-west-1",
	}
}

func TestStoreConfig(t *testing.T) {
	cfg := testConfig(config.BackendMemory)
	cfg.ConsistentReads = false

	sc := StoreConfig(cfg)
	assert.Equal(t, "items", sc.TableName)
	assert.Equal(t, time.Second, sc.Timeout)
	assert.False(t, sc.ConsistentReads)
	assert.NotNil(t, sc.Now)
}

func TestOpen_Memory(t *testing.T) {
	b, err := Open(context.Background(), testConfig(config.BackendMemory), zap.NewNop())
	require.NoError(t, err)
	defer b.Close()

	assert.IsType(t, &store.MemoryStore{}, b.Store)
	_, err = b.Store.Create(context.Background(), "u1", "v")
	assert.NoError(t, err)
}

func TestOpen_Badger(t *testing.T) {
	cfg := testConfig(config.BackendBadger)
	cfg.BadgerPath = t.TempDir()

	b, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	assert.IsType(t, &store.BadgerStore{}, b.Store)
	_, err = b.Store.Create(context.Background(), "u1", "v")
	assert.NoError(t, err)
	assert.NoError(t, b.Close())
}

func TestOpen_DynamoDB(t *testing.T) {
	cfg := testConfig(config.BackendDynamoDB)
	cfg.DynamoDBEndpoint = "http://localhost:8000"

	b, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &store.DynamoStore{}, b.Store)
	assert.NoError(t, b.Close())
}

func TestNewDynamoClient_Options(t *testing.T) {
	cfg := testConfig(config.BackendDynamoDB)
	cfg.DynamoDBEndpoint = "http://localhost:8000"

	client, err := NewDynamoClient(context.Background(), cfg)
	require.NoError(t, err)

	opts := client.Options()
	assert.Equal(t, "eu-west-1", opts.Region)
	assert.Equal(t, "http://localhost:8000", aws.ToString(opts.BaseEndpoint))
	assert.Equal(t, 2, opts.RetryMaxAttempts)
}

func TestOpen_Unknown(t *testing.T) {
	_, err := Open(context.Background(), testConfig("postgres"), nil)
	assert.Error(t, err)
}
