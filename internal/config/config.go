// Package config loads lakitu configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Prefix is the environment variable prefix of all lakitu settings.
const Prefix = "LAKITU_"

// Store backends.
const (
	BackendDynamoDB = "dynamodb"
	BackendBadger   = "badger"
	BackendMemory   = "memory"
)

// legacyNames maps deployment variable names that predate the LAKITU_
// prefix. They are read first so prefixed variables win.
var legacyNames = map[string]string{
	"USER_ITEMS_TABLE_NAME": "table_name",
	"FRONTEND_ORIGIN":       "allowed_origins",
	"AWS_REGION":            "aws_region",
}

// Config is the full runtime configuration.
type Config struct {
	// TableName is the DynamoDB items table.
	TableName string `koanf:"table_name" validate:"required_if=StoreBackend dynamodb"`

	// AllowedOrigins are the CORS origins. "*" allows any origin.
	AllowedOrigins []string `koanf:"allowed_origins" validate:"required,min=1,dive,required"`

	// BasePath prefixes every API route.
	BasePath string `koanf:"base_path" validate:"required,startswith=/"`

	// StoreBackend selects the item store implementation.
	StoreBackend string `koanf:"store_backend" validate:"required,oneof=dynamodb badger memory"`

	// StoreTimeout bounds each store call.
	StoreTimeout time.Duration `koanf:"store_timeout" validate:"min=1ms,max=30s"`

	// StoreMaxAttempts is the SDK retry budget per DynamoDB call.
	StoreMaxAttempts int `koanf:"store_max_attempts" validate:"min=1,max=10"`

	// ConsistentReads makes DynamoDB reads strongly consistent.
	ConsistentReads bool `koanf:"consistent_reads"`

	// DynamoDBEndpoint overrides the DynamoDB endpoint (e.g. DynamoDB Local).
	DynamoDBEndpoint string `koanf:"dynamodb_endpoint" validate:"omitempty,url"`

	// AWSRegion overrides the SDK region resolution.
	AWSRegion string `koanf:"aws_region"`

	// BadgerPath is the badger data directory. Empty means in-memory.
	BadgerPath string `koanf:"badger_path"`

	// LogLevel is the zap level.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`

	// DevAddr is the listen address of the development server.
	DevAddr string `koanf:"dev_addr" validate:"required"`

	// DevSubjectHeader carries the caller subject on the development server.
	DevSubjectHeader string `koanf:"dev_subject_header" validate:"required"`
}

// defaults are applied before any environment variable.
var defaults = map[string]any{
	"table_name":         "",
	"allowed_origins":    "http://localhost:5173",
	"base_path":          "/v1",
	"store_backend":      BackendDynamoDB,
	"store_timeout":      "3s",
	"store_max_attempts": 3,
	"consistent_reads":   true,
	"log_level":          "info",
	"dev_addr":           ":8080",
	"dev_subject_header": "X-Lakitu-Subject",
}

// Load reads, normalizes and validates the configuration.
func Load() (*Config, error) {
	k := koanf.New(".")

	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("set default %s: %w", key, err)
		}
	}

	// Unprefixed deployment names, lowest priority
	err := k.Load(env.Provider("", ".", func(s string) string {
		return legacyNames[s]
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load legacy env: %w", err)
	}

	err = k.Load(env.Provider(Prefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, Prefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	// Comma separated lists
	if err := k.Set("allowed_origins", splitList(k.String("allowed_origins"))); err != nil {
		return nil, fmt.Errorf("split allowed origins: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
