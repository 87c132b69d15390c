package store

import "time"

// Default configuration values.
const (
	DefaultTableName = "user_items"
	DefaultTimeout   = 3 * time.Second
	MaxTimeout       = 30 * time.Second
)

// Config holds configuration shared by all Store implementations.
type Config struct {
	// TableName is the DynamoDB table holding the items.
	// Ignored by the in-process backends.
	// Default: "user_items"
	TableName string

	// Timeout bounds every single store call. A call that does not
	// complete in time fails with ErrUnavailable.
	// Default: 3s, Max: 30s
	Timeout time.Duration

	// ConsistentReads makes List and Get strongly consistent on DynamoDB.
	ConsistentReads bool

	// Now returns the current time. Default: time.Now
	Now func() time.Time
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TableName:       DefaultTableName,
		Timeout:         DefaultTimeout,
		ConsistentReads: true,
		Now:             time.Now,
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.TableName == "" {
		c.TableName = DefaultTableName
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Timeout > MaxTimeout {
		c.Timeout = MaxTimeout
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// nowMillis returns the configured clock as epoch milliseconds.
func (c *Config) nowMillis() int64 {
	return c.Now().UnixMilli()
}
