package producer

import (
	"fmt"
	"time"
)

// Config 生產者設定
type Config struct {
	Brokers []string
	Topic   string

	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int // -1 等待所有副本確認

	RetryAttempts int
	RetryDelay    time.Duration
	WriteTimeout  time.Duration
}

// DefaultConfig returns a Config with default settings
func DefaultConfig() *Config {
	return &Config{
		BatchSize:     100,
		BatchTimeout:  50 * time.Millisecond,
		RequiredAcks:  -1,
		RetryAttempts: 3,
		RetryDelay:    200 * time.Millisecond,
		WriteTimeout:  10 * time.Second,
	}
}

func (c *Config) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("%w: brokers is required", ErrInvalidateParameter)
	}
	if c.Topic == "" {
		return fmt.Errorf("%w: topic is required", ErrInvalidateParameter)
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("%w: retry attempts must be >= 0", ErrInvalidateParameter)
	}
	switch c.RequiredAcks {
	case -1, 0, 1:
	default:
		return fmt.Errorf("%w: required acks must be -1, 0 or 1", ErrInvalidateParameter)
	}
	return nil
}
