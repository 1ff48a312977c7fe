package session

import (
	"time"

	"github.com/danmuck/matrixd/internal/protocol/frame"
)

// BackoffConfig defines retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// PollConfig controls how a client waits for STATUS=computed.
type PollConfig struct {
	Interval time.Duration
	// Timeout bounds the whole wait; zero waits until the context ends.
	Timeout time.Duration
	Backoff BackoffConfig
}

// Config defines transport/session timing. Zero read/write timeouts block indefinitely.
type Config struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	Limits         frame.Limits
	Poll           PollConfig
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 5 * time.Second,
		Limits:         frame.DefaultLimits(),
		Poll: PollConfig{
			Interval: 100 * time.Millisecond,
			Backoff: BackoffConfig{
				Multiplier: 1.0,
			},
		},
	}
}

// WithDefaults fills unset fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.Poll.Interval <= 0 {
		c.Poll.Interval = def.Poll.Interval
	}
	if c.Poll.Backoff.Multiplier < 1.0 {
		c.Poll.Backoff.Multiplier = def.Poll.Backoff.Multiplier
	}
	return c
}

// PollBackoff resolves the poll interval into the backoff shape used by NextBackoffDelay.
func (p PollConfig) PollBackoff() BackoffConfig {
	b := p.Backoff
	b.InitialDelay = p.Interval
	return b
}
