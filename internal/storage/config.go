package storage

import "time"

// Config is loaded from the environment with envconfig.
type Config struct {
	URL          string        `envconfig:"DATABASE_URL" required:"true"`
	MaxAttempts  int           `envconfig:"DB_MAX_ATTEMPTS" default:"3"`
	RetryDelay   time.Duration `envconfig:"DB_RETRY_DELAY" default:"2s"`
	MaxOpenConns int           `envconfig:"DB_MAX_OPEN_CONNS" default:"4"`
	PingTimeout  time.Duration `envconfig:"DB_PING_TIMEOUT" default:"5s"`
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = 5 * time.Second
	}
	return c
}
