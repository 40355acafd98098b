package config

import (
	"time"

	"github.com/rmoroz/mexc-tracker/internal/exchange"
	"github.com/rmoroz/mexc-tracker/internal/stream"
)

// Default values for optional configuration fields.
const (
	DefaultPollInterval    = 60 * time.Minute
	DefaultDispatchTimeout = 2 * time.Minute
	DefaultDataDir         = "data"
	DefaultAPITimeout      = 30 * time.Second
	DefaultMaxRetries      = 3
	DefaultTGPollTimeout   = 30
	DefaultDBPort          = 5432
	DefaultDBSSLMode       = "prefer"
	DefaultMaxConns        = 10
	DefaultMinConns        = 2
	DefaultBatchSize       = 100
	DefaultFlushInterval   = time.Second
	DefaultBufferSize      = 1000
	DefaultPingInterval    = 20 * time.Second
	DefaultReadTimeout     = 60 * time.Second
	DefaultReconnectMin    = time.Second
	DefaultReconnectMax    = 2 * time.Minute
	DefaultHealthPort      = 8080
)

func (c *TrackerConfig) applyDefaults() {
	// Poll cycle defaults
	if c.Tracker.Interval == 0 {
		c.Tracker.Interval = DefaultPollInterval
	}
	if c.Tracker.DispatchTimeout == 0 {
		c.Tracker.DispatchTimeout = DefaultDispatchTimeout
	}
	if c.Tracker.DataDir == "" {
		c.Tracker.DataDir = DefaultDataDir
	}

	// Exchange defaults
	if c.MEXC.BaseURL == "" {
		c.MEXC.BaseURL = exchange.DefaultMEXCURL
	}
	if c.Binance.BaseURL == "" {
		c.Binance.BaseURL = exchange.DefaultBinanceURL
	}
	applyExchangeDefaults(&c.MEXC)
	applyExchangeDefaults(&c.Binance)

	// Telegram defaults
	if c.Telegram.PollTimeout == 0 {
		c.Telegram.PollTimeout = DefaultTGPollTimeout
	}

	// History defaults
	if c.History.Database.Port == 0 {
		c.History.Database.Port = DefaultDBPort
	}
	if c.History.Database.SSLMode == "" {
		c.History.Database.SSLMode = DefaultDBSSLMode
	}
	if c.History.Database.MaxConns == 0 {
		c.History.Database.MaxConns = DefaultMaxConns
	}
	if c.History.Database.MinConns == 0 {
		c.History.Database.MinConns = DefaultMinConns
	}
	if c.History.BatchSize == 0 {
		c.History.BatchSize = DefaultBatchSize
	}
	if c.History.FlushInterval == 0 {
		c.History.FlushInterval = DefaultFlushInterval
	}
	if c.History.BufferSize == 0 {
		c.History.BufferSize = DefaultBufferSize
	}

	// Stream defaults
	if c.Stream.URL == "" {
		c.Stream.URL = stream.DefaultURL
	}
	if c.Stream.PingInterval == 0 {
		c.Stream.PingInterval = DefaultPingInterval
	}
	if c.Stream.ReadTimeout == 0 {
		c.Stream.ReadTimeout = DefaultReadTimeout
	}
	if c.Stream.ReconnectMin == 0 {
		c.Stream.ReconnectMin = DefaultReconnectMin
	}
	if c.Stream.ReconnectMax == 0 {
		c.Stream.ReconnectMax = DefaultReconnectMax
	}

	// Health defaults
	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}
}

func applyExchangeDefaults(ec *ExchangeConfig) {
	if ec.Timeout == 0 {
		ec.Timeout = DefaultAPITimeout
	}
	if ec.MaxRetries == 0 {
		ec.MaxRetries = DefaultMaxRetries
	}
}
