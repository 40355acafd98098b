package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *TrackerConfig) Validate() error {
	if c.Tracker.Interval <= 0 {
		return errors.New("tracker.interval must be positive")
	}
	if c.Tracker.DataDir == "" {
		return errors.New("tracker.data_dir is required")
	}

	if err := validateExchange("mexc", c.MEXC); err != nil {
		return err
	}
	if err := validateExchange("binance", c.Binance); err != nil {
		return err
	}

	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		return errors.New("telegram.chat_id is required when telegram.token is set")
	}
	if c.Telegram.PollTimeout < 1 || c.Telegram.PollTimeout > 60 {
		return fmt.Errorf("telegram.poll_timeout must be between 1 and 60 seconds, got %d", c.Telegram.PollTimeout)
	}

	if c.History.Enabled {
		if err := validateDB("history.database", c.History); err != nil {
			return err
		}
		if c.History.BatchSize < 1 {
			return errors.New("history.batch_size must be >= 1")
		}
		if c.History.BufferSize < 1 {
			return errors.New("history.buffer_size must be >= 1")
		}
	}

	if c.Stream.Enabled {
		if !strings.HasPrefix(c.Stream.URL, "ws://") && !strings.HasPrefix(c.Stream.URL, "wss://") {
			return fmt.Errorf("stream.url must be a ws:// or wss:// URL, got %q", c.Stream.URL)
		}
		if c.Stream.ReconnectMin > c.Stream.ReconnectMax {
			return fmt.Errorf("stream.reconnect_min (%s) cannot exceed reconnect_max (%s)",
				c.Stream.ReconnectMin, c.Stream.ReconnectMax)
		}
	}

	if c.Health.Port < 1 || c.Health.Port > 65535 {
		return fmt.Errorf("health.port must be between 1 and 65535, got %d", c.Health.Port)
	}

	return nil
}

func validateExchange(prefix string, ec ExchangeConfig) error {
	if !strings.HasPrefix(ec.BaseURL, "http://") && !strings.HasPrefix(ec.BaseURL, "https://") {
		return fmt.Errorf("%s.base_url must be an http(s) URL, got %q", prefix, ec.BaseURL)
	}
	if ec.Timeout <= 0 {
		return fmt.Errorf("%s.timeout must be positive", prefix)
	}
	if ec.MaxRetries < 0 {
		return fmt.Errorf("%s.max_retries must be >= 0", prefix)
	}
	return nil
}

func validateDB(prefix string, hc HistoryConfig) error {
	db := hc.Database
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
