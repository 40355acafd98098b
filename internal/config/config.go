package config

import (
	"time"

	"github.com/rmoroz/mexc-tracker/internal/database"
)

// TrackerConfig is the root configuration.
type TrackerConfig struct {
	Tracker  PollConfig     `yaml:"tracker"`
	MEXC     ExchangeConfig `yaml:"mexc"`
	Binance  ExchangeConfig `yaml:"binance"`
	Telegram TelegramConfig `yaml:"telegram"`
	History  HistoryConfig  `yaml:"history"`
	Stream   StreamConfig   `yaml:"stream"`
	Health   HealthConfig   `yaml:"health"`
}

// PollConfig holds the poll-cycle settings.
type PollConfig struct {
	Interval        time.Duration `yaml:"interval"`
	DispatchTimeout time.Duration `yaml:"dispatch_timeout"`
	DataDir         string        `yaml:"data_dir"`
}

// ExchangeConfig holds one exchange REST API's settings.
type ExchangeConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// TelegramConfig holds Bot API settings. An empty token disables both the
// notification sink and the command bot; events go to the log instead.
type TelegramConfig struct {
	Token        string  `yaml:"token"`
	ChatID       int64   `yaml:"chat_id"`
	PollTimeout  int     `yaml:"poll_timeout"`
	AllowedChats []int64 `yaml:"allowed_chats"`
}

// HistoryConfig holds the optional change-history database.
type HistoryConfig struct {
	Enabled       bool            `yaml:"enabled"`
	Database      database.Config `yaml:"database"`
	BatchSize     int             `yaml:"batch_size"`
	FlushInterval time.Duration   `yaml:"flush_interval"`
	BufferSize    int             `yaml:"buffer_size"`
}

// StreamConfig holds the optional live watch.
type StreamConfig struct {
	Enabled      bool          `yaml:"enabled"`
	URL          string        `yaml:"url"`
	PingInterval time.Duration `yaml:"ping_interval"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	ReconnectMin time.Duration `yaml:"reconnect_min"`
	ReconnectMax time.Duration `yaml:"reconnect_max"`
}

// HealthConfig holds the health/debug HTTP endpoint.
type HealthConfig struct {
	Port int `yaml:"port"`
}
