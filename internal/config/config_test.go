package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	yaml := `
tracker:
  interval: 30m
  data_dir: /var/lib/tracker
mexc:
  base_url: https://contract.mexc.com
telegram:
  token: 12345:abcdef
  chat_id: -100200300
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Tracker.Interval != 30*time.Minute {
		t.Errorf("Tracker.Interval = %v, want 30m", cfg.Tracker.Interval)
	}
	if cfg.Tracker.DataDir != "/var/lib/tracker" {
		t.Errorf("Tracker.DataDir = %q, want /var/lib/tracker", cfg.Tracker.DataDir)
	}
	if cfg.Telegram.ChatID != -100200300 {
		t.Errorf("Telegram.ChatID = %d, want -100200300", cfg.Telegram.ChatID)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_BOT_TOKEN", "98765:secret")

	yaml := `
tracker:
  data_dir: data
telegram:
  token: ${TEST_BOT_TOKEN}
  chat_id: 42
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Telegram.Token != "98765:secret" {
		t.Errorf("Telegram.Token = %q, want substituted value", cfg.Telegram.Token)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
tracker:
  data_dir: data
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Tracker.Interval != DefaultPollInterval {
		t.Errorf("Tracker.Interval = %v, want default %v", cfg.Tracker.Interval, DefaultPollInterval)
	}
	if cfg.MEXC.BaseURL == "" {
		t.Error("MEXC.BaseURL default not applied")
	}
	if cfg.Binance.Timeout != DefaultAPITimeout {
		t.Errorf("Binance.Timeout = %v, want default %v", cfg.Binance.Timeout, DefaultAPITimeout)
	}
	if cfg.Stream.URL == "" {
		t.Error("Stream.URL default not applied")
	}
	if cfg.History.Database.Port != DefaultDBPort {
		t.Errorf("History.Database.Port = %d, want %d", cfg.History.Database.Port, DefaultDBPort)
	}
	if cfg.Health.Port != DefaultHealthPort {
		t.Errorf("Health.Port = %d, want %d", cfg.Health.Port, DefaultHealthPort)
	}
}

func TestLoadAndValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "minimal valid",
			yaml: `
tracker:
  data_dir: data
`,
		},
		{
			name: "token without chat id",
			yaml: `
tracker:
  data_dir: data
telegram:
  token: 12345:abcdef
`,
			wantErr: "telegram.chat_id",
		},
		{
			name: "bad exchange url",
			yaml: `
tracker:
  data_dir: data
mexc:
  base_url: ftp://contract.mexc.com
`,
			wantErr: "mexc.base_url",
		},
		{
			name: "history enabled without database",
			yaml: `
tracker:
  data_dir: data
history:
  enabled: true
`,
			wantErr: "history.database.host",
		},
		{
			name: "bad stream url",
			yaml: `
tracker:
  data_dir: data
stream:
  enabled: true
  url: https://contract.mexc.com/edge
`,
			wantErr: "stream.url",
		},
		{
			name: "negative interval",
			yaml: `
tracker:
  interval: -5m
  data_dir: data
`,
			wantErr: "tracker.interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempFile(t, tt.yaml)
			_, err := LoadAndValidate(path)

			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("LoadAndValidate failed: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
