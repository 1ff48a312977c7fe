package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/matrixd/internal/client"
	"github.com/danmuck/matrixd/internal/protocol"
	"github.com/danmuck/matrixd/internal/server"
)

type serverFile struct {
	Name            string   `toml:"name"`
	Addr            string   `toml:"addr"`
	AdminAddr       string   `toml:"admin_addr"`
	AdminCORS       []string `toml:"admin_cors_origins"`
	MaxPayloadBytes int64    `toml:"max_payload_bytes"`
	ReadTimeout     string   `toml:"read_timeout"`
	WriteTimeout    string   `toml:"write_timeout"`
}

type clientFile struct {
	Addr                  string  `toml:"addr"`
	MatrixSize            int     `toml:"matrix_size"`
	Workers               int     `toml:"workers"`
	Seed                  int64   `toml:"seed"`
	ConnectTimeout        string  `toml:"connect_timeout"`
	PollInterval          string  `toml:"poll_interval"`
	PollTimeout           string  `toml:"poll_timeout"`
	PollBackoffMultiplier float64 `toml:"poll_backoff_multiplier"`
	PollBackoffMax        string  `toml:"poll_backoff_max"`
	PollJitter            bool    `toml:"poll_jitter"`
}

// LoadServerConfig overlays the keys defined in path onto server.DefaultConfig.
func LoadServerConfig(path string) (server.Config, error) {
	cfg := server.DefaultConfig()

	var raw serverFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return server.Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	if meta.IsDefined("name") {
		cfg.Name = strings.TrimSpace(raw.Name)
	}
	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("admin_addr") {
		cfg.AdminAddr = strings.TrimSpace(raw.AdminAddr)
	}
	if meta.IsDefined("admin_cors_origins") {
		cfg.AdminCORSOrigins = nil
		for _, origin := range raw.AdminCORS {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AdminCORSOrigins = append(cfg.AdminCORSOrigins, origin)
			}
		}
	}
	if meta.IsDefined("max_payload_bytes") {
		if raw.MaxPayloadBytes < 0 || raw.MaxPayloadBytes > int64(^uint32(0)) {
			return server.Config{}, fmt.Errorf("max_payload_bytes out of range: %d", raw.MaxPayloadBytes)
		}
		cfg.Session.Limits.MaxPayloadBytes = uint32(raw.MaxPayloadBytes)
	}
	if meta.IsDefined("read_timeout") {
		if cfg.Session.ReadTimeout, err = parseDuration("read_timeout", raw.ReadTimeout); err != nil {
			return server.Config{}, err
		}
	}
	if meta.IsDefined("write_timeout") {
		if cfg.Session.WriteTimeout, err = parseDuration("write_timeout", raw.WriteTimeout); err != nil {
			return server.Config{}, err
		}
	}

	if err := ValidateServerConfig(cfg); err != nil {
		return server.Config{}, err
	}
	return cfg, nil
}

// LoadClientConfig overlays the keys defined in path onto client.DefaultConfig.
func LoadClientConfig(path string) (client.Config, error) {
	cfg := client.DefaultConfig()

	var raw clientFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return client.Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("matrix_size") {
		cfg.MatrixSize = raw.MatrixSize
	}
	if meta.IsDefined("workers") {
		cfg.Workers = raw.Workers
	}
	if meta.IsDefined("seed") {
		cfg.Seed = raw.Seed
	}
	if meta.IsDefined("connect_timeout") {
		if cfg.Session.ConnectTimeout, err = parseDuration("connect_timeout", raw.ConnectTimeout); err != nil {
			return client.Config{}, err
		}
	}
	if meta.IsDefined("poll_interval") {
		if cfg.Session.Poll.Interval, err = parseDuration("poll_interval", raw.PollInterval); err != nil {
			return client.Config{}, err
		}
	}
	if meta.IsDefined("poll_timeout") {
		if cfg.Session.Poll.Timeout, err = parseDuration("poll_timeout", raw.PollTimeout); err != nil {
			return client.Config{}, err
		}
	}
	if meta.IsDefined("poll_backoff_multiplier") {
		cfg.Session.Poll.Backoff.Multiplier = raw.PollBackoffMultiplier
	}
	if meta.IsDefined("poll_backoff_max") {
		if cfg.Session.Poll.Backoff.MaxDelay, err = parseDuration("poll_backoff_max", raw.PollBackoffMax); err != nil {
			return client.Config{}, err
		}
	}
	if meta.IsDefined("poll_jitter") {
		cfg.Session.Poll.Backoff.Jitter = raw.PollJitter
	}

	if err := ValidateClientConfig(cfg); err != nil {
		return client.Config{}, err
	}
	return cfg, nil
}

func ValidateServerConfig(cfg server.Config) error {
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("server config missing addr")
	}
	if cfg.Session.ReadTimeout < 0 || cfg.Session.WriteTimeout < 0 {
		return fmt.Errorf("server config timeouts must not be negative")
	}
	return nil
}

func ValidateClientConfig(cfg client.Config) error {
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("client config missing addr")
	}
	if cfg.MatrixSize < 0 || cfg.MatrixSize > protocol.MaxMatrixSize {
		return fmt.Errorf("client config matrix_size out of range: %d", cfg.MatrixSize)
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("client config workers must not be negative: %d", cfg.Workers)
	}
	if cfg.Session.Poll.Interval <= 0 {
		return fmt.Errorf("client config poll_interval must be positive")
	}
	if cfg.Session.Poll.Timeout < 0 {
		return fmt.Errorf("client config poll_timeout must not be negative")
	}
	return nil
}

// parseDuration treats an empty value as zero (disabled).
func parseDuration(key, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
