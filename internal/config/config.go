// Package config loads runtime configuration for the marketplace client.
//
// Sources, later ones win:
//
//  1. Built-in defaults (Defaults).
//  2. Optional YAML file passed to Load.
//  3. Environment variables (see applyEnv), optionally seeded from a
//     dotenv file via LoadDotEnv.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the client process.
type Config struct {
	BaseURL      string   `yaml:"baseURL"`
	RealtimePath string   `yaml:"realtimePath"`
	PollPath     string   `yaml:"pollPath"`
	Transports   []string `yaml:"transports"`
	SessionFile  string   `yaml:"sessionFile"`
	BridgeAddr   string   `yaml:"bridgeAddr"`
	DebugRoutes  bool     `yaml:"debugRoutes"`
	LogLevel     string   `yaml:"logLevel"`

	HTTPTimeout   time.Duration `yaml:"httpTimeout"`
	RetryAttempts int           `yaml:"retryAttempts"`
	RetryDelay    time.Duration `yaml:"retryDelay"`

	Reconnect  ReconnectConfig `yaml:"reconnect"`
	AckTimeout time.Duration   `yaml:"ackTimeout"`

	AMQPURL      string `yaml:"amqpURL"`
	AMQPExchange string `yaml:"amqpExchange"`
	OTLPEndpoint string `yaml:"otlpEndpoint"`
	ServiceName  string `yaml:"serviceName"`
	Environment  string `yaml:"environment"`
}

// ReconnectConfig bounds the realtime reconnect loop.
type ReconnectConfig struct {
	InitialDelay time.Duration `yaml:"initialDelay"`
	MaxDelay     time.Duration `yaml:"maxDelay"`
	Multiplier   float64       `yaml:"multiplier"`
	Jitter       float64       `yaml:"jitter"`
	MaxAttempts  int           `yaml:"maxAttempts"`
	MaxElapsed   time.Duration `yaml:"maxElapsed"`
}

// Defaults returns the configuration used when nothing else is provided.
func Defaults() Config {
	return Config{
		BaseURL:       "http://localhost:5000",
		RealtimePath:  "/ws",
		PollPath:      "/realtime/poll",
		Transports:    []string{"websocket", "polling"},
		SessionFile:   "session.json",
		BridgeAddr:    "127.0.0.1:8090",
		LogLevel:      "info",
		HTTPTimeout:   10 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    200 * time.Millisecond,
		Reconnect: ReconnectConfig{
			InitialDelay: 5 * time.Second,
			MaxDelay:     time.Minute,
			Multiplier:   2,
			Jitter:       0.3,
			MaxAttempts:  10,
			MaxElapsed:   10 * time.Minute,
		},
		AckTimeout:   10 * time.Second,
		AMQPExchange: "marketplace.client",
		ServiceName:  "marketplace-client",
		Environment:  "local",
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadDotEnv copies variables from a dotenv file into the process
// environment without overriding ones already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.BaseURL = getEnv("MARKET_BASE_URL", cfg.BaseURL)
	cfg.SessionFile = getEnv("MARKET_SESSION_FILE", cfg.SessionFile)
	cfg.BridgeAddr = getEnv("MARKET_BRIDGE_ADDR", cfg.BridgeAddr)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.AMQPURL = getEnv("AMQP_URL", cfg.AMQPURL)
	cfg.AMQPExchange = getEnv("AMQP_EXCHANGE", cfg.AMQPExchange)
	cfg.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)
	cfg.Environment = getEnv("APP_ENV", cfg.Environment)
	if v := os.Getenv("MARKET_TRANSPORTS"); v != "" {
		cfg.Transports = splitCSV(v)
	}
	if v := os.Getenv("MARKET_DEBUG_ROUTES"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.DebugRoutes = b
		}
	}
	if v := os.Getenv("MARKET_ACK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.AckTimeout = d
		}
	}
	if v := os.Getenv("MARKET_RECONNECT_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Reconnect.MaxAttempts = n
		}
	}
}

// Validate rejects settings the client cannot run with.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid baseURL %q", c.BaseURL)
	}
	if c.RetryAttempts < 1 {
		return errors.New("retryAttempts must be at least 1")
	}
	if len(c.Transports) == 0 {
		return errors.New("at least one realtime transport is required")
	}
	for _, t := range c.Transports {
		if t != "websocket" && t != "polling" {
			return fmt.Errorf("unknown transport %q", t)
		}
	}
	if c.Reconnect.MaxAttempts < 0 {
		return errors.New("reconnect.maxAttempts must not be negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
