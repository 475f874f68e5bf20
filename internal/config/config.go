package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mvoevodskiy/botcms/pkg/api"
)

type (
	// Config holds configuration settings for the dialogue engine
	Config struct {
		// API Server
		APIHost  string
		APIPort  int
		LogLevel string

		// Storage
		Store StoreConfig

		// Engine
		RootPath        api.Path
		HelpPath        api.Path
		Language        string
		MaxHops         int
		SessionTTL      time.Duration
		CallbackTTL     time.Duration
		LaunchDelay     time.Duration
		ShutdownTimeout time.Duration

		// Optional launch notification, sent through the named bridge
		// once the engine comes up
		NotifyBridge  string
		NotifyPeer    string
		NotifyMessage string
	}

	// StoreConfig holds Redis connection settings for the key-value
	// store backing sessions and callback data
	StoreConfig struct {
		Addr     string
		Password string
		DB       int
		Prefix   string
	}
)

const (
	DefaultAPIPort = 8080
	DefaultAPIHost = "0.0.0.0"
	MaxTCPPort     = 65535

	DefaultRedisEndpoint = "localhost:6379"
	DefaultRedisDB       = 0
	DefaultRedisPrefix   = "botcms"

	DefaultRootPath        = api.Path("c")
	DefaultLanguage        = "en"
	DefaultMaxHops         = 16
	DefaultLaunchDelay     = 500 * time.Millisecond
	DefaultShutdownTimeout = 10 * time.Second

	MaxMaxHops = 1024
)

var (
	ErrInvalidAPIPort  = errors.New("invalid API port")
	ErrInvalidMaxHops  = errors.New("max hops must be positive")
	ErrRootPathEmpty   = errors.New("root path empty")
	ErrInvalidDuration = errors.New("invalid duration")
)

// NewDefaultConfig creates a configuration with sensible defaults for the
// engine, store, and server settings
func NewDefaultConfig() *Config {
	return &Config{
		APIHost: DefaultAPIHost,
		APIPort: DefaultAPIPort,
		Store: StoreConfig{
			Addr:   DefaultRedisEndpoint,
			DB:     DefaultRedisDB,
			Prefix: DefaultRedisPrefix,
		},
		RootPath:        DefaultRootPath,
		Language:        DefaultLanguage,
		MaxHops:         DefaultMaxHops,
		LaunchDelay:     DefaultLaunchDelay,
		ShutdownTimeout: DefaultShutdownTimeout,
		LogLevel:        "info",
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any value cannot be parsed
func (c *Config) LoadFromEnv() error {
	if host := os.Getenv("API_HOST"); host != "" {
		c.APIHost = host
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if root := os.Getenv("ROOT_PATH"); root != "" {
		c.RootPath = api.Path(root)
	}
	if help := os.Getenv("HELP_PATH"); help != "" {
		c.HelpPath = api.Path(help)
	}
	if language := os.Getenv("LANGUAGE"); language != "" {
		c.Language = language
	}
	if bridge := os.Getenv("NOTIFY_BRIDGE"); bridge != "" {
		c.NotifyBridge = bridge
	}
	if peer := os.Getenv("NOTIFY_PEER"); peer != "" {
		c.NotifyPeer = peer
	}
	if msg := os.Getenv("NOTIFY_MESSAGE"); msg != "" {
		c.NotifyMessage = msg
	}

	loadStoreConfigFromEnv(&c.Store)

	if err := loadEnvInt("API_PORT", &c.APIPort, 0, MaxTCPPort); err != nil {
		return err
	}
	if err := loadEnvInt("MAX_HOPS", &c.MaxHops, 0, MaxMaxHops); err != nil {
		return err
	}

	if err := loadEnvDuration("SESSION_TTL", &c.SessionTTL); err != nil {
		return err
	}
	if err := loadEnvDuration("CALLBACK_TTL", &c.CallbackTTL); err != nil {
		return err
	}
	return loadEnvDuration("LAUNCH_DELAY", &c.LaunchDelay)
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}
	if c.MaxHops <= 0 {
		return ErrInvalidMaxHops
	}
	if c.RootPath == "" {
		return ErrRootPathEmpty
	}
	return nil
}

func loadStoreConfigFromEnv(s *StoreConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		s.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		s.Password = password
	}
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			s.DB = db
		}
	}
	if prefix := os.Getenv("REDIS_PREFIX"); prefix != "" {
		s.Prefix = prefix
	}
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max). Returns an error if
// the value cannot be parsed or falls outside the valid range
func loadEnvInt[T ~int | ~int64](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("invalid %s: %d out of range [%d, %d]",
			key, tv, min+1, max)
	}
	*dst = tv
	return nil
}

func loadEnvDuration(key string, dst *time.Duration) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%w: %s=%q", ErrInvalidDuration, key, s)
	}
	*dst = d
	return nil
}
