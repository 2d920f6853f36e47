// Package config resolves the settings shared by the platform client and the
// agent runtime.
//
// Settings are resolved from, in increasing order of precedence: literal
// defaults, the environment (optionally seeded from a .env file by Load),
// values applied with Settings.With or read by FromFile, and finally the
// explicit options given to a client constructor. A Settings value is never
// mutated in place, so it is safe to share between goroutines.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	EnvFile                 = "CONVERSIMPLE_ENV"
	EnvAPIEndpoint          = "CONVERSIMPLE_API_ENDPOINT"
	EnvPlatformURL          = "CONVERSIMPLE_PLATFORM_URL"
	EnvAPIKey               = "CONVERSIMPLE_API_KEY"
	EnvCustomerID           = "CONVERSIMPLE_CUSTOMER_ID"
	EnvLogLevel             = "CONVERSIMPLE_LOG_LEVEL"
	EnvAPITimeout           = "CONVERSIMPLE_API_TIMEOUT"
	EnvVerbose              = "CONVERSIMPLE_VERBOSE"
	EnvHeartbeatInterval    = "CONVERSIMPLE_HEARTBEAT_INTERVAL"
	EnvReconnectBackoff     = "CONVERSIMPLE_RECONNECT_BACKOFF"
	EnvMaxBackoff           = "CONVERSIMPLE_MAX_BACKOFF"
	EnvEnableCircuitBreaker = "CONVERSIMPLE_ENABLE_CIRCUIT_BREAKER"
)

// Literal defaults used when neither the environment nor an override
// supplies a value.
const (
	DefaultAPIEndpoint       = "https://api.conversimple.com"
	DefaultPlatformURL       = "wss://api.conversimple.com/sdk/websocket"
	DefaultLogLevel          = "INFO"
	DefaultAPITimeout        = 30 * time.Second
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultReconnectBackoff  = 2.0
	DefaultMaxBackoff        = 300 * time.Second
)

// Settings holds every recognized option. The platform client consumes
// APIEndpoint, APIKey, APITimeout and Verbose; the remaining fields are read
// by the agent runtime when it manages its WebSocket connection.
type Settings struct {
	APIEndpoint string
	PlatformURL string
	APIKey      string
	CustomerID  string
	LogLevel    string
	APITimeout  time.Duration
	Verbose     bool

	HeartbeatInterval time.Duration
	// MaxReconnectAttempts of 0 means reconnect forever.
	MaxReconnectAttempts int
	ReconnectBackoff     float64
	MaxBackoff           time.Duration
	// TotalRetryDuration of 0 means no overall limit.
	TotalRetryDuration   time.Duration
	EnableCircuitBreaker bool
}

// Defaults returns the built-in settings, ignoring the environment.
func Defaults() Settings {
	return Settings{
		APIEndpoint:          DefaultAPIEndpoint,
		PlatformURL:          DefaultPlatformURL,
		LogLevel:             DefaultLogLevel,
		APITimeout:           DefaultAPITimeout,
		HeartbeatInterval:    DefaultHeartbeatInterval,
		ReconnectBackoff:     DefaultReconnectBackoff,
		MaxBackoff:           DefaultMaxBackoff,
		EnableCircuitBreaker: true,
	}
}

// Load reads the .env file specified by CONVERSIMPLE_ENV (or .env by default),
// then loads the corresponding .secret file if it exists. Variables already
// present in the process environment are left untouched.
func Load() error {
	envFile := os.Getenv(EnvFile)
	if envFile == "" {
		envFile = ".env"
	}

	// Missing files are not an error
	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

// FromEnv resolves settings from the process environment. Unset or
// unparseable variables fall back to the literal defaults.
func FromEnv() Settings {
	d := Defaults()
	return Settings{
		APIEndpoint:          envString(EnvAPIEndpoint, d.APIEndpoint),
		PlatformURL:          envString(EnvPlatformURL, d.PlatformURL),
		APIKey:               os.Getenv(EnvAPIKey),
		CustomerID:           os.Getenv(EnvCustomerID),
		LogLevel:             envString(EnvLogLevel, d.LogLevel),
		APITimeout:           envSeconds(EnvAPITimeout, d.APITimeout),
		Verbose:              envBool(EnvVerbose, false),
		HeartbeatInterval:    envSeconds(EnvHeartbeatInterval, d.HeartbeatInterval),
		ReconnectBackoff:     envFloat(EnvReconnectBackoff, d.ReconnectBackoff),
		MaxBackoff:           envSeconds(EnvMaxBackoff, d.MaxBackoff),
		EnableCircuitBreaker: envBool(EnvEnableCircuitBreaker, d.EnableCircuitBreaker),
	}
}

// fileSettings mirrors Settings for YAML input. Pointer fields distinguish
// keys that are absent from keys explicitly set to a zero value. Durations
// are given in seconds.
type fileSettings struct {
	APIEndpoint          *string  `yaml:"api_endpoint"`
	PlatformURL          *string  `yaml:"platform_url"`
	APIKey               *string  `yaml:"api_key"`
	CustomerID           *string  `yaml:"customer_id"`
	LogLevel             *string  `yaml:"log_level"`
	APITimeout           *float64 `yaml:"api_timeout"`
	Verbose              *bool    `yaml:"verbose"`
	HeartbeatInterval    *float64 `yaml:"heartbeat_interval"`
	MaxReconnectAttempts *int     `yaml:"max_reconnect_attempts"`
	ReconnectBackoff     *float64 `yaml:"reconnect_backoff"`
	MaxBackoff           *float64 `yaml:"max_backoff"`
	TotalRetryDuration   *float64 `yaml:"total_retry_duration"`
	EnableCircuitBreaker *bool    `yaml:"enable_circuit_breaker"`
}

// FromFile resolves settings from the environment and then overlays the keys
// present in the YAML file at path.
func FromFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings file: %w", err)
	}
	return Parse(data, FromEnv())
}

// Parse overlays the YAML document in data onto base.
func Parse(data []byte, base Settings) (Settings, error) {
	var fs fileSettings
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return Settings{}, fmt.Errorf("parse settings file: %w", err)
	}
	return base.With(fs.options()...), nil
}

func (fs fileSettings) options() []Option {
	var opts []Option
	if fs.APIEndpoint != nil {
		opts = append(opts, WithAPIEndpoint(*fs.APIEndpoint))
	}
	if fs.PlatformURL != nil {
		opts = append(opts, WithPlatformURL(*fs.PlatformURL))
	}
	if fs.APIKey != nil {
		opts = append(opts, WithAPIKey(*fs.APIKey))
	}
	if fs.CustomerID != nil {
		opts = append(opts, WithCustomerID(*fs.CustomerID))
	}
	if fs.LogLevel != nil {
		opts = append(opts, WithLogLevel(*fs.LogLevel))
	}
	if fs.APITimeout != nil {
		opts = append(opts, WithAPITimeout(seconds(*fs.APITimeout)))
	}
	if fs.Verbose != nil {
		opts = append(opts, WithVerbose(*fs.Verbose))
	}
	if fs.HeartbeatInterval != nil {
		opts = append(opts, WithHeartbeatInterval(seconds(*fs.HeartbeatInterval)))
	}
	if fs.MaxReconnectAttempts != nil {
		opts = append(opts, WithMaxReconnectAttempts(*fs.MaxReconnectAttempts))
	}
	if fs.ReconnectBackoff != nil {
		opts = append(opts, WithReconnectBackoff(*fs.ReconnectBackoff))
	}
	if fs.MaxBackoff != nil {
		opts = append(opts, WithMaxBackoff(seconds(*fs.MaxBackoff)))
	}
	if fs.TotalRetryDuration != nil {
		opts = append(opts, WithTotalRetryDuration(seconds(*fs.TotalRetryDuration)))
	}
	if fs.EnableCircuitBreaker != nil {
		opts = append(opts, WithCircuitBreaker(*fs.EnableCircuitBreaker))
	}
	return opts
}

// ZapLevel maps LogLevel onto a zap level. Python-style names such as
// WARNING and CRITICAL are accepted; anything unrecognized yields info.
func (s Settings) ZapLevel() zapcore.Level {
	name := strings.ToLower(strings.TrimSpace(s.LogLevel))
	switch name {
	case "warning":
		name = "warn"
	case "critical":
		name = "fatal"
	}
	level, err := zapcore.ParseLevel(name)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

func envString(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envSeconds(key string, def time.Duration) time.Duration {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v < 0 {
		return def
	}
	return seconds(v)
}

func envFloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
