package config

import "time"

// Option overrides a single setting.
type Option func(*Settings)

// With returns a copy of s with opts applied. The receiver is not modified.
func (s Settings) With(opts ...Option) Settings {
	for _, o := range opts {
		o(&s)
	}
	return s
}

func WithAPIEndpoint(u string) Option {
	return func(s *Settings) { s.APIEndpoint = u }
}

func WithPlatformURL(u string) Option {
	return func(s *Settings) { s.PlatformURL = u }
}

func WithAPIKey(key string) Option {
	return func(s *Settings) { s.APIKey = key }
}

func WithCustomerID(id string) Option {
	return func(s *Settings) { s.CustomerID = id }
}

func WithLogLevel(level string) Option {
	return func(s *Settings) { s.LogLevel = level }
}

func WithAPITimeout(d time.Duration) Option {
	return func(s *Settings) { s.APITimeout = d }
}

func WithVerbose(v bool) Option {
	return func(s *Settings) { s.Verbose = v }
}

func WithHeartbeatInterval(d time.Duration) Option {
	return func(s *Settings) { s.HeartbeatInterval = d }
}

// WithMaxReconnectAttempts limits runtime reconnects; 0 means unlimited.
func WithMaxReconnectAttempts(n int) Option {
	return func(s *Settings) { s.MaxReconnectAttempts = n }
}

func WithReconnectBackoff(multiplier float64) Option {
	return func(s *Settings) { s.ReconnectBackoff = multiplier }
}

func WithMaxBackoff(d time.Duration) Option {
	return func(s *Settings) { s.MaxBackoff = d }
}

// WithTotalRetryDuration bounds the time spent reconnecting; 0 means no limit.
func WithTotalRetryDuration(d time.Duration) Option {
	return func(s *Settings) { s.TotalRetryDuration = d }
}

func WithCircuitBreaker(enabled bool) Option {
	return func(s *Settings) { s.EnableCircuitBreaker = enabled }
}
