package platform

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/conversimple/conversimple-go/config"
	"go.uber.org/zap"
)

// ErrMissingAPIKey is returned by New when no API key is resolved from the
// options, the settings or the environment.
var ErrMissingAPIKey = errors.New("api key is required")

// Client is the entry point for the platform API. It owns a single
// transport which its endpoints share. A Client holds no mutable state and
// is safe for concurrent use.
type Client struct {
	Agents      *AgentEndpoint
	Deployments *DeploymentEndpoint
	APIKeys     *APIKeyEndpoint

	settings  config.Settings
	transport *httpClient
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	settings   *config.Settings
	overrides  []config.Option
	httpClient *http.Client
	logger     *zap.Logger
}

// WithSettings replaces the environment-resolved settings the client starts
// from. Explicit options such as WithAPIKey still take precedence.
func WithSettings(s config.Settings) Option {
	return func(o *clientOptions) { o.settings = &s }
}

func WithAPIKey(key string) Option {
	return func(o *clientOptions) { o.overrides = append(o.overrides, config.WithAPIKey(key)) }
}

func WithEndpoint(endpoint string) Option {
	return func(o *clientOptions) { o.overrides = append(o.overrides, config.WithAPIEndpoint(endpoint)) }
}

// WithTimeout bounds every request. A zero timeout disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.overrides = append(o.overrides, config.WithAPITimeout(d)) }
}

// WithVerbose enables debug logging of every request and response.
func WithVerbose(v bool) Option {
	return func(o *clientOptions) { o.overrides = append(o.overrides, config.WithVerbose(v)) }
}

// WithHTTPClient replaces the default client, which disables keep-alives so
// that each call uses its own connection.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = hc }
}

// WithLogger sets the logger used in verbose mode. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// New resolves settings and builds a Client. Precedence, highest first:
// explicit options, WithSettings, the environment, literal defaults.
func New(opts ...Option) (*Client, error) {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	s := config.FromEnv()
	if o.settings != nil {
		s = *o.settings
	}
	s = s.With(o.overrides...)

	if s.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	endpoint := NormalizeEndpoint(s.APIEndpoint)
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api endpoint %q", s.APIEndpoint)
	}

	hc := o.httpClient
	if hc == nil {
		hc = &http.Client{Transport: newTransport()}
	}
	logger := o.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	t := &httpClient{
		endpoint: endpoint,
		apiKey:   s.APIKey,
		timeout:  s.APITimeout,
		verbose:  s.Verbose,
		http:     hc,
		logger:   logger,
	}

	return &Client{
		Agents:      &AgentEndpoint{client: t},
		Deployments: &DeploymentEndpoint{client: t},
		APIKeys:     &APIKeyEndpoint{client: t},
		settings:    s,
		transport:   t,
	}, nil
}

// Settings returns the settings the client was built with.
func (c *Client) Settings() config.Settings {
	return c.settings
}

// Endpoint returns the normalized API endpoint.
func (c *Client) Endpoint() string {
	return c.transport.endpoint
}
