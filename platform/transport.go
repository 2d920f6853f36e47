package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/conversimple/conversimple-go/internal/buildconfig"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader carries a per-request id the platform echoes in its logs.
const RequestIDHeader = "X-Request-ID"

// requester performs one authenticated API call. Endpoints depend on this
// interface rather than on httpClient so their payload shaping can be tested
// without a server.
type requester interface {
	do(ctx context.Context, method, path string, query url.Values, body any) (map[string]any, error)
}

// httpClient is the transport shared by all endpoints of a Client.
type httpClient struct {
	endpoint string
	apiKey   string
	timeout  time.Duration
	verbose  bool
	http     *http.Client
	logger   *zap.Logger
}

// NormalizeEndpoint strips trailing slashes so paths can be appended directly.
func NormalizeEndpoint(endpoint string) string {
	return strings.TrimRight(endpoint, "/")
}

// newTransport returns a transport that opens a fresh connection for every
// request.
func newTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DisableKeepAlives = true
	return t
}

func (c *httpClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", buildconfig.UserAgent())
	req.Header.Set(RequestIDHeader, uuid.NewString())
}

func (c *httpClient) do(ctx context.Context, method, path string, query url.Values, body any) (map[string]any, error) {
	fullURL := c.endpoint + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var data []byte
	var reqBody io.Reader
	if body != nil {
		var err error
		data, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	if c.verbose {
		c.logger.Debug("api request",
			zap.String("method", method),
			zap.String("url", fullURL),
			zap.ByteString("body", data),
			zap.String("request_id", req.Header.Get(RequestIDHeader)),
		)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if c.verbose {
		c.logger.Debug("api response",
			zap.String("method", method),
			zap.String("url", fullURL),
			zap.Int("status", resp.StatusCode),
			zap.Duration("duration", time.Since(start)),
			zap.Int("bytes", len(respBody)),
		)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, errorFromResponse(resp.StatusCode, respBody)
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response body: %v", ErrInvalidResponse, err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// errorFromResponse builds the typed error for a status >= 400. Bodies that
// are not JSON objects degrade to {"message": <raw text>}.
func errorFromResponse(status int, body []byte) error {
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil || data == nil {
		data = map[string]any{"message": string(body)}
	}

	message, _ := data["message"].(string)
	if message == "" {
		message, _ = data["error"].(string)
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return mapHTTPError(status, message, data)
}
