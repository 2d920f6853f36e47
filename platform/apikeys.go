package platform

import (
	"context"
	"net/http"
)

const apiKeyPath = "/api/v1/settings/api-key"

// APIKeyEndpoint reads and rotates the account's API key.
type APIKeyEndpoint struct {
	client requester
}

// Info describes the key in use.
func (e *APIKeyEndpoint) Info(ctx context.Context) (*APIKeyInfo, error) {
	resp, err := e.client.do(ctx, http.MethodGet, apiKeyPath, nil, nil)
	if err != nil {
		return nil, err
	}
	var info APIKeyInfo
	if err := decodeEnvelope(resp, apiKeyInfoRequired, &info, "api key info"); err != nil {
		return nil, err
	}
	return &info, nil
}

// Rotate issues a new key and retires the current one. The result carries
// the new key under "new_api_key"; Clients built with the old key stop
// authenticating once this returns.
func (e *APIKeyEndpoint) Rotate(ctx context.Context) (map[string]any, error) {
	resp, err := e.client.do(ctx, http.MethodPost, apiKeyPath+"/rotate", nil, payload{})
	if err != nil {
		return nil, err
	}
	return envelopeObject(resp), nil
}

// Usage returns request counters and the remaining rate-limit quota.
func (e *APIKeyEndpoint) Usage(ctx context.Context) (*APIKeyUsage, error) {
	resp, err := e.client.do(ctx, http.MethodGet, apiKeyPath+"/usage", nil, nil)
	if err != nil {
		return nil, err
	}
	var usage APIKeyUsage
	if err := decodeEnvelope(resp, apiKeyUsageRequired, &usage, "api key usage"); err != nil {
		return nil, err
	}
	return &usage, nil
}
