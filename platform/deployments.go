package platform

import (
	"context"
	"net/http"
	"net/url"
)

const deploymentsPath = "/api/v1/deployments"

// DeploymentEndpoint manages deployments.
type DeploymentEndpoint struct {
	client requester
}

// ListDeploymentsOptions filters and paginates List. Page defaults to 1 and
// PerPage to 20.
type ListDeploymentsOptions struct {
	Page        int
	PerPage     int
	AgentID     Optional[string]
	Status      Optional[DeploymentStatus]
	Environment Optional[Environment]
}

// List returns one page of deployments and its pagination metadata.
func (e *DeploymentEndpoint) List(ctx context.Context, opts ListDeploymentsOptions) (*DeploymentList, error) {
	q := pageQuery(opts.Page, opts.PerPage)
	setQuery(q, "agent_id", opts.AgentID)
	setQuery(q, "status", opts.Status)
	setQuery(q, "environment", opts.Environment)

	resp, err := e.client.do(ctx, http.MethodGet, deploymentsPath, q, nil)
	if err != nil {
		return nil, err
	}

	data, err := envelopeData(resp)
	if err != nil {
		return nil, err
	}
	deployments, err := decodeList[Deployment](data, deploymentRequired, "deployment")
	if err != nil {
		return nil, err
	}
	meta, err := decodeMeta(resp)
	if err != nil {
		return nil, err
	}
	return &DeploymentList{Deployments: deployments, Meta: meta}, nil
}

// CreateDeploymentParams describes a new deployment. Environment defaults to
// EnvironmentWidget and is always sent.
type CreateDeploymentParams struct {
	Name            string
	AgentID         string
	Channel         Channel
	Environment     Environment
	ChannelConfig   Optional[map[string]any]
	EngagementRules Optional[map[string]any]
	CallDirection   Optional[CallDirection]
}

func (p CreateDeploymentParams) payload() payload {
	env := p.Environment
	if env == "" {
		env = EnvironmentWidget
	}
	body := payload{
		"name":        p.Name,
		"agent_id":    p.AgentID,
		"channel":     p.Channel,
		"environment": env,
	}
	setOptional(body, "channel_config", p.ChannelConfig)
	setOptional(body, "engagement_rules", p.EngagementRules)
	setOptional(body, "call_direction", p.CallDirection)
	return body
}

// Create deploys an agent on a channel.
func (e *DeploymentEndpoint) Create(ctx context.Context, params CreateDeploymentParams) (*Deployment, error) {
	return e.deployment(ctx, http.MethodPost, deploymentsPath, params.payload())
}

func (e *DeploymentEndpoint) Get(ctx context.Context, id string) (*Deployment, error) {
	return e.deployment(ctx, http.MethodGet, deploymentPath(id), nil)
}

// UpdateDeploymentParams lists the fields to change. At least one must be set.
type UpdateDeploymentParams struct {
	Name        Optional[string]
	Environment Optional[Environment]
}

func (p UpdateDeploymentParams) payload() payload {
	body := payload{}
	setOptional(body, "name", p.Name)
	setOptional(body, "environment", p.Environment)
	return body
}

// Update sends only the fields set in params. It fails with a
// ValidationError, without contacting the platform, when none are set.
func (e *DeploymentEndpoint) Update(ctx context.Context, id string, params UpdateDeploymentParams) (*Deployment, error) {
	body := params.payload()
	if len(body) == 0 {
		return nil, errNoUpdateFields()
	}
	return e.deployment(ctx, http.MethodPut, deploymentPath(id), body)
}

func (e *DeploymentEndpoint) Delete(ctx context.Context, id string) error {
	_, err := e.client.do(ctx, http.MethodDelete, deploymentPath(id), nil, nil)
	return err
}

// Activate starts serving traffic for the deployment.
func (e *DeploymentEndpoint) Activate(ctx context.Context, id string) (*Deployment, error) {
	return e.deployment(ctx, http.MethodPost, deploymentPath(id)+"/activate", payload{})
}

// Deactivate stops serving traffic for the deployment.
func (e *DeploymentEndpoint) Deactivate(ctx context.Context, id string) (*Deployment, error) {
	return e.deployment(ctx, http.MethodPost, deploymentPath(id)+"/deactivate", payload{})
}

func (e *DeploymentEndpoint) deployment(ctx context.Context, method, path string, body payload) (*Deployment, error) {
	var reqBody any
	if body != nil {
		reqBody = body
	}
	resp, err := e.client.do(ctx, method, path, nil, reqBody)
	if err != nil {
		return nil, err
	}
	var d Deployment
	if err := decodeEnvelope(resp, deploymentRequired, &d, "deployment"); err != nil {
		return nil, err
	}
	return &d, nil
}

func deploymentPath(id string) string {
	return deploymentsPath + "/" + url.PathEscape(id)
}
