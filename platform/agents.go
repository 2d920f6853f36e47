package platform

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

const (
	agentsPath = "/api/v1/agents"

	defaultPage    = 1
	defaultPerPage = 20
)

// errNoUpdateFields is returned locally, without a request, by updates that
// supply no fields.
func errNoUpdateFields() error {
	return NewValidationError("at least one field must be provided for update", 0, nil)
}

// pageQuery starts a list query with page and per_page, applying defaults to
// non-positive values.
func pageQuery(page, perPage int) url.Values {
	if page <= 0 {
		page = defaultPage
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	return q
}

func setQuery[T ~string](q url.Values, key string, o Optional[T]) {
	if v, ok := o.Get(); ok {
		q.Set(key, string(v))
	}
}

// AgentEndpoint manages agents.
type AgentEndpoint struct {
	client requester
}

// ListAgentsOptions filters and paginates List. Page defaults to 1 and
// PerPage to 20.
type ListAgentsOptions struct {
	Page    int
	PerPage int
	Status  Optional[AgentStatus]
	// Search matches agent names.
	Search Optional[string]
}

// List returns one page of agents and its pagination metadata.
func (e *AgentEndpoint) List(ctx context.Context, opts ListAgentsOptions) (*AgentList, error) {
	q := pageQuery(opts.Page, opts.PerPage)
	setQuery(q, "status", opts.Status)
	setQuery(q, "search", opts.Search)

	resp, err := e.client.do(ctx, http.MethodGet, agentsPath, q, nil)
	if err != nil {
		return nil, err
	}

	data, err := envelopeData(resp)
	if err != nil {
		return nil, err
	}
	agents, err := decodeList[Agent](data, agentRequired, "agent")
	if err != nil {
		return nil, err
	}
	meta, err := decodeMeta(resp)
	if err != nil {
		return nil, err
	}
	return &AgentList{Agents: agents, Meta: meta}, nil
}

// CreateAgentParams describes a new agent. Name and Description are always
// sent; optional fields only when set.
type CreateAgentParams struct {
	Name          string
	Description   string
	AgentConfig   Optional[map[string]any]
	ExecutionMode Optional[ExecutionMode]
}

func (p CreateAgentParams) payload() payload {
	body := payload{
		"name":        p.Name,
		"description": p.Description,
	}
	setOptional(body, "agent_config", p.AgentConfig)
	setOptional(body, "execution_mode", p.ExecutionMode)
	return body
}

// Create creates an agent and returns it as stored by the platform.
func (e *AgentEndpoint) Create(ctx context.Context, params CreateAgentParams) (*Agent, error) {
	return e.agent(ctx, http.MethodPost, agentsPath, params.payload())
}

// Get returns the agent with the given id.
func (e *AgentEndpoint) Get(ctx context.Context, id string) (*Agent, error) {
	return e.agent(ctx, http.MethodGet, agentPath(id), nil)
}

// UpdateAgentParams lists the fields to change. At least one must be set.
type UpdateAgentParams struct {
	Name        Optional[string]
	Description Optional[string]
	Status      Optional[AgentStatus]
	AgentConfig Optional[map[string]any]
}

func (p UpdateAgentParams) payload() payload {
	body := payload{}
	setOptional(body, "name", p.Name)
	setOptional(body, "description", p.Description)
	setOptional(body, "status", p.Status)
	setOptional(body, "agent_config", p.AgentConfig)
	return body
}

// Update sends only the fields set in params. It fails with a
// ValidationError, without contacting the platform, when none are set.
func (e *AgentEndpoint) Update(ctx context.Context, id string, params UpdateAgentParams) (*Agent, error) {
	body := params.payload()
	if len(body) == 0 {
		return nil, errNoUpdateFields()
	}
	return e.agent(ctx, http.MethodPut, agentPath(id), body)
}

// Delete removes the agent. A nil error means it was deleted.
func (e *AgentEndpoint) Delete(ctx context.Context, id string) error {
	_, err := e.client.do(ctx, http.MethodDelete, agentPath(id), nil, nil)
	return err
}

// Spec returns the generated agent specification (tool definitions and
// similar), as an untyped mapping.
func (e *AgentEndpoint) Spec(ctx context.Context, id string) (map[string]any, error) {
	resp, err := e.client.do(ctx, http.MethodGet, agentPath(id)+"/spec", nil, nil)
	if err != nil {
		return nil, err
	}
	return envelopeObject(resp), nil
}

// GenerationStatus returns the state of the agent's spec generation job.
func (e *AgentEndpoint) GenerationStatus(ctx context.Context, id string) (map[string]any, error) {
	resp, err := e.client.do(ctx, http.MethodGet, agentPath(id)+"/generation-status", nil, nil)
	if err != nil {
		return nil, err
	}
	return envelopeObject(resp), nil
}

// Publish moves the agent to the published state.
func (e *AgentEndpoint) Publish(ctx context.Context, id string) (*Agent, error) {
	return e.agent(ctx, http.MethodPost, agentPath(id)+"/publish", payload{})
}

func (e *AgentEndpoint) agent(ctx context.Context, method, path string, body payload) (*Agent, error) {
	var reqBody any
	if body != nil {
		reqBody = body
	}
	resp, err := e.client.do(ctx, method, path, nil, reqBody)
	if err != nil {
		return nil, err
	}
	var a Agent
	if err := decodeEnvelope(resp, agentRequired, &a, "agent"); err != nil {
		return nil, err
	}
	return &a, nil
}

func agentPath(id string) string {
	return agentsPath + "/" + url.PathEscape(id)
}
