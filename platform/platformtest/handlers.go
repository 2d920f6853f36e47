package platformtest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/conversimple/conversimple-go/platform"
	"github.com/go-chi/chi/v5"
)

const maxPerPage = 100

type envelope struct {
	Success bool               `json:"success"`
	Data    any                `json:"data"`
	Meta    *platform.ListMeta `json:"meta,omitempty"`
}

type errorBody struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string, fields map[string]string) {
	writeJSON(w, status, errorBody{Message: msg, Errors: fields})
}

func writeValidation(w http.ResponseWriter, fields map[string]string) {
	writeError(w, http.StatusUnprocessableEntity, "Validation failed", fields)
}

// decodeObject reads a JSON object body. Keys are kept so that partial
// updates can tell absent fields from empty ones.
func decodeObject(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body == nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return nil, false
	}
	return body, true
}

// pageParams reads page and per_page, reporting invalid values as field
// errors.
func pageParams(r *http.Request, fields map[string]string) (page, perPage int) {
	page, perPage = 1, 20
	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			fields["page"] = "must be a positive integer"
		} else {
			page = n
		}
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPerPage {
			fields["per_page"] = "must be between 1 and 100"
		} else {
			perPage = n
		}
	}
	return page, perPage
}

type handler struct {
	store   *Store
	limiter *RateLimiter
}

// Agents

func (h *handler) listAgents(w http.ResponseWriter, r *http.Request) {
	fields := map[string]string{}
	page, perPage := pageParams(r, fields)
	status := platform.AgentStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		fields["status"] = "is not a valid agent status"
	}
	if len(fields) > 0 {
		writeValidation(w, fields)
		return
	}

	agents, total := h.store.ListAgents(AgentFilter{Status: status, Search: r.URL.Query().Get("search")}, page, perPage)
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    agents,
		Meta:    &platform.ListMeta{Page: page, PerPage: perPage, TotalCount: total},
	})
}

func (h *handler) createAgent(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeObject(w, r)
	if !ok {
		return
	}

	fields := map[string]string{}
	var a platform.Agent
	if name, _ := body["name"].(string); name == "" {
		fields["name"] = "Name is required"
	} else {
		a.Name = name
	}
	if desc, ok := body["description"].(string); !ok {
		fields["description"] = "Description is required"
	} else {
		a.Description = desc
	}
	if v, ok := body["agent_config"]; ok {
		cfg, isObj := v.(map[string]any)
		if !isObj {
			fields["agent_config"] = "must be an object"
		}
		a.AgentConfig = cfg
	}
	if v, ok := body["execution_mode"]; ok {
		mode, _ := v.(string)
		if !platform.ExecutionMode(mode).Valid() {
			fields["execution_mode"] = "is not a valid execution mode"
		}
		a.ExecutionMode = platform.ExecutionMode(mode)
	}
	if len(fields) > 0 {
		writeValidation(w, fields)
		return
	}

	writeData(w, http.StatusCreated, h.store.CreateAgent(a))
}

func (h *handler) getAgent(w http.ResponseWriter, r *http.Request) {
	a, err := h.store.GetAgent(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err, "Agent not found")
		return
	}
	writeData(w, http.StatusOK, a)
}

func (h *handler) updateAgent(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeObject(w, r)
	if !ok {
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "At least one field must be provided", nil)
		return
	}

	fields := map[string]string{}
	var changes []func(*platform.Agent)
	for key, v := range body {
		switch key {
		case "name":
			name, _ := v.(string)
			if name == "" {
				fields[key] = "Name cannot be blank"
				continue
			}
			changes = append(changes, func(a *platform.Agent) { a.Name = name })
		case "description":
			desc, ok := v.(string)
			if !ok {
				fields[key] = "must be a string"
				continue
			}
			changes = append(changes, func(a *platform.Agent) { a.Description = desc })
		case "status":
			s, _ := v.(string)
			status := platform.AgentStatus(s)
			if !status.Valid() {
				fields[key] = "is not a valid agent status"
				continue
			}
			changes = append(changes, func(a *platform.Agent) { a.Status = status })
		case "agent_config":
			cfg, ok := v.(map[string]any)
			if !ok && v != nil {
				fields[key] = "must be an object"
				continue
			}
			changes = append(changes, func(a *platform.Agent) { a.AgentConfig = cfg })
		default:
			fields[key] = "is not an updatable field"
		}
	}
	if len(fields) > 0 {
		writeValidation(w, fields)
		return
	}

	a, err := h.store.UpdateAgent(chi.URLParam(r, "id"), func(a *platform.Agent) {
		for _, apply := range changes {
			apply(a)
		}
	})
	if err != nil {
		writeStoreError(w, err, "Agent not found")
		return
	}
	writeData(w, http.StatusOK, a)
}

func (h *handler) deleteAgent(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteAgent(chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, err, "Agent not found")
		return
	}
	writeData(w, http.StatusOK, nil)
}

func (h *handler) agentSpec(w http.ResponseWriter, r *http.Request) {
	spec, err := h.store.AgentSpec(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err, "Agent not found")
		return
	}
	writeData(w, http.StatusOK, spec)
}

func (h *handler) generationStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.store.GetAgent(id); err != nil {
		writeStoreError(w, err, "Agent not found")
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"agent_id": id,
		"job_id":   "gen-" + id,
		"status":   "completed",
	})
}

func (h *handler) publishAgent(w http.ResponseWriter, r *http.Request) {
	a, err := h.store.UpdateAgent(chi.URLParam(r, "id"), func(a *platform.Agent) {
		a.Status = platform.AgentStatusPublished
	})
	if err != nil {
		writeStoreError(w, err, "Agent not found")
		return
	}
	writeData(w, http.StatusOK, a)
}

// Deployments

func (h *handler) listDeployments(w http.ResponseWriter, r *http.Request) {
	fields := map[string]string{}
	page, perPage := pageParams(r, fields)
	q := r.URL.Query()
	filter := DeploymentFilter{
		AgentID:     q.Get("agent_id"),
		Status:      platform.DeploymentStatus(q.Get("status")),
		Environment: platform.Environment(q.Get("environment")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		fields["status"] = "is not a valid deployment status"
	}
	if filter.Environment != "" && !filter.Environment.Valid() {
		fields["environment"] = "is not a valid environment"
	}
	if len(fields) > 0 {
		writeValidation(w, fields)
		return
	}

	deployments, total := h.store.ListDeployments(filter, page, perPage)
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    deployments,
		Meta:    &platform.ListMeta{Page: page, PerPage: perPage, TotalCount: total},
	})
}

func (h *handler) createDeployment(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeObject(w, r)
	if !ok {
		return
	}

	fields := map[string]string{}
	var d platform.Deployment
	if name, _ := body["name"].(string); name == "" {
		fields["name"] = "Name is required"
	} else {
		d.Name = name
	}
	if agentID, _ := body["agent_id"].(string); agentID == "" {
		fields["agent_id"] = "Agent is required"
	} else if _, err := h.store.GetAgent(agentID); err != nil {
		fields["agent_id"] = "Agent not found"
	} else {
		d.AgentID = agentID
	}
	channel, _ := body["channel"].(string)
	if d.Channel = platform.Channel(channel); !d.Channel.Valid() {
		fields["channel"] = "is not a valid channel"
	}
	d.Environment = platform.EnvironmentWidget
	if v, ok := body["environment"]; ok {
		env, _ := v.(string)
		if d.Environment = platform.Environment(env); !d.Environment.Valid() {
			fields["environment"] = "is not a valid environment"
		}
	}
	for _, key := range []string{"channel_config", "engagement_rules"} {
		v, ok := body[key]
		if !ok {
			continue
		}
		obj, isObj := v.(map[string]any)
		if !isObj {
			fields[key] = "must be an object"
			continue
		}
		if key == "channel_config" {
			d.ChannelConfig = obj
		} else {
			d.EngagementRules = obj
		}
	}
	if v, ok := body["call_direction"]; ok {
		dir, _ := v.(string)
		switch platform.CallDirection(dir) {
		case platform.CallDirectionInbound, platform.CallDirectionOutbound:
			if d.ChannelConfig == nil {
				d.ChannelConfig = map[string]any{}
			}
			d.ChannelConfig["call_direction"] = dir
		default:
			fields["call_direction"] = "must be inbound or outbound"
		}
	}
	if len(fields) > 0 {
		writeValidation(w, fields)
		return
	}

	writeData(w, http.StatusCreated, h.store.CreateDeployment(d))
}

func (h *handler) getDeployment(w http.ResponseWriter, r *http.Request) {
	d, err := h.store.GetDeployment(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err, "Deployment not found")
		return
	}
	writeData(w, http.StatusOK, d)
}

func (h *handler) updateDeployment(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeObject(w, r)
	if !ok {
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "At least one field must be provided", nil)
		return
	}

	fields := map[string]string{}
	var changes []func(*platform.Deployment)
	for key, v := range body {
		switch key {
		case "name":
			name, _ := v.(string)
			if name == "" {
				fields[key] = "Name cannot be blank"
				continue
			}
			changes = append(changes, func(d *platform.Deployment) { d.Name = name })
		case "environment":
			s, _ := v.(string)
			env := platform.Environment(s)
			if !env.Valid() {
				fields[key] = "is not a valid environment"
				continue
			}
			changes = append(changes, func(d *platform.Deployment) { d.Environment = env })
		default:
			fields[key] = "is not an updatable field"
		}
	}
	if len(fields) > 0 {
		writeValidation(w, fields)
		return
	}

	d, err := h.store.UpdateDeployment(chi.URLParam(r, "id"), func(d *platform.Deployment) {
		for _, apply := range changes {
			apply(d)
		}
	})
	if err != nil {
		writeStoreError(w, err, "Deployment not found")
		return
	}
	writeData(w, http.StatusOK, d)
}

func (h *handler) deleteDeployment(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteDeployment(chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, err, "Deployment not found")
		return
	}
	writeData(w, http.StatusOK, nil)
}

// setDeploymentStatus returns a transition handler.
func (h *handler) setDeploymentStatus(status platform.DeploymentStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := h.store.UpdateDeployment(chi.URLParam(r, "id"), func(d *platform.Deployment) {
			d.Status = status
		})
		if err != nil {
			writeStoreError(w, err, "Deployment not found")
			return
		}
		writeData(w, http.StatusOK, d)
	}
}

// API key

func (h *handler) apiKeyInfo(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, h.store.APIKeyInfo())
}

func (h *handler) rotateAPIKey(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"new_api_key": h.store.RotateAPIKey()})
}

func (h *handler) apiKeyUsage(w http.ResponseWriter, r *http.Request) {
	day, month, last := h.store.RequestCounts()
	writeData(w, http.StatusOK, platform.APIKeyUsage{
		Requests24h:        day,
		RequestsMonth:      month,
		RateLimit:          h.limiter.Limit(),
		RateLimitRemaining: h.limiter.Remaining(),
		LastRequestAt:      last,
	})
}

func writeStoreError(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, notFound, nil)
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error(), nil)
}
