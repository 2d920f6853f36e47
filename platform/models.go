package platform

import "time"

// AgentStatus is the lifecycle state of an agent.
type AgentStatus string

const (
	AgentStatusDraft     AgentStatus = "draft"
	AgentStatusPublished AgentStatus = "published"
	AgentStatusArchived  AgentStatus = "archived"
)

// Valid reports whether s is a known agent status.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentStatusDraft, AgentStatusPublished, AgentStatusArchived:
		return true
	}
	return false
}

// ExecutionMode selects how the runtime drives an agent's conversation.
type ExecutionMode string

const (
	ExecutionModeDialogManager     ExecutionMode = "dialog_manager"
	ExecutionModeFreeFlow          ExecutionMode = "free_flow"
	ExecutionModeFreeFlowNativeSTS ExecutionMode = "free_flow_native_sts"
)

func (m ExecutionMode) Valid() bool {
	switch m {
	case ExecutionModeDialogManager, ExecutionModeFreeFlow, ExecutionModeFreeFlowNativeSTS:
		return true
	}
	return false
}

// Agent is a conversational agent managed by the platform. Version is
// incremented by the platform on every mutation and is never sent by the
// client.
type Agent struct {
	ID            string         `json:"id" mapstructure:"id"`
	Name          string         `json:"name" mapstructure:"name"`
	Description   string         `json:"description" mapstructure:"description"`
	Status        AgentStatus    `json:"status" mapstructure:"status"`
	Version       int            `json:"version" mapstructure:"version"`
	CreatedAt     time.Time      `json:"created_at" mapstructure:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" mapstructure:"updated_at"`
	Spec          map[string]any `json:"spec,omitempty" mapstructure:"spec"`
	AgentConfig   map[string]any `json:"agent_config,omitempty" mapstructure:"agent_config"`
	ExecutionMode ExecutionMode  `json:"execution_mode,omitempty" mapstructure:"execution_mode"`
}

var agentRequired = []string{"id", "name", "description", "status", "version", "created_at", "updated_at"}

// Channel is the surface a deployment is exposed on.
type Channel string

const (
	ChannelPhone  Channel = "phone"
	ChannelWidget Channel = "widget"
	ChannelInline Channel = "inline"
	ChannelSDK    Channel = "sdk"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelPhone, ChannelWidget, ChannelInline, ChannelSDK:
		return true
	}
	return false
}

// DeploymentStatus is the lifecycle state of a deployment.
type DeploymentStatus string

const (
	DeploymentStatusPending  DeploymentStatus = "pending"
	DeploymentStatusActive   DeploymentStatus = "active"
	DeploymentStatusInactive DeploymentStatus = "inactive"
)

func (s DeploymentStatus) Valid() bool {
	switch s {
	case DeploymentStatusPending, DeploymentStatusActive, DeploymentStatusInactive:
		return true
	}
	return false
}

// Environment is the stage a deployment runs in.
type Environment string

const (
	EnvironmentDev        Environment = "dev"
	EnvironmentStaging    Environment = "staging"
	EnvironmentProduction Environment = "production"
	EnvironmentWidget     Environment = "widget"
)

func (e Environment) Valid() bool {
	switch e {
	case EnvironmentDev, EnvironmentStaging, EnvironmentProduction, EnvironmentWidget:
		return true
	}
	return false
}

// CallDirection applies to phone deployments.
type CallDirection string

const (
	CallDirectionInbound  CallDirection = "inbound"
	CallDirectionOutbound CallDirection = "outbound"
)

// Deployment exposes an agent on a channel. AgentID is not validated locally.
type Deployment struct {
	ID              string           `json:"id" mapstructure:"id"`
	Name            string           `json:"name" mapstructure:"name"`
	AgentID         string           `json:"agent_id" mapstructure:"agent_id"`
	Channel         Channel          `json:"channel" mapstructure:"channel"`
	Status          DeploymentStatus `json:"status" mapstructure:"status"`
	Environment     Environment      `json:"environment" mapstructure:"environment"`
	ChannelConfig   map[string]any   `json:"channel_config,omitempty" mapstructure:"channel_config"`
	EngagementRules map[string]any   `json:"engagement_rules,omitempty" mapstructure:"engagement_rules"`
	CreatedAt       time.Time        `json:"created_at" mapstructure:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" mapstructure:"updated_at"`
}

var deploymentRequired = []string{"id", "name", "agent_id", "channel", "status", "environment", "created_at", "updated_at"}

// APIKeyStatus is the lifecycle state of an API key.
type APIKeyStatus string

const (
	APIKeyStatusActive  APIKeyStatus = "active"
	APIKeyStatusRotated APIKeyStatus = "rotated"
	APIKeyStatusExpired APIKeyStatus = "expired"
)

func (s APIKeyStatus) Valid() bool {
	switch s {
	case APIKeyStatusActive, APIKeyStatusRotated, APIKeyStatusExpired:
		return true
	}
	return false
}

// APIKeyInfo describes the key the client authenticates with. The key itself
// is never returned; Last4Chars is its fingerprint.
type APIKeyInfo struct {
	Status     APIKeyStatus `json:"status" mapstructure:"status"`
	Last4Chars string       `json:"last_4" mapstructure:"last_4"`
	CreatedAt  time.Time    `json:"created_at" mapstructure:"created_at"`
	LastUsedAt *time.Time   `json:"last_used_at,omitempty" mapstructure:"last_used_at"`
}

var apiKeyInfoRequired = []string{"status", "last_4", "created_at"}

// APIKeyUsage holds request counters and the remaining rate-limit quota.
type APIKeyUsage struct {
	Requests24h        int        `json:"requests_24h" mapstructure:"requests_24h"`
	RequestsMonth      int        `json:"requests_month" mapstructure:"requests_month"`
	RateLimit          int        `json:"rate_limit" mapstructure:"rate_limit"`
	RateLimitRemaining int        `json:"rate_limit_remaining" mapstructure:"rate_limit_remaining"`
	LastRequestAt      *time.Time `json:"last_request_at,omitempty" mapstructure:"last_request_at"`
}

var apiKeyUsageRequired = []string{"requests_24h", "requests_month", "rate_limit", "rate_limit_remaining"}

// ListMeta is the pagination metadata returned with every list.
type ListMeta struct {
	Page       int `json:"page" mapstructure:"page"`
	PerPage    int `json:"per_page" mapstructure:"per_page"`
	TotalCount int `json:"total_count" mapstructure:"total_count"`
}

var listMetaRequired = []string{"page", "per_page", "total_count"}

// AgentList is one page of agents.
type AgentList struct {
	Agents []Agent
	Meta   ListMeta
}

// DeploymentList is one page of deployments.
type DeploymentList struct {
	Deployments []Deployment
	Meta        ListMeta
}
