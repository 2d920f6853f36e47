package platform_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/conversimple/conversimple-go/config"
	"github.com/conversimple/conversimple-go/platform"
	"github.com/conversimple/conversimple-go/platform/platformtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newPlatform(t *testing.T, opts ...platformtest.Option) *platformtest.Server {
	t.Helper()
	srv := platformtest.NewServer(opts...)
	t.Cleanup(srv.Close)
	return srv
}

func connect(t *testing.T, srv *platformtest.Server, key string) *platform.Client {
	t.Helper()
	client, err := platform.New(
		platform.WithSettings(config.Defaults()),
		platform.WithEndpoint(srv.URL),
		platform.WithAPIKey(key),
	)
	require.NoError(t, err)
	return client
}

func createAgent(t *testing.T, client *platform.Client, name string) *platform.Agent {
	t.Helper()
	a, err := client.Agents.Create(context.Background(), platform.CreateAgentParams{
		Name:        name,
		Description: name + " description",
	})
	require.NoError(t, err)
	return a
}

func TestAgentLifecycle(t *testing.T) {
	ctx := context.Background()
	srv := newPlatform(t)
	client := connect(t, srv, platformtest.DefaultAPIKey)

	agent, err := client.Agents.Create(ctx, platform.CreateAgentParams{
		Name:        "Support Bot",
		Description: "Customer support agent",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, agent.ID)
	assert.Equal(t, "Support Bot", agent.Name)
	assert.Equal(t, platform.AgentStatusDraft, agent.Status)
	assert.Equal(t, 1, agent.Version)
	assert.False(t, agent.CreatedAt.IsZero())

	list, err := client.Agents.List(ctx, platform.ListAgentsOptions{})
	require.NoError(t, err)
	require.Len(t, list.Agents, 1)
	assert.Equal(t, agent.ID, list.Agents[0].ID)
	assert.Equal(t, platform.ListMeta{Page: 1, PerPage: 20, TotalCount: 1}, list.Meta)

	got, err := client.Agents.Get(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, agent.Name, got.Name)

	updated, err := client.Agents.Update(ctx, agent.ID, platform.UpdateAgentParams{
		Description: platform.Some("Handles refunds"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Handles refunds", updated.Description)
	assert.Equal(t, "Support Bot", updated.Name)
	assert.Equal(t, 2, updated.Version)

	published, err := client.Agents.Publish(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, platform.AgentStatusPublished, published.Status)
	assert.Equal(t, 3, published.Version)

	spec, err := client.Agents.Spec(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, agent.ID, spec["agent_id"])

	status, err := client.Agents.GenerationStatus(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, "completed", status["status"])

	require.NoError(t, client.Agents.Delete(ctx, agent.ID))

	_, err = client.Agents.Get(ctx, agent.ID)
	assert.True(t, platform.IsNotFound(err))
	assert.EqualError(t, err, "[404] Agent not found")
}

func TestCreateAgentValidation(t *testing.T) {
	srv := newPlatform(t)
	client := connect(t, srv, platformtest.DefaultAPIKey)

	_, err := client.Agents.Create(context.Background(), platform.CreateAgentParams{
		Description: "nameless",
	})
	require.Error(t, err)

	var verr *platform.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, http.StatusUnprocessableEntity, verr.StatusCode)
	assert.Equal(t, "Validation failed", verr.Message)
	assert.Equal(t, map[string]string{"name": "Name is required"}, verr.Errors)
	assert.Equal(t, false, verr.Response["success"])
}

func TestUpdateWithoutFieldsSendsNothing(t *testing.T) {
	srv := newPlatform(t)
	client := connect(t, srv, platformtest.DefaultAPIKey)
	agent := createAgent(t, client, "Support Bot")

	day, _, _ := srv.Store().RequestCounts()

	_, err := client.Agents.Update(context.Background(), agent.ID, platform.UpdateAgentParams{})
	assert.True(t, platform.IsValidation(err))

	after, _, _ := srv.Store().RequestCounts()
	assert.Equal(t, day, after)
}

func TestListAgentsFiltersAndPagination(t *testing.T) {
	ctx := context.Background()
	srv := newPlatform(t)
	client := connect(t, srv, platformtest.DefaultAPIKey)

	support := createAgent(t, client, "Support Bot")
	createAgent(t, client, "Sales Bot")
	createAgent(t, client, "Billing Helper")

	_, err := client.Agents.Publish(ctx, support.ID)
	require.NoError(t, err)

	published, err := client.Agents.List(ctx, platform.ListAgentsOptions{
		Status: platform.Some(platform.AgentStatusPublished),
	})
	require.NoError(t, err)
	require.Len(t, published.Agents, 1)
	assert.Equal(t, support.ID, published.Agents[0].ID)

	bots, err := client.Agents.List(ctx, platform.ListAgentsOptions{Search: platform.Some("bot")})
	require.NoError(t, err)
	assert.Equal(t, 2, bots.Meta.TotalCount)

	page, err := client.Agents.List(ctx, platform.ListAgentsOptions{Page: 2, PerPage: 2})
	require.NoError(t, err)
	require.Len(t, page.Agents, 1)
	assert.Equal(t, "Billing Helper", page.Agents[0].Name)
	assert.Equal(t, platform.ListMeta{Page: 2, PerPage: 2, TotalCount: 3}, page.Meta)

	_, err = client.Agents.List(ctx, platform.ListAgentsOptions{PerPage: 500})
	var verr *platform.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Errors, "per_page")
}

func TestDeploymentLifecycle(t *testing.T) {
	ctx := context.Background()
	srv := newPlatform(t)
	client := connect(t, srv, platformtest.DefaultAPIKey)
	agent := createAgent(t, client, "Support Bot")

	dep, err := client.Deployments.Create(ctx, platform.CreateDeploymentParams{
		Name:    "Support Widget",
		AgentID: agent.ID,
		Channel: platform.ChannelWidget,
	})
	require.NoError(t, err)
	assert.Equal(t, platform.DeploymentStatusPending, dep.Status)
	assert.Equal(t, platform.EnvironmentWidget, dep.Environment)
	assert.Equal(t, agent.ID, dep.AgentID)

	active, err := client.Deployments.Activate(ctx, dep.ID)
	require.NoError(t, err)
	assert.Equal(t, platform.DeploymentStatusActive, active.Status)

	list, err := client.Deployments.List(ctx, platform.ListDeploymentsOptions{
		AgentID: platform.Some(agent.ID),
		Status:  platform.Some(platform.DeploymentStatusActive),
	})
	require.NoError(t, err)
	require.Len(t, list.Deployments, 1)
	assert.Equal(t, 1, list.Meta.TotalCount)

	renamed, err := client.Deployments.Update(ctx, dep.ID, platform.UpdateDeploymentParams{
		Name:        platform.Some("Checkout Widget"),
		Environment: platform.Some(platform.EnvironmentProduction),
	})
	require.NoError(t, err)
	assert.Equal(t, "Checkout Widget", renamed.Name)
	assert.Equal(t, platform.EnvironmentProduction, renamed.Environment)
	assert.Equal(t, platform.DeploymentStatusActive, renamed.Status)

	inactive, err := client.Deployments.Deactivate(ctx, dep.ID)
	require.NoError(t, err)
	assert.Equal(t, platform.DeploymentStatusInactive, inactive.Status)

	require.NoError(t, client.Deployments.Delete(ctx, dep.ID))
	_, err = client.Deployments.Get(ctx, dep.ID)
	assert.True(t, platform.IsNotFound(err))
}

func TestCreatePhoneDeployment(t *testing.T) {
	ctx := context.Background()
	srv := newPlatform(t)
	client := connect(t, srv, platformtest.DefaultAPIKey)
	agent := createAgent(t, client, "Dialer")

	dep, err := client.Deployments.Create(ctx, platform.CreateDeploymentParams{
		Name:          "Outbound Line",
		AgentID:       agent.ID,
		Channel:       platform.ChannelPhone,
		Environment:   platform.EnvironmentStaging,
		ChannelConfig: platform.Some(map[string]any{"number": "+15550100"}),
		CallDirection: platform.Some(platform.CallDirectionOutbound),
	})
	require.NoError(t, err)
	assert.Equal(t, platform.EnvironmentStaging, dep.Environment)
	assert.Equal(t, "+15550100", dep.ChannelConfig["number"])
	assert.Equal(t, "outbound", dep.ChannelConfig["call_direction"])

	staging, err := client.Deployments.List(ctx, platform.ListDeploymentsOptions{
		Environment: platform.Some(platform.EnvironmentStaging),
	})
	require.NoError(t, err)
	assert.Len(t, staging.Deployments, 1)
}

func TestCreateDeploymentForUnknownAgent(t *testing.T) {
	srv := newPlatform(t)
	client := connect(t, srv, platformtest.DefaultAPIKey)

	_, err := client.Deployments.Create(context.Background(), platform.CreateDeploymentParams{
		Name:    "Orphan",
		AgentID: "missing",
		Channel: platform.ChannelWidget,
	})

	var verr *platform.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Agent not found", verr.Errors["agent_id"])
}

func TestAPIKeyInfoAndUsage(t *testing.T) {
	ctx := context.Background()
	srv := newPlatform(t, platformtest.WithRateLimit(0.001, 10))
	client := connect(t, srv, platformtest.DefaultAPIKey)

	usage, err := client.APIKeys.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, usage.Requests24h)
	assert.Equal(t, 1, usage.RequestsMonth)
	assert.Equal(t, 10, usage.RateLimit)
	assert.Equal(t, 9, usage.RateLimitRemaining)
	require.NotNil(t, usage.LastRequestAt)

	info, err := client.APIKeys.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, platform.APIKeyStatusActive, info.Status)
	assert.Equal(t, "cdef", info.Last4Chars)
	require.NotNil(t, info.LastUsedAt)
}

func TestRotateAPIKey(t *testing.T) {
	ctx := context.Background()
	srv := newPlatform(t)
	client := connect(t, srv, platformtest.DefaultAPIKey)

	rotated, err := client.APIKeys.Rotate(ctx)
	require.NoError(t, err)
	newKey, ok := rotated["new_api_key"].(string)
	require.True(t, ok)
	assert.NotEqual(t, platformtest.DefaultAPIKey, newKey)
	assert.Equal(t, newKey, srv.Store().APIKey())

	_, err = client.Agents.List(ctx, platform.ListAgentsOptions{})
	assert.True(t, platform.IsUnauthorized(err))

	fresh := connect(t, srv, newKey)
	info, err := fresh.APIKeys.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, newKey[len(newKey)-4:], info.Last4Chars)
}

func TestRotateAPIKey_VerboseLogsOmitNewKey(t *testing.T) {
	srv := newPlatform(t)
	core, logs := observer.New(zapcore.DebugLevel)
	client, err := platform.New(
		platform.WithSettings(config.Defaults()),
		platform.WithEndpoint(srv.URL),
		platform.WithAPIKey(platformtest.DefaultAPIKey),
		platform.WithVerbose(true),
		platform.WithLogger(zap.New(core)),
	)
	require.NoError(t, err)

	rotated, err := client.APIKeys.Rotate(context.Background())
	require.NoError(t, err)
	newKey, ok := rotated["new_api_key"].(string)
	require.True(t, ok)

	require.NotZero(t, logs.Len())
	for _, e := range logs.All() {
		assert.NotContains(t, e.Message, newKey)
		for k, v := range e.ContextMap() {
			assert.NotContains(t, fmt.Sprint(v), newKey, "log %q field %q leaks the new api key", e.Message, k)
			assert.NotContains(t, fmt.Sprint(v), platformtest.DefaultAPIKey, "log %q field %q leaks the api key", e.Message, k)
		}
	}
}

func TestWrongAPIKey(t *testing.T) {
	srv := newPlatform(t)
	client := connect(t, srv, "cs_wrong")

	_, err := client.Agents.List(context.Background(), platform.ListAgentsOptions{})
	require.Error(t, err)

	var uerr *platform.UnauthorizedError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, http.StatusUnauthorized, uerr.StatusCode)
	assert.Equal(t, "invalid API key", uerr.Message)
}

func TestRateLimited(t *testing.T) {
	ctx := context.Background()
	srv := newPlatform(t, platformtest.WithRateLimit(0.001, 2))
	client := connect(t, srv, platformtest.DefaultAPIKey)

	for i := 0; i < 2; i++ {
		_, err := client.Agents.List(ctx, platform.ListAgentsOptions{})
		require.NoError(t, err)
	}

	_, err := client.Agents.List(ctx, platform.ListAgentsOptions{})
	require.Error(t, err)

	var apiErr *platform.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, platform.KindAPI, apiErr.Kind)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "rate limit exceeded", apiErr.Message)
}

func TestConcurrentCalls(t *testing.T) {
	srv := newPlatform(t)
	client := connect(t, srv, platformtest.DefaultAPIKey)

	const n = 20
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := client.Agents.Create(context.Background(), platform.CreateAgentParams{
				Name:        "Parallel",
				Description: "created concurrently",
			})
			errs <- err
		}()
	}
	for i := 0; i < n; i++ {
		assert.NoError(t, <-errs)
	}

	list, err := client.Agents.List(context.Background(), platform.ListAgentsOptions{PerPage: 100})
	require.NoError(t, err)
	assert.Equal(t, n, list.Meta.TotalCount)
}
