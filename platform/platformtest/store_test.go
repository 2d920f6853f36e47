package platformtest

import (
	"testing"
	"time"

	"github.com/conversimple/conversimple-go/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedStore(key string, now time.Time) *Store {
	s := NewStore(key)
	s.now = func() time.Time { return now }
	return s
}

func TestStore_AgentCRUD(t *testing.T) {
	s := NewStore(DefaultAPIKey)

	a := s.CreateAgent(platform.Agent{Name: "Support Bot", Description: "Customer support agent"})
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, platform.AgentStatusDraft, a.Status)
	assert.Equal(t, 1, a.Version)

	got, err := s.GetAgent(a.ID)
	require.NoError(t, err)
	assert.Equal(t, a, got)

	updated, err := s.UpdateAgent(a.ID, func(a *platform.Agent) { a.Name = "Renamed" })
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, 2, updated.Version)

	spec, err := s.AgentSpec(a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, spec["agent_id"])

	require.NoError(t, s.DeleteAgent(a.ID))
	_, err = s.GetAgent(a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.AgentSpec(a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteAgent(a.ID), ErrNotFound)

	_, err = s.UpdateAgent("missing", func(*platform.Agent) {})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListAgents(t *testing.T) {
	s := NewStore(DefaultAPIKey)
	for _, name := range []string{"Support Bot", "Sales Bot", "Billing Helper"} {
		s.CreateAgent(platform.Agent{Name: name})
	}

	all, total := s.ListAgents(AgentFilter{}, 1, 20)
	assert.Len(t, all, 3)
	assert.Equal(t, 3, total)
	assert.Equal(t, "Support Bot", all[0].Name)

	bots, total := s.ListAgents(AgentFilter{Search: "BOT"}, 1, 20)
	assert.Len(t, bots, 2)
	assert.Equal(t, 2, total)

	drafts, total := s.ListAgents(AgentFilter{Status: platform.AgentStatusPublished}, 1, 20)
	assert.Empty(t, drafts)
	assert.Equal(t, 0, total)

	page, total := s.ListAgents(AgentFilter{}, 2, 2)
	require.Len(t, page, 1)
	assert.Equal(t, "Billing Helper", page[0].Name)
	assert.Equal(t, 3, total)

	beyond, _ := s.ListAgents(AgentFilter{}, 5, 2)
	assert.NotNil(t, beyond)
	assert.Empty(t, beyond)
}

func TestStore_Deployments(t *testing.T) {
	s := NewStore(DefaultAPIKey)

	d := s.CreateDeployment(platform.Deployment{
		Name:        "Support Widget",
		AgentID:     "agt_1",
		Channel:     platform.ChannelWidget,
		Environment: platform.EnvironmentWidget,
	})
	s.CreateDeployment(platform.Deployment{
		Name:        "Hotline",
		AgentID:     "agt_2",
		Channel:     platform.ChannelPhone,
		Environment: platform.EnvironmentProduction,
	})
	assert.Equal(t, platform.DeploymentStatusPending, d.Status)

	active, err := s.UpdateDeployment(d.ID, func(d *platform.Deployment) { d.Status = platform.DeploymentStatusActive })
	require.NoError(t, err)
	assert.Equal(t, platform.DeploymentStatusActive, active.Status)

	byAgent, total := s.ListDeployments(DeploymentFilter{AgentID: "agt_1"}, 1, 20)
	require.Len(t, byAgent, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, d.ID, byAgent[0].ID)

	prod, _ := s.ListDeployments(DeploymentFilter{Environment: platform.EnvironmentProduction}, 1, 20)
	require.Len(t, prod, 1)
	assert.Equal(t, "Hotline", prod[0].Name)

	running, _ := s.ListDeployments(DeploymentFilter{Status: platform.DeploymentStatusActive}, 1, 20)
	assert.Len(t, running, 1)

	require.NoError(t, s.DeleteDeployment(d.ID))
	_, err = s.GetDeployment(d.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Authenticate(t *testing.T) {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	s := fixedStore("cs_key_abcd", now)

	assert.False(t, s.Authenticate(""))
	assert.False(t, s.Authenticate("cs_other"))
	assert.Nil(t, s.APIKeyInfo().LastUsedAt)

	assert.True(t, s.Authenticate("cs_key_abcd"))
	info := s.APIKeyInfo()
	assert.Equal(t, "abcd", info.Last4Chars)
	require.NotNil(t, info.LastUsedAt)
	assert.Equal(t, now, *info.LastUsedAt)

	day, month, last := s.RequestCounts()
	assert.Equal(t, 1, day)
	assert.Equal(t, 1, month)
	require.NotNil(t, last)
}

func TestStore_RequestCounts(t *testing.T) {
	now := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)
	s := fixedStore(DefaultAPIKey, now)
	s.requests = []time.Time{
		now.Add(-72 * time.Hour), // April
		now.Add(-30 * time.Hour), // May 1st
		now.Add(-time.Hour),
	}

	day, month, last := s.RequestCounts()
	assert.Equal(t, 1, day)
	assert.Equal(t, 2, month)
	require.NotNil(t, last)
	assert.Equal(t, now.Add(-time.Hour), *last)
}

func TestStore_RotateAPIKey(t *testing.T) {
	s := NewStore(DefaultAPIKey)

	key := s.RotateAPIKey()
	assert.NotEqual(t, DefaultAPIKey, key)
	assert.Regexp(t, `^cs_[0-9a-f]{32}$`, key)
	assert.Equal(t, key, s.APIKey())

	assert.False(t, s.Authenticate(DefaultAPIKey))
	assert.True(t, s.Authenticate(key))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 3)
	assert.Equal(t, 3, rl.Limit())
	assert.Equal(t, 3, rl.Remaining())

	assert.True(t, rl.limiter.Allow())
	assert.Equal(t, 2, rl.Remaining())
}

func TestStore_AuthenticatePrunesOldRequests(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		kept int
	}{
		// The month window is wider than 24h: April drops, May 1st stays.
		{"mid month", time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC), 1},
		// The 24h window reaches into April: only the 3-day-old entry drops.
		{"first of month", time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := fixedStore(DefaultAPIKey, tt.now)
			s.requests = []time.Time{
				tt.now.Add(-72 * time.Hour),
				tt.now.Add(-20 * time.Hour),
			}

			require.True(t, s.Authenticate(DefaultAPIKey))
			assert.Len(t, s.requests, tt.kept+1)
			assert.Equal(t, tt.now.Add(-20*time.Hour), s.requests[0])
		})
	}
}
