package platformtest

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/conversimple/conversimple-go/platform"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

// Store is the in-memory state behind a fake platform. Entities are
// returned by value; their nested maps are shared with the store.
type Store struct {
	mu          sync.RWMutex
	now         func() time.Time
	agents      []*platform.Agent
	deployments []*platform.Deployment
	specs       map[string]map[string]any
	key         apiKeyState
	requests    []time.Time
}

type apiKeyState struct {
	value     string
	createdAt time.Time
	lastUsed  *time.Time
}

// NewStore creates an empty store whose API key is apiKey.
func NewStore(apiKey string) *Store {
	s := &Store{
		now:   func() time.Time { return time.Now().UTC() },
		specs: make(map[string]map[string]any),
	}
	s.key = apiKeyState{value: apiKey, createdAt: s.now()}
	return s
}

// AgentFilter selects agents in ListAgents. Empty fields match everything.
type AgentFilter struct {
	Status platform.AgentStatus
	Search string
}

func (f AgentFilter) match(a *platform.Agent) bool {
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(a.Name), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

func (s *Store) CreateAgent(a platform.Agent) platform.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	a.ID = uuid.NewString()
	a.Status = platform.AgentStatusDraft
	a.Version = 1
	a.CreatedAt = now
	a.UpdatedAt = now
	s.agents = append(s.agents, &a)
	s.specs[a.ID] = map[string]any{
		"agent_id": a.ID,
		"tools":    []any{},
	}
	return a
}

func (s *Store) GetAgent(id string) (platform.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a := s.findAgent(id)
	if a == nil {
		return platform.Agent{}, ErrNotFound
	}
	return *a, nil
}

// ListAgents returns the page of matching agents in creation order, and the
// total number of matches.
func (s *Store) ListAgents(f AgentFilter, page, perPage int) ([]platform.Agent, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []platform.Agent
	for _, a := range s.agents {
		if f.match(a) {
			matched = append(matched, *a)
		}
	}
	return paginate(matched, page, perPage), len(matched)
}

// UpdateAgent applies fn to the stored agent and bumps its version.
func (s *Store) UpdateAgent(id string, fn func(*platform.Agent)) (platform.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.findAgent(id)
	if a == nil {
		return platform.Agent{}, ErrNotFound
	}
	fn(a)
	a.Version++
	a.UpdatedAt = s.now()
	return *a, nil
}

func (s *Store) DeleteAgent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, a := range s.agents {
		if a.ID == id {
			s.agents = append(s.agents[:i], s.agents[i+1:]...)
			delete(s.specs, id)
			return nil
		}
	}
	return ErrNotFound
}

func (s *Store) AgentSpec(id string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	spec, ok := s.specs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return spec, nil
}

func (s *Store) findAgent(id string) *platform.Agent {
	for _, a := range s.agents {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// DeploymentFilter selects deployments in ListDeployments. Empty fields
// match everything.
type DeploymentFilter struct {
	AgentID     string
	Status      platform.DeploymentStatus
	Environment platform.Environment
}

func (f DeploymentFilter) match(d *platform.Deployment) bool {
	if f.AgentID != "" && d.AgentID != f.AgentID {
		return false
	}
	if f.Status != "" && d.Status != f.Status {
		return false
	}
	if f.Environment != "" && d.Environment != f.Environment {
		return false
	}
	return true
}

func (s *Store) CreateDeployment(d platform.Deployment) platform.Deployment {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	d.ID = uuid.NewString()
	d.Status = platform.DeploymentStatusPending
	d.CreatedAt = now
	d.UpdatedAt = now
	s.deployments = append(s.deployments, &d)
	return d
}

func (s *Store) GetDeployment(id string) (platform.Deployment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d := s.findDeployment(id)
	if d == nil {
		return platform.Deployment{}, ErrNotFound
	}
	return *d, nil
}

func (s *Store) ListDeployments(f DeploymentFilter, page, perPage int) ([]platform.Deployment, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []platform.Deployment
	for _, d := range s.deployments {
		if f.match(d) {
			matched = append(matched, *d)
		}
	}
	return paginate(matched, page, perPage), len(matched)
}

func (s *Store) UpdateDeployment(id string, fn func(*platform.Deployment)) (platform.Deployment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.findDeployment(id)
	if d == nil {
		return platform.Deployment{}, ErrNotFound
	}
	fn(d)
	d.UpdatedAt = s.now()
	return *d, nil
}

func (s *Store) DeleteDeployment(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, d := range s.deployments {
		if d.ID == id {
			s.deployments = append(s.deployments[:i], s.deployments[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *Store) findDeployment(id string) *platform.Deployment {
	for _, d := range s.deployments {
		if d.ID == id {
			return d
		}
	}
	return nil
}

// APIKey returns the key currently accepted by the server.
func (s *Store) APIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key.value
}

// Authenticate reports whether key is the current key and, if so, records
// the request for usage accounting.
func (s *Store) Authenticate(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key == "" || key != s.key.value {
		return false
	}
	now := s.now()
	s.key.lastUsed = &now
	s.requests = append(pruneRequests(s.requests, now), now)
	return true
}

// pruneRequests drops requests that no longer count toward either usage
// window: older than 24 hours and before the start of the month.
func pruneRequests(requests []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-24 * time.Hour)
	if monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()); monthStart.Before(cutoff) {
		cutoff = monthStart
	}
	i := 0
	for i < len(requests) && requests[i].Before(cutoff) {
		i++
	}
	return requests[i:]
}

// RotateAPIKey replaces the current key and returns the new one.
func (s *Store) RotateAPIKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.key = apiKeyState{
		value:     "cs_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		createdAt: s.now(),
	}
	return s.key.value
}

func (s *Store) APIKeyInfo() platform.APIKeyInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	last4 := s.key.value
	if len(last4) > 4 {
		last4 = last4[len(last4)-4:]
	}
	return platform.APIKeyInfo{
		Status:     platform.APIKeyStatusActive,
		Last4Chars: last4,
		CreatedAt:  s.key.createdAt,
		LastUsedAt: s.key.lastUsed,
	}
}

// RequestCounts returns the number of authenticated requests in the last 24
// hours and in the current calendar month, and the time of the latest one.
func (s *Store) RequestCounts() (day, month int, last *time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	dayStart := now.Add(-24 * time.Hour)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	for _, t := range s.requests {
		if t.After(dayStart) {
			day++
		}
		if !t.Before(monthStart) {
			month++
		}
	}
	if n := len(s.requests); n > 0 {
		t := s.requests[n-1]
		last = &t
	}
	return day, month, last
}

func paginate[T any](items []T, page, perPage int) []T {
	start := (page - 1) * perPage
	if start >= len(items) {
		return []T{}
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
