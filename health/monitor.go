package health

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gilliangoud/RRCLiveLaps/component"
)

// Monitor tracks health of multiple components in a thread-safe manner
type Monitor struct {
	mu         sync.RWMutex
	statuses   map[string]Status
	components map[string]component.Discoverable
}

// NewMonitor creates a new health monitor
func NewMonitor() *Monitor {
	return &Monitor{
		statuses:   make(map[string]Status),
		components: make(map[string]component.Discoverable),
	}
}

// Update sets the pushed status for a named component
func (m *Monitor) Update(name string, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status.Component = name
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}
	m.statuses[name] = status
}

// UpdateHealthy marks a component healthy
func (m *Monitor) UpdateHealthy(name, message string) {
	m.Update(name, NewHealthy(name, message))
}

// UpdateUnhealthy marks a component unhealthy
func (m *Monitor) UpdateUnhealthy(name, message string) {
	m.Update(name, NewUnhealthy(name, message))
}

// UpdateDegraded marks a component degraded
func (m *Monitor) UpdateDegraded(name, message string) {
	m.Update(name, NewDegraded(name, message))
}

// Track registers a component whose Health is read on every Get and aggregate.
// A tracked component shadows a pushed status with the same name.
func (m *Monitor) Track(name string, c component.Discoverable) {
	if c == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components[name] = c
}

// Get returns the current status of a named component
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	c, tracked := m.components[name]
	status, exists := m.statuses[name]
	m.mu.RUnlock()

	if tracked {
		return FromComponent(name, c), true
	}
	return status, exists
}

// GetAll returns a snapshot of every status, tracked components included
func (m *Monitor) GetAll() map[string]Status {
	m.mu.RLock()
	result := make(map[string]Status, len(m.statuses)+len(m.components))
	for name, status := range m.statuses {
		result[name] = status
	}
	components := make(map[string]component.Discoverable, len(m.components))
	for name, c := range m.components {
		components[name] = c
	}
	m.mu.RUnlock()

	// component Health may take locks of its own; read it outside ours
	for name, c := range components {
		result[name] = FromComponent(name, c)
	}
	return result
}

// Remove stops monitoring a component
func (m *Monitor) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.statuses, name)
	delete(m.components, name)
}

// Count returns the number of monitored components
func (m *Monitor) Count() int {
	return len(m.GetAll())
}

// AggregateHealth returns the combined status, sub-statuses sorted by name
func (m *Monitor) AggregateHealth(systemName string) Status {
	all := m.GetAll()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	subStatuses := make([]Status, 0, len(names))
	for _, name := range names {
		subStatuses = append(subStatuses, all[name])
	}
	return Aggregate(systemName, subStatuses)
}

// Handler serves the aggregate as JSON. Unhealthy answers 503, healthy and
// degraded answer 200.
func (m *Monitor) Handler(systemName string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		status := m.AggregateHealth(systemName)

		code := http.StatusOK
		if status.IsUnhealthy() {
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	})
}
