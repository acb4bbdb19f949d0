package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gilliangoud/RRCLiveLaps/component"
)

type fakeComponent struct {
	mu      sync.Mutex
	healthy bool
	state   string
}

func (f *fakeComponent) set(healthy bool, state string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.healthy, f.state = healthy, state
}

func (f *fakeComponent) Meta() component.Metadata { return component.Metadata{Name: "fake"} }

func (f *fakeComponent) Health() component.HealthStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return component.HealthStatus{Healthy: f.healthy, State: f.state}
}

func (f *fakeComponent) DataFlow() component.FlowMetrics {
	return component.FlowMetrics{LastActivity: time.Unix(100, 0)}
}

func TestMonitor_UpdateAndGet(t *testing.T) {
	m := NewMonitor()
	m.Update("source", Status{Component: "wrong", Status: LevelHealthy})

	got, ok := m.Get("source")
	if !ok {
		t.Fatal("source should exist after update")
	}
	if got.Component != "source" {
		t.Errorf("Component = %q, want source", got.Component)
	}
	if got.Timestamp.IsZero() {
		t.Error("Update should set a timestamp")
	}

	if _, ok := m.Get("missing"); ok {
		t.Error("missing component should not exist")
	}
}

func TestMonitor_TrackPollsComponent(t *testing.T) {
	m := NewMonitor()
	c := &fakeComponent{}
	c.set(true, "running")
	m.Track("decoder", c)

	got, ok := m.Get("decoder")
	if !ok || !got.IsHealthy() {
		t.Fatalf("expected healthy decoder, got %+v", got)
	}
	if !got.Metrics.LastActivity.Equal(time.Unix(100, 0)) {
		t.Errorf("LastActivity not taken from DataFlow: %v", got.Metrics.LastActivity)
	}

	c.set(false, "stopped")
	got, _ = m.Get("decoder")
	if !got.IsUnhealthy() {
		t.Errorf("expected unhealthy after state change, got %q", got.Status)
	}

	m.Remove("decoder")
	if m.Count() != 0 {
		t.Errorf("Count() = %d after Remove, want 0", m.Count())
	}
}

func TestMonitor_AggregateHealth(t *testing.T) {
	m := NewMonitor()
	m.UpdateHealthy("websocket", "serving")
	m.UpdateDegraded("timing-source", "disconnected")

	agg := m.AggregateHealth("rrclivelaps")
	if !agg.IsDegraded() {
		t.Fatalf("expected degraded aggregate, got %q", agg.Status)
	}
	if len(agg.SubStatuses) != 2 || agg.SubStatuses[0].Component != "timing-source" {
		t.Errorf("sub-statuses should be sorted by name: %+v", agg.SubStatuses)
	}

	m.UpdateUnhealthy("websocket", "closed")
	if agg := m.AggregateHealth("rrclivelaps"); !agg.IsUnhealthy() {
		t.Errorf("expected unhealthy aggregate, got %q", agg.Status)
	}
}

func TestMonitor_Handler(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(m *Monitor)
		wantCode int
		want     string
	}{
		{"healthy", func(m *Monitor) { m.UpdateHealthy("a", "") }, http.StatusOK, LevelHealthy},
		{"degraded is still served", func(m *Monitor) { m.UpdateDegraded("a", "") }, http.StatusOK, LevelDegraded},
		{"unhealthy", func(m *Monitor) { m.UpdateUnhealthy("a", "") }, http.StatusServiceUnavailable, LevelUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor()
			tt.setup(m)

			rec := httptest.NewRecorder()
			m.Handler("rrclivelaps").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			var body Status
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if body.Status != tt.want || body.Component != "rrclivelaps" {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestMonitor_ConcurrentAccess(t *testing.T) {
	m := NewMonitor()
	m.Track("c", &fakeComponent{healthy: true, state: "running"})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.UpdateHealthy("x", "ok")
		}()
		go func() {
			defer wg.Done()
			_ = m.AggregateHealth("sys")
		}()
	}
	wg.Wait()

	if m.Count() != 2 {
		t.Errorf("Count() = %d, want 2", m.Count())
	}
}
