package health

import (
	"testing"
	"time"

	"github.com/gilliangoud/RRCLiveLaps/component"
)

func TestStatus_Levels(t *testing.T) {
	tests := []struct {
		name          string
		status        Status
		wantHealthy   bool
		wantDegraded  bool
		wantUnhealthy bool
	}{
		{"healthy", NewHealthy("a", "ok"), true, false, false},
		{"degraded", NewDegraded("a", "slow"), false, true, false},
		{"unhealthy", NewUnhealthy("a", "down"), false, false, true},
		{"empty", Status{}, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.IsHealthy(); got != tt.wantHealthy {
				t.Errorf("IsHealthy() = %v, want %v", got, tt.wantHealthy)
			}
			if got := tt.status.IsDegraded(); got != tt.wantDegraded {
				t.Errorf("IsDegraded() = %v, want %v", got, tt.wantDegraded)
			}
			if got := tt.status.IsUnhealthy(); got != tt.wantUnhealthy {
				t.Errorf("IsUnhealthy() = %v, want %v", got, tt.wantUnhealthy)
			}
			if tt.status.Healthy != tt.wantHealthy {
				t.Errorf("Healthy field = %v, want %v", tt.status.Healthy, tt.wantHealthy)
			}
		})
	}
}

func TestSanitizeErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"plain", "lineproto.Run: session failed", "lineproto.Run: session failed"},
		{"tcp endpoint", "dial tcp://10.0.0.5:3601 refused", "dial [URL] refused"},
		{"serial endpoint", "open serial:///dev/ttyUSB0 failed", "open [URL] failed"},
		{"device path", "open /dev/ttyUSB0: no such file", "open [PATH]: no such file"},
		{"windows com port", "open COM3: access denied", "open [PATH]: access denied"},
		{"io timeout keeps words", "read: i/o timeout", "read: i/o timeout"},
		{"nats url", "cannot connect to nats://localhost:4222", "cannot connect to [URL]"},
		{"address", "read tcp 192.168.1.10:50000->192.168.1.20:3601: connection reset",
			"read tcp [IP][PORT]->[IP][PORT]: connection reset"},
		{"bind port", "listen tcp :3601: address already in use", "listen tcp [PORT]: address already in use"},
		{"credentials", "auth failed with password:secretpass123", "auth failed with [REDACTED]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeErrorMessage(tt.input); got != tt.expected {
				t.Errorf("sanitizeErrorMessage(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFromComponentHealth(t *testing.T) {
	ch := component.HealthStatus{
		Healthy:    false,
		State:      "failed",
		ErrorCount: 2,
		LastError:  "lineproto.session: dial failed: dial tcp 10.0.0.5:3601: connection refused",
		Uptime:     time.Minute,
	}

	status := FromComponentHealth("decoder", ch)

	if status.Component != "decoder" {
		t.Errorf("Component = %q, want decoder", status.Component)
	}
	if !status.IsUnhealthy() || status.Healthy {
		t.Errorf("expected unhealthy status, got %q", status.Status)
	}
	want := "Component failed: lineproto.session: dial failed: dial tcp [IP][PORT]: connection refused"
	if status.Message != want {
		t.Errorf("Message = %q, want %q", status.Message, want)
	}
	if status.Metrics == nil || status.Metrics.ErrorCount != 2 || status.Metrics.State != "failed" {
		t.Errorf("unexpected metrics: %+v", status.Metrics)
	}
}

func TestFromComponentHealth_HealthyWithoutState(t *testing.T) {
	status := FromComponentHealth("x", component.HealthStatus{Healthy: true})
	if !status.IsHealthy() {
		t.Errorf("expected healthy, got %q", status.Status)
	}
	if status.Message != "Component healthy" {
		t.Errorf("Message = %q", status.Message)
	}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name string
		subs []Status
		want string
	}{
		{"no components", nil, LevelHealthy},
		{"all healthy", []Status{NewHealthy("a", ""), NewHealthy("b", "")}, LevelHealthy},
		{"one degraded", []Status{NewHealthy("a", ""), NewDegraded("b", "")}, LevelDegraded},
		{"unhealthy wins", []Status{NewDegraded("a", ""), NewUnhealthy("b", "")}, LevelUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate("system", tt.subs)
			if got.Status != tt.want {
				t.Errorf("Aggregate().Status = %q, want %q", got.Status, tt.want)
			}
			if len(got.SubStatuses) != len(tt.subs) {
				t.Errorf("SubStatuses len = %d, want %d", len(got.SubStatuses), len(tt.subs))
			}
		})
	}
}
