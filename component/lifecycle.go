package component

import (
	"sync/atomic"
	"time"
)

// State represents the current lifecycle state of a component
type State int32

const (
	// StateCreated indicates the component was created but never run
	StateCreated State = iota
	// StateConnecting indicates the component is opening its transport
	StateConnecting
	// StateHandshaking indicates the transport is open and the protocol is being negotiated
	StateHandshaking
	// StateRunning indicates the component is streaming
	StateRunning
	// StateStopped indicates the component's session ended normally
	StateStopped
	// StateFailed indicates the component's session ended with an error
	StateFailed
)

// String returns a string representation of the component state
func (cs State) String() string {
	switch cs {
	case StateCreated:
		return "created"
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FlowCounters holds the atomic counters components use to answer Health and DataFlow
type FlowCounters struct {
	state        atomic.Int32
	messages     atomic.Int64
	bytes        atomic.Int64
	errors       atomic.Int64
	lastActivity atomic.Int64 // unix nanos
	lastError    atomic.Value // string
	startTime    time.Time
}

// NewFlowCounters creates counters with the uptime clock started now
func NewFlowCounters() *FlowCounters {
	return &FlowCounters{startTime: time.Now()}
}

// SetState records the lifecycle state
func (f *FlowCounters) SetState(s State) { f.state.Store(int32(s)) }

// State returns the lifecycle state
func (f *FlowCounters) State() State { return State(f.state.Load()) }

// RecordMessage counts one processed message of n bytes
func (f *FlowCounters) RecordMessage(n int) {
	f.messages.Add(1)
	f.bytes.Add(int64(n))
	f.lastActivity.Store(time.Now().UnixNano())
}

// RecordError counts an error and remembers its message
func (f *FlowCounters) RecordError(err error) {
	if err == nil {
		return
	}
	f.errors.Add(1)
	f.lastError.Store(err.Error())
}

// Messages returns the processed message count
func (f *FlowCounters) Messages() int64 { return f.messages.Load() }

// Errors returns the error count
func (f *FlowCounters) Errors() int64 { return f.errors.Load() }

// Health builds a HealthStatus; healthy reports the component's own view
func (f *FlowCounters) Health(healthy bool) HealthStatus {
	lastErr, _ := f.lastError.Load().(string)
	return HealthStatus{
		Healthy:    healthy,
		State:      f.State().String(),
		LastCheck:  time.Now(),
		ErrorCount: int(f.errors.Load()),
		LastError:  lastErr,
		Uptime:     time.Since(f.startTime),
	}
}

// DataFlow builds FlowMetrics averaged over the component uptime
func (f *FlowCounters) DataFlow() FlowMetrics {
	messages := f.messages.Load()
	bytes := f.bytes.Load()
	errorCount := f.errors.Load()

	var fm FlowMetrics
	if uptime := time.Since(f.startTime).Seconds(); uptime > 0 {
		fm.MessagesPerSecond = float64(messages) / uptime
		fm.BytesPerSecond = float64(bytes) / uptime
	}
	if messages > 0 {
		fm.ErrorRate = float64(errorCount) / float64(messages)
	}
	if ns := f.lastActivity.Load(); ns != 0 {
		fm.LastActivity = time.Unix(0, ns)
	}
	return fm
}
