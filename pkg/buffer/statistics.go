package buffer

import (
	"sync"
	"sync/atomic"
	"time"
)

// Statistics tracks ring activity.
type Statistics struct {
	appends    atomic.Int64
	reads      atomic.Int64
	overwrites atomic.Int64
	lags       atomic.Int64

	mu          sync.RWMutex
	startTime   time.Time
	currentSize int64
	maxSize     int64
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{
		startTime: time.Now(),
	}
}

// Append records an append.
func (s *Statistics) Append() { s.appends.Add(1) }

// Read records a successful read.
func (s *Statistics) Read() { s.reads.Add(1) }

// Overwrite records an item overwritten before every reader saw it.
func (s *Statistics) Overwrite() { s.overwrites.Add(1) }

// Lag records a read that asked for an overwritten sequence.
func (s *Statistics) Lag() { s.lags.Add(1) }

// UpdateSize updates the current ring size.
func (s *Statistics) UpdateSize(size int64) {
	s.mu.Lock()
	s.currentSize = size
	if size > s.maxSize {
		s.maxSize = size
	}
	s.mu.Unlock()
}

// Appends returns the total number of appends.
func (s *Statistics) Appends() int64 { return s.appends.Load() }

// Reads returns the total number of successful reads.
func (s *Statistics) Reads() int64 { return s.reads.Load() }

// Overwrites returns the total number of overwritten items.
func (s *Statistics) Overwrites() int64 { return s.overwrites.Load() }

// Lags returns the total number of lagged reads.
func (s *Statistics) Lags() int64 { return s.lags.Load() }

// CurrentSize returns the number of retained items.
func (s *Statistics) CurrentSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentSize
}

// MaxSize returns the largest number of items retained at once.
func (s *Statistics) MaxSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxSize
}

// Throughput returns the average number of appends per second.
func (s *Statistics) Throughput() float64 {
	elapsed := s.Uptime()
	if elapsed == 0 {
		return 0.0
	}
	return float64(s.Appends()) / elapsed.Seconds()
}

// Uptime returns how long the ring has existed.
func (s *Statistics) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.startTime)
}

// StatsSummary is a snapshot of ring statistics.
type StatsSummary struct {
	Appends     int64         `json:"appends"`
	Reads       int64         `json:"reads"`
	Overwrites  int64         `json:"overwrites"`
	Lags        int64         `json:"lags"`
	CurrentSize int64         `json:"current_size"`
	MaxSize     int64         `json:"max_size"`
	Throughput  float64       `json:"throughput"`
	Uptime      time.Duration `json:"uptime"`
}

// Summary returns a snapshot of all statistics.
func (s *Statistics) Summary() StatsSummary {
	return StatsSummary{
		Appends:     s.Appends(),
		Reads:       s.Reads(),
		Overwrites:  s.Overwrites(),
		Lags:        s.Lags(),
		CurrentSize: s.CurrentSize(),
		MaxSize:     s.MaxSize(),
		Throughput:  s.Throughput(),
		Uptime:      s.Uptime(),
	}
}
