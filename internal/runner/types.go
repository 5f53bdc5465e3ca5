package runner

import (
	"time"
)

type Config struct {
	Host     string   `json:"host"`
	Profiles []string `json:"profiles"`

	// Closed loop: Users virtual users, started SpawnRate per second.
	Users     int     `json:"users"`
	SpawnRate float64 `json:"spawn_rate"`

	// RunTime bounds the whole run. Zero runs until the context is cancelled.
	RunTime time.Duration `json:"run_time"`
	Timeout time.Duration `json:"timeout"`

	OutPrefix string `json:"out_prefix,omitempty"`
}

// TotalDuration is the expected wall time of the run.
func (c Config) TotalDuration() time.Duration {
	return c.RunTime
}

// RequestResult is one completed request.
type RequestResult struct {
	TimeStamp time.Time     `json:"timestamp"`
	Profile   string        `json:"profile"`
	UserID    string        `json:"user_id"`
	Method    string        `json:"method"`
	Name      string        `json:"name"`
	URL       string        `json:"url"`
	Status    int           `json:"status"`
	Latency   time.Duration `json:"latency"`
	Bytes     int64         `json:"bytes"`
	Success   bool          `json:"success"`
	Failure   string        `json:"failure,omitempty"`
}

// StatsSnapshot is sent over the updates channel
type StatsSnapshot struct {
	Elapsed  time.Duration
	Users    int64
	Requests uint64
	Success  uint64
	Fail     uint64
	Bytes    uint64
	Inflight int64

	// Pre-calculated percentiles for the UI (cheap copy)
	P50Ms float64
	P90Ms float64
	P99Ms float64
	MaxMs float64
}

// StatsUpdateChan is the channel type
type StatsUpdateChan chan StatsSnapshot

// Observer receives every recorded request and user count changes.
type Observer interface {
	ObserveRequest(res RequestResult)
	ObserveUsers(profile string, delta int)
}
