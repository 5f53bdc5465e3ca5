// Package stats aggregates request outcomes per request name.
package stats

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// TotalName labels the aggregated entry.
const TotalName = "Aggregated"

// Key identifies a stats entry.
type Key struct {
	Method string
	Name   string
}

// Entry holds real-time metrics for one request name
type Entry struct {
	Key Key

	Requests atomic.Uint64
	Success  atomic.Uint64
	Fail     atomic.Uint64
	Bytes    atomic.Uint64

	// Response times (microseconds)
	ResponseTime *SafeHistogram

	mu    sync.Mutex
	first time.Time
	last  time.Time
}

func NewEntry(key Key) *Entry {
	return &Entry{Key: key, ResponseTime: NewSafeHistogram()}
}

// Add records one request that completed at `at`.
func (e *Entry) Add(at time.Time, success bool, bytes int64, responseTime time.Duration) {
	e.Requests.Add(1)
	if success {
		e.Success.Add(1)
	} else {
		e.Fail.Add(1)
	}
	if bytes > 0 {
		e.Bytes.Add(uint64(bytes))
	}
	e.ResponseTime.Record(responseTime)

	e.mu.Lock()
	if e.first.IsZero() || at.Before(e.first) {
		e.first = at
	}
	if at.After(e.last) {
		e.last = at
	}
	e.mu.Unlock()
}

// ErrorRate returns failures as a percentage of requests.
func (e *Entry) ErrorRate() float64 {
	reqs := e.Requests.Load()
	if reqs == 0 {
		return 0
	}
	return float64(e.Fail.Load()) / float64(reqs) * 100
}

// RPS is the request rate over the entry's observed window.
func (e *Entry) RPS() float64 {
	e.mu.Lock()
	window := e.last.Sub(e.first)
	e.mu.Unlock()
	reqs := e.Requests.Load()
	if window < time.Second {
		window = time.Second
	}
	return float64(reqs) / window.Seconds()
}

// Snapshot is an immutable copy of an entry for reporting.
type Snapshot struct {
	Method      string        `json:"method"`
	Name        string        `json:"name"`
	Requests    uint64        `json:"requests"`
	Failures    uint64        `json:"failures"`
	Bytes       uint64        `json:"bytes"`
	ErrorRate   float64       `json:"error_rate"`
	RPS         float64       `json:"rps"`
	Mean        time.Duration `json:"mean"`
	Min         time.Duration `json:"min"`
	P50         time.Duration `json:"p50"`
	P90         time.Duration `json:"p90"`
	P95         time.Duration `json:"p95"`
	P99         time.Duration `json:"p99"`
	Max         time.Duration `json:"max"`
	AvgBodySize float64       `json:"avg_body_size"`
}

func (e *Entry) Snapshot() Snapshot {
	s := Snapshot{
		Method:    e.Key.Method,
		Name:      e.Key.Name,
		Requests:  e.Requests.Load(),
		Failures:  e.Fail.Load(),
		Bytes:     e.Bytes.Load(),
		ErrorRate: e.ErrorRate(),
		RPS:       e.RPS(),
		Mean:      e.ResponseTime.Mean(),
		Min:       e.ResponseTime.Min(),
		P50:       e.ResponseTime.Quantile(50),
		P90:       e.ResponseTime.Quantile(90),
		P95:       e.ResponseTime.Quantile(95),
		P99:       e.ResponseTime.Quantile(99),
		Max:       e.ResponseTime.Max(),
	}
	if s.Requests > 0 {
		s.AvgBodySize = float64(s.Bytes) / float64(s.Requests)
	}
	return s
}

// Failure is a group of identical failures.
type Failure struct {
	Method string `json:"method"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
	Count  uint64 `json:"count"`
}

type failureKey struct {
	Key
	Reason string
}

// Registry holds one entry per (method, name) plus an aggregated total.
type Registry struct {
	mu       sync.RWMutex
	entries  map[Key]*Entry
	failures map[failureKey]uint64
	total    *Entry
}

func NewRegistry() *Registry {
	return &Registry{
		entries:  make(map[Key]*Entry),
		failures: make(map[failureKey]uint64),
		total:    NewEntry(Key{Name: TotalName}),
	}
}

func (r *Registry) entry(key Key) *Entry {
	r.mu.RLock()
	e, ok := r.entries[key]
	r.mu.RUnlock()
	if ok {
		return e
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok = r.entries[key]; ok {
		return e
	}
	e = NewEntry(key)
	r.entries[key] = e
	return e
}

// Record adds one request outcome. reason is ignored for successes.
func (r *Registry) Record(method, name string, at time.Time, success bool, bytes int64, responseTime time.Duration, reason string) {
	r.entry(Key{Method: method, Name: name}).Add(at, success, bytes, responseTime)
	r.total.Add(at, success, bytes, responseTime)

	if !success {
		r.mu.Lock()
		r.failures[failureKey{Key: Key{Method: method, Name: name}, Reason: reason}]++
		r.mu.Unlock()
	}
}

// Total returns the aggregated entry.
func (r *Registry) Total() *Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.total
}

// Entries returns snapshots sorted by name, then method.
func (r *Registry) Entries() []Snapshot {
	r.mu.RLock()
	out := make([]Snapshot, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Snapshot())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// Failures returns grouped failures, most frequent first.
func (r *Registry) Failures() []Failure {
	r.mu.RLock()
	out := make([]Failure, 0, len(r.failures))
	for k, n := range r.failures {
		out = append(out, Failure{Method: k.Method, Name: k.Name, Reason: k.Reason, Count: n})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}

// Reset drops every entry and failure.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[Key]*Entry)
	r.failures = make(map[failureKey]uint64)
	r.total = NewEntry(Key{Name: TotalName})
}
