package runner

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"clickload/internal/scenario"
	"clickload/internal/stats"
)

var ErrNoUsers = errors.New("at least one user is required")

type Runner struct {
	Cfg     Config
	Stats   *stats.Registry
	Client  *http.Client
	Catalog *scenario.Catalog
	Engine  *scenario.TemplateEngine
	Results []RequestResult
	mu      sync.Mutex

	users     atomic.Int64
	inflight  atomic.Int64
	observers []Observer
	start     time.Time

	log *zap.Logger

	// Event Channel
	Updates StatsUpdateChan
}

func NewRunner(cfg Config, catalog *scenario.Catalog, updates StatsUpdateChan, log *zap.Logger) *Runner {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 2000
	t.MaxConnsPerHost = 2000
	t.MaxIdleConnsPerHost = 2000
	t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}

	client := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: t,
	}

	if updates == nil {
		// Avoid nil panics if not provided
		updates = make(StatsUpdateChan, 10)
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Runner{
		Cfg:     cfg,
		Stats:   stats.NewRegistry(),
		Client:  client,
		Catalog: catalog,
		Engine:  scenario.NewTemplateEngine(),
		Updates: updates,
		log:     log,
	}
}

// AddObserver registers o for every recorded request. Call before Run.
func (r *Runner) AddObserver(o Observer) {
	r.observers = append(r.observers, o)
}

// StartTickLoop starts a goroutine that pushes stats updates
func (r *Runner) StartTickLoop(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sendUpdate()
			}
		}
	}()
}

// Snapshot returns the current aggregate view of the run.
func (r *Runner) Snapshot() StatsSnapshot {
	total := r.Stats.Total()
	s := StatsSnapshot{
		Users:    r.users.Load(),
		Requests: total.Requests.Load(),
		Success:  total.Success.Load(),
		Fail:     total.Fail.Load(),
		Bytes:    total.Bytes.Load(),
		Inflight: r.inflight.Load(),
		P50Ms:    ms(total.ResponseTime.Quantile(50)),
		P90Ms:    ms(total.ResponseTime.Quantile(90)),
		P99Ms:    ms(total.ResponseTime.Quantile(99)),
		MaxMs:    ms(total.ResponseTime.Max()),
	}
	r.mu.Lock()
	if !r.start.IsZero() {
		s.Elapsed = time.Since(r.start)
	}
	r.mu.Unlock()
	return s
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func (r *Runner) sendUpdate() {
	s := r.Snapshot()

	// Non-blocking send
	select {
	case r.Updates <- s:
	default:
		// Drop update if channel full, UI acts as backpressure
	}
}

// Run spawns the configured users and blocks until the run time is over or
// ctx is cancelled, and every user has stopped.
func (r *Runner) Run(ctx context.Context) error {
	if r.Cfg.Users <= 0 {
		return ErrNoUsers
	}
	profiles, err := r.Catalog.Select(r.Cfg.Profiles...)
	if err != nil {
		return err
	}
	for _, p := range profiles {
		if err := p.Validate(r.Engine); err != nil {
			return err
		}
	}

	if r.Cfg.RunTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Cfg.RunTime)
		defer cancel()
	}

	r.mu.Lock()
	r.start = time.Now()
	r.mu.Unlock()

	// Start Tick Loop for UI
	r.StartTickLoop(ctx, 200*time.Millisecond)

	limit := rate.Inf
	if r.Cfg.SpawnRate > 0 {
		limit = rate.Limit(r.Cfg.SpawnRate)
	}
	limiter := rate.NewLimiter(limit, 1)

	plan := Distribute(profiles, r.Cfg.Users)
	r.log.Info("spawning users",
		zap.Int("users", len(plan)),
		zap.Float64("spawn_rate", r.Cfg.SpawnRate),
		zap.String("host", r.Cfg.Host),
		zap.Strings("profiles", profileNames(profiles)),
	)

	var wg sync.WaitGroup
	spawned := 0
	for _, p := range plan {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		if err := r.spawn(ctx, &wg, p); err != nil {
			r.log.Error("failed to start user", zap.String("profile", p.Name), zap.Error(err))
			continue
		}
		spawned++
	}
	if spawned == len(plan) {
		r.log.Info("all users spawned", zap.Int("users", spawned))
	}

	wg.Wait()
	r.sendUpdate()
	r.log.Info("run finished",
		zap.Uint64("requests", r.Stats.Total().Requests.Load()),
		zap.Uint64("failures", r.Stats.Total().Fail.Load()),
	)
	return nil
}

func (r *Runner) spawn(ctx context.Context, wg *sync.WaitGroup, p *scenario.Profile) error {
	c := &userClient{r: r, profile: p.Name}
	u, err := scenario.NewUser(p, c, r.Engine, r.Cfg.Host)
	if err != nil {
		return err
	}
	c.userID = u.ID

	wg.Add(1)
	go func() {
		defer wg.Done()
		r.userDelta(p.Name, 1)
		defer r.userDelta(p.Name, -1)

		if err := u.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			r.log.Warn("user stopped", zap.String("user", u.ID), zap.Error(err))
		}
	}()
	return nil
}

func (r *Runner) userDelta(profile string, delta int) {
	r.users.Add(int64(delta))
	for _, o := range r.observers {
		o.ObserveUsers(profile, delta)
	}
}

func (r *Runner) record(res RequestResult) {
	r.Stats.Record(res.Method, res.Name, res.TimeStamp, res.Success, res.Bytes, res.Latency, res.Failure)

	r.mu.Lock()
	r.Results = append(r.Results, res)
	r.mu.Unlock()

	for _, o := range r.observers {
		o.ObserveRequest(res)
	}
}

// ResultsCopy returns the recorded results so far.
func (r *Runner) ResultsCopy() []RequestResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RequestResult, len(r.Results))
	copy(out, r.Results)
	return out
}

func (r *Runner) GetInflight() int64 {
	return r.inflight.Load()
}

func (r *Runner) GetUsers() int64 {
	return r.users.Load()
}

// Distribute assigns n users to profiles in proportion to their weights,
// interleaving them so that any prefix of the plan is also proportional.
func Distribute(profiles []*scenario.Profile, n int) []*scenario.Profile {
	if len(profiles) == 0 || n <= 0 {
		return nil
	}
	total := 0
	for _, p := range profiles {
		total += p.SpawnWeight()
	}

	current := make([]int, len(profiles))
	out := make([]*scenario.Profile, 0, n)
	for i := 0; i < n; i++ {
		best := 0
		for j, p := range profiles {
			current[j] += p.SpawnWeight()
			if current[j] > current[best] {
				best = j
			}
		}
		current[best] -= total
		out = append(out, profiles[best])
	}
	return out
}

func profileNames(profiles []*scenario.Profile) []string {
	out := make([]string, len(profiles))
	for i, p := range profiles {
		out[i] = p.Name
	}
	return out
}

