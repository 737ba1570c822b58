package resilience

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// GuardConfig configures the per-service protection applied by a Guard.
type GuardConfig struct {
	Retry   RetryPolicy
	Breaker BreakerConfig
	// RatePerSecond limits calls per service. Zero disables limiting.
	RatePerSecond float64
	// Burst is the limiter's bucket size. Defaults to 1.
	Burst int
}

// Guard hands out a rate limiter and circuit breaker per named service and
// runs calls through them with retries.
type Guard struct {
	cfg GuardConfig

	mu       sync.Mutex
	breakers map[string]*Breaker
	limiters map[string]*rate.Limiter
	rates    map[string]float64
}

// NewGuard creates a guard applying cfg to every service.
func NewGuard(cfg GuardConfig) *Guard {
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &Guard{
		cfg:      cfg,
		breakers: make(map[string]*Breaker),
		limiters: make(map[string]*rate.Limiter),
		rates:    make(map[string]float64),
	}
}

// SetRate overrides the rate limit for one service. Zero disables limiting
// for it.
func (g *Guard) SetRate(service string, perSecond float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rates[service] = perSecond
	delete(g.limiters, service)
}

// Breaker returns the named service's breaker, creating it on first use.
func (g *Guard) Breaker(service string) *Breaker {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.breakers[service]
	if !ok {
		b = NewBreaker(service, g.cfg.Breaker)
		g.breakers[service] = b
	}
	return b
}

// States snapshots every breaker the guard has created.
func (g *Guard) States() map[string]State {
	g.mu.Lock()
	breakers := make([]*Breaker, 0, len(g.breakers))
	for _, b := range g.breakers {
		breakers = append(breakers, b)
	}
	g.mu.Unlock()

	out := make(map[string]State, len(breakers))
	for _, b := range breakers {
		out[b.Name()] = b.State()
	}
	return out
}

func (g *Guard) limiter(service string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()
	if l, ok := g.limiters[service]; ok {
		return l
	}
	perSecond, ok := g.rates[service]
	if !ok {
		perSecond = g.cfg.RatePerSecond
	}
	if perSecond <= 0 {
		return nil
	}
	l := rate.NewLimiter(rate.Limit(perSecond), g.cfg.Burst)
	g.limiters[service] = l
	return l
}

// Call runs fn for service: each attempt waits on the service's rate limiter
// and passes through its breaker; transient failures are retried. A nil
// guard calls fn directly.
func Call[T any](ctx context.Context, g *Guard, service string, fn func(ctx context.Context) (T, error)) (T, error) {
	if g == nil {
		return fn(ctx)
	}

	breaker := g.Breaker(service)
	limiter := g.limiter(service)

	policy := g.cfg.Retry
	if policy.OnRetry == nil {
		policy.OnRetry = LogRetry(service, "call")
	}
	retryable := policy.normalized().Retryable
	policy.Retryable = func(err error) bool {
		return !eris.Is(err, ErrOpen) && retryable(err)
	}

	return Retry(ctx, policy, func(ctx context.Context) (T, error) {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				var zero T
				return zero, eris.Wrapf(err, "resilience: %s rate limit", service)
			}
		}
		return Do(ctx, breaker, fn)
	})
}
