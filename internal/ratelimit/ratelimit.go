package ratelimit

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"stellaris/internal/metrics"
)

// Limiter decides whether the client identified by key may make another request.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter keeps one token bucket per client in process memory.
type MemoryLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

// NewMemoryLimiter allows requests per window for each client, with the whole quota available as burst.
func NewMemoryLimiter(requests int, window time.Duration) *MemoryLimiter {
	if requests <= 0 {
		requests = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(window / time.Duration(requests)),
		burst:    requests,
		idle:     10 * window,
		now:      time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1), nil
}

func (l *MemoryLimiter) prune(now time.Time) {
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.idle {
			delete(l.visitors, key)
		}
	}
}

// Middleware rejects over-quota requests with 429. Limiter failures let the request through.
func Middleware(l Limiter, logger zerolog.Logger, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		allowed, err := l.Allow(r.Context(), ClientKey(r))
		if err != nil {
			logger.Warn().Err(err).Msg("Rate limiter unavailable")
			next(w, r, ps)
			return
		}
		if !allowed {
			metrics.IncRateLimited()
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "too_many_requests"})
			return
		}
		next(w, r, ps)
	}
}

// ClientKey identifies the caller by the first X-Forwarded-For hop or the remote host.
func ClientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
