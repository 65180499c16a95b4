package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	rateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fastlist_rate_limited_total",
		Help: "Total number of requests answered with 429",
	})

	rateLimitErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fastlist_rate_limit_errors_total",
		Help: "Total number of limiter checks that failed open because Redis was unavailable",
	})
)

// Config configures a Limiter.
type Config struct {
	// PerMinute is the number of requests a client may make per window. Zero disables limiting.
	PerMinute int64
	Window    time.Duration
	// OpTimeout bounds each Redis round trip.
	OpTimeout time.Duration
	// TrustProxy takes the client address from X-Forwarded-For.
	TrustProxy bool
}

// Limiter counts requests per client IP in fixed windows.
type Limiter struct {
	redis  *redis.Client
	cfg    Config
	logger zerolog.Logger
	now    func() time.Time
}

// NewLimiter creates a limiter backed by redisClient.
func NewLimiter(redisClient *redis.Client, cfg Config, logger zerolog.Logger) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 150 * time.Millisecond
	}
	return &Limiter{
		redis:  redisClient,
		cfg:    cfg,
		logger: logger.With().Str("component", "ratelimit").Logger(),
		now:    time.Now,
	}
}

// Allow counts one request from client and reports whether it may proceed.
func (l *Limiter) Allow(ctx context.Context, client string) (Decision, error) {
	now := l.now()
	key, resetAt := windowKey(client, now, l.cfg.Window)

	ctx, cancel := context.WithTimeout(ctx, l.cfg.OpTimeout)
	defer cancel()

	pipe := l.redis.Pipeline()
	incr := pipe.Incr(ctx, key)
	// the key is window-scoped, so refreshing its expiry never extends a window
	pipe.Expire(ctx, key, 2*l.cfg.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{Allowed: true, Limit: l.cfg.PerMinute, ResetAt: resetAt}, err
	}

	count := incr.Val()
	return Decision{
		Allowed: count <= l.cfg.PerMinute,
		Count:   count,
		Limit:   l.cfg.PerMinute,
		ResetAt: resetAt,
	}, nil
}

// Middleware rejects clients over their limit with 429. Redis errors let the request through.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	if l.cfg.PerMinute <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := l.clientIP(r)
		d, err := l.Allow(r.Context(), client)
		if err != nil {
			rateLimitErrorsTotal.Inc()
			l.logger.Warn().Err(err).Str("client", client).Msg("Rate limiter unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(d.Limit, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining(), 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

		if !d.Allowed {
			rateLimitedTotal.Inc()
			l.logger.Warn().
				Str("client", client).
				Int64("count", d.Count).
				Int64("limit", d.Limit).
				Msg("Rate limit exceeded")
			w.Header().Set("Retry-After", strconv.FormatInt(d.RetryAfter(l.now()), 10))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"Too many requests"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *Limiter) clientIP(r *http.Request) string {
	if l.cfg.TrustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
