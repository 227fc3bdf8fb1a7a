package main

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// authBucket keeps a hash of {level, ts} per client. level refills at
// ARGV[2] tokens per second up to ARGV[1]; each admitted request drains one.
// Returns 1 when admitted and 0 otherwise.
var authBucket = redis.NewScript(`
local burst = tonumber(ARGV[1])
local per_ms = tonumber(ARGV[2]) / 1000
local now_ms = tonumber(ARGV[3])

local state = redis.call("HMGET", KEYS[1], "level", "ts")
local level = tonumber(state[1]) or burst
local ts = tonumber(state[2]) or now_ms

if now_ms > ts then
	level = math.min(burst, level + (now_ms - ts) * per_ms)
	ts = now_ms
end

if level < 1 then
	return 0
end

redis.call("HSET", KEYS[1], "level", level - 1, "ts", ts)
redis.call("PEXPIRE", KEYS[1], math.ceil(burst / per_ms))
return 1
`)

// Limiter throttles anonymous auth endpoints per client IP with a token
// bucket kept in Redis. A nil *Limiter lets every request through.
type Limiter struct {
	client  *redis.Client
	log     *logrus.Logger
	burst   int
	rate    float64
	trusted []*net.IPNet
	now     func() time.Time
}

// NewRedisLimiter returns nil when Redis is not configured or unreachable.
func NewRedisLimiter(cfg Config, log *logrus.Logger) *Limiter {
	if cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR not set, auth rate limiting disabled")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warnf("failed to connect to redis at %s: %v, auth rate limiting disabled", cfg.RedisAddr, err)
		rdb.Close()
		return nil
	}
	log.Infof("connected to redis at %s", cfg.RedisAddr)

	return &Limiter{
		client:  rdb,
		log:     log,
		burst:   cfg.AuthBurst,
		rate:    cfg.AuthRPS,
		trusted: cfg.TrustedProxies,
		now:     time.Now,
	}
}

// Allow spends one token from the bucket named by key.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	admitted, err := authBucket.Run(ctx, l.client,
		[]string{"ratelimit:" + key},
		l.burst, l.rate, l.now().UnixMilli(),
	).Int64()
	if err != nil {
		return false, err
	}
	return admitted == 1, nil
}

// Limit wraps next with the per-IP bucket. Redis errors fail open.
func (l *Limiter) Limit(next http.HandlerFunc) http.HandlerFunc {
	if l == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 200*time.Millisecond)
		defer cancel()

		allowed, err := l.Allow(ctx, "auth:"+getRealIP(r, l.trusted))
		if err != nil {
			logFrom(r).Warnf("auth limiter redis error: %v", err)
		} else if !allowed {
			writeError(w, http.StatusTooManyRequests, "Too many attempts. Please try again later.")
			return
		}

		next(w, r)
	}
}

func (l *Limiter) Close() error {
	if l == nil {
		return nil
	}
	return l.client.Close()
}

// getRealIP names the client behind r. Forwarding headers count only when
// the connecting peer is a trusted proxy. X-Forwarded-For is walked from the
// right, skipping trusted hops, since entries further left are whatever the
// client chose to send.
func getRealIP(r *http.Request, trusted []*net.IPNet) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if !ipTrusted(peer, trusted) {
		return peer
	}

	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		hops := strings.Split(fwd, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop != "" && !ipTrusted(hop, trusted) {
				return hop
			}
		}
	}

	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(ip) != nil && !ipTrusted(ip, trusted) {
		return ip
	}
	return peer
}

func ipTrusted(addr string, trusted []*net.IPNet) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, n := range trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
