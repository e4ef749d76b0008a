package middleware

import (
    "context"
    "fmt"
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/exam-scheduler/internal/config"
)

// passThrough is used when Redis is disabled or unreachable.
func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// takeTokenScript refills the bucket stored at KEYS[1] for the elapsed
// whole intervals and takes one token.
//
// ARGV: now_ms, capacity, refill_tokens, interval_ms, ttl_ms
// Returns: {allowed (0|1), tokens_left, wait_ms}
var takeTokenScript = redis.NewScript(`
local now      = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill   = tonumber(ARGV[3])
local interval = tonumber(ARGV[4])
local ttl      = tonumber(ARGV[5])

local tokens = tonumber(redis.call('HGET', KEYS[1], 'tokens'))
local stamp  = tonumber(redis.call('HGET', KEYS[1], 'stamp'))
if tokens == nil or stamp == nil then
    tokens, stamp = capacity, now
end

local steps = math.floor(math.max(0, now - stamp) / interval)
if steps > 0 then
    tokens = math.min(capacity, tokens + steps * refill)
    stamp = stamp + steps * interval
end

local allowed, wait = 0, 0
if tokens >= 1 then
    allowed, tokens = 1, tokens - 1
else
    wait = math.max(0, interval - (now - stamp))
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'stamp', stamp)
redis.call('PEXPIRE', KEYS[1], ttl)
return {allowed, tokens, wait}
`)

// bucketState is the outcome of one takeTokenScript call.
type bucketState struct {
    Allowed   bool
    Remaining int64
    Wait      time.Duration
}

func takeToken(ctx context.Context, rdb redis.Scripter, cfg config.RateLimitConfig, key string, now time.Time) (bucketState, error) {
    vals, err := takeTokenScript.Run(ctx, rdb, []string{key},
        now.UnixMilli(),
        cfg.Capacity,
        cfg.RefillTokens,
        cfg.RefillInterval.Milliseconds(),
        cfg.TTL.Milliseconds(),
    ).Int64Slice()
    if err != nil {
        return bucketState{}, err
    }
    if len(vals) != 3 {
        return bucketState{}, fmt.Errorf("unexpected limiter reply %v", vals)
    }
    return bucketState{
        Allowed:   vals[0] == 1,
        Remaining: vals[1],
        Wait:      time.Duration(vals[2]) * time.Millisecond,
    }, nil
}

// NewTokenBucket throttles the booking writes (pick-batch and the
// reschedule steps) per key, see RATE_LIMIT_KEY_STRATEGY.  During a batch
// release many students retry at once; the bucket keeps one client from
// starving the seat locks.  Redis errors fail open.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, logger *zap.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            st, err := takeToken(c.Request().Context(), rdb, cfg, key, time.Now())
            if err != nil {
                logger.Warn("Rate limiter unavailable", zap.String("key", key), zap.Error(err))
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(st.Remaining, 10))
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            if st.Allowed {
                return next(c)
            }

            retry := retryAfterSeconds(st.Wait)
            h.Set("Retry-After", strconv.Itoa(retry))
            if cfg.Debug {
                logger.Debug("Rate limited", zap.String("key", key), zap.Duration("wait", st.Wait))
            }
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "error":       "too many requests, retry later",
                "retry_after": retry,
            })
        }
    }
}

// retryAfterSeconds rounds a wait up to whole seconds for Retry-After.
func retryAfterSeconds(d time.Duration) int {
    if d <= 0 {
        return 0
    }
    return int(math.Ceil(d.Seconds()))
}

// buildRateKey joins the prefix with the parts named by the strategy.
// Unknown strategies key on ip, user and route together.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    part := map[string][]string{
        "ip":    {"ip", ip},
        "user":  {"user", currentUserID(c)},
        "route": {"route", c.Request().Method + " " + c.Path()},
    }

    var names []string
    switch s := strings.ToLower(cfg.KeyStrategy); s {
    case "ip", "user", "route":
        names = []string{s}
    case "ip_user":
        names = []string{"ip", "user"}
    case "ip_route":
        names = []string{"ip", "route"}
    case "user_route":
        names = []string{"user", "route"}
    default:
        names = []string{"ip", "user", "route"}
    }

    out := []string{cfg.Prefix}
    for _, n := range names {
        out = append(out, part[n]...)
    }
    return strings.Join(out, ":")
}
