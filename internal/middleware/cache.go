package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/hex"
    "encoding/json"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/exam-scheduler/internal/config"
)

// cachedResponse is what the cache stores per key.  Body is base64 in JSON.
type cachedResponse struct {
    Status int         `json:"s"`
    Header http.Header `json:"h"`
    Body   []byte      `json:"b"`
}

func (r *cachedResponse) marshal() ([]byte, error) { return json.Marshal(r) }

func unmarshalCached(bs []byte) (*cachedResponse, bool) {
    var r cachedResponse
    if err := json.Unmarshal(bs, &r); err != nil || r.Status == 0 {
        return nil, false
    }
    return &r, true
}

// bodyRecorder tees the response into a buffer up to limit bytes.  Any
// overflow marks the response as uncacheable.
type bodyRecorder struct {
    http.ResponseWriter
    status   int
    buf      bytes.Buffer
    limit    int
    overflow bool
}

func (r *bodyRecorder) WriteHeader(code int) {
    r.status = code
    r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
    if !r.overflow {
        if r.limit > 0 && r.buf.Len()+len(b) > r.limit {
            r.overflow = true
            r.buf.Reset()
        } else {
            r.buf.Write(b)
        }
    }
    return r.ResponseWriter.Write(b)
}

// cacheKeyFrom hashes the parts selected by CACHE_KEY_STRATEGY under the
// configured prefix so PurgeOnSuccess can drop them by pattern.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    var parts []string
    switch strings.ToLower(cfg.KeyStrategy) {
    case "route":
        parts = []string{"route", c.Path()}
    case "method_route":
        parts = []string{"method", r.Method, "route", c.Path()}
    case "method_route_query":
        parts = []string{"method", r.Method, "route", c.Path(), "q", r.URL.RawQuery}
    default:
        parts = []string{"route", c.Path(), "q", r.URL.RawQuery}
    }
    sum := sha1.Sum([]byte(strings.Join(parts, ":")))
    return cfg.Prefix + ":" + hex.EncodeToString(sum[:])
}

// NewRedisCache serves repeated GETs of the course catalog from Redis.  A
// hit replays the stored status, headers and body.  Only 200 responses
// no larger than MaxBodyBytes are stored.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, logger *zap.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = time.Minute
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[c.Request().Method] {
                return next(c)
            }
            ctx := c.Request().Context()
            key := cacheKeyFrom(cfg, c)

            if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
                if hit, ok := unmarshalCached(bs); ok {
                    return replay(c, hit)
                }
            } else if err != redis.Nil {
                logger.Warn("Response cache read failed", zap.String("key", key), zap.Error(err))
            }

            rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = rec
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if rec.status != http.StatusOK || rec.overflow {
                return nil
            }

            entry := &cachedResponse{Status: rec.status, Header: c.Response().Header().Clone(), Body: rec.buf.Bytes()}
            entry.Header.Del("X-Cache")
            entry.Header.Del(HeaderRequestID)
            payload, err := entry.marshal()
            if err != nil {
                return nil
            }
            // the request context may already be cancelled by the client
            if err := rdb.Set(context.WithoutCancel(ctx), key, payload, ttl).Err(); err != nil {
                logger.Warn("Response cache write failed", zap.String("key", key), zap.Error(err))
            }
            return nil
        }
    }
}

func replay(c echo.Context, hit *cachedResponse) error {
    h := c.Response().Header()
    for k, vals := range hit.Header {
        if strings.EqualFold(k, echo.HeaderContentLength) {
            continue
        }
        for _, v := range vals {
            h.Add(k, v)
        }
    }
    h.Set("X-Cache", "HIT")
    c.Response().WriteHeader(hit.Status)
    _, err := c.Response().Write(hit.Body)
    return err
}

// PurgeOnSuccess drops every cached response under cfg.Prefix after the
// wrapped handler answers 2xx.  Course creation uses it so the catalog is
// never stale past the write.
func PurgeOnSuccess(cfg config.CacheConfig, rdb *redis.Client, logger *zap.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if err := next(c); err != nil {
                return err
            }
            if s := c.Response().Status; s < 200 || s >= 300 {
                return nil
            }
            if err := purgePrefix(c.Request().Context(), rdb, cfg.Prefix); err != nil {
                logger.Warn("Response cache purge failed", zap.String("prefix", cfg.Prefix), zap.Error(err))
            }
            return nil
        }
    }
}

func purgePrefix(ctx context.Context, rdb *redis.Client, prefix string) error {
    iter := rdb.Scan(ctx, 0, prefix+":*", 100).Iterator()
    var keys []string
    for iter.Next(ctx) {
        keys = append(keys, iter.Val())
    }
    if err := iter.Err(); err != nil {
        return err
    }
    if len(keys) == 0 {
        return nil
    }
    return rdb.Del(ctx, keys...).Err()
}
