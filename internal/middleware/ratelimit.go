package middleware

import (
    "fmt"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/event-flow/internal/config"
)

// NewTokenBucket returns a Redis-backed token bucket middleware keyed by
// user (or client IP for guests) and route. It shields the registration
// endpoint's row lock from a single client retrying in a tight loop. When
// rate limiting is disabled or Redis is unavailable the middleware is a
// pass-through, and an error talking to Redis fails open: rejecting
// registrations because the limiter is down would be worse than serving
// them unlimited.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc {
            return func(c echo.Context) error { return next(c) }
        }
    }

    limiterScript := redis.NewScript(`
        local key = KEYS[1]
        local now_ms = tonumber(ARGV[1])
        local capacity = tonumber(ARGV[2])
        local refill_tokens = tonumber(ARGV[3])
        local interval_ms = tonumber(ARGV[4])
        local ttl_seconds = tonumber(ARGV[5])

        local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
        local tokens = tonumber(state[1])
        local last_refill = tonumber(state[2])

        if tokens == nil or last_refill == nil then
            tokens = capacity
            last_refill = now_ms
        end

        if interval_ms > 0 and refill_tokens > 0 then
            local elapsed = math.max(0, now_ms - last_refill)
            local intervals = math.floor(elapsed / interval_ms)
            if intervals > 0 then
                tokens = math.min(capacity, tokens + (intervals * refill_tokens))
                last_refill = last_refill + (intervals * interval_ms)
            end
        end

        local allowed = 0
        local retry_after_ms = 0
        if tokens > 0 then
            allowed = 1
            tokens = tokens - 1
        else
            local until_next = interval_ms - (now_ms - last_refill)
            if until_next < 0 then until_next = 0 end
            retry_after_ms = until_next
        end

        redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
        redis.call('EXPIRE', key, ttl_seconds)

        return { allowed, tokens, retry_after_ms }
    `)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := fmt.Sprintf("%s:%s:%s", cfg.Prefix, callerID(c), c.Path())

            args := []interface{}{
                time.Now().UnixMilli(),
                cfg.Capacity,
                cfg.RefillTokens,
                cfg.RefillInterval.Milliseconds(),
                int64(cfg.TTL / time.Second),
            }

            ctx := c.Request().Context()
            vals, err := limiterScript.Run(ctx, rdb, []string{key}, args...).Result()
            if err != nil {
                return next(c)
            }
            res, ok := vals.([]interface{})
            if !ok || len(res) < 3 {
                return next(c)
            }
            allowed, _ := res[0].(int64)
            retryAfterMS, _ := res[2].(int64)
            if allowed == 1 {
                return next(c)
            }

            retryAfter := (retryAfterMS + 999) / 1000
            if retryAfter < 1 {
                retryAfter = 1
            }
            c.Response().Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
            return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "too many requests"})
        }
    }
}

// callerID identifies the requester for rate limit keys: the JWT subject
// when authenticated, otherwise the client IP.
func callerID(c echo.Context) string {
    if v := c.Get("user_id"); v != nil {
        return fmt.Sprintf("u%v", v)
    }
    return "ip:" + c.RealIP()
}
