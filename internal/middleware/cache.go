package middleware

import (
    "bytes"
    "crypto/sha1"
    "encoding/binary"
    "encoding/json"
    "fmt"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/event-flow/internal/config"
)

// captureWriter captures the response body and status while forwarding to
// the client, so a successful response can be stored after the handler ran.
type captureWriter struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
    size   int64
    limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
    cw.status = code
    cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
    if cw.size < cw.limit {
        remain := cw.limit - cw.size
        if int64(len(b)) <= remain {
            cw.buf.Write(b)
        } else {
            cw.buf.Write(b[:remain])
        }
    }
    cw.size += int64(len(b))
    return cw.ResponseWriter.Write(b)
}

// cacheKey hashes method, route and query into a namespaced Redis key.
func cacheKey(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    sum := sha1.Sum([]byte(r.Method + ":" + c.Path() + "?" + r.URL.RawQuery))
    return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
    hdrJSON, err := json.Marshal(header)
    if err != nil {
        return nil, err
    }
    out := make([]byte, 8+len(hdrJSON)+len(body))
    binary.BigEndian.PutUint32(out[0:4], uint32(status))
    binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
    copy(out[8:], hdrJSON)
    copy(out[8+len(hdrJSON):], body)
    return out, nil
}

func decodePayload(raw []byte) (int, http.Header, []byte, error) {
    if len(raw) < 8 {
        return 0, nil, nil, fmt.Errorf("cache payload too short")
    }
    status := int(binary.BigEndian.Uint32(raw[0:4]))
    hdrLen := int(binary.BigEndian.Uint32(raw[4:8]))
    if len(raw) < 8+hdrLen {
        return 0, nil, nil, fmt.Errorf("cache payload truncated")
    }
    var header http.Header
    if err := json.Unmarshal(raw[8:8+hdrLen], &header); err != nil {
        return 0, nil, nil, err
    }
    return status, header, raw[8+hdrLen:], nil
}

// NewResponseCache returns a middleware that serves public browse
// responses from Redis. Only configured methods (normally GET) on 2xx
// responses are cached, with a short TTL because occupancy counters move
// on every registration. When caching is disabled or Redis is nil the
// middleware is a pass-through, and Redis errors fall through to the
// handler rather than failing the request.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc {
            return func(c echo.Context) error { return next(c) }
        }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[c.Request().Method] {
                return next(c)
            }
            key := cacheKey(cfg, c)
            ctx := c.Request().Context()

            if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
                if status, header, body, derr := decodePayload(raw); derr == nil {
                    h := c.Response().Header()
                    for k, vals := range header {
                        for _, v := range vals {
                            h.Add(k, v)
                        }
                    }
                    h.Set("X-Cache", "HIT")
                    return c.Blob(status, h.Get(echo.HeaderContentType), body)
                }
            }

            cw := &captureWriter{
                ResponseWriter: c.Response().Writer,
                status:         http.StatusOK,
                limit:          int64(cfg.MaxBodyBytes),
            }
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }

            // Cache only complete 2xx responses that fit the size cap.
            if cw.status >= 200 && cw.status < 300 && cw.size <= cw.limit {
                if payload, err := encodePayload(cw.status, c.Response().Header().Clone(), cw.buf.Bytes()); err == nil {
                    _ = rdb.Set(ctx, key, payload, ttlOrDefault(cfg.TTL)).Err()
                }
            }
            return nil
        }
    }
}

func ttlOrDefault(ttl time.Duration) time.Duration {
    if ttl <= 0 {
        return 10 * time.Second
    }
    return ttl
}
