package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/event-flow/internal/config"
)

func TestPayloadRoundTrip(t *testing.T) {
    header := http.Header{}
    header.Set("Content-Type", "application/json")
    body := []byte(`{"items":[]}`)

    raw, err := encodePayload(http.StatusOK, header, body)
    require.NoError(t, err)

    status, gotHeader, gotBody, err := decodePayload(raw)
    require.NoError(t, err)
    assert.Equal(t, http.StatusOK, status)
    assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
    assert.Equal(t, body, gotBody)
}

func TestDecodePayload_Truncated(t *testing.T) {
    _, _, _, err := decodePayload([]byte{1, 2, 3})
    assert.Error(t, err)

    raw, err := encodePayload(200, http.Header{}, []byte("x"))
    require.NoError(t, err)
    _, _, _, err = decodePayload(raw[:10])
    assert.Error(t, err)
}

func TestCacheKey_VariesByQuery(t *testing.T) {
    cfg := config.CacheConfig{Prefix: "cache"}
    e := echo.New()

    mk := func(target string) echo.Context {
        req := httptest.NewRequest(http.MethodGet, target, nil)
        return e.NewContext(req, httptest.NewRecorder())
    }

    a := cacheKey(cfg, mk("/v1/events"))
    b := cacheKey(cfg, mk("/v1/events?page=2"))
    assert.NotEqual(t, a, b)
    assert.Equal(t, a, cacheKey(cfg, mk("/v1/events")))
}

func TestNewResponseCache_NilRedisPassesThrough(t *testing.T) {
    cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}
    mw := NewResponseCache(cfg, nil)

    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)

    handler := mw(func(c echo.Context) error { return c.String(http.StatusOK, "fresh") })
    require.NoError(t, handler(c))
    assert.Equal(t, "fresh", rec.Body.String())
    assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestCaptureWriter_RespectsLimit(t *testing.T) {
    rec := httptest.NewRecorder()
    cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}

    _, err := cw.Write([]byte("abcdefgh"))
    require.NoError(t, err)
    assert.Equal(t, "abcd", cw.buf.String())
    assert.Equal(t, int64(8), cw.size)
    assert.Equal(t, "abcdefgh", rec.Body.String())
}
