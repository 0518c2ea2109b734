// Package color derives a representative accent color (and small palette)
// from an event's image for card styling. Resolution is best-effort: any
// failure to load or decode an image yields a fixed fallback instead of an
// error, so a broken image host can never fail a listing page.
package color

import (
    "context"
    "fmt"
    "image"
    _ "image/gif"  // register GIF decoder
    _ "image/jpeg" // register JPEG decoder
    _ "image/png"  // register PNG decoder
    "io"
    "net/http"
    "sync"
    "time"

    "github.com/EdlinOrg/prominentcolor"
    "golang.org/x/sync/singleflight"
)

// RGB is a single 8-bit-per-channel color.
type RGB struct {
    R uint8 `json:"r"`
    G uint8 `json:"g"`
    B uint8 `json:"b"`
}

// String renders the color in CSS functional notation.
func (c RGB) String() string {
    return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
}

// Fallback is returned whenever a dominant color cannot be computed.
var Fallback = RGB{R: 75, G: 85, B: 99}

// FallbackPalette is the palette counterpart of Fallback, a fixed ramp of
// five grays ending in black.
var FallbackPalette = []RGB{
    {R: 75, G: 85, B: 99},
    {R: 55, G: 65, B: 81},
    {R: 31, G: 41, B: 55},
    {R: 17, G: 24, B: 39},
    {R: 0, G: 0, B: 0},
}

// DefaultPaletteSize is the number of colors ResolvePalette returns when
// the caller asks for zero or fewer.
const DefaultPaletteSize = 5

// maxImageBytes bounds how much image data is read from a remote host.
const maxImageBytes = 8 << 20

// Resolver memoizes dominant-color computations per image URL. Entries
// live for the lifetime of the Resolver; there is no TTL because a given
// image URL yields the same color for as long as the process serves it.
// Concurrent requests for the same URL are collapsed into one fetch, while
// requests for different URLs proceed fully independently.
type Resolver struct {
    client *http.Client
    group  singleflight.Group

    mu       sync.RWMutex
    colors   map[string]RGB
    palettes map[string][]RGB
}

// NewResolver returns a Resolver whose image fetches are bounded by the
// given timeout. A zero timeout falls back to five seconds so an
// unreachable image host cannot stall presentation indefinitely.
func NewResolver(timeout time.Duration) *Resolver {
    if timeout <= 0 {
        timeout = 5 * time.Second
    }
    return &Resolver{
        client:   &http.Client{Timeout: timeout},
        colors:   make(map[string]RGB),
        palettes: make(map[string][]RGB),
    }
}

// ResolveColor returns the dominant color of the image at imageURL, or
// Fallback when the URL is empty or the image cannot be fetched/decoded.
// An empty URL short-circuits without any network I/O. Failures are final:
// the fallback is cached and no retry is attempted. The one exception is
// context cancellation: a caller navigating away discards the result, so
// nothing is cached and a later request may still succeed.
func (r *Resolver) ResolveColor(ctx context.Context, imageURL string) RGB {
    if imageURL == "" {
        return Fallback
    }
    r.mu.RLock()
    if c, ok := r.colors[imageURL]; ok {
        r.mu.RUnlock()
        return c
    }
    r.mu.RUnlock()

    v, _, _ := r.group.Do("color:"+imageURL, func() (any, error) {
        c, cacheable := r.computeColor(ctx, imageURL)
        if cacheable {
            r.mu.Lock()
            r.colors[imageURL] = c
            r.mu.Unlock()
        }
        return c, nil
    })
    return v.(RGB)
}

// ResolvePalette returns the n most prominent colors of the image, padded
// from FallbackPalette when fewer are found. It has the same fallback and
// caching contract as ResolveColor. n <= 0 means DefaultPaletteSize.
func (r *Resolver) ResolvePalette(ctx context.Context, imageURL string, n int) []RGB {
    if n <= 0 {
        n = DefaultPaletteSize
    }
    if imageURL == "" {
        return fallbackPalette(n)
    }
    key := fmt.Sprintf("palette:%d:%s", n, imageURL)
    r.mu.RLock()
    if p, ok := r.palettes[key]; ok {
        r.mu.RUnlock()
        return p
    }
    r.mu.RUnlock()

    v, _, _ := r.group.Do(key, func() (any, error) {
        p, cacheable := r.computePalette(ctx, imageURL, n)
        if cacheable {
            r.mu.Lock()
            r.palettes[key] = p
            r.mu.Unlock()
        }
        return p, nil
    })
    return v.([]RGB)
}

// computeColor fetches and quantizes the image. The second return value
// reports whether the result may be cached (false on context cancellation).
func (r *Resolver) computeColor(ctx context.Context, imageURL string) (RGB, bool) {
    img, err := r.fetch(ctx, imageURL)
    if err != nil {
        return Fallback, ctx.Err() == nil
    }
    items, err := prominentcolor.KmeansWithAll(prominentcolor.DefaultK, img,
        prominentcolor.ArgumentNoCropping, prominentcolor.DefaultSize, nil)
    if err != nil || len(items) == 0 {
        return Fallback, true
    }
    return itemToRGB(items[0]), true
}

func (r *Resolver) computePalette(ctx context.Context, imageURL string, n int) ([]RGB, bool) {
    img, err := r.fetch(ctx, imageURL)
    if err != nil {
        return fallbackPalette(n), ctx.Err() == nil
    }
    items, err := prominentcolor.KmeansWithAll(n, img,
        prominentcolor.ArgumentNoCropping, prominentcolor.DefaultSize, nil)
    if err != nil || len(items) == 0 {
        return fallbackPalette(n), true
    }
    out := make([]RGB, 0, n)
    for _, it := range items {
        out = append(out, itemToRGB(it))
        if len(out) == n {
            break
        }
    }
    // Fewer clusters than requested: pad with the fallback ramp so the
    // caller always gets exactly n colors.
    for i := 0; len(out) < n; i++ {
        out = append(out, FallbackPalette[i%len(FallbackPalette)])
    }
    return out, true
}

// fetch downloads and decodes the image, honoring both the caller's
// context and the client's overall timeout.
func (r *Resolver) fetch(ctx context.Context, imageURL string) (image.Image, error) {
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
    if err != nil {
        return nil, err
    }
    resp, err := r.client.Do(req)
    if err != nil {
        return nil, err
    }
    defer resp.Body.Close()
    if resp.StatusCode != http.StatusOK {
        return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
    }
    img, _, err := image.Decode(io.LimitReader(resp.Body, maxImageBytes))
    if err != nil {
        return nil, err
    }
    return img, nil
}

func itemToRGB(it prominentcolor.ColorItem) RGB {
    return RGB{R: uint8(it.Color.R), G: uint8(it.Color.G), B: uint8(it.Color.B)}
}

func fallbackPalette(n int) []RGB {
    out := make([]RGB, n)
    for i := range out {
        out[i] = FallbackPalette[i%len(FallbackPalette)]
    }
    return out
}
