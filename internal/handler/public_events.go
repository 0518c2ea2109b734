package handler

import (
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-flow/internal/color"
    "github.com/iliyamo/event-flow/internal/model"
    "github.com/iliyamo/event-flow/internal/repository"
)

// PublicHandler serves the unauthenticated browse endpoints: the event
// listing, event details and the accent colors used to style event cards.
type PublicHandler struct {
    Events   *repository.EventRepo
    Resolver *color.Resolver
}

// NewPublicHandler constructs a PublicHandler. Both dependencies must be
// non-nil.
func NewPublicHandler(events *repository.EventRepo, resolver *color.Resolver) *PublicHandler {
    if events == nil || resolver == nil {
        panic("nil dependency passed to NewPublicHandler")
    }
    return &PublicHandler{Events: events, Resolver: resolver}
}

// eventResponse is the public projection of an event. Remaining and
// SoldOut are derived so clients can render availability without doing the
// arithmetic themselves.
type eventResponse struct {
    ID          uint64  `json:"id"`
    Name        string  `json:"name"`
    StartsAt    string  `json:"starts_at"`
    Location    string  `json:"location"`
    Description string  `json:"description"`
    Capacity    uint32  `json:"capacity"`
    Occupancy   uint32  `json:"occupancy"`
    Remaining   uint32  `json:"remaining"`
    SoldOut     bool    `json:"sold_out"`
    ImageURL    *string `json:"image_url,omitempty"`
}

func toEventResponse(e *model.Event) eventResponse {
    return eventResponse{
        ID:          e.ID,
        Name:        e.Name,
        StartsAt:    e.StartsAt.UTC().Format(time.RFC3339),
        Location:    e.Location,
        Description: e.Description,
        Capacity:    e.Capacity,
        Occupancy:   e.Occupancy,
        Remaining:   e.Remaining(),
        SoldOut:     e.SoldOut(),
        ImageURL:    e.ImageURL,
    }
}

// ListEvents handles GET /v1/events. Events are ordered by start time,
// soonest first. An empty list is returned as an empty array.
func (h *PublicHandler) ListEvents(c echo.Context) error {
    events, err := h.Events.List(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load events"})
    }
    items := make([]eventResponse, 0, len(events))
    for i := range events {
        items = append(items, toEventResponse(&events[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetEvent handles GET /v1/events/:id.
func (h *PublicHandler) GetEvent(c echo.Context) error {
    id, ok := pathID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    ev, err := h.Events.GetByID(c.Request().Context(), id)
    if err != nil {
        if errors.Is(err, repository.ErrEventNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load event"})
    }
    return c.JSON(http.StatusOK, echo.Map{"item": toEventResponse(ev)})
}

// GetEventColors handles GET /v1/events/:id/colors. It returns the
// dominant accent color and a small palette derived from the event's
// image. The endpoint never fails on image problems: a missing image,
// unreachable host or undecodable payload all yield the fixed fallback
// colors, so clients can always style the card. Cards are expected to
// request colors independently of the listing so slow image hosts don't
// block the page.
func (h *PublicHandler) GetEventColors(c echo.Context) error {
    id, ok := pathID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    ev, err := h.Events.GetByID(c.Request().Context(), id)
    if err != nil {
        if errors.Is(err, repository.ErrEventNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load event"})
    }

    imageURL := ""
    if ev.ImageURL != nil {
        imageURL = *ev.ImageURL
    }
    ctx := c.Request().Context()
    accent := h.Resolver.ResolveColor(ctx, imageURL)
    palette := h.Resolver.ResolvePalette(ctx, imageURL, color.DefaultPaletteSize)

    paletteStr := make([]string, 0, len(palette))
    for _, p := range palette {
        paletteStr = append(paletteStr, p.String())
    }
    return c.JSON(http.StatusOK, echo.Map{
        "accent":  accent.String(),
        "palette": paletteStr,
    })
}
