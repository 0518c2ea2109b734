package handler

import (
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-flow/internal/model"
    "github.com/iliyamo/event-flow/internal/repository"
    "github.com/iliyamo/event-flow/internal/storage"
)

// OwnerHandler serves the event management endpoints. Every route here runs
// behind JWTAuth plus RequireRole("OWNER"), and every write is additionally
// owner-scoped at the repository so one organizer cannot touch another's
// events.
type OwnerHandler struct {
    Events        *repository.EventRepo
    Registrations *repository.RegistrationRepo
    Store         *storage.Store
}

func NewOwnerHandler(events *repository.EventRepo, regs *repository.RegistrationRepo, store *storage.Store) *OwnerHandler {
    return &OwnerHandler{Events: events, Registrations: regs, Store: store}
}

type createEventReq struct {
    Name        string `json:"name"`
    StartsAt    string `json:"starts_at"` // RFC3339
    Location    string `json:"location"`
    Description string `json:"description"`
    Capacity    uint32 `json:"capacity"`
    ImageURL    string `json:"image_url"`
}

type updateEventReq struct {
    Name        *string `json:"name"`
    StartsAt    *string `json:"starts_at"`
    Location    *string `json:"location"`
    Description *string `json:"description"`
    Capacity    *uint32 `json:"capacity"`
    ImageURL    *string `json:"image_url"`
}

// CreateEvent handles POST /v1/owner/events. Name must be non-empty,
// capacity at least 1 and starts_at valid RFC3339.
func (h *OwnerHandler) CreateEvent(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req createEventReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Name = strings.TrimSpace(req.Name)
    if req.Name == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
    }
    if req.Capacity < 1 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must be at least 1"})
    }
    startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC3339"})
    }

    ev := &model.Event{
        Name:        req.Name,
        StartsAt:    startsAt,
        Location:    strings.TrimSpace(req.Location),
        Description: req.Description,
        Capacity:    req.Capacity,
        OwnerID:     &uid,
    }
    if u := strings.TrimSpace(req.ImageURL); u != "" {
        ev.ImageURL = &u
    }
    if err := h.Events.Create(c.Request().Context(), ev); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create event failed"})
    }
    return c.JSON(http.StatusCreated, echo.Map{"item": toEventResponse(ev)})
}

// UpdateEvent handles PATCH /v1/owner/events/:id. Absent fields keep their
// stored value. Capacity may shrink only down to the current occupancy.
func (h *OwnerHandler) UpdateEvent(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    var req updateEventReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    upd := repository.EventUpdate{
        Location:    req.Location,
        Description: req.Description,
        Capacity:    req.Capacity,
        ImageURL:    req.ImageURL,
    }
    if req.Name != nil {
        name := strings.TrimSpace(*req.Name)
        if name == "" {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "name must not be empty"})
        }
        upd.Name = &name
    }
    if req.Capacity != nil && *req.Capacity < 1 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must be at least 1"})
    }
    if req.StartsAt != nil {
        startsAt, err := time.Parse(time.RFC3339, *req.StartsAt)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC3339"})
        }
        upd.StartsAt = &startsAt
    }

    ev, err := h.Events.UpdateForOwner(c.Request().Context(), id, uid, upd)
    if err != nil {
        switch {
        case errors.Is(err, repository.ErrEventNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        case errors.Is(err, repository.ErrForbidden):
            return c.JSON(http.StatusForbidden, echo.Map{"error": "not your event"})
        case errors.Is(err, repository.ErrCapacityTooLow):
            return c.JSON(http.StatusConflict, echo.Map{"error": "capacity below current occupancy"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update event failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"item": toEventResponse(ev)})
}

// DeleteEvent handles DELETE /v1/owner/events/:id. Registrations go with
// the event via the cascading foreign key.
func (h *OwnerHandler) DeleteEvent(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    if err := h.Events.DeleteForOwner(c.Request().Context(), id, uid); err != nil {
        switch {
        case errors.Is(err, repository.ErrEventNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        case errors.Is(err, repository.ErrForbidden):
            return c.JSON(http.StatusForbidden, echo.Map{"error": "not your event"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete event failed"})
    }
    return c.NoContent(http.StatusNoContent)
}

// ListMyEvents handles GET /v1/owner/events and returns the caller's own
// events, newest first.
func (h *OwnerHandler) ListMyEvents(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    events, err := h.Events.ListByOwner(c.Request().Context(), uid)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load events"})
    }
    items := make([]eventResponse, 0, len(events))
    for i := range events {
        items = append(items, toEventResponse(&events[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListRegistrations handles GET /v1/owner/events/:id/registrations and
// returns the attendee list for one of the caller's events.
func (h *OwnerHandler) ListRegistrations(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    regs, err := h.Registrations.ListByEventForOwner(c.Request().Context(), id, uid)
    if err != nil {
        switch {
        case errors.Is(err, repository.ErrEventNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        case errors.Is(err, repository.ErrForbidden):
            return c.JSON(http.StatusForbidden, echo.Map{"error": "not your event"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load registrations"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": regs, "count": len(regs)})
}

// UploadImage handles POST /v1/owner/events/:id/image. The multipart file
// under "image" is stored on disk and the event's image_url is pointed at
// the stored copy. Ownership is checked before anything touches disk so a
// rejected request stores nothing; if the event is deleted or reassigned
// between that check and the locked update, the stored file is removed
// again. Accent colors for the new image are computed lazily on the next
// colors request.
func (h *OwnerHandler) UploadImage(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
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
    if ev.OwnerID == nil || *ev.OwnerID != uid {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "not your event"})
    }

    fh, err := c.FormFile("image")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "image file required"})
    }
    src, err := fh.Open()
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot read upload"})
    }
    defer src.Close()

    url, err := h.Store.Save(fh.Filename, src)
    if err != nil {
        if errors.Is(err, storage.ErrUnsupportedType) {
            return c.JSON(http.StatusUnsupportedMediaType, echo.Map{"error": "unsupported image type"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store image failed"})
    }

    ev, err = h.Events.UpdateForOwner(c.Request().Context(), id, uid, repository.EventUpdate{ImageURL: &url})
    if err != nil {
        _ = h.Store.Remove(url)
        switch {
        case errors.Is(err, repository.ErrEventNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        case errors.Is(err, repository.ErrForbidden):
            return c.JSON(http.StatusForbidden, echo.Map{"error": "not your event"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update event failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"item": toEventResponse(ev)})
}
