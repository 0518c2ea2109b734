package handler

import (
    "context"
    "errors"
    "log"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-flow/internal/queue"
    "github.com/iliyamo/event-flow/internal/repository"
    queue_publisher "github.com/iliyamo/event-flow/internal/service"
)

// RegistrationHandler serves the registration endpoints for signed-in
// customers: registering for an event, checking registration status and
// listing one's own registrations.
type RegistrationHandler struct {
    Events        *repository.EventRepo
    Registrations *repository.RegistrationRepo
}

func NewRegistrationHandler(events *repository.EventRepo, regs *repository.RegistrationRepo) *RegistrationHandler {
    return &RegistrationHandler{Events: events, Registrations: regs}
}

// Register handles POST /v1/events/:id/register.
//
// Repeating the call with the same user and event is not a failure: the
// first call registers, every later call answers 200 with registered=true
// and changes nothing. A full event answers 409 and a missing one 404.
func (h *RegistrationHandler) Register(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }

    ctx := c.Request().Context()
    reg, err := h.Registrations.Register(ctx, id, uid)
    if err != nil {
        switch {
        case errors.Is(err, repository.ErrAlreadyRegistered):
            return c.JSON(http.StatusOK, echo.Map{
                "registered": true,
                "message":    "already registered",
            })
        case errors.Is(err, repository.ErrCapacityFull):
            return c.JSON(http.StatusConflict, echo.Map{"error": "event is sold out"})
        case errors.Is(err, repository.ErrEventNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
    }

    h.publishConfirmed(c, reg.ID, id, uid, reg.CreatedAt)

    return c.JSON(http.StatusCreated, echo.Map{
        "registered":      true,
        "registration_id": reg.ID,
        "registered_at":   reg.CreatedAt.Format(time.RFC3339),
    })
}

// publishConfirmed fires the registration.confirmed event in the
// background. The registration already committed, so broker failures are
// logged and dropped.
func (h *RegistrationHandler) publishConfirmed(c echo.Context, regID, eventID, userID uint64, at time.Time) {
    email, _ := c.Get("email").(string)
    go func() {
        ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
        defer cancel()

        ev, err := h.Events.GetByID(ctx, eventID)
        if err != nil {
            log.Printf("registration publish: load event %d failed: %v", eventID, err)
            return
        }
        _ = queue_publisher.PublishRegistrationConfirmed(ctx, queue.RegistrationConfirmedEvent{
            RegistrationID: regID,
            EventID:        ev.ID,
            EventName:      ev.Name,
            Location:       ev.Location,
            StartsAt:       ev.StartsAt.UTC().Format(time.RFC3339),
            UserID:         userID,
            UserEmail:      email,
            Occupancy:      ev.Occupancy,
            Capacity:       ev.Capacity,
            RegisteredAt:   at.Format(time.RFC3339),
        })
    }()
}

// Status handles GET /v1/events/:id/registration and reports whether the
// caller is registered for the event.
func (h *RegistrationHandler) Status(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    registered, err := h.Registrations.IsRegistered(c.Request().Context(), id, uid)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "status check failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"registered": registered})
}

// MyRegistrations handles GET /v1/registrations and lists the caller's
// registrations with event details, newest first.
func (h *RegistrationHandler) MyRegistrations(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    regs, err := h.Registrations.ListByUser(c.Request().Context(), uid)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load registrations"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": regs})
}
