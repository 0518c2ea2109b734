// Package queue defines message payloads exchanged over the message broker.
package queue

// RegistrationConfirmedEvent is published when a registration is recorded.
// It carries enough detail for downstream consumers to log or notify
// without querying the primary database.
type RegistrationConfirmedEvent struct {
    RegistrationID uint64 `json:"registration_id"`
    EventID        uint64 `json:"event_id"`
    EventName      string `json:"event_name"`
    Location       string `json:"location"`
    StartsAt       string `json:"starts_at"`
    UserID         uint64 `json:"user_id"`
    UserEmail      string `json:"user_email"`
    Occupancy      uint32 `json:"occupancy"`
    Capacity       uint32 `json:"capacity"`
    RegisteredAt   string `json:"registered_at"`
}
