package model

import "time"

// Registration records that a user holds a seat at an event. The pair
// (EventID, UserID) is unique: a user registers for an event at most once
// and there is no cancellation path, so rows are only ever inserted.
//
// Fields:
//  ID        – primary key identifier.
//  EventID   – the event registered for.
//  UserID    – the registrant.
//  CreatedAt – when the registration was made.
type Registration struct {
    ID        uint64    // registrations.id
    EventID   uint64    // registrations.event_id
    UserID    uint64    // registrations.user_id
    CreatedAt time.Time // registrations.created_at
}
