package model

import "time"

// Event represents a listed event created by an organizer. Occupancy is a
// derived counter maintained exclusively by the registration ledger; it is
// never written outside the registration transaction.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – event name (non-empty).
//  StartsAt    – when the event begins, stored in UTC.
//  Location    – free-form venue text.
//  Description – free-form description text.
//  Capacity    – maximum number of registrants (>= 1).
//  Occupancy   – current number of registrants (0 <= Occupancy <= Capacity).
//  ImageURL    – optional reference to the event image.
//  OwnerID     – user who created the event; nil for seeded demo rows,
//                which are readable and registrable but editable by no one.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Event struct {
    ID          uint64     // events.id
    Name        string     // events.name
    StartsAt    time.Time  // events.starts_at
    Location    string     // events.location
    Description string     // events.description
    Capacity    uint32     // events.capacity
    Occupancy   uint32     // events.occupancy
    ImageURL    *string    // events.image_url (nullable)
    OwnerID     *uint64    // events.owner_id (nullable)
    CreatedAt   time.Time  // events.created_at
    UpdatedAt   time.Time  // events.updated_at
}

// Remaining returns the number of seats still available.
func (e *Event) Remaining() uint32 {
    if e.Occupancy >= e.Capacity {
        return 0
    }
    return e.Capacity - e.Occupancy
}

// SoldOut reports whether the event has reached capacity.
func (e *Event) SoldOut() bool {
    return e.Occupancy >= e.Capacity
}
