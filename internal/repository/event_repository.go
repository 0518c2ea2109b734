package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/iliyamo/event-flow/internal/model"
)

// EventRepo provides CRUD operations for events. Reads are public; writes
// are owner-scoped: update and delete verify that the caller created the
// event before touching the row. Occupancy is never written here; only
// the registration ledger mutates it.
type EventRepo struct {
    db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying handle for transaction composition.
func (r *EventRepo) DB() *sql.DB { return r.db }

const eventColumns = `id, name, starts_at, location, description, capacity, occupancy, image_url, owner_id, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*model.Event, error) {
    var e model.Event
    var imageURL sql.NullString
    var ownerID sql.NullInt64
    err := row.Scan(&e.ID, &e.Name, &e.StartsAt, &e.Location, &e.Description,
        &e.Capacity, &e.Occupancy, &imageURL, &ownerID, &e.CreatedAt, &e.UpdatedAt)
    if err != nil {
        return nil, err
    }
    if imageURL.Valid {
        u := imageURL.String
        e.ImageURL = &u
    }
    if ownerID.Valid {
        o := uint64(ownerID.Int64)
        e.OwnerID = &o
    }
    return &e, nil
}

// List returns all events ordered by start time ascending, soonest first.
func (r *EventRepo) List(ctx context.Context) ([]model.Event, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+eventColumns+` FROM events ORDER BY starts_at ASC`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    events := make([]model.Event, 0)
    for rows.Next() {
        e, err := scanEvent(rows)
        if err != nil {
            return nil, err
        }
        events = append(events, *e)
    }
    return events, rows.Err()
}

// ListByOwner returns all events created by the given owner, newest first.
func (r *EventRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Event, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+eventColumns+` FROM events WHERE owner_id = ? ORDER BY created_at DESC`,
        ownerID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    events := make([]model.Event, 0)
    for rows.Next() {
        e, err := scanEvent(rows)
        if err != nil {
            return nil, err
        }
        events = append(events, *e)
    }
    return events, rows.Err()
}

// GetByID returns a single event or ErrEventNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
    e, err := scanEvent(r.db.QueryRowContext(ctx,
        `SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrEventNotFound
        }
        return nil, err
    }
    return e, nil
}

// Create inserts a new event owned by ev.OwnerID with occupancy zero and
// populates the generated ID and timestamps on the provided struct.
func (r *EventRepo) Create(ctx context.Context, ev *model.Event) error {
    now := time.Now().UTC()
    var imageURL any
    if ev.ImageURL != nil {
        imageURL = *ev.ImageURL
    }
    var ownerID any
    if ev.OwnerID != nil {
        ownerID = *ev.OwnerID
    }
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO events (name, starts_at, location, description, capacity, occupancy, image_url, owner_id, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?, ?)`,
        ev.Name, ev.StartsAt.UTC(), ev.Location, ev.Description, ev.Capacity,
        imageURL, ownerID, now, now)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    ev.ID = uint64(id)
    ev.Occupancy = 0
    ev.CreatedAt = now
    ev.UpdatedAt = now
    return nil
}

// EventUpdate carries the mutable fields of an event. Nil pointers leave
// the corresponding column untouched.
type EventUpdate struct {
    Name        *string
    StartsAt    *time.Time
    Location    *string
    Description *string
    Capacity    *uint32
    ImageURL    *string
}

// UpdateForOwner applies the given changes to an event after verifying
// ownership. It runs in a transaction that locks the event row: lowering
// capacity races with the registration ledger's increment, so the
// occupancy check and the write must see the same counter. It returns
// ErrEventNotFound when the event does not exist, ErrForbidden when the
// caller is not the owner, and ErrCapacityTooLow when the new capacity is
// below current occupancy.
func (r *EventRepo) UpdateForOwner(ctx context.Context, id, ownerID uint64, upd EventUpdate) (*model.Event, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    var actualOwner sql.NullInt64
    var occupancy uint32
    err = tx.QueryRowContext(ctx,
        `SELECT owner_id, occupancy FROM events WHERE id = ? FOR UPDATE`, id,
    ).Scan(&actualOwner, &occupancy)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrEventNotFound
        }
        return nil, err
    }
    if !actualOwner.Valid || uint64(actualOwner.Int64) != ownerID {
        return nil, ErrForbidden
    }
    if upd.Capacity != nil && *upd.Capacity < occupancy {
        return nil, ErrCapacityTooLow
    }

    set := "updated_at = ?"
    args := []any{time.Now().UTC()}
    if upd.Name != nil {
        set += ", name = ?"
        args = append(args, *upd.Name)
    }
    if upd.StartsAt != nil {
        set += ", starts_at = ?"
        args = append(args, upd.StartsAt.UTC())
    }
    if upd.Location != nil {
        set += ", location = ?"
        args = append(args, *upd.Location)
    }
    if upd.Description != nil {
        set += ", description = ?"
        args = append(args, *upd.Description)
    }
    if upd.Capacity != nil {
        set += ", capacity = ?"
        args = append(args, *upd.Capacity)
    }
    if upd.ImageURL != nil {
        set += ", image_url = ?"
        args = append(args, *upd.ImageURL)
    }
    args = append(args, id)
    if _, err = tx.ExecContext(ctx, `UPDATE events SET `+set+` WHERE id = ?`, args...); err != nil {
        return nil, err
    }

    ev, err := scanEvent(tx.QueryRowContext(ctx,
        `SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
    if err != nil {
        return nil, err
    }
    if err = tx.Commit(); err != nil {
        return nil, err
    }
    committed = true
    return ev, nil
}

// DeleteForOwner removes an event after verifying ownership. Registrations
// reference events with ON DELETE CASCADE, so the delete removes them too.
// Returns ErrEventNotFound or ErrForbidden like UpdateForOwner.
func (r *EventRepo) DeleteForOwner(ctx context.Context, id, ownerID uint64) error {
    var actualOwner sql.NullInt64
    err := r.db.QueryRowContext(ctx,
        `SELECT owner_id FROM events WHERE id = ?`, id,
    ).Scan(&actualOwner)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return ErrEventNotFound
        }
        return err
    }
    if !actualOwner.Valid || uint64(actualOwner.Int64) != ownerID {
        return ErrForbidden
    }
    _, err = r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
    return err
}
