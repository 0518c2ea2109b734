package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/iliyamo/event-flow/internal/model"
)

// RegistrationRepo is the registration ledger. It maintains, per event, the
// set of distinct registrants and the derived occupancy counter, and it is
// the only code path that mutates occupancy. All timestamps are UTC.
type RegistrationRepo struct {
    db *sql.DB
}

// NewRegistrationRepo returns a RegistrationRepo bound to the given database.
func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

// DB exposes the underlying handle so callers can compose transactions
// spanning this repository and others.
func (r *RegistrationRepo) DB() *sql.DB { return r.db }

// Register atomically registers a user for an event.
//
// A naive read-then-write here is wrong: two requests can both read
// occupancy 9 of 10, both pass the check, and both insert, overbooking the
// event. Register therefore locks the event row with SELECT ... FOR UPDATE
// at the start of the transaction, which serialises concurrent attempts on
// the same event. Under concurrent calls approaching capacity the number
// of successful registrations never exceeds the remaining seats.
//
// Inside the transaction it:
//  1. locks and re-reads the event's capacity and occupancy
//     (ErrEventNotFound when the event no longer exists);
//  2. checks for an existing (event, user) registration and returns
//     ErrAlreadyRegistered without mutating anything; registering twice
//     is idempotent, not an error;
//  3. returns ErrCapacityFull when occupancy >= capacity, again without
//     mutation;
//  4. otherwise inserts the registration row and increments occupancy by
//     exactly one, both inside the same transaction.
func (r *RegistrationRepo) Register(ctx context.Context, eventID, userID uint64) (*model.Registration, error) {
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

    // Row lock: blocks other Register transactions for this event until
    // commit or rollback.
    var capacity, occupancy uint32
    err = tx.QueryRowContext(ctx,
        `SELECT capacity, occupancy FROM events WHERE id = ? FOR UPDATE`,
        eventID,
    ).Scan(&capacity, &occupancy)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrEventNotFound
        }
        return nil, err
    }

    var existing int
    err = tx.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM registrations WHERE event_id = ? AND user_id = ?`,
        eventID, userID,
    ).Scan(&existing)
    if err != nil {
        return nil, err
    }
    if existing > 0 {
        return nil, ErrAlreadyRegistered
    }

    if occupancy >= capacity {
        return nil, ErrCapacityFull
    }

    now := time.Now().UTC()
    res, err := tx.ExecContext(ctx,
        `INSERT INTO registrations (event_id, user_id, created_at) VALUES (?, ?, ?)`,
        eventID, userID, now,
    )
    if err != nil {
        return nil, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return nil, err
    }

    if _, err = tx.ExecContext(ctx,
        `UPDATE events SET occupancy = occupancy + 1 WHERE id = ?`,
        eventID,
    ); err != nil {
        return nil, err
    }

    if err = tx.Commit(); err != nil {
        return nil, err
    }
    committed = true

    return &model.Registration{
        ID:        uint64(id),
        EventID:   eventID,
        UserID:    userID,
        CreatedAt: now,
    }, nil
}

// IsRegistered reports whether the user holds a registration for the event.
func (r *RegistrationRepo) IsRegistered(ctx context.Context, eventID, userID uint64) (bool, error) {
    var n int
    err := r.db.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM registrations WHERE event_id = ? AND user_id = ?`,
        eventID, userID,
    ).Scan(&n)
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

// RegistrationSummary is returned by ListByUser: the registration together
// with enough event detail to render a "my registrations" view without a
// second query.
type RegistrationSummary struct {
    EventID      uint64    `json:"event_id"`
    EventName    string    `json:"event_name"`
    StartsAt     time.Time `json:"starts_at"`
    Location     string    `json:"location"`
    RegisteredAt time.Time `json:"registered_at"`
}

// ListByUser returns all registrations for the given user with event
// details, newest first. When no registrations exist, an empty slice is
// returned.
func (r *RegistrationRepo) ListByUser(ctx context.Context, userID uint64) ([]RegistrationSummary, error) {
    const q = `SELECT r.event_id, e.name, e.starts_at, e.location, r.created_at
               FROM registrations r
               JOIN events e ON e.id = r.event_id
               WHERE r.user_id = ?
               ORDER BY r.created_at DESC`
    rows, err := r.db.QueryContext(ctx, q, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]RegistrationSummary, 0)
    for rows.Next() {
        var s RegistrationSummary
        if err := rows.Scan(&s.EventID, &s.EventName, &s.StartsAt, &s.Location, &s.RegisteredAt); err != nil {
            return nil, err
        }
        out = append(out, s)
    }
    return out, rows.Err()
}

// Registrant is one attendee row in an owner's registration listing.
type Registrant struct {
    UserID       uint64    `json:"user_id"`
    Email        string    `json:"email"`
    RegisteredAt time.Time `json:"registered_at"`
}

// ListByEventForOwner returns all registrants for an event when accessed by
// its owner. It verifies ownership first: sql.ErrNoRows is surfaced as
// ErrEventNotFound and a mismatched (or NULL) owner as ErrForbidden.
func (r *RegistrationRepo) ListByEventForOwner(ctx context.Context, eventID, ownerID uint64) ([]Registrant, error) {
    var actualOwner sql.NullInt64
    err := r.db.QueryRowContext(ctx,
        `SELECT owner_id FROM events WHERE id = ?`, eventID,
    ).Scan(&actualOwner)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrEventNotFound
        }
        return nil, err
    }
    if !actualOwner.Valid || uint64(actualOwner.Int64) != ownerID {
        return nil, ErrForbidden
    }

    const q = `SELECT r.user_id, u.email, r.created_at
               FROM registrations r
               JOIN users u ON u.id = r.user_id
               WHERE r.event_id = ?
               ORDER BY r.created_at ASC`
    rows, err := r.db.QueryContext(ctx, q, eventID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]Registrant, 0)
    for rows.Next() {
        var reg Registrant
        if err := rows.Scan(&reg.UserID, &reg.Email, &reg.RegisteredAt); err != nil {
            return nil, err
        }
        out = append(out, reg)
    }
    return out, rows.Err()
}
