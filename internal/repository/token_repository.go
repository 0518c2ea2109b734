package repository

import (
    "context"
    "database/sql"
    "time"
)

// TokenRepo persists refresh-token sessions. Only the SHA-256 hash of a
// refresh token is stored; the raw value exists solely in the client's
// hands. A row represents one signed-in session of a user, and rotation
// (refresh) revokes the old row and inserts a new one, so a replayed old
// token fails validation.
type TokenRepo struct {
    db *sql.DB
}

// NewTokenRepo returns a TokenRepo bound to the given database.
func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db} }

// StoreRefresh records a new session for the user, keyed by the token
// hash, expiring at exp (UTC).
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
    _, err := r.db.ExecContext(ctx,
        `INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)`,
        userID, tokenHash, exp.UTC())
    return err
}

// ValidateRefresh resolves a token hash to its user. Revoked and expired
// sessions are reported as sql.ErrNoRows, indistinguishable from a hash
// that was never issued.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
    var (
        userID    uint64
        expiresAt time.Time
        revokedAt sql.NullTime
    )
    err := r.db.QueryRowContext(ctx,
        `SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash = ? LIMIT 1`,
        tokenHash).Scan(&userID, &expiresAt, &revokedAt)
    if err != nil {
        return 0, err
    }
    if revokedAt.Valid || time.Now().UTC().After(expiresAt) {
        return 0, sql.ErrNoRows
    }
    return userID, nil
}

// RevokeByHash ends a single session. Already-revoked rows are left
// untouched so the original revocation time is preserved.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
    _, err := r.db.ExecContext(ctx,
        `UPDATE refresh_tokens SET revoked_at = ? WHERE token_hash = ? AND revoked_at IS NULL`,
        time.Now().UTC(), tokenHash)
    return err
}

// RevokeAllForUser ends every active session of the user, used by the
// sign-out-everywhere endpoint.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
    _, err := r.db.ExecContext(ctx,
        `UPDATE refresh_tokens SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL`,
        time.Now().UTC(), userID)
    return err
}
