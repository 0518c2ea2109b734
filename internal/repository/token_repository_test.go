package repository

import (
    "context"
    "database/sql"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func newTokenRepo(t *testing.T) (*TokenRepo, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() { _ = db.Close() })
    return NewTokenRepo(db), mock
}

func tokenRows() *sqlmock.Rows {
    return sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"})
}

func TestValidateRefresh_Active(t *testing.T) {
    repo, mock := newTokenRepo(t)

    mock.ExpectQuery(`SELECT user_id, expires_at, revoked_at FROM refresh_tokens`).
        WithArgs("hash").
        WillReturnRows(tokenRows().AddRow(42, time.Now().UTC().Add(time.Hour), nil))

    uid, err := repo.ValidateRefresh(context.Background(), "hash")
    require.NoError(t, err)
    assert.Equal(t, uint64(42), uid)
}

func TestValidateRefresh_ExpiredLooksUnknown(t *testing.T) {
    repo, mock := newTokenRepo(t)

    mock.ExpectQuery(`SELECT user_id, expires_at, revoked_at FROM refresh_tokens`).
        WithArgs("hash").
        WillReturnRows(tokenRows().AddRow(42, time.Now().UTC().Add(-time.Minute), nil))

    _, err := repo.ValidateRefresh(context.Background(), "hash")
    assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestValidateRefresh_RevokedLooksUnknown(t *testing.T) {
    repo, mock := newTokenRepo(t)

    mock.ExpectQuery(`SELECT user_id, expires_at, revoked_at FROM refresh_tokens`).
        WithArgs("hash").
        WillReturnRows(tokenRows().AddRow(42, time.Now().UTC().Add(time.Hour), time.Now().UTC()))

    _, err := repo.ValidateRefresh(context.Background(), "hash")
    assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRevokeByHash_OnlyActiveRows(t *testing.T) {
    repo, mock := newTokenRepo(t)

    mock.ExpectExec(`UPDATE refresh_tokens SET revoked_at = \? WHERE token_hash = \? AND revoked_at IS NULL`).
        WithArgs(sqlmock.AnyArg(), "hash").
        WillReturnResult(sqlmock.NewResult(0, 1))

    require.NoError(t, repo.RevokeByHash(context.Background(), "hash"))
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeAllForUser(t *testing.T) {
    repo, mock := newTokenRepo(t)

    mock.ExpectExec(`UPDATE refresh_tokens SET revoked_at = \? WHERE user_id = \? AND revoked_at IS NULL`).
        WithArgs(sqlmock.AnyArg(), uint64(42)).
        WillReturnResult(sqlmock.NewResult(0, 3))

    require.NoError(t, repo.RevokeAllForUser(context.Background(), 42))
    assert.NoError(t, mock.ExpectationsWereMet())
}
